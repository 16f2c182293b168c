// Package config loads the notifier configuration from defaults, user and
// project files and the environment, and writes single keys back to a file
// without disturbing its comments.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/copilot-notifier/copilot-notifier/internal/activity"
	"github.com/copilot-notifier/copilot-notifier/internal/notify"
)

// EnvPrefix prefixes every environment override.
// Nested keys use a double underscore: COPILOT_NOTIFIER_BRIDGE__ADDR -> bridge.addr
const EnvPrefix = "COPILOT_NOTIFIER_"

// Configuration represents the notifier configuration
type Configuration struct {
	Enabled                 bool   `koanf:"enabled"`
	MonitorSession          bool   `koanf:"monitor_session"`
	SessionTimeoutSeconds   int    `koanf:"session_timeout_seconds" validate:"min=1,max=86400"`
	BurstDeltaThreshold     int    `koanf:"burst_delta_threshold" validate:"min=1"`
	RapidTypingWindowMS     int    `koanf:"rapid_typing_window_ms" validate:"min=1,max=600000"`
	MinimumSuggestionLength int    `koanf:"minimum_suggestion_length" validate:"min=0"`
	UseSound                bool   `koanf:"use_sound"`
	SoundFile               string `koanf:"sound_file"`
	NotificationType        string `koanf:"notification_type" validate:"oneof=info warning error"`
	NativeNotifications     bool   `koanf:"native_notifications"`
	ShowEditorMessages      bool   `koanf:"show_editor_messages"`
	SilentMode              bool   `koanf:"silent_mode"`

	Bridge  BridgeConfig  `koanf:"bridge"`
	Watch   WatchConfig   `koanf:"watch"`
	History HistoryConfig `koanf:"history"`
	Log     LogConfig     `koanf:"log"`

	k *koanf.Koanf
}

// BridgeConfig configures the editor bridge server
type BridgeConfig struct {
	Addr  string `koanf:"addr" validate:"required,hostname_port"`
	Token string `koanf:"token"`
}

// WatchConfig configures the filesystem edit source
type WatchConfig struct {
	Dir string `koanf:"dir"`
}

// HistoryConfig configures delivery history retention
type HistoryConfig struct {
	MaxEntries int `koanf:"max_entries" validate:"min=1,max=100000"`
}

// LogConfig configures logging
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=auto console json"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("koanf"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Load loads configuration from defaults, the given files and the environment.
// Priority: Environment variables > Project config > User config > Defaults
//
// A file that cannot be parsed is logged and skipped. A value with the wrong
// type or outside its allowed range is logged and replaced by its default, so
// one bad key never discards the rest of the configuration.
func Load(paths Paths, logger *zap.Logger) (*Configuration, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	k := koanf.New(".")
	for key, value := range GetDefaults() {
		k.Set(key, value)
	}

	for _, path := range paths.Files() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
			logger.Warn("ignoring unreadable config file", zap.String("path", path), zap.Error(err))
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		logger.Warn("ignoring environment overrides", zap.Error(err))
	}

	return build(k, logger)
}

// Default returns the built-in configuration without reading files or the environment
func Default() *Configuration {
	k := koanf.New(".")
	for key, value := range GetDefaults() {
		k.Set(key, value)
	}
	cfg, err := build(k, zap.NewNop())
	if err != nil {
		panic(fmt.Sprintf("built-in defaults are invalid: %v", err))
	}
	return cfg
}

func build(k *koanf.Koanf, logger *zap.Logger) (*Configuration, error) {
	resetMistyped(k, logger)

	cfg, err := decode(k)
	if err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
		defaults := GetDefaults()
		for _, fe := range fieldErrs {
			key := fieldKey(fe)
			logger.Warn("invalid config value, using default",
				zap.String("key", key), zap.Any("value", fe.Value()), zap.String("rule", fe.Tag()))
			k.Set(key, defaults[key])
		}
		if cfg, err = decode(k); err != nil {
			return nil, err
		}
		if err := validate.Struct(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	cfg.SoundFile = expandHomePath(cfg.SoundFile)
	cfg.Watch.Dir = expandHomePath(cfg.Watch.Dir)
	cfg.k = k
	return cfg, nil
}

// resetMistyped replaces values that do not parse as their schema type
func resetMistyped(k *koanf.Koanf, logger *zap.Logger) {
	for key, schema := range KnownKeys {
		if !k.Exists(key) {
			continue
		}
		v := k.Get(key)
		if v == nil {
			k.Set(key, schema.Default)
			continue
		}
		raw := fmt.Sprint(v)
		if _, err := validateAgainstSchema(schema, raw); err != nil {
			logger.Warn("invalid config value, using default", zap.String("key", key), zap.Error(err))
			k.Set(key, schema.Default)
		}
	}
}

func decode(k *koanf.Koanf) (*Configuration, error) {
	var cfg Configuration
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// fieldKey converts a validator namespace such as "Configuration.bridge.addr" to a dotted key
func fieldKey(fe validator.FieldError) string {
	parts := strings.SplitN(fe.Namespace(), ".", 2)
	if len(parts) < 2 {
		return fe.Field()
	}
	return parts[1]
}

func parserFor(path string) koanf.Parser {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return json.Parser()
	}
	return kyaml.Parser()
}

// envTransform converts environment variable names to config keys
// Example: COPILOT_NOTIFIER_USE_SOUND -> use_sound, COPILOT_NOTIFIER_LOG__LEVEL -> log.level
func envTransform(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// Get returns the effective value of a known key, typed per its schema
func (c *Configuration) Get(key string) (interface{}, error) {
	schema, err := GetKeySchema(key)
	if err != nil {
		return nil, err
	}
	if c.k == nil || !c.k.Exists(key) {
		return schema.Default, nil
	}
	parsed, err := validateAgainstSchema(schema, fmt.Sprint(c.k.Get(key)))
	if err != nil {
		return schema.Default, nil
	}
	return parsed.Parsed, nil
}

// Bool returns the effective value of a boolean key
func (c *Configuration) Bool(key string) (bool, error) {
	schema, err := GetKeySchema(key)
	if err != nil {
		return false, err
	}
	if schema.Type != TypeBool {
		return false, fmt.Errorf("%s is a %s: %w", key, schema.Type, ErrNotBool)
	}
	v, err := c.Get(key)
	if err != nil {
		return false, err
	}
	b, _ := v.(bool)
	return b, nil
}

// ActivitySettings returns the monitor settings snapshot.
// Monitoring runs only when both enabled and monitor_session are set.
func (c *Configuration) ActivitySettings() activity.Settings {
	return activity.Settings{
		MonitoringEnabled:   c.Enabled && c.MonitorSession,
		InactivityTimeout:   time.Duration(c.SessionTimeoutSeconds) * time.Second,
		BurstDeltaThreshold: c.BurstDeltaThreshold,
		RapidTypingWindow:   time.Duration(c.RapidTypingWindowMS) * time.Millisecond,
	}
}

// Policy returns the alert policy snapshot. Disabled notifications behave
// like silent mode.
func (c *Configuration) Policy() notify.Policy {
	return notify.Policy{
		SilentMode:              c.SilentMode || !c.Enabled,
		MinimumSuggestionLength: c.MinimumSuggestionLength,
		UseSound:                c.UseSound,
		Severity:                notify.ParseSeverity(c.NotificationType),
		ShowEditorMessages:      c.ShowEditorMessages,
	}
}

// StrategyOptions returns the delivery strategy options for this configuration
func (c *Configuration) StrategyOptions(logger *zap.Logger) notify.StrategyOptions {
	return notify.StrategyOptions{
		Native:    c.NativeNotifications,
		SoundFile: c.SoundFile,
		Logger:    logger,
	}
}
