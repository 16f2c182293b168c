package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrNotBool is returned when toggling a key that is not a boolean
var ErrNotBool = errors.New("key is not a boolean")

// ConfigValueType defines the expected type for a configuration value.
type ConfigValueType int

const (
	TypeBool ConfigValueType = iota
	TypeInt
	TypeString
	TypeEnum
)

// String returns the string representation of ConfigValueType.
func (t ConfigValueType) String() string {
	switch t {
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeString:
		return "string"
	case TypeEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// ConfigKeySchema defines a known configuration key with its expected type and validation rules.
type ConfigKeySchema struct {
	Path          string          // Dotted key path (e.g., "bridge.addr")
	Type          ConfigValueType // Expected value type for validation
	AllowedValues []string        // Valid values for enum types (empty for non-enums)
	Description   string          // Human-readable description for help text
	Default       interface{}     // Default value
}

// KnownKeys is the registry of all known configuration keys with their schemas.
var KnownKeys = buildKnownKeys([]ConfigKeySchema{
	{Path: "enabled", Type: TypeBool, Description: "Enable or disable all notifications"},
	{Path: "monitor_session", Type: TypeBool, Description: "Watch edits for Copilot session start, pause and end"},
	{Path: "session_timeout_seconds", Type: TypeInt, Description: "Seconds without edits before a session is considered ended"},
	{Path: "burst_delta_threshold", Type: TypeInt, Description: "Characters changed in one edit that count as an accepted suggestion"},
	{Path: "rapid_typing_window_ms", Type: TypeInt, Description: "Pause in milliseconds after which a continuation prompt is suspected"},
	{Path: "minimum_suggestion_length", Type: TypeInt, Description: "Shortest suggestion, in characters, that raises an alert"},
	{Path: "use_sound", Type: TypeBool, Description: "Play a sound with each alert"},
	{Path: "sound_file", Type: TypeString, Description: "Custom sound file (wav, mp3, aiff, ogg, flac, m4a)"},
	{Path: "notification_type", Type: TypeEnum, AllowedValues: []string{"info", "warning", "error"}, Description: "Alert severity"},
	{Path: "native_notifications", Type: TypeBool, Description: "Use operating system notifications before the terminal surface"},
	{Path: "show_editor_messages", Type: TypeBool, Description: "Mirror suggestion alerts as editor messages with actions"},
	{Path: "silent_mode", Type: TypeBool, Description: "Suppress every alert"},
	{Path: "bridge.addr", Type: TypeString, Description: "Listen address of the editor bridge"},
	{Path: "bridge.token", Type: TypeString, Description: "Shared token editor plugins must present (empty disables auth)"},
	{Path: "watch.dir", Type: TypeString, Description: "Directory watched for file edits (empty disables the file watcher)"},
	{Path: "history.max_entries", Type: TypeInt, Description: "Maximum number of delivery history entries to retain"},
	{Path: "log.level", Type: TypeEnum, AllowedValues: []string{"debug", "info", "warn", "error"}, Description: "Log level"},
	{Path: "log.format", Type: TypeEnum, AllowedValues: []string{"auto", "console", "json"}, Description: "Log encoding"},
})

func buildKnownKeys(schemas []ConfigKeySchema) map[string]ConfigKeySchema {
	defaults := GetDefaults()
	keys := make(map[string]ConfigKeySchema, len(schemas))
	for _, s := range schemas {
		s.Default = defaults[s.Path]
		keys[s.Path] = s
	}
	return keys
}

// SortedKeys returns the known key paths in alphabetical order
func SortedKeys() []string {
	out := make([]string, 0, len(KnownKeys))
	for k := range KnownKeys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ErrUnknownKey is returned when trying to access an unknown configuration key.
type ErrUnknownKey struct {
	Key string
}

func (e ErrUnknownKey) Error() string {
	return "unknown configuration key: " + e.Key
}

// GetKeySchema returns the schema for a known configuration key.
// Returns ErrUnknownKey if the key is not in the registry.
func GetKeySchema(path string) (ConfigKeySchema, error) {
	schema, ok := KnownKeys[path]
	if !ok {
		return ConfigKeySchema{}, ErrUnknownKey{Key: path}
	}
	return schema, nil
}

// ParsedValue represents a configuration value after validation.
type ParsedValue struct {
	Raw    string      // Original string input from user
	Parsed interface{} // Value converted to correct type
	Type   ConfigValueType
}

// ValidateValue validates a value against the schema for a given key.
// Returns the parsed value or an error with details about what's wrong.
func ValidateValue(key, value string) (ParsedValue, error) {
	schema, err := GetKeySchema(key)
	if err != nil {
		return ParsedValue{}, err
	}
	return validateAgainstSchema(schema, value)
}

func validateAgainstSchema(schema ConfigKeySchema, value string) (ParsedValue, error) {
	switch schema.Type {
	case TypeBool:
		switch strings.ToLower(value) {
		case "true":
			return ParsedValue{Raw: value, Parsed: true, Type: TypeBool}, nil
		case "false":
			return ParsedValue{Raw: value, Parsed: false, Type: TypeBool}, nil
		}
		return ParsedValue{}, fmt.Errorf("invalid boolean: %q (expected true or false)", value)
	case TypeInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return ParsedValue{}, fmt.Errorf("invalid integer: %q", value)
		}
		return ParsedValue{Raw: value, Parsed: n, Type: TypeInt}, nil
	case TypeEnum:
		for _, allowed := range schema.AllowedValues {
			if value == allowed {
				return ParsedValue{Raw: value, Parsed: value, Type: TypeEnum}, nil
			}
		}
		return ParsedValue{}, fmt.Errorf("invalid value: %q (valid options: %s)",
			value, strings.Join(schema.AllowedValues, ", "))
	case TypeString:
		return ParsedValue{Raw: value, Parsed: value, Type: TypeString}, nil
	default:
		return ParsedValue{}, fmt.Errorf("unsupported type: %v", schema.Type)
	}
}
