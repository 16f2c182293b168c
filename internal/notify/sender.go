package notify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultAttemptTimeout bounds one external notification process.
// Popups that wait for a click are given their own display timeout below this.
const DefaultAttemptTimeout = 15 * time.Second

// CommandRunner abstracts process spawning so strategies can be tested without
// triggering real OS notifications
type CommandRunner interface {
	LookPath(name string) (string, error)
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

// LookPath searches PATH for name
func (ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Run starts the command and waits for it to exit
func (ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// command is one process invocation
type command struct {
	name string
	args []string
}

// execStrategy presents an alert by running an external tool
type execStrategy struct {
	name    string
	tool    string
	runner  CommandRunner
	timeout time.Duration
	logger  *zap.Logger

	// build returns the process invocation for req
	build func(req Request) command

	// sound, when set, plays a cue after a successful attempt for requests
	// that want sound and whose build did not already include one
	sound func(req Request) (command, bool)

	// okExit lists non-zero exit codes that still mean "shown"
	// (e.g. zenity exits 5 when its display timeout elapses)
	okExit []int

	// requires is an extra availability check (e.g. a display server)
	requires func() bool
}

func (s *execStrategy) Name() string { return s.name }

// Available returns true if the tool is on PATH and any extra requirement holds
func (s *execStrategy) Available() bool {
	if _, err := s.runner.LookPath(s.tool); err != nil {
		return false
	}
	return s.requires == nil || s.requires()
}

func (s *execStrategy) Attempt(ctx context.Context, req Request, done func(Outcome)) {
	if !s.Available() {
		done(Outcome{Strategy: s.name, Err: fmt.Errorf("%s: %w", s.tool, ErrToolUnavailable)})
		return
	}

	cmd := s.build(req)
	go func() {
		actx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		if err := s.runner.Run(actx, cmd.name, cmd.args...); err != nil && !s.acceptable(err) {
			done(Outcome{Strategy: s.name, Err: fmt.Errorf("%s: %w", s.name, err)})
			return
		}
		if req.WantsSound && s.sound != nil {
			if snd, ok := s.sound(req); ok {
				// Sound is best-effort; a silent alert is still delivered.
				if err := s.runner.Run(actx, snd.name, snd.args...); err != nil {
					s.logger.Debug("sound cue failed", zap.String("strategy", s.name), zap.Error(err))
				}
			}
		}
		done(Outcome{Strategy: s.name})
	}()
}

// acceptable reports whether err is an exit status listed in okExit
func (s *execStrategy) acceptable(err error) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	for _, code := range s.okExit {
		if exitErr.ExitCode() == code {
			return true
		}
	}
	return false
}

// StrategyOptions configures the platform strategy set
type StrategyOptions struct {
	// Native enables OS notification strategies; when false only the fallback runs
	Native bool

	// SoundFile is an optional custom sound played where the platform allows one
	SoundFile string

	// Runner overrides process spawning (tests)
	Runner CommandRunner

	// Logger receives debug output from strategies
	Logger *zap.Logger
}

func (o StrategyOptions) withDefaults() StrategyOptions {
	if o.Runner == nil {
		o.Runner = ExecRunner{}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// DefaultStrategies returns the gated strategy chain for the current platform,
// or nil when native notifications are disabled or the platform is unsupported
func DefaultStrategies(opts StrategyOptions) []Strategy {
	return StrategiesFor(Platform(), opts)
}

// StrategiesFor returns the gated strategy chain for goos
func StrategiesFor(goos string, opts StrategyOptions) []Strategy {
	if !opts.Native {
		return nil
	}
	opts = opts.withDefaults()

	var list []*execStrategy
	switch goos {
	case "linux":
		list = linuxStrategies(opts)
	case "darwin":
		list = darwinStrategies(opts)
	case "windows":
		list = windowsStrategies(opts)
	default:
		return nil
	}

	out := make([]Strategy, 0, len(list))
	for _, s := range list {
		out = append(out, Gate(goos, s))
	}
	return out
}

// AllStrategies returns every platform's strategies, each gated to its own
// platform. Used to look up a strategy by name regardless of host OS.
func AllStrategies(opts StrategyOptions) []Strategy {
	opts.Native = true
	var out []Strategy
	for _, goos := range []string{"linux", "darwin", "windows"} {
		out = append(out, StrategiesFor(goos, opts)...)
	}
	return out
}

// FindStrategy returns the strategy with the given name from list
func FindStrategy(list []Strategy, name string) (Strategy, bool) {
	for _, s := range list {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

// supportedAudioExtensions contains file extensions supported for custom sounds
var supportedAudioExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".aiff": true,
	".aif":  true,
	".ogg":  true,
	".oga":  true,
	".flac": true,
	".m4a":  true,
}

// ValidateSoundFile checks if the sound file exists and has a supported format.
// Returns the path to use, or an empty string to fall back to the platform default.
func ValidateSoundFile(soundFile string, logger *zap.Logger) string {
	if soundFile == "" {
		return ""
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	info, err := os.Stat(soundFile)
	if err != nil {
		logger.Warn("custom sound file unusable, falling back to default", zap.String("path", soundFile), zap.Error(err))
		return ""
	}
	if info.IsDir() {
		logger.Warn("sound path is a directory, falling back to default", zap.String("path", soundFile))
		return ""
	}

	ext := strings.ToLower(filepath.Ext(soundFile))
	if !supportedAudioExtensions[ext] {
		logger.Warn("unsupported audio format, falling back to default", zap.String("path", soundFile), zap.String("ext", ext))
		return ""
	}
	return soundFile
}
