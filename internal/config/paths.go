package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const appDir = "copilot-notifier"

// UserConfigDir returns the per-user configuration directory.
// On Linux XDG_CONFIG_HOME is honored; elsewhere ~/.config is used so the
// location is the same across platforms.
func UserConfigDir() (string, error) {
	if runtime.GOOS == "linux" {
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appDir), nil
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", appDir), nil
}

// UserConfigPath returns the path of the user config file
func UserConfigPath() (string, error) {
	dir, err := UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yml"), nil
}

// ProjectConfigPath returns the project-level config path, relative to the working directory
func ProjectConfigPath() string {
	return filepath.Join("."+appDir, "config.yml")
}

// StateDir returns the directory holding runtime state such as delivery history
func StateDir() (string, error) {
	dir, err := UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "state"), nil
}

// Paths lists the config files read by Load, lowest priority first
type Paths struct {
	User    string
	Project string
}

// DefaultPaths returns the standard user and project config locations.
// User is empty when the home directory cannot be determined.
func DefaultPaths() Paths {
	user, _ := UserConfigPath()
	return Paths{User: user, Project: ProjectConfigPath()}
}

// Files returns the non-empty paths in load order
func (p Paths) Files() []string {
	var out []string
	for _, f := range []string{p.User, p.Project} {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// expandHomePath expands ~ to the user's home directory
func expandHomePath(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
