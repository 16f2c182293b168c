// Package history stores the outcome of recent alert deliveries.
package history

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// HistoryFileName is the name of the history file.
	HistoryFileName = "history.yaml"
	// BackupSuffix is the suffix for backup files when corruption is detected.
	BackupSuffix = ".backup"
)

// Status values for history entries.
const (
	// StatusDelivered means a strategy presented the alert.
	StatusDelivered = "delivered"
	// StatusExhausted means every strategy failed.
	StatusExhausted = "exhausted"
	// StatusAbandoned means the chain was cut short by shutdown.
	StatusAbandoned = "abandoned"
)

// Failure is one failed strategy attempt
type Failure struct {
	Strategy string `yaml:"strategy"`
	Error    string `yaml:"error"`
}

// Entry records one delivery chain.
type Entry struct {
	// ID is the request ID shared with log lines for the same dispatch.
	ID        string    `yaml:"id"`
	Timestamp time.Time `yaml:"timestamp"`
	Title     string    `yaml:"title"`
	Body      string    `yaml:"body"`
	Severity  string    `yaml:"severity,omitempty"`
	Status    string    `yaml:"status"`
	// Strategy names the strategy that delivered; empty unless Status is delivered.
	Strategy string    `yaml:"strategy,omitempty"`
	Failures []Failure `yaml:"failures,omitempty"`
}

// File represents the YAML file containing all history entries.
type File struct {
	// Entries is ordered oldest first.
	Entries []Entry `yaml:"entries"`
}

// Load loads the history file from the given state directory.
// Returns empty history if the file doesn't exist. A corrupted file is
// moved aside with BackupSuffix and replaced by an empty history.
func Load(stateDir string) (*File, error) {
	path := filepath.Join(stateDir, HistoryFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &File{Entries: []Entry{}}, nil
		}
		return nil, fmt.Errorf("reading history file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		if err := os.Rename(path, path+BackupSuffix); err != nil {
			return nil, fmt.Errorf("backing up corrupted history file: %w", err)
		}
		return &File{Entries: []Entry{}}, nil
	}
	if f.Entries == nil {
		f.Entries = []Entry{}
	}
	return &f, nil
}

// Save writes the history file to the given state directory atomically,
// creating the directory if needed.
func Save(stateDir string, f *File) error {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshaling history: %w", err)
	}

	tmp, err := os.CreateTemp(stateDir, ".history-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp history file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing temp history file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing temp history file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(stateDir, HistoryFileName)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("renaming temp history file: %w", err)
	}
	return nil
}

// Clear removes all entries from the history file.
func Clear(stateDir string) error {
	return Save(stateDir, &File{Entries: []Entry{}})
}
