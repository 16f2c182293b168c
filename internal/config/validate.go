package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidationError represents a configuration file problem with its location
type ValidationError struct {
	FilePath string
	Line     int
	Column   int
	Message  string
}

func (e *ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.FilePath, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.FilePath, e.Message)
}

// ValidateFile checks that a config file parses and contains only known keys.
// A missing or empty file is valid.
func ValidateFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		if os.IsPermission(err) {
			return &ValidationError{FilePath: filePath, Message: "permission denied"}
		}
		return &ValidationError{FilePath: filePath, Message: err.Error()}
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}

	var tree map[string]interface{}
	if strings.EqualFold(filepath.Ext(filePath), ".json") {
		if err := json.Unmarshal(data, &tree); err != nil {
			return &ValidationError{FilePath: filePath, Message: err.Error()}
		}
	} else if err := yaml.Unmarshal(data, &tree); err != nil {
		var typeErr *yaml.TypeError
		if errors.As(err, &typeErr) {
			return &ValidationError{FilePath: filePath, Message: strings.Join(typeErr.Errors, "; ")}
		}
		line, column := extractLineColumn(err.Error())
		return &ValidationError{FilePath: filePath, Line: line, Column: column, Message: cleanYAMLError(err.Error())}
	}

	var unknown []string
	collectUnknownKeys("", tree, &unknown)
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return &ValidationError{FilePath: filePath, Message: "unknown keys: " + strings.Join(unknown, ", ")}
	}
	return nil
}

func collectUnknownKeys(prefix string, tree map[string]interface{}, unknown *[]string) {
	for key, value := range tree {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if _, ok := KnownKeys[full]; ok {
			continue
		}
		if nested, ok := value.(map[string]interface{}); ok {
			collectUnknownKeys(full, nested, unknown)
			continue
		}
		*unknown = append(*unknown, full)
	}
}

// extractLineColumn extracts line and column numbers from a yaml.v3 error message.
// Returns 0, 0 if unable to extract.
func extractLineColumn(errMsg string) (line, column int) {
	var l, c int
	if n, _ := fmt.Sscanf(errMsg, "yaml: line %d: column %d:", &l, &c); n == 2 {
		return l, c
	}
	if n, _ := fmt.Sscanf(errMsg, "yaml: line %d:", &l); n == 1 {
		return l, 1
	}
	return 0, 0
}

// cleanYAMLError strips the "yaml: line X:" prefix from error messages
func cleanYAMLError(errMsg string) string {
	if !strings.HasPrefix(errMsg, "yaml:") {
		return errMsg
	}
	if idx := strings.LastIndex(errMsg, ": "); idx > 0 {
		return errMsg[idx+2:]
	}
	return errMsg
}
