package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrEmptyKeyPath is returned when an empty key path is provided.
var ErrEmptyKeyPath = errors.New("empty key path")

// ErrReadOnlyFormat is returned when writing to a config file that is not YAML
var ErrReadOnlyFormat = errors.New("only YAML config files can be written")

// ParseKeyPath splits a dotted key path into its component parts.
// For example, "bridge.addr" becomes ["bridge", "addr"].
func ParseKeyPath(path string) ([]string, error) {
	if path == "" {
		return nil, ErrEmptyKeyPath
	}
	return strings.Split(path, "."), nil
}

// rootMapping returns the top-level mapping of a document, creating it for an empty node
func rootMapping(root *yaml.Node) (*yaml.Node, error) {
	switch {
	case root.Kind == 0:
		m := &yaml.Node{Kind: yaml.MappingNode}
		root.Kind = yaml.DocumentNode
		root.Content = []*yaml.Node{m}
		return m, nil
	case root.Kind == yaml.DocumentNode && len(root.Content) == 0:
		m := &yaml.Node{Kind: yaml.MappingNode}
		root.Content = []*yaml.Node{m}
		return m, nil
	case root.Kind == yaml.DocumentNode:
		m := root.Content[0]
		if m.Kind != yaml.MappingNode {
			// A document holding only a scalar or null is replaced by a mapping.
			*m = yaml.Node{Kind: yaml.MappingNode}
		}
		return m, nil
	case root.Kind == yaml.MappingNode:
		return root, nil
	default:
		return nil, fmt.Errorf("root node must be document or mapping, got %v", root.Kind)
	}
}

// SetNestedValue sets a value in a YAML node tree at the specified key path,
// creating intermediate mappings as needed. Existing comments are kept.
func SetNestedValue(root *yaml.Node, keyPath []string, value interface{}) error {
	if len(keyPath) == 0 {
		return ErrEmptyKeyPath
	}
	node, err := rootMapping(root)
	if err != nil {
		return err
	}

	for i, key := range keyPath {
		last := i == len(keyPath)-1
		child := mappingValue(node, key)
		if child == nil {
			child = &yaml.Node{Kind: yaml.MappingNode}
			node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: key}, child)
		}
		if last {
			setScalar(child, value)
			return nil
		}
		if child.Kind != yaml.MappingNode {
			child.Kind = yaml.MappingNode
			child.Tag = ""
			child.Value = ""
			child.Content = nil
		}
		node = child
	}
	return nil
}

// GetNestedValue retrieves the node at the specified key path, or nil.
func GetNestedValue(root *yaml.Node, keyPath []string) *yaml.Node {
	if root == nil || len(keyPath) == 0 {
		return nil
	}
	node := root
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return nil
		}
		node = node.Content[0]
	}
	for _, key := range keyPath {
		if node.Kind != yaml.MappingNode {
			return nil
		}
		if node = mappingValue(node, key); node == nil {
			return nil
		}
	}
	return node
}

// mappingValue returns the value node stored under key in a mapping node
func mappingValue(node *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func setScalar(node *yaml.Node, value interface{}) {
	node.Kind = yaml.ScalarNode
	node.Content = nil
	node.Style = 0
	switch v := value.(type) {
	case bool:
		node.Tag = "!!bool"
		node.Value = strconv.FormatBool(v)
	case int:
		node.Tag = "!!int"
		node.Value = strconv.Itoa(v)
	case string:
		node.Tag = "!!str"
		node.Value = v
	default:
		node.Tag = ""
		node.Value = fmt.Sprint(v)
	}
}

// writeAtomically writes content through a temporary file and rename,
// creating parent directories as needed.
func writeAtomically(path string, content []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("writing to temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// SetConfigValue validates value against the key's schema and writes it to
// the YAML file at filePath, creating the file if needed.
func SetConfigValue(filePath, key, value string) error {
	parsed, err := ValidateValue(key, value)
	if err != nil {
		return fmt.Errorf("validating value: %w", err)
	}
	return writeValue(filePath, key, parsed.Parsed)
}

// ToggleConfigValue writes the negation of current for a boolean key and
// returns the new value.
func ToggleConfigValue(filePath, key string, current bool) (bool, error) {
	schema, err := GetKeySchema(key)
	if err != nil {
		return false, err
	}
	if schema.Type != TypeBool {
		return false, fmt.Errorf("%s is a %s: %w", key, schema.Type, ErrNotBool)
	}
	next := !current
	if err := writeValue(filePath, key, next); err != nil {
		return current, err
	}
	return next, nil
}

func writeValue(filePath, key string, value interface{}) error {
	if strings.EqualFold(filepath.Ext(filePath), ".json") {
		return fmt.Errorf("%s: %w", filePath, ErrReadOnlyFormat)
	}
	keyPath, err := ParseKeyPath(key)
	if err != nil {
		return fmt.Errorf("parsing key path: %w", err)
	}
	root, err := loadOrCreateYAML(filePath)
	if err != nil {
		return err
	}
	if err := SetNestedValue(root, keyPath, value); err != nil {
		return fmt.Errorf("setting nested value: %w", err)
	}
	content, err := yaml.Marshal(root)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	if err := writeAtomically(filePath, content); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// loadOrCreateYAML loads a YAML file or returns an empty document node.
func loadOrCreateYAML(filePath string) (*yaml.Node, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode}}}, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	return &root, nil
}
