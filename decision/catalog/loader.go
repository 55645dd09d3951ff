package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML snapshot document from disk.
func LoadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data, path)
}

// Parse builds a snapshot from YAML. Sections omitted from the document
// (multipliers, policy) keep the built-in defaults.
func Parse(data []byte, source string) (*Snapshot, error) {
	doc := DefaultDocument()
	doc.Roles = nil
	doc.Modules = nil

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}

	return NewSnapshot(doc, source)
}

// SaveFile writes the snapshot's document as YAML.
func SaveFile(s *Snapshot, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create catalog directory: %w", err)
	}

	data, err := yaml.Marshal(s.Document())
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}
	return nil
}
