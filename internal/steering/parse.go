package steering

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseFile reads a steering document. Files ending in .yaml/.yml are decoded
// as YAML, everything else as JSON.
func ParseFile(path string) (Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Model{}, err
	}
	return Parse(raw, filepath.Ext(path))
}

func Parse(raw []byte, ext string) (Model, error) {
	var m Model
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &m); err != nil {
			return Model{}, fmt.Errorf("invalid steering yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(raw, &m); err != nil {
			return Model{}, fmt.Errorf("invalid steering json: %w", err)
		}
	}
	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return Model{}, err
	}
	return m, nil
}
