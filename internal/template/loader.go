package template

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/docketry/docket/pkg/api"
)

// LoadFile parses a single YAML template definition
func LoadFile(path string) (*api.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML template definition
func Parse(data []byte) (*api.Template, error) {
	var t api.Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("%w: %w", api.ErrValidation, err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", api.ErrValidation, err)
	}
	return &t, nil
}

// LoadDir registers every .yml and .yaml template found in the directory,
// returning the number of templates registered
func LoadDir(s *Store, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read template directory: %w", err)
	}
	count := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".yml" && ext != ".yaml" {
			continue
		}
		t, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			return count, fmt.Errorf("template %s: %w", name, err)
		}
		if err := s.Register(t); err != nil {
			return count, fmt.Errorf("template %s: %w", name, err)
		}
		count++
	}
	return count, nil
}
