package strategy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the conventional strategy file name inside a project.
const DefaultFile = "strategy.yaml"

// ParseYAML decodes a strategy from YAML/JSON bytes. Unknown keys are
// rejected. An empty payload yields an empty strategy.
func ParseYAML(data []byte) (*Strategy, error) {
	s := &Strategy{}
	if len(bytes.TrimSpace(data)) == 0 {
		return s, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("strategy: decode: %w", err)
	}
	s.Normalize()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadReader reads strategy data from an io.Reader.
func LoadReader(r io.Reader) (*Strategy, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("strategy: read: %w", err)
	}
	return ParseYAML(content)
}

// LoadFile loads a strategy from an explicit file path.
func LoadFile(path string) (*Strategy, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("strategy: read %s: %w", path, err)
	}
	s, parseErr := ParseYAML(content)
	if parseErr != nil {
		return nil, fmt.Errorf("strategy: %s: %w", path, parseErr)
	}
	return s, nil
}

// Encode renders the strategy as YAML.
func Encode(s *Strategy) ([]byte, error) {
	if s == nil {
		s = &Strategy{}
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("strategy: encode: %w", err)
	}
	return data, nil
}

// WriteFile persists the strategy as YAML, creating parent directories.
func WriteFile(path string, s *Strategy) error {
	data, err := Encode(s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("strategy: ensure dir for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("strategy: write %s: %w", path, err)
	}
	return nil
}

// Override returns a copy of s with a single key replaced. Keys use the YAML
// field names and may address nested blocks with dots
// (e.g. "amp_configs.init_loss_scaling"). Values are parsed as YAML scalars or
// flow collections, so "true", "4" and "[a, b]" keep their types.
func Override(s *Strategy, key, raw string) (*Strategy, error) {
	path := splitKey(key)
	if len(path) == 0 {
		return nil, fmt.Errorf("strategy: override key is empty")
	}
	var value any
	if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
		return nil, fmt.Errorf("strategy: override %s: parse value %q: %w", key, raw, err)
	}
	data, err := Encode(s)
	if err != nil {
		return nil, err
	}
	doc := map[string]any{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("strategy: override %s: %w", key, err)
	}
	if err := setPath(doc, path, value); err != nil {
		return nil, fmt.Errorf("strategy: override %s: %w", key, err)
	}
	merged, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("strategy: override %s: %w", key, err)
	}
	out, err := ParseYAML(merged)
	if err != nil {
		return nil, fmt.Errorf("strategy: override %s: %w", key, err)
	}
	return out, nil
}

func splitKey(key string) []string {
	var parts []string
	for _, part := range strings.Split(key, ".") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		parts = append(parts, part)
	}
	return parts
}

func setPath(doc map[string]any, path []string, value any) error {
	current := doc
	for _, part := range path[:len(path)-1] {
		next, ok := current[part]
		if !ok || next == nil {
			child := map[string]any{}
			current[part] = child
			current = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("%s is not a block", part)
		}
		current = child
	}
	current[path[len(path)-1]] = value
	return nil
}
