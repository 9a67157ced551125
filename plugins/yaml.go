package plugins

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefinitionFile pairs a parsed stage definition with its source. Definitions
// produced by a Go script carry the script path plus "#n".
type DefinitionFile struct {
	Definition StageDefinition
	Path       string
}

func (f DefinitionFile) String() string {
	return fmt.Sprintf("%s (%s)", f.Definition.Kind, f.Path)
}

// ParseDefinition decodes one stage definition. Unknown fields are rejected
// and the result is normalized.
func ParseDefinition(data []byte) (StageDefinition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return StageDefinition{}, fmt.Errorf("plugin: definition payload is empty")
	}
	var def StageDefinition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return StageDefinition{}, fmt.Errorf("plugin: decode definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return StageDefinition{}, err
	}
	return def.Normalized(), nil
}

// LoadDir reads every stage definition in dir: *.yaml and *.yml files hold one
// definition each, *.go scripts may return several. Results are sorted by
// source path. A missing directory means no plugins.
func LoadDir(dir string) ([]DefinitionFile, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(trimmed)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("plugin: read %s: %w", trimmed, err)
	}
	var defs []DefinitionFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(trimmed, entry.Name())
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yaml", ".yml":
			def, err := loadYAMLDefinition(path)
			if err != nil {
				return nil, err
			}
			defs = append(defs, def)
		case ".go":
			scripted, err := loadScriptDefinitions(path)
			if err != nil {
				return nil, err
			}
			defs = append(defs, scripted...)
		}
	}
	if len(defs) == 0 {
		return nil, nil
	}
	sort.SliceStable(defs, func(i, j int) bool { return defs[i].Path < defs[j].Path })
	return defs, nil
}

func loadYAMLDefinition(path string) (DefinitionFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefinitionFile{}, fmt.Errorf("plugin: read %s: %w", path, err)
	}
	def, err := ParseDefinition(data)
	if err != nil {
		return DefinitionFile{}, fmt.Errorf("plugin: %s: %w", path, err)
	}
	return DefinitionFile{Definition: def, Path: filepath.Clean(path)}, nil
}
