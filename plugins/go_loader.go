package plugins

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"gopkg.in/yaml.v3"
)

// definitionsFunc is the symbol a Go stage script exports. It returns one
// map per stage using the same keys as a YAML definition.
const definitionsFunc = "StageDefinitions"

// loadScriptDefinitions interprets a Go stage script and parses every
// definition it returns. Errors name the script entry and, once decoded,
// the stage kind.
func loadScriptDefinitions(path string) ([]DefinitionFile, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("plugin: read %s: %w", path, err)
	}
	if strings.TrimSpace(string(code)) == "" {
		return nil, fmt.Errorf("plugin: %s is empty", path)
	}
	raw, err := evalDefinitions(path)
	if err != nil {
		return nil, fmt.Errorf("plugin: %s: %w", path, err)
	}
	files := make([]DefinitionFile, 0, len(raw))
	for idx, fields := range raw {
		source := fmt.Sprintf("%s#%d", filepath.Clean(path), idx+1)
		payload, err := yaml.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("plugin: %s: %w", source, err)
		}
		def, err := ParseDefinition(payload)
		if err != nil {
			if kind, ok := fields["kind"].(string); ok && kind != "" {
				return nil, fmt.Errorf("plugin: %s: stage %s: %w", source, kind, err)
			}
			return nil, fmt.Errorf("plugin: %s: %w", source, err)
		}
		files = append(files, DefinitionFile{Definition: def, Path: source})
	}
	return files, nil
}

func evalDefinitions(path string) ([]map[string]any, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("load stdlib symbols: %w", err)
	}
	if _, err := i.EvalPath(path); err != nil {
		return nil, fmt.Errorf("interpret: %w", err)
	}
	v, err := i.Eval(definitionsFunc)
	if err != nil {
		return nil, fmt.Errorf("must define %s() ([]map[string]any, error): %w", definitionsFunc, err)
	}
	if !v.IsValid() || !v.CanInterface() {
		return nil, fmt.Errorf("%s is not callable", definitionsFunc)
	}
	switch fn := v.Interface().(type) {
	case func() ([]map[string]any, error):
		return fn()
	case func() []map[string]any:
		return fn(), nil
	default:
		return nil, fmt.Errorf("%s has type %T, want func() ([]map[string]any, error)", definitionsFunc, fn)
	}
}
