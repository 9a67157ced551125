package plugins

import (
	"fmt"

	"github.com/kingrea/strategy-compiler/internal/config"
	"github.com/kingrea/strategy-compiler/internal/stage"
)

// RegisterStagePlugins discovers YAML and Go stage definitions under
// .stratc/stages and registers them after whatever the registry already holds.
// It returns the registered kinds in registration order.
func RegisterStagePlugins(reg *stage.Registry, cfg *config.Config) ([]stage.Kind, error) {
	if reg == nil || cfg == nil {
		return nil, nil
	}
	return RegisterDir(reg, cfg.StagesDir())
}

// RegisterDir registers every stage definition found in dir. Once all of them
// are registered, each accepts list must name registered kinds of the
// definition's own family.
func RegisterDir(reg *stage.Registry, dir string) ([]stage.Kind, error) {
	defs, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}
	if len(defs) == 0 {
		return nil, nil
	}
	seen := make(map[string]string)
	var kinds []stage.Kind
	for _, file := range defs {
		def := file.Definition
		if existing, ok := seen[def.Kind]; ok {
			return nil, fmt.Errorf("plugin: duplicate stage kind %s (%s and %s)", def.Kind, existing, file.Path)
		}
		seen[def.Kind] = file.Path
		if err := reg.Register(def.Info(), func(stage.Config) (stage.Stage, error) {
			return newStage(def), nil
		}); err != nil {
			return nil, fmt.Errorf("plugin: register %s: %w", file, err)
		}
		kinds = append(kinds, def.Info().Kind)
	}
	for _, file := range defs {
		if err := checkAccepts(reg, file); err != nil {
			return nil, err
		}
	}
	return kinds, nil
}

func checkAccepts(reg *stage.Registry, file DefinitionFile) error {
	family := file.Definition.Info().Family
	for _, kind := range file.Definition.Accepts {
		info, ok := reg.Lookup(stage.Kind(kind))
		if !ok {
			return fmt.Errorf("plugin: %s: accepts unknown stage %s", file, kind)
		}
		if info.Family != family {
			return fmt.Errorf("plugin: %s: accepts %s from the %s family, stage is %s", file, kind, info.Family, family)
		}
	}
	return nil
}
