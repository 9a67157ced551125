package plugins

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kingrea/strategy-compiler/internal/stage"
	"github.com/kingrea/strategy-compiler/internal/stages"
)

var kindPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// StageDefinition describes a plugin stage loaded from .stratc/stages.
//
// The struct mirrors the on-disk schema under .stratc/stages/*.yaml. A plugin
// stage is enabled through strategy extensions keyed by its kind.
type StageDefinition struct {
	Kind        string       `json:"kind" yaml:"kind"`
	Family      string       `json:"family,omitempty" yaml:"family,omitempty"`
	Name        string       `json:"name" yaml:"name"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Accepts     []string     `json:"accepts,omitempty" yaml:"accepts,omitempty"`
	Requires    Requirements `json:"requires,omitempty" yaml:"requires,omitempty"`
}

// Requirements are the preconditions a plugin stage checks before it joins
// a chain.
type Requirements struct {
	Optimizers []string `json:"optimizers,omitempty" yaml:"optimizers,omitempty"`
	Collective bool     `json:"collective,omitempty" yaml:"collective,omitempty"`
}

// Normalized returns a trimmed, copy-on-write variant of the definition.
func (def StageDefinition) Normalized() StageDefinition {
	clone := StageDefinition{
		Kind:        strings.ToLower(strings.TrimSpace(def.Kind)),
		Family:      strings.ToLower(strings.TrimSpace(def.Family)),
		Name:        strings.TrimSpace(def.Name),
		Description: strings.TrimSpace(def.Description),
		Accepts:     normalizeList(def.Accepts),
		Requires: Requirements{
			Optimizers: normalizeList(def.Requires.Optimizers),
			Collective: def.Requires.Collective,
		},
	}
	if clone.Family == "" {
		clone.Family = string(stage.FamilyMeta)
	}
	return clone
}

// Info returns the stage identity declared by the definition.
func (def StageDefinition) Info() stage.Info {
	n := def.Normalized()
	return stage.Info{
		Kind:        stage.Kind(n.Kind),
		Family:      stage.Family(n.Family),
		Name:        n.Name,
		Description: n.Description,
	}
}

// Validate ensures the plugin definition is well-formed.
func (def StageDefinition) Validate() error {
	normalized := def.Normalized()
	if normalized.Kind == "" {
		return fmt.Errorf("plugin: kind is required")
	}
	if !kindPattern.MatchString(normalized.Kind) {
		return fmt.Errorf("plugin: kind %q must be lower snake case", normalized.Kind)
	}
	if normalized.Name == "" {
		return fmt.Errorf("plugin %s: name is required", normalized.Kind)
	}
	if err := normalized.Info().Validate(); err != nil {
		return fmt.Errorf("plugin %s: %w", normalized.Kind, err)
	}
	seen := make(map[string]struct{}, len(normalized.Accepts))
	for i, kind := range normalized.Accepts {
		if kind == normalized.Kind {
			return fmt.Errorf("plugin %s: accepts[%d] names the stage itself", normalized.Kind, i)
		}
		if _, dup := seen[kind]; dup {
			return fmt.Errorf("plugin %s: accepts[%d] duplicates %s", normalized.Kind, i, kind)
		}
		seen[kind] = struct{}{}
	}
	for i, name := range normalized.Requires.Optimizers {
		switch name {
		case stages.OptimizerSGD, stages.OptimizerMomentum, stages.OptimizerAdam:
		default:
			return fmt.Errorf("plugin %s: requires.optimizers[%d]: unknown optimizer %q", normalized.Kind, i, name)
		}
	}
	return nil
}

func normalizeList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
