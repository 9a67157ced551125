package plugins

import (
	"strings"

	"github.com/kingrea/strategy-compiler/internal/stage"
	"github.com/kingrea/strategy-compiler/internal/strategy"
)

// Stage is a stage declared by a plugin definition. It is enabled through
// the strategy extension named after its kind.
type Stage struct {
	stage.Base
	def StageDefinition
}

func newStage(def StageDefinition) *Stage {
	def = def.Normalized()
	s := &Stage{Base: stage.NewBase(def.Info()), def: def}
	for _, kind := range def.Accepts {
		s.Allow(stage.Kind(kind))
	}
	s.OnDisable(func(st *strategy.Strategy) {
		if _, ok := st.Extensions[def.Kind]; ok {
			st.SetExtension(def.Kind, false)
		}
	})
	return s
}

// CanApply implements stage.Applier.
func (s *Stage) CanApply(env stage.Env) bool {
	if !env.Strategy.Extension(s.def.Kind) {
		return false
	}
	if s.def.Requires.Collective && !env.Strategy.IsCollective() {
		return false
	}
	if len(s.def.Requires.Optimizers) == 0 {
		return true
	}
	inner := strings.ToLower(strings.TrimSpace(env.InnerOptimizer))
	for _, name := range s.def.Requires.Optimizers {
		if inner == name {
			return true
		}
	}
	return false
}
