package stages

import (
	"strings"

	"github.com/kingrea/strategy-compiler/internal/stage"
)

// Builtin is a catalog stage. Compatibility and disabling come from the
// embedded stage.Base; applicability is checked against the catalog entry.
type Builtin struct {
	stage.Base
	entry entry
}

func newBuiltin(e entry) *Builtin {
	b := &Builtin{Base: stage.NewBase(e.info), entry: e}
	b.Allow(e.whiteList...)
	b.OnDisable(e.disable)
	return b
}

// CanApply implements stage.Applier.
func (b *Builtin) CanApply(env stage.Env) bool {
	if env.Strategy == nil || !b.entry.enabled(env.Strategy) {
		return false
	}
	if b.entry.collective && !env.Strategy.IsCollective() {
		return false
	}
	if len(b.entry.optimizers) == 0 {
		return true
	}
	inner := strings.ToLower(strings.TrimSpace(env.InnerOptimizer))
	for _, name := range b.entry.optimizers {
		if inner == name {
			return true
		}
	}
	return false
}

// Inner is the base training procedure: the optimizer the stages wrap.
type Inner struct {
	name string
}

// NewInner returns the base procedure for the named optimizer.
func NewInner(name string) Inner {
	return Inner{name: strings.ToLower(strings.TrimSpace(name))}
}

// Name implements stage.Procedure.
func (i Inner) Name() string {
	return i.name
}
