// Package stage defines the contract every optimization stage satisfies so the
// compiler can select, link and disable stages without knowing what they do to
// the training program.
package stage

import (
	"fmt"
	"strings"

	"github.com/kingrea/strategy-compiler/internal/strategy"
)

// Kind is the stable discriminator for a stage type. Two stage values of the
// same kind are interchangeable as far as configuration is concerned.
type Kind string

func (k Kind) String() string {
	return string(k)
}

// Family groups stages that are selected together.
type Family string

const (
	// FamilyMeta stages rewrite forward/backward/optimize computation.
	FamilyMeta Family = "meta"
	// FamilyGraph stages transpile the program into an alternate execution graph.
	FamilyGraph Family = "graph"
)

// Info describes a stage's identity.
type Info struct {
	Kind        Kind
	Family      Family
	Name        string
	Description string
}

// Validate ensures the info block is well-formed.
func (i Info) Validate() error {
	if strings.TrimSpace(string(i.Kind)) == "" {
		return fmt.Errorf("stage: kind is required")
	}
	if i.Name == "" {
		return fmt.Errorf("stage: name is required for %s", i.Kind)
	}
	switch i.Family {
	case FamilyMeta, FamilyGraph:
	default:
		return fmt.Errorf("stage: unknown family %q for %s", i.Family, i.Kind)
	}
	return nil
}

// Procedure is anything that can stand in for the base training procedure:
// the inner optimizer itself or the head of a composed chain.
type Procedure interface {
	Name() string
}

// Stage is implemented by every optimization stage.
type Stage interface {
	Procedure
	Info() Info
	// CompatibleWith reports whether other may run inside this stage's chain.
	// The relation is anchor-relative and need not be symmetric.
	CompatibleWith(other Stage) bool
	// AttachNext records next as the stage that runs after this one.
	AttachNext(next Stage)
	// DisableIn turns this stage's option off in s.
	DisableIn(s *strategy.Strategy)
}

// Env is the information a stage may inspect to decide whether it applies.
type Env struct {
	Strategy       *strategy.Strategy
	InnerOptimizer string
}

// Applier is implemented by stages with preconditions beyond compatibility.
type Applier interface {
	CanApply(env Env) bool
}

// KindOf returns the kind of s, or "" for a nil stage.
func KindOf(s Stage) Kind {
	if s == nil {
		return ""
	}
	return s.Info().Kind
}

// Kinds maps stages to their kinds preserving order.
func Kinds(stages []Stage) []Kind {
	if len(stages) == 0 {
		return nil
	}
	out := make([]Kind, 0, len(stages))
	for _, s := range stages {
		if s == nil {
			continue
		}
		out = append(out, KindOf(s))
	}
	return out
}
