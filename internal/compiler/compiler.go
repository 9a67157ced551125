package compiler

import (
	"strings"

	"github.com/kingrea/strategy-compiler/internal/stage"
	"github.com/kingrea/strategy-compiler/internal/strategy"
)

// Logger is the minimal logging surface the compiler writes to.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// Option customizes compiler construction.
type Option func(*Compiler)

// WithLogger overrides the default no-op logger.
func WithLogger(l Logger) Option {
	return func(c *Compiler) {
		if l != nil {
			c.logger = l
		}
	}
}

// Compiler combines the meta and graph stage families requested for one job.
// It keeps the candidates and selections of the most recent Generate call so
// ValidStrategy can work out which options were dropped. A Compiler is not
// safe for concurrent use.
type Compiler struct {
	logger Logger

	user            *strategy.Strategy
	metaCandidates  []stage.Stage
	graphCandidates []stage.Stage
	metaChain       *Chain
	graphChain      *Chain
}

// New constructs a compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{logger: nopLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Generate selects a chain for each family and returns their heads. When both
// candidate lists are empty the base procedure comes back unchanged with no
// graph head. Otherwise the first result is the meta chain head, or nil when
// no meta stage was requested, and the second is the graph chain head, or nil.
func (c *Compiler) Generate(base stage.Procedure, user *strategy.Strategy, meta, graph []stage.Stage) (stage.Procedure, stage.Stage) {
	c.user = user
	c.metaCandidates = meta
	c.graphCandidates = graph
	c.metaChain = nil
	c.graphChain = nil

	if len(meta) == 0 && len(graph) == 0 {
		c.logger.Printf("compiler: no stages requested, keeping %s", procedureName(base))
		return base, nil
	}

	c.metaChain = SelectChain(meta)
	c.graphChain = SelectChain(graph)
	c.logger.Printf("compiler: meta chain [%s] from %d candidates", joinKinds(c.metaChain.Kinds()), len(meta))
	c.logger.Printf("compiler: graph chain [%s] from %d candidates", joinKinds(c.graphChain.Kinds()), len(graph))

	var metaHead stage.Procedure
	if head := c.metaChain.Head(); head != nil {
		metaHead = head
	}
	return metaHead, c.graphChain.Head()
}

// ValidStrategy returns a shallow copy of user with every dropped stage
// disabled. A stage is dropped when it was a candidate in the last Generate
// call and no stage of its kind made it into that family's chain. Stages in
// notApplicable are disabled as well. user itself is never modified.
func (c *Compiler) ValidStrategy(user *strategy.Strategy, notApplicable []stage.Stage) *strategy.Strategy {
	valid := user.Clone()
	for _, s := range c.dropped() {
		s.DisableIn(valid)
	}
	for _, s := range notApplicable {
		if s == nil {
			continue
		}
		s.DisableIn(valid)
	}
	return valid
}

// Dropped returns the kinds of candidates left out of their family's chain,
// meta family first, in declaration order.
func (c *Compiler) Dropped() []stage.Kind {
	return stage.Kinds(c.dropped())
}

// MetaChain returns the meta family selection of the last Generate call.
func (c *Compiler) MetaChain() *Chain {
	return c.metaChain
}

// GraphChain returns the graph family selection of the last Generate call.
func (c *Compiler) GraphChain() *Chain {
	return c.graphChain
}

// UserStrategy returns the strategy passed to the last Generate call.
func (c *Compiler) UserStrategy() *strategy.Strategy {
	return c.user
}

func (c *Compiler) dropped() []stage.Stage {
	var out []stage.Stage
	out = appendDropped(out, c.metaCandidates, c.metaChain)
	out = appendDropped(out, c.graphCandidates, c.graphChain)
	return out
}

func appendDropped(out, candidates []stage.Stage, chain *Chain) []stage.Stage {
	for _, candidate := range candidates {
		if candidate == nil {
			continue
		}
		if chain.Contains(stage.KindOf(candidate)) {
			continue
		}
		out = append(out, candidate)
	}
	return out
}

func procedureName(p stage.Procedure) string {
	if p == nil {
		return "<nil>"
	}
	return p.Name()
}

func joinKinds(kinds []stage.Kind) string {
	parts := make([]string, len(kinds))
	for i, kind := range kinds {
		parts[i] = string(kind)
	}
	return strings.Join(parts, " -> ")
}
