package compiler

import "github.com/kingrea/strategy-compiler/internal/stage"

// Chain is a selected, linked sequence of stages. The first stage is the
// anchor; the rest follow in candidate declaration order. A Chain is immutable
// once returned and records the successor of every stage on its own, so
// callers never depend on pointers the stages keep internally.
type Chain struct {
	stages []stage.Stage
}

func newChain(stages []stage.Stage) *Chain {
	return &Chain{stages: stages}
}

// Head returns the anchor stage, or nil for a nil chain.
func (c *Chain) Head() stage.Stage {
	if c == nil || len(c.stages) == 0 {
		return nil
	}
	return c.stages[0]
}

// Len returns the number of stages in the chain.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.stages)
}

// Stages returns a copy of the chain in execution order.
func (c *Chain) Stages() []stage.Stage {
	if c == nil || len(c.stages) == 0 {
		return nil
	}
	out := make([]stage.Stage, len(c.stages))
	copy(out, c.stages)
	return out
}

// Kinds returns the kinds of the chain's stages in execution order.
func (c *Chain) Kinds() []stage.Kind {
	if c == nil {
		return nil
	}
	return stage.Kinds(c.stages)
}

// Contains reports whether a stage of the given kind is part of the chain.
func (c *Chain) Contains(kind stage.Kind) bool {
	if c == nil {
		return false
	}
	for _, s := range c.stages {
		if stage.KindOf(s) == kind {
			return true
		}
	}
	return false
}

// Next returns the stage that runs after the stage of the given kind. The
// second result is false when kind is absent or is the chain's tail.
func (c *Chain) Next(kind stage.Kind) (stage.Stage, bool) {
	if c == nil {
		return nil, false
	}
	for i, s := range c.stages {
		if stage.KindOf(s) != kind {
			continue
		}
		if i+1 < len(c.stages) {
			return c.stages[i+1], true
		}
		return nil, false
	}
	return nil, false
}
