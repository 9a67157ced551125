package compiler

import "github.com/kingrea/strategy-compiler/internal/stage"

// SelectChain returns the longest anchor-relative chain among candidates, or
// nil when there are no candidates.
//
// Every candidate is tried as an anchor; its local chain is the anchor followed
// by every other candidate, in declaration order, that the anchor reports as
// compatible. Only the anchor's predicate is consulted. A later anchor replaces
// the current best only when its chain is strictly longer, so ties go to the
// earliest anchor. The winning chain, and only that chain, is then linked left
// to right through AttachNext.
func SelectChain(candidates []stage.Stage) *Chain {
	var best []stage.Stage
	for _, anchor := range candidates {
		if anchor == nil {
			continue
		}
		local := []stage.Stage{anchor}
		for _, other := range candidates {
			if other == nil || other == anchor {
				continue
			}
			if anchor.CompatibleWith(other) {
				local = append(local, other)
			}
		}
		if len(local) > len(best) {
			best = local
		}
	}
	if len(best) == 0 {
		return nil
	}
	for i := 0; i < len(best)-1; i++ {
		best[i].AttachNext(best[i+1])
	}
	return newChain(best)
}
