package compiler

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kingrea/strategy-compiler/internal/stage"
	"github.com/kingrea/strategy-compiler/internal/strategy"
)

type captureLogger struct {
	lines []string
}

func (l *captureLogger) Printf(format string, args ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func TestGenerateWithoutCandidatesReturnsBase(t *testing.T) {
	logger := &captureLogger{}
	c := New(WithLogger(logger))
	base := baseProcedure("momentum")
	user := &strategy.Strategy{AMP: true}

	metaHead, graphHead := c.Generate(base, user, nil, nil)
	if metaHead != stage.Procedure(base) {
		t.Fatalf("expected base procedure back, got %v", metaHead)
	}
	if graphHead != nil {
		t.Fatalf("expected no graph head, got %v", graphHead)
	}
	if c.MetaChain() != nil || c.GraphChain() != nil {
		t.Fatalf("no chains should be stored")
	}
	if len(logger.lines) != 1 {
		t.Fatalf("expected one log line, got %v", logger.lines)
	}
	if c.UserStrategy() != user {
		t.Fatalf("generate should record the user strategy")
	}

	valid := c.ValidStrategy(user, nil)
	if diff := cmp.Diff(user, valid); diff != "" {
		t.Fatalf("nothing should be disabled (-want +got):\n%s", diff)
	}
	if valid == user {
		t.Fatalf("valid strategy must be a copy")
	}
}

func TestGenerateReturnsChainHeads(t *testing.T) {
	rec := &recorder{}
	amp := newStub(rec, "amp", "recompute")
	recompute := newStub(rec, "recompute")
	graph := newStub(rec, "graph_execution")
	graph.info.Family = stage.FamilyGraph

	c := New()
	metaHead, graphHead := c.Generate(baseProcedure("sgd"), &strategy.Strategy{}, stages(amp, recompute), stages(graph))
	if metaHead != stage.Procedure(amp) {
		t.Fatalf("expected amp as meta head, got %v", metaHead)
	}
	if graphHead != stage.Stage(graph) {
		t.Fatalf("expected graph_execution as graph head, got %v", graphHead)
	}
	if diff := cmp.Diff([]stage.Kind{"amp", "recompute"}, c.MetaChain().Kinds()); diff != "" {
		t.Fatalf("meta chain mismatch (-want +got):\n%s", diff)
	}
	if len(c.Dropped()) != 0 {
		t.Fatalf("expected nothing dropped, got %v", c.Dropped())
	}
}

func TestGenerateFamiliesAreIndependent(t *testing.T) {
	rec := &recorder{}
	amp := newStub(rec, "amp")
	graph := newStub(rec, "graph_execution")

	c := New()
	metaHead, graphHead := c.Generate(baseProcedure("sgd"), nil, stages(amp), nil)
	if metaHead != stage.Procedure(amp) {
		t.Fatalf("expected amp meta head, got %v", metaHead)
	}
	if graphHead != nil {
		t.Fatalf("expected absent graph head, got %v", graphHead)
	}

	metaHead, graphHead = c.Generate(baseProcedure("sgd"), nil, nil, stages(graph))
	if metaHead != nil {
		t.Fatalf("expected absent meta head, got %v", metaHead)
	}
	if graphHead != stage.Stage(graph) {
		t.Fatalf("expected graph head, got %v", graphHead)
	}
	if c.MetaChain() != nil {
		t.Fatalf("previous meta selection should be cleared")
	}
}

func TestValidStrategyDisablesDroppedAndInapplicable(t *testing.T) {
	rec := &recorder{}
	amp := newStub(rec, "amp", "recompute")
	recompute := newStub(rec, "recompute")
	pipeline := newStub(rec, "pipeline")
	lamb := newStub(rec, "lamb")
	amp.disable = func(s *strategy.Strategy) { s.AMP = false }
	recompute.disable = func(s *strategy.Strategy) { s.Recompute = false }
	pipeline.disable = func(s *strategy.Strategy) {
		s.Pipeline = false
		s.PipelineConfigs = strategy.PipelineConfigs{}
	}
	lamb.disable = func(s *strategy.Strategy) { s.Lamb = false }

	user := &strategy.Strategy{
		AMP:             true,
		Recompute:       true,
		Pipeline:        true,
		PipelineConfigs: strategy.PipelineConfigs{MicroBatch: 4},
		Lamb:            true,
	}
	before := *user

	c := New()
	c.Generate(baseProcedure("momentum"), user, stages(amp, recompute, pipeline), nil)
	if diff := cmp.Diff([]stage.Kind{"pipeline"}, c.Dropped()); diff != "" {
		t.Fatalf("dropped mismatch (-want +got):\n%s", diff)
	}

	valid := c.ValidStrategy(user, stages(lamb))
	want := &strategy.Strategy{AMP: true, Recompute: true}
	if diff := cmp.Diff(want, valid); diff != "" {
		t.Fatalf("valid strategy mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(before, *user); diff != "" {
		t.Fatalf("user strategy was mutated (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"pipeline", "lamb"}, rec.disables); diff != "" {
		t.Fatalf("disable calls mismatch (-want +got):\n%s", diff)
	}
}

func TestValidStrategyMatchesByKind(t *testing.T) {
	rec := &recorder{}
	amp := newStub(rec, "amp", "recompute")
	recompute := newStub(rec, "recompute")
	// A second, distinct recompute value: it is not the object in the chain,
	// but its kind is, so it must not be disabled.
	recomputeCopy := newStub(rec, "recompute")
	recomputeCopy.info.Name = "recompute-copy"

	c := New()
	c.Generate(baseProcedure("sgd"), &strategy.Strategy{}, stages(amp, recompute, recomputeCopy), nil)
	if c.MetaChain().Len() != 2 {
		t.Fatalf("expected amp+recompute chain, got %v", c.MetaChain().Kinds())
	}
	c.ValidStrategy(&strategy.Strategy{Recompute: true}, nil)
	if len(rec.disables) != 0 {
		t.Fatalf("same-kind candidate should count as selected, disabled %v", rec.disables)
	}
}

func TestValidStrategyCoversGraphFamily(t *testing.T) {
	rec := &recorder{}
	g1 := newStub(rec, "graph_a")
	g2 := newStub(rec, "graph_b")
	g1.info.Family = stage.FamilyGraph
	g2.info.Family = stage.FamilyGraph

	c := New()
	_, head := c.Generate(baseProcedure("sgd"), nil, nil, stages(g1, g2))
	if head != stage.Stage(g1) {
		t.Fatalf("expected first graph stage to win the tie")
	}
	c.ValidStrategy(nil, nil)
	if diff := cmp.Diff([]string{"graph_b"}, rec.disables); diff != "" {
		t.Fatalf("disable calls mismatch (-want +got):\n%s", diff)
	}
}

func TestValidStrategyBeforeGenerateOnlyDisablesInapplicable(t *testing.T) {
	rec := &recorder{}
	dgc := newStub(rec, "dgc")
	dgc.disable = func(s *strategy.Strategy) { s.DGC = false }

	valid := New().ValidStrategy(&strategy.Strategy{DGC: true, AMP: true}, []stage.Stage{nil, dgc})
	if diff := cmp.Diff(&strategy.Strategy{AMP: true}, valid); diff != "" {
		t.Fatalf("valid strategy mismatch (-want +got):\n%s", diff)
	}
}
