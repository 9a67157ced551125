package planner

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kingrea/strategy-compiler/internal/stage"
	"github.com/kingrea/strategy-compiler/internal/stages"
	"github.com/kingrea/strategy-compiler/internal/strategy"
)

func newTestPlanner(t *testing.T, opts ...Option) *Planner {
	t.Helper()
	reg := stage.NewRegistry()
	stages.RegisterBuiltins(reg)
	p, err := New(reg, opts...)
	if err != nil {
		t.Fatalf("new planner: %v", err)
	}
	return p
}

func TestPlanPrefersEarliestOfEqualChains(t *testing.T) {
	p := newTestPlanner(t)
	user := &strategy.Strategy{
		AMP:             true,
		Recompute:       true,
		Pipeline:        true,
		PipelineConfigs: strategy.PipelineConfigs{MicroBatch: 4},
		Lars:            true,
	}
	plan, err := p.Plan(Request{Strategy: user, InnerOptimizer: "momentum"})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if diff := cmp.Diff([]stage.Kind{stages.AMP, stages.Recompute, stages.Lars}, plan.MetaChain.Kinds()); diff != "" {
		t.Fatalf("meta chain mismatch (-want +got):\n%s", diff)
	}
	if plan.MetaHead == nil || plan.MetaHead.Name() != "AMPOptimizer" {
		t.Fatalf("unexpected meta head %v", plan.MetaHead)
	}
	if plan.GraphHead != nil || plan.GraphChain != nil {
		t.Fatalf("graph family should be absent")
	}
	if diff := cmp.Diff([]stage.Kind{stages.Pipeline}, plan.Dropped); diff != "" {
		t.Fatalf("dropped mismatch (-want +got):\n%s", diff)
	}
	wantSkipped := []stage.Kind{stages.GradientMerge, stages.LocalSGD, stages.Lamb, stages.DGC, stages.GraphExecution}
	if diff := cmp.Diff(wantSkipped, plan.NotApplicable); diff != "" {
		t.Fatalf("not applicable mismatch (-want +got):\n%s", diff)
	}
	want := &strategy.Strategy{AMP: true, Recompute: true, Lars: true}
	if diff := cmp.Diff(want, plan.Valid); diff != "" {
		t.Fatalf("valid strategy mismatch (-want +got):\n%s", diff)
	}
	if !user.Pipeline || user.PipelineConfigs.MicroBatch != 4 {
		t.Fatalf("planning mutated the user strategy")
	}
	if plan.Original != user {
		t.Fatalf("plan should reference the original strategy")
	}
}

func TestPlanHonoursDeclarationOrder(t *testing.T) {
	p := newTestPlanner(t)
	user := &strategy.Strategy{AMP: true, Recompute: true, Pipeline: true}
	plan, err := p.Plan(Request{
		Strategy:       user,
		InnerOptimizer: "sgd",
		MetaKinds:      []stage.Kind{stages.Pipeline, stages.AMP, stages.Recompute},
	})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if diff := cmp.Diff([]stage.Kind{stages.Pipeline, stages.AMP, stages.Recompute}, plan.MetaChain.Kinds()); diff != "" {
		t.Fatalf("meta chain mismatch (-want +got):\n%s", diff)
	}
	if len(plan.Dropped) != 0 {
		t.Fatalf("expected nothing dropped, got %v", plan.Dropped)
	}
}

func TestPlanWithoutStagesKeepsBase(t *testing.T) {
	p := newTestPlanner(t, WithBase(func(name string) stage.Procedure { return stages.NewInner(name) }))
	plan, err := p.Plan(Request{InnerOptimizer: "SGD"})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.MetaHead != plan.Base {
		t.Fatalf("expected base procedure as meta head, got %v", plan.MetaHead)
	}
	if plan.MetaHead.Name() != "sgd" {
		t.Fatalf("unexpected base name %q", plan.MetaHead.Name())
	}
	if plan.GraphHead != nil {
		t.Fatalf("expected no graph head")
	}
	if diff := cmp.Diff(&strategy.Strategy{}, plan.Valid); diff != "" {
		t.Fatalf("valid strategy mismatch (-want +got):\n%s", diff)
	}
}

func TestPlanDisablesInapplicableStages(t *testing.T) {
	p := newTestPlanner(t)
	user := &strategy.Strategy{
		Lamb:           true,
		LambConfigs:    strategy.LambConfigs{LambWeightDecay: 0.01},
		GraphExecution: true,
	}
	plan, err := p.Plan(Request{Strategy: user, InnerOptimizer: "momentum"})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.MetaHead != nil {
		t.Fatalf("expected absent meta head, got %v", plan.MetaHead)
	}
	if plan.GraphHead == nil || stage.KindOf(plan.GraphHead) != stages.GraphExecution {
		t.Fatalf("expected graph execution head, got %v", plan.GraphHead)
	}
	if diff := cmp.Diff(&strategy.Strategy{GraphExecution: true}, plan.Valid); diff != "" {
		t.Fatalf("valid strategy mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]stage.Kind{stages.Lamb}, plan.Disabled()); diff != "" {
		t.Fatalf("disabled mismatch (-want +got):\n%s", diff)
	}
}

func TestPlanDisabledIgnoresFlagsNeverEnabled(t *testing.T) {
	p := newTestPlanner(t)
	plan, err := p.Plan(Request{Strategy: &strategy.Strategy{AMP: true}, InnerOptimizer: "momentum"})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(plan.NotApplicable) == 0 {
		t.Fatalf("expected switched-off kinds to be reported as not applicable")
	}
	if got := plan.Disabled(); got != nil {
		t.Fatalf("expected nothing disabled, got %v", got)
	}

	plan, err = p.Plan(Request{Strategy: &strategy.Strategy{AMP: true, DGC: true, Lamb: true}, InnerOptimizer: "momentum"})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if diff := cmp.Diff([]stage.Kind{stages.Lamb, stages.DGC}, plan.Disabled()); diff != "" {
		t.Fatalf("disabled mismatch (-want +got):\n%s", diff)
	}
}

func TestPlanLogs(t *testing.T) {
	logger := &captureLogger{}
	p := newTestPlanner(t, WithLogger(logger))
	if _, err := p.Plan(Request{Strategy: &strategy.Strategy{AMP: true}, InnerOptimizer: "adam"}); err != nil {
		t.Fatalf("plan: %v", err)
	}
	joined := strings.Join(logger.lines, "\n")
	if !strings.Contains(joined, "compiler: meta chain [amp]") {
		t.Fatalf("expected compiler log line, got:\n%s", joined)
	}
	if !strings.Contains(joined, "planner: optimizer=adam") {
		t.Fatalf("expected planner log line, got:\n%s", joined)
	}
}

func TestPlanErrors(t *testing.T) {
	p := newTestPlanner(t)
	cases := []struct {
		name string
		req  Request
		want string
	}{
		{name: "unknown kind", req: Request{MetaKinds: []stage.Kind{"sharding"}}, want: "unknown kind sharding"},
		{name: "duplicate kind", req: Request{MetaKinds: []stage.Kind{stages.AMP, stages.AMP}}, want: "declared twice"},
		{name: "wrong family", req: Request{MetaKinds: []stage.Kind{stages.GraphExecution}}, want: "belongs to the graph family"},
		{name: "invalid strategy", req: Request{Strategy: &strategy.Strategy{Mode: "ring"}}, want: "mode must be"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := p.Plan(tc.req)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
	if _, err := New(nil); err == nil {
		t.Fatalf("expected error for nil registry")
	}
}

type captureLogger struct {
	lines []string
}

func (l *captureLogger) Printf(format string, args ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}
