package stages

import (
	"github.com/kingrea/strategy-compiler/internal/stage"
	"github.com/kingrea/strategy-compiler/internal/strategy"
)

// Built-in stage kinds.
const (
	AMP            stage.Kind = "amp"
	Recompute      stage.Kind = "recompute"
	GradientMerge  stage.Kind = "gradient_merge"
	Pipeline       stage.Kind = "pipeline"
	LocalSGD       stage.Kind = "localsgd"
	Lars           stage.Kind = "lars"
	Lamb           stage.Kind = "lamb"
	DGC            stage.Kind = "dgc"
	GraphExecution stage.Kind = "graph_execution"
)

// Inner optimizer names understood by the applicability checks.
const (
	OptimizerSGD      = "sgd"
	OptimizerMomentum = "momentum"
	OptimizerAdam     = "adam"
)

type entry struct {
	info       stage.Info
	whiteList  []stage.Kind
	optimizers []string
	collective bool
	enabled    func(*strategy.Strategy) bool
	disable    func(*strategy.Strategy)
}

// catalog is listed in default declaration order.
var catalog = []entry{
	{
		info:      stage.Info{Kind: AMP, Family: stage.FamilyMeta, Name: "AMPOptimizer", Description: "automatic mixed precision"},
		whiteList: []stage.Kind{Lars, Lamb, Recompute, LocalSGD, GradientMerge, GraphExecution},
		enabled:   func(s *strategy.Strategy) bool { return s.AMP },
		disable: func(s *strategy.Strategy) {
			s.AMP = false
			s.AMPConfigs = strategy.AMPConfigs{}
		},
	},
	{
		info:      stage.Info{Kind: Recompute, Family: stage.FamilyMeta, Name: "RecomputeOptimizer", Description: "activation recomputation"},
		whiteList: []stage.Kind{Lars, Lamb, GradientMerge, GraphExecution},
		enabled:   func(s *strategy.Strategy) bool { return s.Recompute },
		disable: func(s *strategy.Strategy) {
			s.Recompute = false
			s.RecomputeConfigs = strategy.RecomputeConfigs{}
		},
	},
	{
		info:      stage.Info{Kind: GradientMerge, Family: stage.FamilyMeta, Name: "GradientMergeOptimizer", Description: "gradient accumulation over k steps"},
		whiteList: []stage.Kind{AMP, Lars, Lamb, GraphExecution},
		enabled:   func(s *strategy.Strategy) bool { return s.GradientMerge },
		disable: func(s *strategy.Strategy) {
			s.GradientMerge = false
			s.GradientMergeConfigs = strategy.GradientMergeConfigs{}
		},
	},
	{
		info:       stage.Info{Kind: Pipeline, Family: stage.FamilyMeta, Name: "PipelineOptimizer", Description: "pipeline parallelism"},
		whiteList:  []stage.Kind{Recompute, AMP},
		collective: true,
		enabled:    func(s *strategy.Strategy) bool { return s.Pipeline },
		disable: func(s *strategy.Strategy) {
			s.Pipeline = false
			s.PipelineConfigs = strategy.PipelineConfigs{}
		},
	},
	{
		info:       stage.Info{Kind: LocalSGD, Family: stage.FamilyMeta, Name: "LocalSGDOptimizer", Description: "local SGD with periodic averaging"},
		optimizers: []string{OptimizerSGD, OptimizerMomentum},
		collective: true,
		enabled:    func(s *strategy.Strategy) bool { return s.LocalSGD },
		disable: func(s *strategy.Strategy) {
			s.LocalSGD = false
			s.LocalSGDConfigs = strategy.LocalSGDConfigs{}
		},
	},
	{
		info:       stage.Info{Kind: Lars, Family: stage.FamilyMeta, Name: "LarsOptimizer", Description: "layer-wise adaptive rate scaling"},
		whiteList:  []stage.Kind{GraphExecution},
		optimizers: []string{OptimizerMomentum},
		enabled:    func(s *strategy.Strategy) bool { return s.Lars },
		disable: func(s *strategy.Strategy) {
			s.Lars = false
			s.LarsConfigs = strategy.LarsConfigs{}
		},
	},
	{
		info:       stage.Info{Kind: Lamb, Family: stage.FamilyMeta, Name: "LambOptimizer", Description: "layer-wise adaptive moments"},
		whiteList:  []stage.Kind{GraphExecution},
		optimizers: []string{OptimizerAdam},
		enabled:    func(s *strategy.Strategy) bool { return s.Lamb },
		disable: func(s *strategy.Strategy) {
			s.Lamb = false
			s.LambConfigs = strategy.LambConfigs{}
		},
	},
	{
		info:       stage.Info{Kind: DGC, Family: stage.FamilyMeta, Name: "DGCOptimizer", Description: "deep gradient compression"},
		optimizers: []string{OptimizerMomentum},
		collective: true,
		enabled:    func(s *strategy.Strategy) bool { return s.DGC },
		disable: func(s *strategy.Strategy) {
			s.DGC = false
			s.DGCConfigs = strategy.DGCConfigs{}
		},
	},
	{
		info:       stage.Info{Kind: GraphExecution, Family: stage.FamilyGraph, Name: "GraphExecutionOptimizer", Description: "compile to a parallel execution graph"},
		collective: true,
		enabled:    func(s *strategy.Strategy) bool { return s.GraphExecution },
		disable:    func(s *strategy.Strategy) { s.GraphExecution = false },
	},
}

// RegisterBuiltins installs every built-in stage factory into the provided
// registry, in default declaration order.
func RegisterBuiltins(reg *stage.Registry) {
	if reg == nil {
		return
	}
	for _, e := range catalog {
		e := e
		reg.MustRegister(e.info, func(stage.Config) (stage.Stage, error) {
			return newBuiltin(e), nil
		})
	}
}

// Kinds returns every built-in kind of a family in default declaration order.
func Kinds(family stage.Family) []stage.Kind {
	var out []stage.Kind
	for _, e := range catalog {
		if e.info.Family == family {
			out = append(out, e.info.Kind)
		}
	}
	return out
}
