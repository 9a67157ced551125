// Package planner builds a compiled optimization plan for one training job. It
// instantiates the requested stages, separates the ones whose preconditions
// fail, runs the compiler over the rest and reports the resulting strategy.
package planner

import (
	"fmt"

	"github.com/kingrea/strategy-compiler/internal/compiler"
	"github.com/kingrea/strategy-compiler/internal/stage"
	"github.com/kingrea/strategy-compiler/internal/strategy"
)

// Request describes one job to plan.
type Request struct {
	Strategy       *strategy.Strategy
	InnerOptimizer string
	// MetaKinds and GraphKinds are the declared candidates for each family in
	// declaration order. Nil falls back to the registry's order.
	MetaKinds  []stage.Kind
	GraphKinds []stage.Kind
	// Configs carries per-kind construction options.
	Configs map[stage.Kind]stage.Config
}

// Plan is the outcome of planning a job.
type Plan struct {
	Base          stage.Procedure
	MetaHead      stage.Procedure
	GraphHead     stage.Stage
	MetaChain     *compiler.Chain
	GraphChain    *compiler.Chain
	NotApplicable []stage.Kind
	Dropped       []stage.Kind
	Original      *strategy.Strategy
	Valid         *strategy.Strategy
}

// Disabled returns the kinds the user enabled that the valid strategy
// switches off, in flag declaration order. Kinds that were never enabled are
// not reported even when they appear in NotApplicable.
func (p Plan) Disabled() []stage.Kind {
	names := strategy.Disabled(p.Original, p.Valid)
	if len(names) == 0 {
		return nil
	}
	out := make([]stage.Kind, len(names))
	for i, name := range names {
		out[i] = stage.Kind(name)
	}
	return out
}

// Option customizes planner construction.
type Option func(*Planner)

// WithLogger forwards a logger to the planner and its compiler.
func WithLogger(l compiler.Logger) Option {
	return func(p *Planner) {
		if l != nil {
			p.logger = l
		}
	}
}

// BaseFactory builds the base procedure for an inner optimizer name.
type BaseFactory func(name string) stage.Procedure

// WithBase overrides how the base procedure is built.
func WithBase(fn BaseFactory) Option {
	return func(p *Planner) {
		if fn != nil {
			p.base = fn
		}
	}
}

// Planner resolves stages from a registry and compiles them.
type Planner struct {
	registry *stage.Registry
	logger   compiler.Logger
	base     BaseFactory
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

type namedProcedure string

func (n namedProcedure) Name() string { return string(n) }

// New constructs a planner over the provided registry.
func New(registry *stage.Registry, opts ...Option) (*Planner, error) {
	if registry == nil {
		return nil, fmt.Errorf("planner: stage registry is required")
	}
	p := &Planner{
		registry: registry,
		logger:   nopLogger{},
		base:     func(name string) stage.Procedure { return namedProcedure(name) },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p, nil
}

// Plan compiles the request into a Plan.
func (p *Planner) Plan(req Request) (Plan, error) {
	user := req.Strategy
	if user == nil {
		user = &strategy.Strategy{}
	}
	if err := user.Validate(); err != nil {
		return Plan{}, fmt.Errorf("planner: %w", err)
	}
	env := stage.Env{Strategy: user, InnerOptimizer: req.InnerOptimizer}

	metaKinds := req.MetaKinds
	if metaKinds == nil {
		metaKinds = p.registry.Kinds(stage.FamilyMeta)
	}
	graphKinds := req.GraphKinds
	if graphKinds == nil {
		graphKinds = p.registry.Kinds(stage.FamilyGraph)
	}

	meta, metaSkipped, err := p.candidates(stage.FamilyMeta, metaKinds, req.Configs, env)
	if err != nil {
		return Plan{}, err
	}
	graph, graphSkipped, err := p.candidates(stage.FamilyGraph, graphKinds, req.Configs, env)
	if err != nil {
		return Plan{}, err
	}
	notApplicable := append(metaSkipped, graphSkipped...)

	base := p.base(req.InnerOptimizer)
	c := compiler.New(compiler.WithLogger(p.logger))
	metaHead, graphHead := c.Generate(base, user, meta, graph)
	valid := c.ValidStrategy(user, notApplicable)

	plan := Plan{
		Base:          base,
		MetaHead:      metaHead,
		GraphHead:     graphHead,
		MetaChain:     c.MetaChain(),
		GraphChain:    c.GraphChain(),
		NotApplicable: stage.Kinds(notApplicable),
		Dropped:       c.Dropped(),
		Original:      c.UserStrategy(),
		Valid:         valid,
	}
	p.logger.Printf("planner: optimizer=%s meta=%v graph=%v not_applicable=%v dropped=%v",
		req.InnerOptimizer, plan.MetaChain.Kinds(), plan.GraphChain.Kinds(), plan.NotApplicable, plan.Dropped)
	return plan, nil
}

func (p *Planner) candidates(family stage.Family, kinds []stage.Kind, configs map[stage.Kind]stage.Config, env stage.Env) ([]stage.Stage, []stage.Stage, error) {
	var applicable, skipped []stage.Stage
	seen := make(map[stage.Kind]struct{}, len(kinds))
	for _, kind := range kinds {
		if _, dup := seen[kind]; dup {
			return nil, nil, fmt.Errorf("planner: %s declared twice", kind)
		}
		seen[kind] = struct{}{}
		s, err := p.registry.Resolve(kind, configs[kind])
		if err != nil {
			return nil, nil, fmt.Errorf("planner: %w", err)
		}
		if got := s.Info().Family; got != family {
			return nil, nil, fmt.Errorf("planner: %s belongs to the %s family, not %s", kind, got, family)
		}
		if applier, ok := s.(stage.Applier); ok && !applier.CanApply(env) {
			skipped = append(skipped, s)
			continue
		}
		applicable = append(applicable, s)
	}
	return applicable, skipped, nil
}
