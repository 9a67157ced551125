package strategy

import (
	"fmt"
	"sort"
	"strings"
)

// Mode selects how the distributed job communicates.
type Mode string

const (
	ModeCollective      Mode = "collective"
	ModeParameterServer Mode = "parameter_server"
)

// AMPConfigs tunes automatic mixed precision.
type AMPConfigs struct {
	InitLossScaling       float64  `json:"init_loss_scaling,omitempty" yaml:"init_loss_scaling,omitempty"`
	UseDynamicLossScaling bool     `json:"use_dynamic_loss_scaling,omitempty" yaml:"use_dynamic_loss_scaling,omitempty"`
	CustomWhiteList       []string `json:"custom_white_list,omitempty" yaml:"custom_white_list,omitempty"`
}

// RecomputeConfigs lists the checkpoints kept during forward.
type RecomputeConfigs struct {
	Checkpoints []string `json:"checkpoints,omitempty" yaml:"checkpoints,omitempty"`
}

// GradientMergeConfigs controls gradient accumulation.
type GradientMergeConfigs struct {
	KSteps int  `json:"k_steps,omitempty" yaml:"k_steps,omitempty"`
	Avg    bool `json:"avg,omitempty" yaml:"avg,omitempty"`
}

// PipelineConfigs controls pipeline parallelism.
type PipelineConfigs struct {
	MicroBatch int `json:"micro_batch,omitempty" yaml:"micro_batch,omitempty"`
}

// LocalSGDConfigs controls local SGD synchronization.
type LocalSGDConfigs struct {
	KSteps int `json:"k_steps,omitempty" yaml:"k_steps,omitempty"`
}

// LarsConfigs tunes layer-wise adaptive rate scaling.
type LarsConfigs struct {
	LarsCoeff       float64 `json:"lars_coeff,omitempty" yaml:"lars_coeff,omitempty"`
	LarsWeightDecay float64 `json:"lars_weight_decay,omitempty" yaml:"lars_weight_decay,omitempty"`
}

// LambConfigs tunes the LAMB optimizer rewrite.
type LambConfigs struct {
	LambWeightDecay        float64  `json:"lamb_weight_decay,omitempty" yaml:"lamb_weight_decay,omitempty"`
	ExcludeFromWeightDecay []string `json:"exclude_from_weight_decay,omitempty" yaml:"exclude_from_weight_decay,omitempty"`
}

// DGCConfigs tunes deep gradient compression.
type DGCConfigs struct {
	RampupBeginStep int `json:"rampup_begin_step,omitempty" yaml:"rampup_begin_step,omitempty"`
}

// Strategy is the user-declared distributed configuration. It holds one
// enable flag per optimization stage kind plus that kind's settings.
type Strategy struct {
	Mode Mode `json:"mode,omitempty" yaml:"mode,omitempty"`

	AMP        bool       `json:"amp" yaml:"amp"`
	AMPConfigs AMPConfigs `json:"amp_configs,omitempty" yaml:"amp_configs,omitempty"`

	Recompute        bool             `json:"recompute" yaml:"recompute"`
	RecomputeConfigs RecomputeConfigs `json:"recompute_configs,omitempty" yaml:"recompute_configs,omitempty"`

	GradientMerge        bool                 `json:"gradient_merge" yaml:"gradient_merge"`
	GradientMergeConfigs GradientMergeConfigs `json:"gradient_merge_configs,omitempty" yaml:"gradient_merge_configs,omitempty"`

	Pipeline        bool            `json:"pipeline" yaml:"pipeline"`
	PipelineConfigs PipelineConfigs `json:"pipeline_configs,omitempty" yaml:"pipeline_configs,omitempty"`

	LocalSGD        bool            `json:"localsgd" yaml:"localsgd"`
	LocalSGDConfigs LocalSGDConfigs `json:"localsgd_configs,omitempty" yaml:"localsgd_configs,omitempty"`

	Lars        bool        `json:"lars" yaml:"lars"`
	LarsConfigs LarsConfigs `json:"lars_configs,omitempty" yaml:"lars_configs,omitempty"`

	Lamb        bool        `json:"lamb" yaml:"lamb"`
	LambConfigs LambConfigs `json:"lamb_configs,omitempty" yaml:"lamb_configs,omitempty"`

	DGC        bool       `json:"dgc" yaml:"dgc"`
	DGCConfigs DGCConfigs `json:"dgc_configs,omitempty" yaml:"dgc_configs,omitempty"`

	GraphExecution bool `json:"graph_execution" yaml:"graph_execution"`

	// Extensions holds the enable flags of plugin stages, keyed by stage kind.
	Extensions map[string]bool `json:"extensions,omitempty" yaml:"extensions,omitempty"`
}

// Clone returns a shallow copy. Slices inside config blocks and the
// Extensions map are shared with the receiver, so callers replace them rather
// than editing them in place. SetExtension already does.
func (s *Strategy) Clone() *Strategy {
	if s == nil {
		return &Strategy{}
	}
	clone := *s
	return &clone
}

// IsCollective reports whether the job runs in collective mode. An unset mode
// counts as collective.
func (s *Strategy) IsCollective() bool {
	if s == nil {
		return false
	}
	return s.Mode == "" || s.Mode == ModeCollective
}

// Normalize trims and lower-cases the mode.
func (s *Strategy) Normalize() {
	if s == nil {
		return
	}
	s.Mode = Mode(strings.ToLower(strings.TrimSpace(string(s.Mode))))
}

// Validate ensures the strategy is self-consistent.
func (s *Strategy) Validate() error {
	if s == nil {
		return fmt.Errorf("strategy: nil strategy")
	}
	switch s.Mode {
	case "", ModeCollective, ModeParameterServer:
	default:
		return fmt.Errorf("strategy: mode must be %q or %q, got %q", ModeCollective, ModeParameterServer, s.Mode)
	}
	if s.GradientMergeConfigs.KSteps < 0 {
		return fmt.Errorf("strategy: gradient_merge_configs.k_steps must be >= 0")
	}
	if s.LocalSGDConfigs.KSteps < 0 {
		return fmt.Errorf("strategy: localsgd_configs.k_steps must be >= 0")
	}
	if s.PipelineConfigs.MicroBatch < 0 {
		return fmt.Errorf("strategy: pipeline_configs.micro_batch must be >= 0")
	}
	if s.DGCConfigs.RampupBeginStep < 0 {
		return fmt.Errorf("strategy: dgc_configs.rampup_begin_step must be >= 0")
	}
	return nil
}

// Extension reports whether the plugin flag name is enabled.
func (s *Strategy) Extension(name string) bool {
	if s == nil {
		return false
	}
	return s.Extensions[name]
}

// SetExtension sets a plugin flag. The map is copied first so clones sharing
// it are left untouched.
func (s *Strategy) SetExtension(name string, enabled bool) {
	if s == nil {
		return
	}
	next := make(map[string]bool, len(s.Extensions)+1)
	for key, value := range s.Extensions {
		next[key] = value
	}
	next[name] = enabled
	s.Extensions = next
}

// Flag is one named enable flag of a strategy.
type Flag struct {
	Name    string
	Enabled bool
}

// Flags lists the built-in enable flags in declaration order, named after
// their YAML keys, followed by the extension flags sorted by name.
func (s *Strategy) Flags() []Flag {
	if s == nil {
		s = &Strategy{}
	}
	flags := []Flag{
		{Name: "amp", Enabled: s.AMP},
		{Name: "recompute", Enabled: s.Recompute},
		{Name: "gradient_merge", Enabled: s.GradientMerge},
		{Name: "pipeline", Enabled: s.Pipeline},
		{Name: "localsgd", Enabled: s.LocalSGD},
		{Name: "lars", Enabled: s.Lars},
		{Name: "lamb", Enabled: s.Lamb},
		{Name: "dgc", Enabled: s.DGC},
		{Name: "graph_execution", Enabled: s.GraphExecution},
	}
	names := make([]string, 0, len(s.Extensions))
	for name := range s.Extensions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		flags = append(flags, Flag{Name: name, Enabled: s.Extensions[name]})
	}
	return flags
}

// Disabled returns the names of flags enabled in before but not in after.
func Disabled(before, after *Strategy) []string {
	enabled := make(map[string]bool)
	for _, f := range after.Flags() {
		enabled[f.Name] = f.Enabled
	}
	var out []string
	for _, f := range before.Flags() {
		if f.Enabled && !enabled[f.Name] {
			out = append(out, f.Name)
		}
	}
	return out
}
