// internal/config/config.go
//
// This package handles configuration and the .stratc directory structure.
// Every project that uses stratc gets a .stratc/ folder created in its root.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/strategy-compiler/internal/stage"
)

const (
	// StateDir is the name of the directory we create in each project
	StateDir = ".stratc"

	// StrategyEnv overrides the strategy file named in config.yaml.
	StrategyEnv = "STRATC_STRATEGY"

	defaultStrategyFile = "strategy.yaml"
	defaultOptimizer    = "momentum"
)

const defaultProjectConfigYAML = `# stratc project configuration
version: 1

# Strategy file to compile, relative to the project directory.
strategy: strategy.yaml

# Inner optimizer the selected stages wrap (sgd, momentum, adam).
optimizer: momentum

# Declaration order of candidate stages. The order breaks ties between
# equally long chains; leave empty to use the built-in order.
candidates:
  meta: []
  graph: []
`

// CandidateConfig lists the declared stage order per family.
type CandidateConfig struct {
	Meta  []string `yaml:"meta,omitempty"`
	Graph []string `yaml:"graph,omitempty"`
}

// ProjectConfig models .stratc/config.yaml.
type ProjectConfig struct {
	Version    int             `yaml:"version"`
	Strategy   string          `yaml:"strategy"`
	Optimizer  string          `yaml:"optimizer"`
	Candidates CandidateConfig `yaml:"candidates"`
}

// Config holds the runtime configuration for stratc.
type Config struct {
	// ProjectDir is the directory where the user ran `stratc` from
	ProjectDir string

	// StateProjectDir is ProjectDir/.stratc
	StateProjectDir string

	// Project holds the loaded settings with paths resolved against ProjectDir.
	Project ProjectConfig

	// stored is config.yaml as written, so saving keeps relative paths.
	stored ProjectConfig

	strategyOverride string
}

// InitDir creates the .stratc directory structure in the given project directory.
//
// Structure created:
// .stratc/
// ├── config.yaml
// ├── logs/   <- compile log
// ├── out/    <- compiled strategies
// └── stages/ <- plugin stage definitions
func InitDir(projectDir string) error {
	stateDir := filepath.Join(projectDir, StateDir)
	dirs := []string{
		filepath.Join(stateDir, "logs"),
		filepath.Join(stateDir, "out"),
		filepath.Join(stateDir, "stages"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return ensureProjectConfig(filepath.Join(stateDir, "config.yaml"))
}

// NewConfig creates a new Config instance populated with project settings.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:       projectDir,
		StateProjectDir:  filepath.Join(projectDir, StateDir),
		Project:          defaultProjectConfig(),
		strategyOverride: strings.TrimSpace(os.Getenv(StrategyEnv)),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.StateProjectDir, "logs")
}

// OutDir returns the directory compiled strategies are written to by default
func (c *Config) OutDir() string {
	return filepath.Join(c.StateProjectDir, "out")
}

// StagesDir returns the directory scanned for plugin stage definitions
func (c *Config) StagesDir() string {
	return filepath.Join(c.StateProjectDir, "stages")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.StateProjectDir, "config.yaml")
}

// StrategyPath returns the absolute strategy file path. STRATC_STRATEGY wins
// over the configured value.
func (c *Config) StrategyPath() string {
	if c.strategyOverride != "" {
		return resolvePath(c.ProjectDir, c.strategyOverride)
	}
	return c.Project.Strategy
}

// Optimizer returns the configured inner optimizer.
func (c *Config) Optimizer() string {
	return c.Project.Optimizer
}

// MetaKinds returns the declared meta-family order, or nil for the built-in order.
func (c *Config) MetaKinds() []stage.Kind {
	return toKinds(c.Project.Candidates.Meta)
}

// GraphKinds returns the declared graph-family order, or nil for the built-in order.
func (c *Config) GraphKinds() []stage.Kind {
	return toKinds(c.Project.Candidates.Graph)
}

// SetDefaults updates the strategy path and optimizer and persists them back
// to .stratc/config.yaml. Empty values leave the current setting alone.
func (c *Config) SetDefaults(strategyPath, optimizer string) error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	if trimmed := strings.TrimSpace(strategyPath); trimmed != "" {
		c.stored.Strategy = trimmed
	}
	if trimmed := strings.TrimSpace(optimizer); trimmed != "" {
		c.stored.Optimizer = strings.ToLower(trimmed)
	}
	return c.saveProjectConfig()
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.stored = c.Project
			c.Project.normalize(c.ProjectDir)
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	resolved := parsed
	resolved.normalize(c.ProjectDir)
	if err := resolved.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.stored = parsed
	c.Project = resolved
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version:   1,
		Strategy:  defaultStrategyFile,
		Optimizer: defaultOptimizer,
	}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.Strategy) == "" {
		pc.Strategy = defaultStrategyFile
	}
	if strings.TrimSpace(pc.Optimizer) == "" {
		pc.Optimizer = defaultOptimizer
	}
}

func (pc *ProjectConfig) normalize(base string) {
	pc.Strategy = resolvePath(base, pc.Strategy)
	pc.Optimizer = strings.ToLower(strings.TrimSpace(pc.Optimizer))
	pc.Candidates.Meta = normalizeKinds(pc.Candidates.Meta)
	pc.Candidates.Graph = normalizeKinds(pc.Candidates.Graph)
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if err := validateKinds("candidates.meta", pc.Candidates.Meta); err != nil {
		return err
	}
	if err := validateKinds("candidates.graph", pc.Candidates.Graph); err != nil {
		return err
	}
	return nil
}

func validateKinds(label string, kinds []string) error {
	seen := make(map[string]struct{}, len(kinds))
	for i, kind := range kinds {
		if _, dup := seen[kind]; dup {
			return fmt.Errorf("%s[%d]: duplicate stage %s", label, i, kind)
		}
		seen[kind] = struct{}{}
	}
	return nil
}

func normalizeKinds(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func toKinds(values []string) []stage.Kind {
	if len(values) == 0 {
		return nil
	}
	out := make([]stage.Kind, len(values))
	for i, v := range values {
		out[i] = stage.Kind(v)
	}
	return out
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}

// saveProjectConfig writes the stored settings unresolved and refreshes
// Project from them.
func (c *Config) saveProjectConfig() error {
	c.stored.applyDefaults()
	resolved := c.stored
	resolved.normalize(c.ProjectDir)
	if err := resolved.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(c.StateProjectDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure state dir: %w", err)
	}
	data, err := yaml.Marshal(c.stored)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.ProjectConfigPath(), data, 0o644); err != nil {
		return fmt.Errorf("config: write project config: %w", err)
	}
	c.Project = resolved
	return nil
}
