// cmd/stratc/main.go
//
// stratc compiles a distributed training strategy: it picks the longest
// compatible chain of optimization stages, reports what was dropped and
// writes the strategy that will actually run.

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/kingrea/strategy-compiler/internal/config"
	"github.com/kingrea/strategy-compiler/internal/history"
	"github.com/kingrea/strategy-compiler/internal/logging"
	"github.com/kingrea/strategy-compiler/internal/planner"
	"github.com/kingrea/strategy-compiler/internal/report"
	"github.com/kingrea/strategy-compiler/internal/stage"
	"github.com/kingrea/strategy-compiler/internal/stages"
	"github.com/kingrea/strategy-compiler/internal/strategy"
	"github.com/kingrea/strategy-compiler/internal/tui"
	"github.com/kingrea/strategy-compiler/plugins"
)

type options struct {
	projectDir   string
	strategyFile string
	optimizer    string
	meta         string
	graph        string
	out          string
	write        bool
	view         bool
	remember     bool
	history      int
	sets         keyValueFlag
}

func main() {
	opts := options{sets: keyValueFlag{}}
	flag.StringVar(&opts.projectDir, "project", "", "path to the project directory (defaults to cwd)")
	flag.StringVar(&opts.strategyFile, "strategy", "", "strategy YAML file (defaults to config or $"+config.StrategyEnv+")")
	flag.StringVar(&opts.optimizer, "optimizer", "", "inner optimizer the stages wrap (sgd, momentum, adam)")
	flag.StringVar(&opts.meta, "meta", "", "comma-separated meta stage declaration order")
	flag.StringVar(&opts.graph, "graph", "", "comma-separated graph stage declaration order")
	flag.StringVar(&opts.out, "out", "", "write the compiled strategy to this file")
	flag.BoolVar(&opts.write, "write", false, "write the compiled strategy to .stratc/out when -out is not given")
	flag.BoolVar(&opts.view, "view", false, "open the interactive plan viewer")
	flag.BoolVar(&opts.remember, "remember", false, "store -strategy and -optimizer as project defaults")
	flag.IntVar(&opts.history, "history", 0, "print the last N compile runs and exit")
	flag.Var(&opts.sets, "set", "strategy override (key=value, repeatable)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		die("load .env: %v", err)
	}

	if err := run(opts, os.Stdout); err != nil {
		die("%v", err)
	}
}

func run(opts options, stdout io.Writer) error {
	project := opts.projectDir
	if project == "" {
		var err error
		project, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("determine working directory: %w", err)
		}
	}
	absoluteProject, err := filepath.Abs(project)
	if err != nil {
		return fmt.Errorf("resolve project dir: %w", err)
	}
	if err := config.InitDir(absoluteProject); err != nil {
		return fmt.Errorf("init %s: %w", config.StateDir, err)
	}
	cfg, err := config.NewConfig(absoluteProject)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.LogsDir())
	if err != nil {
		return err
	}
	defer logger.Close()
	journal, err := history.New(filepath.Join(cfg.StateProjectDir, history.FileName))
	if err != nil {
		return err
	}
	if opts.history > 0 {
		return printHistory(stdout, journal, opts.history)
	}

	if opts.remember {
		if err := cfg.SetDefaults(opts.strategyFile, opts.optimizer); err != nil {
			return err
		}
	}

	strategyPath := cfg.StrategyPath()
	if strings.TrimSpace(opts.strategyFile) != "" {
		strategyPath = resolveAgainst(absoluteProject, opts.strategyFile)
	}
	user, err := loadStrategy(strategyPath, opts.sets)
	if err != nil {
		return err
	}

	optimizer := cfg.Optimizer()
	if strings.TrimSpace(opts.optimizer) != "" {
		optimizer = opts.optimizer
	}
	metaKinds := cfg.MetaKinds()
	if kinds := parseKinds(opts.meta); kinds != nil {
		metaKinds = kinds
	}
	graphKinds := cfg.GraphKinds()
	if kinds := parseKinds(opts.graph); kinds != nil {
		graphKinds = kinds
	}

	reg := stage.NewRegistry()
	stages.RegisterBuiltins(reg)
	pluginKinds, err := plugins.RegisterStagePlugins(reg, cfg)
	if err != nil {
		return err
	}
	if len(pluginKinds) > 0 {
		logger.Printf("stratc: loaded plugin stages %v", pluginKinds)
	}
	p, err := planner.New(reg,
		planner.WithLogger(logger),
		planner.WithBase(func(name string) stage.Procedure { return stages.NewInner(name) }),
	)
	if err != nil {
		return err
	}
	logger.Printf("stratc: compiling %s", strategyPath)
	plan, err := p.Plan(planner.Request{
		Strategy:       user,
		InnerOptimizer: optimizer,
		MetaKinds:      metaKinds,
		GraphKinds:     graphKinds,
	})
	if err != nil {
		if jerr := journal.Error("%s optimizer=%s: %v", filepath.Base(strategyPath), optimizer, err); jerr != nil {
			logger.Printf("stratc: %v", jerr)
		}
		return err
	}
	if err := recordPlan(journal, filepath.Base(strategyPath), optimizer, plan); err != nil {
		logger.Printf("stratc: %v", err)
	}

	if outPath := compiledPath(opts, absoluteProject, cfg, strategyPath); outPath != "" {
		if err := strategy.WriteFile(outPath, plan.Valid); err != nil {
			return err
		}
		logger.Printf("stratc: wrote %s", outPath)
	}

	rendered := report.Render(plan)
	if opts.view {
		return tui.Run(filepath.Base(strategyPath), rendered)
	}
	fmt.Fprintln(stdout, rendered)
	return nil
}

// loadStrategy reads the strategy file (a missing file means an empty
// strategy) and applies -set overrides in key order.
func loadStrategy(path string, sets keyValueFlag) (*strategy.Strategy, error) {
	user, err := strategy.LoadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		user = &strategy.Strategy{}
	}
	keys := make([]string, 0, len(sets))
	for key := range sets {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		user, err = strategy.Override(user, key, sets[key])
		if err != nil {
			return nil, err
		}
	}
	return user, nil
}

// compiledPath picks where the valid strategy goes: -out wins, -write falls
// back to .stratc/out under the strategy file's name, otherwise nothing is
// written.
func compiledPath(opts options, project string, cfg *config.Config, strategyPath string) string {
	if strings.TrimSpace(opts.out) != "" {
		return resolveAgainst(project, opts.out)
	}
	if opts.write {
		return filepath.Join(cfg.OutDir(), filepath.Base(strategyPath))
	}
	return ""
}

func recordPlan(journal *history.Journal, name, optimizer string, plan planner.Plan) error {
	format := "%s optimizer=%s meta=%v graph=%v disabled=%v"
	args := []any{name, optimizer, plan.MetaChain.Kinds(), plan.GraphChain.Kinds(), plan.Disabled()}
	if len(plan.Disabled()) > 0 {
		return journal.Warn(format, args...)
	}
	return journal.Info(format, args...)
}

func printHistory(w io.Writer, journal *history.Journal, n int) error {
	lines, total, err := journal.Tail(n)
	if err != nil {
		return err
	}
	if total == 0 {
		fmt.Fprintln(w, "no compile runs recorded")
		return nil
	}
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	if total > len(lines) {
		fmt.Fprintf(w, "(%d earlier runs not shown)\n", total-len(lines))
	}
	return nil
}

func parseKinds(value string) []stage.Kind {
	var kinds []stage.Kind
	for _, part := range strings.Split(value, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		kinds = append(kinds, stage.Kind(part))
	}
	return kinds
}

func resolveAgainst(base, path string) string {
	path = strings.TrimSpace(path)
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(base, path)
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

type keyValueFlag map[string]string

func (kv *keyValueFlag) String() string {
	if kv == nil || len(*kv) == 0 {
		return ""
	}
	var pairs []string
	for key, value := range *kv {
		pairs = append(pairs, fmt.Sprintf("%s=%s", key, value))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ", ")
}

func (kv *keyValueFlag) Set(value string) error {
	parts := strings.SplitN(value, "=", 2)
	if len(parts) != 2 {
		return fmt.Errorf("expected key=value, got %q", value)
	}
	key := strings.TrimSpace(parts[0])
	if key == "" {
		return fmt.Errorf("override key is empty in %q", value)
	}
	if *kv == nil {
		*kv = keyValueFlag{}
	}
	(*kv)[key] = parts[1]
	return nil
}
