package compiler

import (
	"fmt"

	"github.com/kingrea/strategy-compiler/internal/stage"
	"github.com/kingrea/strategy-compiler/internal/strategy"
)

// recorder collects the calls stubs receive, in order, across all stubs.
type recorder struct {
	attaches []string
	checks   []string
	disables []string
}

type stubStage struct {
	info    stage.Info
	accepts map[string]bool
	rec     *recorder
	next    stage.Stage
	disable func(*strategy.Strategy)
	// panicOnAttach and panicOnCheck make the hooks fail after recording.
	panicOnAttach bool
	panicOnCheck  bool
}

func newStub(rec *recorder, name string, accepts ...string) *stubStage {
	s := &stubStage{
		info:    stage.Info{Kind: stage.Kind(name), Family: stage.FamilyMeta, Name: name},
		accepts: map[string]bool{},
		rec:     rec,
	}
	for _, other := range accepts {
		s.accepts[other] = true
	}
	return s
}

func (s *stubStage) Name() string     { return s.info.Name }
func (s *stubStage) Info() stage.Info { return s.info }

func (s *stubStage) CompatibleWith(other stage.Stage) bool {
	s.rec.checks = append(s.rec.checks, fmt.Sprintf("%s?%s", s.Name(), other.Name()))
	if s.panicOnCheck {
		panic("check failed: " + s.Name())
	}
	return s.accepts[other.Name()]
}

func (s *stubStage) AttachNext(next stage.Stage) {
	s.rec.attaches = append(s.rec.attaches, fmt.Sprintf("%s->%s", s.Name(), next.Name()))
	if s.panicOnAttach {
		panic("attach failed: " + s.Name())
	}
	s.next = next
}

func (s *stubStage) DisableIn(st *strategy.Strategy) {
	s.rec.disables = append(s.rec.disables, s.Name())
	if s.disable != nil {
		s.disable(st)
	}
}

type baseProcedure string

func (b baseProcedure) Name() string { return string(b) }

func stages(in ...*stubStage) []stage.Stage {
	out := make([]stage.Stage, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func names(in []stage.Stage) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = s.Name()
	}
	return out
}
