package stage

import "github.com/kingrea/strategy-compiler/internal/strategy"

// Base provides common plumbing for stages: identity, a white list of kinds the
// stage accepts after it, and the recorded successor.
type Base struct {
	info      Info
	whiteList map[Kind]struct{}
	next      Stage
	disable   func(*strategy.Strategy)
}

// NewBase seeds the helper with stage info.
func NewBase(info Info) Base {
	return Base{info: info}
}

// Allow adds kinds to the white list consulted by CompatibleWith.
func (b *Base) Allow(kinds ...Kind) {
	if b.whiteList == nil {
		b.whiteList = make(map[Kind]struct{}, len(kinds))
	}
	for _, kind := range kinds {
		b.whiteList[kind] = struct{}{}
	}
}

// OnDisable installs the hook DisableIn runs.
func (b *Base) OnDisable(fn func(*strategy.Strategy)) {
	b.disable = fn
}

// Info implements Stage.Info.
func (b *Base) Info() Info {
	return b.info
}

// Name implements Procedure.Name.
func (b *Base) Name() string {
	return b.info.Name
}

// CompatibleWith implements Stage.CompatibleWith.
func (b *Base) CompatibleWith(other Stage) bool {
	if other == nil {
		return false
	}
	_, ok := b.whiteList[KindOf(other)]
	return ok
}

// AttachNext implements Stage.AttachNext.
func (b *Base) AttachNext(next Stage) {
	b.next = next
}

// Next returns the successor recorded by AttachNext.
func (b *Base) Next() Stage {
	return b.next
}

// DisableIn implements Stage.DisableIn.
func (b *Base) DisableIn(s *strategy.Strategy) {
	if s == nil || b.disable == nil {
		return
	}
	b.disable(s)
}
