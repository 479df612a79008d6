package paginate

import "go.uber.org/zap"

// offsetApplier shifts rendering surface to show current spread. It keeps no
// state of its own, offset is always derived from State.
type offsetApplier struct {
	surface Surface
	log     *zap.Logger
}

// render positions surface at current spread. Returns false without touching
// the surface when current spread is out of laid out content.
func (a offsetApplier) render(s *State) bool {
	if !s.Visible() {
		return false
	}
	if err := a.surface.SetOffset(-s.PageOffset()); err != nil {
		a.log.Warn("Surface rejected offset", zap.Int("spread", s.CurrentSpread), zap.Error(err))
	}
	return true
}
