package paginate

import (
	"time"

	"go.uber.org/zap"
)

// layoutReader pushes column geometry to the surface and reads laid out
// extent back once rendering host had time to settle.
type layoutReader struct {
	surface Surface
	clock   Clock
	delay   time.Duration
	log     *zap.Logger
	timer   Timer
}

// apply recomputes column width for viewport width and sends geometry to the
// surface. Surface width is reset to the viewport so previous pinning does
// not limit new layout.
func (r *layoutReader) apply(s *State, viewportWidth int) {
	s.resize(viewportWidth)
	r.command("column gap", s.ColumnGap, r.surface.SetColumnGap(s.ColumnGap))
	r.command("width", viewportWidth, r.surface.SetWidth(viewportWidth))
	r.command("column width", s.ColumnWidth, r.surface.SetColumnWidth(s.ColumnWidth))
}

// schedule arms settle timer, previously armed timer is stopped. fire is
// called on timer goroutine.
func (r *layoutReader) schedule(fire func()) {
	r.cancel()
	r.timer = r.clock.AfterFunc(r.delay, fire)
}

func (r *layoutReader) cancel() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// measure reads content extent, pins surface width to it so rendering host
// does not rebalance columns afterwards and updates counts in s.
func (r *layoutReader) measure(s *State) {
	r.timer = nil

	extent, err := r.surface.MeasuredExtent()
	if err != nil {
		r.log.Warn("Unable to measure laid out content, assuming empty", zap.Error(err))
		extent = 0
	}
	if extent > 0 {
		r.command("pinned width", extent, r.surface.SetWidth(extent))
	}
	s.measured(extent)

	r.log.Debug("Layout measured",
		zap.Int("extent", extent),
		zap.Int("column_width", s.ColumnWidth),
		zap.Int("columns", s.ColumnCount),
		zap.Int("spreads", s.SpreadCount))
}

func (r *layoutReader) command(what string, px int, err error) {
	if err != nil {
		r.log.Warn("Surface rejected geometry command", zap.String("command", what), zap.Int("px", px), zap.Error(err))
	}
}
