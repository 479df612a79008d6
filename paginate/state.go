package paginate

import "math"

// State is pagination geometry of the active content unit. Single instance is
// owned by Paginator and handed to resolvers by reference, it must only be
// read on the paginator loop.
type State struct {
	VisibleColumnCount int
	ColumnGap          int
	ColumnWidth        int
	ColumnCount        int
	SpreadCount        int
	CurrentSpread      int
}

// ColumnWidth returns width of a single column for given viewport. Result is
// floored - rendering host floors fractional column width by itself and
// offsets must match what it does.
func ColumnWidth(viewportWidth, gap, visible int) int {
	if visible <= 0 {
		return 0
	}
	w := float64(viewportWidth-gap*(visible-1)) / float64(visible)
	if w <= 0 {
		return 0
	}
	return int(math.Floor(w))
}

// ColumnCount derives number of laid out columns from the measured content
// extent.
func ColumnCount(extent, columnWidth, gap int) int {
	if extent <= 0 || columnWidth+gap <= 0 {
		return 0
	}
	return int(math.Round(float64(extent+gap) / float64(columnWidth+gap)))
}

// SpreadCount returns ceil(columns / visible).
func SpreadCount(columns, visible int) int {
	if columns <= 0 || visible <= 0 {
		return 0
	}
	return (columns + visible - 1) / visible
}

// PageOffset is horizontal shift of the content for the current spread.
func (s *State) PageOffset() int {
	return (s.ColumnWidth + s.ColumnGap) * s.VisibleColumnCount * s.CurrentSpread
}

// Visible reports whether current spread points into laid out content.
func (s *State) Visible() bool {
	return s.SpreadCount > 0 && s.CurrentSpread >= 0 && s.CurrentSpread < s.SpreadCount
}

// SpreadForOffset maps horizontal position inside laid out content (0 is the
// left edge of the first column) to a spread index. Returns -1 for positions
// outside of the content.
func (s *State) SpreadForOffset(x int) int {
	step := s.ColumnWidth + s.ColumnGap
	if x < 0 || step <= 0 || s.VisibleColumnCount <= 0 {
		return -1
	}
	spread := x / step / s.VisibleColumnCount
	if spread >= s.SpreadCount {
		return -1
	}
	return spread
}

func (s *State) resize(viewportWidth int) {
	s.ColumnWidth = ColumnWidth(viewportWidth, s.ColumnGap, s.VisibleColumnCount)
}

// measured updates counts from the content extent and clamps current spread.
func (s *State) measured(extent int) {
	s.ColumnCount = ColumnCount(extent, s.ColumnWidth, s.ColumnGap)
	s.SpreadCount = SpreadCount(s.ColumnCount, s.VisibleColumnCount)
	s.clamp()
}

func (s *State) clamp() {
	switch {
	case s.SpreadCount == 0:
		s.CurrentSpread = 0
	case s.CurrentSpread >= s.SpreadCount:
		s.CurrentSpread = s.SpreadCount - 1
	case s.CurrentSpread < 0:
		s.CurrentSpread = 0
	}
}

func (s *State) reset() {
	s.ColumnCount, s.SpreadCount, s.CurrentSpread = 0, 0, 0
}
