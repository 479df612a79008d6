package paginate

// ViewportTracker remembers last observed viewport size so no-op resize
// notifications do not cause relayout.
type ViewportTracker struct {
	src   Viewport
	last  Size
	known bool
}

// NewViewportTracker creates tracker reading sizes from src.
func NewViewportTracker(src Viewport) *ViewportTracker {
	return &ViewportTracker{src: src}
}

// Update measures viewport and reports whether size differs from the
// previously recorded one. First successful measurement is always a change.
func (t *ViewportTracker) Update() (Size, bool, error) {
	sz, err := t.src.Size()
	if err != nil {
		return t.last, false, err
	}
	if t.known && sz == t.last {
		return sz, false, nil
	}
	t.last, t.known = sz, true
	return sz, true, nil
}

// Last returns last recorded size.
func (t *ViewportTracker) Last() Size {
	return t.last
}
