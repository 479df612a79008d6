package chromium

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/beevik/etree"

	"rflow/locator"
	"rflow/paginate"
)

//go:embed resolver.js
var resolverScript string

// Resolver maps element ids and location fingerprints of the mounted
// document to spreads using layout of the browser.
type Resolver struct {
	h     *Host
	state *paginate.State
}

// NewResolver implements paginate.ResolverFactory.
func (h *Host) NewResolver(s *paginate.State) paginate.Resolver {
	return &Resolver{h: h, state: s}
}

type step struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
}

// SpreadForElement implements paginate.Resolver.
func (r *Resolver) SpreadForElement(id string) (int, error) {
	var x *float64
	if err := r.h.eval(fmt.Sprintf(`window.__rflow.elementLeft(%s)`, strconv.Quote(id)), &x); err != nil {
		return -1, err
	}
	if x == nil {
		return -1, fmt.Errorf("%w: no element with id %q", paginate.ErrTargetUnresolved, id)
	}
	return r.spread(*x)
}

// SpreadForFingerprint implements paginate.Resolver.
func (r *Resolver) SpreadForFingerprint(fp string) (int, error) {
	f, err := locator.Parse(fp)
	if err != nil {
		return -1, fmt.Errorf("%w: %w", paginate.ErrTargetUnresolved, err)
	}
	if f, err = pathInTree(r.h.mountedTree(), f); err != nil {
		return -1, err
	}
	steps := make([]step, 0, len(f.Steps))
	for _, s := range f.Steps {
		steps = append(steps, step{Index: s.Index, ID: s.ID})
	}
	arg, err := json.Marshal(steps)
	if err != nil {
		return -1, err
	}

	var x *float64
	if err := r.h.eval(fmt.Sprintf(`window.__rflow.pathLeft(%s)`, arg), &x); err != nil {
		return -1, err
	}
	if x == nil {
		return -1, fmt.Errorf("%w: %s", paginate.ErrTargetUnresolved, f)
	}
	return r.spread(*x)
}

// FirstVisibleFingerprint implements paginate.Resolver.
func (r *Resolver) FirstVisibleFingerprint() (string, error) {
	width := (r.state.ColumnWidth+r.state.ColumnGap)*r.state.VisibleColumnCount - r.state.ColumnGap

	var steps []step
	if err := r.h.eval(fmt.Sprintf(`window.__rflow.firstVisible(%d)`, width), &steps); err != nil {
		return "", err
	}
	f := locator.Fingerprint{Steps: make([]locator.Step, 0, len(steps))}
	for _, s := range steps {
		f.Steps = append(f.Steps, locator.Step{Index: s.Index, ID: s.ID})
	}
	if f.IsZero() {
		return "", fmt.Errorf("%w: nothing visible", paginate.ErrTargetUnresolved)
	}
	return f.String(), nil
}

// pathInTree resolves fingerprint against mounted document tree and returns
// actual path of the element it addresses. Fingerprints taken before content
// changed are recovered through their id assertions this way.
func pathInTree(page *etree.Document, f locator.Fingerprint) (locator.Fingerprint, error) {
	if page == nil {
		return f, nil
	}
	el, err := locator.Find(page, f)
	if err != nil {
		return f, fmt.Errorf("%w: %w", paginate.ErrTargetUnresolved, err)
	}
	return locator.ForElement(el), nil
}

// spread converts viewport position of an element to spread index.
func (r *Resolver) spread(viewportX float64) (int, error) {
	x := int(math.Floor(viewportX)) - r.h.currentOffset()
	idx := r.state.SpreadForOffset(x)
	if idx < 0 {
		return -1, fmt.Errorf("%w: position %d outside of laid out content", paginate.ErrTargetUnresolved, x)
	}
	return idx, nil
}

// VisibleText returns text of the mounted document rendered within the first
// width pixels of the viewport. Paragraphs are separated by new lines.
func (h *Host) VisibleText(width int) (string, error) {
	var text string
	if err := h.eval(fmt.Sprintf(`window.__rflow.visibleText(%d)`, width), &text); err != nil {
		return "", fmt.Errorf("unable to read visible text: %w", err)
	}
	return text, nil
}
