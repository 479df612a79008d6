package chromium

import (
	"context"
	"errors"
	"fmt"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"rflow/paginate"
)

// Loader reads and prepares content documents for the host. Parsing happens
// on its own goroutine, browser navigation is done by Host.Mount which
// paginator also calls off its loop.
type Loader struct {
	h *Host
}

// Loader returns loader bound to the host.
func (h *Host) Loader() *Loader {
	return &Loader{h: h}
}

// Load implements paginate.Loader.
func (l *Loader) Load(ctx context.Context, s paginate.Surface, unit paginate.ContentUnit, done func(error)) {
	if s != paginate.Surface(l.h) {
		done(errors.New("surface does not belong to this host"))
		return
	}
	go func() {
		if err := ctx.Err(); err != nil {
			done(err)
			return
		}
		doc, err := l.h.src.Document(unit)
		if err != nil {
			done(fmt.Errorf("unable to read content document: %w", err))
			return
		}
		if doc.Root() == nil {
			done(fmt.Errorf("content document %s is empty", unit.Href))
			return
		}
		l.h.sanitize(doc, unit)
		l.h.setDocument(unit, doc)
		done(nil)
	}()
}

// sanitize removes column layout declarations from embedded and inline
// styles of the document.
func (h *Host) sanitize(doc *etree.Document, unit paginate.ContentUnit) {
	var removed int
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		if el.Tag == "style" {
			out, rpt := h.css.Sanitize([]byte(el.Text()), unit.Href)
			if len(rpt.Removed) > 0 {
				el.SetText(string(out))
				removed += len(rpt.Removed)
			}
		}
		if a := el.SelectAttr("style"); a != nil {
			out, rpt := h.css.SanitizeInline(a.Value)
			if len(rpt.Removed) > 0 {
				a.Value = out
				removed += len(rpt.Removed)
			}
		}
		for _, c := range el.ChildElements() {
			walk(c)
		}
	}
	walk(doc.Root())
	if removed > 0 {
		h.log.Debug("Column layout declarations removed from content", zap.String("unit", unit.Ref), zap.Int("count", removed))
	}
}
