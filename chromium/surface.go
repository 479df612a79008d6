package chromium

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/beevik/etree"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"rflow/paginate"
)

const baseStyle = `html { margin: 0; padding: 0; height: %dpx; overflow: hidden; position: relative; column-fill: auto; }
body { margin: 0; padding: 0; }
img, svg, video { max-width: 100%%; max-height: %dpx; }
`

const (
	baseStyleID    = "rflow-base"
	userStylesheet = "__rflow/user.css"
)

func px(v int) string {
	return strconv.Itoa(v) + "px"
}

// setDocument replaces content tree of the surface.
func (h *Host) setDocument(unit paginate.ContentUnit, doc *etree.Document) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unit, h.doc = unit, doc
}

// Document implements paginate.Surface.
func (h *Host) Document() *etree.Document {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.doc
}

// Mounted returns serialized document as it was handed to the browser.
func (h *Host) Mounted() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mounted
}

// Mount implements paginate.Surface. Document is served from the local
// server under its own location so relative resources resolve.
func (h *Host) Mount() error {
	h.mu.Lock()
	doc, unit, size := h.doc, h.unit, h.size
	h.mu.Unlock()
	if doc == nil {
		return errors.New("no document to mount")
	}

	page := doc.Copy()
	prepareHead(page, size.Height, h.files.hasUserCSS())
	data, err := page.WriteToBytes()
	if err != nil {
		return fmt.Errorf("unable to serialize document: %w", err)
	}
	h.files.mount(unit.Href, data)

	target := h.base + (&url.URL{Path: "/" + unit.Href}).EscapedPath()
	err = h.run(
		chromedp.Navigate(target),
		chromedp.WaitReady(":root", chromedp.ByQuery),
		chromedp.Evaluate(resolverScript, nil),
	)
	if err != nil {
		return fmt.Errorf("unable to load %s: %w", unit.Href, err)
	}

	h.mu.Lock()
	h.mounted, h.page, h.offset = data, page, 0
	h.mu.Unlock()
	h.log.Debug("Document mounted", zap.String("unit", unit.Ref), zap.String("url", target), zap.Int("bytes", len(data)))
	return nil
}

func (h *Host) mountedTree() *etree.Document {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.page
}

// prepareHead adds base pagination style and user stylesheet link.
func prepareHead(doc *etree.Document, height int, userCSS bool) {
	root := doc.Root()
	if root == nil {
		return
	}
	head := findLocal(root, "head")
	if head == nil {
		head = etree.NewElement("head")
		root.InsertChildAt(0, head)
	}
	style := head.CreateElement("style")
	style.CreateAttr("id", baseStyleID)
	style.SetText(fmt.Sprintf(baseStyle, height, height))
	if userCSS {
		link := head.CreateElement("link")
		link.CreateAttr("rel", "stylesheet")
		link.CreateAttr("type", "text/css")
		link.CreateAttr("href", "/"+userStylesheet)
	}
}

func findLocal(el *etree.Element, tag string) *etree.Element {
	if el.Tag == tag {
		return el
	}
	for _, c := range el.ChildElements() {
		if found := findLocal(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func (h *Host) style(property, value string) error {
	return h.eval(fmt.Sprintf(`document.documentElement.style.setProperty(%s, %s), true`, strconv.Quote(property), strconv.Quote(value)), nil)
}

// SetWidth implements paginate.Surface.
func (h *Host) SetWidth(v int) error {
	return h.style("width", px(v))
}

// SetColumnWidth implements paginate.Surface.
func (h *Host) SetColumnWidth(v int) error {
	return h.style("column-width", px(v))
}

// SetColumnGap implements paginate.Surface.
func (h *Host) SetColumnGap(v int) error {
	return h.style("column-gap", px(v))
}

// SetOffset implements paginate.Surface.
func (h *Host) SetOffset(v int) error {
	if err := h.style("left", px(v)); err != nil {
		return err
	}
	h.mu.Lock()
	h.offset = v
	h.mu.Unlock()
	return nil
}

// MeasuredExtent implements paginate.Surface.
func (h *Host) MeasuredExtent() (int, error) {
	var w int
	if err := h.eval(`document.documentElement.scrollWidth`, &w); err != nil {
		return 0, err
	}
	return w, nil
}

func (h *Host) currentOffset() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.offset
}
