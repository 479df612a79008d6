// Package browse is an interactive terminal host driving paginator of a
// single work.
package browse

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"rflow/locator"
	"rflow/paginate"
)

const (
	resizeStep       = 100
	minViewportWidth = 300
)

// Pager is the part of paginator browser drives.
type Pager interface {
	OpenUnit(paginate.ContentUnit)
	OpenPage(paginate.Request) <-chan error
	Next()
	Prev()
	ViewportResized()
	Snapshot() paginate.Snapshot
	Info() paginate.PagesInfo
	FirstVisibleFingerprint(ctx context.Context) (string, error)
}

// Options describe browsed work.
type Options struct {
	Title string
	Units []paginate.ContentUnit
	// Events delivers paginator events, see session.Watch.
	Events <-chan paginate.Event
	// Text returns text visible within width pixels of the viewport.
	Text func(width int) (string, error)
	// Mounted is called once content unit is paginated.
	Mounted func(paginate.ContentUnit)
	// Viewport is the initial size of the rendering host viewport.
	Viewport paginate.Size
	// Resize changes viewport of the rendering host, nil disables resizing.
	Resize func(width, height int) error
	// Lookup finds content unit by reference for "unit#id" targets.
	Lookup func(ref string) (paginate.ContentUnit, bool)
}

type (
	eventMsg struct{ paginate.Event }
	textMsg  struct {
		text string
		err  error
	}
	navMsg struct {
		what string
		err  error
	}
	locationMsg struct {
		fp  string
		err error
	}
	resizedMsg struct {
		size paginate.Size
		err  error
	}
)

// Model is bubbletea model of the browser.
type Model struct {
	ctx   context.Context
	pager Pager
	opts  Options

	keys   keyMap
	styles styles
	help   help.Model
	input  textinput.Model
	typing bool

	width  int
	height int

	viewport paginate.Size

	unit      int
	last      paginate.PaginationChanged
	paginated bool
	// move to the last spread once unit being opened is paginated
	toLast bool

	text   string
	status string
	err    error
}

// New creates browser model, first content unit is opened by Init.
func New(ctx context.Context, pager Pager, opts Options) *Model {
	ti := textinput.New()
	ti.Placeholder = "element id, unit#id or location"
	ti.CharLimit = 256
	return &Model{
		ctx:    ctx,
		pager:  pager,
		opts:   opts,
		keys:   newKeyMap(),
		styles: newStyles(),
		help:   help.New(),
		input:  ti,

		viewport: opts.Viewport,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	if len(m.opts.Units) == 0 {
		m.err = errors.New("work has no content units")
		return nil
	}
	m.pager.OpenUnit(m.opts.Units[0])
	m.status = "loading " + m.opts.Units[0].Href
	return m.waitEvent()
}

func (m *Model) waitEvent() tea.Cmd {
	events, ctx := m.opts.Events, m.ctx
	return func() tea.Msg {
		select {
		case e := <-events:
			return eventMsg{e}
		case <-ctx.Done():
			return nil
		}
	}
}

// fetchText reads text of the current spread.
func (m *Model) fetchText() tea.Cmd {
	if m.opts.Text == nil {
		return nil
	}
	st := m.pager.Snapshot().State
	width := (st.ColumnWidth+st.ColumnGap)*st.VisibleColumnCount - st.ColumnGap
	text := m.opts.Text
	return func() tea.Msg {
		t, err := text(width)
		return textMsg{text: t, err: err}
	}
}

func (m *Model) openPage(what string, req paginate.Request) tea.Cmd {
	ch, ctx := m.pager.OpenPage(req), m.ctx
	return func() tea.Msg {
		select {
		case err := <-ch:
			return navMsg{what: what, err: err}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m *Model) locate() tea.Cmd {
	pager, ctx := m.pager, m.ctx
	return func() tea.Msg {
		fp, err := pager.FirstVisibleFingerprint(ctx)
		return locationMsg{fp: fp, err: err}
	}
}

func (m *Model) resize(delta int) tea.Cmd {
	if m.opts.Resize == nil {
		return nil
	}
	cur := m.viewport
	size := paginate.Size{Width: max(cur.Width+delta, minViewportWidth), Height: cur.Height}
	if cur.Width == 0 || size == cur {
		return nil
	}
	resize := m.opts.Resize
	return func() tea.Msg {
		return resizedMsg{size: size, err: resize(size.Width, size.Height)}
	}
}

func (m *Model) openUnit(i int, toLast bool) {
	if !m.switchTo(i, toLast) {
		return
	}
	m.pager.OpenUnit(m.opts.Units[i])
}

// switchTo makes i-th unit the one being shown, returns false when there is
// nothing to switch to.
func (m *Model) switchTo(i int, toLast bool) bool {
	if i < 0 || i >= len(m.opts.Units) || i == m.unit && m.paginated {
		return false
	}
	m.unit, m.paginated, m.toLast = i, false, toLast
	m.text, m.err = "", nil
	m.status = "loading " + m.opts.Units[i].Href
	return true
}

// target converts prompt input into navigation request: location
// fingerprint, "unit#id" or bare element id.
func (m *Model) target(in string) (string, paginate.Request, error) {
	if strings.HasPrefix(in, "/") || strings.HasPrefix(in, "epubcfi(") {
		f, err := locator.Parse(in)
		if err != nil {
			return "", paginate.Request{}, err
		}
		return "location " + f.Wrapped(), paginate.ToLocation(nil, f.String()), nil
	}
	ref, id, found := strings.Cut(in, "#")
	if !found {
		return "element " + in, paginate.ToElement(nil, in), nil
	}
	if m.opts.Lookup == nil {
		return "", paginate.Request{}, errors.New("unit references are not supported")
	}
	u, ok := m.opts.Lookup(ref)
	if !ok {
		return "", paginate.Request{}, fmt.Errorf("no content unit %q", ref)
	}
	if len(id) == 0 {
		return "unit " + ref, paginate.ToSpread(&u, 0), nil
	}
	return "element " + in, paginate.ToElement(&u, id), nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if m.typing {
			return m.updateInput(msg)
		}
		return m.updateKeys(msg)

	case eventMsg:
		return m, tea.Batch(m.handleEvent(msg.Event), m.waitEvent())

	case textMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.text = msg.text
		return m, nil

	case navMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("%s: %w", msg.what, msg.err)
		}
		return m, nil

	case locationMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		f, err := locator.Parse(msg.fp)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.status = "first visible: " + f.Wrapped()
		return m, nil

	case resizedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.viewport = msg.size
		m.status = fmt.Sprintf("viewport %dx%d", msg.size.Width, msg.size.Height)
		m.pager.ViewportResized()
		return m, nil
	}
	return m, nil
}

func (m *Model) handleEvent(e paginate.Event) tea.Cmd {
	switch e := e.(type) {
	case paginate.PaginationChanged:
		if len(m.opts.Units) == 0 || !e.Unit.Same(m.opts.Units[m.unit]) {
			// leftover of a unit we already moved away from
			return nil
		}
		first := !m.paginated
		m.last, m.paginated = e, true
		m.status = ""
		if first && m.opts.Mounted != nil {
			m.opts.Mounted(e.Unit)
		}
		if first && m.toLast && e.Spreads > 1 {
			m.toLast = false
			return m.openPage("last spread", paginate.ToSpread(nil, e.Spreads-1))
		}
		m.toLast = false
		return m.fetchText()
	case paginate.ContentLoadFailed:
		if len(m.opts.Units) > 0 && e.Unit.Same(m.opts.Units[m.unit]) {
			m.paginated, m.status, m.text = false, "", ""
			m.err = e.Err
		}
	}
	return nil
}

func (m *Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Next):
		if m.paginated && m.last.Spread+1 >= m.last.Spreads {
			m.openUnit(m.unit+1, false)
			return m, nil
		}
		m.pager.Next()
	case key.Matches(msg, m.keys.Prev):
		if m.paginated && m.last.Spread == 0 {
			m.openUnit(m.unit-1, true)
			return m, nil
		}
		m.pager.Prev()
	case key.Matches(msg, m.keys.First):
		return m, m.openPage("first spread", paginate.ToSpread(nil, 0))
	case key.Matches(msg, m.keys.Last):
		if m.last.Spreads > 0 {
			return m, m.openPage("last spread", paginate.ToSpread(nil, m.last.Spreads-1))
		}
	case key.Matches(msg, m.keys.NextUnit):
		m.openUnit(m.unit+1, false)
	case key.Matches(msg, m.keys.PrevUnit):
		m.openUnit(m.unit-1, false)
	case key.Matches(msg, m.keys.Goto):
		m.typing = true
		m.input.Reset()
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.Locate):
		return m, m.locate()
	case key.Matches(msg, m.keys.Wider):
		return m, m.resize(resizeStep)
	case key.Matches(msg, m.keys.Narrower):
		return m, m.resize(-resizeStep)
	}
	return m, nil
}

func (m *Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.typing = false
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		m.typing = false
		m.input.Blur()
		in := strings.TrimSpace(m.input.Value())
		if len(in) == 0 {
			return m, nil
		}
		what, req, err := m.target(in)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		if req.Unit != nil && req.Unit.Index != m.unit {
			m.switchTo(req.Unit.Index, false)
		}
		return m, m.openPage(what, req)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}
