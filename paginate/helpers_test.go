package paginate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"rflow/switches"
)

type surfaceCmd struct {
	name string
	px   int
}

type fakeSurface struct {
	mu       sync.Mutex
	doc      *etree.Document
	extent   int
	mounted  int
	mountErr error
	cmds     []surfaceCmd
}

func (s *fakeSurface) Document() *etree.Document { return s.doc }

func (s *fakeSurface) Mount() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mounted++
	return s.mountErr
}

func (s *fakeSurface) record(name string, px int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cmds = append(s.cmds, surfaceCmd{name, px})
	return nil
}

func (s *fakeSurface) SetWidth(px int) error       { return s.record("width", px) }
func (s *fakeSurface) SetColumnWidth(px int) error { return s.record("column-width", px) }
func (s *fakeSurface) SetColumnGap(px int) error   { return s.record("column-gap", px) }
func (s *fakeSurface) SetOffset(px int) error      { return s.record("offset", px) }

func (s *fakeSurface) MeasuredExtent() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.extent, nil
}

func (s *fakeSurface) last(name string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.cmds) - 1; i >= 0; i-- {
		if s.cmds[i].name == name {
			return s.cmds[i].px, true
		}
	}
	return 0, false
}

type fakeViewport struct {
	mu   sync.Mutex
	size Size
}

func (v *fakeViewport) Size() (Size, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.size, nil
}

func (v *fakeViewport) set(w, h int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.size = Size{Width: w, Height: h}
}

type loadCall struct {
	unit ContentUnit
	done func(error)
}

type fakeLoader struct {
	mu    sync.Mutex
	calls []loadCall
	// when set loader completes synchronously with this outcome
	auto  bool
	fails map[string]error
}

func (l *fakeLoader) Load(_ context.Context, _ Surface, unit ContentUnit, done func(error)) {
	l.mu.Lock()
	l.calls = append(l.calls, loadCall{unit: unit, done: done})
	auto, err := l.auto, l.fails[unit.Ref]
	l.mu.Unlock()
	if auto {
		done(err)
	}
}

func (l *fakeLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

func (l *fakeLoader) call(i int) loadCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[i]
}

type fakeTimer struct {
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
	delays []time.Duration
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{fn: f}
	c.timers = append(c.timers, t)
	c.delays = append(c.delays, d)
	return t
}

// fire runs all armed timers, returns how many fired.
func (c *fakeClock) fire() int {
	c.mu.Lock()
	var armed []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			armed = append(armed, t)
		}
	}
	c.mu.Unlock()
	for _, t := range armed {
		t.fn()
	}
	return len(armed)
}

type fakeResolver struct {
	state    *State
	elements map[string]int
	prints   map[string]int
}

func (r *fakeResolver) SpreadForElement(id string) (int, error) {
	if i, ok := r.elements[id]; ok {
		return i, nil
	}
	return -1, ErrTargetUnresolved
}

func (r *fakeResolver) SpreadForFingerprint(fp string) (int, error) {
	if i, ok := r.prints[fp]; ok {
		return i, nil
	}
	return -1, fmt.Errorf("no such location %q", fp)
}

func (r *fakeResolver) FirstVisibleFingerprint() (string, error) {
	return fmt.Sprintf("/4/%d", (r.state.CurrentSpread+1)*2), nil
}

type fakeWork struct {
	n     int
	fixed bool
}

func (w fakeWork) Len() int          { return w.n }
func (w fakeWork) FixedLayout() bool { return w.fixed }

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) HandleEvent(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type harness struct {
	t        *testing.T
	p        *Paginator
	loop     *Loop
	surface  *fakeSurface
	viewport *fakeViewport
	loader   *fakeLoader
	clock    *fakeClock
	resolver *fakeResolver
	events   *recorder

	// hold keeps spawned work until released
	hold bool
	held []func()
}

var (
	unitA = ContentUnit{Ref: "a", Href: "a.xhtml", Index: 0}
	unitB = ContentUnit{Ref: "b", Href: "b.xhtml", Index: 1}
	unitC = ContentUnit{Ref: "c", Href: "c.xhtml", Index: 2}
)

func setupTestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller()))
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		t:        t,
		loop:     NewLoop(),
		surface:  &fakeSurface{extent: 2960},
		viewport: &fakeViewport{size: Size{Width: 1000, Height: 700}},
		loader:   &fakeLoader{},
		clock:    &fakeClock{},
		events:   &recorder{},
	}
	log := setupTestLogger(t)
	p, err := New(DefaultConfig(), Deps{
		Work:     fakeWork{n: 3},
		Surface:  h.surface,
		Viewport: h.viewport,
		Loader:   h.loader,
		Resolver: func(s *State) Resolver {
			h.resolver = &fakeResolver{state: s, elements: map[string]int{"start": 0, "middle": 1, "end": 2, "far": 7}, prints: map[string]int{"/4/6": 2}}
			return h.resolver
		},
		Switches: switches.New(nil, log),
		Clock:    h.clock,
		Loop:     h.loop,
		Spawn:    h.spawn,
	}, log)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	h.p = p
	p.Subscribe(h.events)
	return h
}

func (h *harness) drain() { h.loop.Drain() }

func (h *harness) spawn(f func()) {
	if h.hold {
		h.held = append(h.held, f)
		return
	}
	f()
}

// release runs held work and drains the loop.
func (h *harness) release() {
	held := h.held
	h.held, h.hold = nil, false
	for _, f := range held {
		f()
	}
	h.drain()
}

// complete finishes i-th load and drains the loop.
func (h *harness) complete(i int, err error) {
	h.t.Helper()
	if h.loader.count() <= i {
		h.t.Fatalf("load %d was never started (%d loads)", i, h.loader.count())
	}
	h.loader.call(i).done(err)
	h.drain()
}

// settle fires settle timers and drains the loop.
func (h *harness) settle() int {
	n := h.clock.fire()
	h.drain()
	return n
}

// open makes unit active and ready.
func (h *harness) open(u ContentUnit) {
	h.t.Helper()
	n := h.loader.count()
	h.p.OpenUnit(u)
	h.drain()
	h.complete(n, nil)
	if h.settle() != 1 {
		h.t.Fatal("expected exactly one settle timer")
	}
	if st := h.p.Snapshot().Status; st != StatusReady {
		h.t.Fatalf("status = %v, want ready", st)
	}
	h.events.reset()
}

func changed(spread, spreads int, u ContentUnit) Event {
	return PaginationChanged{Spread: spread, Spreads: spreads, Unit: u}
}

func result(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	default:
		t.Fatal("request has no outcome yet")
		return nil
	}
}

func noResult(t *testing.T, ch <-chan error) {
	t.Helper()
	select {
	case err := <-ch:
		t.Fatalf("unexpected outcome %v", err)
	default:
	}
}

var errBoom = errors.New("boom")
