package paginate

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/beevik/etree"
)

func TestOpenUnit_LoadsFiltersAndSettles(t *testing.T) {
	h := newHarness(t)

	doc := etree.NewDocument()
	if err := doc.ReadFromString(`<html><body><switch><case required-namespace="urn:unknown">x</case><default>fallback</default></switch></body></html>`); err != nil {
		t.Fatalf("parse: %v", err)
	}
	h.surface.doc = doc

	h.p.OpenUnit(unitA)
	h.drain()
	if h.loader.count() != 1 {
		t.Fatalf("loads = %d, want 1", h.loader.count())
	}
	if st := h.p.Snapshot().Status; st != StatusLoading {
		t.Errorf("status = %v, want loading", st)
	}

	h.complete(0, nil)
	if st := h.p.Snapshot().Status; st != StatusSettlingLayout {
		t.Errorf("status = %v, want settling-layout", st)
	}
	if h.surface.mounted != 1 {
		t.Errorf("mounted = %d, want 1", h.surface.mounted)
	}
	if doc.FindElement("//case") != nil || doc.FindElement("//default") == nil {
		t.Error("switch filter was not applied before mount")
	}
	if px, _ := h.surface.last("column-width"); px != 490 {
		t.Errorf("column width = %d, want 490", px)
	}
	if px, _ := h.surface.last("column-gap"); px != 20 {
		t.Errorf("column gap = %d, want 20", px)
	}
	if len(h.events.all()) != 0 {
		t.Errorf("events before settle: %v", h.events.all())
	}

	if n := h.settle(); n != 1 {
		t.Fatalf("settle timers fired = %d, want 1", n)
	}
	if h.clock.delays[0] != DefaultSettleDelay {
		t.Errorf("settle delay = %v, want %v", h.clock.delays[0], DefaultSettleDelay)
	}

	want := []Event{changed(0, 3, unitA)}
	if got := h.events.all(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
	snap := h.p.Snapshot()
	if snap.Status != StatusReady {
		t.Errorf("status = %v, want ready", snap.Status)
	}
	if snap.State.ColumnWidth != 490 || snap.State.ColumnCount != 6 || snap.State.SpreadCount != 3 {
		t.Errorf("state = %+v", snap.State)
	}
	if px, _ := h.surface.last("width"); px != 2960 {
		t.Errorf("surface width = %d, want pinned to extent 2960", px)
	}
	if px, ok := h.surface.last("offset"); !ok || px != 0 {
		t.Errorf("offset = %d (%v), want 0", px, ok)
	}
}

func TestOpenUnit_SameUnitIsNoop(t *testing.T) {
	h := newHarness(t)
	h.open(unitA)

	h.p.OpenUnit(unitA)
	h.drain()

	if h.loader.count() != 1 {
		t.Errorf("loads = %d, want 1", h.loader.count())
	}
	if len(h.clock.timers) != 1 {
		t.Errorf("settle timers = %d, want 1", len(h.clock.timers))
	}
	if len(h.events.all()) != 0 {
		t.Errorf("unexpected events %v", h.events.all())
	}
	if st := h.p.Snapshot().Status; st != StatusReady {
		t.Errorf("status = %v, want ready", st)
	}
}

func TestOpenUnit_RapidRequestsCoalesce(t *testing.T) {
	h := newHarness(t)

	h.p.OpenUnit(unitA)
	h.p.OpenUnit(unitB)
	h.drain()

	if h.loader.count() != 1 {
		t.Fatalf("loads = %d, want 1", h.loader.count())
	}
	if u := h.loader.call(0).unit; u != unitB {
		t.Fatalf("loaded %v, want %v", u, unitB)
	}
	h.complete(0, nil)
	h.settle()

	want := []Event{changed(0, 3, unitB)}
	if got := h.events.all(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestOpenUnit_ResetsCurrentSpread(t *testing.T) {
	h := newHarness(t)
	h.open(unitA)
	h.p.OpenPage(ToSpread(nil, 2))
	h.drain()

	h.p.OpenUnit(unitB)
	h.drain()
	snap := h.p.Snapshot()
	if snap.State.CurrentSpread != 0 || snap.State.SpreadCount != 0 {
		t.Errorf("state after unit change = %+v", snap.State)
	}
	if snap.Unit == nil || *snap.Unit != unitB {
		t.Errorf("unit = %v, want %v", snap.Unit, unitB)
	}
}

func TestOpenPage_DeferredDuringLoadAppliesToLatestUnit(t *testing.T) {
	h := newHarness(t)

	h.p.OpenUnit(unitA)
	h.drain()

	first := h.p.OpenPage(ToSpread(&unitB, 1))
	h.drain()
	last := h.p.OpenPage(ToSpread(&unitC, 2))
	h.drain()

	if h.loader.count() != 1 {
		t.Fatalf("loads while in flight = %d, want 1", h.loader.count())
	}
	if err := result(t, first); !errors.Is(err, ErrSuperseded) {
		t.Errorf("first request = %v, want ErrSuperseded", err)
	}
	noResult(t, last)

	h.complete(0, nil)
	if h.loader.count() != 2 || h.loader.call(1).unit != unitC {
		t.Fatalf("expected chained load of %v", unitC)
	}
	if h.surface.mounted != 0 || len(h.clock.timers) != 0 {
		t.Error("superseded unit must not be mounted or measured")
	}

	h.complete(1, nil)
	h.settle()

	want := []Event{changed(2, 3, unitC)}
	if got := h.events.all(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
	if err := result(t, last); err != nil {
		t.Errorf("last request = %v, want nil", err)
	}
	if px, _ := h.surface.last("offset"); px != -2040 {
		t.Errorf("offset = %d, want -2040", px)
	}
}

func TestOpenPage_DeferredWhileSettling(t *testing.T) {
	h := newHarness(t)

	h.p.OpenUnit(unitA)
	h.drain()
	h.complete(0, nil)

	ch := h.p.OpenPage(ToSpread(nil, 2))
	h.drain()
	noResult(t, ch)
	if len(h.events.all()) != 0 {
		t.Fatalf("deferred request emitted %v", h.events.all())
	}

	h.settle()
	want := []Event{changed(2, 3, unitA)}
	if got := h.events.all(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
	if err := result(t, ch); err != nil {
		t.Errorf("deferred request = %v", err)
	}
}

func TestOpenPage_DeferredRequestAppliedOnce(t *testing.T) {
	h := newHarness(t)

	h.p.OpenUnit(unitA)
	h.drain()
	h.p.OpenPage(ToSpread(nil, 1))
	h.drain()
	h.complete(0, nil)
	h.settle()

	h.p.ViewportResized()
	h.viewport.set(1000, 500)
	h.p.ViewportResized()
	h.drain()
	h.settle()

	want := []Event{changed(1, 3, unitA), changed(1, 3, unitA)}
	if got := h.events.all(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestOpenPage_IndexZeroIsHonoured(t *testing.T) {
	h := newHarness(t)
	h.open(unitA)

	h.p.OpenPage(ToSpread(nil, 2))
	h.drain()
	h.events.reset()

	ch := h.p.OpenPage(ToSpread(nil, 0))
	h.drain()
	if err := result(t, ch); err != nil {
		t.Fatalf("request = %v", err)
	}
	want := []Event{changed(0, 3, unitA)}
	if got := h.events.all(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
	if px, _ := h.surface.last("offset"); px != 0 {
		t.Errorf("offset = %d, want 0", px)
	}
}

func TestOpenPage_Rejected(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"past last spread", ToSpread(nil, 3), ErrSpreadOutOfRange},
		{"negative spread", ToSpread(nil, -1), ErrSpreadOutOfRange},
		{"unknown element", ToElement(nil, "missing"), ErrTargetUnresolved},
		{"element outside content", ToElement(nil, "far"), ErrSpreadOutOfRange},
		{"unknown location", ToLocation(nil, "/4/99"), ErrTargetUnresolved},
		{"explicit current unit", ToSpread(&unitA, 5), ErrSpreadOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.open(unitA)

			ch := h.p.OpenPage(tt.req)
			h.drain()
			if err := result(t, ch); !errors.Is(err, tt.want) {
				t.Errorf("OpenPage() = %v, want %v", err, tt.want)
			}
			if len(h.events.all()) != 0 {
				t.Errorf("rejected request emitted %v", h.events.all())
			}
			if s := h.p.Snapshot().State.CurrentSpread; s != 0 {
				t.Errorf("current spread = %d, want 0", s)
			}
		})
	}
}

func TestOpenPage_ElementRoundTrip(t *testing.T) {
	h := newHarness(t)
	h.open(unitA)

	idx, err := h.resolver.SpreadForElement("end")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := result(t, h.drained(h.p.OpenPage(ToSpread(nil, idx)))); err != nil {
		t.Fatalf("OpenPage(spread) = %v", err)
	}
	if err := result(t, h.drained(h.p.OpenPage(ToElement(nil, "middle")))); err != nil {
		t.Fatalf("OpenPage(element) = %v", err)
	}
	if err := result(t, h.drained(h.p.OpenPage(ToLocation(nil, "/4/6")))); err != nil {
		t.Fatalf("OpenPage(location) = %v", err)
	}

	want := []Event{changed(idx, 3, unitA), changed(1, 3, unitA), changed(2, 3, unitA)}
	if got := h.events.all(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func (h *harness) drained(ch <-chan error) <-chan error {
	h.drain()
	return ch
}

func TestOpenPage_NoContent(t *testing.T) {
	h := newHarness(t)
	if err := result(t, h.drained(h.p.OpenPage(ToSpread(nil, 0)))); !errors.Is(err, ErrNoContent) {
		t.Errorf("OpenPage() = %v, want ErrNoContent", err)
	}
}

func TestLoadFailure_ReturnsToIdle(t *testing.T) {
	h := newHarness(t)
	h.open(unitA)
	h.p.OpenPage(ToSpread(nil, 2))
	h.drain()
	h.events.reset()

	ch := h.p.OpenPage(ToSpread(&unitB, 1))
	h.drain()
	h.complete(1, errBoom)

	snap := h.p.Snapshot()
	if snap.Status != StatusIdle || snap.Unit != nil || snap.State.CurrentSpread != 0 || snap.State.SpreadCount != 0 {
		t.Errorf("snapshot after failure = %+v", snap)
	}
	err := result(t, ch)
	if !errors.Is(err, ErrContentLoadFailed) || !errors.Is(err, errBoom) {
		t.Errorf("deferred request = %v, want load failure", err)
	}
	events := h.events.all()
	if len(events) != 1 {
		t.Fatalf("events = %v, want single failure", events)
	}
	failed, ok := events[0].(ContentLoadFailed)
	if !ok || failed.Unit != unitB || !errors.Is(failed.Err, errBoom) {
		t.Errorf("event = %#v", events[0])
	}
	if h.settle() != 0 {
		t.Error("failed load must not schedule measurement")
	}

	// nothing is deferred any more
	h.p.OpenUnit(unitA)
	h.drain()
	h.complete(2, nil)
	h.settle()
	if s := h.p.Snapshot().State.CurrentSpread; s != 0 {
		t.Errorf("current spread = %d, want 0", s)
	}
}

func TestLoadFailure_SupersededLoadIsSilent(t *testing.T) {
	h := newHarness(t)

	h.p.OpenUnit(unitA)
	h.drain()
	h.p.OpenUnit(unitB)
	h.drain()
	h.complete(0, errBoom)

	if h.loader.count() != 2 || h.loader.call(1).unit != unitB {
		t.Fatalf("expected chained load of %v", unitB)
	}
	h.complete(1, nil)
	h.settle()

	want := []Event{changed(0, 3, unitB)}
	if got := h.events.all(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestOpenUnit_ReturningToInFlightUnitDropsDeferred(t *testing.T) {
	h := newHarness(t)

	h.p.OpenUnit(unitA)
	h.drain()
	ch := h.p.OpenPage(ToSpread(&unitB, 1))
	h.drain()
	h.p.OpenUnit(unitA)
	h.drain()

	if err := result(t, ch); !errors.Is(err, ErrSuperseded) {
		t.Errorf("deferred request = %v, want ErrSuperseded", err)
	}
	h.complete(0, nil)
	h.settle()
	if h.loader.count() != 1 {
		t.Errorf("loads = %d, want 1", h.loader.count())
	}
	want := []Event{changed(0, 3, unitA)}
	if got := h.events.all(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestMountFailure(t *testing.T) {
	h := newHarness(t)
	h.surface.mountErr = errBoom

	h.p.OpenUnit(unitA)
	h.drain()
	h.complete(0, nil)

	if st := h.p.Snapshot().Status; st != StatusIdle {
		t.Errorf("status = %v, want idle", st)
	}
	events := h.events.all()
	if len(events) != 1 {
		t.Fatalf("events = %v", events)
	}
	if e, ok := events[0].(ContentLoadFailed); !ok || !errors.Is(e.Err, ErrContentLoadFailed) {
		t.Errorf("event = %#v", events[0])
	}
}

func TestAdvance_Boundaries(t *testing.T) {
	h := newHarness(t)
	h.open(unitA)

	steps := []struct {
		move func()
		want []Event
	}{
		{h.p.Prev, nil},
		{h.p.Next, []Event{changed(1, 3, unitA)}},
		{h.p.Next, []Event{changed(2, 3, unitA)}},
		{h.p.Next, nil},
		{h.p.Prev, []Event{changed(1, 3, unitA)}},
		{func() { h.p.Advance(-5) }, []Event{changed(0, 3, unitA)}},
		{func() { h.p.Advance(10) }, []Event{changed(2, 3, unitA)}},
		{func() { h.p.Advance(0) }, nil},
	}
	for i, s := range steps {
		h.events.reset()
		s.move()
		h.drain()
		if got := h.events.all(); !reflect.DeepEqual(got, s.want) {
			t.Errorf("step %d: events = %v, want %v", i, got, s.want)
		}
	}
}

func TestAdvance_IgnoredWhileLoading(t *testing.T) {
	h := newHarness(t)
	h.p.OpenUnit(unitA)
	h.p.Next()
	h.drain()
	if len(h.events.all()) != 0 {
		t.Errorf("events = %v", h.events.all())
	}
}

func TestViewportResize(t *testing.T) {
	h := newHarness(t)
	h.open(unitA)
	h.p.OpenPage(ToSpread(nil, 2))
	h.drain()
	h.events.reset()

	// same size, nothing to do
	h.p.ViewportResized()
	h.drain()
	if len(h.clock.timers) != 1 {
		t.Fatalf("no-op resize armed settle timer")
	}

	h.viewport.set(1500, 700)
	h.surface.extent = 1520
	h.p.ViewportResized()
	h.drain()

	if st := h.p.Snapshot().Status; st != StatusSettlingLayout {
		t.Errorf("status = %v, want settling-layout", st)
	}
	if px, _ := h.surface.last("column-width"); px != 740 {
		t.Errorf("column width = %d, want 740", px)
	}
	if px, _ := h.surface.last("width"); px != 1500 {
		t.Errorf("width = %d, want 1500", px)
	}

	h.settle()
	want := []Event{changed(0, 1, unitA)}
	if got := h.events.all(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestViewportResize_DuringSettlingRestartsMeasurement(t *testing.T) {
	h := newHarness(t)
	h.p.OpenUnit(unitA)
	h.drain()
	h.complete(0, nil)

	h.viewport.set(1500, 700)
	h.p.ViewportResized()
	h.drain()

	if len(h.clock.timers) != 2 || !h.clock.timers[0].stopped {
		t.Fatalf("expected first settle timer stopped and a new one armed")
	}

	// timer callback which lost the race to Stop
	h.clock.timers[0].fn()
	h.drain()
	if len(h.events.all()) != 0 {
		t.Fatalf("stale settle emitted %v", h.events.all())
	}

	h.settle()
	want := []Event{changed(0, 2, unitA)}
	if got := h.events.all(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestViewportResize_WhileLoading(t *testing.T) {
	h := newHarness(t)
	h.p.OpenUnit(unitA)
	h.drain()

	h.viewport.set(1500, 700)
	h.p.ViewportResized()
	h.drain()
	if len(h.clock.timers) != 0 {
		t.Fatal("resize while loading must not schedule measurement")
	}

	h.complete(0, nil)
	h.settle()
	if w := h.p.Snapshot().State.ColumnWidth; w != 740 {
		t.Errorf("column width = %d, want 740", w)
	}
}

func TestNothingVisible(t *testing.T) {
	h := newHarness(t)
	h.surface.extent = 0

	h.p.OpenUnit(unitA)
	h.drain()
	h.complete(0, nil)
	h.settle()

	want := []Event{changed(0, 0, unitA)}
	if got := h.events.all(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
	if _, ok := h.surface.last("offset"); ok {
		t.Error("nothing visible must not be rendered")
	}
}

func TestInfo(t *testing.T) {
	h := newHarness(t)

	info := h.p.Info()
	if info.UnitCount != 3 || len(info.OpenPages) != 0 {
		t.Errorf("idle info = %+v", info)
	}

	h.surface.extent = 2530
	h.open(unitB)

	want := []OpenPage{{Index: 0, Count: 5, UnitRef: "b", UnitIndex: 1}, {Index: 1, Count: 5, UnitRef: "b", UnitIndex: 1}}
	if got := h.p.Info().OpenPages; !reflect.DeepEqual(got, want) {
		t.Errorf("open pages = %+v, want %+v", got, want)
	}

	h.p.OpenPage(ToSpread(nil, 2))
	h.drain()
	want = []OpenPage{{Index: 4, Count: 5, UnitRef: "b", UnitIndex: 1}}
	if got := h.p.Info().OpenPages; !reflect.DeepEqual(got, want) {
		t.Errorf("open pages = %+v, want %+v", got, want)
	}
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	h := newHarness(t)
	extra := &recorder{}
	cancel := h.p.Subscribe(extra)

	h.open(unitA)
	if len(extra.all()) != 1 {
		t.Fatalf("extra listener events = %v", extra.all())
	}
	cancel()
	cancel()

	h.p.Next()
	h.drain()
	if len(extra.all()) != 1 {
		t.Errorf("unsubscribed listener still receives events")
	}
	if len(h.events.all()) != 1 {
		t.Errorf("remaining listener events = %v", h.events.all())
	}
}

func TestNew_Validation(t *testing.T) {
	log := setupTestLogger(t)
	deps := Deps{Surface: &fakeSurface{}, Viewport: &fakeViewport{}, Loader: &fakeLoader{}}

	if _, err := New(Config{VisibleColumnCount: 0}, deps, log); err == nil {
		t.Error("expected error for zero visible columns")
	}
	if _, err := New(Config{VisibleColumnCount: 1, ColumnGap: -1}, deps, log); err == nil {
		t.Error("expected error for negative gap")
	}
	if _, err := New(DefaultConfig(), Deps{Surface: &fakeSurface{}}, log); err == nil {
		t.Error("expected error for missing collaborators")
	}
	p, err := New(Config{VisibleColumnCount: 1, SettleDelay: time.Millisecond}, deps, log)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	if p.ID() == "" {
		t.Error("paginator has no id")
	}
}

func TestAdvance_WhileResizeSettles(t *testing.T) {
	h := newHarness(t)
	h.open(unitA)

	h.viewport.set(1001, 700)
	h.p.ViewportResized()
	h.p.Next()
	h.drain()

	if len(h.events.all()) != 0 {
		t.Fatalf("events before settle = %v", h.events.all())
	}
	// pre-positioned against new column width
	if px, _ := h.surface.last("offset"); px != -1020 {
		t.Errorf("offset = %d, want -1020", px)
	}

	h.settle()
	want := []Event{changed(1, 3, unitA)}
	if got := h.events.all(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}

	// move past the end of previous layout is clamped by settle
	h.events.reset()
	h.viewport.set(2000, 700)
	h.surface.extent = 1990
	h.p.ViewportResized()
	h.p.Next()
	h.drain()
	h.settle()
	want = []Event{changed(0, 1, unitA)}
	if got := h.events.all(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestMount_RunsOffLoop(t *testing.T) {
	h := newHarness(t)
	h.hold = true

	h.p.OpenUnit(unitA)
	h.drain()
	h.complete(0, nil)

	if h.surface.mounted != 0 || len(h.held) != 1 {
		t.Fatalf("mount ran on the loop: mounted %d, held %d", h.surface.mounted, len(h.held))
	}
	if st := h.p.Snapshot().Status; st != StatusLoading {
		t.Errorf("status while mounting = %v, want loading", st)
	}

	// loop keeps serving requests while mount is pending
	res := h.p.OpenPage(ToSpread(nil, 1))
	h.drain()
	noResult(t, res)

	h.release()
	if h.surface.mounted != 1 {
		t.Errorf("mounted = %d, want 1", h.surface.mounted)
	}
	h.settle()
	if err := result(t, res); err != nil {
		t.Errorf("deferred request = %v", err)
	}
	want := []Event{changed(1, 3, unitA)}
	if got := h.events.all(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestMount_SupersededWhileMounting(t *testing.T) {
	h := newHarness(t)
	h.hold = true

	h.p.OpenUnit(unitA)
	h.drain()
	h.complete(0, nil)

	h.p.OpenUnit(unitB)
	h.drain()
	if h.loader.count() != 1 {
		t.Fatalf("loads = %d, want 1 while mount is pending", h.loader.count())
	}

	h.release()
	if h.loader.count() != 2 || h.loader.call(1).unit != unitB {
		t.Fatalf("expected chained load of b, loads = %d", h.loader.count())
	}
	h.complete(1, nil)
	h.settle()
	want := []Event{changed(0, 3, unitB)}
	if got := h.events.all(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}
