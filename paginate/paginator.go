package paginate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rflow/switches"
)

// Deps are collaborators of a Paginator. Surface, Viewport and Loader are
// required.
type Deps struct {
	Work     Work
	Surface  Surface
	Viewport Viewport
	Loader   Loader
	Resolver ResolverFactory
	Switches *switches.Filter
	// Clock defaults to wall clock.
	Clock Clock
	// Loop defaults to a new loop, which has to be driven by Run.
	Loop *Loop
	// Spawn runs switch filtering and surface mounting off the loop,
	// defaults to a new goroutine.
	Spawn func(func())
}

// Snapshot is a consistent copy of paginator state.
type Snapshot struct {
	State    State
	Status   Status
	Unit     *ContentUnit
	Viewport Size
}

// Paginator is the pagination state machine of a single view. Its exported
// methods may be called from any goroutine, all work happens on the loop.
type Paginator struct {
	id       string
	log      *zap.Logger
	ctx      context.Context
	loop     *Loop
	work     Work
	surface  Surface
	loader   Loader
	switches *switches.Filter
	resolver Resolver
	tracker  *ViewportTracker
	layout   layoutReader
	offset   offsetApplier
	spawn    func(func())

	listeners listeners

	// owned by loop
	state     State
	status    Status
	unit      *ContentUnit
	kicked    bool
	inFlight  bool
	loadGen   uint64
	layoutGen uint64
	deferred  *pending

	mu   sync.Mutex
	snap Snapshot
}

// New creates paginator in Idle status.
func New(cfg Config, deps Deps, log *zap.Logger) (*Paginator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pagination configuration: %w", err)
	}
	if deps.Surface == nil || deps.Viewport == nil || deps.Loader == nil {
		return nil, errors.New("paginator requires surface, viewport and loader")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = realClock{}
	}
	if deps.Loop == nil {
		deps.Loop = NewLoop()
	}
	if deps.Spawn == nil {
		deps.Spawn = func(f func()) { go f() }
	}

	p := &Paginator{
		id:       uuid.NewString(),
		ctx:      context.Background(),
		loop:     deps.Loop,
		work:     deps.Work,
		surface:  deps.Surface,
		loader:   deps.Loader,
		switches: deps.Switches,
		spawn:    deps.Spawn,
		tracker:  NewViewportTracker(deps.Viewport),
		state: State{
			VisibleColumnCount: cfg.VisibleColumnCount,
			ColumnGap:          cfg.ColumnGap,
		},
	}
	p.log = log.Named("paginate").With(zap.String("view", p.id))
	p.layout = layoutReader{surface: deps.Surface, clock: deps.Clock, delay: cfg.SettleDelay, log: p.log}
	p.offset = offsetApplier{surface: deps.Surface, log: p.log}
	if deps.Resolver != nil {
		p.resolver = deps.Resolver(&p.state)
	}
	p.publish()
	return p, nil
}

// ID returns unique identifier of the view.
func (p *Paginator) ID() string {
	return p.id
}

// Run drives paginator loop until context is done. Loader calls receive
// this context.
func (p *Paginator) Run(ctx context.Context) error {
	p.ctx = ctx
	defer p.layout.cancel()
	return p.loop.Run(ctx)
}

// Subscribe registers listener, returned function removes it.
func (p *Paginator) Subscribe(l Listener) func() {
	return p.listeners.add(l)
}

// Snapshot returns copy of the state as of the last completed step.
func (p *Paginator) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.snap
	if s.Unit != nil {
		u := *s.Unit
		s.Unit = &u
	}
	return s
}

// Info returns projection of currently visible pages.
func (p *Paginator) Info() PagesInfo {
	s := p.Snapshot()
	return project(s.State, s.Unit, p.work)
}

// OpenUnit requests content unit to become active. Requesting currently
// active unit is a no-op.
func (p *Paginator) OpenUnit(unit ContentUnit) {
	p.exec(func() { p.openUnit(unit) })
}

// OpenPage requests navigation. Returned channel receives exactly one value:
// nil when request was applied or an error explaining why it was dropped.
func (p *Paginator) OpenPage(req Request) <-chan error {
	pd := newPending(req)
	ch := pd.result
	p.exec(func() { p.openPage(pd) })
	return ch
}

// Next moves to the next spread, no-op on the last one.
func (p *Paginator) Next() { p.Advance(1) }

// Prev moves to the previous spread, no-op on the first one.
func (p *Paginator) Prev() { p.Advance(-1) }

// Advance moves current spread by delta clamping at content boundaries.
func (p *Paginator) Advance(delta int) {
	p.exec(func() { p.advance(delta) })
}

// ViewportResized notifies paginator that display area may have changed.
func (p *Paginator) ViewportResized() {
	p.exec(p.viewportResized)
}

// SpreadForElement resolves element id in the active unit. Loop must be running.
func (p *Paginator) SpreadForElement(ctx context.Context, id string) (int, error) {
	return call(ctx, p.loop, func() (int, error) { return p.resolveReady(Element{ID: id}) })
}

// SpreadForFingerprint resolves location fingerprint in the active unit. Loop
// must be running.
func (p *Paginator) SpreadForFingerprint(ctx context.Context, fp string) (int, error) {
	return call(ctx, p.loop, func() (int, error) { return p.resolveReady(Location{Fingerprint: fp}) })
}

// FirstVisibleFingerprint returns fingerprint of the first visible position.
// Loop must be running.
func (p *Paginator) FirstVisibleFingerprint(ctx context.Context) (string, error) {
	return call(ctx, p.loop, func() (string, error) {
		if p.status != StatusReady || p.resolver == nil {
			return "", ErrNoContent
		}
		return p.resolver.FirstVisibleFingerprint()
	})
}

func (p *Paginator) exec(step func()) {
	p.loop.Post(func() {
		step()
		p.publish()
	})
}

func (p *Paginator) publish() {
	s := Snapshot{State: p.state, Status: p.status, Viewport: p.tracker.Last()}
	if p.unit != nil {
		u := *p.unit
		s.Unit = &u
	}
	p.mu.Lock()
	p.snap = s
	p.mu.Unlock()
}

func (p *Paginator) openUnit(u ContentUnit) {
	if p.inFlight {
		// load in flight completes first, then the most recently requested
		// unit is loaded
		if sameUnit(p.unit, u) {
			if d := p.deferred; d != nil && !sameUnit(d.Unit, u) {
				p.deferred = nil
				d.reply(ErrSuperseded)
			}
			return
		}
		if d := p.deferred; d != nil && sameUnit(d.Unit, u) {
			return
		}
		p.log.Debug("Load in flight, deferring content unit", zap.String("unit", u.Ref))
		p.deferRequest(newPending(Request{Unit: &u}))
		return
	}
	if sameUnit(p.unit, u) {
		return
	}
	if d := p.deferred; d != nil && !sameUnit(d.Unit, u) {
		p.deferred = nil
		d.reply(ErrSuperseded)
	}

	p.unit = &u
	p.state.reset()
	p.status = StatusLoading
	p.loadGen++
	p.layoutGen++
	p.layout.cancel()

	// load starts on the next loop turn, requests arriving before that only
	// replace the target
	if !p.kicked {
		p.kicked = true
		p.loop.Post(func() {
			p.startLoad()
			p.publish()
		})
	}
}

func (p *Paginator) startLoad() {
	p.kicked = false
	if p.unit == nil || p.inFlight || p.status != StatusLoading {
		return
	}
	unit, gen := *p.unit, p.loadGen
	p.inFlight = true

	p.log.Debug("Loading content unit", zap.String("unit", unit.Ref), zap.Int("index", unit.Index))

	var once sync.Once
	p.loader.Load(p.ctx, p.surface, unit, func(err error) {
		once.Do(func() {
			p.exec(func() { p.loaded(gen, unit, err) })
		})
	})
}

func (p *Paginator) loaded(gen uint64, unit ContentUnit, err error) {
	if gen != p.loadGen {
		p.log.Debug("Discarding stale load completion", zap.String("unit", unit.Ref))
		return
	}
	if p.chained(unit, err) {
		return
	}
	if err != nil {
		p.inFlight = false
		p.fail(unit, err)
		return
	}

	// mounting navigates rendering host and may take long, load stays in
	// flight until it completes
	surface, filter := p.surface, p.switches
	p.spawn(func() {
		if doc := surface.Document(); doc != nil && filter != nil {
			filter.Apply(doc)
		}
		err := surface.Mount()
		p.exec(func() { p.mounted(gen, unit, err) })
	})
}

// chained loads deferred unit when it differs from the one which just
// completed, outcome of the completed step is not wanted anymore.
func (p *Paginator) chained(unit ContentUnit, err error) bool {
	d := p.deferred
	if d == nil || d.Unit == nil || d.Unit.Same(unit) {
		return false
	}
	if err != nil {
		p.log.Debug("Superseded content unit failed to load", zap.String("unit", unit.Ref), zap.Error(err))
	}
	p.inFlight = false
	p.openUnit(*d.Unit)
	return true
}

func (p *Paginator) mounted(gen uint64, unit ContentUnit, err error) {
	if gen != p.loadGen {
		p.log.Debug("Discarding stale mount completion", zap.String("unit", unit.Ref))
		return
	}
	if p.chained(unit, err) {
		return
	}
	p.inFlight = false
	if err != nil {
		p.fail(unit, fmt.Errorf("unable to mount content: %w", err))
		return
	}

	p.status = StatusSettlingLayout
	if _, _, err := p.tracker.Update(); err != nil {
		p.log.Warn("Unable to measure viewport", zap.Error(err))
	}
	p.relayout()
}

func (p *Paginator) fail(unit ContentUnit, cause error) {
	err := fmt.Errorf("%w: %s: %w", ErrContentLoadFailed, unit.Ref, cause)

	p.status = StatusIdle
	p.unit = nil
	p.state.reset()
	p.layoutGen++
	p.layout.cancel()
	if d := p.deferred; d != nil {
		p.deferred = nil
		d.reply(err)
	}

	p.log.Warn("Unable to load content unit", zap.String("unit", unit.Ref), zap.Error(cause))
	p.publish()
	p.listeners.emit(ContentLoadFailed{Unit: unit, Err: err})
}

// relayout applies geometry for the last known viewport and schedules
// settle measurement. Measurements scheduled earlier become stale.
func (p *Paginator) relayout() {
	p.layout.apply(&p.state, p.tracker.Last().Width)
	p.offset.render(&p.state)

	p.layoutGen++
	gen := p.layoutGen
	p.layout.schedule(func() {
		p.exec(func() { p.settled(gen) })
	})
}

func (p *Paginator) settled(gen uint64) {
	if gen != p.layoutGen || p.status != StatusSettlingLayout {
		p.log.Debug("Discarding stale layout completion")
		return
	}
	p.layout.measure(&p.state)
	p.status = StatusReady

	if d := p.deferred; d != nil {
		p.deferred = nil
		p.replay(d)
	}
	p.commit()
}

func (p *Paginator) replay(d *pending) {
	if p.unit == nil || !sameUnit(d.Unit, *p.unit) {
		d.reply(ErrSuperseded)
		return
	}
	if d.Target == nil {
		d.reply(nil)
		return
	}
	idx, err := p.resolve(d.Target)
	if err != nil {
		p.log.Debug("Deferred navigation dropped", zap.Stringer("request", d.Request), zap.Error(err))
		d.reply(err)
		return
	}
	p.state.CurrentSpread = idx
	d.reply(nil)
}

func (p *Paginator) openPage(pd *pending) {
	if pd.Unit != nil && !sameUnit(p.unit, *pd.Unit) {
		p.openUnit(*pd.Unit)
		p.deferRequest(pd)
		return
	}
	if p.status.busy() {
		p.deferRequest(pd)
		return
	}
	if p.status != StatusReady || p.unit == nil {
		pd.reply(ErrNoContent)
		return
	}
	if pd.Target == nil {
		pd.reply(nil)
		return
	}
	idx, err := p.resolve(pd.Target)
	if err != nil {
		p.log.Debug("Navigation dropped", zap.Stringer("request", pd.Request), zap.Error(err))
		pd.reply(err)
		return
	}
	p.state.CurrentSpread = idx
	p.commit()
	pd.reply(nil)
}

// deferRequest stores request as the single deferred one, older request is
// superseded. Request without unit is bound to the active unit.
func (p *Paginator) deferRequest(pd *pending) {
	if pd.Unit == nil && p.unit != nil {
		u := *p.unit
		pd.Unit = &u
	}
	if old := p.deferred; old != nil && old != pd {
		old.reply(ErrSuperseded)
	}
	p.deferred = pd
	p.log.Debug("Navigation deferred", zap.Stringer("request", pd.Request), zap.Stringer("status", p.status))
}

func (p *Paginator) resolveReady(t Target) (int, error) {
	if p.status != StatusReady {
		return -1, ErrNoContent
	}
	return p.resolve(t)
}

// resolve maps target to spread index within laid out content.
func (p *Paginator) resolve(t Target) (int, error) {
	var (
		idx int
		err error
	)
	switch t := t.(type) {
	case Spread:
		idx = t.Index
	case Element:
		if p.resolver == nil {
			return -1, ErrTargetUnresolved
		}
		idx, err = p.resolver.SpreadForElement(t.ID)
	case Location:
		if p.resolver == nil {
			return -1, ErrTargetUnresolved
		}
		idx, err = p.resolver.SpreadForFingerprint(t.Fingerprint)
	default:
		return -1, fmt.Errorf("%w: unknown target %T", ErrTargetUnresolved, t)
	}
	if err != nil {
		if !errors.Is(err, ErrTargetUnresolved) {
			err = fmt.Errorf("%w: %s: %w", ErrTargetUnresolved, t, err)
		}
		return -1, err
	}
	if idx < 0 || idx >= p.state.SpreadCount {
		return -1, fmt.Errorf("%w: %d not in [0, %d)", ErrSpreadOutOfRange, idx, p.state.SpreadCount)
	}
	return idx, nil
}

// advance moves current spread. While relayout settles the move is made
// against previous layout, settle clamps it and emits the event.
func (p *Paginator) advance(delta int) {
	if p.state.SpreadCount == 0 {
		return
	}
	if p.status != StatusReady && p.status != StatusSettlingLayout {
		return
	}
	next := min(max(p.state.CurrentSpread+delta, 0), p.state.SpreadCount-1)
	if next == p.state.CurrentSpread {
		return
	}
	p.state.CurrentSpread = next
	if p.status == StatusSettlingLayout {
		p.offset.render(&p.state)
		return
	}
	p.commit()
}

func (p *Paginator) viewportResized() {
	size, changed, err := p.tracker.Update()
	if err != nil {
		p.log.Warn("Unable to measure viewport", zap.Error(err))
		return
	}
	if !changed {
		return
	}
	p.log.Debug("Viewport resized", zap.Int("width", size.Width), zap.Int("height", size.Height), zap.Stringer("status", p.status))

	switch p.status {
	case StatusSettlingLayout, StatusReady:
		p.status = StatusSettlingLayout
		p.relayout()
	default:
		// picked up by measurement after load completes
	}
}

// commit renders current spread and emits single pagination event.
func (p *Paginator) commit() {
	var unit ContentUnit
	if p.unit != nil {
		unit = *p.unit
	}
	p.publish()

	if !p.offset.render(&p.state) {
		p.listeners.emit(PaginationChanged{Spread: 0, Spreads: 0, Unit: unit})
		return
	}
	p.listeners.emit(PaginationChanged{Spread: p.state.CurrentSpread, Spreads: p.state.SpreadCount, Unit: unit})
}

func sameUnit(a *ContentUnit, b ContentUnit) bool {
	return a != nil && a.Same(b)
}
