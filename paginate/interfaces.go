package paginate

import (
	"context"
	"time"

	"github.com/beevik/etree"
)

// ContentUnit is a single document of a larger work (spine item). Units are
// identified by Ref, Href and Index are informational.
type ContentUnit struct {
	Ref   string
	Href  string
	Index int
}

// Same reports whether both values refer to the same content unit.
func (u ContentUnit) Same(o ContentUnit) bool {
	return u.Ref == o.Ref
}

// Size is a viewport size in layout units (CSS pixels).
type Size struct {
	Width  int
	Height int
}

// Work is the manifest content units belong to.
type Work interface {
	Len() int
	FixedLayout() bool
}

// Loader brings content unit into a rendering surface. Implementations must
// call done exactly once per Load call, from any goroutine, synchronously or
// not. Nil error means success.
type Loader interface {
	Load(ctx context.Context, s Surface, unit ContentUnit, done func(error))
}

// Surface is the rendering host side of a view. It holds loaded content tree
// and accepts column axis geometry commands. Only the rendering host knows
// true layout, MeasuredExtent reads it back.
type Surface interface {
	// Document returns content tree of the loaded unit, nil when nothing is
	// loaded. Tree may be modified before Mount.
	Document() *etree.Document
	// Mount pushes (possibly modified) content tree into rendering host.
	Mount() error
	SetWidth(px int) error
	SetColumnWidth(px int) error
	SetColumnGap(px int) error
	SetOffset(px int) error
	MeasuredExtent() (int, error)
}

// Viewport reports available display area.
type Viewport interface {
	Size() (Size, error)
}

// Resolver maps logical content positions to spreads and back. Methods are
// only called on the paginator loop and should return ErrTargetUnresolved
// (possibly wrapped) when position cannot be found.
type Resolver interface {
	SpreadForElement(id string) (int, error)
	SpreadForFingerprint(fp string) (int, error)
	FirstVisibleFingerprint() (string, error)
}

// ResolverFactory constructs resolver bound to live pagination state.
type ResolverFactory func(*State) Resolver

// Timer is a stoppable scheduled call.
type Timer interface {
	Stop() bool
}

// Clock schedules delayed calls, real implementation uses time.AfterFunc.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
