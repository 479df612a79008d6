// Package session binds a work, a rendering host and a paginator into a
// single running view.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"rflow/book"
	"rflow/chromium"
	"rflow/config"
	"rflow/paginate"
	"rflow/switches"
)

// ErrFixedLayout is returned for pre-paginated works, they are not reflowed.
var ErrFixedLayout = errors.New("fixed layout work cannot be paginated")

// Options configure a session.
type Options struct {
	Pagination paginate.Config
	Renderer   chromium.Options
	Namespaces []string
}

// OptionsFromConfig builds session options from program configuration.
func OptionsFromConfig(cfg *config.Config, userCSS []byte) Options {
	rc := cfg.Renderer
	return Options{
		Pagination: cfg.Pagination.Paginator(),
		Renderer: chromium.Options{
			ExecPath:    rc.Browser(),
			Headless:    rc.Headless,
			Args:        rc.Args,
			Width:       rc.Width,
			Height:      rc.Height,
			LoadTimeout: rc.LoadTimeout,
			Stylesheet:  userCSS,
		},
		Namespaces: cfg.Switches.SupportedNamespaces,
	}
}

// Session is a running view of a single work.
type Session struct {
	Work  *book.Book
	Host  *chromium.Host
	Pager *paginate.Paginator

	log    *zap.Logger
	cancel context.CancelFunc
	done   chan error
}

// Start opens the work, launches rendering host and starts paginator loop.
func Start(ctx context.Context, path string, opts Options, log *zap.Logger) (*Session, error) {
	if log == nil {
		log = zap.NewNop()
	}

	b, err := book.Open(path, log)
	if err != nil {
		return nil, err
	}
	if b.FixedLayout() {
		return nil, multierr.Append(fmt.Errorf("%s: %w", path, ErrFixedLayout), b.Close())
	}

	h, err := chromium.Start(ctx, b, opts.Renderer, log)
	if err != nil {
		return nil, multierr.Append(err, b.Close())
	}

	p, err := paginate.New(opts.Pagination, paginate.Deps{
		Work:     b,
		Surface:  h,
		Viewport: h,
		Loader:   h.Loader(),
		Resolver: h.NewResolver,
		Switches: switches.New(opts.Namespaces, log),
	}, log)
	if err != nil {
		return nil, multierr.Combine(err, h.Close(), b.Close())
	}

	s := &Session{Work: b, Host: h, Pager: p, log: log.Named("session"), done: make(chan error, 1)}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go func() { s.done <- p.Run(runCtx) }()

	s.log.Debug("Session started", zap.String("work", b.Title), zap.Stringer("format", b.Format),
		zap.Int("units", b.Len()), zap.String("view", p.ID()), zap.String("host", h.ID()))
	return s, nil
}

// Close stops paginator loop and releases rendering host and the work.
func (s *Session) Close() error {
	s.cancel()
	err := <-s.done
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return multierr.Combine(err, s.Host.Close(), s.Work.Close())
}

// Watch subscribes to paginator events and delivers them into a buffered
// channel. After stop is called pending deliveries are dropped, the channel
// is never closed.
func Watch(p *paginate.Paginator, size int) (<-chan paginate.Event, func()) {
	var (
		ch   = make(chan paginate.Event, size)
		done = make(chan struct{})
		once sync.Once
	)
	unsubscribe := p.Subscribe(paginate.ListenerFunc(func(e paginate.Event) {
		select {
		case ch <- e:
		case <-done:
		}
	}))
	return ch, func() {
		once.Do(func() {
			unsubscribe()
			close(done)
		})
	}
}
