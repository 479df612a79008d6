// Package chromium is the rendering host of the paginator: a headless
// Chromium tab driven over the DevTools protocol. Host implements
// paginate.Surface and paginate.Viewport, Loader and Resolver complete the
// set of collaborators.
package chromium

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/beevik/etree"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"rflow/css"
	"rflow/paginate"
)

// Source provides files and parsed content documents of a work.
type Source interface {
	ReadFile(name string) ([]byte, error)
	Document(u paginate.ContentUnit) (*etree.Document, error)
}

// Options configure browser and tab.
type Options struct {
	// ExecPath of the browser, empty - let chromedp find one.
	ExecPath string
	Headless bool
	// Args are extra command line flags, "name" or "name=value".
	Args        []string
	Width       int
	Height      int
	LoadTimeout time.Duration
	// Stylesheet is user stylesheet added to every mounted document.
	Stylesheet []byte
}

// Host owns browser process, the tab and the local server content is loaded
// from.
type Host struct {
	id   string
	log  *zap.Logger
	opts Options
	src  Source
	css  *css.Sanitizer

	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc

	srv   *http.Server
	base  string
	files *fileServer

	mu      sync.Mutex
	size    paginate.Size
	unit    paginate.ContentUnit
	doc     *etree.Document
	mounted []byte
	// tree of mounted document, the one browser's layout is built from
	page    *etree.Document
	offset  int
}

var (
	_ paginate.Surface  = (*Host)(nil)
	_ paginate.Viewport = (*Host)(nil)
)

// Start launches browser and opens a tab of the requested size.
func Start(ctx context.Context, src Source, opts Options, log *zap.Logger) (*Host, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("bad viewport %dx%d", opts.Width, opts.Height)
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	h := &Host{
		id:   uuid.NewString(),
		opts: opts,
		src:  src,
		size: paginate.Size{Width: opts.Width, Height: opts.Height},
	}
	h.log = log.Named("chromium").With(zap.String("host", h.id))
	h.css = css.NewSanitizer(log)

	var userCSS []byte
	if len(opts.Stylesheet) > 0 {
		userCSS, _ = h.css.Sanitize(opts.Stylesheet, "user stylesheet")
	}
	h.files = newFileServer(src, userCSS, h.log)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("unable to start content server: %w", err)
	}
	h.base = "http://" + l.Addr().String()
	h.srv = &http.Server{Handler: h.files, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := h.srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.log.Warn("Content server stopped", zap.Error(err))
		}
	}()

	h.allocCtx, h.allocCancel = chromedp.NewExecAllocator(ctx, execOptions(opts)...)
	h.ctx, h.cancel = chromedp.NewContext(h.allocCtx,
		chromedp.WithLogf(h.log.Sugar().Debugf),
		chromedp.WithErrorf(h.log.Sugar().Warnf))

	// browser lifetime is bound to the context of the first Run
	if err := chromedp.Run(h.ctx); err != nil {
		return nil, multierr.Append(fmt.Errorf("unable to start browser: %w", err), h.Close())
	}
	if err := h.run(h.emulate(opts.Width, opts.Height)); err != nil {
		return nil, multierr.Append(fmt.Errorf("unable to set viewport: %w", err), h.Close())
	}

	h.log.Debug("Rendering host started", zap.String("server", h.base), zap.Int("width", opts.Width), zap.Int("height", opts.Height))
	return h, nil
}

// execOptions builds allocator options.
func execOptions(opts Options) []chromedp.ExecAllocatorOption {
	eo := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("mute-audio", true),
		chromedp.WindowSize(opts.Width, opts.Height),
	}
	if opts.Headless {
		eo = append(eo, chromedp.Headless)
	}
	if len(opts.ExecPath) > 0 {
		eo = append(eo, chromedp.ExecPath(opts.ExecPath))
	}
	for _, arg := range opts.Args {
		key, value, found := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if found {
			eo = append(eo, chromedp.Flag(key, value))
		} else {
			eo = append(eo, chromedp.Flag(key, true))
		}
	}
	return eo
}

func (h *Host) emulate(w, ht int) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		return emulation.SetDeviceMetricsOverride(int64(w), int64(ht), 1.0, false).Do(ctx)
	})
}

// ID returns host identifier used in logs.
func (h *Host) ID() string {
	return h.id
}

// Close stops browser and content server.
func (h *Host) Close() error {
	var err error
	if h.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = multierr.Append(err, h.srv.Shutdown(ctx))
		cancel()
	}
	if h.ctx != nil {
		if cerr := chromedp.Cancel(h.ctx); cerr != nil && !errors.Is(cerr, context.Canceled) {
			err = multierr.Append(err, cerr)
		}
		h.cancel()
	}
	if h.allocCancel != nil {
		h.allocCancel()
	}
	return err
}

// run executes actions in the tab limited by load timeout.
func (h *Host) run(actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(h.ctx, h.opts.LoadTimeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

func (h *Host) eval(script string, res any) error {
	return h.run(chromedp.Evaluate(script, res))
}

// Size implements paginate.Viewport.
func (h *Host) Size() (paginate.Size, error) {
	var wh []int
	if err := h.eval(`[window.innerWidth, window.innerHeight]`, &wh); err != nil {
		return paginate.Size{}, fmt.Errorf("unable to read viewport: %w", err)
	}
	if len(wh) != 2 {
		return paginate.Size{}, fmt.Errorf("unexpected viewport value %v", wh)
	}
	sz := paginate.Size{Width: wh[0], Height: wh[1]}
	h.mu.Lock()
	h.size = sz
	h.mu.Unlock()
	return sz, nil
}

// Resize changes emulated display size. Paginator has to be notified with
// ViewportResized afterwards.
func (h *Host) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("bad viewport %dx%d", width, height)
	}
	if err := h.run(h.emulate(width, height)); err != nil {
		return fmt.Errorf("unable to resize viewport: %w", err)
	}
	h.mu.Lock()
	h.size = paginate.Size{Width: width, Height: height}
	loaded := h.mounted != nil
	h.mu.Unlock()
	if loaded {
		return h.style("height", px(height))
	}
	return nil
}
