package chromium

import (
	"mime"
	"net/http"
	"path"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var contentTypes = map[string]string{
	".xhtml": "application/xhtml+xml",
	".html":  "application/xhtml+xml",
	".htm":   "application/xhtml+xml",
	".css":   "text/css; charset=utf-8",
	".svg":   "image/svg+xml",
	".otf":   "font/otf",
	".ttf":   "font/ttf",
	".woff":  "font/woff",
	".woff2": "font/woff2",
}

// fileServer serves work files to the browser. Mounted documents override
// files with the same location.
type fileServer struct {
	src     Source
	userCSS []byte
	log     *zap.Logger

	mu      sync.Mutex
	mounted map[string][]byte
}

func newFileServer(src Source, userCSS []byte, log *zap.Logger) *fileServer {
	return &fileServer{src: src, userCSS: userCSS, log: log, mounted: make(map[string][]byte)}
}

func (f *fileServer) hasUserCSS() bool {
	return len(f.userCSS) > 0
}

// mount replaces content served for name. Only the most recent document is
// kept.
func (f *fileServer) mount(name string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	clear(f.mounted)
	f.mounted[name] = data
}

func (f *fileServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")

	var (
		data []byte
		err  error
	)
	f.mu.Lock()
	data, mounted := f.mounted[name]
	f.mu.Unlock()

	switch {
	case name == userStylesheet:
		data = f.userCSS
	case mounted:
	default:
		if data, err = f.src.ReadFile(name); err != nil {
			f.log.Debug("Resource not found", zap.String("name", name), zap.Error(err))
			http.NotFound(w, r)
			return
		}
	}

	w.Header().Set("Content-Type", contentType(name))
	w.Header().Set("Cache-Control", "no-store")
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(data); err != nil {
		f.log.Debug("Unable to send resource", zap.String("name", name), zap.Error(err))
	}
}

func contentType(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); len(ct) > 0 {
		return ct
	}
	return "application/octet-stream"
}
