package config

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	fixzip "github.com/hidez8891/zip"
	"github.com/maruel/natural"
	"go.uber.org/multierr"
	yaml "gopkg.in/yaml.v3"

	"rflow/misc"
)

// ManifestName is the archive entry describing report content.
const ManifestName = "MANIFEST.yaml"

type ReporterConfig struct {
	Destination string `yaml:"destination" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required,filepath"`
}

// Prepare creates empty report, falls back to temporary file when
// destination cannot be created.
func (conf *ReporterConfig) Prepare() (*Report, error) {
	f, err := os.Create(conf.Destination)
	if err != nil {
		if f, err = os.CreateTemp("", misc.GetAppName()+"-report.*.zip"); err != nil {
			return nil, fmt.Errorf("unable to create report: %w", err)
		}
	}
	return &Report{entries: make(map[string]entry), file: f}, nil
}

type entry struct {
	source string // absolute path on disk, empty for data entries
	stamp  time.Time
	data   []byte
}

// ManifestEntry is a single record of report manifest.
type ManifestEntry struct {
	Name    string    `yaml:"name"`
	Source  string    `yaml:"source,omitempty"`
	Size    int       `yaml:"size,omitempty"`
	Stamp   time.Time `yaml:"stamp"`
	Missing bool      `yaml:"missing,omitempty"`
}

// Report collects files and data for debug archive. Safe for concurrent use,
// nil report ignores everything.
type Report struct {
	mu      sync.Mutex
	entries map[string]entry
	seq     int
	file    *os.File
}

// Close writes the archive.
func (r *Report) Close() (err error) {
	if r == nil || r.file == nil {
		return nil
	}
	defer func() { err = multierr.Append(err, r.file.Close()) }()

	r.mu.Lock()
	defer r.mu.Unlock()

	arc := fixzip.NewWriter(r.file)
	return multierr.Append(r.write(arc), arc.Close())
}

// Name returns absolute name of the archive.
func (r *Report) Name() string {
	if r == nil || r.file == nil {
		return ""
	}
	if n, err := filepath.Abs(r.file.Name()); err == nil {
		return n
	}
	return r.file.Name()
}

// Store adds file or directory to be archived on Close under name.
func (r *Report) Store(name, path string) {
	if r == nil {
		return
	}
	if p, err := filepath.Abs(path); err == nil {
		path = p
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, exists := r.entries[name]; exists && old.source != path {
		panic(fmt.Sprintf("report entry [%s] already points to %s, refusing %s", name, old.source, path))
	}
	r.entries[name] = entry{source: path}
}

// StoreData adds data to be archived under name. Repeated names get sequence
// suffix before extension.
func (r *Report) StoreData(name string, data []byte) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		ext := filepath.Ext(name)
		r.seq++
		name = fmt.Sprintf("%s-%d%s", name[:len(name)-len(ext)], r.seq, ext)
	}
	r.entries[name] = entry{data: data, stamp: time.Now()}
}

func (r *Report) write(arc *fixzip.Writer) error {
	now := time.Now()
	names := slices.SortedFunc(maps.Keys(r.entries), func(a, b string) int {
		switch {
		case a == b:
			return 0
		case natural.Less(a, b):
			return -1
		}
		return 1
	})

	manifest := make([]ManifestEntry, 0, len(names))
	for _, name := range names {
		e := r.entries[name]
		me := ManifestEntry{Name: name, Source: e.source, Size: len(e.data), Stamp: e.stamp}
		if me.Stamp.IsZero() {
			me.Stamp = now
		}

		var err error
		switch info, serr := os.Stat(e.source); {
		case e.data != nil:
			err = addFile(arc, name, e.stamp, bytes.NewReader(e.data))
		case serr != nil:
			me.Missing = true
		case info.Mode().IsRegular():
			me.Size, me.Stamp = int(info.Size()), info.ModTime()
			err = addFromDisk(arc, name, e.source, info.ModTime())
		case info.IsDir():
			err = addDir(arc, name, e.source)
		}
		if err != nil {
			return fmt.Errorf("unable to archive %s: %w", name, err)
		}
		manifest = append(manifest, me)
	}

	data, err := yaml.Marshal(manifest)
	if err != nil {
		return err
	}
	return addFile(arc, ManifestName, now, bytes.NewReader(data))
}

func addFile(arc *fixzip.Writer, name string, t time.Time, src io.Reader) error {
	w, err := arc.CreateHeader(&fixzip.FileHeader{Name: name, Method: fixzip.Deflate, Modified: t})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}

func addFromDisk(arc *fixzip.Writer, name, path string, t time.Time) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return addFile(arc, name, t, f)
}

// addDir archives regular files only, links and special files are skipped.
func addDir(arc *fixzip.Writer, name, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.Type().IsRegular() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		return addFromDisk(arc, filepath.ToSlash(filepath.Join(name, rel)), path, info.ModTime())
	})
}
