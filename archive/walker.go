// Package archive gives read access to zip containers (EPUB) and builds Walk
// abstraction on top of them.
package archive

import (
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	fixzip "github.com/hidez8891/zip"
	"github.com/maruel/natural"
)

// WalkFunc is the type of the function called for each file in container
// visited by Walk. The archive argument contains path to container, file is
// the entry which satisfies match condition. If an error is returned,
// processing stops.
type WalkFunc func(archive string, file *fixzip.File) error

// Container is an opened zip container. Entry names are validated on open,
// containers with path traversal entries are refused.
type Container struct {
	path  string
	rc    *fixzip.ReadCloser
	index map[string]*fixzip.File
}

// Open opens container and indexes its entries.
func Open(archive string) (*Container, error) {
	rc, err := fixzip.OpenReader(archive)
	if err != nil {
		return nil, fmt.Errorf("unable to open container (%s): %w", archive, err)
	}
	c := &Container{path: archive, rc: rc, index: make(map[string]*fixzip.File, len(rc.File))}
	for _, f := range rc.File {
		name := f.FileHeader.Name
		if !isSafePath(name) {
			rc.Close()
			return nil, fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if !f.FileInfo().IsDir() {
			c.index[name] = f
		}
	}
	return c, nil
}

// Path returns location of the container.
func (c *Container) Path() string {
	return c.path
}

// Has reports whether file entry exists.
func (c *Container) Has(name string) bool {
	_, ok := c.index[name]
	return ok
}

// Names returns file entries in natural order.
func (c *Container) Names() []string {
	names := make([]string, 0, len(c.index))
	for name := range c.index {
		names = append(names, name)
	}
	sort.Sort(natural.StringSlice(names))
	return names
}

// ReadFile returns content of the file entry.
func (c *Container) ReadFile(name string) ([]byte, error) {
	f, ok := c.index[name]
	if !ok {
		return nil, fmt.Errorf("zip entry %q: %w", name, ErrNotExist)
	}
	r, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("zip entry %q: %w", name, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("zip entry %q: %w", name, err)
	}
	return data, nil
}

// Walk calls walkFn for all files with names starting with pattern in
// container order.
func (c *Container) Walk(pattern string, walkFn WalkFunc) error {
	for _, f := range c.rc.File {
		if !f.FileInfo().IsDir() && strings.HasPrefix(f.FileHeader.Name, pattern) {
			if err := walkFn(c.path, f); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close releases container.
func (c *Container) Close() error {
	return c.rc.Close()
}

// Walk walks the all files in the archive which satisfy match condition,
// calling walkFn for each item. Archives with path traversal components
// ("..") or absolute paths are refused to prevent Zip Slip attacks.
func Walk(archive, pattern string, walkFn WalkFunc) error {
	c, err := Open(archive)
	if err != nil {
		return err
	}
	defer c.Close()
	return c.Walk(pattern, walkFn)
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
