// Package book reads works to be paginated: EPUB containers, exploded EPUB
// or plain directories of XHTML documents and single XHTML files.
package book

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/beevik/etree"
	"github.com/h2non/filetype"
	"github.com/maruel/natural"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"rflow/archive"
	"rflow/paginate"
)

const (
	containerPath  = "META-INF/container.xml"
	layoutProperty = "rendition:layout"
	prePaginated   = "pre-paginated"
)

var (
	ErrNoContent = errors.New("work has no content documents")
	ErrUnknown   = errors.New("unrecognized work format")
)

// source is where work files come from.
type source interface {
	ReadFile(name string) ([]byte, error)
	Close() error
}

// Book is an opened work. It implements paginate.Work.
type Book struct {
	Path   string
	Title  string
	Format Format

	fixed bool
	units []paginate.ContentUnit
	refs  map[string]int
	src   source
	log   *zap.Logger
}

// Open detects format of the work at path and reads its manifest.
func Open(path string, log *zap.Logger) (*Book, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("book")

	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("unable to access work: %w", err)
	}

	b := &Book{Path: path, log: log}
	if fi.IsDir() {
		b.Format = FormatExploded
		b.src = dirSource(path)
		read := b.readPackage
		if _, err := os.Stat(filepath.Join(path, filepath.FromSlash(containerPath))); err != nil {
			read = func() error { return b.readDirectory(path) }
		}
		if err := read(); err != nil {
			return nil, err
		}
		return b.finish()
	}

	isZip, err := sniffZip(path)
	if err != nil {
		return nil, err
	}
	switch {
	case isZip:
		c, err := archive.Open(path)
		if err != nil {
			return nil, err
		}
		b.Format, b.src = FormatEpub, c
		if err := b.readPackage(); err != nil {
			c.Close()
			return nil, err
		}
	case isDocument(fi.Name()):
		b.Format, b.src = FormatXhtml, dirSource(filepath.Dir(path))
		b.Title = strings.TrimSuffix(fi.Name(), filepath.Ext(fi.Name()))
		b.units = []paginate.ContentUnit{{Ref: fi.Name(), Href: fi.Name(), Index: 0}}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknown, path)
	}
	return b.finish()
}

func (b *Book) finish() (*Book, error) {
	if len(b.units) == 0 {
		b.src.Close()
		return nil, fmt.Errorf("%w: %s", ErrNoContent, b.Path)
	}
	b.refs = make(map[string]int, len(b.units))
	for i, u := range b.units {
		b.refs[u.Ref] = i
	}
	b.log.Debug("Work opened",
		zap.String("path", b.Path),
		zap.Stringer("format", b.Format),
		zap.Int("units", len(b.units)),
		zap.Bool("fixed_layout", b.fixed))
	return b, nil
}

// sniffZip checks file signature.
func sniffZip(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("unable to open work: %w", err)
	}
	defer f.Close()

	head := make([]byte, 261)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("unable to read work: %w", err)
	}
	head = head[:n]
	return filetype.Is(head, "epub") || filetype.Is(head, "zip"), nil
}

func isDocument(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xhtml", ".html", ".htm", ".xml":
		return true
	}
	return false
}

// readDirectory makes every document in directory a content unit, in natural
// order of their names.
func (b *Book) readDirectory(dir string) error {
	var names []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isDocument(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return fmt.Errorf("unable to list work directory: %w", err)
	}
	sort.Sort(natural.StringSlice(names))

	b.Title = filepath.Base(dir)
	for i, name := range names {
		b.units = append(b.units, paginate.ContentUnit{Ref: name, Href: name, Index: i})
	}
	return nil
}

// readPackage reads container.xml and package document.
func (b *Book) readPackage() error {
	doc, err := b.parseXML(containerPath)
	if err != nil {
		return err
	}
	rootfile := findLocal(doc.Root(), "rootfile")
	if rootfile == nil {
		return fmt.Errorf("%s: no rootfile", containerPath)
	}
	opfPath := rootfile.SelectAttrValue("full-path", "")
	if len(opfPath) == 0 {
		return fmt.Errorf("%s: empty rootfile path", containerPath)
	}

	opf, err := b.parseXML(opfPath)
	if err != nil {
		return err
	}
	return b.readOPF(opf, path.Dir(opfPath))
}

func (b *Book) readOPF(opf *etree.Document, base string) error {
	pkg := opf.Root()
	if pkg == nil || pkg.Tag != "package" {
		return errors.New("package document has no package element")
	}

	if md := findLocal(pkg, "metadata"); md != nil {
		if title := findLocal(md, "title"); title != nil {
			b.Title = strings.TrimSpace(title.Text())
		}
		for _, meta := range md.ChildElements() {
			if meta.Tag == "meta" && meta.SelectAttrValue("property", "") == layoutProperty {
				b.fixed = strings.TrimSpace(meta.Text()) == prePaginated
			}
		}
	}

	type item struct{ href, mediaType string }
	items := make(map[string]item)
	if manifest := findLocal(pkg, "manifest"); manifest != nil {
		for _, el := range manifest.ChildElements() {
			if el.Tag != "item" {
				continue
			}
			href, err := url.PathUnescape(el.SelectAttrValue("href", ""))
			if err != nil {
				b.log.Warn("Bad manifest item href, skipping", zap.String("href", el.SelectAttrValue("href", "")), zap.Error(err))
				continue
			}
			items[el.SelectAttrValue("id", "")] = item{href: path.Join(base, href), mediaType: el.SelectAttrValue("media-type", "")}
		}
	}

	spine := findLocal(pkg, "spine")
	if spine == nil {
		return errors.New("package document has no spine")
	}
	for _, ref := range spine.ChildElements() {
		if ref.Tag != "itemref" {
			continue
		}
		idref := ref.SelectAttrValue("idref", "")
		it, ok := items[idref]
		if !ok {
			b.log.Warn("Spine references missing manifest item, skipping", zap.String("idref", idref))
			continue
		}
		if it.mediaType != "application/xhtml+xml" && it.mediaType != "text/html" {
			b.log.Debug("Spine item is not XHTML", zap.String("idref", idref), zap.String("media-type", it.mediaType))
		}
		b.units = append(b.units, paginate.ContentUnit{Ref: idref, Href: it.href, Index: len(b.units)})
	}
	return nil
}

func (b *Book) parseXML(name string) (*etree.Document, error) {
	data, err := b.src.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", name, err)
	}
	doc := newDocument()
	if _, err := doc.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", name, err)
	}
	return doc, nil
}

// Len returns number of content units.
func (b *Book) Len() int {
	return len(b.units)
}

// FixedLayout reports pre-paginated works.
func (b *Book) FixedLayout() bool {
	return b.fixed
}

// Units returns content units in reading order.
func (b *Book) Units() []paginate.ContentUnit {
	return append([]paginate.ContentUnit(nil), b.units...)
}

// Lookup returns unit by reference.
func (b *Book) Lookup(ref string) (paginate.ContentUnit, bool) {
	i, ok := b.refs[ref]
	if !ok {
		return paginate.ContentUnit{}, false
	}
	return b.units[i], true
}

// ReadFile returns any file of the work by its slash separated location.
func (b *Book) ReadFile(name string) ([]byte, error) {
	return b.src.ReadFile(name)
}

// Document parses content unit.
func (b *Book) Document(u paginate.ContentUnit) (*etree.Document, error) {
	return b.parseXML(u.Href)
}

// Close releases underlying container.
func (b *Book) Close() error {
	return b.src.Close()
}

func newDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
		Entity:        htmlEntities,
		Permissive:    true,
	}
	return doc
}

// findLocal returns first descendant (or el itself) with given local name.
func findLocal(el *etree.Element, tag string) *etree.Element {
	if el == nil {
		return nil
	}
	if el.Tag == tag {
		return el
	}
	for _, c := range el.ChildElements() {
		if found := findLocal(c, tag); found != nil {
			return found
		}
	}
	return nil
}

type dirSource string

func (d dirSource) ReadFile(name string) ([]byte, error) {
	clean := path.Clean("/" + name)[1:]
	if clean != path.Clean(name) {
		return nil, fmt.Errorf("%q: %w", name, fs.ErrInvalid)
	}
	return os.ReadFile(filepath.Join(string(d), filepath.FromSlash(clean)))
}

func (dirSource) Close() error { return nil }
