// Package locator implements location fingerprints: element paths inside a
// content document in the form used by EPUB canonical fragment identifiers.
//
// Fingerprint "/4/2[intro]/6:12" addresses the third child element of the
// first child element (asserted to have id "intro") of the second child
// element of the document root, character offset 12. Element steps are even
// numbers, step 2k addresses k-th child element. Fingerprints are accepted
// both bare and wrapped into "epubcfi(...)", package document steps before
// "!" are ignored.
package locator

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

var (
	ErrMalformed = errors.New("malformed location fingerprint")
	ErrNotFound  = errors.New("location not found")
)

const (
	wrapPrefix = "epubcfi("
	wrapSuffix = ")"
)

// Step is a single element step of a fingerprint.
type Step struct {
	// Index is the even step number, 2 is the first child element.
	Index int
	// ID is optional id assertion.
	ID string
}

// Child returns zero based position among element children.
func (s Step) Child() int {
	return s.Index/2 - 1
}

// Fingerprint is a parsed location fingerprint.
type Fingerprint struct {
	Steps  []Step
	Offset int
	// HasOffset distinguishes explicit ":0" from no offset.
	HasOffset bool
}

// Parse parses bare or wrapped fingerprint.
func Parse(s string) (Fingerprint, error) {
	var f Fingerprint

	src := strings.TrimSpace(s)
	if strings.HasPrefix(src, wrapPrefix) {
		if !strings.HasSuffix(src, wrapSuffix) {
			return f, fmt.Errorf("%w: %q: unterminated wrapper", ErrMalformed, s)
		}
		src = src[len(wrapPrefix) : len(src)-len(wrapSuffix)]
	}
	// package document part of a full reference is not ours
	if i := strings.LastIndexByte(src, '!'); i >= 0 {
		src = src[i+1:]
	}
	if len(src) == 0 || src[0] != '/' {
		return f, fmt.Errorf("%w: %q: must start with '/'", ErrMalformed, s)
	}

	if i := strings.LastIndexByte(src, ':'); i >= 0 && !strings.ContainsAny(src[i:], "/[]") {
		off, err := strconv.Atoi(src[i+1:])
		if err != nil || off < 0 {
			return f, fmt.Errorf("%w: %q: bad character offset", ErrMalformed, s)
		}
		f.Offset, f.HasOffset = off, true
		src = src[:i]
	}

	for _, part := range strings.Split(src[1:], "/") {
		step, err := parseStep(part)
		if err != nil {
			return Fingerprint{}, fmt.Errorf("%w: %q: %w", ErrMalformed, s, err)
		}
		f.Steps = append(f.Steps, step)
	}
	return f, nil
}

func parseStep(part string) (Step, error) {
	var step Step
	num := part
	if i := strings.IndexByte(part, '['); i >= 0 {
		if !strings.HasSuffix(part, "]") {
			return step, fmt.Errorf("unterminated assertion in step %q", part)
		}
		num, step.ID = part[:i], part[i+1:len(part)-1]
		if len(step.ID) == 0 {
			return step, fmt.Errorf("empty assertion in step %q", part)
		}
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return step, fmt.Errorf("bad step %q", part)
	}
	if n < 2 || n%2 != 0 {
		return step, fmt.Errorf("step %d does not address an element", n)
	}
	step.Index = n
	return step, nil
}

// IsZero reports whether fingerprint has no steps.
func (f Fingerprint) IsZero() bool {
	return len(f.Steps) == 0
}

// String returns bare form of the fingerprint.
func (f Fingerprint) String() string {
	var b strings.Builder
	for _, s := range f.Steps {
		b.WriteByte('/')
		b.WriteString(strconv.Itoa(s.Index))
		if len(s.ID) > 0 {
			b.WriteByte('[')
			b.WriteString(s.ID)
			b.WriteByte(']')
		}
	}
	if f.HasOffset {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(f.Offset))
	}
	return b.String()
}

// Wrapped returns fingerprint wrapped into "epubcfi(...)".
func (f Fingerprint) Wrapped() string {
	return wrapPrefix + f.String() + wrapSuffix
}

// ForElement builds fingerprint of element relative to document root
// element. Root itself has empty fingerprint.
func ForElement(el *etree.Element) Fingerprint {
	var steps []Step
	for cur := el; cur != nil; {
		parent := cur.Parent()
		if parent == nil || parent.Parent() == nil && parent.Tag == "" {
			// cur is the root element (its parent is the document)
			break
		}
		steps = append(steps, Step{Index: (childIndex(parent, cur) + 1) * 2, ID: cur.SelectAttrValue("id", "")})
		cur = parent
	}
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return Fingerprint{Steps: steps}
}

func childIndex(parent, child *etree.Element) int {
	for i, c := range parent.ChildElements() {
		if c == child {
			return i
		}
	}
	return -1
}

// Find locates element addressed by fingerprint. When a step id assertion
// does not match, element with asserted id is searched in the whole document
// and the rest of the path is followed from there, content may have been
// modified after fingerprint was taken.
func Find(doc *etree.Document, f Fingerprint) (*etree.Element, error) {
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: empty document", ErrNotFound)
	}
	cur := root
	for i, s := range f.Steps {
		children := cur.ChildElements()
		var next *etree.Element
		if c := s.Child(); c >= 0 && c < len(children) {
			next = children[c]
		}
		if len(s.ID) > 0 && (next == nil || next.SelectAttrValue("id", "") != s.ID) {
			next = findID(root, s.ID)
		}
		if next == nil {
			return nil, fmt.Errorf("%w: %s at step %d", ErrNotFound, f, i+1)
		}
		cur = next
	}
	return cur, nil
}

func findID(el *etree.Element, id string) *etree.Element {
	if el.SelectAttrValue("id", "") == id {
		return el
	}
	for _, c := range el.ChildElements() {
		if found := findID(c, id); found != nil {
			return found
		}
	}
	return nil
}
