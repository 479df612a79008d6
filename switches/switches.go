// Package switches resolves EPUB content switches before layout.
//
// A switch groups alternative renditions of the same content. Each case
// declares namespace it requires, default branch is a fallback for readers
// which support none of them:
//
//	<epub:switch>
//	  <epub:case required-namespace="http://www.w3.org/1998/Math/MathML">...</epub:case>
//	  <epub:default>...</epub:default>
//	</epub:switch>
package switches

import (
	"github.com/beevik/etree"
	"go.uber.org/zap"
)

// MathMLNamespace is the only namespace supported out of the box.
const MathMLNamespace = "http://www.w3.org/1998/Math/MathML"

const (
	tagSwitch  = "switch"
	tagCase    = "case"
	tagDefault = "default"
	attrNS     = "required-namespace"
)

// Stats describes what Apply did to the document.
type Stats struct {
	Switches        int
	CasesKept       int
	CasesRemoved    int
	DefaultsRemoved int
	Unlabeled       int
}

// Filter removes unsupported alternative content.
type Filter struct {
	supported map[string]struct{}
	log       *zap.Logger
}

// New creates filter for given namespaces, empty list means MathML only.
func New(namespaces []string, log *zap.Logger) *Filter {
	if log == nil {
		log = zap.NewNop()
	}
	if len(namespaces) == 0 {
		namespaces = []string{MathMLNamespace}
	}
	f := &Filter{
		supported: make(map[string]struct{}, len(namespaces)),
		log:       log.Named("switches"),
	}
	for _, ns := range namespaces {
		f.supported[ns] = struct{}{}
	}
	return f
}

// Supported reports whether namespace is in the allow-list.
func (f *Filter) Supported(ns string) bool {
	_, ok := f.supported[ns]
	return ok
}

// Apply processes every switch in the document. For each switch the first
// supported case is kept together with nothing else, when there is no
// supported case only default branch survives.
func (f *Filter) Apply(doc *etree.Document) Stats {
	var st Stats
	if doc == nil || doc.Root() == nil {
		return st
	}
	f.walk(doc.Root(), &st)
	if st.Switches > 0 {
		f.log.Debug("Content switches resolved",
			zap.Int("switches", st.Switches),
			zap.Int("kept", st.CasesKept),
			zap.Int("removed", st.CasesRemoved),
			zap.Int("defaults_removed", st.DefaultsRemoved))
	}
	return st
}

func (f *Filter) walk(el *etree.Element, st *Stats) {
	if el.Tag == tagSwitch {
		f.resolve(el, st)
	}
	// children list is taken after resolving so removed branches are skipped
	for _, child := range el.ChildElements() {
		f.walk(child, st)
	}
}

func (f *Filter) resolve(sw *etree.Element, st *Stats) {
	st.Switches++

	var (
		found    bool
		defaults []*etree.Element
	)
	for _, child := range sw.ChildElements() {
		switch child.Tag {
		case tagCase:
			if !found && f.isSupported(child, st) {
				found = true
				st.CasesKept++
				continue
			}
			sw.RemoveChild(child)
			st.CasesRemoved++
		case tagDefault:
			defaults = append(defaults, child)
		}
	}
	if !found {
		return
	}
	for _, d := range defaults {
		sw.RemoveChild(d)
		st.DefaultsRemoved++
	}
}

func (f *Filter) isSupported(c *etree.Element, st *Stats) bool {
	var ns string
	for _, a := range c.Attr {
		if a.Key == attrNS {
			ns = a.Value
			break
		}
	}
	if len(ns) == 0 {
		st.Unlabeled++
		f.log.Warn("Encountered content switch case without required namespace, ignoring it", zap.String("path", c.GetPath()))
		return false
	}
	return f.Supported(ns)
}
