package paginate

import "fmt"

// Target is a navigation target inside a content unit. It is one of Spread,
// Element or Location.
type Target interface {
	fmt.Stringer
	target()
}

// Spread addresses spread by index, 0 is the first spread.
type Spread struct{ Index int }

// Element addresses element by its id attribute.
type Element struct{ ID string }

// Location addresses position by location fingerprint (see package locator).
type Location struct{ Fingerprint string }

func (Spread) target()   {}
func (Element) target()  {}
func (Location) target() {}

func (t Spread) String() string   { return fmt.Sprintf("spread:%d", t.Index) }
func (t Element) String() string  { return "element:" + t.ID }
func (t Location) String() string { return "location:" + t.Fingerprint }

// Request is a navigation request. Nil Unit means currently active unit, nil
// Target only switches content unit.
type Request struct {
	Unit   *ContentUnit
	Target Target
}

// ToSpread builds request for spread index in given unit (nil - current).
func ToSpread(unit *ContentUnit, index int) Request {
	return Request{Unit: unit, Target: Spread{Index: index}}
}

// ToElement builds request for element id in given unit (nil - current).
func ToElement(unit *ContentUnit, id string) Request {
	return Request{Unit: unit, Target: Element{ID: id}}
}

// ToLocation builds request for location fingerprint in given unit (nil - current).
func ToLocation(unit *ContentUnit, fp string) Request {
	return Request{Unit: unit, Target: Location{Fingerprint: fp}}
}

func (r Request) String() string {
	var unit, target = "current", "none"
	if r.Unit != nil {
		unit = r.Unit.Ref
	}
	if r.Target != nil {
		target = r.Target.String()
	}
	return unit + "/" + target
}

// pending is a request waiting for its outcome.
type pending struct {
	Request
	result chan error
}

func newPending(r Request) *pending {
	return &pending{Request: r, result: make(chan error, 1)}
}

// reply delivers outcome, only first call has effect.
func (p *pending) reply(err error) {
	if p == nil || p.result == nil {
		return
	}
	p.result <- err
	p.result = nil
}
