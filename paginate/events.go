package paginate

import "sync"

// Event is emitted by Paginator to its listeners.
type Event interface {
	event()
}

// PaginationChanged is emitted once per state machine step which changes
// current spread or spread count. Spread 0 of 0 means nothing is visible.
type PaginationChanged struct {
	Spread  int
	Spreads int
	Unit    ContentUnit
}

// ContentLoadFailed is emitted when content unit could not be loaded.
type ContentLoadFailed struct {
	Unit ContentUnit
	Err  error
}

func (PaginationChanged) event() {}
func (ContentLoadFailed) event() {}

// Listener receives paginator events. Events are delivered on the paginator
// loop, listener must not wait for paginator queries from HandleEvent.
type Listener interface {
	HandleEvent(Event)
}

// ListenerFunc adapts function to Listener.
type ListenerFunc func(Event)

func (f ListenerFunc) HandleEvent(e Event) { f(e) }

type subscription struct {
	id uint64
	l  Listener
}

type listeners struct {
	mu   sync.Mutex
	next uint64
	subs []subscription
}

func (ls *listeners) add(l Listener) func() {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	ls.next++
	id := ls.next
	ls.subs = append(ls.subs, subscription{id: id, l: l})

	var once sync.Once
	return func() {
		once.Do(func() { ls.remove(id) })
	}
}

func (ls *listeners) remove(id uint64) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	for i, s := range ls.subs {
		if s.id == id {
			ls.subs = append(ls.subs[:i:i], ls.subs[i+1:]...)
			return
		}
	}
}

func (ls *listeners) emit(e Event) {
	ls.mu.Lock()
	subs := ls.subs
	ls.mu.Unlock()

	for _, s := range subs {
		s.l.HandleEvent(e)
	}
}
