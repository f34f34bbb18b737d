// Package cache holds the keyed collection store shared by the gallery loader
// and the upload pipeline. The two never reference each other; they meet only
// through cache keys.
package cache

import (
	"sync"

	"github.com/timmy/gallery/internal/domain"
	"github.com/timmy/gallery/internal/logger"
)

// State is a snapshot of one collection.
type State struct {
	Pages          []domain.Page
	IsLoading      bool
	IsFetchingNext bool
	Err            error
	Version        uint64
}

// HasNext is true until a page with an empty cursor has been stored.
func (s State) HasNext() bool {
	if len(s.Pages) == 0 {
		return true
	}
	return s.Pages[len(s.Pages)-1].HasNext()
}

// NextCursor returns the cursor to request next; "" means the first page.
func (s State) NextCursor() string {
	if len(s.Pages) == 0 {
		return ""
	}
	return s.Pages[len(s.Pages)-1].NextCursor
}

// EventKind tells subscribers what changed.
type EventKind string

const (
	EventWritten     EventKind = "written"
	EventInvalidated EventKind = "invalidated"
	EventFailed      EventKind = "failed"
)

// Event is delivered to subscribers of a key.
type Event struct {
	Key     string
	Kind    EventKind
	Version uint64
}

// Ticket is issued when a fetch starts. It pins the version the fetch was
// issued under so a result arriving after an invalidation can be discarded.
type Ticket struct {
	Key     string
	Version uint64
	Cursor  string
}

type subscriber struct {
	id uint64
	fn func(Event)
}

type entry struct {
	state State
	subs  []subscriber
}

// Store maps collection keys to their state.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	nextSub uint64
	logger  *logger.Logger
}

// NewStore creates an empty store.
func NewStore(log *logger.Logger) *Store {
	if log == nil {
		log = logger.GetDefault()
	}
	return &Store{
		entries: make(map[string]*entry),
		logger:  log.WithField(logger.FieldComponent, "cache"),
	}
}

// entryLocked returns the entry for key, creating it if absent. Callers hold mu.
func (s *Store) entryLocked(key string) *entry {
	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	return e
}

// Read returns a copy of the state for key, creating an empty one if absent.
func (s *Store) Read(key string) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.entryLocked(key).state
	st.Pages = append([]domain.Page(nil), st.Pages...)
	return st
}

// Write appends page to key and clears the busy flags and error.
func (s *Store) Write(key string, page domain.Page) {
	s.mu.Lock()
	e := s.entryLocked(key)
	s.appendLocked(e, page)
	ev := Event{Key: key, Kind: EventWritten, Version: e.state.Version}
	subs := e.subsSnapshot()
	s.mu.Unlock()

	notify(subs, ev)
}

// Invalidate bumps the version of key and discards its pages. Fetches issued
// under the previous version are ignored when they complete.
func (s *Store) Invalidate(key string) {
	s.mu.Lock()
	e := s.entryLocked(key)
	e.state = State{Version: e.state.Version + 1}
	ev := Event{Key: key, Kind: EventInvalidated, Version: e.state.Version}
	subs := e.subsSnapshot()
	s.mu.Unlock()

	s.logger.WithFields(logger.Fields{
		logger.FieldCollectionKey: key,
		"version":                 ev.Version,
	}).Debug("Collection invalidated")

	notify(subs, ev)
}

// Subscribe registers fn for every change to key. The returned function
// removes the subscription and must be called on teardown.
func (s *Store) Subscribe(key string, fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	e := s.entryLocked(key)
	e.subs = append(e.subs, subscriber{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			e := s.entries[key]
			if e == nil {
				return
			}
			for i, sub := range e.subs {
				if sub.id == id {
					e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// BeginFetch marks key as fetching and returns a ticket, unless a fetch is
// already running or the collection is exhausted.
func (s *Store) BeginFetch(key string) (Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entryLocked(key)
	if e.state.IsFetchingNext || !e.state.HasNext() {
		return Ticket{}, false
	}
	e.state.IsFetchingNext = true
	e.state.IsLoading = len(e.state.Pages) == 0
	return Ticket{Key: key, Version: e.state.Version, Cursor: e.state.NextCursor()}, true
}

// Commit writes page if the key has not been invalidated since t was issued.
// It reports whether the page was stored.
func (s *Store) Commit(t Ticket, page domain.Page) bool {
	s.mu.Lock()
	e := s.entryLocked(t.Key)
	if e.state.Version != t.Version {
		s.mu.Unlock()
		return false
	}
	s.appendLocked(e, page)
	ev := Event{Key: t.Key, Kind: EventWritten, Version: e.state.Version}
	subs := e.subsSnapshot()
	s.mu.Unlock()

	notify(subs, ev)
	return true
}

// Fail records err for the fetch described by t. Pages already stored are
// kept. It reports false when t is stale.
func (s *Store) Fail(t Ticket, err error) bool {
	s.mu.Lock()
	e := s.entryLocked(t.Key)
	if e.state.Version != t.Version {
		s.mu.Unlock()
		return false
	}
	e.state.IsFetchingNext = false
	e.state.IsLoading = false
	e.state.Err = err
	ev := Event{Key: t.Key, Kind: EventFailed, Version: e.state.Version}
	subs := e.subsSnapshot()
	s.mu.Unlock()

	notify(subs, ev)
	return true
}

func (s *Store) appendLocked(e *entry, page domain.Page) {
	e.state.Pages = append(e.state.Pages, page)
	e.state.IsFetchingNext = false
	e.state.IsLoading = false
	e.state.Err = nil
}

func (e *entry) subsSnapshot() []subscriber {
	return append([]subscriber(nil), e.subs...)
}

func notify(subs []subscriber, ev Event) {
	for _, sub := range subs {
		sub.fn(ev)
	}
}
