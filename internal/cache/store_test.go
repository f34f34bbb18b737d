package cache

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/gallery/internal/domain"
	"github.com/timmy/gallery/internal/logger"
)

func page(next string, ids ...string) domain.Page {
	p := domain.Page{NextCursor: next}
	for _, id := range ids {
		p.Items = append(p.Items, domain.Image{ID: id})
	}
	return p
}

func TestStore_ReadCreatesEmptyState(t *testing.T) {
	s := NewStore(logger.Discard())

	st := s.Read("images")
	assert.Empty(t, st.Pages)
	assert.True(t, st.HasNext())
	assert.NoError(t, st.Err)
	assert.False(t, st.IsFetchingNext)
	assert.Equal(t, uint64(0), st.Version)
}

func TestStore_WriteAppendsAndNotifies(t *testing.T) {
	s := NewStore(logger.Discard())

	var events []Event
	unsubscribe := s.Subscribe("images", func(ev Event) { events = append(events, ev) })
	defer unsubscribe()

	s.Write("images", page("c2", "a", "b"))
	s.Write("images", page("", "c"))

	st := s.Read("images")
	require.Len(t, st.Pages, 2)
	assert.False(t, st.HasNext())
	require.Len(t, events, 2)
	assert.Equal(t, EventWritten, events[0].Kind)
	assert.Equal(t, "images", events[1].Key)
}

func TestStore_ReadReturnsCopy(t *testing.T) {
	s := NewStore(logger.Discard())
	s.Write("images", page("c2", "a"))

	st := s.Read("images")
	st.Pages[0].NextCursor = "tampered"
	st.Pages = append(st.Pages, page("", "z"))

	again := s.Read("images")
	require.Len(t, again.Pages, 1)
	assert.Equal(t, "c2", again.Pages[0].NextCursor)
}

func TestStore_InvalidateDiscardsStateAndBumpsVersion(t *testing.T) {
	s := NewStore(logger.Discard())
	s.Write("images", page("", "a"))

	var kinds []EventKind
	defer s.Subscribe("images", func(ev Event) { kinds = append(kinds, ev.Kind) })()

	s.Invalidate("images")

	st := s.Read("images")
	assert.Empty(t, st.Pages)
	assert.True(t, st.HasNext())
	assert.Equal(t, uint64(1), st.Version)
	assert.Equal(t, []EventKind{EventInvalidated}, kinds)
}

func TestStore_InvalidateIsPerKey(t *testing.T) {
	s := NewStore(logger.Discard())
	s.Write("images", page("", "a"))
	s.Write("favorites", page("", "b"))

	s.Invalidate("images")

	assert.Empty(t, s.Read("images").Pages)
	assert.Len(t, s.Read("favorites").Pages, 1)
}

func TestStore_BeginFetchOnlyOnce(t *testing.T) {
	s := NewStore(logger.Discard())

	ticket, ok := s.BeginFetch("images")
	require.True(t, ok)
	assert.Equal(t, "", ticket.Cursor)
	assert.True(t, s.Read("images").IsLoading)

	_, ok = s.BeginFetch("images")
	assert.False(t, ok, "second fetch must not start while one is running")

	require.True(t, s.Commit(ticket, page("c2", "a")))
	next, ok := s.BeginFetch("images")
	require.True(t, ok)
	assert.Equal(t, "c2", next.Cursor)
	assert.False(t, s.Read("images").IsLoading)
	assert.True(t, s.Read("images").IsFetchingNext)
}

func TestStore_BeginFetchRefusedAtEnd(t *testing.T) {
	s := NewStore(logger.Discard())
	s.Write("images", page("", "a"))

	_, ok := s.BeginFetch("images")
	assert.False(t, ok)
}

func TestStore_CommitDiscardsStaleTicket(t *testing.T) {
	s := NewStore(logger.Discard())
	ticket, ok := s.BeginFetch("images")
	require.True(t, ok)

	s.Invalidate("images")

	assert.False(t, s.Commit(ticket, page("c2", "a")))
	assert.Empty(t, s.Read("images").Pages)
	assert.False(t, s.Fail(ticket, errors.New("late")))
	assert.NoError(t, s.Read("images").Err)
}

func TestStore_FailKeepsPages(t *testing.T) {
	s := NewStore(logger.Discard())
	first, _ := s.BeginFetch("images")
	s.Commit(first, page("c2", "a"))

	second, ok := s.BeginFetch("images")
	require.True(t, ok)
	boom := errors.New("boom")
	require.True(t, s.Fail(second, boom))

	st := s.Read("images")
	assert.Len(t, st.Pages, 1)
	assert.ErrorIs(t, st.Err, boom)
	assert.False(t, st.IsFetchingNext)
}

func TestStore_Unsubscribe(t *testing.T) {
	s := NewStore(logger.Discard())

	calls := 0
	unsubscribe := s.Subscribe("images", func(Event) { calls++ })
	other := s.Subscribe("images", func(Event) {})
	s.Write("images", page("c2", "a"))
	unsubscribe()
	unsubscribe()
	s.Write("images", page("", "b"))
	other()

	assert.Equal(t, 1, calls)
}

func TestStore_SubscriberMayReadStore(t *testing.T) {
	s := NewStore(logger.Discard())

	var seen int
	defer s.Subscribe("images", func(Event) { seen = len(s.Read("images").Pages) })()
	s.Write("images", page("", "a"))

	assert.Equal(t, 1, seen)
}
