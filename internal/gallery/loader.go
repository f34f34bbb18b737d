// Package gallery turns a cursor-paginated remote collection into an ordered,
// deduplicated and incrementally growing list of images.
package gallery

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/timmy/gallery/internal/cache"
	"github.com/timmy/gallery/internal/domain"
	"github.com/timmy/gallery/internal/logger"
)

// PageFetcher reads one page of a collection. An empty cursor requests the
// first page. Implementations must be idempotent and side-effect free.
type PageFetcher interface {
	FetchPage(ctx context.Context, cursor string) (domain.Page, error)
}

// FetchFunc adapts a function to PageFetcher.
type FetchFunc func(ctx context.Context, cursor string) (domain.Page, error)

// FetchPage calls f.
func (f FetchFunc) FetchPage(ctx context.Context, cursor string) (domain.Page, error) {
	return f(ctx, cursor)
}

// Loader binds collection keys to fetchers on top of a shared store.
type Loader struct {
	store  *cache.Store
	logger *logger.Logger

	mu          sync.Mutex
	collections map[string]*Collection
}

// NewLoader creates a Loader backed by store.
func NewLoader(store *cache.Store, log *logger.Logger) *Loader {
	if log == nil {
		log = logger.GetDefault()
	}
	return &Loader{
		store:       store,
		logger:      log.WithField(logger.FieldComponent, "gallery"),
		collections: make(map[string]*Collection),
	}
}

// Initialize binds key to fetcher and returns the collection handle.
// Binding the same key again with the same fetcher returns the existing
// handle; binding it to a different fetcher is a configuration error.
func (l *Loader) Initialize(key string, fetcher PageFetcher) (*Collection, error) {
	if key == "" || fetcher == nil {
		return nil, domain.NewError(domain.KindConfiguration, "collection key and fetcher are required", nil)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if c, ok := l.collections[key]; ok {
		if !sameFetcher(c.fetcher, fetcher) {
			return nil, domain.NewError(domain.KindConfiguration,
				fmt.Sprintf("collection %q is already bound to another fetcher", key), nil)
		}
		return c, nil
	}

	c := &Collection{
		key:     key,
		fetcher: fetcher,
		store:   l.store,
		logger:  l.logger.WithField(logger.FieldCollectionKey, key),
	}
	l.collections[key] = c
	return c, nil
}

// sameFetcher compares fetchers by identity. Function values are compared by
// code pointer, so two closures of the same literal count as the same fetcher.
func sameFetcher(a, b PageFetcher) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch va.Kind() {
	case reflect.Func, reflect.Map, reflect.Slice:
		return va.Pointer() == vb.Pointer()
	default:
		return false
	}
}

// Collection is the loader handle for one key.
type Collection struct {
	key     string
	fetcher PageFetcher
	store   *cache.Store
	logger  *logger.Logger
}

// Key returns the collection key.
func (c *Collection) Key() string {
	return c.key
}

// LoadNext fetches the page after the last stored one. It is a no-op, and
// returns false, while another fetch for the key is running or once the
// collection is exhausted. A failed fetch is recorded as a network error
// and leaves earlier pages untouched.
func (c *Collection) LoadNext(ctx context.Context) bool {
	ticket, ok := c.store.BeginFetch(c.key)
	if !ok {
		return false
	}

	ctx = logger.EnsureLogger(ctx, c.logger)
	ctx = logger.WithFields(ctx, logger.Fields{
		logger.FieldComponent:     "gallery",
		logger.FieldCollectionKey: c.key,
		logger.FieldCursor:        ticket.Cursor,
	})
	start := time.Now()

	page, err := c.fetch(ctx, ticket.Cursor)
	if err != nil {
		netErr := domain.NewError(domain.KindNetwork, "failed to fetch page", err)
		if !c.store.Fail(ticket, netErr) {
			logger.CtxDebug(ctx, "Dropped failure of superseded fetch: %v", err)
			return true
		}
		logger.With(logger.Fields{}).WithDuration(start).WithStatus("failed").
			Warn(ctx, "Page fetch failed: %v", err)
		return true
	}

	dupes := c.duplicates(page)
	if !c.store.Commit(ticket, page) {
		logger.CtxDebug(ctx, "Discarded page from superseded fetch")
		return true
	}
	if len(dupes) > 0 {
		logger.CtxWarn(ctx, "Page repeats %d known image ids, later copies are hidden: %v", len(dupes), dupes)
	}
	logger.With(logger.Fields{}).WithDuration(start).WithCount(len(page.Items)).WithStatus("ok").
		Debug(ctx, "Page fetched, has_next=%t", page.HasNext())
	return true
}

// fetch calls the fetcher, turning a panic into an error so the busy flag is
// always cleared.
func (c *Collection) fetch(ctx context.Context, cursor string) (page domain.Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetcher panicked: %v", r)
		}
	}()
	return c.fetcher.FetchPage(ctx, cursor)
}

func (c *Collection) duplicates(page domain.Page) []string {
	seen := make(map[string]struct{})
	for _, p := range c.store.Read(c.key).Pages {
		for _, img := range p.Items {
			seen[img.ID] = struct{}{}
		}
	}
	var dupes []string
	for _, img := range page.Items {
		if _, ok := seen[img.ID]; ok {
			dupes = append(dupes, img.ID)
			continue
		}
		seen[img.ID] = struct{}{}
	}
	return dupes
}

// CurrentItems flattens all stored pages in fetch order. When an id shows up
// more than once only its first occurrence is kept.
func (c *Collection) CurrentItems() []domain.Image {
	return flatten(c.store.Read(c.key).Pages)
}

func flatten(pages []domain.Page) []domain.Image {
	total := 0
	for _, p := range pages {
		total += len(p.Items)
	}
	items := make([]domain.Image, 0, total)
	seen := make(map[string]struct{}, total)
	for _, p := range pages {
		for _, img := range p.Items {
			if _, ok := seen[img.ID]; ok {
				continue
			}
			seen[img.ID] = struct{}{}
			items = append(items, img)
		}
	}
	return items
}

// HasMore reports whether another page can be loaded.
func (c *Collection) HasMore() bool {
	return c.store.Read(c.key).HasNext()
}

// IsBusy reports whether the first load or a next-page fetch is running.
func (c *Collection) IsBusy() bool {
	st := c.store.Read(c.key)
	return st.IsLoading || st.IsFetchingNext
}

// LastError returns the error of the last failed fetch, if the collection
// has not loaded a page since.
func (c *Collection) LastError() error {
	return c.store.Read(c.key).Err
}

// Subscribe forwards store events for this collection to fn.
func (c *Collection) Subscribe(fn func(cache.Event)) (unsubscribe func()) {
	return c.store.Subscribe(c.key, fn)
}
