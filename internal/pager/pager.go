// Package pager implements an incremental, cache-backed page loader. One
// generic Loader serves every list context; feeds differ only in their
// fetch function, cache namespace, and query key.
package pager

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/wb-go/wbf/zlog"

	"github.com/taskbounty/bountyctl/internal/cache"
)

// FetchFunc loads one page from the network.
type FetchFunc[T any] func(ctx context.Context, page, size int) ([]T, error)

// Loader accumulates pages for one query at a time. Reset switches the
// query; LoadNext appends the next page, consulting the durable cache
// before the network. All methods are safe for concurrent use.
type Loader[T any] struct {
	mu       sync.Mutex
	fetch    FetchFunc[T]
	store    cache.Store
	ns       string
	pageSize int

	key      string
	items    []T
	nextPage int
	hasMore  bool
	gen      uint64
	inFlight bool
}

func New[T any](store cache.Store, namespace string, pageSize int, fetch FetchFunc[T]) *Loader[T] {
	return &Loader[T]{
		fetch:    fetch,
		store:    store,
		ns:       namespace,
		pageSize: pageSize,
		hasMore:  true,
	}
}

// Reset starts a fresh query under the given key, discarding accumulated
// items. A fetch already in flight for the previous query will have its
// response dropped when it lands.
func (l *Loader[T]) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.key = key
	l.items = nil
	l.nextPage = 0
	l.hasMore = true
	l.gen++
}

// LoadNext appends the next page for the current query. It is a no-op when
// the previous page came back short (no more data) or while another load
// is pending. A fetch error leaves accumulated items untouched.
func (l *Loader[T]) LoadNext(ctx context.Context) error {
	l.mu.Lock()
	if !l.hasMore || l.inFlight {
		l.mu.Unlock()
		return nil
	}
	page := l.nextPage
	key := l.pageKey(page)
	gen := l.gen

	if raw, err := l.store.Get(ctx, l.ns, key); err == nil {
		var items []T
		if err := json.Unmarshal(raw, &items); err == nil {
			l.append(items)
			l.mu.Unlock()
			return nil
		}
		// Undecodable hit: fall through to the network.
	}

	l.inFlight = true
	l.mu.Unlock()

	items, err := l.fetch(ctx, page, l.pageSize)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.inFlight = false
	if l.gen != gen {
		// Query changed while the fetch was out; its result no longer
		// belongs to this loader state.
		return nil
	}
	if err != nil {
		return err
	}

	if raw, merr := json.Marshal(items); merr == nil {
		if perr := l.store.Put(ctx, l.ns, key, raw); perr != nil {
			zlog.Logger.Warn().Err(perr).Str("namespace", l.ns).Str("key", key).Msg("page cache write failed")
		}
	}
	l.append(items)
	return nil
}

func (l *Loader[T]) append(items []T) {
	l.items = append(l.items, items...)
	l.nextPage++
	l.hasMore = len(items) == l.pageSize
}

// pageKey derives the cache key for one page of the current query. A bare
// page number when the query key is empty, key_page otherwise.
func (l *Loader[T]) pageKey(page int) string {
	if l.key == "" {
		return strconv.Itoa(page)
	}
	return l.key + "_" + strconv.Itoa(page)
}

// Items returns a copy of everything accumulated so far.
func (l *Loader[T]) Items() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// HasMore reports whether another LoadNext could extend the list.
func (l *Loader[T]) HasMore() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hasMore
}

// Len returns the number of accumulated items.
func (l *Loader[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Mutate applies fn to the accumulated items in place under the loader's
// lock. Used for optimistic updates such as vote count bumps.
func (l *Loader[T]) Mutate(fn func(items []T)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.items)
}
