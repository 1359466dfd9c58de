// Package queries holds the client-side view cache: a key-value store of
// immutable view snapshots mutated only through copy-on-write update
// functions, plus the optimistic upvote controller built on top of it.
//
// Two view shapes coexist for one post: a standalone view keyed by post id
// and entries embedded in paginated list views keyed by the full
// filter/sort tuple. The store itself is shape-agnostic; it deals in opaque
// immutable values.
package queries

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/hackernest/backend/pkg/client"
)

// Key identifies one cached view.
type Key string

// ListPrefix is the namespace shared by every paginated list view, so the
// controller can enumerate and mutate all list keys at once.
const ListPrefix Key = "posts/"

// PostKey is the standalone single-post view key.
func PostKey(postID int) Key {
	return Key(fmt.Sprintf("post/%d", postID))
}

// ListKey derives the view key for one page of the posts list from its
// full filter/sort tuple.
func ListKey(p client.ListParams) Key {
	return ListPrefix + Key(fmt.Sprintf("page=%d&limit=%d&sortBy=%s&order=%s&author=%s&site=%s",
		p.Page, p.Limit, p.SortBy, p.Order, p.Author, p.Site))
}

type entry struct {
	data      any  // immutable; replaced wholesale, never mutated in place
	stale     bool // a stale view is refetched on next observation
	observers int  // >0 means the view is actively observed
	gen       uint64
	cancel    context.CancelFunc // in-flight fetch, if any
}

// Store is an in-process cache of view snapshots. Values handed to Set or
// returned from update functions must be treated as immutable: consumers
// holding a previously read value never see it change underneath them.
type Store struct {
	mu      sync.Mutex
	entries map[Key]*entry
	group   singleflight.Group
}

func NewStore() *Store {
	return &Store{entries: make(map[Key]*entry)}
}

func (s *Store) entryLocked(key Key) *entry {
	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	return e
}

// Get returns the cached value for key, if any.
func (s *Store) Get(key Key) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || e.data == nil {
		return nil, false
	}
	return e.data, true
}

// Set stores a freshly fetched value, clearing staleness and bumping the
// generation so any in-flight fetch for the same key discards its result.
func (s *Store) Set(key Key, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entryLocked(key)
	e.data = data
	e.stale = false
	e.gen++
}

// Update applies a copy-on-write mutation to one view. fn receives the
// current value and returns the replacement; returning nil leaves the view
// untouched. Reports whether a replacement was stored.
func (s *Store) Update(key Key, fn func(old any) any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || e.data == nil {
		return false
	}
	next := fn(e.data)
	if next == nil {
		return false
	}
	e.data = next
	e.gen++
	return true
}

// UpdateMatching applies a copy-on-write mutation to every populated view
// under prefix. With activeOnly set, views nobody observes are skipped.
func (s *Store) UpdateMatching(prefix Key, activeOnly bool, fn func(key Key, old any) any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, e := range s.entries {
		if e.data == nil || !strings.HasPrefix(string(key), string(prefix)) {
			continue
		}
		if activeOnly && e.observers == 0 {
			continue
		}
		if next := fn(key, e.data); next != nil {
			e.data = next
			e.gen++
		}
	}
}

// Keys lists the populated view keys under prefix.
func (s *Store) Keys(prefix Key, activeOnly bool) []Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []Key
	for key, e := range s.entries {
		if e.data == nil || !strings.HasPrefix(string(key), string(prefix)) {
			continue
		}
		if activeOnly && e.observers == 0 {
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

// Snapshot is a point-in-time copy of a set of views, taken before an
// optimistic mutation and replayed verbatim on failure. The captured
// values are shared, which is safe because stored values are immutable.
type Snapshot struct {
	views map[Key]any
}

// Snapshot captures the current values of the given keys. Keys with no
// populated view are skipped.
func (s *Store) Snapshot(keys []Key) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	views := make(map[Key]any, len(keys))
	for _, key := range keys {
		if e, ok := s.entries[key]; ok && e.data != nil {
			views[key] = e.data
		}
	}
	return Snapshot{views: views}
}

// Restore writes a snapshot's values back, replacing whatever the
// optimistic mutation put there.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, data := range snap.views {
		e := s.entryLocked(key)
		e.data = data
		e.gen++
	}
}

// Stale reports whether the view for key is flagged for refetch.
func (s *Store) Stale(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	return ok && e.stale
}

// MarkStale flags one view for refetch on its next observation.
func (s *Store) MarkStale(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		e.stale = true
	}
}

// MarkStaleMatching flags every view under prefix. With inactiveOnly set,
// actively observed views keep their current value and are left fresh.
func (s *Store) MarkStaleMatching(prefix Key, inactiveOnly bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, e := range s.entries {
		if !strings.HasPrefix(string(key), string(prefix)) {
			continue
		}
		if inactiveOnly && e.observers > 0 {
			continue
		}
		e.stale = true
	}
}

// Observe marks a view as actively observed and returns a release func.
// Active views take part in optimistic mutations; inactive ones are only
// invalidated.
func (s *Store) Observe(key Key) (release func()) {
	s.mu.Lock()
	e := s.entryLocked(key)
	e.observers++
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			e.observers--
			s.mu.Unlock()
		})
	}
}

// CancelFetch aborts any in-flight fetch for key so a late read response
// cannot clobber an optimistic write.
func (s *Store) CancelFetch(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok && e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

// Fetch returns the cached value for key, or runs fn to populate it.
// Concurrent fetches of the same key are coalesced. The generation
// observed before the fetch gates the write-back: if a mutation landed
// while the fetch was in flight, the fetched value is discarded in favor
// of the newer one.
func (s *Store) Fetch(ctx context.Context, key Key, fn func(ctx context.Context) (any, error)) (any, error) {
	s.mu.Lock()
	e := s.entryLocked(key)
	if e.data != nil && !e.stale {
		data := e.data
		s.mu.Unlock()
		return data, nil
	}
	gen := e.gen
	s.mu.Unlock()

	v, err, _ := s.group.Do(string(key), func() (any, error) {
		fctx, cancel := context.WithCancel(ctx)
		defer cancel()

		s.mu.Lock()
		s.entryLocked(key).cancel = cancel
		s.mu.Unlock()

		data, err := fn(fctx)

		s.mu.Lock()
		defer s.mu.Unlock()
		e := s.entryLocked(key)
		e.cancel = nil
		if err != nil {
			return nil, err
		}
		if e.gen != gen || fctx.Err() != nil {
			// Something wrote the view while we were fetching; the fetched
			// value is already out of date.
			if e.data != nil {
				return e.data, nil
			}
			return data, nil
		}
		e.data = data
		e.stale = false
		e.gen++
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}
