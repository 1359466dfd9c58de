package queries

import (
	"context"
	"fmt"
	"sync"

	"github.com/hackernest/backend/pkg/types"
)

// Notifier surfaces user-visible failure notifications. Successful
// reconciliation is silent.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) { f(message) }

// UpvoteAPI is the slice of the API client the controller depends on.
type UpvoteAPI interface {
	UpvotePost(ctx context.Context, postID int) (*types.UpvoteData, error)
}

// UpvoteController makes upvote toggling feel instantaneous: it mutates
// every cached view of the post before the server round trip, then either
// reconciles with the authoritative response or rolls the views back to a
// pre-mutation snapshot.
//
// Toggles on the same post are serialized through a per-post lock, so
// overlapping user actions apply in a strict order and a late response can
// never land on top of a newer toggle's state.
type UpvoteController struct {
	store    *Store
	api      UpvoteAPI
	notifier Notifier

	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func NewUpvoteController(store *Store, api UpvoteAPI, notifier Notifier) *UpvoteController {
	return &UpvoteController{
		store:    store,
		api:      api,
		notifier: notifier,
		locks:    make(map[int]*sync.Mutex),
	}
}

func (u *UpvoteController) postLock(postID int) *sync.Mutex {
	u.mu.Lock()
	defer u.mu.Unlock()
	lock, ok := u.locks[postID]
	if !ok {
		lock = &sync.Mutex{}
		u.locks[postID] = lock
	}
	return lock
}

// toggle applies the optimistic delta to one post projection.
func toggle(p types.Post) types.Post {
	if p.IsUpvoted {
		p.Points--
	} else {
		p.Points++
	}
	p.IsUpvoted = !p.IsUpvoted
	return p
}

// updateInPage returns a copy of page with fn applied to the matching
// post, or nil when the page does not contain it.
func updateInPage(page types.PostsPage, postID int, fn func(types.Post) types.Post) any {
	found := false
	posts := make([]types.Post, len(page.Data))
	for i, p := range page.Data {
		if p.ID == postID {
			p = fn(p)
			found = true
		}
		posts[i] = p
	}
	if !found {
		return nil
	}
	page.Data = posts
	return page
}

// Toggle flips the current user's upvote on a post. All cached views of
// the post (the standalone view and every active list page) are mutated
// immediately; the server response then either overwrites them with
// authoritative values or triggers a rollback to the snapshot taken here.
//
// The standalone view is part of the snapshot and is rolled back together
// with the list views on failure, then marked stale so the next
// observation refetches server truth.
func (u *UpvoteController) Toggle(ctx context.Context, postID int) (*types.UpvoteData, error) {
	lock := u.postLock(postID)
	lock.Lock()
	defer lock.Unlock()

	postKey := PostKey(postID)

	// A stale read completing after the optimistic write would clobber it.
	u.store.CancelFetch(postKey)

	snapKeys := append(u.store.Keys(ListPrefix, true), postKey)
	snap := u.store.Snapshot(snapKeys)

	u.store.Update(postKey, func(old any) any {
		p, ok := old.(types.Post)
		if !ok {
			return nil
		}
		return toggle(p)
	})
	u.store.UpdateMatching(ListPrefix, true, func(_ Key, old any) any {
		page, ok := old.(types.PostsPage)
		if !ok {
			return nil
		}
		return updateInPage(page, postID, toggle)
	})

	data, err := u.api.UpvotePost(ctx, postID)
	if err != nil {
		u.store.Restore(snap)
		u.store.MarkStale(postKey)
		u.store.MarkStaleMatching(ListPrefix, false)
		if u.notifier != nil {
			u.notifier.Notify("Failed to upvote post")
		}
		return nil, fmt.Errorf("upvote post %d: %w", postID, err)
	}

	// Overwrite with server truth rather than the guessed delta, to absorb
	// concurrent votes by other users.
	reconcile := func(p types.Post) types.Post {
		p.Points = data.Count
		p.IsUpvoted = data.IsUpvoted
		return p
	}
	u.store.Update(postKey, func(old any) any {
		p, ok := old.(types.Post)
		if !ok {
			return nil
		}
		return reconcile(p)
	})
	u.store.UpdateMatching(ListPrefix, false, func(_ Key, old any) any {
		page, ok := old.(types.PostsPage)
		if !ok {
			return nil
		}
		return updateInPage(page, postID, reconcile)
	})

	// Unobserved list pages refetch whenever they are next looked at; no
	// immediate network traffic.
	u.store.MarkStaleMatching(ListPrefix, true)

	return data, nil
}
