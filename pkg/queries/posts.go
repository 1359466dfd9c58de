package queries

import (
	"context"

	"github.com/hackernest/backend/pkg/client"
	"github.com/hackernest/backend/pkg/types"
)

// PostAPI is the read side of the API client the queries depend on.
type PostAPI interface {
	GetPost(ctx context.Context, postID int) (*types.Post, error)
	ListPosts(ctx context.Context, params client.ListParams) (*types.PostsPage, error)
}

// PostQueries reads post views through the store: cached values are served
// as-is, misses and stale views fetch from the API, and concurrent reads
// of the same key are coalesced.
type PostQueries struct {
	store *Store
	api   PostAPI
}

func NewPostQueries(store *Store, api PostAPI) *PostQueries {
	return &PostQueries{store: store, api: api}
}

// Post returns the standalone view of one post, fetching it if needed.
// The returned release func must be called when the view is no longer
// observed.
func (q *PostQueries) Post(ctx context.Context, postID int) (types.Post, func(), error) {
	key := PostKey(postID)
	release := q.store.Observe(key)

	v, err := q.store.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		post, err := q.api.GetPost(ctx, postID)
		if err != nil {
			return nil, err
		}
		return *post, nil
	})
	if err != nil {
		release()
		return types.Post{}, nil, err
	}
	return v.(types.Post), release, nil
}

// Posts returns one list page, fetching it if needed.
func (q *PostQueries) Posts(ctx context.Context, params client.ListParams) (types.PostsPage, func(), error) {
	key := ListKey(params)
	release := q.store.Observe(key)

	v, err := q.store.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		page, err := q.api.ListPosts(ctx, params)
		if err != nil {
			return nil, err
		}
		return *page, nil
	})
	if err != nil {
		release()
		return types.PostsPage{}, nil, err
	}
	return v.(types.PostsPage), release, nil
}
