package feed

import (
	"context"

	"github.com/tkrehbiel/distrolace/client/api"
	"github.com/tkrehbiel/distrolace/client/telemetry"
)

func likeKey(viewer, postID string) string {
	return viewer + "|" + postID
}

func (f *Feed) cachedLike(viewer, postID string) bool {
	if viewer == "" {
		return false
	}
	item := f.likes.Get(likeKey(viewer, postID))
	return item != nil && !item.Expired() && item.Value()
}

// ToggleLike likes a post once. Liking an already liked post, or one
// whose like is still in flight, does nothing. When the feed does not
// know the post is liked the backend is asked before liking it.
func (f *Feed) ToggleLike(ctx context.Context, postID string) error {
	viewer := f.session.CurrentAuthorID()
	if viewer == "" {
		return &api.Error{Kind: api.ErrUnauthenticated}
	}

	f.lock.Lock()
	v := f.find(postID)
	if v == nil {
		f.lock.Unlock()
		return ErrUnknownPost
	}
	if v.Liked || f.liking[postID] {
		f.lock.Unlock()
		return nil
	}
	f.liking[postID] = true
	generation := f.generation
	f.lock.Unlock()

	already, err := f.backend.Liked(ctx, viewer, postID)
	if err != nil {
		telemetry.Error(err, "checking like on %s", postID)
		already = false
	}
	if !already {
		err = f.backend.Like(ctx, postID, viewer)
	}

	f.lock.Lock()
	defer f.lock.Unlock()
	delete(f.liking, postID)
	if err != nil {
		return err
	}
	if f.closed {
		return ErrStale
	}
	f.likes.Set(likeKey(viewer, postID), true, f.ttl)
	if !already {
		telemetry.Increment("likes", 1)
	}
	if f.stale(generation) {
		return ErrStale
	}
	if v = f.find(postID); v != nil && !v.Liked {
		v.Liked = true
		if !already {
			v.LikeCount++
		}
	}
	return nil
}

// SyncLiked refreshes a post's liked flag and like count from the backend
func (f *Feed) SyncLiked(ctx context.Context, postID string) error {
	viewer := f.session.CurrentAuthorID()
	generation := f.begin()

	likes, err := f.backend.Likes(ctx, postID)
	if err != nil {
		return err
	}
	liked := false
	if viewer != "" {
		if liked, err = f.backend.Liked(ctx, viewer, postID); err != nil {
			return err
		}
	}

	f.lock.Lock()
	defer f.lock.Unlock()
	if f.stale(generation) {
		return ErrStale
	}
	if liked {
		f.likes.Set(likeKey(viewer, postID), true, f.ttl)
	}
	v := f.find(postID)
	if v == nil {
		return ErrUnknownPost
	}
	v.Liked = v.Liked || liked
	v.LikeCount = likes.Count
	return nil
}
