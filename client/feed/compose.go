package feed

import (
	"context"
	"fmt"

	"github.com/tkrehbiel/distrolace/client/api"
	"github.com/tkrehbiel/distrolace/client/telemetry"
)

// NewDraft is a public plain text draft
func NewDraft(title, text string) api.PostDraft {
	return api.PostDraft{
		Title:       title,
		ContentType: api.ContentTypePlain,
		Content:     text,
		Visibility:  api.VisibilityPublic,
	}
}

// Create publishes a new post as the viewer. The post joins the feed
// when the current source would list it.
func (f *Feed) Create(ctx context.Context, draft api.PostDraft) (PostView, error) {
	viewer := f.session.CurrentAuthorID()
	if viewer == "" {
		return PostView{}, &api.Error{Kind: api.ErrUnauthenticated}
	}
	generation := f.begin()
	post, err := f.backend.CreatePost(ctx, viewer, draft)
	if err != nil {
		return PostView{}, err
	}
	telemetry.Increment("posts_created", 1)
	return f.insert(post, viewer, generation), nil
}

// Share reposts a post the viewer may share
func (f *Feed) Share(ctx context.Context, postID string) (PostView, error) {
	viewer := f.session.CurrentAuthorID()
	if viewer == "" {
		return PostView{}, &api.Error{Kind: api.ErrUnauthenticated}
	}

	f.lock.Lock()
	v := f.find(postID)
	if v == nil {
		f.lock.Unlock()
		return PostView{}, ErrUnknownPost
	}
	if !v.CanShare {
		f.lock.Unlock()
		return PostView{}, fmt.Errorf("%w: sharing %s", ErrNotPermitted, postID)
	}
	generation := f.generation
	f.lock.Unlock()

	shared, err := f.backend.SharePost(ctx, postID)
	if err != nil {
		return PostView{}, err
	}
	telemetry.Increment("shares", 1)

	f.lock.Lock()
	if !f.stale(generation) {
		if v = f.find(postID); v != nil {
			v.Post.SharesCount++
		}
	}
	f.lock.Unlock()
	return f.insert(shared, viewer, generation), nil
}

// insert annotates a post the viewer just published and adds it to the
// front of the feed if the feed has not moved on
func (f *Feed) insert(post api.Post, viewer string, generation uint64) PostView {
	view := f.annotate(post, viewer)

	f.lock.Lock()
	defer f.lock.Unlock()
	if f.closed || generation != f.generation || !f.lists(post, viewer) {
		return view.clone()
	}
	f.posts = append([]*PostView{view}, f.posts...)
	f.total++
	return view.clone()
}

// lists reports whether the current source would include a post by
// the viewer. Must be called with the lock held.
func (f *Feed) lists(post api.Post, viewer string) bool {
	if f.posts == nil {
		return false // nothing loaded
	}
	switch f.source.Kind {
	case StreamSource:
		return f.source.Page <= 1
	case AuthorSource:
		return f.backend.AuthorURL(f.source.ID) == f.backend.AuthorURL(viewer)
	case PublicSource:
		return post.Visibility == api.VisibilityPublic
	}
	return false
}
