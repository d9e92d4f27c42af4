// Package feed keeps a list of posts annotated for the current viewer,
// with their likes, comments and edit state.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/karlseguin/ccache/v3"
	"github.com/samber/lo"
	"github.com/tkrehbiel/distrolace/client/api"
	"github.com/tkrehbiel/distrolace/client/telemetry"
)

var (
	ErrStale         = errors.New("response arrived after the view changed")
	ErrUnknownPost   = errors.New("post is not in this feed")
	ErrNotPermitted  = errors.New("not permitted")
	ErrNotEditing    = errors.New("post is not being edited")
	ErrUnknownSource = errors.New("unknown feed source")
)

type SourceKind int

const (
	StreamSource SourceKind = iota
	PublicSource
	AuthorSource
	SingleSource
)

// Source says where a feed's posts come from
type Source struct {
	Kind SourceKind
	ID   string
	Page int
}

func Stream(authorID string, page int) Source { return Source{Kind: StreamSource, ID: authorID, Page: page} }
func Public() Source                          { return Source{Kind: PublicSource} }
func Author(authorID string) Source           { return Source{Kind: AuthorSource, ID: authorID} }
func Single(postID string) Source             { return Source{Kind: SingleSource, ID: postID} }

type Backend interface {
	AuthorURL(id string) string
	Stream(ctx context.Context, authorID string, page int) (api.StreamPage, error)
	PublicPosts(ctx context.Context) ([]api.Post, error)
	AuthorPosts(ctx context.Context, authorID string, opts ...api.RequestOption) ([]api.Post, error)
	Post(ctx context.Context, postID string) (api.Post, error)
	CreatePost(ctx context.Context, authorID string, draft api.PostDraft) (api.Post, error)
	EditPost(ctx context.Context, postID string, draft api.PostDraft) (api.Post, error)
	SharePost(ctx context.Context, postID string) (api.Post, error)
	DeletePost(ctx context.Context, postID string) error
	Like(ctx context.Context, postID, authorID string) error
	Liked(ctx context.Context, authorID, postID string) (bool, error)
	Likes(ctx context.Context, postID string) (api.LikePage, error)
	Comments(ctx context.Context, postID string, page int) (api.CommentPage, error)
	AddComment(ctx context.Context, postID string, form api.CommentForm) (api.Comment, error)
}

type Session interface {
	CurrentAuthorID() string
}

type Feed struct {
	backend Backend
	session Session
	likes   *ccache.Cache[bool]
	ttl     time.Duration

	lock       sync.Mutex
	generation uint64
	closed     bool
	source     Source
	total      int
	posts      []*PostView
	liking     map[string]bool
}

// New creates an empty feed. Liked flags are remembered for ttl across
// reloads until Invalidate is called.
func New(backend Backend, session Session, ttl time.Duration) *Feed {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Feed{
		backend: backend,
		session: session,
		likes:   ccache.New(ccache.Configure[bool]().MaxSize(5000)),
		ttl:     ttl,
		liking:  make(map[string]bool),
	}
}

// begin captures the generation an in-flight call belongs to
func (f *Feed) begin() uint64 {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.generation
}

// stale must be called with the lock held
func (f *Feed) stale(generation uint64) bool {
	if f.closed || generation != f.generation {
		telemetry.Increment("stale_responses", 1)
		return true
	}
	return false
}

// Load replaces the feed with posts from source. Any response still
// in flight for the previous contents is dropped.
func (f *Feed) Load(ctx context.Context, source Source) error {
	f.lock.Lock()
	if f.closed {
		f.lock.Unlock()
		return ErrStale
	}
	f.generation++
	generation := f.generation
	f.lock.Unlock()

	posts, total, err := f.fetch(ctx, source)
	if err != nil {
		return err
	}

	viewer := f.session.CurrentAuthorID()
	views := lo.Map(posts, func(p api.Post, _ int) *PostView {
		return f.annotate(p, viewer)
	})

	f.lock.Lock()
	defer f.lock.Unlock()
	if f.stale(generation) {
		return ErrStale
	}
	f.source = source
	f.posts = views
	f.total = total
	telemetry.Trace("feed loaded %d posts", len(views))
	return nil
}

func (f *Feed) fetch(ctx context.Context, source Source) ([]api.Post, int, error) {
	switch source.Kind {
	case StreamSource:
		page, err := f.backend.Stream(ctx, source.ID, source.Page)
		return page.Results, page.Count, err
	case PublicSource:
		posts, err := f.backend.PublicPosts(ctx)
		return posts, len(posts), err
	case AuthorSource:
		posts, err := f.backend.AuthorPosts(ctx, source.ID)
		return posts, len(posts), err
	case SingleSource:
		post, err := f.backend.Post(ctx, source.ID)
		if err != nil {
			return nil, 0, err
		}
		return []api.Post{post}, 1, nil
	}
	return nil, 0, fmt.Errorf("%w: %d", ErrUnknownSource, source.Kind)
}

func (f *Feed) annotate(post api.Post, viewer string) *PostView {
	view := AnnotateNormalized(post, viewer, f.backend.AuthorURL)
	view.Liked = f.cachedLike(viewer, post.ID)
	return &view
}

// Posts returns a snapshot of the annotated posts
func (f *Feed) Posts() []PostView {
	f.lock.Lock()
	defer f.lock.Unlock()
	return lo.Map(f.posts, func(v *PostView, _ int) PostView { return v.clone() })
}

func (f *Feed) Post(postID string) (PostView, bool) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if v := f.find(postID); v != nil {
		return v.clone(), true
	}
	return PostView{}, false
}

// Total is the server's count of posts for a paged source
func (f *Feed) Total() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.total
}

func (f *Feed) Source() Source {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.source
}

// find must be called with the lock held
func (f *Feed) find(postID string) *PostView {
	for _, v := range f.posts {
		if v.Post.ID == postID {
			return v
		}
	}
	return nil
}

// Invalidate forgets cached like state and drops in-flight responses.
// It runs on navigation.
func (f *Feed) Invalidate() {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.closed {
		return
	}
	f.generation++
	f.likes.Clear()
}

// Close unmounts the feed; later responses are ignored
func (f *Feed) Close() {
	f.lock.Lock()
	defer f.lock.Unlock()
	if !f.closed {
		f.closed = true
		f.likes.Stop()
	}
}

// Edit moves a post into the Editing state with a draft of its fields
func (f *Feed) Edit(postID string) (api.PostDraft, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	v := f.find(postID)
	if v == nil {
		return api.PostDraft{}, ErrUnknownPost
	}
	if !v.CanEdit {
		return api.PostDraft{}, fmt.Errorf("%w: editing %s", ErrNotPermitted, postID)
	}
	if v.Mode != Editing {
		draft := api.DraftOf(v.Post)
		v.Draft = &draft
		v.Mode = Editing
	}
	return *v.Draft, nil
}

// UpdateDraft replaces the local draft of a post being edited
func (f *Feed) UpdateDraft(postID string, draft api.PostDraft) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	v := f.find(postID)
	if v == nil {
		return ErrUnknownPost
	}
	if v.Mode != Editing {
		return ErrNotEditing
	}
	v.Draft = &draft
	return nil
}

// Cancel discards the draft without contacting the backend
func (f *Feed) Cancel(postID string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	v := f.find(postID)
	if v == nil {
		return ErrUnknownPost
	}
	v.Mode = Viewing
	v.Draft = nil
	return nil
}

// Save sends the draft. On success the server's fields replace the local
// ones; on failure the post stays in Editing with its draft.
func (f *Feed) Save(ctx context.Context, postID string) error {
	f.lock.Lock()
	v := f.find(postID)
	if v == nil {
		f.lock.Unlock()
		return ErrUnknownPost
	}
	if v.Mode != Editing || v.Draft == nil {
		f.lock.Unlock()
		return ErrNotEditing
	}
	draft := *v.Draft
	original := v.Post
	generation := f.generation
	f.lock.Unlock()

	updated, err := f.backend.EditPost(ctx, postID, draft)
	if err != nil {
		return err
	}
	if updated.ID == "" {
		updated = original
		updated.Title = draft.Title
		updated.Description = draft.Description
		updated.ContentType = draft.ContentType
		updated.Content = draft.Content
		updated.Visibility = draft.Visibility
	}

	f.lock.Lock()
	defer f.lock.Unlock()
	if f.stale(generation) {
		return ErrStale
	}
	if v = f.find(postID); v == nil {
		return ErrUnknownPost
	}
	v.apply(updated)
	v.Mode = Viewing
	v.Draft = nil
	return nil
}

// Delete removes a post once the backend confirms the deletion
func (f *Feed) Delete(ctx context.Context, postID string) error {
	f.lock.Lock()
	v := f.find(postID)
	if v == nil {
		f.lock.Unlock()
		return ErrUnknownPost
	}
	if !v.CanDelete {
		f.lock.Unlock()
		return fmt.Errorf("%w: deleting %s", ErrNotPermitted, postID)
	}
	generation := f.generation
	f.lock.Unlock()

	if err := f.backend.DeletePost(ctx, postID); err != nil {
		return err
	}
	telemetry.Increment("posts_deleted", 1)

	f.lock.Lock()
	defer f.lock.Unlock()
	if f.stale(generation) {
		return ErrStale
	}
	f.posts = lo.Reject(f.posts, func(v *PostView, _ int) bool { return v.Post.ID == postID })
	return nil
}
