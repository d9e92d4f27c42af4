package feed

import (
	"context"
	"sort"

	"github.com/samber/lo"
	"github.com/tkrehbiel/distrolace/client/api"
	"github.com/tkrehbiel/distrolace/client/telemetry"
)

func commentKey(c api.Comment) string {
	if c.ID != "" {
		return c.ID
	}
	return c.Author.ID + "|" + c.Published.String() + "|" + c.Comment
}

// merge flattens loaded pages in page order, then locally added
// comments, without repeating a comment.
func (v *PostView) merge() {
	numbers := lo.Keys(v.pages)
	sort.Ints(numbers)
	all := make([]api.Comment, 0)
	for _, n := range numbers {
		all = append(all, v.pages[n]...)
	}
	all = append(all, v.added...)
	v.Comments = lo.UniqBy(all, commentKey)
}

// LoadComments fetches one page of a post's comments. Each call stands
// alone: any page may be loaded in any order, and reloading a page
// replaces it.
func (f *Feed) LoadComments(ctx context.Context, postID string, page int) ([]api.Comment, error) {
	if page < 1 {
		page = 1
	}
	f.lock.Lock()
	if f.find(postID) == nil {
		f.lock.Unlock()
		return nil, ErrUnknownPost
	}
	generation := f.generation
	f.lock.Unlock()

	result, err := f.backend.Comments(ctx, postID, page)
	if err != nil {
		return nil, err
	}

	f.lock.Lock()
	defer f.lock.Unlock()
	if f.stale(generation) {
		return nil, ErrStale
	}
	v := f.find(postID)
	if v == nil {
		return nil, ErrUnknownPost
	}
	if v.pages == nil {
		v.pages = make(map[int][]api.Comment)
	}
	v.pages[page] = result.Src
	v.CommentsNum = result.Count
	if page > v.lastPage {
		v.lastPage = page
	}
	v.merge()
	return append([]api.Comment(nil), v.Comments...), nil
}

// LoadMoreComments loads the page after the highest one loaded so far
func (f *Feed) LoadMoreComments(ctx context.Context, postID string) ([]api.Comment, error) {
	f.lock.Lock()
	v := f.find(postID)
	if v == nil {
		f.lock.Unlock()
		return nil, ErrUnknownPost
	}
	next := v.lastPage + 1
	f.lock.Unlock()
	return f.LoadComments(ctx, postID, next)
}

// CanLoadMore reports whether fewer comments are loaded than exist
func (f *Feed) CanLoadMore(postID string) bool {
	f.lock.Lock()
	defer f.lock.Unlock()
	v := f.find(postID)
	return v != nil && v.CanLoadMore()
}

// AddComment posts a comment and appends it to the loaded comments
func (f *Feed) AddComment(ctx context.Context, postID, text string) (api.Comment, error) {
	if f.session.CurrentAuthorID() == "" {
		return api.Comment{}, &api.Error{Kind: api.ErrUnauthenticated}
	}
	f.lock.Lock()
	if f.find(postID) == nil {
		f.lock.Unlock()
		return api.Comment{}, ErrUnknownPost
	}
	generation := f.generation
	f.lock.Unlock()

	comment, err := f.backend.AddComment(ctx, postID, api.CommentForm{Comment: text})
	if err != nil {
		return comment, err
	}
	telemetry.Increment("comments", 1)

	f.lock.Lock()
	defer f.lock.Unlock()
	if f.stale(generation) {
		return comment, ErrStale
	}
	if v := f.find(postID); v != nil {
		v.added = append(v.added, comment)
		v.CommentsNum++
		v.merge()
	}
	return comment, nil
}
