package feed

import (
	"strings"

	"github.com/tkrehbiel/distrolace/client/api"
	"github.com/tkrehbiel/distrolace/client/content"
)

type Mode int

const (
	Viewing Mode = iota
	Editing
)

func (m Mode) String() string {
	if m == Editing {
		return "editing"
	}
	return "viewing"
}

// PostView is a post annotated with what the viewer may do with it
type PostView struct {
	Post      api.Post
	Content   content.PostContent
	IsOwn     bool
	CanEdit   bool
	CanDelete bool
	CanShare  bool
	Badge     api.Visibility

	Liked       bool
	LikeCount   int
	Comments    []api.Comment
	CommentsNum int

	Mode  Mode
	Draft *api.PostDraft

	pages    map[int][]api.Comment
	added    []api.Comment
	lastPage int
}

// Annotate computes a post's permissions for viewerID
func Annotate(post api.Post, viewerID string) PostView {
	own := viewerID != "" && trimID(post.Author.ID) == trimID(viewerID)
	return PostView{
		Post:        post,
		Content:     content.Parse(post.ContentType, post.Content),
		IsOwn:       own,
		CanEdit:     own,
		CanDelete:   own,
		CanShare:    shareable(post.Visibility),
		Badge:       post.Visibility,
		LikeCount:   post.Likes.Count,
		CommentsNum: post.Comments.Count,
	}
}

// AnnotateNormalized is Annotate with both author ids passed through
// normalize first, so a bare id and a fully qualified id of the same
// author compare equal. The returned view keeps the post as given.
func AnnotateNormalized(post api.Post, viewerID string, normalize func(string) string) PostView {
	probe := post
	if probe.Author.ID != "" {
		probe.Author.ID = normalize(probe.Author.ID)
	}
	if viewerID != "" {
		viewerID = normalize(viewerID)
	}
	view := Annotate(probe, viewerID)
	view.Post = post
	return view
}

func shareable(v api.Visibility) bool {
	return v == api.VisibilityPublic || v == api.VisibilityUnlisted
}

func trimID(id string) string {
	return strings.TrimSuffix(id, "/")
}

// CanLoadMore reports whether more comments remain on the server
func (v PostView) CanLoadMore() bool {
	return len(v.Comments) < v.CommentsNum
}

// clone copies the view so callers cannot reach into the feed's state
func (v *PostView) clone() PostView {
	c := *v
	c.Comments = append([]api.Comment(nil), v.Comments...)
	if v.Draft != nil {
		d := *v.Draft
		c.Draft = &d
	}
	c.pages = nil
	c.added = nil
	return c
}

// apply commits server-confirmed post fields
func (v *PostView) apply(post api.Post) {
	v.Post = post
	v.Content = content.Parse(post.ContentType, post.Content)
	v.CanShare = shareable(post.Visibility)
	v.Badge = post.Visibility
}
