package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

func (c *Client) AuthorPosts(ctx context.Context, authorID string, opts ...RequestOption) ([]Post, error) {
	var posts postList
	err := c.do(ctx, call{
		method: http.MethodGet,
		url:    c.AuthorURL(authorID) + "posts/",
		opts:   opts,
	}, &posts)
	return posts, err
}

func (c *Client) CreatePost(ctx context.Context, authorID string, draft PostDraft) (Post, error) {
	var post Post
	if err := Validate(draft); err != nil {
		return post, err
	}
	err := c.do(ctx, call{
		method:    http.MethodPost,
		url:       c.AuthorURL(authorID) + "posts/",
		body:      draft,
		protected: true,
	}, &post)
	return post, err
}

func (c *Client) Post(ctx context.Context, postID string) (Post, error) {
	var post Post
	err := c.do(ctx, call{
		method: http.MethodGet,
		url:    withSlash(c.objectURL(postID)),
	}, &post)
	return post, err
}

func (c *Client) EditPost(ctx context.Context, postID string, draft PostDraft) (Post, error) {
	var post Post
	if err := Validate(draft); err != nil {
		return post, err
	}
	err := c.do(ctx, call{
		method:    http.MethodPut,
		url:       withSlash(c.objectURL(postID)),
		body:      draft,
		protected: true,
	}, &post)
	return post, err
}

// SharePost reposts a shareable post as the session author. The backend
// answers with the new post.
func (c *Client) SharePost(ctx context.Context, postID string) (Post, error) {
	var post Post
	err := c.do(ctx, call{
		method:    http.MethodPost,
		url:       c.endpoint("/api/posts/" + url.PathEscape(lastSegment(postID)) + "/share/"),
		form:      url.Values{},
		protected: true,
	}, &post)
	return post, err
}

func (c *Client) DeletePost(ctx context.Context, postID string) error {
	return c.do(ctx, call{
		method:    http.MethodDelete,
		url:       withSlash(c.objectURL(postID)),
		protected: true,
	}, nil)
}

// Stream returns one page of the viewer's personalized stream
func (c *Client) Stream(ctx context.Context, authorID string, page int) (StreamPage, error) {
	var stream StreamPage
	if page < 1 {
		page = 1
	}
	err := c.do(ctx, call{
		method:    http.MethodGet,
		url:       c.AuthorURL(authorID) + "stream/?page=" + strconv.Itoa(page),
		protected: true,
	}, &stream)
	return stream, err
}

func (c *Client) PublicPosts(ctx context.Context) ([]Post, error) {
	var posts postList
	err := c.do(ctx, call{
		method: http.MethodGet,
		url:    c.endpoint("/api/authors/posts/public/"),
	}, &posts)
	return posts, err
}
