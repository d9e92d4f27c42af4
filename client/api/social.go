package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// CommentsPageSize is the backend's fixed page size for comments and likes
const CommentsPageSize = 5

// Like records a like by authorID on a post
func (c *Client) Like(ctx context.Context, postID, authorID string) error {
	return c.do(ctx, call{
		method:    http.MethodPost,
		url:       join(c.objectURL(postID), "like"),
		form:      url.Values{"author": {authorID}},
		protected: true,
	}, nil)
}

func (c *Client) Likes(ctx context.Context, postID string) (LikePage, error) {
	var page LikePage
	err := c.do(ctx, call{
		method: http.MethodGet,
		url:    join(c.objectURL(postID), "likes"),
	}, &page)
	return page, err
}

// Liked asks whether authorID has already liked a post
func (c *Client) Liked(ctx context.Context, authorID, postID string) (bool, error) {
	var result struct {
		Liked bool `json:"liked"`
	}
	err := c.do(ctx, call{
		method:    http.MethodGet,
		url:       c.AuthorURL(authorID) + "liked/" + url.PathEscape(lastSegment(postID)),
		protected: true,
	}, &result)
	return result.Liked, err
}

func (c *Client) Comments(ctx context.Context, postID string, page int) (CommentPage, error) {
	var comments CommentPage
	if page < 1 {
		page = 1
	}
	err := c.do(ctx, call{
		method: http.MethodGet,
		url:    join(c.objectURL(postID), "comments") + "?page=" + strconv.Itoa(page),
	}, &comments)
	return comments, err
}

func (c *Client) AddComment(ctx context.Context, postID string, form CommentForm) (Comment, error) {
	var comment Comment
	if form.ContentType == "" {
		form.ContentType = ContentTypePlain
	}
	if err := Validate(form); err != nil {
		return comment, err
	}
	err := c.do(ctx, call{
		method:    http.MethodPost,
		url:       join(c.objectURL(postID), "comments"),
		body:      form,
		protected: true,
	}, &comment)
	return comment, err
}
