package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Follow asks to follow target on behalf of follower
func (c *Client) Follow(ctx context.Context, followerID, targetID string) error {
	return c.do(ctx, call{
		method:    http.MethodPost,
		url:       c.endpoint("/api/authors/follow/"),
		form:      url.Values{"user": {targetID}, "follower": {followerID}},
		protected: true,
	}, nil)
}

func (c *Client) Unfollow(ctx context.Context, followerID, targetID string) error {
	return c.do(ctx, call{
		method:    http.MethodDelete,
		url:       c.AuthorURL(followerID) + "following/",
		form:      url.Values{"user": {targetID}},
		protected: true,
	}, nil)
}

func (c *Client) Followers(ctx context.Context, authorID string) ([]Author, error) {
	return c.authors(ctx, c.AuthorURL(authorID)+"followers/")
}

func (c *Client) Following(ctx context.Context, authorID string) ([]Author, error) {
	return c.authors(ctx, c.AuthorURL(authorID)+"following/")
}

func (c *Client) Friends(ctx context.Context, authorID string) ([]Author, error) {
	return c.authors(ctx, c.AuthorURL(authorID)+"friends/")
}

func (c *Client) FollowRequests(ctx context.Context, authorID string) ([]Author, error) {
	var authors authorList
	err := c.do(ctx, call{
		method:    http.MethodGet,
		url:       c.AuthorURL(authorID) + "follow_requests/",
		protected: true,
	}, &authors)
	return authors, err
}

func (c *Client) authors(ctx context.Context, u string) ([]Author, error) {
	var authors authorList
	err := c.do(ctx, call{method: http.MethodGet, url: u}, &authors)
	return authors, err
}

func (c *Client) AcceptFollowRequest(ctx context.Context, authorID, followerID string) error {
	return c.do(ctx, call{
		method:    http.MethodPut,
		url:       c.AuthorURL(authorID) + "follow_request/",
		form:      url.Values{"follower": {followerID}},
		protected: true,
	}, nil)
}

func (c *Client) RejectFollowRequest(ctx context.Context, authorID, followerID string) error {
	return c.do(ctx, call{
		method:    http.MethodDelete,
		url:       c.AuthorURL(authorID) + "follow_request/",
		form:      url.Values{"follower": {followerID}},
		protected: true,
	}, nil)
}

type relationshipResponse struct {
	Relationship string `json:"relationship"`
}

// Relationship returns the home node's raw relationship label for
// authorID looking at otherID.
func (c *Client) Relationship(ctx context.Context, authorID, otherID string) (string, error) {
	var result relationshipResponse
	err := c.do(ctx, call{
		method:    http.MethodGet,
		url:       c.AuthorURL(authorID) + "relationship/" + url.PathEscape(otherID) + "/",
		protected: true,
	}, &result)
	return result.Relationship, err
}

// RemoteRelationship asks the node at origin how viewerID relates to
// targetID. The viewer is sent fully qualified; credentials come from opts.
func (c *Client) RemoteRelationship(ctx context.Context, origin, viewerID, targetID string, opts ...RequestOption) (string, error) {
	var result relationshipResponse
	err := c.do(ctx, call{
		method: http.MethodGet,
		url: fmt.Sprintf("%s/api/authors/%s/relationship/%s/",
			origin, url.PathEscape(c.AuthorURL(viewerID)), url.PathEscape(targetID)),
		protected: true,
		opts:      opts,
	}, &result)
	return result.Relationship, err
}
