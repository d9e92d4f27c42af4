package api

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) Login(ctx context.Context, form LoginForm) (LoginResult, error) {
	var result LoginResult
	if err := Validate(form); err != nil {
		return result, err
	}
	err := c.do(ctx, call{
		method: http.MethodPost,
		url:    c.endpoint("/api/authors/login/"),
		form:   url.Values{"username": {form.Username}, "password": {form.Password}},
	}, &result)
	return result, err
}

func (c *Client) Signup(ctx context.Context, form SignupForm) (LoginResult, error) {
	var result LoginResult
	if err := Validate(form); err != nil {
		return result, err
	}
	values := url.Values{
		"username":     {form.Username},
		"password":     {form.Password},
		"display_name": {form.DisplayName},
	}
	if form.Github != "" {
		values.Set("github", form.Github)
	}
	err := c.do(ctx, call{
		method: http.MethodPost,
		url:    c.endpoint("/api/authors/signup/"),
		form:   values,
	}, &result)
	return result, err
}

// Logout ends the server-side session; local state is the caller's concern
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, call{
		method:    http.MethodPost,
		url:       c.endpoint("/api/authors/logout/"),
		form:      url.Values{},
		protected: true,
	}, nil)
}

func (c *Client) Author(ctx context.Context, id string, opts ...RequestOption) (Author, error) {
	var author Author
	err := c.do(ctx, call{
		method: http.MethodGet,
		url:    c.AuthorURL(id),
		opts:   opts,
	}, &author)
	return author, err
}

// UpdateProfile edits an author's profile. Empty form fields are left
// unchanged.
func (c *Client) UpdateProfile(ctx context.Context, id string, form ProfileForm) (Author, error) {
	var author Author
	if err := Validate(form); err != nil {
		return author, err
	}
	values := url.Values{}
	for key, value := range map[string]string{
		"displayName":  form.DisplayName,
		"github":       form.Github,
		"profileImage": form.ProfileImage,
	} {
		if value != "" {
			values.Set(key, value)
		}
	}
	err := c.do(ctx, call{
		method:    http.MethodPut,
		url:       c.AuthorURL(id),
		form:      values,
		protected: true,
	}, &author)
	return author, err
}

func (c *Client) SearchAuthors(ctx context.Context, keyword string) ([]Author, error) {
	var authors authorList
	err := c.do(ctx, call{
		method: http.MethodGet,
		url:    c.endpoint("/api/authors/search/") + "?" + url.Values{"keyword": {keyword}}.Encode(),
	}, &authors)
	return authors, err
}
