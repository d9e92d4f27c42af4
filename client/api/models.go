package api

import (
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Visibility string

const (
	VisibilityPublic   Visibility = "PUBLIC"
	VisibilityFriends  Visibility = "FRIENDS"
	VisibilityUnlisted Visibility = "UNLISTED"
)

// Post content types the backend accepts
const (
	ContentTypePlain    = "text/plain"
	ContentTypeMarkdown = "text/markdown"
	ContentTypePNG      = "image/png;base64"
	ContentTypeJPEG     = "image/jpeg;base64"
)

type Author struct {
	Type         string `json:"type,omitempty"`
	ID           string `json:"id"`
	URL          string `json:"url,omitempty"`
	Host         string `json:"host,omitempty"`
	DisplayName  string `json:"displayName,omitempty"`
	Username     string `json:"username,omitempty"`
	Github       string `json:"github,omitempty"`
	ProfileImage string `json:"profileImage,omitempty"`
	Page         string `json:"page,omitempty"`
}

// UnmarshalJSON accepts both the summary (camelCase, URL id) and the
// full (snake_case, numeric id) author representations.
func (a *Author) UnmarshalJSON(b []byte) error {
	type plain Author
	aux := struct {
		*plain
		ID              flexString `json:"id"`
		DisplayNameAlt  string     `json:"display_name"`
		ProfileImageAlt string     `json:"profile_image"`
	}{plain: (*plain)(a)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	a.ID = string(aux.ID)
	if a.DisplayName == "" {
		a.DisplayName = aux.DisplayNameAlt
	}
	if a.ProfileImage == "" {
		a.ProfileImage = aux.ProfileImageAlt
	}
	return nil
}

type Post struct {
	Type        string      `json:"type,omitempty"`
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	ContentType string      `json:"contentType"`
	Content     string      `json:"content"`
	Author      Author      `json:"author"`
	Published   time.Time   `json:"published"`
	Visibility  Visibility  `json:"visibility"`
	Comments    CommentPage `json:"comments"`
	Likes       LikePage    `json:"likes"`
	Shared      bool        `json:"is_shared,omitempty"`
	SharesCount int         `json:"shares_count,omitempty"`
}

// UnmarshalJSON accepts an author given either as an object or as a bare id
func (p *Post) UnmarshalJSON(b []byte) error {
	type plain Post
	aux := struct {
		*plain
		Author jsoniter.RawMessage `json:"author"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	raw := strings.TrimSpace(string(aux.Author))
	switch {
	case raw == "" || raw == "null":
	case raw[0] == '{':
		if err := json.Unmarshal(aux.Author, &p.Author); err != nil {
			return err
		}
	default:
		var id flexString
		if err := json.Unmarshal(aux.Author, &id); err != nil {
			return err
		}
		p.Author = Author{ID: string(id)}
	}
	return nil
}

type Comment struct {
	Type        string    `json:"type,omitempty"`
	ID          string    `json:"id"`
	Author      Author    `json:"author"`
	Comment     string    `json:"comment"`
	ContentType string    `json:"contentType"`
	Published   time.Time `json:"published"`
	Post        string    `json:"post,omitempty"`
}

// CommentPage is one page of a post's comments, with the total count
type CommentPage struct {
	Type       string    `json:"type,omitempty"`
	ID         string    `json:"id,omitempty"`
	PageNumber int       `json:"page_number"`
	Size       int       `json:"size"`
	Count      int       `json:"count"`
	Src        []Comment `json:"src"`
}

type Like struct {
	Type      string    `json:"type,omitempty"`
	ID        string    `json:"id,omitempty"`
	Author    Author    `json:"author"`
	Published time.Time `json:"published"`
	Object    string    `json:"object"`
}

type LikePage struct {
	Type       string `json:"type,omitempty"`
	ID         string `json:"id,omitempty"`
	PageNumber int    `json:"page_number"`
	Size       int    `json:"size"`
	Count      int    `json:"count"`
	Src        []Like `json:"src"`
}

// StreamPage is a page of the personalized stream
type StreamPage struct {
	Count    int    `json:"count"`
	Next     string `json:"next"`
	Previous string `json:"previous"`
	Results  []Post `json:"results"`
}

// LoginResult is what login and signup return
type LoginResult struct {
	Token    string     `json:"token"`
	AuthorID flexString `json:"userId"`
}

// flexString decodes a JSON string or number into a string
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == "" {
		return nil
	}
	if s[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*f = flexString(str)
		return nil
	}
	*f = flexString(s)
	return nil
}

// postList decodes either a bare array or one of the wrapped list shapes
type postList []Post

func (l *postList) UnmarshalJSON(b []byte) error {
	if s := strings.TrimSpace(string(b)); len(s) > 0 && s[0] == '[' {
		var posts []Post
		if err := json.Unmarshal(b, &posts); err != nil {
			return err
		}
		*l = posts
		return nil
	}
	var wrapped struct {
		Results []Post `json:"results"`
		Posts   []Post `json:"posts"`
		Items   []Post `json:"items"`
		Src     []Post `json:"src"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return err
	}
	*l = firstNonNil(wrapped.Results, wrapped.Posts, wrapped.Items, wrapped.Src)
	return nil
}

type authorList []Author

func (l *authorList) UnmarshalJSON(b []byte) error {
	if s := strings.TrimSpace(string(b)); len(s) > 0 && s[0] == '[' {
		var authors []Author
		if err := json.Unmarshal(b, &authors); err != nil {
			return err
		}
		*l = authors
		return nil
	}
	var wrapped struct {
		Followers []Author `json:"followers"`
		Following []Author `json:"following"`
		Friends   []Author `json:"friends"`
		Authors   []Author `json:"authors"`
		Items     []Author `json:"items"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return err
	}
	*l = firstNonNil(wrapped.Followers, wrapped.Following, wrapped.Friends, wrapped.Authors, wrapped.Items)
	return nil
}

func firstNonNil[T any](lists ...[]T) []T {
	for _, l := range lists {
		if l != nil {
			return l
		}
	}
	return []T{}
}
