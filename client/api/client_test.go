package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Credential() string { return string(s) }

func newTestClient(t *testing.T, token string, router *mux.Router) (*Client, *httptest.Server) {
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	c, err := NewClient(Options{BaseURL: srv.URL, Timeout: 2 * time.Second}, staticToken(token))
	require.NoError(t, err)
	return c, srv
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

func TestNewClient_RequiresAbsoluteURL(t *testing.T) {
	_, err := NewClient(Options{BaseURL: "/relative"}, nil)
	assert.Error(t, err)
}

func TestClient_AuthorURL(t *testing.T) {
	c, err := NewClient(Options{BaseURL: "http://node.example/"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://node.example/api/authors/7/", c.AuthorURL("7"))
	assert.Equal(t, "http://other.example/api/authors/7/", c.AuthorURL("http://other.example/api/authors/7"))
	assert.True(t, c.SameAuthor("7", "http://node.example/api/authors/7/"))
	assert.False(t, c.SameAuthor("7", "http://other.example/api/authors/7/"))
	assert.False(t, c.SameAuthor("", ""))
	assert.Equal(t, "node.example", c.Host())
}

func TestClient_AuthorizationHeader(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/api/authors/5/stream/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Token abc", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		writeJSON(w, http.StatusOK, `{"count":1,"next":null,"previous":null,"results":[{"id":"p1","title":"t","author":5}]}`)
	})
	c, _ := newTestClient(t, "abc", router)

	page, err := c.Stream(context.Background(), "5", 2)
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "5", page.Results[0].Author.ID)
	assert.Equal(t, 1, page.Count)
}

func TestClient_ProtectedWithoutCredential(t *testing.T) {
	called := false
	router := mux.NewRouter()
	router.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	c, _ := newTestClient(t, "", router)

	_, err := c.Stream(context.Background(), "5", 1)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.True(t, IsAuthError(err))
	assert.False(t, called)
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		body   string
		kind   error
	}{
		{http.StatusUnauthorized, `{"detail":"no"}`, ErrUnauthenticated},
		{http.StatusForbidden, `{"detail":"no"}`, ErrForbidden},
		{http.StatusNotFound, `"user and/or follower does not exist"`, ErrNotFound},
		{http.StatusBadRequest, `{"errors":{"title":["required"]}}`, ErrValidation},
		{http.StatusInternalServerError, ``, ErrNetwork},
	}
	for _, tt := range tests {
		router := mux.NewRouter()
		router.HandleFunc("/api/authors/posts/public/", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, tt.status, tt.body)
		})
		c, _ := newTestClient(t, "abc", router)
		_, err := c.PublicPosts(context.Background())
		assert.ErrorIs(t, err, tt.kind, "status %d", tt.status)
		var apiErr *Error
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, tt.status, apiErr.Status)
	}
}

func TestClient_ValidationMessages(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/api/authors/signup/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"errors":{"username":["taken"],"password":["too short"]}}`)
	})
	c, _ := newTestClient(t, "", router)

	_, err := c.Signup(context.Background(), SignupForm{Username: "u", Password: "p", DisplayName: "d"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, []string{"password: too short", "username: taken"}, Messages(err))
}

func TestClient_LocalValidation(t *testing.T) {
	router := mux.NewRouter()
	c, _ := newTestClient(t, "abc", router)

	_, err := c.Login(context.Background(), LoginForm{Username: "u"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.NotEmpty(t, Messages(err))

	_, err = c.CreatePost(context.Background(), "5", PostDraft{Title: "t", Content: "c", ContentType: "text/html", Visibility: VisibilityPublic})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestClient_NetworkFailure(t *testing.T) {
	c, err := NewClient(Options{BaseURL: "http://127.0.0.1:1", Timeout: time.Second}, staticToken("abc"))
	require.NoError(t, err)
	_, err = c.PublicPosts(context.Background())
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestClient_Timeout(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/api/authors/posts/public/", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		writeJSON(w, http.StatusOK, `[]`)
	})
	srv := httptest.NewServer(router)
	defer srv.Close()
	c, err := NewClient(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, nil)
	require.NoError(t, err)

	_, err = c.PublicPosts(context.Background())
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestClient_Login(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/api/authors/login/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "alice", r.FormValue("username"))
		assert.Equal(t, "secret", r.FormValue("password"))
		writeJSON(w, http.StatusOK, `{"token":"tok","userId":12}`)
	})
	c, _ := newTestClient(t, "", router)

	result, err := c.Login(context.Background(), LoginForm{Username: "alice", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "tok", result.Token)
	assert.Equal(t, "12", string(result.AuthorID))
}

func TestClient_CSRFToken(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/api/authors/5/", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "csrf123", Path: "/"})
		writeJSON(w, http.StatusOK, `{"id":5,"display_name":"Five"}`)
	})
	router.HandleFunc("/api/authors/follow/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "csrf123", r.Header.Get("X-CSRFToken"))
		assert.Equal(t, "9", r.FormValue("user"))
		assert.Equal(t, "5", r.FormValue("follower"))
		w.WriteHeader(http.StatusCreated)
	})
	c, _ := newTestClient(t, "abc", router)

	author, err := c.Author(context.Background(), "5")
	require.NoError(t, err)
	assert.Equal(t, "5", author.ID)
	assert.Equal(t, "Five", author.DisplayName)

	assert.NoError(t, c.Follow(context.Background(), "5", "9"))
}

func TestClient_TokenNotSentCrossOrigin(t *testing.T) {
	remote := mux.NewRouter()
	remote.HandleFunc("/api/authors/3/", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `{"id":"x","displayName":"Remote"}`)
	})
	remoteSrv := httptest.NewServer(remote)
	defer remoteSrv.Close()

	c, _ := newTestClient(t, "abc", mux.NewRouter())
	author, err := c.Author(context.Background(), remoteSrv.URL+"/api/authors/3/")
	require.NoError(t, err)
	assert.Equal(t, "Remote", author.DisplayName)
}

func TestClient_Comments(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/api/authors/5/posts/p1/comments", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		writeJSON(w, http.StatusOK, `{"type":"comments","page_number":1,"size":5,"count":7,
			"src":[{"id":"c1","comment":"hi","author":{"id":"1","displayName":"A"}}]}`)
	}).Methods(http.MethodGet)
	router.HandleFunc("/api/authors/5/posts/p1/comments", func(w http.ResponseWriter, r *http.Request) {
		var form CommentForm
		require.NoError(t, json.NewDecoder(r.Body).Decode(&form))
		assert.Equal(t, "nice", form.Comment)
		assert.Equal(t, ContentTypePlain, form.ContentType)
		writeJSON(w, http.StatusCreated, `{"id":"c2","comment":"nice"}`)
	}).Methods(http.MethodPost)
	c, _ := newTestClient(t, "abc", router)

	page, err := c.Comments(context.Background(), "/api/authors/5/posts/p1", 0)
	require.NoError(t, err)
	assert.Equal(t, 7, page.Count)
	require.Len(t, page.Src, 1)
	assert.Equal(t, "A", page.Src[0].Author.DisplayName)

	comment, err := c.AddComment(context.Background(), "/api/authors/5/posts/p1", CommentForm{Comment: "nice"})
	require.NoError(t, err)
	assert.Equal(t, "c2", comment.ID)
}

func TestClient_FollowRequestDecisions(t *testing.T) {
	var methods []string
	router := mux.NewRouter()
	router.HandleFunc("/api/authors/5/follow_request/", func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		assert.Equal(t, "9", r.FormValue("follower"))
		w.WriteHeader(http.StatusOK)
	})
	router.HandleFunc("/api/authors/5/follow_requests/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[{"id":9,"display_name":"Nine"}]`)
	})
	c, _ := newTestClient(t, "abc", router)

	requests, err := c.FollowRequests(context.Background(), "5")
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, "9", requests[0].ID)

	assert.NoError(t, c.AcceptFollowRequest(context.Background(), "5", "9"))
	assert.NoError(t, c.RejectFollowRequest(context.Background(), "5", "9"))
	assert.Equal(t, []string{http.MethodPut, http.MethodDelete}, methods)
}

func TestClient_Followers(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/api/authors/5/followers/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"type":"followers","followers":[{"id":"1"},{"id":"2"}]}`)
	})
	c, _ := newTestClient(t, "", router)

	followers, err := c.Followers(context.Background(), "5")
	require.NoError(t, err)
	assert.Len(t, followers, 2)
}

func TestClient_Relationship(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/api/authors/5/relationship/9/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"relationship":"FRIENDS"}`)
	})
	c, _ := newTestClient(t, "abc", router)

	rel, err := c.Relationship(context.Background(), "5", "9")
	require.NoError(t, err)
	assert.Equal(t, "FRIENDS", rel)
}

func TestClient_RemoteRelationship(t *testing.T) {
	c, _ := newTestClient(t, "abc", mux.NewRouter())
	viewer := c.AuthorURL("5")

	remote := mux.NewRouter().UseEncodedPath()
	remote.HandleFunc("/api/authors/{viewer}/relationship/{target}/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Basic bm9kZTpwdw==", r.Header.Get("Authorization"))
		assert.Equal(t, "9", mux.Vars(r)["target"])
		assert.Contains(t, r.URL.EscapedPath(), "%2Fapi%2Fauthors%2F5%2F")
		writeJSON(w, http.StatusOK, `{"relationship":"FOLLOWING"}`)
	})
	remoteSrv := httptest.NewServer(remote)
	defer remoteSrv.Close()

	basic := func(r *http.Request) error {
		r.SetBasicAuth("node", "pw")
		return nil
	}
	rel, err := c.RemoteRelationship(context.Background(), remoteSrv.URL, viewer, "9", basic)
	require.NoError(t, err)
	assert.Equal(t, "FOLLOWING", rel)
}

func TestClient_PostLifecycle(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/api/authors/5/posts/", func(w http.ResponseWriter, r *http.Request) {
		var draft PostDraft
		require.NoError(t, json.NewDecoder(r.Body).Decode(&draft))
		assert.Equal(t, VisibilityFriends, draft.Visibility)
		writeJSON(w, http.StatusCreated, `{"id":"/api/authors/5/posts/p9","title":"t","visibility":"FRIENDS","author":{"id":"5"}}`)
	}).Methods(http.MethodPost)
	router.HandleFunc("/api/authors/5/posts/p9/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodDelete)
	c, _ := newTestClient(t, "abc", router)

	post, err := c.CreatePost(context.Background(), "5", PostDraft{
		Title: "t", Content: "c", ContentType: ContentTypePlain, Visibility: VisibilityFriends,
	})
	require.NoError(t, err)
	assert.Equal(t, "5", post.Author.ID)
	assert.NoError(t, c.DeletePost(context.Background(), post.ID))
}

func TestCollectMessages(t *testing.T) {
	var v any
	require.NoError(t, json.Unmarshal([]byte(`{"errors":["a",{"b":"c"}],"detail":"d"}`), &v))
	assert.Equal(t, []string{"d", "a", "b: c"}, collectMessages("", v))
}

func TestClient_SharePost(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/api/posts/p9/share/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Token abc", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusCreated, `{"id":"p10","title":"Shared: t","visibility":"PUBLIC","author":5,"is_shared":true}`)
	}).Methods(http.MethodPost)
	c, _ := newTestClient(t, "abc", router)

	post, err := c.SharePost(context.Background(), "/api/authors/3/posts/p9")
	require.NoError(t, err)
	assert.Equal(t, "Shared: t", post.Title)
	assert.True(t, post.Shared)
	assert.Equal(t, "5", post.Author.ID)
}

func TestClient_UpdateProfile(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/api/authors/5/", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "Ada L", r.PostForm.Get("displayName"))
		assert.Equal(t, "https://github.com/ada", r.PostForm.Get("github"))
		_, sent := r.PostForm["profileImage"]
		assert.False(t, sent)
		writeJSON(w, http.StatusOK, `{"id":"5","displayName":"Ada L","github":"https://github.com/ada"}`)
	}).Methods(http.MethodPut)
	c, _ := newTestClient(t, "abc", router)

	author, err := c.UpdateProfile(context.Background(), "5", ProfileForm{DisplayName: "Ada L", Github: "https://github.com/ada"})
	require.NoError(t, err)
	assert.Equal(t, "Ada L", author.DisplayName)

	_, err = c.UpdateProfile(context.Background(), "5", ProfileForm{Github: "not a url"})
	assert.ErrorIs(t, err, ErrValidation)
}
