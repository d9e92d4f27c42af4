package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tkrehbiel/distrolace/client/api"
	"github.com/tkrehbiel/distrolace/client/relationship"
)

type fakeBackend struct {
	postsErr  error
	updates   []api.ProfileForm
	updateErr error
}

func (b *fakeBackend) UpdateProfile(ctx context.Context, id string, form api.ProfileForm) (api.Author, error) {
	if b.updateErr != nil {
		return api.Author{}, b.updateErr
	}
	b.updates = append(b.updates, form)
	return api.Author{ID: id, DisplayName: form.DisplayName, Github: form.Github}, nil
}

func (b *fakeBackend) AuthorURL(id string) string {
	return "http://home.example/api/authors/" + id + "/"
}

func (b *fakeBackend) AuthorPosts(ctx context.Context, authorID string, opts ...api.RequestOption) ([]api.Post, error) {
	if b.postsErr != nil {
		return nil, b.postsErr
	}
	return []api.Post{{ID: "p1", Author: api.Author{ID: authorID}, Visibility: api.VisibilityPublic}}, nil
}

func (b *fakeBackend) Followers(ctx context.Context, authorID string) ([]api.Author, error) {
	return []api.Author{{ID: "a"}, {ID: "b"}}, nil
}

func (b *fakeBackend) Following(ctx context.Context, authorID string) ([]api.Author, error) {
	return []api.Author{{ID: "a"}}, nil
}

func (b *fakeBackend) Friends(ctx context.Context, authorID string) ([]api.Author, error) {
	return nil, errors.New("boom")
}

type fakeAuthors map[string]api.Author

func (f fakeAuthors) Remember(ctx context.Context, author api.Author) {
	f[author.ID] = author
}

func (f fakeAuthors) Author(ctx context.Context, id string) (api.Author, error) {
	if a, ok := f[id]; ok {
		return a, nil
	}
	return api.Author{}, &api.Error{Kind: api.ErrNotFound}
}

type fakeResolver struct {
	state    relationship.State
	resolved int
}

func (r *fakeResolver) Resolve(ctx context.Context, viewerID, targetID string) relationship.State {
	r.resolved++
	if viewerID == targetID {
		return relationship.Self
	}
	return r.state
}

func (r *fakeResolver) Follow(ctx context.Context, viewerID, targetID string) (relationship.State, error) {
	r.state = relationship.Requested
	return r.state, nil
}

func (r *fakeResolver) Unfollow(ctx context.Context, viewerID, targetID string) (relationship.State, error) {
	r.state = relationship.None
	return r.state, nil
}

type fakeSession string

func (s fakeSession) CurrentAuthorID() string { return string(s) }

func testAuthors() fakeAuthors {
	return fakeAuthors{
		"1": {ID: "1", DisplayName: "One"},
		"2": {ID: "2", DisplayName: "Two"},
	}
}

func TestActionsFor(t *testing.T) {
	assert.Equal(t, Actions{CanEditProfile: true}, ActionsFor(relationship.Self, true))
	assert.Equal(t, Actions{CanFollow: true}, ActionsFor(relationship.None, true))
	assert.Equal(t, Actions{CanUnfollow: true}, ActionsFor(relationship.Following, true))
	assert.Equal(t, Actions{CanUnfollow: true}, ActionsFor(relationship.Friends, true))
	assert.Equal(t, Actions{CanCancelRequest: true}, ActionsFor(relationship.Requested, true))
	assert.Equal(t, Actions{}, ActionsFor(relationship.None, false))
}

func TestLoad_Self(t *testing.T) {
	resolver := &fakeResolver{state: relationship.None}
	l := NewLoader(&fakeBackend{}, testAuthors(), resolver, fakeSession("1"))

	p, err := l.Load(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "One", p.Author.DisplayName)
	assert.Equal(t, relationship.Self, p.Relationship)
	assert.True(t, p.Actions.CanEditProfile)
	require.Len(t, p.Posts, 1)
	assert.True(t, p.Posts[0].CanEdit)
	assert.Equal(t, 2, p.Followers)
	assert.Equal(t, 1, p.Following)
	assert.Equal(t, 0, p.Friends)
}

func TestLoad_FollowUnfollow(t *testing.T) {
	resolver := &fakeResolver{state: relationship.None}
	l := NewLoader(&fakeBackend{}, testAuthors(), resolver, fakeSession("1"))

	p, err := l.Load(context.Background(), "2")
	require.NoError(t, err)
	assert.True(t, p.Actions.CanFollow)
	assert.False(t, p.Posts[0].CanEdit)

	require.NoError(t, l.Follow(context.Background(), p))
	assert.Equal(t, relationship.Requested, p.Relationship)
	assert.True(t, p.Actions.CanCancelRequest)
	assert.ErrorIs(t, l.Follow(context.Background(), p), relationship.ErrInvalidTransition)

	require.NoError(t, l.Unfollow(context.Background(), p))
	assert.True(t, p.Actions.CanFollow)
	assert.ErrorIs(t, l.Unfollow(context.Background(), p), relationship.ErrInvalidTransition)
}

func TestLoad_Anonymous(t *testing.T) {
	resolver := &fakeResolver{state: relationship.Friends}
	l := NewLoader(&fakeBackend{}, testAuthors(), resolver, fakeSession(""))

	p, err := l.Load(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, relationship.None, p.Relationship)
	assert.Equal(t, Actions{}, p.Actions)
	assert.Equal(t, 0, resolver.resolved)
}

func TestLoad_Failures(t *testing.T) {
	l := NewLoader(&fakeBackend{postsErr: errors.New("down")}, testAuthors(), &fakeResolver{state: relationship.None}, fakeSession("1"))

	p, err := l.Load(context.Background(), "2")
	require.NoError(t, err)
	assert.Empty(t, p.Posts)

	_, err = l.Load(context.Background(), "404")
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestUpdateProfile(t *testing.T) {
	backend := &fakeBackend{}
	directory := testAuthors()
	l := NewLoader(backend, directory, &fakeResolver{state: relationship.None}, fakeSession("1"))

	other, err := l.Load(context.Background(), "2")
	require.NoError(t, err)
	assert.ErrorIs(t, l.UpdateProfile(context.Background(), other, api.ProfileForm{DisplayName: "Nope"}), ErrNotPermitted)

	self, err := l.Load(context.Background(), "1")
	require.NoError(t, err)
	require.NoError(t, l.UpdateProfile(context.Background(), self, api.ProfileForm{}))
	assert.Empty(t, backend.updates)

	require.NoError(t, l.UpdateProfile(context.Background(), self, api.ProfileForm{DisplayName: "Uno", Github: "https://github.com/uno"}))
	assert.Equal(t, "Uno", self.Author.DisplayName)
	assert.Equal(t, "Uno", directory["1"].DisplayName)
	require.Len(t, backend.updates, 1)

	// a failed save leaves the profile alone
	backend.updateErr = &api.Error{Kind: api.ErrValidation, Messages: []string{"github: invalid"}}
	assert.ErrorIs(t, l.UpdateProfile(context.Background(), self, api.ProfileForm{Github: "x"}), api.ErrValidation)
	assert.Equal(t, "https://github.com/uno", self.Author.Github)

	reloaded, err := l.Load(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Uno", reloaded.Author.DisplayName)
}
