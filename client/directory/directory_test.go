package directory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tkrehbiel/distrolace/client/api"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) AuthorURL(id string) string {
	return "http://home.example/api/authors/" + id + "/"
}

func (m *mockBackend) Author(ctx context.Context, id string, opts ...api.RequestOption) (api.Author, error) {
	args := m.Called(id)
	return args.Get(0).(api.Author), args.Error(1)
}

func (m *mockBackend) SearchAuthors(ctx context.Context, keyword string) ([]api.Author, error) {
	args := m.Called(keyword)
	return args.Get(0).([]api.Author), args.Error(1)
}

func newDirectory(t *testing.T, backend Backend) *Directory {
	d, err := New(backend, time.Minute)
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d
}

func TestAuthor_Cached(t *testing.T) {
	backend := &mockBackend{}
	backend.On("Author", "1").Return(api.Author{ID: "1", DisplayName: "One"}, nil).Once()
	d := newDirectory(t, backend)

	author, err := d.Author(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "One", author.DisplayName)

	author, err = d.Author(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "One", author.DisplayName)
	backend.AssertNumberOfCalls(t, "Author", 1)
}

func TestAuthor_Forget(t *testing.T) {
	backend := &mockBackend{}
	backend.On("Author", "1").Return(api.Author{ID: "1", DisplayName: "One"}, nil)
	d := newDirectory(t, backend)

	_, err := d.Author(context.Background(), "1")
	require.NoError(t, err)
	d.Forget(context.Background(), "1")
	_, err = d.Author(context.Background(), "1")
	require.NoError(t, err)
	backend.AssertNumberOfCalls(t, "Author", 2)
}

func TestAuthor_ErrorNotCached(t *testing.T) {
	backend := &mockBackend{}
	backend.On("Author", "2").Return(api.Author{}, &api.Error{Kind: api.ErrNotFound})
	d := newDirectory(t, backend)

	_, err := d.Author(context.Background(), "2")
	assert.ErrorIs(t, err, api.ErrNotFound)
	_, err = d.Author(context.Background(), "2")
	assert.ErrorIs(t, err, api.ErrNotFound)
	backend.AssertNumberOfCalls(t, "Author", 2)
}

func TestSearch(t *testing.T) {
	backend := &mockBackend{}
	backend.On("SearchAuthors", "al").Return([]api.Author{{ID: "1"}, {ID: "2"}}, nil)
	d := newDirectory(t, backend)

	authors, err := d.Search(context.Background(), "al")
	require.NoError(t, err)
	assert.Len(t, authors, 2)
}

func TestRemember_ReplacesCachedProfile(t *testing.T) {
	backend := &mockBackend{}
	backend.On("Author", "1").Return(api.Author{ID: "1", DisplayName: "One"}, nil).Once()
	d := newDirectory(t, backend)

	_, err := d.Author(context.Background(), "1")
	require.NoError(t, err)
	d.Remember(context.Background(), api.Author{ID: "1", DisplayName: "Uno"})
	d.Remember(context.Background(), api.Author{DisplayName: "nobody"})

	author, err := d.Author(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Uno", author.DisplayName)
	backend.AssertNumberOfCalls(t, "Author", 1)
}
