// Package directory caches author profiles by id
package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/marshaler"
	"github.com/eko/gocache/lib/v4/store"
	ristrettostore "github.com/eko/gocache/store/ristretto/v4"
	"github.com/tkrehbiel/distrolace/client/api"
	"github.com/tkrehbiel/distrolace/client/telemetry"
)

type Backend interface {
	AuthorURL(id string) string
	Author(ctx context.Context, id string, opts ...api.RequestOption) (api.Author, error)
	SearchAuthors(ctx context.Context, keyword string) ([]api.Author, error)
}

type Directory struct {
	backend Backend
	local   *ristretto.Cache
	marshal *marshaler.Marshaler
	ttl     time.Duration
}

func New(backend Backend, ttl time.Duration) (*Directory, error) {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	local, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10000,
		MaxCost:     1000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("creating author cache: %w", err)
	}
	cacheManager := cache.New[any](ristrettostore.NewRistretto(local))
	return &Directory{
		backend: backend,
		local:   local,
		marshal: marshaler.New(cacheManager),
		ttl:     ttl,
	}, nil
}

func (d *Directory) key(id string) string {
	return "author#" + d.backend.AuthorURL(id)
}

// Author returns a profile, from the cache when it is fresh
func (d *Directory) Author(ctx context.Context, id string) (api.Author, error) {
	key := d.key(id)
	if cached, err := d.marshal.Get(ctx, key, new(api.Author)); err == nil {
		telemetry.Increment("directory_hits", 1)
		return *cached.(*api.Author), nil
	}

	author, err := d.backend.Author(ctx, id)
	if err != nil {
		return author, err
	}
	d.remember(ctx, key, author)
	return author, nil
}

// Remember stores a profile obtained elsewhere
func (d *Directory) Remember(ctx context.Context, author api.Author) {
	if author.ID != "" {
		d.remember(ctx, d.key(author.ID), author)
	}
}

func (d *Directory) remember(ctx context.Context, key string, author api.Author) {
	if err := d.marshal.Set(ctx, key, author, store.WithExpiration(d.ttl), store.WithCost(1)); err != nil {
		telemetry.Error(err, "caching author %s", key)
		return
	}
	d.local.Wait()
}

// Search always asks the backend
func (d *Directory) Search(ctx context.Context, keyword string) ([]api.Author, error) {
	return d.backend.SearchAuthors(ctx, keyword)
}

// Forget drops a cached profile, after an edit for instance
func (d *Directory) Forget(ctx context.Context, id string) {
	if err := d.marshal.Delete(ctx, d.key(id)); err != nil {
		telemetry.Error(err, "forgetting author %s", id)
	}
}

func (d *Directory) Close() {
	d.local.Close()
}
