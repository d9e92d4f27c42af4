// Package profile assembles everything shown on an author's profile
package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"github.com/tkrehbiel/distrolace/client/api"
	"github.com/tkrehbiel/distrolace/client/feed"
	"github.com/tkrehbiel/distrolace/client/relationship"
	"github.com/tkrehbiel/distrolace/client/telemetry"
	"golang.org/x/sync/errgroup"
)

var ErrNotPermitted = errors.New("not permitted")

type Backend interface {
	AuthorURL(id string) string
	UpdateProfile(ctx context.Context, id string, form api.ProfileForm) (api.Author, error)
	AuthorPosts(ctx context.Context, authorID string, opts ...api.RequestOption) ([]api.Post, error)
	Followers(ctx context.Context, authorID string) ([]api.Author, error)
	Following(ctx context.Context, authorID string) ([]api.Author, error)
	Friends(ctx context.Context, authorID string) ([]api.Author, error)
}

type Authors interface {
	Author(ctx context.Context, id string) (api.Author, error)
	Remember(ctx context.Context, author api.Author)
}

type Relationships interface {
	Resolve(ctx context.Context, viewerID, targetID string) relationship.State
	Follow(ctx context.Context, viewerID, targetID string) (relationship.State, error)
	Unfollow(ctx context.Context, viewerID, targetID string) (relationship.State, error)
}

type Session interface {
	CurrentAuthorID() string
}

// Actions are the profile buttons the viewer may use
type Actions struct {
	CanEditProfile   bool
	CanFollow        bool
	CanUnfollow      bool
	CanCancelRequest bool
}

// ActionsFor derives the permitted actions from a relationship
func ActionsFor(state relationship.State, authenticated bool) Actions {
	if !authenticated {
		return Actions{}
	}
	return Actions{
		CanEditProfile:   state == relationship.Self,
		CanFollow:        state == relationship.None,
		CanUnfollow:      state == relationship.Following || state == relationship.Friends,
		CanCancelRequest: state == relationship.Requested,
	}
}

type Profile struct {
	ID           string
	Author       api.Author
	Posts        []feed.PostView
	Relationship relationship.State
	Actions      Actions
	Followers    int
	Following    int
	Friends      int
}

type Loader struct {
	backend  Backend
	authors  Authors
	resolver Relationships
	session  Session
}

func NewLoader(backend Backend, authors Authors, resolver Relationships, session Session) *Loader {
	return &Loader{
		backend:  backend,
		authors:  authors,
		resolver: resolver,
		session:  session,
	}
}

// Load fetches the author, their posts and follow counts concurrently,
// then resolves the viewer's relationship to them. Only a failure to
// fetch the author fails the load; the rest fall back to empty.
func (l *Loader) Load(ctx context.Context, targetID string) (*Profile, error) {
	p := Profile{ID: targetID}
	var posts []api.Post

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		author, err := l.authors.Author(gctx, targetID)
		if err != nil {
			return fmt.Errorf("loading author %s: %w", targetID, err)
		}
		p.Author = author
		return nil
	})
	g.Go(func() error {
		var err error
		if posts, err = l.backend.AuthorPosts(gctx, targetID); err != nil {
			telemetry.Error(err, "loading posts for %s", targetID)
			posts = nil
		}
		return nil
	})
	g.Go(func() error {
		p.Followers = l.count(gctx, "followers", targetID, l.backend.Followers)
		return nil
	})
	g.Go(func() error {
		p.Following = l.count(gctx, "following", targetID, l.backend.Following)
		return nil
	})
	g.Go(func() error {
		p.Friends = l.count(gctx, "friends", targetID, l.backend.Friends)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	viewer := l.session.CurrentAuthorID()
	p.Posts = lo.Map(posts, func(post api.Post, _ int) feed.PostView {
		return feed.AnnotateNormalized(post, viewer, l.backend.AuthorURL)
	})
	l.resolve(ctx, &p, viewer, targetID)
	return &p, nil
}

func (l *Loader) count(ctx context.Context, what, id string, list func(context.Context, string) ([]api.Author, error)) int {
	authors, err := list(ctx, id)
	if err != nil {
		telemetry.Error(err, "loading %s of %s", what, id)
		return 0
	}
	return len(authors)
}

func (l *Loader) resolve(ctx context.Context, p *Profile, viewer, targetID string) {
	if viewer == "" {
		p.Relationship = relationship.None
	} else {
		p.Relationship = l.resolver.Resolve(ctx, viewer, targetID)
	}
	p.Actions = ActionsFor(p.Relationship, viewer != "")
}

// Follow follows the profile's author and refreshes its relationship
func (l *Loader) Follow(ctx context.Context, p *Profile) error {
	if !p.Actions.CanFollow {
		return fmt.Errorf("%w: follow from %s", relationship.ErrInvalidTransition, p.Relationship)
	}
	viewer := l.session.CurrentAuthorID()
	state, err := l.resolver.Follow(ctx, viewer, p.ID)
	if err != nil {
		return err
	}
	p.Relationship = state
	p.Actions = ActionsFor(state, viewer != "")
	return nil
}

// Unfollow unfollows, or cancels a pending request
func (l *Loader) Unfollow(ctx context.Context, p *Profile) error {
	if !p.Actions.CanUnfollow && !p.Actions.CanCancelRequest {
		return fmt.Errorf("%w: unfollow from %s", relationship.ErrInvalidTransition, p.Relationship)
	}
	viewer := l.session.CurrentAuthorID()
	state, err := l.resolver.Unfollow(ctx, viewer, p.ID)
	if err != nil {
		return err
	}
	p.Relationship = state
	p.Actions = ActionsFor(state, viewer != "")
	return nil
}

// UpdateProfile saves the viewer's own profile fields and refreshes the
// cached author everywhere it is shown
func (l *Loader) UpdateProfile(ctx context.Context, p *Profile, form api.ProfileForm) error {
	if !p.Actions.CanEditProfile {
		return fmt.Errorf("%w: editing profile of %s", ErrNotPermitted, p.ID)
	}
	if form.Empty() {
		return nil
	}
	updated, err := l.backend.UpdateProfile(ctx, p.ID, form)
	if err != nil {
		return err
	}
	if updated.ID == "" {
		updated = p.Author
		if form.DisplayName != "" {
			updated.DisplayName = form.DisplayName
		}
		if form.Github != "" {
			updated.Github = form.Github
		}
		if form.ProfileImage != "" {
			updated.ProfileImage = form.ProfileImage
		}
	}
	p.Author = updated
	l.authors.Remember(ctx, updated)
	telemetry.Increment("profile_updates", 1)
	return nil
}
