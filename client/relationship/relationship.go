// Package relationship resolves how a viewer relates to another author
// and carries out follow, unfollow and follow-request decisions.
package relationship

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/karlseguin/ccache/v3"
	"github.com/tkrehbiel/distrolace/client/api"
	"github.com/tkrehbiel/distrolace/client/telemetry"
)

type State string

const (
	Self      State = "SELF"
	None      State = "NONE"
	Requested State = "REQUESTED"
	Following State = "FOLLOWING"
	Friends   State = "FRIENDS"
)

var (
	ErrInvalidTransition = errors.New("invalid relationship transition")
	ErrNoFederation      = errors.New("no node credential exchange configured")
)

// Parse maps a backend relationship or follow-status label to a State
func Parse(label string) State {
	switch s := State(strings.ToUpper(strings.TrimSpace(label))); s {
	case Self, Requested, Following, Friends:
		return s
	case "FOLLOWED":
		return Following
	case "FRIEND":
		return Friends
	}
	return None
}

type Backend interface {
	Host() string
	AuthorURL(id string) string
	Relationship(ctx context.Context, authorID, otherID string) (string, error)
	RemoteRelationship(ctx context.Context, origin, viewerID, targetID string, opts ...api.RequestOption) (string, error)
	Follow(ctx context.Context, followerID, targetID string) error
	Unfollow(ctx context.Context, followerID, targetID string) error
	FollowRequests(ctx context.Context, authorID string) ([]api.Author, error)
	AcceptFollowRequest(ctx context.Context, authorID, followerID string) error
	RejectFollowRequest(ctx context.Context, authorID, followerID string) error
}

// Credentials yields the node-level credential for a remote host
type Credentials interface {
	Establish(ctx context.Context, host string) (api.RequestOption, error)
}

type Session interface {
	CurrentAuthorID() string
	Host() string
}

type Resolver struct {
	backend Backend
	nodes   Credentials
	session Session
	cache   *ccache.Cache[State]
	ttl     time.Duration
}

// NewResolver creates a resolver. nodes may be nil, in which case
// cross-host targets always resolve to NONE.
func NewResolver(backend Backend, nodes Credentials, session Session, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Resolver{
		backend: backend,
		nodes:   nodes,
		session: session,
		cache:   ccache.New(ccache.Configure[State]().MaxSize(1000)),
		ttl:     ttl,
	}
}

func (r *Resolver) same(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return a == b || r.backend.AuthorURL(a) == r.backend.AuthorURL(b)
}

func (r *Resolver) key(viewerID, targetID string) string {
	return r.backend.AuthorURL(viewerID) + "|" + r.backend.AuthorURL(targetID)
}

func (r *Resolver) localHost() string {
	if h := r.session.Host(); h != "" {
		return h
	}
	return r.backend.Host()
}

// remoteHost returns the target's host when it lives on another node
func (r *Resolver) remoteHost(targetID string) string {
	host := api.HostOf(targetID)
	if host == "" || strings.EqualFold(host, r.localHost()) {
		return ""
	}
	return host
}

// Resolve returns the relationship of viewer to target. Failures are
// logged and resolve to NONE.
func (r *Resolver) Resolve(ctx context.Context, viewerID, targetID string) State {
	state, err := r.Lookup(ctx, viewerID, targetID)
	if err != nil {
		telemetry.Error(err, "resolving relationship [%s] to [%s]", viewerID, targetID)
		return None
	}
	return state
}

// Lookup is Resolve with the failure exposed
func (r *Resolver) Lookup(ctx context.Context, viewerID, targetID string) (State, error) {
	if r.same(viewerID, targetID) {
		return Self, nil
	}
	if viewerID == "" {
		return None, &api.Error{Kind: api.ErrUnauthenticated}
	}

	key := r.key(viewerID, targetID)
	if item := r.cache.Get(key); item != nil && !item.Expired() {
		telemetry.Increment("relationship_cache_hits", 1)
		return item.Value(), nil
	}

	var label string
	var err error
	if host := r.remoteHost(targetID); host != "" {
		label, err = r.lookupRemote(ctx, host, viewerID, targetID)
	} else {
		label, err = r.backend.Relationship(ctx, viewerID, targetID)
	}
	if err != nil {
		return None, err
	}

	state := Parse(label)
	r.cache.Set(key, state, r.ttl)
	telemetry.Trace("relationship [%s] to [%s] is %s", viewerID, targetID, state)
	return state, nil
}

func (r *Resolver) lookupRemote(ctx context.Context, host, viewerID, targetID string) (string, error) {
	if r.nodes == nil {
		return "", ErrNoFederation
	}
	credential, err := r.nodes.Establish(ctx, host)
	if err != nil {
		return "", fmt.Errorf("establishing credentials for %s: %w", host, err)
	}
	telemetry.Increment("relationship_remote", 1)
	return r.backend.RemoteRelationship(ctx, api.OriginOf(targetID), viewerID, targetID, credential)
}

// Follow asks to follow target. The resulting state is whatever the
// backend reports afterwards: REQUESTED or FOLLOWING.
func (r *Resolver) Follow(ctx context.Context, viewerID, targetID string) (State, error) {
	current := r.Resolve(ctx, viewerID, targetID)
	if current != None {
		return current, fmt.Errorf("%w: cannot follow from %s", ErrInvalidTransition, current)
	}
	if err := r.backend.Follow(ctx, viewerID, targetID); err != nil {
		return current, err
	}
	telemetry.Increment("follows", 1)
	r.forget(viewerID, targetID)
	return r.Resolve(ctx, viewerID, targetID), nil
}

// Unfollow removes a follow, or cancels a pending request
func (r *Resolver) Unfollow(ctx context.Context, viewerID, targetID string) (State, error) {
	current := r.Resolve(ctx, viewerID, targetID)
	switch current {
	case Following, Friends, Requested:
	default:
		return current, fmt.Errorf("%w: cannot unfollow from %s", ErrInvalidTransition, current)
	}
	if err := r.backend.Unfollow(ctx, viewerID, targetID); err != nil {
		return current, err
	}
	telemetry.Increment("unfollows", 1)
	r.forget(viewerID, targetID)
	return r.Resolve(ctx, viewerID, targetID), nil
}

func (r *Resolver) AcceptFollowRequest(ctx context.Context, targetID, requesterID string) error {
	if err := r.checkTarget(targetID); err != nil {
		return err
	}
	if err := r.backend.AcceptFollowRequest(ctx, targetID, requesterID); err != nil {
		return err
	}
	telemetry.Increment("follow_requests_accepted", 1)
	r.forget(requesterID, targetID)
	return nil
}

func (r *Resolver) RejectFollowRequest(ctx context.Context, targetID, requesterID string) error {
	if err := r.checkTarget(targetID); err != nil {
		return err
	}
	if err := r.backend.RejectFollowRequest(ctx, targetID, requesterID); err != nil {
		return err
	}
	telemetry.Increment("follow_requests_rejected", 1)
	r.forget(requesterID, targetID)
	return nil
}

// checkTarget allows follow-request decisions only by the target author
func (r *Resolver) checkTarget(targetID string) error {
	current := r.session.CurrentAuthorID()
	if current == "" {
		return &api.Error{Kind: api.ErrUnauthenticated}
	}
	if !r.same(current, targetID) {
		return &api.Error{Kind: api.ErrForbidden, Messages: []string{"only the requested author can decide a follow request"}}
	}
	return nil
}

// PendingRequests lists authors waiting for the session author's approval
func (r *Resolver) PendingRequests(ctx context.Context) ([]api.Author, error) {
	current := r.session.CurrentAuthorID()
	if current == "" {
		return nil, &api.Error{Kind: api.ErrUnauthenticated}
	}
	return r.backend.FollowRequests(ctx, current)
}

// forget drops both directions of a cached pair
func (r *Resolver) forget(a, b string) {
	r.cache.Delete(r.key(a, b))
	r.cache.Delete(r.key(b, a))
}

// Invalidate clears every cached relationship
func (r *Resolver) Invalidate() {
	r.cache.Clear()
}

func (r *Resolver) Close() {
	r.cache.Stop()
}
