package client

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tkrehbiel/distrolace/client/api"
	"github.com/tkrehbiel/distrolace/client/directory"
	"github.com/tkrehbiel/distrolace/client/federation"
	"github.com/tkrehbiel/distrolace/client/feed"
	"github.com/tkrehbiel/distrolace/client/page"
	"github.com/tkrehbiel/distrolace/client/profile"
	"github.com/tkrehbiel/distrolace/client/relationship"
	"github.com/tkrehbiel/distrolace/client/router"
	"github.com/tkrehbiel/distrolace/client/session"
	"github.com/tkrehbiel/distrolace/client/storage"
	"github.com/tkrehbiel/distrolace/client/syndication"
	"github.com/tkrehbiel/distrolace/client/telemetry"
)

// Service owns every client component and the order they are torn down in
type Service struct {
	Config Config

	Store         storage.Database
	Session       *session.Session
	API           *api.Client
	Nodes         *federation.Exchange
	Relationships *relationship.Resolver
	Directory     *directory.Directory
	Feed          *feed.Feed
	Profiles      *profile.Loader
	Router        *router.Router

	pages map[string]page.Renderer
}

func NewService(cfg Config) (*Service, error) {
	telemetry.EnableTrace(cfg.Trace)

	s := &Service{
		Config: cfg,
		Store:  storage.NewDatabase(cfg.Database),
		pages:  make(map[string]page.Renderer),
	}
	if err := s.Store.Open(); err != nil {
		return nil, fmt.Errorf("opening %s: %w", cfg.Database, err)
	}

	s.Session = session.New(s.Store, cfg.PublicHost())
	if err := s.Session.Load(); err != nil {
		s.Store.Close()
		return nil, err
	}

	client, err := api.NewClient(api.Options{
		BaseURL:    cfg.URL,
		AuthScheme: cfg.AuthScheme,
		Timeout:    cfg.Timeout(),
		RateLimit:  cfg.RatePerSecond,
		Burst:      cfg.Burst,
	}, s.Session)
	if err != nil {
		s.Store.Close()
		return nil, err
	}
	s.API = client

	s.Nodes = federation.NewExchange(s.Store)
	for _, n := range cfg.Nodes {
		if err := s.registerNode(n); err != nil {
			s.Store.Close()
			return nil, err
		}
	}

	ttl := cfg.CacheTTL()
	s.Relationships = relationship.NewResolver(client, s.Nodes, s.Session, ttl)
	s.Feed = feed.New(client, s.Session, ttl)
	s.Directory, err = directory.New(client, ttl)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Profiles = profile.NewLoader(client, s.Directory, s.Relationships, s.Session)

	s.Router = router.New(s.Session)
	s.Router.OnNavigate(s.Relationships.Invalidate)
	s.Router.OnNavigate(s.Feed.Invalidate)

	for _, p := range []page.TextPage{page.PostCard, page.ProfileHeader, page.FollowRequests, page.AuthorList} {
		r := page.NewTextPage(p)
		if err := r.Init(); err != nil {
			s.Close()
			return nil, err
		}
		s.pages[r.Name()] = r
	}

	telemetry.Log("service ready for %s", client.Origin())
	return s, nil
}

func (s *Service) registerNode(n NodeConfig) error {
	node := storage.RemoteNode{
		Host:     n.Host,
		Username: n.Username,
		Password: n.Password,
		KeyID:    n.KeyID,
		Active:   true,
	}
	if n.PrivateKeyFile != "" {
		b, err := os.ReadFile(n.PrivateKeyFile)
		if err != nil {
			return fmt.Errorf("reading key for %s: %w", n.Host, err)
		}
		node.PrivateKeyPEM = string(b)
	}
	return s.Nodes.Register(node)
}

// Login authenticates against the home node and persists the session
func (s *Service) Login(ctx context.Context, username, password string) error {
	result, err := s.API.Login(ctx, api.LoginForm{Username: username, Password: password})
	if err != nil {
		return err
	}
	if err := s.Session.Login(string(result.AuthorID), result.Token); err != nil {
		return err
	}
	s.reset()
	return nil
}

// Signup registers a new author and logs in when the node hands back a token
func (s *Service) Signup(ctx context.Context, form api.SignupForm) error {
	result, err := s.API.Signup(ctx, form)
	if err != nil {
		return err
	}
	if result.Token == "" {
		return nil
	}
	if err := s.Session.Login(string(result.AuthorID), result.Token); err != nil {
		return err
	}
	s.reset()
	return nil
}

// Logout clears the local session even when the node cannot be reached
func (s *Service) Logout(ctx context.Context) error {
	if s.Session.Authenticated() {
		if err := s.API.Logout(ctx); err != nil {
			telemetry.Error(err, "remote logout")
		}
	}
	s.reset()
	return s.Session.Logout()
}

func (s *Service) reset() {
	s.Relationships.Invalidate()
	s.Feed.Invalidate()
}

// Render writes data with the named page
func (s *Service) Render(w io.Writer, name string, data any) error {
	p, ok := s.pages[name]
	if !ok {
		return fmt.Errorf("no page named %s", name)
	}
	return p.Render(w, data)
}

// Crossposter posts syndicated items as the current author
func (s *Service) Crossposter() *syndication.Crossposter {
	return syndication.NewCrossposter(s.API, s.Session, s.Store, api.Visibility(s.Config.Syndication.Visibility))
}

// Context bounds a single command by the configured timeout
func (s *Service) Context(parent context.Context) (context.Context, context.CancelFunc) {
	timeout := s.Config.Timeout()
	if timeout <= 0 {
		timeout = time.Minute
	}
	return context.WithTimeout(parent, 4*timeout)
}

func (s *Service) Close() {
	if s.Directory != nil {
		s.Directory.Close()
	}
	if s.Feed != nil {
		s.Feed.Close()
	}
	if s.Relationships != nil {
		s.Relationships.Close()
	}
	if s.Store != nil {
		s.Store.Close()
	}
	telemetry.LogCounters()
}
