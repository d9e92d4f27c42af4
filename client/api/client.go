package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tkrehbiel/distrolace/client/telemetry"
	"golang.org/x/time/rate"
)

const maxResponseBytes = 4 << 20

// CredentialSource supplies the session token for protected calls
type CredentialSource interface {
	Credential() string
}

// RequestOption adjusts an outgoing request after the client has
// prepared it. Federation credentials are attached this way.
type RequestOption func(r *http.Request) error

type Options struct {
	BaseURL    string
	AuthScheme string
	Timeout    time.Duration
	RateLimit  float64 // requests per second, zero for unlimited
	Burst      int
}

// Client talks to the home node's REST API
type Client struct {
	base    *url.URL
	scheme  string
	client  *http.Client
	limiter *rate.Limiter
	session CredentialSource
}

func NewClient(opts Options, session CredentialSource) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base url %s: %w", opts.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", opts.BaseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if opts.AuthScheme == "" {
		opts.AuthScheme = "Token"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 15 * time.Second
	}
	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	if opts.Burst < 1 {
		opts.Burst = 1
	}
	return &Client{
		base:    base,
		scheme:  opts.AuthScheme,
		client:  &http.Client{Timeout: opts.Timeout, Jar: jar},
		limiter: rate.NewLimiter(limit, opts.Burst),
		session: session,
	}, nil
}

// Host returns the home node's host name
func (c *Client) Host() string {
	return c.base.Host
}

// Origin returns scheme://host of the home node
func (c *Client) Origin() string {
	return c.base.Scheme + "://" + c.base.Host
}

func (c *Client) credential() string {
	if c.session == nil {
		return ""
	}
	return c.session.Credential()
}

type call struct {
	method    string
	url       string
	form      url.Values
	body      any
	protected bool
	opts      []RequestOption
}

func (c *Client) do(ctx context.Context, cl call, out any) error {
	token := c.credential()
	if cl.protected && token == "" && len(cl.opts) == 0 {
		telemetry.Increment("api_unauthenticated", 1)
		return &Error{Kind: ErrUnauthenticated}
	}

	var body io.Reader
	contentType := ""
	if cl.form != nil {
		body = strings.NewReader(cl.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	} else if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}

	r, err := http.NewRequestWithContext(ctx, cl.method, cl.url, body)
	if err != nil {
		return fmt.Errorf("creating request for %s: %w", cl.url, err)
	}
	r.Header.Set("Accept", "application/json")
	r.Header.Set("X-Request-ID", uuid.NewString())
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	if token != "" && sameOrigin(r.URL, c.base) {
		r.Header.Set("Authorization", c.scheme+" "+token)
	}
	if cl.form != nil && cl.method != http.MethodGet {
		for _, cookie := range c.client.Jar.Cookies(r.URL) {
			if cookie.Name == "csrftoken" {
				r.Header.Set("X-CSRFToken", cookie.Value)
			}
		}
	}
	for _, opt := range cl.opts {
		if err := opt(r); err != nil {
			return fmt.Errorf("preparing request for %s: %w", cl.url, err)
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return &Error{Kind: ErrNetwork, Err: err}
	}

	telemetry.Trace("%s %s", r.Method, r.URL)
	telemetry.Increment("api_requests", 1)
	resp, err := c.client.Do(r)
	if err != nil {
		telemetry.Increment("api_network_errors", 1)
		return &Error{Kind: ErrNetwork, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &Error{Kind: ErrNetwork, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		telemetry.Trace("%s %s returned %d", r.Method, r.URL, resp.StatusCode)
		return statusError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", cl.url, err)
	}
	return nil
}

func sameOrigin(a, b *url.URL) bool {
	return strings.EqualFold(a.Scheme, b.Scheme) && strings.EqualFold(a.Host, b.Host)
}

// isAbsolute reports whether id is a fully qualified URL
func isAbsolute(id string) bool {
	u, err := url.Parse(id)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// HostOf returns the host of a fully qualified id, or "" for a bare one
func HostOf(id string) string {
	u, err := url.Parse(id)
	if err != nil || u.Scheme == "" {
		return ""
	}
	return u.Host
}

// OriginOf returns scheme://host of a fully qualified id
func OriginOf(id string) string {
	u, err := url.Parse(id)
	if err != nil || u.Scheme == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func withSlash(s string) string {
	if strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}

func join(id, suffix string) string {
	return strings.TrimSuffix(id, "/") + "/" + suffix
}

// endpoint resolves a path on the home node
func (c *Client) endpoint(path string) string {
	return c.Origin() + c.base.Path + path
}

// AuthorURL returns the resource URL for an author id, which may be
// either a bare local id or a fully qualified id.
func (c *Client) AuthorURL(id string) string {
	if isAbsolute(id) {
		return withSlash(id)
	}
	return c.endpoint("/api/authors/" + url.PathEscape(strings.Trim(id, "/")) + "/")
}

// objectURL resolves a post or comment id, which is a URL or a rooted path
func (c *Client) objectURL(id string) string {
	if isAbsolute(id) {
		return id
	}
	ref, err := url.Parse(id)
	if err != nil {
		return id
	}
	return c.base.ResolveReference(ref).String()
}

// SameAuthor reports whether two author ids name the same author
func (c *Client) SameAuthor(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return c.AuthorURL(a) == c.AuthorURL(b)
}

// lastSegment is the final path element of an id
func lastSegment(id string) string {
	trimmed := strings.TrimSuffix(id, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}
