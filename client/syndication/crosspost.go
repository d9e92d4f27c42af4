package syndication

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tkrehbiel/distrolace/client/api"
	"github.com/tkrehbiel/distrolace/client/storage"
	"github.com/tkrehbiel/distrolace/client/telemetry"
)

type Poster interface {
	CreatePost(ctx context.Context, authorID string, draft api.PostDraft) (api.Post, error)
}

type Store interface {
	GetSyndicated() ([]storage.SyndicatedItem, error)
	SaveSyndicated(item *storage.SyndicatedItem) error
}

type Session interface {
	CurrentAuthorID() string
}

// Crossposter turns feed items into posts and remembers what it posted
type Crossposter struct {
	poster     Poster
	session    Session
	store      Store
	visibility api.Visibility
}

func NewCrossposter(poster Poster, session Session, store Store, visibility api.Visibility) *Crossposter {
	if visibility == "" {
		visibility = api.VisibilityPublic
	}
	return &Crossposter{
		poster:     poster,
		session:    session,
		store:      store,
		visibility: visibility,
	}
}

// Watcher returns a FeedWatcher for url that already knows every item
// crossposted before.
func (c *Crossposter) Watcher(url string) (*FeedWatcher, error) {
	w := NewFeedWatcher(url, c)
	items, err := c.store.GetSyndicated()
	if err != nil {
		return nil, fmt.Errorf("loading syndicated items: %w", err)
	}
	for _, item := range items {
		w.AddKnown(item.ItemID, item.Updated)
	}
	telemetry.Trace("watching %s with %d known items", url, len(items))
	return w, nil
}

func (c *Crossposter) StatusCode(code int) {
	telemetry.Trace("feed returned %d", code)
	telemetry.Increment(fmt.Sprintf("feed_status_%d", code), 1)
}

func (c *Crossposter) NewItem(ctx context.Context, item Item) error {
	author := c.session.CurrentAuthorID()
	if author == "" {
		return &api.Error{Kind: api.ErrUnauthenticated}
	}
	post, err := c.poster.CreatePost(ctx, author, c.draft(item))
	if err != nil {
		return fmt.Errorf("crossposting %s: %w", item.ID, err)
	}
	telemetry.Log("crossposted %s as %s", item.URL, post.ID)
	telemetry.Increment("crossposts", 1)
	return c.store.SaveSyndicated(&storage.SyndicatedItem{
		ItemID:    item.ID,
		PostID:    post.ID,
		Published: item.Published,
		Updated:   item.Updated,
	})
}

func (c *Crossposter) draft(item Item) api.PostDraft {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = item.URL
	}
	body := item.Content
	if item.URL != "" {
		link := html.EscapeString(item.URL)
		body += fmt.Sprintf(`<p><a href="%s">%s</a></p>`, link, link)
	}
	return api.PostDraft{
		Title:       truncate(title, 100),
		Description: truncate(plain(item.Summary), 250),
		ContentType: api.ContentTypeMarkdown,
		Content:     body,
		Visibility:  c.visibility,
	}
}

// plain drops markup from a feed summary
func plain(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
