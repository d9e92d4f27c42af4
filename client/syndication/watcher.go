// Package syndication watches an RSS, Atom or JSON feed and crossposts
// new items as posts of the session author.
package syndication

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/tkrehbiel/distrolace/client/telemetry"
)

// Item is the part of a feed entry worth crossposting
type Item struct {
	ID        string
	Title     string
	Summary   string
	Content   string
	URL       string
	Published time.Time
	Updated   time.Time
}

// ItemHandler decides what happens to items found in the feed
type ItemHandler interface {
	StatusCode(code int)                          // called after any fetch, normally 200 or 304
	NewItem(ctx context.Context, item Item) error // a new feed item is discovered
}

// FeedWatcher polls one feed with conditional GETs
type FeedWatcher struct {
	URL     string
	Client  http.Client
	Handler ItemHandler

	itemParser   ItemParser
	etag         string
	lastModified string
	known        map[string]time.Time
}

type ItemParser interface {
	Parse(r io.Reader) ([]Item, error)
}

type gofeedParser struct {
	parser *gofeed.Parser
}

func (p gofeedParser) Parse(reader io.Reader) ([]Item, error) {
	feed, err := p.parser.Parse(reader)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(feed.Items))
	for _, entry := range feed.Items {
		item := Item{
			ID:      entry.GUID,
			Title:   entry.Title,
			Summary: entry.Description,
			Content: entry.Content,
			URL:     entry.Link,
		}
		if item.ID == "" {
			item.ID = entry.Link
		}
		if item.Content == "" {
			item.Content = entry.Description
			item.Summary = ""
		}
		if entry.PublishedParsed != nil {
			item.Published = *entry.PublishedParsed
		} else {
			// some feeds have dates gofeed cannot parse
			item.Published = time.Now().UTC()
		}
		if entry.UpdatedParsed != nil {
			item.Updated = *entry.UpdatedParsed
		} else {
			item.Updated = item.Published
		}
		items = append(items, item)
	}
	return items, nil
}

func NewFeedWatcher(url string, handler ItemHandler) *FeedWatcher {
	return &FeedWatcher{
		URL:     url,
		Client:  http.Client{Timeout: 30 * time.Second},
		Handler: handler,
		itemParser: gofeedParser{
			parser: gofeed.NewParser(),
		},
		known: make(map[string]time.Time),
	}
}

// AddKnown marks an item as already handled
func (w *FeedWatcher) AddKnown(id string, updated time.Time) {
	w.known[id] = updated
}

// Check fetches the feed and hands new items to the handler, oldest
// first. Items the handler fails on are retried on the next check.
func (w *FeedWatcher) Check(ctx context.Context) error {
	r, err := http.NewRequestWithContext(ctx, http.MethodGet, w.URL, nil)
	if err != nil {
		return err
	}
	if w.etag != "" {
		r.Header.Set("If-None-Match", w.etag)
	}
	if w.lastModified != "" {
		r.Header.Set("If-Modified-Since", w.lastModified)
	}

	resp, err := w.Client.Do(r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	w.Handler.StatusCode(resp.StatusCode)
	if resp.StatusCode == http.StatusNotModified {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %s: response code %d", w.URL, resp.StatusCode)
	}

	newItems, err := w.parseItems(resp.Body)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", w.URL, err)
	}

	var errs []error
	for _, item := range newItems {
		if err := w.Handler.NewItem(ctx, item); err != nil {
			telemetry.Error(err, "handling feed item %s", item.ID)
			errs = append(errs, err)
			continue
		}
		w.known[item.ID] = item.Updated
	}
	if len(errs) > 0 {
		// fetch everything again next time so failed items come back
		return errors.Join(errs...)
	}

	w.etag = resp.Header.Get("ETag")
	w.lastModified = resp.Header.Get("Last-Modified")
	return nil
}

func (w *FeedWatcher) parseItems(body io.Reader) ([]Item, error) {
	allItems, err := w.itemParser.Parse(body)
	if err != nil {
		return nil, err
	}

	newItems := make([]Item, 0)
	for _, item := range allItems {
		if _, ok := w.known[item.ID]; !ok {
			newItems = append(newItems, item)
		}
	}

	sort.Slice(newItems, func(i int, j int) bool {
		return newItems[i].Published.Before(newItems[j].Published)
	})
	return newItems, nil
}

// Watch checks the feed every period until ctx ends
func (w *FeedWatcher) Watch(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	if err := w.Check(ctx); err != nil {
		telemetry.Error(err, "checking feed %s", w.URL)
	}
	for {
		select {
		case <-ctx.Done():
			telemetry.Log("stopped watching %s: %s", w.URL, ctx.Err())
			return
		case <-ticker.C:
			if err := w.Check(ctx); err != nil {
				telemetry.Error(err, "checking feed %s", w.URL)
			}
		}
	}
}
