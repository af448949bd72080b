package collector

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"time"

	"github.com/christiancopeland/pulsewatch/internal/models"
)

// rssFeedCategories is the static feed-name -> category map every RSS
// adapter instance consults.
var rssFeedCategories = map[string][]string{
	"reuters-world":  {"geopolitics", "world"},
	"reuters-tech":   {"technology"},
	"bbc-world":      {"geopolitics", "world"},
	"ft-markets":     {"financial", "markets"},
	"defense-news":   {"military", "defense"},
}

// rssItem and rssFeed model the subset of RSS 2.0 this adapter reads.
type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	Author      string `xml:"author"`
}

type rssChannel struct {
	Items []rssItem `xml:"item"`
}

type rssFeed struct {
	Channel rssChannel `xml:"channel"`
}

// RSSAdapter fetches and normalizes one RSS feed. One feed's malformed XML
// or transport failure is isolated to that feed; it never propagates past
// Collect as anything but an AdapterError.
type RSSAdapter struct {
	FeedName string
	FeedURL  string
	Client   *http.Client
}

// NewRSSAdapter constructs an RSS adapter with a 30s fetch timeout per the
// egress contract for RSS/Atom feeds.
func NewRSSAdapter(feedName, feedURL string) *RSSAdapter {
	return &RSSAdapter{
		FeedName: feedName,
		FeedURL:  feedURL,
		Client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *RSSAdapter) Name() string       { return "rss:" + a.FeedName }
func (a *RSSAdapter) SourceType() string { return "rss" }

func (a *RSSAdapter) Collect(ctx context.Context) ([]models.CollectedItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.FeedURL, nil)
	if err != nil {
		return nil, &models.AdapterError{Adapter: a.Name(), Kind: models.ErrParse, Err: err}
	}

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, &models.AdapterError{Adapter: a.Name(), Kind: models.ErrTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &models.AdapterError{Adapter: a.Name(), Kind: models.ErrRateLimited}
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &models.AdapterError{Adapter: a.Name(), Kind: models.ErrAuthRejected}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &models.AdapterError{Adapter: a.Name(), Kind: models.ErrTransport, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var feed rssFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, &models.AdapterError{Adapter: a.Name(), Kind: models.ErrParse, Err: err}
	}

	categories := rssFeedCategories[a.FeedName]

	items := make([]models.CollectedItem, 0, len(feed.Channel.Items))
	for _, it := range feed.Channel.Items {
		if it.Link == "" {
			continue // ParseError on the single item is skipped, not fatal to the batch
		}
		items = append(items, models.CollectedItem{
			SourceType: a.SourceType(),
			SourceName: a.FeedName,
			SourceURL:  a.FeedURL,
			Title:      CleanText(it.Title),
			Summary:    NormalizeSummary(it.Description),
			URL:        it.Link,
			Published:  NormalizePublished(parseRSSDate(it.PubDate)),
			Author:     it.Author,
			Categories: categories,
			RawContent: CleanText(it.Description),
		})
	}
	return items, nil
}

var rssDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
}

func parseRSSDate(s string) time.Time {
	for _, layout := range rssDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
