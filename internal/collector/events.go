package collector

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"

	"github.com/christiancopeland/pulsewatch/internal/models"
)

// eventRecord is the subset of the global news/events query API's response
// shape this adapter reads.
type eventRecord struct {
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Summary   string    `json:"summary"`
	Published time.Time `json:"published"`
	Source    string    `json:"source"`
}

type eventsResponse struct {
	Articles []eventRecord `json:"articles"`
}

// EventsAdapter drives the large global news/events query API using the
// data-driven query templates in DefaultQueryTemplates, one instance per
// template, per the "query templates are data, not code" requirement.
type EventsAdapter struct {
	TemplateName string
	Template     QueryTemplate
	BaseURL      string
	Recency      string // "24h", "48h", or "7d"
	Client       *http.Client
}

// NewEventsAdapter builds an adapter bound to one named query template.
func NewEventsAdapter(templateName, baseURL, recency string) (*EventsAdapter, error) {
	tmpl, ok := DefaultQueryTemplates[templateName]
	if !ok {
		return nil, fmt.Errorf("collector: unknown query template %q", templateName)
	}
	return &EventsAdapter{
		TemplateName: templateName,
		Template:     tmpl,
		BaseURL:      baseURL,
		Recency:      recency,
		Client:       &http.Client{Timeout: 45 * time.Second},
	}, nil
}

func (a *EventsAdapter) Name() string       { return "events:" + a.TemplateName }
func (a *EventsAdapter) SourceType() string { return "gdelt" }

func (a *EventsAdapter) Collect(ctx context.Context) ([]models.CollectedItem, error) {
	q := url.Values{}
	q.Set("query", a.Template.Query)
	q.Set("timespan", a.Recency)
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.BaseURL+"?"+q.Encode(), nil)
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
	if resp.StatusCode != http.StatusOK {
		return nil, &models.AdapterError{Adapter: a.Name(), Kind: models.ErrTransport, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var body eventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &models.AdapterError{Adapter: a.Name(), Kind: models.ErrParse, Err: err}
	}

	items := make([]models.CollectedItem, 0, len(body.Articles))
	for _, rec := range body.Articles {
		if rec.URL == "" {
			continue
		}
		items = append(items, models.CollectedItem{
			SourceType: a.SourceType(),
			SourceName: rec.Source,
			SourceURL:  a.BaseURL,
			Title:      CleanText(rec.Title),
			Summary:    NormalizeSummary(rec.Summary),
			URL:        rec.URL,
			Published:  NormalizePublished(rec.Published),
			Categories: []string{a.Template.Category},
			RawContent: CleanText(rec.Summary),
			Metadata:   map[string]any{"template": a.TemplateName, "event_hash": eventHash(rec)},
		})
	}
	return items, nil
}

func eventHash(rec eventRecord) string {
	sum := sha256.Sum256([]byte(rec.URL + rec.Title))
	return hex.EncodeToString(sum[:])
}
