package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"

	"github.com/christiancopeland/pulsewatch/internal/models"
)

// SanctionsAdapter queries a sanctions-designation registry. Bearer auth is
// optional; both 401 and 429 are non-fatal per-adapter outcomes rather than
// hard failures, since a missing/expired token shouldn't take the whole
// collection run down.
type SanctionsAdapter struct {
	BaseURL     string
	BearerToken string
	Client      *http.Client
}

func NewSanctionsAdapter(baseURL, bearerToken string) *SanctionsAdapter {
	return &SanctionsAdapter{BaseURL: baseURL, BearerToken: bearerToken, Client: &http.Client{Timeout: 30 * time.Second}}
}

func (a *SanctionsAdapter) Name() string       { return "sanctions" }
func (a *SanctionsAdapter) SourceType() string { return "sanctions" }

type sanctionsEntry struct {
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Summary   string    `json:"summary"`
	Published time.Time `json:"published"`
	Program   string    `json:"program"`
}

type sanctionsResponse struct {
	Data []sanctionsEntry `json:"data"`
}

func (a *SanctionsAdapter) Collect(ctx context.Context) ([]models.CollectedItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.BaseURL, nil)
	if err != nil {
		return nil, &models.AdapterError{Adapter: a.Name(), Kind: models.ErrParse, Err: err}
	}
	if a.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+a.BearerToken)
	}

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, &models.AdapterError{Adapter: a.Name(), Kind: models.ErrTransport, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusTooManyRequests:
		return nil, nil // non-fatal; caller counts this run as items_collected=0, not failed
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &models.AdapterError{Adapter: a.Name(), Kind: models.ErrTransport, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var body sanctionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &models.AdapterError{Adapter: a.Name(), Kind: models.ErrParse, Err: err}
	}

	items := make([]models.CollectedItem, 0, len(body.Data))
	for _, e := range body.Data {
		if e.URL == "" {
			continue
		}
		items = append(items, models.CollectedItem{
			SourceType: a.SourceType(),
			SourceName: "sanctions-registry",
			SourceURL:  a.BaseURL,
			Title:      CleanText(e.Name),
			Summary:    NormalizeSummary(e.Summary),
			URL:        e.URL,
			Published:  NormalizePublished(e.Published),
			Categories: []string{"financial", "sanctions"},
			RawContent: CleanText(e.Summary),
			Metadata:   map[string]any{"program": e.Program},
		})
	}
	return items, nil
}

// FilingsAdapter queries a corporate-filings API. Upstream policy requires
// a User-Agent identifying a contact email; this is a hard precondition,
// not an optional courtesy.
type FilingsAdapter struct {
	BaseURL      string
	ContactEmail string
	Client       *http.Client
}

func NewFilingsAdapter(baseURL, contactEmail string) *FilingsAdapter {
	return &FilingsAdapter{BaseURL: baseURL, ContactEmail: contactEmail, Client: &http.Client{Timeout: 30 * time.Second}}
}

func (a *FilingsAdapter) Name() string       { return "filings" }
func (a *FilingsAdapter) SourceType() string { return "sec_edgar" }

type filingEntry struct {
	CompanyName string    `json:"company_name"`
	URL         string    `json:"url"`
	FormType    string    `json:"form_type"`
	Filed       time.Time `json:"filed"`
}

func (a *FilingsAdapter) Collect(ctx context.Context) ([]models.CollectedItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.BaseURL, nil)
	if err != nil {
		return nil, &models.AdapterError{Adapter: a.Name(), Kind: models.ErrParse, Err: err}
	}
	req.Header.Set("User-Agent", fmt.Sprintf("pulsewatch/1.0 (%s)", a.ContactEmail))

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, &models.AdapterError{Adapter: a.Name(), Kind: models.ErrTransport, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &models.AdapterError{Adapter: a.Name(), Kind: models.ErrTransport, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var filings []filingEntry
	if err := json.NewDecoder(resp.Body).Decode(&filings); err != nil {
		return nil, &models.AdapterError{Adapter: a.Name(), Kind: models.ErrParse, Err: err}
	}

	items := make([]models.CollectedItem, 0, len(filings))
	for _, f := range filings {
		if f.URL == "" {
			continue
		}
		items = append(items, models.CollectedItem{
			SourceType: a.SourceType(),
			SourceName: "sec-edgar",
			SourceURL:  a.BaseURL,
			Title:      CleanText(fmt.Sprintf("%s: %s", f.CompanyName, f.FormType)),
			URL:        f.URL,
			Published:  NormalizePublished(f.Filed),
			Categories: []string{"financial", "corporate-filings"},
			Metadata:   map[string]any{"form_type": f.FormType},
		})
	}
	return items, nil
}

// ForumAdapter queries an unauthenticated community/forum JSON endpoint,
// pausing 1s between subreddit-equivalent requests per the egress contract.
type ForumAdapter struct {
	BaseURL     string
	Communities []string
	Client      *http.Client
}

func NewForumAdapter(baseURL string, communities []string) *ForumAdapter {
	return &ForumAdapter{BaseURL: baseURL, Communities: communities, Client: &http.Client{Timeout: 30 * time.Second}}
}

func (a *ForumAdapter) Name() string       { return "forum" }
func (a *ForumAdapter) SourceType() string { return "forum" }

type forumPost struct {
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Body      string    `json:"selftext"`
	Author    string    `json:"author"`
	Published time.Time `json:"created_utc"`
}

func (a *ForumAdapter) Collect(ctx context.Context) ([]models.CollectedItem, error) {
	var items []models.CollectedItem

	for i, community := range a.Communities {
		if i > 0 {
			select {
			case <-ctx.Done():
				return items, ctx.Err()
			case <-time.After(time.Second):
			}
		}

		u, err := url.Parse(a.BaseURL)
		if err != nil {
			return items, &models.AdapterError{Adapter: a.Name(), Kind: models.ErrParse, Err: err}
		}
		u.Path = u.Path + "/" + community + ".json"

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return items, &models.AdapterError{Adapter: a.Name(), Kind: models.ErrParse, Err: err}
		}

		resp, err := a.Client.Do(req)
		if err != nil {
			continue // one community's transport failure is isolated, not fatal to the batch
		}

		var posts []forumPost
		decodeErr := json.NewDecoder(resp.Body).Decode(&posts)
		resp.Body.Close()
		if decodeErr != nil {
			continue
		}

		for _, p := range posts {
			if p.URL == "" {
				continue
			}
			items = append(items, models.CollectedItem{
				SourceType: a.SourceType(),
				SourceName: community,
				SourceURL:  a.BaseURL,
				Title:      CleanText(p.Title),
				Summary:    NormalizeSummary(p.Body),
				URL:        p.URL,
				Published:  NormalizePublished(p.Published),
				Author:     p.Author,
				Categories: []string{"discussion"},
				RawContent: CleanText(p.Body),
			})
		}
	}
	return items, nil
}
