package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/arbovm/levenshtein"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	apperrors "github.com/anime-shed/snaptune-go/internal/errors"
	"github.com/anime-shed/snaptune-go/internal/logger"
	"github.com/anime-shed/snaptune-go/pkg/validation"
)

// Preview is the top search hit for a title/artist pair
type Preview struct {
	URL       string
	TrackName string
	Artist    string

	// MatchDistance is the edit distance between the requested and returned
	// titles. It is informational; results are never re-ranked.
	MatchDistance int
}

type searchResponse struct {
	Tracks struct {
		Items []struct {
			Name       string  `json:"name"`
			PreviewURL *string `json:"preview_url"`
			Artists    []struct {
				Name string `json:"name"`
			} `json:"artists"`
		} `json:"items"`
	} `json:"tracks"`
}

// Catalog looks up preview clips. None of its methods return errors: every
// failure resolves to "no preview".
type Catalog struct {
	baseURL string
	client  *http.Client
	tokens  TokenSource
	timeout time.Duration
	clips   *validation.URLValidator
}

// NewCatalog creates a catalog client for the given API base URL
func NewCatalog(baseURL string, tokens TokenSource, timeout time.Duration, client *http.Client) *Catalog {
	if client == nil {
		client = http.DefaultClient
	}
	return &Catalog{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		tokens:  tokens,
		timeout: timeout,
		clips:   validation.NewURLValidator(),
	}
}

// WithPreviewHosts only accepts preview clips served from the given hosts.
// No hosts means any http(s) clip is accepted.
func (c *Catalog) WithPreviewHosts(hosts ...string) *Catalog {
	c.clips = validation.NewURLValidator(hosts...)
	return c
}

// Lookup fetches a token and searches for a preview. Token failures are
// absorbed and reported as no preview.
func (c *Catalog) Lookup(ctx context.Context, title, artist string) (string, bool) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	log := logger.FromContext(ctx).WithFields(logrus.Fields{"title": title, "artist": artist})
	if c.tokens == nil {
		log.Warn("Catalog lookup skipped: no token source")
		return "", false
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		log.WithError(err).Warn("Catalog token unavailable, treating as no preview")
		return "", false
	}

	return c.FindPreview(ctx, title, artist, token)
}

// FindPreview searches with an already obtained token and returns the preview
// URL of the first result, if it has one.
func (c *Catalog) FindPreview(ctx context.Context, title, artist string, token *oauth2.Token) (string, bool) {
	log := logger.FromContext(ctx).WithFields(logrus.Fields{"title": title, "artist": artist})

	if token == nil || token.AccessToken == "" {
		log.Debug("No catalog token, skipping search")
		return "", false
	}

	preview, err := c.search(ctx, title, artist, token)
	if errors.Is(err, apperrors.ErrNoPreview) {
		log.Debug("Catalog search returned no results")
		return "", false
	}
	if err != nil {
		log.WithError(err).Warn("Catalog search failed, treating as no preview")
		return "", false
	}

	log = log.WithFields(logrus.Fields{
		"matched_track":  preview.TrackName,
		"matched_artist": preview.Artist,
		"match_distance": preview.MatchDistance,
	})
	if preview.URL == "" {
		log.Debug("Top catalog result has no preview clip")
		return "", false
	}
	if err := c.clips.ValidateURL(preview.URL); err != nil {
		log.WithError(err).WithField("preview_url", preview.URL).Warn("Catalog preview clip rejected")
		return "", false
	}

	log.Debug("Catalog preview found")
	return preview.URL, true
}

func (c *Catalog) search(ctx context.Context, title, artist string, token *oauth2.Token) (*Preview, error) {
	q := url.Values{}
	q.Set("q", fmt.Sprintf("track:%s artist:%s", title, artist))
	q.Set("type", "track")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build catalog request", err)
	}
	req.Header.Set("Accept", "application/json")
	token.SetAuthHeader(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.NewUpstreamError("catalog search request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized {
			if inv, ok := c.tokens.(interface{ Invalidate() }); ok {
				inv.Invalidate()
			}
		}
		return nil, apperrors.NewUpstreamError("catalog search returned an error status", nil).
			WithDetails(resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperrors.NewUpstreamError("failed to read catalog response", err)
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, apperrors.NewUpstreamError("catalog response is not valid JSON", err)
	}
	if len(sr.Tracks.Items) == 0 {
		return nil, apperrors.ErrNoPreview
	}

	item := sr.Tracks.Items[0]
	preview := &Preview{
		TrackName:     item.Name,
		MatchDistance: levenshtein.Distance(strings.ToLower(title), strings.ToLower(item.Name)),
	}
	if len(item.Artists) > 0 {
		preview.Artist = item.Artists[0].Name
	}
	if item.PreviewURL != nil {
		preview.URL = *item.PreviewURL
	}
	return preview, nil
}
