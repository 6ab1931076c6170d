package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/anime-shed/snaptune-go/internal/errors"
)

// AudioSource produces a playable snippet URL for a song that the analysis
// service flagged for custom audio.
type AudioSource interface {
	SnippetURL(ctx context.Context, title, artist string) (string, error)
	Name() string
}

// NewHTTPClient returns the client used for all outbound calls
func NewHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     60 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 16 << 10,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return fmt.Errorf("too many redirects (limit: 3)")
			}
			return nil
		},
	}
}

// EndpointAudioSource asks an external synthesis service for a snippet.
// The service answers GET <endpoint>?title=..&artist=.. with {"url": "..."}.
type EndpointAudioSource struct {
	endpoint string
	client   *http.Client
}

func NewEndpointAudioSource(endpoint string, client *http.Client) *EndpointAudioSource {
	if client == nil {
		client = NewHTTPClient(10 * time.Second)
	}
	return &EndpointAudioSource{endpoint: endpoint, client: client}
}

func (s *EndpointAudioSource) Name() string {
	return "endpoint"
}

// SnippetURL makes a single attempt; callers fall back on any error
func (s *EndpointAudioSource) SnippetURL(ctx context.Context, title, artist string) (string, error) {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return "", apperrors.NewInternalError("invalid custom audio endpoint", err)
	}
	q := u.Query()
	q.Set("title", title)
	q.Set("artist", artist)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", apperrors.NewInternalError("failed to build custom audio request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Snaptune/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", apperrors.NewUpstreamError("custom audio request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperrors.NewUpstreamError("custom audio service returned an error status", nil).
			WithDetails(resp.Status)
	}

	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err != nil {
		return "", apperrors.NewUpstreamError("custom audio response is not valid JSON", err)
	}

	snippet := strings.TrimSpace(body.URL)
	if snippet == "" {
		return "", apperrors.NewUpstreamError("custom audio response has no url", apperrors.ErrNoPreview)
	}
	return snippet, nil
}
