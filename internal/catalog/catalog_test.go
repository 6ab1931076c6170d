package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/oauth2"

	apperrors "github.com/anime-shed/snaptune-go/internal/errors"
	"github.com/anime-shed/snaptune-go/internal/testutil"
)

type fakeCatalog struct {
	server      *httptest.Server
	tokenCalls  atomic.Int32
	searchCalls atomic.Int32
	lastQuery   atomic.Value
}

// newFakeCatalog serves a token endpoint and a search endpoint
func newFakeCatalog(t *testing.T, tokenStatus, searchStatus int, searchBody string) *fakeCatalog {
	t.Helper()
	f := &fakeCatalog{}
	mux := http.NewServeMux()

	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		id, secret, ok := r.BasicAuth()
		if !ok || id != "client-id" || secret != "client-secret" {
			t.Errorf("expected basic auth credentials, got %q/%q ok=%v", id, secret, ok)
		}
		if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
			t.Errorf("expected client_credentials grant, got %v", r.PostForm)
		}
		if tokenStatus != http.StatusOK {
			w.WriteHeader(tokenStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"tok","token_type":"Bearer","expires_in":3600}`)
	})

	mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
		f.searchCalls.Add(1)
		f.lastQuery.Store(r.URL.Query())
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("expected bearer token, got %q", r.Header.Get("Authorization"))
		}
		if searchStatus != http.StatusOK {
			w.WriteHeader(searchStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, searchBody)
	})

	f.server = httptest.NewServer(mux)
	return f
}

func (f *fakeCatalog) catalog(cache bool) *Catalog {
	tokens := NewTokenProvider("client-id", "client-secret", f.server.URL+"/api/token", cache, f.server.Client())
	return NewCatalog(f.server.URL+"/v1/", tokens, time.Second, f.server.Client())
}

const oneHit = `{"tracks":{"items":[{"name":"Song A","preview_url":"https://cdn/x.mp3","artists":[{"name":"Artist A"}]}]}}`

func TestCatalog_Lookup(t *testing.T) {
	tests := []struct {
		name         string
		tokenStatus  int
		searchStatus int
		body         string
		wantURL      string
		wantFound    bool
		wantSearches int32
	}{
		{
			name:         "preview found",
			tokenStatus:  http.StatusOK,
			searchStatus: http.StatusOK,
			body:         oneHit,
			wantURL:      "https://cdn/x.mp3",
			wantFound:    true,
			wantSearches: 1,
		},
		{
			name:         "zero results",
			tokenStatus:  http.StatusOK,
			searchStatus: http.StatusOK,
			body:         `{"tracks":{"items":[]}}`,
			wantSearches: 1,
		},
		{
			name:         "top result without preview",
			tokenStatus:  http.StatusOK,
			searchStatus: http.StatusOK,
			body:         `{"tracks":{"items":[{"name":"Song A","preview_url":null}]}}`,
			wantSearches: 1,
		},
		{
			name:         "search error status",
			tokenStatus:  http.StatusOK,
			searchStatus: http.StatusInternalServerError,
			wantSearches: 1,
		},
		{
			name:         "malformed search body",
			tokenStatus:  http.StatusOK,
			searchStatus: http.StatusOK,
			body:         `{"tracks":`,
			wantSearches: 1,
		},
		{
			name:         "token failure skips search",
			tokenStatus:  http.StatusUnauthorized,
			searchStatus: http.StatusOK,
			body:         oneHit,
			wantSearches: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeCatalog(t, tt.tokenStatus, tt.searchStatus, tt.body)
			defer f.server.Close()

			got, found := f.catalog(false).Lookup(context.Background(), "Song A", "Artist A")
			if found != tt.wantFound || got != tt.wantURL {
				t.Errorf("Expected (%q, %v), got (%q, %v)", tt.wantURL, tt.wantFound, got, found)
			}
			if f.searchCalls.Load() != tt.wantSearches {
				t.Errorf("Expected %d search calls, got %d", tt.wantSearches, f.searchCalls.Load())
			}
		})
	}
}

func TestCatalog_QueryFormat(t *testing.T) {
	f := newFakeCatalog(t, http.StatusOK, http.StatusOK, oneHit)
	defer f.server.Close()

	f.catalog(false).Lookup(context.Background(), "Song A", "Artist & Co")

	q, ok := f.lastQuery.Load().(url.Values)
	if !ok {
		t.Fatal("Expected a search request")
	}
	if got := q["q"]; len(got) != 1 || got[0] != "track:Song A artist:Artist & Co" {
		t.Errorf("Unexpected q parameter %v", got)
	}
	if q.Get("type") != "track" || q.Get("limit") != "1" {
		t.Errorf("Unexpected type/limit %v/%v", q.Get("type"), q.Get("limit"))
	}
}

func TestTokenProvider_Cache(t *testing.T) {
	tests := []struct {
		name           string
		cache          bool
		wantTokenCalls int32
	}{
		{"cached", true, 1},
		{"per request", false, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeCatalog(t, http.StatusOK, http.StatusOK, oneHit)
			defer f.server.Close()

			c := f.catalog(tt.cache)
			c.Lookup(context.Background(), "Song A", "Artist A")
			c.Lookup(context.Background(), "Song A", "Artist A")

			if f.tokenCalls.Load() != tt.wantTokenCalls {
				t.Errorf("Expected %d token calls, got %d", tt.wantTokenCalls, f.tokenCalls.Load())
			}
		})
	}
}

func TestTokenProvider_InvalidatedOnUnauthorized(t *testing.T) {
	f := newFakeCatalog(t, http.StatusOK, http.StatusUnauthorized, "")
	defer f.server.Close()

	c := f.catalog(true)
	c.Lookup(context.Background(), "Song A", "Artist A")
	c.Lookup(context.Background(), "Song A", "Artist A")

	if f.tokenCalls.Load() != 2 {
		t.Errorf("Expected a fresh token after a 401, got %d token calls", f.tokenCalls.Load())
	}
}

func TestTokenProvider_Errors(t *testing.T) {
	p := NewTokenProvider("", "", "http://localhost/token", true, nil)
	if _, err := p.Token(context.Background()); !apperrors.IsType(err, apperrors.ErrorTypeUpstream) {
		t.Errorf("Expected upstream error without credentials, got %v", err)
	}

	client, rt := testutil.FailingClient()
	p = NewTokenProvider("id", "secret", "http://catalog.invalid/token", false, client)
	if _, err := p.Token(context.Background()); !apperrors.IsType(err, apperrors.ErrorTypeUpstream) {
		t.Errorf("Expected upstream error on transport failure, got %v", err)
	}
	if rt.Calls() != 1 {
		t.Errorf("Expected exactly one token attempt, got %d", rt.Calls())
	}
}

func TestCatalog_TransportFailure(t *testing.T) {
	client, _ := testutil.FailingClient()
	c := NewCatalog("http://catalog.invalid/v1", nil, time.Second, client)

	if _, found := c.FindPreview(context.Background(), "Song", "Artist", &oauth2.Token{AccessToken: "tok"}); found {
		t.Error("Expected no preview when the search transport fails")
	}
	unreadable := &http.Client{Transport: testutil.NewMockRoundTripper(&http.Response{
		StatusCode: http.StatusOK,
		Body:       &testutil.FCloser{},
	}, nil)}
	c = NewCatalog("http://catalog.invalid/v1", nil, time.Second, unreadable)
	if _, found := c.FindPreview(context.Background(), "Song", "Artist", &oauth2.Token{AccessToken: "tok"}); found {
		t.Error("Expected no preview when the body cannot be read")
	}
	if _, found := c.FindPreview(context.Background(), "Song", "Artist", nil); found {
		t.Error("Expected no preview without a token")
	}
	if _, found := c.Lookup(context.Background(), "Song", "Artist"); found {
		t.Error("Expected no preview without a token source")
	}
}

func TestCatalog_MatchDistance(t *testing.T) {
	f := newFakeCatalog(t, http.StatusOK, http.StatusOK,
		`{"tracks":{"items":[{"name":"Song B","preview_url":"https://cdn/y.mp3","artists":[{"name":"Artist A"}]}]}}`)
	defer f.server.Close()

	c := f.catalog(false)
	preview, err := c.search(context.Background(), "song a", "Artist A", &oauth2.Token{AccessToken: "tok"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if preview.MatchDistance != 1 {
		t.Errorf("Expected distance 1, got %d", preview.MatchDistance)
	}
	if preview.Artist != "Artist A" || preview.URL != "https://cdn/y.mp3" {
		t.Errorf("Unexpected preview %+v", preview)
	}
}

func TestCatalog_LookupTimeout(t *testing.T) {
	tests := []struct {
		name      string
		slowToken bool
	}{
		{"slow search", false},
		{"slow token endpoint", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stall := func(r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			}
			mux := http.NewServeMux()
			mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
				if tt.slowToken {
					stall(r)
				}
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"access_token":"tok","token_type":"Bearer","expires_in":3600}`)
			})
			mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
				stall(r)
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, oneHit)
			})
			server := httptest.NewServer(mux)
			defer server.Close()

			tokens := NewTokenProvider("client-id", "client-secret", server.URL+"/api/token", false, server.Client())
			c := NewCatalog(server.URL+"/v1", tokens, 50*time.Millisecond, server.Client())

			start := time.Now()
			got, found := c.Lookup(context.Background(), "Song A", "Artist A")
			elapsed := time.Since(start)

			if found || got != "" {
				t.Errorf("Expected no preview after timeout, got (%q, %v)", got, found)
			}
			if elapsed > time.Second {
				t.Errorf("Expected lookup to give up near the 50ms timeout, took %s", elapsed)
			}
		})
	}
}

func TestCatalog_PreviewHosts(t *testing.T) {
	tests := []struct {
		name       string
		hosts      []string
		previewURL string
		wantFound  bool
	}{
		{"any host when unrestricted", nil, "https://cdn/x.mp3", true},
		{"listed host", []string{"p.scdn.co"}, "https://p.scdn.co/mp3-preview/abc", true},
		{"unlisted host", []string{"p.scdn.co"}, "https://cdn/x.mp3", false},
		{"non http clip", nil, "ftp://cdn/x.mp3", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := fmt.Sprintf(`{"tracks":{"items":[{"name":"Song A","preview_url":%q}]}}`, tt.previewURL)
			f := newFakeCatalog(t, http.StatusOK, http.StatusOK, body)
			defer f.server.Close()

			got, found := f.catalog(false).WithPreviewHosts(tt.hosts...).Lookup(context.Background(), "Song A", "Artist A")
			if found != tt.wantFound {
				t.Fatalf("Expected found=%v, got (%q, %v)", tt.wantFound, got, found)
			}
			if found && got != tt.previewURL {
				t.Errorf("Expected %s, got %s", tt.previewURL, got)
			}
		})
	}
}
