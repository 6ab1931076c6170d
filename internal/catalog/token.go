// Package catalog finds preview clips for songs in the music catalog.
package catalog

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	apperrors "github.com/anime-shed/snaptune-go/internal/errors"
)

// TokenSource yields bearer tokens for the catalog API
type TokenSource interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

// TokenProvider performs the client-credentials exchange. With caching enabled
// a token is reused across requests until it expires.
type TokenProvider struct {
	cfg        clientcredentials.Config
	httpClient *http.Client
	cache      bool

	mu    sync.Mutex
	token *oauth2.Token
}

// NewTokenProvider creates a provider; client id and secret go out as HTTP basic auth
func NewTokenProvider(clientID, clientSecret, tokenURL string, cache bool, httpClient *http.Client) *TokenProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &TokenProvider{
		cfg: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		httpClient: httpClient,
		cache:      cache,
	}
}

// Token returns a valid token or an upstream error
func (p *TokenProvider) Token(ctx context.Context) (*oauth2.Token, error) {
	if p.cfg.ClientID == "" || p.cfg.ClientSecret == "" {
		return nil, apperrors.NewUpstreamError("catalog token unavailable", apperrors.ErrMissingCredentials)
	}

	if p.cache {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.token.Valid() {
			return p.token, nil
		}
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	tok, err := p.cfg.Token(ctx)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		appErr := apperrors.NewUpstreamError("catalog token exchange failed", err)
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			appErr.WithDetails(retrieveErr.Response.Status)
		}
		return nil, appErr
	}

	if p.cache {
		p.token = tok
	}
	return tok, nil
}

// Invalidate drops a cached token, e.g. after the API rejected it
func (p *TokenProvider) Invalidate() {
	p.mu.Lock()
	p.token = nil
	p.mu.Unlock()
}
