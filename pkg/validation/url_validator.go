package validation

import (
	"net/url"
	"strings"

	apperrors "github.com/anime-shed/snaptune-go/internal/errors"
)

// URLValidator accepts absolute http(s) URLs, optionally only on listed hosts.
// It checks configured endpoints and the preview clips the catalog hands back.
type URLValidator struct {
	hosts map[string]struct{}
}

// NewURLValidator creates a validator; with no hosts every host is accepted
func NewURLValidator(hosts ...string) *URLValidator {
	v := &URLValidator{}
	for _, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			if v.hosts == nil {
				v.hosts = make(map[string]struct{})
			}
			v.hosts[h] = struct{}{}
		}
	}
	return v
}

// Restricted reports whether a host allowlist is in effect
func (v *URLValidator) Restricted() bool {
	return len(v.hosts) > 0
}

// ValidateURL returns a validation error unless rawURL is usable
func (v *URLValidator) ValidateURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return apperrors.NewValidationError(apperrors.CodeInvalidRequest, "URL cannot be empty", nil)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return apperrors.NewValidationError(apperrors.CodeInvalidRequest, "Invalid URL format", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return apperrors.NewValidationError(apperrors.CodeInvalidRequest, "URL scheme not allowed", nil)
	}

	if u.Host == "" || u.Hostname() == "" {
		return apperrors.NewValidationError(apperrors.CodeInvalidRequest, "URL must have a valid host", nil)
	}

	if v.Restricted() {
		if _, ok := v.hosts[strings.ToLower(u.Hostname())]; !ok {
			return apperrors.NewValidationError(apperrors.CodeInvalidRequest, "URL host not allowed", nil).
				WithDetails(u.Hostname())
		}
	}

	return nil
}
