// Package urlnorm repairs and canonicalizes user supplied service URLs.
package urlnorm

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/delta10/ows-discovery/internal/fetch"
)

var hostLikeScheme = regexp.MustCompile(`^(localhost|[a-z0-9-]+(\.[a-z0-9-]+)+)$`)

// Tile templates such as https://{s}.tile.example.org/{z}/{x}/{y}.png carry
// a subdomain placeholder that is not a valid host character.
var subdomainPlaceholder = regexp.MustCompile(`\{s\}\.`)

// Normalize parses raw, adding https:// when the scheme is missing, and
// returns the URL with its scheme forced to https.
func Normalize(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, &fetch.Error{Kind: fetch.KindInvalidURL, Err: errors.New("empty URL")}
	}
	raw = subdomainPlaceholder.ReplaceAllString(raw, "a.")

	u, err := url.Parse(raw)
	if err != nil || needsScheme(u) {
		lower := strings.ToLower(raw)
		if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
			u, err = url.Parse("https://" + strings.TrimPrefix(raw, "//"))
		}
	}
	if err != nil {
		return nil, fetch.Errorf(fetch.KindInvalidURL, raw, "failed to parse URL: %v", err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fetch.Errorf(fetch.KindInvalidURL, raw, "unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fetch.Errorf(fetch.KindInvalidURL, raw, "missing host")
	}

	u.Scheme = "https"
	return u, nil
}

// NormalizeString is Normalize returning the canonical string form.
func NormalizeString(raw string) (string, error) {
	u, err := Normalize(raw)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// needsScheme reports whether a successfully parsed URL is really a
// scheme-less host reference ("example.com/x", "localhost:8080/x").
func needsScheme(u *url.URL) bool {
	if u.Scheme == "" {
		return true
	}
	if u.Opaque != "" && hostLikeScheme.MatchString(strings.ToLower(u.Scheme)) {
		return len(u.Opaque) > 0 && u.Opaque[0] >= '0' && u.Opaque[0] <= '9'
	}
	return false
}
