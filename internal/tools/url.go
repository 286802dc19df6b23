// ABOUTME: Normalization of navigation target URLs supplied by clients.
// ABOUTME: Bare hosts gain https://; only web, file, and about schemes pass.

package tools

import (
	"fmt"
	"net/url"
	"strings"
)

var allowedSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"file":  true,
	"about": true,
}

// NormalizeURL trims raw, adds https:// to bare hosts, and rejects
// unsupported schemes.
func NormalizeURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("url is empty")
	}
	if !strings.Contains(s, "://") && !strings.HasPrefix(s, "about:") {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", raw, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if !allowedSchemes[scheme] {
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if (scheme == "http" || scheme == "https") && u.Host == "" {
		return "", fmt.Errorf("url %q has no host", raw)
	}
	return u.String(), nil
}
