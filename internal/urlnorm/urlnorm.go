// Package urlnorm normalizes user-supplied website addresses and derives the
// identifiers used to group checks and reports by website.
package urlnorm

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
)

var ErrInvalidURL = errors.New("invalid url")

var (
	schemeRE  = regexp.MustCompile(`^[a-zA-Z]+://`)
	twitterRE = regexp.MustCompile(`(?i)twitter\.com`)
)

// Format trims the input, defaults the scheme to https and appends ".com"
// to a hostname without a dot. Format(Format(x)) == Format(x).
func Format(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	if !schemeRE.MatchString(s) {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if !IsValidHTTPURL(u.String()) {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}

	host := u.Hostname()
	if !strings.Contains(host, ".") && net.ParseIP(host) == nil {
		host += ".com"
		if p := u.Port(); p != "" {
			u.Host = net.JoinHostPort(host, p)
		} else {
			u.Host = host
		}
	}
	return u.String(), nil
}

// IsValidHTTPURL accepts absolute http(s) URLs with a host.
func IsValidHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Hostname() != ""
}

// Hostname returns the lower-cased host of raw, tolerating a missing scheme.
// It returns "" when raw cannot be parsed.
func Hostname(raw string) string {
	s := strings.TrimSpace(raw)
	if !schemeRE.MatchString(s) {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func StripWWW(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

// SameHost compares the hostnames of two URLs ignoring a leading "www.".
func SameHost(a, b string) bool {
	ha, hb := StripWWW(Hostname(a)), StripWWW(Hostname(b))
	return ha != "" && ha == hb
}

// WebsiteID derives the short website identifier: the first label of the
// hostname without "www." ("https://www.google.com" -> "google").
func WebsiteID(raw string) string {
	host := StripWWW(Hostname(raw))
	if i := strings.IndexByte(host, '.'); i >= 0 {
		return host[:i]
	}
	return host
}

// CanonicalizeReport rewrites reports about twitter.com to x.com.
func CanonicalizeReport(rawURL, websiteID string) (string, string) {
	if twitterRE.MatchString(rawURL) {
		return twitterRE.ReplaceAllString(rawURL, "x.com"), "x"
	}
	return rawURL, websiteID
}

// DisplayName is the label shown for a website.
func DisplayName(websiteID, rawURL string) string {
	if websiteID == "twitter" {
		return "X (Twitter)"
	}
	if host := StripWWW(Hostname(rawURL)); host != "" {
		return host
	}
	if websiteID == "" {
		return ""
	}
	return strings.ToUpper(websiteID[:1]) + websiteID[1:]
}
