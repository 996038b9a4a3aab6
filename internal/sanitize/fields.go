package sanitize

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	emailRe = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
)

// Email normalizes and validates an address: lowercased, trimmed, dangerous
// characters stripped, RFC-shaped, and free of doubled or edge dots. Returns
// ok=false rather than an error so callers decide how to report it.
func Email(input string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(input))
	s = strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '"', '\'', '(', ')', ';', '`', '\\':
			return -1
		}
		return r
	}, s)

	if !emailRe.MatchString(s) {
		return "", false
	}
	if strings.Contains(s, "..") {
		return "", false
	}
	local, _, found := strings.Cut(s, "@")
	if !found {
		return "", false
	}
	if strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") {
		return "", false
	}
	if strings.Contains(s, "@.") {
		return "", false
	}
	return s, true
}

// URL accepts absolute http/https URLs only.
func URL(input string) (string, bool) {
	s := strings.TrimSpace(input)
	u, err := url.Parse(s)
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if u.Host == "" {
		return "", false
	}
	return u.String(), true
}

// Phone accepts E.164-shaped numbers after stripping separators.
func Phone(input string) (string, bool) {
	s := strings.TrimSpace(input)
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, s)
	if !phoneRe.MatchString(s) {
		return "", false
	}
	return s, true
}
