// Package sanitize defangs untrusted input before it reaches storage or
// rendering. The SQL-pattern filter here is defense-in-depth only: the real
// injection defense is the parametrized query layer in the user store.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Options toggles each stage of the String pipeline independently.
type Options struct {
	AllowHTML          bool
	MaxLength          int
	TrimWhitespace     bool
	RemoveControlChars bool
	NormalizeUnicode   bool
	PreventXSS         bool
	FilterSQLPatterns  bool
}

// Default strips all HTML and caps input at 10k characters.
func Default() Options {
	return Options{
		MaxLength:          10000,
		TrimWhitespace:     true,
		RemoveControlChars: true,
		NormalizeUnicode:   true,
		PreventXSS:         true,
		FilterSQLPatterns:  true,
	}
}

// Auth is the strict profile for credentials and signup fields.
func Auth() Options {
	o := Default()
	o.MaxLength = 500
	return o
}

// Search disables the SQL filter because search terms legitimately contain
// punctuation.
func Search() Options {
	o := Default()
	o.MaxLength = 1000
	o.FilterSQLPatterns = false
	return o
}

// Content allows a small tag set for user-authored rich text.
func Content() Options {
	o := Default()
	o.AllowHTML = true
	o.MaxLength = 50000
	o.PreventXSS = false
	o.FilterSQLPatterns = false
	return o
}

var (
	scriptBlockRe   = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	htmlTagRe       = regexp.MustCompile(`(?s)<[^>]*>`)
	eventAttrRe     = regexp.MustCompile(`(?i)\s+on\w+\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`)
	dangerousURLRe  = regexp.MustCompile(`(?i)(javascript|data)\s*:`)
	sqlCommentRe    = regexp.MustCompile(`--|/\*|\*/`)
	sqlKeywordRe    = regexp.MustCompile(`(?i)\b(UNION|SELECT|INSERT|UPDATE|DELETE|DROP|CREATE|ALTER|EXEC|SCRIPT)\b`)
	disallowedTagRe = regexp.MustCompile(`(?i)<\s*/?\s*(?:i?frame|object|embed|form|input|link|meta|style|base)\b[^>]*>`)
)

// xssReplacer entity-encodes the characters that enable markup execution.
var xssReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
	"/", "&#x2F;",
	`\`, "&#x5C;",
	"`", "&#x60;",
	"=", "&#x3D;",
)

// String runs the sanitization pipeline over one untrusted string.
// Stage order matters: structural stripping happens before entity encoding so
// script payloads are removed rather than merely escaped.
func String(input string, opts Options) string {
	s := input

	if opts.TrimWhitespace {
		s = strings.TrimSpace(s)
	}
	if opts.RemoveControlChars {
		s = stripControlChars(s)
	}
	if opts.NormalizeUnicode {
		s = norm.NFC.String(s)
	}
	if opts.MaxLength > 0 && len(s) > opts.MaxLength {
		// Back off to a rune boundary so truncation never emits invalid UTF-8.
		cut := opts.MaxLength
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}

	if opts.AllowHTML {
		s = sanitizeHTML(s)
	} else {
		s = scriptBlockRe.ReplaceAllString(s, "")
		s = htmlTagRe.ReplaceAllString(s, "")
	}

	// SQL filtering runs before entity encoding; stripping quotes and
	// semicolons afterwards would corrupt the encoded entities.
	if opts.FilterSQLPatterns {
		s = filterSQLPatterns(s)
	}
	if opts.PreventXSS && !opts.AllowHTML {
		s = encodeIfUnsafe(s)
	}

	return s
}

// Object recurses through arrays and string-keyed maps, sanitizing every
// string leaf and every map key. Numbers, booleans, and nil pass through
// untouched, as do values of any other type.
func Object(value any, opts Options) any {
	switch v := value.(type) {
	case string:
		return String(v, opts)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Object(item, opts)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[String(key, opts)] = Object(item, opts)
		}
		return out
	default:
		return value
	}
}

func stripControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}

// encodeIfUnsafe entity-encodes dangerous characters, but leaves strings that
// are already clean untouched so sanitization stays idempotent.
func encodeIfUnsafe(s string) string {
	if !strings.ContainsAny(s, "&<>\"'/\\`=") {
		return s
	}
	return xssReplacer.Replace(s)
}

func filterSQLPatterns(s string) string {
	out := strings.Map(func(r rune) rune {
		switch r {
		case '\'', '"', ';':
			return -1
		}
		return r
	}, s)
	out = sqlCommentRe.ReplaceAllString(out, "")
	out = sqlKeywordRe.ReplaceAllString(out, "")
	return out
}

// sanitizeHTML applies the allow-list path: script blocks and event handlers
// are removed, javascript:/data: URLs neutralized, and structural tags outside
// the allow-list stripped. Basic formatting tags (p, br, b, i, em, strong, u,
// a, ul, ol, li, blockquote, code, pre) survive.
func sanitizeHTML(s string) string {
	s = scriptBlockRe.ReplaceAllString(s, "")
	s = eventAttrRe.ReplaceAllString(s, "")
	s = dangerousURLRe.ReplaceAllString(s, "")
	s = disallowedTagRe.ReplaceAllString(s, "")
	return s
}
