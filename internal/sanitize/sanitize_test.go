package sanitize

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestStringIdempotentOnCleanInput(t *testing.T) {
	t.Parallel()

	cases := []string{
		"hello world",
		"user 42 logged in",
		"Grüße aus Köln",
		"tabs\tand newlines\nsurvive",
	}
	for _, input := range cases {
		once := String(input, Default())
		twice := String(once, Default())
		if once != twice {
			t.Fatalf("sanitize not idempotent for %q: %q != %q", input, once, twice)
		}
	}
}

func TestXSSStripping(t *testing.T) {
	t.Parallel()

	out := String("<script>alert(1)</script>hello", Default())
	if strings.Contains(out, "<script") {
		t.Fatalf("output still contains script tag: %q", out)
	}
	if strings.Contains(out, "alert(1)") {
		t.Fatalf("output still contains script payload: %q", out)
	}
	if !strings.Contains(out, "hello") {
		t.Fatalf("output lost surrounding text: %q", out)
	}
}

func TestXSSEncoding(t *testing.T) {
	t.Parallel()

	lt := String("1 < 2", Default())
	if strings.Contains(lt, "<") || !strings.Contains(lt, "&lt;") {
		t.Fatalf("expected encoded <, got %q", lt)
	}
	gt := String("3 > 2", Default())
	if strings.Contains(gt, ">") || !strings.Contains(gt, "&gt;") {
		t.Fatalf("expected encoded >, got %q", gt)
	}

	// Search profile keeps quotes (no SQL filter) but still encodes them.
	quoted := String(`say "hi"`, Search())
	if strings.Contains(quoted, `"`) || !strings.Contains(quoted, "&quot;") {
		t.Fatalf("expected encoded quotes, got %q", quoted)
	}
}

func TestControlCharsAndTrim(t *testing.T) {
	t.Parallel()

	out := String("  \x00weird\x1binput\x7f  ", Default())
	if out != "weirdinput" {
		t.Fatalf("got %q", out)
	}
}

func TestMaxLengthTruncation(t *testing.T) {
	t.Parallel()

	opts := Auth()
	long := strings.Repeat("a", 600)
	out := String(long, opts)
	if len(out) != 500 {
		t.Fatalf("auth profile should truncate to 500, got %d", len(out))
	}
}

func TestMaxLengthKeepsValidUTF8(t *testing.T) {
	t.Parallel()

	opts := Default()
	opts.MaxLength = 5

	// The byte limit lands mid-rune; truncation must retreat to the boundary.
	out := String("aaaa日x", opts)
	if !utf8.ValidString(out) {
		t.Fatalf("truncated output is invalid UTF-8: %q", out)
	}
	if out != "aaaa" {
		t.Fatalf("got %q, want %q", out, "aaaa")
	}

	opts.MaxLength = 7
	out = String("aaaa日x", opts)
	if out != "aaaa日" {
		t.Fatalf("whole-rune cut should survive: %q", out)
	}
}

func TestSQLPatternFilter(t *testing.T) {
	t.Parallel()

	out := String(`name'; DROP TABLE users; --`, Default())
	for _, forbidden := range []string{"'", ";", "--", "DROP"} {
		if strings.Contains(out, forbidden) {
			t.Fatalf("sql pattern %q survived: %q", forbidden, out)
		}
	}

	// The search profile must leave punctuation alone.
	searchOut := String(`c. s. lewis -- "select" quotes`, Search())
	if !strings.Contains(searchOut, "--") {
		t.Fatalf("search profile should not strip sql patterns: %q", searchOut)
	}
}

func TestContentProfileKeepsAllowedTags(t *testing.T) {
	t.Parallel()

	in := `<p>fine</p><script>alert(1)</script><iframe src="x"></iframe><a href="javascript:evil()" onclick="evil()">link</a>`
	out := String(in, Content())
	if !strings.Contains(out, "<p>fine</p>") {
		t.Fatalf("allowed tag stripped: %q", out)
	}
	for _, forbidden := range []string{"<script", "<iframe", "onclick", "javascript:"} {
		if strings.Contains(out, forbidden) {
			t.Fatalf("dangerous fragment %q survived: %q", forbidden, out)
		}
	}
}

func TestObjectRecursion(t *testing.T) {
	t.Parallel()

	in := map[string]any{
		"name":  "<b>bob</b>",
		"count": 3,
		"ok":    true,
		"tags":  []any{"<i>x</i>", 7, nil},
		"nested": map[string]any{
			"<b>k</b>": "v",
		},
	}
	out, ok := Object(in, Default()).(map[string]any)
	if !ok {
		t.Fatalf("object should stay a map")
	}
	if out["name"] != "bob" {
		t.Fatalf("string leaf not sanitized: %q", out["name"])
	}
	if out["count"] != 3 || out["ok"] != true {
		t.Fatalf("non-string leaves must pass through untouched")
	}
	tags, ok := out["tags"].([]any)
	if !ok || tags[0] != "x" || tags[1] != 7 || tags[2] != nil {
		t.Fatalf("array recursion broken: %#v", out["tags"])
	}
	nested := out["nested"].(map[string]any)
	if _, found := nested["k"]; !found {
		t.Fatalf("map keys must be sanitized too: %#v", nested)
	}
}

func TestEmail(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"  TEST@EXAMPLE.COM  ", "test@example.com", true},
		{"user.name+tag@sub.example.org", "user.name+tag@sub.example.org", true},
		{"invalid..email@x.com", "", false},
		{".leading@x.com", "", false},
		{"trailing.@x.com", "", false},
		{"dot@.example.com", "", false},
		{"no-at-sign.example.com", "", false},
		{`"quoted"@example.com`, "quoted@example.com", true},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := Email(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("Email(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestURL(t *testing.T) {
	t.Parallel()

	if _, ok := URL("javascript:alert(1)"); ok {
		t.Fatalf("javascript scheme must be rejected")
	}
	if _, ok := URL("ftp://example.com/file"); ok {
		t.Fatalf("non-http scheme must be rejected")
	}
	got, ok := URL(" https://example.com/path?q=1 ")
	if !ok || got != "https://example.com/path?q=1" {
		t.Fatalf("valid https url rejected: (%q, %v)", got, ok)
	}
}

func TestPhone(t *testing.T) {
	t.Parallel()

	got, ok := Phone("+1 (415) 555-0100")
	if !ok || got != "+14155550100" {
		t.Fatalf("Phone = (%q, %v)", got, ok)
	}
	if _, ok := Phone("555-0100"); !ok {
		t.Fatalf("short national number within bounds should pass")
	}
	if _, ok := Phone("12345"); ok {
		t.Fatalf("too-short number must be rejected")
	}
	if _, ok := Phone("not a number"); ok {
		t.Fatalf("letters must be rejected")
	}
}
