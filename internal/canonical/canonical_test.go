package canonical

import (
	"regexp"
	"testing"
)

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"no fragment", "https://a.test/x", "https://a.test/x"},
		{"fragment stripped", "https://a.test/x#s", "https://a.test/x"},
		{"fragment at zero kept", "#s", "#s"},
		{"idempotent", Canonicalize("https://a.test/x#s#t"), "https://a.test/x"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Canonicalize(tc.in)
			if got != tc.want {
				t.Fatalf("Canonicalize(%q) = %q, want %q", tc.in, got, tc.want)
			}

			if Canonicalize(got) != got {
				t.Fatalf("Canonicalize not idempotent for %q", tc.in)
			}
		})
	}
}

func TestIsCrawlable(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		{"https://a.test/x", true},
		{"http://a.test/x", true},
		{"ftp://a.test/x", false},
		{"https://a.test/img.jpg", false},
		{"https://a.test/img.JPG", true}, // case-sensitive match only
		{"https://a.test/report.pdf", false},
		{"https://a.test/doc.docx", false},
		{"not a url", false},
	}

	for _, tc := range cases {
		if got := IsCrawlable(tc.url); got != tc.want {
			t.Errorf("IsCrawlable(%q) = %v, want %v", tc.url, got, tc.want)
		}
	}
}

func TestDomainOf(t *testing.T) {
	heuristics := []Heuristic{
		{Suffix: "example.com", Regex: regexp.MustCompile(`example\.com/(\w+)`)},
	}

	got := DomainOf("https://example.com/alice/posts", heuristics)
	if got != "alice" {
		t.Fatalf("DomainOf rewritten = %q, want alice", got)
	}

	got = DomainOf("https://other.test/page", heuristics)
	if got != "other.test" {
		t.Fatalf("DomainOf bare host = %q, want other.test", got)
	}

	if DomainOf("://bad", nil) != "" {
		t.Fatalf("DomainOf malformed should be empty")
	}
}
