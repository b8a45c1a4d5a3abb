package ladder

import (
	"net/url"
	"strings"

	"github.com/landcrawl/landcrawl/internal/domain"
)

// ExtractMarkdownLinks pulls outbound link targets from Markdown-like
// readable text: the pattern is "(scheme://...)" inside parentheses, with a
// trailing unmatched ")" trimmed (Markdown link syntax "[text](url)" always
// closes the URL in its own paren group, so scanning for "(scheme://" and
// then balancing parens recovers the URL without a full Markdown parse).
// Used to re-derive links from stored readable text during consolidation,
// where no raw HTML is retained to re-run the HTML-based extractor.
func ExtractMarkdownLinks(md string, base *url.URL) []string {
	seen := make(map[string]struct{})

	var out []string

	for _, raw := range scanParenURLs(md) {
		resolved := resolveAgainst(raw, base)
		if resolved == "" {
			continue
		}

		if _, ok := seen[resolved]; ok {
			continue
		}

		seen[resolved] = struct{}{}

		out = append(out, resolved)
	}

	return out
}

// ExtractMarkdownMedia pulls image references from Markdown image syntax
// "![alt](url)" in readable text, resolving relative URLs against base.
// Markdown readable text only carries inline images (never video/audio
// tags), so this only ever yields MediaImage references; video/audio
// references are HTML-only and are not recoverable from stored readable
// text during consolidation.
func ExtractMarkdownMedia(md string, base *url.URL) []MediaRef {
	seen := make(map[string]struct{})

	var out []MediaRef

	idx := 0
	for {
		bang := strings.Index(md[idx:], "![")
		if bang == -1 {
			break
		}

		bang += idx

		closeBracket := strings.Index(md[bang:], "]")
		if closeBracket == -1 {
			break
		}

		closeBracket += bang

		if closeBracket+1 >= len(md) || md[closeBracket+1] != '(' {
			idx = closeBracket + 1
			continue
		}

		urlStart := closeBracket + 2

		raw, consumed := balancedParenURL(md[urlStart:])
		if raw == "" {
			idx = urlStart
			continue
		}

		resolved := resolveAgainst(raw, base)
		if resolved != "" {
			if _, ok := seen[resolved]; !ok {
				seen[resolved] = struct{}{}
				out = append(out, MediaRef{URL: resolved, Type: domain.MediaImage})
			}
		}

		idx = urlStart + consumed
	}

	return out
}

// scanParenURLs finds every "(scheme://...)" occurrence in text and returns
// the enclosed URL, trimming a trailing unmatched ")".
func scanParenURLs(text string) []string {
	var out []string

	idx := 0
	for {
		start := findEitherScheme(text[idx:])
		if start == -1 {
			break
		}

		start += idx

		// start points at "h" of "http"; the opening paren is just before it.
		if start == 0 || text[start-1] != '(' {
			idx = start + 1
			continue
		}

		raw, consumed := balancedParenURL(text[start:])
		if raw != "" {
			out = append(out, raw)
		}

		idx = start + consumed
		if consumed == 0 {
			idx = start + 1
		}
	}

	return out
}

func findEitherScheme(text string) int {
	httpIdx := strings.Index(text, "http://")
	httpsIdx := strings.Index(text, "https://")

	switch {
	case httpIdx == -1:
		return httpsIdx
	case httpsIdx == -1:
		return httpIdx
	case httpIdx < httpsIdx:
		return httpIdx
	default:
		return httpsIdx
	}
}

// balancedParenURL reads a URL starting at the beginning of s up to the
// closing paren of its enclosing markdown group. Parens balanced inside the
// URL itself (Wikipedia-style "..._(disambiguation)") are kept; a trailing
// unmatched ")" is trimmed only when the URL ends at whitespace or
// end-of-text instead of a proper close. It returns the URL and the number
// of bytes consumed from s.
func balancedParenURL(s string) (string, int) {
	depth := 0

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			if depth == 0 {
				return s[:i], i + 1
			}

			depth--
		case ' ', '\n', '\t', '"', '\'':
			return trimUnmatchedParens(s[:i]), i
		}
	}

	return trimUnmatchedParens(s), len(s)
}

// trimUnmatchedParens strips trailing ")" characters that have no matching
// "(" within the candidate URL.
func trimUnmatchedParens(s string) string {
	for strings.HasSuffix(s, ")") && strings.Count(s, ")") > strings.Count(s, "(") {
		s = s[:len(s)-1]
	}

	return s
}

// resolveAgainst resolves href against base, rejecting javascript:/mailto:
// links and non-http(s) schemes after resolution.
func resolveAgainst(href string, base *url.URL) string {
	if strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "#") || href == "" {
		return ""
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := base.ResolveReference(parsed)

	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}

	return resolved.String()
}
