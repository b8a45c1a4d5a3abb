// Package canonical implements URL canonicalization, crawlability
// filtering and domain-identity derivation (the URL Canonicalizer).
package canonical

import (
	"net/url"
	"regexp"
	"strings"
)

// excludedExtensions are suffixes that mark a URL as pure media/document
// content rather than a crawlable page. Matching is case-sensitive.
var excludedExtensions = []string{
	".jpg", ".jpeg", ".png", ".bmp", ".webp",
	".pdf", ".txt", ".csv", ".xls", ".xlsx", ".doc", ".docx",
}

// Heuristic rewrites the derived domain identity for URLs whose host ends
// with Suffix: if Regex matches the full URL, the domain identity becomes
// the first capture group instead of the bare host. This keeps distinct
// accounts on the same platform (e.g. example.com/user, user.example.com)
// as distinct domains.
type Heuristic struct {
	Suffix string
	Regex  *regexp.Regexp
}

// Canonicalize strips the fragment: everything from the first '#' found at
// position > 0. A URL with no fragment, or one whose only '#' is at
// position 0, is returned unchanged.
func Canonicalize(raw string) string {
	idx := strings.Index(raw, "#")
	if idx <= 0 {
		return raw
	}

	return raw[:idx]
}

// IsCrawlable reports whether raw is a candidate for fetching: it must use
// http(s) and must not end with one of the excluded extensions. Malformed
// URLs and pure-media URLs return false; IsCrawlable never fails.
func IsCrawlable(raw string) bool {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return false
	}

	for _, ext := range excludedExtensions {
		if strings.HasSuffix(raw, ext) {
			return false
		}
	}

	return true
}

// DomainOf derives the canonical domain identity for raw: the URL's
// host[:port], rewritten by the first matching Heuristic. Malformed URLs
// yield the empty string.
func DomainOf(raw string, heuristics []Heuristic) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	host := strings.ToLower(parsed.Host)
	if host == "" {
		return ""
	}

	for _, h := range heuristics {
		if !strings.HasSuffix(host, h.Suffix) {
			continue
		}

		m := h.Regex.FindStringSubmatch(raw)
		if len(m) >= 2 && m[1] != "" {
			return m[1]
		}
	}

	return host
}

// RawHeuristic is an uncompiled (suffix, pattern) pair, matching the shape
// loaded from the heuristics YAML file.
type RawHeuristic struct {
	Suffix  string
	Pattern string
}

// CompileHeuristics compiles each RawHeuristic's pattern, skipping (and
// reporting) any that fail to compile rather than aborting the whole set: a
// single malformed heuristic entry should not disable domain-identity
// rewriting for every other configured suffix.
func CompileHeuristics(raw []RawHeuristic) ([]Heuristic, []error) {
	compiled := make([]Heuristic, 0, len(raw))

	var errs []error

	for _, r := range raw {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		compiled = append(compiled, Heuristic{Suffix: r.Suffix, Regex: re})
	}

	return compiled, errs
}
