package ladder

import (
	"net/url"
	"strings"
	"unicode"

	"github.com/araddon/dateparse"
)

// enrichMetadata applies the title/description/keywords/lang/published_at
// fallback chain (Open Graph -> Twitter -> Schema.org -> standard tags) to a
// Result that already has ladder-stage content, overriding a field only
// when the enriched value is non-empty. rawHTML is parsed once into a DOM
// via golang.org/x/net/html rather than scanned byte-by-byte.
func (l *Ladder) enrichMetadata(r *Result, rawHTML string, base *url.URL) {
	doc, err := parseDocument([]byte(rawHTML))
	if err != nil || doc == nil {
		if r.Title == "" {
			r.Title = base.String()
		}

		return
	}

	if v := firstNonEmpty(
		metaFallback(doc, "property", "og:title"),
		metaFallback(doc, "name", "twitter:title"),
		metaFallback(doc, "itemprop", "headline"),
		titleTagDOM(doc),
	); v != "" {
		r.Title = v
	}

	if v := firstNonEmpty(
		metaFallback(doc, "property", "og:description"),
		metaFallback(doc, "name", "twitter:description"),
		metaFallback(doc, "itemprop", "description"),
		metaFallback(doc, "name", "description"),
	); v != "" {
		r.Description = truncate(v, maxExcerptLength)
	}

	if v := firstNonEmpty(
		metaFallback(doc, "name", "keywords"),
		metaFallback(doc, "itemprop", "keywords"),
	); v != "" {
		r.Keywords = v
	}

	if v := firstNonEmpty(
		metaFallback(doc, "property", "og:locale"),
		metaFallback(doc, "name", "twitter:lang"),
		langAttrDOM(doc),
	); v != "" {
		r.Lang = normalizeLangCode(v)
	} else if r.Lang == "" {
		r.Lang = DetectLanguage(r.Title + " " + r.Readable)
	}

	// published_at has its own fallback chain (Open Graph/Schema.org/<time
	// datetime>) parsed through dateparse, since publish dates arrive in
	// assorted formats across sources.
	if r.PublishedAt.IsZero() {
		if raw := publishedTimeFallback(doc); raw != "" {
			if t, perr := dateparse.ParseAny(raw); perr == nil {
				r.PublishedAt = t
			}
		}
	}

	if r.Title == "" {
		r.Title = base.String()
	}
}

func normalizeLangCode(v string) string {
	const minLen = 2

	v = strings.TrimSpace(v)
	if len(v) < minLen {
		return ""
	}

	return strings.ToLower(v[:minLen])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}

// cyrillicThreshold is the letter ratio above which text is tagged as
// Cyrillic-script.
const cyrillicThreshold = 0.3

// DetectLanguage returns a short language code for text whose script is
// decisive ("ru" for Cyrillic-dominant text), or "" otherwise. Latin-script
// text is deliberately left untagged: script alone cannot distinguish
// French from English or Spanish, and a wrong guess would trip the
// language gate on undeclared pages.
func DetectLanguage(text string) string {
	if text == "" {
		return ""
	}

	var cyrillic, letters int

	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}

		letters++

		if r >= 0x0400 && r <= 0x04FF {
			cyrillic++
		}
	}

	if letters == 0 {
		return ""
	}

	if float64(cyrillic)/float64(letters) >= cyrillicThreshold {
		return "ru"
	}

	return ""
}
