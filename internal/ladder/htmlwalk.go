package ladder

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/landcrawl/landcrawl/internal/domain"
)

// noiseTags are dropped wholesale before visible-text extraction, per the
// structural fallback stage's DOM-cleaning rule (script, style, iframe,
// form, footer, nav).
var noiseTags = map[atom.Atom]bool{
	atom.Script: true,
	atom.Style:  true,
	atom.Iframe: true,
	atom.Form:   true,
	atom.Footer: true,
	atom.Nav:    true,
}

// noiseClasses extend the tag-based drop list to class-named containers
// (.footer, .nav, .menu, .social, .modal) that aren't necessarily <footer>
// or <nav> elements.
var noiseClasses = []string{"footer", "nav", "menu", "social", "modal"}

// blockTags are treated as line breaks when collecting visible text, so
// "<p>a</p><p>b</p>" becomes two lines rather than one run-on string.
var blockTags = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true,
	atom.Tr: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true, atom.Section: true,
	atom.Article: true, atom.Header: true, atom.Ul: true, atom.Ol: true,
	atom.Table: true, atom.Blockquote: true, atom.Pre: true,
}

func parseDocument(body []byte) (*html.Node, error) {
	return html.Parse(bytes.NewReader(body))
}

func attrValue(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}

	return "", false
}

func hasNoiseClass(n *html.Node) bool {
	class, ok := attrValue(n, "class")
	if !ok {
		return false
	}

	for _, c := range strings.Fields(strings.ToLower(class)) {
		for _, noise := range noiseClasses {
			if c == noise {
				return true
			}
		}
	}

	return false
}

func isNoiseNode(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}

	return noiseTags[n.DataAtom] || hasNoiseClass(n)
}

// visibleTextDOM walks doc collecting visible text, skipping noise subtrees
// entirely and treating block-level elements as line breaks, matching the
// structural fallback's "single-space separators line-by-line, trim blanks"
// rule.
func visibleTextDOM(doc *html.Node) string {
	var (
		lines []string
		cur   strings.Builder
	)

	flush := func() {
		t := strings.TrimSpace(cur.String())
		if t != "" {
			lines = append(lines, t)
		}

		cur.Reset()
	}

	var walk func(*html.Node)

	walk = func(n *html.Node) {
		if isNoiseNode(n) {
			return
		}

		if n.Type == html.TextNode {
			cur.WriteString(n.Data)
			return
		}

		block := n.Type == html.ElementNode && blockTags[n.DataAtom]
		if block {
			flush()
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if block {
			flush()
		}
	}

	walk(doc)
	flush()

	return strings.Join(lines, " ")
}

// collectLinksDOM walks doc collecting every <a href>, resolved against
// base, deduplicated in encounter order.
func collectLinksDOM(doc *html.Node, base *url.URL) []string {
	seen := make(map[string]struct{})

	var out []string

	var walk func(*html.Node)

	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			if href, ok := attrValue(n, "href"); ok {
				if resolved := resolveAgainst(href, base); resolved != "" {
					if _, dup := seen[resolved]; !dup {
						seen[resolved] = struct{}{}
						out = append(out, resolved)
					}
				}
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)

	return out
}

var mediaTagTypes = map[atom.Atom]domain.MediaType{
	atom.Img:   domain.MediaImage,
	atom.Video: domain.MediaVideo,
	atom.Audio: domain.MediaAudio,
}

// collectMediaDOM walks doc collecting img/video/audio src attributes,
// resolved against base and deduplicated by (type, resolved URL).
func collectMediaDOM(doc *html.Node, base *url.URL) []MediaRef {
	seen := make(map[string]struct{})

	var out []MediaRef

	var walk func(*html.Node)

	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if mt, ok := mediaTagTypes[n.DataAtom]; ok {
				if src, ok := attrValue(n, "src"); ok {
					if resolved := resolveAgainst(src, base); resolved != "" {
						key := string(mt) + "|" + resolved
						if _, dup := seen[key]; !dup {
							seen[key] = struct{}{}
							out = append(out, MediaRef{URL: resolved, Type: mt})
						}
					}
				}
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)

	return out
}

// metaFallback scans every <meta> tag for one whose attr ("property",
// "name" or "itemprop") equals key, case-insensitively, returning its
// content attribute. Returns "" if none matches.
func metaFallback(doc *html.Node, attr, key string) string {
	var found string

	var walk func(*html.Node) bool

	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.Meta {
			if v, ok := attrValue(n, attr); ok && strings.EqualFold(v, key) {
				if c, ok := attrValue(n, "content"); ok {
					found = c
					return true
				}
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}

		return false
	}

	walk(doc)

	return found
}

func titleTagDOM(doc *html.Node) string {
	var found string

	var walk func(*html.Node) bool

	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.Title && n.FirstChild != nil {
			found = strings.TrimSpace(n.FirstChild.Data)
			return true
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}

		return false
	}

	walk(doc)

	return found
}

func langAttrDOM(doc *html.Node) string {
	var found string

	var walk func(*html.Node) bool

	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.Html {
			if v, ok := attrValue(n, "lang"); ok {
				found = v
				return true
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}

		return false
	}

	walk(doc)

	return found
}

// publishedTimeFallback scans for the common article-published meta tags
// (Open Graph / Schema.org / <time datetime>), in priority order.
func publishedTimeFallback(doc *html.Node) string {
	if v := metaFallback(doc, "property", "article:published_time"); v != "" {
		return v
	}

	if v := metaFallback(doc, "name", "date"); v != "" {
		return v
	}

	if v := metaFallback(doc, "itemprop", "datePublished"); v != "" {
		return v
	}

	var found string

	var walk func(*html.Node) bool

	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.Time {
			if v, ok := attrValue(n, "datetime"); ok && v != "" {
				found = v
				return true
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}

		return false
	}

	walk(doc)

	return found
}
