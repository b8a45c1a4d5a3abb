package ladder

import (
	"bytes"
	"net/url"

	"codeberg.org/readeck/go-readability/v2"
	"golang.org/x/net/html"
)

// readabilityStage is stage 2: run the readability/main-content extractor
// on the fetched HTML. Content is accepted only if its rendered text is
// longer than minContentLength; otherwise the ladder falls through to the
// structural fallback.
func (l *Ladder) readabilityStage(body []byte, base *url.URL) (Result, bool) {
	article, err := readability.FromReader(bytes.NewReader(body), base)
	if err != nil || article.Node == nil {
		return Result{}, false
	}

	var buf bytes.Buffer
	if rerr := article.RenderText(&buf); rerr != nil {
		return Result{}, false
	}

	text := buf.String()
	if len(text) <= minContentLength {
		return Result{}, false
	}

	var htmlBuf bytes.Buffer

	_ = html.Render(&htmlBuf, article.Node)

	result := Result{
		Stage:    "readability",
		Readable: text,
		HTML:     htmlBuf.String(),
		Title:    article.Title(),
	}

	result.Description = truncate(article.Excerpt(), maxExcerptLength)

	// article.Node is the main-content projection already parsed; link and
	// media collection walk it directly instead of re-parsing the rendering.
	result.Links = collectLinksDOM(article.Node, base)
	result.Media = collectMediaDOM(article.Node, base)

	if t, perr := article.PublishedTime(); perr == nil {
		result.PublishedAt = t
	}

	return result, true
}

const maxExcerptLength = 500

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n]
}

// structuralStage is stage 3: DOM cleaning plus visible-text extraction,
// used when readability produced nothing. Noise elements (script, style,
// iframe, form, footer, nav and their class-named equivalents) are dropped
// during the visible-text walk rather than pre-stripped from the markup, so
// link/media collection still sees the full document.
func (l *Ladder) structuralStage(body []byte, base *url.URL) (Result, bool) {
	doc, err := parseDocument(body)
	if err != nil || doc == nil {
		return Result{}, false
	}

	text := visibleTextDOM(doc)
	if len(text) <= minContentLength {
		return Result{}, false
	}

	result := Result{
		Stage:    "structural",
		Readable: text,
		HTML:     string(body),
		Links:    collectLinksDOM(doc, base),
		Media:    collectMediaDOM(doc, base),
	}

	return result, true
}
