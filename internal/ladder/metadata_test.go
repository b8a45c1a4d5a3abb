package ladder

import "testing"

func TestEnrichMetadataFallbackChain(t *testing.T) {
	l := &Ladder{}

	html := `<html lang="en"><head>
		<meta property="og:title" content="Open Graph Title">
		<meta name="twitter:description" content="Twitter description">
		<meta name="keywords" content="go, crawling">
		<meta property="article:published_time" content="2024-03-15T12:00:00Z">
	</head><body><p>Some readable body text that is long enough.</p></body></html>`

	base := mustParse(t, "https://example.com/article")

	r := &Result{}
	l.enrichMetadata(r, html, base)

	if r.Title != "Open Graph Title" {
		t.Errorf("Title = %q, want Open Graph Title", r.Title)
	}

	if r.Description != "Twitter description" {
		t.Errorf("Description = %q, want Twitter description", r.Description)
	}

	if r.Keywords != "go, crawling" {
		t.Errorf("Keywords = %q, want %q", r.Keywords, "go, crawling")
	}

	if r.Lang != "en" {
		t.Errorf("Lang = %q, want en", r.Lang)
	}

	if r.PublishedAt.IsZero() {
		t.Error("PublishedAt is zero, want parsed from article:published_time")
	}

	if r.PublishedAt.Year() != 2024 {
		t.Errorf("PublishedAt.Year() = %d, want 2024", r.PublishedAt.Year())
	}
}

func TestEnrichMetadataNeverOverridesWithEmpty(t *testing.T) {
	l := &Ladder{}

	html := `<html><head></head><body></body></html>`
	base := mustParse(t, "https://example.com/article")

	r := &Result{Title: "existing title", Description: "existing desc"}
	l.enrichMetadata(r, html, base)

	if r.Title != "existing title" {
		t.Errorf("Title = %q, must not be overwritten by an empty fallback", r.Title)
	}

	if r.Description != "existing desc" {
		t.Errorf("Description = %q, must not be overwritten by an empty fallback", r.Description)
	}
}

func TestEnrichMetadataTitleFallsBackToURL(t *testing.T) {
	l := &Ladder{}

	base := mustParse(t, "https://example.com/article")

	r := &Result{}
	l.enrichMetadata(r, "<html><head></head><body></body></html>", base)

	if r.Title != base.String() {
		t.Errorf("Title = %q, want the URL as last-resort fallback %q", r.Title, base.String())
	}
}

func TestEnrichMetadataLanguageDetectionFallback(t *testing.T) {
	l := &Ladder{}

	html := `<html><head></head><body></body></html>`
	base := mustParse(t, "https://example.com/article")

	r := &Result{Title: "Заголовок статьи", Readable: "Текст статьи на русском языке без объявленного языка"}
	l.enrichMetadata(r, html, base)

	if r.Lang != "ru" {
		t.Errorf("Lang = %q, want ru from script-based detection fallback", r.Lang)
	}

	latin := &Result{Title: "Un titre sans langue", Readable: "du texte latin qui ne doit pas être étiqueté"}
	l.enrichMetadata(latin, html, base)

	if latin.Lang != "" {
		t.Errorf("Lang = %q, want empty: latin script alone must not be tagged", latin.Lang)
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "empty", text: "", want: ""},
		{name: "latin stays untagged", text: "The quick brown fox jumps over the lazy dog", want: ""},
		{name: "cyrillic dominant", text: "Быстрая коричневая лиса перепрыгивает через ленивую собаку", want: "ru"},
		{name: "no letters", text: "12345 !@#$%", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectLanguage(tt.text); got != tt.want {
				t.Errorf("DetectLanguage(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}
