// Package seed expands a land's seed URLs: when a seed is itself a feed
// (RSS/Atom index page), its items are expanded into depth-0 seed URLs
// before the ordinary ladder-driven crawl begins, instead of requiring the
// operator to enumerate every item URL by hand.
package seed

import (
	"context"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"
)

const fetchTimeout = 15 * time.Second

// FeedExpander probes a seed URL and, if it parses as an RSS/Atom feed,
// returns its item links.
type FeedExpander struct {
	httpClient *http.Client
	parser     *gofeed.Parser
	userAgent  string
	logger     *zerolog.Logger
}

// New constructs a FeedExpander.
func New(userAgent string, logger *zerolog.Logger) *FeedExpander {
	return &FeedExpander{
		httpClient: &http.Client{Timeout: fetchTimeout},
		parser:     gofeed.NewParser(),
		userAgent:  userAgent,
		logger:     logger,
	}
}

// Expand returns the item links of rawURL if it is a feed, or nil,false if
// it is not (the caller should then treat rawURL as an ordinary seed).
func (f *FeedExpander) Expand(ctx context.Context, rawURL string) ([]string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false
	}

	feed, err := f.parser.Parse(resp.Body)
	if err != nil || feed == nil || len(feed.Items) == 0 {
		return nil, false
	}

	links := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Link != "" {
			links = append(links, item.Link)
		}
	}

	f.logger.Debug().Str("url", rawURL).Int("count", len(links)).Msg("expanded feed seed")

	return links, len(links) > 0
}
