package scheduler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/landcrawl/landcrawl/internal/domain"
	"github.com/landcrawl/landcrawl/internal/ladder"
	"github.com/landcrawl/landcrawl/internal/lemma"
	"github.com/landcrawl/landcrawl/internal/processor"
	"github.com/landcrawl/landcrawl/internal/relevance"
	"github.com/landcrawl/landcrawl/internal/store"
)

// fakeStore is an in-memory store.Store double scoped to this package's
// tests rather than a shared cross-package test helper.
type fakeStore struct {
	mu          sync.Mutex
	order       []string
	expressions map[string]domain.Expression
	domains     map[string]domain.WebDomain
	media       map[string][]domain.Media
	links       map[string][]domain.ExpressionLink
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		expressions: make(map[string]domain.Expression),
		domains:     make(map[string]domain.WebDomain),
		media:       make(map[string][]domain.Media),
		links:       make(map[string][]domain.ExpressionLink),
	}
}

func (f *fakeStore) seed(e domain.Expression) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.order = append(f.order, e.ID)
	f.expressions[e.ID] = e
}

func (f *fakeStore) CreateLand(context.Context, domain.Land) (domain.Land, error) { return domain.Land{}, nil }
func (f *fakeStore) GetLand(context.Context, string) (domain.Land, error)         { return domain.Land{}, nil }
func (f *fakeStore) GetLandByName(context.Context, string) (domain.Land, error)   { return domain.Land{}, nil }
func (f *fakeStore) ListLands(context.Context) ([]domain.Land, error)             { return nil, nil }
func (f *fakeStore) DeleteLand(context.Context, string) error                     { return nil }

func (f *fakeStore) GetOrCreateDomain(_ context.Context, name string) (domain.WebDomain, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if d, ok := f.domains[name]; ok {
		return d, nil
	}

	d := domain.WebDomain{ID: "dom-" + name, Name: name}
	f.domains[name] = d

	return d, nil
}

func (f *fakeStore) UpdateDomain(_ context.Context, d domain.WebDomain) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.domains[d.Name] = d

	return nil
}

func (f *fakeStore) ListLandDomains(context.Context, string) ([]domain.WebDomain, error) { return nil, nil }

func (f *fakeStore) CreateExpression(_ context.Context, e domain.Expression) (domain.Expression, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.expressions {
		if existing.LandID == e.LandID && existing.URL == e.URL {
			return existing, nil
		}
	}

	if e.ID == "" {
		e.ID = fmt.Sprintf("expr-%d", len(f.expressions)+1)
	}

	f.order = append(f.order, e.ID)
	f.expressions[e.ID] = e

	return e, nil
}

func (f *fakeStore) GetExpression(_ context.Context, id string) (domain.Expression, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.expressions[id]
	if !ok {
		return domain.Expression{}, domain.ErrNotFound
	}

	return e, nil
}

func (f *fakeStore) GetExpressionByURL(_ context.Context, landID, url string) (domain.Expression, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, e := range f.expressions {
		if e.LandID == landID && e.URL == url {
			return e, nil
		}
	}

	return domain.Expression{}, domain.ErrNotFound
}

func (f *fakeStore) UpdateExpression(_ context.Context, e domain.Expression) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.expressions[e.ID] = e

	return nil
}

func (f *fakeStore) DeleteExpressions(context.Context, store.ExpressionFilter) (int, error) { return 0, nil }

func (f *fakeStore) ListExpressions(_ context.Context, filter store.ExpressionFilter) ([]domain.Expression, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []domain.Expression

	skipped := 0

	for _, id := range f.order {
		e := f.expressions[id]
		if e.LandID != filter.LandID {
			continue
		}

		if filter.Pending && e.FetchedAt != nil {
			continue
		}

		if filter.Depth != nil && e.Depth != *filter.Depth {
			continue
		}

		if skipped < filter.Offset {
			skipped++
			continue
		}

		out = append(out, e)

		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}

	return out, nil
}

func (f *fakeStore) DistinctPendingDepths(_ context.Context, filter store.ExpressionFilter) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	seen := make(map[int]struct{})

	for _, e := range f.expressions {
		if e.LandID != filter.LandID {
			continue
		}

		if filter.Pending && e.FetchedAt != nil {
			continue
		}

		seen[e.Depth] = struct{}{}
	}

	depths := make([]int, 0, len(seen))
	for d := range seen {
		depths = append(depths, d)
	}

	sort.Ints(depths)

	return depths, nil
}

func (f *fakeStore) CountExpressions(context.Context, string) (int, map[string]int, error) {
	return 0, nil, nil
}

func (f *fakeStore) CreateLink(_ context.Context, l domain.ExpressionLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.links[l.SourceID] = append(f.links[l.SourceID], l)

	return nil
}

func (f *fakeStore) DeleteLinksFrom(_ context.Context, sourceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.links, sourceID)

	return nil
}

func (f *fakeStore) ListLinksFrom(_ context.Context, sourceID string) ([]domain.ExpressionLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.links[sourceID], nil
}

func (f *fakeStore) GetOrCreateWord(context.Context, string, string) (domain.Word, error) {
	return domain.Word{}, nil
}
func (f *fakeStore) AddToDictionary(context.Context, string, []domain.Word) error { return nil }
func (f *fakeStore) LandDictionary(context.Context, string) ([]domain.Word, error) { return nil, nil }

func (f *fakeStore) CreateMedia(_ context.Context, m domain.Media) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.media[m.ExpressionID] = append(f.media[m.ExpressionID], m)

	return nil
}

func (f *fakeStore) UpdateMedia(context.Context, domain.Media) error { return nil }

func (f *fakeStore) DeleteMediaFor(_ context.Context, expressionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.media, expressionID)

	return nil
}

func (f *fakeStore) ListMedia(_ context.Context, expressionID string) ([]domain.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.media[expressionID], nil
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	return fn(ctx, f)
}

var _ store.Store = (*fakeStore)(nil)

// noArchivalTransport short-circuits the archival-availability lookup so
// tests never depend on network access to archive.org.
type noArchivalTransport struct{}

func (noArchivalTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Host == "archive.org" {
		return &http.Response{StatusCode: http.StatusNotFound, Body: http.NoBody, Header: make(http.Header)}, nil
	}

	return http.DefaultTransport.RoundTrip(req)
}

func discardLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func newTestScheduler(t *testing.T, st store.Store, batchSize int, handler http.HandlerFunc) (*Scheduler, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := &http.Client{Transport: noArchivalTransport{}}
	ld := ladder.New(ladder.Config{UserAgent: "landcrawl-test"}, client, discardLogger())
	stemmer := lemma.New()
	scorer := relevance.New(stemmer)
	proc := processor.New(st, ld, scorer, nil, nil, nil, "", discardLogger())

	return New(st, proc, ld, scorer, batchSize, 1000, discardLogger()), srv
}

func TestCrawlProcessesEveryPendingExpressionAcrossDepths(t *testing.T) {
	st := newFakeStore()

	land := domain.Land{ID: "land-1", Name: "test"}

	st.seed(domain.Expression{ID: "d0-a", LandID: land.ID, URL: "http://example.invalid/a", Depth: 0})
	st.seed(domain.Expression{ID: "d1-a", LandID: land.ID, URL: "http://example.invalid/b", Depth: 1})
	st.seed(domain.Expression{ID: "d1-b", LandID: land.ID, URL: "http://example.invalid/c", Depth: 1})

	sched, _ := newTestScheduler(t, st, 10, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	processed, errored, err := sched.Crawl(context.Background(), land, lemma.Dictionary{}, nil, 0, "")
	if err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}

	if processed != 3 {
		t.Errorf("processed = %d, want 3", processed)
	}

	if errored != 3 {
		t.Errorf("errored = %d, want 3 (every fetch target is unreachable)", errored)
	}

	for _, id := range []string{"d0-a", "d1-a", "d1-b"} {
		e, gerr := st.GetExpression(context.Background(), id)
		if gerr != nil {
			t.Fatalf("GetExpression(%s) failed: %v", id, gerr)
		}

		if e.FetchedAt == nil {
			t.Errorf("expression %s was never marked fetched", id)
		}
	}
}

func TestCrawlRespectsExplicitDepthFilter(t *testing.T) {
	st := newFakeStore()

	land := domain.Land{ID: "land-1", Name: "test"}

	st.seed(domain.Expression{ID: "d0-a", LandID: land.ID, URL: "http://example.invalid/a", Depth: 0})
	st.seed(domain.Expression{ID: "d1-a", LandID: land.ID, URL: "http://example.invalid/b", Depth: 1})

	sched, _ := newTestScheduler(t, st, 10, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	depth := 1

	processed, _, err := sched.Crawl(context.Background(), land, lemma.Dictionary{}, &depth, 0, "")
	if err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}

	if processed != 1 {
		t.Errorf("processed = %d, want 1 (only depth-1 expressions selected)", processed)
	}

	untouched, err := st.GetExpression(context.Background(), "d0-a")
	if err != nil {
		t.Fatalf("GetExpression(d0-a) failed: %v", err)
	}

	if untouched.FetchedAt != nil {
		t.Error("depth-0 expression was processed despite an explicit depth=1 filter")
	}
}

func TestCrawlStopsAtLimit(t *testing.T) {
	st := newFakeStore()

	land := domain.Land{ID: "land-1", Name: "test"}

	const richPage = `<html><head><title>Ok</title></head><body>
<p>Enough readable content here to clear the minimum content length threshold for extraction, with a second clause that carries the paragraph well past one hundred characters.</p>
</body></html>`

	sched, srv := newTestScheduler(t, st, 1,func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(richPage))
	})

	st.seed(domain.Expression{ID: "e1", LandID: land.ID, URL: srv.URL + "/page-1", Depth: 0})
	st.seed(domain.Expression{ID: "e2", LandID: land.ID, URL: srv.URL + "/page-2", Depth: 0})

	processed, _, err := sched.Crawl(context.Background(), land, lemma.Dictionary{}, nil, 1, "")
	if err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}

	if processed != 1 {
		t.Errorf("processed = %d, want exactly 1 (Crawl must stop once the limit is reached, leaving the second seeded expression untouched)", processed)
	}

	untouched, err := st.GetExpression(context.Background(), "e2")
	if err != nil {
		t.Fatalf("GetExpression(e2) failed: %v", err)
	}

	if untouched.FetchedAt != nil {
		t.Error("second expression was processed despite limit=1")
	}
}

func TestReprocessSkipsExpressionsWithExistingReadable(t *testing.T) {
	st := newFakeStore()

	land := domain.Land{ID: "land-1", Name: "test"}

	var requests int

	const richPage = `<html><head><title>Ok</title></head><body>
<p>Enough readable content here to clear the minimum content length threshold for extraction, with a second clause that carries the paragraph well past one hundred characters.</p>
</body></html>`

	sched, srv := newTestScheduler(t, st, 10,func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(richPage))
	})

	fetchedAt := time.Now()

	st.seed(domain.Expression{
		ID: "already-readable", LandID: land.ID, URL: srv.URL + "/already-read",
		Depth: 0, FetchedAt: &fetchedAt, Readable: "already extracted content",
	})
	st.seed(domain.Expression{
		ID: "needs-readable", LandID: land.ID, URL: srv.URL + "/needs-read",
		Depth: 0, FetchedAt: &fetchedAt,
	})
	st.seed(domain.Expression{
		ID: "never-fetched", LandID: land.ID, URL: srv.URL + "/never-fetched",
		Depth: 0,
	})

	processed, errored, err := sched.Reprocess(context.Background(), land, lemma.Dictionary{}, SmartMerge, 0)
	if err != nil {
		t.Fatalf("Reprocess() error = %v", err)
	}

	if errored != 0 {
		t.Errorf("errored = %d, want 0", errored)
	}

	if processed != 1 {
		t.Errorf("processed = %d, want 1 (only the expression with empty readable)", processed)
	}

	if requests != 1 {
		t.Errorf("requests = %d, want 1 (already-readable and never-fetched expressions must not be fetched)", requests)
	}

	skipped, gerr := st.GetExpression(context.Background(), "already-readable")
	if gerr != nil {
		t.Fatalf("GetExpression(already-readable) failed: %v", gerr)
	}

	if skipped.Readable != "already extracted content" {
		t.Error("already-readable expression's readable content was overwritten despite being non-empty")
	}

	untouched, gerr := st.GetExpression(context.Background(), "never-fetched")
	if gerr != nil {
		t.Fatalf("GetExpression(never-fetched) failed: %v", gerr)
	}

	if untouched.FetchedAt != nil {
		t.Error("never-fetched expression was reprocessed despite FetchedAt being nil")
	}
}

func TestConsolidateIsIdempotent(t *testing.T) {
	st := newFakeStore()

	land := domain.Land{ID: "land-1", Name: "test"}

	st.seed(domain.Expression{
		ID: "source", LandID: land.ID, URL: "http://example.invalid/source", Depth: 0,
		Readable: "See [more](http://example.invalid/target) and ![pic](http://example.invalid/pic.jpg).",
	})
	st.seed(domain.Expression{ID: "target", LandID: land.ID, URL: "http://example.invalid/target", Depth: 1})

	sched, _ := newTestScheduler(t, st, 10, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	ctx := context.Background()

	firstProcessed, err := sched.Consolidate(ctx, land, lemma.Dictionary{})
	if err != nil {
		t.Fatalf("Consolidate() first run error = %v", err)
	}

	firstLinks, err := st.ListLinksFrom(ctx, "source")
	if err != nil {
		t.Fatalf("ListLinksFrom() first run error = %v", err)
	}

	firstMedia, err := st.ListMedia(ctx, "source")
	if err != nil {
		t.Fatalf("ListMedia() first run error = %v", err)
	}

	secondProcessed, err := sched.Consolidate(ctx, land, lemma.Dictionary{})
	if err != nil {
		t.Fatalf("Consolidate() second run error = %v", err)
	}

	secondLinks, err := st.ListLinksFrom(ctx, "source")
	if err != nil {
		t.Fatalf("ListLinksFrom() second run error = %v", err)
	}

	secondMedia, err := st.ListMedia(ctx, "source")
	if err != nil {
		t.Fatalf("ListMedia() second run error = %v", err)
	}

	if firstProcessed != secondProcessed {
		t.Errorf("processed count changed across runs: first=%d second=%d", firstProcessed, secondProcessed)
	}

	if len(firstLinks) != 1 || firstLinks[0].TargetID != "target" {
		t.Fatalf("unexpected links after first run: %+v", firstLinks)
	}

	if !reflect.DeepEqual(firstLinks, secondLinks) {
		t.Errorf("link set changed across consolidate runs: first=%+v second=%+v", firstLinks, secondLinks)
	}

	if len(firstMedia) != 1 || firstMedia[0].URL != "http://example.invalid/pic.jpg" {
		t.Fatalf("unexpected media after first run: %+v", firstMedia)
	}

	if !reflect.DeepEqual(firstMedia, secondMedia) {
		t.Errorf("media set changed across consolidate runs: first=%+v second=%+v", firstMedia, secondMedia)
	}
}
