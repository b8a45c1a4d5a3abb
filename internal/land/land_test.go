package land

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/landcrawl/landcrawl/internal/domain"
	"github.com/landcrawl/landcrawl/internal/ladder"
	"github.com/landcrawl/landcrawl/internal/lemma"
	"github.com/landcrawl/landcrawl/internal/processor"
	"github.com/landcrawl/landcrawl/internal/relevance"
	"github.com/landcrawl/landcrawl/internal/scheduler"
	"github.com/landcrawl/landcrawl/internal/store"
)

// fakeStore is an in-memory store.Store double scoped to this package's
// tests rather than a shared cross-package test helper.
type fakeStore struct {
	mu          sync.Mutex
	order       []string
	expressions map[string]domain.Expression
	domains     map[string]domain.WebDomain
	words       map[string]domain.Word
	dict        map[string][]string // landID -> wordIDs
	media       map[string][]domain.Media
	links       map[string][]domain.ExpressionLink
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		expressions: make(map[string]domain.Expression),
		domains:     make(map[string]domain.WebDomain),
		words:       make(map[string]domain.Word),
		dict:        make(map[string][]string),
		media:       make(map[string][]domain.Media),
		links:       make(map[string][]domain.ExpressionLink),
	}
}

func (f *fakeStore) CreateLand(_ context.Context, l domain.Land) (domain.Land, error) {
	if l.ID == "" {
		l.ID = "land-1"
	}

	return l, nil
}
func (f *fakeStore) GetLand(context.Context, string) (domain.Land, error)       { return domain.Land{}, nil }
func (f *fakeStore) GetLandByName(context.Context, string) (domain.Land, error) { return domain.Land{}, nil }
func (f *fakeStore) ListLands(context.Context) ([]domain.Land, error)           { return nil, nil }
func (f *fakeStore) DeleteLand(context.Context, string) error                  { return nil }

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

func (f *fakeStore) UpdateDomain(context.Context, domain.WebDomain) error             { return nil }
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

	for i, id := range f.order {
		if filter.Offset > 0 && i < filter.Offset {
			continue
		}

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

		out = append(out, e)

		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}

	return out, nil
}

func (f *fakeStore) DistinctPendingDepths(context.Context, store.ExpressionFilter) ([]int, error) {
	return nil, nil
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

func (f *fakeStore) GetOrCreateWord(_ context.Context, term, lemmaValue string) (domain.Word, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := term + "|" + lemmaValue
	if w, ok := f.words[key]; ok {
		return w, nil
	}

	w := domain.Word{ID: fmt.Sprintf("word-%d", len(f.words)+1), Term: term, Lemma: lemmaValue}
	f.words[key] = w

	return w, nil
}

func (f *fakeStore) AddToDictionary(_ context.Context, landID string, words []domain.Word) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, w := range words {
		f.dict[landID] = append(f.dict[landID], w.ID)
	}

	return nil
}

func (f *fakeStore) LandDictionary(_ context.Context, landID string) ([]domain.Word, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []domain.Word

	for _, id := range f.dict[landID] {
		for _, w := range f.words {
			if w.ID == id {
				out = append(out, w)
			}
		}
	}

	return out, nil
}

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

func discardLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func newTestOrchestrator(t *testing.T, st store.Store, dataLocation string) *Orchestrator {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	ld := ladder.New(ladder.Config{UserAgent: "landcrawl-test"}, srv.Client(), discardLogger())
	stemmer := lemma.New()
	scorer := relevance.New(stemmer)
	proc := processor.New(st, ld, scorer, nil, nil, nil, "", discardLogger())
	sched := scheduler.New(st, proc, ld, scorer, 4, 1000, discardLogger())

	return New(st, sched, stemmer, scorer, nil, nil, dataLocation, discardLogger())
}

func TestAddURLCreatesAndDedupes(t *testing.T) {
	st := newFakeStore()
	o := newTestOrchestrator(t, st, t.TempDir())

	l := domain.Land{ID: "land-1"}

	created, err := o.AddURL(context.Background(), l, []string{
		"https://example.com/a",
		"https://example.com/a#fragment",
		"https://example.com/b",
	})
	if err != nil {
		t.Fatalf("AddURL() error = %v", err)
	}

	if created != 2 {
		t.Errorf("created = %d, want 2 (the fragment-only duplicate must be deduped)", created)
	}
}

func TestAddURLSkipsNonCrawlable(t *testing.T) {
	st := newFakeStore()
	o := newTestOrchestrator(t, st, t.TempDir())

	l := domain.Land{ID: "land-1"}

	created, err := o.AddURL(context.Background(), l, []string{
		"https://example.com/doc.pdf",
		"ftp://example.com/file",
		"https://example.com/page",
	})
	if err != nil {
		t.Fatalf("AddURL() error = %v", err)
	}

	if created != 1 {
		t.Errorf("created = %d, want 1 (pdf and non-http schemes must be rejected)", created)
	}
}

func TestAddURLIsIdempotent(t *testing.T) {
	st := newFakeStore()
	o := newTestOrchestrator(t, st, t.TempDir())

	l := domain.Land{ID: "land-1"}
	ctx := context.Background()

	first, err := o.AddURL(ctx, l, []string{"https://example.com/a"})
	if err != nil {
		t.Fatalf("AddURL() first call error = %v", err)
	}

	second, err := o.AddURL(ctx, l, []string{"https://example.com/a"})
	if err != nil {
		t.Fatalf("AddURL() second call error = %v", err)
	}

	if first != 1 || second != 0 {
		t.Errorf("AddURL() calls = (%d, %d), want (1, 0) on repeat submission", first, second)
	}
}

func TestAddTermBuildsDictionaryAndRecomputesRelevance(t *testing.T) {
	st := newFakeStore()
	o := newTestOrchestrator(t, st, t.TempDir())

	l := domain.Land{ID: "land-1"}
	ctx := context.Background()

	existing := domain.Expression{
		ID:        "expr-cat",
		LandID:    l.ID,
		URL:       "https://example.com/cat-article",
		Title:     "All About Cats",
		Readable:  "A cat is a popular household companion animal.",
		Relevance: 0,
	}

	if _, err := st.CreateExpression(ctx, existing); err != nil {
		t.Fatalf("seed CreateExpression() error = %v", err)
	}

	if err := o.AddTerm(ctx, l, []string{"cat", " ", "Cat"}); err != nil {
		t.Fatalf("AddTerm() error = %v", err)
	}

	dict, err := o.Dictionary(ctx, l.ID)
	if err != nil {
		t.Fatalf("Dictionary() error = %v", err)
	}

	if len(dict.Lemmas) == 0 {
		t.Fatal("Dictionary() returned no lemmas after AddTerm")
	}

	updated, err := st.GetExpression(ctx, "expr-cat")
	if err != nil {
		t.Fatalf("GetExpression() error = %v", err)
	}

	if updated.Relevance <= 0 {
		t.Errorf("Relevance = %d after AddTerm, want > 0 (consolidate should have rescored the existing expression)", updated.Relevance)
	}
}

func TestAddTermSkipsBlankTerms(t *testing.T) {
	st := newFakeStore()
	o := newTestOrchestrator(t, st, t.TempDir())

	l := domain.Land{ID: "land-1"}
	ctx := context.Background()

	if err := o.AddTerm(ctx, l, []string{"  ", "", "forest"}); err != nil {
		t.Fatalf("AddTerm() error = %v", err)
	}

	dict, err := o.Dictionary(ctx, l.ID)
	if err != nil {
		t.Fatalf("Dictionary() error = %v", err)
	}

	if len(dict.Lemmas) != 1 {
		t.Errorf("Dictionary() has %d lemmas, want exactly 1 (blank terms must be skipped)", len(dict.Lemmas))
	}
}

func TestCreateLandCreatesDataDirectory(t *testing.T) {
	base := t.TempDir()

	st := newFakeStore()
	o := newTestOrchestrator(t, st, base)

	l, err := o.CreateLand(context.Background(), "my-land", "desc", nil)
	if err != nil {
		t.Fatalf("CreateLand() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(base, "lands", l.ID)); err != nil {
		t.Errorf("land data directory was not created: %v", err)
	}
}

func TestDeleteLandRemovesDataDirectory(t *testing.T) {
	base := t.TempDir()

	st := newFakeStore()
	o := newTestOrchestrator(t, st, base)

	ctx := context.Background()

	l, err := o.CreateLand(ctx, "my-land", "desc", nil)
	if err != nil {
		t.Fatalf("CreateLand() error = %v", err)
	}

	dir := filepath.Join(base, "lands", l.ID)
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("precondition failed, land dir missing: %v", err)
	}

	if err := o.DeleteLand(ctx, l.ID); err != nil {
		t.Fatalf("DeleteLand() error = %v", err)
	}

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("land data directory still exists after DeleteLand: err = %v", err)
	}
}
