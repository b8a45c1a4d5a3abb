package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/landcrawl/landcrawl/internal/domain"
	"github.com/landcrawl/landcrawl/internal/land"
	"github.com/landcrawl/landcrawl/internal/scheduler"
	"github.com/landcrawl/landcrawl/internal/store"
)

func runLand(ctx context.Context, a *app, verb string, args []string) error {
	switch verb {
	case "list":
		return landList(ctx, a)
	case "create":
		return landCreate(ctx, a, args)
	case "delete":
		return landDelete(ctx, a, args)
	case "crawl":
		return landCrawl(ctx, a, args)
	case "readable":
		return landReadable(ctx, a, args)
	case "export":
		return landExport(ctx, a, args)
	case "addterm":
		return landAddTerm(ctx, a, args)
	case "addurl":
		return landAddURL(ctx, a, args)
	case "consolidate":
		return landConsolidate(ctx, a, args)
	case "medianalyse":
		return landMediaAnalyse(ctx, a, args)
	default:
		return fmt.Errorf("land: unknown verb %q", verb)
	}
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}

func requireLand(ctx context.Context, a *app, name string) (domain.Land, error) {
	if name == "" {
		return domain.Land{}, fmt.Errorf("--land is required")
	}

	l, err := a.orchestrator.GetLand(ctx, name)
	if err != nil {
		return domain.Land{}, fmt.Errorf("land %q: %w", name, err)
	}

	return l, nil
}

func landList(ctx context.Context, a *app) error {
	lands, err := a.orchestrator.ListLands(ctx)
	if err != nil {
		return fmt.Errorf("land list: %w", err)
	}

	for _, l := range lands {
		total, byStatus, err := a.orchestrator.Stats(ctx, l.ID)
		if err != nil {
			a.logger.Warn().Err(err).Str("land", l.Name).Msg("stats unavailable")
		}

		fmt.Printf("%s\t%s\t%d expressions\t%v\n", l.Name, strings.Join(l.Lang, "+"), total, byStatus)
	}

	return nil
}

func landCreate(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("land create", flag.ContinueOnError)
	name := fs.String("name", "", "land name")
	desc := fs.String("desc", "", "land description")
	lang := fs.String("lang", "", "comma-separated language codes")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *name == "" {
		return fmt.Errorf("land create: --name is required")
	}

	l, err := a.orchestrator.CreateLand(ctx, *name, *desc, splitCSV(*lang))
	if err != nil {
		return fmt.Errorf("land create: %w", err)
	}

	fmt.Printf("created land %s (%s)\n", l.Name, l.ID)

	return nil
}

func landDelete(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("land delete", flag.ContinueOnError)
	name := fs.String("land", "", "land name")
	maxrel := fs.Int("maxrel", -1, "delete only expressions at or below this relevance")

	if err := fs.Parse(args); err != nil {
		return err
	}

	l, err := requireLand(ctx, a, *name)
	if err != nil {
		return err
	}

	if *maxrel >= 0 {
		threshold := *maxrel

		n, err := a.orchestrator.DeleteExpressions(ctx, store.ExpressionFilter{
			LandID:       l.ID,
			MaxRelevance: &threshold,
		})
		if err != nil {
			return fmt.Errorf("land delete: %w", err)
		}

		fmt.Printf("deleted %d expressions at or below relevance %d\n", n, threshold)

		return nil
	}

	if err := a.orchestrator.DeleteLand(ctx, l.ID); err != nil {
		return fmt.Errorf("land delete: %w", err)
	}

	fmt.Printf("deleted land %s\n", l.Name)

	return nil
}

func landCrawl(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("land crawl", flag.ContinueOnError)
	name := fs.String("land", "", "land name")
	limit := fs.Int("limit", 0, "stop after this many successes (0 = unbounded)")
	httpStatus := fs.String("http", "", "only reprocess expressions with this http status")
	depth := fs.Int("depth", -1, "only process this exact depth (-1 = all pending depths)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	l, err := requireLand(ctx, a, *name)
	if err != nil {
		return err
	}

	var depthPtr *int
	if *depth >= 0 {
		depthPtr = depth
	}

	processed, errored, err := a.orchestrator.Crawl(ctx, l, *limit, *httpStatus, depthPtr)
	if err != nil {
		return fmt.Errorf("land crawl: %w", err)
	}

	fmt.Printf("processed %d, errored %d\n", processed, errored)

	return nil
}

func landReadable(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("land readable", flag.ContinueOnError)
	name := fs.String("land", "", "land name")
	limit := fs.Int("limit", 0, "stop after this many successes (0 = unbounded)")
	merge := fs.String("merge", string(scheduler.SmartMerge), "merge strategy: smart_merge|mercury_priority|preserve_existing")

	if err := fs.Parse(args); err != nil {
		return err
	}

	l, err := requireLand(ctx, a, *name)
	if err != nil {
		return err
	}

	processed, errored, err := a.orchestrator.Readable(ctx, l, scheduler.MergeStrategy(*merge), *limit)
	if err != nil {
		return fmt.Errorf("land readable: %w", err)
	}

	fmt.Printf("processed %d, errored %d\n", processed, errored)

	return nil
}

func landConsolidate(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("land consolidate", flag.ContinueOnError)
	name := fs.String("land", "", "land name")

	if err := fs.Parse(args); err != nil {
		return err
	}

	l, err := requireLand(ctx, a, *name)
	if err != nil {
		return err
	}

	processed, err := a.orchestrator.Consolidate(ctx, l)
	if err != nil {
		return fmt.Errorf("land consolidate: %w", err)
	}

	fmt.Printf("consolidated %d expressions\n", processed)

	return nil
}

func landAddTerm(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("land addterm", flag.ContinueOnError)
	name := fs.String("land", "", "land name")
	terms := fs.String("terms", "", "comma-separated terms")

	if err := fs.Parse(args); err != nil {
		return err
	}

	l, err := requireLand(ctx, a, *name)
	if err != nil {
		return err
	}

	termList := splitCSV(*terms)
	if len(termList) == 0 {
		return fmt.Errorf("land addterm: --terms is required")
	}

	if err := a.orchestrator.AddTerm(ctx, l, termList); err != nil {
		return fmt.Errorf("land addterm: %w", err)
	}

	fmt.Printf("added %d term(s)\n", len(termList))

	return nil
}

func landAddURL(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("land addurl", flag.ContinueOnError)
	name := fs.String("land", "", "land name")
	urls := fs.String("urls", "", "comma-separated seed URLs")

	if err := fs.Parse(args); err != nil {
		return err
	}

	l, err := requireLand(ctx, a, *name)
	if err != nil {
		return err
	}

	urlList := splitCSV(*urls)
	if len(urlList) == 0 {
		return fmt.Errorf("land addurl: --urls is required")
	}

	created, err := a.orchestrator.AddURL(ctx, l, urlList)
	if err != nil {
		return fmt.Errorf("land addurl: %w", err)
	}

	fmt.Printf("created %d expression(s)\n", created)

	return nil
}

// noopExporter reports what would have been exported without formatting a
// file: the CSV/GEXF/ZIP writers are an external collaborator, so landctl
// ships none of its own.
type noopExporter struct{}

func (noopExporter) Export(_ context.Context, l domain.Land, exportType land.ExportType, expressions []domain.Expression, destPath string) error {
	fmt.Printf("export: %d expression(s) from land %s selected for %s -> %s (no exporter configured)\n",
		len(expressions), l.Name, exportType, destPath)

	return nil
}

func landExport(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("land export", flag.ContinueOnError)
	name := fs.String("land", "", "land name")
	exportType := fs.String("type", string(land.ExportPageCSV), "export type")
	minrel := fs.Int("minrel", 1, "minimum relevance to include")
	path := fs.String("path", "", "output file path")

	if err := fs.Parse(args); err != nil {
		return err
	}

	l, err := requireLand(ctx, a, *name)
	if err != nil {
		return err
	}

	if *path == "" {
		return fmt.Errorf("land export: --path is required")
	}

	if err := a.orchestrator.Export(ctx, noopExporter{}, l, land.ExportType(*exportType), *minrel, *path); err != nil {
		return fmt.Errorf("land export: %w", err)
	}

	return nil
}

func landMediaAnalyse(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("land medianalyse", flag.ContinueOnError)
	name := fs.String("land", "", "land name")

	if err := fs.Parse(args); err != nil {
		return err
	}

	l, err := requireLand(ctx, a, *name)
	if err != nil {
		return err
	}

	bounds := land.MediaAnalyzerBounds{
		MinWidth:   a.cfg.MediaMinWidth,
		MinHeight:  a.cfg.MediaMinHeight,
		MaxBytes:   a.cfg.MediaMaxBytes,
		Timeout:    a.cfg.MediaTimeout,
		MaxRetries: a.cfg.MediaMaxRetries,
	}

	// No media-analyzer implementation ships with the engine; byte-level
	// media analysis belongs to an external collaborator, so this verb is
	// only wired up to the delegation point.
	analyzed, err := a.orchestrator.AnalyzeMedia(ctx, nil, l, bounds)
	if err != nil {
		fmt.Println("medianalyse: no analyzer configured")
		return nil
	}

	fmt.Printf("analyzed %d media item(s)\n", analyzed)

	return nil
}
