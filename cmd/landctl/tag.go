package main

import (
	"context"
	"flag"
	"fmt"
)

// runTag handles the `tag export` verb. Tag and TaggedContent rows are
// consumed by exporters but never written by the engine; landctl has
// nothing of its own to select here, so this verb only validates arguments
// and reports the delegation, matching the land/medianalyse pattern for
// external collaborators.
func runTag(_ context.Context, a *app, verb string, args []string) error {
	switch verb {
	case "export":
		return tagExport(a, args)
	default:
		return fmt.Errorf("tag: unknown verb %q", verb)
	}
}

func tagExport(a *app, args []string) error {
	fs := flag.NewFlagSet("tag export", flag.ContinueOnError)
	name := fs.String("land", "", "land name")
	path := fs.String("path", "", "output file path")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *name == "" || *path == "" {
		return fmt.Errorf("tag export: --land and --path are required")
	}

	a.logger.Info().Str("land", *name).Str("path", *path).
		Msg("tag export: no exporter configured; Tag/TaggedContent rows are an external collaborator's responsibility")

	return nil
}
