package main

import (
	"context"
	"flag"
	"fmt"
)

func runHeuristic(ctx context.Context, a *app, verb string, args []string) error {
	switch verb {
	case "update":
		return heuristicUpdate(ctx, a, args)
	default:
		return fmt.Errorf("heuristic: unknown verb %q", verb)
	}
}

func heuristicUpdate(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("heuristic update", flag.ContinueOnError)
	name := fs.String("land", "", "land name")

	if err := fs.Parse(args); err != nil {
		return err
	}

	l, err := requireLand(ctx, a, *name)
	if err != nil {
		return err
	}

	updated, err := a.orchestrator.UpdateHeuristic(ctx, l.ID)
	if err != nil {
		return fmt.Errorf("heuristic update: %w", err)
	}

	fmt.Printf("%d expression(s) reassigned\n", updated)

	return nil
}
