package main

import (
	"context"
	"fmt"
)

func runDB(ctx context.Context, a *app, verb string, _ []string) error {
	switch verb {
	case "setup", "migrate":
		if err := a.store.Migrate(ctx); err != nil {
			return fmt.Errorf("db %s: %w", verb, err)
		}

		a.logger.Info().Msg("schema migrated")

		return nil
	default:
		return fmt.Errorf("db: unknown verb %q", verb)
	}
}
