package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tulul/tululbot/internal/app"
	"github.com/tulul/tululbot/internal/logger"
	"github.com/tulul/tululbot/internal/modules/quote"
	"github.com/tulul/tululbot/internal/scraper"
)

func newQuoteCmd(e *env) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Fetch the quote document and print random quotes",
		Long: `Download the quote document the way /quote does and print random
quotes from it. With a snapshot backend configured the fetched document is
also saved as the last good snapshot.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count < 1 {
				return errors.New("--count must be at least 1")
			}
			cfg := e.loadConfig()
			ctx := cmd.Context()

			snapshots, db, err := app.OpenSnapshots(ctx, cfg)
			if err != nil {
				return fmt.Errorf("snapshots: %w", err)
			}
			if db != nil {
				defer func() { _ = db.Close() }()
			}

			engine := quote.NewEngine(scraper.NewClient(scraper.Options{
				Timeout:    cfg.HTTPTimeout,
				MaxRetries: cfg.HTTPMaxRetries,
			}), quote.Options{
				DocumentURL: cfg.QuoteURL,
				BranchURL:   cfg.QuoteBranchURL,
				Snapshots:   snapshots,
				Logger:      logger.NewWithWriter("error", cmd.ErrOrStderr()),
			})
			if err := engine.RefreshCache(ctx); err != nil {
				return fmt.Errorf("refresh: %w", err)
			}
			cmd.Printf("%d quotes from %s\n\n", engine.Size(), engine.DocumentURL())

			for range count {
				q, err := engine.RetrieveRandom(ctx)
				if err != nil {
					return err
				}
				cmd.Println(q)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of quotes to print")
	return cmd
}
