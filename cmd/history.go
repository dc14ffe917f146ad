package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/example/court-scheduler/internal/config"
	"github.com/example/court-scheduler/internal/db"
	"github.com/example/court-scheduler/internal/journal"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var (
		databaseURL string
		date        string
		limit       int
	)
	c := &cobra.Command{
		Use:   "history",
		Short: "List journaled reservation outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if databaseURL == "" {
				return fmt.Errorf("DATABASE_URL (or --database-url) is required")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			d, err := db.Open(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer d.Close()

			repo := journal.NewRepo(d)
			var entries []journal.Entry
			if date != "" {
				entries, err = repo.ForDate(ctx, date)
			} else {
				entries, err = repo.Recent(ctx, limit)
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintf(out, "%s  %-10s court=%d %s %s %dh  %s",
					e.At.Local().Format(time.DateTime), e.Result, e.Court, e.Date, e.Time, e.Hours, e.AccountID)
				if e.Holder != "" && e.Holder != e.AccountID {
					fmt.Fprintf(out, " holder=%s", e.Holder)
				}
				if e.Detail != "" {
					fmt.Fprintf(out, " (%s)", e.Detail)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	c.Flags().StringVar(&databaseURL, "database-url", config.Getenv("DATABASE_URL", ""), "postgres connection string")
	c.Flags().StringVar(&date, "date", "", "only outcomes for this date (YYYYMMDD)")
	c.Flags().IntVar(&limit, "limit", 50, "number of recent outcomes")
	return c
}
