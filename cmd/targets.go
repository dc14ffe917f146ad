package cmd

import (
	"fmt"

	"github.com/example/court-scheduler/internal/config"
	"github.com/example/court-scheduler/internal/domain/reservation"
	"github.com/spf13/cobra"
)

func newTargetsCmd() *cobra.Command {
	var path string
	c := &cobra.Command{
		Use:   "targets",
		Short: "Validate the reservation plan and list its targets in scenario order",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := config.FileSource{Path: path}.Load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			plan := snap.Plan()
			for i, t := range plan {
				owner := t.Owner
				if owner == "" {
					owner = snap.DefaultAccount().ID + " (default)"
				}
				fmt.Fprintf(out, "%2d  %s  -> %s\n", i+1, reservation.Label(t, ""), owner)
			}
			if dropped := len(snap.Targets) - len(plan); dropped > 0 {
				fmt.Fprintf(out, "%d duplicate target(s) skipped\n", dropped)
			}
			if err := snap.Check(); err != nil {
				return fmt.Errorf("plan has problems:\n%w", err)
			}
			return nil
		},
	}
	c.Flags().StringVar(&path, "config", config.Getenv("COURTSCHED_CONFIG", "config.yaml"), "reservation plan file")
	return c
}
