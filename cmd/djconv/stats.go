package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"djconv/database"
)

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show what the Mixxx database contains",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dm, err := database.NewDatabaseManager(a.cfg.MixxxDB, 1, a.logger)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer dm.Close()

			stats, err := dm.GetStats(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get database stats: %w", err)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Database Statistics (%s):\n", dm.Path)
			fmt.Fprintf(w, "  Schema:    %d\n", stats.SchemaVersion)
			fmt.Fprintf(w, "  Tracks:    %d (%d deleted)\n", stats.TrackCount, stats.DeletedCount)
			fmt.Fprintf(w, "  Locations: %d\n", stats.LocationCount)
			fmt.Fprintf(w, "  Cues:      %d\n", stats.CueCount)
			fmt.Fprintf(w, "  Playlists: %d\n", stats.PlaylistCount)
			fmt.Fprintf(w, "  Crates:    %d\n", stats.CrateCount)
			fmt.Fprintf(w, "  Avg BPM:   %.2f\n", stats.AverageBPM)
			fmt.Fprintf(w, "  Duration:  %.1f h\n", stats.TotalDurationS/3600)
			fmt.Fprintf(w, "  Size:      %.2f MB\n", float64(stats.DatabaseSize)/(1024*1024))
			return nil
		},
	}
}
