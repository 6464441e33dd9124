package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"djconv/config"
	"djconv/export"
	"djconv/logging"
	"djconv/rekordbox"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	verbosity  int
	dbPath     string
	target     string
	format     string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "djconv",
		Short: "Convert a Mixxx library into a rekordbox XML collection",
		Long: `djconv reads the Mixxx SQLite database read-only and writes rekordbox.xml
(or a JSON snapshot of the library) into the target directory.

Settings come from djconv.yml in the user config directory, a .env file and
DJCONV_* environment variables; flags override all of them.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: a.runExport,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to the YAML config file")
	flags.CountVarP(&a.verbosity, "verbose", "v", "increase log verbosity (-v info, -vv debug)")
	flags.StringVar(&a.dbPath, "db", "", "path to mixxxdb.sqlite")

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export the library (default command)",
		RunE:  a.runExport,
	}
	for _, cmd := range []*cobra.Command{rootCmd, exportCmd} {
		cmd.Flags().StringVarP(&a.target, "target", "o", "", "directory the export is written to")
		cmd.Flags().StringVarP(&a.format, "format", "f", "", "export format: xml or json")
	}

	rootCmd.AddCommand(exportCmd, newStatsCmd(a), newValidateCmd(a))
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.dbPath != "" {
		cfg.MixxxDB = a.dbPath
	}
	if a.target != "" {
		cfg.TargetDirectory = a.target
	}
	if a.format != "" {
		cfg.ExportFormat = a.format
	}
	if a.verbosity > 0 {
		cfg.LogLevel = logging.LevelFromVerbosity(a.verbosity)
	}

	logger, err := logging.InitLogger(logging.Config{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) runExport(cmd *cobra.Command, args []string) error {
	result, err := export.Run(cmd.Context(), a.cfg, a.logger)
	if err != nil {
		return err
	}
	printResult(cmd.OutOrStdout(), result)
	return nil
}

func printResult(w io.Writer, r *export.Result) {
	fmt.Fprintf(w, "Wrote %s\n", r.Path)
	fmt.Fprintf(w, "  Tracks:    %d\n", r.Tracks)
	fmt.Fprintf(w, "  Playlists: %d\n", r.Playlists)
	fmt.Fprintf(w, "  Crates:    %d\n", r.Crates)
	if s := r.Projection; s != nil {
		fmt.Fprintf(w, "  Cues:      %d (%d skipped)\n", s.Cues, s.SkippedCues)
		if s.DanglingReferences > 0 {
			fmt.Fprintf(w, "  Skipped %d references to unknown tracks\n", s.DanglingReferences)
		}
		if s.SynthesizedAll {
			fmt.Fprintf(w, "  Added playlist %q with every track\n", rekordbox.AllPlaylistName)
		}
	}
	fmt.Fprintf(w, "Completed in %s\n", r.Elapsed.Round(time.Millisecond))
}
