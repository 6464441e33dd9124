// Package export runs a full conversion: read the Mixxx database, build the library and
// write it to the target directory.
package export

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"djconv/config"
	"djconv/database"
	"djconv/mixxx"
	"djconv/rekordbox"
)

// Output file names inside the target directory.
const (
	XMLFileName  = "rekordbox.xml"
	JSONFileName = "mixxx_library.json"
)

// Result describes a finished export.
type Result struct {
	Format     string             `json:"format"`
	Path       string             `json:"path"`
	Tracks     int                `json:"tracks"`
	Playlists  int                `json:"playlists"`
	Crates     int                `json:"crates"`
	Projection *rekordbox.Summary `json:"projection,omitempty"`
	Elapsed    time.Duration      `json:"elapsed"`
}

// Run exports the library described by cfg. Nothing is written when reading or projecting
// fails, and an existing output file is only replaced by a complete one.
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	paths, err := cfg.PathTranslator()
	if err != nil {
		return nil, err
	}
	start := time.Now()

	dm, err := database.NewDatabaseManager(cfg.MixxxDB, cfg.Workers, logger)
	if err != nil {
		return nil, err
	}
	defer dm.Close()

	lib, err := mixxx.ReadLibrary(ctx, dm, mixxx.Options{
		Workers:            cfg.Workers,
		PositionSampleRate: cfg.PositionSampleRate,
		Logger:             logger,
	})
	if err != nil {
		return nil, err
	}

	result := &Result{
		Format:    cfg.ExportFormat,
		Tracks:    len(lib.Tracks),
		Playlists: len(lib.Playlists),
		Crates:    len(lib.Crates),
	}

	var write func(io.Writer) error
	switch cfg.ExportFormat {
	case config.FormatJSON:
		result.Path = filepath.Join(cfg.TargetDirectory, JSONFileName)
		write = func(w io.Writer) error { return encodeSnapshot(w, lib) }
	default:
		out, summary, err := rekordbox.Project(lib, rekordbox.Options{
			Paths:              paths,
			PositionSampleRate: cfg.PositionSampleRate,
			Logger:             logger,
		})
		if err != nil {
			return nil, err
		}
		result.Path = filepath.Join(cfg.TargetDirectory, XMLFileName)
		result.Projection = &summary
		write = func(w io.Writer) error { return rekordbox.Encode(w, out) }
	}

	if err := writeFile(result.Path, write); err != nil {
		return nil, err
	}
	result.Elapsed = time.Since(start)

	logger.Info("Export finished",
		zap.String("format", result.Format),
		zap.String("path", result.Path),
		zap.Int("tracks", result.Tracks),
		zap.Int("playlists", result.Playlists),
		zap.Int("crates", result.Crates),
		zap.Duration("elapsed", result.Elapsed))
	return result, nil
}

func encodeSnapshot(w io.Writer, lib *mixxx.Library) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(lib); err != nil {
		return fmt.Errorf("marshal library snapshot: %w", err)
	}
	return nil
}

// writeFile writes through a .part file next to path and renames it into place.
func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create target directory: %w", err)
	}

	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}

	err = writeAndSync(f, write)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close %s: %w", tmp, cerr)
	}
	if err == nil {
		if rerr := os.Rename(tmp, path); rerr != nil {
			err = fmt.Errorf("rename %s: %w", tmp, rerr)
		}
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func writeAndSync(f *os.File, write func(io.Writer) error) error {
	buf := bufio.NewWriter(f)
	if err := write(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", f.Name(), err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", f.Name(), err)
	}
	return nil
}

// Check runs the database integrity checks and adds one issue per stored file type the
// rekordbox projection would reject.
func Check(ctx context.Context, dm *database.DatabaseManager) (*database.ValidationReport, error) {
	report, err := dm.Validate(ctx)
	if err != nil {
		return nil, err
	}
	types, err := dm.FileTypes(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if rekordbox.SupportedFileType(name) {
			continue
		}
		report.Issues = append(report.Issues, database.ValidationIssue{
			Check:   "unsupported_file_type",
			Entity:  "filetype",
			Message: fmt.Sprintf("%d tracks use %q, which has no rekordbox kind", types[name], name),
		})
	}
	return report, nil
}
