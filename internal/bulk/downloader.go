package bulk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/alitto/pond/v2"
)

// Client downloads a single asset. *csda.Client implements it.
type Client interface {
	Download(ctx context.Context, collectionID, itemID, assetKey, path string) error
}

// Status is the outcome of one row.
type Status int

const (
	StatusDownloaded Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusDownloaded:
		return "downloaded"
	case StatusSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Result is the outcome of downloading one row.
type Result struct {
	Row      Row
	Path     string
	Status   Status
	Err      error
	Duration time.Duration
}

// Summary counts results by status.
type Summary struct {
	Downloaded int
	Skipped    int
	Failed     int
}

// Err returns an error if any row failed.
func (s Summary) Err() error {
	if s.Failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d downloads failed", s.Failed, s.Downloaded+s.Skipped+s.Failed)
}

// Config configures a [Downloader].
type Config struct {
	Client    Client
	OutDir    string
	Workers   int
	Overwrite bool
	Logger    *slog.Logger

	// OnResult is called from the worker goroutines as each row finishes.
	OnResult func(Result)
}

// DefaultOutDir returns the timestamped output directory used when none
// is given, e.g. Order_Downloads_2024-05-01-1330.
func DefaultOutDir(now time.Time) string {
	return "Order_Downloads_" + now.Format("2006-01-02-1504")
}

// Downloader downloads manifest rows concurrently.
type Downloader struct {
	cfg Config
}

// New returns a downloader. Workers defaults to 4.
func New(cfg Config) *Downloader {
	if cfg.Workers < 1 {
		cfg.Workers = 4
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Downloader{cfg: cfg}
}

// Run downloads rows and returns one result per row, in manifest order.
// Failures are recorded in the results; Run only returns an error if the
// output directory cannot be created. Cancelling ctx stops rows that have
// not started yet, which are reported as failed.
func (d *Downloader) Run(ctx context.Context, rows []Row) ([]Result, Summary, error) {
	if err := os.MkdirAll(d.cfg.OutDir, 0o755); err != nil {
		return nil, Summary{}, fmt.Errorf("creating output directory: %w", err)
	}

	results := make([]Result, len(rows))
	pool := pond.NewPool(d.cfg.Workers, pond.WithContext(ctx))

	for i, row := range rows {
		results[i] = Result{Row: row, Path: row.Destination(d.cfg.OutDir), Status: StatusFailed, Err: context.Canceled}
		pool.Submit(func() {
			results[i] = d.download(ctx, row)
			if d.cfg.OnResult != nil {
				d.cfg.OnResult(results[i])
			}
		})
	}
	pool.StopAndWait()

	var summary Summary
	for _, r := range results {
		switch r.Status {
		case StatusDownloaded:
			summary.Downloaded++
		case StatusSkipped:
			summary.Skipped++
		default:
			summary.Failed++
		}
	}
	return results, summary, nil
}

func (d *Downloader) download(ctx context.Context, row Row) Result {
	start := time.Now()
	dest := row.Destination(d.cfg.OutDir)
	result := Result{Row: row, Path: dest}

	if !d.cfg.Overwrite {
		if _, err := os.Stat(dest); err == nil {
			d.cfg.Logger.Info("skipping existing file", slog.String("path", dest))
			result.Status = StatusSkipped
			return result
		}
	}

	if err := ctx.Err(); err != nil {
		result.Status = StatusFailed
		result.Err = err
		return result
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		result.Status = StatusFailed
		result.Err = fmt.Errorf("creating directory for %s: %w", dest, err)
		return result
	}

	// Download into a temporary name so an interrupted run is retried
	// instead of skipped next time.
	partial := dest + ".part"
	err := d.cfg.Client.Download(ctx, row.Collection, row.Item, row.Asset, partial)
	if err == nil {
		err = os.Rename(partial, dest)
	}
	result.Duration = time.Since(start)

	if err != nil {
		_ = os.Remove(partial)
		result.Status = StatusFailed
		result.Err = err
		d.cfg.Logger.Error("download failed",
			slog.Int("line", row.Line),
			slog.String("asset", row.String()),
			slog.String("error", err.Error()),
		)
		return result
	}

	result.Status = StatusDownloaded
	d.cfg.Logger.Info("downloaded asset",
		slog.String("asset", row.String()),
		slog.String("path", dest),
		slog.Int64("duration_ms", result.Duration.Milliseconds()),
	)
	return result
}

// IsCanceled reports whether the result failed because the run was
// cancelled before the row started.
func (r Result) IsCanceled() bool {
	return errors.Is(r.Err, context.Canceled) || errors.Is(r.Err, context.DeadlineExceeded)
}
