package ingest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/haritpath/pestwatch/internal/conf"
	"github.com/haritpath/pestwatch/internal/logging"
)

// Sweeper removes stored uploads older than the configured maximum age so
// the uploads directory does not grow without bound.
type Sweeper struct {
	dir      string
	maxAge   time.Duration
	interval time.Duration
	log      *slog.Logger
}

// NewSweeper builds a retention sweeper for the ingestor's directory.
// Returns nil when retention is disabled.
func NewSweeper(settings *conf.Settings, ing *Ingestor) *Sweeper {
	if !settings.Ingest.Retention.Enabled {
		return nil
	}

	// Durations were validated at config load.
	maxAge, err := time.ParseDuration(settings.Ingest.Retention.MaxAge)
	if err != nil {
		return nil
	}
	interval, err := time.ParseDuration(settings.Ingest.Retention.Interval)
	if err != nil {
		return nil
	}

	return &Sweeper{
		dir:      ing.BaseDir(),
		maxAge:   maxAge,
		interval: interval,
		log:      logging.ForService("retention"),
	}
}

// Start runs the sweep loop until the context is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Sweep once at startup to clear leftovers from previous runs.
	s.Sweep()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep removes all files in the uploads directory older than maxAge and
// returns the number of files removed.
func (s *Sweeper) Sweep() int {
	cutoff := time.Now().Add(-s.maxAge)
	removed := 0

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if s.log != nil {
			s.log.Error("Failed to read uploads directory", "dir", s.dir, "error", err)
		}
		return 0
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			if s.log != nil {
				s.log.Warn("Failed to remove expired upload", "name", entry.Name(), "error", err)
			}
			continue
		}
		removed++
	}

	if removed > 0 && s.log != nil {
		s.log.Info("Removed expired uploads", "count", removed, "max_age", s.maxAge.String())
	}
	return removed
}
