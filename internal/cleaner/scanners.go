package cleaner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/reclaimd/reclaim/internal/walker"
)

// ScanOptions selects which candidate sources to assemble. The category
// flags come from the surrounding configuration/CLI layer; the coordinator
// treats them as an opaque boolean/path set.
type ScanOptions struct {
	Temp        bool
	Cache       bool
	Logs        bool
	CustomPaths []string

	TempAge  time.Duration // only temp files older than this
	CacheAge time.Duration
	LogAge   time.Duration // only log files older than this

	ExcludePatterns []string
}

// logSuffixes mark files treated as logs, including rotated forms.
var logSuffixes = []string{".log", ".old", ".bak", ".log.gz", ".log.xz", ".log.bz2"}

// FindCleanable assembles the candidate list from the enabled sources.
// Per-file errors during scanning are skipped and counted by the walker;
// an unreachable directory contributes nothing rather than failing the
// scan.
func (c *Coordinator) FindCleanable(ctx context.Context, opts ScanOptions) ([]Item, error) {
	var items []Item

	if opts.Temp {
		found, err := c.scanAged(ctx, c.info.TempDirs, CategoryTemp, opts.TempAge, opts.ExcludePatterns, nil)
		if err != nil {
			return nil, err
		}
		items = append(items, found...)
	}

	if opts.Cache {
		found, err := c.scanAged(ctx, c.info.CacheDirs, CategoryCache, opts.CacheAge, opts.ExcludePatterns, nil)
		if err != nil {
			return nil, err
		}
		items = append(items, found...)
	}

	if opts.Logs {
		found, err := c.scanAged(ctx, c.info.LogDirs, CategoryLog, opts.LogAge, opts.ExcludePatterns, isLogFile)
		if err != nil {
			return nil, err
		}
		items = append(items, found...)
	}

	for _, path := range opts.CustomPaths {
		found, err := c.scanCustom(ctx, path, opts.ExcludePatterns)
		if err != nil {
			return nil, err
		}
		items = append(items, found...)
	}

	return items, nil
}

// scanAged walks dirs and emits every regular file older than minAge that
// passes the optional name filter.
func (c *Coordinator) scanAged(ctx context.Context, dirs []string, category Category, minAge time.Duration, exclude []string, nameFilter func(string) bool) ([]Item, error) {
	var items []Item
	cutoff := time.Now().Add(-minAge)

	for _, dir := range dirs {
		if _, err := os.Stat(dir); err != nil {
			continue
		}

		w := walker.New(walker.Options{
			Roots:           []string{dir},
			ExcludePatterns: exclude,
		})
		_, err := w.Walk(ctx, func(rec walker.FileRecord) error {
			if minAge > 0 && rec.ModTime.After(cutoff) {
				return nil
			}
			if nameFilter != nil && !nameFilter(rec.Path) {
				return nil
			}
			items = append(items, Item{
				Path:         rec.Path,
				Size:         rec.Size,
				Category:     category,
				Description:  describeAged(category, rec.ModTime),
				SafeToDelete: !c.info.IsProtected(rec.Path),
			})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return items, nil
}

// scanCustom emits candidates from a caller-supplied path, which may be a
// single file or a directory tree.
func (c *Coordinator) scanCustom(ctx context.Context, path string, exclude []string) ([]Item, error) {
	info, err := os.Lstat(path)
	if err != nil {
		// Unreachable custom path: contribute nothing.
		return nil, nil
	}

	if info.Mode().IsRegular() {
		return []Item{{
			Path:         path,
			Size:         info.Size(),
			Category:     CategoryCustom,
			Description:  "File: " + filepath.Base(path),
			SafeToDelete: !c.info.IsProtected(path),
		}}, nil
	}
	if !info.IsDir() {
		return nil, nil
	}

	var items []Item
	w := walker.New(walker.Options{
		Roots:           []string{path},
		ExcludePatterns: exclude,
	})
	_, err = w.Walk(ctx, func(rec walker.FileRecord) error {
		items = append(items, Item{
			Path:         rec.Path,
			Size:         rec.Size,
			Category:     CategoryCustom,
			Description:  "File: " + filepath.Base(rec.Path),
			SafeToDelete: !c.info.IsProtected(rec.Path),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func isLogFile(path string) bool {
	base := filepath.Base(path)
	for _, suffix := range logSuffixes {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}
	// Rotated logs like app.log.1, app.log.2.gz
	return strings.Contains(base, ".log.")
}

func describeAged(category Category, modTime time.Time) string {
	switch category {
	case CategoryTemp:
		return fmt.Sprintf("Temporary file (modified %s)", modTime.Format("2006-01-02"))
	case CategoryCache:
		return fmt.Sprintf("Cache file (modified %s)", modTime.Format("2006-01-02"))
	case CategoryLog:
		return fmt.Sprintf("Old log file (modified %s)", modTime.Format("2006-01-02"))
	default:
		return "Matches cleanup criteria"
	}
}
