package cleaner

import (
	"context"
	"errors"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/reclaimd/reclaim/internal/platform"
	"github.com/reclaimd/reclaim/internal/progress"
	"github.com/reclaimd/reclaim/internal/quarantine"
)

// Options controls how a cleanup batch is executed.
type Options struct {
	// UseQuarantine moves items into the quarantine store instead of
	// deleting them directly.
	UseQuarantine bool
	// StrictQuarantine makes a quarantine failure a per-item failure
	// instead of falling back to direct deletion.
	StrictQuarantine bool
	// DryRun reports what would happen without touching any file.
	DryRun bool
}

// Coordinator executes cleanup batches. Each item independently ends up
// quarantined, deleted, skipped, or failed; one item's failure never stops
// the rest of the batch.
type Coordinator struct {
	info     *platform.Info
	store    *quarantine.Store
	log      *zap.Logger
	reporter *progress.Reporter
}

// New creates a Coordinator. The store may be nil when quarantine is not
// used; the logger and reporter may be nil.
func New(info *platform.Info, store *quarantine.Store, log *zap.Logger, reporter *progress.Reporter) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		info:     info,
		store:    store,
		log:      log,
		reporter: reporter,
	}
}

// Cleanup processes a batch of candidates. The returned Result is always
// non-nil and reflects what was done so far, including when the context is
// cancelled mid-batch.
func (c *Coordinator) Cleanup(ctx context.Context, items []Item, opts Options) (*Result, error) {
	result := &Result{DryRun: opts.DryRun}
	start := time.Now()

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			c.reportClean(progress.PhaseError, item.Path, i, len(items), result, start, err)
			return result, err
		}

		c.reportClean(progress.PhaseCleaning, item.Path, i, len(items), result, start, nil)

		if !item.SafeToDelete {
			result.Skipped++
			c.log.Debug("skipping protected item", zap.String("path", item.Path))
			continue
		}

		if opts.DryRun {
			result.Deleted++
			result.FreedBytes += item.Size
			continue
		}

		if err := c.removeItem(item, opts, result); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, newItemError(item.Path, err))
			c.log.Warn("cleanup item failed",
				zap.String("path", item.Path),
				zap.String("category", string(item.Category)),
				zap.Error(err))
			continue
		}

		result.Deleted++
		result.FreedBytes += item.Size
	}

	c.reportClean(progress.PhaseComplete, "", len(items), len(items), result, start, nil)
	return result, nil
}

// removeItem disposes of one item per the batch options. When quarantine is
// requested and fails, the item falls back to direct deletion unless strict
// mode is set; every fallback is recorded in the result and logged.
func (c *Coordinator) removeItem(item Item, opts Options, result *Result) error {
	if opts.UseQuarantine && c.store != nil {
		_, err := c.store.Quarantine(item.Path, "cleanup: "+string(item.Category))
		if err == nil {
			return nil
		}
		// The fallback exists for files quarantine cannot hold, not for
		// paths that are gone: deletePath reports a vanished path as
		// removed, which would turn a missing item into a success.
		if opts.StrictQuarantine || errors.Is(err, os.ErrNotExist) {
			return CategorizeError(item.Path, err)
		}
		c.log.Warn("quarantine failed, deleting directly",
			zap.String("path", item.Path),
			zap.Error(err))
		result.FellBack = append(result.FellBack, item.Path)
	}

	// An already-missing path is a failure, not a deletion this batch
	// performed.
	if _, err := os.Lstat(item.Path); err != nil {
		return CategorizeError(item.Path, err)
	}
	if err := deletePath(item.Path); err != nil {
		return CategorizeError(item.Path, err)
	}
	return nil
}

func (c *Coordinator) reportClean(phase progress.Phase, path string, done, total int, result *Result, start time.Time, err error) {
	if c.reporter == nil {
		return
	}
	c.reporter.UpdateClean(&progress.CleanProgress{
		Phase:       phase,
		CurrentPath: path,
		Done:        done,
		Total:       total,
		FreedBytes:  result.FreedBytes,
		Failed:      result.Failed,
		StartTime:   start,
		Error:       err,
	})
}
