// Package walker enumerates regular files under one or more roots. The walk
// is lazy: records are handed to a callback as they are discovered and the
// tree is never buffered, so it stays usable on trees with millions of
// entries.
package walker

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/reclaimd/reclaim/internal/platform"
)

// FileRecord describes one regular file seen during a walk. Records are
// transient; they are never persisted directly.
type FileRecord struct {
	Path    string
	Size    int64
	ModTime time.Time
	Ident   platform.FileID
}

// Stats counts what a walk saw. Skipped covers permission-denied subtrees,
// files that vanished mid-walk, and anything else that could not be
// stat'ed; per the error policy these are counted, never fatal.
type Stats struct {
	Files   int
	Dirs    int
	Skipped int
}

// Options controls which files a walk yields.
type Options struct {
	Roots           []string
	MinSize         int64
	MaxSize         int64 // 0 means no upper bound
	Extensions      []string
	ExcludePatterns []string
}

// denylistDirs are directory names pruned without descent on every walk.
var denylistDirs = map[string]struct{}{
	".git":                      {},
	"node_modules":              {},
	"__pycache__":               {},
	"$RECYCLE.BIN":              {},
	"System Volume Information": {},
	".Trash":                    {},
	".Trashes":                  {},
}

// ErrStop can be returned by a walk callback to end the walk early without
// reporting an error.
var ErrStop = errors.New("walk stopped")

// Walker enumerates files according to its options.
type Walker struct {
	opts Options
	exts map[string]struct{}
}

// New creates a Walker. Extension filters are normalized to lowercase
// without the leading dot.
func New(opts Options) *Walker {
	w := &Walker{opts: opts}
	if len(opts.Extensions) > 0 {
		w.exts = make(map[string]struct{}, len(opts.Extensions))
		for _, ext := range opts.Extensions {
			w.exts[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
		}
	}
	return w
}

// Walk calls fn for every matching regular file under the configured roots.
// Hard links are yielded once per call: the seen-identity set is created
// fresh each time, so a walk is restartable only from scratch. Symlinks are
// never followed. Returns the walk statistics and the callback's error, if
// any (ErrStop is translated to a clean stop).
func (w *Walker) Walk(ctx context.Context, fn func(FileRecord) error) (Stats, error) {
	var stats Stats
	seen := make(map[platform.FileID]struct{})

	for _, root := range w.opts.Roots {
		root = filepath.Clean(root)

		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// Permission denied or vanished entry: skip and count.
				stats.Skipped++
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}

			if err := ctx.Err(); err != nil {
				return err
			}

			if d.IsDir() {
				name := d.Name()
				if path != root {
					if _, deny := denylistDirs[name]; deny || platform.IsHidden(name) {
						return fs.SkipDir
					}
				}
				stats.Dirs++
				return nil
			}

			// Only regular files; symlinks in particular are skipped to
			// avoid cycles and double-counting.
			if !d.Type().IsRegular() {
				return nil
			}

			if platform.IsHidden(d.Name()) {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				stats.Skipped++
				return nil
			}

			if !w.match(path, info.Size()) {
				return nil
			}

			rec := FileRecord{
				Path:    path,
				Size:    info.Size(),
				ModTime: info.ModTime(),
			}

			if id, ok := platform.IdentityOf(info); ok {
				if _, dup := seen[id]; dup {
					return nil
				}
				seen[id] = struct{}{}
				rec.Ident = id
			}

			stats.Files++
			return fn(rec)
		})

		if err != nil {
			if errors.Is(err, ErrStop) {
				return stats, nil
			}
			return stats, err
		}
	}

	return stats, nil
}

// match applies size, extension and exclude-pattern filters.
func (w *Walker) match(path string, size int64) bool {
	if size < w.opts.MinSize {
		return false
	}
	if w.opts.MaxSize > 0 && size > w.opts.MaxSize {
		return false
	}

	if w.exts != nil {
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
		if _, ok := w.exts[ext]; !ok {
			return false
		}
	}

	for _, pattern := range w.opts.ExcludePatterns {
		if matched, _ := filepath.Match(pattern, path); matched {
			return false
		}
		if strings.Contains(path, pattern) {
			return false
		}
	}

	return true
}
