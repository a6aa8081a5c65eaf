// Package dupes implements multi-phase duplicate file detection.
//
// Phase 1 groups files by exact size, phase 2 fingerprints a 4 KiB prefix,
// phase 3 hashes full content with SHA-256. Each phase only processes
// survivors of the previous one, which bounds expensive full reads to
// genuine candidates.
package dupes

import (
	"context"
	"sort"
	"time"

	"github.com/reclaimd/reclaim/internal/progress"
	"github.com/reclaimd/reclaim/internal/walker"
	"github.com/reclaimd/reclaim/pkg/utils"
)

// File is one member of a duplicate group.
type File struct {
	Path    string    `json:"path" yaml:"path"`
	Size    int64     `json:"size" yaml:"size"`
	ModTime time.Time `json:"mod_time" yaml:"mod_time"`
}

// Group is a set of files with identical size and identical full-content
// hash. Files are ordered oldest modification time first; the first member
// is the keeper, every other member is a deletion candidate.
type Group struct {
	Hash        string `json:"hash" yaml:"hash"`
	Size        int64  `json:"size" yaml:"size"`
	Files       []File `json:"files" yaml:"files"`
	WastedSpace int64  `json:"wasted_space" yaml:"wasted_space"`
}

// Keeper returns the retained member (oldest by modification time).
func (g *Group) Keeper() File {
	return g.Files[0]
}

// Stats counts what a detection run saw. Unreadable files were dropped from
// consideration mid-scan (permission revoked, deleted); they are surfaced
// here rather than silently swallowed.
type Stats struct {
	Indexed    int
	Candidates int
	Hashed     int
	Unreadable int
	Skipped    int
}

// Options configures a Detector.
type Options struct {
	MinSize         int64
	Extensions      []string
	ExcludePatterns []string
	Cache           HashCache // optional, caller-owned
	Reporter        *progress.Reporter
}

// DefaultMinSize is the smallest file considered when no minimum is
// configured. Tiny files duplicate constantly and reclaim nothing.
const DefaultMinSize = 1024

// Detector finds duplicate groups under a set of roots.
type Detector struct {
	opts Options
}

// New creates a Detector.
func New(opts Options) *Detector {
	if opts.MinSize <= 0 {
		opts.MinSize = DefaultMinSize
	}
	return &Detector{opts: opts}
}

type candidate struct {
	path    string
	size    int64
	modTime time.Time
}

type partialKey struct {
	size    int64
	partial uint64
}

// Find runs the three-phase detection and returns groups ranked by wasted
// space descending. Re-running against an unmodified filesystem produces
// identical group membership, keeper selection and ordering. Cancellation
// is polled between files; a cancelled run returns ctx.Err().
func (d *Detector) Find(ctx context.Context, roots []string) ([]Group, Stats, error) {
	var stats Stats
	startTime := time.Now()

	// Phase 1: group by exact byte size. Files of unique size cannot be
	// duplicates.
	d.reportScan(progress.PhaseSize, 0, 0, "Grouping files by size...", startTime, nil)

	w := walker.New(walker.Options{
		Roots:           roots,
		MinSize:         d.opts.MinSize,
		Extensions:      d.opts.Extensions,
		ExcludePatterns: d.opts.ExcludePatterns,
	})

	sizeGroups := make(map[int64][]candidate)
	walkStats, err := w.Walk(ctx, func(rec walker.FileRecord) error {
		sizeGroups[rec.Size] = append(sizeGroups[rec.Size], candidate{
			path:    rec.Path,
			size:    rec.Size,
			modTime: rec.ModTime,
		})
		stats.Indexed++
		if stats.Indexed%500 == 0 {
			d.reportScan(progress.PhaseSize, stats.Indexed, 0, "Indexing files...", startTime, nil)
		}
		return nil
	})
	stats.Skipped = walkStats.Skipped
	if err != nil {
		return nil, stats, err
	}

	var sizeSurvivors []candidate
	for _, files := range sizeGroups {
		if len(files) > 1 {
			sizeSurvivors = append(sizeSurvivors, files...)
		}
	}
	stats.Candidates = len(sizeSurvivors)
	d.reportScan(progress.PhaseSize, stats.Indexed, stats.Indexed,
		"Size grouping complete", startTime, nil)

	// Phase 2: fast prefix fingerprint. Turns the remaining candidates
	// into a small number of expensive full reads.
	d.reportScan(progress.PhasePartial, 0, stats.Candidates, "Computing partial fingerprints...", startTime, nil)

	partialGroups := make(map[partialKey][]candidate)
	for i, cand := range sizeSurvivors {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		partial, err := utils.PartialHash(cand.path)
		if err != nil {
			// Unreadable mid-scan: drop the file, keep going.
			stats.Unreadable++
			continue
		}
		key := partialKey{size: cand.size, partial: partial}
		partialGroups[key] = append(partialGroups[key], cand)

		if (i+1)%100 == 0 {
			d.reportScan(progress.PhasePartial, i+1, stats.Candidates, "Fingerprinting...", startTime, nil)
		}
	}

	var fullCandidates []candidate
	for _, files := range partialGroups {
		if len(files) > 1 {
			fullCandidates = append(fullCandidates, files...)
		}
	}
	d.reportScan(progress.PhasePartial, stats.Candidates, stats.Candidates,
		"Partial fingerprinting complete", startTime, nil)

	// Phase 3: full content hash for surviving candidates.
	total := len(fullCandidates)
	d.reportScan(progress.PhaseFull, 0, total, "Computing full hashes...", startTime, nil)

	fullGroups := make(map[string][]File)
	for i, cand := range fullCandidates {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		hash, err := d.fullHash(cand)
		if err != nil {
			stats.Unreadable++
			continue
		}
		stats.Hashed++
		fullGroups[hash] = append(fullGroups[hash], File{
			Path:    cand.path,
			Size:    cand.size,
			ModTime: cand.modTime,
		})

		if (i+1)%50 == 0 {
			d.reportScan(progress.PhaseFull, i+1, total, "Hashing...", startTime, nil)
		}
	}

	groups := buildGroups(fullGroups)

	d.reportScan(progress.PhaseComplete, total, total, "Duplicate scan complete", startTime, nil)

	return groups, stats, nil
}

// fullHash hashes the candidate's full content, consulting the caller-owned
// cache keyed by (path, size, mtime) when one is configured.
func (d *Detector) fullHash(cand candidate) (string, error) {
	if d.opts.Cache != nil {
		if hash, ok := d.opts.Cache.Get(cand.path, cand.size, cand.modTime); ok {
			return hash, nil
		}
	}

	hash, err := utils.HashFile(cand.path)
	if err != nil {
		return "", err
	}

	if d.opts.Cache != nil {
		d.opts.Cache.Put(cand.path, cand.size, cand.modTime, hash)
	}
	return hash, nil
}

// buildGroups converts the hash buckets into ordered duplicate groups.
// Member order (mtime ascending, path as tie-break) fixes the keeper;
// group order is wasted space descending with hash as tie-break. Both
// orderings are stable across runs on an unchanged filesystem.
func buildGroups(fullGroups map[string][]File) []Group {
	groups := make([]Group, 0, len(fullGroups))

	for hash, files := range fullGroups {
		if len(files) < 2 {
			continue
		}

		sort.Slice(files, func(i, j int) bool {
			if !files[i].ModTime.Equal(files[j].ModTime) {
				return files[i].ModTime.Before(files[j].ModTime)
			}
			return files[i].Path < files[j].Path
		})

		size := files[0].Size
		groups = append(groups, Group{
			Hash:        hash,
			Size:        size,
			Files:       files,
			WastedSpace: size * int64(len(files)-1),
		})
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].WastedSpace != groups[j].WastedSpace {
			return groups[i].WastedSpace > groups[j].WastedSpace
		}
		return groups[i].Hash < groups[j].Hash
	})

	return groups
}

// TotalWasted sums the reclaimable bytes across groups.
func TotalWasted(groups []Group) int64 {
	var total int64
	for _, g := range groups {
		total += g.WastedSpace
	}
	return total
}

func (d *Detector) reportScan(phase progress.Phase, processed, total int, message string, startTime time.Time, err error) {
	if d.opts.Reporter == nil {
		return
	}
	d.opts.Reporter.UpdateScan(&progress.ScanProgress{
		Phase:     phase,
		Processed: processed,
		Total:     total,
		Message:   message,
		StartTime: startTime,
		Error:     err,
	})
}
