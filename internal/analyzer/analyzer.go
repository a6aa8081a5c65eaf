package analyzer

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v4/disk"

	"github.com/reclaimd/reclaim/internal/walker"
)

// DiskUsage describes the filesystem holding a path.
type DiskUsage struct {
	Path        string  `json:"path" yaml:"path"`
	Total       uint64  `json:"total" yaml:"total"`
	Used        uint64  `json:"used" yaml:"used"`
	Free        uint64  `json:"free" yaml:"free"`
	UsedPercent float64 `json:"used_percent" yaml:"used_percent"`
}

// LargeFile is one entry in the largest-files report.
type LargeFile struct {
	Path string `json:"path" yaml:"path"`
	Size int64  `json:"size" yaml:"size"`
}

// ExtensionStat aggregates count and size per file extension.
type ExtensionStat struct {
	Extension string `json:"extension" yaml:"extension"`
	Count     int    `json:"count" yaml:"count"`
	Size      int64  `json:"size" yaml:"size"`
}

// Report is the output of a usage analysis run.
type Report struct {
	Usage      DiskUsage       `json:"usage" yaml:"usage"`
	TotalFiles int             `json:"total_files" yaml:"total_files"`
	TotalSize  int64           `json:"total_size" yaml:"total_size"`
	Largest    []LargeFile     `json:"largest" yaml:"largest"`
	Extensions []ExtensionStat `json:"extensions" yaml:"extensions"`
}

// Usage reports filesystem usage for the volume containing path.
func Usage(path string) (DiskUsage, error) {
	stat, err := disk.Usage(path)
	if err != nil {
		return DiskUsage{}, err
	}
	return DiskUsage{
		Path:        path,
		Total:       stat.Total,
		Used:        stat.Used,
		Free:        stat.Free,
		UsedPercent: stat.UsedPercent,
	}, nil
}

// Analyze walks root and builds a usage report with the topN largest files
// and per-extension totals, sorted largest first.
func Analyze(ctx context.Context, root string, topN int) (*Report, error) {
	usage, err := Usage(root)
	if err != nil {
		return nil, err
	}

	report := &Report{Usage: usage}
	byExt := make(map[string]*ExtensionStat)

	w := walker.New(walker.Options{Roots: []string{root}})
	_, err = w.Walk(ctx, func(rec walker.FileRecord) error {
		report.TotalFiles++
		report.TotalSize += rec.Size

		ext := strings.ToLower(filepath.Ext(rec.Path))
		if ext == "" {
			ext = "(none)"
		}
		stat, ok := byExt[ext]
		if !ok {
			stat = &ExtensionStat{Extension: ext}
			byExt[ext] = stat
		}
		stat.Count++
		stat.Size += rec.Size

		report.Largest = append(report.Largest, LargeFile{Path: rec.Path, Size: rec.Size})
		if len(report.Largest) > topN*4 {
			trimLargest(report, topN)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	trimLargest(report, topN)

	for _, stat := range byExt {
		report.Extensions = append(report.Extensions, *stat)
	}
	sort.Slice(report.Extensions, func(i, j int) bool {
		if report.Extensions[i].Size != report.Extensions[j].Size {
			return report.Extensions[i].Size > report.Extensions[j].Size
		}
		return report.Extensions[i].Extension < report.Extensions[j].Extension
	})

	return report, nil
}

// trimLargest keeps only the topN biggest entries, ties broken by path so
// repeated runs produce identical reports.
func trimLargest(r *Report, topN int) {
	sort.Slice(r.Largest, func(i, j int) bool {
		if r.Largest[i].Size != r.Largest[j].Size {
			return r.Largest[i].Size > r.Largest[j].Size
		}
		return r.Largest[i].Path < r.Largest[j].Path
	})
	if len(r.Largest) > topN {
		r.Largest = r.Largest[:topN]
	}
}
