package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/reclaimd/reclaim/internal/analyzer"
	"github.com/reclaimd/reclaim/internal/cleaner"
	"github.com/reclaimd/reclaim/internal/dupes"
	"github.com/reclaimd/reclaim/internal/quarantine"
	"github.com/reclaimd/reclaim/pkg/utils"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatTable   OutputFormat = "table"
	FormatJSON    OutputFormat = "json"
	FormatYAML    OutputFormat = "yaml"
	FormatSummary OutputFormat = "summary"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// Reporter handles report generation
type Reporter struct {
	writer io.Writer
	format OutputFormat
}

// New creates a new Reporter
func New(writer io.Writer, format OutputFormat) *Reporter {
	return &Reporter{
		writer: writer,
		format: format,
	}
}

// Duplicates reports a set of duplicate groups.
func (r *Reporter) Duplicates(groups []dupes.Group, stats dupes.Stats) error {
	switch r.format {
	case FormatTable:
		return r.duplicatesTable(groups, stats)
	case FormatJSON:
		return r.encodeJSON(duplicateReport(groups, stats))
	case FormatYAML:
		return r.encodeYAML(duplicateReport(groups, stats))
	case FormatSummary:
		return r.duplicatesSummary(groups, stats)
	default:
		return fmt.Errorf("unsupported format: %s", r.format)
	}
}

func duplicateReport(groups []dupes.Group, stats dupes.Stats) any {
	return struct {
		Timestamp            string        `json:"timestamp" yaml:"timestamp"`
		Groups               []dupes.Group `json:"groups" yaml:"groups"`
		FilesIndexed         int           `json:"files_indexed" yaml:"files_indexed"`
		FilesHashed          int           `json:"files_hashed" yaml:"files_hashed"`
		FilesUnreadable      int           `json:"files_unreadable" yaml:"files_unreadable"`
		WastedBytes          int64         `json:"wasted_bytes" yaml:"wasted_bytes"`
		WastedBytesFormatted string        `json:"wasted_bytes_formatted" yaml:"wasted_bytes_formatted"`
	}{
		Timestamp:            time.Now().Format(time.RFC3339),
		Groups:               groups,
		FilesIndexed:         stats.Indexed,
		FilesHashed:          stats.Hashed,
		FilesUnreadable:      stats.Unreadable,
		WastedBytes:          dupes.TotalWasted(groups),
		WastedBytesFormatted: utils.FormatBytes(dupes.TotalWasted(groups)),
	}
}

func (r *Reporter) duplicatesSummary(groups []dupes.Group, stats dupes.Stats) error {
	fmt.Fprintln(r.writer, headerStyle.Render("=== Duplicate Summary ==="))
	fmt.Fprintf(r.writer, "Files Indexed: %d\n", stats.Indexed)
	fmt.Fprintf(r.writer, "Files Hashed: %d\n", stats.Hashed)
	fmt.Fprintf(r.writer, "Duplicate Groups: %d\n", len(groups))
	fmt.Fprintf(r.writer, "Wasted Space: %s\n", utils.FormatBytes(dupes.TotalWasted(groups)))
	if stats.Unreadable > 0 {
		fmt.Fprintln(r.writer, warnStyle.Render(fmt.Sprintf("Unreadable Files: %d", stats.Unreadable)))
	}
	return nil
}

func (r *Reporter) duplicatesTable(groups []dupes.Group, stats dupes.Stats) error {
	for i, group := range groups {
		fmt.Fprintln(r.writer, headerStyle.Render(fmt.Sprintf(
			"Group %d: %d files x %s (%s wasted)",
			i+1, len(group.Files), utils.FormatBytes(group.Size), utils.FormatBytes(group.WastedSpace))))
		fmt.Fprintln(r.writer, dimStyle.Render("  hash "+group.Hash))

		for j, file := range group.Files {
			marker := "  "
			if j == 0 {
				marker = "* " // keeper
			}
			fmt.Fprintf(r.writer, "  %s%s  %s\n",
				marker, file.ModTime.Format("2006-01-02 15:04:05"), file.Path)
		}
		fmt.Fprintln(r.writer)
	}

	fmt.Fprintf(r.writer, "Total: %d groups, %s wasted\n",
		len(groups), utils.FormatBytes(dupes.TotalWasted(groups)))
	if stats.Unreadable > 0 {
		fmt.Fprintln(r.writer, warnStyle.Render(fmt.Sprintf("Skipped %d unreadable files", stats.Unreadable)))
	}
	return nil
}

// CleanupResult reports the outcome of a cleanup batch.
func (r *Reporter) CleanupResult(result *cleaner.Result) error {
	switch r.format {
	case FormatJSON:
		return r.encodeJSON(result)
	case FormatYAML:
		return r.encodeYAML(result)
	default:
		return r.cleanupResultText(result)
	}
}

func (r *Reporter) cleanupResultText(result *cleaner.Result) error {
	title := "=== Cleanup Result ==="
	if result.DryRun {
		title = "=== Cleanup Result (dry run) ==="
	}
	fmt.Fprintln(r.writer, headerStyle.Render(title))
	verb := "Removed"
	if result.DryRun {
		verb = "Would remove"
	}
	fmt.Fprintf(r.writer, "%s: %d items, %s\n", verb, result.Deleted, utils.FormatBytes(result.FreedBytes))
	if result.Skipped > 0 {
		fmt.Fprintf(r.writer, "Skipped: %d items\n", result.Skipped)
	}
	if len(result.FellBack) > 0 {
		fmt.Fprintln(r.writer, warnStyle.Render(fmt.Sprintf(
			"Deleted directly (quarantine unavailable): %d items", len(result.FellBack))))
		for _, path := range result.FellBack {
			fmt.Fprintf(r.writer, "  %s\n", path)
		}
	}
	if result.Failed > 0 {
		fmt.Fprintln(r.writer, errStyle.Render(fmt.Sprintf("Failed: %d items", result.Failed)))
		for reason, errs := range cleaner.GroupErrors(result.Errors) {
			fmt.Fprintf(r.writer, "  %s:\n", reason)
			for _, e := range errs {
				suffix := ""
				if e.Retryable {
					suffix = " (may succeed on retry)"
				}
				fmt.Fprintf(r.writer, "    %s: %s%s\n", e.Path, e.Err, suffix)
			}
		}
	}
	return nil
}

// Candidates reports a cleanup candidate list before execution.
func (r *Reporter) Candidates(items []cleaner.Item) error {
	switch r.format {
	case FormatJSON:
		return r.encodeJSON(items)
	case FormatYAML:
		return r.encodeYAML(items)
	case FormatSummary:
		return r.candidatesSummary(items)
	default:
		return r.candidatesTable(items)
	}
}

func (r *Reporter) candidatesSummary(items []cleaner.Item) error {
	summary := cleaner.Summarize(items)
	fmt.Fprintln(r.writer, headerStyle.Render("=== Scan Summary ==="))
	fmt.Fprintf(r.writer, "Total Files: %d\n", summary.TotalItems)
	fmt.Fprintf(r.writer, "Total Size: %s\n", utils.FormatBytes(summary.TotalSize))
	fmt.Fprintln(r.writer, "\nBreakdown by Category:")
	for category, cs := range summary.ByCategory {
		fmt.Fprintf(r.writer, "  %s: %d files, %s\n", category, cs.Count, utils.FormatBytes(cs.Size))
	}
	return nil
}

func (r *Reporter) candidatesTable(items []cleaner.Item) error {
	fmt.Fprintf(r.writer, "%-60s | %-12s | %-10s | %s\n", "Path", "Size", "Category", "Description")
	fmt.Fprintln(r.writer, strings.Repeat("-", 120))

	var total int64
	for _, item := range items {
		path := item.Path
		if len(path) > 60 {
			path = "..." + path[len(path)-57:]
		}
		fmt.Fprintf(r.writer, "%-60s | %-12s | %-10s | %s\n",
			path, utils.FormatBytes(item.Size), item.Category, item.Description)
		total += item.Size
	}

	fmt.Fprintln(r.writer, strings.Repeat("-", 120))
	fmt.Fprintf(r.writer, "Total: %d files, %s\n", len(items), utils.FormatBytes(total))
	return nil
}

// QuarantineItems reports quarantine store contents.
func (r *Reporter) QuarantineItems(items []quarantine.Item) error {
	switch r.format {
	case FormatJSON:
		return r.encodeJSON(items)
	case FormatYAML:
		return r.encodeYAML(items)
	default:
		return r.quarantineTable(items)
	}
}

func (r *Reporter) quarantineTable(items []quarantine.Item) error {
	if len(items) == 0 {
		fmt.Fprintln(r.writer, "Quarantine is empty.")
		return nil
	}

	fmt.Fprintf(r.writer, "%-36s | %-12s | %-19s | %-19s | %s\n",
		"ID", "Size", "Quarantined", "Expires", "Original Path")
	fmt.Fprintln(r.writer, strings.Repeat("-", 140))

	var total int64
	for _, item := range items {
		fmt.Fprintf(r.writer, "%-36s | %-12s | %-19s | %-19s | %s\n",
			item.ID,
			utils.FormatBytes(item.Size),
			item.QuarantinedAt.Format("2006-01-02 15:04:05"),
			item.ExpiresAt.Format("2006-01-02 15:04:05"),
			item.OriginalPath)
		total += item.Size
	}

	fmt.Fprintln(r.writer, strings.Repeat("-", 140))
	fmt.Fprintf(r.writer, "Total: %d items, %s\n", len(items), utils.FormatBytes(total))
	return nil
}

// UsageReport reports a disk usage analysis.
func (r *Reporter) UsageReport(report *analyzer.Report) error {
	switch r.format {
	case FormatJSON:
		return r.encodeJSON(report)
	case FormatYAML:
		return r.encodeYAML(report)
	default:
		return r.usageText(report)
	}
}

func (r *Reporter) usageText(report *analyzer.Report) error {
	fmt.Fprintln(r.writer, headerStyle.Render("=== Disk Usage ==="))
	fmt.Fprintf(r.writer, "Volume: %s\n", report.Usage.Path)
	fmt.Fprintf(r.writer, "Used: %s of %s (%.1f%%)\n",
		utils.FormatBytes(int64(report.Usage.Used)),
		utils.FormatBytes(int64(report.Usage.Total)),
		report.Usage.UsedPercent)
	fmt.Fprintf(r.writer, "Scanned: %d files, %s\n",
		report.TotalFiles, utils.FormatBytes(report.TotalSize))

	if len(report.Largest) > 0 {
		fmt.Fprintln(r.writer, headerStyle.Render("\nLargest Files:"))
		for _, f := range report.Largest {
			fmt.Fprintf(r.writer, "  %-12s %s\n", utils.FormatBytes(f.Size), f.Path)
		}
	}

	if len(report.Extensions) > 0 {
		fmt.Fprintln(r.writer, headerStyle.Render("\nBy Extension:"))
		limit := len(report.Extensions)
		if limit > 15 {
			limit = 15
		}
		for _, ext := range report.Extensions[:limit] {
			fmt.Fprintf(r.writer, "  %-10s %6d files  %s\n", ext.Extension, ext.Count, utils.FormatBytes(ext.Size))
		}
	}
	return nil
}

func (r *Reporter) encodeJSON(v any) error {
	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (r *Reporter) encodeYAML(v any) error {
	encoder := yaml.NewEncoder(r.writer)
	defer encoder.Close()
	return encoder.Encode(v)
}

// SaveToFile writes a duplicates report to a file.
func SaveToFile(groups []dupes.Group, stats dupes.Stats, path string, format OutputFormat) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	reporter := New(file, format)
	return reporter.Duplicates(groups, stats)
}
