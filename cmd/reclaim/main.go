package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reclaimd/reclaim/internal/analyzer"
	"github.com/reclaimd/reclaim/internal/cleaner"
	"github.com/reclaimd/reclaim/internal/config"
	"github.com/reclaimd/reclaim/internal/dupes"
	"github.com/reclaimd/reclaim/internal/history"
	"github.com/reclaimd/reclaim/internal/platform"
	"github.com/reclaimd/reclaim/internal/progress"
	"github.com/reclaimd/reclaim/internal/quarantine"
	"github.com/reclaimd/reclaim/internal/reporter"
	"github.com/reclaimd/reclaim/internal/ui"
	"github.com/reclaimd/reclaim/pkg/utils"
)

var (
	Version   = "0.2.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

var (
	configPath  string
	verbose     bool
	dryRun      bool
	force       bool
	noProgress  bool
	outputFmt   string
	outputFile  string
	minSizeStr  string
	strictMode  bool
	cleanTemp   bool
	cleanCache  bool
	cleanLogs   bool
	cleanDupes  bool
	customPaths []string
)

// errPartialFailure marks a run where some items failed but the batch
// completed. It maps to exit code 2.
var errPartialFailure = errors.New("some items failed")

func main() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	if errors.Is(err, errPartialFailure) {
		os.Exit(2)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

var rootCmd = &cobra.Command{
	Use:   "reclaim",
	Short: "Duplicate finder and safe disk cleaner",
	Long: `Reclaim finds duplicate files and cleans up disk space safely. Deleted
files are moved to a quarantine area first, so any cleanup can be undone
until the retention window expires.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for cleanable files",
	Long:  `Scans temp, cache and log locations and reports what can be cleaned without making any changes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		info, err := platform.GetInfo()
		if err != nil {
			return fmt.Errorf("failed to get platform info: %w", err)
		}
		info.ProtectedPaths = append(info.ProtectedPaths, cfg.ProtectedPaths...)

		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer log.Sync()

		coord := cleaner.New(info, nil, log, nil)

		ctx, cancel := signalContext()
		defer cancel()

		opts := scanOptions(cfg)
		opts.CustomPaths = append(opts.CustomPaths, customPaths...)

		items, err := coord.FindCleanable(ctx, opts)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}

		rptr := reporter.New(os.Stdout, parseFormat(outputFmt))
		return rptr.Candidates(items)
	},
}

var duplicatesCmd = &cobra.Command{
	Use:   "duplicates [paths...]",
	Short: "Find duplicate files",
	Long: `Finds files with identical content under the given paths (or the
configured scan paths) and reports them grouped by content, largest
waste first. The oldest copy in each group is marked as the keeper.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		roots := args
		if len(roots) == 0 {
			roots = cfg.ScanPaths
		}
		if len(roots) == 0 {
			return fmt.Errorf("no paths to scan: pass paths or set scan_paths in the config")
		}

		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer log.Sync()

		groups, stats, err := findDuplicates(cfg, log, roots)
		if err != nil {
			return err
		}

		format := parseFormat(outputFmt)
		if outputFile != "" {
			if err := reporter.SaveToFile(groups, stats, outputFile, format); err != nil {
				return fmt.Errorf("failed to save report: %w", err)
			}
			fmt.Printf("Report saved to: %s\n", outputFile)
			return nil
		}

		rptr := reporter.New(os.Stdout, format)
		return rptr.Duplicates(groups, stats)
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean [paths...]",
	Short: "Remove duplicates and other cleanable files",
	Long: `Removes redundant copies of duplicate files, keeping the oldest copy of
each group. With --temp, --cache, --logs or --paths it instead removes
the selected cleanup candidates (add --duplicates to combine both).
Removed files are quarantined and can be restored until the retention
window expires. Use --dry-run to preview.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if cmd.Flags().Changed("dry-run") {
			cfg.DryRun = dryRun
		}
		if cmd.Flags().Changed("strict") {
			cfg.Quarantine.Strict = strictMode
		}

		info, err := platform.GetInfo()
		if err != nil {
			return fmt.Errorf("failed to get platform info: %w", err)
		}
		info.ProtectedPaths = append(info.ProtectedPaths, cfg.ProtectedPaths...)

		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer log.Sync()

		ctx, cancel := signalContext()
		defer cancel()

		catSelected := cleanTemp || cleanCache || cleanLogs || len(customPaths) > 0

		var items []cleaner.Item

		if catSelected {
			opts := scanOptions(cfg)
			opts.Temp = cleanTemp
			opts.Cache = cleanCache
			opts.Logs = cleanLogs
			opts.CustomPaths = append(opts.CustomPaths, customPaths...)

			found, err := cleaner.New(info, nil, log, nil).FindCleanable(ctx, opts)
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}
			items = append(items, found...)
		}

		if cleanDupes || !catSelected {
			roots := args
			if len(roots) == 0 {
				roots = cfg.ScanPaths
			}
			if len(roots) == 0 {
				return fmt.Errorf("no paths to scan: pass paths or set scan_paths in the config")
			}

			groups, _, err := findDuplicates(cfg, log, roots)
			if err != nil {
				return err
			}
			items = append(items, cleaner.ItemsFromDuplicates(groups)...)
		}

		if len(items) == 0 {
			fmt.Println("Nothing to clean.")
			return nil
		}

		for i := range items {
			if info.IsProtected(items[i].Path) {
				items[i].SafeToDelete = false
			}
		}

		rptr := reporter.New(os.Stdout, reporter.FormatSummary)
		if err := rptr.Candidates(items); err != nil {
			return err
		}

		if !force && !cfg.DryRun {
			fmt.Print("\nProceed with cleanup? (y/N): ")
			var response string
			fmt.Scanln(&response)
			if response != "y" && response != "Y" {
				fmt.Println("Cleanup cancelled")
				return nil
			}
		}

		store, err := openStore(cfg, info, log)
		if err != nil {
			return err
		}

		rep := progress.NewReporter()
		coord := cleaner.New(info, store, log, rep)

		opts := cleaner.Options{
			UseQuarantine:    true,
			StrictQuarantine: cfg.Quarantine.Strict,
			DryRun:           cfg.DryRun,
		}

		result := runCleanup(ctx, coord, items, opts, rep)

		out := reporter.New(os.Stdout, parseFormat(outputFmt))
		if err := out.CleanupResult(result); err != nil {
			return err
		}

		if result.Failed > 0 {
			return errPartialFailure
		}
		return nil
	},
}

var usageCmd = &cobra.Command{
	Use:   "usage [path]",
	Short: "Analyze disk usage",
	Long:  `Reports filesystem usage, the largest files and per-extension totals for a directory tree.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) > 0 {
			root = args[0]
		} else if home, err := os.UserHomeDir(); err == nil {
			root = home
		}

		ctx, cancel := signalContext()
		defer cancel()

		report, err := analyzer.Analyze(ctx, root, 20)
		if err != nil {
			return fmt.Errorf("usage analysis failed: %w", err)
		}

		rptr := reporter.New(os.Stdout, parseFormat(outputFmt))
		return rptr.UsageReport(report)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past scan runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		store, err := history.Open(expandHome(cfg.HistoryPath))
		if err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
		defer store.Close()

		records, err := store.ListScans(20)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No scans recorded yet.")
			return nil
		}

		fmt.Printf("%-36s | %-19s | %-8s | %-8s | %-12s | %s\n",
			"ID", "Started", "Files", "Groups", "Wasted", "Roots")
		fmt.Println(strings.Repeat("-", 120))
		for _, rec := range records {
			fmt.Printf("%-36s | %-19s | %-8d | %-8d | %-12d | %s\n",
				rec.ID,
				rec.StartedAt.Format("2006-01-02 15:04:05"),
				rec.FilesIndexed,
				rec.GroupsFound,
				rec.WastedBytes,
				rec.Roots)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&outputFmt, "output", "summary", "output format (summary, table, json, yaml)")

	duplicatesCmd.Flags().StringVar(&outputFile, "file", "", "save report to file")
	duplicatesCmd.Flags().StringVar(&minSizeStr, "min-size", "", "ignore files smaller than this (e.g. 1KB)")
	duplicatesCmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress display")

	scanCmd.Flags().StringSliceVar(&customPaths, "paths", nil, "extra files or directories to include as candidates")

	cleanCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be deleted without actually deleting")
	cleanCmd.Flags().BoolVar(&force, "force", false, "skip confirmation prompts")
	cleanCmd.Flags().BoolVar(&strictMode, "strict", false, "never fall back to direct deletion when quarantine fails")
	cleanCmd.Flags().StringVar(&minSizeStr, "min-size", "", "ignore files smaller than this (e.g. 1KB)")
	cleanCmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress display")
	cleanCmd.Flags().BoolVar(&cleanTemp, "temp", false, "clean aged temporary files")
	cleanCmd.Flags().BoolVar(&cleanCache, "cache", false, "clean aged cache files")
	cleanCmd.Flags().BoolVar(&cleanLogs, "logs", false, "clean old and rotated log files")
	cleanCmd.Flags().BoolVar(&cleanDupes, "duplicates", false, "clean duplicate files (the default when no category is selected)")
	cleanCmd.Flags().StringSliceVar(&customPaths, "paths", nil, "extra files or directories to clean")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(duplicatesCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(quarantineCmd)
	rootCmd.AddCommand(usageCmd)
	rootCmd.AddCommand(historyCmd)
}

// findDuplicates runs the three-phase detection over roots, recording the
// run in the history database when one is configured.
func findDuplicates(cfg *config.Config, log *zap.Logger, roots []string) ([]dupes.Group, dupes.Stats, error) {
	minSize, err := cfg.MinFileSizeBytes()
	if err != nil {
		return nil, dupes.Stats{}, err
	}
	if minSizeStr != "" {
		if minSize, err = utils.ParseSize(minSizeStr); err != nil {
			return nil, dupes.Stats{}, fmt.Errorf("invalid --min-size: %w", err)
		}
	}

	var hist *history.Store
	if cfg.HistoryPath != "" {
		hist, err = history.Open(expandHome(cfg.HistoryPath))
		if err != nil {
			log.Warn("history unavailable, continuing without cache", zap.Error(err))
			hist = nil
		} else {
			defer hist.Close()
		}
	}

	opts := dupes.Options{
		MinSize:         minSize,
		Extensions:      cfg.Duplicates.Extensions,
		ExcludePatterns: cfg.ExcludePatterns,
	}
	if hist != nil {
		opts.Cache = hist
	}

	rep := progress.NewReporter()
	opts.Reporter = rep

	detector := dupes.New(opts)

	ctx, cancel := signalContext()
	defer cancel()

	var scanID string
	if hist != nil {
		if scanID, err = hist.BeginScan(strings.Join(roots, ",")); err != nil {
			log.Warn("failed to record scan start", zap.Error(err))
			scanID = ""
		}
	}

	type findResult struct {
		groups []dupes.Group
		stats  dupes.Stats
		err    error
	}
	done := make(chan findResult, 1)
	go func() {
		groups, stats, err := detector.Find(ctx, roots)
		done <- findResult{groups, stats, err}
	}()

	if showProgress() {
		if err := ui.Run("Scanning for duplicates", rep); err != nil {
			log.Debug("progress display failed", zap.Error(err))
		}
	}

	res := <-done
	if res.err != nil {
		return nil, res.stats, fmt.Errorf("duplicate scan failed: %w", res.err)
	}

	if hist != nil && scanID != "" {
		if err := hist.FinishScan(scanID, res.groups, res.stats); err != nil {
			log.Warn("failed to record scan result", zap.Error(err))
		}
	}

	return res.groups, res.stats, nil
}

// runCleanup executes the batch, driving the progress display when enabled.
func runCleanup(ctx context.Context, coord *cleaner.Coordinator, items []cleaner.Item, opts cleaner.Options, rep *progress.Reporter) *cleaner.Result {
	done := make(chan *cleaner.Result, 1)
	go func() {
		result, _ := coord.Cleanup(ctx, items, opts)
		done <- result
	}()

	if showProgress() && !opts.DryRun {
		ui.Run("Cleaning up", rep)
	}

	return <-done
}

func scanOptions(cfg *config.Config) cleaner.ScanOptions {
	day := 24 * time.Hour
	return cleaner.ScanOptions{
		Temp:            cfg.Categories.Temp,
		Cache:           cfg.Categories.Cache,
		Logs:            cfg.Categories.Logs,
		CustomPaths:     append([]string(nil), cfg.CustomPaths...),
		TempAge:         time.Duration(cfg.AgeThresholds.Temp) * day,
		CacheAge:        time.Duration(cfg.AgeThresholds.Cache) * day,
		LogAge:          time.Duration(cfg.AgeThresholds.Logs) * day,
		ExcludePatterns: cfg.ExcludePatterns,
	}
}

func openStore(cfg *config.Config, info *platform.Info, log *zap.Logger) (*quarantine.Store, error) {
	root := cfg.Quarantine.Root
	if root == "" {
		root = info.QuarantineRoot
	}
	root = expandHome(root)

	opts := []quarantine.Option{quarantine.WithLogger(log)}
	if cfg.Quarantine.RetentionDays > 0 {
		opts = append(opts, quarantine.WithRetention(cfg.Retention()))
	}

	store, err := quarantine.Open(root, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open quarantine store: %w", err)
	}
	return store, nil
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}

	cfgPath, err := config.GetConfigPath()
	if err != nil {
		return nil, err
	}

	return config.Load(cfgPath)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if verbose || cfg.Verbose {
		return zap.NewDevelopment()
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return zcfg.Build()
}

func parseFormat(s string) reporter.OutputFormat {
	switch s {
	case "json":
		return reporter.FormatJSON
	case "yaml":
		return reporter.FormatYAML
	case "table":
		return reporter.FormatTable
	default:
		return reporter.FormatSummary
	}
}

func showProgress() bool {
	return !noProgress && isTerminal(os.Stdout)
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return home + path[1:]
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
