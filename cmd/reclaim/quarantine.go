package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reclaimd/reclaim/internal/platform"
	"github.com/reclaimd/reclaim/internal/quarantine"
	"github.com/reclaimd/reclaim/internal/reporter"
	"github.com/reclaimd/reclaim/pkg/utils"
)

var (
	restoreTarget string
	searchPath    string
	searchReason  string
	searchMinSize string
	searchMaxSize string
	expireDryRun  bool
	purgeYes      bool
)

var quarantineCmd = &cobra.Command{
	Use:   "quarantine",
	Short: "Manage quarantined files",
	Long: `Lists, restores, searches and purges quarantined files. Quarantined
files keep their original content and can be restored byte-for-byte
until they are purged or expire.`,
}

var quarantineListCmd = &cobra.Command{
	Use:   "list",
	Short: "List quarantined files",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStoreFromFlags()
		if err != nil {
			return err
		}

		items := store.List()
		rptr := reporter.New(os.Stdout, parseFormat(outputFmt))
		if err := rptr.QuarantineItems(items); err != nil {
			return err
		}

		stats := store.GetStats()
		if stats.Expired > 0 {
			fmt.Printf("\n%d items past retention; run 'reclaim quarantine expire' to purge them.\n", stats.Expired)
		}
		return nil
	},
}

var quarantineRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Restore a quarantined file to its original location",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStoreFromFlags()
		if err != nil {
			return err
		}

		id := args[0]
		target := restoreTarget
		if target == "" {
			if item, ok := store.Get(id); ok {
				target = item.OriginalPath
			}
		}

		if err := store.Restore(id, restoreTarget); err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}

		fmt.Printf("Restored %s to %s\n", id, target)
		return nil
	},
}

var quarantinePurgeCmd = &cobra.Command{
	Use:   "purge <id>",
	Short: "Permanently delete a quarantined file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStoreFromFlags()
		if err != nil {
			return err
		}

		id := args[0]
		item, ok := store.Get(id)
		if !ok {
			return fmt.Errorf("no quarantined item with id %s", id)
		}

		if !purgeYes {
			fmt.Printf("Permanently delete %s (%s, originally %s)? (y/N): ",
				id, utils.FormatBytes(item.Size), item.OriginalPath)
			var response string
			fmt.Scanln(&response)
			if response != "y" && response != "Y" {
				fmt.Println("Purge cancelled")
				return nil
			}
		}

		if err := store.Purge(id); err != nil {
			return fmt.Errorf("purge failed: %w", err)
		}
		fmt.Printf("Purged %s\n", id)
		return nil
	},
}

var quarantineExpireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Purge all quarantined files past their retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStoreFromFlags()
		if err != nil {
			return err
		}

		if expireDryRun {
			stats := store.GetStats()
			fmt.Printf("%d items past retention would be purged.\n", stats.Expired)
			return nil
		}

		purged, err := store.CleanupExpired()
		if err != nil {
			return fmt.Errorf("expire failed after purging %d items: %w", purged, err)
		}
		fmt.Printf("Purged %d expired items.\n", purged)
		return nil
	},
}

var quarantineSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search quarantined files",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStoreFromFlags()
		if err != nil {
			return err
		}

		filter := quarantine.Filter{
			PathContains:   searchPath,
			ReasonContains: searchReason,
		}
		if searchMinSize != "" {
			if filter.MinSize, err = utils.ParseSize(searchMinSize); err != nil {
				return fmt.Errorf("invalid --min-size: %w", err)
			}
		}
		if searchMaxSize != "" {
			if filter.MaxSize, err = utils.ParseSize(searchMaxSize); err != nil {
				return fmt.Errorf("invalid --max-size: %w", err)
			}
		}

		items := store.Search(filter)
		rptr := reporter.New(os.Stdout, parseFormat(outputFmt))
		return rptr.QuarantineItems(items)
	},
}

var quarantineVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check quarantine records against files on disk",
	Long: `Cross-checks the metadata records against the files actually present
in the quarantine directory and reports every mismatch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStoreFromFlags()
		if err != nil {
			return err
		}

		problems, err := store.Verify()
		if err != nil {
			return fmt.Errorf("verify failed: %w", err)
		}

		if len(problems) == 0 {
			fmt.Println("Quarantine is consistent.")
			return nil
		}

		for _, p := range problems {
			switch p.Kind {
			case "missing-file":
				fmt.Printf("missing file: record %s expects %s\n", p.ID, p.Path)
			case "unknown-file":
				fmt.Printf("unknown file: %s has no record\n", p.Path)
			default:
				fmt.Printf("%s: %s %s\n", p.Kind, p.ID, p.Path)
			}
		}
		return errPartialFailure
	},
}

func init() {
	quarantineRestoreCmd.Flags().StringVar(&restoreTarget, "target", "", "restore to this path instead of the original location")

	quarantinePurgeCmd.Flags().BoolVarP(&purgeYes, "yes", "y", false, "skip confirmation")

	quarantineExpireCmd.Flags().BoolVar(&expireDryRun, "dry-run", false, "report what would be purged without purging")

	quarantineSearchCmd.Flags().StringVar(&searchPath, "path", "", "match original path substring")
	quarantineSearchCmd.Flags().StringVar(&searchReason, "reason", "", "match reason substring")
	quarantineSearchCmd.Flags().StringVar(&searchMinSize, "min-size", "", "minimum size (e.g. 1MB)")
	quarantineSearchCmd.Flags().StringVar(&searchMaxSize, "max-size", "", "maximum size (e.g. 1GB)")

	quarantineCmd.AddCommand(quarantineListCmd)
	quarantineCmd.AddCommand(quarantineRestoreCmd)
	quarantineCmd.AddCommand(quarantinePurgeCmd)
	quarantineCmd.AddCommand(quarantineExpireCmd)
	quarantineCmd.AddCommand(quarantineSearchCmd)
	quarantineCmd.AddCommand(quarantineVerifyCmd)
}

func openStoreFromFlags() (*quarantine.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	info, err := platform.GetInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to get platform info: %w", err)
	}

	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	return openStore(cfg, info, log)
}
