package cleaner

import (
	"errors"

	"github.com/reclaimd/reclaim/internal/dupes"
)

// Category classifies a cleanup candidate by where it came from.
type Category string

const (
	CategoryTemp      Category = "temp"
	CategoryCache     Category = "cache"
	CategoryLog       Category = "log"
	CategoryDuplicate Category = "duplicate"
	CategoryCustom    Category = "custom"
)

// Item is one cleanup candidate. Items with SafeToDelete false are never
// passed to the deletion routine; they are counted as skipped.
type Item struct {
	Path         string   `json:"path" yaml:"path"`
	Size         int64    `json:"size" yaml:"size"`
	Category     Category `json:"category" yaml:"category"`
	Description  string   `json:"description" yaml:"description"`
	SafeToDelete bool     `json:"safe_to_delete" yaml:"safe_to_delete"`
}

// ItemError records a per-item failure, keyed by path. Reason carries the
// categorized failure cause so results can be grouped and retryable
// failures pointed out.
type ItemError struct {
	Path      string `json:"path" yaml:"path"`
	Err       string `json:"error" yaml:"error"`
	Reason    string `json:"reason,omitempty" yaml:"reason,omitempty"`
	Retryable bool   `json:"retryable,omitempty" yaml:"retryable,omitempty"`
}

func newItemError(path string, err error) ItemError {
	ie := ItemError{Path: path, Err: err.Error()}
	var delErr *DeletionError
	if errors.As(err, &delErr) {
		ie.Reason = delErr.Reason.String()
		ie.Retryable = delErr.Retryable
	}
	return ie
}

// Result reports what a cleanup batch did. Failures accumulate per item;
// a batch always reports both what succeeded and what failed.
type Result struct {
	Deleted    int         `json:"deleted" yaml:"deleted"`
	FreedBytes int64       `json:"freed_bytes" yaml:"freed_bytes"`
	Failed     int         `json:"failed" yaml:"failed"`
	Skipped    int         `json:"skipped" yaml:"skipped"`
	Errors     []ItemError `json:"errors,omitempty" yaml:"errors,omitempty"`
	FellBack   []string    `json:"fell_back,omitempty" yaml:"fell_back,omitempty"`
	DryRun     bool        `json:"dry_run" yaml:"dry_run"`
}

// CategorySummary aggregates candidate counts and sizes per category.
type CategorySummary struct {
	Count int   `json:"count" yaml:"count"`
	Size  int64 `json:"size" yaml:"size"`
}

// Summary describes a candidate list before execution.
type Summary struct {
	TotalItems int                          `json:"total_items" yaml:"total_items"`
	TotalSize  int64                        `json:"total_size" yaml:"total_size"`
	ByCategory map[Category]CategorySummary `json:"by_category" yaml:"by_category"`
}

// Summarize builds a size/category summary of a candidate list.
func Summarize(items []Item) Summary {
	s := Summary{ByCategory: make(map[Category]CategorySummary)}
	for _, item := range items {
		s.TotalItems++
		s.TotalSize += item.Size
		cs := s.ByCategory[item.Category]
		cs.Count++
		cs.Size += item.Size
		s.ByCategory[item.Category] = cs
	}
	return s
}

// ItemsFromDuplicates converts duplicate groups into cleanup candidates.
// The keeper (oldest member) of each group is retained; every other member
// becomes a deletion candidate.
func ItemsFromDuplicates(groups []dupes.Group) []Item {
	var items []Item
	for _, group := range groups {
		keeper := group.Keeper()
		for _, file := range group.Files[1:] {
			items = append(items, Item{
				Path:         file.Path,
				Size:         file.Size,
				Category:     CategoryDuplicate,
				Description:  "Duplicate of " + keeper.Path,
				SafeToDelete: true,
			})
		}
	}
	return items
}
