package cleaner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/reclaimd/reclaim/internal/dupes"
	"github.com/reclaimd/reclaim/internal/platform"
	"github.com/reclaimd/reclaim/internal/quarantine"
	"github.com/reclaimd/reclaim/internal/testutil"
)

func testInfo(f *testutil.TestFixture) *platform.Info {
	return &platform.Info{
		OS:             platform.Detect(),
		TempDirs:       []string{f.TempDir},
		CacheDirs:      []string{f.CacheDir},
		LogDirs:        []string{f.LogsDir},
		QuarantineRoot: f.QuarantineDir,
	}
}

func testStore(t *testing.T, f *testutil.TestFixture) *quarantine.Store {
	t.Helper()
	store, err := quarantine.Open(f.QuarantineDir)
	if err != nil {
		t.Fatalf("failed to open quarantine store: %v", err)
	}
	return store
}

func itemFor(path string, size int64) Item {
	return Item{
		Path:         path,
		Size:         size,
		Category:     CategoryDuplicate,
		SafeToDelete: true,
	}
}

func TestCleanupQuarantinesItems(t *testing.T) {
	f := testutil.NewFixture(t)
	path := f.CreateFile("data/dupe.bin", []byte("duplicate content"))

	store := testStore(t, f)
	coord := New(testInfo(f), store, zap.NewNop(), nil)

	result, err := coord.Cleanup(context.Background(), []Item{itemFor(path, 17)}, Options{UseQuarantine: true})
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}

	if result.Deleted != 1 {
		t.Errorf("expected 1 deleted, got %d", result.Deleted)
	}
	if result.FreedBytes != 17 {
		t.Errorf("expected 17 freed bytes, got %d", result.FreedBytes)
	}
	if f.Exists(path) {
		t.Error("file still present after cleanup")
	}
	if len(store.List()) != 1 {
		t.Error("expected one quarantined item")
	}
	if len(result.FellBack) != 0 {
		t.Errorf("unexpected fallback: %v", result.FellBack)
	}
}

func TestCleanupMixedBatchAccumulatesFailures(t *testing.T) {
	f := testutil.NewFixture(t)
	good := f.CreateFile("data/good.bin", []byte("ok"))
	missing := filepath.Join(f.ScanDir, "already-gone.bin")

	store := testStore(t, f)
	coord := New(testInfo(f), store, zap.NewNop(), nil)

	items := []Item{
		itemFor(missing, 10),
		itemFor(good, 2),
	}

	result, err := coord.Cleanup(context.Background(), items, Options{UseQuarantine: true})
	if err != nil {
		t.Fatalf("batch must not abort on per-item failure: %v", err)
	}

	if result.Deleted != 1 {
		t.Errorf("expected 1 deleted, got %d", result.Deleted)
	}
	if result.Failed != 1 {
		t.Errorf("expected 1 failed, got %d", result.Failed)
	}
	if len(result.Errors) != 1 || result.Errors[0].Path != missing {
		t.Errorf("expected error recorded for %s, got %+v", missing, result.Errors)
	}
	if len(result.Errors) == 1 && result.Errors[0].Reason != ErrorFileNotFound.String() {
		t.Errorf("expected %q reason, got %q", ErrorFileNotFound, result.Errors[0].Reason)
	}
	if len(result.FellBack) != 0 {
		t.Errorf("a missing item must never count as a fallback deletion, got %+v", result.FellBack)
	}
	if f.Exists(good) {
		t.Error("good item was not processed after the failing one")
	}
}

func TestCleanupDirectDeleteMissingItemFails(t *testing.T) {
	f := testutil.NewFixture(t)
	missing := filepath.Join(f.ScanDir, "never-existed.bin")

	coord := New(testInfo(f), nil, zap.NewNop(), nil)

	result, err := coord.Cleanup(context.Background(), []Item{itemFor(missing, 10)}, Options{})
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if result.Deleted != 0 {
		t.Errorf("a missing item must not count as deleted, got %d", result.Deleted)
	}
	if result.Failed != 1 {
		t.Errorf("expected 1 failed, got %d", result.Failed)
	}
	if len(result.Errors) != 1 || result.Errors[0].Path != missing {
		t.Errorf("expected error recorded for %s, got %+v", missing, result.Errors)
	}
}

func TestCleanupSkipsUnsafeItems(t *testing.T) {
	f := testutil.NewFixture(t)
	path := f.CreateFile("data/protected.bin", []byte("do not touch"))

	coord := New(testInfo(f), nil, zap.NewNop(), nil)

	item := itemFor(path, 12)
	item.SafeToDelete = false

	result, err := coord.Cleanup(context.Background(), []Item{item}, Options{})
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if result.Skipped != 1 {
		t.Errorf("expected 1 skipped, got %d", result.Skipped)
	}
	if result.Deleted != 0 {
		t.Errorf("expected 0 deleted, got %d", result.Deleted)
	}
	if !f.Exists(path) {
		t.Error("unsafe item was deleted")
	}
}

func TestCleanupDryRunTouchesNothing(t *testing.T) {
	f := testutil.NewFixture(t)
	path := f.CreateFile("data/dry.bin", []byte("keep"))

	store := testStore(t, f)
	coord := New(testInfo(f), store, zap.NewNop(), nil)

	result, err := coord.Cleanup(context.Background(), []Item{itemFor(path, 4)}, Options{UseQuarantine: true, DryRun: true})
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}

	if !result.DryRun {
		t.Error("result not marked as dry run")
	}
	if result.Deleted != 1 || result.FreedBytes != 4 {
		t.Errorf("dry run must report would-be work, got %+v", result)
	}
	if !f.Exists(path) {
		t.Error("dry run deleted a file")
	}
	if len(store.List()) != 0 {
		t.Error("dry run quarantined a file")
	}
}

func TestCleanupFallbackToDirectDelete(t *testing.T) {
	f := testutil.NewFixture(t)
	target := f.CreateFile("data/real.bin", []byte("payload"))
	link := f.CreateSymlink(target, "data/link.bin")

	store := testStore(t, f)
	coord := New(testInfo(f), store, zap.NewNop(), nil)

	// A symlink cannot be quarantined (not a regular file), so the item
	// falls back to direct deletion and the fallback is visible in the
	// result.
	result, err := coord.Cleanup(context.Background(), []Item{itemFor(link, 0)}, Options{UseQuarantine: true})
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}

	if result.Deleted != 1 {
		t.Errorf("expected 1 deleted, got %d", result.Deleted)
	}
	if len(result.FellBack) != 1 || result.FellBack[0] != link {
		t.Errorf("fallback not recorded, got %+v", result.FellBack)
	}
	if f.Exists(link) {
		t.Error("item not deleted after fallback")
	}
	if !f.Exists(target) {
		t.Error("symlink target must be untouched")
	}
}

func TestCleanupStrictModeFailsInsteadOfFallback(t *testing.T) {
	f := testutil.NewFixture(t)
	target := f.CreateFile("data/real.bin", []byte("payload"))
	link := f.CreateSymlink(target, "data/link.bin")

	store := testStore(t, f)
	coord := New(testInfo(f), store, zap.NewNop(), nil)

	result, err := coord.Cleanup(context.Background(), []Item{itemFor(link, 0)}, Options{UseQuarantine: true, StrictQuarantine: true})
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}

	if result.Failed != 1 {
		t.Errorf("expected 1 failed in strict mode, got %d", result.Failed)
	}
	if len(result.FellBack) != 0 {
		t.Errorf("strict mode must never fall back, got %+v", result.FellBack)
	}
	if !f.Exists(link) {
		t.Error("strict mode deleted the item anyway")
	}
}

func TestCleanupDirectDeleteWithoutQuarantine(t *testing.T) {
	f := testutil.NewFixture(t)
	path := f.CreateFile("data/direct.bin", []byte("x"))

	coord := New(testInfo(f), nil, zap.NewNop(), nil)

	result, err := coord.Cleanup(context.Background(), []Item{itemFor(path, 1)}, Options{})
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if result.Deleted != 1 {
		t.Errorf("expected 1 deleted, got %d", result.Deleted)
	}
	if f.Exists(path) {
		t.Error("file still present")
	}
}

func TestCleanupCancelledReturnsPartialResult(t *testing.T) {
	f := testutil.NewFixture(t)
	a := f.CreateFile("data/a.bin", []byte("a"))
	b := f.CreateFile("data/b.bin", []byte("b"))

	coord := New(testInfo(f), nil, zap.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := coord.Cleanup(ctx, []Item{itemFor(a, 1), itemFor(b, 1)}, Options{})
	if err == nil {
		t.Fatal("expected context error")
	}
	if result == nil {
		t.Fatal("cancelled cleanup must still return its partial result")
	}
	if !f.Exists(a) || !f.Exists(b) {
		t.Error("cancelled-before-start cleanup deleted files")
	}
}

func TestFindCleanableAgedTempFiles(t *testing.T) {
	f := testutil.NewFixture(t)
	old := f.CreateFileWithAge("tmp/old.tmp", []byte("old"), 72*time.Hour)
	f.CreateFile("tmp/fresh.tmp", []byte("fresh"))

	coord := New(testInfo(f), nil, zap.NewNop(), nil)

	items, err := coord.FindCleanable(context.Background(), ScanOptions{
		Temp:    true,
		TempAge: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("FindCleanable failed: %v", err)
	}

	if len(items) != 1 {
		t.Fatalf("expected only the aged file, got %d items", len(items))
	}
	if items[0].Path != old {
		t.Errorf("expected %s, got %s", old, items[0].Path)
	}
	if items[0].Category != CategoryTemp {
		t.Errorf("expected temp category, got %s", items[0].Category)
	}
}

func TestFindCleanableLogFilter(t *testing.T) {
	f := testutil.NewFixture(t)
	log := f.CreateFileWithAge("logs/app.log", []byte("log"), 72*time.Hour)
	rotated := f.CreateFileWithAge("logs/app.log.1", []byte("log"), 72*time.Hour)
	gz := f.CreateFileWithAge("logs/app.log.2.gz", []byte("log"), 72*time.Hour)
	f.CreateFileWithAge("logs/data.csv", []byte("not a log"), 72*time.Hour)

	coord := New(testInfo(f), nil, zap.NewNop(), nil)

	items, err := coord.FindCleanable(context.Background(), ScanOptions{
		Logs:   true,
		LogAge: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("FindCleanable failed: %v", err)
	}

	want := map[string]bool{log: true, rotated: true, gz: true}
	if len(items) != len(want) {
		t.Fatalf("expected %d log files, got %d: %+v", len(want), len(items), items)
	}
	for _, item := range items {
		if !want[item.Path] {
			t.Errorf("unexpected item %s", item.Path)
		}
	}
}

func TestFindCleanableCustomPath(t *testing.T) {
	f := testutil.NewFixture(t)
	single := f.CreateFile("data/single.bin", []byte("one"))
	f.CreateFile("data/tree/a.bin", []byte("a"))
	f.CreateFile("data/tree/b.bin", []byte("b"))

	coord := New(testInfo(f), nil, zap.NewNop(), nil)

	items, err := coord.FindCleanable(context.Background(), ScanOptions{
		CustomPaths: []string{single, filepath.Join(f.ScanDir, "tree")},
	})
	if err != nil {
		t.Fatalf("FindCleanable failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	for _, item := range items {
		if item.Category != CategoryCustom {
			t.Errorf("expected custom category for %s", item.Path)
		}
	}
}

func TestItemsFromDuplicatesSkipsKeeper(t *testing.T) {
	groups := []dupes.Group{
		{
			Hash: "h",
			Size: 100,
			Files: []dupes.File{
				{Path: "/data/keeper", Size: 100},
				{Path: "/data/copy1", Size: 100},
				{Path: "/data/copy2", Size: 100},
			},
			WastedSpace: 200,
		},
	}

	items := ItemsFromDuplicates(groups)
	if len(items) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(items))
	}
	for _, item := range items {
		if item.Path == "/data/keeper" {
			t.Error("keeper must never become a deletion candidate")
		}
		if item.Category != CategoryDuplicate {
			t.Errorf("expected duplicate category, got %s", item.Category)
		}
	}
}

func TestDeletePathIdempotent(t *testing.T) {
	f := testutil.NewFixture(t)
	path := f.CreateFile("data/once.bin", []byte("x"))

	if err := deletePath(path); err != nil {
		t.Fatalf("first delete failed: %v", err)
	}
	if err := deletePath(path); err != nil {
		t.Fatalf("second delete must be a no-op, got %v", err)
	}
	if _, err := os.Lstat(path); !os.IsNotExist(err) {
		t.Error("file still present")
	}
}
