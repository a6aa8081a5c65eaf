package reporter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/reclaimd/reclaim/internal/cleaner"
	"github.com/reclaimd/reclaim/internal/dupes"
	"github.com/reclaimd/reclaim/internal/quarantine"
)

func sampleGroups() []dupes.Group {
	now := time.Now()
	return []dupes.Group{
		{
			Hash: "cafe",
			Size: 2048,
			Files: []dupes.File{
				{Path: "/data/keep.bin", Size: 2048, ModTime: now.Add(-time.Hour)},
				{Path: "/data/copy.bin", Size: 2048, ModTime: now},
			},
			WastedSpace: 2048,
		},
	}
}

func TestDuplicatesSummary(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, FormatSummary)

	if err := r.Duplicates(sampleGroups(), dupes.Stats{Indexed: 5, Hashed: 2}); err != nil {
		t.Fatalf("Duplicates failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Duplicate Groups: 1", "2.00 KB", "Files Indexed: 5"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestDuplicatesTableMarksKeeper(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, FormatTable)

	if err := r.Duplicates(sampleGroups(), dupes.Stats{}); err != nil {
		t.Fatalf("Duplicates failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "/data/keep.bin") || !strings.Contains(out, "/data/copy.bin") {
		t.Errorf("table missing members:\n%s", out)
	}
	if !strings.Contains(out, "* ") {
		t.Errorf("keeper marker missing:\n%s", out)
	}
}

func TestDuplicatesJSONParses(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, FormatJSON)

	if err := r.Duplicates(sampleGroups(), dupes.Stats{Indexed: 5}); err != nil {
		t.Fatalf("Duplicates failed: %v", err)
	}

	var decoded struct {
		Groups      []dupes.Group `json:"groups"`
		WastedBytes int64         `json:"wasted_bytes"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded.Groups) != 1 || decoded.WastedBytes != 2048 {
		t.Errorf("unexpected decode: %+v", decoded)
	}
}

func TestCleanupResultShowsFallbacksAndErrors(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, FormatSummary)

	result := &cleaner.Result{
		Deleted:    3,
		FreedBytes: 4096,
		Failed:     2,
		Errors: []cleaner.ItemError{
			{Path: "/data/stuck", Err: "open /data/stuck: permission denied", Reason: "permission denied"},
			{Path: "/data/busy", Err: "remove /data/busy: device busy", Reason: "file is in use", Retryable: true},
		},
		FellBack: []string{"/data/fell-back"},
	}
	if err := r.CleanupResult(result); err != nil {
		t.Fatalf("CleanupResult failed: %v", err)
	}

	out := buf.String()
	wants := []string{
		"/data/fell-back",
		"/data/stuck", "permission denied:",
		"/data/busy", "file is in use:", "may succeed on retry",
		"Failed: 2",
	}
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("result output missing %q:\n%s", want, out)
		}
	}
}

func TestCleanupResultDryRunLabel(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, FormatSummary)

	if err := r.CleanupResult(&cleaner.Result{Deleted: 1, DryRun: true}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "dry run") {
		t.Errorf("dry run not labelled:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "Would remove") {
		t.Errorf("dry run verb missing:\n%s", buf.String())
	}
}

func TestQuarantineTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, FormatTable)

	if err := r.QuarantineItems(nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "empty") {
		t.Errorf("expected empty-store message:\n%s", buf.String())
	}
}

func TestQuarantineTableListsItems(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, FormatTable)

	items := []quarantine.Item{
		{
			ID:            "abc-123",
			OriginalPath:  "/data/file.txt",
			Size:          1024,
			QuarantinedAt: time.Now(),
			ExpiresAt:     time.Now().Add(24 * time.Hour),
		},
	}
	if err := r.QuarantineItems(items); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "abc-123") || !strings.Contains(out, "/data/file.txt") {
		t.Errorf("items missing from table:\n%s", out)
	}
}

func TestCandidatesSummaryByCategory(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, FormatSummary)

	items := []cleaner.Item{
		{Path: "/tmp/a", Size: 100, Category: cleaner.CategoryTemp},
		{Path: "/tmp/b", Size: 200, Category: cleaner.CategoryTemp},
		{Path: "/var/log/c", Size: 300, Category: cleaner.CategoryLog},
	}
	if err := r.Candidates(items); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.Contains(out, "Total Files: 3") {
		t.Errorf("total missing:\n%s", out)
	}
	if !strings.Contains(out, "temp: 2 files") {
		t.Errorf("category breakdown missing:\n%s", out)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, OutputFormat("xml"))

	if err := r.Duplicates(nil, dupes.Stats{}); err == nil {
		t.Error("expected error for unsupported format")
	}
}
