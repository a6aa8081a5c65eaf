package analyzer

import (
	"context"
	"testing"

	"github.com/reclaimd/reclaim/internal/testutil"
)

func TestAnalyzeReport(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateFile("data/big.iso", make([]byte, 8192))
	f.CreateFile("data/mid.log", make([]byte, 4096))
	f.CreateFile("data/small.log", make([]byte, 1024))

	report, err := Analyze(context.Background(), f.ScanDir, 2)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if report.TotalFiles != 3 {
		t.Errorf("expected 3 files, got %d", report.TotalFiles)
	}
	if report.TotalSize != 8192+4096+1024 {
		t.Errorf("unexpected total size %d", report.TotalSize)
	}

	if len(report.Largest) != 2 {
		t.Fatalf("expected top 2 largest, got %d", len(report.Largest))
	}
	if report.Largest[0].Size != 8192 || report.Largest[1].Size != 4096 {
		t.Errorf("largest files wrong order: %+v", report.Largest)
	}

	// .log dominates by count, .iso by size; extensions sorted by size.
	if len(report.Extensions) != 2 {
		t.Fatalf("expected 2 extensions, got %d", len(report.Extensions))
	}
	if report.Extensions[0].Extension != ".iso" {
		t.Errorf("expected .iso first by size, got %s", report.Extensions[0].Extension)
	}
	if report.Extensions[1].Count != 2 {
		t.Errorf("expected 2 .log files, got %d", report.Extensions[1].Count)
	}

	if report.Usage.Total == 0 {
		t.Error("expected filesystem usage to be populated")
	}
}

func TestUsageMissingPath(t *testing.T) {
	if _, err := Usage("/definitely/not/a/path"); err == nil {
		t.Error("expected error for missing path")
	}
}
