// Package testutil provides test helpers and fixtures for reclaim tests.
// All file operations use t.TempDir() for safe, isolated testing.
package testutil

import (
	"crypto/rand"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

// TestFixture holds paths to test directories and files
type TestFixture struct {
	T       *testing.T
	RootDir string // Root temp directory (auto-cleaned)

	// Standard test directories
	ScanDir       string
	TempDir       string
	CacheDir      string
	LogsDir       string
	QuarantineDir string
}

// NewFixture creates a new test fixture with standard directory structure
func NewFixture(t *testing.T) *TestFixture {
	t.Helper()

	root := t.TempDir()

	f := &TestFixture{
		T:             t,
		RootDir:       root,
		ScanDir:       filepath.Join(root, "data"),
		TempDir:       filepath.Join(root, "tmp"),
		CacheDir:      filepath.Join(root, "cache"),
		LogsDir:       filepath.Join(root, "logs"),
		QuarantineDir: filepath.Join(root, "quarantine"),
	}

	dirs := []string{
		f.ScanDir,
		f.TempDir,
		f.CacheDir,
		f.LogsDir,
		f.QuarantineDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("failed to create directory %s: %v", dir, err)
		}
	}

	return f
}

// CreateFile creates a file with specified content and returns its path
func (f *TestFixture) CreateFile(relPath string, content []byte) string {
	f.T.Helper()

	fullPath := filepath.Join(f.RootDir, relPath)
	dir := filepath.Dir(fullPath)

	if err := os.MkdirAll(dir, 0755); err != nil {
		f.T.Fatalf("failed to create directory %s: %v", dir, err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		f.T.Fatalf("failed to create file %s: %v", fullPath, err)
	}

	return fullPath
}

// CreateFileWithAge creates a file and sets its modification time to the past
func (f *TestFixture) CreateFileWithAge(relPath string, content []byte, age time.Duration) string {
	f.T.Helper()

	fullPath := f.CreateFile(relPath, content)
	oldTime := time.Now().Add(-age)

	if err := os.Chtimes(fullPath, oldTime, oldTime); err != nil {
		f.T.Fatalf("failed to set file time for %s: %v", fullPath, err)
	}

	return fullPath
}

// CreateRandomFile creates a file with random content
func (f *TestFixture) CreateRandomFile(relPath string, size int) string {
	f.T.Helper()
	content := make([]byte, size)
	rand.Read(content)
	return f.CreateFile(relPath, content)
}

// CreateDir creates a directory and returns its path
func (f *TestFixture) CreateDir(relPath string) string {
	f.T.Helper()

	fullPath := filepath.Join(f.RootDir, relPath)
	if err := os.MkdirAll(fullPath, 0755); err != nil {
		f.T.Fatalf("failed to create directory %s: %v", fullPath, err)
	}
	return fullPath
}

// CreateHardlink creates a hardlink to an existing file
func (f *TestFixture) CreateHardlink(existing, relPath string) string {
	f.T.Helper()

	fullPath := filepath.Join(f.RootDir, relPath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		f.T.Fatalf("failed to create directory for %s: %v", fullPath, err)
	}
	if err := os.Link(existing, fullPath); err != nil {
		f.T.Fatalf("failed to create hardlink %s: %v", fullPath, err)
	}
	return fullPath
}

// CreateSymlink creates a symlink pointing at target
func (f *TestFixture) CreateSymlink(target, relPath string) string {
	f.T.Helper()

	fullPath := filepath.Join(f.RootDir, relPath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		f.T.Fatalf("failed to create directory for %s: %v", fullPath, err)
	}
	if err := os.Symlink(target, fullPath); err != nil {
		f.T.Fatalf("failed to create symlink %s: %v", fullPath, err)
	}
	return fullPath
}

// SetModTime sets a file's modification time
func (f *TestFixture) SetModTime(path string, modTime time.Time) {
	f.T.Helper()
	if err := os.Chtimes(path, modTime, modTime); err != nil {
		f.T.Fatalf("failed to set file time for %s: %v", path, err)
	}
}

// ReadFile reads a file, failing the test on error
func (f *TestFixture) ReadFile(path string) []byte {
	f.T.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		f.T.Fatalf("failed to read file %s: %v", path, err)
	}
	return data
}

// Exists reports whether a path exists
func (f *TestFixture) Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// FakeClock is a manually advanced clock for retention tests
type FakeClock struct {
	Current time.Time
}

// NewFakeClock creates a FakeClock starting at the given time
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{Current: start}
}

func (c *FakeClock) Now() time.Time { return c.Current }

// Advance moves the clock forward
func (c *FakeClock) Advance(d time.Duration) { c.Current = c.Current.Add(d) }

// SequentialIDs generates deterministic IDs id-1, id-2, ...
type SequentialIDs struct {
	n int
}

func (s *SequentialIDs) New() string {
	s.n++
	return "id-" + strconv.Itoa(s.n)
}
