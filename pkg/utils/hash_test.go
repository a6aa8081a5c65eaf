package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "file.bin")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestHashFile(t *testing.T) {
	path := writeTemp(t, []byte("hello"))

	got, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}
	// sha256("hello")
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if got != want {
		t.Errorf("HashFile = %s, want %s", got, want)
	}
}

func TestHashFileMissing(t *testing.T) {
	if _, err := HashFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestPartialHashShortFile(t *testing.T) {
	// Shorter than the window: the whole content is fingerprinted and no
	// error is reported.
	path := writeTemp(t, []byte("tiny"))
	if _, err := PartialHash(path); err != nil {
		t.Fatalf("PartialHash failed on short file: %v", err)
	}
}

func TestPartialHashOnlyPrefixMatters(t *testing.T) {
	prefix := bytes.Repeat([]byte{'p'}, PartialHashSize)

	a := writeTemp(t, append(append([]byte(nil), prefix...), []byte("tail-a")...))
	b := writeTemp(t, append(append([]byte(nil), prefix...), []byte("different-tail")...))

	ha, err := PartialHash(a)
	if err != nil {
		t.Fatal(err)
	}
	hb, err := PartialHash(b)
	if err != nil {
		t.Fatal(err)
	}
	if ha != hb {
		t.Error("identical prefixes must produce identical partial hashes")
	}

	c := writeTemp(t, bytes.Repeat([]byte{'q'}, PartialHashSize))
	hc, err := PartialHash(c)
	if err != nil {
		t.Fatal(err)
	}
	if hc == ha {
		t.Error("different prefixes should produce different partial hashes")
	}
}

func TestHashEqualFilesEqualHashes(t *testing.T) {
	content := bytes.Repeat([]byte("abc"), 5000)
	a := writeTemp(t, content)
	b := writeTemp(t, content)

	ha, err := HashFile(a)
	if err != nil {
		t.Fatal(err)
	}
	hb, err := HashFile(b)
	if err != nil {
		t.Fatal(err)
	}
	if ha != hb {
		t.Error("identical content must hash identically")
	}
}
