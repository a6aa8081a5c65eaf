package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// PartialHashSize is the number of leading bytes fingerprinted by
// PartialHash. Files whose prefixes differ cannot be duplicates, so this
// cheap pass filters candidates before any full read.
const PartialHashSize = 4096

// HashFile computes the SHA-256 hash of a file's full content.
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// PartialHash computes a fast xxhash64 fingerprint of the first
// PartialHashSize bytes of a file. It is a prefilter, not a content
// identity: equal fingerprints still require a full hash to confirm.
func PartialHash(path string) (uint64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	buf := make([]byte, PartialHashSize)
	n, err := io.ReadFull(file, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return 0, err
	}

	return xxhash.Sum64(buf[:n]), nil
}
