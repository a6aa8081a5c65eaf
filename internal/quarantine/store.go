// Package quarantine provides reversible deletion. Files are moved into a
// managed holding area under a date-partitioned layout and recorded in a
// single metadata file; every quarantined file can be restored byte-identical
// until its retention window expires and it is purged.
//
// The store exclusively owns the quarantine directory tree and its metadata
// file. The metadata file is the source of truth; the date-partitioned
// layout exists only for operator browsability and is never parsed to
// reconstruct state.
package quarantine

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/reclaimd/reclaim/pkg/utils"
)

// DefaultRetention is the period a quarantined file remains recoverable
// before it becomes eligible for permanent purge.
const DefaultRetention = 30 * 24 * time.Hour

// metadataName is the metadata file inside the quarantine root. A flat,
// human-inspectable YAML map from id to item.
const metadataName = "metadata"

var (
	// ErrNotFound is returned when no record exists for the given id.
	ErrNotFound = errors.New("quarantine item not found")

	// ErrCorruptMetadata is a storage-fatal error: the metadata store could
	// not be parsed. Operations abort rather than guessing at state.
	ErrCorruptMetadata = errors.New("quarantine metadata corrupt")

	// ErrInconsistent marks a record whose physical file does not match the
	// metadata (typically: record exists, file is gone). The record is kept
	// and excluded from automated action until manually resolved.
	ErrInconsistent = errors.New("quarantine record inconsistent with disk")

	// ErrNotRegularFile is returned when the quarantine target is a
	// directory, symlink or other non-regular file.
	ErrNotRegularFile = errors.New("not a regular file")
)

// errPersist marks a metadata write failure inside purgeLocked so batch
// callers can tell it apart from a per-item disk failure.
var errPersist = errors.New("quarantine metadata write failed")

// Item is the persisted record of one quarantined file.
type Item struct {
	ID             string      `yaml:"id" json:"id"`
	OriginalPath   string      `yaml:"original_path" json:"original_path"`
	QuarantinePath string      `yaml:"quarantine_path" json:"quarantine_path"`
	ContentHash    string      `yaml:"content_hash" json:"content_hash"`
	Size           int64       `yaml:"size" json:"size"`
	Reason         string      `yaml:"reason" json:"reason"`
	Mode           fs.FileMode `yaml:"mode" json:"mode"`
	QuarantinedAt  time.Time   `yaml:"quarantined_at" json:"quarantined_at"`
	ExpiresAt      time.Time   `yaml:"expires_at" json:"expires_at"`
	Restored       bool        `yaml:"restored" json:"restored"`
}

// Expired reports whether the item's retention window has passed at t.
func (i Item) Expired(t time.Time) bool {
	return t.After(i.ExpiresAt)
}

// Filter selects items in Search. Zero values match everything.
type Filter struct {
	PathContains   string
	ReasonContains string
	MinSize        int64
	MaxSize        int64
}

// Inconsistency reports a divergence between metadata and disk found by
// Verify.
type Inconsistency struct {
	ID   string // empty for files without a record
	Path string
	Kind string // "missing-file" or "unknown-file"
}

// Stats summarizes the store contents.
type Stats struct {
	Items     int
	TotalSize int64
	Expired   int
	ByReason  map[string]int
}

// Store manages the quarantine directory and its metadata.
//
// A single mutex serializes every mutating operation; the metadata store is
// not designed for concurrent writers.
type Store struct {
	root      string
	retention time.Duration
	clock     Clock
	ids       IDGenerator
	log       *zap.Logger

	mu    sync.Mutex
	items map[string]Item
}

// Option configures a Store.
type Option func(*Store)

// WithRetention overrides the default retention window.
func WithRetention(d time.Duration) Option {
	return func(s *Store) { s.retention = d }
}

// WithClock injects a clock (tests).
func WithClock(c Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithIDGenerator injects an id generator (tests).
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) { s.ids = g }
}

// WithLogger injects a logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

// Open creates or opens the quarantine store rooted at root. An unwritable
// root or unparseable metadata file is fatal: no operation proceeds against
// a store whose state is unknown.
func Open(root string, opts ...Option) (*Store, error) {
	s := &Store{
		root:      root,
		retention: DefaultRetention,
		clock:     realClock{},
		ids:       uuidGenerator{},
		log:       zap.NewNop(),
		items:     make(map[string]Item),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("quarantine root inaccessible: %w", err)
	}

	if err := s.loadMetadata(); err != nil {
		return nil, err
	}

	return s, nil
}

// Root returns the quarantine root directory.
func (s *Store) Root() string { return s.root }

func (s *Store) metadataPath() string {
	return filepath.Join(s.root, metadataName)
}

func (s *Store) loadMetadata() error {
	data, err := os.ReadFile(s.metadataPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading quarantine metadata: %w", err)
	}

	items := make(map[string]Item)
	if err := yaml.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptMetadata, err)
	}
	s.items = items
	return nil
}

// persistLocked writes the metadata file atomically: full serialization to
// a temp file in the same directory, fsync, then rename over the old file.
// A crash leaves either the previous metadata or the new one, never a
// truncated file. Caller holds s.mu.
func (s *Store) persistLocked() error {
	data, err := yaml.Marshal(s.items)
	if err != nil {
		return fmt.Errorf("encoding quarantine metadata: %w", err)
	}

	tmp, err := os.CreateTemp(s.root, ".metadata-*")
	if err != nil {
		return fmt.Errorf("writing quarantine metadata: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing quarantine metadata: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing quarantine metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing quarantine metadata: %w", err)
	}

	if err := os.Rename(tmpName, s.metadataPath()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing quarantine metadata: %w", err)
	}
	return nil
}

// Quarantine moves path into the quarantine area under the store's default
// retention and returns the persisted record.
func (s *Store) Quarantine(path, reason string) (Item, error) {
	return s.QuarantineFor(path, reason, s.retention)
}

// QuarantineFor quarantines path with an explicit retention window.
//
// The operation is atomic from the caller's point of view: if metadata
// persistence fails after the physical move, the move is rolled back. The
// store never ends up with an orphaned file and no record, nor a record
// with no file.
func (s *Store) QuarantineFor(path, reason string, retention time.Duration) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	abs, err := filepath.Abs(path)
	if err != nil {
		return Item{}, err
	}

	info, err := os.Lstat(abs)
	if err != nil {
		return Item{}, err
	}
	if !info.Mode().IsRegular() {
		return Item{}, fmt.Errorf("%s: %w", abs, ErrNotRegularFile)
	}

	hash, err := utils.HashFile(abs)
	if err != nil {
		return Item{}, fmt.Errorf("hashing %s: %w", abs, err)
	}

	now := s.clock.Now()
	id := s.ids.New()

	dateDir := filepath.Join(s.root, now.Format("2006-01-02"))
	if err := os.MkdirAll(dateDir, 0o755); err != nil {
		return Item{}, fmt.Errorf("creating quarantine directory: %w", err)
	}

	dest := filepath.Join(dateDir, id+"_"+filepath.Base(abs))

	item := Item{
		ID:             id,
		OriginalPath:   abs,
		QuarantinePath: dest,
		ContentHash:    hash,
		Size:           info.Size(),
		Reason:         reason,
		Mode:           info.Mode().Perm(),
		QuarantinedAt:  now,
		ExpiresAt:      now.Add(retention),
	}

	if err := moveFile(abs, dest); err != nil {
		return Item{}, fmt.Errorf("moving %s to quarantine: %w", abs, err)
	}

	s.items[id] = item
	if err := s.persistLocked(); err != nil {
		// Roll back the move: an orphaned physical file with no record is
		// exactly the state this store exists to prevent.
		delete(s.items, id)
		if rbErr := moveFile(dest, abs); rbErr != nil {
			s.log.Error("quarantine rollback failed",
				zap.String("path", abs),
				zap.String("quarantine_path", dest),
				zap.Error(rbErr))
		}
		return Item{}, err
	}

	s.log.Info("quarantined file",
		zap.String("id", id),
		zap.String("path", abs),
		zap.String("reason", reason),
		zap.Int64("size", item.Size))

	return item, nil
}

// Restore moves a quarantined file back. target defaults to the original
// path. A file already occupying the target is renamed aside, never
// overwritten. The record is removed only after the physical move succeeds.
func (s *Store) Restore(id, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}

	if _, err := os.Lstat(item.QuarantinePath); err != nil {
		return fmt.Errorf("%s: %w: quarantined file missing at %s", id, ErrInconsistent, item.QuarantinePath)
	}

	if target == "" {
		target = item.OriginalPath
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating restore directory: %w", err)
	}

	if _, err := os.Lstat(target); err == nil {
		aside := target + ".pre-restore"
		if _, err := os.Lstat(aside); err == nil {
			aside = target + ".pre-restore." + id
		}
		if err := os.Rename(target, aside); err != nil {
			return fmt.Errorf("renaming existing file aside: %w", err)
		}
		s.log.Warn("existing file renamed aside during restore",
			zap.String("target", target),
			zap.String("renamed_to", aside))
	}

	if err := moveFile(item.QuarantinePath, target); err != nil {
		return fmt.Errorf("restoring %s: %w", id, err)
	}
	// Best effort; the content is already back in place.
	_ = os.Chmod(target, item.Mode)

	item.Restored = true
	delete(s.items, id)
	if err := s.persistLocked(); err != nil {
		s.items[id] = item
		if rbErr := moveFile(target, item.QuarantinePath); rbErr != nil {
			s.log.Error("restore rollback failed",
				zap.String("id", id),
				zap.Error(rbErr))
		}
		return err
	}

	s.log.Info("restored file",
		zap.String("id", id),
		zap.String("target", target))

	return nil
}

// Purge permanently deletes the physical file and removes the record.
// Irreversible; callers are expected to have warned the operator. A record
// whose file is already gone is reported as an inconsistency and kept.
func (s *Store) Purge(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.purgeLocked(id)
}

func (s *Store) purgeLocked(id string) error {
	item, ok := s.items[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}

	if _, err := os.Lstat(item.QuarantinePath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w: file missing at %s", id, ErrInconsistent, item.QuarantinePath)
		}
		return err
	}

	if err := os.Remove(item.QuarantinePath); err != nil {
		return fmt.Errorf("purging %s: %w", id, err)
	}

	delete(s.items, id)
	if err := s.persistLocked(); err != nil {
		return fmt.Errorf("%w: %v", errPersist, err)
	}

	s.log.Info("purged quarantined file",
		zap.String("id", id),
		zap.String("path", item.QuarantinePath))

	return nil
}

// CleanupExpired purges every record whose retention window has passed and
// returns the number purged. Any per-item purge failure (file already
// externally deleted, permission, an undeletable path) is logged and
// skipped; the batch never aborts on them, so one stuck record cannot
// block the ones behind it. Only a metadata persistence failure stops the
// run.
func (s *Store) CleanupExpired() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()

	expired := make([]string, 0)
	for id, item := range s.items {
		if item.Expired(now) {
			expired = append(expired, id)
		}
	}
	sort.Strings(expired)

	purged := 0
	for _, id := range expired {
		if err := s.purgeLocked(id); err != nil {
			if errors.Is(err, errPersist) {
				// Metadata-level failure: stop, report what was done.
				return purged, err
			}
			s.log.Warn("skipping expired item",
				zap.String("id", id),
				zap.Error(err))
			continue
		}
		purged++
	}

	return purged, nil
}

// List returns all records, oldest quarantine time first. Read-only.
func (s *Store) List() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]Item, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].QuarantinedAt.Equal(items[j].QuarantinedAt) {
			return items[i].QuarantinedAt.Before(items[j].QuarantinedAt)
		}
		return items[i].ID < items[j].ID
	})
	return items
}

// Get returns the record for id, if present. Read-only.
func (s *Store) Get(id string) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	return item, ok
}

// Search returns records matching the filter. Read-only.
func (s *Store) Search(f Filter) []Item {
	var results []Item
	for _, item := range s.List() {
		if f.PathContains != "" &&
			!strings.Contains(strings.ToLower(item.OriginalPath), strings.ToLower(f.PathContains)) {
			continue
		}
		if f.ReasonContains != "" &&
			!strings.Contains(strings.ToLower(item.Reason), strings.ToLower(f.ReasonContains)) {
			continue
		}
		if f.MinSize > 0 && item.Size < f.MinSize {
			continue
		}
		if f.MaxSize > 0 && item.Size > f.MaxSize {
			continue
		}
		results = append(results, item)
	}
	return results
}

// GetStats returns summary statistics.
func (s *Store) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{ByReason: make(map[string]int)}
	now := s.clock.Now()
	for _, item := range s.items {
		stats.Items++
		stats.TotalSize += item.Size
		if item.Expired(now) {
			stats.Expired++
		}
		reason := item.Reason
		if i := strings.Index(reason, ":"); i >= 0 {
			reason = strings.TrimSpace(reason[:i])
		}
		stats.ByReason[reason]++
	}
	return stats
}

// Verify cross-checks metadata against disk in both directions: records
// whose physical file is missing, and files in the quarantine tree with no
// record. Neither is repaired automatically.
func (s *Store) Verify() ([]Inconsistency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var found []Inconsistency

	known := make(map[string]string, len(s.items))
	for id, item := range s.items {
		known[item.QuarantinePath] = id
		if _, err := os.Lstat(item.QuarantinePath); err != nil {
			found = append(found, Inconsistency{
				ID:   id,
				Path: item.QuarantinePath,
				Kind: "missing-file",
			})
		}
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("reading quarantine root: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue // metadata file and temp files live at the top level
		}
		dateDir := filepath.Join(s.root, entry.Name())
		files, err := os.ReadDir(dateDir)
		if err != nil {
			return nil, fmt.Errorf("reading quarantine directory %s: %w", dateDir, err)
		}
		for _, f := range files {
			path := filepath.Join(dateDir, f.Name())
			if _, ok := known[path]; !ok {
				found = append(found, Inconsistency{
					Path: path,
					Kind: "unknown-file",
				})
			}
		}
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Path < found[j].Path })
	return found, nil
}

// moveFile renames src to dst, falling back to copy+remove across
// filesystem boundaries.
func moveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}

	return os.Remove(src)
}
