package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/reclaimd/reclaim/internal/dupes"
)

const schema = `
CREATE TABLE IF NOT EXISTS disk_scans (
	id TEXT PRIMARY KEY,
	started_at TIMESTAMP NOT NULL,
	finished_at TIMESTAMP,
	roots TEXT NOT NULL,
	files_indexed INTEGER NOT NULL DEFAULT 0,
	groups_found INTEGER NOT NULL DEFAULT 0,
	wasted_bytes INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'running'
);

CREATE TABLE IF NOT EXISTS duplicate_groups (
	id TEXT PRIMARY KEY,
	scan_id TEXT NOT NULL REFERENCES disk_scans(id) ON DELETE CASCADE,
	content_hash TEXT NOT NULL,
	file_size INTEGER NOT NULL,
	wasted_bytes INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS duplicate_files (
	id TEXT PRIMARY KEY,
	group_id TEXT NOT NULL REFERENCES duplicate_groups(id) ON DELETE CASCADE,
	path TEXT NOT NULL,
	mod_time TIMESTAMP NOT NULL,
	keeper INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS hash_cache (
	path TEXT PRIMARY KEY,
	size INTEGER NOT NULL,
	mod_time_ns INTEGER NOT NULL,
	content_hash TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_duplicate_groups_scan ON duplicate_groups(scan_id);
CREATE INDEX IF NOT EXISTS idx_duplicate_files_group ON duplicate_files(group_id);
`

// ScanRecord is one completed or running detection run.
type ScanRecord struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time
	Roots        string
	FilesIndexed int
	GroupsFound  int
	WastedBytes  int64
	Status       string
}

// Store persists scan history and the content hash cache in SQLite.
// It implements dupes.HashCache, so a detector wired to a Store skips
// re-hashing files whose size and mtime have not changed since the last
// scan.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the history database at path.
// path can be ":memory:" for tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the underlying connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// BeginScan records the start of a detection run and returns its ID.
func (s *Store) BeginScan(roots string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.Exec(
		`INSERT INTO disk_scans (id, started_at, roots, status) VALUES (?, ?, ?, 'running')`,
		id, time.Now(), roots,
	)
	if err != nil {
		return "", fmt.Errorf("recording scan start: %w", err)
	}
	return id, nil
}

// FinishScan marks a run complete and stores its groups and statistics in
// one transaction.
func (s *Store) FinishScan(scanID string, groups []dupes.Group, stats dupes.Stats) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, group := range groups {
		groupID := uuid.New().String()
		_, err := tx.Exec(
			`INSERT INTO duplicate_groups (id, scan_id, content_hash, file_size, wasted_bytes)
			 VALUES (?, ?, ?, ?, ?)`,
			groupID, scanID, group.Hash, group.Size, group.WastedSpace,
		)
		if err != nil {
			return fmt.Errorf("recording group %s: %w", group.Hash, err)
		}

		keeper := group.Keeper()
		for _, file := range group.Files {
			_, err := tx.Exec(
				`INSERT INTO duplicate_files (id, group_id, path, mod_time, keeper)
				 VALUES (?, ?, ?, ?, ?)`,
				uuid.New().String(), groupID, file.Path, file.ModTime, file.Path == keeper.Path,
			)
			if err != nil {
				return fmt.Errorf("recording file %s: %w", file.Path, err)
			}
		}
	}

	_, err = tx.Exec(
		`UPDATE disk_scans
		 SET finished_at = ?, files_indexed = ?, groups_found = ?, wasted_bytes = ?, status = 'done'
		 WHERE id = ?`,
		time.Now(), stats.Indexed, len(groups), dupes.TotalWasted(groups), scanID,
	)
	if err != nil {
		return fmt.Errorf("finishing scan: %w", err)
	}

	return tx.Commit()
}

// ListScans returns up to limit most recent runs, newest first.
func (s *Store) ListScans(limit int) ([]ScanRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, started_at, COALESCE(finished_at, started_at), roots,
		        files_indexed, groups_found, wasted_bytes, status
		 FROM disk_scans ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing scans: %w", err)
	}
	defer rows.Close()

	var records []ScanRecord
	for rows.Next() {
		var rec ScanRecord
		if err := rows.Scan(&rec.ID, &rec.StartedAt, &rec.FinishedAt, &rec.Roots,
			&rec.FilesIndexed, &rec.GroupsFound, &rec.WastedBytes, &rec.Status); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ScanGroups reloads the duplicate groups recorded for a run.
func (s *Store) ScanGroups(scanID string) ([]dupes.Group, error) {
	rows, err := s.db.Query(
		`SELECT id, content_hash, file_size, wasted_bytes
		 FROM duplicate_groups WHERE scan_id = ? ORDER BY wasted_bytes DESC, content_hash`,
		scanID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading groups: %w", err)
	}
	defer rows.Close()

	type rawGroup struct {
		id    string
		group dupes.Group
	}
	var raws []rawGroup
	for rows.Next() {
		var r rawGroup
		if err := rows.Scan(&r.id, &r.group.Hash, &r.group.Size, &r.group.WastedSpace); err != nil {
			return nil, fmt.Errorf("scanning group row: %w", err)
		}
		raws = append(raws, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	groups := make([]dupes.Group, 0, len(raws))
	for _, r := range raws {
		fileRows, err := s.db.Query(
			`SELECT path, mod_time FROM duplicate_files
			 WHERE group_id = ? ORDER BY mod_time, path`,
			r.id,
		)
		if err != nil {
			return nil, fmt.Errorf("loading group files: %w", err)
		}
		for fileRows.Next() {
			var f dupes.File
			if err := fileRows.Scan(&f.Path, &f.ModTime); err != nil {
				fileRows.Close()
				return nil, fmt.Errorf("scanning file row: %w", err)
			}
			f.Size = r.group.Size
			r.group.Files = append(r.group.Files, f)
		}
		if err := fileRows.Close(); err != nil {
			return nil, err
		}
		groups = append(groups, r.group)
	}
	return groups, nil
}

// Get implements dupes.HashCache. A stale entry (size or mtime changed)
// is treated as a miss.
func (s *Store) Get(path string, size int64, modTime time.Time) (string, bool) {
	var (
		cachedSize int64
		cachedNs   int64
		hash       string
	)
	err := s.db.QueryRow(
		`SELECT size, mod_time_ns, content_hash FROM hash_cache WHERE path = ?`,
		path,
	).Scan(&cachedSize, &cachedNs, &hash)
	if err != nil {
		return "", false
	}
	if cachedSize != size || cachedNs != modTime.UnixNano() {
		return "", false
	}
	return hash, true
}

// Put implements dupes.HashCache.
func (s *Store) Put(path string, size int64, modTime time.Time, hash string) {
	// Cache misses on write failure; detection stays correct either way.
	s.db.Exec(
		`INSERT INTO hash_cache (path, size, mod_time_ns, content_hash, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   size = excluded.size,
		   mod_time_ns = excluded.mod_time_ns,
		   content_hash = excluded.content_hash,
		   updated_at = excluded.updated_at`,
		path, size, modTime.UnixNano(), hash, time.Now(),
	)
}

// PruneCache drops cache entries older than age. Returns the number of
// rows removed.
func (s *Store) PruneCache(age time.Duration) (int64, error) {
	res, err := s.db.Exec(
		`DELETE FROM hash_cache WHERE updated_at < ?`,
		time.Now().Add(-age),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning hash cache: %w", err)
	}
	return res.RowsAffected()
}

// Compile-time check that Store satisfies the detector's cache interface.
var _ dupes.HashCache = (*Store)(nil)
