package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Snapshot errors.
var (
	ErrSnapshotNotFound  = errors.New("snapshot not found")
	ErrSnapshotCorrupted = errors.New("snapshot integrity check failed")
	ErrSnapshotExists    = errors.New("snapshot already exists")
	ErrInvalidSnapshotID = errors.New("invalid snapshot id")
)

// SnapshotInfo describes a stored database snapshot.
type SnapshotInfo struct {
	CreatedAt     time.Time `json:"created_at"`
	ID            string    `json:"id"`
	Description   string    `json:"description"`
	FileSize      int64     `json:"file_size"`
	Transactions  int       `json:"transactions"`
	Budgets       int       `json:"budgets"`
	Users         int       `json:"users"`
	SchemaVersion int       `json:"schema_version"`
}

// SnapshotDir returns the directory snapshots of dbPath are kept in.
func SnapshotDir(dbPath string) string {
	return filepath.Join(filepath.Dir(dbPath), "snapshots")
}

// CreateSnapshot writes a consistent copy of the database next to it.
// An empty id gets a timestamped one.
func (s *SQLiteStorage) CreateSnapshot(ctx context.Context, id, description string) (*SnapshotInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if s.dbPath == ":memory:" {
		return nil, errors.New("cannot snapshot an in-memory database")
	}
	if id == "" {
		id = "snapshot-" + s.now().Format("2006-01-02-150405")
	}
	if err := validateSnapshotID(id); err != nil {
		return nil, err
	}

	dir := SnapshotDir(s.dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	dbFile, metaFile := snapshotPaths(dir, id)
	if _, err := os.Stat(dbFile); err == nil {
		return nil, fmt.Errorf("%s: %w", id, ErrSnapshotExists)
	}

	absPath, err := filepath.Abs(dbFile)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve snapshot path: %w", err)
	}
	if strings.ContainsAny(absPath, `'";`) {
		return nil, fmt.Errorf("invalid snapshot path: contains forbidden characters")
	}
	// #nosec G201 - absPath is checked for quote and statement characters above
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", absPath)); err != nil {
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}

	info := SnapshotInfo{
		ID:          id,
		Description: description,
		CreatedAt:   s.now(),
	}
	if stat, statErr := os.Stat(dbFile); statErr == nil {
		info.FileSize = stat.Size()
	}
	if info.SchemaVersion, err = s.SchemaVersion(ctx); err != nil {
		return nil, err
	}
	counts := map[string]*int{
		"SELECT COUNT(*) FROM transactions": &info.Transactions,
		"SELECT COUNT(*) FROM budgets":      &info.Budgets,
		"SELECT COUNT(*) FROM users":        &info.Users,
	}
	for query, dest := range counts {
		if err := s.db.QueryRowContext(ctx, query).Scan(dest); err != nil {
			return nil, fmt.Errorf("failed to count rows: %w", err)
		}
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot metadata: %w", err)
	}
	if err := os.WriteFile(metaFile, data, 0600); err != nil {
		return nil, fmt.Errorf("failed to write snapshot metadata: %w", err)
	}

	slog.Info("snapshot created", "id", id, "size", info.FileSize)
	return &info, nil
}

// ListSnapshots returns the snapshots of dbPath, newest first.
// Unreadable metadata files are skipped.
func ListSnapshots(dbPath string) ([]SnapshotInfo, error) {
	dir := SnapshotDir(dbPath)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot directory: %w", err)
	}

	var out []SnapshotInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".meta.json") {
			continue
		}
		info, err := loadSnapshotInfo(filepath.Join(dir, entry.Name()))
		if err != nil {
			slog.Debug("skipping unreadable snapshot metadata", "file", entry.Name(), "error", err)
			continue
		}
		out = append(out, *info)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// RestoreSnapshot replaces the database at dbPath with snapshot id. The
// database must not be open while restoring.
func RestoreSnapshot(dbPath, id string) error {
	if err := validateSnapshotID(id); err != nil {
		return err
	}
	dbFile, metaFile := snapshotPaths(SnapshotDir(dbPath), id)
	if _, err := os.Stat(dbFile); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", id, ErrSnapshotNotFound)
		}
		return fmt.Errorf("failed to access snapshot: %w", err)
	}
	if _, err := loadSnapshotInfo(metaFile); err != nil {
		return fmt.Errorf("failed to load snapshot metadata: %w", err)
	}
	if err := verifyIntegrity(dbFile); err != nil {
		return fmt.Errorf("%w: %v", ErrSnapshotCorrupted, err)
	}

	data, err := os.ReadFile(dbFile) // #nosec G304 - id is validated above
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	// Stale WAL files would be replayed on top of the restored file.
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(dbPath + suffix); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s file: %w", suffix, err)
		}
	}

	tmp := dbPath + ".restore"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to stage restore: %w", err)
	}
	if err := os.Rename(tmp, dbPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to restore snapshot: %w", err)
	}
	return nil
}

// DeleteSnapshot removes snapshot id and its metadata.
func DeleteSnapshot(dbPath, id string) error {
	if err := validateSnapshotID(id); err != nil {
		return err
	}
	dbFile, metaFile := snapshotPaths(SnapshotDir(dbPath), id)
	if err := os.Remove(dbFile); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", id, ErrSnapshotNotFound)
		}
		return fmt.Errorf("failed to remove snapshot: %w", err)
	}
	if err := os.Remove(metaFile); err != nil && !os.IsNotExist(err) {
		slog.Debug("failed to remove snapshot metadata", "error", err, "path", metaFile)
	}
	return nil
}

func validateSnapshotID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\'";`) || strings.Contains(id, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidSnapshotID, id)
	}
	return nil
}

func snapshotPaths(dir, id string) (string, string) {
	return filepath.Join(dir, id+".db"), filepath.Join(dir, id+".meta.json")
}

func loadSnapshotInfo(path string) (*SnapshotInfo, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is built from a validated id
	if err != nil {
		return nil, err
	}
	var info SnapshotInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func verifyIntegrity(path string) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("integrity check: %s", result)
	}
	return nil
}
