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
	ErrSnapshotExists    = errors.New("snapshot already exists")
	ErrSnapshotCorrupted = errors.New("snapshot integrity check failed")
	ErrInvalidSnapshotID = errors.New("invalid snapshot id: cannot contain path separators")
	ErrInMemoryDatabase  = errors.New("in-memory databases cannot be snapshotted")
)

// snapshotTables are counted into each snapshot's metadata.
var snapshotTables = []string{
	"benchmarks",
	"transaction_benchmarks",
	"deal_bank",
	"transaction_deal_mapping",
	"restaurants",
	"analysis_runs",
}

// SnapshotInfo describes a stored database snapshot.
type SnapshotInfo struct {
	CreatedAt     time.Time      `json:"created_at"`
	RowCounts     map[string]int `json:"row_counts"`
	ID            string         `json:"id"`
	Description   string         `json:"description"`
	FileSize      int64          `json:"file_size"`
	SchemaVersion int            `json:"schema_version"`
	IsAuto        bool           `json:"is_auto"`
}

// SnapshotManager copies the catalogue database into a snapshots directory
// next to it.
type SnapshotManager struct {
	db           *sql.DB
	snapshotsDir string
}

// NewSnapshotManager creates a snapshot manager for this storage instance.
func (s *SQLiteStorage) NewSnapshotManager() (*SnapshotManager, error) {
	if s.dbPath == ":memory:" {
		return nil, ErrInMemoryDatabase
	}
	dir := filepath.Join(filepath.Dir(s.dbPath), "snapshots")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create snapshots directory: %w", err)
	}
	return &SnapshotManager{db: s.db, snapshotsDir: dir}, nil
}

// Create writes a consistent copy of the database. An empty id is replaced
// by a timestamped one.
func (m *SnapshotManager) Create(ctx context.Context, id, description string, auto bool) (*SnapshotInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if id == "" {
		id = fmt.Sprintf("snapshot-%s", time.Now().Format("2006-01-02-150405"))
	}
	if err := validateSnapshotID(id); err != nil {
		return nil, err
	}

	path := m.dbFile(id)
	if _, err := os.Stat(path); err == nil {
		return nil, ErrSnapshotExists
	}

	var schemaVersion int
	if err := m.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&schemaVersion); err != nil {
		return nil, fmt.Errorf("failed to get schema version: %w", err)
	}

	counts := make(map[string]int, len(snapshotTables))
	for _, table := range snapshotTables {
		n, err := countRows(ctx, m.db, table)
		if err != nil {
			return nil, err
		}
		counts[table] = n
	}

	if err := m.backupDatabase(ctx, path); err != nil {
		return nil, fmt.Errorf("failed to backup database: %w", err)
	}
	if err := verifyIntegrity(path); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("%w: %v", ErrSnapshotCorrupted, err)
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat snapshot: %w", err)
	}

	info := SnapshotInfo{
		ID:            id,
		CreatedAt:     time.Now().UTC(),
		Description:   description,
		FileSize:      stat.Size(),
		RowCounts:     counts,
		SchemaVersion: schemaVersion,
		IsAuto:        auto,
	}
	if err := m.saveMetadata(info); err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			slog.Error("failed to remove snapshot after metadata save failure", "error", rmErr)
		}
		return nil, fmt.Errorf("failed to save metadata: %w", err)
	}

	slog.Info("Created snapshot", "id", id, "size", info.FileSize)
	return &info, nil
}

// List returns all snapshots, newest first.
func (m *SnapshotManager) List(_ context.Context) ([]SnapshotInfo, error) {
	entries, err := os.ReadDir(m.snapshotsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshots directory: %w", err)
	}

	snapshots := make([]SnapshotInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".meta.json") {
			continue
		}
		info, err := loadMetadata(filepath.Join(m.snapshotsDir, entry.Name()))
		if err != nil {
			slog.Debug("Skipping unreadable snapshot metadata", "file", entry.Name(), "error", err)
			continue
		}
		snapshots = append(snapshots, *info)
	}

	sort.SliceStable(snapshots, func(i, j int) bool {
		return snapshots[i].CreatedAt.After(snapshots[j].CreatedAt)
	})
	return snapshots, nil
}

// Delete removes a snapshot and its metadata.
func (m *SnapshotManager) Delete(_ context.Context, id string) error {
	if err := validateSnapshotID(id); err != nil {
		return err
	}
	path := m.dbFile(id)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return ErrSnapshotNotFound
		}
		return fmt.Errorf("failed to access snapshot: %w", err)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove snapshot file: %w", err)
	}
	if err := os.Remove(m.metaFile(id)); err != nil {
		slog.Debug("failed to remove metadata file", "error", err, "id", id)
	}
	return nil
}

func (m *SnapshotManager) dbFile(id string) string {
	return filepath.Join(m.snapshotsDir, id+".db")
}

func (m *SnapshotManager) metaFile(id string) string {
	return filepath.Join(m.snapshotsDir, id+".meta.json")
}

func (m *SnapshotManager) backupDatabase(ctx context.Context, destPath string) error {
	if _, err := m.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to checkpoint WAL: %w", err)
	}

	if strings.ContainsAny(destPath, `'";`) {
		return fmt.Errorf("invalid destination path: contains forbidden characters")
	}
	abs, err := filepath.Abs(destPath)
	if err != nil {
		return fmt.Errorf("invalid destination path: %w", err)
	}
	// #nosec G201 - destPath is validated above to prevent SQL injection
	if _, err := m.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", abs)); err != nil {
		return fmt.Errorf("vacuum into %s: %w", abs, err)
	}
	return nil
}

func (m *SnapshotManager) saveMetadata(info SnapshotInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.metaFile(info.ID), data, 0600)
}

func loadMetadata(path string) (*SnapshotInfo, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is built from the snapshots directory
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
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

func validateSnapshotID(id string) error {
	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return ErrInvalidSnapshotID
	}
	return nil
}
