// Package reliability provides database snapshots and off-site backup of the
// ledger. The quote cache is rebuildable and is never backed up.
package reliability

import (
	"archive/tar"
	"compress/gzip"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/niveshapp/nivesh/internal/database"
)

// archivePrefix names backup archives: nivesh-backup-2026-01-08-143022.tar.gz
const archivePrefix = "nivesh-backup-"

const archiveTimeFormat = "2006-01-02-150405"

// BackupService snapshots databases into compressed archives and rotates
// old ones.
type BackupService struct {
	databases map[string]*database.DB
	backupDir string
	log       zerolog.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(databases map[string]*database.DB, backupDir string, log zerolog.Logger) *BackupService {
	return &BackupService{
		databases: databases,
		backupDir: backupDir,
		log:       log.With().Str("service", "backup").Logger(),
	}
}

// Snapshot writes a verified copy of every registered database into one
// tar.gz archive under the backup directory and returns the archive path.
func (s *BackupService) Snapshot() (string, error) {
	start := time.Now()

	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	stagingDir, err := os.MkdirTemp(s.backupDir, "staging-")
	if err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	files := make([]string, 0, len(s.databases))
	for name, db := range s.databases {
		snapshotPath := filepath.Join(stagingDir, name+".db")

		if err := s.snapshotDatabase(db, snapshotPath); err != nil {
			return "", fmt.Errorf("failed to snapshot %s: %w", name, err)
		}
		if err := s.verifySnapshot(snapshotPath); err != nil {
			return "", fmt.Errorf("snapshot of %s failed verification: %w", name, err)
		}

		files = append(files, snapshotPath)
	}
	sort.Strings(files)

	archiveName := archivePrefix + time.Now().UTC().Format(archiveTimeFormat) + ".tar.gz"
	archivePath := filepath.Join(s.backupDir, archiveName)

	if err := createArchive(archivePath, files); err != nil {
		os.Remove(archivePath)
		return "", fmt.Errorf("failed to create archive: %w", err)
	}

	info, err := os.Stat(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to stat archive: %w", err)
	}

	s.log.Info().
		Str("archive", archiveName).
		Int64("size_bytes", info.Size()).
		Dur("elapsed", time.Since(start)).
		Msg("Backup snapshot created")

	return archivePath, nil
}

// RotateLocal deletes the oldest local archives, keeping the newest keep.
func (s *BackupService) RotateLocal(keep int) error {
	archives, err := s.listArchives()
	if err != nil {
		return err
	}
	if len(archives) <= keep {
		return nil
	}

	// Sorted ascending; everything before the last keep entries goes.
	for _, name := range archives[:len(archives)-keep] {
		path := filepath.Join(s.backupDir, name)
		if err := os.Remove(path); err != nil {
			s.log.Error().Err(err).Str("archive", name).Msg("Failed to delete old backup")
			continue
		}
		s.log.Info().Str("archive", name).Msg("Deleted old backup")
	}

	return nil
}

// snapshotDatabase copies a live database with VACUUM INTO, which produces a
// consistent, WAL-free copy without blocking writers.
func (s *BackupService) snapshotDatabase(db *database.DB, snapshotPath string) error {
	s.log.Debug().Str("database", db.Name()).Str("path", snapshotPath).Msg("Snapshotting database")

	if _, err := db.Conn().Exec(fmt.Sprintf("VACUUM INTO '%s'", snapshotPath)); err != nil {
		return fmt.Errorf("VACUUM INTO failed: %w", err)
	}
	return nil
}

// verifySnapshot opens the copy and runs an integrity check. A corrupt
// snapshot is worse than no snapshot.
func (s *BackupService) verifySnapshot(snapshotPath string) error {
	db, err := sql.Open("sqlite", snapshotPath)
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check query failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}

	return nil
}

func (s *BackupService) listArchives() ([]string, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	names := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.HasPrefix(name, archivePrefix) && strings.HasSuffix(name, ".tar.gz") {
			names = append(names, name)
		}
	}

	// The timestamp format sorts lexicographically in time order.
	sort.Strings(names)
	return names, nil
}

func createArchive(archivePath string, files []string) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	defer gz.Close()

	tw := tar.NewWriter(gz)
	defer tw.Close()

	for _, path := range files {
		if err := addToArchive(tw, path); err != nil {
			return err
		}
	}

	return nil
}

func addToArchive(tw *tar.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("failed to build tar header for %s: %w", path, err)
	}
	header.Name = filepath.Base(path)

	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write tar header for %s: %w", path, err)
	}
	if _, err := io.Copy(tw, file); err != nil {
		return fmt.Errorf("failed to write %s to archive: %w", path, err)
	}

	return nil
}
