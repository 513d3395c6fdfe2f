package reliability

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niveshapp/nivesh/internal/database"
)

func TestSnapshot(t *testing.T) {
	dataDir := t.TempDir()
	backupDir := filepath.Join(dataDir, "backups")

	db, err := database.New(database.Config{
		Path:    filepath.Join(dataDir, "ledger.db"),
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE accounts (id TEXT PRIMARY KEY, wallet_balance TEXT NOT NULL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO accounts (id, wallet_balance) VALUES ('u1', '1000')`)
	require.NoError(t, err)

	log := zerolog.New(nil).Level(zerolog.Disabled)
	service := NewBackupService(map[string]*database.DB{"ledger": db}, backupDir, log)

	archivePath, err := service.Snapshot()
	require.NoError(t, err)

	name := filepath.Base(archivePath)
	assert.True(t, strings.HasPrefix(name, archivePrefix))
	assert.True(t, strings.HasSuffix(name, ".tar.gz"))

	info, err := os.Stat(archivePath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	// Staging directory is cleaned up
	entries, err := os.ReadDir(backupDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, name, entries[0].Name())
}

func TestRotateLocal(t *testing.T) {
	backupDir := t.TempDir()
	log := zerolog.New(nil).Level(zerolog.Disabled)
	service := NewBackupService(nil, backupDir, log)

	names := []string{
		archivePrefix + "2026-01-01-030000.tar.gz",
		archivePrefix + "2026-01-02-030000.tar.gz",
		archivePrefix + "2026-01-03-030000.tar.gz",
		archivePrefix + "2026-01-04-030000.tar.gz",
		archivePrefix + "2026-01-05-030000.tar.gz",
	}
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(backupDir, name), []byte("x"), 0o644))
	}
	// An unrelated file must survive rotation
	require.NoError(t, os.WriteFile(filepath.Join(backupDir, "notes.txt"), []byte("x"), 0o644))

	require.NoError(t, service.RotateLocal(2))

	remaining, err := service.listArchives()
	require.NoError(t, err)
	assert.Equal(t, names[3:], remaining)

	_, err = os.Stat(filepath.Join(backupDir, "notes.txt"))
	assert.NoError(t, err)
}

func TestRotateLocal_FewerThanKeep(t *testing.T) {
	backupDir := t.TempDir()
	log := zerolog.New(nil).Level(zerolog.Disabled)
	service := NewBackupService(nil, backupDir, log)

	name := archivePrefix + "2026-01-01-030000.tar.gz"
	require.NoError(t, os.WriteFile(filepath.Join(backupDir, name), []byte("x"), 0o644))

	require.NoError(t, service.RotateLocal(7))

	remaining, err := service.listArchives()
	require.NoError(t, err)
	assert.Equal(t, []string{name}, remaining)
}
