package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "data")
	t.Setenv("NIVESH_DATA_DIR", dataDir)
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, dataDir, cfg.DataDir)
	assert.DirExists(t, cfg.DataDir)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.DevMode)
	assert.False(t, cfg.SeedDemo)
	assert.Equal(t, "test-secret", cfg.JWTSecret)
	assert.Equal(t, "0 0 3 * * *", cfg.CacheCleanupSchedule)
	assert.Equal(t, "0 0 4 * * *", cfg.BackupSchedule)

	require.NotNil(t, cfg.Backup)
	assert.False(t, cfg.Backup.Enabled)
	assert.Equal(t, 7, cfg.Backup.Retain)
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	t.Setenv("NIVESH_DATA_DIR", t.TempDir())
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("NIVESH_DATA_DIR", t.TempDir())
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("SEED_DEMO_DATA", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.DevMode)
	assert.True(t, cfg.SeedDemo)
}

func TestLoad_BackupConfig(t *testing.T) {
	t.Setenv("NIVESH_DATA_DIR", t.TempDir())
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("BACKUP_ENABLED", "true")
	t.Setenv("BACKUP_S3_BUCKET", "nivesh-backups")
	t.Setenv("BACKUP_S3_ENDPOINT", "https://minio.local:9000")
	t.Setenv("BACKUP_S3_ACCESS_KEY_ID", "key")
	t.Setenv("BACKUP_S3_SECRET_ACCESS_KEY", "secret")
	t.Setenv("BACKUP_RETAIN", "14")

	cfg, err := Load()
	require.NoError(t, err)

	require.NotNil(t, cfg.Backup)
	assert.True(t, cfg.Backup.Enabled)
	assert.Equal(t, "nivesh-backups", cfg.Backup.Bucket)
	assert.Equal(t, "auto", cfg.Backup.Region)
	assert.Equal(t, "https://minio.local:9000", cfg.Backup.Endpoint)
	assert.Equal(t, 14, cfg.Backup.Retain)
}

func TestLoad_BackupEnabledWithoutBucket(t *testing.T) {
	t.Setenv("NIVESH_DATA_DIR", t.TempDir())
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("BACKUP_ENABLED", "true")
	t.Setenv("BACKUP_S3_BUCKET", "")

	_, err := Load()
	assert.Error(t, err)
}
