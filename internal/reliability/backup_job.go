package reliability

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// uploadTimeout bounds one off-site upload attempt.
const uploadTimeout = 5 * time.Minute

// BackupJob snapshots the databases on schedule, keeps a bounded set of
// local archives and, when an object store is configured, mirrors the
// archive off-site with the same retention.
type BackupJob struct {
	backups *BackupService
	store   *S3Client // nil disables off-site upload
	retain  int
	log     zerolog.Logger
}

// NewBackupJob creates a new backup job
func NewBackupJob(backups *BackupService, store *S3Client, retain int, log zerolog.Logger) *BackupJob {
	if retain < 1 {
		retain = 7
	}
	return &BackupJob{
		backups: backups,
		store:   store,
		retain:  retain,
		log:     log.With().Str("job", "backup").Logger(),
	}
}

// Name returns the job name
func (j *BackupJob) Name() string {
	return "ledger_backup"
}

// Run creates and rotates backups. A failed upload keeps the local archive
// and returns the error so the scheduler logs it.
func (j *BackupJob) Run() error {
	archivePath, err := j.backups.Snapshot()
	if err != nil {
		return err
	}

	if err := j.backups.RotateLocal(j.retain); err != nil {
		j.log.Error().Err(err).Msg("Local backup rotation failed")
	}

	if j.store == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()

	if err := j.upload(ctx, archivePath); err != nil {
		return err
	}
	if err := j.rotateRemote(ctx); err != nil {
		j.log.Error().Err(err).Msg("Remote backup rotation failed")
	}

	return nil
}

func (j *BackupJob) upload(ctx context.Context, archivePath string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer file.Close()

	key := filepath.Base(archivePath)
	if err := j.store.Upload(ctx, key, file); err != nil {
		return err
	}

	j.log.Info().Str("key", key).Msg("Backup uploaded")
	return nil
}

// rotateRemote applies the same retention to the object store.
func (j *BackupJob) rotateRemote(ctx context.Context) error {
	objects, err := j.store.List(ctx, archivePrefix)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(objects))
	for _, obj := range objects {
		if obj.Key != nil {
			keys = append(keys, *obj.Key)
		}
	}
	sort.Strings(keys)

	if len(keys) <= j.retain {
		return nil
	}

	for _, key := range keys[:len(keys)-j.retain] {
		if err := j.store.Delete(ctx, key); err != nil {
			j.log.Error().Err(err).Str("key", key).Msg("Failed to delete old remote backup")
			continue
		}
		j.log.Info().Str("key", key).Msg("Deleted old remote backup")
	}

	return nil
}
