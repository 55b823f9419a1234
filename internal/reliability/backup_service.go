package reliability

import (
	"compress/gzip"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aristath/bourse/internal/database"
	"github.com/aristath/bourse/internal/events"
	"github.com/rs/zerolog"
)

const (
	backupPrefix    = "bourse-ledger-"
	backupSuffix    = ".db.gz"
	backupTimestamp = "2006-01-02-150405"
	// minBackupsToKeep survives any retention setting
	minBackupsToKeep = 1
)

// BackupResult describes one uploaded snapshot.
type BackupResult struct {
	Key       string
	SizeBytes int64
	Checksum  string
	Pruned    int
	Duration  time.Duration
}

// BackupService snapshots the ledger, uploads it gzip-compressed and prunes
// old snapshots.
type BackupService struct {
	db         *database.DB
	store      ObjectStore
	stagingDir string
	retain     int
	events     *events.Manager
	now        func() time.Time
	log        zerolog.Logger
}

// NewBackupService creates a new backup service. eventManager may be nil.
func NewBackupService(
	db *database.DB,
	store ObjectStore,
	stagingDir string,
	retain int,
	eventManager *events.Manager,
	log zerolog.Logger,
) *BackupService {
	if retain < minBackupsToKeep {
		retain = minBackupsToKeep
	}
	return &BackupService{
		db:         db,
		store:      store,
		stagingDir: stagingDir,
		retain:     retain,
		events:     eventManager,
		now:        time.Now,
		log:        log.With().Str("service", "backup").Logger(),
	}
}

// CreateAndUpload takes a consistent snapshot of the ledger and uploads it.
func (s *BackupService) CreateAndUpload(ctx context.Context) (*BackupResult, error) {
	s.log.Info().Msg("Starting ledger backup")
	start := time.Now()

	if err := os.MkdirAll(s.stagingDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	snapshotPath := filepath.Join(s.stagingDir, "ledger-snapshot.db")
	archivePath := snapshotPath + ".gz"
	defer os.Remove(snapshotPath)
	defer os.Remove(archivePath)

	if err := s.db.SnapshotTo(ctx, snapshotPath); err != nil {
		return nil, err
	}

	checksum, err := compressFile(snapshotPath, archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to compress snapshot: %w", err)
	}

	info, err := os.Stat(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}

	archive, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer archive.Close()

	key := backupPrefix + s.now().UTC().Format(backupTimestamp) + backupSuffix
	if err := s.store.Upload(ctx, key, archive); err != nil {
		return nil, err
	}

	pruned, err := s.Rotate(ctx)
	if err != nil {
		// The new backup is already safe
		s.log.Warn().Err(err).Msg("Backup rotation failed")
	}

	result := &BackupResult{
		Key:       key,
		SizeBytes: info.Size(),
		Checksum:  checksum,
		Pruned:    pruned,
		Duration:  time.Since(start),
	}

	s.log.Info().
		Str("key", key).
		Int64("size_bytes", result.SizeBytes).
		Str("checksum", checksum).
		Int("pruned", pruned).
		Dur("duration", result.Duration).
		Msg("Ledger backup completed")

	if s.events != nil {
		s.events.EmitTyped("reliability", &events.BackupCompletedData{
			Key:       key,
			SizeBytes: result.SizeBytes,
			Pruned:    pruned,
		})
	}
	return result, nil
}

// ListBackups returns stored backup keys, newest first.
func (s *BackupService) ListBackups(ctx context.Context) ([]ObjectInfo, error) {
	objects, err := s.store.List(ctx, backupPrefix)
	if err != nil {
		return nil, err
	}

	backups := objects[:0]
	for _, obj := range objects {
		if strings.HasPrefix(obj.Key, backupPrefix) && strings.HasSuffix(obj.Key, backupSuffix) {
			backups = append(backups, obj)
		}
	}

	// The timestamp format sorts lexically
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Key > backups[j].Key
	})
	return backups, nil
}

// Rotate deletes all but the newest retain backups and returns how many were
// removed.
func (s *BackupService) Rotate(ctx context.Context) (int, error) {
	backups, err := s.ListBackups(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) <= s.retain {
		return 0, nil
	}

	deleted := 0
	for _, b := range backups[s.retain:] {
		if err := s.store.Delete(ctx, b.Key); err != nil {
			s.log.Error().Err(err).Str("key", b.Key).Msg("Failed to delete old backup")
			continue
		}
		s.log.Debug().Str("key", b.Key).Msg("Deleted old backup")
		deleted++
	}
	return deleted, nil
}

// compressFile gzips src into dst and returns the sha256 of the compressed
// output.
func compressFile(src, dst string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()

	hash := sha256.New()
	gz := gzip.NewWriter(io.MultiWriter(out, hash))
	if _, err := io.Copy(gz, in); err != nil {
		return "", err
	}
	if err := gz.Close(); err != nil {
		return "", err
	}
	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}
