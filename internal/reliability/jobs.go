package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/bourse/internal/database"
	"github.com/aristath/bourse/internal/utils"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

// backupTimeout bounds one scheduled backup run
const backupTimeout = 10 * time.Minute

// BackupJob runs the ledger backup on the scheduler.
type BackupJob struct {
	service *BackupService
}

// NewBackupJob creates a new backup job
func NewBackupJob(service *BackupService) *BackupJob {
	return &BackupJob{service: service}
}

// Name returns the job name
func (j *BackupJob) Name() string {
	return "ledger_backup"
}

// Run uploads a fresh snapshot
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()

	_, err := j.service.CreateAndUpload(ctx)
	return err
}

// Disk space thresholds in GB
const (
	criticalFreeGB = 0.5
	lowFreeGB      = 5.0
)

// MaintenanceJob checks free disk space under the data directory, refreshes
// query planner statistics and logs database growth.
type MaintenanceJob struct {
	databases []*database.DB
	dataDir   string
	usage     func(path string) (*disk.UsageStat, error)
	log       zerolog.Logger
}

// NewMaintenanceJob creates a new maintenance job
func NewMaintenanceJob(dataDir string, log zerolog.Logger, databases ...*database.DB) *MaintenanceJob {
	return &MaintenanceJob{
		databases: databases,
		dataDir:   dataDir,
		usage:     disk.Usage,
		log:       log.With().Str("job", "daily_maintenance").Logger(),
	}
}

// Name returns the job name
func (j *MaintenanceJob) Name() string {
	return "daily_maintenance"
}

// Run executes the maintenance steps. Only critically low disk space fails
// the run.
func (j *MaintenanceJob) Run() error {
	defer utils.OperationTimer(j.Name(), j.log)()

	if err := j.checkDiskSpace(); err != nil {
		return err
	}

	for _, db := range j.databases {
		if db == nil {
			continue
		}
		if _, err := db.Conn().Exec("PRAGMA optimize"); err != nil {
			j.log.Warn().Err(err).Str("database", db.Name()).Msg("PRAGMA optimize failed")
		}

		stats, err := db.GetStats()
		if err != nil {
			j.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to get database stats")
			continue
		}
		j.log.Info().
			Str("database", db.Name()).
			Float64("size_mb", float64(stats.SizeBytes)/1024/1024).
			Float64("wal_size_mb", float64(stats.WALSizeBytes)/1024/1024).
			Int64("freelist_pages", stats.FreelistCount).
			Msg("Database metrics")
	}
	return nil
}

func (j *MaintenanceJob) checkDiskSpace() error {
	usage, err := j.usage(j.dataDir)
	if err != nil {
		return fmt.Errorf("failed to stat filesystem: %w", err)
	}

	freeGB := float64(usage.Free) / 1e9
	switch {
	case freeGB < criticalFreeGB:
		j.log.Error().Float64("free_gb", freeGB).Msg("CRITICAL: insufficient disk space")
		return fmt.Errorf("only %.2f GB free under %s", freeGB, j.dataDir)
	case freeGB < lowFreeGB:
		j.log.Warn().Float64("free_gb", freeGB).Msg("Disk space running low")
	default:
		j.log.Debug().Float64("free_gb", freeGB).Msg("Disk space check")
	}
	return nil
}
