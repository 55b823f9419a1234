// Package di provides dependency injection for scheduler jobs.
package di

import (
	"fmt"

	"github.com/aristath/bourse/internal/clientdata"
	"github.com/aristath/bourse/internal/config"
	"github.com/aristath/bourse/internal/modules/orderbook"
	"github.com/aristath/bourse/internal/modules/prices"
	"github.com/aristath/bourse/internal/reliability"
	"github.com/aristath/bourse/internal/scheduler"
	"github.com/rs/zerolog"
)

// Job schedules (cron with seconds)
const (
	ScheduleCheckDatabases   = "0 0 * * * *"
	ScheduleWALCheckpoints   = "0 */15 * * * *"
	ScheduleClientDataClean  = "0 30 * * * *"
	ScheduleOrderBookEvict   = "@every 1m"
	ScheduleDailyMaintenance = "0 0 4 * * *"
)

// JobInstances holds the registered jobs so they can be triggered manually
type JobInstances struct {
	CheckDatabases   scheduler.Job
	WALCheckpoints   scheduler.Job
	ClientDataClean  scheduler.Job
	OrderBookEvict   scheduler.Job // nil unless the memory cache is in use
	PriceRandomWalk  scheduler.Job // nil unless price simulation is enabled
	DailyMaintenance scheduler.Job
	LedgerBackup     scheduler.Job // nil when backups are disabled
}

// RegisterJobs creates the scheduler and registers all background jobs
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	sched := scheduler.New(log)
	container.Scheduler = sched
	instances := &JobInstances{}

	// ==========================================
	// DATABASE HEALTH
	// ==========================================
	instances.CheckDatabases = scheduler.NewCheckDatabasesJob(log, container.LedgerDB, container.CacheDB)
	if err := sched.AddJob(ScheduleCheckDatabases, instances.CheckDatabases); err != nil {
		return nil, err
	}

	instances.WALCheckpoints = scheduler.NewCheckWALCheckpointsJob(log, container.LedgerDB, container.CacheDB)
	if err := sched.AddJob(ScheduleWALCheckpoints, instances.WALCheckpoints); err != nil {
		return nil, err
	}

	instances.DailyMaintenance = reliability.NewMaintenanceJob(cfg.DataDir, log, container.LedgerDB, container.CacheDB)
	if err := sched.AddJob(ScheduleDailyMaintenance, instances.DailyMaintenance); err != nil {
		return nil, err
	}

	// ==========================================
	// CACHES
	// ==========================================
	instances.ClientDataClean = clientdata.NewCleanupJob(container.ClientDataRepo, log)
	if err := sched.AddJob(ScheduleClientDataClean, instances.ClientDataClean); err != nil {
		return nil, err
	}

	// Redis expires keys itself and the sqlite cache is swept by the
	// client data cleanup job
	if container.MemoryCache != nil {
		instances.OrderBookEvict = orderbook.NewEvictJob(container.MemoryCache, cfg.OrderBook.TTL, log)
		if err := sched.AddJob(ScheduleOrderBookEvict, instances.OrderBookEvict); err != nil {
			return nil, err
		}
	}

	// ==========================================
	// SIMULATION AND BACKUPS
	// ==========================================
	if cfg.Prices.Simulation {
		instances.PriceRandomWalk = prices.NewRandomWalkJob(container.Oracle, orderbook.NewSeededRandom(0), log)
		if err := sched.AddJob(cfg.Prices.SimulationCron, instances.PriceRandomWalk); err != nil {
			return nil, err
		}
	}

	if container.BackupService != nil {
		instances.LedgerBackup = reliability.NewBackupJob(container.BackupService)
		if err := sched.AddJob(cfg.Backup.Schedule, instances.LedgerBackup); err != nil {
			return nil, err
		}
	}

	log.Info().Strs("jobs", sched.Jobs()).Msg("Jobs registered")

	return instances, nil
}
