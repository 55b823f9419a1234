package scheduler

import (
	"testing"

	testdb "github.com/aristath/bourse/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestCheckDatabasesJob(t *testing.T) {
	ledger, cleanupLedger := testdb.NewTestDB(t, "ledger")
	defer cleanupLedger()
	cache, cleanupCache := testdb.NewTestDB(t, "cache")
	defer cleanupCache()

	job := NewCheckDatabasesJob(zerolog.Nop(), ledger, cache, nil)
	assert.Equal(t, "check_databases", job.Name())
	assert.NoError(t, job.Run())
}

func TestCheckWALCheckpointsJob_Name(t *testing.T) {
	job := NewCheckWALCheckpointsJob(zerolog.Nop())
	assert.Equal(t, "check_wal_checkpoints", job.Name())
}

func TestCheckWALCheckpointsJob_Run_NoDatabases(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	job := NewCheckWALCheckpointsJob(log, nil, nil)

	assert.NoError(t, job.Run()) // Should handle nil databases gracefully
}

func TestCheckWALCheckpointsJob_Run(t *testing.T) {
	ledger, cleanup := testdb.NewTestDB(t, "ledger")
	defer cleanup()

	job := NewCheckWALCheckpointsJob(zerolog.Nop(), ledger)
	assert.NoError(t, job.Run())
}
