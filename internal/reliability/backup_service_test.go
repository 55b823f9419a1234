package reliability

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/aristath/bourse/internal/events"
	testdb "github.com/aristath/bourse/internal/testing"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory ObjectStore.
type memStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploadErr error
}

func newMemStore(keys ...string) *memStore {
	s := &memStore{objects: make(map[string][]byte)}
	for _, k := range keys {
		s.objects[k] = []byte("old")
	}
	return s
}

func (s *memStore) Upload(_ context.Context, key string, body io.Reader) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *memStore) List(_ context.Context, _ string) ([]ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ObjectInfo, 0, len(s.objects))
	for k, v := range s.objects {
		out = append(out, ObjectInfo{Key: k, SizeBytes: int64(len(v))})
	}
	return out, nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func TestBackupService_CreateAndUpload(t *testing.T) {
	db, cleanup := testdb.NewTestDB(t, "ledger")
	defer cleanup()
	testdb.SeedPortfolio(t, db, "p1", "user-1", "1000")

	log := zerolog.New(nil).Level(zerolog.Disabled)
	bus := events.NewBus(log)
	var completed []*events.Event
	bus.Subscribe(events.BackupCompleted, func(e *events.Event) { completed = append(completed, e) })

	store := newMemStore(
		"bourse-ledger-2024-01-01-030000.db.gz",
		"bourse-ledger-2024-01-02-030000.db.gz",
		"bourse-ledger-2024-01-03-030000.db.gz",
		"unrelated.txt",
	)
	svc := NewBackupService(db, store, t.TempDir(), 2, events.NewManager(bus, nil, log), log)
	svc.now = func() time.Time { return time.Date(2030, 6, 1, 3, 0, 0, 0, time.UTC) }

	result, err := svc.CreateAndUpload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "bourse-ledger-2030-06-01-030000.db.gz", result.Key)
	assert.Equal(t, 2, result.Pruned)
	assert.Contains(t, result.Checksum, "sha256:")

	assert.Equal(t, []string{
		"bourse-ledger-2024-01-03-030000.db.gz",
		"bourse-ledger-2030-06-01-030000.db.gz",
		"unrelated.txt",
	}, store.keys())

	gz, err := gzip.NewReader(bytes.NewReader(store.objects[result.Key]))
	require.NoError(t, err)
	raw, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("SQLite format 3\x00")))

	require.Len(t, completed, 1)
	assert.Equal(t, result.Key, completed[0].Data["key"])
}

func TestBackupService_UploadFailure(t *testing.T) {
	db, cleanup := testdb.NewTestDB(t, "ledger")
	defer cleanup()

	store := newMemStore("bourse-ledger-2024-01-01-030000.db.gz")
	store.uploadErr = errors.New("bucket unavailable")

	svc := NewBackupService(db, store, t.TempDir(), 1, nil, zerolog.Nop())
	_, err := svc.CreateAndUpload(context.Background())
	assert.Error(t, err)
	assert.Len(t, store.keys(), 1, "nothing is pruned when the upload fails")
}

func TestBackupJob(t *testing.T) {
	db, cleanup := testdb.NewTestDB(t, "ledger")
	defer cleanup()

	store := newMemStore()
	job := NewBackupJob(NewBackupService(db, store, t.TempDir(), 7, nil, zerolog.Nop()))
	assert.Equal(t, "ledger_backup", job.Name())
	require.NoError(t, job.Run())
	assert.Len(t, store.keys(), 1)
}

func TestMaintenanceJob_DiskSpace(t *testing.T) {
	db, cleanup := testdb.NewTestDB(t, "cache")
	defer cleanup()

	testCases := []struct {
		name    string
		free    uint64
		wantErr bool
	}{
		{name: "plenty", free: 100e9},
		{name: "low", free: 2e9},
		{name: "critical", free: 1e8, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			job := NewMaintenanceJob(t.TempDir(), zerolog.Nop(), db)
			job.usage = func(string) (*disk.UsageStat, error) {
				return &disk.UsageStat{Free: tc.free}, nil
			}
			err := job.Run()
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
