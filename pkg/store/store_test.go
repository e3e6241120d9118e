package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/vnykmshr/wareflow/pkg/report"
	"github.com/vnykmshr/wareflow/pkg/scheduling/rules"
	"github.com/vnykmshr/wareflow/pkg/warehouse"
)

var base = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func makeRun(i int) *report.Run {
	return &report.Run{
		ID:         fmt.Sprintf("run-%d", i),
		StartedAt:  base.Add(time.Duration(i) * time.Minute),
		FinishedAt: base.Add(time.Duration(i)*time.Minute + time.Second),
		Decision:   rules.Decision{Rule: rules.Priority, Initial: i == 0},
		Orders:     []warehouse.Order{{ID: "ORD2025001", Material: "food ingredients", Target: "A3"}},
		Deviations: []warehouse.Deviation{
			{EquipmentID: "AGV1", CommandID: "CMD2025001", Position: 1, Progress: 0.9, Score: 9.3, OverThreshold: true},
			{EquipmentID: "SORTER1", CommandID: "CMD2025002", Progress: 0.05, Score: 0.35},
		},
		Calibrated: 1,
	}
}

// runStoreTests exercises the behaviour every backend shares.
func runStoreTests(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.Latest(ctx)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.Error(t, s.Save(ctx, nil))
	require.Error(t, s.Save(ctx, &report.Run{}))

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Save(ctx, makeRun(i)))
	}

	latest, err := s.Latest(ctx)
	require.NoError(t, err)
	require.Equal(t, "run-2", latest.ID)

	got, err := s.Get(ctx, "run-1")
	require.NoError(t, err)
	require.Equal(t, "run-1", got.ID)
	require.True(t, got.StartedAt.Equal(base.Add(time.Minute)))
	require.Len(t, got.Deviations, 2)
	require.Equal(t, rules.Priority, got.Decision.Rule)

	list, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "run-2", list[0].ID)
	require.Equal(t, "run-1", list[1].ID)
	require.Equal(t, 1, list[0].OverThreshold)
	require.Equal(t, time.Second, list[0].Duration)

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)

	// Saving an existing ID replaces it.
	updated := makeRun(2)
	updated.Calibrated = 5
	require.NoError(t, s.Save(ctx, updated))
	all, err = s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, 5, all[0].Calibrated)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	defer s.Close()
	runStoreTests(t, s)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.Save(ctx, makeRun(0)))

	got, err := s.Get(ctx, "run-0")
	require.NoError(t, err)
	got.Calibrated = 99

	again, err := s.Get(ctx, "run-0")
	require.NoError(t, err)
	require.Equal(t, 1, again.Calibrated)
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer s.Close()
	runStoreTests(t, s)

	counts, err := s.Calibrations(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[string]int{"AGV1": 3}, counts)
}

func TestSQLiteStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, makeRun(7)))
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	latest, err := reopened.Latest(ctx)
	require.NoError(t, err)
	require.Equal(t, "run-7", latest.ID)
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skip("Redis not available, skipping")
	}

	prefix := fmt.Sprintf("wareflow-test-%d", time.Now().UnixNano())
	s := NewRedis(client, RedisConfig{Prefix: prefix, TTL: time.Minute, Keep: 10})
	defer s.Close()
	defer func() {
		keys, _ := client.Keys(ctx, prefix+":*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
	}()

	runStoreTests(t, s)
}

func TestRedisStoreKeepTrimsList(t *testing.T) {
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skip("Redis not available, skipping")
	}

	prefix := fmt.Sprintf("wareflow-keep-%d", time.Now().UnixNano())
	s := NewRedis(client, RedisConfig{Prefix: prefix, TTL: time.Minute, Keep: 2})
	defer s.Close()
	defer func() {
		keys, _ := client.Keys(ctx, prefix+":*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
	}()

	for i := 0; i < 4; i++ {
		require.NoError(t, s.Save(ctx, makeRun(i)))
	}
	list, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "run-3", list[0].ID)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{Backend: BackendMemory})
	require.NoError(t, err)
	require.IsType(t, &Memory{}, s)
	require.NoError(t, s.Close())

	s, err = Open(ctx, Config{Backend: BackendSQLite, Path: filepath.Join(t.TempDir(), "open.db")})
	require.NoError(t, err)
	require.IsType(t, &SQLite{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, Config{Backend: "etcd"})
	require.Error(t, err)
}
