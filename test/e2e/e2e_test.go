//go:build e2e

// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dispatch-workers/internal/audit"
	"dispatch-workers/internal/common/config"
	"dispatch-workers/internal/common/database"
	"dispatch-workers/internal/common/logger"
	"dispatch-workers/internal/dispatch"
	"dispatch-workers/internal/dispatch/sequencing"
	"dispatch-workers/internal/models"
	"dispatch-workers/internal/store"
)

// TestEnvironment holds the live clients one e2e run needs.
type TestEnvironment struct {
	Config     *config.Config
	Postgres   *database.PostgresClient
	Redis      *database.RedisClient
	Dispatcher *dispatch.Dispatcher
	Store      *store.PostgresStore
}

func setupEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg, err := config.Load()
	require.NoError(t, err)

	// e2e always runs against the local compose stack
	cfg.Database.Postgres.Host = "localhost"
	cfg.Database.Redis.Address = "localhost:6379"

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err, "PostgreSQL connection failed")
	if err := pg.Ping(ctx); err != nil {
		t.Skipf("PostgreSQL not reachable: %v", err)
	}
	t.Cleanup(func() { pg.Close() })

	rdb, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err, "Redis connection failed")
	if err := rdb.Ping(ctx); err != nil {
		t.Skipf("Redis not reachable: %v", err)
	}
	t.Cleanup(func() { rdb.Close() })

	log := logger.NewTestLogger(t)
	pgStore := store.NewPostgresStore(pg.DB, log)
	locker := store.NewRedisLocker(rdb.Client, store.LockOptions{
		TTL:  5 * time.Second,
		Wait: 3 * time.Second,
	}, log)

	return &TestEnvironment{
		Config:   cfg,
		Postgres: pg,
		Redis:    rdb,
		Store:    pgStore,
		Dispatcher: dispatch.New(pgStore, locker, log, dispatch.Options{
			Recorder: audit.NoopRecorder{},
		}),
	}
}

func createDatabaseTables(t *testing.T, db *sql.DB) {
	t.Helper()
	queries := []string{
		`CREATE TABLE IF NOT EXISTS doctors (
			id             TEXT PRIMARY KEY,
			name           TEXT NOT NULL UNIQUE,
			color          TEXT,
			specialty      TEXT,
			phone          TEXT,
			start_location TEXT,
			latitude       DOUBLE PRECISION,
			longitude      DOUBLE PRECISION,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS appointments (
			id            TEXT PRIMARY KEY,
			customer_name TEXT,
			pet_type      TEXT NOT NULL,
			issue         TEXT NOT NULL,
			location      TEXT,
			visit_date    DATE NOT NULL,
			visit_time    TEXT,
			status        TEXT NOT NULL DEFAULT 'Pending',
			doctor_name   TEXT,
			order_number  INTEGER,
			latitude      DOUBLE PRECISION,
			longitude     DOUBLE PRECISION,
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`TRUNCATE appointments, doctors`,
	}
	for _, q := range queries {
		_, err := db.Exec(q)
		require.NoError(t, err, q)
	}
}

func seedTestData(t *testing.T, db *sql.DB) {
	t.Helper()
	doctors := []struct {
		id, name, specialty string
		lat, lng            float64
	}{
		{"d1", "Dr. Near", "Dogs", 12.9716, 77.5946},
		{"d2", "Dr. Far", "Cats", 13.3000, 77.9000},
	}
	for i, d := range doctors {
		_, err := db.Exec(
			`INSERT INTO doctors (id, name, specialty, latitude, longitude, created_at) VALUES ($1, $2, $3, $4, $5, now() + make_interval(secs => $6))`,
			d.id, d.name, d.specialty, d.lat, d.lng, i,
		)
		require.NoError(t, err)
	}

	appointments := []struct {
		id, doctor string
		order      sql.NullInt64
	}{
		{"e2e-1", "Dr. Near", sql.NullInt64{Int64: 1, Valid: true}},
		{"e2e-2", "Dr. Near", sql.NullInt64{Int64: 2, Valid: true}},
		{"e2e-3", "", sql.NullInt64{}},
		{"e2e-4", "", sql.NullInt64{}},
	}
	for _, a := range appointments {
		var doctor sql.NullString
		if a.doctor != "" {
			doctor = sql.NullString{String: a.doctor, Valid: true}
		}
		_, err := db.Exec(
			`INSERT INTO appointments (id, pet_type, issue, visit_date, doctor_name, order_number, latitude, longitude) VALUES ($1, 'Dog', 'Checkup', '2024-01-10', $2, $3, 12.98, 77.60)`,
			a.id, doctor, a.order,
		)
		require.NoError(t, err)
	}
}

func visitIDs(list []models.Appointment) []string {
	ids := make([]string, len(list))
	for i, a := range list {
		ids[i] = a.ID
	}
	return ids
}

func TestDispatchE2E(t *testing.T) {
	env := setupEnvironment(t)
	createDatabaseTables(t, env.Postgres.DB)
	seedTestData(t, env.Postgres.DB)
	ctx := context.Background()

	t.Run("suggest ranks the nearby dog doctor first", func(t *testing.T) {
		res, err := env.Dispatcher.Suggest(ctx, "e2e-3", 5, nil)
		require.NoError(t, err)
		require.NotEmpty(t, res.Suggestions)
		assert.Equal(t, "Dr. Near", res.Suggestions[0].Doctor.Name)
	})

	t.Run("assign appends to the end of the list", func(t *testing.T) {
		res, err := env.Dispatcher.Assign(ctx, "e2e-3", "Dr. Near")
		require.NoError(t, err)
		assert.Equal(t, sequencing.OpAssign, res.Plan.Operation)
		assert.Equal(t, []string{"e2e-1", "e2e-2", "e2e-3"}, visitIDs(res.VisitList("Dr. Near")))

		appt, err := env.Store.LoadAppointment(ctx, "e2e-3")
		require.NoError(t, err)
		assert.Equal(t, "Dr. Near", appt.DoctorName)
		assert.Equal(t, 3, appt.OrderNumber)
	})

	t.Run("reorder moves a visit to the front", func(t *testing.T) {
		res, err := env.Dispatcher.Reorder(ctx, "Dr. Near", "e2e-3", 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"e2e-3", "e2e-1", "e2e-2"}, visitIDs(res.VisitList("Dr. Near")))
	})

	t.Run("concurrent assigns keep a dense sequence", func(t *testing.T) {
		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i, id := range []string{"e2e-4", "e2e-1"} {
			wg.Add(1)
			go func(i int, id string) {
				defer wg.Done()
				_, errs[i] = env.Dispatcher.Assign(ctx, id, "Dr. Far")
			}(i, id)
		}
		wg.Wait()
		require.NoError(t, errs[0])
		require.NoError(t, errs[1])

		snap, err := env.Store.LoadSnapshot(ctx)
		require.NoError(t, err)
		for _, doctor := range []string{"Dr. Near", "Dr. Far"} {
			orders := make(map[int]bool)
			for _, a := range snap.Appointments {
				if a.DoctorName == doctor {
					orders[a.OrderNumber] = true
				}
			}
			for n := 1; n <= len(orders); n++ {
				assert.True(t, orders[n], "%s is missing order %d", doctor, n)
			}
		}
	})

	t.Run("release clears every visit of the doctor", func(t *testing.T) {
		_, err := env.Dispatcher.Release(ctx, "Dr. Far")
		require.NoError(t, err)

		sched, err := env.Dispatcher.Schedule(ctx, "Dr. Far", "")
		require.NoError(t, err)
		assert.Empty(t, sched.Visits)
	})
}
