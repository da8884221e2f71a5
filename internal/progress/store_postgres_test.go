package progress_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	pgtc "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/fastwise/tutr/internal/platform/database"
	"github.com/fastwise/tutr/internal/progress"
)

// startPostgres spins up a disposable PostgreSQL container and returns a
// connected pool with the schema applied.
func startPostgres(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	ctr, err := pgtc.Run(ctx, "postgres:16-alpine",
		pgtc.WithDatabase("tutr"),
		pgtc.WithUsername("tutr"),
		pgtc.WithPassword("tutr"),
		pgtc.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("terminating container: %v", err)
		}
	})

	url, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, err := database.New(dialCtx, database.Config{URL: url, MaxConns: 5, MinConns: 1})
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	t.Cleanup(db.Close)

	if err := database.EnsureSchema(dialCtx, db.Pool); err != nil {
		t.Fatalf("ensuring schema: %v", err)
	}
	return db
}

func TestPostgresStore_RoundTrip(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()

	store, err := progress.NewPostgresStore(db.Pool)
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}

	if _, err := store.Load(ctx, "nobody"); !errors.Is(err, progress.ErrStudentNotFound) {
		t.Fatalf("Load(nobody) error = %v, want ErrStudentNotFound", err)
	}

	rec := &progress.StudentRecord{
		StudentID: "s1",
		Questions: map[string]progress.QuestionState{
			"q1": {Attempts: 3, Mastered: true},
			"q2": {Attempts: 1},
		},
		Concepts:    map[string]bool{"Addition": true},
		SubConcepts: map[string]bool{"Carrying": true},
	}
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Questions["q1"].Attempts != 3 || !got.Questions["q1"].Mastered {
		t.Errorf("Questions[q1] = %+v, want attempts 3 mastered", got.Questions["q1"])
	}
	if !got.Concepts["Addition"] || !got.SubConcepts["Carrying"] {
		t.Error("mastered concepts should survive the round trip")
	}

	// Upsert replaces the previous record.
	rec.Questions["q2"] = progress.QuestionState{Attempts: 2}
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save() upsert error = %v", err)
	}
	got, err = store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load() after upsert error = %v", err)
	}
	if got.Questions["q2"].Attempts != 2 {
		t.Errorf("Questions[q2].Attempts = %d, want 2", got.Questions["q2"].Attempts)
	}
}

func TestPostgresEventLogger_Insert(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()

	logger := progress.NewPostgresEventLogger(db.Pool)
	err := logger.LogEvent(progress.Event{
		StudentID:  "s1",
		QuestionID: "q1",
		Type:       progress.EventCompletion,
		Data:       map[string]any{"mastered": true},
	})
	if err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}

	var count int
	if err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM progress_events WHERE student_id = 's1'`,
	).Scan(&count); err != nil {
		t.Fatalf("counting events: %v", err)
	}
	if count != 1 {
		t.Errorf("event count = %d, want 1", count)
	}
}
