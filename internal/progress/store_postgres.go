package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresStore persists student progress records as jsonb rows in the
// student_progress table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed progress store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Load(ctx context.Context, studentID string) (*StudentRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data
		 FROM student_progress
		 WHERE student_id = $1`,
		studentID,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("student %q: %w", studentID, ErrStudentNotFound)
		}
		return nil, fmt.Errorf("load progress: %w", err)
	}

	rec := newStudentRecord(studentID)
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("decode progress record: %w", err)
	}
	rec.StudentID = studentID
	return rec, nil
}

func (s *PostgresStore) Save(ctx context.Context, rec *StudentRecord) error {
	if rec == nil || rec.StudentID == "" {
		return fmt.Errorf("student record with student_id is required")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode progress record: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err = s.pool.Exec(ctx,
		`INSERT INTO student_progress (student_id, data, updated_at)
		 VALUES ($1, $2::jsonb, NOW())
		 ON CONFLICT (student_id)
		 DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		rec.StudentID,
		string(data),
	)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}
