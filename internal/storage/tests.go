package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// TestRepository stores recorded measurement samples.
type TestRepository interface {
	// Append inserts a new sample. The sample's ID and CreatedAt are
	// assigned by the repository.
	Append(ctx context.Context, sample TestSample) error

	// ListByModel retrieves the most recent samples for a car model,
	// newest first, up to limit.
	ListByModel(ctx context.Context, modelID int64, limit int) ([]TestSample, error)
}

// defaultListLimit bounds ListByModel when the caller passes no limit.
const defaultListLimit = 50

// SQLiteTestRepository implements TestRepository using SQLite.
type SQLiteTestRepository struct {
	db *sql.DB
}

// NewSQLiteTestRepository creates a new SQLite-backed test sample repository.
func NewSQLiteTestRepository(db *sql.DB) *SQLiteTestRepository {
	return &SQLiteTestRepository{db: db}
}

// Append inserts a new sample.
func (r *SQLiteTestRepository) Append(ctx context.Context, sample TestSample) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO test_samples (drag_force, down_force, wind_speed, model_id, user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sample.DragForce,
		sample.DownForce,
		sample.WindSpeed,
		sample.ModelID,
		sample.UserID,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting test sample: %w", err)
	}
	return nil
}

// ListByModel retrieves the most recent samples for a car model, newest first.
func (r *SQLiteTestRepository) ListByModel(ctx context.Context, modelID int64, limit int) ([]TestSample, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, drag_force, down_force, wind_speed, model_id, user_id, created_at
		FROM test_samples
		WHERE model_id = ?
		ORDER BY id DESC
		LIMIT ?`,
		modelID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying test samples: %w", err)
	}
	defer rows.Close()

	var samples []TestSample
	for rows.Next() {
		var s TestSample
		var createdAt string
		if err := rows.Scan(&s.ID, &s.DragForce, &s.DownForce, &s.WindSpeed,
			&s.ModelID, &s.UserID, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning test sample row: %w", err)
		}
		s.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt) //nolint:errcheck // Format is controlled
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating test samples: %w", err)
	}
	return samples, nil
}
