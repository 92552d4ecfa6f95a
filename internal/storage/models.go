package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ModelRepository is the car model catalogue. The hub reads it to validate
// the selected model and to auto-switch when the selection disappears.
type ModelRepository interface {
	// GetByID retrieves a car model by primary key.
	// Returns ErrModelNotFound if no such model exists.
	GetByID(ctx context.Context, id int64) (*CarModel, error)

	// List retrieves all car models ordered by primary key.
	List(ctx context.Context) ([]CarModel, error)
}

// SQLiteModelRepository implements ModelRepository using SQLite.
type SQLiteModelRepository struct {
	db *sql.DB
}

// NewSQLiteModelRepository creates a new SQLite-backed model repository.
func NewSQLiteModelRepository(db *sql.DB) *SQLiteModelRepository {
	return &SQLiteModelRepository{db: db}
}

// GetByID retrieves a car model by primary key.
func (r *SQLiteModelRepository) GetByID(ctx context.Context, id int64) (*CarModel, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, manufacturer, car_name, car_type FROM car_models WHERE id = ?`, id)

	model, err := scanModel(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrModelNotFound
		}
		return nil, fmt.Errorf("querying car model by id: %w", err)
	}
	return model, nil
}

// List retrieves all car models ordered by primary key, so the first row is
// the stable auto-switch target.
func (r *SQLiteModelRepository) List(ctx context.Context) ([]CarModel, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, manufacturer, car_name, car_type FROM car_models ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying car models: %w", err)
	}
	defer rows.Close()

	var models []CarModel
	for rows.Next() {
		var m CarModel
		var manufacturer, carType sql.NullString
		if err := rows.Scan(&m.ID, &manufacturer, &m.CarName, &carType); err != nil {
			return nil, fmt.Errorf("scanning car model row: %w", err)
		}
		m.Manufacturer = manufacturer.String
		m.CarType = carType.String
		models = append(models, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating car models: %w", err)
	}
	return models, nil
}

func scanModel(row *sql.Row) (*CarModel, error) {
	var m CarModel
	var manufacturer, carType sql.NullString

	if err := row.Scan(&m.ID, &manufacturer, &m.CarName, &carType); err != nil {
		return nil, err
	}

	m.Manufacturer = manufacturer.String
	m.CarType = carType.String
	return &m, nil
}
