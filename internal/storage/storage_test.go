package storage

import (
	"context"
	"errors"
	"testing"

	_ "github.com/aerolab/tunnelcore/migrations"

	"github.com/aerolab/tunnelcore/internal/infrastructure/database"
)

// setupTestDB opens an in-memory SQLite database with the full schema applied.
func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{
		Path:        ":memory:",
		BusyTimeout: 1,
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *database.DB, email string) int64 {
	t.Helper()
	res, err := db.ExecContext(context.Background(),
		`INSERT INTO users (name, surname, email, is_verified) VALUES (?, ?, ?, 1)`,
		"Test", "Operator", email)
	if err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	id, _ := res.LastInsertId() //nolint:errcheck // SQLite always returns an id
	return id
}

func seedModel(t *testing.T, db *database.DB, name string) int64 {
	t.Helper()
	res, err := db.ExecContext(context.Background(),
		`INSERT INTO car_models (manufacturer, car_name, car_type) VALUES (?, ?, ?)`,
		"Aerolab", name, "prototype")
	if err != nil {
		t.Fatalf("seeding car model: %v", err)
	}
	id, _ := res.LastInsertId() //nolint:errcheck // SQLite always returns an id
	return id
}

func TestUserRepository_GetByEmail(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteUserRepository(db.DB)
	ctx := context.Background()

	id := seedUser(t, db, "operator@aerolab.test")

	user, err := repo.GetByEmail(ctx, "operator@aerolab.test")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if user.ID != id {
		t.Errorf("user.ID = %d, want %d", user.ID, id)
	}
	if user.Email != "operator@aerolab.test" {
		t.Errorf("user.Email = %q", user.Email)
	}

	_, err = repo.GetByEmail(ctx, "nobody@aerolab.test")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByEmail(missing) error = %v, want ErrUserNotFound", err)
	}
}

func TestUserRepository_GetByID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteUserRepository(db.DB)
	ctx := context.Background()

	id := seedUser(t, db, "second@aerolab.test")

	user, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if user.Email != "second@aerolab.test" {
		t.Errorf("user.Email = %q", user.Email)
	}

	if _, err := repo.GetByID(ctx, 9999); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByID(missing) error = %v, want ErrUserNotFound", err)
	}
}

func TestModelRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteModelRepository(db.DB)
	ctx := context.Background()

	first := seedModel(t, db, "GT-40")
	seedModel(t, db, "911 RSR")

	model, err := repo.GetByID(ctx, first)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if model.CarName != "GT-40" {
		t.Errorf("CarName = %q, want GT-40", model.CarName)
	}

	if _, err := repo.GetByID(ctx, 9999); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("GetByID(missing) error = %v, want ErrModelNotFound", err)
	}

	models, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("List() returned %d models, want 2", len(models))
	}
	// First row is the auto-switch target; ordering must be stable.
	if models[0].ID != first {
		t.Errorf("List()[0].ID = %d, want %d", models[0].ID, first)
	}
}

func TestTestRepository_AppendAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteTestRepository(db.DB)
	ctx := context.Background()

	userID := seedUser(t, db, "recorder@aerolab.test")
	modelID := seedModel(t, db, "Speedtail")

	for i := 0; i < 3; i++ {
		err := repo.Append(ctx, TestSample{
			DragForce: float64(i) + 0.5,
			DownForce: float64(i) * 2,
			WindSpeed: 20,
			ModelID:   modelID,
			UserID:    userID,
		})
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	samples, err := repo.ListByModel(ctx, modelID, 2)
	if err != nil {
		t.Fatalf("ListByModel() error = %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("ListByModel() returned %d samples, want 2", len(samples))
	}
	// Newest first.
	if samples[0].DragForce != 2.5 {
		t.Errorf("samples[0].DragForce = %v, want 2.5 (newest)", samples[0].DragForce)
	}
	if samples[0].CreatedAt.IsZero() {
		t.Error("CreatedAt not set on stored sample")
	}
}

func TestTestRepository_ForeignKeysEnforced(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteTestRepository(db.DB)

	err := repo.Append(context.Background(), TestSample{
		DragForce: 1,
		DownForce: 1,
		WindSpeed: 1,
		ModelID:   424242,
		UserID:    424242,
	})
	if err == nil {
		t.Error("Append() with dangling references succeeded, want foreign key error")
	}
}
