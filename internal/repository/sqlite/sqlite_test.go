package sqlite

import (
	"context"
	"testing"

	"github.com/sakif/carkeeper/internal/model"
)

// TESTING WITH IN-MEMORY SQLITE:
// ":memory:" creates a fresh database that exists only for the test — fast,
// isolated, destroyed when the connection closes. Each test gets its own.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB, username string) *model.User {
	t.Helper()
	user := &model.User{Username: username, PasswordHash: "$2b$04$fakehashfortesting"}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

func createTestVehicle(t *testing.T, db *DB, userID, make, modelName string) *model.Vehicle {
	t.Helper()
	vehicle := &model.Vehicle{
		UserID:         userID,
		Make:           make,
		Model:          modelName,
		Year:           2019,
		LicensePlate:   "ABC-1234",
		CurrentMileage: 42000,
	}
	if err := db.CreateVehicle(context.Background(), vehicle); err != nil {
		t.Fatalf("failed to create test vehicle: %v", err)
	}
	return vehicle
}

func createTestRecord(t *testing.T, db *DB, vehicleID, date, task string, cost float64, mileage int) *model.Record {
	t.Helper()
	record := &model.Record{
		VehicleID: vehicleID,
		Date:      date,
		Task:      task,
		Cost:      cost,
		Mileage:   mileage,
	}
	if err := db.CreateRecord(context.Background(), record); err != nil {
		t.Fatalf("failed to create test record: %v", err)
	}
	return record
}
