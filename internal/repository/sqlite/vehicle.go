package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/carkeeper/internal/apperror"
	"github.com/sakif/carkeeper/internal/model"
	"github.com/sakif/carkeeper/internal/repository"
)

var _ repository.VehicleRepository = (*DB)(nil)

// CreateVehicle inserts a new vehicle.
//
// PARAMETERIZED QUERIES (the ? placeholders):
// NEVER build SQL strings with fmt.Sprintf or string concatenation — that is
// how SQL injection happens. The driver escapes every placeholder value.
func (db *DB) CreateVehicle(ctx context.Context, vehicle *model.Vehicle) error {
	vehicle.ID = xid.New().String()

	now := time.Now()
	vehicle.CreatedAt = now
	vehicle.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO vehicles (id, user_id, make, model, year, license_plate, current_mileage, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		vehicle.ID,
		vehicle.UserID,
		vehicle.Make,
		vehicle.Model,
		vehicle.Year,
		vehicle.LicensePlate,
		vehicle.CurrentMileage,
		vehicle.CreatedAt,
		vehicle.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating vehicle: %w", err)
	}

	return nil
}

func (db *DB) GetVehicleByID(ctx context.Context, id string) (*model.Vehicle, error) {
	var v model.Vehicle

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, make, model, year, license_plate, current_mileage, created_at, updated_at
		 FROM vehicles WHERE id = ?`,
		id,
	).Scan(
		&v.ID,
		&v.UserID,
		&v.Make,
		&v.Model,
		&v.Year,
		&v.LicensePlate,
		&v.CurrentMileage,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		// sql.ErrNoRows is a sentinel, not a real failure — translate it to
		// the domain NotFound so the handler can answer 404.
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("vehicle", id)
		}
		return nil, fmt.Errorf("sqlite: getting vehicle %s: %w", id, err)
	}

	return &v, nil
}

// ListVehiclesByUser returns all vehicles owned by a user, oldest first —
// the registration order is the order people expect their garage in.
func (db *DB) ListVehiclesByUser(ctx context.Context, userID string) ([]model.Vehicle, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, make, model, year, license_plate, current_mileage, created_at, updated_at
		 FROM vehicles
		 WHERE user_id = ?
		 ORDER BY created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing vehicles for user %s: %w", userID, err)
	}
	// CRITICAL: sql.Rows holds a pooled connection; forgetting Close() leaks
	// it and eventually the whole pool hangs.
	defer rows.Close()

	vehicles := []model.Vehicle{}
	for rows.Next() {
		var v model.Vehicle
		if err := rows.Scan(
			&v.ID, &v.UserID, &v.Make, &v.Model, &v.Year,
			&v.LicensePlate, &v.CurrentMileage, &v.CreatedAt, &v.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning vehicle row: %w", err)
		}
		vehicles = append(vehicles, v)
	}

	// rows.Err() catches errors that happened DURING iteration, e.g. the
	// connection dropping mid-scan.
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating vehicles: %w", err)
	}

	return vehicles, nil
}

// UpdateVehicle writes the full edited vehicle. RowsAffected()==0 means the
// WHERE clause matched nothing — the vehicle doesn't exist.
func (db *DB) UpdateVehicle(ctx context.Context, vehicle *model.Vehicle) error {
	vehicle.UpdatedAt = time.Now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE vehicles
		 SET make = ?, model = ?, year = ?, license_plate = ?, current_mileage = ?, updated_at = ?
		 WHERE id = ?`,
		vehicle.Make,
		vehicle.Model,
		vehicle.Year,
		vehicle.LicensePlate,
		vehicle.CurrentMileage,
		vehicle.UpdatedAt,
		vehicle.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating vehicle %s: %w", vehicle.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("vehicle", vehicle.ID)
	}

	return nil
}

// DeleteVehicle removes a vehicle. The ON DELETE CASCADE constraint on
// records.vehicle_id deletes the service history in the same statement —
// no application-level cleanup, no window where orphaned records exist.
func (db *DB) DeleteVehicle(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM vehicles WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting vehicle %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("vehicle", id)
	}

	return nil
}

// Summary recomputes the user's spending aggregate from scratch.
//
// COALESCE handles the zero-records case: SUM over an empty set is NULL in
// SQL, and Scan would choke trying to put NULL into a float64.
func (db *DB) Summary(ctx context.Context, userID string) (*model.Summary, error) {
	var s model.Summary

	err := db.conn.QueryRowContext(ctx,
		`SELECT
		   COALESCE((SELECT SUM(r.cost)
		             FROM records r
		             JOIN vehicles v ON v.id = r.vehicle_id
		             WHERE v.user_id = ?), 0),
		   (SELECT COUNT(*) FROM vehicles WHERE user_id = ?)`,
		userID, userID,
	).Scan(&s.TotalCost, &s.VehicleCount)
	if err != nil {
		return nil, fmt.Errorf("sqlite: computing summary for user %s: %w", userID, err)
	}

	return &s, nil
}
