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

var _ repository.RecordRepository = (*DB)(nil)

func (db *DB) CreateRecord(ctx context.Context, record *model.Record) error {
	record.ID = xid.New().String()

	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO records (id, vehicle_id, service_date, task, cost, mileage, verification_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.VehicleID,
		record.Date,
		record.Task,
		record.Cost,
		record.Mileage,
		record.VerificationHash,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating record: %w", err)
	}

	return nil
}

func (db *DB) GetRecordByID(ctx context.Context, id string) (*model.Record, error) {
	var r model.Record

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, vehicle_id, service_date, task, cost, mileage, verification_hash, created_at, updated_at
		 FROM records WHERE id = ?`,
		id,
	).Scan(
		&r.ID,
		&r.VehicleID,
		&r.Date,
		&r.Task,
		&r.Cost,
		&r.Mileage,
		&r.VerificationHash,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("record", id)
		}
		return nil, fmt.Errorf("sqlite: getting record %s: %w", id, err)
	}

	return &r, nil
}

// ListRecordsByVehicle returns a vehicle's service history, newest service
// date first. Ties (two services the same day) fall back to insertion order
// via created_at.
func (db *DB) ListRecordsByVehicle(ctx context.Context, vehicleID string) ([]model.Record, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, vehicle_id, service_date, task, cost, mileage, verification_hash, created_at, updated_at
		 FROM records
		 WHERE vehicle_id = ?
		 ORDER BY service_date DESC, created_at DESC`,
		vehicleID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing records for vehicle %s: %w", vehicleID, err)
	}
	defer rows.Close()

	records := []model.Record{}
	for rows.Next() {
		var r model.Record
		if err := rows.Scan(
			&r.ID, &r.VehicleID, &r.Date, &r.Task, &r.Cost,
			&r.Mileage, &r.VerificationHash, &r.CreatedAt, &r.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning record row: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating records: %w", err)
	}

	return records, nil
}

func (db *DB) UpdateRecord(ctx context.Context, record *model.Record) error {
	record.UpdatedAt = time.Now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE records
		 SET service_date = ?, task = ?, cost = ?, mileage = ?, verification_hash = ?, updated_at = ?
		 WHERE id = ?`,
		record.Date,
		record.Task,
		record.Cost,
		record.Mileage,
		record.VerificationHash,
		record.UpdatedAt,
		record.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating record %s: %w", record.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("record", record.ID)
	}

	return nil
}

func (db *DB) DeleteRecord(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM records WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting record %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("record", id)
	}

	return nil
}
