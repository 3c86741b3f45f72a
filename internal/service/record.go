package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/carkeeper/internal/apperror"
	"github.com/sakif/carkeeper/internal/model"
	"github.com/sakif/carkeeper/internal/repository"
)

const MaxTaskLength = 500

// RecordService handles business logic for service records. It also owns
// the one cross-entity rule in the app: saving a record with a higher
// odometer reading advances the vehicle's current mileage.
type RecordService struct {
	records  repository.RecordRepository
	vehicles repository.VehicleRepository
	logger   *slog.Logger
}

func NewRecordService(
	records repository.RecordRepository,
	vehicles repository.VehicleRepository,
	logger *slog.Logger,
) *RecordService {
	return &RecordService{
		records:  records,
		vehicles: vehicles,
		logger:   logger,
	}
}

// validateRecord enforces the field rules shared by Create and Update.
//
// MILEAGE POLICY:
// Record mileage is NOT required to be monotonic across a vehicle's history.
// People back-enter old invoices, and rejecting a record because a later one
// is already saved would make that impossible. The rules that ARE enforced:
// mileage and cost must not be negative, and the vehicle's current mileage
// only ever moves forward (see bumpVehicleMileage).
func validateRecord(r *model.Record) error {
	r.Task = strings.TrimSpace(r.Task)
	r.Date = strings.TrimSpace(r.Date)

	if r.Task == "" {
		return apperror.ValidationFailed("task", "task description is required")
	}
	if len(r.Task) > MaxTaskLength {
		return apperror.ValidationFailed("task",
			fmt.Sprintf("task must be at most %d characters", MaxTaskLength))
	}
	if _, err := time.Parse(model.DateLayout, r.Date); err != nil {
		return apperror.ValidationFailed("date", "date must be in YYYY-MM-DD format")
	}
	if r.Cost < 0 {
		return apperror.ValidationFailed("cost", "cost must not be negative")
	}
	if r.Mileage < 0 {
		return apperror.ValidationFailed("mileage", "mileage must not be negative")
	}
	return nil
}

// Create validates and saves a new service record for a vehicle owned by
// ownerID, then advances the vehicle's odometer if the record reads higher.
func (s *RecordService) Create(ctx context.Context, ownerID string, record *model.Record) (*model.Record, error) {
	vehicle, err := s.ownedVehicle(ctx, record.VehicleID, ownerID)
	if err != nil {
		return nil, err
	}
	if err := validateRecord(record); err != nil {
		return nil, err
	}

	if err := s.records.CreateRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("service/record: creating record: %w", err)
	}

	if err := s.bumpVehicleMileage(ctx, vehicle, record.Mileage); err != nil {
		return nil, err
	}

	s.logger.Info("service record saved",
		slog.String("recordID", record.ID),
		slog.String("vehicleID", record.VehicleID),
		slog.String("task", record.Task),
		slog.Float64("cost", record.Cost),
	)

	return record, nil
}

// ListByVehicle returns a vehicle's service history, newest first.
func (s *RecordService) ListByVehicle(ctx context.Context, vehicleID, ownerID string) ([]model.Record, error) {
	if _, err := s.ownedVehicle(ctx, vehicleID, ownerID); err != nil {
		return nil, err
	}

	records, err := s.records.ListRecordsByVehicle(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("service/record: listing records for vehicle %s: %w", vehicleID, err)
	}

	return records, nil
}

// Update replaces the full edited record. Like vehicles, the ID and parent
// vehicle come from the stored row — a record cannot be moved between
// vehicles by editing vehicle_id.
func (s *RecordService) Update(ctx context.Context, id, ownerID string, edited *model.Record) (*model.Record, error) {
	current, err := s.records.GetRecordByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/record: fetching record %s: %w", id, err)
	}

	vehicle, err := s.ownedVehicle(ctx, current.VehicleID, ownerID)
	if err != nil {
		return nil, err
	}

	edited.ID = current.ID
	edited.VehicleID = current.VehicleID
	edited.CreatedAt = current.CreatedAt
	if err := validateRecord(edited); err != nil {
		return nil, err
	}

	if err := s.records.UpdateRecord(ctx, edited); err != nil {
		return nil, fmt.Errorf("service/record: updating record %s: %w", id, err)
	}

	if err := s.bumpVehicleMileage(ctx, vehicle, edited.Mileage); err != nil {
		return nil, err
	}

	return edited, nil
}

// Delete removes a single service record. The vehicle's mileage is left
// alone: the odometer reading was real even if the log entry was a mistake.
func (s *RecordService) Delete(ctx context.Context, id, ownerID string) error {
	current, err := s.records.GetRecordByID(ctx, id)
	if err != nil {
		return fmt.Errorf("service/record: fetching record %s: %w", id, err)
	}
	if _, err := s.ownedVehicle(ctx, current.VehicleID, ownerID); err != nil {
		return err
	}

	if err := s.records.DeleteRecord(ctx, id); err != nil {
		return fmt.Errorf("service/record: deleting record %s: %w", id, err)
	}

	return nil
}

// ownedVehicle loads a vehicle and checks it belongs to ownerID.
func (s *RecordService) ownedVehicle(ctx context.Context, vehicleID, ownerID string) (*model.Vehicle, error) {
	if vehicleID == "" {
		return nil, apperror.ValidationFailed("vehicle_id", "vehicle_id is required")
	}

	vehicle, err := s.vehicles.GetVehicleByID(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("service/record: fetching vehicle %s: %w", vehicleID, err)
	}
	if vehicle.UserID != ownerID {
		return nil, apperror.Forbidden("vehicle belongs to another user")
	}

	return vehicle, nil
}

// bumpVehicleMileage advances the vehicle's odometer to the record's reading
// when it is higher. The odometer never moves backwards: a back-dated record
// with a lower reading leaves it untouched.
func (s *RecordService) bumpVehicleMileage(ctx context.Context, vehicle *model.Vehicle, mileage int) error {
	if mileage <= vehicle.CurrentMileage {
		return nil
	}

	vehicle.CurrentMileage = mileage
	if err := s.vehicles.UpdateVehicle(ctx, vehicle); err != nil {
		return fmt.Errorf("service/record: advancing mileage for vehicle %s: %w", vehicle.ID, err)
	}

	return nil
}
