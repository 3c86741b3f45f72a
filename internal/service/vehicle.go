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

const (
	MaxMakeModelLength = 80
	MaxPlateLength     = 20
	MinVehicleYear     = 1900
)

// VehicleService handles business logic for vehicles and the spending
// summary.
type VehicleService struct {
	vehicles repository.VehicleRepository
	logger   *slog.Logger
}

func NewVehicleService(vehicles repository.VehicleRepository, logger *slog.Logger) *VehicleService {
	return &VehicleService{
		vehicles: vehicles,
		logger:   logger,
	}
}

// validateVehicle enforces the rules shared by Create and Update.
// The year upper bound allows next year's models, which dealers sell early.
func validateVehicle(v *model.Vehicle) error {
	v.Make = strings.TrimSpace(v.Make)
	v.Model = strings.TrimSpace(v.Model)
	v.LicensePlate = strings.TrimSpace(v.LicensePlate)

	if v.Make == "" {
		return apperror.ValidationFailed("make", "make is required")
	}
	if len(v.Make) > MaxMakeModelLength {
		return apperror.ValidationFailed("make",
			fmt.Sprintf("make must be at most %d characters", MaxMakeModelLength))
	}
	if v.Model == "" {
		return apperror.ValidationFailed("model", "model is required")
	}
	if len(v.Model) > MaxMakeModelLength {
		return apperror.ValidationFailed("model",
			fmt.Sprintf("model must be at most %d characters", MaxMakeModelLength))
	}
	if v.Year < MinVehicleYear || v.Year > time.Now().Year()+1 {
		return apperror.ValidationFailed("year",
			fmt.Sprintf("year must be between %d and %d", MinVehicleYear, time.Now().Year()+1))
	}
	if len(v.LicensePlate) > MaxPlateLength {
		return apperror.ValidationFailed("license_plate",
			fmt.Sprintf("license plate must be at most %d characters", MaxPlateLength))
	}
	if v.CurrentMileage < 0 {
		return apperror.ValidationFailed("current_mileage", "mileage must not be negative")
	}
	return nil
}

// Create validates and saves a new vehicle for the given owner.
func (s *VehicleService) Create(ctx context.Context, vehicle *model.Vehicle) (*model.Vehicle, error) {
	if vehicle.UserID == "" {
		return nil, apperror.ValidationFailed("user_id", "owner is required")
	}
	if err := validateVehicle(vehicle); err != nil {
		return nil, err
	}

	if err := s.vehicles.CreateVehicle(ctx, vehicle); err != nil {
		return nil, fmt.Errorf("service/vehicle: creating vehicle: %w", err)
	}

	s.logger.Info("vehicle registered",
		slog.String("vehicleID", vehicle.ID),
		slog.String("userID", vehicle.UserID),
		slog.Int("year", vehicle.Year),
		slog.String("make", vehicle.Make),
		slog.String("model", vehicle.Model),
	)

	return vehicle, nil
}

// ListByUser returns the user's vehicles in registration order.
func (s *VehicleService) ListByUser(ctx context.Context, userID string) ([]model.Vehicle, error) {
	if userID == "" {
		return nil, apperror.ValidationFailed("user_id", "user_id is required")
	}

	vehicles, err := s.vehicles.ListVehiclesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/vehicle: listing vehicles for %s: %w", userID, err)
	}

	return vehicles, nil
}

// Get returns a vehicle and verifies it belongs to ownerID.
// A vehicle that exists but belongs to someone else is Forbidden, not
// NotFound — the 403 is only reachable with a valid token, so it doesn't
// leak anything the owner check should hide.
func (s *VehicleService) Get(ctx context.Context, id, ownerID string) (*model.Vehicle, error) {
	vehicle, err := s.vehicles.GetVehicleByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/vehicle: fetching vehicle %s: %w", id, err)
	}
	if vehicle.UserID != ownerID {
		return nil, apperror.Forbidden("vehicle belongs to another user")
	}
	return vehicle, nil
}

// Update replaces the full edited vehicle. The owner and ID are taken from
// the stored row, not the request body — a client cannot reassign a vehicle
// to someone else by editing user_id.
func (s *VehicleService) Update(ctx context.Context, id, ownerID string, edited *model.Vehicle) (*model.Vehicle, error) {
	current, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	edited.ID = current.ID
	edited.UserID = current.UserID
	edited.CreatedAt = current.CreatedAt
	if err := validateVehicle(edited); err != nil {
		return nil, err
	}

	if err := s.vehicles.UpdateVehicle(ctx, edited); err != nil {
		return nil, fmt.Errorf("service/vehicle: updating vehicle %s: %w", id, err)
	}

	return edited, nil
}

// Delete removes a vehicle and (via the storage cascade) its entire service
// history.
func (s *VehicleService) Delete(ctx context.Context, id, ownerID string) error {
	if _, err := s.Get(ctx, id, ownerID); err != nil {
		return err
	}

	if err := s.vehicles.DeleteVehicle(ctx, id); err != nil {
		return fmt.Errorf("service/vehicle: deleting vehicle %s: %w", id, err)
	}

	s.logger.Info("vehicle deleted",
		slog.String("vehicleID", id),
		slog.String("userID", ownerID),
	)

	return nil
}

// Summary recomputes the spending aggregate for a user.
func (s *VehicleService) Summary(ctx context.Context, userID string) (*model.Summary, error) {
	if userID == "" {
		return nil, apperror.ValidationFailed("user_id", "user_id is required")
	}

	summary, err := s.vehicles.Summary(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/vehicle: computing summary for %s: %w", userID, err)
	}

	return summary, nil
}
