// Package repository declares the storage interfaces the service layer
// depends on. Concrete implementations live in subpackages (sqlite).
package repository

import (
	"context"

	"github.com/sakif/carkeeper/internal/model"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
}

type VehicleRepository interface {
	CreateVehicle(ctx context.Context, vehicle *model.Vehicle) error
	GetVehicleByID(ctx context.Context, id string) (*model.Vehicle, error)
	ListVehiclesByUser(ctx context.Context, userID string) ([]model.Vehicle, error)
	UpdateVehicle(ctx context.Context, vehicle *model.Vehicle) error
	// DeleteVehicle removes the vehicle AND all of its service records.
	// The cascade is a storage-level invariant — callers never delete
	// records one by one before deleting a vehicle.
	DeleteVehicle(ctx context.Context, id string) error
	// Summary recomputes the spending aggregate for a user from scratch.
	Summary(ctx context.Context, userID string) (*model.Summary, error)
}

type RecordRepository interface {
	CreateRecord(ctx context.Context, record *model.Record) error
	GetRecordByID(ctx context.Context, id string) (*model.Record, error)
	ListRecordsByVehicle(ctx context.Context, vehicleID string) ([]model.Record, error)
	UpdateRecord(ctx context.Context, record *model.Record) error
	DeleteRecord(ctx context.Context, id string) error
}
