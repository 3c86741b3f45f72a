package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/carkeeper/internal/apperror"
	"github.com/sakif/carkeeper/internal/model"
)

func newTestVehicleService() (*VehicleService, *mockVehicleRepo) {
	repo := newMockVehicleRepo()
	return NewVehicleService(repo, testLogger()), repo
}

func validVehicle(userID string) *model.Vehicle {
	return &model.Vehicle{
		UserID:         userID,
		Make:           "Toyota",
		Model:          "Corolla",
		Year:           2019,
		LicensePlate:   "ABC-1234",
		CurrentMileage: 42000,
	}
}

func TestVehicleCreate_Success(t *testing.T) {
	svc, _ := newTestVehicleService()

	created, err := svc.Create(context.Background(), validVehicle("user-1"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID == "" {
		t.Error("Create() should assign an ID")
	}
}

func TestVehicleCreate_Validation(t *testing.T) {
	svc, _ := newTestVehicleService()

	tests := []struct {
		name   string
		mutate func(v *model.Vehicle)
	}{
		{"missing make", func(v *model.Vehicle) { v.Make = "" }},
		{"missing model", func(v *model.Vehicle) { v.Model = "  " }},
		{"year before 1900", func(v *model.Vehicle) { v.Year = 1899 }},
		{"year too far ahead", func(v *model.Vehicle) { v.Year = time.Now().Year() + 2 }},
		{"negative mileage", func(v *model.Vehicle) { v.CurrentMileage = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vehicle := validVehicle("user-1")
			tt.mutate(vehicle)
			_, err := svc.Create(context.Background(), vehicle)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("Create() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestVehicleCreate_NextYearModelAllowed(t *testing.T) {
	svc, _ := newTestVehicleService()

	vehicle := validVehicle("user-1")
	vehicle.Year = time.Now().Year() + 1
	if _, err := svc.Create(context.Background(), vehicle); err != nil {
		t.Errorf("Create() should accept next year's model, got %v", err)
	}
}

func TestVehicleGet_WrongOwnerForbidden(t *testing.T) {
	svc, _ := newTestVehicleService()
	created, _ := svc.Create(context.Background(), validVehicle("user-1"))

	_, err := svc.Get(context.Background(), created.ID, "user-2")
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("Get() with wrong owner error = %v, want ErrForbidden", err)
	}
}

func TestVehicleUpdate_CannotReassignOwner(t *testing.T) {
	svc, _ := newTestVehicleService()
	created, _ := svc.Create(context.Background(), validVehicle("user-1"))

	edited := validVehicle("user-999")
	edited.Make = "Honda"
	updated, err := svc.Update(context.Background(), created.ID, "user-1", edited)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1 (ownership comes from the stored row)", updated.UserID)
	}
	if updated.Make != "Honda" {
		t.Errorf("Make = %q, want Honda", updated.Make)
	}
}

func TestVehicleUpdate_WrongOwnerForbidden(t *testing.T) {
	svc, _ := newTestVehicleService()
	created, _ := svc.Create(context.Background(), validVehicle("user-1"))

	_, err := svc.Update(context.Background(), created.ID, "user-2", validVehicle("user-2"))
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("Update() with wrong owner error = %v, want ErrForbidden", err)
	}
}

func TestVehicleDelete(t *testing.T) {
	svc, repo := newTestVehicleService()
	created, _ := svc.Create(context.Background(), validVehicle("user-1"))

	if err := svc.Delete(context.Background(), created.ID, "user-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := repo.vehicles[created.ID]; ok {
		t.Error("vehicle still in repo after Delete()")
	}
}

func TestVehicleDelete_WrongOwnerForbidden(t *testing.T) {
	svc, repo := newTestVehicleService()
	created, _ := svc.Create(context.Background(), validVehicle("user-1"))

	err := svc.Delete(context.Background(), created.ID, "user-2")
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("Delete() with wrong owner error = %v, want ErrForbidden", err)
	}
	if _, ok := repo.vehicles[created.ID]; !ok {
		t.Error("vehicle deleted despite failed ownership check")
	}
}

func TestVehicleListByUser_RequiresUserID(t *testing.T) {
	svc, _ := newTestVehicleService()

	_, err := svc.ListByUser(context.Background(), "")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("ListByUser(\"\") error = %v, want ErrValidation", err)
	}
}
