package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/sakif/carkeeper/internal/apperror"
	"github.com/sakif/carkeeper/internal/auth"
	"github.com/sakif/carkeeper/internal/model"
	"github.com/sakif/carkeeper/internal/repository"
)

// Hand-written in-memory mocks. They implement the repository interfaces so
// service tests run in microseconds without SQLite, and tests can poke at
// their maps directly to set up edge cases.

type mockUserRepo struct {
	users  map[string]*model.User
	nextID int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) CreateUser(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.Username == user.Username {
			return apperror.Conflict("user", user.Username)
		}
	}
	m.nextID++
	user.ID = fmt.Sprintf("user-%d", m.nextID)
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *user
	return &result, nil
}

func (m *mockUserRepo) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

type mockVehicleRepo struct {
	vehicles map[string]*model.Vehicle
	nextID   int
}

func newMockVehicleRepo() *mockVehicleRepo {
	return &mockVehicleRepo{vehicles: make(map[string]*model.Vehicle)}
}

func (m *mockVehicleRepo) CreateVehicle(_ context.Context, vehicle *model.Vehicle) error {
	m.nextID++
	vehicle.ID = fmt.Sprintf("vehicle-%d", m.nextID)
	stored := *vehicle
	m.vehicles[vehicle.ID] = &stored
	return nil
}

func (m *mockVehicleRepo) GetVehicleByID(_ context.Context, id string) (*model.Vehicle, error) {
	vehicle, ok := m.vehicles[id]
	if !ok {
		return nil, apperror.NotFound("vehicle", id)
	}
	result := *vehicle
	return &result, nil
}

func (m *mockVehicleRepo) ListVehiclesByUser(_ context.Context, userID string) ([]model.Vehicle, error) {
	result := []model.Vehicle{}
	for i := 1; i <= m.nextID; i++ {
		if v, ok := m.vehicles[fmt.Sprintf("vehicle-%d", i)]; ok && v.UserID == userID {
			result = append(result, *v)
		}
	}
	return result, nil
}

func (m *mockVehicleRepo) UpdateVehicle(_ context.Context, vehicle *model.Vehicle) error {
	if _, ok := m.vehicles[vehicle.ID]; !ok {
		return apperror.NotFound("vehicle", vehicle.ID)
	}
	stored := *vehicle
	m.vehicles[vehicle.ID] = &stored
	return nil
}

func (m *mockVehicleRepo) DeleteVehicle(_ context.Context, id string) error {
	if _, ok := m.vehicles[id]; !ok {
		return apperror.NotFound("vehicle", id)
	}
	delete(m.vehicles, id)
	return nil
}

func (m *mockVehicleRepo) Summary(_ context.Context, userID string) (*model.Summary, error) {
	summary := &model.Summary{}
	for _, v := range m.vehicles {
		if v.UserID == userID {
			summary.VehicleCount++
		}
	}
	return summary, nil
}

type mockRecordRepo struct {
	records map[string]*model.Record
	nextID  int
}

func newMockRecordRepo() *mockRecordRepo {
	return &mockRecordRepo{records: make(map[string]*model.Record)}
}

func (m *mockRecordRepo) CreateRecord(_ context.Context, record *model.Record) error {
	m.nextID++
	record.ID = fmt.Sprintf("record-%d", m.nextID)
	stored := *record
	m.records[record.ID] = &stored
	return nil
}

func (m *mockRecordRepo) GetRecordByID(_ context.Context, id string) (*model.Record, error) {
	record, ok := m.records[id]
	if !ok {
		return nil, apperror.NotFound("record", id)
	}
	result := *record
	return &result, nil
}

func (m *mockRecordRepo) ListRecordsByVehicle(_ context.Context, vehicleID string) ([]model.Record, error) {
	result := []model.Record{}
	for i := 1; i <= m.nextID; i++ {
		if r, ok := m.records[fmt.Sprintf("record-%d", i)]; ok && r.VehicleID == vehicleID {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockRecordRepo) UpdateRecord(_ context.Context, record *model.Record) error {
	if _, ok := m.records[record.ID]; !ok {
		return apperror.NotFound("record", record.ID)
	}
	stored := *record
	m.records[record.ID] = &stored
	return nil
}

func (m *mockRecordRepo) DeleteRecord(_ context.Context, id string) error {
	if _, ok := m.records[id]; !ok {
		return apperror.NotFound("record", id)
	}
	delete(m.records, id)
	return nil
}

// Compile-time interface checks, same as the production sqlite.DB carries.
var (
	_ repository.UserRepository    = (*mockUserRepo)(nil)
	_ repository.VehicleRepository = (*mockVehicleRepo)(nil)
	_ repository.RecordRepository  = (*mockRecordRepo)(nil)
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestAuthService(t *testing.T) (*AuthService, *mockUserRepo) {
	t.Helper()
	users := newMockUserRepo()
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	passwords := auth.NewPasswordServiceForTest(4)
	return NewAuthService(users, tokens, passwords, testLogger()), users
}
