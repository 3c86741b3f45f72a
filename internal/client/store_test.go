package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sakif/carkeeper/internal/extract"
	"github.com/sakif/carkeeper/internal/model"
	"github.com/sakif/carkeeper/internal/service"
)

// fakeAPI is an in-memory stand-in for the backend. It mirrors the server's
// visible behavior closely enough for store tests: one registered account,
// owned vehicles and records, and the odometer-advance rule on new records.
type fakeAPI struct {
	password string
	user     *model.User
	token    string

	vehicles map[string]*model.Vehicle
	records  map[string]*model.Record
	nextID   int

	deleteVehicleCalls int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		password: "password123",
		user:     &model.User{ID: "user-1", Username: "sam"},
		vehicles: make(map[string]*model.Vehicle),
		records:  make(map[string]*model.Record),
	}
}

func (f *fakeAPI) SetToken(token string) { f.token = token }

func (f *fakeAPI) Register(_ context.Context, username, password string) error {
	if username == f.user.Username {
		return fmt.Errorf("user already exists: %s", username)
	}
	return nil
}

func (f *fakeAPI) Login(_ context.Context, username, password string) (*service.AuthResult, error) {
	if username != f.user.Username || password != f.password {
		return nil, errors.New("Invalid username or password")
	}
	return &service.AuthResult{User: f.user, Token: "tok-sam"}, nil
}

func (f *fakeAPI) Vehicles(_ context.Context, userID string) ([]model.Vehicle, error) {
	result := []model.Vehicle{}
	for i := 1; i <= f.nextID; i++ {
		if v, ok := f.vehicles[fmt.Sprintf("v-%d", i)]; ok && v.UserID == userID {
			result = append(result, *v)
		}
	}
	return result, nil
}

func (f *fakeAPI) CreateVehicle(_ context.Context, vehicle *model.Vehicle) (*model.Vehicle, error) {
	f.nextID++
	vehicle.ID = fmt.Sprintf("v-%d", f.nextID)
	stored := *vehicle
	f.vehicles[vehicle.ID] = &stored
	return vehicle, nil
}

func (f *fakeAPI) UpdateVehicle(_ context.Context, vehicle *model.Vehicle) (*model.Vehicle, error) {
	if _, ok := f.vehicles[vehicle.ID]; !ok {
		return nil, fmt.Errorf("vehicle not found with id %s", vehicle.ID)
	}
	stored := *vehicle
	f.vehicles[vehicle.ID] = &stored
	return vehicle, nil
}

func (f *fakeAPI) DeleteVehicle(_ context.Context, id string) error {
	f.deleteVehicleCalls++
	delete(f.vehicles, id)
	return nil
}

func (f *fakeAPI) Summary(_ context.Context, userID string) (*model.Summary, error) {
	summary := &model.Summary{}
	for _, v := range f.vehicles {
		if v.UserID == userID {
			summary.VehicleCount++
		}
	}
	for _, r := range f.records {
		if v, ok := f.vehicles[r.VehicleID]; ok && v.UserID == userID {
			summary.TotalCost += r.Cost
		}
	}
	return summary, nil
}

func (f *fakeAPI) Records(_ context.Context, vehicleID string) ([]model.Record, error) {
	result := []model.Record{}
	for _, r := range f.records {
		if r.VehicleID == vehicleID {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (f *fakeAPI) CreateRecord(_ context.Context, record *model.Record) (*model.Record, error) {
	f.nextID++
	record.ID = fmt.Sprintf("r-%d", f.nextID)
	stored := *record
	f.records[record.ID] = &stored
	// server rule: the odometer only advances
	if v, ok := f.vehicles[record.VehicleID]; ok && record.Mileage > v.CurrentMileage {
		v.CurrentMileage = record.Mileage
	}
	return record, nil
}

func (f *fakeAPI) UpdateRecord(_ context.Context, record *model.Record) (*model.Record, error) {
	if _, ok := f.records[record.ID]; !ok {
		return nil, fmt.Errorf("record not found with id %s", record.ID)
	}
	stored := *record
	f.records[record.ID] = &stored
	return record, nil
}

func (f *fakeAPI) DeleteRecord(_ context.Context, id string) error {
	delete(f.records, id)
	return nil
}

var _ API = (*fakeAPI)(nil)

// stubScanner returns a fixed receipt (or error) for pipeline-backed tests.
type stubScanner struct {
	receipt *extract.Receipt
	err     error
}

func (s *stubScanner) Extract(context.Context, []byte, string) (*extract.Receipt, error) {
	return s.receipt, s.err
}

func newTestStore(t *testing.T, api API, scanner extract.Scanner) (*Store, string) {
	t.Helper()
	sessionPath := filepath.Join(t.TempDir(), "session.json")
	var pipeline *extract.Pipeline
	if scanner != nil {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		pipeline = extract.NewPipeline(scanner, logger)
	}
	return NewStore(api, NewSessionFile(sessionPath), pipeline), sessionPath
}

func signIn(t *testing.T, store *Store) {
	t.Helper()
	if err := store.Authenticate(context.Background(), AuthLogin, "sam", "password123"); err != nil {
		t.Fatalf("login: %v", err)
	}
}

func TestAuthenticate_LoginLandsOnDashboardAndPersists(t *testing.T) {
	api := newFakeAPI()
	store, sessionPath := newTestStore(t, api, nil)

	signIn(t, store)

	state := store.State()
	if state.View != ViewDashboard {
		t.Errorf("View = %q, want dashboard", state.View)
	}
	if state.User == nil || state.User.Username != "sam" {
		t.Errorf("User = %+v, want sam", state.User)
	}
	if api.token != "tok-sam" {
		t.Errorf("token pushed to API = %q, want tok-sam", api.token)
	}
	if _, err := os.Stat(sessionPath); err != nil {
		t.Errorf("session file should exist after login: %v", err)
	}
}

func TestAuthenticate_LoginFailureShowsErrorBanner(t *testing.T) {
	store, sessionPath := newTestStore(t, newFakeAPI(), nil)

	err := store.Authenticate(context.Background(), AuthLogin, "sam", "wrong-password")
	if err == nil {
		t.Fatal("login with wrong password should fail")
	}

	state := store.State()
	if state.View != ViewLogin {
		t.Errorf("View = %q, want login (failed login must not advance)", state.View)
	}
	if state.Banner != "Invalid username or password" {
		t.Errorf("Banner = %q, want the server's message", state.Banner)
	}
	if state.BannerIsInfo() {
		t.Error("a login failure banner must render as an error")
	}
	if _, err := os.Stat(sessionPath); !errors.Is(err, os.ErrNotExist) {
		t.Error("no session should be written on failed login")
	}
}

func TestAuthenticate_RegisterReturnsToLoginWithoutSigningIn(t *testing.T) {
	store, sessionPath := newTestStore(t, newFakeAPI(), nil)

	if err := store.Authenticate(context.Background(), AuthRegister, "alex", "password456"); err != nil {
		t.Fatalf("register: %v", err)
	}

	state := store.State()
	if state.View != ViewLogin {
		t.Errorf("View = %q, want login (registration does not sign in)", state.View)
	}
	if state.User != nil {
		t.Error("User should be nil after registration")
	}
	if !strings.Contains(state.Banner, "Registration successful") {
		t.Errorf("Banner = %q, want a registration confirmation", state.Banner)
	}
	if _, err := os.Stat(sessionPath); !errors.Is(err, os.ErrNotExist) {
		t.Error("no session should be written on registration")
	}
}

func TestAuthenticate_RegisterDuplicateShowsBanner(t *testing.T) {
	store, _ := newTestStore(t, newFakeAPI(), nil)

	err := store.Authenticate(context.Background(), AuthRegister, "sam", "password123")
	if err == nil {
		t.Fatal("registering a taken username should fail")
	}
	if state := store.State(); state.Banner == "" || state.BannerIsInfo() {
		t.Errorf("Banner = %q, want the server's error", state.Banner)
	}
}

func TestSignOut_ClearsSessionAndState(t *testing.T) {
	store, sessionPath := newTestStore(t, newFakeAPI(), nil)
	signIn(t, store)

	if err := store.SignOut(); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}

	state := store.State()
	if state.View != ViewLogin || state.User != nil {
		t.Errorf("state after sign-out = %+v, want blank login", state)
	}
	if _, err := os.Stat(sessionPath); !errors.Is(err, os.ErrNotExist) {
		t.Error("session file should be removed on sign-out")
	}
}

func TestLoad_RestoresPersistedSession(t *testing.T) {
	api := newFakeAPI()
	sessionPath := filepath.Join(t.TempDir(), "session.json")
	session := NewSessionFile(sessionPath)
	if err := session.Save(&Session{User: api.user, Token: "tok-sam"}); err != nil {
		t.Fatalf("seeding session: %v", err)
	}

	store := NewStore(api, session, nil)
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	state := store.State()
	if state.View != ViewDashboard {
		t.Errorf("View = %q, want dashboard (session restored)", state.View)
	}
	if api.token != "tok-sam" {
		t.Errorf("token pushed to API = %q, want tok-sam", api.token)
	}
}

func TestLoad_NoSessionLandsOnLogin(t *testing.T) {
	store, _ := newTestStore(t, newFakeAPI(), nil)

	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if state := store.State(); state.View != ViewLogin {
		t.Errorf("View = %q, want login", state.View)
	}
}

func TestSaveRecord_AdvancesSelectedVehicleMileage(t *testing.T) {
	store, _ := newTestStore(t, newFakeAPI(), nil)
	signIn(t, store)

	if err := store.AddVehicle(context.Background(), model.Vehicle{
		Make: "Toyota", Model: "Corolla", Year: 2019, CurrentMileage: 42000,
	}); err != nil {
		t.Fatalf("AddVehicle() error = %v", err)
	}
	vehicleID := store.State().Vehicles[0].ID
	if err := store.SelectVehicle(context.Background(), vehicleID); err != nil {
		t.Fatalf("SelectVehicle() error = %v", err)
	}

	if err := store.SaveRecord(context.Background(), model.Record{
		Date: "2026-01-15", Task: "Oil change", Cost: 49.99, Mileage: 45000,
	}); err != nil {
		t.Fatalf("SaveRecord() error = %v", err)
	}

	state := store.State()
	if state.Selected == nil || state.Selected.CurrentMileage != 45000 {
		t.Errorf("Selected = %+v, want mileage 45000", state.Selected)
	}
	if len(state.History) != 1 {
		t.Errorf("History has %d records, want 1", len(state.History))
	}
	if state.Summary.TotalCost != 49.99 {
		t.Errorf("Summary.TotalCost = %v, want 49.99", state.Summary.TotalCost)
	}
}

// flakyAPI fails record fetches on demand while delegating everything else
// to the in-memory fake.
type flakyAPI struct {
	*fakeAPI
	recordsErr error
}

func (f *flakyAPI) Records(ctx context.Context, vehicleID string) ([]model.Record, error) {
	if f.recordsErr != nil {
		return nil, f.recordsErr
	}
	return f.fakeAPI.Records(ctx, vehicleID)
}

func TestSelectVehicle_FetchFailureClearsHistory(t *testing.T) {
	api := &flakyAPI{fakeAPI: newFakeAPI()}
	store, _ := newTestStore(t, api, nil)
	signIn(t, store)

	for _, m := range []string{"Corolla", "Civic"} {
		if err := store.AddVehicle(context.Background(), model.Vehicle{
			Make: "Toyota", Model: m, Year: 2019, CurrentMileage: 42000,
		}); err != nil {
			t.Fatalf("AddVehicle() error = %v", err)
		}
	}
	vehicles := store.State().Vehicles
	if err := store.SelectVehicle(context.Background(), vehicles[0].ID); err != nil {
		t.Fatalf("SelectVehicle() error = %v", err)
	}
	if err := store.SaveRecord(context.Background(), model.Record{
		Date: "2026-01-15", Task: "Oil change", Cost: 49.99, Mileage: 43000,
	}); err != nil {
		t.Fatalf("SaveRecord() error = %v", err)
	}

	api.recordsErr = errors.New("Network error: backend may be offline")
	if err := store.SelectVehicle(context.Background(), vehicles[1].ID); err == nil {
		t.Fatal("SelectVehicle should fail when the records fetch fails")
	}

	state := store.State()
	if len(state.History) != 0 {
		t.Errorf("History holds %d record(s) from the previous vehicle, want none after a failed fetch", len(state.History))
	}
	if state.Selected == nil || state.Selected.ID != vehicles[1].ID {
		t.Errorf("Selected = %+v, want the newly chosen vehicle", state.Selected)
	}
	if state.Banner != "Network error: backend may be offline" {
		t.Errorf("Banner = %q, want the fetch error", state.Banner)
	}
}

func TestState_SnapshotIsIsolatedFromStoreMutation(t *testing.T) {
	store, _ := newTestStore(t, newFakeAPI(), nil)
	signIn(t, store)

	if err := store.AddVehicle(context.Background(), model.Vehicle{
		Make: "Toyota", Model: "Corolla", Year: 2019, CurrentMileage: 42000,
	}); err != nil {
		t.Fatalf("AddVehicle() error = %v", err)
	}
	if err := store.SelectVehicle(context.Background(), store.State().Vehicles[0].ID); err != nil {
		t.Fatalf("SelectVehicle() error = %v", err)
	}

	before := store.State()
	if err := store.SaveRecord(context.Background(), model.Record{
		Date: "2026-01-15", Task: "Oil change", Cost: 49.99, Mileage: 45000,
	}); err != nil {
		t.Fatalf("SaveRecord() error = %v", err)
	}

	if before.Selected.CurrentMileage != 42000 {
		t.Errorf("snapshot Selected.CurrentMileage = %d, want the pre-save 42000", before.Selected.CurrentMileage)
	}
	before.User.Username = "mallory"
	if store.State().User.Username != "sam" {
		t.Error("mutating a snapshot's User must not touch the store")
	}
}

func TestDeleteVehicle_ConfirmerCanVeto(t *testing.T) {
	api := newFakeAPI()
	store, _ := newTestStore(t, api, nil)
	signIn(t, store)

	if err := store.AddVehicle(context.Background(), model.Vehicle{
		Make: "Toyota", Model: "Corolla", Year: 2019,
	}); err != nil {
		t.Fatalf("AddVehicle() error = %v", err)
	}
	vehicleID := store.State().Vehicles[0].ID

	store.SetDeleteConfirmer(func(model.Vehicle) bool { return false })
	if err := store.DeleteVehicle(context.Background(), vehicleID); err != nil {
		t.Fatalf("vetoed DeleteVehicle() error = %v", err)
	}
	if api.deleteVehicleCalls != 0 {
		t.Error("a vetoed delete must not reach the API")
	}
	if len(store.State().Vehicles) != 1 {
		t.Error("vehicle should survive a vetoed delete")
	}

	store.SetDeleteConfirmer(func(model.Vehicle) bool { return true })
	if err := store.DeleteVehicle(context.Background(), vehicleID); err != nil {
		t.Fatalf("DeleteVehicle() error = %v", err)
	}
	if len(store.State().Vehicles) != 0 {
		t.Error("vehicle should be gone after a confirmed delete")
	}
}

func TestScanReceipt_SuccessOffersItemsWithInfoBanner(t *testing.T) {
	scanner := &stubScanner{receipt: &extract.Receipt{
		Date:    "2026-01-15",
		Mileage: 43000,
		Items: []extract.LineItem{
			{Task: "Oil change", Cost: 49.99},
			{Task: "Air filter", Cost: 24.99},
		},
	}}
	store, _ := newTestStore(t, newFakeAPI(), scanner)
	signIn(t, store)

	if err := store.ScanReceipt(context.Background(), []byte("img"), "image/jpeg"); err != nil {
		t.Fatalf("ScanReceipt() error = %v", err)
	}

	state := store.State()
	if len(state.Extracted) != 2 {
		t.Fatalf("Extracted has %d items, want 2", len(state.Extracted))
	}
	if !strings.Contains(state.Banner, "Found 2") {
		t.Errorf("Banner = %q, want a found-items message", state.Banner)
	}
	if !state.BannerIsInfo() {
		t.Error("a successful scan banner must render as info, not error")
	}
	if state.Draft.Date != "2026-01-15" || state.Draft.Mileage != 43000 {
		t.Errorf("Draft = %+v, want date and mileage prefilled", state.Draft)
	}
}

func TestSelectExtractedItem_FillsDraftAndStampsToken(t *testing.T) {
	scanner := &stubScanner{receipt: &extract.Receipt{
		Items: []extract.LineItem{
			{Task: "Oil change", Cost: 49.99},
			{Task: "Air filter", Cost: 24.99},
		},
	}}
	store, _ := newTestStore(t, newFakeAPI(), scanner)
	signIn(t, store)
	if err := store.ScanReceipt(context.Background(), []byte("img"), "image/jpeg"); err != nil {
		t.Fatalf("ScanReceipt() error = %v", err)
	}

	if err := store.SelectExtractedItem(1); err != nil {
		t.Fatalf("SelectExtractedItem() error = %v", err)
	}

	state := store.State()
	if state.Draft.Task != "Air filter" || state.Draft.Cost != 24.99 {
		t.Errorf("Draft = %+v, want the second item", state.Draft)
	}
	if !strings.HasPrefix(state.Draft.VerificationHash, "CARKEEPER-VERIFIED-") {
		t.Errorf("VerificationHash = %q, want the verification prefix", state.Draft.VerificationHash)
	}
	if len(state.Extracted) != 0 {
		t.Error("remaining candidates should be discarded after selection")
	}
	if state.Banner != "" {
		t.Errorf("Banner = %q, want cleared", state.Banner)
	}
}

func TestScanReceipt_NonImageShowsErrorBanner(t *testing.T) {
	scanner := &stubScanner{err: errors.New("should never be called")}
	store, _ := newTestStore(t, newFakeAPI(), scanner)
	signIn(t, store)

	err := store.ScanReceipt(context.Background(), []byte("%PDF-1.4"), "application/pdf")
	if err == nil {
		t.Fatal("scanning a non-image should fail")
	}

	state := store.State()
	if !strings.Contains(state.Banner, "upload an image file") {
		t.Errorf("Banner = %q, want the upload-an-image message", state.Banner)
	}
	if state.BannerIsInfo() {
		t.Error("the non-image banner must render as an error")
	}
}

func TestScanReceipt_WithoutPipelineShowsErrorBanner(t *testing.T) {
	store, _ := newTestStore(t, newFakeAPI(), nil)
	signIn(t, store)

	if err := store.ScanReceipt(context.Background(), []byte("img"), "image/jpeg"); err == nil {
		t.Fatal("scanning without a configured pipeline should fail")
	}
	if state := store.State(); state.Banner == "" || state.BannerIsInfo() {
		t.Errorf("Banner = %q, want an error about missing configuration", state.Banner)
	}
}
