package client

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sakif/carkeeper/internal/extract"
	"github.com/sakif/carkeeper/internal/model"
	"github.com/sakif/carkeeper/internal/service"
)

// View names the screen the UI should render.
type View string

const (
	ViewLogin     View = "login"
	ViewRegister  View = "register"
	ViewDashboard View = "dashboard"
)

// AuthMode selects what Authenticate does with the credentials.
type AuthMode int

const (
	AuthLogin AuthMode = iota
	AuthRegister
)

// State is a snapshot of everything a front end needs to render. It is a
// value copy — mutating it does not touch the store.
type State struct {
	View      View
	User      *model.User
	Vehicles  []model.Vehicle
	Selected  *model.Vehicle
	History   []model.Record
	Summary   model.Summary
	Banner    string
	Analyzing bool

	// Extracted holds candidate line items from the last receipt scan.
	// The user picks one; SelectExtractedItem moves it into Draft.
	Extracted []extract.LineItem

	// Draft is the record being composed, prefilled by scans.
	Draft model.Record
}

// BannerIsInfo reports whether the banner is good news. The extraction
// pipeline's only success message starts with "Found"; everything else in
// the banner is an error.
func (s State) BannerIsInfo() bool {
	return strings.Contains(s.Banner, "Found")
}

// Store owns the client-side application state and every transition on it.
// All methods are safe for concurrent use; UIs read state only through
// State(), which returns a copy.
type Store struct {
	mu       sync.Mutex
	state    State
	api      API
	session  *SessionFile
	pipeline *extract.Pipeline

	// confirmDelete is asked before a vehicle (and all its records) is
	// removed. The CLI wires a terminal prompt here; tests wire a stub.
	// A nil confirmer means delete without asking.
	confirmDelete func(vehicle model.Vehicle) bool
}

// NewStore creates a Store over the given backend and session file. The
// pipeline may be nil when receipt scanning is not configured.
func NewStore(api API, session *SessionFile, pipeline *extract.Pipeline) *Store {
	return &Store{
		state:    State{View: ViewLogin},
		api:      api,
		session:  session,
		pipeline: pipeline,
	}
}

// SetDeleteConfirmer installs the prompt asked before vehicle deletion.
func (s *Store) SetDeleteConfirmer(confirm func(vehicle model.Vehicle) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmDelete = confirm
}

// State returns a copy of the current state. Slices are cloned so callers
// can hold the snapshot while the store moves on.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	state := s.state
	state.Vehicles = append([]model.Vehicle(nil), s.state.Vehicles...)
	state.History = append([]model.Record(nil), s.state.History...)
	state.Extracted = append([]extract.LineItem(nil), s.state.Extracted...)
	// User and Selected are pointers into store-owned data; clone them so
	// the snapshot stays stable while the store keeps mutating.
	if s.state.User != nil {
		user := *s.state.User
		state.User = &user
	}
	if s.state.Selected != nil {
		selected := *s.state.Selected
		state.Selected = &selected
	}
	if s.pipeline != nil {
		state.Analyzing = s.pipeline.Analyzing()
	}
	return state
}

// setToken pushes the bearer token into the API client when it carries one.
func (s *Store) setToken(token string) {
	if setter, ok := s.api.(interface{ SetToken(token string) }); ok {
		setter.SetToken(token)
	}
}

// Load restores a persisted session, if any, and lands the user on the
// right view: dashboard with fresh data when signed in, login otherwise.
func (s *Store) Load(ctx context.Context) error {
	session, err := s.session.Load()
	if err != nil {
		return err
	}
	if session == nil {
		s.mu.Lock()
		s.state.View = ViewLogin
		s.mu.Unlock()
		return nil
	}

	s.setToken(session.Token)
	s.mu.Lock()
	s.state.User = session.User
	s.state.View = ViewDashboard
	s.mu.Unlock()

	return s.Refresh(ctx)
}

// SwitchView moves between the login and register screens, clearing any
// stale banner. Reaching the dashboard goes through Authenticate.
func (s *Store) SwitchView(view View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if view == ViewDashboard {
		return
	}
	s.state.View = view
	s.state.Banner = ""
}

// Authenticate registers or logs in. Login success persists the session
// and lands on the dashboard. Registration success does NOT sign the user
// in: it returns to the login view with a confirmation banner, and the
// user logs in with the credentials they just chose. Failure of either
// stays on the current view with the server's message in the banner.
func (s *Store) Authenticate(ctx context.Context, mode AuthMode, username, password string) error {
	if mode == AuthRegister {
		if err := s.api.Register(ctx, username, password); err != nil {
			s.mu.Lock()
			s.state.Banner = err.Error()
			s.mu.Unlock()
			return err
		}
		s.mu.Lock()
		s.state.View = ViewLogin
		s.state.Banner = "Registration successful. Please log in."
		s.mu.Unlock()
		return nil
	}

	result, err := s.api.Login(ctx, username, password)
	if err != nil {
		s.mu.Lock()
		s.state.Banner = err.Error()
		s.mu.Unlock()
		return err
	}

	s.setToken(result.Token)
	if err := s.session.Save(&Session{User: result.User, Token: result.Token}); err != nil {
		return err
	}

	s.mu.Lock()
	s.state.User = result.User
	s.state.View = ViewDashboard
	s.state.Banner = ""
	s.mu.Unlock()

	return s.Refresh(ctx)
}

// SignOut clears the session file and resets to a blank login screen.
func (s *Store) SignOut() error {
	if err := s.session.Clear(); err != nil {
		return err
	}
	s.setToken("")
	s.mu.Lock()
	s.state = State{View: ViewLogin}
	s.mu.Unlock()
	return nil
}

// Refresh refetches the vehicle list and spending summary. The selected
// vehicle is re-pointed at its fresh copy, or dropped if it no longer
// exists server-side.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	user := s.state.User
	s.mu.Unlock()
	if user == nil {
		return fmt.Errorf("client: not signed in")
	}

	vehicles, err := s.api.Vehicles(ctx, user.ID)
	if err != nil {
		s.mu.Lock()
		s.state.Banner = err.Error()
		s.mu.Unlock()
		return err
	}
	summary, err := s.api.Summary(ctx, user.ID)
	if err != nil {
		s.mu.Lock()
		s.state.Banner = err.Error()
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.state.Vehicles = vehicles
	s.state.Summary = *summary
	if s.state.Selected != nil {
		s.state.Selected = findVehicle(vehicles, s.state.Selected.ID)
		if s.state.Selected == nil {
			s.state.History = nil
		}
	}
	s.mu.Unlock()
	return nil
}

func findVehicle(vehicles []model.Vehicle, id string) *model.Vehicle {
	for i := range vehicles {
		if vehicles[i].ID == id {
			return &vehicles[i]
		}
	}
	return nil
}

// SelectVehicle focuses a vehicle and loads its service history.
func (s *Store) SelectVehicle(ctx context.Context, id string) error {
	s.mu.Lock()
	vehicle := findVehicle(s.state.Vehicles, id)
	s.mu.Unlock()
	if vehicle == nil {
		return fmt.Errorf("client: unknown vehicle %q", id)
	}

	records, err := s.api.Records(ctx, id)
	if err != nil {
		// Better an empty history than last vehicle's records shown
		// under this one's name.
		s.mu.Lock()
		s.state.Selected = vehicle
		s.state.History = nil
		s.state.Banner = err.Error()
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.state.Selected = vehicle
	s.state.History = records
	s.state.Extracted = nil
	s.state.Draft = model.Record{}
	s.mu.Unlock()
	return nil
}

// ServiceDue reports whether the selected vehicle is due for service,
// based on its odometer and the loaded history.
func (s *Store) ServiceDue() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Selected == nil {
		return false
	}
	return service.ServiceDue(s.state.Selected, s.state.History)
}

// AddVehicle creates a vehicle and refreshes the garage.
func (s *Store) AddVehicle(ctx context.Context, vehicle model.Vehicle) error {
	s.mu.Lock()
	user := s.state.User
	s.mu.Unlock()
	if user == nil {
		return fmt.Errorf("client: not signed in")
	}
	vehicle.UserID = user.ID

	if _, err := s.api.CreateVehicle(ctx, &vehicle); err != nil {
		s.mu.Lock()
		s.state.Banner = err.Error()
		s.mu.Unlock()
		return err
	}
	return s.Refresh(ctx)
}

// UpdateVehicle pushes edits to an existing vehicle and refreshes.
func (s *Store) UpdateVehicle(ctx context.Context, vehicle model.Vehicle) error {
	if _, err := s.api.UpdateVehicle(ctx, &vehicle); err != nil {
		s.mu.Lock()
		s.state.Banner = err.Error()
		s.mu.Unlock()
		return err
	}
	return s.Refresh(ctx)
}

// DeleteVehicle removes a vehicle after the confirmer (if any) approves.
// Deleting a vehicle takes its whole service history with it, which is why
// the question gets asked.
func (s *Store) DeleteVehicle(ctx context.Context, id string) error {
	s.mu.Lock()
	vehicle := findVehicle(s.state.Vehicles, id)
	confirm := s.confirmDelete
	s.mu.Unlock()
	if vehicle == nil {
		return fmt.Errorf("client: unknown vehicle %q", id)
	}
	if confirm != nil && !confirm(*vehicle) {
		return nil
	}

	if err := s.api.DeleteVehicle(ctx, id); err != nil {
		s.mu.Lock()
		s.state.Banner = err.Error()
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	if s.state.Selected != nil && s.state.Selected.ID == id {
		s.state.Selected = nil
		s.state.History = nil
	}
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// SaveRecord creates a service record for the selected vehicle. When the
// record's mileage is ahead of the vehicle's odometer, the local copy is
// patched immediately so the dashboard doesn't show a stale reading while
// the refresh is in flight (the server applies the same rule durably).
func (s *Store) SaveRecord(ctx context.Context, record model.Record) error {
	s.mu.Lock()
	selected := s.state.Selected
	s.mu.Unlock()
	if selected == nil {
		return fmt.Errorf("client: no vehicle selected")
	}
	record.VehicleID = selected.ID

	if _, err := s.api.CreateRecord(ctx, &record); err != nil {
		s.mu.Lock()
		s.state.Banner = err.Error()
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	if s.state.Selected != nil && record.Mileage > s.state.Selected.CurrentMileage {
		s.state.Selected.CurrentMileage = record.Mileage
	}
	s.state.Draft = model.Record{}
	s.state.Extracted = nil
	s.mu.Unlock()

	if err := s.reloadHistory(ctx); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// UpdateRecord pushes edits to an existing record and reloads the history.
func (s *Store) UpdateRecord(ctx context.Context, record model.Record) error {
	if _, err := s.api.UpdateRecord(ctx, &record); err != nil {
		s.mu.Lock()
		s.state.Banner = err.Error()
		s.mu.Unlock()
		return err
	}
	if err := s.reloadHistory(ctx); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// DeleteRecord removes a record and reloads the history.
func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	if err := s.api.DeleteRecord(ctx, id); err != nil {
		s.mu.Lock()
		s.state.Banner = err.Error()
		s.mu.Unlock()
		return err
	}
	if err := s.reloadHistory(ctx); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

func (s *Store) reloadHistory(ctx context.Context) error {
	s.mu.Lock()
	selected := s.state.Selected
	s.mu.Unlock()
	if selected == nil {
		return nil
	}
	records, err := s.api.Records(ctx, selected.ID)
	if err != nil {
		s.mu.Lock()
		s.state.Banner = err.Error()
		s.mu.Unlock()
		return err
	}
	s.mu.Lock()
	s.state.History = records
	s.mu.Unlock()
	return nil
}

// ScanReceipt runs the extraction pipeline over an image. Success prefills
// the draft's date and mileage and offers the line items for selection;
// any failure lands in the banner with the pipeline's guidance to enter
// the details manually.
func (s *Store) ScanReceipt(ctx context.Context, imageData []byte, mimeType string) error {
	if s.pipeline == nil {
		err := fmt.Errorf("Receipt scanning is not configured. Set an API key to enable it")
		s.mu.Lock()
		s.state.Banner = err.Error()
		s.mu.Unlock()
		return err
	}

	receipt, err := s.pipeline.Run(ctx, imageData, mimeType)
	if err != nil {
		s.mu.Lock()
		s.state.Banner = err.Error()
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.state.Extracted = receipt.Items
	if receipt.Date != "" {
		s.state.Draft.Date = receipt.Date
	}
	if receipt.Mileage > 0 {
		s.state.Draft.Mileage = receipt.Mileage
	}
	s.state.Banner = fmt.Sprintf("Found %d service items on the receipt. Select one to fill in the form.", len(receipt.Items))
	s.mu.Unlock()
	return nil
}

// SelectExtractedItem moves one scanned line item into the draft and stamps
// it with a fresh verification token marking it as receipt-backed. The
// remaining candidates are discarded.
func (s *Store) SelectExtractedItem(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.state.Extracted) {
		return fmt.Errorf("client: no extracted item %d", index)
	}
	item := s.state.Extracted[index]
	s.state.Draft.Task = item.Task
	s.state.Draft.Cost = item.Cost
	s.state.Draft.VerificationHash = extract.NewVerificationToken()
	s.state.Extracted = nil
	s.state.Banner = ""
	return nil
}

// CancelSelection discards scanned candidates without picking one.
func (s *Store) CancelSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Extracted = nil
	s.state.Banner = ""
}

// Draft returns the current record draft.
func (s *Store) Draft() model.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Draft
}

// SetDraft replaces the record draft wholesale.
func (s *Store) SetDraft(draft model.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Draft = draft
}

// DismissBanner clears the current banner message.
func (s *Store) DismissBanner() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Banner = ""
}
