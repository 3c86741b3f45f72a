package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/carkeeper/internal/apperror"
	"github.com/sakif/carkeeper/internal/auth"
	"github.com/sakif/carkeeper/internal/model"
	"github.com/sakif/carkeeper/internal/service"
)

// VehicleHandler manages CRUD for vehicles plus the spending summary.
//
// All routes here sit behind auth.RequireAuth, so UserIDFromContext always
// succeeds. The user_id the client supplies in the URL is still checked
// against the token's subject: the API keeps the original query-parameter
// surface, but a token for user A can never read user B's garage.
type VehicleHandler struct {
	vehicles *service.VehicleService
	logger   *slog.Logger
}

func NewVehicleHandler(vehicles *service.VehicleService, logger *slog.Logger) *VehicleHandler {
	return &VehicleHandler{vehicles: vehicles, logger: logger}
}

// HandleList returns the authenticated user's vehicles.
//
// HTTP: GET /vehicles?user_id={id}
func (h *VehicleHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	if requested := r.URL.Query().Get("user_id"); requested != "" && requested != userID {
		writeError(w, apperror.Forbidden("cannot list another user's vehicles"))
		return
	}

	vehicles, err := h.vehicles.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, vehicles)
}

// HandleCreate registers a new vehicle.
//
// HTTP: POST /vehicles
// BODY: {"make": "...", "model": "...", "year": 2020, "license_plate": "...", "current_mileage": 42000}
func (h *VehicleHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var vehicle model.Vehicle
	if err := json.NewDecoder(r.Body).Decode(&vehicle); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}
	// Ownership comes from the token, never from the body.
	vehicle.UserID = userID

	created, err := h.vehicles.Create(r.Context(), &vehicle)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// HandleUpdate replaces a vehicle with the full edited entity.
//
// HTTP: PUT /vehicles/{id}
func (h *VehicleHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	id := r.PathValue("id")
	if id == "" {
		writeError(w, apperror.ValidationFailed("id", "vehicle ID is required"))
		return
	}

	var vehicle model.Vehicle
	if err := json.NewDecoder(r.Body).Decode(&vehicle); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	updated, err := h.vehicles.Update(r.Context(), id, userID, &vehicle)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// HandleDelete removes a vehicle and its entire service history.
//
// HTTP: DELETE /vehicles/{id}
//
// The confirmation prompt lives in the clients; by the time a DELETE
// arrives here, the user already said yes.
func (h *VehicleHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	id := r.PathValue("id")
	if id == "" {
		writeError(w, apperror.ValidationFailed("id", "vehicle ID is required"))
		return
	}

	if err := h.vehicles.Delete(r.Context(), id, userID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleSummary returns the user's spending aggregate.
//
// HTTP: GET /summary/{user_id}
func (h *VehicleHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	if requested := r.PathValue("user_id"); requested != "" && requested != userID {
		writeError(w, apperror.Forbidden("cannot read another user's summary"))
		return
	}

	summary, err := h.vehicles.Summary(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
