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

// RecordHandler manages CRUD for service records.
type RecordHandler struct {
	records *service.RecordService
	logger  *slog.Logger
}

func NewRecordHandler(records *service.RecordService, logger *slog.Logger) *RecordHandler {
	return &RecordHandler{records: records, logger: logger}
}

// HandleList returns a vehicle's service history, newest first.
//
// HTTP: GET /records?vehicle_id={id}
func (h *RecordHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	vehicleID := r.URL.Query().Get("vehicle_id")
	if vehicleID == "" {
		writeError(w, apperror.ValidationFailed("vehicle_id", "vehicle_id is required"))
		return
	}

	records, err := h.records.ListByVehicle(r.Context(), vehicleID, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// HandleCreate logs a new service record.
//
// HTTP: POST /records
// BODY: {"vehicle_id": "...", "date": "2025-10-14", "task": "Oil change",
//        "cost": 89.99, "mileage": 48000, "verification_hash": "..."}
//
// verification_hash is optional — present only when the record came from a
// scanned receipt. The server stores it verbatim and attaches no meaning.
func (h *RecordHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var record model.Record
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	created, err := h.records.Create(r.Context(), userID, &record)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// HandleUpdate replaces a record with the full edited entity.
//
// HTTP: PUT /records/{id}
func (h *RecordHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	id := r.PathValue("id")
	if id == "" {
		writeError(w, apperror.ValidationFailed("id", "record ID is required"))
		return
	}

	var record model.Record
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	updated, err := h.records.Update(r.Context(), id, userID, &record)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// HandleDelete removes a single service record.
//
// HTTP: DELETE /records/{id}
func (h *RecordHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	id := r.PathValue("id")
	if id == "" {
		writeError(w, apperror.ValidationFailed("id", "record ID is required"))
		return
	}

	if err := h.records.Delete(r.Context(), id, userID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
