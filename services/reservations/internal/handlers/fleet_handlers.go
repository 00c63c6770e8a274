package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/diagnosis/luxbus/services/reservations/internal/domain"
)

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "invalid_field")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id", "invalid_field")
	}
	return id, ok
}

func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.admin.ListUsers(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// CreateUser registers an account; the role defaults to TRAVELER.
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	var body domain.NewUser
	if !decodeBody(w, r, &body) {
		return
	}
	u, err := h.admin.CreateUser(r.Context(), body)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body domain.UserPatch
	if !decodeBody(w, r, &body) {
		return
	}
	u, err := h.admin.UpdateUser(r.Context(), id, body)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.admin.DeleteUser(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ListBuses(w http.ResponseWriter, r *http.Request) {
	buses, err := h.admin.ListBuses(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, buses)
}

func (h *Handlers) CreateBus(w http.ResponseWriter, r *http.Request) {
	var body domain.BusInput
	if !decodeBody(w, r, &body) {
		return
	}
	b, err := h.admin.CreateBus(r.Context(), body)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *Handlers) UpdateBus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body domain.BusPatch
	if !decodeBody(w, r, &body) {
		return
	}
	b, err := h.admin.UpdateBus(r.Context(), id, body)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handlers) DeleteBus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.admin.DeleteBus(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ListAdminTrips(w http.ResponseWriter, r *http.Request) {
	trips, err := h.admin.ListTrips(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trips)
}

func (h *Handlers) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var body domain.TripInput
	if !decodeBody(w, r, &body) {
		return
	}
	t, err := h.admin.CreateTrip(r.Context(), body)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handlers) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body domain.TripPatch
	if !decodeBody(w, r, &body) {
		return
	}
	t, err := h.admin.UpdateTrip(r.Context(), id, body)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handlers) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.admin.DeleteTrip(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
