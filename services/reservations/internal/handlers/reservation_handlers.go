package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/diagnosis/luxbus/services/reservations/internal/domain"
)

type createReservationReq struct {
	TripID *int64 `json:"tripId"`
	Seat   *int   `json:"seat"`
}

// CreateReservation admits a booking for the authenticated traveler.
func (h *Handlers) CreateReservation(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "authentication required", "unauthorized")
		return
	}

	var body createReservationReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.TripID == nil || body.Seat == nil {
		writeDomainError(w, r, domain.ErrInvalidInput)
		return
	}

	out, err := h.admission.Admit(r.Context(), domain.BookingRequest{
		TravelerID: claims.Sub,
		TripID:     *body.TripID,
		Seat:       *body.Seat,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	status := http.StatusAccepted
	if out.Source == domain.SourceFallback {
		status = http.StatusCreated
	}
	writeJSON(w, status, out)
}

func (h *Handlers) ListReservations(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "authentication required", "unauthorized")
		return
	}

	list, err := h.reservations.ListByTraveler(r.Context(), claims.Sub)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handlers) ListTrips(w http.ResponseWriter, r *http.Request) {
	trips, err := h.trips.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trips)
}

// GetTrip returns the trip with its bus and the seats already taken.
func (h *Handlers) GetTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid trip id", "invalid_id")
		return
	}

	trip, err := h.trips.GetTripWithBus(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if trip == nil {
		writeDomainError(w, r, domain.ErrTripNotFound)
		return
	}

	seats, err := h.reservations.ReservedSeats(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.TripDetail{Trip: *trip, ReservedSeats: seats})
}
