package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/diagnosis/luxbus/pkg/auth"
	"github.com/diagnosis/luxbus/pkg/logger"
	"github.com/diagnosis/luxbus/pkg/queue"
	"github.com/diagnosis/luxbus/services/reservations/internal/domain"
	"github.com/diagnosis/luxbus/services/reservations/internal/repository"
	"github.com/diagnosis/luxbus/services/reservations/internal/service"
	"github.com/go-chi/chi/v5"
)

type claimsKey struct{}

type Handlers struct {
	admission    service.Admission
	admin        service.Admin
	reservations repository.ReservationRepository
	trips        repository.TripRepository
	queues       map[string]*queue.Inspector
	queueNames   []string
	jwtSecret    string
}

func New(
	admission service.Admission,
	reservations repository.ReservationRepository,
	trips repository.TripRepository,
	admin service.Admin,
	jwtSecret string,
	inspectors ...*queue.Inspector,
) *Handlers {
	h := &Handlers{
		admission:    admission,
		admin:        admin,
		reservations: reservations,
		trips:        trips,
		queues:       make(map[string]*queue.Inspector, len(inspectors)),
		jwtSecret:    jwtSecret,
	}
	for _, in := range inspectors {
		h.queues[in.Queue()] = in
		h.queueNames = append(h.queueNames, in.Queue())
	}
	return h
}

// Mount registers every route on r.
func (h *Handlers) Mount(r chi.Router) {
	r.Route("/trips", func(r chi.Router) {
		r.Get("/", h.ListTrips)
		r.Get("/{id}", h.GetTrip)
	})

	r.Route("/reservations", func(r chi.Router) {
		r.Use(h.RequireJWT())
		r.Post("/", h.CreateReservation)
		r.Get("/", h.ListReservations)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(h.RequireJWT(auth.RoleAdmin))

		r.Route("/queues", func(r chi.Router) {
			r.Get("/", h.ListQueues)
			r.Get("/{name}/counts", h.QueueCounts)
			r.Get("/{name}/jobs", h.ListJobs)
			r.Get("/{name}/jobs/{jobId}", h.GetJob)
			r.Post("/{name}/jobs/{jobId}/retry", h.RetryJob)
			r.Delete("/{name}/jobs/{jobId}", h.RemoveJob)
		})

		r.Get("/users", h.ListUsers)
		r.Post("/users", h.CreateUser)
		r.Put("/users/{id}", h.UpdateUser)
		r.Delete("/users/{id}", h.DeleteUser)

		r.Get("/buses", h.ListBuses)
		r.Post("/buses", h.CreateBus)
		r.Put("/buses/{id}", h.UpdateBus)
		r.Delete("/buses/{id}", h.DeleteBus)

		r.Get("/trips", h.ListAdminTrips)
		r.Post("/trips", h.CreateTrip)
		r.Put("/trips/{id}", h.UpdateTrip)
		r.Delete("/trips/{id}", h.DeleteTrip)
	})
}

// RequireJWT rejects requests without a valid bearer token. With roles set,
// the token's role must be one of them.
func (h *Handlers) RequireJWT(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "missing token", "unauthorized")
				return
			}

			claims, err := auth.Parse(strings.TrimPrefix(header, "Bearer "), h.jwtSecret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token", "unauthorized")
				return
			}
			if len(roles) > 0 && !hasRole(claims.Role, roles) {
				writeError(w, http.StatusForbidden, "insufficient permissions", "forbidden")
				return
			}

			ctx := context.WithValue(r.Context(), logger.UserIDKey, claims.Sub)
			ctx = context.WithValue(ctx, claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func hasRole(role string, roles []string) bool {
	for _, r := range roles {
		if strings.EqualFold(role, r) {
			return true
		}
	}
	return false
}

func getClaims(r *http.Request) *auth.Claims {
	claims, _ := r.Context().Value(claimsKey{}).(*auth.Claims)
	return claims
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message, code string) {
	writeJSON(w, statusCode, map[string]string{"error": message, "code": code})
}

// writeDomainError maps the booking error taxonomy onto HTTP.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, domain.ErrInvalidInput.Error(), "invalid_input")
	case errors.Is(err, domain.ErrTripNotFound):
		writeError(w, http.StatusNotFound, domain.ErrTripNotFound.Error(), "trip_not_found")
	case errors.Is(err, domain.ErrInvalidSeat):
		writeError(w, http.StatusBadRequest, domain.ErrInvalidSeat.Error(), "invalid_seat")
	case errors.Is(err, domain.ErrTripDeparted):
		writeError(w, http.StatusBadRequest, domain.ErrTripDeparted.Error(), "trip_departed")
	case errors.Is(err, domain.ErrSeatTaken):
		writeError(w, http.StatusConflict, domain.ErrSeatTaken.Error(), "seat_taken")
	case errors.Is(err, domain.ErrUnknownReference):
		writeError(w, http.StatusNotFound, domain.ErrUnknownReference.Error(), "unknown_reference")
	case errors.Is(err, domain.ErrInvalidField):
		writeError(w, http.StatusBadRequest, err.Error(), "invalid_field")
	case errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, domain.ErrUserNotFound.Error(), "user_not_found")
	case errors.Is(err, domain.ErrBusNotFound):
		writeError(w, http.StatusNotFound, domain.ErrBusNotFound.Error(), "bus_not_found")
	case errors.Is(err, domain.ErrEmailTaken):
		writeError(w, http.StatusConflict, domain.ErrEmailTaken.Error(), "email_taken")
	case errors.Is(err, domain.ErrPlateTaken):
		writeError(w, http.StatusConflict, domain.ErrPlateTaken.Error(), "plate_taken")
	case errors.Is(err, domain.ErrInUse):
		writeError(w, http.StatusConflict, domain.ErrInUse.Error(), "in_use")
	case errors.Is(err, domain.ErrStoreUnavailable):
		logger.ErrorContext(r.Context(), "Store unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, "service temporarily unavailable, retry later", "store_unavailable")
	default:
		logger.ErrorContext(r.Context(), "Request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error", "internal_error")
	}
}

func parseID(r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
