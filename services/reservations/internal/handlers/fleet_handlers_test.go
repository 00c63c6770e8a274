package handlers

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/diagnosis/luxbus/pkg/auth"
	"github.com/diagnosis/luxbus/services/reservations/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAdmin records the last call and answers every method with err.
type fakeAdmin struct {
	calls []string
	ids   []int64
	body  any
	err   error
}

func (a *fakeAdmin) record(call string, id int64, body any) {
	a.calls = append(a.calls, call)
	a.ids = append(a.ids, id)
	a.body = body
}

func (a *fakeAdmin) ListUsers(ctx context.Context) ([]domain.User, error) {
	a.record("ListUsers", 0, nil)
	return []domain.User{{ID: 1, Email: "ana@example.com", PasswordHash: "secret", Role: auth.RoleAdmin}}, a.err
}

func (a *fakeAdmin) CreateUser(ctx context.Context, in domain.NewUser) (*domain.User, error) {
	a.record("CreateUser", 0, in)
	if a.err != nil {
		return nil, a.err
	}
	return &domain.User{ID: 5, Email: in.Email, Role: auth.RoleTraveler}, nil
}

func (a *fakeAdmin) UpdateUser(ctx context.Context, id int64, patch domain.UserPatch) (*domain.User, error) {
	a.record("UpdateUser", id, patch)
	if a.err != nil {
		return nil, a.err
	}
	return &domain.User{ID: id}, nil
}

func (a *fakeAdmin) DeleteUser(ctx context.Context, id int64) error {
	a.record("DeleteUser", id, nil)
	return a.err
}

func (a *fakeAdmin) ListBuses(ctx context.Context) ([]domain.Bus, error) {
	a.record("ListBuses", 0, nil)
	return []domain.Bus{}, a.err
}

func (a *fakeAdmin) CreateBus(ctx context.Context, in domain.BusInput) (*domain.Bus, error) {
	a.record("CreateBus", 0, in)
	if a.err != nil {
		return nil, a.err
	}
	return &domain.Bus{ID: 3, Plate: in.Plate, Capacity: in.Capacity}, nil
}

func (a *fakeAdmin) UpdateBus(ctx context.Context, id int64, patch domain.BusPatch) (*domain.Bus, error) {
	a.record("UpdateBus", id, patch)
	if a.err != nil {
		return nil, a.err
	}
	return &domain.Bus{ID: id}, nil
}

func (a *fakeAdmin) DeleteBus(ctx context.Context, id int64) error {
	a.record("DeleteBus", id, nil)
	return a.err
}

func (a *fakeAdmin) ListTrips(ctx context.Context) ([]domain.Trip, error) {
	a.record("ListTrips", 0, nil)
	return []domain.Trip{}, a.err
}

func (a *fakeAdmin) CreateTrip(ctx context.Context, in domain.TripInput) (*domain.Trip, error) {
	a.record("CreateTrip", 0, in)
	if a.err != nil {
		return nil, a.err
	}
	return &domain.Trip{ID: 8, BusID: in.BusID}, nil
}

func (a *fakeAdmin) UpdateTrip(ctx context.Context, id int64, patch domain.TripPatch) (*domain.Trip, error) {
	a.record("UpdateTrip", id, patch)
	if a.err != nil {
		return nil, a.err
	}
	return &domain.Trip{ID: id}, nil
}

func (a *fakeAdmin) DeleteTrip(ctx context.Context, id int64) error {
	a.record("DeleteTrip", id, nil)
	return a.err
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	e := newEnv(t)

	for _, path := range []string{"/admin/users", "/admin/buses", "/admin/trips"} {
		rec := e.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)

		rec = e.do(t, http.MethodGet, path, token(t, 7, auth.RoleTraveler), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
	}

	rec := e.do(t, http.MethodPost, "/admin/buses", token(t, 7, auth.RoleTraveler), map[string]any{"plate": "X", "capacity": 1})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, e.admin.calls)
}

func TestAdminCRUDRoutes(t *testing.T) {
	tests := []struct {
		method string
		path   string
		body   any
		status int
		call   string
		id     int64
	}{
		{http.MethodGet, "/admin/users", nil, http.StatusOK, "ListUsers", 0},
		{http.MethodPost, "/admin/users", map[string]any{"email": "bo@example.com", "password": "x"}, http.StatusCreated, "CreateUser", 0},
		{http.MethodPut, "/admin/users/4", map[string]any{"role": "ADMIN"}, http.StatusOK, "UpdateUser", 4},
		{http.MethodDelete, "/admin/users/4", nil, http.StatusNoContent, "DeleteUser", 4},
		{http.MethodGet, "/admin/buses", nil, http.StatusOK, "ListBuses", 0},
		{http.MethodPost, "/admin/buses", map[string]any{"plate": "BUS-300", "capacity": 20}, http.StatusCreated, "CreateBus", 0},
		{http.MethodPut, "/admin/buses/2", map[string]any{"capacity": 25}, http.StatusOK, "UpdateBus", 2},
		{http.MethodDelete, "/admin/buses/2", nil, http.StatusNoContent, "DeleteBus", 2},
		{http.MethodGet, "/admin/trips", nil, http.StatusOK, "ListTrips", 0},
		{http.MethodPost, "/admin/trips", map[string]any{"busId": 2, "origin": "A", "destination": "B", "departAt": "2026-06-01T10:00:00Z", "price": 9.5}, http.StatusCreated, "CreateTrip", 0},
		{http.MethodPut, "/admin/trips/6", map[string]any{"origin": "C"}, http.StatusOK, "UpdateTrip", 6},
		{http.MethodDelete, "/admin/trips/6", nil, http.StatusNoContent, "DeleteTrip", 6},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			e := newEnv(t)

			rec := e.do(t, tt.method, tt.path, token(t, 1, auth.RoleAdmin), tt.body)

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			require.Equal(t, []string{tt.call}, e.admin.calls)
			assert.Equal(t, tt.id, e.admin.ids[0])
		})
	}
}

func TestAdminRequestBodies(t *testing.T) {
	e := newEnv(t)
	tok := token(t, 1, auth.RoleAdmin)

	rec := e.do(t, http.MethodPost, "/admin/users", tok, map[string]any{"email": "bo@example.com", "password": "x", "name": "Bo"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, domain.NewUser{Email: "bo@example.com", Password: "x", Name: "Bo"}, e.admin.body)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = e.do(t, http.MethodPut, "/admin/users/3", tok, map[string]any{"name": "Ana"})
	require.Equal(t, http.StatusOK, rec.Code)
	patch := e.admin.body.(domain.UserPatch)
	require.NotNil(t, patch.Name)
	assert.Equal(t, "Ana", *patch.Name)
	assert.Nil(t, patch.Role)
	assert.Nil(t, patch.Password)

	rec = e.do(t, http.MethodGet, "/admin/users", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestAdminRejectsMalformedRequests(t *testing.T) {
	e := newEnv(t)
	tok := token(t, 1, auth.RoleAdmin)

	for _, tt := range []struct{ method, path, body string }{
		{http.MethodPost, "/admin/buses", `{`},
		{http.MethodPut, "/admin/buses/abc", `{}`},
		{http.MethodPut, "/admin/trips/0", `{}`},
		{http.MethodDelete, "/admin/users/-1", ``},
		{http.MethodPost, "/admin/trips", `{"departAt":"tomorrow"}`},
	} {
		rec := e.do(t, tt.method, tt.path, tok, tt.body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tt.path)
		assert.Equal(t, "invalid_field", decode[map[string]string](t, rec)["code"])
	}
	assert.Empty(t, e.admin.calls)
}

func TestAdminErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: invalid role", domain.ErrInvalidField), http.StatusBadRequest, "invalid_field"},
		{domain.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
		{domain.ErrBusNotFound, http.StatusNotFound, "bus_not_found"},
		{domain.ErrTripNotFound, http.StatusNotFound, "trip_not_found"},
		{domain.ErrEmailTaken, http.StatusConflict, "email_taken"},
		{domain.ErrPlateTaken, http.StatusConflict, "plate_taken"},
		{domain.ErrInUse, http.StatusConflict, "in_use"},
		{&domain.StoreError{Op: "delete bus", Err: fmt.Errorf("refused")}, http.StatusServiceUnavailable, "store_unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			e := newEnv(t)
			e.admin.err = tt.err

			rec := e.do(t, http.MethodDelete, "/admin/buses/1", token(t, 1, auth.RoleAdmin), nil)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decode[map[string]string](t, rec)["code"])
		})
	}

	e := newEnv(t)
	e.admin.err = fmt.Errorf("%w: invalid role", domain.ErrInvalidField)
	rec := e.do(t, http.MethodPost, "/admin/users", token(t, 1, auth.RoleAdmin), map[string]any{"email": "a@b", "password": "x", "role": "root"})
	assert.Equal(t, "invalid field: invalid role", decode[map[string]string](t, rec)["error"])
}
