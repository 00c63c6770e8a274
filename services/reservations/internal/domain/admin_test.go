package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserNormalize(t *testing.T) {
	u := NewUser{Email: "  bo@example.com ", Password: "x", Name: " Bo "}
	require.NoError(t, u.Normalize())
	assert.Equal(t, "bo@example.com", u.Email)
	assert.Equal(t, "Bo", u.Name)
	assert.Equal(t, "TRAVELER", u.Role)

	admin := NewUser{Email: "a@example.com", Password: "x", Role: "ADMIN"}
	require.NoError(t, admin.Normalize())
	assert.Equal(t, "ADMIN", admin.Role)

	for _, bad := range []NewUser{
		{Email: " ", Password: "x"},
		{Email: "a@example.com"},
		{Email: "a@example.com", Password: "x", Role: "admin"},
	} {
		assert.ErrorIs(t, bad.Normalize(), ErrInvalidField)
	}
}

func TestPatchValidation(t *testing.T) {
	empty, zero, blank := "", 0, "  "
	role, neg := "DRIVER", -1.0

	assert.NoError(t, UserPatch{}.Validate())
	assert.ErrorIs(t, UserPatch{Role: &role}.Validate(), ErrInvalidField)
	assert.ErrorIs(t, UserPatch{Password: &empty}.Validate(), ErrInvalidField)

	assert.NoError(t, BusPatch{}.Validate())
	assert.ErrorIs(t, BusPatch{Plate: &blank}.Validate(), ErrInvalidField)
	assert.ErrorIs(t, BusPatch{Capacity: &zero}.Validate(), ErrInvalidField)

	assert.NoError(t, TripPatch{}.Validate())
	assert.ErrorIs(t, TripPatch{Origin: &blank}.Validate(), ErrInvalidField)
	assert.ErrorIs(t, TripPatch{Price: &neg}.Validate(), ErrInvalidField)
}

func TestInputNormalize(t *testing.T) {
	bus := BusInput{Plate: " BUS-300 ", Capacity: 20}
	require.NoError(t, bus.Normalize())
	assert.Equal(t, "BUS-300", bus.Plate)
	assert.ErrorIs(t, (&BusInput{Plate: "X", Capacity: -2}).Normalize(), ErrInvalidField)

	trip := TripInput{BusID: 1, Origin: " A ", Destination: "B", DepartAt: time.Now(), Price: 5}
	require.NoError(t, trip.Normalize())
	assert.Equal(t, "A", trip.Origin)
	assert.ErrorIs(t, (&TripInput{BusID: 1, Origin: "A", Destination: "B", Price: 5}).Normalize(), ErrInvalidField)
	assert.ErrorIs(t, (&TripInput{BusID: 1, Origin: "A", Destination: "B", DepartAt: time.Now(), Price: -1}).Normalize(), ErrInvalidField)
}

func TestBuildWelcome(t *testing.T) {
	n := BuildWelcome(&User{Email: "bo@example.com"})
	assert.Equal(t, "bo@example.com", n.Recipient)
	assert.Equal(t, "Account created", n.Subject)
	assert.Equal(t, "Hello bo@example.com,\n\nYour account has been created.", n.PlainBody)
}
