package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diagnosis/luxbus/pkg/auth"
)

var (
	ErrInvalidField = errors.New("invalid field")
	ErrUserNotFound = errors.New("user not found")
	ErrBusNotFound  = errors.New("bus not found")
	ErrEmailTaken   = errors.New("email already registered")
	ErrPlateTaken   = errors.New("plate already registered")
	ErrInUse        = errors.New("still referenced by other records")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidField, fmt.Sprintf(format, args...))
}

func validRole(role string) bool {
	return role == auth.RoleTraveler || role == auth.RoleAdmin
}

type NewUser struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// Normalize trims fields and defaults the role to TRAVELER.
func (u *NewUser) Normalize() error {
	u.Email = strings.TrimSpace(u.Email)
	u.Name = strings.TrimSpace(u.Name)
	if u.Email == "" || u.Password == "" {
		return invalid("email and password required")
	}
	if u.Role == "" {
		u.Role = auth.RoleTraveler
	}
	if !validRole(u.Role) {
		return invalid("invalid role")
	}
	return nil
}

// UserPatch updates only the fields that are set.
type UserPatch struct {
	Name     *string `json:"name"`
	Role     *string `json:"role"`
	Password *string `json:"password"`
}

func (p UserPatch) Validate() error {
	if p.Role != nil && !validRole(*p.Role) {
		return invalid("invalid role")
	}
	if p.Password != nil && *p.Password == "" {
		return invalid("password must not be empty")
	}
	return nil
}

type BusInput struct {
	Plate    string `json:"plate"`
	Capacity int    `json:"capacity"`
}

func (b *BusInput) Normalize() error {
	b.Plate = strings.TrimSpace(b.Plate)
	if b.Plate == "" || b.Capacity == 0 {
		return invalid("plate and capacity required")
	}
	if b.Capacity < 0 {
		return invalid("capacity must be positive")
	}
	return nil
}

type BusPatch struct {
	Plate    *string `json:"plate"`
	Capacity *int    `json:"capacity"`
}

func (p BusPatch) Validate() error {
	if p.Plate != nil && strings.TrimSpace(*p.Plate) == "" {
		return invalid("plate must not be empty")
	}
	if p.Capacity != nil && *p.Capacity <= 0 {
		return invalid("capacity must be positive")
	}
	return nil
}

type TripInput struct {
	BusID       int64     `json:"busId"`
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	DepartAt    time.Time `json:"departAt"`
	Price       float64   `json:"price"`
}

func (t *TripInput) Normalize() error {
	t.Origin = strings.TrimSpace(t.Origin)
	t.Destination = strings.TrimSpace(t.Destination)
	if t.BusID <= 0 || t.Origin == "" || t.Destination == "" || t.DepartAt.IsZero() || t.Price == 0 {
		return invalid("missing fields")
	}
	if t.Price < 0 {
		return invalid("price must be positive")
	}
	return nil
}

type TripPatch struct {
	BusID       *int64     `json:"busId"`
	Origin      *string    `json:"origin"`
	Destination *string    `json:"destination"`
	DepartAt    *time.Time `json:"departAt"`
	Price       *float64   `json:"price"`
}

func (p TripPatch) Validate() error {
	if p.BusID != nil && *p.BusID <= 0 {
		return invalid("busId must be positive")
	}
	if p.Origin != nil && strings.TrimSpace(*p.Origin) == "" {
		return invalid("origin must not be empty")
	}
	if p.Destination != nil && strings.TrimSpace(*p.Destination) == "" {
		return invalid("destination must not be empty")
	}
	if p.Price != nil && *p.Price <= 0 {
		return invalid("price must be positive")
	}
	return nil
}

// BuildWelcome renders the notice sent when an administrator creates an account.
func BuildWelcome(u *User) NotificationRequest {
	text := fmt.Sprintf("Hello %s,\n\nYour account has been created.", u.DisplayName())
	return NotificationRequest{
		Recipient: u.Email,
		Subject:   "Account created",
		PlainBody: text,
	}
}
