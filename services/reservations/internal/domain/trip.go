package domain

import "time"

type Bus struct {
	ID       int64  `json:"id"`
	Plate    string `json:"plate"`
	Capacity int    `json:"capacity"`
}

type Trip struct {
	ID          int64     `json:"id"`
	BusID       int64     `json:"busId"`
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	DepartAt    time.Time `json:"departAt"`
	Price       *float64  `json:"price"`
	Bus         *Bus      `json:"bus,omitempty"`
}

// HasSeat reports whether seat is within the bus capacity.
func (t *Trip) HasSeat(seat int) bool {
	return t.Bus != nil && seat >= 1 && seat <= t.Bus.Capacity
}

// DepartedBy reports whether the trip is no longer bookable at now.
func (t *Trip) DepartedBy(now time.Time) bool {
	return !t.DepartAt.After(now)
}

// TripDetail is a trip with the seats already reserved on it.
type TripDetail struct {
	Trip
	ReservedSeats []int `json:"reservedSeats"`
}
