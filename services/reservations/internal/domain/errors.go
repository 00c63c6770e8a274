package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput     = errors.New("tripId and seat required")
	ErrTripNotFound     = errors.New("trip not found")
	ErrInvalidSeat      = errors.New("invalid seat")
	ErrTripDeparted     = errors.New("trip already departed")
	ErrSeatTaken        = errors.New("seat already taken")
	ErrUnknownReference = errors.New("traveler or trip no longer exists")
	ErrQueueUnavailable = errors.New("queue unavailable")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// StoreError wraps a failed persistence call. It matches ErrStoreUnavailable
// under errors.Is.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStoreUnavailable }
