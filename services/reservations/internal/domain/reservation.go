package domain

import "time"

// BookingRequest is an authenticated traveler asking for one seat.
type BookingRequest struct {
	TravelerID int64 `json:"travelerId"`
	TripID     int64 `json:"tripId"`
	Seat       int   `json:"seat"`
}

// BookingJob is the payload carried on the reservations queue.
type BookingJob struct {
	TravelerID int64 `json:"userId"`
	TripID     int64 `json:"tripId"`
	Seat       int   `json:"seat"`
}

func (r BookingRequest) Job() BookingJob {
	return BookingJob{TravelerID: r.TravelerID, TripID: r.TripID, Seat: r.Seat}
}

func (j BookingJob) Request() BookingRequest {
	return BookingRequest{TravelerID: j.TravelerID, TripID: j.TripID, Seat: j.Seat}
}

type Reservation struct {
	ID         int64     `json:"id"`
	TravelerID int64     `json:"userId"`
	TripID     int64     `json:"tripId"`
	Seat       int       `json:"seat"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ReservationWithTrip is a traveler's reservation joined with its trip.
type ReservationWithTrip struct {
	Reservation
	Trip Trip `json:"trip"`
}

type Source string

const (
	SourceQueue    Source = "queue"
	SourceFallback Source = "fallback"
)

// Outcome is the result of a successful admission. Exactly one of JobID and
// ReservationID is set, depending on Source.
type Outcome struct {
	OK            bool   `json:"ok"`
	Source        Source `json:"source"`
	JobID         string `json:"jobId,omitempty"`
	ReservationID int64  `json:"reservationId,omitempty"`
}

func Queued(jobID string) Outcome {
	return Outcome{OK: true, Source: SourceQueue, JobID: jobID}
}

func Completed(reservationID int64) Outcome {
	return Outcome{OK: true, Source: SourceFallback, ReservationID: reservationID}
}
