package service

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/diagnosis/luxbus/pkg/clock"
	"github.com/diagnosis/luxbus/services/reservations/internal/domain"
)

type seatKey struct {
	tripID int64
	seat   int
}

// fakeStore enforces (trip, seat) uniqueness the way the database index does.
type fakeStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[seatKey]domain.Reservation

	// blindExists makes ExistsSeat always miss so races reach Insert.
	blindExists bool
	err         error
	insertErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[seatKey]domain.Reservation{}}
}

func (s *fakeStore) ExistsSeat(ctx context.Context, tripID int64, seat int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	if s.blindExists {
		return false, nil
	}
	_, ok := s.rows[seatKey{tripID, seat}]
	return ok, nil
}

func (s *fakeStore) Insert(ctx context.Context, travelerID, tripID int64, seat int) (*domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	k := seatKey{tripID, seat}
	if _, ok := s.rows[k]; ok {
		return nil, domain.ErrSeatTaken
	}
	s.nextID++
	res := domain.Reservation{ID: s.nextID, TravelerID: travelerID, TripID: tripID, Seat: seat, CreatedAt: time.Now()}
	s.rows[k] = res
	return &res, nil
}

func (s *fakeStore) GetByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) FindBySeat(ctx context.Context, tripID int64, seat int) (*domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rows[seatKey{tripID, seat}]; ok {
		return &r, nil
	}
	return nil, nil
}

func (s *fakeStore) ListByTraveler(ctx context.Context, travelerID int64) ([]domain.ReservationWithTrip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.ReservationWithTrip{}
	for _, r := range s.rows {
		if r.TravelerID == travelerID {
			out = append(out, domain.ReservationWithTrip{Reservation: r})
		}
	}
	return out, nil
}

func (s *fakeStore) ReservedSeats(ctx context.Context, tripID int64) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seats := []int{}
	for k := range s.rows {
		if k.tripID == tripID {
			seats = append(seats, k.seat)
		}
	}
	sort.Ints(seats)
	return seats, nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

type fakeTrips struct {
	trips map[int64]*domain.Trip
	err   error
}

func (f *fakeTrips) GetTripWithBus(ctx context.Context, id int64) (*domain.Trip, error) {
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.trips[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTrips) List(ctx context.Context) ([]domain.Trip, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.Trip, 0, len(f.trips))
	for _, t := range f.trips {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeUsers struct {
	users map[int64]*domain.User
}

func (f *fakeUsers) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	return f.users[id], nil
}

func (f *fakeUsers) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.NotificationRequest
}

func (n *recordingNotifier) Submit(ctx context.Context, req domain.NotificationRequest) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, req)
}

func (n *recordingNotifier) all() []domain.NotificationRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.NotificationRequest(nil), n.sent...)
}

type fakeEnqueuer struct {
	mu   sync.Mutex
	jobs []domain.BookingJob
	err  error
}

func (e *fakeEnqueuer) Enqueue(ctx context.Context, job domain.BookingJob) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return "", e.err
	}
	e.jobs = append(e.jobs, job)
	return strconv.Itoa(len(e.jobs)), nil
}

func (e *fakeEnqueuer) queued() []domain.BookingJob {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.BookingJob(nil), e.jobs...)
}

var now = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

const (
	travelerID = int64(3)
	tripID     = int64(1)
	capacity   = 40
)

type fixture struct {
	store     *fakeStore
	trips     *fakeTrips
	users     *fakeUsers
	notifier  *recordingNotifier
	enqueuer  *fakeEnqueuer
	booker    Booker
	fallback  FallbackExecutor
	admission Admission
}

func newFixture() *fixture {
	price := 12.5
	f := &fixture{
		store: newFakeStore(),
		trips: &fakeTrips{trips: map[int64]*domain.Trip{
			tripID: {
				ID: tripID, BusID: 9, Origin: "City A", Destination: "City B",
				DepartAt: now.Add(24 * time.Hour), Price: &price,
				Bus: &domain.Bus{ID: 9, Plate: "BUS-100", Capacity: capacity},
			},
			2: {
				ID: 2, BusID: 9, Origin: "City B", Destination: "City C",
				DepartAt: now,
				Bus:      &domain.Bus{ID: 9, Plate: "BUS-100", Capacity: capacity},
			},
			3: {
				ID: 3, BusID: 9, Origin: "City C", Destination: "City D",
				DepartAt: now.Add(-time.Hour),
				Bus:      &domain.Bus{ID: 9, Plate: "BUS-100", Capacity: capacity},
			},
		}},
		users: &fakeUsers{users: map[int64]*domain.User{
			travelerID: {ID: travelerID, Email: "ana@example.com", Name: "Ana"},
		}},
		notifier: &recordingNotifier{},
		enqueuer: &fakeEnqueuer{},
	}
	f.rebuild()
	return f
}

func (f *fixture) rebuild() {
	f.booker = NewBooker(f.store, f.trips, f.users, f.notifier, time.UTC)
	f.fallback = NewFallbackExecutor(f.trips, f.booker)
	f.admission = NewAdmission(f.trips, f.enqueuer, f.fallback, clock.NewFixed(now), time.Second)
}
