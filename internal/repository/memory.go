package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"carwash/internal/carwash"
	apperrors "carwash/internal/errors"
)

// MemoryStore keeps everything in process. Transactions are serialized by a single mutex, which
// gives the same guarantee as SERIALIZABLE for the submission path.
type MemoryStore struct {
	mu           sync.Mutex
	reservations map[string]carwash.Reservation
	blockers     map[string]carwash.Blocker
	users        map[string]User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reservations: map[string]carwash.Reservation{},
		blockers:     map[string]carwash.Blocker{},
		users:        map[string]User{},
	}
}

type memTx struct {
	s        *MemoryStore
	inserted []string
}

func (t *memTx) ReservationsBetween(_ context.Context, from, to time.Time) ([]carwash.Reservation, error) {
	return t.s.between(from, to), nil
}

func (t *memTx) UserReservationsSince(_ context.Context, userID string, since time.Time) ([]carwash.Reservation, error) {
	return t.s.userSince(userID, since), nil
}

func (t *memTx) InsertReservation(_ context.Context, r *carwash.Reservation) error {
	if _, ok := t.s.reservations[r.ID]; ok {
		return apperrors.ErrConflict.Withf("reservation %s already exists", r.ID)
	}
	t.s.reservations[r.ID] = cloneReservation(*r)
	t.inserted = append(t.inserted, r.ID)
	return nil
}

func (s *MemoryStore) InTx(ctx context.Context, fn func(tx ReservationTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{s: s}
	if err := fn(tx); err != nil {
		for _, id := range tx.inserted {
			delete(s.reservations, id)
		}
		return err
	}
	return nil
}

func (s *MemoryStore) between(from, to time.Time) []carwash.Reservation {
	var out []carwash.Reservation
	for _, r := range s.reservations {
		if !r.StartDate.Before(from) && r.StartDate.Before(to) {
			out = append(out, cloneReservation(r))
		}
	}
	sortReservations(out)
	return out
}

func (s *MemoryStore) userSince(userID string, since time.Time) []carwash.Reservation {
	var out []carwash.Reservation
	for _, r := range s.reservations {
		if r.UserID == userID && !r.StartDate.Before(since) {
			out = append(out, cloneReservation(r))
		}
	}
	sortReservations(out)
	return out
}

func (s *MemoryStore) ReservationsBetween(_ context.Context, from, to time.Time) ([]carwash.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.between(from, to), nil
}

func (s *MemoryStore) UserReservationsSince(_ context.Context, userID string, since time.Time) ([]carwash.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userSince(userID, since), nil
}

func (s *MemoryStore) GetReservation(_ context.Context, id string) (*carwash.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return nil, apperrors.ErrNotFound.Withf("reservation %s not found", id).WithDetails("id", id)
	}
	out := cloneReservation(r)
	return &out, nil
}

func (s *MemoryStore) UpdateState(_ context.Context, id string, expected carwash.State, u StateUpdate) (*carwash.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return nil, apperrors.ErrNotFound.Withf("reservation %s not found", id).WithDetails("id", id)
	}
	if r.State != expected {
		return nil, apperrors.ErrConflict.Withf("reservation %s changed state concurrently", id).
			WithDetails("id", id, "expected", expected.String())
	}
	r.State = u.State
	if u.Location != nil {
		r.Location = *u.Location
	}
	if u.CarwashComment != nil {
		r.CarwashComment = *u.CarwashComment
	}
	if u.PaymentSessionID != nil {
		r.PaymentSessionID = *u.PaymentSessionID
	}
	s.reservations[id] = r
	out := cloneReservation(r)
	return &out, nil
}

func (s *MemoryStore) ListReservations(_ context.Context, f ReservationFilter) ([]carwash.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []carwash.Reservation
	for _, r := range s.reservations {
		if f.From != nil && r.StartDate.Before(*f.From) {
			continue
		}
		if f.To != nil && !r.StartDate.Before(*f.To) {
			continue
		}
		if f.State != nil && r.State != *f.State {
			continue
		}
		if f.UserID != "" && r.UserID != f.UserID {
			continue
		}
		out = append(out, cloneReservation(r))
	}
	sortReservations(out)
	return out, nil
}

func (s *MemoryStore) ListBlockers(_ context.Context, from, to time.Time) ([]carwash.Blocker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []carwash.Blocker
	for _, b := range s.blockers {
		if b.Overlaps(from, to) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (s *MemoryStore) CreateBlocker(_ context.Context, b *carwash.Blocker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blockers[b.ID] = *b
	return nil
}

func (s *MemoryStore) DeleteBlocker(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blockers[id]; !ok {
		return apperrors.ErrNotFound.Withf("blocker %s not found", id)
	}
	delete(s.blockers, id)
	return nil
}

func (s *MemoryStore) ReminderCandidates(_ context.Context, from, to time.Time) ([]carwash.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []carwash.Reservation
	for _, r := range s.between(from, to) {
		if r.State == carwash.SubmittedNotActual {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) PurgeCancelledBefore(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, r := range s.reservations {
		if r.State == carwash.Cancelled && r.StartDate.Before(before) {
			delete(s.reservations, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) GetReservationByPaymentSession(_ context.Context, sessionID string) (*carwash.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reservations {
		if sessionID != "" && r.PaymentSessionID == sessionID {
			out := cloneReservation(r)
			return &out, nil
		}
	}
	return nil, apperrors.ErrNotFound.Withf("no reservation for payment session %s", sessionID)
}

func (s *MemoryStore) SetPaymentSession(_ context.Context, reservationID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[reservationID]
	if !ok {
		return apperrors.ErrNotFound.Withf("reservation %s not found", reservationID)
	}
	r.PaymentSessionID = sessionID
	s.reservations[reservationID] = r
	return nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(email)
	for _, u := range s.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, apperrors.ErrNotFound.Withf("user not found")
}

func (s *MemoryStore) GetUserByID(_ context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound.Withf("user not found")
	}
	return &u, nil
}

func (s *MemoryStore) CreateUser(_ context.Context, u *User, password string) error {
	if err := prepareUser(u, password); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return apperrors.ErrConflict.Withf("user %s already exists", u.Email)
		}
	}
	s.users[u.ID] = *u
	return nil
}

func cloneReservation(r carwash.Reservation) carwash.Reservation {
	r.Services = append([]carwash.ServiceType(nil), r.Services...)
	return r
}

func sortReservations(rs []carwash.Reservation) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].StartDate.Equal(rs[j].StartDate) {
			return rs[i].StartDate.Before(rs[j].StartDate)
		}
		return rs[i].CreatedOn.Before(rs[j].CreatedOn)
	})
}

var (
	_ ReservationStore = (*MemoryStore)(nil)
	_ AdminStore       = (*MemoryStore)(nil)
	_ JobStore         = (*MemoryStore)(nil)
	_ PaymentStore     = (*MemoryStore)(nil)
	_ UserStore        = (*MemoryStore)(nil)

	_ ReservationStore = (*ReservationRepository)(nil)
	_ AdminStore       = (*AdminRepository)(nil)
	_ JobStore         = (*JobRepository)(nil)
	_ PaymentStore     = (*StripeRepository)(nil)
	_ UserStore        = (*UserRepository)(nil)
)
