package handler

import (
	"context"
	"sync"
	"time"

	"github.com/hanyue/activity-seats/internal/model"
	"github.com/hanyue/activity-seats/internal/repository"
)

// In-memory stores mirroring the repository semantics. The seat fake
// guards every mutation with one mutex, which stands in for the atomic
// conditional UPDATE: a claim checks and writes the holder in a single
// critical section, so concurrent handler tests observe exactly the
// first-writer-wins behavior of the real store.

type fakeUserStore struct {
	mu     sync.Mutex
	nextID uint64
	users  map[uint64]*model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[uint64]*model.User{}}
}

func (s *fakeUserStore) add(u model.User) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	u.ID = s.nextID
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := u
	s.users[u.ID] = &cp
	return &cp
}

func (s *fakeUserStore) Create(_ context.Context, mobile, passwordHash string, nickname *string) (*model.User, error) {
	s.mu.Lock()
	for _, u := range s.users {
		if u.Mobile != nil && *u.Mobile == mobile {
			s.mu.Unlock()
			return nil, repository.ErrMobileExists
		}
	}
	s.mu.Unlock()
	return s.add(model.User{Mobile: &mobile, Password: &passwordHash, Nickname: nickname}), nil
}

func (s *fakeUserStore) CreateWeChat(_ context.Context, openid, nickname string) (*model.User, error) {
	return s.add(model.User{OpenID: &openid, Nickname: &nickname}), nil
}

func (s *fakeUserStore) GetByID(_ context.Context, id uint64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (s *fakeUserStore) GetByMobile(_ context.Context, mobile string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Mobile != nil && *u.Mobile == mobile {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeUserStore) GetByOpenID(_ context.Context, openid string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.OpenID != nil && *u.OpenID == openid {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeUserStore) UpdateNickname(_ context.Context, id uint64, nickname string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[id]
	u.Nickname = &nickname
	u.UpdatedAt = time.Now()
	cp := *u
	return &cp, nil
}

func (s *fakeUserStore) UnbindWeChat(_ context.Context, id uint64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[id]
	u.OpenID = nil
	u.UpdatedAt = time.Now()
	cp := *u
	return &cp, nil
}

type seatKey struct {
	activityID uint64
	seatNumber uint32
}

type fakeSeatState struct {
	userID     *uint64
	remark     *string
	occupiedAt *time.Time
}

type fakeSeatStore struct {
	mu         sync.Mutex
	status     map[uint64]string // activity id -> status
	seats      map[seatKey]*fakeSeatState
	nextSeatID uint64
	seatIDs    map[seatKey]uint64
}

func newFakeSeatStore() *fakeSeatStore {
	return &fakeSeatStore{
		status:  map[uint64]string{},
		seats:   map[seatKey]*fakeSeatState{},
		seatIDs: map[seatKey]uint64{},
	}
}

// addActivity seeds an activity with free seats 1..capacity.
func (s *fakeSeatStore) addActivity(id uint64, status string, capacity uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[id] = status
	for n := uint32(1); n <= capacity; n++ {
		k := seatKey{id, n}
		s.nextSeatID++
		s.seatIDs[k] = s.nextSeatID
		s.seats[k] = &fakeSeatState{}
	}
}

func (s *fakeSeatStore) Occupy(_ context.Context, activityID uint64, seatNumber uint32, userID uint64, remark *string) (*model.ActivitySeat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := s.status[activityID]
	if !ok {
		return nil, repository.ErrActivityNotFound
	}
	if status != model.StatusPublished {
		return nil, repository.ErrActivityNotOpen
	}
	for k, st := range s.seats {
		if k.activityID == activityID && st.userID != nil && *st.userID == userID {
			return nil, &repository.AlreadyHeldError{SeatNumber: k.seatNumber}
		}
	}

	k := seatKey{activityID, seatNumber}
	seat, ok := s.seats[k]
	if !ok || seat.userID != nil {
		return nil, repository.ErrSeatTaken
	}
	now := time.Now()
	seat.userID = &userID
	seat.remark = remark
	seat.occupiedAt = &now

	return &model.ActivitySeat{
		ID:         s.seatIDs[k],
		ActivityID: activityID,
		SeatNumber: seatNumber,
		UserID:     seat.userID,
		Remark:     seat.remark,
		OccupiedAt: seat.occupiedAt,
	}, nil
}

func (s *fakeSeatStore) Release(_ context.Context, activityID uint64, seatNumber uint32, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seat, ok := s.seats[seatKey{activityID, seatNumber}]
	if !ok || seat.userID == nil || *seat.userID != userID {
		return repository.ErrSeatNotHeld
	}
	seat.userID = nil
	seat.remark = nil
	seat.occupiedAt = nil
	return nil
}

func (s *fakeSeatStore) UpdateRemark(_ context.Context, activityID uint64, seatNumber uint32, userID uint64, remark string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seat, ok := s.seats[seatKey{activityID, seatNumber}]
	if !ok || seat.userID == nil || *seat.userID != userID {
		return repository.ErrForbidden
	}
	seat.remark = &remark
	return nil
}

func (s *fakeSeatStore) ListByActivity(_ context.Context, activityID uint64) ([]model.SeatDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.SeatDetail
	var max uint32
	for k := range s.seats {
		if k.activityID == activityID && k.seatNumber > max {
			max = k.seatNumber
		}
	}
	for n := uint32(1); n <= max; n++ {
		k := seatKey{activityID, n}
		seat, ok := s.seats[k]
		if !ok {
			continue
		}
		d := model.SeatDetail{
			ID:         s.seatIDs[k],
			SeatNumber: n,
			IsOccupied: seat.userID != nil,
			Remark:     seat.remark,
			OccupiedAt: seat.occupiedAt,
		}
		if seat.userID != nil {
			d.User = &model.SeatHolder{ID: *seat.userID}
		}
		out = append(out, d)
	}
	return out, nil
}

type fakeActivityStore struct {
	mu         sync.Mutex
	nextID     uint64
	activities map[uint64]*model.Activity
	seats      *fakeSeatStore // seeded on create when set
	evictOnUpd []repository.EvictedSeat
}

func newFakeActivityStore() *fakeActivityStore {
	return &fakeActivityStore{activities: map[uint64]*model.Activity{}}
}

func (s *fakeActivityStore) CreateWithSeats(_ context.Context, a *model.Activity) error {
	s.mu.Lock()
	s.nextID++
	a.ID = s.nextID
	a.Status = model.StatusPublished
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	s.activities[a.ID] = &cp
	s.mu.Unlock()
	if s.seats != nil {
		s.seats.addActivity(a.ID, a.Status, a.MaxParticipants)
	}
	return nil
}

func (s *fakeActivityStore) Update(_ context.Context, upd repository.ActivityUpdate, callerID uint64) (*model.Activity, []repository.EvictedSeat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.activities[upd.ID]
	if !ok || a.CreatorID != callerID {
		return nil, nil, repository.ErrActivityNotFound
	}
	a.Title = upd.Title
	a.Description = upd.Description
	a.StartTime = upd.StartTime
	a.EndTime = upd.EndTime
	if upd.MaxParticipants != nil {
		a.MaxParticipants = *upd.MaxParticipants
	}
	if upd.Status != nil {
		a.Status = *upd.Status
	}
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, s.evictOnUpd, nil
}

func (s *fakeActivityStore) GetByID(_ context.Context, id uint64) (*model.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.activities[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, repository.ErrActivityNotFound
}

func (s *fakeActivityStore) ListByCreator(_ context.Context, creatorID uint64) ([]model.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Activity, 0)
	for _, a := range s.activities {
		if a.CreatorID == creatorID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *fakeActivityStore) List(_ context.Context, onlyPublished bool, limit, offset int) ([]model.ActivitySummary, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]model.ActivitySummary, 0)
	for id := uint64(1); id <= s.nextID; id++ {
		a, ok := s.activities[id]
		if !ok {
			continue
		}
		if onlyPublished && a.Status != model.StatusPublished {
			continue
		}
		all = append(all, model.ActivitySummary{
			ID:              a.ID,
			Title:           a.Title,
			Description:     a.Description,
			StartTime:       a.StartTime,
			EndTime:         a.EndTime,
			MaxParticipants: a.MaxParticipants,
			Status:          a.Status,
		})
	}
	total := len(all)
	if offset >= total {
		return []model.ActivitySummary{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

type fakeExchanger struct {
	configured bool
	openid     string
	err        error
}

func (f *fakeExchanger) Configured() bool { return f.configured }

func (f *fakeExchanger) ExchangeCode(context.Context, string) (string, error) {
	return f.openid, f.err
}
