package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vitrinhq/vitrin/internal/domain/model"
	"github.com/vitrinhq/vitrin/pkg/metrics"
)

// MemStore is the in-memory Store implementation. Reads and writes copy
// entity records so callers never share slices with the store; the
// internal mutex only guards map integrity, not business atomicity.
type MemStore struct {
	mu       sync.RWMutex
	users    map[string]*model.User
	projects map[string]*model.Project
	byOwner  map[string][]string // owner id -> owned project ids, insertion order
}

// NewMemStore constructs an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		users:    make(map[string]*model.User),
		projects: make(map[string]*model.Project),
		byOwner:  make(map[string][]string),
	}
}

// GetUser returns a copy of the user record.
func (s *MemStore) GetUser(ctx context.Context, id string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, ErrUserNotFound
	}
	return copyUser(u), nil
}

// PutUser stores the user record.
func (s *MemStore) PutUser(ctx context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := copyUser(&u)
	s.users[u.ID] = &cp
	metrics.UpdateTrackedUsers(len(s.users))
	return nil
}

// CreateUser stores the user if absent. The existence check and the
// insert share one critical section, so a concurrent creation of the
// same id can never overwrite awards or join time already recorded.
func (s *MemStore) CreateUser(ctx context.Context, u model.User) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return false, nil
	}
	cp := copyUser(&u)
	s.users[u.ID] = &cp
	metrics.UpdateTrackedUsers(len(s.users))
	return true, nil
}

// GetProject returns a copy of the project record.
func (s *MemStore) GetProject(ctx context.Context, id string) (model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return model.Project{}, ErrProjectNotFound
	}
	return copyProject(p), nil
}

// PutProject stores the project record and indexes new ids by owner.
func (s *MemStore) PutProject(ctx context.Context, p model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[p.ID]; !ok {
		s.byOwner[p.OwnerID] = append(s.byOwner[p.OwnerID], p.ID)
	}
	cp := copyProject(&p)
	s.projects[p.ID] = &cp
	metrics.UpdateTrackedProjects(len(s.projects))
	return nil
}

// UserSnapshot assembles a consistent per-user metrics snapshot under one
// read lock, so a score computation never sees a half-applied event.
func (s *MemStore) UserSnapshot(ctx context.Context, userID string) (model.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return model.Snapshot{}, ErrUserNotFound
	}

	snap := model.Snapshot{
		UserID:   u.ID,
		JoinedAt: u.JoinedAt,
		Badges:   append([]model.BadgeAward(nil), u.Awards...),
	}
	for _, pid := range s.byOwner[userID] {
		p, ok := s.projects[pid]
		if !ok {
			continue
		}
		pm := model.ProjectMetrics{
			ProjectID:   p.ID,
			CreatedAt:   p.CreatedAt,
			UpvoteTimes: make([]time.Time, 0, len(p.UpvoteLog)),
			ViewTimes:   make([]time.Time, 0, len(p.ViewLog)),
		}
		for _, rec := range p.UpvoteLog {
			pm.UpvoteTimes = append(pm.UpvoteTimes, rec.TS)
		}
		for _, rec := range p.ViewLog {
			pm.ViewTimes = append(pm.ViewTimes, rec.TS)
		}
		snap.Projects = append(snap.Projects, pm)
	}
	return snap, nil
}

// ListUserIDs returns all user ids in lexical order.
func (s *MemStore) ListUserIDs(ctx context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MarkStale flags the user's cached score for recomputation.
func (s *MemStore) MarkStale(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.Score.Stale = true
	return nil
}

// AwardBadge appends a badge award under the store lock so concurrent
// evaluations of the same user can never double-award.
func (s *MemStore) AwardBadge(ctx context.Context, userID, badgeID string, ts time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return false, ErrUserNotFound
	}
	for _, a := range u.Awards {
		if a.BadgeID == badgeID {
			return false, nil
		}
	}
	u.Awards = append(u.Awards, model.BadgeAward{BadgeID: badgeID, AwardedAt: ts})
	u.Score.Stale = true
	return true, nil
}

// SetScore writes the derived score cache for a user. Concurrent writers
// race harmlessly; last write wins on an idempotent computation.
func (s *MemStore) SetScore(ctx context.Context, userID string, score float64, asOf time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.Score = model.ScoreRecord{Score: score, ComputedAt: asOf, Stale: false}
	return nil
}

// UserCount returns the number of stored users.
func (s *MemStore) UserCount(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// ProjectCount returns the number of stored projects.
func (s *MemStore) ProjectCount(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.projects)
}

func copyUser(u *model.User) model.User {
	cp := *u
	cp.Awards = append([]model.BadgeAward(nil), u.Awards...)
	return cp
}

func copyProject(p *model.Project) model.Project {
	cp := *p
	cp.UpvoteLog = append([]model.UpvoteRecord(nil), p.UpvoteLog...)
	cp.ViewLog = append([]model.ViewRecord(nil), p.ViewLog...)
	return cp
}
