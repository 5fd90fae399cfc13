package memory

import (
	"context"
	"sort"
	"sync"

	"mathbubble-server/internal/model"
	"mathbubble-server/internal/store"
)

// Store is an in-memory implementation of the profile store, used for
// development and tests.
type Store struct {
	mu       sync.RWMutex
	profiles map[string]*model.PlayerProfile
}

// New creates a new in-memory store instance.
func New() *Store {
	return &Store{profiles: make(map[string]*model.PlayerProfile)}
}

// Ensure Store implements the interface
var _ store.ProfileStore = (*Store)(nil)

func (s *Store) FindByUserID(ctx context.Context, userID string) (*model.PlayerProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[userID]
	if !ok {
		return nil, model.ErrProfileNotFound
	}
	copied := *profile
	return &copied, nil
}

func (s *Store) Create(ctx context.Context, profile *model.PlayerProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[profile.UserID]; ok {
		return model.ErrProfileExists
	}
	copied := *profile
	s.profiles[profile.UserID] = &copied
	return nil
}

func (s *Store) UpdateName(ctx context.Context, userID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[userID]
	if !ok {
		return model.ErrProfileNotFound
	}
	profile.Name = name
	return nil
}

func (s *Store) UpsertScore(ctx context.Context, userID string, score int64, lastActive int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[userID]
	if !ok {
		profile = &model.PlayerProfile{UserID: userID}
		s.profiles[userID] = profile
	}
	profile.Score = score
	profile.LastActive = lastActive
	return nil
}

func (s *Store) TopByScore(ctx context.Context, limit int) ([]model.PlayerProfile, error) {
	s.mu.RLock()
	profiles := make([]model.PlayerProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		profiles = append(profiles, *p)
	}
	s.mu.RUnlock()

	// Stable tie order within a query: score desc, then userID.
	sort.Slice(profiles, func(i, j int) bool {
		if profiles[i].Score != profiles[j].Score {
			return profiles[i].Score > profiles[j].Score
		}
		return profiles[i].UserID < profiles[j].UserID
	})

	if limit <= 0 {
		return []model.PlayerProfile{}, nil
	}
	if len(profiles) > limit {
		profiles = profiles[:limit]
	}
	return profiles, nil
}

func (s *Store) Close() error { return nil }
