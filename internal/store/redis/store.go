package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"mathbubble-server/internal/model"
	"mathbubble-server/internal/store"
)

// Store is a Redis-backed implementation of the profile store. Profiles are
// JSON documents; a ZSET keeps them ordered by score for leaderboard reads.
type Store struct {
	client *redis.Client
}

// New creates a new Redis store instance.
func New(cfg Config) (*Store, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Store{client: client}, nil
}

// NewWithClient creates a Redis store with an existing client (for testing).
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Ensure Store implements the interface
var _ store.ProfileStore = (*Store)(nil)

func (s *Store) FindByUserID(ctx context.Context, userID string) (*model.PlayerProfile, error) {
	data, err := s.client.Get(ctx, profileKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrProfileNotFound
		}
		return nil, err
	}

	var profile model.PlayerProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *Store) Create(ctx context.Context, profile *model.PlayerProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}

	// SetNX makes create atomic insert-if-absent; concurrent joins for the
	// same fresh userID resolve first-writer-wins.
	created, err := s.client.SetNX(ctx, profileKey(profile.UserID), data, 0).Result()
	if err != nil {
		return err
	}
	if !created {
		return model.ErrProfileExists
	}

	return s.client.ZAdd(ctx, scoreIndexKey(), redis.Z{
		Score:  float64(profile.Score),
		Member: profile.UserID,
	}).Err()
}

func (s *Store) UpdateName(ctx context.Context, userID, name string) error {
	profile, err := s.FindByUserID(ctx, userID)
	if err != nil {
		return err
	}

	profile.Name = name

	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, profileKey(userID), data, 0).Err()
}

func (s *Store) UpsertScore(ctx context.Context, userID string, score int64, lastActive int64) error {
	profile, err := s.FindByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, model.ErrProfileNotFound) {
			return err
		}
		profile = &model.PlayerProfile{UserID: userID}
	}

	profile.Score = score
	profile.LastActive = lastActive

	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}

	// Use pipeline for atomic document + index update
	pipe := s.client.Pipeline()
	pipe.Set(ctx, profileKey(userID), data, 0)
	pipe.ZAdd(ctx, scoreIndexKey(), redis.Z{Score: float64(score), Member: userID})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Store) TopByScore(ctx context.Context, limit int) ([]model.PlayerProfile, error) {
	if limit <= 0 {
		return []model.PlayerProfile{}, nil
	}

	userIDs, err := s.client.ZRevRange(ctx, scoreIndexKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(userIDs) == 0 {
		return []model.PlayerProfile{}, nil
	}

	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = profileKey(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	profiles := make([]model.PlayerProfile, 0, len(values))
	for _, val := range values {
		if val == nil {
			continue // index entry without a document
		}
		var profile model.PlayerProfile
		if err := json.Unmarshal([]byte(val.(string)), &profile); err != nil {
			continue // skip invalid data
		}
		profiles = append(profiles, profile)
	}

	return profiles, nil
}
