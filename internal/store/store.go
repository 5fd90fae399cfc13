package store

import (
	"context"

	"mathbubble-server/internal/model"
)

// ProfileStore defines the persistence contract for player profiles.
type ProfileStore interface {
	// FindByUserID returns the profile for userID, or model.ErrProfileNotFound.
	FindByUserID(ctx context.Context, userID string) (*model.PlayerProfile, error)

	// Create inserts a new profile. It is insert-if-absent: a concurrent or
	// prior create for the same userID returns model.ErrProfileExists.
	Create(ctx context.Context, profile *model.PlayerProfile) error

	// UpdateName renames an existing profile. Missing profiles return
	// model.ErrProfileNotFound.
	UpdateName(ctx context.Context, userID, name string) error

	// UpsertScore replaces the stored score and last-active timestamp,
	// creating the profile if it is somehow absent.
	UpsertScore(ctx context.Context, userID string, score int64, lastActive int64) error

	// TopByScore returns up to limit profiles ordered by score descending.
	TopByScore(ctx context.Context, limit int) ([]model.PlayerProfile, error)

	Close() error
}
