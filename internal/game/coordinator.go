package game

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"mathbubble-server/internal/model"
	"mathbubble-server/internal/registry"
	"mathbubble-server/internal/store"
)

// ErrConnectionClosed reports a join whose connection went away while the
// profile lookup was in flight. Callers treat it as a cancellation, not a
// failure: no reply, no state change.
var ErrConnectionClosed = errors.New("connection closed before join completed")

const (
	defaultLeaderboardLimit = 50
	persistTimeout          = 5 * time.Second
)

// JoinRequest carries an identity claim. PreviousUserID is the reconnection
// proof: the id the client believes it owned in an earlier session.
type JoinRequest struct {
	Name           string `json:"name"`
	UserID         string `json:"userId"`
	PreviousUserID string `json:"previousUserId"`
}

type Deps struct {
	Store    store.ProfileStore
	Registry *registry.Registry
	Logger   *slog.Logger

	// LeaderboardLimit caps leaderboard queries that pass no limit.
	// Zero means the default of 50.
	LeaderboardLimit int
}

// Coordinator arbitrates identity claims, applies score updates, and answers
// leaderboard queries. Transports call it once per inbound event and push the
// resulting roster snapshot to their connections.
type Coordinator struct {
	store    store.ProfileStore
	registry *registry.Registry
	logger   *slog.Logger

	leaderboardLimit int
	now              func() time.Time
}

func New(deps Deps) *Coordinator {
	limit := deps.LeaderboardLimit
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:            deps.Store,
		registry:         deps.Registry,
		logger:           logger,
		leaderboardLimit: limit,
		now:              time.Now,
	}
}

// Join resolves an identity claim and, if accepted, installs a live session
// for connID. The alive check runs under the registry lock so a join that
// resolves after the connection dropped cannot leave an orphan session.
//
// Errors: model.ErrInvalidJoin (drop silently), model.ErrIdentityTaken
// (reject the caller), ErrConnectionClosed (cancelled), anything else is a
// store failure.
func (c *Coordinator) Join(ctx context.Context, connID string, req JoinRequest, alive func() bool) (model.LiveSession, error) {
	if req.Name == "" || req.UserID == "" {
		return model.LiveSession{}, model.ErrInvalidJoin
	}

	profile, err := c.store.FindByUserID(ctx, req.UserID)
	switch {
	case err == nil:
		profile, err = c.claimExisting(ctx, profile, req)
		if err != nil {
			return model.LiveSession{}, err
		}
	case errors.Is(err, model.ErrProfileNotFound):
		profile = &model.PlayerProfile{
			UserID:     req.UserID,
			Name:       req.Name,
			Score:      0,
			LastActive: c.now().UnixMilli(),
		}
		if createErr := c.store.Create(ctx, profile); createErr != nil {
			if !errors.Is(createErr, model.ErrProfileExists) {
				return model.LiveSession{}, createErr
			}
			// Lost the create race; re-run the ownership check against
			// whoever won.
			existing, findErr := c.store.FindByUserID(ctx, req.UserID)
			if findErr != nil {
				return model.LiveSession{}, findErr
			}
			profile, err = c.claimExisting(ctx, existing, req)
			if err != nil {
				return model.LiveSession{}, err
			}
		}
	default:
		return model.LiveSession{}, err
	}

	session := model.LiveSession{
		ConnectionID: connID,
		UserID:       profile.UserID,
		Name:         profile.Name,
		Score:        profile.Score,
	}
	registered, evicted := c.registry.RegisterIf(connID, session, alive)
	if !registered {
		return model.LiveSession{}, ErrConnectionClosed
	}
	if evicted != nil {
		c.logger.Info("evicted prior session",
			slog.String("userId", evicted.UserID),
			slog.String("socketId", evicted.ConnectionID))
	}

	c.logger.Info("player joined",
		slog.String("name", session.Name),
		slog.String("userId", session.UserID))
	return session, nil
}

// claimExisting applies the ownership check against a profile that already
// exists: a matching PreviousUserID renames the profile, anything else is a
// conflict.
func (c *Coordinator) claimExisting(ctx context.Context, profile *model.PlayerProfile, req JoinRequest) (*model.PlayerProfile, error) {
	if req.PreviousUserID != req.UserID {
		return nil, model.ErrIdentityTaken
	}

	if err := c.store.UpdateName(ctx, req.UserID, req.Name); err != nil {
		// The live view is authoritative for display; durability may lag.
		c.logger.Error("rename persistence failed",
			slog.String("userId", req.UserID),
			slog.String("error", err.Error()))
	} else {
		c.logger.Info("player renamed",
			slog.String("userId", req.UserID),
			slog.String("name", req.Name))
	}
	profile.Name = req.Name
	return profile, nil
}

// UpdateScore applies the reported score to the live session and kicks off
// the durable upsert in the background. It reports whether a session existed;
// without one the update is a no-op and must not be broadcast.
func (c *Coordinator) UpdateScore(connID string, score int64) bool {
	var userID string
	ok := c.registry.Mutate(connID, func(s *model.LiveSession) {
		s.Score = score
		userID = s.UserID
	})
	if !ok {
		return false
	}

	go c.persistScore(userID, score)
	return true
}

func (c *Coordinator) persistScore(userID string, score int64) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := c.store.UpsertScore(ctx, userID, score, c.now().UnixMilli()); err != nil {
		c.logger.Error("score persistence failed",
			slog.String("userId", userID),
			slog.String("error", err.Error()))
	}
}

// Leaderboard returns the top profiles by score. A non-positive limit falls
// back to the configured default, which also caps oversized requests.
func (c *Coordinator) Leaderboard(ctx context.Context, limit int) ([]model.PlayerProfile, error) {
	if limit <= 0 || limit > c.leaderboardLimit {
		limit = c.leaderboardLimit
	}
	return c.store.TopByScore(ctx, limit)
}

// Disconnect removes the connection's session, reporting whether one existed.
// It is idempotent: a second call for the same connection is a no-op.
func (c *Coordinator) Disconnect(connID string) bool {
	removed := c.registry.Remove(connID)
	if removed == nil {
		return false
	}
	c.logger.Info("player left",
		slog.String("name", removed.Name),
		slog.String("userId", removed.UserID))
	return true
}

// Roster returns the current registry snapshot for broadcast.
func (c *Coordinator) Roster() []model.LiveSession {
	return c.registry.Snapshot()
}
