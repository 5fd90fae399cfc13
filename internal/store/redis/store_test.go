package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"mathbubble-server/internal/model"
)

type StoreSuite struct {
	suite.Suite
	mini  *miniredis.Miniredis
	store *Store
	ctx   context.Context
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	s.store = NewWithClient(client)
	s.ctx = context.Background()
}

func (s *StoreSuite) TearDownTest() {
	if s.store != nil {
		_ = s.store.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *StoreSuite) TestCreateAndFind() {
	profile := &model.PlayerProfile{
		UserID: "alice123",
		Name:   "Alice",
		Score:  0,
	}

	err := s.store.Create(s.ctx, profile)
	s.Require().NoError(err)

	retrieved, err := s.store.FindByUserID(s.ctx, "alice123")
	s.Require().NoError(err)
	s.Equal("alice123", retrieved.UserID)
	s.Equal("Alice", retrieved.Name)
	s.Equal(int64(0), retrieved.Score)
}

func (s *StoreSuite) TestFindNotFound() {
	_, err := s.store.FindByUserID(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrProfileNotFound)
}

func (s *StoreSuite) TestCreateIsInsertIfAbsent() {
	first := &model.PlayerProfile{UserID: "alice123", Name: "Alice"}
	second := &model.PlayerProfile{UserID: "alice123", Name: "Impostor"}

	s.Require().NoError(s.store.Create(s.ctx, first))

	err := s.store.Create(s.ctx, second)
	s.ErrorIs(err, model.ErrProfileExists)

	// First writer wins
	retrieved, err := s.store.FindByUserID(s.ctx, "alice123")
	s.Require().NoError(err)
	s.Equal("Alice", retrieved.Name)
}

func (s *StoreSuite) TestUpdateName() {
	profile := &model.PlayerProfile{UserID: "alice123", Name: "Alice", Score: 40}
	s.Require().NoError(s.store.Create(s.ctx, profile))

	err := s.store.UpdateName(s.ctx, "alice123", "Alicia")
	s.Require().NoError(err)

	retrieved, err := s.store.FindByUserID(s.ctx, "alice123")
	s.Require().NoError(err)
	s.Equal("Alicia", retrieved.Name)
	s.Equal(int64(40), retrieved.Score)
}

func (s *StoreSuite) TestUpdateNameNotFound() {
	err := s.store.UpdateName(s.ctx, "ghost", "Ghost")
	s.ErrorIs(err, model.ErrProfileNotFound)
}

func (s *StoreSuite) TestUpsertScoreReplacesValue() {
	profile := &model.PlayerProfile{UserID: "alice123", Name: "Alice", Score: 200}
	s.Require().NoError(s.store.Create(s.ctx, profile))

	err := s.store.UpsertScore(s.ctx, "alice123", 120, 1700000000)
	s.Require().NoError(err)

	retrieved, err := s.store.FindByUserID(s.ctx, "alice123")
	s.Require().NoError(err)
	s.Equal(int64(120), retrieved.Score)
	s.Equal(int64(1700000000), retrieved.LastActive)
	s.Equal("Alice", retrieved.Name, "upsert must preserve the name")
}

func (s *StoreSuite) TestUpsertScoreCreatesMissingProfile() {
	err := s.store.UpsertScore(s.ctx, "lazarus", 55, 1700000000)
	s.Require().NoError(err)

	retrieved, err := s.store.FindByUserID(s.ctx, "lazarus")
	s.Require().NoError(err)
	s.Equal(int64(55), retrieved.Score)
}

func (s *StoreSuite) TestTopByScore() {
	for _, p := range []struct {
		id    string
		score int64
	}{
		{"low", 10},
		{"high", 300},
		{"mid", 150},
	} {
		s.Require().NoError(s.store.Create(s.ctx, &model.PlayerProfile{UserID: p.id, Name: p.id}))
		s.Require().NoError(s.store.UpsertScore(s.ctx, p.id, p.score, 0))
	}

	top, err := s.store.TopByScore(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(top, 2)
	s.Equal("high", top[0].UserID)
	s.Equal("mid", top[1].UserID)
}

func (s *StoreSuite) TestTopByScoreTracksLatestUpsert() {
	s.Require().NoError(s.store.Create(s.ctx, &model.PlayerProfile{UserID: "alice123", Name: "Alice"}))
	s.Require().NoError(s.store.Create(s.ctx, &model.PlayerProfile{UserID: "bob456", Name: "Bob"}))

	s.Require().NoError(s.store.UpsertScore(s.ctx, "alice123", 500, 0))
	s.Require().NoError(s.store.UpsertScore(s.ctx, "bob456", 600, 0))
	s.Require().NoError(s.store.UpsertScore(s.ctx, "alice123", 100, 0))

	top, err := s.store.TopByScore(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(top, 2)
	s.Equal("bob456", top[0].UserID)
	s.Equal("alice123", top[1].UserID)
}

func (s *StoreSuite) TestTopByScoreEmpty() {
	top, err := s.store.TopByScore(s.ctx, 50)
	s.Require().NoError(err)
	s.Empty(top)
}
