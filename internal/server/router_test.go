package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"mathbubble-server/internal/game"
	"mathbubble-server/internal/model"
	"mathbubble-server/internal/registry"
	"mathbubble-server/internal/store/memory"
	"mathbubble-server/internal/testutil"
)

func newTestRouter(t *testing.T) (*gin.Engine, *memory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	profiles := memory.New()
	coordinator := game.New(game.Deps{
		Store:    profiles,
		Registry: registry.New(),
		Logger:   testutil.NopLogger(),
	})
	return NewRouter(Deps{Game: coordinator, Logger: testutil.NopLogger()}), profiles
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestLeaderboardEndpoint(t *testing.T) {
	r, profiles := newTestRouter(t)

	ctx := context.Background()
	for i, id := range []string{"first", "second", "third"} {
		if err := profiles.UpsertScore(ctx, id, int64(300-i*100), 0); err != nil {
			t.Fatalf("UpsertScore: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/leaderboard?limit=2", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Profiles []model.PlayerProfile `json:"profiles"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(body.Profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(body.Profiles))
	}
	if body.Profiles[0].UserID != "first" || body.Profiles[1].UserID != "second" {
		t.Fatalf("unexpected order: %+v", body.Profiles)
	}
}

func TestLeaderboardRejectsBadLimit(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/leaderboard?limit=bogus", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
