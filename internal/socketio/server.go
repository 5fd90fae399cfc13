package socketio

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"mathbubble-server/internal/game"
	"mathbubble-server/internal/model"
)

const (
	maxPayload   int64         = 1 << 20
	writeTimeout time.Duration = 10 * time.Second
	storeTimeout time.Duration = 10 * time.Second
	pingInterval time.Duration = 25 * time.Second
	pingTimeout  time.Duration = 20 * time.Second
)

const (
	msgIdentityTaken = "Username already taken. Please choose a different one."
	msgServerError   = "Server error. Please try again."
)

type Deps struct {
	Game   *game.Coordinator
	Logger *slog.Logger
}

// Server speaks Socket.IO over websockets and fans registry changes out to
// every connected client. A connection's engine session id doubles as its
// connection id in the registry.
type Server struct {
	game   *game.Coordinator
	logger *slog.Logger

	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[*conn]struct{}
}

func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		game:   deps.Game,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[*conn]struct{}),
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	ws.SetReadLimit(maxPayload)

	c := newConn(ws)
	s.registerConn(c)
	defer s.unregisterConn(c)

	open := map[string]any{
		"sid":          c.sid,
		"upgrades":     []string{},
		"pingInterval": pingInterval.Milliseconds(),
		"pingTimeout":  pingTimeout.Milliseconds(),
		"maxPayload":   maxPayload,
	}
	openBytes, _ := json.Marshal(open)
	_ = c.writeText(string(engineOpen) + string(openBytes))

	go c.pingLoop()
	c.readLoop(func(msg string) {
		s.handleMessage(c, msg)
	})
}

func (s *Server) registerConn(c *conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[c] = struct{}{}
}

// unregisterConn tears a connection down exactly once: the closed flag flips
// before the session is removed, so a join still pending on the store cannot
// reinstall a session afterwards (Registry.RegisterIf checks the flag under
// the registry lock).
func (s *Server) unregisterConn(c *conn) {
	s.mu.Lock()
	_, present := s.conns[c]
	delete(s.conns, c)
	s.mu.Unlock()

	c.close()
	if !present {
		return
	}

	if s.game.Disconnect(c.sid) {
		s.broadcastRoster()
	}
	s.broadcastOnlineCount()
}

// connectedConns snapshots every connection that completed the Socket.IO
// handshake.
func (s *Server) connectedConns() []*conn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*conn, 0, len(s.conns))
	for c := range s.conns {
		if c.connected.Load() {
			out = append(out, c)
		}
	}
	return out
}

func (s *Server) broadcast(payload string) {
	for _, c := range s.connectedConns() {
		if err := c.writeText(payload); err != nil {
			s.unregisterConn(c)
		}
	}
}

func (s *Server) broadcastRoster() {
	payload, err := buildEventPacket("/", "players_update", s.game.Roster())
	if err != nil {
		return
	}
	s.broadcast(payload)
}

func (s *Server) broadcastOnlineCount() {
	payload, err := buildEventPacket("/", "online_count", len(s.connectedConns()))
	if err != nil {
		return
	}
	s.broadcast(payload)
}

func (s *Server) handleMessage(c *conn, msg string) {
	if msg == "" {
		return
	}

	switch enginePacketType(msg[0]) {
	case enginePong:
		c.markPong()
	case engineMessage:
		s.handleSocketPayload(c, msg[1:])
	case engineClose:
		c.close()
	}
}

func (s *Server) handleSocketPayload(c *conn, payload string) {
	if payload == "" {
		return
	}

	switch socketPacketType(payload[0]) {
	case socketConnect:
		s.handleConnect(c)
	case socketDisconnect:
		c.close()
	case socketEvent:
		s.handleEvent(c, payload)
	}
}

// handleConnect completes the Socket.IO handshake. The game client connects
// unauthenticated; identity is claimed later through join_game.
func (s *Server) handleConnect(c *conn) {
	if c.connected.Load() {
		return
	}

	reply, err := buildConnectPacket("/", c.sid)
	if err != nil {
		c.close()
		return
	}
	if err := c.writeText(reply); err != nil {
		c.close()
		return
	}
	c.connected.Store(true)

	s.broadcastOnlineCount()
}

func (s *Server) handleEvent(c *conn, payload string) {
	if !c.connected.Load() {
		return
	}

	pkt, err := parseEventPacket(payload)
	if err != nil {
		return
	}

	switch pkt.Event {
	case "join_game":
		s.handleJoin(c, pkt)
	case "update_score":
		s.handleScoreUpdate(c, pkt)
	case "request_leaderboard":
		s.handleLeaderboardRequest(c)
	}
}

func (s *Server) handleJoin(c *conn, pkt eventPacket) {
	var req game.JoinRequest
	if len(pkt.Args) < 1 || json.Unmarshal(pkt.Args[0], &req) != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	session, err := s.game.Join(ctx, c.sid, req, func() bool { return !c.closed.Load() })
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidJoin), errors.Is(err, game.ErrConnectionClosed):
			// Silent drop: nothing to tell the caller.
		case errors.Is(err, model.ErrIdentityTaken):
			c.emit("join_error", msgIdentityTaken)
		default:
			s.logger.Error("join failed",
				slog.String("userId", req.UserID),
				slog.String("error", err.Error()))
			c.emit("join_error", msgServerError)
		}
		return
	}

	c.emit("join_success", map[string]string{
		"userId": session.UserID,
		"name":   session.Name,
	})
	s.broadcastRoster()
}

func (s *Server) handleScoreUpdate(c *conn, pkt eventPacket) {
	var body struct {
		Score int64 `json:"score"`
	}
	if len(pkt.Args) < 1 || json.Unmarshal(pkt.Args[0], &body) != nil {
		return
	}

	if s.game.UpdateScore(c.sid, body.Score) {
		s.broadcastRoster()
	}
}

func (s *Server) handleLeaderboardRequest(c *conn) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	profiles, err := s.game.Leaderboard(ctx, 0)
	if err != nil {
		s.logger.Error("leaderboard fetch failed", slog.String("error", err.Error()))
		return
	}
	c.emit("leaderboard_data", profiles)
}

type conn struct {
	ws *websocket.Conn

	sid string

	connected atomic.Bool
	closed    atomic.Bool

	sendMu sync.Mutex

	pingMu       sync.Mutex
	awaitingPong bool
	pingSentAt   time.Time
	nextPingAt   time.Time
}

func newConn(ws *websocket.Conn) *conn {
	return &conn{
		ws:         ws,
		sid:        uuid.NewString(),
		nextPingAt: time.Now().Add(pingInterval),
	}
}

func (c *conn) close() {
	if c.closed.Swap(true) {
		return
	}
	_ = c.ws.Close()
}

func (c *conn) writeText(msg string) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, []byte(msg))
}

// emit sends an event to this connection only.
func (c *conn) emit(event string, args ...any) {
	payload, err := buildEventPacket("/", event, args...)
	if err != nil {
		return
	}
	_ = c.writeText(payload)
}

func (c *conn) readLoop(onMessage func(string)) {
	defer c.close()
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		onMessage(string(data))
	}
}

func (c *conn) pingLoop() {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		if c.closed.Load() {
			return
		}
		now := time.Now()
		c.pingMu.Lock()
		awaiting := c.awaitingPong
		pingSentAt := c.pingSentAt
		nextPingAt := c.nextPingAt
		if awaiting && now.Sub(pingSentAt) > pingTimeout {
			c.pingMu.Unlock()
			c.close()
			return
		}
		if !awaiting && !now.Before(nextPingAt) {
			c.awaitingPong = true
			c.pingSentAt = now
			c.nextPingAt = now.Add(pingInterval)
			c.pingMu.Unlock()
			_ = c.writeText(string(enginePing))
			continue
		}
		c.pingMu.Unlock()
	}
}

func (c *conn) markPong() {
	c.pingMu.Lock()
	c.awaitingPong = false
	c.pingMu.Unlock()
}
