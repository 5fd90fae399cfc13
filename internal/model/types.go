package model

// PlayerProfile is the durable record of a player, keyed by UserID.
// Score holds the last reported value, not a running total.
type PlayerProfile struct {
	UserID     string `json:"userId"`
	Name       string `json:"name"`
	Score      int64  `json:"score"`
	LastActive int64  `json:"lastActive"`
}

// LiveSession is the in-memory record of a currently connected player.
// It never outlives its connection; Score may transiently lag the store.
type LiveSession struct {
	ConnectionID string `json:"socketId"`
	UserID       string `json:"userId"`
	Name         string `json:"name"`
	Score        int64  `json:"score"`
}
