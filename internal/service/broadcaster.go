package service

// Event types pushed to room subscribers.
const (
	EventPlayerJoined      = "player_joined"
	EventPlayerReady       = "player_ready"
	EventDuelStarted       = "duel_started"
	EventLeaderboardUpdate = "leaderboard_update"
	EventPlayerFinished    = "player_finished"
	EventDuelCompleted     = "duel_completed"
	EventDuelExpired       = "duel_expired"
)

// Broadcaster pushes live room events to connected clients. Implemented by
// the websocket hub; injected into services so they stay transport-agnostic.
type Broadcaster interface {
	BroadcastToRoom(duelID string, event string, payload interface{})
	BroadcastToUser(duelID, userID string, event string, payload interface{})
}

// NopBroadcaster discards all events. Used until a hub is attached and in
// tests that do not care about push traffic.
type NopBroadcaster struct{}

func (NopBroadcaster) BroadcastToRoom(string, string, interface{})         {}
func (NopBroadcaster) BroadcastToUser(string, string, string, interface{}) {}
