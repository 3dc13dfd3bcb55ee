package model

import "time"

type RoomStatus string

const (
	RoomStatusLobby     RoomStatus = "lobby"
	RoomStatusOpen      RoomStatus = "open"
	RoomStatusActive    RoomStatus = "active"
	RoomStatusCompleted RoomStatus = "completed"
	RoomStatusExpired   RoomStatus = "expired"
)

// RankingEntry is one row of a room's final ranking, written exactly once
// when the room completes and never recomputed afterwards.
type RankingEntry struct {
	UserID       string `json:"userId" bson:"userId"`
	Score        int    `json:"score" bson:"score"`
	Rank         int    `json:"rank" bson:"rank"`
	CorrectCount int    `json:"correctCount" bson:"correctCount"`
	AvgTimeMs    int    `json:"avgTimeMs" bson:"avgTimeMs"`
}

// DuelRoom is the single contended record of a duel session. All lifecycle
// transitions (join, activate, finalize, expire) are conditional writes
// against this document; per-player game state lives in the attempt ledger.
type DuelRoom struct {
	ID           string         `json:"id" bson:"_id"`
	HostID       string         `json:"hostId" bson:"hostId"`
	Participants []string       `json:"participants" bson:"participants"`
	ReadyPlayers []string       `json:"readyPlayers" bson:"readyPlayers"`
	ItemIDs      []string       `json:"itemIds" bson:"itemIds"`
	MinPlayers   int            `json:"minPlayers" bson:"minPlayers"`
	MaxPlayers   int            `json:"maxPlayers" bson:"maxPlayers"`
	Status       RoomStatus     `json:"status" bson:"status"`
	CreatedAt    time.Time      `json:"createdAt" bson:"createdAt"`
	StartedAt    *time.Time     `json:"startedAt,omitempty" bson:"startedAt,omitempty"`
	ExpiresAt    time.Time      `json:"expiresAt" bson:"expiresAt"`
	CompletedAt  *time.Time     `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	Rankings     []RankingEntry `json:"rankings,omitempty" bson:"rankings,omitempty"`
}

// HasParticipant reports whether userID has joined the room.
func (r *DuelRoom) HasParticipant(userID string) bool {
	for _, p := range r.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// HasItem reports whether itemID belongs to the room's item set.
func (r *DuelRoom) HasItem(itemID string) bool {
	for _, id := range r.ItemIDs {
		if id == itemID {
			return true
		}
	}
	return false
}

// IsFull reports whether the room reached its player cap.
func (r *DuelRoom) IsFull() bool {
	return len(r.Participants) >= r.MaxPlayers
}

// TimedOut reports whether the room passed its deadline at the given instant.
func (r *DuelRoom) TimedOut(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// RoomSummary is the lobby-listing view of an open room.
type RoomSummary struct {
	ID          string     `json:"id"`
	HostID      string     `json:"hostId"`
	PlayerCount int        `json:"playerCount"`
	MinPlayers  int        `json:"minPlayers"`
	MaxPlayers  int        `json:"maxPlayers"`
	ItemCount   int        `json:"itemCount"`
	Status      RoomStatus `json:"status"`
	ExpiresAt   time.Time  `json:"expiresAt"`
}

// Summary projects the listing view from a room.
func (r *DuelRoom) Summary() RoomSummary {
	return RoomSummary{
		ID:          r.ID,
		HostID:      r.HostID,
		PlayerCount: len(r.Participants),
		MinPlayers:  r.MinPlayers,
		MaxPlayers:  r.MaxPlayers,
		ItemCount:   len(r.ItemIDs),
		Status:      r.Status,
		ExpiresAt:   r.ExpiresAt,
	}
}

// RoomMeta is the Redis-cached slice of room state used on hot read paths.
type RoomMeta struct {
	HostID     string     `json:"hostId"`
	Status     RoomStatus `json:"status"`
	MaxPlayers int        `json:"maxPlayers"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	CreatedAt  time.Time  `json:"createdAt"`
}
