package model

// Standing is a live leaderboard row derived by folding a user's attempts.
// It is always recomputed from the ledger, never stored.
type Standing struct {
	UserID       string `json:"userId"`
	Score        int    `json:"score"`
	CorrectCount int    `json:"correctCount"`
	AvgTimeMs    int    `json:"avgTimeMs"`
	Answered     int    `json:"answered"`
	Finished     bool   `json:"finished"`
}

// RoomDetails is the full subscribable read of a room. Consumers derive
// aggregates from Attempts; Standings is a convenience projection of the
// same ledger.
type RoomDetails struct {
	Room         *DuelRoom  `json:"room"`
	Items        []*Item    `json:"items"`
	Attempts     []*Attempt `json:"attempts"`
	Participants []string   `json:"participants"`
	Standings    []Standing `json:"standings"`
}

// UserDuelStats is the derived, read-only per-user duel summary.
type UserDuelStats struct {
	UserID      string  `json:"userId"`
	TotalRooms  int     `json:"totalRooms"`
	Wins        int     `json:"wins"`
	WinRate     float64 `json:"winRate"`
	ActiveRooms int     `json:"activeRooms"`
}
