package model

import "time"

// AttemptResponse is the raw client response to an item. Exactly one of the
// fields is meaningful depending on the item type; TimedOut marks an item
// whose per-item deadline elapsed with no answer.
type AttemptResponse struct {
	OptionID string `json:"optionId,omitempty" bson:"optionId,omitempty"`
	Rating   int    `json:"rating,omitempty" bson:"rating,omitempty"`
	TimedOut bool   `json:"timedOut,omitempty" bson:"timedOut,omitempty"`
}

// Attempt is one participant's recorded response to one item. Attempts are
// append-only and unique per (duelId, userId, itemId); a duplicate submission
// returns the stored record instead of writing a second one.
type Attempt struct {
	ID          string          `json:"id" bson:"_id,omitempty"`
	DuelID      string          `json:"duelId" bson:"duelId"`
	UserID      string          `json:"userId" bson:"userId"`
	ItemID      string          `json:"itemId" bson:"itemId"`
	Response    AttemptResponse `json:"response" bson:"response"`
	Score       int             `json:"score" bson:"score"`
	Correct     bool            `json:"correct" bson:"correct"`
	TimeMs      int             `json:"timeMs" bson:"timeMs"`
	CompletedAt time.Time       `json:"completedAt" bson:"completedAt"`
}

// SubmitAttemptRequest is the request body for submitting an attempt.
type SubmitAttemptRequest struct {
	ItemID   string          `json:"itemId"`
	Response AttemptResponse `json:"response"`
	TimeMs   int             `json:"timeMs"`
}

// SubmitAttemptResponse echoes the scored result back to the client. Streak
// is the user's running streak after this attempt.
type SubmitAttemptResponse struct {
	Score   int  `json:"score"`
	Correct bool `json:"correct"`
	Streak  int  `json:"streak"`
}
