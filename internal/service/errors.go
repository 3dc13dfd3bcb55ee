package service

import "errors"

// Error taxonomy for duel operations. Handlers map these onto HTTP statuses;
// every error is terminal for the triggering call. A duplicate attempt
// submission is not an error; it returns the stored result.
var (
	// ErrInvalidInput rejects malformed requests. Not retryable.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotParticipant rejects callers that never joined the room.
	ErrNotParticipant = errors.New("user is not a room participant")
	// ErrRoomFull rejects joins once the player cap is reached.
	ErrRoomFull = errors.New("room is full")
	// ErrWrongState rejects operations against a room whose lifecycle
	// state does not allow them. Clients may refresh and retry.
	ErrWrongState = errors.New("room is not in the required state")
	// ErrNotFound covers unknown rooms and items.
	ErrNotFound = errors.New("not found")
	// ErrExpired rejects operations against a room past its deadline.
	ErrExpired = errors.New("room has expired")

	ErrInvalidToken = errors.New("invalid or expired token")
)
