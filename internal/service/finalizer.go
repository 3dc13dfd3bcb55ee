package service

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"skillduel/internal/cache"
	"skillduel/internal/model"
	"skillduel/internal/repository"
)

// Finalizer owns the one-time active -> completed transition. Completion may
// be triggered by many callers at once (the last finishing players, the
// reaper, an on-read expiry check), so the transition is a conditional write
// guarded on the previous status: every caller computes rankings, exactly
// one lands them, the rest stop.
type Finalizer struct {
	roomRepo    repository.RoomRepo
	attemptRepo repository.AttemptRepo
	roomCache   cache.RoomCache
	leaderboard cache.LeaderboardCache
	broadcaster Broadcaster
	clock       clockwork.Clock
}

func NewFinalizer(
	roomRepo repository.RoomRepo,
	attemptRepo repository.AttemptRepo,
	roomCache cache.RoomCache,
	leaderboard cache.LeaderboardCache,
	clock clockwork.Clock,
) *Finalizer {
	return &Finalizer{
		roomRepo:    roomRepo,
		attemptRepo: attemptRepo,
		roomCache:   roomCache,
		leaderboard: leaderboard,
		broadcaster: NopBroadcaster{},
		clock:       clock,
	}
}

// SetBroadcaster sets the broadcaster for live events.
func (f *Finalizer) SetBroadcaster(b Broadcaster) {
	f.broadcaster = b
}

// CheckCompletion finalizes the room if every participant has answered the
// full item set. Safe to call redundantly after every attempt write.
func (f *Finalizer) CheckCompletion(ctx context.Context, room *model.DuelRoom, attempts []*model.Attempt) (bool, error) {
	answered := make(map[string]int, len(room.Participants))
	for _, a := range attempts {
		answered[a.UserID]++
	}
	for _, userID := range room.Participants {
		if answered[userID] < len(room.ItemIDs) {
			return false, nil
		}
	}
	return f.TryFinalize(ctx, room)
}

// TryFinalize computes rankings from the ledger and attempts the guarded
// transition. Returns true only for the single caller whose write landed.
func (f *Finalizer) TryFinalize(ctx context.Context, room *model.DuelRoom) (bool, error) {
	attempts, err := f.attemptRepo.GetByDuel(ctx, room.ID)
	if err != nil {
		return false, err
	}

	rankings := ComputeRankings(room, attempts)
	now := f.clock.Now()

	won, err := f.roomRepo.Finalize(ctx, room.ID, rankings, now)
	if err != nil {
		return false, err
	}
	if !won {
		// Another caller completed the room first.
		return false, nil
	}

	if err := f.roomCache.SetStatus(ctx, room.ID, model.RoomStatusCompleted); err != nil {
		log.Warn().Err(err).Str("duel_id", room.ID).Msg("failed to update room cache after finalize")
	}
	if err := f.leaderboard.Expire(ctx, room.ID, time.Hour); err != nil {
		log.Warn().Err(err).Str("duel_id", room.ID).Msg("failed to expire leaderboard cache")
	}

	f.broadcaster.BroadcastToRoom(room.ID, EventDuelCompleted, map[string]interface{}{
		"duelId":   room.ID,
		"rankings": rankings,
	})

	log.Info().
		Str("duel_id", room.ID).
		Int("players", len(room.Participants)).
		Int("attempts", len(attempts)).
		Msg("duel finalized")
	return true, nil
}

// ReapIfTimedOut forces a room past its deadline through its terminal
// transition: active rooms complete with best-effort rankings from whatever
// attempts exist, rooms that never activated expire with no rankings.
// Returns true if this caller performed the transition.
func (f *Finalizer) ReapIfTimedOut(ctx context.Context, room *model.DuelRoom) (bool, error) {
	if !room.TimedOut(f.clock.Now()) {
		return false, nil
	}

	switch room.Status {
	case model.RoomStatusActive:
		return f.TryFinalize(ctx, room)

	case model.RoomStatusLobby, model.RoomStatusOpen:
		won, err := f.roomRepo.Expire(ctx, room.ID, f.clock.Now())
		if err != nil {
			return false, err
		}
		if !won {
			return false, nil
		}
		if err := f.roomCache.SetStatus(ctx, room.ID, model.RoomStatusExpired); err != nil {
			log.Warn().Err(err).Str("duel_id", room.ID).Msg("failed to update room cache after expiry")
		}
		f.broadcaster.BroadcastToRoom(room.ID, EventDuelExpired, map[string]interface{}{
			"duelId": room.ID,
		})
		log.Info().Str("duel_id", room.ID).Msg("duel expired before activation")
		return true, nil
	}

	return false, nil
}
