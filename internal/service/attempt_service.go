package service

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"skillduel/internal/cache"
	"skillduel/internal/model"
	"skillduel/internal/repository"
)

// AttemptService ingests attempt submissions: it scores the response,
// appends exactly one ledger record per (duel, user, item), and triggers
// completion detection after every successful write.
type AttemptService struct {
	roomRepo    repository.RoomRepo
	attemptRepo repository.AttemptRepo
	itemRepo    repository.ItemRepo
	leaderboard cache.LeaderboardCache
	finalizer   *Finalizer
	roomSvc     *RoomService
	clock       clockwork.Clock
	broadcaster Broadcaster
}

// NewAttemptService creates a new attempt service
func NewAttemptService(
	roomRepo repository.RoomRepo,
	attemptRepo repository.AttemptRepo,
	itemRepo repository.ItemRepo,
	leaderboard cache.LeaderboardCache,
	finalizer *Finalizer,
	roomSvc *RoomService,
	clock clockwork.Clock,
) *AttemptService {
	return &AttemptService{
		roomRepo:    roomRepo,
		attemptRepo: attemptRepo,
		itemRepo:    itemRepo,
		leaderboard: leaderboard,
		finalizer:   finalizer,
		roomSvc:     roomSvc,
		clock:       clock,
		broadcaster: NopBroadcaster{},
	}
}

// SetBroadcaster sets the broadcaster for live events.
func (s *AttemptService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Submit records one attempt. Resubmitting the same (duel, user, item) is an
// idempotent success returning the stored result, so client retries never
// double-score.
func (s *AttemptService) Submit(ctx context.Context, userID, duelID string, req *model.SubmitAttemptRequest) (*model.SubmitAttemptResponse, error) {
	if req.ItemID == "" {
		return nil, fmt.Errorf("%w: itemId is required", ErrInvalidInput)
	}
	if req.TimeMs < 0 {
		return nil, fmt.Errorf("%w: negative timeMs", ErrInvalidInput)
	}

	room, err := s.roomRepo.GetByID(ctx, duelID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, fmt.Errorf("%w: room %s", ErrNotFound, duelID)
	}

	if room.TimedOut(s.clock.Now()) {
		if _, err := s.finalizer.ReapIfTimedOut(ctx, room); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: room %s", ErrExpired, duelID)
	}

	// First attempt into an open room activates it when the player
	// threshold is already met.
	if room.Status == model.RoomStatusOpen && len(room.Participants) >= room.MinPlayers {
		if _, err := s.roomSvc.tryActivate(ctx, room.ID); err != nil {
			return nil, err
		}
		room.Status = model.RoomStatusActive
	}
	if room.Status != model.RoomStatusActive {
		return nil, fmt.Errorf("%w: room is %s", ErrWrongState, room.Status)
	}

	if !room.HasItem(req.ItemID) {
		return nil, fmt.Errorf("%w: item %s is not part of this duel", ErrNotFound, req.ItemID)
	}
	if !room.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}

	item, err := s.loadItem(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	if err := validateResponse(item, req.Response); err != nil {
		return nil, err
	}

	prior, err := s.attemptRepo.GetByDuelUser(ctx, duelID, userID)
	if err != nil {
		return nil, err
	}
	streak := ReplayStreak(room.ItemIDs, prior)

	score, correct := ScoreAttempt(item, req.Response, req.TimeMs, streak)
	attempt := &model.Attempt{
		DuelID:      duelID,
		UserID:      userID,
		ItemID:      req.ItemID,
		Response:    req.Response,
		Score:       score,
		Correct:     correct,
		TimeMs:      req.TimeMs,
		CompletedAt: s.clock.Now(),
	}

	// The insert is not conditioned on room status: a submit that passed
	// the deadline check can land just after a racing finalize. The frozen
	// rankings never include such a late row; only the live standings view
	// sees it.
	stored, created, err := s.attemptRepo.Insert(ctx, attempt)
	if err != nil {
		return nil, fmt.Errorf("failed to append attempt: %w", err)
	}
	if !created {
		// Duplicate submission: prior already contains the stored record.
		return &model.SubmitAttemptResponse{
			Score:   stored.Score,
			Correct: stored.Correct,
			Streak:  ReplayStreak(room.ItemIDs, prior),
		}, nil
	}

	after := append(prior, stored)
	resp := &model.SubmitAttemptResponse{
		Score:   stored.Score,
		Correct: stored.Correct,
		Streak:  ReplayStreak(room.ItemIDs, after),
	}

	s.afterWrite(ctx, room, userID, after)
	return resp, nil
}

func (s *AttemptService) loadItem(ctx context.Context, itemID string) (*model.Item, error) {
	items, err := s.itemRepo.GetByIDs(ctx, []string{itemID})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: item %s", ErrNotFound, itemID)
	}
	return items[0], nil
}

func validateResponse(item *model.Item, resp model.AttemptResponse) error {
	if resp.TimedOut {
		return nil
	}
	switch item.Type {
	case model.ItemTypeChoice:
		if resp.OptionID == "" {
			return fmt.Errorf("%w: optionId required for choice items", ErrInvalidInput)
		}
	case model.ItemTypeRating:
		if resp.Rating < model.RatingPoor || resp.Rating > model.RatingStrong {
			return fmt.Errorf("%w: rating must be between %d and %d", ErrInvalidInput, model.RatingPoor, model.RatingStrong)
		}
	}
	return nil
}

// afterWrite updates the display caches, pushes live events and runs the
// completion check. The check is idempotent, so running it after every
// write is safe even when redundant.
func (s *AttemptService) afterWrite(ctx context.Context, room *model.DuelRoom, userID string, userAttempts []*model.Attempt) {
	total := 0
	for _, a := range userAttempts {
		total += a.Score
	}
	if err := s.leaderboard.UpdateScore(ctx, room.ID, userID, total); err != nil {
		log.Warn().Err(err).Str("duel_id", room.ID).Msg("failed to update leaderboard cache")
	}

	attempts, err := s.attemptRepo.GetByDuel(ctx, room.ID)
	if err != nil {
		log.Error().Err(err).Str("duel_id", room.ID).Msg("failed to load ledger after attempt write")
		return
	}

	s.broadcaster.BroadcastToRoom(room.ID, EventLeaderboardUpdate, map[string]interface{}{
		"duelId":    room.ID,
		"standings": ProjectStandings(room, attempts),
	})

	if len(userAttempts) >= len(room.ItemIDs) {
		s.broadcaster.BroadcastToRoom(room.ID, EventPlayerFinished, map[string]string{
			"duelId": room.ID,
			"userId": userID,
		})
	}

	if _, err := s.finalizer.CheckCompletion(ctx, room, attempts); err != nil {
		log.Error().Err(err).Str("duel_id", room.ID).Msg("completion check failed")
	}
}
