package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"skillduel/internal/cache"
	"skillduel/internal/model"
	"skillduel/internal/repository"
)

const (
	defaultMinPlayers = 2
	defaultMaxPlayers = 8
	maxRoomPlayers    = 32
	defaultRoomTTL    = 10 * time.Minute
	maxOpenRoomsPage  = 100

	defaultLeaderboardSize = 10

	joinRetries = 3
)

// ItemSelector describes how the item set for a room is chosen when the
// caller does not pass explicit item IDs.
type ItemSelector struct {
	Category string `json:"category,omitempty"`
	Count    int    `json:"count,omitempty"`
}

// CreateRoomRequest carries the host's room parameters.
type CreateRoomRequest struct {
	ItemIDs    []string      `json:"itemIds,omitempty"`
	Selector   *ItemSelector `json:"selector,omitempty"`
	MinPlayers int           `json:"minPlayers"`
	MaxPlayers int           `json:"maxPlayers"`
	TTLMs      int           `json:"ttlMs"`
}

// RoomService handles room lifecycle operations: create, list, join, ready
// and activation. Terminal transitions live in Finalizer.
type RoomService struct {
	roomRepo    repository.RoomRepo
	itemRepo    repository.ItemRepo
	attemptRepo repository.AttemptRepo
	roomCache   cache.RoomCache
	leaderboard cache.LeaderboardCache
	finalizer   *Finalizer
	clock       clockwork.Clock
	broadcaster Broadcaster
}

// NewRoomService creates a new room service
func NewRoomService(
	roomRepo repository.RoomRepo,
	itemRepo repository.ItemRepo,
	attemptRepo repository.AttemptRepo,
	roomCache cache.RoomCache,
	leaderboard cache.LeaderboardCache,
	finalizer *Finalizer,
	clock clockwork.Clock,
) *RoomService {
	return &RoomService{
		roomRepo:    roomRepo,
		itemRepo:    itemRepo,
		attemptRepo: attemptRepo,
		roomCache:   roomCache,
		leaderboard: leaderboard,
		finalizer:   finalizer,
		clock:       clock,
		broadcaster: NopBroadcaster{},
	}
}

// SetBroadcaster sets the broadcaster for live events.
func (s *RoomService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// CreateRoom creates a new duel room hosted by hostID. The host is the first
// participant; the room opens immediately and expires at now+ttl.
func (s *RoomService) CreateRoom(ctx context.Context, hostID string, req CreateRoomRequest) (*model.DuelRoom, error) {
	minPlayers := req.MinPlayers
	if minPlayers == 0 {
		minPlayers = defaultMinPlayers
	}
	maxPlayers := req.MaxPlayers
	if maxPlayers == 0 {
		maxPlayers = defaultMaxPlayers
	}
	ttl := time.Duration(req.TTLMs) * time.Millisecond
	if ttl == 0 {
		ttl = defaultRoomTTL
	}

	if minPlayers < 1 || maxPlayers > maxRoomPlayers {
		return nil, fmt.Errorf("%w: player bounds out of range", ErrInvalidInput)
	}
	if minPlayers > maxPlayers {
		return nil, fmt.Errorf("%w: minPlayers exceeds maxPlayers", ErrInvalidInput)
	}
	if ttl < 0 {
		return nil, fmt.Errorf("%w: negative ttl", ErrInvalidInput)
	}

	itemIDs, err := s.resolveItems(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(itemIDs) == 0 {
		return nil, fmt.Errorf("%w: room needs at least one item", ErrInvalidInput)
	}

	now := s.clock.Now()
	room := &model.DuelRoom{
		ID:           uuid.New().String(),
		HostID:       hostID,
		Participants: []string{hostID},
		ReadyPlayers: []string{},
		ItemIDs:      itemIDs,
		MinPlayers:   minPlayers,
		MaxPlayers:   maxPlayers,
		Status:       model.RoomStatusOpen,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}

	if err := s.roomRepo.Create(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	meta := &model.RoomMeta{
		HostID:     hostID,
		Status:     room.Status,
		MaxPlayers: maxPlayers,
		ExpiresAt:  room.ExpiresAt,
		CreatedAt:  now,
	}
	if err := s.roomCache.SetMeta(ctx, room.ID, meta); err != nil {
		log.Warn().Err(err).Str("duel_id", room.ID).Msg("failed to cache room meta")
	}

	log.Info().
		Str("duel_id", room.ID).
		Str("host_id", hostID).
		Int("items", len(itemIDs)).
		Msg("duel room created")
	return room, nil
}

func (s *RoomService) resolveItems(ctx context.Context, req CreateRoomRequest) ([]string, error) {
	if len(req.ItemIDs) > 0 {
		items, err := s.itemRepo.GetByIDs(ctx, req.ItemIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve items: %w", err)
		}
		if len(items) != len(req.ItemIDs) {
			return nil, fmt.Errorf("%w: unknown item id", ErrNotFound)
		}
		return req.ItemIDs, nil
	}

	if req.Selector == nil || req.Selector.Count <= 0 {
		return nil, fmt.Errorf("%w: item selector required", ErrInvalidInput)
	}
	items, err := s.itemRepo.Sample(ctx, req.Selector.Category, req.Selector.Count)
	if err != nil {
		return nil, fmt.Errorf("failed to sample items: %w", err)
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids, nil
}

// ListOpenRooms returns open, not yet timed-out rooms for the lobby view.
func (s *RoomService) ListOpenRooms(ctx context.Context, limit int) ([]model.RoomSummary, error) {
	if limit <= 0 || limit > maxOpenRoomsPage {
		limit = 20
	}
	rooms, err := s.roomRepo.ListOpen(ctx, limit)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	summaries := make([]model.RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		if room.TimedOut(now) {
			continue
		}
		summaries = append(summaries, room.Summary())
	}
	return summaries, nil
}

// JoinRoom adds userID to the room. The capacity check and the insert are a
// single conditional write on the room document, so concurrent joiners
// racing for the last slot cannot exceed maxPlayers: exactly one wins and
// the rest are classified and rejected. Joining a room one already belongs
// to is an idempotent success.
func (s *RoomService) JoinRoom(ctx context.Context, userID, roomID string) error {
	for attempt := 0; attempt < joinRetries; attempt++ {
		joined, err := s.roomRepo.AddParticipant(ctx, roomID, userID, s.clock.Now())
		if err != nil {
			return err
		}
		if joined {
			s.broadcaster.BroadcastToRoom(roomID, EventPlayerJoined, map[string]string{
				"duelId": roomID,
				"userId": userID,
			})
			log.Info().Str("duel_id", roomID).Str("user_id", userID).Msg("player joined duel")
			return nil
		}

		// The guarded write did not land; find out why.
		room, err := s.roomRepo.GetByID(ctx, roomID)
		if err != nil {
			return err
		}
		switch {
		case room == nil:
			return fmt.Errorf("%w: room %s", ErrNotFound, roomID)
		case room.HasParticipant(userID):
			return nil
		case room.TimedOut(s.clock.Now()):
			if _, err := s.finalizer.ReapIfTimedOut(ctx, room); err != nil {
				return err
			}
			return fmt.Errorf("%w: room %s", ErrExpired, roomID)
		case room.Status != model.RoomStatusOpen:
			return fmt.Errorf("%w: room is %s", ErrWrongState, room.Status)
		case room.IsFull():
			return ErrRoomFull
		}
		// The room looked joinable on the re-read; the filter must have
		// raced with another transition. Retry.
	}
	return ErrRoomFull
}

// MarkReady records a participant's ready signal. When every participant is
// ready and the minimum threshold is met, the room activates.
func (s *RoomService) MarkReady(ctx context.Context, userID, roomID string) error {
	ok, err := s.roomRepo.AddReady(ctx, roomID, userID, s.clock.Now())
	if err != nil {
		return err
	}
	if !ok {
		room, err := s.roomRepo.GetByID(ctx, roomID)
		if err != nil {
			return err
		}
		switch {
		case room == nil:
			return fmt.Errorf("%w: room %s", ErrNotFound, roomID)
		case !room.HasParticipant(userID):
			return ErrNotParticipant
		case room.TimedOut(s.clock.Now()):
			if _, err := s.finalizer.ReapIfTimedOut(ctx, room); err != nil {
				return err
			}
			return fmt.Errorf("%w: room %s", ErrExpired, roomID)
		default:
			return fmt.Errorf("%w: room is %s", ErrWrongState, room.Status)
		}
	}

	s.broadcaster.BroadcastToRoom(roomID, EventPlayerReady, map[string]string{
		"duelId": roomID,
		"userId": userID,
	})

	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return err
	}
	if room != nil && s.allReady(room) && len(room.Participants) >= room.MinPlayers {
		if _, err := s.tryActivate(ctx, room.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *RoomService) allReady(room *model.DuelRoom) bool {
	ready := make(map[string]bool, len(room.ReadyPlayers))
	for _, userID := range room.ReadyPlayers {
		ready[userID] = true
	}
	for _, userID := range room.Participants {
		if !ready[userID] {
			return false
		}
	}
	return true
}

// StartRoom is the host's explicit activation of an open room.
func (s *RoomService) StartRoom(ctx context.Context, userID, roomID string) error {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return err
	}
	if room == nil {
		return fmt.Errorf("%w: room %s", ErrNotFound, roomID)
	}
	if room.HostID != userID {
		return fmt.Errorf("%w: only the host can start the duel", ErrNotParticipant)
	}
	if room.TimedOut(s.clock.Now()) {
		if _, err := s.finalizer.ReapIfTimedOut(ctx, room); err != nil {
			return err
		}
		return fmt.Errorf("%w: room %s", ErrExpired, roomID)
	}
	if room.Status != model.RoomStatusOpen {
		return fmt.Errorf("%w: room is %s", ErrWrongState, room.Status)
	}
	if len(room.Participants) < room.MinPlayers {
		return fmt.Errorf("%w: need at least %d players", ErrWrongState, room.MinPlayers)
	}

	if _, err := s.tryActivate(ctx, roomID); err != nil {
		return err
	}
	return nil
}

// tryActivate performs the guarded open -> active transition. Losing the
// race means another caller activated the room, which is fine.
func (s *RoomService) tryActivate(ctx context.Context, roomID string) (bool, error) {
	won, err := s.roomRepo.Activate(ctx, roomID, s.clock.Now())
	if err != nil {
		return false, err
	}
	if !won {
		return false, nil
	}

	if err := s.roomCache.SetStatus(ctx, roomID, model.RoomStatusActive); err != nil {
		log.Warn().Err(err).Str("duel_id", roomID).Msg("failed to update room cache after activation")
	}
	s.broadcaster.BroadcastToRoom(roomID, EventDuelStarted, map[string]string{
		"duelId": roomID,
	})
	log.Info().Str("duel_id", roomID).Msg("duel started")
	return true, nil
}

// GetRoomDetails returns the room with its items, the full attempt ledger
// and standings derived from it. The expiry check runs first, so a read of
// a room past its deadline observes the terminal state.
func (s *RoomService) GetRoomDetails(ctx context.Context, roomID string) (*model.RoomDetails, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, fmt.Errorf("%w: room %s", ErrNotFound, roomID)
	}

	if reaped, err := s.finalizer.ReapIfTimedOut(ctx, room); err != nil {
		return nil, err
	} else if reaped {
		room, err = s.roomRepo.GetByID(ctx, roomID)
		if err != nil {
			return nil, err
		}
	}

	attempts, err := s.attemptRepo.GetByDuel(ctx, roomID)
	if err != nil {
		return nil, err
	}
	items, err := s.itemRepo.GetByIDs(ctx, room.ItemIDs)
	if err != nil {
		return nil, err
	}

	return &model.RoomDetails{
		Room:         room,
		Items:        items,
		Attempts:     attempts,
		Participants: room.Participants,
		Standings:    ProjectStandings(room, attempts),
	}, nil
}

// Leaderboard returns the top rows for a duel plus the caller's own rank
// (0 when the caller has no score yet). The Redis ZSET serves the hot path;
// a cold or failed cache read falls back to rebuilding the rows from the
// attempt ledger.
func (s *RoomService) Leaderboard(ctx context.Context, roomID, userID string, limit int) ([]cache.Entry, int64, error) {
	if limit <= 0 || limit > maxOpenRoomsPage {
		limit = defaultLeaderboardSize
	}

	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, 0, err
	}
	if room == nil {
		return nil, 0, fmt.Errorf("%w: room %s", ErrNotFound, roomID)
	}

	entries, err := s.leaderboard.GetTop(ctx, roomID, limit)
	if err != nil {
		log.Warn().Err(err).Str("duel_id", roomID).Msg("leaderboard cache read failed")
		entries = nil
	}
	if len(entries) == 0 {
		attempts, err := s.attemptRepo.GetByDuel(ctx, roomID)
		if err != nil {
			return nil, 0, err
		}
		standings := ProjectStandings(room, attempts)
		if len(standings) > limit {
			standings = standings[:limit]
		}
		entries = make([]cache.Entry, len(standings))
		for i, st := range standings {
			entries[i] = cache.Entry{UserID: st.UserID, Score: st.Score, Rank: i + 1}
		}
	}

	rank, err := s.leaderboard.GetRank(ctx, roomID, userID)
	if err != nil || rank <= 0 {
		rank = 0
		for _, e := range entries {
			if e.UserID == userID {
				rank = int64(e.Rank)
				break
			}
		}
	}
	return entries, rank, nil
}
