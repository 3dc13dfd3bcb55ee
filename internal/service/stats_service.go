package service

import (
	"context"

	"skillduel/internal/model"
	"skillduel/internal/repository"
)

// StatsService derives per-user duel summaries from the room store. Stats
// are read-only projections; nothing here mutates game state.
type StatsService struct {
	roomRepo repository.RoomRepo
}

func NewStatsService(roomRepo repository.RoomRepo) *StatsService {
	return &StatsService{roomRepo: roomRepo}
}

// GetUserDuelStats folds the user's completed and in-flight rooms into a
// summary. A win is a rank-1 entry in a completed room's rankings.
func (s *StatsService) GetUserDuelStats(ctx context.Context, userID string) (*model.UserDuelStats, error) {
	completed, err := s.roomRepo.ListByParticipant(ctx, userID, []model.RoomStatus{model.RoomStatusCompleted})
	if err != nil {
		return nil, err
	}

	wins := 0
	for _, room := range completed {
		if len(room.Rankings) > 0 && room.Rankings[0].UserID == userID {
			wins++
		}
	}

	active, err := s.roomRepo.ListByParticipant(ctx, userID, []model.RoomStatus{model.RoomStatusOpen, model.RoomStatusActive})
	if err != nil {
		return nil, err
	}

	stats := &model.UserDuelStats{
		UserID:      userID,
		TotalRooms:  len(completed),
		Wins:        wins,
		ActiveRooms: len(active),
	}
	if stats.TotalRooms > 0 {
		stats.WinRate = float64(wins) / float64(stats.TotalRooms)
	}
	return stats, nil
}
