package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillduel/internal/model"
)

func activeRoom(id string, participants ...string) *model.DuelRoom {
	room := openRoom(id, participants[0], participants, 2, 8)
	room.Status = model.RoomStatusActive
	return room
}

func TestSubmitScoresAndTracksStreak(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.seedRoom(t, activeRoom("d1", "host", "alice"))

	resp, err := env.attemptSvc.Submit(ctx, "host", "d1", &model.SubmitAttemptRequest{
		ItemID:   "i1",
		Response: model.AttemptResponse{OptionID: "o1"},
		TimeMs:   3000,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, resp.Score)
	assert.True(t, resp.Correct)
	assert.Equal(t, 1, resp.Streak)

	resp, err = env.attemptSvc.Submit(ctx, "host", "d1", &model.SubmitAttemptRequest{
		ItemID:   "i2",
		Response: model.AttemptResponse{Rating: model.RatingFair},
		TimeMs:   3000,
	})
	require.NoError(t, err)
	assert.Equal(t, 15, resp.Score) // 10 base + 5 fast, streak of 1 adds nothing
	assert.True(t, resp.Correct)
	assert.Equal(t, 2, resp.Streak)

	score, ok := env.lb.scores["d1"]["host"]
	require.True(t, ok)
	assert.Equal(t, 25, score)
}

func TestSubmitStampsLedgerFromClock(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.seedRoom(t, activeRoom("d1", "host", "alice"))

	env.clock.Advance(3 * time.Minute)
	want := env.clock.Now()

	_, err := env.attemptSvc.Submit(ctx, "host", "d1", &model.SubmitAttemptRequest{
		ItemID:   "i1",
		Response: model.AttemptResponse{OptionID: "o1"},
		TimeMs:   2000,
	})
	require.NoError(t, err)

	stored, err := env.attempts.Get(ctx, "d1", "host", "i1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, want, stored.CompletedAt)
}

func TestSubmitWrongAnswerResetsStreak(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.seedRoom(t, activeRoom("d1", "host", "alice"))

	_, err := env.attemptSvc.Submit(ctx, "host", "d1", &model.SubmitAttemptRequest{
		ItemID:   "i1",
		Response: model.AttemptResponse{OptionID: "o1"},
		TimeMs:   2000,
	})
	require.NoError(t, err)

	resp, err := env.attemptSvc.Submit(ctx, "host", "d1", &model.SubmitAttemptRequest{
		ItemID:   "i2",
		Response: model.AttemptResponse{Rating: model.RatingPoor},
		TimeMs:   2000,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Score) // adjacent to fair
	assert.False(t, resp.Correct)
	assert.Equal(t, 0, resp.Streak)
}

func TestSubmitTimeout(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.seedRoom(t, activeRoom("d1", "host", "alice"))

	resp, err := env.attemptSvc.Submit(ctx, "host", "d1", &model.SubmitAttemptRequest{
		ItemID:   "i1",
		Response: model.AttemptResponse{TimedOut: true},
		TimeMs:   20000,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Score)
	assert.False(t, resp.Correct)
	assert.Equal(t, 0, resp.Streak)
}

func TestSubmitIdempotent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.seedRoom(t, activeRoom("d1", "host", "alice"))

	first, err := env.attemptSvc.Submit(ctx, "host", "d1", &model.SubmitAttemptRequest{
		ItemID:   "i1",
		Response: model.AttemptResponse{OptionID: "o1"},
		TimeMs:   3000,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, first.Score)

	// Retry with a different answer: the stored attempt wins and nothing
	// is double-counted.
	second, err := env.attemptSvc.Submit(ctx, "host", "d1", &model.SubmitAttemptRequest{
		ItemID:   "i1",
		Response: model.AttemptResponse{OptionID: "o2"},
		TimeMs:   9000,
	})
	require.NoError(t, err)
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.Correct, second.Correct)
	assert.Equal(t, first.Streak, second.Streak)

	n, err := env.attempts.CountByDuelUser(ctx, "d1", "host")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 10, env.lb.scores["d1"]["host"])
}

func TestSubmitValidation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.seedRoom(t, activeRoom("d1", "host", "alice"))

	tests := []struct {
		name string
		req  *model.SubmitAttemptRequest
	}{
		{
			name: "missing item id",
			req:  &model.SubmitAttemptRequest{Response: model.AttemptResponse{OptionID: "o1"}},
		},
		{
			name: "negative time",
			req:  &model.SubmitAttemptRequest{ItemID: "i1", Response: model.AttemptResponse{OptionID: "o1"}, TimeMs: -1},
		},
		{
			name: "choice without option",
			req:  &model.SubmitAttemptRequest{ItemID: "i1", TimeMs: 1000},
		},
		{
			name: "rating out of range",
			req:  &model.SubmitAttemptRequest{ItemID: "i2", Response: model.AttemptResponse{Rating: 7}, TimeMs: 1000},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.attemptSvc.Submit(ctx, "host", "d1", tt.req)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestSubmitPreconditions(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.seedRoom(t, activeRoom("d1", "host", "alice"))

	req := func(itemID string) *model.SubmitAttemptRequest {
		return &model.SubmitAttemptRequest{
			ItemID:   itemID,
			Response: model.AttemptResponse{OptionID: "o1"},
			TimeMs:   1000,
		}
	}

	_, err := env.attemptSvc.Submit(ctx, "host", "nope", req("i1"))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.attemptSvc.Submit(ctx, "stranger", "d1", req("i1"))
	assert.ErrorIs(t, err, ErrNotParticipant)

	_, err = env.attemptSvc.Submit(ctx, "host", "d1", req("i99"))
	assert.ErrorIs(t, err, ErrNotFound)

	waiting := openRoom("d2", "solo", []string{"solo"}, 2, 8)
	env.seedRoom(t, waiting)
	_, err = env.attemptSvc.Submit(ctx, "solo", "d2", req("i1"))
	assert.ErrorIs(t, err, ErrWrongState)
}

func TestSubmitExpiredRoom(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.seedRoom(t, activeRoom("d1", "host", "alice"))

	env.clock.Advance(11 * time.Minute)

	_, err := env.attemptSvc.Submit(ctx, "host", "d1", &model.SubmitAttemptRequest{
		ItemID:   "i1",
		Response: model.AttemptResponse{OptionID: "o1"},
		TimeMs:   1000,
	})
	assert.ErrorIs(t, err, ErrExpired)

	// Active past deadline finalizes with whatever the ledger holds.
	room, err := env.rooms.GetByID(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, model.RoomStatusCompleted, room.Status)
	assert.Len(t, room.Rankings, 2)
}

func TestSubmitImplicitActivation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.seedRoom(t, openRoom("d1", "host", []string{"host", "alice"}, 2, 8))

	resp, err := env.attemptSvc.Submit(ctx, "alice", "d1", &model.SubmitAttemptRequest{
		ItemID:   "i1",
		Response: model.AttemptResponse{OptionID: "o1"},
		TimeMs:   1000,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, resp.Score)

	room, err := env.rooms.GetByID(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, model.RoomStatusActive, room.Status)
}

func TestSubmitCompletionFinalizes(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.seedRoom(t, activeRoom("d1", "host", "alice"))

	submit := func(userID, itemID string, resp model.AttemptResponse, timeMs int) {
		t.Helper()
		_, err := env.attemptSvc.Submit(ctx, userID, "d1", &model.SubmitAttemptRequest{
			ItemID:   itemID,
			Response: resp,
			TimeMs:   timeMs,
		})
		require.NoError(t, err)
	}

	submit("host", "i1", model.AttemptResponse{OptionID: "o1"}, 3000)
	submit("alice", "i1", model.AttemptResponse{OptionID: "o2"}, 2000)
	submit("host", "i2", model.AttemptResponse{Rating: model.RatingFair}, 4000)

	room, err := env.rooms.GetByID(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, model.RoomStatusActive, room.Status)

	submit("alice", "i2", model.AttemptResponse{Rating: model.RatingFair}, 6000)

	room, err = env.rooms.GetByID(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, model.RoomStatusCompleted, room.Status)
	require.NotNil(t, room.CompletedAt)
	require.Len(t, room.Rankings, 2)

	// host: 10 + 15 = 25; alice: -5 + 12 = 7.
	assert.Equal(t, "host", room.Rankings[0].UserID)
	assert.Equal(t, 25, room.Rankings[0].Score)
	assert.Equal(t, 1, room.Rankings[0].Rank)
	assert.Equal(t, "alice", room.Rankings[1].UserID)
	assert.Equal(t, 7, room.Rankings[1].Score)
	assert.Equal(t, 2, room.Rankings[1].Rank)

	assert.Equal(t, 1, env.bc.count(EventDuelCompleted))
	assert.Equal(t, 2, env.bc.count(EventPlayerFinished))
}
