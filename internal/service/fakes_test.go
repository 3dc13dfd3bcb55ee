package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"skillduel/internal/cache"
	"skillduel/internal/model"
)

// In-memory repositories with the same conditional-write semantics as the
// Mongo implementations: each guarded mutation checks its filter and applies
// the write inside one critical section, so concurrency tests exercise the
// real race behavior.

type fakeRoomRepo struct {
	mu    sync.Mutex
	rooms map[string]*model.DuelRoom
}

func newFakeRoomRepo() *fakeRoomRepo {
	return &fakeRoomRepo{rooms: make(map[string]*model.DuelRoom)}
}

func cloneRoom(r *model.DuelRoom) *model.DuelRoom {
	c := *r
	c.Participants = append([]string(nil), r.Participants...)
	c.ReadyPlayers = append([]string(nil), r.ReadyPlayers...)
	c.ItemIDs = append([]string(nil), r.ItemIDs...)
	c.Rankings = append([]model.RankingEntry(nil), r.Rankings...)
	return &c
}

func (f *fakeRoomRepo) Create(_ context.Context, room *model.DuelRoom) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rooms[room.ID]; ok {
		return fmt.Errorf("duplicate room id %s", room.ID)
	}
	f.rooms[room.ID] = cloneRoom(room)
	return nil
}

func (f *fakeRoomRepo) GetByID(_ context.Context, id string) (*model.DuelRoom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[id]
	if !ok {
		return nil, nil
	}
	return cloneRoom(room), nil
}

func (f *fakeRoomRepo) ListOpen(_ context.Context, limit int) ([]*model.DuelRoom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.DuelRoom
	for _, room := range f.rooms {
		if room.Status == model.RoomStatusOpen && len(out) < limit {
			out = append(out, cloneRoom(room))
		}
	}
	return out, nil
}

func (f *fakeRoomRepo) AddParticipant(_ context.Context, roomID, userID string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[roomID]
	if !ok || room.Status != model.RoomStatusOpen || !now.Before(room.ExpiresAt) {
		return false, nil
	}
	for _, p := range room.Participants {
		if p == userID {
			return false, nil
		}
	}
	if len(room.Participants) >= room.MaxPlayers {
		return false, nil
	}
	room.Participants = append(room.Participants, userID)
	return true, nil
}

func (f *fakeRoomRepo) AddReady(_ context.Context, roomID, userID string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[roomID]
	if !ok || room.Status != model.RoomStatusOpen || !now.Before(room.ExpiresAt) {
		return false, nil
	}
	isParticipant := false
	for _, p := range room.Participants {
		if p == userID {
			isParticipant = true
			break
		}
	}
	if !isParticipant {
		return false, nil
	}
	for _, p := range room.ReadyPlayers {
		if p == userID {
			return true, nil
		}
	}
	room.ReadyPlayers = append(room.ReadyPlayers, userID)
	return true, nil
}

func (f *fakeRoomRepo) Activate(_ context.Context, roomID string, startedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[roomID]
	if !ok || room.Status != model.RoomStatusOpen {
		return false, nil
	}
	room.Status = model.RoomStatusActive
	room.StartedAt = &startedAt
	return true, nil
}

func (f *fakeRoomRepo) Finalize(_ context.Context, roomID string, rankings []model.RankingEntry, completedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[roomID]
	if !ok || room.Status != model.RoomStatusActive {
		return false, nil
	}
	room.Status = model.RoomStatusCompleted
	room.CompletedAt = &completedAt
	room.Rankings = append([]model.RankingEntry(nil), rankings...)
	return true, nil
}

func (f *fakeRoomRepo) Expire(_ context.Context, roomID string, expiredAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[roomID]
	if !ok || room.Status != model.RoomStatusOpen {
		return false, nil
	}
	room.Status = model.RoomStatusExpired
	room.CompletedAt = &expiredAt
	return true, nil
}

func (f *fakeRoomRepo) ListTimedOut(_ context.Context, now time.Time, limit int) ([]*model.DuelRoom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.DuelRoom
	for _, room := range f.rooms {
		if len(out) >= limit {
			break
		}
		inFlight := room.Status == model.RoomStatusOpen || room.Status == model.RoomStatusActive
		if inFlight && !now.Before(room.ExpiresAt) {
			out = append(out, cloneRoom(room))
		}
	}
	return out, nil
}

func (f *fakeRoomRepo) ListByParticipant(_ context.Context, userID string, statuses []model.RoomStatus) ([]*model.DuelRoom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := make(map[model.RoomStatus]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	var out []*model.DuelRoom
	for _, room := range f.rooms {
		if !want[room.Status] {
			continue
		}
		for _, p := range room.Participants {
			if p == userID {
				out = append(out, cloneRoom(room))
				break
			}
		}
	}
	return out, nil
}

type fakeAttemptRepo struct {
	mu       sync.Mutex
	attempts map[string]*model.Attempt
	nextID   int
}

func newFakeAttemptRepo() *fakeAttemptRepo {
	return &fakeAttemptRepo{attempts: make(map[string]*model.Attempt)}
}

func attemptKey(duelID, userID, itemID string) string {
	return duelID + "|" + userID + "|" + itemID
}

func (f *fakeAttemptRepo) Insert(_ context.Context, attempt *model.Attempt) (*model.Attempt, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := attemptKey(attempt.DuelID, attempt.UserID, attempt.ItemID)
	if existing, ok := f.attempts[key]; ok {
		c := *existing
		return &c, false, nil
	}
	f.nextID++
	attempt.ID = fmt.Sprintf("a%d", f.nextID)
	c := *attempt
	f.attempts[key] = &c
	return attempt, true, nil
}

func (f *fakeAttemptRepo) Get(_ context.Context, duelID, userID, itemID string) (*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.attempts[attemptKey(duelID, userID, itemID)]; ok {
		c := *a
		return &c, nil
	}
	return nil, nil
}

func (f *fakeAttemptRepo) GetByDuel(_ context.Context, duelID string) ([]*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Attempt
	for _, a := range f.attempts {
		if a.DuelID == duelID {
			c := *a
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeAttemptRepo) GetByDuelUser(_ context.Context, duelID, userID string) ([]*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Attempt
	for _, a := range f.attempts {
		if a.DuelID == duelID && a.UserID == userID {
			c := *a
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeAttemptRepo) CountByDuelUser(_ context.Context, duelID, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.attempts {
		if a.DuelID == duelID && a.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeAttemptRepo) EnsureIndexes(context.Context) error { return nil }

type fakeItemRepo struct {
	mu    sync.Mutex
	items map[string]*model.Item
}

func newFakeItemRepo(items ...*model.Item) *fakeItemRepo {
	f := &fakeItemRepo{items: make(map[string]*model.Item)}
	for _, item := range items {
		f.items[item.ID] = item
	}
	return f
}

func (f *fakeItemRepo) Create(_ context.Context, item *model.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[item.ID] = item
	return nil
}

func (f *fakeItemRepo) GetByIDs(_ context.Context, ids []string) ([]*model.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Item
	for _, id := range ids {
		if item, ok := f.items[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeItemRepo) Sample(_ context.Context, category string, count int) ([]*model.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Item
	for _, item := range f.items {
		if len(out) >= count {
			break
		}
		if category == "" || item.Category == category {
			out = append(out, item)
		}
	}
	return out, nil
}

type fakeLeaderboardCache struct {
	mu     sync.Mutex
	scores map[string]map[string]int
}

func newFakeLeaderboardCache() *fakeLeaderboardCache {
	return &fakeLeaderboardCache{scores: make(map[string]map[string]int)}
}

func (f *fakeLeaderboardCache) UpdateScore(_ context.Context, duelID, userID string, score int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scores[duelID] == nil {
		f.scores[duelID] = make(map[string]int)
	}
	f.scores[duelID][userID] = score
	return nil
}

// ranked returns the duel's entries ordered the way a ZSET reverse-range
// would: score descending, member ascending on ties.
func (f *fakeLeaderboardCache) ranked(duelID string) []cache.Entry {
	var entries []cache.Entry
	for userID, score := range f.scores[duelID] {
		entries = append(entries, cache.Entry{UserID: userID, Score: score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].UserID < entries[j].UserID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

func (f *fakeLeaderboardCache) GetTop(_ context.Context, duelID string, limit int) ([]cache.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := f.ranked(duelID)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (f *fakeLeaderboardCache) GetRank(_ context.Context, duelID, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.ranked(duelID) {
		if e.UserID == userID {
			return int64(e.Rank), nil
		}
	}
	return -1, nil
}

func (f *fakeLeaderboardCache) Expire(_ context.Context, duelID string, ttl time.Duration) error {
	return nil
}

type fakeRoomCache struct {
	mu    sync.Mutex
	metas map[string]*model.RoomMeta
}

func newFakeRoomCache() *fakeRoomCache {
	return &fakeRoomCache{metas: make(map[string]*model.RoomMeta)}
}

func (f *fakeRoomCache) SetMeta(_ context.Context, duelID string, meta *model.RoomMeta) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *meta
	f.metas[duelID] = &c
	return nil
}

func (f *fakeRoomCache) GetMeta(_ context.Context, duelID string) (*model.RoomMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.metas[duelID]; ok {
		c := *m
		return &c, nil
	}
	return nil, nil
}

func (f *fakeRoomCache) SetStatus(_ context.Context, duelID string, status model.RoomStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.metas[duelID]; ok {
		m.Status = status
	}
	return nil
}

func (f *fakeRoomCache) Delete(_ context.Context, duelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.metas, duelID)
	return nil
}

// countingBroadcaster records events for assertions.
type countingBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (b *countingBroadcaster) BroadcastToRoom(_ string, event string, _ interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *countingBroadcaster) BroadcastToUser(_, _ string, event string, _ interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *countingBroadcaster) count(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e == event {
			n++
		}
	}
	return n
}
