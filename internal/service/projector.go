package service

import (
	"sort"

	"skillduel/internal/model"
)

// ProjectStandings folds the attempt ledger into per-user live standings.
// The fold is a pure function of the ledger and the roster, so every caller
// sees the same numbers regardless of how attempts interleaved. Users with
// no attempts yet appear with zero values.
func ProjectStandings(room *model.DuelRoom, attempts []*model.Attempt) []model.Standing {
	byUser := make(map[string]*model.Standing, len(room.Participants))
	order := make([]string, 0, len(room.Participants))
	for _, userID := range room.Participants {
		byUser[userID] = &model.Standing{UserID: userID}
		order = append(order, userID)
	}

	totalTime := make(map[string]int, len(room.Participants))
	for _, a := range attempts {
		s, ok := byUser[a.UserID]
		if !ok {
			// Attempt from a user no longer in the roster; ignore.
			continue
		}
		s.Score += a.Score
		s.Answered++
		totalTime[a.UserID] += a.TimeMs
		if a.Correct {
			s.CorrectCount++
		}
	}

	standings := make([]model.Standing, 0, len(order))
	for _, userID := range order {
		s := byUser[userID]
		if s.Answered > 0 {
			s.AvgTimeMs = totalTime[userID] / s.Answered
		}
		s.Finished = s.Answered >= len(room.ItemIDs)
		standings = append(standings, *s)
	}

	sortStandings(standings)
	return standings
}

// sortStandings orders rows by the ranking chain: score descending, average
// time ascending, correct count descending, then userID ascending. The final
// key makes the order a deterministic total order.
func sortStandings(standings []model.Standing) {
	sort.Slice(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.AvgTimeMs != b.AvgTimeMs {
			return a.AvgTimeMs < b.AvgTimeMs
		}
		if a.CorrectCount != b.CorrectCount {
			return a.CorrectCount > b.CorrectCount
		}
		return a.UserID < b.UserID
	})
}

// ComputeRankings turns the final ledger state into the frozen ranking list.
// Equal-key ties still receive distinct sequential ranks; the tie-break
// chain makes the assignment deterministic.
func ComputeRankings(room *model.DuelRoom, attempts []*model.Attempt) []model.RankingEntry {
	standings := ProjectStandings(room, attempts)

	rankings := make([]model.RankingEntry, len(standings))
	for i, s := range standings {
		rankings[i] = model.RankingEntry{
			UserID:       s.UserID,
			Score:        s.Score,
			Rank:         i + 1,
			CorrectCount: s.CorrectCount,
			AvgTimeMs:    s.AvgTimeMs,
		}
	}
	return rankings
}
