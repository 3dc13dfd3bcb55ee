package service

import (
	"skillduel/internal/model"
)

// Scoring rules. Points are a pure function of the item, the response, the
// answer time and the user's running streak. No hidden state.
const (
	choicePoints     = 10
	wrongPenalty     = -5
	ratingBasePoints = 10
	partialPoints    = 0

	fastAnswerMs  = 5000
	fastBonus     = 5
	quickAnswerMs = 10000
	quickBonus    = 2

	streakStep      = 3
	streakStepBonus = 2
)

// ScoreAttempt computes the point value and correctness for a response.
// streak is the user's streak going into this attempt, derived from the
// ledger by ReplayStreak.
func ScoreAttempt(item *model.Item, resp model.AttemptResponse, timeMs, streak int) (int, bool) {
	if resp.TimedOut {
		return 0, false
	}

	switch item.Type {
	case model.ItemTypeChoice:
		opt := item.OptionByID(resp.OptionID)
		if opt != nil && opt.Quality == model.QualityGood {
			return choicePoints, true
		}
		return wrongPenalty, false

	case model.ItemTypeRating:
		if resp.Rating == item.CorrectRating {
			return ratingBasePoints + timeBonus(timeMs) + streakBonus(streak), true
		}
		if isAdjacentRating(resp.Rating, item.CorrectRating) {
			return partialPoints, false
		}
		return wrongPenalty, false
	}

	return 0, false
}

func timeBonus(timeMs int) int {
	switch {
	case timeMs < fastAnswerMs:
		return fastBonus
	case timeMs < quickAnswerMs:
		return quickBonus
	default:
		return 0
	}
}

func streakBonus(streak int) int {
	return streak / streakStep * streakStepBonus
}

func isAdjacentRating(a, b int) bool {
	d := a - b
	return d == 1 || d == -1
}

// ReplayStreak derives a user's current streak by replaying their own
// attempts in item order. The streak is never stored independently, so it
// cannot diverge from the ledger: correct attempts extend it, incorrect and
// timed-out attempts reset it, unanswered items are skipped.
func ReplayStreak(itemIDs []string, attempts []*model.Attempt) int {
	byItem := make(map[string]*model.Attempt, len(attempts))
	for _, a := range attempts {
		byItem[a.ItemID] = a
	}

	streak := 0
	for _, itemID := range itemIDs {
		a, ok := byItem[itemID]
		if !ok {
			continue
		}
		if a.Correct {
			streak++
		} else {
			streak = 0
		}
	}
	return streak
}
