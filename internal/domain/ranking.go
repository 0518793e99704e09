package domain

import (
	"sort"
	"time"
)

// LeaderboardEntry is one evaluated essay on a competition leaderboard.
type LeaderboardEntry struct {
	Rank        int       `json:"rank"`
	EssayID     string    `json:"essay_id"`
	AuthorID    string    `json:"author_id"`
	Title       string    `json:"title"`
	Total       float64   `json:"total"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// Rank orders entries by total descending, earlier evaluations first on
// equal totals, and assigns competition ranks: equal totals share a rank and
// the next distinct total takes its 1-based position (1, 1, 3).
// The input slice is not modified.
func Rank(entries []LeaderboardEntry) []LeaderboardEntry {
	ranked := make([]LeaderboardEntry, len(entries))
	copy(ranked, entries)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Total != ranked[j].Total {
			return ranked[i].Total > ranked[j].Total
		}
		return ranked[i].EvaluatedAt.Before(ranked[j].EvaluatedAt)
	})

	for i := range ranked {
		if i > 0 && ranked[i].Total == ranked[i-1].Total {
			ranked[i].Rank = ranked[i-1].Rank
			continue
		}
		ranked[i].Rank = i + 1
	}
	return ranked
}

// PositionOf returns the rank a total would hold among totals: one more than
// the number of strictly greater totals.
func PositionOf(total float64, totals []float64) int {
	pos := 1
	for _, t := range totals {
		if t > total {
			pos++
		}
	}
	return pos
}
