// Package view derives presentation data (search results, mood statistics)
// from an in-memory list of entries.
package view

import (
	"math"
	"sort"
	"strings"

	"lumina_backend/internal/feature/journal/domain/entity"
)

// MoodShare is one row of a mood distribution.
type MoodShare struct {
	Mood    entity.Mood
	Count   int
	Percent int
}

// FilterEntries returns the entries whose title or content contains query,
// compared case-insensitively as a literal substring. An empty query returns
// entries unchanged.
func FilterEntries(entries []entity.Entry, query string) []entity.Entry {
	if query == "" {
		return entries
	}
	q := strings.ToLower(query)
	out := make([]entity.Entry, 0, len(entries))
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Title), q) || strings.Contains(strings.ToLower(e.Content), q) {
			out = append(out, e)
		}
	}
	return out
}

// MoodDistribution counts the moods present in entries and returns each one's
// share of the total, rounded to the nearest percent, ordered by count
// descending. Moods with equal counts keep the order in which they first
// appear in entries.
func MoodDistribution(entries []entity.Entry) []MoodShare {
	if len(entries) == 0 {
		return []MoodShare{}
	}

	index := make(map[entity.Mood]int)
	shares := make([]MoodShare, 0, len(entity.Moods))
	for _, e := range entries {
		i, ok := index[e.Mood]
		if !ok {
			i = len(shares)
			index[e.Mood] = i
			shares = append(shares, MoodShare{Mood: e.Mood})
		}
		shares[i].Count++
	}

	total := float64(len(entries))
	for i := range shares {
		shares[i].Percent = int(math.Round(float64(shares[i].Count) / total * 100))
	}

	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].Count > shares[j].Count
	})
	return shares
}

// TopMoods returns at most n leading rows of a distribution.
func TopMoods(shares []MoodShare, n int) []MoodShare {
	if n < 0 {
		n = 0
	}
	if len(shares) <= n {
		return shares
	}
	return shares[:n]
}
