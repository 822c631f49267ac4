package list

import (
	"sort"

	"github.com/arclist/arclist/internal/model"
)

// Ranked pairs a user with their 1-based leaderboard rank.
type Ranked struct {
	User model.User
	Rank int
}

// Rankings orders users by points descending and assigns 1-based ranks.
// The sort is stable, so ties keep their insertion order; rank is never
// persisted on the user record, it is rederived on every call.
func Rankings(users []model.User) []Ranked {
	sorted := make([]model.User, len(users))
	copy(sorted, users)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Points > sorted[j].Points
	})

	ranked := make([]Ranked, len(sorted))
	for i, u := range sorted {
		ranked[i] = Ranked{User: u, Rank: i + 1}
	}
	return ranked
}

// RankOf returns a user's current rank, or 0 if the user is not present.
func RankOf(users []model.User, userID string) int {
	for _, r := range Rankings(users) {
		if r.User.ID == userID {
			return r.Rank
		}
	}
	return 0
}

// AwardForPlacement returns the points a completion of the level at the
// given placement is worth: 101 minus the placement, clamped to 1..100.
func AwardForPlacement(placement int) int {
	award := 101 - placement
	if award > 100 {
		award = 100
	}
	if award < 1 {
		award = 1
	}
	return award
}
