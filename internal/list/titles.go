package list

// Title is a cosmetic rank a player can equip once eligible.
type Title struct {
	ID   string
	Name string

	// MinPoints is the point threshold for eligibility, ignored when
	// RequiresRank is set.
	MinPoints int

	// RequiresRank restricts the title to exactly this leaderboard
	// rank. Zero means no rank condition.
	RequiresRank int
}

// Titles is the fixed eligibility table, ordered from most to least
// prestigious. Eligibility is a pure function of current points and
// rank and is recomputed on demand, never cached.
var Titles = []Title{
	{ID: "champion", Name: "Champion", RequiresRank: 1},
	{ID: "grandmaster", Name: "Grandmaster", MinPoints: 5000},
	{ID: "master", Name: "Master", MinPoints: 2500},
	{ID: "expert", Name: "Expert", MinPoints: 1000},
	{ID: "skilled", Name: "Skilled", MinPoints: 500},
	{ID: "apprentice", Name: "Apprentice", MinPoints: 100},
	{ID: "novice", Name: "Novice", MinPoints: 1},
}

// EligibleTitles returns the titles a player with the given points and
// rank may equip, in table order.
func EligibleTitles(points, rank int) []Title {
	var eligible []Title
	for _, t := range Titles {
		if t.RequiresRank > 0 {
			if rank == t.RequiresRank {
				eligible = append(eligible, t)
			}
			continue
		}
		if points >= t.MinPoints {
			eligible = append(eligible, t)
		}
	}
	return eligible
}

// TitleByID looks a title up in the table.
func TitleByID(id string) (Title, bool) {
	for _, t := range Titles {
		if t.ID == id {
			return t, true
		}
	}
	return Title{}, false
}
