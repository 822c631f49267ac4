package list

import (
	"testing"

	"github.com/arclist/arclist/internal/model"
)

func TestRankings(t *testing.T) {
	users := []model.User{
		{ID: "u1", Username: "alice", Points: 100},
		{ID: "u2", Username: "bob", Points: 300},
		{ID: "u3", Username: "carol", Points: 200},
	}

	ranked := Rankings(users)
	want := []string{"u2", "u3", "u1"}
	for i, id := range want {
		if ranked[i].User.ID != id {
			t.Errorf("rank %d = %s, want %s", i+1, ranked[i].User.ID, id)
		}
		if ranked[i].Rank != i+1 {
			t.Errorf("rank field = %d, want %d", ranked[i].Rank, i+1)
		}
	}

	// Input order is untouched.
	if users[0].ID != "u1" {
		t.Error("Rankings mutated its input")
	}
}

func TestRankingsTieKeepsOrder(t *testing.T) {
	users := []model.User{
		{ID: "u1", Points: 100},
		{ID: "u2", Points: 100},
	}
	ranked := Rankings(users)
	if ranked[0].User.ID != "u1" || ranked[1].User.ID != "u2" {
		t.Errorf("tie order changed: %s, %s", ranked[0].User.ID, ranked[1].User.ID)
	}
}

func TestRankOf(t *testing.T) {
	users := []model.User{
		{ID: "u1", Points: 50},
		{ID: "u2", Points: 500},
	}
	if got := RankOf(users, "u2"); got != 1 {
		t.Errorf("RankOf(u2) = %d, want 1", got)
	}
	if got := RankOf(users, "u1"); got != 2 {
		t.Errorf("RankOf(u1) = %d, want 2", got)
	}
	if got := RankOf(users, "missing"); got != 0 {
		t.Errorf("RankOf(missing) = %d, want 0", got)
	}
}

func TestAwardForPlacement(t *testing.T) {
	tests := []struct {
		placement int
		want      int
	}{
		{1, 100},
		{2, 99},
		{100, 1},
		{101, 1},
		{500, 1},
	}
	for _, tt := range tests {
		if got := AwardForPlacement(tt.placement); got != tt.want {
			t.Errorf("AwardForPlacement(%d) = %d, want %d", tt.placement, got, tt.want)
		}
	}
}
