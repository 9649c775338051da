// FILE: lanchess/internal/rating/rating_test.go
package rating

import (
	"testing"

	"lanchess/internal/core"
)

func apply(t *testing.T, s *Stats, results ...core.Result) {
	t.Helper()
	for _, r := range results {
		s.Apply(r)
	}
}

func TestRatingNilUntilFiveGames(t *testing.T) {
	var s Stats
	apply(t, &s, core.ResultWin, core.ResultWin, core.ResultLoss, core.ResultDraw)

	if s.Rating != nil || s.Assigned {
		t.Fatalf("rating must stay provisional before %d games", GamesForRating)
	}
	if s.GamesPlayed != 4 {
		t.Fatalf("games played: got %d", s.GamesPlayed)
	}
}

func TestInitialRatingFromFirstFiveGames(t *testing.T) {
	// 3W 1L, then the fifth game is a win: 4W 1L at assignment time.
	// 1000 + 20*4 - 15*1 = 1065.
	var s Stats
	apply(t, &s,
		core.ResultWin, core.ResultWin, core.ResultWin, core.ResultLoss,
		core.ResultWin,
	)

	if !s.Assigned || s.Rating == nil {
		t.Fatal("rating must be assigned at five games")
	}
	if *s.Rating != 1065 {
		t.Fatalf("initial rating: got %d, want 1065", *s.Rating)
	}
}

func TestInitialRatingCountsAssigningGame(t *testing.T) {
	// The fifth game's own result is part of the formula but must not
	// additionally move the just-assigned rating by the established step.
	var s Stats
	apply(t, &s,
		core.ResultDraw, core.ResultDraw, core.ResultDraw, core.ResultDraw,
		core.ResultWin,
	)

	// 1000 + 20*1 + 5*4 = 1040, not 1050.
	if *s.Rating != 1040 {
		t.Fatalf("got %d, want 1040", *s.Rating)
	}
}

func TestInitialRatingClamped(t *testing.T) {
	var low Stats
	apply(t, &low,
		core.ResultLoss, core.ResultLoss, core.ResultLoss, core.ResultLoss,
		core.ResultLoss,
	)
	// 1000 - 75 = 925, above the floor; the clamp only matters for
	// hand-edited ledgers, but the bounds must hold regardless.
	if *low.Rating < 800 || *low.Rating > 2000 {
		t.Fatalf("clamp violated: %d", *low.Rating)
	}
	if *low.Rating != 925 {
		t.Fatalf("got %d, want 925", *low.Rating)
	}
}

func TestAssignmentIsOneShot(t *testing.T) {
	var s Stats
	apply(t, &s,
		core.ResultLoss, core.ResultLoss, core.ResultLoss, core.ResultLoss,
		core.ResultLoss,
	)
	first := *s.Rating

	// Later games adjust by the established step, never re-run the
	// initial formula.
	apply(t, &s, core.ResultWin)
	if *s.Rating != first+10 {
		t.Fatalf("got %d, want %d", *s.Rating, first+10)
	}
	apply(t, &s, core.ResultLoss)
	if *s.Rating != first {
		t.Fatalf("got %d, want %d", *s.Rating, first)
	}
}

func TestEstablishedRatingMayGoNegative(t *testing.T) {
	r := 5
	s := Stats{GamesPlayed: 20, Rating: &r, Assigned: true}

	apply(t, &s, core.ResultLoss)
	if *s.Rating != -5 {
		t.Fatalf("no floor after assignment: got %d, want -5", *s.Rating)
	}
}

func TestDrawLeavesRatingResetsStreak(t *testing.T) {
	r := 1200
	s := Stats{GamesPlayed: 10, CurrentStreak: 3, LongestStreak: 3, Rating: &r, Assigned: true}

	apply(t, &s, core.ResultDraw)
	if *s.Rating != 1200 {
		t.Fatalf("draw must not move the rating: got %d", *s.Rating)
	}
	if s.CurrentStreak != 0 {
		t.Fatalf("draw must reset the streak: got %d", s.CurrentStreak)
	}
	if s.LongestStreak != 3 {
		t.Fatalf("longest streak must survive: got %d", s.LongestStreak)
	}
}

func TestStreakTracking(t *testing.T) {
	var s Stats
	apply(t, &s, core.ResultWin, core.ResultWin, core.ResultWin, core.ResultLoss, core.ResultWin)

	if s.CurrentStreak != 1 {
		t.Fatalf("current streak: got %d", s.CurrentStreak)
	}
	if s.LongestStreak != 3 {
		t.Fatalf("longest streak: got %d", s.LongestStreak)
	}
}

func TestAchievements(t *testing.T) {
	var s Stats

	apply(t, &s, core.ResultWin)
	if !has(s.Achievements, AchievementFirstWin) {
		t.Fatal("first_win missing after first win")
	}

	apply(t, &s, core.ResultWin, core.ResultWin, core.ResultWin, core.ResultWin)
	if !has(s.Achievements, AchievementWinStreak5) {
		t.Fatal("win_streak_5 missing after five straight wins")
	}

	apply(t, &s, core.ResultLoss, core.ResultLoss, core.ResultLoss, core.ResultLoss, core.ResultLoss)
	if s.GamesPlayed != 10 {
		t.Fatalf("games played: got %d", s.GamesPlayed)
	}
	if !has(s.Achievements, AchievementTenGames) {
		t.Fatal("10_games missing at ten games")
	}

	// Losing the streak must not revoke the streak achievement.
	if !has(s.Achievements, AchievementWinStreak5) {
		t.Fatal("achievements must never be revoked")
	}
}

func TestAchievementsIdempotent(t *testing.T) {
	var s Stats
	apply(t, &s, core.ResultWin, core.ResultWin)

	n := 0
	for _, a := range s.Achievements {
		if a == AchievementFirstWin {
			n++
		}
	}
	if n != 1 {
		t.Fatalf("first_win recorded %d times", n)
	}
}

func TestRating1500Achievement(t *testing.T) {
	r := 1495
	s := Stats{GamesPlayed: 30, Rating: &r, Assigned: true}

	apply(t, &s, core.ResultWin)
	if !has(s.Achievements, AchievementRating1500) {
		t.Fatalf("rating_1500 missing at %d", *s.Rating)
	}
}

func has(list []string, name string) bool {
	for _, a := range list {
		if a == name {
			return true
		}
	}
	return false
}
