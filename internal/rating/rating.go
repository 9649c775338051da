// FILE: lanchess/internal/rating/rating.go

// Package rating holds the per-player aggregate ledger: win/loss/draw
// counters, streaks, the provisional-to-established rating transition,
// and achievement flags. Stats are mutated only through Apply, once per
// player per completed rated game.
package rating

import "lanchess/internal/core"

const (
	// GamesForRating is the game count at which the one-time initial
	// rating is assigned. Until then the rating is provisional (nil).
	GamesForRating = 5

	baseRating       = 1000
	minInitialRating = 800
	maxInitialRating = 2000

	// establishedStep is the fixed adjustment applied to an already
	// assigned rating per win or loss.
	establishedStep = 10
)

// Achievement names, awarded by monotone threshold checks.
const (
	AchievementFirstWin   = "first_win"
	AchievementTenGames   = "10_games"
	AchievementWinStreak5 = "win_streak_5"
	AchievementRating1500 = "rating_1500"
)

// Stats is one player's aggregate record. Rating is nil iff Assigned is
// false; Assigned flips false->true exactly once, when GamesPlayed first
// reaches GamesForRating.
type Stats struct {
	GamesPlayed   int
	Wins          int
	Losses        int
	Draws         int
	CurrentStreak int
	LongestStreak int
	Rating        *int
	Assigned      bool
	Achievements  []string
}

// Apply folds one game result into the stats. Wins extend the streak and
// add establishedStep to an assigned rating; losses reset the streak and
// subtract the same step (no floor — an established rating may go
// negative); draws only reset the streak. The initial rating assignment
// fires exactly once, on the game that brings GamesPlayed to
// GamesForRating, from the record accumulated over those games.
// Achievement checks run after every update and are idempotent.
func (s *Stats) Apply(result core.Result) {
	s.GamesPlayed++

	switch result {
	case core.ResultWin:
		s.Wins++
		s.CurrentStreak++
		if s.CurrentStreak > s.LongestStreak {
			s.LongestStreak = s.CurrentStreak
		}
		if s.Rating != nil {
			*s.Rating += establishedStep
		}
	case core.ResultLoss:
		s.Losses++
		s.CurrentStreak = 0
		if s.Rating != nil {
			*s.Rating -= establishedStep
		}
	case core.ResultDraw:
		s.Draws++
		s.CurrentStreak = 0
	}

	if s.GamesPlayed == GamesForRating && !s.Assigned {
		s.assignInitialRating()
	}

	s.checkAchievements()
}

// assignInitialRating computes the one-shot baseline from the first
// GamesForRating games, clamped to [minInitialRating, maxInitialRating].
func (s *Stats) assignInitialRating() {
	r := baseRating + 20*s.Wins - 15*s.Losses + 5*s.Draws
	if r < minInitialRating {
		r = minInitialRating
	}
	if r > maxInitialRating {
		r = maxInitialRating
	}
	s.Rating = &r
	s.Assigned = true
}

func (s *Stats) checkAchievements() {
	if s.Wins >= 1 {
		s.award(AchievementFirstWin)
	}
	if s.GamesPlayed >= 10 {
		s.award(AchievementTenGames)
	}
	if s.CurrentStreak >= 5 {
		s.award(AchievementWinStreak5)
	}
	if s.Rating != nil && *s.Rating >= 1500 {
		s.award(AchievementRating1500)
	}
}

// award inserts an achievement if absent; re-evaluation is safe.
func (s *Stats) award(name string) {
	for _, a := range s.Achievements {
		if a == name {
			return
		}
	}
	s.Achievements = append(s.Achievements, name)
}
