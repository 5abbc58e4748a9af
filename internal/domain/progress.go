package domain

import "time"

// ProgressStats is the denormalised statistics blob on the Progress row.
type ProgressStats struct {
	TotalVocab       int     `json:"total_vocab"`
	TotalKanji       int     `json:"total_kanji"`
	MasteredVocab    int     `json:"mastered_vocab"`
	MasteredKanji    int     `json:"mastered_kanji"`
	TotalReviews     int     `json:"total_reviews"`
	AverageRetention float64 `json:"average_retention"`
}

// Progress is the per-user singleton tracking levels and streak.
type Progress struct {
	ID           int64
	UserID       string
	CurrentLevel Level
	TargetLevel  Level
	Stats        ProgressStats
	Milestones   []string
	StreakDays   int
	// LastReviewDate is a calendar date (midnight UTC), not an instant.
	LastReviewDate *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Touch updates the streak for a review on the given calendar date:
// same day keeps it, the next day increments, a gap resets to 1.
func (p *Progress) Touch(day time.Time) {
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	switch {
	case p.LastReviewDate == nil:
		p.StreakDays = 1
	case p.LastReviewDate.Equal(day):
		// already counted today
	case day.Sub(*p.LastReviewDate) == 24*time.Hour:
		p.StreakDays++
	default:
		p.StreakDays = 1
	}
	p.LastReviewDate = &day
}
