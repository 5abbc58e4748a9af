package domain

import (
	"time"

	"github.com/tranvo/nihongo/internal/srs"
)

// Mode selects which scheduler and table pair owns a review. The same
// item can hold one review per mode, each with independent card state.
type Mode string

const (
	ModeFlash Mode = "flash"
	ModeMCQ   Mode = "mcq"
)

// Review links a study item to its FSRS card state in one mode.
// Due mirrors Card.Due so the store can index due queries without
// opening the blob.
type Review struct {
	ID           int64
	ItemID       int64
	ItemKind     ItemKind
	Card         srs.Card
	Due          time.Time
	LastReviewed *time.Time
	ReviewCount  int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FlashHistory is one applied flashcard review. History rows are
// append-only; statistics assume they are never edited.
type FlashHistory struct {
	ID         int64
	ReviewID   int64
	Rating     srs.Rating
	DurationMs *int64
	ReviewedAt time.Time
}

// MCQHistory is one applied multiple-choice review.
type MCQHistory struct {
	ID             int64
	ReviewID       int64
	SelectedOption int // 0-3 for A-D
	IsCorrect      bool
	DurationMs     *int64
	ReviewedAt     time.Time
}
