// Package mcq owns multiple-choice study: its own review schedule with
// binary correctness ratings, and the question generator.
package mcq

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/tranvo/nihongo/internal/domain"
	"github.com/tranvo/nihongo/internal/srs"
	"github.com/tranvo/nihongo/internal/storage"
)

// Scheduler mirrors the flashcard scheduler over the MCQ tables. The
// same item can be due here and not in flashcard mode; the two card
// states never touch.
type Scheduler struct {
	db     *storage.DB
	engine *srs.Scheduler
	now    func() time.Time
}

// NewScheduler wires an MCQ scheduler over the store.
func NewScheduler(db *storage.DB, engine *srs.Scheduler) *Scheduler {
	if engine == nil {
		engine = srs.NewScheduler(srs.DefaultParams(), nil)
	}
	return &Scheduler{db: db, engine: engine, now: time.Now}
}

// SetNow overrides the clock, for tests.
func (s *Scheduler) SetNow(now func() time.Time) { s.now = now }

// Create mints an MCQ review for (itemID, kind), independent of any
// flashcard review of the same item.
func (s *Scheduler) Create(ctx context.Context, itemID int64, kind domain.ItemKind) (int64, error) {
	if _, err := s.db.GetItem(ctx, itemID, kind); err != nil {
		return 0, errors.Wrapf(err, "%s %d", kind, itemID)
	}
	now := s.now().UTC()
	card := srs.NewCard(now)
	r := &domain.Review{
		ItemID:   itemID,
		ItemKind: kind,
		Card:     card,
		Due:      card.Due,
	}
	return s.db.CreateReview(ctx, domain.ModeMCQ, r)
}

// Due lists MCQ reviews due as of the filter instant.
func (s *Scheduler) Due(ctx context.Context, f storage.DueFilter) ([]*domain.Review, error) {
	if f.AsOf.IsZero() {
		f.AsOf = s.now().UTC()
	}
	return s.db.ListDue(ctx, domain.ModeMCQ, f)
}

// ByItem fetches the MCQ review for one item.
func (s *Scheduler) ByItem(ctx context.Context, itemID int64, kind domain.ItemKind) (*domain.Review, error) {
	return s.db.GetReview(ctx, domain.ModeMCQ, itemID, kind)
}

// Count tallies MCQ reviews under the filter.
func (s *Scheduler) Count(ctx context.Context, f storage.DueFilter) (int, error) {
	return s.db.CountReviews(ctx, domain.ModeMCQ, f)
}

// Apply records one answered question. Correctness maps onto the FSRS
// rating scale as correct→Good, incorrect→Again before the engine runs;
// the history row keeps the selected option for bias analysis.
func (s *Scheduler) Apply(ctx context.Context, reviewID int64, isCorrect bool, selectedOption int, durationMs *int64) (*domain.Review, error) {
	if selectedOption < 0 || selectedOption > 3 {
		return nil, errors.Wrapf(domain.ErrInvalid, "selected option must be 0-3, got %d", selectedOption)
	}
	rating := srs.Again
	if isCorrect {
		rating = srs.Good
	}
	now := s.now().UTC()

	var updated *domain.Review
	err := s.db.WithTx(ctx, func(tx *storage.Tx) error {
		r, err := tx.GetReviewByID(ctx, domain.ModeMCQ, reviewID)
		if err != nil {
			return errors.Wrapf(err, "mcq review %d", reviewID)
		}

		card, _, err := s.engine.ReviewCard(r.Card, rating, now)
		if err != nil {
			return errors.Wrap(domain.ErrInvalid, err.Error())
		}

		r.Card = card
		r.Due = card.Due
		r.LastReviewed = &now
		r.ReviewCount++
		if err := tx.UpdateReview(ctx, domain.ModeMCQ, r); err != nil {
			return err
		}

		h := &domain.MCQHistory{
			ReviewID:       r.ID,
			SelectedOption: selectedOption,
			IsCorrect:      isCorrect,
			DurationMs:     durationMs,
			ReviewedAt:     now,
		}
		if _, err := tx.AddMCQHistory(ctx, h); err != nil {
			return err
		}

		p, err := tx.GetProgress(ctx, storage.DefaultUserID)
		if err != nil {
			return err
		}
		p.Touch(now)
		if err := tx.SaveProgress(ctx, p); err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
