// Package review owns flashcard reviews: lazy creation, due queries,
// and atomic application of four-level ratings through the FSRS engine.
package review

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/tranvo/nihongo/internal/domain"
	"github.com/tranvo/nihongo/internal/srs"
	"github.com/tranvo/nihongo/internal/storage"
)

// Scheduler coordinates the store, the FSRS engine, and the progress
// streak for flashcard study. One instance per session; not safe for
// concurrent use.
type Scheduler struct {
	db     *storage.DB
	engine *srs.Scheduler
	now    func() time.Time
}

// NewScheduler wires a flashcard scheduler over the store. A nil engine
// gets the default FSRS configuration.
func NewScheduler(db *storage.DB, engine *srs.Scheduler) *Scheduler {
	if engine == nil {
		engine = srs.NewScheduler(srs.DefaultParams(), nil)
	}
	return &Scheduler{db: db, engine: engine, now: time.Now}
}

// SetNow overrides the clock, for tests.
func (s *Scheduler) SetNow(now func() time.Time) { s.now = now }

// Create mints a review for (itemID, kind) with a fresh Learning card
// due immediately. Fails with ErrNotFound if the item does not exist
// and ErrConflict if the pair already has a flashcard review.
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
	return s.db.CreateReview(ctx, domain.ModeFlash, r)
}

// Due lists reviews due as of the filter instant, ordered by ascending
// due date then review id.
func (s *Scheduler) Due(ctx context.Context, f storage.DueFilter) ([]*domain.Review, error) {
	if f.AsOf.IsZero() {
		f.AsOf = s.now().UTC()
	}
	return s.db.ListDue(ctx, domain.ModeFlash, f)
}

// ByItem fetches the flashcard review for one item.
func (s *Scheduler) ByItem(ctx context.Context, itemID int64, kind domain.ItemKind) (*domain.Review, error) {
	return s.db.GetReview(ctx, domain.ModeFlash, itemID, kind)
}

// Count tallies flashcard reviews under the filter.
func (s *Scheduler) Count(ctx context.Context, f storage.DueFilter) (int, error) {
	return s.db.CountReviews(ctx, domain.ModeFlash, f)
}

// Apply records one rating: the card advances through the FSRS engine,
// the review row is updated, and a history row is appended, all in a
// single transaction. The streak on the progress singleton moves in the
// same transaction.
func (s *Scheduler) Apply(ctx context.Context, reviewID int64, rating srs.Rating, durationMs *int64) (*domain.Review, error) {
	if !rating.Valid() {
		return nil, errors.Wrapf(domain.ErrInvalid, "rating must be 1-4, got %d", int(rating))
	}
	now := s.now().UTC()

	var updated *domain.Review
	err := s.db.WithTx(ctx, func(tx *storage.Tx) error {
		r, err := tx.GetReviewByID(ctx, domain.ModeFlash, reviewID)
		if err != nil {
			return errors.Wrapf(err, "review %d", reviewID)
		}

		card, _, err := s.engine.ReviewCard(r.Card, rating, now)
		if err != nil {
			return errors.Wrap(domain.ErrInvalid, err.Error())
		}

		r.Card = card
		r.Due = card.Due
		r.LastReviewed = &now
		r.ReviewCount++
		if err := tx.UpdateReview(ctx, domain.ModeFlash, r); err != nil {
			return err
		}

		h := &domain.FlashHistory{
			ReviewID:   r.ID,
			Rating:     rating,
			DurationMs: durationMs,
			ReviewedAt: now,
		}
		if _, err := tx.AddFlashHistory(ctx, h); err != nil {
			return err
		}

		if err := touchStreak(ctx, tx, now); err != nil {
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

// touchStreak advances the study streak for a review at now. Both
// scheduler modes count toward the same streak; the MCQ scheduler
// applies the same update inline.
func touchStreak(ctx context.Context, tx *storage.Tx, now time.Time) error {
	p, err := tx.GetProgress(ctx, storage.DefaultUserID)
	if err != nil {
		return err
	}
	p.Touch(now)
	return tx.SaveProgress(ctx, p)
}
