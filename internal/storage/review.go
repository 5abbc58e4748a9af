package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/tranvo/nihongo/internal/domain"
	"github.com/tranvo/nihongo/internal/srs"
)

// reviewTables names the table pair backing one review mode. The
// flashcard and MCQ schedulers share row shapes but never share rows.
type reviewTables struct {
	reviews   string
	history   string
	historyFK string
}

var (
	flashTables = reviewTables{"reviews", "review_history", "review_id"}
	mcqTables   = reviewTables{"mcq_reviews", "mcq_review_history", "mcq_review_id"}
)

func tablesFor(mode domain.Mode) reviewTables {
	if mode == domain.ModeMCQ {
		return mcqTables
	}
	return flashTables
}

// DueFilter narrows due queries and review counts.
type DueFilter struct {
	Level *domain.Level
	Kind  *domain.ItemKind
	Limit int
	AsOf  time.Time
}

const reviewColumns = `id, item_id, item_kind, fsrs_card_state, due_date,
	last_reviewed, review_count, created_at, updated_at`

// CreateReview inserts a fresh review row for (item, kind) in the given
// mode. A second review for the same triple yields ErrConflict.
func (q queries) CreateReview(ctx context.Context, mode domain.Mode, r *domain.Review) (int64, error) {
	t := tablesFor(mode)
	card, err := json.Marshal(r.Card)
	if err != nil {
		return 0, errors.Wrapf(domain.ErrInvalid, "encode card: %v", err)
	}
	now := nowUTC()
	res, err := q.t.ExecContext(ctx, `
		INSERT INTO `+t.reviews+` (item_id, item_kind, fsrs_card_state,
			due_date, last_reviewed, review_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ItemID, string(r.ItemKind), string(card), formatTime(r.Due),
		formatTimePtr(r.LastReviewed), r.ReviewCount,
		formatTime(now), formatTime(now))
	if err != nil {
		return 0, wrapErr(err, "create review")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrapErr(err, "create review: last insert id")
	}
	r.ID = id
	r.CreatedAt, r.UpdatedAt = now, now
	return id, nil
}

// GetReview fetches the review for (item, kind) in the given mode.
func (q queries) GetReview(ctx context.Context, mode domain.Mode, itemID int64, kind domain.ItemKind) (*domain.Review, error) {
	t := tablesFor(mode)
	row := q.t.QueryRowContext(ctx,
		`SELECT `+reviewColumns+` FROM `+t.reviews+` WHERE item_id = ? AND item_kind = ?`,
		itemID, string(kind))
	return scanReview(row)
}

// GetReviewByID fetches a review by primary key.
func (q queries) GetReviewByID(ctx context.Context, mode domain.Mode, id int64) (*domain.Review, error) {
	t := tablesFor(mode)
	row := q.t.QueryRowContext(ctx,
		`SELECT `+reviewColumns+` FROM `+t.reviews+` WHERE id = ?`, id)
	return scanReview(row)
}

// UpdateReview persists the card blob and the denormalised scheduling
// columns after an apply.
func (q queries) UpdateReview(ctx context.Context, mode domain.Mode, r *domain.Review) error {
	t := tablesFor(mode)
	card, err := json.Marshal(r.Card)
	if err != nil {
		return errors.Wrapf(domain.ErrInvalid, "encode card: %v", err)
	}
	now := nowUTC()
	res, err := q.t.ExecContext(ctx, `
		UPDATE `+t.reviews+`
		SET fsrs_card_state = ?, due_date = ?, last_reviewed = ?,
			review_count = ?, updated_at = ?
		WHERE id = ?`,
		string(card), formatTime(r.Due), formatTimePtr(r.LastReviewed),
		r.ReviewCount, formatTime(now), r.ID)
	if err != nil {
		return wrapErr(err, "update review")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr(err, "update review: rows affected")
	}
	if n == 0 {
		return errors.Wrapf(domain.ErrNotFound, "review %d", r.ID)
	}
	r.UpdatedAt = now
	return nil
}

// ListDue returns reviews with due_date <= AsOf, ordered by ascending
// due date with review id as the stable tie break.
func (q queries) ListDue(ctx context.Context, mode domain.Mode, f DueFilter) ([]*domain.Review, error) {
	t := tablesFor(mode)
	asOf := f.AsOf
	if asOf.IsZero() {
		asOf = nowUTC()
	}
	query := `
		SELECT r.id, r.item_id, r.item_kind, r.fsrs_card_state, r.due_date,
			r.last_reviewed, r.review_count, r.created_at, r.updated_at
		FROM ` + t.reviews + ` r
		LEFT JOIN vocabulary v ON r.item_kind = 'vocab' AND r.item_id = v.id
		LEFT JOIN kanji k ON r.item_kind = 'kanji' AND r.item_id = k.id
		WHERE r.due_date <= ?`
	args := []any{formatTime(asOf)}
	if f.Kind != nil {
		query += " AND r.item_kind = ?"
		args = append(args, string(*f.Kind))
	}
	if f.Level != nil {
		query += " AND COALESCE(v.jlpt_level, k.jlpt_level) = ?"
		args = append(args, string(*f.Level))
	}
	query += " ORDER BY r.due_date ASC, r.id ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := q.t.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(err, "list due reviews")
	}
	defer rows.Close()

	var reviews []*domain.Review
	for rows.Next() {
		r, err := scanReviewRows(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, "iterate due reviews")
	}
	return reviews, nil
}

// CountReviews counts reviews in a mode, optionally filtered by kind
// and item level.
func (q queries) CountReviews(ctx context.Context, mode domain.Mode, f DueFilter) (int, error) {
	t := tablesFor(mode)
	query := `
		SELECT COUNT(*)
		FROM ` + t.reviews + ` r
		LEFT JOIN vocabulary v ON r.item_kind = 'vocab' AND r.item_id = v.id
		LEFT JOIN kanji k ON r.item_kind = 'kanji' AND r.item_id = k.id
		WHERE 1=1`
	var args []any
	if f.Kind != nil {
		query += " AND r.item_kind = ?"
		args = append(args, string(*f.Kind))
	}
	if f.Level != nil {
		query += " AND COALESCE(v.jlpt_level, k.jlpt_level) = ?"
		args = append(args, string(*f.Level))
	}
	var n int
	if err := q.t.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, wrapErr(err, "count reviews")
	}
	return n, nil
}

// AddFlashHistory appends one flashcard history row.
func (q queries) AddFlashHistory(ctx context.Context, h *domain.FlashHistory) (int64, error) {
	res, err := q.t.ExecContext(ctx, `
		INSERT INTO review_history (review_id, rating, duration_ms, reviewed_at)
		VALUES (?, ?, ?, ?)`,
		h.ReviewID, int(h.Rating), nullInt64(h.DurationMs), formatTime(h.ReviewedAt))
	if err != nil {
		return 0, wrapErr(err, "add review history")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrapErr(err, "add review history: last insert id")
	}
	h.ID = id
	return id, nil
}

// AddMCQHistory appends one MCQ history row.
func (q queries) AddMCQHistory(ctx context.Context, h *domain.MCQHistory) (int64, error) {
	correct := 0
	if h.IsCorrect {
		correct = 1
	}
	res, err := q.t.ExecContext(ctx, `
		INSERT INTO mcq_review_history (mcq_review_id, selected_option, is_correct, duration_ms, reviewed_at)
		VALUES (?, ?, ?, ?, ?)`,
		h.ReviewID, h.SelectedOption, correct, nullInt64(h.DurationMs), formatTime(h.ReviewedAt))
	if err != nil {
		return 0, wrapErr(err, "add mcq history")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrapErr(err, "add mcq history: last insert id")
	}
	h.ID = id
	return id, nil
}

// ListFlashHistory returns history rows for one review, oldest first.
func (q queries) ListFlashHistory(ctx context.Context, reviewID int64) ([]*domain.FlashHistory, error) {
	rows, err := q.t.QueryContext(ctx, `
		SELECT id, review_id, rating, duration_ms, reviewed_at
		FROM review_history WHERE review_id = ? ORDER BY id ASC`, reviewID)
	if err != nil {
		return nil, wrapErr(err, "list review history")
	}
	defer rows.Close()

	var hs []*domain.FlashHistory
	for rows.Next() {
		var (
			h          domain.FlashHistory
			rating     int
			duration   sql.NullInt64
			reviewedAt string
		)
		if err := rows.Scan(&h.ID, &h.ReviewID, &rating, &duration, &reviewedAt); err != nil {
			return nil, wrapErr(err, "scan review history")
		}
		h.Rating = srs.Rating(rating)
		h.DurationMs = int64Ptr(duration)
		if h.ReviewedAt, err = parseTime(reviewedAt); err != nil {
			return nil, errors.Wrapf(domain.ErrIntegrity, "history %d: %v", h.ID, err)
		}
		hs = append(hs, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, "iterate review history")
	}
	return hs, nil
}

// ListMCQHistory returns MCQ history rows for one review, oldest first.
func (q queries) ListMCQHistory(ctx context.Context, reviewID int64) ([]*domain.MCQHistory, error) {
	rows, err := q.t.QueryContext(ctx, `
		SELECT id, mcq_review_id, selected_option, is_correct, duration_ms, reviewed_at
		FROM mcq_review_history WHERE mcq_review_id = ? ORDER BY id ASC`, reviewID)
	if err != nil {
		return nil, wrapErr(err, "list mcq history")
	}
	defer rows.Close()

	var hs []*domain.MCQHistory
	for rows.Next() {
		var (
			h          domain.MCQHistory
			correct    int
			duration   sql.NullInt64
			reviewedAt string
		)
		if err := rows.Scan(&h.ID, &h.ReviewID, &h.SelectedOption, &correct, &duration, &reviewedAt); err != nil {
			return nil, wrapErr(err, "scan mcq history")
		}
		h.IsCorrect = correct == 1
		h.DurationMs = int64Ptr(duration)
		var err error
		if h.ReviewedAt, err = parseTime(reviewedAt); err != nil {
			return nil, errors.Wrapf(domain.ErrIntegrity, "mcq history %d: %v", h.ID, err)
		}
		hs = append(hs, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, "iterate mcq history")
	}
	return hs, nil
}

func scanReview(row *sql.Row) (*domain.Review, error) {
	var (
		r                    domain.Review
		kind, card, due      string
		lastReviewed         sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&r.ID, &r.ItemID, &kind, &card, &due, &lastReviewed,
		&r.ReviewCount, &createdAt, &updatedAt)
	if err != nil {
		return nil, wrapErr(err, "get review")
	}
	if err := fillReview(&r, kind, card, due, lastReviewed, createdAt, updatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func scanReviewRows(rows *sql.Rows) (*domain.Review, error) {
	var (
		r                    domain.Review
		kind, card, due      string
		lastReviewed         sql.NullString
		createdAt, updatedAt string
	)
	err := rows.Scan(&r.ID, &r.ItemID, &kind, &card, &due, &lastReviewed,
		&r.ReviewCount, &createdAt, &updatedAt)
	if err != nil {
		return nil, wrapErr(err, "scan review")
	}
	if err := fillReview(&r, kind, card, due, lastReviewed, createdAt, updatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func fillReview(r *domain.Review, kind, card, due string, lastReviewed sql.NullString, createdAt, updatedAt string) error {
	r.ItemKind = domain.ItemKind(kind)
	if err := json.Unmarshal([]byte(card), &r.Card); err != nil {
		return errors.Wrapf(domain.ErrIntegrity, "review %d card blob: %v", r.ID, err)
	}
	var err error
	if r.Due, err = parseTime(due); err != nil {
		return errors.Wrapf(domain.ErrIntegrity, "review %d: %v", r.ID, err)
	}
	if r.LastReviewed, err = parseTimePtr(lastReviewed); err != nil {
		return errors.Wrapf(domain.ErrIntegrity, "review %d: %v", r.ID, err)
	}
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return errors.Wrapf(domain.ErrIntegrity, "review %d: %v", r.ID, err)
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return errors.Wrapf(domain.ErrIntegrity, "review %d: %v", r.ID, err)
	}
	return nil
}

func nullInt64(n *int64) any {
	if n == nil {
		return nil
	}
	return *n
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
