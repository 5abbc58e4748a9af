package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/tranvo/nihongo/internal/domain"
	"github.com/tranvo/nihongo/internal/srs"
)

// HistoryRange bounds history scans on reviewed_at; nil ends are open.
type HistoryRange struct {
	Start *time.Time
	End   *time.Time
}

func (r HistoryRange) clause(column string) (string, []any) {
	var sqlFrag string
	var args []any
	if r.Start != nil {
		sqlFrag += " AND " + column + " >= ?"
		args = append(args, formatTime(*r.Start))
	}
	if r.End != nil {
		sqlFrag += " AND " + column + " <= ?"
		args = append(args, formatTime(*r.End))
	}
	return sqlFrag, args
}

// masteryStabilityDays is the stability threshold, in days, at or above
// which a review counts as mastered.
const masteryStabilityDays = 21.0

// CountMastered counts flashcard reviews of one kind whose card
// stability has reached the mastery threshold.
func (q queries) CountMastered(ctx context.Context, kind domain.ItemKind) (int, error) {
	var n int
	err := q.t.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM reviews
		WHERE item_kind = ?
		AND json_extract(fsrs_card_state, '$.stability') >= ?`,
		string(kind), masteryStabilityDays).Scan(&n)
	if err != nil {
		return 0, wrapErr(err, "count mastered")
	}
	return n, nil
}

// RatingCounts tallies flashcard history rows by rating.
func (q queries) RatingCounts(ctx context.Context, r HistoryRange) (map[srs.Rating]int, error) {
	frag, args := r.clause("reviewed_at")
	rows, err := q.t.QueryContext(ctx, `
		SELECT rating, COUNT(*) FROM review_history
		WHERE 1=1`+frag+` GROUP BY rating`, args...)
	if err != nil {
		return nil, wrapErr(err, "rating counts")
	}
	defer rows.Close()

	counts := map[srs.Rating]int{srs.Again: 0, srs.Hard: 0, srs.Good: 0, srs.Easy: 0}
	for rows.Next() {
		var rating, n int
		if err := rows.Scan(&rating, &n); err != nil {
			return nil, wrapErr(err, "scan rating count")
		}
		counts[srs.Rating(rating)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, "iterate rating counts")
	}
	return counts, nil
}

// AvgFlashDurationMs averages the non-null flashcard durations.
// Returns 0 with ok=false when no timed rows match.
func (q queries) AvgFlashDurationMs(ctx context.Context, r HistoryRange) (float64, bool, error) {
	frag, args := r.clause("reviewed_at")
	var avg sql.NullFloat64
	err := q.t.QueryRowContext(ctx, `
		SELECT AVG(duration_ms) FROM review_history
		WHERE duration_ms IS NOT NULL`+frag, args...).Scan(&avg)
	if err != nil {
		return 0, false, wrapErr(err, "average review duration")
	}
	return avg.Float64, avg.Valid, nil
}

// DailyCount is the number of reviews applied on one calendar date.
type DailyCount struct {
	Date  time.Time
	Count int
}

// DailyReviewCounts groups flashcard history by UTC date, ascending.
func (q queries) DailyReviewCounts(ctx context.Context, r HistoryRange) ([]DailyCount, error) {
	frag, args := r.clause("reviewed_at")
	rows, err := q.t.QueryContext(ctx, `
		SELECT substr(reviewed_at, 1, 10), COUNT(*) FROM review_history
		WHERE 1=1`+frag+`
		GROUP BY substr(reviewed_at, 1, 10) ORDER BY 1 ASC`, args...)
	if err != nil {
		return nil, wrapErr(err, "daily review counts")
	}
	defer rows.Close()

	var counts []DailyCount
	for rows.Next() {
		var day string
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, wrapErr(err, "scan daily count")
		}
		d, err := time.ParseInLocation(dateLayout, day, time.UTC)
		if err != nil {
			return nil, errors.Wrapf(domain.ErrIntegrity, "daily count date: %v", err)
		}
		counts = append(counts, DailyCount{Date: d, Count: n})
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, "iterate daily counts")
	}
	return counts, nil
}

// MostReviewedItem is one row of the lifetime review leaderboard.
type MostReviewedItem struct {
	ItemID      int64
	ItemKind    domain.ItemKind
	Text        string
	ReviewCount int
}

// MostReviewed returns the top flashcard reviews by lifetime count,
// ties broken by ascending review id.
func (q queries) MostReviewed(ctx context.Context, limit int, kind *domain.ItemKind) ([]MostReviewedItem, error) {
	query := `
		SELECT item_id, item_kind, text, review_count FROM (
			SELECT r.id AS rid, r.item_id, r.item_kind, v.word AS text, r.review_count
			FROM reviews r JOIN vocabulary v ON r.item_id = v.id
			WHERE r.item_kind = 'vocab'
			UNION ALL
			SELECT r.id AS rid, r.item_id, r.item_kind, k.character AS text, r.review_count
			FROM reviews r JOIN kanji k ON r.item_id = k.id
			WHERE r.item_kind = 'kanji'
		)`
	var args []any
	if kind != nil {
		query += " WHERE item_kind = ?"
		args = append(args, string(*kind))
	}
	query += " ORDER BY review_count DESC, rid ASC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := q.t.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(err, "most reviewed")
	}
	defer rows.Close()

	var items []MostReviewedItem
	for rows.Next() {
		var it MostReviewedItem
		var kindStr string
		if err := rows.Scan(&it.ItemID, &kindStr, &it.Text, &it.ReviewCount); err != nil {
			return nil, wrapErr(err, "scan most reviewed")
		}
		it.ItemKind = domain.ItemKind(kindStr)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, "iterate most reviewed")
	}
	return items, nil
}

// MCQTally is a correct/total pair from MCQ history.
type MCQTally struct {
	Total   int
	Correct int
}

// MCQAccuracy tallies MCQ history rows, optionally filtered by item
// kind and JLPT level.
func (q queries) MCQAccuracy(ctx context.Context, r HistoryRange, kind *domain.ItemKind, level *domain.Level) (MCQTally, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(h.is_correct), 0)
		FROM mcq_review_history h
		JOIN mcq_reviews mr ON h.mcq_review_id = mr.id
		LEFT JOIN vocabulary v ON mr.item_kind = 'vocab' AND mr.item_id = v.id
		LEFT JOIN kanji k ON mr.item_kind = 'kanji' AND mr.item_id = k.id
		WHERE 1=1`
	frag, args := r.clause("h.reviewed_at")
	query += frag
	if kind != nil {
		query += " AND mr.item_kind = ?"
		args = append(args, string(*kind))
	}
	if level != nil {
		query += " AND COALESCE(v.jlpt_level, k.jlpt_level) = ?"
		args = append(args, string(*level))
	}
	var t MCQTally
	if err := q.t.QueryRowContext(ctx, query, args...).Scan(&t.Total, &t.Correct); err != nil {
		return MCQTally{}, wrapErr(err, "mcq accuracy")
	}
	return t, nil
}

// MCQOptionCounts tallies how often each option index (0-3) was
// selected across MCQ history.
func (q queries) MCQOptionCounts(ctx context.Context, r HistoryRange) (map[int]int, error) {
	frag, args := r.clause("reviewed_at")
	rows, err := q.t.QueryContext(ctx, `
		SELECT selected_option, COUNT(*) FROM mcq_review_history
		WHERE 1=1`+frag+` GROUP BY selected_option`, args...)
	if err != nil {
		return nil, wrapErr(err, "mcq option counts")
	}
	defer rows.Close()

	counts := map[int]int{0: 0, 1: 0, 2: 0, 3: 0}
	for rows.Next() {
		var option, n int
		if err := rows.Scan(&option, &n); err != nil {
			return nil, wrapErr(err, "scan option count")
		}
		counts[option] = n
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, "iterate option counts")
	}
	return counts, nil
}

// CountMCQHistory tallies MCQ history rows matching the range.
func (q queries) CountMCQHistory(ctx context.Context, r HistoryRange) (int, error) {
	frag, args := r.clause("reviewed_at")
	var n int
	err := q.t.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM mcq_review_history WHERE 1=1`+frag, args...).Scan(&n)
	if err != nil {
		return 0, wrapErr(err, "count mcq history")
	}
	return n, nil
}
