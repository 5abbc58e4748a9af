// Package stats derives read-only study metrics from the review
// history: retention, mastery, streaks, accuracy, and selection bias.
// Everything is computed from indexed scans; history rows are never
// written here.
package stats

import (
	"context"
	"math"
	"time"

	"github.com/tranvo/nihongo/internal/domain"
	"github.com/tranvo/nihongo/internal/srs"
	"github.com/tranvo/nihongo/internal/storage"
)

// DateRange is an inclusive [Start, End] calendar-date filter. Nil
// bounds leave the corresponding side open.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// historyRange widens the date range to instants: the start day begins
// at midnight, the end day runs through its last nanosecond.
func (r DateRange) historyRange() storage.HistoryRange {
	var hr storage.HistoryRange
	if r.Start != nil {
		s := startOfDay(*r.Start)
		hr.Start = &s
	}
	if r.End != nil {
		e := startOfDay(*r.End).Add(24*time.Hour - time.Nanosecond)
		hr.End = &e
	}
	return hr
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Service answers statistics queries over the store.
type Service struct {
	db *storage.DB
}

// NewService wires a statistics service.
func NewService(db *storage.DB) *Service { return &Service{db: db} }

// VocabCountByLevel maps each JLPT level to its vocabulary count.
func (s *Service) VocabCountByLevel(ctx context.Context) (map[domain.Level]int, error) {
	return s.db.CountVocabByLevel(ctx)
}

// KanjiCountByLevel maps each JLPT level to its kanji count.
func (s *Service) KanjiCountByLevel(ctx context.Context) (map[domain.Level]int, error) {
	return s.db.CountKanjiByLevel(ctx)
}

// Mastered counts flashcard reviews of one kind whose stability has
// crossed the 21-day mastery threshold.
func (s *Service) Mastered(ctx context.Context, kind domain.ItemKind) (int, error) {
	return s.db.CountMastered(ctx, kind)
}

// RetentionRate is the percentage of filtered flashcard reviews rated
// Good or Easy. An empty history yields 0.
func (s *Service) RetentionRate(ctx context.Context, r DateRange) (float64, error) {
	counts, err := s.db.RatingCounts(ctx, r.historyRange())
	if err != nil {
		return 0, err
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		return 0, nil
	}
	retained := counts[srs.Good] + counts[srs.Easy]
	return round1(float64(retained) / float64(total) * 100), nil
}

// AvgReviewDurationMs is the mean of the non-null flashcard durations,
// 0 when none are recorded.
func (s *Service) AvgReviewDurationMs(ctx context.Context, r DateRange) (float64, error) {
	avg, ok, err := s.db.AvgFlashDurationMs(ctx, r.historyRange())
	if err != nil || !ok {
		return 0, err
	}
	return avg, nil
}

// DailyReviewCounts returns (date, count) pairs ascending by date. When
// both bounds are set, dates without reviews appear with a zero count.
func (s *Service) DailyReviewCounts(ctx context.Context, r DateRange) ([]storage.DailyCount, error) {
	counts, err := s.db.DailyReviewCounts(ctx, r.historyRange())
	if err != nil {
		return nil, err
	}
	if r.Start == nil || r.End == nil {
		return counts, nil
	}
	byDate := make(map[time.Time]int, len(counts))
	for _, c := range counts {
		byDate[c.Date] = c.Count
	}
	var filled []storage.DailyCount
	for d := startOfDay(*r.Start); !d.After(startOfDay(*r.End)); d = d.Add(24 * time.Hour) {
		filled = append(filled, storage.DailyCount{Date: d, Count: byDate[d]})
	}
	return filled, nil
}

// MostReviewed returns the top items by lifetime review count.
func (s *Service) MostReviewed(ctx context.Context, limit int, kind *domain.ItemKind) ([]storage.MostReviewedItem, error) {
	return s.db.MostReviewed(ctx, limit, kind)
}

// MCQAccuracyRate is the percentage of filtered MCQ answers that were
// correct, denominator-guarded to 0.
func (s *Service) MCQAccuracyRate(ctx context.Context, r DateRange, kind *domain.ItemKind, level *domain.Level) (float64, error) {
	t, err := s.db.MCQAccuracy(ctx, r.historyRange(), kind, level)
	if err != nil {
		return 0, err
	}
	if t.Total == 0 {
		return 0, nil
	}
	return round1(float64(t.Correct) / float64(t.Total) * 100), nil
}

// TypeStats is the per-kind MCQ breakdown.
type TypeStats struct {
	Total    int
	Correct  int
	Accuracy float64
}

// MCQStatsByType breaks MCQ performance down by item kind plus an
// overall roll-up.
func (s *Service) MCQStatsByType(ctx context.Context, r DateRange) (map[string]TypeStats, error) {
	hr := r.historyRange()
	out := make(map[string]TypeStats, 3)
	overall := storage.MCQTally{}
	for _, kind := range []domain.ItemKind{domain.KindVocab, domain.KindKanji} {
		k := kind
		t, err := s.db.MCQAccuracy(ctx, hr, &k, nil)
		if err != nil {
			return nil, err
		}
		out[string(kind)] = tallyStats(t)
		overall.Total += t.Total
		overall.Correct += t.Correct
	}
	out["overall"] = tallyStats(overall)
	return out, nil
}

// MCQOptionDistribution maps the option labels A-D to how often each
// position was selected, exposing positional bias.
func (s *Service) MCQOptionDistribution(ctx context.Context, r DateRange) (map[string]int, error) {
	counts, err := s.db.MCQOptionCounts(ctx, r.historyRange())
	if err != nil {
		return nil, err
	}
	labels := [4]string{"A", "B", "C", "D"}
	out := make(map[string]int, 4)
	for i, l := range labels {
		out[l] = counts[i]
	}
	return out, nil
}

// Streak reads the current study streak from the progress singleton.
func (s *Service) Streak(ctx context.Context) (int, error) {
	p, err := s.db.GetProgress(ctx, storage.DefaultUserID)
	if err != nil {
		return 0, err
	}
	return p.StreakDays, nil
}

func tallyStats(t storage.MCQTally) TypeStats {
	ts := TypeStats{Total: t.Total, Correct: t.Correct}
	if t.Total > 0 {
		ts.Accuracy = round1(float64(t.Correct) / float64(t.Total) * 100)
	}
	return ts
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
