package srs

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// defaultWeights is the FSRS-6 default parameter set. w[19] and w[20]
// drive the same-day stability exponent and the forgetting-curve decay.
var defaultWeights = [21]float64{
	0.2172, 1.1771, 3.2602, 16.1507, 7.0114, 0.57, 2.0966, 0.0069,
	1.5261, 0.112, 1.0178, 1.849, 0.1133, 0.3127, 2.2934, 0.2191,
	3.0004, 0.7536, 0.3332, 0.1437, 0.2,
}

const (
	stabilityMin  = 0.001
	difficultyMin = 1.0
	difficultyMax = 10.0
)

// fuzzRange widens the interval jitter window as intervals grow.
type fuzzRange struct {
	start, end, factor float64
}

var fuzzRanges = []fuzzRange{
	{2.5, 7.0, 0.15},
	{7.0, 20.0, 0.1},
	{20.0, math.Inf(1), 0.05},
}

// Params configures a Scheduler.
type Params struct {
	// DesiredRetention is the target recall probability at the next
	// review, in (0, 1].
	DesiredRetention float64
	// LearningSteps are the relative intervals of the initial Learning
	// phase.
	LearningSteps []time.Duration
	// RelearningSteps are the intervals after a lapse.
	RelearningSteps []time.Duration
	// MaximumInterval caps scheduled intervals, in days.
	MaximumInterval int
	// EnableFuzzing jitters Review-state intervals to spread load.
	EnableFuzzing bool
}

// DefaultParams mirrors the reference scheduler defaults.
func DefaultParams() Params {
	return Params{
		DesiredRetention: 0.9,
		LearningSteps:    []time.Duration{time.Minute, 10 * time.Minute},
		RelearningSteps:  []time.Duration{10 * time.Minute},
		MaximumInterval:  36500,
		EnableFuzzing:    true,
	}
}

// Scheduler is a pure FSRS-6 state machine over (Card, Rating, now).
// It is deterministic modulo fuzzing; the randomness source is injected
// so tests can seed it.
type Scheduler struct {
	params Params
	w      [21]float64
	decay  float64
	factor float64
	rng    *rand.Rand
}

// NewScheduler builds a scheduler. A nil rng falls back to a
// time-seeded source; tests that exercise fuzzing must pass their own.
func NewScheduler(params Params, rng *rand.Rand) *Scheduler {
	if params.DesiredRetention <= 0 || params.DesiredRetention > 1 {
		params.DesiredRetention = 0.9
	}
	if params.MaximumInterval <= 0 {
		params.MaximumInterval = 36500
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	decay := -defaultWeights[20]
	return &Scheduler{
		params: params,
		w:      defaultWeights,
		decay:  decay,
		factor: math.Pow(0.9, 1/decay) - 1,
		rng:    rng,
	}
}

// ReviewCard applies one rating to a card at the given instant and
// returns the successor card plus a log entry. The input card is not
// mutated.
func (s *Scheduler) ReviewCard(card Card, rating Rating, now time.Time) (Card, ReviewLog, error) {
	if !rating.Valid() {
		return Card{}, ReviewLog{}, fmt.Errorf("rating must be 1-4, got %d", int(rating))
	}
	now = now.UTC()
	next := card

	s.updateMemoryState(&next, rating, now)

	var interval time.Duration
	switch card.State {
	case Learning:
		interval = s.stepInterval(&next, rating, s.params.LearningSteps)
	case Relearning:
		interval = s.stepInterval(&next, rating, s.params.RelearningSteps)
	case Review:
		if rating == Again && len(s.params.RelearningSteps) > 0 {
			step := 0
			next.State = Relearning
			next.Step = &step
			interval = s.params.RelearningSteps[0]
		} else {
			interval = s.dayInterval(*next.Stability)
		}
	default:
		return Card{}, ReviewLog{}, fmt.Errorf("unknown card state %d", int(card.State))
	}

	if s.params.EnableFuzzing && next.State == Review {
		interval = s.fuzz(interval)
	}

	next.Due = now.Add(interval)
	lr := now
	next.LastReview = &lr

	return next, ReviewLog{CardID: card.ID, Rating: rating, Reviewed: now}, nil
}

// updateMemoryState recomputes stability and difficulty in place.
func (s *Scheduler) updateMemoryState(card *Card, rating Rating, now time.Time) {
	switch {
	case card.Stability == nil || card.Difficulty == nil:
		st := s.initialStability(rating)
		d := s.initialDifficulty(rating)
		card.Stability = &st
		card.Difficulty = &d
	case card.LastReview != nil && daysBetween(*card.LastReview, now) < 1:
		st := s.shortTermStability(*card.Stability, rating)
		d := s.nextDifficulty(*card.Difficulty, rating)
		card.Stability = &st
		card.Difficulty = &d
	default:
		r := s.retrievability(*card, now)
		var st float64
		if rating == Again {
			st = s.nextForgetStability(*card.Difficulty, *card.Stability, r)
		} else {
			st = s.nextRecallStability(*card.Difficulty, *card.Stability, r, rating)
		}
		d := s.nextDifficulty(*card.Difficulty, rating)
		card.Stability = &st
		card.Difficulty = &d
	}
}

// stepInterval walks the Learning/Relearning step table and decides
// whether the card graduates to Review.
func (s *Scheduler) stepInterval(card *Card, rating Rating, steps []time.Duration) time.Duration {
	graduate := func() time.Duration {
		card.State = Review
		card.Step = nil
		return s.dayInterval(*card.Stability)
	}

	step := 0
	if card.Step != nil {
		step = *card.Step
	}
	// A shrunk step table (config change) graduates the card on any
	// passing rating rather than indexing out of range.
	if len(steps) == 0 || (step >= len(steps) && rating != Again) {
		return graduate()
	}

	switch rating {
	case Again:
		zero := 0
		card.Step = &zero
		return steps[0]
	case Hard:
		if step == 0 && len(steps) == 1 {
			return steps[0] + steps[0]/2
		}
		if step == 0 && len(steps) >= 2 {
			return (steps[0] + steps[1]) / 2
		}
		return steps[step]
	case Easy:
		return graduate()
	default: // Good
		if step+1 >= len(steps) {
			return graduate()
		}
		nextStep := step + 1
		card.Step = &nextStep
		return steps[nextStep]
	}
}

func (s *Scheduler) initialStability(rating Rating) float64 {
	return math.Max(s.w[int(rating)-1], stabilityMin)
}

func (s *Scheduler) initialDifficulty(rating Rating) float64 {
	d := s.w[4] - math.Exp(s.w[5]*float64(int(rating)-1)) + 1
	return clamp(d, difficultyMin, difficultyMax)
}

// retrievability is the modelled recall probability at now.
func (s *Scheduler) retrievability(card Card, now time.Time) float64 {
	if card.LastReview == nil || card.Stability == nil {
		return 0
	}
	elapsed := math.Max(0, daysBetween(*card.LastReview, now))
	return math.Pow(1+s.factor*elapsed / *card.Stability, s.decay)
}

func (s *Scheduler) nextDifficulty(d float64, rating Rating) float64 {
	delta := -s.w[6] * float64(int(rating)-3)
	damped := d + delta*(difficultyMax-d)/9
	reverted := s.w[7]*s.initialDifficulty(Easy) + (1-s.w[7])*damped
	return clamp(reverted, difficultyMin, difficultyMax)
}

func (s *Scheduler) nextRecallStability(d, st, r float64, rating Rating) float64 {
	hardPenalty := 1.0
	if rating == Hard {
		hardPenalty = s.w[15]
	}
	easyBonus := 1.0
	if rating == Easy {
		easyBonus = s.w[16]
	}
	next := st * (1 +
		math.Exp(s.w[8])*
			(11-d)*
			math.Pow(st, -s.w[9])*
			(math.Exp(s.w[10]*(1-r))-1)*
			hardPenalty*
			easyBonus)
	return math.Max(next, stabilityMin)
}

func (s *Scheduler) nextForgetStability(d, st, r float64) float64 {
	longTerm := s.w[11] *
		math.Pow(d, -s.w[12]) *
		(math.Pow(st+1, s.w[13]) - 1) *
		math.Exp(s.w[14]*(1-r))
	shortTerm := st / math.Exp(s.w[17]*s.w[18])
	return math.Max(math.Min(longTerm, shortTerm), stabilityMin)
}

// shortTermStability handles same-day repeats, where the forgetting
// curve has no elapsed time to work with.
func (s *Scheduler) shortTermStability(st float64, rating Rating) float64 {
	increase := math.Exp(s.w[17]*(float64(int(rating))-3+s.w[18])) * math.Pow(st, -s.w[19])
	if rating == Good || rating == Easy {
		increase = math.Max(increase, 1)
	}
	return math.Max(st*increase, stabilityMin)
}

// dayInterval converts stability into a whole-day interval hitting the
// desired retention, clamped to [1, MaximumInterval].
func (s *Scheduler) dayInterval(stability float64) time.Duration {
	raw := stability / s.factor * (math.Pow(s.params.DesiredRetention, 1/s.decay) - 1)
	days := int(math.Round(raw))
	if days < 1 {
		days = 1
	}
	if days > s.params.MaximumInterval {
		days = s.params.MaximumInterval
	}
	return time.Duration(days) * 24 * time.Hour
}

// fuzz jitters a day-scale interval inside the reference fuzz windows.
// Intervals under 2.5 days pass through unchanged.
func (s *Scheduler) fuzz(interval time.Duration) time.Duration {
	days := interval.Hours() / 24
	if days < 2.5 {
		return interval
	}
	delta := 1.0
	for _, fr := range fuzzRanges {
		delta += fr.factor * math.Max(math.Min(days, fr.end)-fr.start, 0)
	}
	minIvl := math.Round(days - delta)
	maxIvl := math.Round(days + delta)
	minIvl = math.Max(2, minIvl)
	maxIvl = math.Min(maxIvl, float64(s.params.MaximumInterval))
	minIvl = math.Min(minIvl, maxIvl)

	fuzzed := math.Round(minIvl + s.rng.Float64()*(maxIvl-minIvl))
	fuzzed = math.Min(fuzzed, float64(s.params.MaximumInterval))
	return time.Duration(fuzzed) * 24 * time.Hour
}

func daysBetween(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
