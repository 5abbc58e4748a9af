package srs

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Rating is the user's response to a card review.
type Rating int

const (
	Again Rating = 1
	Hard  Rating = 2
	Good  Rating = 3
	Easy  Rating = 4
)

// Valid reports whether r is one of the four defined ratings.
func (r Rating) Valid() bool { return r >= Again && r <= Easy }

func (r Rating) String() string {
	switch r {
	case Again:
		return "again"
	case Hard:
		return "hard"
	case Good:
		return "good"
	case Easy:
		return "easy"
	}
	return fmt.Sprintf("rating(%d)", int(r))
}

// State is the scheduling phase of a card. The integer values are part
// of the persisted blob layout and must not change.
type State int

const (
	Learning   State = 1
	Review     State = 2
	Relearning State = 3
)

func (s State) String() string {
	switch s {
	case Learning:
		return "learning"
	case Review:
		return "review"
	case Relearning:
		return "relearning"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Card is the FSRS memory state of one study item in one mode. It is
// owned by its Review row and serialized verbatim into it; no component
// outside this package mutates its fields.
type Card struct {
	ID         int64
	State      State
	Step       *int // nil once the card graduates to Review
	Stability  *float64
	Difficulty *float64
	Due        time.Time
	LastReview *time.Time
}

var (
	cardIDMu   sync.Mutex
	lastCardID int64
)

// NewCard returns a fresh card in the Learning state, due immediately.
// The id is the creation instant in Unix milliseconds, moved past the
// last issued id so cards created in the same millisecond get distinct ids.
func NewCard(now time.Time) Card {
	cardIDMu.Lock()
	id := now.UnixMilli()
	if id <= lastCardID {
		id = lastCardID + 1
	}
	lastCardID = id
	cardIDMu.Unlock()
	step := 0
	return Card{
		ID:    id,
		State: Learning,
		Step:  &step,
		Due:   now.UTC(),
	}
}

// cardBlob is the wire layout of a serialized card. Field names and the
// integer state encoding follow the FSRS reference serialization.
type cardBlob struct {
	CardID     int64    `json:"card_id"`
	State      int      `json:"state"`
	Step       *int     `json:"step"`
	Stability  *float64 `json:"stability"`
	Difficulty *float64 `json:"difficulty"`
	Due        string   `json:"due"`
	LastReview *string  `json:"last_review"`
}

// MarshalJSON encodes the card in the reference blob layout.
func (c Card) MarshalJSON() ([]byte, error) {
	b := cardBlob{
		CardID:     c.ID,
		State:      int(c.State),
		Step:       c.Step,
		Stability:  c.Stability,
		Difficulty: c.Difficulty,
		Due:        c.Due.UTC().Format(time.RFC3339Nano),
	}
	if c.LastReview != nil {
		s := c.LastReview.UTC().Format(time.RFC3339Nano)
		b.LastReview = &s
	}
	return json.Marshal(b)
}

// UnmarshalJSON decodes a card blob. Round-trips with MarshalJSON.
func (c *Card) UnmarshalJSON(data []byte) error {
	var b cardBlob
	if err := json.Unmarshal(data, &b); err != nil {
		return err
	}
	due, err := time.Parse(time.RFC3339Nano, b.Due)
	if err != nil {
		return fmt.Errorf("card due: %w", err)
	}
	c.ID = b.CardID
	c.State = State(b.State)
	c.Step = b.Step
	c.Stability = b.Stability
	c.Difficulty = b.Difficulty
	c.Due = due.UTC()
	c.LastReview = nil
	if b.LastReview != nil {
		lr, err := time.Parse(time.RFC3339Nano, *b.LastReview)
		if err != nil {
			return fmt.Errorf("card last_review: %w", err)
		}
		lr = lr.UTC()
		c.LastReview = &lr
	}
	return nil
}

// ReviewLog records a single applied review.
type ReviewLog struct {
	CardID   int64
	Rating   Rating
	Reviewed time.Time
}
