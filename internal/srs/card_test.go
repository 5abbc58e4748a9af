package srs

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardRoundTrip(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("fresh card", func(t *testing.T) {
		card := NewCard(now)

		blob, err := json.Marshal(card)
		require.NoError(t, err)

		var decoded Card
		require.NoError(t, json.Unmarshal(blob, &decoded))
		assert.Equal(t, card, decoded)
	})

	t.Run("after reviews", func(t *testing.T) {
		scheduler := NewScheduler(DefaultParams(), rand.New(rand.NewSource(1)))
		card := NewCard(now)
		at := now
		for _, rating := range []Rating{Good, Good, Again, Hard, Easy} {
			var err error
			card, _, err = scheduler.ReviewCard(card, rating, at)
			require.NoError(t, err)
			at = card.Due
		}

		blob, err := json.Marshal(card)
		require.NoError(t, err)

		var decoded Card
		require.NoError(t, json.Unmarshal(blob, &decoded))
		assert.Equal(t, card, decoded)
	})
}

func TestCardBlobLayout(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	card := NewCard(now)

	blob, err := json.Marshal(card)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(blob, &raw))

	for _, key := range []string{"card_id", "state", "step", "stability", "difficulty", "due", "last_review"} {
		assert.Contains(t, raw, key)
	}
	assert.EqualValues(t, 1, raw["state"], "fresh cards serialize in Learning")
	assert.EqualValues(t, 0, raw["step"])
	assert.Nil(t, raw["stability"])
	assert.Nil(t, raw["difficulty"])
	assert.Nil(t, raw["last_review"])
}

func TestRatingValid(t *testing.T) {
	for r := Again; r <= Easy; r++ {
		assert.True(t, r.Valid())
	}
	assert.False(t, Rating(0).Valid())
	assert.False(t, Rating(5).Valid())
}
