package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressTouch(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2025, 1, d, 15, 30, 0, 0, time.UTC)
	}

	var p Progress

	p.Touch(day(1))
	assert.Equal(t, 1, p.StreakDays, "first review starts the streak")

	p.Touch(day(1))
	assert.Equal(t, 1, p.StreakDays, "same day does not double count")

	p.Touch(day(2))
	assert.Equal(t, 2, p.StreakDays)
	p.Touch(day(3))
	assert.Equal(t, 3, p.StreakDays, "consecutive days strictly increment")

	p.Touch(day(7))
	assert.Equal(t, 1, p.StreakDays, "a gap resets to 1")

	assert.Equal(t, time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC), *p.LastReviewDate,
		"last review date is stored at midnight UTC")
}

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"n5", "n4", "n3", "n2", "n1"} {
		level, err := ParseLevel(s)
		assert.NoError(t, err)
		assert.Equal(t, Level(s), level)
	}

	level, err := ParseLevel("none")
	assert.NoError(t, err)
	assert.Equal(t, LevelNone, level)

	_, err = ParseLevel("n6")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParseItemKind(t *testing.T) {
	kind, err := ParseItemKind("vocab")
	assert.NoError(t, err)
	assert.Equal(t, KindVocab, kind)

	_, err = ParseItemKind("grammar")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestMeaningsForLanguage(t *testing.T) {
	m := Meanings{"en": {"word"}, "vi": {"từ vựng"}}

	got, lang := m.ForLanguage("vi")
	assert.Equal(t, []string{"từ vựng"}, got)
	assert.Equal(t, "vi", lang)

	onlyEN := Meanings{"en": {"word"}}
	got, lang = onlyEN.ForLanguage("vi")
	assert.Equal(t, []string{"word"}, got)
	assert.Equal(t, "en", lang)
}
