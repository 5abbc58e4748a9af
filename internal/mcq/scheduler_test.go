package mcq

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tranvo/nihongo/internal/domain"
	"github.com/tranvo/nihongo/internal/review"
	"github.com/tranvo/nihongo/internal/srs"
	"github.com/tranvo/nihongo/internal/storage"
)

func testEngine() *srs.Scheduler {
	params := srs.DefaultParams()
	params.EnableFuzzing = false
	return srs.NewScheduler(params, rand.New(rand.NewSource(7)))
}

func testDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func addVocab(t *testing.T, db *storage.DB, word, reading string, level domain.Level, meanings ...string) int64 {
	t.Helper()
	if len(meanings) == 0 {
		meanings = []string{"meaning of " + word}
	}
	id, err := db.CreateVocab(context.Background(), &domain.Vocab{
		Word:      word,
		Reading:   reading,
		Meanings:  domain.Meanings{"en": meanings},
		JLPTLevel: level,
	})
	require.NoError(t, err)
	return id
}

func TestMCQIndependentOfFlash(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	itemID := addVocab(t, db, "単語", "たんご", domain.LevelN5)

	flash := review.NewScheduler(db, testEngine())
	flash.SetNow(func() time.Time { return now })
	s := NewScheduler(db, testEngine())
	s.SetNow(func() time.Time { return now })

	_, err := flash.Create(ctx, itemID, domain.KindVocab)
	require.NoError(t, err)
	mcqID, err := s.Create(ctx, itemID, domain.KindVocab)
	require.NoError(t, err)

	// Applying an MCQ answer moves only the MCQ review.
	_, err = s.Apply(ctx, mcqID, false, 1, nil)
	require.NoError(t, err)

	fr, err := flash.ByItem(ctx, itemID, domain.KindVocab)
	require.NoError(t, err)
	mr, err := s.ByItem(ctx, itemID, domain.KindVocab)
	require.NoError(t, err)

	assert.Zero(t, fr.ReviewCount)
	assert.Equal(t, 1, mr.ReviewCount)
}

func TestCorrectMapsToGood(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	itemID := addVocab(t, db, "単語", "たんご", domain.LevelN5)

	flash := review.NewScheduler(db, testEngine())
	flash.SetNow(func() time.Time { return now })
	s := NewScheduler(db, testEngine())
	s.SetNow(func() time.Time { return now })

	flashID, err := flash.Create(ctx, itemID, domain.KindVocab)
	require.NoError(t, err)
	mcqID, err := s.Create(ctx, itemID, domain.KindVocab)
	require.NoError(t, err)

	fr, err := flash.Apply(ctx, flashID, srs.Good, nil)
	require.NoError(t, err)
	mr, err := s.Apply(ctx, mcqID, true, 2, nil)
	require.NoError(t, err)

	// Identical FSRS outcome to a flashcard Good at the same instant.
	assert.Equal(t, fr.Card.State, mr.Card.State)
	assert.Equal(t, *fr.Card.Stability, *mr.Card.Stability)
	assert.Equal(t, *fr.Card.Difficulty, *mr.Card.Difficulty)
	assert.Equal(t, fr.Due, mr.Due)

	history, err := db.ListMCQHistory(ctx, mcqID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].IsCorrect)
	assert.Equal(t, 2, history[0].SelectedOption)
}

func TestIncorrectMapsToAgain(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	itemID := addVocab(t, db, "単語", "たんご", domain.LevelN5)
	s := NewScheduler(db, testEngine())
	s.SetNow(func() time.Time { return now })

	mcqID, err := s.Create(ctx, itemID, domain.KindVocab)
	require.NoError(t, err)

	r, err := s.Apply(ctx, mcqID, false, 0, nil)
	require.NoError(t, err)

	// Again keeps the card at the first learning step.
	assert.Equal(t, srs.Learning, r.Card.State)
	require.NotNil(t, r.Card.Step)
	assert.Equal(t, 0, *r.Card.Step)
	assert.Equal(t, now.Add(time.Minute), r.Due)

	history, err := db.ListMCQHistory(ctx, mcqID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.False(t, history[0].IsCorrect)
}

func TestApplyInvalidOption(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	itemID := addVocab(t, db, "単語", "たんご", domain.LevelN5)
	s := NewScheduler(db, testEngine())

	mcqID, err := s.Create(ctx, itemID, domain.KindVocab)
	require.NoError(t, err)

	for _, option := range []int{-1, 4} {
		_, err := s.Apply(ctx, mcqID, true, option, nil)
		assert.ErrorIs(t, err, domain.ErrInvalid)
	}
}

func TestCreateConflict(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	itemID := addVocab(t, db, "単語", "たんご", domain.LevelN5)
	s := NewScheduler(db, testEngine())

	_, err := s.Create(ctx, itemID, domain.KindVocab)
	require.NoError(t, err)
	_, err = s.Create(ctx, itemID, domain.KindVocab)
	assert.ErrorIs(t, err, domain.ErrConflict)
}
