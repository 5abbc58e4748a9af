package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tranvo/nihongo/internal/domain"
	"github.com/tranvo/nihongo/internal/srs"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testVocab(word, reading string, level domain.Level, meanings ...string) *domain.Vocab {
	if len(meanings) == 0 {
		meanings = []string{"meaning of " + word}
	}
	return &domain.Vocab{
		Word:      word,
		Reading:   reading,
		Meanings:  domain.Meanings{"en": meanings, "vi": {"nghĩa " + word}},
		JLPTLevel: level,
	}
}

func testKanji(character string, level domain.Level) *domain.Kanji {
	return &domain.Kanji{
		Character:   character,
		OnReadings:  []string{"ゴ"},
		KunReadings: []string{"かた.る"},
		Meanings:    domain.Meanings{"en": {"meaning of " + character}},
		JLPTLevel:   level,
	}
}

func TestMigrations(t *testing.T) {
	db := openTestDB(t)
	version, err := db.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, version)
}

func TestVocabCRUD(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	v := testVocab("単語", "たんご", domain.LevelN5, "word", "vocabulary")
	id, err := db.CreateVocab(ctx, v)
	require.NoError(t, err)
	require.Positive(t, id)

	got, err := db.GetVocab(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "単語", got.Word)
	assert.Equal(t, "たんご", got.Reading)
	assert.Equal(t, []string{"word", "vocabulary"}, got.Meanings["en"])
	assert.Equal(t, []string{"nghĩa 単語"}, got.Meanings["vi"], "non-ASCII survives the blob")
	assert.Equal(t, domain.LevelN5, got.JLPTLevel)

	got.Notes = "edited"
	require.NoError(t, db.UpdateVocab(ctx, got))
	again, err := db.GetVocab(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "edited", again.Notes)
	assert.False(t, again.UpdatedAt.Before(again.CreatedAt))

	_, err = db.GetVocab(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestKanjiUniqueSurface(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.CreateKanji(ctx, testKanji("語", domain.LevelN5))
	require.NoError(t, err)

	_, err = db.CreateKanji(ctx, testKanji("語", domain.LevelN4))
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestListItemsFilters(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.CreateVocab(ctx, testVocab("単語", "たんご", domain.LevelN5, "word"))
	require.NoError(t, err)
	_, err = db.CreateVocab(ctx, testVocab("楽しい", "たのしい", domain.LevelN5, "fun"))
	require.NoError(t, err)
	_, err = db.CreateVocab(ctx, testVocab("勉強", "べんきょう", domain.LevelN4, "study"))
	require.NoError(t, err)

	t.Run("by level", func(t *testing.T) {
		level := domain.LevelN5
		items, err := db.ListItems(ctx, domain.KindVocab, ItemFilter{Level: &level})
		require.NoError(t, err)
		assert.Len(t, items, 2)
	})

	t.Run("by reading prefix", func(t *testing.T) {
		items, err := db.ListItems(ctx, domain.KindVocab, ItemFilter{ReadingPrefix: "たん"})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "単語 (たんご)", items[0].Display())
	})

	t.Run("by meaning substring", func(t *testing.T) {
		items, err := db.ListItems(ctx, domain.KindVocab, ItemFilter{MeaningSubstring: "stud"})
		require.NoError(t, err)
		assert.Len(t, items, 1)
	})

	t.Run("conjunctive", func(t *testing.T) {
		level := domain.LevelN4
		items, err := db.ListItems(ctx, domain.KindVocab, ItemFilter{
			Level:            &level,
			MeaningSubstring: "word",
		})
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("exclude and limit", func(t *testing.T) {
		all, err := db.ListItems(ctx, domain.KindVocab, ItemFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)

		items, err := db.ListItems(ctx, domain.KindVocab, ItemFilter{
			ExcludeIDs: []int64{all[0].ItemID()},
			Limit:      1,
		})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.NotEqual(t, all[0].ItemID(), items[0].ItemID())
	})
}

func TestKanjiCatalogFilters(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	water := testKanji("海", domain.LevelN4)
	water.Radical = "氵"
	water.StrokeCount = 9
	_, err := db.CreateKanji(ctx, water)
	require.NoError(t, err)

	lake := testKanji("湖", domain.LevelN3)
	lake.Radical = "氵"
	lake.StrokeCount = 12
	_, err = db.CreateKanji(ctx, lake)
	require.NoError(t, err)

	t.Run("by radical", func(t *testing.T) {
		items, err := db.ListItems(ctx, domain.KindKanji, ItemFilter{Radical: "氵"})
		require.NoError(t, err)
		assert.Len(t, items, 2)
	})

	t.Run("by stroke range", func(t *testing.T) {
		items, err := db.ListItems(ctx, domain.KindKanji, ItemFilter{StrokeMin: 10, StrokeMax: 14})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "湖", items[0].Display())
	})

	t.Run("by on-reading", func(t *testing.T) {
		items, err := db.ListItems(ctx, domain.KindKanji, ItemFilter{OnReading: "ゴ"})
		require.NoError(t, err)
		assert.Len(t, items, 2)
	})
}

func createReviewAt(t *testing.T, db *DB, mode domain.Mode, itemID int64, kind domain.ItemKind, due time.Time) int64 {
	t.Helper()
	card := srs.NewCard(due)
	id, err := db.CreateReview(context.Background(), mode, &domain.Review{
		ItemID:   itemID,
		ItemKind: kind,
		Card:     card,
		Due:      due,
	})
	require.NoError(t, err)
	return id
}

func TestReviewUniquePerItemAndMode(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	id, err := db.CreateVocab(ctx, testVocab("単語", "たんご", domain.LevelN5))
	require.NoError(t, err)

	createReviewAt(t, db, domain.ModeFlash, id, domain.KindVocab, now)

	// A second flash review for the pair conflicts...
	_, err = db.CreateReview(ctx, domain.ModeFlash, &domain.Review{
		ItemID: id, ItemKind: domain.KindVocab, Card: srs.NewCard(now), Due: now,
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	// ...but the MCQ mode is independent.
	createReviewAt(t, db, domain.ModeMCQ, id, domain.KindVocab, now)

	flash, err := db.GetReview(ctx, domain.ModeFlash, id, domain.KindVocab)
	require.NoError(t, err)
	mcqReview, err := db.GetReview(ctx, domain.ModeMCQ, id, domain.KindVocab)
	require.NoError(t, err)
	assert.NotEqual(t, flash.Card.ID, mcqReview.Card.ID)
}

func TestListDueOrderingAndFilters(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	var n5IDs []int64
	for i, w := range []struct{ word, reading string }{
		{"一", "いち"}, {"二", "に"}, {"三", "さん"},
	} {
		id, err := db.CreateVocab(ctx, testVocab(w.word, w.reading, domain.LevelN5))
		require.NoError(t, err)
		createReviewAt(t, db, domain.ModeFlash, id, domain.KindVocab, now.Add(-time.Duration(3-i)*time.Hour))
		n5IDs = append(n5IDs, id)
	}
	for _, w := range []struct{ word, reading string }{
		{"四", "よん"}, {"五", "ご"},
	} {
		id, err := db.CreateVocab(ctx, testVocab(w.word, w.reading, domain.LevelN4))
		require.NoError(t, err)
		createReviewAt(t, db, domain.ModeFlash, id, domain.KindVocab, now.Add(-time.Minute))
	}

	t.Run("level filter returns exactly the matching reviews", func(t *testing.T) {
		level := domain.LevelN5
		due, err := db.ListDue(ctx, domain.ModeFlash, DueFilter{Level: &level, AsOf: now})
		require.NoError(t, err)
		require.Len(t, due, 3)
		for i := 1; i < len(due); i++ {
			assert.False(t, due[i].Due.Before(due[i-1].Due), "ascending due order")
		}
		gotItems := []int64{due[0].ItemID, due[1].ItemID, due[2].ItemID}
		assert.ElementsMatch(t, n5IDs, gotItems)
	})

	t.Run("future reviews are excluded", func(t *testing.T) {
		due, err := db.ListDue(ctx, domain.ModeFlash, DueFilter{AsOf: now.Add(-2 * time.Hour)})
		require.NoError(t, err)
		assert.Len(t, due, 2, "only the two oldest are due that early")
	})

	t.Run("limit truncates after filtering", func(t *testing.T) {
		due, err := db.ListDue(ctx, domain.ModeFlash, DueFilter{Limit: 2, AsOf: now})
		require.NoError(t, err)
		assert.Len(t, due, 2)
	})

	t.Run("count", func(t *testing.T) {
		level := domain.LevelN4
		n, err := db.CountReviews(ctx, domain.ModeFlash, DueFilter{Level: &level})
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})
}

func TestDueTieBreakByID(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	var reviewIDs []int64
	for _, w := range []struct{ word, reading string }{
		{"北", "きた"}, {"南", "みなみ"}, {"東", "ひがし"},
	} {
		id, err := db.CreateVocab(ctx, testVocab(w.word, w.reading, domain.LevelN5))
		require.NoError(t, err)
		reviewIDs = append(reviewIDs, createReviewAt(t, db, domain.ModeFlash, id, domain.KindVocab, now))
	}

	due, err := db.ListDue(ctx, domain.ModeFlash, DueFilter{AsOf: now})
	require.NoError(t, err)
	require.Len(t, due, 3)
	for i, r := range due {
		assert.Equal(t, reviewIDs[i], r.ID, "equal due dates order by review id")
	}
}

func TestTransactionRollback(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	id, err := db.CreateVocab(ctx, testVocab("単語", "たんご", domain.LevelN5))
	require.NoError(t, err)

	boom := assert.AnError
	err = db.WithTx(ctx, func(tx *Tx) error {
		now := time.Now().UTC()
		if _, err := tx.CreateReview(ctx, domain.ModeFlash, &domain.Review{
			ItemID: id, ItemKind: domain.KindVocab, Card: srs.NewCard(now), Due: now,
		}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = db.GetReview(ctx, domain.ModeFlash, id, domain.KindVocab)
	assert.ErrorIs(t, err, domain.ErrNotFound, "insert rolled back")
}

func TestHistoryRequiresReview(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	// A history row without its review breaks the foreign key.
	_, err := db.AddFlashHistory(ctx, &domain.FlashHistory{
		ReviewID: 12345, Rating: srs.Good, ReviewedAt: now,
	})
	assert.ErrorIs(t, err, domain.ErrIntegrity)
}

func TestProgressSingleton(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	p, err := db.GetProgress(ctx, DefaultUserID)
	require.NoError(t, err)
	assert.Equal(t, domain.LevelN5, p.CurrentLevel)
	assert.Zero(t, p.StreakDays)

	p.StreakDays = 3
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p.LastReviewDate = &day
	p.TargetLevel = domain.LevelN2
	require.NoError(t, db.SaveProgress(ctx, p))

	again, err := db.GetProgress(ctx, DefaultUserID)
	require.NoError(t, err)
	assert.Equal(t, 3, again.StreakDays)
	assert.Equal(t, domain.LevelN2, again.TargetLevel)
	require.NotNil(t, again.LastReviewDate)
	assert.Equal(t, day, *again.LastReviewDate)
	assert.Equal(t, p.ID, again.ID, "still one row")
}

func TestGrammarPoints(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	g := &domain.GrammarPoint{
		Title:       "は (wa) particle",
		Explanation: "topic marker",
		JLPTLevel:   domain.LevelN5,
		Examples: []domain.GrammarExample{
			{JP: "私は学生です", EN: "I am a student"},
		},
	}
	id, err := db.CreateGrammarPoint(ctx, g)
	require.NoError(t, err)

	got, err := db.GetGrammarPoint(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "は (wa) particle", got.Title)
	require.Len(t, got.Examples, 1)
	assert.Equal(t, "私は学生です", got.Examples[0].JP)

	list, err := db.ListGrammarPoints(ctx, nil, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
