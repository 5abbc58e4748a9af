package mcq

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tranvo/nihongo/internal/domain"
	"github.com/tranvo/nihongo/internal/storage"
)

func seedCatalog(t *testing.T, db *storage.DB) int64 {
	t.Helper()
	subject := addVocab(t, db, "単語", "たんご", domain.LevelN5, "word")
	addVocab(t, db, "勉強", "べんきょう", domain.LevelN5, "study")
	addVocab(t, db, "学校", "がっこう", domain.LevelN5, "school")
	addVocab(t, db, "先生", "せんせい", domain.LevelN5, "teacher")
	addVocab(t, db, "時間", "じかん", domain.LevelN4, "time")
	return subject
}

func TestGenerateWordToMeaning(t *testing.T) {
	db := testDB(t)
	subject := seedCatalog(t, db)
	g := NewGenerator(db, rand.New(rand.NewSource(11)))

	q, err := g.Generate(context.Background(), subject, domain.KindVocab, WordToMeaning, "en")
	require.NoError(t, err)

	assert.Equal(t, subject, q.ItemID)
	assert.Equal(t, WordToMeaning, q.Type)
	assert.Contains(t, q.Prompt, "単語")
	assert.Contains(t, q.Prompt, "たんご")
	assert.Equal(t, "word", q.Options[q.CorrectIndex])

	seen := map[string]bool{}
	for _, opt := range q.Options {
		assert.NotEmpty(t, opt)
		assert.False(t, seen[opt], "options are pairwise distinct")
		seen[opt] = true
	}
	matches := 0
	for _, opt := range q.Options {
		if opt == "word" {
			matches++
		}
	}
	assert.Equal(t, 1, matches, "exactly one option is the correct meaning")
}

func TestGenerateMeaningToWord(t *testing.T) {
	db := testDB(t)
	subject := seedCatalog(t, db)
	g := NewGenerator(db, rand.New(rand.NewSource(11)))

	q, err := g.Generate(context.Background(), subject, domain.KindVocab, MeaningToWord, "en")
	require.NoError(t, err)

	assert.Equal(t, MeaningToWord, q.Type)
	assert.Contains(t, q.Prompt, "word")
	assert.Equal(t, "単語 (たんご)", q.Options[q.CorrectIndex])
}

func TestGenerateMixedResolves(t *testing.T) {
	db := testDB(t)
	subject := seedCatalog(t, db)
	g := NewGenerator(db, rand.New(rand.NewSource(3)))

	types := map[QuestionType]int{}
	for i := 0; i < 50; i++ {
		q, err := g.Generate(context.Background(), subject, domain.KindVocab, Mixed, "en")
		require.NoError(t, err)
		require.NotEqual(t, Mixed, q.Type, "mixed always resolves")
		types[q.Type]++
	}
	assert.Positive(t, types[WordToMeaning])
	assert.Positive(t, types[MeaningToWord])
}

func TestGenerateShallowPool(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	// Exactly four items: subject plus three distractor sources.
	subject := addVocab(t, db, "単語", "たんご", domain.LevelN5, "word")
	addVocab(t, db, "勉強", "べんきょう", domain.LevelN4, "study")
	addVocab(t, db, "学校", "がっこう", domain.LevelN3, "school")
	addVocab(t, db, "先生", "せんせい", domain.LevelN2, "teacher")

	g := NewGenerator(db, rand.New(rand.NewSource(5)))
	q, err := g.Generate(ctx, subject, domain.KindVocab, WordToMeaning, "en")
	require.NoError(t, err)
	assert.Equal(t, "word", q.Options[q.CorrectIndex])
	assert.ElementsMatch(t, []string{"word", "study", "school", "teacher"}, q.Options[:])
}

func TestGenerateUnavailable(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	g := NewGenerator(db, rand.New(rand.NewSource(5)))

	t.Run("missing subject", func(t *testing.T) {
		_, err := g.Generate(ctx, 999, domain.KindVocab, WordToMeaning, "en")
		assert.ErrorIs(t, err, domain.ErrUnavailable)
	})

	t.Run("two-item catalog", func(t *testing.T) {
		subject := addVocab(t, db, "単語", "たんご", domain.LevelN5, "word")
		addVocab(t, db, "勉強", "べんきょう", domain.LevelN5, "study")

		_, err := g.Generate(ctx, subject, domain.KindVocab, WordToMeaning, "en")
		assert.ErrorIs(t, err, domain.ErrUnavailable)
	})
}

func TestGenerateInvalidArguments(t *testing.T) {
	db := testDB(t)
	subject := seedCatalog(t, db)
	g := NewGenerator(db, rand.New(rand.NewSource(5)))

	_, err := g.Generate(context.Background(), subject, domain.KindVocab, WordToMeaning, "fr")
	assert.ErrorIs(t, err, domain.ErrInvalid)
}

func TestLanguageFallback(t *testing.T) {
	db := testDB(t)
	subject := seedCatalog(t, db)
	g := NewGenerator(db, rand.New(rand.NewSource(5)))

	// The catalog has no Vietnamese meanings; "vi" falls back to English.
	q, err := g.Generate(context.Background(), subject, domain.KindVocab, WordToMeaning, "vi")
	require.NoError(t, err)
	assert.Equal(t, "word", q.Options[q.CorrectIndex])
}

func TestKanjiDistractorStrategies(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	newKanji := func(char, on, radical string, strokes int, meaning string) int64 {
		id, err := db.CreateKanji(ctx, &domain.Kanji{
			Character:   char,
			OnReadings:  []string{on},
			KunReadings: []string{"kun"},
			Meanings:    domain.Meanings{"en": {meaning}},
			JLPTLevel:   domain.LevelN4,
			StrokeCount: strokes,
			Radical:     radical,
		})
		require.NoError(t, err)
		return id
	}

	subject := newKanji("海", "カイ", "氵", 9, "sea")
	newKanji("湖", "コ", "氵", 12, "lake")
	newKanji("絵", "カイ", "糸", 12, "picture")
	newKanji("泳", "エイ", "氵", 8, "swim")

	g := NewGenerator(db, rand.New(rand.NewSource(9)))
	q, err := g.Generate(ctx, subject, domain.KindKanji, MeaningToWord, "en")
	require.NoError(t, err)

	assert.Equal(t, "海", q.Options[q.CorrectIndex])
	seen := map[string]bool{}
	for _, opt := range q.Options {
		assert.False(t, seen[opt])
		seen[opt] = true
	}
}

func TestPermutationFairness(t *testing.T) {
	db := testDB(t)
	subject := seedCatalog(t, db)
	g := NewGenerator(db, rand.New(rand.NewSource(1234)))

	const n = 2000
	counts := [4]int{}
	for i := 0; i < n; i++ {
		q, err := g.Generate(context.Background(), subject, domain.KindVocab, WordToMeaning, "en")
		require.NoError(t, err)
		counts[q.CorrectIndex]++
	}

	// ±3σ around uniform for a binomial with p = 1/4.
	expected := float64(n) / 4
	sigma := math.Sqrt(float64(n) * 0.25 * 0.75)
	for slot, count := range counts {
		assert.InDelta(t, expected, float64(count), 3*sigma,
			"correct_index landed on slot %d %d times", slot, count)
	}
}
