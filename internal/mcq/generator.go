package mcq

import (
	"context"
	stderrors "errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/tranvo/nihongo/internal/domain"
	"github.com/tranvo/nihongo/internal/storage"
)

// QuestionType selects the direction of a generated question.
type QuestionType string

const (
	WordToMeaning QuestionType = "word_to_meaning"
	MeaningToWord QuestionType = "meaning_to_word"
	// Mixed resolves to one of the two directions per call, fair coin.
	Mixed QuestionType = "mixed"
)

// ParseQuestionType accepts the CLI spellings.
func ParseQuestionType(s string) (QuestionType, error) {
	switch s {
	case "w2m", string(WordToMeaning):
		return WordToMeaning, nil
	case "m2w", string(MeaningToWord):
		return MeaningToWord, nil
	case "mixed", "":
		return Mixed, nil
	}
	return "", errors.Wrapf(domain.ErrInvalid, "question type %q", s)
}

// Question is one generated multiple-choice question. Exactly one
// option matches the subject; the other three are distractors.
type Question struct {
	ItemID       int64
	ItemKind     domain.ItemKind
	Type         QuestionType // resolved, never Mixed
	Prompt       string
	Options      [4]string
	CorrectIndex int
	Level        domain.Level
	Explanation  string
}

const (
	optionCount     = 4
	distractorCount = optionCount - 1
	strategyLimit   = 10
	fallbackBatch   = 25
)

// Generator assembles questions from the catalog using four distractor
// strategies: same JLPT level, similar meanings, similar readings, and
// (for kanji) visual similarity. The strategies are a union, not a
// ranking; varied near-misses teach more than precise ones.
type Generator struct {
	db  *storage.DB
	rng *rand.Rand
}

// NewGenerator builds a generator. A nil rng falls back to a
// time-seeded source.
func NewGenerator(db *storage.DB, rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{db: db, rng: rng}
}

// Generate builds a question for the subject item. It returns
// ErrUnavailable when the subject is missing or the whole catalog
// cannot supply four unique display strings.
func (g *Generator) Generate(ctx context.Context, itemID int64, kind domain.ItemKind, qt QuestionType, language string) (*Question, error) {
	if language != "vi" && language != "en" {
		return nil, errors.Wrapf(domain.ErrInvalid, "language %q", language)
	}

	item, err := g.db.GetItem(ctx, itemID, kind)
	if err != nil {
		if stderrors.Is(err, domain.ErrNotFound) {
			return nil, errors.Wrapf(domain.ErrUnavailable, "%s %d not found", kind, itemID)
		}
		return nil, err
	}

	if qt == Mixed {
		if g.rng.Intn(2) == 0 {
			qt = WordToMeaning
		} else {
			qt = MeaningToWord
		}
	}

	meanings, lang := item.ItemMeanings().ForLanguage(language)
	if len(meanings) == 0 {
		return nil, errors.Wrapf(domain.ErrUnavailable, "%s %d has no meanings", kind, itemID)
	}

	var prompt, correct, explanation string
	switch qt {
	case WordToMeaning:
		switch it := item.(type) {
		case *domain.Vocab:
			prompt = fmt.Sprintf("What is the meaning of '%s' (%s)?", it.Word, it.Reading)
		case *domain.Kanji:
			prompt = fmt.Sprintf("What is the meaning of the kanji '%s'?", it.Character)
		}
		correct = meanings[0]
		explanation = fmt.Sprintf("'%s' means '%s'", item.Display(), correct)
	case MeaningToWord:
		prompt = fmt.Sprintf("Which word means '%s'?", meanings[0])
		correct = item.Display()
		explanation = fmt.Sprintf("'%s' is '%s'", meanings[0], correct)
	default:
		return nil, errors.Wrapf(domain.ErrInvalid, "question type %q", qt)
	}

	distractors, err := g.selectDistractors(ctx, item, qt, lang, correct)
	if err != nil {
		return nil, err
	}

	q := &Question{
		ItemID:      item.ItemID(),
		ItemKind:    item.Kind(),
		Type:        qt,
		Prompt:      prompt,
		Level:       item.Level(),
		Explanation: explanation,
	}
	// Uniform permutation of {correct, d1, d2, d3}.
	order := g.rng.Perm(optionCount)
	pool := append([]string{correct}, distractors...)
	for slot, src := range order {
		q.Options[slot] = pool[src]
		if src == 0 {
			q.CorrectIndex = slot
		}
	}
	return q, nil
}

// selectDistractors unions the strategy pools, dedupes by displayed
// text, and samples three. A shallow pool falls back to random
// same-kind items before giving up with ErrUnavailable.
func (g *Generator) selectDistractors(ctx context.Context, item domain.Item, qt QuestionType, language, correct string) ([]string, error) {
	var pool []string

	add := func(items []domain.Item, err error) error {
		if err != nil {
			return err
		}
		pool = append(pool, g.extractTexts(items, qt, language, correct)...)
		return nil
	}

	if err := add(g.sameLevelCandidates(ctx, item)); err != nil {
		return nil, err
	}
	if err := add(g.similarMeaningCandidates(ctx, item, language)); err != nil {
		return nil, err
	}
	if err := add(g.similarReadingCandidates(ctx, item)); err != nil {
		return nil, err
	}
	if k, ok := item.(*domain.Kanji); ok {
		if err := add(g.visuallySimilarCandidates(ctx, k)); err != nil {
			return nil, err
		}
	}

	g.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	unique := lo.Uniq(pool)

	if len(unique) < distractorCount {
		var err error
		unique, err = g.fallbackFill(ctx, item, qt, language, correct, unique)
		if err != nil {
			return nil, err
		}
	}
	return unique[:distractorCount], nil
}

// fallbackFill pulls random same-kind items until three unique
// distractors exist or the catalog is exhausted.
func (g *Generator) fallbackFill(ctx context.Context, item domain.Item, qt QuestionType, language, correct string, unique []string) ([]string, error) {
	exclude := []int64{item.ItemID()}
	for len(unique) < distractorCount {
		items, err := g.db.ListItems(ctx, item.Kind(), storage.ItemFilter{
			ExcludeIDs:  exclude,
			Limit:       fallbackBatch,
			RandomOrder: true,
		})
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return nil, errors.Wrapf(domain.ErrUnavailable,
				"catalog too small for %s %d: %d of %d distractors",
				item.Kind(), item.ItemID(), len(unique), distractorCount)
		}
		for _, it := range items {
			exclude = append(exclude, it.ItemID())
		}
		unique = lo.Uniq(append(unique, g.extractTexts(items, qt, language, correct)...))
	}
	return unique, nil
}

// extractTexts turns candidate items into displayed option strings,
// dropping the subject's own text.
func (g *Generator) extractTexts(items []domain.Item, qt QuestionType, language, correct string) []string {
	var texts []string
	for _, it := range items {
		var text string
		if qt == WordToMeaning {
			ms, _ := it.ItemMeanings().ForLanguage(language)
			if len(ms) == 0 {
				continue
			}
			text = ms[0]
		} else {
			text = it.Display()
		}
		if text == "" || text == correct {
			continue
		}
		texts = append(texts, text)
	}
	return texts
}

// Strategy 1: same JLPT level, same kind.
func (g *Generator) sameLevelCandidates(ctx context.Context, item domain.Item) ([]domain.Item, error) {
	level := item.Level()
	if level == domain.LevelNone {
		return nil, nil
	}
	return g.db.ListItems(ctx, item.Kind(), storage.ItemFilter{
		Level:       &level,
		ExcludeIDs:  []int64{item.ItemID()},
		Limit:       strategyLimit,
		RandomOrder: true,
	})
}

// Strategy 2: items whose meanings share leading tokens with the
// subject's meanings in the requested language.
func (g *Generator) similarMeaningCandidates(ctx context.Context, item domain.Item, language string) ([]domain.Item, error) {
	ms := item.ItemMeanings()[language]
	var keywords []string
	for _, m := range ms {
		tokens := strings.Fields(strings.ToLower(m))
		keywords = append(keywords, tokens[:min(2, len(tokens))]...)
	}
	keywords = lo.Uniq(keywords)

	var out []domain.Item
	for _, kw := range keywords {
		if len(out) >= strategyLimit {
			break
		}
		items, err := g.db.ListItems(ctx, item.Kind(), storage.ItemFilter{
			MeaningSubstring: kw,
			ExcludeIDs:       []int64{item.ItemID()},
			Limit:            strategyLimit - len(out),
			RandomOrder:      true,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}

// Strategy 3: phonetic neighbours. Vocabulary matches on the leading
// two runes of the reading; kanji match any shared on-reading.
func (g *Generator) similarReadingCandidates(ctx context.Context, item domain.Item) ([]domain.Item, error) {
	switch it := item.(type) {
	case *domain.Vocab:
		runes := []rune(it.Reading)
		prefix := string(runes[:min(2, len(runes))])
		if prefix == "" {
			return nil, nil
		}
		return g.db.ListItems(ctx, domain.KindVocab, storage.ItemFilter{
			ReadingPrefix: prefix,
			ExcludeIDs:    []int64{it.ID},
			Limit:         strategyLimit / 2,
			RandomOrder:   true,
		})
	case *domain.Kanji:
		var out []domain.Item
		for _, on := range it.OnReadings {
			if len(out) >= strategyLimit/2 {
				break
			}
			items, err := g.db.ListItems(ctx, domain.KindKanji, storage.ItemFilter{
				OnReading:   on,
				ExcludeIDs:  []int64{it.ID},
				Limit:       strategyLimit/2 - len(out),
				RandomOrder: true,
			})
			if err != nil {
				return nil, err
			}
			out = append(out, items...)
		}
		return out, nil
	}
	return nil, nil
}

// Strategy 4: kanji that look alike, by shared radical or a stroke
// count within ±2.
func (g *Generator) visuallySimilarCandidates(ctx context.Context, k *domain.Kanji) ([]domain.Item, error) {
	var out []domain.Item
	if k.Radical != "" {
		items, err := g.db.ListItems(ctx, domain.KindKanji, storage.ItemFilter{
			Radical:     k.Radical,
			ExcludeIDs:  []int64{k.ID},
			Limit:       distractorCount,
			RandomOrder: true,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	if k.StrokeCount > 0 {
		items, err := g.db.ListItems(ctx, domain.KindKanji, storage.ItemFilter{
			StrokeMin:   max(1, k.StrokeCount-2),
			StrokeMax:   k.StrokeCount + 2,
			ExcludeIDs:  []int64{k.ID},
			Limit:       distractorCount,
			RandomOrder: true,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}
