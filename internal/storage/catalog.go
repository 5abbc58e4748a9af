package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tranvo/nihongo/internal/domain"
)

// ItemFilter narrows a catalog listing. Set filters compose
// conjunctively; zero values mean "no filter".
type ItemFilter struct {
	Level            *domain.Level
	ReadingPrefix    string
	MeaningSubstring string
	// OnReading matches kanji whose on-reading list contains the value.
	OnReading  string
	Radical    string
	StrokeMin  int
	StrokeMax  int
	ExcludeIDs []int64
	Limit      int
	// RandomOrder samples uniformly instead of ordering by id; the
	// distractor strategies rely on it.
	RandomOrder bool
}

// ListItems is the catalog read API consumed by the MCQ generator, the
// importers, the chat tools, and the list commands.
func (q queries) ListItems(ctx context.Context, kind domain.ItemKind, f ItemFilter) ([]domain.Item, error) {
	switch kind {
	case domain.KindVocab:
		return q.listVocabItems(ctx, f)
	case domain.KindKanji:
		return q.listKanjiItems(ctx, f)
	}
	return nil, fmt.Errorf("%w: item kind %q", domain.ErrInvalid, kind)
}

// GetItem fetches one item of either kind.
func (q queries) GetItem(ctx context.Context, id int64, kind domain.ItemKind) (domain.Item, error) {
	switch kind {
	case domain.KindVocab:
		return q.GetVocab(ctx, id)
	case domain.KindKanji:
		return q.GetKanji(ctx, id)
	}
	return nil, fmt.Errorf("%w: item kind %q", domain.ErrInvalid, kind)
}

func (f ItemFilter) clauses(reading string) (string, []any) {
	var where []string
	var args []any
	if f.Level != nil {
		where = append(where, "jlpt_level = ?")
		args = append(args, string(*f.Level))
	}
	if f.ReadingPrefix != "" {
		where = append(where, reading+" LIKE ? ESCAPE '\\'")
		args = append(args, escapeLike(f.ReadingPrefix)+"%")
	}
	if f.MeaningSubstring != "" {
		where = append(where, "meanings LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(f.MeaningSubstring)+"%")
	}
	if f.OnReading != "" {
		where = append(where, "on_readings LIKE ? ESCAPE '\\'")
		args = append(args, `%"`+escapeLike(f.OnReading)+`"%`)
	}
	if f.Radical != "" {
		where = append(where, "radical = ?")
		args = append(args, f.Radical)
	}
	if f.StrokeMin > 0 {
		where = append(where, "stroke_count >= ?")
		args = append(args, f.StrokeMin)
	}
	if f.StrokeMax > 0 {
		where = append(where, "stroke_count <= ?")
		args = append(args, f.StrokeMax)
	}
	if len(f.ExcludeIDs) > 0 {
		ph := strings.TrimSuffix(strings.Repeat("?, ", len(f.ExcludeIDs)), ", ")
		where = append(where, "id NOT IN ("+ph+")")
		for _, id := range f.ExcludeIDs {
			args = append(args, id)
		}
	}
	if len(where) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func (f ItemFilter) tail() string {
	order := " ORDER BY id ASC"
	if f.RandomOrder {
		order = " ORDER BY RANDOM()"
	}
	if f.Limit > 0 {
		return fmt.Sprintf("%s LIMIT %d", order, f.Limit)
	}
	return order
}

func (q queries) listVocabItems(ctx context.Context, f ItemFilter) ([]domain.Item, error) {
	where, args := f.clauses("reading")
	rows, err := q.t.QueryContext(ctx,
		`SELECT `+vocabColumns+` FROM vocabulary`+where+f.tail(), args...)
	if err != nil {
		return nil, wrapErr(err, "list vocabulary")
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var (
			v                    domain.Vocab
			meanings             string
			viet, level          sql.NullString
			pos, tags, notes     sql.NullString
			createdAt, updatedAt string
		)
		if err := rows.Scan(&v.ID, &v.Word, &v.Reading, &meanings, &viet,
			&level, &pos, &tags, &notes, &createdAt, &updatedAt); err != nil {
			return nil, wrapErr(err, "scan vocabulary")
		}
		if err := fillVocab(&v, meanings, viet, level, pos, tags, notes, createdAt, updatedAt); err != nil {
			return nil, err
		}
		items = append(items, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, "iterate vocabulary")
	}
	return items, nil
}

func (q queries) listKanjiItems(ctx context.Context, f ItemFilter) ([]domain.Item, error) {
	where, args := f.clauses("vietnamese_reading")
	rows, err := q.t.QueryContext(ctx,
		`SELECT `+kanjiColumns+` FROM kanji`+where+f.tail(), args...)
	if err != nil {
		return nil, wrapErr(err, "list kanji")
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var (
			k                    domain.Kanji
			onR, kunR, meanings  string
			viet, level, radical sql.NullString
			notes                sql.NullString
			strokes              sql.NullInt64
			createdAt, updatedAt string
		)
		if err := rows.Scan(&k.ID, &k.Character, &onR, &kunR, &meanings,
			&viet, &level, &strokes, &radical, &notes, &createdAt, &updatedAt); err != nil {
			return nil, wrapErr(err, "scan kanji")
		}
		if err := fillKanji(&k, onR, kunR, meanings, viet, level, strokes, radical, notes, createdAt, updatedAt); err != nil {
			return nil, err
		}
		items = append(items, &k)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, "iterate kanji")
	}
	return items, nil
}

// escapeLike neutralises user-supplied LIKE metacharacters.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
