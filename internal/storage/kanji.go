package storage

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/tranvo/nihongo/internal/domain"
)

const kanjiColumns = `id, character, on_readings, kun_readings, meanings,
	vietnamese_reading, jlpt_level, stroke_count, radical, notes,
	created_at, updated_at`

// CreateKanji inserts a kanji item. The single-character surface is
// unique; a duplicate yields ErrConflict.
func (q queries) CreateKanji(ctx context.Context, k *domain.Kanji) (int64, error) {
	onR, err := encodeJSON(k.OnReadings)
	if err != nil {
		return 0, err
	}
	kunR, err := encodeJSON(k.KunReadings)
	if err != nil {
		return 0, err
	}
	meanings, err := encodeJSON(k.Meanings)
	if err != nil {
		return 0, err
	}
	now := nowUTC()
	res, err := q.t.ExecContext(ctx, `
		INSERT INTO kanji (character, on_readings, kun_readings, meanings,
			vietnamese_reading, jlpt_level, stroke_count, radical, notes,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		k.Character, onR, kunR, meanings, nullString(k.VietnameseReading),
		nullLevel(k.JLPTLevel), nullInt(k.StrokeCount), nullString(k.Radical),
		nullString(k.Notes), formatTime(now), formatTime(now))
	if err != nil {
		return 0, wrapErr(err, "create kanji")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrapErr(err, "create kanji: last insert id")
	}
	k.ID = id
	k.CreatedAt, k.UpdatedAt = now, now
	return id, nil
}

// GetKanji looks up a kanji item by id.
func (q queries) GetKanji(ctx context.Context, id int64) (*domain.Kanji, error) {
	row := q.t.QueryRowContext(ctx,
		`SELECT `+kanjiColumns+` FROM kanji WHERE id = ?`, id)
	return scanKanji(row)
}

// GetKanjiByCharacter looks up a kanji item by its surface character.
func (q queries) GetKanjiByCharacter(ctx context.Context, character string) (*domain.Kanji, error) {
	row := q.t.QueryRowContext(ctx,
		`SELECT `+kanjiColumns+` FROM kanji WHERE character = ?`, character)
	return scanKanji(row)
}

// UpdateKanji rewrites the mutable fields and bumps updated_at.
func (q queries) UpdateKanji(ctx context.Context, k *domain.Kanji) error {
	onR, err := encodeJSON(k.OnReadings)
	if err != nil {
		return err
	}
	kunR, err := encodeJSON(k.KunReadings)
	if err != nil {
		return err
	}
	meanings, err := encodeJSON(k.Meanings)
	if err != nil {
		return err
	}
	now := nowUTC()
	res, err := q.t.ExecContext(ctx, `
		UPDATE kanji
		SET character = ?, on_readings = ?, kun_readings = ?, meanings = ?,
			vietnamese_reading = ?, jlpt_level = ?, stroke_count = ?,
			radical = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		k.Character, onR, kunR, meanings, nullString(k.VietnameseReading),
		nullLevel(k.JLPTLevel), nullInt(k.StrokeCount), nullString(k.Radical),
		nullString(k.Notes), formatTime(now), k.ID)
	if err != nil {
		return wrapErr(err, "update kanji")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr(err, "update kanji: rows affected")
	}
	if n == 0 {
		return errors.Wrapf(domain.ErrNotFound, "kanji %d", k.ID)
	}
	k.UpdatedAt = now
	return nil
}

// CountKanjiByLevel counts kanji grouped by JLPT level.
func (q queries) CountKanjiByLevel(ctx context.Context) (map[domain.Level]int, error) {
	rows, err := q.t.QueryContext(ctx, `
		SELECT COALESCE(jlpt_level, ''), COUNT(*)
		FROM kanji GROUP BY jlpt_level`)
	if err != nil {
		return nil, wrapErr(err, "count kanji by level")
	}
	defer rows.Close()
	return scanLevelCounts(rows)
}

func scanKanji(row *sql.Row) (*domain.Kanji, error) {
	var (
		k                    domain.Kanji
		onR, kunR, meanings  string
		viet, level, radical sql.NullString
		notes                sql.NullString
		strokes              sql.NullInt64
		createdAt, updatedAt string
	)
	err := row.Scan(&k.ID, &k.Character, &onR, &kunR, &meanings, &viet,
		&level, &strokes, &radical, &notes, &createdAt, &updatedAt)
	if err != nil {
		return nil, wrapErr(err, "get kanji")
	}
	if err := fillKanji(&k, onR, kunR, meanings, viet, level, strokes, radical, notes, createdAt, updatedAt); err != nil {
		return nil, err
	}
	return &k, nil
}

func fillKanji(k *domain.Kanji, onR, kunR, meanings string, viet, level sql.NullString, strokes sql.NullInt64, radical, notes sql.NullString, createdAt, updatedAt string) error {
	if err := json.Unmarshal([]byte(onR), &k.OnReadings); err != nil {
		return errors.Wrapf(domain.ErrIntegrity, "kanji %d on_readings: %v", k.ID, err)
	}
	if err := json.Unmarshal([]byte(kunR), &k.KunReadings); err != nil {
		return errors.Wrapf(domain.ErrIntegrity, "kanji %d kun_readings: %v", k.ID, err)
	}
	if err := json.Unmarshal([]byte(meanings), &k.Meanings); err != nil {
		return errors.Wrapf(domain.ErrIntegrity, "kanji %d meanings: %v", k.ID, err)
	}
	k.VietnameseReading = viet.String
	k.JLPTLevel = domain.Level(level.String)
	k.StrokeCount = int(strokes.Int64)
	k.Radical = radical.String
	k.Notes = notes.String
	var err error
	if k.CreatedAt, err = parseTime(createdAt); err != nil {
		return errors.Wrapf(domain.ErrIntegrity, "kanji %d: %v", k.ID, err)
	}
	if k.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return errors.Wrapf(domain.ErrIntegrity, "kanji %d: %v", k.ID, err)
	}
	return nil
}
