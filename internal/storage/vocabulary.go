package storage

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/tranvo/nihongo/internal/domain"
)

const vocabColumns = `id, word, reading, meanings, vietnamese_reading,
	jlpt_level, part_of_speech, tags, notes, created_at, updated_at`

// CreateVocab inserts a vocabulary item and returns its assigned id.
func (q queries) CreateVocab(ctx context.Context, v *domain.Vocab) (int64, error) {
	meanings, err := encodeJSON(v.Meanings)
	if err != nil {
		return 0, err
	}
	tags, err := encodeJSON(v.Tags)
	if err != nil {
		return 0, err
	}
	now := nowUTC()
	res, err := q.t.ExecContext(ctx, `
		INSERT INTO vocabulary (word, reading, meanings, vietnamese_reading,
			jlpt_level, part_of_speech, tags, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.Word, v.Reading, meanings, nullString(v.VietnameseReading),
		nullLevel(v.JLPTLevel), nullString(v.PartOfSpeech), tags,
		nullString(v.Notes), formatTime(now), formatTime(now))
	if err != nil {
		return 0, wrapErr(err, "create vocabulary")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrapErr(err, "create vocabulary: last insert id")
	}
	v.ID = id
	v.CreatedAt, v.UpdatedAt = now, now
	return id, nil
}

// GetVocab looks up a vocabulary item by id.
func (q queries) GetVocab(ctx context.Context, id int64) (*domain.Vocab, error) {
	row := q.t.QueryRowContext(ctx,
		`SELECT `+vocabColumns+` FROM vocabulary WHERE id = ?`, id)
	return scanVocab(row)
}

// UpdateVocab rewrites the mutable fields of a vocabulary item and
// bumps updated_at. Items are never deleted.
func (q queries) UpdateVocab(ctx context.Context, v *domain.Vocab) error {
	meanings, err := encodeJSON(v.Meanings)
	if err != nil {
		return err
	}
	tags, err := encodeJSON(v.Tags)
	if err != nil {
		return err
	}
	now := nowUTC()
	res, err := q.t.ExecContext(ctx, `
		UPDATE vocabulary
		SET word = ?, reading = ?, meanings = ?, vietnamese_reading = ?,
			jlpt_level = ?, part_of_speech = ?, tags = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		v.Word, v.Reading, meanings, nullString(v.VietnameseReading),
		nullLevel(v.JLPTLevel), nullString(v.PartOfSpeech), tags,
		nullString(v.Notes), formatTime(now), v.ID)
	if err != nil {
		return wrapErr(err, "update vocabulary")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr(err, "update vocabulary: rows affected")
	}
	if n == 0 {
		return errors.Wrapf(domain.ErrNotFound, "vocabulary %d", v.ID)
	}
	v.UpdatedAt = now
	return nil
}

// CountVocabByLevel counts vocabulary grouped by JLPT level. Untagged
// items count under LevelNone.
func (q queries) CountVocabByLevel(ctx context.Context) (map[domain.Level]int, error) {
	rows, err := q.t.QueryContext(ctx, `
		SELECT COALESCE(jlpt_level, ''), COUNT(*)
		FROM vocabulary GROUP BY jlpt_level`)
	if err != nil {
		return nil, wrapErr(err, "count vocabulary by level")
	}
	defer rows.Close()
	return scanLevelCounts(rows)
}

func scanVocab(row *sql.Row) (*domain.Vocab, error) {
	var (
		v                    domain.Vocab
		meanings             string
		viet, level          sql.NullString
		pos, tags, notes     sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&v.ID, &v.Word, &v.Reading, &meanings, &viet, &level,
		&pos, &tags, &notes, &createdAt, &updatedAt)
	if err != nil {
		return nil, wrapErr(err, "get vocabulary")
	}
	if err := fillVocab(&v, meanings, viet, level, pos, tags, notes, createdAt, updatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

func fillVocab(v *domain.Vocab, meanings string, viet, level, pos, tags, notes sql.NullString, createdAt, updatedAt string) error {
	if err := json.Unmarshal([]byte(meanings), &v.Meanings); err != nil {
		return errors.Wrapf(domain.ErrIntegrity, "vocabulary %d meanings: %v", v.ID, err)
	}
	v.VietnameseReading = viet.String
	v.JLPTLevel = domain.Level(level.String)
	v.PartOfSpeech = pos.String
	v.Notes = notes.String
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &v.Tags); err != nil {
			return errors.Wrapf(domain.ErrIntegrity, "vocabulary %d tags: %v", v.ID, err)
		}
	}
	var err error
	if v.CreatedAt, err = parseTime(createdAt); err != nil {
		return errors.Wrapf(domain.ErrIntegrity, "vocabulary %d: %v", v.ID, err)
	}
	if v.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return errors.Wrapf(domain.ErrIntegrity, "vocabulary %d: %v", v.ID, err)
	}
	return nil
}

// encodeJSON serialises structured blobs; non-ASCII text is preserved
// verbatim (encoding/json does not escape multibyte runes).
func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrapf(domain.ErrInvalid, "encode blob: %v", err)
	}
	return string(b), nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullLevel(l domain.Level) any {
	if l == domain.LevelNone {
		return nil
	}
	return string(l)
}

func nullInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

func scanLevelCounts(rows *sql.Rows) (map[domain.Level]int, error) {
	counts := make(map[domain.Level]int, len(domain.Levels)+1)
	for _, l := range domain.Levels {
		counts[l] = 0
	}
	for rows.Next() {
		var level string
		var n int
		if err := rows.Scan(&level, &n); err != nil {
			return nil, wrapErr(err, "scan level count")
		}
		counts[domain.Level(level)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, "iterate level counts")
	}
	return counts, nil
}
