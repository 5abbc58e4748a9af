package storage

import (
	"context"

	"github.com/pkg/errors"
)

// schemaVersion is the current schema generation. Version 1 is the
// base catalog + flashcard tables; version 2 adds the MCQ tables.
const schemaVersion = 2

// migrations are applied in order inside one transaction each; the
// schema_migrations marker row records the applied version.
var migrations = []string{migrationV1, migrationV2}

const migrationV1 = `
CREATE TABLE IF NOT EXISTS vocabulary (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    word TEXT NOT NULL,
    reading TEXT NOT NULL,
    meanings TEXT NOT NULL,
    vietnamese_reading TEXT,
    jlpt_level TEXT,
    part_of_speech TEXT,
    tags TEXT,
    notes TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS kanji (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    character TEXT NOT NULL UNIQUE,
    on_readings TEXT NOT NULL,
    kun_readings TEXT NOT NULL,
    meanings TEXT NOT NULL,
    vietnamese_reading TEXT,
    jlpt_level TEXT,
    stroke_count INTEGER,
    radical TEXT,
    notes TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS grammar_points (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    structure TEXT,
    explanation TEXT NOT NULL,
    jlpt_level TEXT,
    examples TEXT NOT NULL,
    related_grammar TEXT,
    notes TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS reviews (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    item_id INTEGER NOT NULL,
    item_kind TEXT NOT NULL CHECK (item_kind IN ('vocab', 'kanji')),
    fsrs_card_state TEXT NOT NULL,
    due_date TEXT NOT NULL,
    last_reviewed TEXT,
    review_count INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    UNIQUE(item_id, item_kind)
);

CREATE TABLE IF NOT EXISTS review_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    review_id INTEGER NOT NULL,
    rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 4),
    duration_ms INTEGER,
    reviewed_at TEXT NOT NULL,
    FOREIGN KEY (review_id) REFERENCES reviews(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS progress (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL DEFAULT 'default',
    current_level TEXT NOT NULL DEFAULT 'n5',
    target_level TEXT NOT NULL DEFAULT 'n5',
    stats TEXT NOT NULL,
    milestones TEXT,
    streak_days INTEGER NOT NULL DEFAULT 0,
    last_review_date TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    UNIQUE(user_id)
);

CREATE INDEX IF NOT EXISTS idx_vocabulary_jlpt ON vocabulary(jlpt_level);
CREATE INDEX IF NOT EXISTS idx_vocabulary_word ON vocabulary(word);
CREATE INDEX IF NOT EXISTS idx_vocabulary_reading ON vocabulary(reading);
CREATE INDEX IF NOT EXISTS idx_kanji_jlpt ON kanji(jlpt_level);
CREATE INDEX IF NOT EXISTS idx_grammar_jlpt ON grammar_points(jlpt_level);
CREATE INDEX IF NOT EXISTS idx_reviews_due ON reviews(due_date);
CREATE INDEX IF NOT EXISTS idx_reviews_item ON reviews(item_id, item_kind);
CREATE INDEX IF NOT EXISTS idx_history_review ON review_history(review_id);
CREATE INDEX IF NOT EXISTS idx_history_date ON review_history(reviewed_at);
`

const migrationV2 = `
CREATE TABLE IF NOT EXISTS mcq_reviews (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    item_id INTEGER NOT NULL,
    item_kind TEXT NOT NULL CHECK (item_kind IN ('vocab', 'kanji')),
    fsrs_card_state TEXT NOT NULL,
    due_date TEXT NOT NULL,
    last_reviewed TEXT,
    review_count INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    UNIQUE(item_id, item_kind)
);

CREATE TABLE IF NOT EXISTS mcq_review_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    mcq_review_id INTEGER NOT NULL,
    selected_option INTEGER NOT NULL CHECK (selected_option BETWEEN 0 AND 3),
    is_correct INTEGER NOT NULL CHECK (is_correct IN (0, 1)),
    duration_ms INTEGER,
    reviewed_at TEXT NOT NULL,
    FOREIGN KEY (mcq_review_id) REFERENCES mcq_reviews(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_mcq_reviews_due ON mcq_reviews(due_date);
CREATE INDEX IF NOT EXISTS idx_mcq_reviews_item ON mcq_reviews(item_id, item_kind);
CREATE INDEX IF NOT EXISTS idx_mcq_history_review ON mcq_review_history(mcq_review_id);
CREATE INDEX IF NOT EXISTS idx_mcq_history_date ON mcq_review_history(reviewed_at);
`

// migrate brings the schema up to schemaVersion.
func (db *DB) migrate(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		)`); err != nil {
		return errors.Wrap(err, "create schema_migrations")
	}

	var current int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return errors.Wrap(err, "read schema version")
	}

	for v := current; v < len(migrations); v++ {
		version := v + 1
		err := db.WithTx(ctx, func(tx *Tx) error {
			if _, err := tx.t.ExecContext(ctx, migrations[v]); err != nil {
				return errors.Wrapf(err, "apply migration %d", version)
			}
			if _, err := tx.t.ExecContext(ctx,
				`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
				version, formatTime(nowUTC())); err != nil {
				return errors.Wrapf(err, "record migration %d", version)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// SchemaVersion reports the applied schema generation.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&v)
	if err != nil {
		return 0, wrapErr(err, "read schema version")
	}
	return v, nil
}
