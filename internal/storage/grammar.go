package storage

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/tranvo/nihongo/internal/domain"
)

// CreateGrammarPoint inserts a grammar record.
func (q queries) CreateGrammarPoint(ctx context.Context, g *domain.GrammarPoint) (int64, error) {
	examples, err := encodeJSON(g.Examples)
	if err != nil {
		return 0, err
	}
	related, err := encodeJSON(g.Related)
	if err != nil {
		return 0, err
	}
	now := nowUTC()
	res, err := q.t.ExecContext(ctx, `
		INSERT INTO grammar_points (title, structure, explanation, jlpt_level,
			examples, related_grammar, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.Title, nullString(g.Structure), g.Explanation, nullLevel(g.JLPTLevel),
		examples, related, nullString(g.Notes), formatTime(now), formatTime(now))
	if err != nil {
		return 0, wrapErr(err, "create grammar point")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrapErr(err, "create grammar point: last insert id")
	}
	g.ID = id
	g.CreatedAt, g.UpdatedAt = now, now
	return id, nil
}

// GetGrammarPoint looks up a grammar record by id.
func (q queries) GetGrammarPoint(ctx context.Context, id int64) (*domain.GrammarPoint, error) {
	rows, err := q.t.QueryContext(ctx, `
		SELECT id, title, structure, explanation, jlpt_level, examples,
			related_grammar, notes, created_at, updated_at
		FROM grammar_points WHERE id = ?`, id)
	if err != nil {
		return nil, wrapErr(err, "get grammar point")
	}
	defer rows.Close()
	gs, err := collectGrammar(rows)
	if err != nil {
		return nil, err
	}
	if len(gs) == 0 {
		return nil, errors.Wrapf(domain.ErrNotFound, "grammar point %d", id)
	}
	return gs[0], nil
}

// ListGrammarPoints returns grammar records, optionally level-filtered.
func (q queries) ListGrammarPoints(ctx context.Context, level *domain.Level, limit int) ([]*domain.GrammarPoint, error) {
	query := `
		SELECT id, title, structure, explanation, jlpt_level, examples,
			related_grammar, notes, created_at, updated_at
		FROM grammar_points`
	var args []any
	if level != nil {
		query += " WHERE jlpt_level = ?"
		args = append(args, string(*level))
	}
	query += " ORDER BY id ASC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := q.t.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(err, "list grammar points")
	}
	defer rows.Close()
	return collectGrammar(rows)
}

func collectGrammar(rows *sql.Rows) ([]*domain.GrammarPoint, error) {
	var gs []*domain.GrammarPoint
	for rows.Next() {
		var (
			g                         domain.GrammarPoint
			structure, level          sql.NullString
			examples                  string
			related, notes            sql.NullString
			createdAt, updatedAt      string
		)
		if err := rows.Scan(&g.ID, &g.Title, &structure, &g.Explanation,
			&level, &examples, &related, &notes, &createdAt, &updatedAt); err != nil {
			return nil, wrapErr(err, "scan grammar point")
		}
		g.Structure = structure.String
		g.JLPTLevel = domain.Level(level.String)
		g.Notes = notes.String
		if err := json.Unmarshal([]byte(examples), &g.Examples); err != nil {
			return nil, errors.Wrapf(domain.ErrIntegrity, "grammar %d examples: %v", g.ID, err)
		}
		if related.Valid && related.String != "" {
			if err := json.Unmarshal([]byte(related.String), &g.Related); err != nil {
				return nil, errors.Wrapf(domain.ErrIntegrity, "grammar %d related: %v", g.ID, err)
			}
		}
		var err error
		if g.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, errors.Wrapf(domain.ErrIntegrity, "grammar %d: %v", g.ID, err)
		}
		if g.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, errors.Wrapf(domain.ErrIntegrity, "grammar %d: %v", g.ID, err)
		}
		gs = append(gs, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, "iterate grammar points")
	}
	return gs, nil
}
