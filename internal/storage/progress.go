package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/pkg/errors"

	"github.com/tranvo/nihongo/internal/domain"
)

// DefaultUserID names the single local user.
const DefaultUserID = "default"

// GetProgress returns the progress singleton for userID, creating a
// default row on first access.
func (q queries) GetProgress(ctx context.Context, userID string) (*domain.Progress, error) {
	p, err := q.getProgress(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !stderrors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	fresh := &domain.Progress{
		UserID:       userID,
		CurrentLevel: domain.LevelN5,
		TargetLevel:  domain.LevelN5,
	}
	if err := q.insertProgress(ctx, fresh); err != nil {
		// Lost a race against another writer; the row exists now.
		if stderrors.Is(err, domain.ErrConflict) {
			return q.getProgress(ctx, userID)
		}
		return nil, err
	}
	return fresh, nil
}

// SaveProgress rewrites the progress row.
func (q queries) SaveProgress(ctx context.Context, p *domain.Progress) error {
	stats, err := encodeJSON(p.Stats)
	if err != nil {
		return err
	}
	milestones, err := encodeJSON(p.Milestones)
	if err != nil {
		return err
	}
	now := nowUTC()
	res, err := q.t.ExecContext(ctx, `
		UPDATE progress
		SET current_level = ?, target_level = ?, stats = ?, milestones = ?,
			streak_days = ?, last_review_date = ?, updated_at = ?
		WHERE user_id = ?`,
		string(p.CurrentLevel), string(p.TargetLevel), stats, milestones,
		p.StreakDays, formatDatePtr(p.LastReviewDate), formatTime(now), p.UserID)
	if err != nil {
		return wrapErr(err, "save progress")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr(err, "save progress: rows affected")
	}
	if n == 0 {
		return errors.Wrapf(domain.ErrNotFound, "progress for %q", p.UserID)
	}
	p.UpdatedAt = now
	return nil
}

func (q queries) getProgress(ctx context.Context, userID string) (*domain.Progress, error) {
	var (
		p                          domain.Progress
		current, target, stats     string
		milestones, lastReviewDate sql.NullString
		createdAt, updatedAt       string
	)
	err := q.t.QueryRowContext(ctx, `
		SELECT id, user_id, current_level, target_level, stats, milestones,
			streak_days, last_review_date, created_at, updated_at
		FROM progress WHERE user_id = ?`, userID).
		Scan(&p.ID, &p.UserID, &current, &target, &stats, &milestones,
			&p.StreakDays, &lastReviewDate, &createdAt, &updatedAt)
	if err != nil {
		return nil, wrapErr(err, "get progress")
	}
	p.CurrentLevel = domain.Level(current)
	p.TargetLevel = domain.Level(target)
	if err := json.Unmarshal([]byte(stats), &p.Stats); err != nil {
		return nil, errors.Wrapf(domain.ErrIntegrity, "progress stats: %v", err)
	}
	if milestones.Valid && milestones.String != "" {
		if err := json.Unmarshal([]byte(milestones.String), &p.Milestones); err != nil {
			return nil, errors.Wrapf(domain.ErrIntegrity, "progress milestones: %v", err)
		}
	}
	if lastReviewDate.Valid {
		d, err := time.ParseInLocation(dateLayout, lastReviewDate.String, time.UTC)
		if err != nil {
			return nil, errors.Wrapf(domain.ErrIntegrity, "progress last_review_date: %v", err)
		}
		p.LastReviewDate = &d
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, errors.Wrapf(domain.ErrIntegrity, "progress: %v", err)
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, errors.Wrapf(domain.ErrIntegrity, "progress: %v", err)
	}
	return &p, nil
}

func (q queries) insertProgress(ctx context.Context, p *domain.Progress) error {
	stats, err := encodeJSON(p.Stats)
	if err != nil {
		return err
	}
	milestones, err := encodeJSON(p.Milestones)
	if err != nil {
		return err
	}
	now := nowUTC()
	res, err := q.t.ExecContext(ctx, `
		INSERT INTO progress (user_id, current_level, target_level, stats,
			milestones, streak_days, last_review_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, string(p.CurrentLevel), string(p.TargetLevel), stats,
		milestones, p.StreakDays, formatDatePtr(p.LastReviewDate),
		formatTime(now), formatTime(now))
	if err != nil {
		return wrapErr(err, "insert progress")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return wrapErr(err, "insert progress: last insert id")
	}
	p.ID = id
	p.CreatedAt, p.UpdatedAt = now, now
	return nil
}

func formatDatePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(dateLayout)
}
