package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/clipcast/api/internal/model"
)

// GetProgress returns playback progress for a clip, or zero-value defaults
// when no progress has been recorded yet.
func (s *Store) GetProgress(ctx context.Context, userID, clipID string) (*model.PlaybackProgress, error) {
	var (
		progress     model.PlaybackProgress
		hasCompleted int
		lastPlayed   sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, clip_id, position_seconds, has_completed, last_played_at
         FROM playback_progress WHERE user_id = ? AND clip_id = ?`,
		userID, clipID,
	).Scan(&progress.UserID, &progress.ClipID, &progress.PositionSeconds, &hasCompleted, &lastPlayed)
	if err == sql.ErrNoRows {
		return &model.PlaybackProgress{UserID: userID, ClipID: clipID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}

	progress.HasCompleted = hasCompleted != 0
	progress.LastPlayedAt = parseNullTime(lastPlayed)
	return &progress, nil
}

// UpsertProgress creates or updates the playback position for a clip.
func (s *Store) UpsertProgress(ctx context.Context, userID, clipID string, positionSeconds int, hasCompleted bool) (*model.PlaybackProgress, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO playback_progress (user_id, clip_id, position_seconds, has_completed, last_played_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT (user_id, clip_id) DO UPDATE SET
            position_seconds = excluded.position_seconds,
            has_completed = excluded.has_completed,
            last_played_at = excluded.last_played_at`,
		userID, clipID, positionSeconds, boolToInt(hasCompleted), formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("upsert progress: %w", err)
	}

	return &model.PlaybackProgress{
		UserID:          userID,
		ClipID:          clipID,
		PositionSeconds: positionSeconds,
		HasCompleted:    hasCompleted,
		LastPlayedAt:    &now,
	}, nil
}
