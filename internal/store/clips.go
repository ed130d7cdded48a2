package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clipcast/api/internal/model"
)

const clipColumns = `id, user_id, input_type, input_content, target_duration,
    context_instruction, status, script, page_title, audio_url, actual_duration,
    error_message, is_favorited, created_at, started_processing_at, completed_at`

// CreateClip inserts a new clip with status pending and returns it.
func (s *Store) CreateClip(ctx context.Context, userID string, req *model.CreateClipRequest) (*model.Clip, error) {
	clip := &model.Clip{
		ID:                 uuid.New().String(),
		UserID:             userID,
		InputType:          req.InputType,
		InputContent:       req.InputContent,
		TargetDuration:     req.TargetDuration,
		ContextInstruction: req.ContextInstruction,
		Status:             model.ClipStatusPending,
		CreatedAt:          time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO clips (
            id, user_id, input_type, input_content, target_duration,
            context_instruction, status, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		clip.ID, clip.UserID, string(clip.InputType), clip.InputContent,
		clip.TargetDuration, clip.ContextInstruction, string(clip.Status),
		formatTime(clip.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert clip: %w", err)
	}

	return clip, nil
}

// GetClip fetches a clip by id regardless of owner. Used by the pipeline.
func (s *Store) GetClip(ctx context.Context, id string) (*model.Clip, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+clipColumns+` FROM clips WHERE id = ?`, id)
	return scanClip(row)
}

// GetUserClip fetches a clip by id scoped to its owner.
func (s *Store) GetUserClip(ctx context.Context, userID, id string) (*model.Clip, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+clipColumns+` FROM clips WHERE id = ? AND user_id = ?`, id, userID)
	return scanClip(row)
}

// ClipFilter narrows ListClips results.
type ClipFilter struct {
	Status    *model.ClipStatus
	Favorited *bool
	Limit     int
	Offset    int
}

// ListClips returns a user's clips newest first, with the unpaginated total.
func (s *Store) ListClips(ctx context.Context, userID string, filter ClipFilter) ([]model.Clip, int, error) {
	where := `WHERE user_id = ?`
	args := []any{userID}
	if filter.Status != nil {
		where += ` AND status = ?`
		args = append(args, string(*filter.Status))
	}
	if filter.Favorited != nil {
		where += ` AND is_favorited = ?`
		args = append(args, boolToInt(*filter.Favorited))
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM clips `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count clips: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+clipColumns+` FROM clips `+where+` ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list clips: %w", err)
	}
	defer rows.Close()

	clips, err := collectClips(rows)
	if err != nil {
		return nil, 0, err
	}
	return clips, total, nil
}

// ListPending returns up to limit pending clips, oldest first.
func (s *Store) ListPending(ctx context.Context, limit int) ([]model.Clip, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+clipColumns+` FROM clips WHERE status = ? ORDER BY created_at ASC LIMIT ?`,
		string(model.ClipStatusPending), limit)
	if err != nil {
		return nil, fmt.Errorf("list pending clips: %w", err)
	}
	defer rows.Close()

	return collectClips(rows)
}

// ClaimClip transitions a clip from pending to processing and stamps the
// processing-start time. The update is conditional on the current status, so
// exactly one of any number of concurrent claimants wins; the others see
// false with a nil error.
func (s *Store) ClaimClip(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE clips SET status = ?, started_processing_at = ?
         WHERE id = ? AND status = ?`,
		string(model.ClipStatusProcessing), formatTime(time.Now()),
		id, string(model.ClipStatusPending),
	)
	if err != nil {
		return false, fmt.Errorf("claim clip: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim clip rows affected: %w", err)
	}
	return n == 1, nil
}

// MarkCompleted writes the terminal success fields for a clip.
func (s *Store) MarkCompleted(ctx context.Context, id string, result model.ClipCompletion) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE clips SET status = ?, script = ?, audio_url = ?, actual_duration = ?,
            page_title = ?, error_message = NULL, completed_at = ?
         WHERE id = ?`,
		string(model.ClipStatusCompleted), result.Script, result.AudioURL,
		result.ActualDuration, result.PageTitle, formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("mark clip completed: %w", err)
	}
	return nil
}

// MarkFailed writes the terminal failure status with the message preserved
// verbatim for operator diagnosis.
func (s *Store) MarkFailed(ctx context.Context, id, message string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE clips SET status = ?, error_message = ? WHERE id = ?`,
		string(model.ClipStatusFailed), message, id,
	)
	if err != nil {
		return fmt.Errorf("mark clip failed: %w", err)
	}
	return nil
}

// RetryClip resets a failed clip back to pending. Operator action; the
// dispatcher will pick it up on a later poll.
func (s *Store) RetryClip(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE clips SET status = ?, error_message = NULL,
            started_processing_at = NULL, completed_at = NULL
         WHERE id = ? AND user_id = ? AND status = ?`,
		string(model.ClipStatusPending), id, userID, string(model.ClipStatusFailed),
	)
	if err != nil {
		return fmt.Errorf("retry clip: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("retry clip rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetFavorited updates the favorite flag and returns the updated clip.
func (s *Store) SetFavorited(ctx context.Context, userID, id string, favorited bool) (*model.Clip, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE clips SET is_favorited = ? WHERE id = ? AND user_id = ?`,
		boolToInt(favorited), id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("set favorited: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("set favorited rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return s.GetUserClip(ctx, userID, id)
}

// DeleteClip removes a clip; playback progress rows cascade.
func (s *Store) DeleteClip(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM clips WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete clip: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete clip rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanClip(row *sql.Row) (*model.Clip, error) {
	clip, err := scanClipFrom(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan clip: %w", err)
	}
	return clip, nil
}

func collectClips(rows *sql.Rows) ([]model.Clip, error) {
	clips := []model.Clip{}
	for rows.Next() {
		clip, err := scanClipFrom(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan clip row: %w", err)
		}
		clips = append(clips, *clip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clips: %w", err)
	}
	return clips, nil
}

func scanClipFrom(scan func(dest ...any) error) (*model.Clip, error) {
	var (
		clip       model.Clip
		inputType  string
		status     string
		errMsg     sql.NullString
		favorited  int
		createdAt  string
		startedAt  sql.NullString
		completed  sql.NullString
	)
	if err := scan(
		&clip.ID, &clip.UserID, &inputType, &clip.InputContent, &clip.TargetDuration,
		&clip.ContextInstruction, &status, &clip.Script, &clip.PageTitle,
		&clip.AudioURL, &clip.ActualDuration, &errMsg, &favorited,
		&createdAt, &startedAt, &completed,
	); err != nil {
		return nil, err
	}

	clip.InputType = model.InputType(inputType)
	clip.Status = model.ClipStatus(status)
	if errMsg.Valid {
		clip.ErrorMessage = &errMsg.String
	}
	clip.IsFavorited = favorited != 0
	clip.CreatedAt = parseTime(createdAt)
	clip.StartedProcessingAt = parseNullTime(startedAt)
	clip.CompletedAt = parseNullTime(completed)
	return &clip, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
