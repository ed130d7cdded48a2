package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/clipcast/api/internal/client"
	"github.com/clipcast/api/internal/model"
	"github.com/clipcast/api/internal/pipeline"
	"github.com/clipcast/api/internal/store"
)

// ErrClipNotFound is returned when a clip doesn't exist or belongs to
// another user.
var ErrClipNotFound = errors.New("clip not found")

// ClipService owns clip lifecycle operations on behalf of the HTTP layer.
// Processing itself happens in the pipeline; the service only queues,
// queries and mutates clip records.
type ClipService struct {
	store   *store.Store
	storage client.StorageClient
	logger  *slog.Logger
}

func NewClipService(st *store.Store, storage client.StorageClient, logger *slog.Logger) *ClipService {
	return &ClipService{store: st, storage: storage, logger: logger}
}

// Create queues a new clip for processing. The clip starts pending and is
// picked up by the dispatcher on its next sweep.
func (s *ClipService) Create(ctx context.Context, userID string, req *model.CreateClipRequest) (*model.Clip, error) {
	clip, err := s.store.CreateClip(ctx, userID, req)
	if err != nil {
		return nil, fmt.Errorf("create clip: %w", err)
	}
	if _, err := s.store.UpsertProgress(ctx, userID, clip.ID, 0, false); err != nil {
		s.logger.Warn("could not seed playback progress", "clip_id", clip.ID, "error", err)
	}
	s.logger.Info("clip queued",
		"clip_id", clip.ID, "user_id", userID, "input_type", clip.InputType)
	return clip, nil
}

// List returns a page of the user's clips newest first, plus the total count
// matching the filter.
func (s *ClipService) List(ctx context.Context, userID string, filter store.ClipFilter) ([]model.Clip, int, error) {
	clips, total, err := s.store.ListClips(ctx, userID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list clips: %w", err)
	}
	return clips, total, nil
}

// Get returns one of the user's clips.
func (s *ClipService) Get(ctx context.Context, userID, clipID string) (*model.Clip, error) {
	clip, err := s.store.GetUserClip(ctx, userID, clipID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrClipNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get clip: %w", err)
	}
	return clip, nil
}

// SetFavorite toggles the favorite flag and returns the updated clip.
func (s *ClipService) SetFavorite(ctx context.Context, userID, clipID string, favorited bool) (*model.Clip, error) {
	clip, err := s.store.SetFavorited(ctx, userID, clipID, favorited)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrClipNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("set favorite: %w", err)
	}
	return clip, nil
}

// Delete removes the clip record and, best effort, its stored audio. A
// failed object delete is logged but does not fail the request; the record
// is the source of truth and orphaned audio is harmless.
func (s *ClipService) Delete(ctx context.Context, userID, clipID string) error {
	clip, err := s.Get(ctx, userID, clipID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteClip(ctx, userID, clipID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrClipNotFound
		}
		return fmt.Errorf("delete clip: %w", err)
	}

	if clip.AudioURL != "" && s.storage != nil {
		if err := s.storage.Delete(ctx, pipeline.AudioKey(clipID)); err != nil {
			s.logger.Warn("could not delete audio object",
				"clip_id", clipID, "error", err)
		}
	}
	return nil
}

// Retry re-queues a failed clip. Only failed clips are eligible; anything
// else is reported as not found so callers can't reset in-flight work.
func (s *ClipService) Retry(ctx context.Context, userID, clipID string) (*model.Clip, error) {
	if err := s.store.RetryClip(ctx, userID, clipID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrClipNotFound
		}
		return nil, fmt.Errorf("retry clip: %w", err)
	}
	return s.Get(ctx, userID, clipID)
}

// GetProgress returns the user's playback position for a clip, zeroed when
// none has been recorded yet.
func (s *ClipService) GetProgress(ctx context.Context, userID, clipID string) (*model.PlaybackProgress, error) {
	if _, err := s.Get(ctx, userID, clipID); err != nil {
		return nil, err
	}
	progress, err := s.store.GetProgress(ctx, userID, clipID)
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	return progress, nil
}

// SaveProgress records the playback position, creating the row on first
// write.
func (s *ClipService) SaveProgress(ctx context.Context, userID, clipID string, positionSeconds int, hasCompleted bool) (*model.PlaybackProgress, error) {
	if _, err := s.Get(ctx, userID, clipID); err != nil {
		return nil, err
	}
	progress, err := s.store.UpsertProgress(ctx, userID, clipID, positionSeconds, hasCompleted)
	if err != nil {
		return nil, fmt.Errorf("save progress: %w", err)
	}
	return progress, nil
}
