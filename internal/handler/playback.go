package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/clipcast/api/internal/middleware"
	"github.com/clipcast/api/internal/model"
	"github.com/clipcast/api/internal/service"
	"github.com/clipcast/api/pkg/response"
)

type PlaybackHandler struct {
	service   *service.ClipService
	validator *validator.Validate
}

func NewPlaybackHandler(svc *service.ClipService, v *validator.Validate) *PlaybackHandler {
	return &PlaybackHandler{
		service:   svc,
		validator: v,
	}
}

// GetProgress handles GET /api/clips/:id/progress
func (h *PlaybackHandler) GetProgress(c *fiber.Ctx) error {
	progress, err := h.service.GetProgress(c.Context(), middleware.GetUserID(c), c.Params("id"))
	if errors.Is(err, service.ErrClipNotFound) {
		return response.NotFound(c, "Clip not found")
	}
	if err != nil {
		return response.ServiceError(c, "Could not fetch progress")
	}
	return response.OK(c, progress)
}

// UpdateProgress handles PUT /api/clips/:id/progress
func (h *PlaybackHandler) UpdateProgress(c *fiber.Ctx) error {
	var req model.UpdateProgressRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	progress, err := h.service.SaveProgress(c.Context(), middleware.GetUserID(c), c.Params("id"),
		req.PositionSeconds, req.HasCompleted)
	if errors.Is(err, service.ErrClipNotFound) {
		return response.NotFound(c, "Clip not found")
	}
	if err != nil {
		return response.ServiceError(c, "Could not save progress")
	}
	return response.OK(c, progress)
}
