package handler

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/clipcast/api/internal/middleware"
	"github.com/clipcast/api/internal/model"
	"github.com/clipcast/api/internal/service"
	"github.com/clipcast/api/internal/store"
	"github.com/clipcast/api/pkg/response"
)

type ClipsHandler struct {
	service   *service.ClipService
	validator *validator.Validate
}

func NewClipsHandler(svc *service.ClipService, v *validator.Validate) *ClipsHandler {
	return &ClipsHandler{
		service:   svc,
		validator: v,
	}
}

// Create handles POST /api/clips
func (h *ClipsHandler) Create(c *fiber.Ctx) error {
	var req model.CreateClipRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	clip, err := h.service.Create(c.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		return response.ServiceError(c, "Could not create clip")
	}

	return response.Created(c, clip)
}

// List handles GET /api/clips
func (h *ClipsHandler) List(c *fiber.Ctx) error {
	filter := store.ClipFilter{
		Limit:  c.QueryInt("limit", 20),
		Offset: c.QueryInt("offset", 0),
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	if raw := c.Query("status"); raw != "" {
		status := model.ClipStatus(raw)
		valid := false
		for _, s := range model.ValidClipStatuses {
			if s == status {
				valid = true
				break
			}
		}
		if !valid {
			return response.ValidationError(c, "Invalid status filter", nil)
		}
		filter.Status = &status
	}

	if raw := c.Query("favorited"); raw != "" {
		favorited, err := strconv.ParseBool(raw)
		if err != nil {
			return response.ValidationError(c, "Invalid favorited filter", nil)
		}
		filter.Favorited = &favorited
	}

	clips, total, err := h.service.List(c.Context(), middleware.GetUserID(c), filter)
	if err != nil {
		return response.ServiceError(c, "Could not list clips")
	}

	if clips == nil {
		clips = []model.Clip{}
	}
	return response.OK(c, model.ClipsListResponse{Clips: clips, Total: total})
}

// Get handles GET /api/clips/:id
func (h *ClipsHandler) Get(c *fiber.Ctx) error {
	clip, err := h.service.Get(c.Context(), middleware.GetUserID(c), c.Params("id"))
	if errors.Is(err, service.ErrClipNotFound) {
		return response.NotFound(c, "Clip not found")
	}
	if err != nil {
		return response.ServiceError(c, "Could not fetch clip")
	}
	return response.OK(c, clip)
}

// SetFavorite handles PATCH /api/clips/:id/favorite
func (h *ClipsHandler) SetFavorite(c *fiber.Ctx) error {
	var req model.SetFavoriteRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	clip, err := h.service.SetFavorite(c.Context(), middleware.GetUserID(c), c.Params("id"), req.IsFavorited)
	if errors.Is(err, service.ErrClipNotFound) {
		return response.NotFound(c, "Clip not found")
	}
	if err != nil {
		return response.ServiceError(c, "Could not update clip")
	}
	return response.OK(c, clip)
}

// Delete handles DELETE /api/clips/:id
func (h *ClipsHandler) Delete(c *fiber.Ctx) error {
	err := h.service.Delete(c.Context(), middleware.GetUserID(c), c.Params("id"))
	if errors.Is(err, service.ErrClipNotFound) {
		return response.NotFound(c, "Clip not found")
	}
	if err != nil {
		return response.ServiceError(c, "Could not delete clip")
	}
	return response.NoContent(c)
}

// Retry handles POST /api/clips/:id/retry
func (h *ClipsHandler) Retry(c *fiber.Ctx) error {
	clip, err := h.service.Retry(c.Context(), middleware.GetUserID(c), c.Params("id"))
	if errors.Is(err, service.ErrClipNotFound) {
		return response.NotFound(c, "Clip not found")
	}
	if err != nil {
		return response.ServiceError(c, "Could not retry clip")
	}
	return response.OK(c, clip)
}

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
