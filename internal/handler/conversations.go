package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/clipcast/api/internal/middleware"
	"github.com/clipcast/api/internal/model"
	"github.com/clipcast/api/internal/service"
	"github.com/clipcast/api/pkg/response"
)

type ConversationsHandler struct {
	service   *service.ConversationService
	validator *validator.Validate
}

func NewConversationsHandler(svc *service.ConversationService, v *validator.Validate) *ConversationsHandler {
	return &ConversationsHandler{
		service:   svc,
		validator: v,
	}
}

// Create handles POST /api/conversations
func (h *ConversationsHandler) Create(c *fiber.Ctx) error {
	var req model.CreateConversationRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.ValidationError(c, "Invalid request body", nil)
		}
		if err := h.validator.Struct(&req); err != nil {
			return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
		}
	}

	var title *string
	if req.Title != "" {
		title = &req.Title
	}

	conv, greeting, err := h.service.Create(c.Context(), middleware.GetUserID(c), title)
	if err != nil {
		return response.ServiceError(c, "Could not create conversation")
	}

	return response.Created(c, fiber.Map{
		"conversation": conv,
		"greeting":     greeting,
	})
}

// List handles GET /api/conversations
func (h *ConversationsHandler) List(c *fiber.Ctx) error {
	conversations, err := h.service.List(c.Context(), middleware.GetUserID(c))
	if err != nil {
		return response.ServiceError(c, "Could not list conversations")
	}
	if conversations == nil {
		conversations = []model.Conversation{}
	}
	return response.OK(c, model.ConversationsListResponse{Conversations: conversations})
}

// Get handles GET /api/conversations/:id
func (h *ConversationsHandler) Get(c *fiber.Ctx) error {
	conv, err := h.service.Get(c.Context(), middleware.GetUserID(c), c.Params("id"))
	if errors.Is(err, service.ErrConversationNotFound) {
		return response.NotFound(c, "Conversation not found")
	}
	if err != nil {
		return response.ServiceError(c, "Could not fetch conversation")
	}
	return response.OK(c, conv)
}

// Rename handles PATCH /api/conversations/:id
func (h *ConversationsHandler) Rename(c *fiber.Ctx) error {
	var req model.UpdateConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	conv, err := h.service.Rename(c.Context(), middleware.GetUserID(c), c.Params("id"), req.Title)
	if errors.Is(err, service.ErrConversationNotFound) {
		return response.NotFound(c, "Conversation not found")
	}
	if err != nil {
		return response.ServiceError(c, "Could not rename conversation")
	}
	return response.OK(c, conv)
}

// Delete handles DELETE /api/conversations/:id
func (h *ConversationsHandler) Delete(c *fiber.Ctx) error {
	err := h.service.Delete(c.Context(), middleware.GetUserID(c), c.Params("id"))
	if errors.Is(err, service.ErrConversationNotFound) {
		return response.NotFound(c, "Conversation not found")
	}
	if err != nil {
		return response.ServiceError(c, "Could not delete conversation")
	}
	return response.NoContent(c)
}

// Messages handles GET /api/conversations/:id/messages
func (h *ConversationsHandler) Messages(c *fiber.Ctx) error {
	messages, err := h.service.Messages(c.Context(), middleware.GetUserID(c), c.Params("id"))
	if errors.Is(err, service.ErrConversationNotFound) {
		return response.NotFound(c, "Conversation not found")
	}
	if err != nil {
		return response.ServiceError(c, "Could not fetch messages")
	}
	if messages == nil {
		messages = []model.Message{}
	}
	return response.OK(c, model.MessagesListResponse{Messages: messages})
}

// SendMessage handles POST /api/conversations/:id/messages. With stream=true
// the reply is delivered as Server-Sent Events; otherwise both stored
// messages come back as one JSON body.
func (h *ConversationsHandler) SendMessage(c *fiber.Ctx) error {
	var req model.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	userID := middleware.GetUserID(c)
	conversationID := c.Params("id")

	if req.Stream {
		return h.streamMessage(c, userID, conversationID, req.Content)
	}

	result, err := h.service.SendMessage(c.Context(), userID, conversationID, req.Content)
	if errors.Is(err, service.ErrConversationNotFound) {
		return response.NotFound(c, "Conversation not found")
	}
	if err != nil {
		return response.AIError(c, err.Error())
	}
	return response.OK(c, result)
}

func (h *ConversationsHandler) streamMessage(c *fiber.Ctx, userID, conversationID, content string) error {
	// The reply must outlive the request handler, so the stream runs on its
	// own context rather than the request's.
	ctx, cancel := context.WithCancel(context.Background())

	fragments, errs, err := h.service.StreamMessage(ctx, userID, conversationID, content)
	if err != nil {
		cancel()
		if errors.Is(err, service.ErrConversationNotFound) {
			return response.NotFound(c, "Conversation not found")
		}
		return response.AIError(c, err.Error())
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()

		for fragment := range fragments {
			if writeSSE(w, "delta", fiber.Map{"content": fragment}) != nil {
				return
			}
		}
		if err := <-errs; err != nil {
			_ = writeSSE(w, "error", fiber.Map{"message": err.Error()})
			return
		}
		_ = writeSSE(w, "done", fiber.Map{})
	})
	return nil
}

func writeSSE(w *bufio.Writer, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return w.Flush()
}
