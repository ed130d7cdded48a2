package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/clipcast/api/internal/client"
	"github.com/clipcast/api/internal/model"
	"github.com/clipcast/api/internal/store"
)

// ErrConversationNotFound is returned when a conversation doesn't exist or
// belongs to another user.
var ErrConversationNotFound = errors.New("conversation not found")

const chatSystemPrompt = `You are a helpful, professional AI assistant.
Be concise and direct in your responses. Answer questions clearly
and provide relevant information without unnecessary elaboration.`

// greetingMessage opens every new conversation as the assistant's first turn.
const greetingMessage = "Hey there! I'm ready to chat. What's on your mind?"

// maxContextMessages bounds how much history is replayed to the model.
const maxContextMessages = 20

// Sampling temperature for conversational replies, looser than script prose.
const chatTemperature = 0.8

const chatMaxTokens = 2048

// ChatGenerator is the language model surface the conversation service uses.
type ChatGenerator interface {
	ChatCompletion(ctx context.Context, messages []client.ChatMessage, temperature float64, maxTokens int) (string, error)
	ChatCompletionStream(ctx context.Context, messages []client.ChatMessage, temperature float64, maxTokens int) (<-chan string, <-chan error)
}

// ConversationStore is the subset of the store the service needs.
type ConversationStore interface {
	CreateConversation(ctx context.Context, userID string, title *string) (*model.Conversation, error)
	GetConversation(ctx context.Context, userID, id string) (*model.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]model.Conversation, error)
	RenameConversation(ctx context.Context, userID, id, title string) (*model.Conversation, error)
	DeleteConversation(ctx context.Context, userID, id string) error
	AddMessage(ctx context.Context, conversationID string, role model.MessageRole, content string) (*model.Message, error)
	ListMessages(ctx context.Context, conversationID string) ([]model.Message, error)
}

// ConversationService manages chat threads and generates assistant replies.
type ConversationService struct {
	store     ConversationStore
	generator ChatGenerator
	logger    *slog.Logger
}

func NewConversationService(st ConversationStore, generator ChatGenerator, logger *slog.Logger) *ConversationService {
	return &ConversationService{store: st, generator: generator, logger: logger}
}

// Create opens a new conversation seeded with the assistant greeting.
func (s *ConversationService) Create(ctx context.Context, userID string, title *string) (*model.Conversation, *model.Message, error) {
	conv, err := s.store.CreateConversation(ctx, userID, title)
	if err != nil {
		return nil, nil, fmt.Errorf("create conversation: %w", err)
	}
	greeting, err := s.store.AddMessage(ctx, conv.ID, model.RoleAssistant, greetingMessage)
	if err != nil {
		return nil, nil, fmt.Errorf("seed greeting: %w", err)
	}
	return conv, greeting, nil
}

func (s *ConversationService) List(ctx context.Context, userID string) ([]model.Conversation, error) {
	return s.store.ListConversations(ctx, userID)
}

func (s *ConversationService) Get(ctx context.Context, userID, id string) (*model.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return conv, nil
}

func (s *ConversationService) Rename(ctx context.Context, userID, id, title string) (*model.Conversation, error) {
	conv, err := s.store.RenameConversation(ctx, userID, id, title)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("rename conversation: %w", err)
	}
	return conv, nil
}

func (s *ConversationService) Delete(ctx context.Context, userID, id string) error {
	err := s.store.DeleteConversation(ctx, userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrConversationNotFound
	}
	return err
}

// Messages returns the conversation history in chronological order.
func (s *ConversationService) Messages(ctx context.Context, userID, conversationID string) ([]model.Message, error) {
	if _, err := s.Get(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, conversationID)
}

// SendMessage stores the user's message, generates an assistant reply over
// the recent history, stores it, and returns both records.
func (s *ConversationService) SendMessage(ctx context.Context, userID, conversationID, content string) (*model.SendMessageResponse, error) {
	if _, err := s.Get(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	userMsg, err := s.store.AddMessage(ctx, conversationID, model.RoleUser, content)
	if err != nil {
		return nil, fmt.Errorf("store user message: %w", err)
	}

	chatContext, err := s.buildContext(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	reply, err := s.generator.ChatCompletion(ctx, chatContext, chatTemperature, chatMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("generate reply: %w", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, fmt.Errorf("model returned empty reply")
	}

	assistantMsg, err := s.store.AddMessage(ctx, conversationID, model.RoleAssistant, reply)
	if err != nil {
		return nil, fmt.Errorf("store assistant message: %w", err)
	}

	return &model.SendMessageResponse{
		UserMessage:      *userMsg,
		AssistantMessage: *assistantMsg,
	}, nil
}

// StreamMessage stores the user's message and streams the assistant reply as
// text fragments. The full reply is persisted once the stream finishes; a
// stream that dies midway persists nothing, so the client can retry cleanly.
func (s *ConversationService) StreamMessage(ctx context.Context, userID, conversationID, content string) (<-chan string, <-chan error, error) {
	if _, err := s.Get(ctx, userID, conversationID); err != nil {
		return nil, nil, err
	}

	if _, err := s.store.AddMessage(ctx, conversationID, model.RoleUser, content); err != nil {
		return nil, nil, fmt.Errorf("store user message: %w", err)
	}

	chatContext, err := s.buildContext(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}

	fragments, streamErrs := s.generator.ChatCompletionStream(ctx, chatContext, chatTemperature, chatMaxTokens)

	out := make(chan string)
	errs := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errs)

		var full strings.Builder
		for fragment := range fragments {
			full.WriteString(fragment)
			select {
			case out <- fragment:
			case <-ctx.Done():
				return
			}
		}
		if err := <-streamErrs; err != nil {
			errs <- err
			return
		}

		reply := strings.TrimSpace(full.String())
		if reply == "" {
			errs <- fmt.Errorf("model returned empty reply")
			return
		}
		if _, err := s.store.AddMessage(ctx, conversationID, model.RoleAssistant, reply); err != nil {
			s.logger.Error("could not persist streamed reply",
				"conversation_id", conversationID, "error", err)
			errs <- err
		}
	}()
	return out, errs, nil
}

// buildContext assembles the system prompt plus the most recent history,
// newest maxContextMessages only.
func (s *ConversationService) buildContext(ctx context.Context, conversationID string) ([]client.ChatMessage, error) {
	history, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if len(history) > maxContextMessages {
		history = history[len(history)-maxContextMessages:]
	}

	messages := make([]client.ChatMessage, 0, len(history)+1)
	messages = append(messages, client.ChatMessage{Role: "system", Content: chatSystemPrompt})
	for _, msg := range history {
		messages = append(messages, client.ChatMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return messages, nil
}
