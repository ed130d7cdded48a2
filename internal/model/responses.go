package model

// ClipsListResponse is a paginated list of clips
type ClipsListResponse struct {
	Clips []Clip `json:"clips"`
	Total int    `json:"total"`
}

// ConversationsListResponse lists a user's conversations, most recent first
type ConversationsListResponse struct {
	Conversations []Conversation `json:"conversations"`
}

// MessagesListResponse lists a conversation's messages chronologically
type MessagesListResponse struct {
	Messages []Message `json:"messages"`
}

// SendMessageResponse is the non-streaming chat reply
type SendMessageResponse struct {
	UserMessage      Message `json:"userMessage"`
	AssistantMessage Message `json:"assistantMessage"`
}
