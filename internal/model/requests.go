package model

// CreateClipRequest is the body for POST /api/clips
type CreateClipRequest struct {
	InputType          InputType `json:"inputType" validate:"required,oneof=url note"`
	InputContent       string    `json:"inputContent" validate:"required,min=1,max=10000"`
	TargetDuration     int       `json:"targetDuration" validate:"required,oneof=2 5 10"`
	ContextInstruction string    `json:"contextInstruction,omitempty" validate:"omitempty,max=500"`
}

// SetFavoriteRequest is the body for PATCH /api/clips/:id/favorite
type SetFavoriteRequest struct {
	IsFavorited bool `json:"isFavorited"`
}

// UpdateProgressRequest is the body for PUT /api/clips/:id/progress
type UpdateProgressRequest struct {
	PositionSeconds int  `json:"positionSeconds" validate:"min=0"`
	HasCompleted    bool `json:"hasCompleted"`
}

// CreateConversationRequest is the body for POST /api/conversations
type CreateConversationRequest struct {
	Title string `json:"title,omitempty" validate:"omitempty,max=200"`
}

// UpdateConversationRequest is the body for PATCH /api/conversations/:id
type UpdateConversationRequest struct {
	Title string `json:"title" validate:"required,min=1,max=200"`
}

// SendMessageRequest is the body for POST /api/conversations/:id/messages
type SendMessageRequest struct {
	Content string `json:"content" validate:"required,min=1,max=4000"`
	Stream  bool   `json:"stream,omitempty"`
}
