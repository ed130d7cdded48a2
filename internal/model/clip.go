package model

import "time"

// Input types
type InputType string

const (
	InputTypeURL  InputType = "url"
	InputTypeNote InputType = "note"
)

var ValidInputTypes = []InputType{InputTypeURL, InputTypeNote}

// Clip status lifecycle: pending -> processing -> completed | failed
type ClipStatus string

const (
	ClipStatusPending    ClipStatus = "pending"
	ClipStatusProcessing ClipStatus = "processing"
	ClipStatusCompleted  ClipStatus = "completed"
	ClipStatusFailed     ClipStatus = "failed"
)

var ValidClipStatuses = []ClipStatus{
	ClipStatusPending, ClipStatusProcessing, ClipStatusCompleted, ClipStatusFailed,
}

// Allowed target durations in minutes
var ValidTargetDurations = []int{2, 5, 10}

// IsValidTargetDuration reports whether d is one of the supported durations.
func IsValidTargetDuration(d int) bool {
	for _, v := range ValidTargetDurations {
		if v == d {
			return true
		}
	}
	return false
}

// Clip represents a content-to-audio conversion request
type Clip struct {
	ID                   string     `json:"id"`
	UserID               string     `json:"userId"`
	InputType            InputType  `json:"inputType"`
	InputContent         string     `json:"inputContent"`
	TargetDuration       int        `json:"targetDuration"` // minutes
	ContextInstruction   string     `json:"contextInstruction,omitempty"`
	Status               ClipStatus `json:"status"`
	Script               string     `json:"script,omitempty"`
	PageTitle            string     `json:"pageTitle,omitempty"`
	AudioURL             string     `json:"audioUrl,omitempty"`
	ActualDuration       int        `json:"actualDuration,omitempty"` // seconds
	ErrorMessage         *string    `json:"errorMessage,omitempty"`
	IsFavorited          bool       `json:"isFavorited"`
	CreatedAt            time.Time  `json:"createdAt"`
	StartedProcessingAt  *time.Time `json:"startedProcessingAt,omitempty"`
	CompletedAt          *time.Time `json:"completedAt,omitempty"`
}

// ClipCompletion carries the terminal success fields written by the pipeline.
type ClipCompletion struct {
	Script         string
	AudioURL       string
	ActualDuration int    // seconds
	PageTitle      string // empty for note inputs
}

// PlaybackProgress tracks a user's position within a clip
type PlaybackProgress struct {
	UserID          string     `json:"-"`
	ClipID          string     `json:"clipId"`
	PositionSeconds int        `json:"positionSeconds"`
	HasCompleted    bool       `json:"hasCompleted"`
	LastPlayedAt    *time.Time `json:"lastPlayedAt,omitempty"`
}
