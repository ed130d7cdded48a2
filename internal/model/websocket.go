package model

// WebSocket message types
const (
	WSMessageTypeStatus = "status"
	WSMessageTypeError  = "error"
)

// WSStatusMessage notifies subscribers of a clip status transition
type WSStatusMessage struct {
	Type     string     `json:"type"`
	ClipID   string     `json:"clipId"`
	Status   ClipStatus `json:"status"`
	AudioURL string     `json:"audioUrl,omitempty"`
}

// WSErrorMessage notifies subscribers that processing failed
type WSErrorMessage struct {
	Type    string `json:"type"`
	ClipID  string `json:"clipId"`
	Message string `json:"message"`
}
