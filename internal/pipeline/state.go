package pipeline

import "github.com/clipcast/api/internal/model"

// State is the record threaded through the pipeline stages for one run. It
// is owned exclusively by the executing worker and discarded afterwards.
//
// The input-derived fields are set at construction and never change. Each of
// the remaining fields is written by exactly one stage and read by at most
// the next; stages signal failure by returning an error instead of touching
// fields they do not own.
type State struct {
	// Input-derived, immutable after construction
	ClipID             string
	InputType          model.InputType
	InputContent       string
	TargetDuration     int // minutes
	ContextInstruction string

	// Stage-populated
	ExtractedContent string // extract-note or extract-url
	PageTitle        string // extract-url only
	Script           string // generate-script
	AudioData        []byte // synthesize-audio
	ActualDuration   int    // synthesize-audio, seconds
	AudioKey         string // store-artifact
	AudioURL         string // store-artifact
}

// NewState builds a fresh state from a clip snapshot.
func NewState(clip *model.Clip) *State {
	return &State{
		ClipID:             clip.ID,
		InputType:          clip.InputType,
		InputContent:       clip.InputContent,
		TargetDuration:     clip.TargetDuration,
		ContextInstruction: clip.ContextInstruction,
	}
}
