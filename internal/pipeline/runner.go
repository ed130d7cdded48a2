package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/clipcast/api/internal/client"
	"github.com/clipcast/api/internal/model"
)

// stageErrorPrefix maps a failed stage to its operator-facing message tag.
func stageErrorPrefix(s Stage) string {
	switch s {
	case StageExtractNote, StageExtractURL:
		return "content extraction failed"
	case StageGenerateScript:
		return "script generation failed"
	case StageSynthesizeAudio:
		return "audio synthesis failed"
	case StageStoreArtifact:
		return "audio storage failed"
	case StageFinalize:
		return "finalize failed"
	}
	return "processing failed"
}

// StageError records which stage a run failed in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", stageErrorPrefix(e.Stage), e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Notifier receives clip status transitions. Implementations must not block.
type Notifier interface {
	ClipCompleted(clipID, audioURL string)
	ClipFailed(clipID, message string)
}

// Result is the outcome of one pipeline invocation.
type Result struct {
	ClipID  string
	Success bool
	Skipped bool   // claim lost or clip vanished; not an error
	Err     string // terminal failure message, empty on success/skip
}

// Pipeline drives a clip through extraction, script generation, speech
// synthesis and storage, and writes the terminal status.
type Pipeline struct {
	store        ClipStore
	extractor    Extractor
	generator    TextGenerator
	synthesizer  SpeechSynthesizer
	storage      client.StorageClient
	signedURLTTL time.Duration
	notifier     Notifier
	logger       *slog.Logger
}

// New creates a pipeline. notifier may be nil.
func New(
	store ClipStore,
	extractor Extractor,
	generator TextGenerator,
	synthesizer SpeechSynthesizer,
	storage client.StorageClient,
	signedURLTTL time.Duration,
	notifier Notifier,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		store:        store,
		extractor:    extractor,
		generator:    generator,
		synthesizer:  synthesizer,
		storage:      storage,
		signedURLTTL: signedURLTTL,
		notifier:     notifier,
		logger:       logger,
	}
}

// ProcessOne claims the clip and runs it through the whole pipeline. Losing
// the claim race (or the clip having vanished) is a skip, not an error. Any
// failure inside the run is captured and written as the clip's terminal
// failed status; ProcessOne itself never panics or returns an error that
// could take down the calling loop.
func (p *Pipeline) ProcessOne(ctx context.Context, clipID string) Result {
	clip, err := p.store.GetClip(ctx, clipID)
	if err != nil {
		p.logger.Warn("clip not found, skipping", "clip_id", clipID, "error", err)
		return Result{ClipID: clipID, Skipped: true}
	}

	claimed, err := p.store.ClaimClip(ctx, clipID)
	if err != nil {
		p.logger.Error("claim failed", "clip_id", clipID, "error", err)
		return Result{ClipID: clipID, Skipped: true}
	}
	if !claimed {
		// Another dispatcher won the race.
		return Result{ClipID: clipID, Skipped: true}
	}

	return p.run(ctx, clip)
}

func (p *Pipeline) run(ctx context.Context, clip *model.Clip) (result Result) {
	state := NewState(clip)
	result = Result{ClipID: state.ClipID}

	// Unexpected faults (including a store that dies mid-run) must never
	// escape to the dispatcher loop.
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("unexpected failure: %v", r)
			p.logger.Error("pipeline panic", "clip_id", state.ClipID, "panic", r)
			p.fail(ctx, state.ClipID, msg)
			result = Result{ClipID: state.ClipID, Err: msg}
		}
	}()

	entry, err := entryStage(state.InputType)
	if err != nil {
		msg := fmt.Sprintf("processing failed: %v", err)
		p.fail(ctx, state.ClipID, msg)
		return Result{ClipID: state.ClipID, Err: msg}
	}

	p.logger.Info("processing clip", "clip_id", state.ClipID, "input_type", state.InputType)

	for _, stage := range sequenceFor(entry) {
		if err := p.runStage(ctx, stage, state); err != nil {
			stageErr := &StageError{Stage: stage, Err: err}
			p.logger.Error("stage failed",
				"clip_id", state.ClipID, "stage", stage.String(), "error", err)
			p.fail(ctx, state.ClipID, stageErr.Error())
			return Result{ClipID: state.ClipID, Err: stageErr.Error()}
		}
	}

	p.logger.Info("clip completed", "clip_id", state.ClipID, "duration_seconds", state.ActualDuration)
	if p.notifier != nil {
		p.notifier.ClipCompleted(state.ClipID, state.AudioURL)
	}
	return Result{ClipID: state.ClipID, Success: true}
}

func (p *Pipeline) runStage(ctx context.Context, stage Stage, state *State) error {
	switch stage {
	case StageExtractNote:
		return p.extractNote(ctx, state)
	case StageExtractURL:
		return p.extractURL(ctx, state)
	case StageGenerateScript:
		return p.generateScript(ctx, state)
	case StageSynthesizeAudio:
		return p.synthesizeAudio(ctx, state)
	case StageStoreArtifact:
		return p.storeArtifact(ctx, state)
	case StageFinalize:
		return p.finalize(ctx, state)
	}
	return fmt.Errorf("unknown stage %v", stage)
}

// fail records the terminal failed status, preserving the message verbatim.
func (p *Pipeline) fail(ctx context.Context, clipID, message string) {
	if err := p.store.MarkFailed(ctx, clipID, message); err != nil {
		p.logger.Error("could not mark clip failed", "clip_id", clipID, "error", err)
	}
	if p.notifier != nil {
		p.notifier.ClipFailed(clipID, message)
	}
}
