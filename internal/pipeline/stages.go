package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/clipcast/api/internal/client"
	"github.com/clipcast/api/internal/media"
	"github.com/clipcast/api/internal/model"
)

// Average speaking rate for podcast-style narration, words per minute.
const wordsPerMinute = 150

// Sampling temperature for script prose: creative but consistent.
const scriptTemperature = 0.7

const scriptSystemPrompt = `You are an expert podcast script writer. Your job is to transform written content into engaging spoken-word scripts.

Key requirements:
- Write for EARS, not eyes - no bullet points, lists, or visual formatting
- Use a conversational, natural speaking style
- Be informative and credible - speak with authority
- Use smooth transitions between ideas
- Include natural pauses and breathing room in the narrative
- Make complex topics accessible without dumbing them down

Your scripts should sound like a knowledgeable friend explaining something interesting over coffee.`

// ClipStore is the subset of the request store the pipeline needs.
type ClipStore interface {
	GetClip(ctx context.Context, id string) (*model.Clip, error)
	ClaimClip(ctx context.Context, id string) (bool, error)
	MarkCompleted(ctx context.Context, id string, result model.ClipCompletion) error
	MarkFailed(ctx context.Context, id, message string) error
}

// Extractor pulls readable text out of a web page.
type Extractor interface {
	Extract(ctx context.Context, pageURL string) (*client.ExtractedPage, error)
}

// TextGenerator produces prose from a prompt.
type TextGenerator interface {
	ChatCompletion(ctx context.Context, messages []client.ChatMessage, temperature float64, maxTokens int) (string, error)
}

// SpeechSynthesizer turns a script into a complete MP3 payload.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// extractNote copies the raw note text into the extracted-content field.
// No external call is made for note inputs.
func (p *Pipeline) extractNote(_ context.Context, state *State) error {
	if state.InputContent == "" {
		return fmt.Errorf("missing input content")
	}
	state.ExtractedContent = state.InputContent
	return nil
}

// extractURL fetches the page and populates extracted content and title.
func (p *Pipeline) extractURL(ctx context.Context, state *State) error {
	page, err := p.extractor.Extract(ctx, state.InputContent)
	if err != nil {
		return err
	}
	state.ExtractedContent = page.Text
	state.PageTitle = page.Title
	return nil
}

// generateScript asks the language model for a spoken-word script sized to
// the target duration.
func (p *Pipeline) generateScript(ctx context.Context, state *State) error {
	if state.ExtractedContent == "" {
		return fmt.Errorf("no content to transform")
	}

	targetWordCount := state.TargetDuration * wordsPerMinute

	contextSection := ""
	if state.ContextInstruction != "" {
		contextSection = fmt.Sprintf("\nSPECIAL FOCUS: %s", state.ContextInstruction)
	}

	userPrompt := fmt.Sprintf(`Create a podcast-style audio script based on the following content.

TARGET DURATION: %d minutes (approximately %d words)
%s

CONTENT TO TRANSFORM:
%s

INSTRUCTIONS:
1. Craft a natural, conversational script that flows smoothly when read aloud
2. Target approximately %d words (for %d minutes of audio)
3. Open with a brief hook to engage the listener
4. Present information in a logical, easy-to-follow narrative
5. Use natural speech patterns - contractions, rhetorical questions, etc.
6. Close with a satisfying conclusion or key takeaway
7. NO bullet points, lists, or "wall of text" - just natural spoken narrative

Write ONLY the script - no meta-commentary, stage directions, or labels.`,
		state.TargetDuration, targetWordCount, contextSection,
		state.ExtractedContent, targetWordCount, state.TargetDuration)

	messages := []client.ChatMessage{
		{Role: "system", Content: scriptSystemPrompt},
		{Role: "user", Content: userPrompt},
	}

	// Budget roughly two tokens per target word so long scripts aren't cut off.
	maxTokens := targetWordCount * 2
	if maxTokens < 1024 {
		maxTokens = 1024
	}

	script, err := p.generator.ChatCompletion(ctx, messages, scriptTemperature, maxTokens)
	if err != nil {
		return err
	}

	script = strings.TrimSpace(script)
	if script == "" {
		return fmt.Errorf("model returned empty script")
	}

	state.Script = script
	return nil
}

// synthesizeAudio converts the script to MP3 and measures its duration,
// falling back to a word-count estimate when the payload can't be decoded.
func (p *Pipeline) synthesizeAudio(ctx context.Context, state *State) error {
	if state.Script == "" {
		return fmt.Errorf("no script to synthesize")
	}

	audio, err := p.synthesizer.Synthesize(ctx, state.Script)
	if err != nil {
		return err
	}

	state.AudioData = audio

	if d, err := media.MP3Duration(audio); err == nil {
		state.ActualDuration = int(d.Round(time.Second).Seconds())
	} else {
		p.logger.Warn("could not measure audio duration, using estimate",
			"clip_id", state.ClipID, "error", err)
		state.ActualDuration = media.EstimateSpokenSeconds(state.Script)
	}

	return nil
}

// storeArtifact uploads the audio to the private bucket and obtains a
// long-lived signed reference. The reference is only handed out after the
// upload is confirmed, so a completed clip never points at a missing object.
func (p *Pipeline) storeArtifact(ctx context.Context, state *State) error {
	if len(state.AudioData) == 0 {
		return fmt.Errorf("no audio payload to store")
	}

	key := AudioKey(state.ClipID)
	if err := p.storage.Upload(ctx, key, state.AudioData, "audio/mpeg"); err != nil {
		return err
	}
	state.AudioKey = key

	signedURL, err := p.storage.GetSignedURL(ctx, key, p.signedURLTTL)
	if err != nil {
		return err
	}
	state.AudioURL = signedURL
	return nil
}

// finalize writes the terminal completed fields to the clip store.
func (p *Pipeline) finalize(ctx context.Context, state *State) error {
	return p.store.MarkCompleted(ctx, state.ClipID, model.ClipCompletion{
		Script:         state.Script,
		AudioURL:       state.AudioURL,
		ActualDuration: state.ActualDuration,
		PageTitle:      state.PageTitle,
	})
}

// AudioKey returns the object storage key for a clip's audio artifact.
func AudioKey(clipID string) string {
	return fmt.Sprintf("clips/%s.mp3", clipID)
}
