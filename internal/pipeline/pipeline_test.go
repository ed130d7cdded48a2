package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipcast/api/internal/client"
	"github.com/clipcast/api/internal/model"
)

type fakeStore struct {
	mu        sync.Mutex
	clips     map[string]*model.Clip
	completed map[string]model.ClipCompletion
	failed    map[string]string
	claimErr  error
}

func newFakeStore(clips ...*model.Clip) *fakeStore {
	s := &fakeStore{
		clips:     make(map[string]*model.Clip),
		completed: make(map[string]model.ClipCompletion),
		failed:    make(map[string]string),
	}
	for _, c := range clips {
		s.clips[c.ID] = c
	}
	return s
}

func (s *fakeStore) GetClip(_ context.Context, id string) (*model.Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clips[id]
	if !ok {
		return nil, fmt.Errorf("clip %s not found", id)
	}
	cp := *c
	return &cp, nil
}

func (s *fakeStore) ClaimClip(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claimErr != nil {
		return false, s.claimErr
	}
	c, ok := s.clips[id]
	if !ok || c.Status != model.ClipStatusPending {
		return false, nil
	}
	c.Status = model.ClipStatusProcessing
	return true, nil
}

func (s *fakeStore) MarkCompleted(_ context.Context, id string, result model.ClipCompletion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed[id] = result
	if c, ok := s.clips[id]; ok {
		c.Status = model.ClipStatusCompleted
	}
	return nil
}

func (s *fakeStore) MarkFailed(_ context.Context, id, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[id] = message
	if c, ok := s.clips[id]; ok {
		c.Status = model.ClipStatusFailed
	}
	return nil
}

type fakeExtractor struct {
	page  *client.ExtractedPage
	err   error
	calls int
}

func (f *fakeExtractor) Extract(_ context.Context, _ string) (*client.ExtractedPage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.page, nil
}

type fakeGenerator struct {
	script    string
	err       error
	panicWith any
	calls     int

	lastMessages  []client.ChatMessage
	lastMaxTokens int
}

func (f *fakeGenerator) ChatCompletion(_ context.Context, messages []client.ChatMessage, _ float64, maxTokens int) (string, error) {
	f.calls++
	f.lastMessages = messages
	f.lastMaxTokens = maxTokens
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	if f.err != nil {
		return "", f.err
	}
	return f.script, nil
}

type fakeSynthesizer struct {
	audio []byte
	err   error
	calls int
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, _ string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.audio, nil
}

type fakeStorage struct {
	uploads map[string][]byte
	signed  string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{uploads: make(map[string][]byte), signed: "https://r2.example.com/signed"}
}

func (f *fakeStorage) Upload(_ context.Context, key string, data []byte, _ string) error {
	f.uploads[key] = data
	return nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	delete(f.uploads, key)
	return nil
}

func (f *fakeStorage) GetSignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return f.signed + "/" + key, nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	completed []string
	failed    []string
}

func (f *fakeNotifier) ClipCompleted(clipID, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, clipID)
}

func (f *fakeNotifier) ClipFailed(clipID, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, clipID)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pendingClip(id string, inputType model.InputType, content string, minutes int) *model.Clip {
	return &model.Clip{
		ID:             id,
		UserID:         "user-1",
		InputType:      inputType,
		InputContent:   content,
		TargetDuration: minutes,
		Status:         model.ClipStatusPending,
	}
}

func TestProcessOneNoteCompletes(t *testing.T) {
	clip := pendingClip("clip-1", model.InputTypeNote, "some thoughts on testing", 5)
	store := newFakeStore(clip)
	extractor := &fakeExtractor{}
	generator := &fakeGenerator{script: "Here is your five minute script."}
	synth := &fakeSynthesizer{audio: []byte("not-really-mp3")}
	storage := newFakeStorage()
	notifier := &fakeNotifier{}

	p := New(store, extractor, generator, synth, storage, 24*time.Hour, notifier, discardLogger())
	result := p.ProcessOne(context.Background(), "clip-1")

	require.True(t, result.Success)
	assert.False(t, result.Skipped)
	assert.Empty(t, result.Err)

	// Note inputs never touch the web.
	assert.Zero(t, extractor.calls)

	done, ok := store.completed["clip-1"]
	require.True(t, ok)
	assert.Equal(t, "Here is your five minute script.", done.Script)
	assert.NotEmpty(t, done.AudioURL)
	assert.Empty(t, done.PageTitle)
	assert.Positive(t, done.ActualDuration)

	// Audio was uploaded under the deterministic key before signing.
	_, uploaded := storage.uploads[AudioKey("clip-1")]
	assert.True(t, uploaded)
	assert.Contains(t, done.AudioURL, AudioKey("clip-1"))

	assert.Equal(t, []string{"clip-1"}, notifier.completed)
}

func TestProcessOneURLRecordsTitle(t *testing.T) {
	clip := pendingClip("clip-2", model.InputTypeURL, "https://example.com/post", 2)
	store := newFakeStore(clip)
	extractor := &fakeExtractor{page: &client.ExtractedPage{Text: "article body", Title: "A Post"}}
	generator := &fakeGenerator{script: "Script from an article."}
	synth := &fakeSynthesizer{audio: []byte("mp3")}

	p := New(store, extractor, generator, synth, newFakeStorage(), time.Hour, nil, discardLogger())
	result := p.ProcessOne(context.Background(), "clip-2")

	require.True(t, result.Success)
	assert.Equal(t, 1, extractor.calls)
	assert.Equal(t, "A Post", store.completed["clip-2"].PageTitle)
}

func TestProcessOneTargetWordCountInPrompt(t *testing.T) {
	clip := pendingClip("clip-3", model.InputTypeNote, "note", 5)
	clip.ContextInstruction = "focus on the ending"
	store := newFakeStore(clip)
	generator := &fakeGenerator{script: "script"}

	p := New(store, &fakeExtractor{}, generator, &fakeSynthesizer{audio: []byte("a")},
		newFakeStorage(), time.Hour, nil, discardLogger())
	result := p.ProcessOne(context.Background(), "clip-3")
	require.True(t, result.Success)

	require.Len(t, generator.lastMessages, 2)
	assert.Equal(t, "system", generator.lastMessages[0].Role)
	user := generator.lastMessages[1].Content
	// 5 minutes at 150 wpm.
	assert.Contains(t, user, "approximately 750 words")
	assert.Contains(t, user, "SPECIAL FOCUS: focus on the ending")
	assert.Equal(t, 1500, generator.lastMaxTokens)
}

func TestProcessOneExtractionFailureHalts(t *testing.T) {
	clip := pendingClip("clip-4", model.InputTypeURL, "https://example.com", 2)
	store := newFakeStore(clip)
	extractor := &fakeExtractor{err: fmt.Errorf("fetch timeout")}
	generator := &fakeGenerator{script: "unused"}
	synth := &fakeSynthesizer{audio: []byte("unused")}
	storage := newFakeStorage()
	notifier := &fakeNotifier{}

	p := New(store, extractor, generator, synth, storage, time.Hour, notifier, discardLogger())
	result := p.ProcessOne(context.Background(), "clip-4")

	require.False(t, result.Success)
	assert.Equal(t, "content extraction failed: fetch timeout", result.Err)
	assert.Equal(t, result.Err, store.failed["clip-4"])

	// Later stages never run after a failure.
	assert.Zero(t, generator.calls)
	assert.Zero(t, synth.calls)
	assert.Empty(t, storage.uploads)
	assert.Empty(t, store.completed)
	assert.Equal(t, []string{"clip-4"}, notifier.failed)
}

func TestProcessOneSynthesisFailureSkipsUpload(t *testing.T) {
	clip := pendingClip("clip-5", model.InputTypeNote, "note", 2)
	store := newFakeStore(clip)
	synth := &fakeSynthesizer{err: fmt.Errorf("voice service unavailable")}
	storage := newFakeStorage()

	p := New(store, &fakeExtractor{}, &fakeGenerator{script: "script"}, synth, storage,
		time.Hour, nil, discardLogger())
	result := p.ProcessOne(context.Background(), "clip-5")

	require.False(t, result.Success)
	assert.True(t, strings.HasPrefix(result.Err, "audio synthesis failed:"))
	assert.Contains(t, store.failed["clip-5"], "voice service unavailable")
	assert.Empty(t, storage.uploads)
}

func TestProcessOneLostClaimSkips(t *testing.T) {
	clip := pendingClip("clip-6", model.InputTypeNote, "note", 2)
	clip.Status = model.ClipStatusProcessing // already claimed elsewhere
	store := newFakeStore(clip)
	generator := &fakeGenerator{script: "unused"}

	p := New(store, &fakeExtractor{}, generator, &fakeSynthesizer{}, newFakeStorage(),
		time.Hour, nil, discardLogger())
	result := p.ProcessOne(context.Background(), "clip-6")

	assert.True(t, result.Skipped)
	assert.False(t, result.Success)
	assert.Zero(t, generator.calls)
	assert.Empty(t, store.failed)
}

func TestProcessOneMissingClipSkips(t *testing.T) {
	store := newFakeStore()
	p := New(store, &fakeExtractor{}, &fakeGenerator{}, &fakeSynthesizer{}, newFakeStorage(),
		time.Hour, nil, discardLogger())
	result := p.ProcessOne(context.Background(), "nope")
	assert.True(t, result.Skipped)
}

func TestProcessOneUnknownInputTypeFails(t *testing.T) {
	clip := pendingClip("clip-7", model.InputType("carrier-pigeon"), "x", 2)
	store := newFakeStore(clip)

	p := New(store, &fakeExtractor{}, &fakeGenerator{}, &fakeSynthesizer{}, newFakeStorage(),
		time.Hour, nil, discardLogger())
	result := p.ProcessOne(context.Background(), "clip-7")

	require.False(t, result.Success)
	assert.Contains(t, result.Err, "unknown input type")
	assert.Contains(t, store.failed["clip-7"], "carrier-pigeon")
}

func TestProcessOnePanicBecomesFailedStatus(t *testing.T) {
	clip := pendingClip("clip-8", model.InputTypeNote, "note", 2)
	store := newFakeStore(clip)
	generator := &fakeGenerator{panicWith: "generator exploded"}

	p := New(store, &fakeExtractor{}, generator, &fakeSynthesizer{}, newFakeStorage(),
		time.Hour, nil, discardLogger())

	var result Result
	require.NotPanics(t, func() {
		result = p.ProcessOne(context.Background(), "clip-8")
	})
	assert.False(t, result.Success)
	assert.Contains(t, result.Err, "unexpected failure")
	assert.Contains(t, store.failed["clip-8"], "generator exploded")
}

func TestProcessOneEmptyScriptIsFailure(t *testing.T) {
	clip := pendingClip("clip-9", model.InputTypeNote, "note", 2)
	store := newFakeStore(clip)
	generator := &fakeGenerator{script: "   "}

	p := New(store, &fakeExtractor{}, generator, &fakeSynthesizer{}, newFakeStorage(),
		time.Hour, nil, discardLogger())
	result := p.ProcessOne(context.Background(), "clip-9")

	require.False(t, result.Success)
	assert.Contains(t, result.Err, "script generation failed")
}

func TestEntryStageRouting(t *testing.T) {
	note, err := entryStage(model.InputTypeNote)
	require.NoError(t, err)
	assert.Equal(t, StageExtractNote, note)

	url, err := entryStage(model.InputTypeURL)
	require.NoError(t, err)
	assert.Equal(t, StageExtractURL, url)

	_, err = entryStage(model.InputType("ouija"))
	assert.Error(t, err)
}

func TestSequenceForAlwaysEndsInFinalize(t *testing.T) {
	for _, entry := range []Stage{StageExtractNote, StageExtractURL} {
		seq := sequenceFor(entry)
		require.Len(t, seq, 5)
		assert.Equal(t, entry, seq[0])
		assert.Equal(t, StageFinalize, seq[len(seq)-1])
	}
}

func TestAudioKeyFormat(t *testing.T) {
	assert.Equal(t, "clips/abc-123.mp3", AudioKey("abc-123"))
}
