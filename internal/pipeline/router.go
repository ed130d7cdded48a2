package pipeline

import (
	"fmt"

	"github.com/clipcast/api/internal/model"
)

// Stage identifies one step of the processing pipeline.
type Stage int

const (
	StageExtractNote Stage = iota
	StageExtractURL
	StageGenerateScript
	StageSynthesizeAudio
	StageStoreArtifact
	StageFinalize
)

func (s Stage) String() string {
	switch s {
	case StageExtractNote:
		return "extract-note"
	case StageExtractURL:
		return "extract-url"
	case StageGenerateScript:
		return "generate-script"
	case StageSynthesizeAudio:
		return "synthesize-audio"
	case StageStoreArtifact:
		return "store-artifact"
	case StageFinalize:
		return "finalize"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// entryStage maps an input type to the pipeline's entry stage. The mapping is
// total over the known input types and fails loudly for anything else rather
// than silently mis-routing.
func entryStage(t model.InputType) (Stage, error) {
	switch t {
	case model.InputTypeNote:
		return StageExtractNote, nil
	case model.InputTypeURL:
		return StageExtractURL, nil
	}
	return 0, fmt.Errorf("unknown input type %q", t)
}

// sequenceFor returns the fixed stage order for an entry stage.
func sequenceFor(entry Stage) []Stage {
	return []Stage{entry, StageGenerateScript, StageSynthesizeAudio, StageStoreArtifact, StageFinalize}
}
