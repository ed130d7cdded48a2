package media

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMP3DurationRejectsGarbage(t *testing.T) {
	_, err := MP3Duration([]byte("definitely not an mp3 payload"))
	assert.Error(t, err)

	_, err = MP3Duration(nil)
	assert.Error(t, err)
}

func TestEstimateSpokenSeconds(t *testing.T) {
	// 150 words at 150 wpm is one minute.
	script := strings.TrimSpace(strings.Repeat("word ", 150))
	assert.Equal(t, 60, EstimateSpokenSeconds(script))

	assert.Equal(t, 0, EstimateSpokenSeconds(""))

	// 75 words is half a minute.
	script = strings.TrimSpace(strings.Repeat("word ", 75))
	assert.Equal(t, 30, EstimateSpokenSeconds(script))
}
