// Package media provides audio payload inspection helpers.
package media

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/tcolgate/mp3"
)

// MP3Duration returns the playing time of an MP3 payload by summing frame
// durations. Returns an error if no frames can be decoded.
func MP3Duration(data []byte) (time.Duration, error) {
	decoder := mp3.NewDecoder(bytes.NewReader(data))

	var (
		frame   mp3.Frame
		skipped int
		total   time.Duration
		frames  int
	)
	for {
		err := decoder.Decode(&frame, &skipped)
		if err == io.EOF {
			break
		}
		if err != nil {
			// Trailing garbage after valid frames is tolerated.
			if frames > 0 {
				break
			}
			return 0, fmt.Errorf("decode mp3 frame: %w", err)
		}
		total += frame.Duration()
		frames++
	}

	if frames == 0 {
		return 0, fmt.Errorf("no mp3 frames found")
	}
	return total, nil
}

// EstimateSpokenSeconds approximates audio length from a script's word count
// at a podcast speaking rate of 150 words per minute.
func EstimateSpokenSeconds(script string) int {
	words := len(strings.Fields(script))
	return int(math.Round(float64(words) / 150.0 * 60.0))
}
