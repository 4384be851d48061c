// Package transcript holds the timed segment type shared by every
// transcript source and renders segments into the prompt line format.
package transcript

import (
	"fmt"
	"strings"
)

// DefaultSpeaker labels caption lines, which carry no speaker information.
const DefaultSpeaker = "SPEAKER_00"

// unknownSpeaker is printed for segments the diarizer could not attribute.
const unknownSpeaker = "None"

// Segment is one timed piece of speech.
type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker,omitempty"`
	Text    string  `json:"text"`
}

// FormatTimestamp renders seconds as HH:MM:SS, truncating fractions.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	hours, rest := total/3600, total%3600
	return fmt.Sprintf("%02d:%02d:%02d", hours, rest/60, rest%60)
}

// Format renders segments one per line as
// "[start - end] SPEAKER: text".
func Format(segments []Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		speaker := seg.Speaker
		if speaker == "" {
			speaker = unknownSpeaker
		}
		fmt.Fprintf(&b, "[%s - %s] %s: %s\n", FormatTimestamp(seg.Start), FormatTimestamp(seg.End), speaker, seg.Text)
	}
	return b.String()
}

// WithSpeaker returns a copy of segments where unlabeled entries get speaker.
func WithSpeaker(segments []Segment, speaker string) []Segment {
	out := make([]Segment, len(segments))
	for i, seg := range segments {
		if seg.Speaker == "" {
			seg.Speaker = speaker
		}
		out[i] = seg
	}
	return out
}

// HasText reports whether any segment carries non-blank text.
func HasText(segments []Segment) bool {
	for _, seg := range segments {
		if strings.TrimSpace(seg.Text) != "" {
			return true
		}
	}
	return false
}
