package formatter

import (
	"strings"

	"github.com/kbukum/scribegate/transcription"
)

// AssembleTranscript joins the trimmed text of every non-empty segment with
// single spaces and returns it with the flat word list of all segments and
// their mean confidence.
func AssembleTranscript(segments []transcription.Segment) (string, []Word, float64) {
	parts := make([]string, 0, len(segments))
	words := make([]Word, 0)
	for _, seg := range segments {
		words = append(words, BuildWords(seg)...)
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), words, meanConfidence(words)
}
