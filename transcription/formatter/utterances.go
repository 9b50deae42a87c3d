package formatter

import (
	"strings"

	"github.com/kbukum/scribegate/transcription"
)

// BuildUtterances emits one utterance per non-empty segment. Each utterance
// carries its own word list and the raw trimmed segment text.
func (f *Formatter) BuildUtterances(segments []transcription.Segment) []Utterance {
	out := make([]Utterance, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		words := BuildWords(seg)
		out = append(out, Utterance{
			ID:         f.newID(),
			Start:      round3(seg.Start),
			End:        round3(seg.End),
			Confidence: round3(meanConfidence(words)),
			Channel:    0,
			Transcript: text,
			Words:      words,
			Speaker:    speakerRef(seg.Speaker),
		})
	}
	return out
}
