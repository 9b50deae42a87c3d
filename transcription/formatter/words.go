package formatter

import (
	"math"
	"strings"

	"github.com/kbukum/scribegate/transcription"
)

// DefaultConfidence is used when a word or transcript carries no score.
const DefaultConfidence = 0.8

// BuildWords returns the timed words of a segment. Supplied word-level data
// is used when present; otherwise the segment text is split on whitespace
// and the segment duration is divided evenly across the words.
//
// A segment whose end precedes its start yields negative word durations.
func BuildWords(seg transcription.Segment) []Word {
	if len(seg.Words) > 0 {
		return wordsFromInput(seg)
	}
	return interpolateWords(seg)
}

func wordsFromInput(seg transcription.Segment) []Word {
	out := make([]Word, 0, len(seg.Words))
	for _, w := range seg.Words {
		start := seg.Start
		if w.Start != nil {
			start = *w.Start
		}
		end := seg.End
		if w.End != nil {
			end = *w.End
		}
		confidence := DefaultConfidence
		switch {
		case w.Score != nil:
			confidence = *w.Score
		case w.Confidence != nil:
			confidence = *w.Confidence
		}
		speaker := seg.Speaker
		if !w.Speaker.IsZero() {
			speaker = w.Speaker
		}
		out = append(out, Word{
			Word:       w.Word,
			Start:      round3(start),
			End:        round3(end),
			Confidence: confidence,
			Speaker:    speakerRef(speaker),
		})
	}
	return out
}

func interpolateWords(seg transcription.Segment) []Word {
	tokens := strings.Fields(seg.Text)
	if len(tokens) == 0 {
		return []Word{}
	}
	wordDuration := (seg.End - seg.Start) / float64(len(tokens))
	out := make([]Word, 0, len(tokens))
	for i, token := range tokens {
		start := seg.Start + float64(i)*wordDuration
		out = append(out, Word{
			Word:       token,
			Start:      round3(start),
			End:        round3(start + wordDuration),
			Confidence: DefaultConfidence,
			Speaker:    speakerRef(seg.Speaker),
		})
	}
	return out
}

// meanConfidence returns the mean word confidence, or DefaultConfidence
// when there are no words.
func meanConfidence(words []Word) float64 {
	if len(words) == 0 {
		return DefaultConfidence
	}
	var sum float64
	for _, w := range words {
		sum += w.Confidence
	}
	return sum / float64(len(words))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
