package formatter

import (
	"strings"

	"github.com/kbukum/scribegate/transcription"
)

// GroupParagraphs groups consecutive non-empty segments into paragraphs,
// opening a new paragraph whenever the normalized speaker changes. Segments
// from the same speaker are never split, regardless of the gap between them.
func GroupParagraphs(segments []transcription.Segment) []Paragraph {
	paragraphs := make([]Paragraph, 0)
	var current *Paragraph
	var currentSpeaker *int

	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		speaker := speakerRef(seg.Speaker)
		if current == nil || !sameSpeaker(speaker, currentSpeaker) {
			if current != nil {
				paragraphs = append(paragraphs, *current)
			}
			current = &Paragraph{
				Sentences: make([]Sentence, 0, 1),
				Speaker:   speaker,
				Start:     round3(seg.Start),
				End:       round3(seg.End),
			}
			currentSpeaker = speaker
		}
		current.Sentences = append(current.Sentences, Sentence{
			Text:  text,
			Start: round3(seg.Start),
			End:   round3(seg.End),
		})
		current.End = round3(seg.End)
		current.NumWords += len(strings.Fields(text))
	}
	if current != nil {
		paragraphs = append(paragraphs, *current)
	}
	return paragraphs
}

func sameSpeaker(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
