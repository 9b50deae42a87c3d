package formatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/scribegate/transcription"
)

func TestBuildWordsConfidencePrecedence(t *testing.T) {
	tests := []struct {
		name string
		word transcription.Word
		want float64
	}{
		{"score wins", transcription.Word{Word: "a", Score: f64(0.7), Confidence: f64(0.95)}, 0.7},
		{"confidence when no score", transcription.Word{Word: "a", Confidence: f64(0.95)}, 0.95},
		{"default", transcription.Word{Word: "a"}, DefaultConfidence},
		{"not clipped", transcription.Word{Word: "a", Score: f64(1.5)}, 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			words := BuildWords(transcription.Segment{Text: "a", Start: 0, End: 1, Words: []transcription.Word{tt.word}})
			require.Len(t, words, 1)
			assert.Equal(t, tt.want, words[0].Confidence)
		})
	}
}

func TestBuildWordsFallsBackToSegmentTiming(t *testing.T) {
	seg := transcription.Segment{
		Text:    "one two",
		Start:   1.25,
		End:     2.5,
		Speaker: transcription.SpeakerName("SPEAKER_02"),
		Words: []transcription.Word{
			{Word: "one", Start: f64(1.3)},
			{Word: "two", End: f64(2.4), Speaker: transcription.SpeakerNumber(4)},
			{Word: "three", Speaker: transcription.NoSpeaker()},
		},
	}

	words := BuildWords(seg)
	require.Len(t, words, 3)

	assert.Equal(t, 1.3, words[0].Start)
	assert.Equal(t, 2.5, words[0].End)
	require.NotNil(t, words[0].Speaker)
	assert.Equal(t, 2, *words[0].Speaker)

	assert.Equal(t, 1.25, words[1].Start)
	assert.Equal(t, 2.4, words[1].End)
	require.NotNil(t, words[1].Speaker)
	assert.Equal(t, 4, *words[1].Speaker)

	assert.Nil(t, words[2].Speaker, "explicit null on the word overrides the segment speaker")
}

func TestBuildWordsInterpolation(t *testing.T) {
	words := BuildWords(transcription.Segment{Text: "a b c", Start: 0, End: 3})
	require.Len(t, words, 3)

	var starts, ends []float64
	for _, w := range words {
		starts = append(starts, w.Start)
		ends = append(ends, w.End)
		assert.Equal(t, 1.0, w.End-w.Start)
		assert.Equal(t, DefaultConfidence, w.Confidence)
		assert.Nil(t, w.Speaker)
	}
	assert.Equal(t, []float64{0, 1, 2}, starts)
	assert.Equal(t, []float64{1, 2, 3}, ends)
}

func TestBuildWordsInterpolationRounds(t *testing.T) {
	words := BuildWords(transcription.Segment{Text: "x y z", Start: 0, End: 1, Speaker: transcription.SpeakerNumber(1)})
	require.Len(t, words, 3)
	assert.Equal(t, 0.333, words[1].Start)
	assert.Equal(t, 0.667, words[1].End)
	assert.Equal(t, 1.0, words[2].End)
	require.NotNil(t, words[0].Speaker)
	assert.Equal(t, 1, *words[0].Speaker)
}

func TestBuildWordsNegativeDurationIsPreserved(t *testing.T) {
	words := BuildWords(transcription.Segment{Text: "a b", Start: 4, End: 2})
	require.Len(t, words, 2)
	assert.Equal(t, 4.0, words[0].Start)
	assert.Equal(t, 3.0, words[0].End)
	assert.Equal(t, 3.0, words[1].Start)
	assert.Equal(t, 2.0, words[1].End)
}

func TestBuildWordsEmptyText(t *testing.T) {
	assert.Empty(t, BuildWords(transcription.Segment{Text: "   ", Start: 0, End: 1}))
}

func TestAssembleTranscript(t *testing.T) {
	segments := []transcription.Segment{
		{Text: " hello there ", Start: 0, End: 1, Words: []transcription.Word{
			{Word: "hello", Score: f64(0.5)},
			{Word: "there", Score: f64(0.7)},
		}},
		{Text: "  ", Start: 1, End: 2},
		{Text: "general kenobi", Start: 2, End: 3},
	}

	transcript, words, confidence := AssembleTranscript(segments)
	assert.Equal(t, "hello there general kenobi", transcript)
	assert.Len(t, words, 4)
	assert.InDelta(t, (0.5+0.7+0.8+0.8)/4, confidence, 1e-9)
}

func TestAssembleTranscriptNoWords(t *testing.T) {
	transcript, words, confidence := AssembleTranscript([]transcription.Segment{{Text: "", Start: 0, End: 1}})
	assert.Equal(t, "", transcript)
	assert.Empty(t, words)
	assert.Equal(t, DefaultConfidence, confidence)
}
