package formatter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/scribegate/transcription"
)

func TestNormalizeSpeaker(t *testing.T) {
	tests := []struct {
		name   string
		label  transcription.SpeakerLabel
		want   int
		wantOK bool
	}{
		{"absent", transcription.SpeakerLabel{}, 0, false},
		{"explicit null", transcription.NoSpeaker(), 0, false},
		{"speaker pattern", transcription.SpeakerName("SPEAKER_03"), 3, true},
		{"speaker pattern leading zeros", transcription.SpeakerName("SPEAKER_010"), 10, true},
		{"speaker pattern bad digits", transcription.SpeakerName("SPEAKER_x"), 0, true},
		{"numeric string", transcription.SpeakerName("7"), 7, true},
		{"padded numeric string", transcription.SpeakerName(" 08 "), 8, true},
		{"garbage string", transcription.SpeakerName("abc"), 0, true},
		{"empty string", transcription.SpeakerName(""), 0, true},
		{"number", transcription.SpeakerNumber(2), 2, true},
		{"fractional number", transcription.SpeakerNumber(4.9), 4, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeSpeaker(tt.label)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeSpeakerFromJSON(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   int
		wantOK bool
	}{
		{"string", `{"text":"x","start":0,"end":1,"speaker":"SPEAKER_01"}`, 1, true},
		{"integer", `{"text":"x","start":0,"end":1,"speaker":5}`, 5, true},
		{"float", `{"text":"x","start":0,"end":1,"speaker":1.0}`, 1, true},
		{"null", `{"text":"x","start":0,"end":1,"speaker":null}`, 0, false},
		{"missing", `{"text":"x","start":0,"end":1}`, 0, false},
		{"object", `{"text":"x","start":0,"end":1,"speaker":{"id":1}}`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seg transcription.Segment
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &seg))
			got, ok := NormalizeSpeaker(seg.Speaker)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
