package transcription

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Result is the raw output of a transcription run.
type Result struct {
	// Segments contains time-aligned transcript segments in order.
	Segments []Segment `json:"segments"`
	// Language is the detected or requested language code.
	Language string `json:"language,omitempty"`
	// Duration is the audio duration in seconds, when the worker reports it.
	Duration *float64 `json:"duration,omitempty"`
	// Audio holds the source audio bytes for content hashing. Never serialized.
	Audio []byte `json:"-"`
}

// Segment is a contiguous span of recognized speech.
//
// End is expected to be >= Start but this is not enforced.
type Segment struct {
	// Text is the transcribed text for this segment.
	Text string `json:"text"`
	// Start is the segment start time in seconds.
	Start float64 `json:"start"`
	// End is the segment end time in seconds.
	End float64 `json:"end"`
	// Speaker is the speaker hint, if any.
	Speaker SpeakerLabel `json:"speaker,omitzero"`
	// Words is the optional word-level timing for this segment.
	Words []Word `json:"words,omitempty"`
}

// Word is a single recognized word with optional timing and score.
// Score and Confidence are aliases; Score takes precedence.
type Word struct {
	Word       string       `json:"word"`
	Start      *float64     `json:"start,omitempty"`
	End        *float64     `json:"end,omitempty"`
	Score      *float64     `json:"score,omitempty"`
	Confidence *float64     `json:"confidence,omitempty"`
	Speaker    SpeakerLabel `json:"speaker,omitzero"`
}

// SpeakerLabel is a speaker hint as reported by a backend: a string such
// as "SPEAKER_01", a number, or null. The zero value means the field was
// absent, which is distinct from an explicit null.
type SpeakerLabel struct {
	present bool
	value   any
}

// NoSpeaker returns an explicit null speaker label.
func NoSpeaker() SpeakerLabel { return SpeakerLabel{present: true} }

// SpeakerName returns a string speaker label.
func SpeakerName(name string) SpeakerLabel { return SpeakerLabel{present: true, value: name} }

// SpeakerNumber returns a numeric speaker label.
func SpeakerNumber(n float64) SpeakerLabel { return SpeakerLabel{present: true, value: n} }

// IsZero reports whether the label was absent.
func (s SpeakerLabel) IsZero() bool { return !s.present }

// IsNull reports whether the label is absent or an explicit null.
func (s SpeakerLabel) IsNull() bool { return s.value == nil }

// Value returns the underlying value: nil, a string, or a json.Number/float64.
func (s SpeakerLabel) Value() any { return s.value }

// MarshalJSON encodes the label as a JSON string, number or null.
func (s SpeakerLabel) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.value)
}

// UnmarshalJSON accepts a JSON string, number or null. Any other shape is
// kept as-is and later normalized to speaker 0.
func (s *SpeakerLabel) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("decode speaker label: %w", err)
	}
	s.present = true
	s.value = v
	return nil
}

// Options are the per-request formatting and processing options.
type Options struct {
	// Model is the requested model name (e.g. "large-v2").
	Model string `json:"model" form:"model" validate:"omitempty,max=64"`
	// Language is the expected language; empty means detect.
	Language string `json:"language,omitempty" form:"language" validate:"omitempty,langcode"`
	// Punctuate appends terminal punctuation to the transcript.
	Punctuate bool `json:"punctuate" form:"punctuate"`
	// Diarize asks the backend for speaker labels.
	Diarize bool `json:"diarize" form:"diarize"`
	// SmartFormat capitalizes sentence starts in the transcript.
	SmartFormat bool `json:"smart_format" form:"smart_format"`
	// Utterances includes per-segment utterance records.
	Utterances bool `json:"utterances" form:"utterances"`
	// Translate lists target languages for translation enrichment.
	Translate []string `json:"translate,omitempty" form:"translate" validate:"max=8,dive,langcode"`
	// Summarize requests a summary enrichment.
	Summarize bool `json:"summarize" form:"summarize"`
}

// DefaultOptions returns options with every formatting feature enabled.
func DefaultOptions() Options {
	return Options{
		Punctuate:   true,
		Diarize:     true,
		SmartFormat: true,
		Utterances:  true,
	}
}

// Task is the queue message asking a worker to transcribe archived audio.
type Task struct {
	RequestID   string  `json:"request_id"`
	UserID      string  `json:"user_id"`
	AudioKey    string  `json:"audio_key"`
	ContentType string  `json:"content_type"`
	Options     Options `json:"options"`
}

// Result statuses reported by workers.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// ResultMessage is the queue message a worker publishes when it finishes.
type ResultMessage struct {
	RequestID string `json:"request_id"`
	// Status is OutcomeCompleted or OutcomeFailed.
	Status string `json:"status"`
	Result
	// Translations maps language codes to translated text.
	Translations map[string]string `json:"translations,omitempty"`
	// Summary is an optional summary of the transcript.
	Summary     string `json:"summary,omitempty"`
	SummaryType string `json:"summary_type,omitempty"`
	// Error describes a worker-side failure.
	Error *ResultError `json:"error,omitempty"`
}

// ResultError describes why a worker could not produce a result.
type ResultError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
