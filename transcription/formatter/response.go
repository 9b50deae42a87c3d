package formatter

import (
	"encoding/json"
	"fmt"
)

// TransactionKey is the fixed legacy value of metadata.transaction_key.
const TransactionKey = "deprecated"

// Response is the listen response document.
type Response struct {
	Metadata Metadata `json:"metadata"`
	Results  Results  `json:"results"`
}

// Metadata describes the request that produced a response.
type Metadata struct {
	TransactionKey string               `json:"transaction_key"`
	RequestID      string               `json:"request_id"`
	SHA256         string               `json:"sha256"`
	Created        string               `json:"created"`
	Duration       float64              `json:"duration"`
	Channels       int                  `json:"channels"`
	Models         []string             `json:"models"`
	ModelInfo      map[string]ModelInfo `json:"model_info"`
	Translations   map[string]string    `json:"translations,omitempty"`
	Summary        *MetadataSummary     `json:"summary,omitempty"`
	Error          *ErrorInfo           `json:"error,omitempty"`
}

type metadataFields Metadata

// errorMetadata is the reduced metadata shape carried by error responses.
type errorMetadata struct {
	TransactionKey string     `json:"transaction_key"`
	RequestID      string     `json:"request_id"`
	Created        string     `json:"created"`
	Error          *ErrorInfo `json:"error"`
}

// MarshalJSON emits the full metadata block, or the reduced error shape
// when Error is set.
func (m Metadata) MarshalJSON() ([]byte, error) {
	if m.Error != nil {
		return json.Marshal(errorMetadata{
			TransactionKey: m.TransactionKey,
			RequestID:      m.RequestID,
			Created:        m.Created,
			Error:          m.Error,
		})
	}
	return json.Marshal(metadataFields(m))
}

// ModelInfo describes the model that produced the transcript.
type ModelInfo struct {
	Name          string   `json:"name"`
	CanonicalName string   `json:"canonical_name"`
	Architecture  string   `json:"architecture"`
	Languages     []string `json:"languages"`
}

// MetadataSummary is the summary record kept in metadata.
type MetadataSummary struct {
	Text        string `json:"text"`
	Type        string `json:"type"`
	GeneratedAt string `json:"generated_at"`
}

// ErrorInfo is the error block of an error response.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Results holds the transcription output.
type Results struct {
	Channels   []Channel      `json:"channels"`
	Utterances []Utterance    `json:"utterances,omitzero"`
	Summary    *ResultSummary `json:"summary,omitempty"`
}

// ResultSummary is the summary record kept in results.
type ResultSummary struct {
	Text       string  `json:"text"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// Channel is one audio channel. It always has at least one alternative.
type Channel struct {
	Alternatives []Alternative `json:"alternatives"`
}

// Alternative is one candidate transcription or translation of a channel.
type Alternative struct {
	Transcript string     `json:"transcript"`
	Confidence float64    `json:"confidence"`
	Words      []Word     `json:"words"`
	Language   string     `json:"language,omitempty"`
	Paragraphs Paragraphs `json:"paragraphs"`
}

// Word is a timed word in an alternative or utterance.
type Word struct {
	Word       string  `json:"word"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
	Speaker    *int    `json:"speaker,omitempty"`
}

// Paragraphs is the paragraph view of an alternative.
type Paragraphs struct {
	Transcript string      `json:"transcript"`
	Paragraphs []Paragraph `json:"paragraphs"`
}

// Paragraph is a speaker-homogeneous run of consecutive segments.
type Paragraph struct {
	Sentences []Sentence `json:"sentences"`
	Speaker   *int       `json:"speaker"`
	NumWords  int        `json:"num_words"`
	Start     float64    `json:"start"`
	End       float64    `json:"end"`
}

// Sentence is one segment's text within a paragraph.
type Sentence struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Utterance is the per-segment view of the transcript.
type Utterance struct {
	ID         string  `json:"id"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
	Channel    int     `json:"channel"`
	Transcript string  `json:"transcript"`
	Words      []Word  `json:"words"`
	Speaker    *int    `json:"speaker,omitempty"`
}

// Clone returns a deep copy of the response.
func (r *Response) Clone() (*Response, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("clone response: %w", err)
	}
	var out Response
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("clone response: %w", err)
	}
	return &out, nil
}

// Transcript returns the base transcript of the first channel, or "".
func (r *Response) Transcript() string {
	if r == nil || len(r.Results.Channels) == 0 || len(r.Results.Channels[0].Alternatives) == 0 {
		return ""
	}
	return r.Results.Channels[0].Alternatives[0].Transcript
}
