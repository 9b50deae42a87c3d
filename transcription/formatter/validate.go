package formatter

import (
	"encoding/json"
	"time"

	"github.com/tidwall/gjson"
)

// CodeProcessingError is the default error code of error responses.
const CodeProcessingError = "processing_error"

// CodeFormattingError marks error responses caused by a formatting failure.
const CodeFormattingError = "formatting_error"

var requiredMetadata = []string{"request_id", "created", "duration", "channels"}

var requiredAlternative = []string{"transcript", "confidence", "words"}

// Validate reports whether resp has the required response shape.
func Validate(resp *Response) bool {
	if resp == nil {
		return false
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return false
	}
	return ValidateJSON(data)
}

// ValidateJSON reports whether data is a JSON document with the required
// response shape. It checks structure only, not values.
func ValidateJSON(data []byte) bool {
	if !gjson.ValidBytes(data) {
		return false
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return false
	}

	metadata := root.Get("metadata")
	if !metadata.IsObject() {
		return false
	}
	for _, key := range requiredMetadata {
		if !metadata.Get(key).Exists() {
			return false
		}
	}

	results := root.Get("results")
	if !results.IsObject() {
		return false
	}
	channels := results.Get("channels")
	if !channels.IsArray() || len(channels.Array()) == 0 {
		return false
	}
	for _, channel := range channels.Array() {
		alternatives := channel.Get("alternatives")
		if !alternatives.IsArray() || len(alternatives.Array()) == 0 {
			return false
		}
		for _, alt := range alternatives.Array() {
			if !alt.IsObject() {
				return false
			}
			for _, key := range requiredAlternative {
				if !alt.Get(key).Exists() {
					return false
				}
			}
		}
	}
	return true
}

// BuildErrorResponse returns the response document reported for a request
// that failed before a result existed. An empty code means
// CodeProcessingError.
func BuildErrorResponse(requestID, message, code string) *Response {
	return buildErrorResponse(requestID, message, code, timeNow())
}

// BuildErrorResponse is like the package-level BuildErrorResponse but uses
// the formatter's clock.
func (f *Formatter) BuildErrorResponse(requestID, message, code string) *Response {
	return buildErrorResponse(requestID, message, code, f.now())
}

var timeNow = time.Now

func buildErrorResponse(requestID, message, code string, now time.Time) *Response {
	if code == "" {
		code = CodeProcessingError
	}
	return &Response{
		Metadata: Metadata{
			TransactionKey: TransactionKey,
			RequestID:      requestID,
			Created:        formatCreated(now),
			Error:          &ErrorInfo{Code: code, Message: message},
		},
		Results: Results{
			Channels:   []Channel{{Alternatives: []Alternative{emptyAlternative()}}},
			Utterances: []Utterance{},
		},
	}
}
