package formatter

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// DefaultModel is the model used when a request names none, and whose
// descriptor stands in for unknown model names.
const DefaultModel = "large-v2"

// createdLayout is ISO-8601 in UTC with microsecond precision.
const createdLayout = "2006-01-02T15:04:05.000000Z"

// ModelDescriptor describes a known transcription model.
type ModelDescriptor struct {
	Name          string
	CanonicalName string
	Architecture  string
	// Languages lists the languages the model supports.
	Languages []string
}

var multilingual = []string{"multi"}

var models = map[string]ModelDescriptor{
	"tiny":     {Name: "whisper-tiny", CanonicalName: "openai/whisper-tiny", Architecture: "whisper", Languages: multilingual},
	"base":     {Name: "whisper-base", CanonicalName: "openai/whisper-base", Architecture: "whisper", Languages: multilingual},
	"small":    {Name: "whisper-small", CanonicalName: "openai/whisper-small", Architecture: "whisper", Languages: multilingual},
	"medium":   {Name: "whisper-medium", CanonicalName: "openai/whisper-medium", Architecture: "whisper", Languages: multilingual},
	"large-v2": {Name: "whisper-large-v2", CanonicalName: "openai/whisper-large-v2", Architecture: "whisper", Languages: multilingual},
	"large-v3": {Name: "whisper-large-v3", CanonicalName: "openai/whisper-large-v3", Architecture: "whisper", Languages: multilingual},
}

// LookupModel returns the descriptor for name and whether it is known.
// Unknown names return the DefaultModel descriptor.
func LookupModel(name string) (ModelDescriptor, bool) {
	d, ok := models[name]
	if !ok {
		d = models[DefaultModel]
	}
	d.Languages = append([]string(nil), d.Languages...)
	return d, ok
}

// KnownModels returns the names of all known models.
func KnownModels() []string {
	return []string{"tiny", "base", "small", "medium", "large-v2", "large-v3"}
}

// metadataInput carries what BuildMetadata needs from a formatting call.
type metadataInput struct {
	requestID string
	model     string
	language  string
	duration  float64
	audio     []byte
	now       time.Time
}

func buildMetadata(in metadataInput) Metadata {
	d, _ := LookupModel(in.model)
	return Metadata{
		TransactionKey: TransactionKey,
		RequestID:      in.requestID,
		SHA256:         audioDigest(in.audio),
		Created:        formatCreated(in.now),
		Duration:       round3(in.duration),
		Channels:       1,
		Models:         []string{in.model},
		ModelInfo: map[string]ModelInfo{
			in.model: {
				Name:          d.Name,
				CanonicalName: d.CanonicalName,
				Architecture:  d.Architecture,
				Languages:     []string{in.language},
			},
		},
	}
}

func audioDigest(audio []byte) string {
	if len(audio) == 0 {
		return ""
	}
	sum := sha256.Sum256(audio)
	return hex.EncodeToString(sum[:])
}

func formatCreated(t time.Time) string {
	return t.UTC().Format(createdLayout)
}
