package transcription

import "context"

// Provider is the interface that in-process transcription backends implement.
type Provider interface {
	// Name returns the backend name.
	Name() string
	// IsAvailable reports whether the backend can accept work.
	IsAvailable(ctx context.Context) bool
	// Transcribe sends audio for transcription and returns the raw result.
	Transcribe(ctx context.Context, req Request) (*Result, error)
}

// Request holds parameters for a provider transcription call.
type Request struct {
	// Audio is the raw audio payload.
	Audio []byte
	// ContentType is the MIME type of Audio.
	ContentType string
	// Language is the expected language of the audio (e.g. "en"). Empty means detect.
	Language string
	// Model is the transcription model to use.
	Model string
	// Diarize asks the backend to label speakers.
	Diarize bool
}
