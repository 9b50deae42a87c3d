// Package transcription defines the raw speech-recognition result model
// exchanged with transcription workers, the per-request listen options,
// and the provider interface for in-process speech-to-text backends.
//
// Workers report results as segments of text with timing and optional
// speaker and word-level data. The formatter package converts these into
// the public response document.
//
// # Backends
//
//   - transcription/whisper: faster-whisper HTTP sidecar
package transcription
