// Package formatter converts raw transcription results into the public
// listen response document.
//
// The output follows a Deepgram-style JSON contract: a metadata block plus
// results holding one channel with a base alternative, optional translation
// alternatives, paragraphs, per-segment utterances and an optional summary.
// Key names and nesting are part of the contract and must not change.
//
// Formatting is purely computational. A Formatter holds no per-call state
// and is safe for concurrent use.
//
// # Usage
//
//	f := formatter.New(formatter.WithLogger(log))
//	resp, err := f.Format(result, requestID, "large-v2", formatter.DefaultOptions())
//	if err != nil {
//	    resp = formatter.BuildErrorResponse(requestID, err.Error(), formatter.CodeFormattingError)
//	}
//	resp = f.AddSummary(resp, summary, "")
package formatter
