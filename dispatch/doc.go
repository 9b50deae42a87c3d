// Package dispatch moves accepted jobs to a transcription backend and turns
// the raw results that come back into stored responses.
//
// In queue mode a Task is published to the tasks topic and workers answer
// on the results topic; HandleMessage is registered as the consumer
// handler for that topic. In inline mode the gateway calls an in-process
// transcription.Provider itself, bounded by a bulkhead.
//
// Either way every result goes through HandleResult: the raw result is
// formatted and validated, then translations and a summary are added, and
// the job completes. Worker failures and formatter failures fail the job
// with an error response.
package dispatch
