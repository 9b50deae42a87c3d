// Package jobs tracks transcription jobs from upload to result.
//
// A job moves queued -> processing -> completed|failed, or straight from
// queued to failed when it cannot be dispatched. Terminal states never
// change. Transitions are conditional updates inside a transaction, so of
// two concurrent writers moving a job out of the same state only one wins;
// the other receives an INVALID_STATE_TRANSITION error. Job status is
// written through to a cache after each commit.
package jobs
