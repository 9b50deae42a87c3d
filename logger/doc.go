// Package logger wraps zerolog for the gateway. Lines are JSON in
// production and a compact "[SCR][INF]" console format in development.
//
// A logger is scoped with WithComponent and picks up the request id, user
// id and OpenTelemetry trace ids from a context with WithContext. Work
// that runs after the HTTP request has ended, such as inline
// transcription, logs through ForJob so its lines keep the job's id.
//
//	logging:
//	  level: info
//	  format: json
//
//	log := logger.New(&cfg.Logging, "scribegate").WithComponent("dispatch")
//	log.ForJob(ctx, job.RequestID).Info("Job completed", logger.DurationFields("transcribe", took))
package logger
