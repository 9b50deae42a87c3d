// Package gateway assembles the scribegate process from its configuration:
// storage, database, Redis and telemetry components first, then the job
// service, the dispatcher (Kafka queue or in-process Whisper), the
// authenticators and the HTTP API.
//
//	var cfg gateway.Config
//	if err := config.LoadConfig(gateway.ServiceName, &cfg); err != nil { ... }
//	app, err := gateway.New(&cfg)
//	...
//	err = app.Run(ctx)
package gateway
