// Package api implements the gateway's HTTP handlers: audio submission,
// job status and results, job listing, the response schema and API key
// management.
//
//	h := api.NewHandler(cfg, api.Deps{Jobs: svc, Audio: store, Dispatcher: d, Keys: keys})
//	h.Register(engine, authMiddleware, rateLimitMiddleware)
//
// Results are served in the listen response format: completed jobs return
// their stored response and failed jobs an error response, both with 200.
// Jobs that are still queued or processing answer 409.
package api
