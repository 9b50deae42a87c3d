// Package httpclient is the outbound HTTP client used to reach sidecar
// services such as the Whisper transcription backend.
//
// It resolves paths against a base URL and encodes JSON or multipart
// bodies. Failures are classified into *Error values, and transient ones
// are retried with backoff. The caller's trace context is propagated on
// every request.
//
//	client, err := httpclient.New(httpclient.Config{
//	    BaseURL: "http://localhost:8387",
//	    Timeout: "10m",
//	}, log)
//
//	resp, err := client.Do(ctx, httpclient.Request{
//	    Method: http.MethodPost,
//	    Path:   "/transcribe",
//	    Body:   &httpclient.MultipartBody{Files: []httpclient.FileField{{FieldName: "audio", Data: audio}}},
//	})
//
// ToAppError converts a client error into the service error taxonomy.
package httpclient
