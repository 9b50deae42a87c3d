// Package errors provides the gateway's structured error type.
//
// Every error that crosses a service boundary is an *AppError carrying a
// machine-readable code, a client-safe message, the HTTP status to render,
// and whether the caller may retry. Causes stay attached for logging and
// errors.Is/As but are never sent to clients.
package errors
