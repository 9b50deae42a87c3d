// Package config loads service configuration from a YAML file, an optional
// .env file and prefixed environment variables using Viper.
//
// # Usage
//
//	var cfg gateway.Config
//	if err := config.LoadConfig("scribegate", &cfg); err != nil { ... }
//	cfg.ApplyDefaults()
//	if err := cfg.Validate(); err != nil { ... }
//
// Environment variables override file values. Keys are the upper-cased
// service name followed by the underscore-separated path, for example
// SCRIBEGATE_DATABASE_DSN or SCRIBEGATE_AUTH_OIDC_ISSUER_URL.
package config
