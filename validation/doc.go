// Package validation checks request input and reports failures as
// INVALID_INPUT AppErrors carrying per-field details.
//
// Struct tags cover listen options:
//
//	type Options struct {
//	    Language  string   `json:"language" validate:"omitempty,langcode"`
//	    Translate []string `json:"translate" validate:"max=8,dive,langcode"`
//	}
//	err := validation.Validate(opts)
//
// Checks cover path parameters:
//
//	if err := validation.PathUUID("request_id", c.Param("request_id")); err != nil { ... }
package validation
