package validation

import (
	"strings"

	"github.com/google/uuid"

	"github.com/kbukum/scribegate/errors"
)

// FieldError is one rejected field, reported under details.fields.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func invalid(fields []FieldError) *errors.AppError {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return errors.Validation(strings.Join(parts, "; ")).WithDetail("fields", fields)
}

// Checks collects failures of hand-written checks on path parameters and
// headers, which struct tags cannot reach.
type Checks struct {
	fields []FieldError
}

func New() *Checks { return &Checks{} }

func (c *Checks) Fail(field, message string) *Checks {
	c.fields = append(c.fields, FieldError{Field: field, Message: message})
	return c
}

// UUID requires value to be a non-nil UUID in any form uuid.Parse accepts.
func (c *Checks) UUID(field, value string) *Checks {
	if strings.TrimSpace(value) == "" {
		return c.Fail(field, "is required")
	}
	switch id, err := uuid.Parse(value); {
	case err != nil:
		return c.Fail(field, "must be a valid UUID")
	case id == uuid.Nil:
		return c.Fail(field, "must not be the nil UUID")
	}
	return c
}

// Err returns an INVALID_INPUT error listing every failure, or nil.
func (c *Checks) Err() error {
	if len(c.fields) == 0 {
		return nil
	}
	return invalid(c.fields)
}

// PathUUID checks a single UUID path parameter.
func PathUUID(name, value string) error {
	return New().UUID(name, value).Err()
}
