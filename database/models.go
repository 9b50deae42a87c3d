package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Model contains the id and timestamp columns shared by scribegate tables.
type Model struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeCreate generates a UUID if not already set.
func (m *Model) BeforeCreate(_ *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// JSON stores a value of type T as a JSON text column.
type JSON[T any] struct {
	Data T
}

// NewJSON wraps v for storage.
func NewJSON[T any](v T) JSON[T] { return JSON[T]{Data: v} }

// GormDataType stores the column as text.
func (JSON[T]) GormDataType() string { return "text" }

// Value implements driver.Valuer.
func (j JSON[T]) Value() (driver.Value, error) {
	data, err := json.Marshal(j.Data)
	if err != nil {
		return nil, fmt.Errorf("encode json column: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner. NULL leaves the zero value.
func (j *JSON[T]) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		var zero T
		j.Data = zero
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("scan json column: unsupported type %T", src)
	}
	if len(data) == 0 {
		var zero T
		j.Data = zero
		return nil
	}
	return json.Unmarshal(data, &j.Data)
}

// MarshalJSON encodes the wrapped value.
func (j JSON[T]) MarshalJSON() ([]byte, error) { return json.Marshal(j.Data) }

// UnmarshalJSON decodes into the wrapped value.
func (j *JSON[T]) UnmarshalJSON(data []byte) error { return json.Unmarshal(data, &j.Data) }
