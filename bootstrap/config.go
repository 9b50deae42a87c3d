package bootstrap

import (
	"github.com/kbukum/scribegate/config"
)

// Config is the constraint for application configuration types. Any struct
// embedding config.ServiceConfig with `mapstructure:",squash"` satisfies it
// through promoted methods, provided it re-declares ApplyDefaults and
// Validate when it has its own sections.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
