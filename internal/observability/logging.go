package observability

import (
	"go.uber.org/zap"
)

// NewLogger builds the process logger. Anything other than "development"
// gets the JSON production config.
func NewLogger(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	return cfg.Build()
}
