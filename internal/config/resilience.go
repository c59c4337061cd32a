package config

import (
	"time"

	"homestyle_sync/internal/retry"
)

// ResilienceConfig covers the Sheets snapshot load and flush only. Per-block
// calls to the geocoder, Drive and People are attempted once.
type ResilienceConfig struct {
	SheetRead  retry.Config
	SheetWrite retry.Config
}

var DefaultResilienceConfig = ResilienceConfig{
	SheetRead: retry.Config{
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
		MaxDelay:   30 * time.Second,
		Timeout:    30 * time.Second,
		Retryable:  retry.IsTransientAPIError,
	},
	SheetWrite: retry.Config{
		MaxRetries: 5,
		BaseDelay:  1 * time.Second,
		MaxDelay:   60 * time.Second,
		Timeout:    30 * time.Second,
		Retryable:  retry.IsTransientAPIError,
	},
}
