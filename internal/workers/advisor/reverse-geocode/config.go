// internal/workers/advisor/reverse-geocode/config.go
package reversegeocode

import (
	"time"

	"github.com/MathNerdzRule/dietary-menu-advisor/internal/retry"
)

type Config struct {
	Timeout     time.Duration
	Retry       retry.Policy
	InputSchema map[string]interface{}
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
		Retry:   retry.Default(),
	}
}
