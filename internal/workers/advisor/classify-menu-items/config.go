// internal/workers/advisor/classify-menu-items/config.go
package classifymenuitems

import (
	"time"

	"github.com/MathNerdzRule/dietary-menu-advisor/internal/retry"
)

type Config struct {
	Timeout       time.Duration
	Retry         retry.Policy
	MaxImageBytes int
	InputSchema   map[string]interface{}
}

func LoadConfig() *Config {
	return &Config{
		Timeout:       90 * time.Second,
		Retry:         retry.Default(),
		MaxImageBytes: 10 << 20,
	}
}
