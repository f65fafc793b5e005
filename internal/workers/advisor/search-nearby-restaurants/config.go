// internal/workers/advisor/search-nearby-restaurants/config.go
package searchnearbyrestaurants

import (
	"time"

	"github.com/MathNerdzRule/dietary-menu-advisor/internal/retry"
)

type Config struct {
	Timeout       time.Duration
	Retry         retry.Policy
	DefaultRadius float64 // miles, used when the job gives none
	InputSchema   map[string]interface{}
}

func LoadConfig() *Config {
	return &Config{
		Timeout:       60 * time.Second,
		Retry:         retry.Default(),
		DefaultRadius: 5,
	}
}
