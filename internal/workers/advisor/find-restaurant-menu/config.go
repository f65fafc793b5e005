// internal/workers/advisor/find-restaurant-menu/config.go
package findrestaurantmenu

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
		Timeout: 60 * time.Second,
		Retry:   retry.Default(),
	}
}
