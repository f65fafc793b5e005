// internal/workers/advisor/search-nearby-restaurants/models.go
package searchnearbyrestaurants

import "github.com/MathNerdzRule/dietary-menu-advisor/internal/models"

type Input struct {
	Location    string                `json:"location"`
	RadiusMiles float64               `json:"radiusMiles"`
	Profile     models.DietaryProfile `json:"profile"`
}

type Output struct {
	Restaurants  []models.Restaurant `json:"restaurants"`
	Count        int                 `json:"count"`
	RadiusMiles  float64             `json:"radiusMiles"`
	Restrictions string              `json:"restrictions"`
}
