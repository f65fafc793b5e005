// Package genaitest provides a scriptable genai.Advisor for tests.
package genaitest

import (
	"context"
	"sync"

	"github.com/MathNerdzRule/dietary-menu-advisor/internal/genai"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/models"
)

// Advisor calls the matching function field. Unset fields panic, which
// marks an unexpected call in a test.
type Advisor struct {
	ReverseGeocodeFunc        func(ctx context.Context, lat, lng float64) (string, error)
	FindRestaurantAndMenuFunc func(ctx context.Context, name, location string) (*models.RestaurantLookup, error)
	SearchNearbyFunc          func(ctx context.Context, location string, radiusMiles float64, profile models.DietaryProfile) ([]models.Restaurant, error)
	ClassifyMenuItemsFunc     func(ctx context.Context, restaurant models.Restaurant, src models.MenuSource, profile models.DietaryProfile) (*models.RecommendationSet, error)

	mu    sync.Mutex
	calls map[string]int
}

var _ genai.Advisor = (*Advisor)(nil)

func (a *Advisor) record(op string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.calls == nil {
		a.calls = make(map[string]int)
	}
	a.calls[op]++
}

// Calls returns how many times operation was invoked.
func (a *Advisor) Calls(operation string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[operation]
}

func (a *Advisor) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	a.record(genai.OpReverseGeocode)
	return a.ReverseGeocodeFunc(ctx, lat, lng)
}

func (a *Advisor) FindRestaurantAndMenu(ctx context.Context, name, location string) (*models.RestaurantLookup, error) {
	a.record(genai.OpFindRestaurant)
	return a.FindRestaurantAndMenuFunc(ctx, name, location)
}

func (a *Advisor) SearchNearby(ctx context.Context, location string, radiusMiles float64, profile models.DietaryProfile) ([]models.Restaurant, error) {
	a.record(genai.OpSearchNearby)
	return a.SearchNearbyFunc(ctx, location, radiusMiles, profile)
}

func (a *Advisor) ClassifyMenuItems(ctx context.Context, restaurant models.Restaurant, src models.MenuSource, profile models.DietaryProfile) (*models.RecommendationSet, error) {
	a.record(genai.OpClassifyMenu)
	return a.ClassifyMenuItemsFunc(ctx, restaurant, src, profile)
}

// FailTimes returns an error for the first n calls and then defers to ok.
func FailTimes[T any](n int, err error, ok func() (T, error)) func() (T, error) {
	var mu sync.Mutex
	calls := 0
	return func() (T, error) {
		mu.Lock()
		calls++
		c := calls
		mu.Unlock()
		if c <= n {
			var zero T
			return zero, err
		}
		return ok()
	}
}
