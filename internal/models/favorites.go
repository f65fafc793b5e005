// internal/models/favorites.go
package models

// FavoriteEntry is a recommended item saved together with its restaurant.
type FavoriteEntry struct {
	RecommendationItem
	RestaurantName string `json:"restaurantName"`
}

func (f FavoriteEntry) matches(itemName, restaurantName string) bool {
	return f.Name == itemName && f.RestaurantName == restaurantName
}

// Favorites is an ordered set keyed by (item name, restaurant name).
type Favorites []FavoriteEntry

func (f Favorites) Contains(itemName, restaurantName string) bool {
	for _, e := range f {
		if e.matches(itemName, restaurantName) {
			return true
		}
	}
	return false
}

// Toggle removes the entry when present and appends it otherwise. The
// receiver is not modified; the order of other entries is preserved.
func (f Favorites) Toggle(item RecommendationItem, restaurantName string) (Favorites, bool) {
	out := make(Favorites, 0, len(f)+1)
	removed := false
	for _, e := range f {
		if e.matches(item.Name, restaurantName) {
			removed = true
			continue
		}
		out = append(out, e)
	}
	if removed {
		return out, false
	}
	return append(out, FavoriteEntry{RecommendationItem: item, RestaurantName: restaurantName}), true
}

// Dedupe drops repeated identities, keeping first occurrences.
func (f Favorites) Dedupe() Favorites {
	out := make(Favorites, 0, len(f))
	for _, e := range f {
		if out.Contains(e.Name, e.RestaurantName) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Recent returns up to n of the most recently added entries, newest first.
func (f Favorites) Recent(n int) Favorites {
	if n <= 0 || len(f) == 0 {
		return Favorites{}
	}
	if n > len(f) {
		n = len(f)
	}
	out := make(Favorites, 0, n)
	for i := len(f) - 1; i >= len(f)-n; i-- {
		out = append(out, f[i])
	}
	return out
}
