// internal/models/restaurant.go
package models

import "strings"

type Restaurant struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Website string `json:"website,omitempty"`
}

// SameAs compares restaurants by (name, address).
func (r Restaurant) SameAs(other Restaurant) bool {
	return r.Name == other.Name && r.Address == other.Address
}

func (r Restaurant) Valid() bool {
	return strings.TrimSpace(r.Name) != ""
}

type MenuItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type MenuCategory struct {
	Category string     `json:"category"`
	Items    []MenuItem `json:"items"`
}

// MenuSnapshot is passed through to classification as received.
type MenuSnapshot []MenuCategory

// ItemCount returns the number of items across categories.
func (m MenuSnapshot) ItemCount() int {
	n := 0
	for _, c := range m {
		n += len(c.Items)
	}
	return n
}

// RestaurantLookup is the result of a restaurant-and-menu lookup.
type RestaurantLookup struct {
	Restaurant *Restaurant  `json:"restaurant"`
	Menu       MenuSnapshot `json:"menu"`
}
