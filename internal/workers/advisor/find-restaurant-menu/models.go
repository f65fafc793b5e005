// internal/workers/advisor/find-restaurant-menu/models.go
package findrestaurantmenu

import "github.com/MathNerdzRule/dietary-menu-advisor/internal/models"

type Input struct {
	RestaurantName string `json:"restaurantName"`
	Location       string `json:"location"`
}

type Output struct {
	Restaurant models.Restaurant   `json:"restaurant"`
	Menu       models.MenuSnapshot `json:"menu"`
	MenuItems  int                 `json:"menuItems"`
}
