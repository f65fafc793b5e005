package genai

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/MathNerdzRule/dietary-menu-advisor/internal/models"
)

const gastroparesisGuidance = `
A key restriction is Gastroparesis (GP). Categorize menu items into 'safe', 'caution' and 'avoid'.
You MUST verify ingredients via search.
Safe proteins: Skinless chicken/turkey breast, white fish, eggs.
Forbidden: Beef, pork, bacon, dark meat, whole grains, nuts, seeds, raw veg/fruit skins.
Caution: High fat (fried, cream, butter).
`

const diabeticGuidance = `
The diner is Diabetic. Prefer items low in refined carbohydrates and added sugar.
Avoid: Sugary sauces and glazes, sweetened drinks, desserts, breaded or battered items.
Caution: White rice, pasta, bread, potatoes and fruit-heavy dishes; note portion size in the reason.
`

const reverseGeocodeTemplate = `Convert these coordinates to a "City, State" string: %v, %v`

const findRestaurantTemplate = `Use Google Search to find the specific restaurant: "%s" in "%s".
Return a JSON object with:
restaurant: { name, address, website }
menu: Array of categories { category, items }, each item { name, description }.`

const searchNearbyTemplate = `Use Google Search to find restaurants within %s miles of "%s"%s.
Return a JSON array of restaurants, each { name, address, website }.`

const classifyTemplate = `
Analyze %s for "%s" against these restrictions: %s.
%s
Verify ingredients via Google Search.
Return a JSON object with:
safe: Array of items { name, description, reason, url }.
caution: Array of items { name, description, reason, url }.
avoid: Array of items { name, description, reason, url }.
ingredientsFound: boolean (true if you found ingredient info via search).
%s`

// guidanceFor returns the condition blocks selected by the profile's flags.
func guidanceFor(profile models.DietaryProfile) string {
	var blocks []string
	if profile.Gastroparesis {
		blocks = append(blocks, strings.TrimSpace(gastroparesisGuidance))
	}
	if profile.Diabetic {
		blocks = append(blocks, strings.TrimSpace(diabeticGuidance))
	}
	return strings.Join(blocks, "\n\n")
}

func restrictionsOrNone(profile models.DietaryProfile) string {
	if s := profile.RestrictionString(); s != "" {
		return s
	}
	return "none specified"
}

func buildReverseGeocodePrompt(lat, lng float64) string {
	return fmt.Sprintf(reverseGeocodeTemplate, lat, lng)
}

func buildFindRestaurantPrompt(name, location string) string {
	return fmt.Sprintf(findRestaurantTemplate, name, location)
}

func buildSearchNearbyPrompt(location string, radiusMiles float64, profile models.DietaryProfile) string {
	accommodates := ""
	if s := profile.RestrictionString(); s != "" {
		accommodates = fmt.Sprintf(" that can accommodate these restrictions: %s", s)
	}
	radius := strconv.FormatFloat(radiusMiles, 'f', -1, 64)
	return fmt.Sprintf(searchNearbyTemplate, radius, location, accommodates)
}

func buildClassifyPrompt(restaurant models.Restaurant, src models.MenuSource, profile models.DietaryProfile) (string, error) {
	subject := "the attached menu photo"
	tail := ""
	if in, ok := src.(models.MenuInput); ok {
		menuJSON, err := json.Marshal(in.Menu)
		if err != nil {
			return "", fmt.Errorf("marshal menu: %w", err)
		}
		subject = "this menu"
		tail = "\nMenu JSON: " + string(menuJSON)
	}
	return fmt.Sprintf(classifyTemplate, subject, restaurant.Name,
		restrictionsOrNone(profile), guidanceFor(profile), tail), nil
}
