// internal/workers/advisor/classify-menu-items/models.go
package classifymenuitems

import "github.com/MathNerdzRule/dietary-menu-advisor/internal/models"

// Image is a photographed menu page carried in job variables.
type Image struct {
	Data     string `json:"data"` // base64
	MIMEType string `json:"mimeType"`
}

type Input struct {
	Restaurant models.Restaurant     `json:"restaurant"`
	Menu       models.MenuSnapshot   `json:"menu,omitempty"`
	Image      *Image                `json:"image,omitempty"`
	Profile    models.DietaryProfile `json:"profile"`
}

type Output struct {
	models.RecommendationSet
	Restrictions string `json:"restrictions"`
	Source       string `json:"source"`
}
