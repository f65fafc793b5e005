// internal/models/recommendation.go
package models

type RecommendationItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Reason      string `json:"reason"`
	URL         string `json:"url,omitempty"`
}

// RecommendationSet buckets classified menu items. Buckets are kept exactly
// as the model returned them, duplicates included.
type RecommendationSet struct {
	Safe             []RecommendationItem `json:"safe"`
	Caution          []RecommendationItem `json:"caution"`
	Avoid            []RecommendationItem `json:"avoid"`
	IngredientsFound bool                 `json:"ingredientsFound"`
}

// Total returns the number of items across all buckets.
func (r RecommendationSet) Total() int {
	return len(r.Safe) + len(r.Caution) + len(r.Avoid)
}

// MenuSource is the input to classification: either a menu snapshot or a
// photographed menu page.
type MenuSource interface {
	menuSource()
}

type MenuInput struct {
	Menu MenuSnapshot
}

type ImageInput struct {
	Data     []byte
	MIMEType string
}

func (MenuInput) menuSource()  {}
func (ImageInput) menuSource() {}

// Empty reports whether no image bytes were captured.
func (i ImageInput) Empty() bool {
	return len(i.Data) == 0
}
