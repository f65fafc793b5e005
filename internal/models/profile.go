// internal/models/profile.go
package models

import "strings"

// Flag identifies one boolean dietary restriction.
type Flag string

const (
	FlagGlutenFree    Flag = "glutenFree"
	FlagDairyFree     Flag = "dairyFree"
	FlagVegan         Flag = "vegan"
	FlagVegetarian    Flag = "vegetarian"
	FlagLowSodium     Flag = "lowSodium"
	FlagKeto          Flag = "keto"
	FlagDiabetic      Flag = "diabetic"
	FlagGastroparesis Flag = "gastroparesis"
)

// FlagLabel pairs a flag with the label used in restriction strings.
type FlagLabel struct {
	Flag  Flag
	Label string
}

// FlagLabels is the canonical flag order. Restriction strings are always
// emitted in this order regardless of the order flags were toggled.
var FlagLabels = []FlagLabel{
	{Flag: FlagGlutenFree, Label: "Gluten-Free"},
	{Flag: FlagDairyFree, Label: "Dairy-Free"},
	{Flag: FlagVegan, Label: "Vegan"},
	{Flag: FlagVegetarian, Label: "Vegetarian"},
	{Flag: FlagLowSodium, Label: "Low-Sodium"},
	{Flag: FlagKeto, Label: "Keto"},
	{Flag: FlagDiabetic, Label: "Diabetic"},
	{Flag: FlagGastroparesis, Label: "Gastroparesis"},
}

// AllergyOptions are the allergies offered by the profile editor.
var AllergyOptions = []string{
	"Peanuts",
	"Tree Nuts",
	"Shellfish",
	"Fish",
	"Soy",
	"Wheat",
	"Eggs",
	"Milk",
}

// DietaryProfile describes the user's active restrictions and allergies.
type DietaryProfile struct {
	GlutenFree    bool     `json:"glutenFree"`
	DairyFree     bool     `json:"dairyFree"`
	Vegan         bool     `json:"vegan"`
	Vegetarian    bool     `json:"vegetarian"`
	LowSodium     bool     `json:"lowSodium"`
	Keto          bool     `json:"keto"`
	Diabetic      bool     `json:"diabetic"`
	Gastroparesis bool     `json:"gastroparesis"`
	Allergies     []string `json:"allergies"`
	Other         string   `json:"other"`
}

// ParseFlag returns the flag with the given JSON name.
func ParseFlag(name string) (Flag, bool) {
	for _, fl := range FlagLabels {
		if strings.EqualFold(string(fl.Flag), name) {
			return fl.Flag, true
		}
	}
	return "", false
}

func (p *DietaryProfile) field(flag Flag) *bool {
	switch flag {
	case FlagGlutenFree:
		return &p.GlutenFree
	case FlagDairyFree:
		return &p.DairyFree
	case FlagVegan:
		return &p.Vegan
	case FlagVegetarian:
		return &p.Vegetarian
	case FlagLowSodium:
		return &p.LowSodium
	case FlagKeto:
		return &p.Keto
	case FlagDiabetic:
		return &p.Diabetic
	case FlagGastroparesis:
		return &p.Gastroparesis
	}
	return nil
}

// Has reports whether the flag is set. Unknown flags are never set.
func (p DietaryProfile) Has(flag Flag) bool {
	if f := p.field(flag); f != nil {
		return *f
	}
	return false
}

// SetFlag sets a flag and reports whether the flag is known.
func (p *DietaryProfile) SetFlag(flag Flag, on bool) bool {
	f := p.field(flag)
	if f == nil {
		return false
	}
	*f = on
	return true
}

// ToggleFlag inverts a flag and returns its new value.
func (p *DietaryProfile) ToggleFlag(flag Flag) bool {
	f := p.field(flag)
	if f == nil {
		return false
	}
	*f = !*f
	return *f
}

// HasAllergy reports allergy membership.
func (p DietaryProfile) HasAllergy(name string) bool {
	for _, a := range p.Allergies {
		if a == name {
			return true
		}
	}
	return false
}

// ToggleAllergy removes the allergy when present and appends it otherwise.
// It returns true when the allergy is present afterwards.
func (p *DietaryProfile) ToggleAllergy(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	for i, a := range p.Allergies {
		if a == name {
			p.Allergies = append(p.Allergies[:i:i], p.Allergies[i+1:]...)
			return false
		}
	}
	p.Allergies = append(p.Allergies, name)
	return true
}

// SetOther replaces the free-text note. The text is kept verbatim.
func (p *DietaryProfile) SetOther(text string) {
	p.Other = text
}

// Normalize removes blank and duplicate allergies, keeping first occurrences.
func (p *DietaryProfile) Normalize() {
	if len(p.Allergies) == 0 {
		return
	}
	seen := make(map[string]bool, len(p.Allergies))
	out := make([]string, 0, len(p.Allergies))
	for _, a := range p.Allergies {
		a = strings.TrimSpace(a)
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	p.Allergies = out
}

// ActiveLabels returns the labels of the set flags in canonical order.
func (p DietaryProfile) ActiveLabels() []string {
	var labels []string
	for _, fl := range FlagLabels {
		if p.Has(fl.Flag) {
			labels = append(labels, fl.Label)
		}
	}
	return labels
}

// RestrictionString joins flag labels, allergies and the other note with ", ".
func (p DietaryProfile) RestrictionString() string {
	tokens := p.ActiveLabels()
	tokens = append(tokens, p.Allergies...)
	if strings.TrimSpace(p.Other) != "" {
		tokens = append(tokens, p.Other)
	}
	return strings.Join(tokens, ", ")
}

// IsEmpty reports whether the profile carries no restriction at all.
func (p DietaryProfile) IsEmpty() bool {
	return p.RestrictionString() == ""
}

// Clone returns a deep copy.
func (p DietaryProfile) Clone() DietaryProfile {
	c := p
	if p.Allergies != nil {
		c.Allergies = append([]string(nil), p.Allergies...)
	}
	return c
}
