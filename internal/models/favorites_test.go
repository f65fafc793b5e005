package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(name string) RecommendationItem {
	return RecommendationItem{Name: name, Description: name + " desc", Reason: "ok"}
}

func TestFavoritesToggleTwiceRestoresOriginal(t *testing.T) {
	original := Favorites{}
	original, _ = original.Toggle(item("Salad"), "Chuy's")
	original, _ = original.Toggle(item("Soup"), "Taco Mac")
	original, _ = original.Toggle(item("Tacos"), "Chuy's")

	after, added := original.Toggle(item("Fish"), "Chuy's")
	require.True(t, added)
	assert.Len(t, after, 4)

	restored, added := after.Toggle(item("Fish"), "Chuy's")
	require.False(t, added)
	assert.Equal(t, original, restored)
}

func TestFavoritesToggleRemovesKeepingOrder(t *testing.T) {
	f := Favorites{}
	f, _ = f.Toggle(item("A"), "R1")
	f, _ = f.Toggle(item("B"), "R1")
	f, _ = f.Toggle(item("C"), "R2")

	f, added := f.Toggle(item("B"), "R1")
	assert.False(t, added)
	require.Len(t, f, 2)
	assert.Equal(t, "A", f[0].Name)
	assert.Equal(t, "C", f[1].Name)
}

func TestFavoritesIdentityIncludesRestaurant(t *testing.T) {
	f := Favorites{}
	f, _ = f.Toggle(item("Salad"), "Chuy's")
	f, added := f.Toggle(item("Salad"), "Taco Mac")
	assert.True(t, added)
	assert.Len(t, f, 2)
	assert.True(t, f.Contains("Salad", "Chuy's"))
	assert.True(t, f.Contains("Salad", "Taco Mac"))
	assert.False(t, f.Contains("Salad", "Zoës"))
}

func TestFavoritesToggleDoesNotMutateReceiver(t *testing.T) {
	f := Favorites{{RecommendationItem: item("A"), RestaurantName: "R"}}
	_, _ = f.Toggle(item("A"), "R")
	assert.Len(t, f, 1)
}

func TestFavoritesRecent(t *testing.T) {
	f := Favorites{}
	for _, n := range []string{"1", "2", "3", "4", "5", "6", "7"} {
		f, _ = f.Toggle(item(n), "R")
	}
	recent := f.Recent(5)
	names := make([]string, 0, len(recent))
	for _, e := range recent {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"7", "6", "5", "4", "3"}, names)

	assert.Len(t, f.Recent(20), 7)
	assert.Empty(t, f.Recent(0))
	assert.Empty(t, Favorites{}.Recent(5))
}

func TestFavoritesDedupe(t *testing.T) {
	f := Favorites{
		{RecommendationItem: item("A"), RestaurantName: "R"},
		{RecommendationItem: item("B"), RestaurantName: "R"},
		{RecommendationItem: RecommendationItem{Name: "A", Reason: "second"}, RestaurantName: "R"},
	}
	d := f.Dedupe()
	require.Len(t, d, 2)
	assert.Equal(t, "ok", d[0].Reason)
}

func TestFavoriteEntryJSONIsFlat(t *testing.T) {
	e := FavoriteEntry{RecommendationItem: RecommendationItem{Name: "Salad", Reason: "fresh"}, RestaurantName: "Chuy's"}
	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Salad","description":"","reason":"fresh","restaurantName":"Chuy's"}`, string(data))
}

func TestMenuSnapshotItemCount(t *testing.T) {
	m := MenuSnapshot{
		{Category: "A", Items: []MenuItem{{Name: "1"}, {Name: "2"}}},
		{Category: "B", Items: []MenuItem{{Name: "3"}}},
	}
	assert.Equal(t, 3, m.ItemCount())
	assert.Equal(t, 0, MenuSnapshot(nil).ItemCount())
}

func TestRestaurantSameAs(t *testing.T) {
	a := Restaurant{Name: "Chuy's", Address: "1 Main", Website: "a"}
	b := Restaurant{Name: "Chuy's", Address: "1 Main", Website: "b"}
	c := Restaurant{Name: "Chuy's", Address: "2 Main"}
	assert.True(t, a.SameAs(b))
	assert.False(t, a.SameAs(c))
}
