package genai

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/errors"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/logger"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/models"
)

// fakeGenerator replays canned replies and records every request.
type fakeGenerator struct {
	mu       sync.Mutex
	replies  []string
	err      error
	requests []Request
}

func (f *fakeGenerator) Generate(_ context.Context, req Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", nil
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

func (f *fakeGenerator) lastRequest(t *testing.T) Request {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, gen Generator) *Client {
	t.Helper()
	return NewClient(gen, Options{DefaultSearchContext: "North Metro Atlanta (Kennesaw, Woodstock, Canton, Marietta, GA)"},
		logger.NewTestLogger(t), nil)
}

func TestReverseGeocode(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"  Kennesaw, GA\n"}}
	client := newTestClient(t, gen)

	loc, err := client.ReverseGeocode(context.Background(), 34.02, -84.61)
	require.NoError(t, err)
	assert.Equal(t, "Kennesaw, GA", loc)

	req := gen.lastRequest(t)
	assert.False(t, req.Grounded)
	assert.Contains(t, req.Prompt, "34.02")
	assert.Contains(t, req.Prompt, "-84.61")
	assert.Equal(t, OpReverseGeocode, req.Operation)
}

func TestReverseGeocodeEmptyReply(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"   "}}
	loc, err := newTestClient(t, gen).ReverseGeocode(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Empty(t, loc)
	assert.Len(t, gen.requests, 1)
}

func TestFindRestaurantAndMenu(t *testing.T) {
	tests := []struct {
		name         string
		location     string
		reply        string
		wantNil      bool
		wantLocation string
	}{
		{
			name:         "fenced reply",
			location:     "Kennesaw, GA",
			reply:        "```json\n{\"restaurant\":{\"name\":\"Chuy's\",\"address\":\"1 Main St\"},\"menu\":[{\"category\":\"Tacos\",\"items\":[{\"name\":\"Fish Taco\",\"description\":\"grilled\"}]}]}\n```",
			wantLocation: "Kennesaw, GA",
		},
		{
			name:         "empty location uses default context",
			location:     "  ",
			reply:        `{"restaurant":{"name":"Chuy's"},"menu":[]}`,
			wantLocation: "North Metro Atlanta (Kennesaw, Woodstock, Canton, Marietta, GA)",
		},
		{
			name:         "unparseable reply",
			location:     "Kennesaw, GA",
			reply:        "I could not find that restaurant.",
			wantNil:      true,
			wantLocation: "Kennesaw, GA",
		},
		{
			name:         "restaurant without a name",
			location:     "Kennesaw, GA",
			reply:        `{"restaurant":{"name":""},"menu":[]}`,
			wantNil:      true,
			wantLocation: "Kennesaw, GA",
		},
		{
			name:         "missing restaurant",
			location:     "Kennesaw, GA",
			reply:        `{"menu":[]}`,
			wantNil:      true,
			wantLocation: "Kennesaw, GA",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{replies: []string{tt.reply}}
			client := newTestClient(t, gen)

			lookup, err := client.FindRestaurantAndMenu(context.Background(), "Chuy's", tt.location)
			require.NoError(t, err)

			req := gen.lastRequest(t)
			assert.True(t, req.Grounded)
			assert.Contains(t, req.Prompt, `"Chuy's"`)
			assert.Contains(t, req.Prompt, tt.wantLocation)

			if tt.wantNil {
				assert.Nil(t, lookup)
				return
			}
			require.NotNil(t, lookup)
			assert.Equal(t, "Chuy's", lookup.Restaurant.Name)
			assert.NotNil(t, lookup.Menu)
		})
	}
}

func TestFindRestaurantAndMenuRejectsEmptyName(t *testing.T) {
	gen := &fakeGenerator{}
	client := newTestClient(t, gen)
	_, err := client.FindRestaurantAndMenu(context.Background(), " ", "Kennesaw, GA")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInputValidationFailed, errors.CodeOf(err))
	assert.Empty(t, gen.requests)
}

func TestFindRestaurantAndMenuPropagatesTransportError(t *testing.T) {
	transportErr := errors.NewAIRequestFailedError(OpFindRestaurant, stderrors.New("503"))
	client := newTestClient(t, &fakeGenerator{err: transportErr})
	_, err := client.FindRestaurantAndMenu(context.Background(), "Chuy's", "Kennesaw, GA")
	assert.Same(t, transportErr, err)
}

func TestSearchNearby(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		wantNames []string
	}{
		{
			name:      "bare array",
			reply:     `Here you go: [{"name":"Taco Mac","address":"Woodstock"},{"name":"Chuy's"}]`,
			wantNames: []string{"Taco Mac", "Chuy's"},
		},
		{
			name:      "envelope",
			reply:     `{"restaurants":[{"name":"True Food Kitchen"}]}`,
			wantNames: []string{"True Food Kitchen"},
		},
		{
			name:      "entries without names are dropped",
			reply:     `[{"name":""},{"name":"Zoës Kitchen"}]`,
			wantNames: []string{"Zoës Kitchen"},
		},
		{
			name:      "unparseable",
			reply:     "No restaurants found.",
			wantNames: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{replies: []string{tt.reply}}
			client := newTestClient(t, gen)

			profile := models.DietaryProfile{GlutenFree: true, Allergies: []string{"Peanuts"}}
			got, err := client.SearchNearby(context.Background(), "Kennesaw, GA", 5, profile)
			require.NoError(t, err)
			require.NotNil(t, got)

			names := make([]string, 0, len(got))
			for _, r := range got {
				names = append(names, r.Name)
			}
			assert.Equal(t, tt.wantNames, names)

			req := gen.lastRequest(t)
			assert.True(t, req.Grounded)
			assert.Contains(t, req.Prompt, "5 miles")
			assert.Contains(t, req.Prompt, "Gluten-Free, Peanuts")
		})
	}
}

func TestSearchNearbyErrorStillReturnsEmptyList(t *testing.T) {
	client := newTestClient(t, &fakeGenerator{err: stderrors.New("boom")})
	got, err := client.SearchNearby(context.Background(), "Kennesaw, GA", 5, models.DietaryProfile{})
	require.Error(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestClassifyMenuItemsWithMenu(t *testing.T) {
	reply := `{"safe":[{"name":"Grilled Chicken","description":"breast","reason":"lean"}],
		"caution":[{"name":"Rice","description":"white","reason":"carbs"},{"name":"Grilled Chicken","description":"breast","reason":"dup"}],
		"ingredientsFound":false}`
	gen := &fakeGenerator{replies: []string{reply}}
	client := newTestClient(t, gen)

	restaurant := models.Restaurant{Name: "Chuy's"}
	menu := models.MenuSnapshot{{Category: "Mains", Items: []models.MenuItem{{Name: "Grilled Chicken", Description: "breast"}}}}
	profile := models.DietaryProfile{GlutenFree: true, Allergies: []string{"Peanuts"}}

	set, err := client.ClassifyMenuItems(context.Background(), restaurant, models.MenuInput{Menu: menu}, profile)
	require.NoError(t, err)
	require.NotNil(t, set)

	assert.Len(t, set.Safe, 1)
	assert.Len(t, set.Caution, 2)
	assert.Equal(t, "Grilled Chicken", set.Caution[1].Name)
	assert.NotNil(t, set.Avoid)
	assert.Empty(t, set.Avoid)
	assert.False(t, set.IngredientsFound)

	req := gen.lastRequest(t)
	assert.True(t, req.Grounded)
	assert.Nil(t, req.Image)
	assert.Contains(t, req.Prompt, "Gluten-Free, Peanuts")
	assert.Contains(t, req.Prompt, `"Grilled Chicken"`)
	assert.NotContains(t, req.Prompt, "Gastroparesis (GP)")
	assert.NotContains(t, req.Prompt, "The diner is Diabetic")
}

func TestClassifyMenuItemsGuidanceBlocks(t *testing.T) {
	tests := []struct {
		name     string
		profile  models.DietaryProfile
		wantGP   bool
		wantDiab bool
	}{
		{name: "none", profile: models.DietaryProfile{}},
		{name: "gastroparesis", profile: models.DietaryProfile{Gastroparesis: true}, wantGP: true},
		{name: "diabetic", profile: models.DietaryProfile{Diabetic: true}, wantDiab: true},
		{name: "both", profile: models.DietaryProfile{Gastroparesis: true, Diabetic: true}, wantGP: true, wantDiab: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{replies: []string{`{"safe":[],"caution":[],"avoid":[],"ingredientsFound":true}`}}
			client := newTestClient(t, gen)
			_, err := client.ClassifyMenuItems(context.Background(), models.Restaurant{Name: "X"},
				models.MenuInput{Menu: models.MenuSnapshot{}}, tt.profile)
			require.NoError(t, err)

			prompt := gen.lastRequest(t).Prompt
			assert.Equal(t, tt.wantGP, strings.Contains(prompt, "Gastroparesis (GP)"))
			assert.Equal(t, tt.wantDiab, strings.Contains(prompt, "The diner is Diabetic"))
		})
	}
}

func TestClassifyMenuItemsWithImage(t *testing.T) {
	gen := &fakeGenerator{replies: []string{`{"safe":[],"caution":[],"avoid":[{"name":"Fries","description":"","reason":"fried"}],"ingredientsFound":true}`}}
	client := newTestClient(t, gen)

	img := models.ImageInput{Data: []byte{1, 2, 3}, MIMEType: "image/png"}
	set, err := client.ClassifyMenuItems(context.Background(), models.Restaurant{Name: "Chuy's"}, img, models.DietaryProfile{})
	require.NoError(t, err)
	require.NotNil(t, set)
	assert.Len(t, set.Avoid, 1)

	req := gen.lastRequest(t)
	require.NotNil(t, req.Image)
	assert.Equal(t, "image/png", req.Image.MIMEType)
	assert.Equal(t, []byte{1, 2, 3}, req.Image.Data)
	assert.NotContains(t, req.Prompt, "Menu JSON")
}

func TestClassifyMenuItemsUnparseable(t *testing.T) {
	client := newTestClient(t, &fakeGenerator{replies: []string{"Sorry, I cannot help."}})
	set, err := client.ClassifyMenuItems(context.Background(), models.Restaurant{Name: "Chuy's"},
		models.MenuInput{Menu: models.MenuSnapshot{}}, models.DietaryProfile{})
	require.NoError(t, err)
	assert.Nil(t, set)
}

func TestClassifyMenuItemsEmptyClassification(t *testing.T) {
	replies := map[string]string{
		"empty object":  `{}`,
		"empty buckets": `{"safe":[],"caution":[],"avoid":[],"ingredientsFound":false}`,
		"unknown keys":  `{"unrelated":1}`,
	}

	for name, reply := range replies {
		t.Run(name, func(t *testing.T) {
			gen := &fakeGenerator{replies: []string{reply}}
			set, err := newTestClient(t, gen).ClassifyMenuItems(context.Background(), models.Restaurant{Name: "Chuy's"},
				models.MenuInput{Menu: models.MenuSnapshot{}}, models.DietaryProfile{})
			require.NoError(t, err)
			assert.Nil(t, set)
			assert.Len(t, gen.requests, 1)
		})
	}
}

func TestClassifyMenuItemsValidation(t *testing.T) {
	tests := []struct {
		name       string
		restaurant models.Restaurant
		src        models.MenuSource
	}{
		{name: "no restaurant", restaurant: models.Restaurant{}, src: models.MenuInput{Menu: models.MenuSnapshot{}}},
		{name: "nil menu", restaurant: models.Restaurant{Name: "X"}, src: models.MenuInput{}},
		{name: "empty image", restaurant: models.Restaurant{Name: "X"}, src: models.ImageInput{MIMEType: "image/jpeg"}},
		{name: "nil source", restaurant: models.Restaurant{Name: "X"}, src: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{}
			client := newTestClient(t, gen)
			_, err := client.ClassifyMenuItems(context.Background(), tt.restaurant, tt.src, models.DietaryProfile{})
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeInputValidationFailed, errors.CodeOf(err))
			assert.Empty(t, gen.requests)
		})
	}
}
