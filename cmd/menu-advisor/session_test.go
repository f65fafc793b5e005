package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/logger"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/genai"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/genai/genaitest"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/models"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/retry"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/settings"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/workflow"
)

func chuysAdvisor() *genaitest.Advisor {
	return &genaitest.Advisor{
		ReverseGeocodeFunc: func(context.Context, float64, float64) (string, error) {
			return "Kennesaw, GA", nil
		},
		SearchNearbyFunc: func(context.Context, string, float64, models.DietaryProfile) ([]models.Restaurant, error) {
			return []models.Restaurant{{Name: "Chuy's", Address: "1450 Barrett Lakes Blvd, Kennesaw, GA"}}, nil
		},
		FindRestaurantAndMenuFunc: func(_ context.Context, name, _ string) (*models.RestaurantLookup, error) {
			return &models.RestaurantLookup{
				Restaurant: &models.Restaurant{Name: name},
				Menu:       models.MenuSnapshot{{Category: "Tacos", Items: []models.MenuItem{{Name: "Tacos al Carbon"}}}},
			}, nil
		},
		ClassifyMenuItemsFunc: func(context.Context, models.Restaurant, models.MenuSource, models.DietaryProfile) (*models.RecommendationSet, error) {
			return &models.RecommendationSet{
				Safe:             []models.RecommendationItem{{Name: "Tacos al Carbon", Reason: "Corn tortillas"}},
				Caution:          []models.RecommendationItem{},
				Avoid:            []models.RecommendationItem{{Name: "Queso", Reason: "Contains milk"}},
				IngredientsFound: true,
			}, nil
		},
	}
}

func newTestSession(t *testing.T, adv genai.Advisor) (*session, *bytes.Buffer) {
	t.Helper()
	log := logger.NewTestLogger(t)
	ctrl := workflow.NewController(adv, retry.Policy{
		MaxAttempts: 2,
		Sleep:       func(context.Context, time.Duration) error { return nil },
	}, log)
	prefs := settings.New(settings.NewMemoryStore(), log)
	require.NoError(t, prefs.Load(context.Background()))

	var out bytes.Buffer
	s := newSession(ctrl, prefs, log, &out)
	s.progress = false
	return s, &out
}

func TestSession_SearchAnalyzeFavorite(t *testing.T) {
	s, out := newTestSession(t, chuysAdvisor())
	ctx := context.Background()

	s.Exec(ctx, "flag glutenFree")
	s.Exec(ctx, "allergy Milk")
	assert.Contains(t, out.String(), "Restrictions: Gluten-Free, Milk")

	s.Exec(ctx, "location Kennesaw, GA")
	s.Exec(ctx, "search Chuy's")
	assert.Equal(t, workflow.StateConfirmingRestaurant, s.ctrl.State())
	assert.Contains(t, out.String(), "Menu: 1 categories, 1 items.")

	s.Exec(ctx, "analyze")
	require.Equal(t, workflow.StateShowingResults, s.ctrl.State())
	assert.Contains(t, out.String(), "Safe (1)")
	assert.Contains(t, out.String(), "2. Queso - Contains milk")

	out.Reset()
	s.Exec(ctx, "favorite 1")
	assert.Contains(t, out.String(), "Saved Tacos al Carbon to favorites.")
	assert.True(t, s.settings.Favorites().Contains("Tacos al Carbon", "Chuy's"))

	s.Exec(ctx, "favorite 1")
	assert.False(t, s.settings.Favorites().Contains("Tacos al Carbon", "Chuy's"))

	s.Exec(ctx, "restart")
	assert.Equal(t, workflow.StateIdle, s.ctrl.State())
}

func TestSession_NearbyAndSelect(t *testing.T) {
	adv := chuysAdvisor()
	s, out := newTestSession(t, adv)
	ctx := context.Background()

	s.Exec(ctx, "nearby")
	assert.Contains(t, out.String(), "Please enter a location or detect your current one.")
	assert.Zero(t, adv.Calls(genai.OpSearchNearby))

	s.Exec(ctx, "locate 34.02 -84.61")
	assert.Contains(t, out.String(), "Location: Kennesaw, GA")

	s.Exec(ctx, "nearby")
	assert.Contains(t, out.String(), "1. Chuy's - 1450 Barrett Lakes Blvd, Kennesaw, GA")

	s.Exec(ctx, "select 2")
	assert.Contains(t, out.String(), "Pick a restaurant between 1 and 1.")

	s.Exec(ctx, "select 1")
	assert.Equal(t, workflow.StateConfirmingRestaurant, s.ctrl.State())
}

func TestSession_InvalidCommands(t *testing.T) {
	s, out := newTestSession(t, chuysAdvisor())
	ctx := context.Background()

	tests := []struct {
		line string
		want string
	}{
		{"bogus", `Unknown command "bogus"`},
		{"flag paleo", `Unknown restriction "paleo"`},
		{"analyze", "Not available while idle."},
		{"favorite 1", "Favorites can be saved from results only."},
		{"nearby -3", "Usage: nearby [miles]"},
		{"locate north", "Usage: locate <lat> <lng>"},
		{"search ", "Please enter a restaurant name."},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			out.Reset()
			assert.True(t, s.Exec(ctx, tt.line))
			assert.Contains(t, out.String(), tt.want)
		})
	}

	assert.False(t, s.Exec(ctx, "quit"))
}

func TestSession_PhotoCancelAndCapture(t *testing.T) {
	s, out := newTestSession(t, chuysAdvisor())
	ctx := context.Background()

	s.Exec(ctx, "location Kennesaw, GA")
	s.Exec(ctx, "search Chuy's")
	require.Equal(t, workflow.StateConfirmingRestaurant, s.ctrl.State())
	out.Reset()
	s.Exec(ctx, "photo")
	assert.Equal(t, workflow.StateConfirmingRestaurant, s.ctrl.State())
	assert.NotContains(t, out.String(), "Error:")

	path := filepath.Join(t.TempDir(), "menu.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n"), 0o600))
	s.Exec(ctx, "photo "+path)
	assert.Equal(t, workflow.StateShowingResults, s.ctrl.State())
}

func TestSession_Run(t *testing.T) {
	s, out := newTestSession(t, chuysAdvisor())
	in := strings.NewReader("profile\nquit\nprofile\n")
	require.NoError(t, s.Run(context.Background(), in))
	assert.Equal(t, 1, strings.Count(out.String(), "Restrictions: none"))
}

// gateGeolocator holds the position until release is closed.
type gateGeolocator struct {
	started chan struct{}
	release chan struct{}
}

func (g gateGeolocator) CurrentPosition(ctx context.Context) (workflow.Position, error) {
	close(g.started)
	select {
	case <-g.release:
		return workflow.Position{Latitude: 34.02, Longitude: -84.61}, nil
	case <-ctx.Done():
		return workflow.Position{}, workflow.ErrLocationUnavailable
	}
}

func runInBackground(s *session, in io.Reader) <-chan error {
	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background(), in) }()
	return done
}

func TestSession_RunDetectsLocationAtStart(t *testing.T) {
	s, _ := newTestSession(t, chuysAdvisor())
	s.geo = fixedGeolocator{pos: workflow.Position{Latitude: 34.02, Longitude: -84.61}}

	pr, pw := io.Pipe()
	done := runInBackground(s, pr)

	assert.Eventually(t, func() bool { return s.ctrl.Snapshot().Location == "Kennesaw, GA" },
		time.Second, 5*time.Millisecond)
	_, err := pw.Write([]byte("quit\n"))
	require.NoError(t, err)
	require.NoError(t, <-done)
	assert.False(t, s.ctrl.Snapshot().ManualLocation)
}

func TestSession_TypedLocationBeatsLateDetection(t *testing.T) {
	s, _ := newTestSession(t, chuysAdvisor())
	geo := gateGeolocator{started: make(chan struct{}), release: make(chan struct{})}
	s.geo = geo

	pr, pw := io.Pipe()
	done := runInBackground(s, pr)
	<-geo.started

	_, err := pw.Write([]byte("location Austin, TX\n"))
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return s.ctrl.Snapshot().Location == "Austin, TX" },
		time.Second, 5*time.Millisecond)

	close(geo.release)
	assert.Eventually(t, func() bool { return !s.ctrl.Snapshot().DetectingLocation },
		time.Second, 5*time.Millisecond)

	_, err = pw.Write([]byte("quit\n"))
	require.NoError(t, err)
	require.NoError(t, <-done)
	assert.Equal(t, "Austin, TX", s.ctrl.Snapshot().Location)
}

func TestDetectMIME(t *testing.T) {
	assert.Equal(t, "image/jpeg", detectMIME("menu.JPG", nil))
	assert.Equal(t, "image/png", detectMIME("capture", []byte("\x89PNG\r\n\x1a\n")))
}

func TestFileCamera(t *testing.T) {
	_, err := fileCamera{}.Capture(context.Background())
	assert.ErrorIs(t, err, workflow.ErrCaptureCancelled)

	_, err = fileCamera{path: filepath.Join(t.TempDir(), "missing.jpg")}.Capture(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, workflow.ErrCaptureCancelled)
}
