// cmd/menu-advisor/session.go
package main

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/logger"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/models"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/settings"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/workflow"
)

const (
	defaultRadiusMiles = 5
	recentFavorites    = 5
)

const helpText = `Commands:
  profile                 show active restrictions
  flag <name>             toggle glutenFree, dairyFree, vegan, vegetarian, lowSodium, keto, diabetic or gastroparesis
  allergy <name>          toggle an allergy (Peanuts, Tree Nuts, Shellfish, Fish, Soy, Wheat, Eggs, Milk or your own)
  other <text>            set the free-text note
  location <text>         set the search location
  locate <lat> <lng>      detect the city from coordinates
  nearby [miles]          list nearby restaurants that suit your profile
  select <n>              pick a restaurant from the nearby list
  search <name>           look a restaurant and its menu up
  analyze                 classify the menu for your profile
  photo <path>            classify a photographed menu page
  favorite <n>            toggle a result as favorite
  favorites               list recent favorites
  back | again | restart  navigate
  state                   show the current screen
  quit
`

// session runs the line-oriented terminal UI over a workflow controller.
type session struct {
	ctrl     *workflow.Controller
	settings *settings.Settings
	logger   logger.Logger
	out      io.Writer

	// progress prints rotating loading messages while an AI call runs.
	progress bool
	interval time.Duration

	// geo, when set, is queried once in the background as the session starts.
	geo workflow.Geolocator

	outMu sync.Mutex
}

func newSession(ctrl *workflow.Controller, s *settings.Settings, log logger.Logger, out io.Writer) *session {
	return &session{
		ctrl:     ctrl,
		settings: s,
		logger:   log,
		out:      out,
		progress: true,
		interval: workflow.MessageInterval,
	}
}

func (s *session) printf(format string, args ...interface{}) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}

// Run reads commands until EOF or quit. A background location detection
// is cancelled and awaited before Run returns.
func (s *session) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	scanner := bufio.NewScanner(in)
	s.printf("%s", helpText)
	if s.geo != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.detectOnStart(ctx)
		}()
	}
	s.prompt()
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !s.Exec(ctx, scanner.Text()) {
			return nil
		}
		s.prompt()
	}
	return scanner.Err()
}

func (s *session) prompt() {
	s.printf("[%s] > ", s.ctrl.State())
}

// Exec runs one command line and reports whether the session continues.
func (s *session) Exec(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)
	if cmd != "" {
		s.logger.Debug("command", map[string]interface{}{"command": cmd, "state": string(s.ctrl.State())})
	}

	switch strings.ToLower(cmd) {
	case "":
	case "help":
		s.printf("%s", helpText)
	case "quit", "exit":
		return false
	case "profile":
		s.showProfile()
	case "flag":
		s.toggleFlag(ctx, arg)
	case "allergy":
		s.toggleAllergy(ctx, arg)
	case "other":
		s.report(s.settings.SetOther(ctx, arg))
		s.showProfile()
	case "location":
		s.ctrl.SetLocation(arg)
		s.printf("Location: %s\n", s.ctrl.Snapshot().Location)
	case "locate":
		s.locate(ctx, arg)
	case "nearby":
		s.nearby(ctx, arg)
	case "select":
		s.selectNearby(ctx, arg)
	case "search":
		s.search(ctx, arg)
	case "analyze":
		s.analyze(ctx, nil)
	case "photo":
		s.analyze(ctx, fileCamera{path: arg})
	case "favorite":
		s.toggleFavorite(ctx, arg)
	case "favorites":
		s.showFavorites()
	case "back":
		s.report(s.ctrl.Back())
		s.showState()
	case "again":
		s.ctrl.SearchAgain()
		s.showState()
	case "restart":
		s.report(s.ctrl.Restart())
		s.showState()
	case "state":
		s.showState()
	default:
		s.printf("Unknown command %q. Type help for a list.\n", cmd)
	}
	return true
}

// withProgress runs op, printing the loading message of the busy state every
// interval until it returns.
func (s *session) withProgress(op func()) {
	if !s.progress {
		op()
		return
	}
	done := make(chan struct{})
	go func() {
		start := time.Now()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		last := ""
		for {
			if msg := workflow.LoadingMessage(s.ctrl.State(), time.Since(start)); msg != "" && msg != last {
				s.printf("  %s\n", msg)
				last = msg
			}
			select {
			case <-done:
				return
			case <-ticker.C:
			}
		}
	}()
	op()
	close(done)
}

// report prints the failure for err. The controller's error message wins
// over the raw error.
func (s *session) report(err error) {
	if err == nil {
		return
	}
	if stderrors.Is(err, workflow.ErrInvalidTransition) {
		s.printf("Not available while %s.\n", s.ctrl.State())
		return
	}
	if stderrors.Is(err, workflow.ErrStaleResponse) {
		return
	}
	if msg := s.ctrl.Snapshot().ErrorMessage; msg != "" {
		s.printf("Error: %s\n", msg)
		return
	}
	s.printf("Error: %v\n", err)
}

func (s *session) showProfile() {
	restrictions := s.settings.Profile().RestrictionString()
	if restrictions == "" {
		restrictions = "none"
	}
	s.printf("Restrictions: %s\n", restrictions)
}

func (s *session) toggleFlag(ctx context.Context, name string) {
	flag, ok := models.ParseFlag(name)
	if !ok {
		s.printf("Unknown restriction %q.\n", name)
		return
	}
	if _, err := s.settings.ToggleFlag(ctx, flag); err != nil {
		s.printf("Error: %v\n", err)
	}
	s.showProfile()
}

func (s *session) toggleAllergy(ctx context.Context, name string) {
	if name == "" {
		s.printf("Usage: allergy <name>\n")
		return
	}
	if _, err := s.settings.ToggleAllergy(ctx, name); err != nil {
		s.printf("Error: %v\n", err)
	}
	s.showProfile()
}

func (s *session) locate(ctx context.Context, arg string) {
	fields := strings.Fields(arg)
	if len(fields) != 2 {
		s.printf("Usage: locate <lat> <lng>\n")
		return
	}
	lat, errLat := strconv.ParseFloat(fields[0], 64)
	lng, errLng := strconv.ParseFloat(fields[1], 64)
	if errLat != nil || errLng != nil {
		s.printf("Usage: locate <lat> <lng>\n")
		return
	}
	applied, err := s.ctrl.DetectLocation(ctx, fixedGeolocator{pos: workflow.Position{Latitude: lat, Longitude: lng}})
	if err != nil {
		s.report(err)
		return
	}
	if applied {
		s.printf("Location: %s\n", s.ctrl.Snapshot().Location)
	}
}

// detectOnStart races the device position against anything typed with
// the location command; typed input wins.
func (s *session) detectOnStart(ctx context.Context) {
	applied, err := s.ctrl.DetectLocation(ctx, s.geo)
	if err != nil {
		if ctx.Err() == nil {
			s.report(err)
		}
		return
	}
	if applied {
		s.printf("Detected location: %s\n", s.ctrl.Snapshot().Location)
	}
}

func (s *session) nearby(ctx context.Context, arg string) {
	radius := float64(defaultRadiusMiles)
	if arg != "" {
		r, err := strconv.ParseFloat(arg, 64)
		if err != nil || r <= 0 {
			s.printf("Usage: nearby [miles]\n")
			return
		}
		radius = r
	}

	var err error
	s.withProgress(func() {
		_, err = s.ctrl.SearchNearby(ctx, s.ctrl.Snapshot().Location, radius, s.settings.Profile())
	})
	if err != nil {
		s.report(err)
		return
	}
	s.showState()
}

func (s *session) selectNearby(ctx context.Context, arg string) {
	list := s.ctrl.Snapshot().Nearby
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(list) {
		s.printf("Pick a restaurant between 1 and %d.\n", len(list))
		return
	}
	s.withProgress(func() {
		_, err = s.ctrl.SelectRestaurant(ctx, list[n-1])
	})
	if err != nil {
		s.report(err)
		return
	}
	s.showState()
}

func (s *session) search(ctx context.Context, name string) {
	var err error
	s.withProgress(func() {
		_, err = s.ctrl.StartSearch(ctx, name, s.ctrl.Snapshot().Location)
	})
	if err != nil {
		s.report(err)
		return
	}
	s.showState()
}

// analyze classifies the cached menu, or a photo when camera is set.
func (s *session) analyze(ctx context.Context, camera workflow.Camera) {
	var err error
	profile := s.settings.Profile()
	s.withProgress(func() {
		// A cancelled capture returns no set and no error.
		if camera == nil {
			_, err = s.ctrl.Analyze(ctx, profile)
		} else {
			_, err = s.ctrl.CaptureAndAnalyze(ctx, camera, profile)
		}
	})
	if err != nil {
		s.report(err)
		return
	}
	s.showState()
}

// resultItems numbers the results in display order.
func resultItems(set *models.RecommendationSet) []models.RecommendationItem {
	if set == nil {
		return nil
	}
	items := make([]models.RecommendationItem, 0, set.Total())
	items = append(items, set.Safe...)
	items = append(items, set.Caution...)
	return append(items, set.Avoid...)
}

func (s *session) toggleFavorite(ctx context.Context, arg string) {
	view := s.ctrl.Snapshot()
	if view.State != workflow.StateShowingResults || view.Restaurant == nil {
		s.printf("Favorites can be saved from results only.\n")
		return
	}
	items := resultItems(view.Results)
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(items) {
		s.printf("Pick an item between 1 and %d.\n", len(items))
		return
	}
	item := items[n-1]
	added, err := s.settings.ToggleFavorite(ctx, item, view.Restaurant.Name)
	if err != nil {
		s.printf("Error: %v\n", err)
	}
	if added {
		s.printf("Saved %s to favorites.\n", item.Name)
	} else {
		s.printf("Removed %s from favorites.\n", item.Name)
	}
}

func (s *session) showFavorites() {
	recent := s.settings.RecentFavorites(recentFavorites)
	if len(recent) == 0 {
		s.printf("No favorites yet.\n")
		return
	}
	for _, f := range recent {
		s.printf("  %s (%s)\n", f.Name, f.RestaurantName)
	}
}

func (s *session) showState() {
	view := s.ctrl.Snapshot()
	switch view.State {
	case workflow.StateIdle:
		if view.Location != "" {
			s.printf("Location: %s\n", view.Location)
		}
		for i, r := range view.Nearby {
			s.printf("  %d. %s", i+1, r.Name)
			if r.Address != "" {
				s.printf(" - %s", r.Address)
			}
			s.printf("\n")
		}
		if recent := s.settings.RecentFavorites(recentFavorites); len(recent) > 0 {
			s.printf("Recent favorites: %d\n", len(recent))
		}
	case workflow.StateConfirmingRestaurant:
		if view.Restaurant != nil {
			s.printf("%s\n", view.Restaurant.Name)
			if view.Restaurant.Address != "" {
				s.printf("  %s\n", view.Restaurant.Address)
			}
		}
		s.printf("Menu: %d categories, %d items. Type analyze or photo <path>.\n", len(view.Menu), view.Menu.ItemCount())
	case workflow.StateShowingResults:
		s.showResults(view)
	default:
		s.printf("%s\n", view.State)
	}
	if view.ErrorMessage != "" {
		s.printf("Error: %s\n", view.ErrorMessage)
	}
}

func (s *session) showResults(view workflow.View) {
	set := view.Results
	if set == nil {
		return
	}
	if !set.IngredientsFound {
		s.printf("Ingredient details were not published for this menu; results rely on typical recipes.\n")
	}
	restaurant := ""
	if view.Restaurant != nil {
		restaurant = view.Restaurant.Name
	}
	favs := s.settings.Favorites()
	n := 0
	for _, bucket := range []struct {
		title string
		items []models.RecommendationItem
	}{
		{"Safe", set.Safe},
		{"Caution", set.Caution},
		{"Avoid", set.Avoid},
	} {
		s.printf("%s (%d)\n", bucket.title, len(bucket.items))
		for _, item := range bucket.items {
			n++
			star := " "
			if favs.Contains(item.Name, restaurant) {
				star = "*"
			}
			s.printf("  %s%d. %s - %s\n", star, n, item.Name, item.Reason)
		}
	}
}
