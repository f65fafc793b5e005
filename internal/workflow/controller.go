package workflow

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"

	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/errors"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/logger"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/metrics"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/genai"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/models"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/retry"
)

// User-facing messages.
const (
	msgEnterRestaurant    = "Please enter a restaurant name."
	msgEnterLocation      = "Please enter a location or detect your current one."
	msgSelectFirst        = "Please select a restaurant first."
	msgRestaurantNotFound = "Could not find restaurant or menu."
	msgMenuNotFound       = "Could not find menu for this restaurant."
	msgSearchFailed       = "Failed to search restaurants."
	msgFindMenuFailed     = "Failed to find menu."
	msgAnalysisFailed     = "Analysis failed."
	msgImageFailed        = "Image analysis failed. Please try again or use text analysis."
	msgCameraUnavailable  = "Photo capture is not available."
	msgGeocodeFailed      = "Could not identify your city. Please enter it manually."
	msgPermissionDenied   = "Location permission denied. Please enter your city manually."
	msgGeoUnsupported     = "Geolocation is not supported on this device."
)

type query struct {
	name     string
	location string
}

// View is a point-in-time copy of the controller state for presentation.
type View struct {
	State             State
	Busy              bool
	Restaurant        *models.Restaurant
	Menu              models.MenuSnapshot
	Results           *models.RecommendationSet
	Nearby            []models.Restaurant
	ErrorMessage      string
	ErrorCode         errors.ErrorCode
	Location          string
	ManualLocation    bool
	DetectingLocation bool
}

// Controller is the workflow state machine. Trigger methods block on the AI
// call and are safe for concurrent use; at most one AI operation is in
// flight because triggers are only accepted from non-busy states.
type Controller struct {
	advisor genai.Advisor
	policy  retry.Policy
	logger  logger.Logger

	mu         sync.Mutex
	state      State
	generation uint64

	restaurant *models.Restaurant
	menu       models.MenuSnapshot
	results    *models.RecommendationSet
	nearby     []models.Restaurant
	lastQuery  *query

	lastErr    error
	errMessage string

	location       string
	manualLocation bool
	locationEdits  uint64
	detecting      bool
}

func NewController(advisor genai.Advisor, policy retry.Policy, log logger.Logger) *Controller {
	return &Controller{
		advisor: advisor,
		policy:  policy,
		logger:  log.With(map[string]interface{}{"component": "workflow"}),
		state:   StateIdle,
		nearby:  []models.Restaurant{},
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		State:             c.state,
		Busy:              c.state.Busy(),
		Menu:              cloneMenu(c.menu),
		Results:           cloneResults(c.results),
		Nearby:            append([]models.Restaurant{}, c.nearby...),
		ErrorMessage:      c.errMessage,
		Location:          c.location,
		ManualLocation:    c.manualLocation,
		DetectingLocation: c.detecting,
	}
	if c.restaurant != nil {
		r := *c.restaurant
		v.Restaurant = &r
	}
	if c.lastErr != nil {
		v.ErrorCode = errors.CodeOf(c.lastErr)
	}
	return v
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetLocation records a manually entered location. A detection that is
// still in progress will not overwrite it.
func (c *Controller) SetLocation(location string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.location = strings.TrimSpace(location)
	c.manualLocation = true
	c.locationEdits++
}

// SearchNearby lists restaurants near location that suit profile. The
// controller returns to idle either way.
func (c *Controller) SearchNearby(ctx context.Context, location string, radiusMiles float64, profile models.DietaryProfile) ([]models.Restaurant, error) {
	location = strings.TrimSpace(location)

	c.mu.Lock()
	if err := ValidateTrigger(c.state, TriggerSearchNearby); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if location == "" {
		err := c.rejectLocked(errors.NewInputValidationError(msgEnterLocation, "location is empty"))
		c.mu.Unlock()
		return nil, err
	}
	gen := c.launchLocked(StateSearchingNearby)
	c.mu.Unlock()

	found, err := retry.Do(ctx, c.policyFor(genai.OpSearchNearby), func(ctx context.Context) ([]models.Restaurant, error) {
		return c.advisor.SearchNearby(ctx, location, radiusMiles, profile)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if stale := c.checkCurrentLocked(gen); stale != nil {
		return nil, stale
	}
	if err != nil {
		c.failLocked(err, msgSearchFailed, StateIdle)
		return nil, err
	}
	if found == nil {
		found = []models.Restaurant{}
	}
	c.nearby = found
	c.setStateLocked(StateIdle)
	return append([]models.Restaurant{}, found...), nil
}

// SelectRestaurant loads the menu for a candidate from a nearby search,
// using its address or else the current location.
func (c *Controller) SelectRestaurant(ctx context.Context, candidate models.Restaurant) (*models.RestaurantLookup, error) {
	name := strings.TrimSpace(candidate.Name)

	c.mu.Lock()
	if err := ValidateTrigger(c.state, TriggerSelectRestaurant); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if name == "" {
		err := c.rejectLocked(errors.NewInputValidationError(msgEnterRestaurant, "candidate has no name"))
		c.mu.Unlock()
		return nil, err
	}
	location := strings.TrimSpace(candidate.Address)
	if location == "" {
		location = c.location
	}
	c.clearLookupLocked()
	gen := c.launchLocked(StateLoadingMenu)
	c.mu.Unlock()

	lookup, err := c.findMenu(ctx, name, location)
	return c.finishLookup(gen, query{name: name, location: location}, lookup, err, msgMenuNotFound)
}

// StartSearch looks a restaurant up by name. Repeating the previous
// successful query reuses its result without calling the advisor; any other
// query drops the cached result first.
func (c *Controller) StartSearch(ctx context.Context, name, location string) (*models.RestaurantLookup, error) {
	name = strings.TrimSpace(name)
	location = strings.TrimSpace(location)

	c.mu.Lock()
	if err := ValidateTrigger(c.state, TriggerStartSearch); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if name == "" {
		err := c.rejectLocked(errors.NewInputValidationError(msgEnterRestaurant, "restaurant name is empty"))
		c.mu.Unlock()
		return nil, err
	}
	if location == "" {
		err := c.rejectLocked(errors.NewInputValidationError(msgEnterLocation, "location is empty"))
		c.mu.Unlock()
		return nil, err
	}

	q := query{name: name, location: location}
	if c.restaurant != nil && c.lastQuery != nil && *c.lastQuery == q {
		c.clearErrorLocked()
		c.setStateLocked(StateConfirmingRestaurant)
		lookup := c.lookupLocked()
		c.mu.Unlock()
		c.logger.Debug("reusing cached lookup", map[string]interface{}{
			"restaurant": name,
			"location":   location,
		})
		return lookup, nil
	}
	c.clearLookupLocked()
	gen := c.launchLocked(StateLoadingMenu)
	c.mu.Unlock()

	lookup, err := c.findMenu(ctx, name, location)
	return c.finishLookup(gen, q, lookup, err, msgRestaurantNotFound)
}

func (c *Controller) findMenu(ctx context.Context, name, location string) (*models.RestaurantLookup, error) {
	return retry.Do(ctx, c.policyFor(genai.OpFindRestaurant), func(ctx context.Context) (*models.RestaurantLookup, error) {
		return c.advisor.FindRestaurantAndMenu(ctx, name, location)
	})
}

func (c *Controller) finishLookup(gen uint64, q query, lookup *models.RestaurantLookup, err error, notFound string) (*models.RestaurantLookup, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if stale := c.checkCurrentLocked(gen); stale != nil {
		return nil, stale
	}
	if err == nil && (lookup == nil || lookup.Restaurant == nil) {
		err = errors.NewRestaurantNotFoundError(notFound, "lookup returned no restaurant for "+q.name)
	}
	if err != nil {
		c.failLocked(err, msgFindMenuFailed, StateIdle)
		return nil, err
	}

	r := *lookup.Restaurant
	c.restaurant = &r
	c.menu = cloneMenu(lookup.Menu)
	if c.menu == nil {
		c.menu = models.MenuSnapshot{}
	}
	c.results = nil
	c.lastQuery = &q
	c.setStateLocked(StateConfirmingRestaurant)
	return c.lookupLocked(), nil
}

// Analyze classifies the retrieved menu against profile.
func (c *Controller) Analyze(ctx context.Context, profile models.DietaryProfile) (*models.RecommendationSet, error) {
	c.mu.Lock()
	restaurant, err := c.analysisTargetLocked(TriggerAnalyze)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	menu := cloneMenu(c.menu)
	if menu == nil {
		menu = models.MenuSnapshot{}
	}
	gen := c.launchLocked(StateAnalyzingMenu)
	c.mu.Unlock()

	set, err := c.classify(ctx, restaurant, models.MenuInput{Menu: menu}, profile)
	return c.finishAnalysis(gen, set, err, msgAnalysisFailed)
}

// CaptureAndAnalyze takes a menu photo and classifies it against profile. A
// cancelled or empty capture is a no-op and returns nil, nil.
func (c *Controller) CaptureAndAnalyze(ctx context.Context, camera Camera, profile models.DietaryProfile) (*models.RecommendationSet, error) {
	c.mu.Lock()
	if _, err := c.analysisTargetLocked(TriggerCaptureAndAnalyze); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if camera == nil {
		err := c.rejectLocked(errors.NewInputValidationError(msgCameraUnavailable, "no camera configured"))
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()

	image, err := camera.Capture(ctx)
	if stderrors.Is(err, ErrCaptureCancelled) {
		c.logger.Debug("photo capture cancelled", nil)
		return nil, nil
	}
	if err != nil {
		c.mu.Lock()
		if c.state == StateConfirmingRestaurant {
			c.failLocked(err, msgImageFailed, StateConfirmingRestaurant)
		}
		c.mu.Unlock()
		return nil, err
	}
	if image.Empty() {
		return nil, nil
	}

	// The state may have moved while the camera was open.
	c.mu.Lock()
	restaurant, err := c.analysisTargetLocked(TriggerCaptureAndAnalyze)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	gen := c.launchLocked(StateAnalyzingMenu)
	c.mu.Unlock()

	set, err := c.classify(ctx, restaurant, image, profile)
	return c.finishAnalysis(gen, set, err, msgImageFailed)
}

func (c *Controller) analysisTargetLocked(trigger Trigger) (models.Restaurant, error) {
	if err := ValidateTrigger(c.state, trigger); err != nil {
		return models.Restaurant{}, err
	}
	if c.restaurant == nil || !c.restaurant.Valid() {
		return models.Restaurant{}, c.rejectLocked(errors.NewInputValidationError(msgSelectFirst, "no restaurant selected"))
	}
	return *c.restaurant, nil
}

func (c *Controller) classify(ctx context.Context, restaurant models.Restaurant, src models.MenuSource, profile models.DietaryProfile) (*models.RecommendationSet, error) {
	return retry.Do(ctx, c.policyFor(genai.OpClassifyMenu), func(ctx context.Context) (*models.RecommendationSet, error) {
		return c.advisor.ClassifyMenuItems(ctx, restaurant, src, profile)
	})
}

func (c *Controller) finishAnalysis(gen uint64, set *models.RecommendationSet, err error, fallback string) (*models.RecommendationSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if stale := c.checkCurrentLocked(gen); stale != nil {
		return nil, stale
	}
	if err == nil && set == nil {
		err = errors.NewClassificationUnavailableError(fallback, "classification returned no usable result")
	}
	if err != nil {
		c.failLocked(err, fallback, StateConfirmingRestaurant)
		return nil, err
	}
	c.results = cloneResults(set)
	c.setStateLocked(StateShowingResults)
	return cloneResults(set), nil
}

// Restart leaves the results view and forgets the last query, so the next
// search always calls the advisor.
func (c *Controller) Restart() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := ValidateTrigger(c.state, TriggerRestart); err != nil {
		return err
	}
	c.generation++
	c.lastQuery = nil
	c.clearErrorLocked()
	c.setStateLocked(StateIdle)
	return nil
}

// SearchAgain discards everything about the current lookup. An operation
// still in flight has its result discarded when it completes.
func (c *Controller) SearchAgain() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.clearLookupLocked()
	c.clearErrorLocked()
	c.setStateLocked(StateIdle)
}

// Back returns to idle keeping the cached lookup.
func (c *Controller) Back() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := ValidateTrigger(c.state, TriggerBack); err != nil {
		return err
	}
	c.generation++
	c.clearErrorLocked()
	c.setStateLocked(StateIdle)
	return nil
}

// DetectLocation acquires the device position and reverse-geocodes it. The
// result is applied only if the location was not edited in the meantime,
// and the bool reports whether it was. Failures are surfaced as the current error
// without changing the workflow state.
func (c *Controller) DetectLocation(ctx context.Context, geo Geolocator) (bool, error) {
	c.mu.Lock()
	if geo == nil {
		err := errors.NewLocationUnavailableError(msgGeoUnsupported, ErrLocationUnavailable)
		c.setErrorLocked(err, msgGeoUnsupported)
		c.mu.Unlock()
		return false, err
	}
	if c.detecting {
		c.mu.Unlock()
		return false, nil
	}
	c.detecting = true
	edits := c.locationEdits
	c.mu.Unlock()

	location, err := c.detect(ctx, geo)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.detecting = false
	if err != nil {
		c.logger.Warn("location detection failed", map[string]interface{}{"error": err.Error()})
		c.setErrorLocked(err, msgGeocodeFailed)
		return false, err
	}
	if c.locationEdits != edits {
		c.logger.Debug("keeping manually entered location", map[string]interface{}{
			"manual":   c.location,
			"detected": location,
		})
		return false, nil
	}
	c.location = location
	c.manualLocation = false
	return true, nil
}

func (c *Controller) detect(ctx context.Context, geo Geolocator) (string, error) {
	pos, err := geo.CurrentPosition(ctx)
	if err != nil {
		if stderrors.Is(err, ErrLocationPermissionDenied) {
			return "", errors.NewLocationUnavailableError(msgPermissionDenied, err)
		}
		return "", errors.NewLocationUnavailableError(msgGeocodeFailed, err)
	}
	location, err := retry.Do(ctx, c.policyFor(genai.OpReverseGeocode), func(ctx context.Context) (string, error) {
		return c.advisor.ReverseGeocode(ctx, pos.Latitude, pos.Longitude)
	})
	if err != nil {
		return "", err
	}
	if location == "" {
		return "", errors.NewLocationUnavailableError(msgGeocodeFailed, nil)
	}
	return location, nil
}

// policyFor decorates the configured policy with retry metrics and logging.
func (c *Controller) policyFor(operation string) retry.Policy {
	return c.policy.WithOnRetry(func(attempt int, err error) {
		metrics.AIRetries.WithLabelValues(operation).Inc()
		c.logger.Warn("retrying AI operation", map[string]interface{}{
			"operation": operation,
			"attempt":   attempt,
			"error":     err.Error(),
		})
	})
}

// launchLocked enters a busy state and returns the generation the result
// must match to be applied.
func (c *Controller) launchLocked(busy State) uint64 {
	c.generation++
	c.clearErrorLocked()
	c.setStateLocked(busy)
	return c.generation
}

func (c *Controller) checkCurrentLocked(gen uint64) error {
	if gen == c.generation {
		return nil
	}
	c.logger.Debug("discarding stale response", map[string]interface{}{
		"generation": gen,
		"current":    c.generation,
	})
	return ErrStaleResponse
}

func (c *Controller) setStateLocked(to State) {
	from := c.state
	if from == to {
		return
	}
	if err := ValidateTransition(from, to); err != nil {
		c.logger.Error("rejected state change", map[string]interface{}{"error": err.Error()})
		return
	}
	c.state = to
	metrics.WorkflowTransitions.WithLabelValues(string(from), string(to)).Inc()
	c.logger.Debug("workflow transition", map[string]interface{}{
		"from":       string(from),
		"to":         string(to),
		"generation": c.generation,
	})
}

// rejectLocked records a validation error without leaving the state.
func (c *Controller) rejectLocked(err *errors.StandardError) error {
	c.setErrorLocked(err, err.Message)
	return err
}

func (c *Controller) failLocked(err error, fallback string, to State) {
	c.setErrorLocked(err, fallback)
	c.setStateLocked(to)
}

func (c *Controller) setErrorLocked(err error, fallback string) {
	c.lastErr = err
	c.errMessage = presentError(err, fallback)
}

func (c *Controller) clearErrorLocked() {
	c.lastErr = nil
	c.errMessage = ""
}

func (c *Controller) clearLookupLocked() {
	c.restaurant = nil
	c.menu = nil
	c.results = nil
	c.lastQuery = nil
}

func (c *Controller) lookupLocked() *models.RestaurantLookup {
	if c.restaurant == nil {
		return nil
	}
	r := *c.restaurant
	return &models.RestaurantLookup{Restaurant: &r, Menu: cloneMenu(c.menu)}
}

// presentError picks the message to show. Transport failures get the
// operation's generic message; outcomes the user can act on keep their own.
func presentError(err error, fallback string) string {
	switch errors.CodeOf(err) {
	case errors.ErrCodeInputValidationFailed,
		errors.ErrCodeRestaurantNotFound,
		errors.ErrCodeClassificationUnavailable,
		errors.ErrCodeLocationUnavailable:
		return errors.UserMessage(err, fallback)
	}
	return fallback
}

func cloneMenu(m models.MenuSnapshot) models.MenuSnapshot {
	if m == nil {
		return nil
	}
	out := make(models.MenuSnapshot, len(m))
	for i, cat := range m {
		out[i] = models.MenuCategory{
			Category: cat.Category,
			Items:    append([]models.MenuItem(nil), cat.Items...),
		}
	}
	return out
}

func cloneResults(r *models.RecommendationSet) *models.RecommendationSet {
	if r == nil {
		return nil
	}
	return &models.RecommendationSet{
		Safe:             append([]models.RecommendationItem{}, r.Safe...),
		Caution:          append([]models.RecommendationItem{}, r.Caution...),
		Avoid:            append([]models.RecommendationItem{}, r.Avoid...),
		IngredientsFound: r.IngredientsFound,
	}
}
