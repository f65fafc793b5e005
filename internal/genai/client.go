// Package genai builds grounded prompts for the advisor operations, invokes
// the model and normalizes its replies.
package genai

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/errors"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/logger"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/metrics"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/observability"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/extract"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/models"
)

// Operation names, shared with the job worker task types.
const (
	OpReverseGeocode = "reverse-geocode"
	OpFindRestaurant = "find-restaurant-menu"
	OpSearchNearby   = "search-nearby-restaurants"
	OpClassifyMenu   = "classify-menu-items"
)

const (
	outcomeOK       = "ok"
	outcomeEmpty    = "empty"
	outcomeError    = "error"
	outcomeRejected = "rejected"
)

// Advisor is the set of AI operations the workflow and workers depend on.
type Advisor interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (string, error)
	FindRestaurantAndMenu(ctx context.Context, name, location string) (*models.RestaurantLookup, error)
	SearchNearby(ctx context.Context, location string, radiusMiles float64, profile models.DietaryProfile) ([]models.Restaurant, error)
	ClassifyMenuItems(ctx context.Context, restaurant models.Restaurant, src models.MenuSource, profile models.DietaryProfile) (*models.RecommendationSet, error)
}

// Options configures Client.
type Options struct {
	DefaultSearchContext string
}

// Client implements Advisor on top of a Generator.
type Client struct {
	gen     Generator
	opts    Options
	logger  logger.Logger
	obs     *observability.Observability
	nowFunc func() time.Time
}

var _ Advisor = (*Client)(nil)

func NewClient(gen Generator, opts Options, log logger.Logger, obs *observability.Observability) *Client {
	return &Client{
		gen:     gen,
		opts:    opts,
		logger:  log.With(map[string]interface{}{"component": "genai"}),
		obs:     obs,
		nowFunc: time.Now,
	}
}

// call runs one model invocation with its span, metrics and failure log.
// finish maps the raw text to an outcome label.
func (c *Client) call(ctx context.Context, req Request, attrs []attribute.KeyValue, finish func(text string) string) error {
	ctx, span := c.obs.StartSpan(ctx, "genai."+req.Operation, attrs...)
	defer span.End()

	start := c.nowFunc()
	text, err := c.gen.Generate(ctx, req)
	elapsed := c.nowFunc().Sub(start)
	metrics.AIRequestDuration.WithLabelValues(req.Operation).Observe(elapsed.Seconds())

	outcome := outcomeError
	if err == nil {
		outcome = finish(text)
	}
	metrics.AIRequests.WithLabelValues(req.Operation, outcome).Inc()
	c.obs.RecordOperation(ctx, req.Operation, outcome, elapsed)
	span.SetAttributes(attribute.String("outcome", outcome))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn("AI request failed", map[string]interface{}{
			"operation": req.Operation,
			"error":     err.Error(),
			"elapsedMs": elapsed.Milliseconds(),
		})
		return err
	}
	if outcome != outcomeOK {
		c.logger.Warn("AI response unusable", map[string]interface{}{
			"operation":  req.Operation,
			"outcome":    outcome,
			"textLength": len(text),
		})
	}
	return nil
}

// ReverseGeocode converts coordinates to a "City, State" string. The reply
// is plain text and is returned trimmed, empty included.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	var location string
	err := c.call(ctx, Request{
		Operation: OpReverseGeocode,
		Prompt:    buildReverseGeocodePrompt(lat, lng),
	}, []attribute.KeyValue{
		attribute.Float64("latitude", lat),
		attribute.Float64("longitude", lng),
	}, func(text string) string {
		location = strings.TrimSpace(text)
		if location == "" {
			return outcomeEmpty
		}
		return outcomeOK
	})
	if err != nil {
		return "", err
	}
	return location, nil
}

// FindRestaurantAndMenu looks a restaurant and its menu up with search
// grounding. It returns nil without an error when the reply cannot be
// decoded or names no restaurant.
func (c *Client) FindRestaurantAndMenu(ctx context.Context, name, location string) (*models.RestaurantLookup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.NewInputValidationError("Please enter a restaurant name.", "restaurant name is empty")
	}
	location = strings.TrimSpace(location)
	if location == "" {
		location = c.opts.DefaultSearchContext
	}

	var lookup *models.RestaurantLookup
	err := c.call(ctx, Request{
		Operation: OpFindRestaurant,
		Prompt:    buildFindRestaurantPrompt(name, location),
		Grounded:  true,
	}, []attribute.KeyValue{
		attribute.String("restaurant", name),
		attribute.String("location", location),
	}, func(text string) string {
		var decoded models.RestaurantLookup
		if !extract.Decode(text, &decoded) || decoded.Restaurant == nil || !decoded.Restaurant.Valid() {
			return outcomeEmpty
		}
		lookup = &decoded
		return outcomeOK
	})
	if err != nil {
		return nil, err
	}
	return lookup, nil
}

type nearbyEnvelope struct {
	Restaurants []models.Restaurant `json:"restaurants"`
}

func decodeNearby(text string) ([]models.Restaurant, bool) {
	raw := extract.Extract(text)
	if raw == nil {
		return nil, false
	}
	var list []models.Restaurant
	if extract.Decode(string(raw), &list) {
		return list, true
	}
	var env nearbyEnvelope
	if extract.Decode(string(raw), &env) {
		return env.Restaurants, true
	}
	return nil, false
}

// SearchNearby lists restaurants near location that suit the profile. The
// result is never nil; an unusable reply yields an empty list.
func (c *Client) SearchNearby(ctx context.Context, location string, radiusMiles float64, profile models.DietaryProfile) ([]models.Restaurant, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return []models.Restaurant{}, errors.NewInputValidationError("Please enter a location or detect your current one.", "location is empty")
	}

	var found []models.Restaurant
	err := c.call(ctx, Request{
		Operation: OpSearchNearby,
		Prompt:    buildSearchNearbyPrompt(location, radiusMiles, profile),
		Grounded:  true,
	}, []attribute.KeyValue{
		attribute.String("location", location),
		attribute.Float64("radiusMiles", radiusMiles),
	}, func(text string) string {
		list, ok := decodeNearby(text)
		if !ok {
			return outcomeEmpty
		}
		for _, r := range list {
			if r.Valid() {
				found = append(found, r)
			}
		}
		return outcomeOK
	})
	if found == nil {
		found = []models.Restaurant{}
	}
	return found, err
}

// ClassifyMenuItems buckets the menu (or photographed menu page) against the
// profile. It returns nil without an error when the reply cannot be decoded
// or names no item in any bucket.
func (c *Client) ClassifyMenuItems(ctx context.Context, restaurant models.Restaurant, src models.MenuSource, profile models.DietaryProfile) (*models.RecommendationSet, error) {
	if !restaurant.Valid() {
		return nil, errors.NewInputValidationError("Please select a restaurant first.", "restaurant name is empty")
	}

	req := Request{Operation: OpClassifyMenu, Grounded: true}
	mode := "menu"
	switch in := src.(type) {
	case models.MenuInput:
		if in.Menu == nil {
			return nil, errors.NewInputValidationError("Could not find menu for this restaurant.", "menu is nil")
		}
	case models.ImageInput:
		if in.Empty() {
			return nil, errors.NewInputValidationError("The captured photo was empty.", "image has no data")
		}
		mode = "image"
		req.Image = &InlineImage{MIMEType: in.MIMEType, Data: in.Data}
	default:
		metrics.AIRequests.WithLabelValues(OpClassifyMenu, outcomeRejected).Inc()
		return nil, errors.NewInputValidationError("Nothing to analyze.", "menu source is missing")
	}

	prompt, err := buildClassifyPrompt(restaurant, src, profile)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	req.Prompt = prompt

	var set *models.RecommendationSet
	err = c.call(ctx, req, []attribute.KeyValue{
		attribute.String("restaurant", restaurant.Name),
		attribute.String("mode", mode),
	}, func(text string) string {
		var decoded models.RecommendationSet
		if !extract.Decode(text, &decoded) || decoded.Total() == 0 {
			return outcomeEmpty
		}
		normalizeBuckets(&decoded)
		set = &decoded
		return outcomeOK
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

// normalizeBuckets replaces missing buckets with empty ones; contents and
// order are left untouched.
func normalizeBuckets(set *models.RecommendationSet) {
	if set.Safe == nil {
		set.Safe = []models.RecommendationItem{}
	}
	if set.Caution == nil {
		set.Caution = []models.RecommendationItem{}
	}
	if set.Avoid == nil {
		set.Avoid = []models.RecommendationItem{}
	}
}
