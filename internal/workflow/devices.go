package workflow

import (
	"context"
	stderrors "errors"

	"github.com/MathNerdzRule/dietary-menu-advisor/internal/models"
)

// Position is a WGS84 coordinate pair.
type Position struct {
	Latitude  float64
	Longitude float64
}

// Geolocator acquires the device position.
type Geolocator interface {
	CurrentPosition(ctx context.Context) (Position, error)
}

var (
	ErrLocationPermissionDenied = stderrors.New("location permission denied")
	ErrLocationUnavailable      = stderrors.New("location unavailable")
)

// Camera captures a photo of a menu page.
type Camera interface {
	Capture(ctx context.Context) (models.ImageInput, error)
}

// ErrCaptureCancelled is returned by a Camera when the user backs out.
var ErrCaptureCancelled = stderrors.New("User cancelled photos app")
