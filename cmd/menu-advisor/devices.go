// cmd/menu-advisor/devices.go
package main

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/MathNerdzRule/dietary-menu-advisor/internal/models"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/workflow"
)

// fileCamera "captures" a menu photo by reading an image file. An empty path
// means the user backed out.
type fileCamera struct {
	path string
}

func (c fileCamera) Capture(ctx context.Context) (models.ImageInput, error) {
	if err := ctx.Err(); err != nil {
		return models.ImageInput{}, err
	}
	if strings.TrimSpace(c.path) == "" {
		return models.ImageInput{}, workflow.ErrCaptureCancelled
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return models.ImageInput{}, fmt.Errorf("read photo: %w", err)
	}
	return models.ImageInput{Data: data, MIMEType: detectMIME(c.path, data)}, nil
}

func detectMIME(path string, data []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); strings.HasPrefix(t, "image/") {
		return t
	}
	return http.DetectContentType(data)
}

// fixedGeolocator reports coordinates typed at the prompt or configured
// as the device position.
type fixedGeolocator struct {
	pos workflow.Position
}

func (g fixedGeolocator) CurrentPosition(ctx context.Context) (workflow.Position, error) {
	if err := ctx.Err(); err != nil {
		return workflow.Position{}, workflow.ErrLocationUnavailable
	}
	return g.pos, nil
}
