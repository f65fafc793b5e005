package settings

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/errors"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/logger"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/models"
)

// Settings holds the dietary profile and favorites for the process and
// writes them through to a Store after every mutation.
type Settings struct {
	mu        sync.RWMutex
	store     Store
	logger    logger.Logger
	profile   models.DietaryProfile
	favorites models.Favorites
}

func New(store Store, log logger.Logger) *Settings {
	return &Settings{
		store:     store,
		logger:    log.With(map[string]interface{}{"component": "settings"}),
		favorites: models.Favorites{},
	}
}

// Load reads both records. Missing records leave defaults in place; a record
// that does not decode is logged and ignored.
func (s *Settings) Load(ctx context.Context) error {
	var (
		profile   models.DietaryProfile
		favorites models.Favorites
	)
	if err := s.loadRecord(ctx, KeyRestrictions, &profile); err != nil {
		return err
	}
	if err := s.loadRecord(ctx, KeyFavorites, &favorites); err != nil {
		return err
	}
	profile.Normalize()
	if favorites == nil {
		favorites = models.Favorites{}
	}

	s.mu.Lock()
	s.profile = profile
	s.favorites = favorites.Dedupe()
	s.mu.Unlock()

	s.logger.Debug("settings loaded", map[string]interface{}{
		"restrictions": profile.RestrictionString(),
		"favorites":    len(favorites),
	})
	return nil
}

func (s *Settings) loadRecord(ctx context.Context, key string, v interface{}) error {
	raw, found, err := s.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if !found || raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		s.logger.Warn("ignoring unreadable record", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
	return nil
}

func (s *Settings) saveRecord(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.NewPreferencesStorageError(key, err)
	}
	if err := s.store.Set(ctx, key, string(data)); err != nil {
		s.logger.Error("failed to persist record", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return err
	}
	return nil
}

// Save writes both records.
func (s *Settings) Save(ctx context.Context) error {
	profile := s.Profile()
	favorites := s.Favorites()
	if err := s.saveRecord(ctx, KeyRestrictions, profile); err != nil {
		return err
	}
	return s.saveRecord(ctx, KeyFavorites, favorites)
}

// Profile returns a copy of the current profile.
func (s *Settings) Profile() models.DietaryProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile.Clone()
}

// Favorites returns a copy of the current favorites.
func (s *Settings) Favorites() models.Favorites {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(models.Favorites{}, s.favorites...)
}

// RecentFavorites returns up to n favorites, newest first.
func (s *Settings) RecentFavorites(n int) models.Favorites {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.favorites.Recent(n)
}

// UpdateProfile applies fn to the profile and persists the result. The
// in-memory change is kept even if persisting fails.
func (s *Settings) UpdateProfile(ctx context.Context, fn func(p *models.DietaryProfile)) error {
	s.mu.Lock()
	fn(&s.profile)
	s.profile.Normalize()
	snapshot := s.profile.Clone()
	s.mu.Unlock()
	return s.saveRecord(ctx, KeyRestrictions, snapshot)
}

// ToggleFlag inverts a flag and returns its new value.
func (s *Settings) ToggleFlag(ctx context.Context, flag models.Flag) (bool, error) {
	var on bool
	err := s.UpdateProfile(ctx, func(p *models.DietaryProfile) { on = p.ToggleFlag(flag) })
	return on, err
}

// ToggleAllergy adds or removes an allergy and reports whether it is present.
func (s *Settings) ToggleAllergy(ctx context.Context, name string) (bool, error) {
	var present bool
	err := s.UpdateProfile(ctx, func(p *models.DietaryProfile) { present = p.ToggleAllergy(name) })
	return present, err
}

func (s *Settings) SetOther(ctx context.Context, text string) error {
	return s.UpdateProfile(ctx, func(p *models.DietaryProfile) { p.SetOther(text) })
}

// ToggleFavorite adds or removes a favorite and reports whether it is present.
func (s *Settings) ToggleFavorite(ctx context.Context, item models.RecommendationItem, restaurantName string) (bool, error) {
	s.mu.Lock()
	next, added := s.favorites.Toggle(item, restaurantName)
	s.favorites = next
	snapshot := append(models.Favorites{}, next...)
	s.mu.Unlock()
	return added, s.saveRecord(ctx, KeyFavorites, snapshot)
}
