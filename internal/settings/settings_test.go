package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/logger"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/models"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

type failingStore struct {
	getErr error
	setErr error
}

func (f failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, f.getErr
}

func (f failingStore) Set(context.Context, string, string) error {
	return f.setErr
}

func TestLoadWithNoRecordsGivesDefaults(t *testing.T) {
	s := New(NewMemoryStore(), logger.NewTestLogger(t))
	require.NoError(t, s.Load(context.Background()))

	assert.True(t, s.Profile().IsEmpty())
	assert.Empty(t, s.Favorites())
	assert.Equal(t, "", s.Profile().RestrictionString())
}

func TestLoadIgnoresUnknownFieldsAndNormalizes(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Set(ctx, KeyRestrictions,
		`{"glutenFree":true,"allergies":["Peanuts"," Peanuts ",""],"theme":"dark","other":"  no cilantro "}`))

	s := New(store, logger.NewTestLogger(t))
	require.NoError(t, s.Load(ctx))

	p := s.Profile()
	assert.True(t, p.GlutenFree)
	assert.Equal(t, []string{"Peanuts"}, p.Allergies)
	assert.Equal(t, "no cilantro", p.Other)
}

func TestLoadCorruptRecordFallsBackToDefaults(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Set(ctx, KeyRestrictions, `{not json`))
	require.NoError(t, store.Set(ctx, KeyFavorites, `[{"name":"Salad","restaurantName":"Chuy's"}]`))

	s := New(store, logger.NewTestLogger(t))
	require.NoError(t, s.Load(ctx))

	assert.True(t, s.Profile().IsEmpty())
	require.Len(t, s.Favorites(), 1)
	assert.Equal(t, "Salad", s.Favorites()[0].Name)
}

func TestLoadDedupesFavorites(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Set(ctx, KeyFavorites,
		`[{"name":"Salad","restaurantName":"R"},{"name":"Salad","restaurantName":"R"},{"name":"Soup","restaurantName":"R"}]`))

	s := New(store, logger.NewTestLogger(t))
	require.NoError(t, s.Load(ctx))
	assert.Len(t, s.Favorites(), 2)
}

func TestLoadPropagatesStoreError(t *testing.T) {
	s := New(failingStore{getErr: fmt.Errorf("down")}, logger.NewTestLogger(t))
	assert.Error(t, s.Load(context.Background()))
}

func TestMutationsPersistAndReload(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s := New(store, logger.NewTestLogger(t))
	require.NoError(t, s.Load(ctx))

	on, err := s.ToggleFlag(ctx, models.FlagGlutenFree)
	require.NoError(t, err)
	assert.True(t, on)

	present, err := s.ToggleAllergy(ctx, "Peanuts")
	require.NoError(t, err)
	assert.True(t, present)

	require.NoError(t, s.SetOther(ctx, "no onions"))

	added, err := s.ToggleFavorite(ctx, models.RecommendationItem{Name: "Salad", Reason: "fresh"}, "Chuy's")
	require.NoError(t, err)
	assert.True(t, added)

	reloaded := New(store, logger.NewTestLogger(t))
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, s.Profile(), reloaded.Profile())
	assert.Equal(t, s.Favorites(), reloaded.Favorites())
	assert.Equal(t, "Gluten-Free, Peanuts, no onions", reloaded.Profile().RestrictionString())
}

func TestToggleFavoriteTwiceRemoves(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryStore(), logger.NewTestLogger(t))
	item := models.RecommendationItem{Name: "Salad"}

	added, err := s.ToggleFavorite(ctx, item, "R")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.ToggleFavorite(ctx, item, "R")
	require.NoError(t, err)
	assert.False(t, added)
	assert.Empty(t, s.Favorites())
}

func TestProfileReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryStore(), logger.NewTestLogger(t))
	_, err := s.ToggleAllergy(ctx, "Soy")
	require.NoError(t, err)

	p := s.Profile()
	p.Allergies[0] = "Changed"
	assert.Equal(t, []string{"Soy"}, s.Profile().Allergies)
}

func TestMutationKeepsMemoryWhenSaveFails(t *testing.T) {
	s := New(failingStore{setErr: fmt.Errorf("read-only")}, logger.NewTestLogger(t))

	on, err := s.ToggleFlag(context.Background(), models.FlagVegan)
	assert.Error(t, err)
	assert.True(t, on)
	assert.True(t, s.Profile().Vegan)
}

func TestSettingsOverRedis(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)
	s := New(NewRedisStore(client, "advisor:"), logger.NewTestLogger(t))
	require.NoError(t, s.Load(ctx))

	_, err := s.ToggleFlag(ctx, models.FlagKeto)
	require.NoError(t, err)
	_, err = s.ToggleFavorite(ctx, models.RecommendationItem{Name: "Steak"}, "Outback")
	require.NoError(t, err)

	raw, err := mr.Get("advisor:" + KeyRestrictions)
	require.NoError(t, err)
	var stored map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, true, stored["keto"])

	raw, err = mr.Get("advisor:" + KeyFavorites)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"Steak","description":"","reason":"","restaurantName":"Outback"}]`, raw)
}

func TestSaveWritesBothRecords(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s := New(store, logger.NewTestLogger(t))
	require.NoError(t, s.Save(ctx))

	_, found, _ := store.Get(ctx, KeyRestrictions)
	assert.True(t, found)
	raw, found, _ := store.Get(ctx, KeyFavorites)
	assert.True(t, found)
	assert.Equal(t, "[]", raw)
}

func TestRecentFavorites(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryStore(), logger.NewTestLogger(t))
	for _, n := range []string{"a", "b", "c"} {
		_, err := s.ToggleFavorite(ctx, models.RecommendationItem{Name: n}, "R")
		require.NoError(t, err)
	}
	recent := s.RecentFavorites(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].Name)
	assert.Equal(t, "b", recent[1].Name)
}
