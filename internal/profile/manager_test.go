package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"testing"
	"time"

	"github.com/Veraticus/rd-classifier/internal/classification"
	"github.com/Veraticus/rd-classifier/internal/common"
	"github.com/Veraticus/rd-classifier/internal/model"
	"github.com/Veraticus/rd-classifier/internal/service"
	"github.com/Veraticus/rd-classifier/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is a ConfigStore without batch saves.
type memStore struct {
	values map[string]json.RawMessage
	saves  int
}

func newMemStore() *memStore {
	return &memStore{values: make(map[string]json.RawMessage)}
}

func (m *memStore) GetConfigs(context.Context) (map[string]json.RawMessage, error) {
	return maps.Clone(m.values), nil
}

func (m *memStore) SaveConfig(_ context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = data
	m.saves++
	return nil
}

func (m *memStore) put(t *testing.T, key string, value any) {
	t.Helper()
	data, err := json.Marshal(value)
	require.NoError(t, err)
	m.values[key] = data
}

func newTestManager(store service.ConfigStore) *Manager {
	m := NewManager(store)
	n := 0
	m.newID = func() string {
		n++
		return fmt.Sprintf("profile-%d", n)
	}
	m.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }
	return m
}

func TestLoad_EmptyStoreUsesDefaults(t *testing.T) {
	m := newTestManager(newMemStore())

	state, err := m.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, state.Profiles, 1)
	assert.Equal(t, model.DefaultProfileID, state.ActiveID)
	assert.Equal(t, DefaultProfileName, state.Active().Name)
	assert.Equal(t, classification.DefaultRD03Rules(), state.Active().RD03Rules)
	assert.Equal(t, classification.DefaultRD05Rules(), state.Active().RD05Rules)
}

func TestLoad_SeedsFromLegacyKeys(t *testing.T) {
	store := newMemStore()
	legacy := []model.Rule{{ID: "x", Name: "legacy", Priority: 1, TargetField: model.FieldGroup, ResultValue: "9.9"}}
	store.put(t, service.KeyLegacyRD03Rules, legacy)

	state, err := newTestManager(store).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, state.Profiles, 1)
	assert.Equal(t, "legacy", state.Active().RD03Rules[0].Name)
	assert.Equal(t, classification.DefaultRD05Rules(), state.Active().RD05Rules)
}

func TestLoad_InvalidProfilesJSON(t *testing.T) {
	store := newMemStore()
	store.values[service.KeyProfiles] = json.RawMessage(`{"not":"a list"}`)

	_, err := newTestManager(store).Load(context.Background())
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestLoad_UnknownActiveFallsBackToFirst(t *testing.T) {
	store := newMemStore()
	store.put(t, service.KeyProfiles, []model.Profile{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}})
	store.put(t, service.KeyActiveProfileID, "gone")

	state, err := newTestManager(store).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", state.ActiveID)
}

func TestLoad_NormalizesTargets(t *testing.T) {
	store := newMemStore()
	store.put(t, service.KeyProfiles, []model.Profile{{
		ID:   "a",
		Name: "A",
		RD03Rules: []model.Rule{
			{ID: "1.1", ResultValue: "1.1", TargetField: model.FieldGroupConcession},
		},
	}})

	state, err := newTestManager(store).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.FieldGroup, state.Active().RD03Rules[0].TargetField)
}

func TestAddDuplicateRenameUse(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	m := newTestManager(store)

	added, err := m.Add(ctx, "  Night shift ")
	require.NoError(t, err)
	assert.Equal(t, "profile-1", added.ID)
	assert.Equal(t, "Night shift", added.Name)
	assert.Equal(t, 2, store.saves, "profiles and active id are saved separately")

	dup, err := m.Duplicate(ctx, added.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "Night shift (Copy)", dup.Name)
	assert.Equal(t, added.RD03Rules, dup.RD03Rules)

	require.NoError(t, m.Rename(ctx, dup.ID, "Day shift"))
	require.NoError(t, m.Use(ctx, model.DefaultProfileID))

	state, err := m.Load(ctx)
	require.NoError(t, err)
	require.Len(t, state.Profiles, 3)
	assert.Equal(t, model.DefaultProfileID, state.ActiveID)
	assert.Equal(t, "Day shift", state.Profiles[2].Name)

	_, err = m.Add(ctx, "   ")
	var userErr *common.UserError
	assert.ErrorAs(t, err, &userErr)
	assert.ErrorIs(t, m.Use(ctx, "missing"), common.ErrNotFound)
	assert.ErrorIs(t, m.Rename(ctx, "missing", "x"), common.ErrNotFound)
	_, err = m.Duplicate(ctx, "missing", "")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDuplicate_DoesNotShareRules(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(newMemStore())

	dup, err := m.Duplicate(ctx, model.DefaultProfileID, "Mine")
	require.NoError(t, err)

	dup.RD03Rules[0].Conditions[0].Column = "Changed"
	def, err := m.Get(ctx, model.DefaultProfileID)
	require.NoError(t, err)
	assert.NotEqual(t, "Changed", def.RD03Rules[0].Conditions[0].Column)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(newMemStore())

	err := m.Delete(ctx, model.DefaultProfileID)
	assert.ErrorIs(t, err, common.ErrProfileProtected)

	p, err := m.Add(ctx, "Temp")
	require.NoError(t, err)
	require.NoError(t, m.Delete(ctx, p.ID))

	state, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, state.Profiles, 1)
	assert.Equal(t, model.DefaultProfileID, state.ActiveID)

	assert.ErrorIs(t, m.Delete(ctx, p.ID), common.ErrNotFound)
}

func TestUpdateRulesAndResolve(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(newMemStore())

	rules := []model.Rule{{ID: "r", Priority: 1, TargetField: model.FieldGroup, ResultValue: "7.7"}}
	require.NoError(t, m.UpdateRules(ctx, model.DefaultProfileID, model.ModeRD05, rules))

	active, err := m.Resolve(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, rules, active.RD05Rules)
	assert.Equal(t, classification.DefaultRD03Rules(), active.RD03Rules)

	assert.ErrorIs(t, m.UpdateRules(ctx, "missing", model.ModeRD03, rules), common.ErrNotFound)
	assert.ErrorIs(t, m.UpdateRules(ctx, model.DefaultProfileID, model.Mode("RD09"), rules), common.ErrInvalidConfig)

	_, err = m.Resolve(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestManager_WithSQLiteStorage(t *testing.T) {
	ctx := context.Background()
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))

	m := newTestManager(db)
	p, err := m.Add(ctx, "Stored")
	require.NoError(t, err)

	configs, err := db.GetConfigs(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `"`+p.ID+`"`, string(configs[service.KeyActiveProfileID]))

	again, err := NewManager(db).Resolve(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "Stored", again.Name)
}
