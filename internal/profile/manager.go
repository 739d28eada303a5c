// Package profile manages named rule profiles kept in a config store.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/rd-classifier/internal/classification"
	"github.com/Veraticus/rd-classifier/internal/common"
	"github.com/Veraticus/rd-classifier/internal/model"
	"github.com/Veraticus/rd-classifier/internal/service"
	"github.com/google/uuid"
)

// DefaultProfileName is the display name of the built-in profile.
const DefaultProfileName = "Default Settings"

// batchSaver is implemented by stores that can save several keys atomically.
type batchSaver interface {
	SaveConfigs(ctx context.Context, values map[string]any) error
}

// State is the full set of profiles plus the active one.
type State struct {
	ActiveID string
	Profiles []model.Profile
}

// Active returns the active profile.
func (s State) Active() model.Profile {
	if i := s.index(s.ActiveID); i >= 0 {
		return s.Profiles[i]
	}
	return s.Profiles[0]
}

func (s State) index(id string) int {
	return slices.IndexFunc(s.Profiles, func(p model.Profile) bool { return p.ID == id })
}

// Manager reads and writes profiles through a ConfigStore.
type Manager struct {
	store service.ConfigStore
	now   func() time.Time
	newID func() string
	mu    sync.Mutex
}

// NewManager creates a profile manager over store.
func NewManager(store service.ConfigStore) *Manager {
	return &Manager{
		store: store,
		now:   time.Now,
		newID: func() string { return "profile-" + uuid.NewString() },
	}
}

// DefaultProfile returns the built-in profile with the default rule sets.
func DefaultProfile() model.Profile {
	return model.Profile{
		ID:        model.DefaultProfileID,
		Name:      DefaultProfileName,
		RD03Rules: classification.DefaultRD03Rules(),
		RD05Rules: classification.DefaultRD05Rules(),
	}
}

// Load reads the stored profiles. With none stored, the default profile is
// built from the legacy per-mode rule keys when present, else the built-in
// rules. An unknown active id falls back to the first profile.
func (m *Manager) Load(ctx context.Context) (State, error) {
	configs, err := m.store.GetConfigs(ctx)
	if err != nil {
		return State{}, fmt.Errorf("failed to load configs: %w", err)
	}

	var state State
	if raw, ok := configs[service.KeyProfiles]; ok {
		if err := json.Unmarshal(raw, &state.Profiles); err != nil {
			return State{}, fmt.Errorf("%w: %s: %w", common.ErrInvalidConfig, service.KeyProfiles, err)
		}
	}

	if len(state.Profiles) == 0 {
		def, err := legacyDefault(configs)
		if err != nil {
			return State{}, err
		}
		state.Profiles = []model.Profile{def}
	}

	if raw, ok := configs[service.KeyActiveProfileID]; ok {
		if err := json.Unmarshal(raw, &state.ActiveID); err != nil {
			slog.Warn("Ignoring unreadable active profile id", "error", err)
		}
	}
	if state.index(state.ActiveID) < 0 {
		state.ActiveID = state.Profiles[0].ID
	}

	for i := range state.Profiles {
		state.Profiles[i] = normalize(state.Profiles[i])
	}
	return state, nil
}

func legacyDefault(configs map[string]json.RawMessage) (model.Profile, error) {
	def := DefaultProfile()
	for key, dst := range map[string]*[]model.Rule{
		service.KeyLegacyRD03Rules: &def.RD03Rules,
		service.KeyLegacyRD05Rules: &def.RD05Rules,
	} {
		raw, ok := configs[key]
		if !ok {
			continue
		}
		var rules []model.Rule
		if err := json.Unmarshal(raw, &rules); err != nil {
			return model.Profile{}, fmt.Errorf("%w: %s: %w", common.ErrInvalidConfig, key, err)
		}
		if len(rules) > 0 {
			slog.Info("Seeding default profile from legacy rules", "key", key, "rules", len(rules))
			*dst = rules
		}
	}
	return def, nil
}

func normalize(p model.Profile) model.Profile {
	rd03, n03 := classification.NormalizeTargets(p.RD03Rules)
	rd05, n05 := classification.NormalizeTargets(p.RD05Rules)
	if n03+n05 > 0 {
		slog.Debug("Normalized rule targets", "profile", p.ID, "changed", n03+n05)
	}
	p.RD03Rules, p.RD05Rules = rd03, rd05
	return p
}

// save writes the profiles and active id, atomically when the store allows it.
func (m *Manager) save(ctx context.Context, state State) error {
	for i := range state.Profiles {
		state.Profiles[i] = normalize(state.Profiles[i])
	}

	if b, ok := m.store.(batchSaver); ok {
		if err := b.SaveConfigs(ctx, map[string]any{
			service.KeyProfiles:        state.Profiles,
			service.KeyActiveProfileID: state.ActiveID,
		}); err != nil {
			return fmt.Errorf("failed to save profiles: %w", err)
		}
		return nil
	}

	if err := m.store.SaveConfig(ctx, service.KeyProfiles, state.Profiles); err != nil {
		return fmt.Errorf("failed to save profiles: %w", err)
	}
	if err := m.store.SaveConfig(ctx, service.KeyActiveProfileID, state.ActiveID); err != nil {
		return fmt.Errorf("failed to save active profile: %w", err)
	}
	return nil
}

// update loads the state, applies fn and saves the result.
func (m *Manager) update(ctx context.Context, fn func(*State) error) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, err := m.Load(ctx)
	if err != nil {
		return State{}, err
	}
	if err := fn(&state); err != nil {
		return State{}, err
	}
	if err := m.save(ctx, state); err != nil {
		return State{}, err
	}
	return state, nil
}

// Get returns the profile with id.
func (m *Manager) Get(ctx context.Context, id string) (model.Profile, error) {
	state, err := m.Load(ctx)
	if err != nil {
		return model.Profile{}, err
	}
	i := state.index(id)
	if i < 0 {
		return model.Profile{}, fmt.Errorf("profile %q: %w", id, common.ErrNotFound)
	}
	return state.Profiles[i], nil
}

// Resolve returns the profile with id, or the active profile when id is empty.
func (m *Manager) Resolve(ctx context.Context, id string) (model.Profile, error) {
	if id != "" {
		return m.Get(ctx, id)
	}
	state, err := m.Load(ctx)
	if err != nil {
		return model.Profile{}, err
	}
	return state.Active(), nil
}

// Use makes id the active profile.
func (m *Manager) Use(ctx context.Context, id string) error {
	_, err := m.update(ctx, func(s *State) error {
		if s.index(id) < 0 {
			return fmt.Errorf("profile %q: %w", id, common.ErrNotFound)
		}
		s.ActiveID = id
		return nil
	})
	return err
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", common.NewUserError("profile name cannot be empty", common.ErrInvalidConfig)
	}
	return name, nil
}

// Add creates a profile with the built-in rules and makes it active.
func (m *Manager) Add(ctx context.Context, name string) (model.Profile, error) {
	name, err := validateName(name)
	if err != nil {
		return model.Profile{}, err
	}

	p := model.Profile{
		ID:        m.newID(),
		Name:      name,
		RD03Rules: classification.DefaultRD03Rules(),
		RD05Rules: classification.DefaultRD05Rules(),
	}
	_, err = m.update(ctx, func(s *State) error {
		s.Profiles = append(s.Profiles, p)
		s.ActiveID = p.ID
		return nil
	})
	return p, err
}

// Duplicate copies the rules of profile id into a new active profile. An
// empty name becomes "<source name> (Copy)".
func (m *Manager) Duplicate(ctx context.Context, id, name string) (model.Profile, error) {
	var dup model.Profile
	_, err := m.update(ctx, func(s *State) error {
		i := s.index(id)
		if i < 0 {
			return fmt.Errorf("profile %q: %w", id, common.ErrNotFound)
		}
		src := s.Profiles[i]
		if strings.TrimSpace(name) == "" {
			name = src.Name + " (Copy)"
		}
		dup = model.Profile{
			ID:        m.newID(),
			Name:      strings.TrimSpace(name),
			RD03Rules: cloneRules(src.RD03Rules),
			RD05Rules: cloneRules(src.RD05Rules),
		}
		s.Profiles = append(s.Profiles, dup)
		s.ActiveID = dup.ID
		return nil
	})
	return dup, err
}

// cloneRules deep-copies rules through their JSON form.
func cloneRules(rules []model.Rule) []model.Rule {
	data, err := json.Marshal(rules)
	if err != nil {
		return slices.Clone(rules)
	}
	var out []model.Rule
	if err := json.Unmarshal(data, &out); err != nil {
		return slices.Clone(rules)
	}
	return out
}

// Rename changes the display name of profile id.
func (m *Manager) Rename(ctx context.Context, id, name string) error {
	name, err := validateName(name)
	if err != nil {
		return err
	}
	_, err = m.update(ctx, func(s *State) error {
		i := s.index(id)
		if i < 0 {
			return fmt.Errorf("profile %q: %w", id, common.ErrNotFound)
		}
		s.Profiles[i].Name = name
		return nil
	})
	return err
}

// Delete removes profile id. The default profile cannot be deleted; deleting
// the active profile makes the default profile active.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if id == model.DefaultProfileID {
		return common.NewUserError("the default profile cannot be deleted", common.ErrProfileProtected)
	}
	_, err := m.update(ctx, func(s *State) error {
		i := s.index(id)
		if i < 0 {
			return fmt.Errorf("profile %q: %w", id, common.ErrNotFound)
		}
		s.Profiles = slices.Delete(s.Profiles, i, i+1)
		if s.ActiveID == id {
			s.ActiveID = model.DefaultProfileID
			if s.index(s.ActiveID) < 0 && len(s.Profiles) > 0 {
				s.ActiveID = s.Profiles[0].ID
			}
		}
		if len(s.Profiles) == 0 {
			s.Profiles = []model.Profile{DefaultProfile()}
			s.ActiveID = model.DefaultProfileID
		}
		return nil
	})
	return err
}

// UpdateRules replaces the rule set of profile id for mode.
func (m *Manager) UpdateRules(ctx context.Context, id string, mode model.Mode, rules []model.Rule) error {
	if _, err := model.SchemaFor(mode); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	_, err := m.update(ctx, func(s *State) error {
		i := s.index(id)
		if i < 0 {
			return fmt.Errorf("profile %q: %w", id, common.ErrNotFound)
		}
		s.Profiles[i] = s.Profiles[i].WithRules(mode, rules)
		return nil
	})
	return err
}
