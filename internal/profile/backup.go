package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Veraticus/rd-classifier/internal/common"
	"github.com/Veraticus/rd-classifier/internal/model"
)

// DefaultImportName names a profile created from a single-profile backup.
const DefaultImportName = "Imported Rules"

// ImportResult describes what an import changed.
type ImportResult struct {
	ActiveID string
	// Legacy is true when a single-profile backup was appended.
	Legacy   bool
	Profiles int
}

// Export returns a multi-profile backup of the stored state.
func (m *Manager) Export(ctx context.Context) (model.Backup, error) {
	state, err := m.Load(ctx)
	if err != nil {
		return model.Backup{}, err
	}
	return model.Backup{
		Version:         model.BackupVersion,
		Timestamp:       m.now().UTC(),
		ActiveProfileID: state.ActiveID,
		Profiles:        state.Profiles,
	}, nil
}

// backupProbe decodes the fields that tell backup versions apart.
type backupProbe struct {
	Version   string            `json:"version"`
	Profiles  []json.RawMessage `json:"profiles"`
	RD03Rules []json.RawMessage `json:"rd03Rules"`
	RD05Rules []json.RawMessage `json:"rd05Rules"`
}

// Import restores a backup. A multi-profile backup replaces every profile;
// a single-profile backup is appended as a new active profile named name.
// Anything else fails with common.ErrInvalidBackup.
func (m *Manager) Import(ctx context.Context, data []byte, name string) (ImportResult, error) {
	var probe backupProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return ImportResult{}, fmt.Errorf("%w: %w", common.ErrInvalidBackup, err)
	}

	switch {
	case probe.Version == model.BackupVersion && probe.Profiles != nil:
		return m.importV2(ctx, data)
	case probe.RD03Rules != nil && probe.RD05Rules != nil:
		return m.importV1(ctx, data, name)
	}
	return ImportResult{}, fmt.Errorf("%w: unrecognized structure", common.ErrInvalidBackup)
}

func (m *Manager) importV2(ctx context.Context, data []byte) (ImportResult, error) {
	var backup model.Backup
	if err := json.Unmarshal(data, &backup); err != nil {
		return ImportResult{}, fmt.Errorf("%w: %w", common.ErrInvalidBackup, err)
	}
	if len(backup.Profiles) == 0 {
		return ImportResult{}, fmt.Errorf("%w: no profiles", common.ErrInvalidBackup)
	}
	seen := make(map[string]bool, len(backup.Profiles))
	for _, p := range backup.Profiles {
		if strings.TrimSpace(p.ID) == "" {
			return ImportResult{}, fmt.Errorf("%w: profile without id", common.ErrInvalidBackup)
		}
		if seen[p.ID] {
			return ImportResult{}, fmt.Errorf("%w: duplicate profile id %q", common.ErrInvalidBackup, p.ID)
		}
		seen[p.ID] = true
	}

	state, err := m.update(ctx, func(s *State) error {
		s.Profiles = backup.Profiles
		if s.index(model.DefaultProfileID) < 0 {
			s.Profiles = append([]model.Profile{DefaultProfile()}, s.Profiles...)
		}
		s.ActiveID = backup.ActiveProfileID
		if s.index(s.ActiveID) < 0 {
			s.ActiveID = model.DefaultProfileID
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	return ImportResult{ActiveID: state.ActiveID, Profiles: len(state.Profiles)}, nil
}

func (m *Manager) importV1(ctx context.Context, data []byte, name string) (ImportResult, error) {
	var legacy model.LegacyBackup
	if err := json.Unmarshal(data, &legacy); err != nil {
		return ImportResult{}, fmt.Errorf("%w: %w", common.ErrInvalidBackup, err)
	}
	if strings.TrimSpace(name) == "" {
		name = DefaultImportName
	}

	p := model.Profile{
		ID:        m.newID(),
		Name:      strings.TrimSpace(name),
		RD03Rules: legacy.RD03Rules,
		RD05Rules: legacy.RD05Rules,
	}
	state, err := m.update(ctx, func(s *State) error {
		s.Profiles = append(s.Profiles, p)
		s.ActiveID = p.ID
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	return ImportResult{ActiveID: p.ID, Profiles: len(state.Profiles), Legacy: true}, nil
}
