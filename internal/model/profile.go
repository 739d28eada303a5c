package model

import "time"

// DefaultProfileID is the id of the profile that always exists.
const DefaultProfileID = "default"

// Profile is a named pair of rule sets, one per mode.
type Profile struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	RD03Rules []Rule `json:"rd03Rules" yaml:"rd03Rules"`
	RD05Rules []Rule `json:"rd05Rules" yaml:"rd05Rules"`
}

// Rules returns the profile's rule set for mode.
func (p Profile) Rules(mode Mode) []Rule {
	if mode == ModeRD05 {
		return p.RD05Rules
	}
	return p.RD03Rules
}

// WithRules returns a copy of p with mode's rule set replaced.
func (p Profile) WithRules(mode Mode, rules []Rule) Profile {
	if mode == ModeRD05 {
		p.RD05Rules = rules
	} else {
		p.RD03Rules = rules
	}
	return p
}

// BackupVersion is the version tag written to multi-profile backups.
const BackupVersion = "2.0"

// Backup is the multi-profile backup document.
type Backup struct {
	Timestamp       time.Time `json:"timestamp"`
	Version         string    `json:"version"`
	ActiveProfileID string    `json:"activeProfileId"`
	Profiles        []Profile `json:"profiles"`
}

// LegacyBackup is the single-profile backup document written by older releases.
type LegacyBackup struct {
	RD03Rules []Rule `json:"rd03Rules"`
	RD05Rules []Rule `json:"rd05Rules"`
}
