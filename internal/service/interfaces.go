// Package service defines the interfaces shared between the classifier's components.
package service

import (
	"context"
	"encoding/json"

	"github.com/Veraticus/rd-classifier/internal/model"
)

// Well-known configuration keys.
const (
	KeyProfiles        = "rd_profiles_v2"
	KeyActiveProfileID = "rd_active_profile_id"
	KeyLegacyRD03Rules = "rd03_rules_v2"
	KeyLegacyRD05Rules = "rd05_rules_v2"
)

// ConfigStore is a key/value store of JSON configuration documents.
type ConfigStore interface {
	// GetConfigs returns every stored key with its raw JSON value.
	GetConfigs(ctx context.Context) (map[string]json.RawMessage, error)
	// SaveConfig upserts key with value encoded as JSON.
	SaveConfig(ctx context.Context, key string, value any) error
}

// Storage is a ConfigStore backed by a database that owns its schema.
type Storage interface {
	ConfigStore
	GetConfig(ctx context.Context, key string) (json.RawMessage, error)
	DeleteConfig(ctx context.Context, key string) error
	Migrate(ctx context.Context) error
	Close() error
}

// ReportWriter publishes a classification result.
type ReportWriter interface {
	Write(ctx context.Context, result *model.Result) error
}
