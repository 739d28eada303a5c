// Package storage provides the persistence layer for classifier configuration.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/rd-classifier/internal/model"
)

// Validation errors.
var (
	ErrNilContext    = errors.New("context cannot be nil")
	ErrEmptyString   = errors.New("string parameter cannot be empty")
	ErrNilParameter  = errors.New("parameter cannot be nil")
	ErrInvalidKey    = errors.New("invalid config key")
	ErrInvalidRecord = errors.New("invalid run record")
)

// maxKeyLength bounds config keys so they stay usable as primary keys.
const maxKeyLength = 255

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateKey checks a config key.
func validateKey(key string) error {
	if err := validateString(key, "key"); err != nil {
		return err
	}
	if len(key) > maxKeyLength {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidKey, maxKeyLength)
	}
	if strings.TrimSpace(key) != key {
		return fmt.Errorf("%w: surrounding whitespace in %q", ErrInvalidKey, key)
	}
	return nil
}

// validateValue ensures a config value is present.
func validateValue(value any) error {
	if value == nil {
		return fmt.Errorf("%w: value", ErrNilParameter)
	}
	return nil
}

// validateRunRecord validates a run history entry.
func validateRunRecord(run *model.RunRecord) error {
	if run == nil {
		return fmt.Errorf("%w: run", ErrNilParameter)
	}
	if strings.TrimSpace(run.Source) == "" {
		return fmt.Errorf("%w: missing source", ErrInvalidRecord)
	}
	if _, err := model.SchemaFor(run.Mode); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	if run.Summary.TotalRows < 0 {
		return fmt.Errorf("%w: negative row count", ErrInvalidRecord)
	}
	return nil
}
