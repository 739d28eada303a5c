// Package sheets publishes classification results to Google Sheets.
package sheets

import (
	"fmt"
	"time"
	_ "time/tzdata" // report time zones must resolve on hosts without zoneinfo

	"github.com/Veraticus/rd-classifier/internal/common"
)

// Config holds the credentials and layout of the published report.
type Config struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	ServiceAccountPath string

	// SpreadsheetID selects an existing spreadsheet. When empty a new one
	// named SpreadsheetName is created on first write.
	SpreadsheetID   string
	SpreadsheetName string
	TimeZone        string

	BatchSize     int
	RetryAttempts int
	RetryDelay    time.Duration

	// EnableFormatting bolds headers and freezes the header row.
	EnableFormatting bool
	// IncludeRows also writes every classified row to the data tab.
	IncludeRows      bool
}

// DefaultConfig returns the report settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		SpreadsheetName:  "RD Classification Report",
		IncludeRows:      true,
		EnableFormatting: true,
		TimeZone:         "Asia/Bangkok",
		BatchSize:        1000,
		RetryAttempts:    3,
		RetryDelay:       time.Second,
	}
}

func (c *Config) hasOAuth() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// Validate requires exactly one complete authentication method and sane limits.
func (c *Config) Validate() error {
	switch hasServiceAccount := c.ServiceAccountPath != ""; {
	case !c.hasOAuth() && !hasServiceAccount:
		return fmt.Errorf("%w: no Google Sheets authentication configured", common.ErrMissingConfig)
	case c.hasOAuth() && hasServiceAccount:
		return fmt.Errorf("%w: both OAuth2 and a service account are configured, use one", common.ErrInvalidConfig)
	}

	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: sheets batch size must be positive", common.ErrInvalidConfig)
	}
	if c.RetryAttempts < 0 || c.RetryDelay < 0 {
		return fmt.Errorf("%w: sheets retry settings cannot be negative", common.ErrInvalidConfig)
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("%w: sheets time zone %q: %w", common.ErrInvalidConfig, c.TimeZone, err)
	}
	return nil
}
