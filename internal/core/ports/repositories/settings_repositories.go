package repositories

import (
	"context"
	"time"
)

// SettingsRepository is a key/value store for small serialized settings.
type SettingsRepository interface {
	// GetSetting returns the stored value, nil when the row holds NULL, or ErrNotFound when no row exists.
	GetSetting(ctx context.Context, key string) (*string, error)

	// PutSetting inserts or replaces the value stored under key.
	PutSetting(ctx context.Context, key string, value string, updatedBy string, now time.Time) error

	// DeleteSetting removes key. Deleting a missing key is not an error.
	DeleteSetting(ctx context.Context, key string) error
}
