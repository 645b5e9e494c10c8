package deviceRepo

import (
	"context"

	"nudge/models"
)

// DeviceRepository defines methods for device data access. Every method touches one record
// (or one token match) and is safe to repeat.
type DeviceRepository interface {
	// Upsert merge-writes token and platform onto the record with the given ID.
	Upsert(ctx context.Context, device models.Device) error
	// Delete removes a device by ID. Deleting a missing ID is not an error.
	Delete(ctx context.Context, id string) error
	// DeleteByToken removes every device carrying token and reports how many were removed.
	DeleteByToken(ctx context.Context, token string) (int64, error)
	// GetByID returns models.ErrNotFound when no device has this ID.
	GetByID(ctx context.Context, id string) (*models.Device, error)
	// ListTokens returns the non-empty tokens of all registered devices.
	ListTokens(ctx context.Context) ([]string, error)
}
