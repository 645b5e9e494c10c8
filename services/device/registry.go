// Package device owns the mapping from owners to push delivery addresses.
package device

import (
	"context"
	"errors"
	"fmt"
	"time"

	deviceRepo "nudge/database/repository/device"
	"nudge/models"
	"nudge/utils"

	"go.uber.org/zap"
)

const defaultPlatform = "unknown"

// Registry is the authoritative owner -> token mapping.
type Registry interface {
	// Upsert merge-writes a device record keyed by id.
	Upsert(ctx context.Context, id, token, platform string) error
	// Register stores token for userID (or for the token itself when userID is empty) and returns the record id.
	Register(ctx context.Context, token, userID, platform string) (string, error)
	// Remove deletes a device record; absent ids succeed.
	Remove(ctx context.Context, id string) error
	// Resolve returns the token registered for ownerID or models.ErrNotFound.
	Resolve(ctx context.Context, ownerID string) (string, error)
	// Tokens lists every registered token.
	Tokens(ctx context.Context) ([]string, error)
	// EvictToken drops the device that carried a token the provider rejected.
	EvictToken(ctx context.Context, ownerID, token string) error
}

// DefaultRegistry is the production implementation.
type DefaultRegistry struct {
	repo   deviceRepo.DeviceRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewDefaultRegistry(repo deviceRepo.DeviceRepository, logger *zap.Logger) *DefaultRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultRegistry{repo: repo, logger: logger, now: time.Now}
}

func (r *DefaultRegistry) Upsert(ctx context.Context, id, token, platform string) error {
	return r.upsert(ctx, models.Device{ID: id, Token: token, Platform: platform})
}

func (r *DefaultRegistry) upsert(ctx context.Context, d models.Device) error {
	if d.ID == "" || d.Token == "" {
		return fmt.Errorf("device id and token are required: %w", models.ErrValidation)
	}
	if d.Platform == "" {
		d.Platform = defaultPlatform
	}
	d.UpdatedAt = r.now().UTC()
	if err := r.repo.Upsert(ctx, d); err != nil {
		return fmt.Errorf("upsert device: %w", err)
	}
	return nil
}

func (r *DefaultRegistry) Register(ctx context.Context, token, userID, platform string) (string, error) {
	id := models.DeviceID(userID, token)
	if err := r.upsert(ctx, models.Device{ID: id, Token: token, OwnerID: userID, Platform: platform}); err != nil {
		return "", err
	}
	r.logger.Debug("device registered", zap.String("id", id), zap.String("platform", platform))
	return id, nil
}

func (r *DefaultRegistry) Remove(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("device id is required: %w", models.ErrValidation)
	}
	if err := r.repo.Delete(ctx, id); err != nil && !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("remove device: %w", err)
	}
	return nil
}

func (r *DefaultRegistry) Resolve(ctx context.Context, ownerID string) (string, error) {
	if ownerID == "" {
		return "", models.ErrNotFound
	}
	d, err := r.repo.GetByID(ctx, ownerID)
	if err != nil {
		return "", err
	}
	if d.Token == "" {
		return "", fmt.Errorf("device %s has no token: %w", ownerID, models.ErrNotFound)
	}
	return d.Token, nil
}

func (r *DefaultRegistry) Tokens(ctx context.Context) ([]string, error) {
	return r.repo.ListTokens(ctx)
}

// EvictToken removes the record keyed by ownerID-or-token. When the owner has since registered a
// different token, that newer record is left alone; token-keyed leftovers are removed either way.
func (r *DefaultRegistry) EvictToken(ctx context.Context, ownerID, token string) error {
	id := models.DeviceID(ownerID, token)
	if id == "" {
		return nil
	}

	if ownerID != "" && token != "" {
		d, err := r.repo.GetByID(ctx, ownerID)
		switch {
		case errors.Is(err, models.ErrNotFound):
			id = ""
		case err != nil:
			return fmt.Errorf("evict device: %w", err)
		case d.Token != token:
			r.logger.Info("device re-registered since failure, keeping record", zap.String("id", ownerID))
			id = ""
		}
	}

	if id != "" {
		if err := r.Remove(ctx, id); err != nil {
			return err
		}
		utils.DevicesEvictedTotal.Inc()
		r.logger.Info("evicted device with invalid token", zap.String("id", id))
	}

	if token != "" && token != id {
		n, err := r.repo.DeleteByToken(ctx, token)
		if err != nil {
			return fmt.Errorf("evict device by token: %w", err)
		}
		if n > 0 {
			utils.DevicesEvictedTotal.Add(float64(n))
		}
	}
	return nil
}
