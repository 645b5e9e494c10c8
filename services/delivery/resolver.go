// Package delivery maps a reminder onto the push token it should be sent to.
package delivery

import (
	"context"
	"errors"
	"fmt"

	"nudge/models"
)

// TokenLookup resolves the token registered for an owner.
type TokenLookup interface {
	Resolve(ctx context.Context, ownerID string) (string, error)
}

// Resolver prefers the token captured on the reminder and falls back to the owner's registered
// device, so reminders created before registration still find a target later.
type Resolver struct {
	devices TokenLookup
}

func NewResolver(devices TokenLookup) *Resolver {
	return &Resolver{devices: devices}
}

// Resolve returns the delivery token for r or an error wrapping models.ErrNoTargetFound.
func (r *Resolver) Resolve(ctx context.Context, rem *models.Reminder) (string, error) {
	if rem.Token != "" {
		return rem.Token, nil
	}
	return r.ResolveOwner(ctx, rem.OwnerID)
}

// ResolveOwner resolves through the device registry only.
func (r *Resolver) ResolveOwner(ctx context.Context, ownerID string) (string, error) {
	if ownerID == "" {
		return "", models.ErrNoTargetFound
	}
	token, err := r.devices.Resolve(ctx, ownerID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return "", fmt.Errorf("owner %s: %w", ownerID, models.ErrNoTargetFound)
	case err != nil:
		return "", fmt.Errorf("resolve owner %s: %w", ownerID, err)
	case token == "":
		return "", fmt.Errorf("owner %s: %w", ownerID, models.ErrNoTargetFound)
	}
	return token, nil
}
