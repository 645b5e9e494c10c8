package notification

import (
	"errors"
	"fmt"

	"nudge/models"

	"firebase.google.com/go/v4/messaging"
)

// IsTokenInvalid reports whether the provider rejected the registration token itself
// (unregistered or malformed), which obliges the caller to evict the device.
func IsTokenInvalid(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, models.ErrTokenInvalid) ||
		messaging.IsUnregistered(err) ||
		messaging.IsInvalidArgument(err)
}

// Classify wraps a provider error into the delivery taxonomy, keeping the original in the chain.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrTokenInvalid), errors.Is(err, models.ErrNetwork):
		return err
	case IsTokenInvalid(err):
		return fmt.Errorf("%w: %w", models.ErrTokenInvalid, err)
	default:
		return fmt.Errorf("%w: %w", models.ErrNetwork, err)
	}
}
