package deviceRepo

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"nudge/models"
)

// MemoryDeviceRepo keeps devices in process memory. Used with STORAGE_DRIVER=memory and in tests.
type MemoryDeviceRepo struct {
	mu      sync.RWMutex
	devices map[string]models.Device
}

func NewMemoryDeviceRepo() *MemoryDeviceRepo {
	return &MemoryDeviceRepo{devices: make(map[string]models.Device)}
}

func (r *MemoryDeviceRepo) Upsert(_ context.Context, device models.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.devices[device.ID]
	if !ok {
		r.devices[device.ID] = device
		return nil
	}
	existing.Token = device.Token
	existing.Platform = device.Platform
	existing.UpdatedAt = device.UpdatedAt
	if device.OwnerID != "" {
		existing.OwnerID = device.OwnerID
	}
	r.devices[device.ID] = existing
	return nil
}

func (r *MemoryDeviceRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.devices, id)
	return nil
}

func (r *MemoryDeviceRepo) DeleteByToken(_ context.Context, token string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, d := range r.devices {
		if d.Token == token {
			delete(r.devices, id)
			n++
		}
	}
	return n, nil
}

func (r *MemoryDeviceRepo) GetByID(_ context.Context, id string) (*models.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[id]
	if !ok {
		return nil, fmt.Errorf("device %s: %w", id, models.ErrNotFound)
	}
	return &d, nil
}

func (r *MemoryDeviceRepo) ListTokens(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tokens := make([]string, 0, len(r.devices))
	for _, d := range r.devices {
		if d.Token != "" {
			tokens = append(tokens, d.Token)
		}
	}
	sort.Strings(tokens)
	return tokens, nil
}

// Len reports how many device records are stored.
func (r *MemoryDeviceRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}
