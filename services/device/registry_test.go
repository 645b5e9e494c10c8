package device

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	deviceRepo "nudge/database/repository/device"
	"nudge/models"
)

func newRegistry() (*DefaultRegistry, *deviceRepo.MemoryDeviceRepo) {
	repo := deviceRepo.NewMemoryDeviceRepo()
	return NewDefaultRegistry(repo, nil), repo
}

func TestRegister_LastWriteWinsPerOwner(t *testing.T) {
	ctx := context.Background()
	reg, repo := newRegistry()

	id, err := reg.Register(ctx, "T1", "U1", "android")
	require.NoError(t, err)
	assert.Equal(t, "U1", id)

	_, err = reg.Register(ctx, "T2", "U1", "")
	require.NoError(t, err)

	assert.Equal(t, 1, repo.Len())
	token, err := reg.Resolve(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, "T2", token)

	d, err := repo.GetByID(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, "unknown", d.Platform)
	assert.Equal(t, "U1", d.OwnerID)
}

func TestRegister_AnonymousKeyedByToken(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry()

	id, err := reg.Register(ctx, "T9", "", "ios")
	require.NoError(t, err)
	assert.Equal(t, "T9", id)

	token, err := reg.Resolve(ctx, "T9")
	require.NoError(t, err)
	assert.Equal(t, "T9", token)
}

func TestUpsert_Idempotent(t *testing.T) {
	ctx := context.Background()
	reg, repo := newRegistry()

	for i := 0; i < 3; i++ {
		require.NoError(t, reg.Upsert(ctx, "U1", "T1", "web"))
	}
	assert.Equal(t, 1, repo.Len())

	assert.ErrorIs(t, reg.Upsert(ctx, "", "T1", "web"), models.ErrValidation)
}

func TestRemove_AbsentSucceeds(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry()

	assert.NoError(t, reg.Remove(ctx, "nobody"))

	_, err := reg.Resolve(ctx, "nobody")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestEvictToken(t *testing.T) {
	ctx := context.Background()

	t.Run("owner keyed", func(t *testing.T) {
		reg, repo := newRegistry()
		_, _ = reg.Register(ctx, "T1", "U1", "android")

		require.NoError(t, reg.EvictToken(ctx, "U1", "T1"))
		assert.Equal(t, 0, repo.Len())
	})

	t.Run("token keyed", func(t *testing.T) {
		reg, repo := newRegistry()
		_, _ = reg.Register(ctx, "T1", "", "android")

		require.NoError(t, reg.EvictToken(ctx, "", "T1"))
		assert.Equal(t, 0, repo.Len())
	})

	t.Run("owner re-registered keeps new token", func(t *testing.T) {
		reg, repo := newRegistry()
		_, _ = reg.Register(ctx, "T2", "U1", "android")

		require.NoError(t, reg.EvictToken(ctx, "U1", "T1"))
		assert.Equal(t, 1, repo.Len())
	})

	t.Run("missing is fine", func(t *testing.T) {
		reg, _ := newRegistry()
		assert.NoError(t, reg.EvictToken(ctx, "U1", "T1"))
		assert.NoError(t, reg.EvictToken(ctx, "", ""))
	})
}

func TestTokens(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry()
	_, _ = reg.Register(ctx, "T1", "U1", "android")
	_, _ = reg.Register(ctx, "T2", "", "ios")

	tokens, err := reg.Tokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"T1", "T2"}, tokens)
}
