package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/apperr"
	"storefront/internal/docstore"
)

func TestCreateAndGet(t *testing.T) {
	svc := NewService(docstore.NewMemory())
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1", "  Ana Cruz ", "Ana@Example.com")
	require.NoError(t, err)

	p, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", p.ID)
	assert.Equal(t, "Ana Cruz", p.FullName)
	assert.Equal(t, "ana@example.com", p.Email)
	assert.Empty(t, p.Address)
}

func TestGetMissingProfile(t *testing.T) {
	svc := NewService(docstore.NewMemory())
	_, err := svc.Get(context.Background(), "nobody")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSetAddress(t *testing.T) {
	svc := NewService(docstore.NewMemory())
	ctx := context.Background()
	_, err := svc.Create(ctx, "u1", "Ana", "ana@example.com")
	require.NoError(t, err)

	saved, err := svc.SetAddress(ctx, "u1", "  12 Rizal St, Manila ")
	require.NoError(t, err)
	assert.Equal(t, "12 Rizal St, Manila", saved)

	p, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "12 Rizal St, Manila", p.Address)
}

func TestSetAddressRejectsBlank(t *testing.T) {
	store := docstore.NewMemory()
	svc := NewService(store)
	ctx := context.Background()
	_, err := svc.Create(ctx, "u1", "Ana", "ana@example.com")
	require.NoError(t, err)

	_, err = svc.SetAddress(ctx, "u1", "   ")
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, "Please enter your address!", apperr.ValidationMessage(err))

	p, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, p.Address)
}
