package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wardenhq/warden/core"
)

func TestReconcilerLookup(t *testing.T) {
	registry, _ := newRegistry(t)
	reconciler := NewReconciler(registry)
	ctx := context.Background()

	// Fresh address: no attestation.
	_, ok, err := reconciler.Lookup(ctx, outsider)
	require.NoError(t, err)
	assert.False(t, ok)

	want := core.RiskReport{Score: 42, ContentPointer: "cid123", Timestamp: 1700000000}
	require.NoError(t, registry.StoreReport(ctx, deployer, mustKey(t, outsider), want))

	got, ok, err := reconciler.Lookup(ctx, outsider)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)

	// Lookup canonicalizes, so casing does not matter.
	got, ok, err = reconciler.Lookup(ctx, strings.ToLower(outsider))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

func TestReconcilerLookupInvalidAddress(t *testing.T) {
	registry, _ := newRegistry(t)
	reconciler := NewReconciler(registry)

	_, _, err := reconciler.Lookup(context.Background(), "not-an-address")
	assert.ErrorIs(t, err, core.ErrInvalidAddress)
}
