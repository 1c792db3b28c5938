package registrystore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wardenhq/warden/core"
	"github.com/wardenhq/warden/ports"
)

func newBoltStore(t *testing.T) *Bolt {
	t.Helper()
	store, err := NewBoltFromFile(filepath.Join(t.TempDir(), "registry.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBoltPutGet(t *testing.T) {
	store := newBoltStore(t)
	ctx := context.Background()

	key, err := core.DeriveKey("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	require.NoError(t, err)

	// Never-written key reads as the zero value.
	report, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, report.Exists())

	want := core.RiskReport{Score: 42, ContentPointer: "cid123", Timestamp: 1700000000}
	require.NoError(t, store.Put(ctx, key, want))

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// A write fully replaces the prior record.
	replacement := core.RiskReport{Score: 7, ContentPointer: "cid456", Timestamp: 1700000999}
	require.NoError(t, store.Put(ctx, key, replacement))

	got, err = store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, replacement, got)
}

func TestBoltPutBatch(t *testing.T) {
	store := newBoltStore(t)
	ctx := context.Background()

	records := make([]ports.RegistryRecord, 3)
	addresses := []string{
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
	}
	for i, addr := range addresses {
		key, err := core.DeriveKey(addr)
		require.NoError(t, err)
		records[i] = ports.RegistryRecord{
			Key:    key,
			Report: core.RiskReport{Score: uint8(i * 10), ContentPointer: "cid", Timestamp: uint64(1700000000 + i)},
		}
	}

	require.NoError(t, store.PutBatch(ctx, records))

	for _, r := range records {
		got, err := store.Get(ctx, r.Key)
		require.NoError(t, err)
		assert.Equal(t, r.Report, got)
	}
}

func TestBoltSchemaVersion(t *testing.T) {
	store := newBoltStore(t)
	ctx := context.Background()

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), version)

	require.NoError(t, store.SetSchemaVersion(ctx, 2))

	version, err = store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), version)
}

func TestBoltPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.db")
	ctx := context.Background()

	key, err := core.DeriveKey("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	require.NoError(t, err)

	store, err := NewBoltFromFile(path, nil)
	require.NoError(t, err)
	want := core.RiskReport{Score: 1, ContentPointer: "cid", Timestamp: 1}
	require.NoError(t, store.Put(ctx, key, want))
	require.NoError(t, store.Close())

	reopened, err := NewBoltFromFile(path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
