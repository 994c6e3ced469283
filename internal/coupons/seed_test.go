package coupons

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coupons.yaml")
	const doc = `coupons:
  - code: PESACH15
    discount: 15
    type: percentage
    maxDiscount: 75
    validFrom: "2026-04-01"
    validUntil: "2026-04-20"
  - code: SHIP10
    discount: 10
    type: fixed
    minAmount: 150
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	seeds, err := LoadSeedFile(path)
	require.NoError(t, err)
	require.Len(t, seeds, 2)
	assert.Equal(t, "PESACH15", seeds[0].Code)
	assert.Equal(t, 75.0, *seeds[0].MaxDiscount)
	assert.Equal(t, "2026-04-20", seeds[0].ValidUntil)
	assert.Equal(t, 150.0, *seeds[1].MinAmount)

	svc := NewService(NewMemoryStore(), nil)
	require.NoError(t, svc.Seed(context.Background(), seeds))
	// Re-seeding skips existing codes.
	require.NoError(t, svc.Seed(context.Background(), seeds))
	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestLoadSeedFile_Missing(t *testing.T) {
	_, err := LoadSeedFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
