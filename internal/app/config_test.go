package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/fikrimamdouh/ElectronAccount-sub000/internal/testing/guard"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.AppAddr)
	require.False(t, cfg.IsProduction())

	rate, err := cfg.TaxRate()
	require.NoError(t, err)
	require.Equal(t, "0.15", rate.String())
}

func TestLoadConfigRejectsBadTaxRate(t *testing.T) {
	t.Setenv("VAT_RATE", "fifteen")
	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("VAT_RATE", "-0.1")
	_, err = LoadConfig()
	require.Error(t, err)
}

func TestTestModeFlag(t *testing.T) {
	t.Setenv("ELECTRONACCOUNT_TEST_MODE", "1")
	RefreshTestMode()
	require.True(t, InTestMode())

	t.Setenv("ELECTRONACCOUNT_TEST_MODE", "")
	RefreshTestMode()
	require.False(t, InTestMode())
}
