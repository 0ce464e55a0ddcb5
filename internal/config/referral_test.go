package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferralDefaultsFallBackWhenFileMissing(t *testing.T) {
	holder, err := NewReferralDefaultsHolder(Config{ReferralConfigPath: filepath.Join(t.TempDir(), "missing.yml")})
	require.NoError(t, err)
	assert.Equal(t, DefaultReferralDefaults(), holder.Get())
}

func TestReferralDefaultsPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "referral.yml")
	require.NoError(t, os.WriteFile(path, []byte("referral:\n  rateL1: 25\n"), 0o600))

	holder, err := NewReferralDefaultsHolder(Config{ReferralConfigPath: path})
	require.NoError(t, err)

	got := holder.Get()
	assert.Equal(t, 25.0, got.RateL1)
	assert.Equal(t, 10.0, got.RateL2)
	assert.Equal(t, 30*time.Second, got.CompletionLock)
}

func TestReferralDefaultsLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "referral.yml")
	body := []byte("referral:\n  rateL1: 15\n  rateL2: 7.5\n  rateL3: 2\n  gstRate: 12\n  defaultDiscount: 50\n  completionLock: 10s\n")
	require.NoError(t, os.WriteFile(path, body, 0o600))

	holder, err := NewReferralDefaultsHolder(Config{ReferralConfigPath: path})
	require.NoError(t, err)

	got := holder.Get()
	assert.Equal(t, 15.0, got.RateL1)
	assert.Equal(t, 7.5, got.RateL2)
	assert.Equal(t, 2.0, got.RateL3)
	assert.Equal(t, 12.0, got.GSTRate)
	assert.Equal(t, int64(50), got.DefaultDiscount)
	assert.Equal(t, 10*time.Second, got.CompletionLock)
}

func TestReferralDefaultsRejectOutOfRangeRates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "referral.yml")
	require.NoError(t, os.WriteFile(path, []byte("referral:\n  rateL1: 120\n"), 0o600))

	_, err := NewReferralDefaultsHolder(Config{ReferralConfigPath: path})
	assert.Error(t, err)
}

func TestNilHolderReturnsBuiltInDefaults(t *testing.T) {
	var holder *ReferralDefaultsHolder
	assert.Equal(t, DefaultReferralDefaults(), holder.Get())
}
