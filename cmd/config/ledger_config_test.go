package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testOperatorKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestLedgerConfig_ReadsWithoutTTLByDefault(t *testing.T) {
	t.Setenv("LEDGER_READ_TTL", "")
	t.Setenv("OPERATOR_PRIVATE_KEY", "")

	cfg, err := ledgerConfig(zap.NewNop())
	require.NoError(t, err)
	assert.Zero(t, cfg.ReadTTL)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Nil(t, cfg.Signer)
}

func TestLedgerConfig_Overrides(t *testing.T) {
	t.Setenv("LEDGER_READ_TTL", "45s")
	t.Setenv("OPERATOR_PRIVATE_KEY", "0x"+testOperatorKey)

	cfg, err := ledgerConfig(zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.ReadTTL)
	require.NotNil(t, cfg.Signer)

	t.Setenv("OPERATOR_PRIVATE_KEY", "not-a-key")
	_, err = ledgerConfig(zap.NewNop())
	assert.ErrorContains(t, err, "operator key")
}
