package cmd

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cross-swap/config"
	"cross-swap/pkg/tokenmap"
	"cross-swap/pkg/types"
)

func TestBuildMapper(t *testing.T) {
	m := buildMapper([]config.ChainConfig{
		{Key: "BASE", ProviderID: 8453, Blockchain: "base", Name: "Base Mainnet"},
		{Key: "gnosis", ProviderID: 100},
	})

	base, err := m.Chain("base")
	require.NoError(t, err)
	assert.Equal(t, "Base Mainnet", base.Name)
	assert.Equal(t, tokenmap.KindEVM, base.Kind)

	gnosis, err := m.Chain("gnosis")
	require.NoError(t, err)
	assert.Equal(t, "gnosis", gnosis.Blockchain)
	assert.Equal(t, "GNOSIS", gnosis.Name)

	key, ok := m.Resolve("100")
	assert.True(t, ok)
	assert.Equal(t, "gnosis", key)

	_, err = m.Chain("sol")
	assert.NoError(t, err, "built-in chains stay available")
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, logLevel(""))
	assert.Equal(t, slog.LevelWarn, logLevel("WARN"))
	assert.Equal(t, slog.LevelError, logLevel("error"))

	isDebug = true
	defer func() { isDebug = false }()
	assert.Equal(t, slog.LevelDebug, logLevel("error"))
}

func TestImpliedStatus(t *testing.T) {
	route := &types.Route{Steps: []types.Step{{}, {}}}
	assert.Equal(t, types.StatusReviewing, impliedStatus(route))

	route.Steps[0].Execution = &types.Execution{Status: types.ProcessDone}
	assert.Equal(t, types.StatusExecuting, impliedStatus(route))

	route.Steps[1].Execution = &types.Execution{Status: types.ProcessDone}
	assert.Equal(t, types.StatusCompleted, impliedStatus(route))
}

func TestLastDepositAddress(t *testing.T) {
	assert.Empty(t, lastDepositAddress(nil))
	route := &types.Route{Steps: []types.Step{{DepositAddress: "dep-1"}, {}}}
	assert.Equal(t, "dep-1", lastDepositAddress(route))
}
