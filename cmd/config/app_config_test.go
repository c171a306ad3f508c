package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestReleaser_ClosesNewestFirst(t *testing.T) {
	var order []string
	var opened releaser
	opened.add(func() { order = append(order, "log file") })
	opened.add(func() { order = append(order, "redis") })
	opened.add(func() { order = append(order, "ledger") })

	opened.release()
	assert.Equal(t, []string{"ledger", "redis", "log file"}, order)
}

func TestNewApp_ReleasesOnFailure(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORAGE_DRIVER", "floppy")

	app, err := NewApp(t.Context(), nil, zap.NewNop())
	assert.Nil(t, app)
	assert.ErrorContains(t, err, "unknown storage driver")
}
