package di

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContainer_UnknownDriver(t *testing.T) {
	c, err := NewContainer(context.Background(), Config{
		RunName:       "unknown_driver",
		BrowserDriver: "netscape",
		LogDir:        t.TempDir(),
		LogLevel:      "error",
	})
	require.Error(t, err)
	assert.Nil(t, c)
	assert.Contains(t, err.Error(), `unknown browser driver "netscape"`)
}

func TestNewContainer_BadEventSourceURL(t *testing.T) {
	_, err := NewContainer(context.Background(), Config{
		RunName:        "bad_events",
		EventSourceURL: "ftp://example.com",
		LogDir:         t.TempDir(),
		LogLevel:       "error",
	})
	assert.ErrorContains(t, err, "event source client")
}

func TestNewContainer_UnknownSettleMode(t *testing.T) {
	c, err := NewContainer(context.Background(), Config{
		RunName:    "bad_settle",
		SettleMode: "prob",
		LogDir:     t.TempDir(),
		LogLevel:   "error",
	})
	require.Error(t, err)
	assert.Nil(t, c)
	assert.Contains(t, err.Error(), `unknown settle mode "prob"`)
}
