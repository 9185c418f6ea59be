package env

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvService_Getters(t *testing.T) {
	e := &EnvService{}

	t.Setenv("VERIFY_BOOL", "false")
	t.Setenv("VERIFY_INT", "42")
	t.Setenv("VERIFY_BAD_INT", "forty")
	t.Setenv("VERIFY_STR", "playwright")

	assert.False(t, e.GetBool("VERIFY_BOOL", true))
	assert.True(t, e.GetBool("VERIFY_UNSET_BOOL", true))
	assert.Equal(t, 42, e.GetInt("VERIFY_INT", 1))
	assert.Equal(t, 1, e.GetInt("VERIFY_BAD_INT", 1))
	assert.Equal(t, "playwright", e.GetWithDefault("VERIFY_STR", "rod"))
	assert.Equal(t, "rod", e.GetWithDefault("VERIFY_UNSET_STR", "rod"))
}

func TestEnvService_GetDuration(t *testing.T) {
	e := &EnvService{}

	tests := []struct {
		name string
		val  string
		want time.Duration
	}{
		{"Go duration", "1500ms", 1500 * time.Millisecond},
		{"Bare seconds", "10", 10 * time.Second},
		{"Garbage falls back", "soon", 3 * time.Second},
		{"Unset falls back", "", 3 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("VERIFY_DURATION", tt.val)
			assert.Equal(t, tt.want, e.GetDuration("VERIFY_DURATION", 3*time.Second))
		})
	}
}

func TestNewEnvService_LoadsAppEnvOverlay(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("VERIFY_OVERLAY_KEY=base\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.ci"), []byte("VERIFY_OVERLAY_KEY=ci\n"), 0o644))

	t.Setenv("APP_ENV", "ci")
	t.Setenv("VERIFY_OVERLAY_KEY", "")
	os.Unsetenv("VERIFY_OVERLAY_KEY")

	e := NewEnvService()
	assert.Equal(t, "ci", e.Get("VERIFY_OVERLAY_KEY"))
}
