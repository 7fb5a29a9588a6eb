package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finease/internal/config"
)

func TestLoadEnvFile(t *testing.T) {
	require.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("FINEASE_CLI_TEST=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("FINEASE_CLI_TEST") })

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("FINEASE_CLI_TEST"))
}

func TestLoadAndValidateConfig(t *testing.T) {
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("AUTH_PROVIDER", "google")
	t.Setenv("GOOGLE_CLIENT_ID", "client.apps.googleusercontent.com")

	cfg, err := LoadAndValidateConfig()
	require.NoError(t, err)
	assert.Equal(t, config.BackendMemory, cfg.DataBackend)

	t.Setenv("PORT", "99999")
	_, err = LoadAndValidateConfig()
	assert.ErrorContains(t, err, "invalid port")
}

func TestNewVerifierUnsupported(t *testing.T) {
	_, err := NewVerifier(context.Background(), &config.Config{AuthProvider: "saml"})
	assert.ErrorContains(t, err, "unsupported auth provider")
}

func TestGracefulShutdown(t *testing.T) {
	logger := SetupLogger("error")
	var order []string
	step := func(name string, err error) func(context.Context) error {
		return func(ctx context.Context) error {
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			order = append(order, name)
			return err
		}
	}

	errStore := errors.New("store close failed")
	err := GracefulShutdown(logger, time.Second,
		step("http", nil),
		step("store", errStore),
		step("events", nil),
	)
	assert.ErrorIs(t, err, errStore)
	assert.Equal(t, []string{"http", "store", "events"}, order)

	assert.NoError(t, GracefulShutdown(logger, time.Second, step("http", nil)))
}

func TestSignalContextCancel(t *testing.T) {
	ctx, cancel := SignalContext(context.Background(), SetupLogger("error"))
	cancel()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled")
	}
}
