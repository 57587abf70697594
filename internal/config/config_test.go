package config_test

import (
	"testing"
	"time"

	"github.com/calstateteach/canvas-upload-service/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setEnv is a helper that sets environment variables for a test and restores them after.
func setEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
}

// validEnv returns the minimum set of valid environment variables.
func validEnv() map[string]string {
	return map[string]string{
		"CANVAS_BASE_URL":     "https://ourdomain.instructure.com/api/v1",
		"CANVAS_ACCESS_TOKEN": "secretkey",
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	setEnv(t, validEnv())

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, "https://ourdomain.instructure.com/api/v1", cfg.Canvas.BaseURL)
	assert.Equal(t, "my files/VideoUploads", cfg.Upload.FolderPath)
	assert.Equal(t, 15*time.Second, cfg.Upload.PollInterval)
	assert.Equal(t, 240*time.Second, cfg.Upload.MaxWait)
	assert.Equal(t, "local", cfg.Dispatch.Mode)
	assert.Empty(t, cfg.Auth.APIKeyHashes)
}

func TestLoad_CustomPort(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("UPLOADSVC_PORT", "9090")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoad_MissingBaseURL(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("CANVAS_BASE_URL", "")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CANVAS_BASE_URL")
}

func TestLoad_InvalidBaseURLScheme(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("CANVAS_BASE_URL", "ftp://canvas.test")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http://")
}

func TestLoad_MissingAccessToken(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("CANVAS_ACCESS_TOKEN", "")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CANVAS_ACCESS_TOKEN")
}

func TestLoad_InvalidDispatchMode(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("DISPATCH_MODE", "sqs")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DISPATCH_MODE")
}

func TestLoad_HTTPDispatchRequiresTarget(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("DISPATCH_MODE", "http")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DISPATCH_TARGET_URL")

	t.Setenv("DISPATCH_TARGET_URL", "http://localhost:8080/api/v1/uploads/poll")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "http", cfg.Dispatch.Mode)
}

func TestLoad_MaxWaitMustExceedInterval(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("UPLOAD_POLL_INTERVAL", "30s")
	t.Setenv("UPLOAD_MAX_WAIT", "20s")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UPLOAD_MAX_WAIT")
}

func TestLoad_MaxWaitMustLeaveCeilingMargin(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("UPLOAD_MAX_WAIT", "299s")
	t.Setenv("UPLOAD_EXECUTION_CEILING", "300s")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "margin")
}

func TestLoad_APIKeyHashes(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("AUTH_API_KEY_HASHES", "$2a$10$abc, $2a$10$def ,")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"$2a$10$abc", "$2a$10$def"}, cfg.Auth.APIKeyHashes)
}

func TestLoad_InvalidDurationFallsBackToDefault(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("UPLOAD_POLL_INTERVAL", "not-a-duration")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, cfg.Upload.PollInterval)
}
