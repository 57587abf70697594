package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the upload service.
type Config struct {
	Server   ServerConfig
	Canvas   CanvasConfig
	Upload   UploadConfig
	Dispatch DispatchConfig
	Redis    RedisConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type CanvasConfig struct {
	BaseURL     string
	AccessToken string
	PerPage     int
	Timeout     time.Duration
}

type UploadConfig struct {
	// FolderPath is the fixed destination folder in the target user's account.
	FolderPath   string
	PollInterval time.Duration
	// MaxWait bounds the total wall-clock wait of one poll invocation. It must
	// stay below ExecutionCeiling with margin for the final classification
	// step, so the poller reports PENDING before the platform kills it.
	MaxWait          time.Duration
	ExecutionCeiling time.Duration
	CallbackTimeout  time.Duration
}

type DispatchConfig struct {
	// Mode selects how poll invocations are scheduled: "local" runs them in a
	// background goroutine, "http" posts to TargetURL.
	Mode      string
	TargetURL string
	Timeout   time.Duration
}

type RedisConfig struct {
	// URL enables Redis-backed rate limiting when set.
	URL string
}

type AuthConfig struct {
	// APIKeyHashes holds bcrypt hashes of accepted API keys. Auth is disabled
	// when empty.
	APIKeyHashes []string
	// RequestsPerMinute bounds authenticated callers when Redis is configured.
	RequestsPerMinute int
}

var validDispatchModes = map[string]bool{
	"local": true,
	"http":  true,
}

// Load reads configuration from environment variables and returns a validated
// Config. Returns an error with a descriptive message if any required value is
// missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("UPLOADSVC_PORT", 8080),
			Env:  envString("UPLOADSVC_ENV", "development"),
		},
		Canvas: CanvasConfig{
			BaseURL:     os.Getenv("CANVAS_BASE_URL"),
			AccessToken: os.Getenv("CANVAS_ACCESS_TOKEN"),
			PerPage:     envInt("CANVAS_PER_PAGE", 1000),
			Timeout:     envDuration("CANVAS_TIMEOUT", 30*time.Second),
		},
		Upload: UploadConfig{
			FolderPath:       envString("UPLOAD_FOLDER_PATH", "my files/VideoUploads"),
			PollInterval:     envDuration("UPLOAD_POLL_INTERVAL", 15*time.Second),
			MaxWait:          envDuration("UPLOAD_MAX_WAIT", 240*time.Second),
			ExecutionCeiling: envDuration("UPLOAD_EXECUTION_CEILING", 5*time.Minute),
			CallbackTimeout:  envDuration("CALLBACK_TIMEOUT", 10*time.Second),
		},
		Dispatch: DispatchConfig{
			Mode:      envString("DISPATCH_MODE", "local"),
			TargetURL: os.Getenv("DISPATCH_TARGET_URL"),
			Timeout:   envDuration("DISPATCH_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Auth: AuthConfig{
			APIKeyHashes:      splitNonEmpty(os.Getenv("AUTH_API_KEY_HASHES")),
			RequestsPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 60),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Canvas.BaseURL == "" {
		return fmt.Errorf("CANVAS_BASE_URL is required")
	}
	if !strings.HasPrefix(c.Canvas.BaseURL, "http://") && !strings.HasPrefix(c.Canvas.BaseURL, "https://") {
		return fmt.Errorf("CANVAS_BASE_URL must start with http:// or https://, got %q", c.Canvas.BaseURL)
	}
	if c.Canvas.AccessToken == "" {
		return fmt.Errorf("CANVAS_ACCESS_TOKEN is required")
	}

	if !validDispatchModes[c.Dispatch.Mode] {
		return fmt.Errorf("DISPATCH_MODE must be one of local, http; got %q", c.Dispatch.Mode)
	}
	if c.Dispatch.Mode == "http" && c.Dispatch.TargetURL == "" {
		return fmt.Errorf("DISPATCH_TARGET_URL is required when DISPATCH_MODE is http")
	}

	if c.Upload.PollInterval <= 0 {
		return fmt.Errorf("UPLOAD_POLL_INTERVAL must be positive, got %s", c.Upload.PollInterval)
	}
	if c.Upload.MaxWait <= c.Upload.PollInterval {
		return fmt.Errorf("UPLOAD_MAX_WAIT (%s) must exceed UPLOAD_POLL_INTERVAL (%s)",
			c.Upload.MaxWait, c.Upload.PollInterval)
	}
	// Leave room for one final progress fetch and classification before the
	// platform's own timeout fires.
	if c.Upload.MaxWait+c.Upload.PollInterval >= c.Upload.ExecutionCeiling {
		return fmt.Errorf("UPLOAD_MAX_WAIT (%s) leaves no margin under UPLOAD_EXECUTION_CEILING (%s)",
			c.Upload.MaxWait, c.Upload.ExecutionCeiling)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func splitNonEmpty(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
