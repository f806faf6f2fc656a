// Package config loads the member client's settings.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const sessionFileName = ".member-session.yaml"

// ClientConfig configures the member CLI and the session manager it drives.
type ClientConfig struct {
	BackendURL    string        `env:"MEMBER_BACKEND_URL,     default=http://localhost:8080"`
	SessionFile   string        `env:"MEMBER_SESSION_FILE"`
	ProfileGrace  time.Duration `env:"MEMBER_PROFILE_GRACE,   default=1s"`
	AvatarBaseURL string        `env:"MEMBER_AVATAR_BASE_URL, default=https://ui-avatars.com/api/"`
	LogLevel      string        `env:"MEMBER_LOG_LEVEL,       default=warn"`
	HTTPTimeout   time.Duration `env:"MEMBER_HTTP_TIMEOUT,    default=10s"`
}

// Load reads the client configuration from the environment. An empty
// MEMBER_SESSION_FILE resolves to a file in the user's home directory.
func Load(ctx context.Context) (*ClientConfig, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*ClientConfig, error) {
	var cfg ClientConfig
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("load client config: %w", err)
	}

	if cfg.SessionFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		cfg.SessionFile = filepath.Join(home, sessionFileName)
	}
	return &cfg, nil
}
