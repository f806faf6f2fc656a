// Package cli implements the member command line client.
package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hockeyunion/membership/internal/core/service"
	"github.com/hockeyunion/membership/internal/infrastructure/backendclient"
	"github.com/hockeyunion/membership/internal/infrastructure/config"
	"github.com/hockeyunion/membership/internal/infrastructure/sessionfile"
	"github.com/hockeyunion/membership/pkg/logger"
)

// ManagerFactory builds the session manager a command runs against.
type ManagerFactory func(ctx context.Context, cfg *config.ClientConfig, log zerolog.Logger) (*service.SessionManager, error)

type app struct {
	factory    ManagerFactory
	backendURL string
	manager    *service.SessionManager
}

// NewRootCommand returns the member command tree. A nil factory uses the HTTP
// backend and the session file from the environment.
func NewRootCommand(factory ManagerFactory) *cobra.Command {
	if factory == nil {
		factory = httpManager
	}
	a := &app{factory: factory}

	root := &cobra.Command{
		Use:   "member",
		Short: "Sign in to the league membership service",
		Long: `member signs league members in and out and shows who is signed in.

The session is kept in a local file so later commands reuse it.

Examples:
  member register --name "Nia Long" --email nia@club.na --password secret1 --role user
  member login --email nia@club.na --password secret1
  member whoami
  member logout`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.manager != nil {
				a.manager.Close()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.backendURL, "backend-url", "", "membership API base URL (overrides MEMBER_BACKEND_URL)")

	root.AddCommand(
		newLoginCommand(a),
		newRegisterCommand(a),
		newLogoutCommand(a),
		newWhoamiCommand(a),
	)
	return root
}

// ExecuteContext runs the member CLI with the default HTTP backend.
func ExecuteContext(ctx context.Context) error {
	return NewRootCommand(nil).ExecuteContext(ctx)
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if a.backendURL != "" {
		cfg.BackendURL = a.backendURL
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  true,
		Output:  os.Stderr,
		Service: "member",
	})

	m, err := a.factory(ctx, cfg, log)
	if err != nil {
		return err
	}
	a.manager = m
	m.Start(ctx)
	return nil
}

func httpManager(_ context.Context, cfg *config.ClientConfig, log zerolog.Logger) (*service.SessionManager, error) {
	client, err := backendclient.New(cfg.BackendURL,
		backendclient.WithHTTPClient(newHTTPClient(cfg.HTTPTimeout)),
		backendclient.WithSessionPersister(sessionfile.New(cfg.SessionFile)),
		backendclient.WithLogger(log.With().Str("component", "backend_client").Logger()),
	)
	if err != nil {
		return nil, fmt.Errorf("backend client: %w", err)
	}
	return service.NewSessionManager(client, client, service.SessionManagerConfig{
		ProfileGrace:  cfg.ProfileGrace,
		AvatarBaseURL: cfg.AvatarBaseURL,
	}, log), nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
