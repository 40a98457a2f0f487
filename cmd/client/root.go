package main

import (
	"fmt"
	"os"

	"music_auth/internal/client/api"
	"music_auth/internal/client/session"

	"github.com/spf13/cobra"
)

const defaultServer = "http://localhost:5000"

// clientConfig holds the global flags.
type clientConfig struct {
	server     string
	sessionDir string
}

// app is what every subcommand works with once the flags are parsed.
type app struct {
	api     *api.Client
	session *session.Manager
	guard   *session.Guard
}

// NewRootCmd creates the root command for the music auth client.
func NewRootCmd() *cobra.Command {
	cfg := &clientConfig{}
	a := &app{}

	cmd := &cobra.Command{
		Use:           "music-auth",
		Short:         "Sign in to the music app from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cfg)
		},
	}

	server := os.Getenv("MUSIC_AUTH_SERVER")
	if server == "" {
		server = defaultServer
	}

	cmd.PersistentFlags().StringVar(&cfg.server, "server", server, "auth server base URL")
	cmd.PersistentFlags().StringVar(&cfg.sessionDir, "session-dir", "", "directory of the cached session (default: user config dir)")

	cmd.AddCommand(newRegisterCmd(a))
	cmd.AddCommand(newLoginCmd(a))
	cmd.AddCommand(newWhoAmICmd(a))
	cmd.AddCommand(newChangePasswordCmd(a))
	cmd.AddCommand(newLogoutCmd(a))
	cmd.AddCommand(newOpenCmd(a))

	return cmd
}

func (a *app) init(cfg *clientConfig) error {
	dir := cfg.sessionDir
	if dir == "" {
		d, err := session.DefaultDir()
		if err != nil {
			return err
		}
		dir = d
	}

	a.api = api.New(cfg.server, nil)
	a.session = session.NewManager(session.NewFileCache(dir))
	a.guard = session.NewGuard(a.session)

	if err := a.session.Load(); err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	return nil
}
