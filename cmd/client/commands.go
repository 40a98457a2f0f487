package main

import (
	"errors"

	"music_auth/internal/client/api"
	"music_auth/internal/client/session"
	"music_auth/internal/models"

	"github.com/spf13/cobra"
)

var (
	errNotLoggedIn     = errors.New("not logged in")
	errAlreadyLoggedIn = errors.New("already logged in, log out first")
)

func newRegisterCmd(a *app) *cobra.Command {
	var username, email string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if to := a.guard.GuardGuestOnly(session.RouteRegister); to != session.RouteRegister {
				return errAlreadyLoggedIn
			}

			p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())

			pass, err := p.secret("Password")
			if err != nil {
				return err
			}

			s, err := a.api.Register(cmd.Context(), username, email, pass)
			if err != nil {
				return err
			}

			return a.signIn(cmd, s)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "username")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newLoginCmd(a *app) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if to := a.guard.GuardGuestOnly(session.RouteLogin); to != session.RouteLogin {
				return errAlreadyLoggedIn
			}

			p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())

			pass, err := p.secret("Password")
			if err != nil {
				return err
			}

			s, err := a.api.Login(cmd.Context(), email, pass)
			if err != nil {
				return err
			}

			return a.signIn(cmd, s)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newWhoAmICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account as the server sees it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, ok := a.session.Token()
			if !ok {
				return errNotLoggedIn
			}

			profile, err := a.api.WhoAmI(cmd.Context(), token)
			if err != nil {
				return err
			}

			cmd.Printf("%s <%s>\nid: %s\nmember since: %s\n",
				profile.Username, profile.Email, profile.ID, profile.CreatedAt.Format("2006-01-02"))

			return nil
		},
	}
}

func newChangePasswordCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "change-password",
		Short: "Change the password of the signed-in account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, ok := a.session.Token()
			if !ok {
				return errNotLoggedIn
			}

			p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())

			current, err := p.secret("Current password")
			if err != nil {
				return err
			}

			next, err := p.secret("New password")
			if err != nil {
				return err
			}

			msg, err := a.api.ChangePassword(cmd.Context(), token, current, next)
			if err != nil {
				return err
			}

			cmd.Println(msg)

			return nil
		},
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the cached session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.session.Logout(); err != nil {
				return err
			}

			cmd.Println("Logged out")

			return nil
		},
	}
}

func newOpenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "open <route>",
		Short: "Show where the app would take you for a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := a.guard.Navigate(args[0])
			if err != nil {
				return err
			}

			if to != args[0] {
				cmd.Printf("%s -> %s\n", args[0], to)
				return nil
			}

			cmd.Println(to)

			return nil
		},
	}
}

func (a *app) signIn(cmd *cobra.Command, s models.Session) error {
	if err := a.session.SignIn(s); err != nil {
		return err
	}

	cmd.Printf("Logged in as %s\n", s.Username)

	return nil
}

// describe renders an error for the terminal, using the server's message
// as-is when there is one.
func describe(err error) string {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}

	return err.Error()
}
