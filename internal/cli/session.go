package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// errReported marks failures already printed to the user.
var errReported = errors.New("command failed")

func newLoginCommand(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.manager.Login(cmd.Context(), email, password) {
				fmt.Fprintln(out(cmd), renderFailure(a.manager.LastError()))
				return errReported
			}
			fmt.Fprintln(out(cmd), renderSuccess("Signed in"))
			fmt.Fprintln(out(cmd), renderUser(a.manager.CurrentUser()))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newRegisterCommand(a *app) *cobra.Command {
	var name, email, password, role string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Long: `Create a membership account and sign in.

--role is required and must be "user" or "admin".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.manager.Register(cmd.Context(), name, email, password, role) {
				fmt.Fprintln(out(cmd), renderFailure(a.manager.LastError()))
				return errReported
			}
			fmt.Fprintln(out(cmd), renderSuccess("Account created"))
			fmt.Fprintln(out(cmd), renderUser(a.manager.CurrentUser()))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (at least 6 characters)")
	cmd.Flags().StringVar(&role, "role", "", "user or admin")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.manager.Logout(cmd.Context())
			fmt.Fprintln(out(cmd), renderSuccess("Signed out"))
			return nil
		},
	}
}

func newWhoamiCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user := a.manager.CurrentUser()
			if user == nil {
				fmt.Fprintln(out(cmd), renderMuted("Not signed in"))
				return nil
			}
			fmt.Fprintln(out(cmd), renderUser(user))
			return nil
		},
	}
}

// IsReported reports whether err was already shown to the user.
func IsReported(err error) bool {
	return errors.Is(err, errReported)
}
