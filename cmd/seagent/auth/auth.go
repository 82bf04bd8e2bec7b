// Package authcmder provides the auth command for logging in to the SeAgent
// backend and managing the stored access token.
package authcmder

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/seagent/cmd/seagent/cmdutil"
	"github.com/papercomputeco/seagent/pkg/api"
	"github.com/papercomputeco/seagent/pkg/cliui"
	"github.com/papercomputeco/seagent/pkg/credentials"
	"github.com/papercomputeco/seagent/pkg/dotdir"
)

const authLongDesc string = `Log in to the SeAgent backend.

The access token is stored in credentials.toml in the .seagent/ directory
and sent with every request. Setting SEAGENT_TOKEN overrides the stored
token.

Passwords are read with hidden input on a terminal, or one line at a time
from a pipe.

Examples:
  seagent auth login -u ada
  seagent auth register -u ada --email ada@example.com
  printf 'ada\nsecret\n' | seagent auth login
  seagent auth whoami
  seagent auth logout`

const authShortDesc string = "Log in and manage the stored token"

func NewAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: authShortDesc,
		Long:  authLongDesc,
	}

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newRegisterCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newWhoamiCmd())

	return cmd
}

func newLoginCmd() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with a username and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cmdutil.Load(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			p := cmdutil.NewPrompter(cmd)
			username, password, err := readLogin(p, username)
			if err != nil {
				return err
			}

			res, err := env.Client.Login(cmd.Context(), username, password)
			if err != nil {
				return fmt.Errorf("logging in: %w", err)
			}

			return saveSession(cmd.OutOrStdout(), env, res, "Logged in as")
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Account username (prompted when empty)")

	return cmd
}

func newRegisterCmd() *cobra.Command {
	var username, email string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cmdutil.Load(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			p := cmdutil.NewPrompter(cmd)
			username, password, err := readLogin(p, username)
			if err != nil {
				return err
			}

			if p.Interactive() {
				confirm, err := p.Password("Confirm password: ")
				if err != nil {
					return err
				}
				if confirm != password {
					return errors.New("passwords do not match")
				}
			}

			res, err := env.Client.Register(cmd.Context(), username, password, email)
			if err != nil {
				return fmt.Errorf("registering: %w", err)
			}

			return saveSession(cmd.OutOrStdout(), env, res, "Registered")
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Account username (prompted when empty)")
	cmd.Flags().StringVar(&email, "email", "", "Account email")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored token and session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			mgr, err := credentials.NewManager(configDir)
			if err != nil {
				return fmt.Errorf("loading credentials: %w", err)
			}
			if err := mgr.RemoveToken(); err != nil {
				return err
			}

			if err := dotdir.NewManager().ClearSession(configDir); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n  %s Logged out.\n\n", cliui.SuccessMark)
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			mgr, err := credentials.NewManager(configDir)
			if err != nil {
				return fmt.Errorf("loading credentials: %w", err)
			}

			out := cmd.OutOrStdout()
			user, err := mgr.RequireUser()
			if errors.Is(err, credentials.ErrNotAuthenticated) {
				if ok, _ := mgr.IsAuthenticated(); ok {
					fmt.Fprintf(out, "\n  %s Token present, but no user profile is stored.\n\n", cliui.WarnStyle.Render("!"))
					return nil
				}
				fmt.Fprintf(out, "\n  %s Not logged in. Run 'seagent auth login'.\n\n", cliui.DimStyle.Render("●"))
				return err
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "\n  %s %s %s\n",
				cliui.SuccessMark,
				cliui.NameStyle.Render(user.Username),
				cliui.DimStyle.Render(fmt.Sprintf("(id %d)", user.ID)),
			)
			if user.Email != "" {
				fmt.Fprintf(out, "  %s %s\n", cliui.KeyStyle.Render("Email:"), cliui.ValueStyle.Render(user.Email))
			}
			fmt.Fprintf(out, "  %s %s\n\n", cliui.KeyStyle.Render("Credentials:"), cliui.DimStyle.Render(mgr.GetTarget()))

			return nil
		},
	}
}

// readLogin reads the username, unless given, and the password.
func readLogin(p *cmdutil.Prompter, username string) (string, string, error) {
	var err error
	if username == "" {
		username, err = p.Line("Username: ")
		if err != nil {
			return "", "", err
		}
	}
	if username == "" {
		return "", "", errors.New("username cannot be empty")
	}

	password, err := p.Password("Password: ")
	if err != nil {
		return "", "", err
	}
	if password == "" {
		return "", "", errors.New("password cannot be empty")
	}

	return username, password, nil
}

func saveSession(out io.Writer, env *cmdutil.Env, res *api.AuthResult, verb string) error {
	if err := env.Creds.SaveToken(res.AccessToken, res.TokenType); err != nil {
		return err
	}

	if res.User == nil {
		env.Logger.Warn("backend returned no user profile; chats cannot be listed until it does")
		fmt.Fprintf(out, "\n  %s Token stored.\n\n", cliui.SuccessMark)
		return nil
	}

	err := env.Creds.SaveUser(credentials.StoredUser{
		ID:       res.User.ID,
		Username: res.User.Username,
		Email:    res.User.Email,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s %s %s\n\n",
		cliui.SuccessMark,
		verb,
		cliui.NameStyle.Render(res.User.Username),
	)
	return nil
}
