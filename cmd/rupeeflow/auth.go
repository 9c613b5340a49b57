package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/Veraticus/rupeeflow/internal/cli"
	"github.com/Veraticus/rupeeflow/internal/common"
	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/spf13/cobra"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage your RupeeFlow account",
		Long: `Create an account, sign in and out, and recover a forgotten password.

Signing in saves a session under ~/.config/rupeeflow so later commands
know who you are.`,
	}
	cmd.AddCommand(authRegisterCmd())
	cmd.AddCommand(authLoginCmd())
	cmd.AddCommand(authLogoutCmd())
	cmd.AddCommand(authVerifyCmd())
	cmd.AddCommand(authResetCmd())
	cmd.AddCommand(authConfirmResetCmd())
	cmd.AddCommand(authWhoamiCmd())
	return cmd
}

// flagOrAsk returns the flag value, prompting for it when it is empty.
func flagOrAsk(ctx context.Context, cmd *cobra.Command, p *cli.Prompter, name, label string) (string, error) {
	value, _ := cmd.Flags().GetString(name)
	if value != "" {
		return value, nil
	}
	return p.Ask(ctx, label, "")
}

func newPrompter(cmd *cobra.Command) *cli.Prompter {
	return cli.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
}

func authRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			p := newPrompter(cmd)
			email, err := flagOrAsk(ctx, cmd, p, "email", "Email")
			if err != nil {
				return err
			}
			name, err := flagOrAsk(ctx, cmd, p, "name", "Display name")
			if err != nil {
				return err
			}
			password, err := flagOrAsk(ctx, cmd, p, "password", "Password")
			if err != nil {
				return err
			}

			d, err := openDeps(ctx)
			if err != nil {
				return err
			}
			defer d.Close()

			user, err := d.identity.Register(ctx, email, password, name)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Account created for %s.", user.Email)))
			fmt.Fprintln(out, cli.FormatInfo(`We sent you a verification link. Run "rupeeflow auth verify <link>" once you have it.`))
			return nil
		},
	}
	cmd.Flags().String("email", "", "account email")
	cmd.Flags().String("name", "", "display name")
	cmd.Flags().String("password", "", "password (prompted when omitted)")
	return cmd
}

func authLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and save the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			p := newPrompter(cmd)
			email, err := flagOrAsk(ctx, cmd, p, "email", "Email")
			if err != nil {
				return err
			}
			password, err := flagOrAsk(ctx, cmd, p, "password", "Password")
			if err != nil {
				return err
			}

			d, err := openDeps(ctx)
			if err != nil {
				return err
			}
			defer d.Close()

			session, err := d.identity.Login(ctx, email, password)
			if errors.Is(err, common.ErrEmailNotVerified) {
				return common.NewUserError("Please verify your email first. Check your inbox for the link.", err)
			}
			if err != nil {
				return err
			}
			if _, err := d.store.EnsureDefaultBudget(ctx, session.User.ID); err != nil {
				return err
			}
			if err := saveSession(session.Token); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Signed in as %s.", greetingName(session.User))))
			return nil
		},
	}
	cmd.Flags().String("email", "", "account email")
	cmd.Flags().String("password", "", "password (prompted when omitted)")
	return cmd
}

func authLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the saved session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			token, err := loadSession()
			if err != nil {
				return err
			}
			if token == "" {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("You are not signed in."))
				return nil
			}

			d, err := openDeps(ctx)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := d.identity.Logout(ctx, token); err != nil && !errors.Is(err, common.ErrUnauthorized) {
				return err
			}
			if err := clearSession(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Signed out."))
			return nil
		},
	}
}

func authVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <link-or-token>",
		Short: "Confirm your email address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := openDeps(ctx)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := d.identity.VerifyEmail(ctx, tokenFromLink(args[0])); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(`Email verified. Run "rupeeflow auth login" to sign in.`))
			return nil
		},
	}
}

func authResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Mail a password reset link",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			email, err := flagOrAsk(ctx, cmd, newPrompter(cmd), "email", "Email")
			if err != nil {
				return err
			}

			d, err := openDeps(ctx)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := d.identity.SendPasswordReset(ctx, email); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("If that account exists, a reset link is on its way."))
			return nil
		},
	}
	cmd.Flags().String("email", "", "account email")
	return cmd
}

func authConfirmResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "confirm-reset <link-or-token>",
		Short: "Choose a new password with a reset link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			password, err := flagOrAsk(ctx, cmd, newPrompter(cmd), "password", "New password")
			if err != nil {
				return err
			}

			d, err := openDeps(ctx)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := d.identity.ResetPassword(ctx, tokenFromLink(args[0]), password); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Password changed. Sign in with your new password."))
			return nil
		},
	}
	cmd.Flags().String("password", "", "new password (prompted when omitted)")
	return cmd
}

func authWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withUser(cmd.Context(), func(_ *deps, user *model.User) error {
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, cli.FormatTitle(greetingName(user)))
				fmt.Fprintf(out, "Email:    %s\n", user.Email)
				fmt.Fprintf(out, "Provider: %s\n", user.Provider)
				fmt.Fprintf(out, "Verified: %t\n", user.EmailVerified)
				return nil
			})
		},
	}
}

// tokenFromLink accepts a mailed link or the bare token. Local links carry
// ?token=, Firebase action links carry ?oobCode=.
func tokenFromLink(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}
	q := u.Query()
	for _, key := range []string{"token", "oobCode"} {
		if v := q.Get(key); v != "" {
			return v
		}
	}
	return raw
}

func greetingName(user *model.User) string {
	if user.DisplayName != "" {
		return user.DisplayName
	}
	return user.Email
}
