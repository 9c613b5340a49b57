package main

import (
	"fmt"
	"strings"

	"github.com/Veraticus/rupeeflow/internal/cli"
	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/Veraticus/rupeeflow/internal/service"
	"github.com/Veraticus/rupeeflow/internal/session"
	"github.com/Veraticus/rupeeflow/internal/tui"
	"github.com/Veraticus/rupeeflow/internal/tui/themes"
	"github.com/spf13/cobra"
)

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Ask the AI advisor about your transactions",
		Long: `Opens an interactive chat with the advisor. The advisor sees all of
your transactions and the conversation so far.

Use --once to ask a single question and print the answer.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			once, _ := cmd.Flags().GetString("once")
			plain, _ := cmd.Flags().GetBool("plain")
			return withAdvisor(cmd, func(d *deps, user *model.User, adv service.Advisor) error {
				ctx := cmd.Context()
				txns, err := d.store.ListTransactions(ctx, user.ID)
				if err != nil {
					return err
				}
				if q := strings.TrimSpace(once); q != "" {
					fmt.Fprintln(cmd.OutOrStdout(), cli.RenderAdvice(adv.Chat(ctx, q, txns, nil)))
					return nil
				}

				theme := themes.Default
				if plain {
					theme = themes.Plain
				}
				// Ledger changes seen by the store reach the advisor while chatting.
				mgr := session.NewManager(d.store, d.logger)
				defer mgr.Close()
				defer mgr.Follow(ctx, d.identity)()
				if err := mgr.SetIdentity(ctx, user); err != nil {
					return err
				}
				return tui.RunChat(ctx,
					tui.WithAdvisor(adv),
					tui.WithTransactions(txns),
					tui.WithUpdates(mgr.Changes()),
					tui.WithTheme(theme),
				)
			})
		},
	}
	cmd.Flags().String("once", "", "ask one question and exit")
	cmd.Flags().Bool("plain", false, "disable colors")
	return cmd
}
