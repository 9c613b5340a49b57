package main

import (
	"fmt"
	"os"
	"time"

	"github.com/Veraticus/rupeeflow/internal/analytics"
	"github.com/Veraticus/rupeeflow/internal/cli"
	"github.com/Veraticus/rupeeflow/internal/common"
	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/Veraticus/rupeeflow/internal/service"
	"github.com/spf13/cobra"
)

var errNoAdvisor = common.NewUserError(
	"The advisor is not configured. Set llm.provider and its API key, e.g. GEMINI_API_KEY.",
	common.ErrMissingConfig)

// withAdvisor runs fn with the signed-in user and a configured advisor.
func withAdvisor(cmd *cobra.Command, fn func(d *deps, user *model.User, adv service.Advisor) error) error {
	return withUser(cmd.Context(), func(d *deps, user *model.User) error {
		adv, closeAdvisor, err := newAdvisor(d.logger)
		if err != nil {
			return err
		}
		defer closeAdvisor()
		if adv == nil {
			return errNoAdvisor
		}
		return fn(d, user, adv)
	})
}

func adviseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "advise",
		Short: "Get savings tips for a month from the AI advisor",
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, _ := cmd.Flags().GetString("month")
			month, err := parseMonth(raw, time.Now())
			if err != nil {
				return err
			}
			return withAdvisor(cmd, func(d *deps, user *model.User, adv service.Advisor) error {
				ctx := cmd.Context()
				txns, err := d.store.ListTransactions(ctx, user.ID)
				if err != nil {
					return err
				}
				budgets, err := d.store.ListBudgets(ctx, user.ID)
				if err != nil {
					return err
				}

				spinner := cli.NewProgress(os.Stderr, -1, "Thinking...")
				advice := adv.Advice(ctx, analytics.InMonth(txns, month), budgets)
				_ = spinner.Clear()

				title := fmt.Sprintf("%s Advice for %s", cli.RobotIcon, month.Format("January 2006"))
				fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox(title, cli.RenderAdvice(advice)))
				return nil
			})
		},
	}
	cmd.Flags().String("month", "", "month as YYYY-MM (default this month)")
	return cmd
}
