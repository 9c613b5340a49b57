package main

import (
	"fmt"
	"time"

	"github.com/Veraticus/rupeeflow/internal/analytics"
	"github.com/Veraticus/rupeeflow/internal/cli"
	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/spf13/cobra"
)

func budgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Set and review monthly spending limits",
		Long: `Budgets cap monthly spending per expense category. The special
category "Total" caps all spending combined and defaults to ₹50,000.`,
	}
	cmd.AddCommand(budgetSetCmd())
	cmd.AddCommand(budgetShowCmd())
	cmd.AddCommand(budgetClearCmd())
	return cmd
}

func budgetSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "set <category> <limit>",
		Short:   "Set the monthly limit for a category",
		Example: "  rupeeflow budget set food 6000\n  rupeeflow budget set total 40000",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := model.ParseBudgetCategory(args[0])
			if err != nil {
				return err
			}
			limit, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			if err := model.ValidateBudget(category, limit); err != nil {
				return err
			}
			return withUser(cmd.Context(), func(d *deps, user *model.User) error {
				if err := d.store.UpsertBudget(cmd.Context(), user.ID, category, limit); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%s budget set to %s a month.", category, cli.FormatAmount(limit))))
				return nil
			})
		},
	}
}

func budgetShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show budget usage for a month",
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, _ := cmd.Flags().GetString("month")
			month, err := parseMonth(raw, time.Now())
			if err != nil {
				return err
			}
			return withUser(cmd.Context(), func(d *deps, user *model.User) error {
				ctx := cmd.Context()
				if _, err := d.store.EnsureDefaultBudget(ctx, user.ID); err != nil {
					return err
				}
				txns, err := d.store.ListTransactions(ctx, user.ID)
				if err != nil {
					return err
				}
				budgets, err := d.store.ListBudgets(ctx, user.ID)
				if err != nil {
					return err
				}
				report := analytics.BudgetReport(txns, budgets, analytics.MonthWindow(month))
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, cli.FormatTitle("Budgets for "+month.Format("January 2006")))
				fmt.Fprintln(out, cli.BudgetPanel(report))
				return nil
			})
		},
	}
	cmd.Flags().String("month", "", "month as YYYY-MM (default this month)")
	return cmd
}

func budgetClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <category>",
		Short: "Remove the limit for a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := model.ParseBudgetCategory(args[0])
			if err != nil {
				return err
			}
			return withUser(cmd.Context(), func(d *deps, user *model.User) error {
				if err := d.store.DeleteBudget(cmd.Context(), user.ID, category); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%s budget removed.", category)))
				return nil
			})
		},
	}
}
