package main

import (
	"fmt"
	"time"

	"github.com/Veraticus/rupeeflow/internal/analytics"
	"github.com/Veraticus/rupeeflow/internal/cli"
	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/spf13/cobra"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Charts and summaries of your money",
	}
	cmd.PersistentFlags().String("month", "", "month as YYYY-MM (default this month)")
	cmd.AddCommand(reportSummaryCmd())
	cmd.AddCommand(reportCategoriesCmd())
	cmd.AddCommand(reportWeeklyCmd())
	cmd.AddCommand(reportAnnualCmd())
	return cmd
}

// monthReport loads the user's transactions for --month and hands them to fn.
func monthReport(cmd *cobra.Command, fn func(month time.Time, txns []model.Transaction) string) error {
	raw, _ := cmd.Flags().GetString("month")
	month, err := parseMonth(raw, time.Now())
	if err != nil {
		return err
	}
	return withUser(cmd.Context(), func(d *deps, user *model.User) error {
		txns, err := d.store.ListTransactions(cmd.Context(), user.ID)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), fn(month, analytics.InMonth(txns, month)))
		return nil
	})
}

func reportSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Income, expense and balance for a month",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return monthReport(cmd, func(month time.Time, txns []model.Transaction) string {
				return cli.FormatTitle(month.Format("January 2006")) + "\n" +
					cli.StatsLine(analytics.Summarize(txns))
			})
		},
	}
}

func reportCategoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Totals per category",
		RunE: func(cmd *cobra.Command, _ []string) error {
			typeFilter, _ := cmd.Flags().GetString("type")
			if typeFilter != model.FilterAll {
				typ, err := model.ParseTransactionType(typeFilter)
				if err != nil {
					return err
				}
				typeFilter = string(typ)
			}
			return monthReport(cmd, func(month time.Time, txns []model.Transaction) string {
				return cli.FormatTitle("Categories, "+month.Format("January 2006")) + "\n" +
					cli.CategoryChart(analytics.CategoryTotals(txns, typeFilter))
			})
		},
	}
	cmd.Flags().String("type", string(model.TypeExpense), "expense, income or all")
	return cmd
}

func reportWeeklyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "weekly",
		Short: "Spending by week of the month",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return monthReport(cmd, func(month time.Time, txns []model.Transaction) string {
				return cli.FormatTitle("Weekly spending, "+month.Format("January 2006")) + "\n" +
					cli.WeeklyChart(analytics.WeeklyBuckets(txns))
			})
		},
	}
}

func reportAnnualCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "annual",
		Short: "Income and expense per month over a year",
		Long: `Shows twelve months of income and expense. Without --year the report
covers the trailing twelve months ending this month.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			year, _ := cmd.Flags().GetInt("year")
			now := time.Now()
			return withUser(cmd.Context(), func(d *deps, user *model.User) error {
				txns, err := d.store.ListTransactions(cmd.Context(), user.ID)
				if err != nil {
					return err
				}
				title := "Last 12 months"
				points := analytics.TrailingTrend(txns, now)
				if year != 0 {
					title = fmt.Sprintf("Year %d", year)
					points = analytics.YearTrend(txns, year, now.Location())
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, cli.FormatTitle(title))
				fmt.Fprintln(out, cli.TrendTable(points))
				return nil
			})
		},
	}
	cmd.Flags().Int("year", 0, "calendar year, e.g. 2024")
	return cmd
}
