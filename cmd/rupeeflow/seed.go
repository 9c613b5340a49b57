package main

import (
	"fmt"
	"time"

	"github.com/Veraticus/rupeeflow/internal/cli"
	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// demoTransactions is the starter ledger: a salary, rent and a dinner, all
// dated now.
func demoTransactions(now time.Time) []model.NewTransaction {
	return []model.NewTransaction{
		{Title: "Monthly Salary", Amount: decimal.NewFromInt(85000), Category: model.CategorySalary, Type: model.TypeIncome, Date: now},
		{Title: "Apartment Rent", Amount: decimal.NewFromInt(18000), Category: model.CategoryRent, Type: model.TypeExpense, Date: now},
		{Title: "Zomato Dinner", Amount: decimal.NewFromInt(850), Category: model.CategoryFood, Type: model.TypeExpense, Date: now},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Add a few demo transactions to try things out",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withUser(cmd.Context(), func(d *deps, user *model.User) error {
				ctx := cmd.Context()
				if _, err := d.store.EnsureDefaultBudget(ctx, user.ID); err != nil {
					return err
				}
				imported, err := d.store.ImportTransactions(ctx, user.ID, demoTransactions(time.Now()))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Added %d demo transactions.", imported)))
				return nil
			})
		},
	}
}
