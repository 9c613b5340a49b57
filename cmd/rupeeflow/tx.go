package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/rupeeflow/internal/analytics"
	"github.com/Veraticus/rupeeflow/internal/cli"
	"github.com/Veraticus/rupeeflow/internal/common"
	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func txCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transactions"},
		Short:   "Add, list, edit and delete transactions",
	}
	cmd.AddCommand(txAddCmd())
	cmd.AddCommand(txListCmd())
	cmd.AddCommand(txEditCmd())
	cmd.AddCommand(txDeleteCmd())
	return cmd
}

// addTransactionFlags registers the fields shared by add and edit.
func addTransactionFlags(fs *pflag.FlagSet) {
	fs.String("title", "", "what the money was for")
	fs.String("amount", "", "amount in rupees, e.g. 850 or 1299.50")
	fs.String("type", "", "expense or income")
	fs.String("category", "", "category name or key, e.g. food")
	fs.String("date", "", "date as YYYY-MM-DD (default today)")
	fs.String("notes", "", "free-form notes")
}

// transactionFields is the raw flag input for add and edit.
type transactionFields struct {
	title, amount, typ, category, date, notes string
}

func readTransactionFields(fs *pflag.FlagSet) transactionFields {
	get := func(name string) string {
		v, _ := fs.GetString(name)
		return v
	}
	return transactionFields{
		title:    get("title"),
		amount:   get("amount"),
		typ:      get("type"),
		category: get("category"),
		date:     get("date"),
		notes:    get("notes"),
	}
}

func parseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.NewReplacer(",", "", "₹", "").Replace(strings.TrimSpace(raw))
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, common.NewUserError("Amount must be a number like 850 or 1299.50.", fmt.Errorf("%w: amount %q", model.ErrInvalidTransaction, raw))
	}
	return amount, nil
}

// newTransactionFrom builds a create payload. The type defaults to expense
// and the category to Others.
func newTransactionFrom(f transactionFields, now time.Time) (model.NewTransaction, error) {
	in := model.NewTransaction{
		Title:    f.title,
		Notes:    f.notes,
		Type:     model.TypeExpense,
		Category: model.CategoryOthers,
	}
	var err error
	if in.Amount, err = parseAmount(f.amount); err != nil {
		return in, err
	}
	if f.typ != "" {
		if in.Type, err = model.ParseTransactionType(f.typ); err != nil {
			return in, err
		}
	}
	if f.category != "" {
		if in.Category, err = model.ParseCategory(f.category); err != nil {
			return in, err
		}
	}
	if in.Date, err = parseDate(f.date, now); err != nil {
		return in, err
	}
	return in, in.Validate()
}

// applyFields overwrites the fields that were given on the command line.
func applyFields(u *model.TransactionUpdate, f transactionFields, now time.Time) error {
	var err error
	if f.title != "" {
		u.Title = f.title
	}
	if f.notes != "" {
		u.Notes = f.notes
	}
	if f.amount != "" {
		if u.Amount, err = parseAmount(f.amount); err != nil {
			return err
		}
	}
	if f.typ != "" {
		if u.Type, err = model.ParseTransactionType(f.typ); err != nil {
			return err
		}
	}
	if f.category != "" {
		if u.Category, err = model.ParseCategory(f.category); err != nil {
			return err
		}
	}
	if f.date != "" {
		if u.Date, err = parseDate(f.date, now); err != nil {
			return err
		}
	}
	return u.Validate()
}

// findTransaction matches an exact id or an unambiguous id prefix, so the
// short ids printed by "tx list" can be pasted back.
func findTransaction(txns []model.Transaction, id string) (model.Transaction, error) {
	var found []model.Transaction
	for _, t := range txns {
		if t.ID == id {
			return t, nil
		}
		if strings.HasPrefix(t.ID, id) {
			found = append(found, t)
		}
	}
	switch len(found) {
	case 0:
		return model.Transaction{}, common.NewUserError(fmt.Sprintf("No transaction %s.", id), common.ErrNotFound)
	case 1:
		return found[0], nil
	}
	return model.Transaction{}, common.NewUserError(
		fmt.Sprintf("%s matches %d transactions; use more of the id.", id, len(found)),
		fmt.Errorf("%w: ambiguous id %q", common.ErrInvalidInput, id))
}

func txAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Example: `  rupeeflow tx add --title "Zomato Dinner" --amount 850 --category food
  rupeeflow tx add --title "Monthly Salary" --amount 85000 --type income --category salary`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := newTransactionFrom(readTransactionFields(cmd.Flags()), time.Now())
			if err != nil {
				return err
			}
			return withUser(cmd.Context(), func(d *deps, user *model.User) error {
				txn, err := d.store.CreateTransaction(cmd.Context(), user.ID, in)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Added %s %s (%s).", txn.Title, cli.FormatImpact(*txn), cli.ShortID(txn.ID))))
				return nil
			})
		},
	}
	addTransactionFlags(cmd.Flags())
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func txListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions with optional filters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := listFilter(cmd.Flags(), time.Now())
			if err != nil {
				return err
			}
			return withUser(cmd.Context(), func(d *deps, user *model.User) error {
				txns, err := d.store.ListTransactions(cmd.Context(), user.ID)
				if err != nil {
					return err
				}
				shown := f.Apply(txns)
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, cli.TransactionTable(shown))
				fmt.Fprintln(out, cli.StatsLine(analytics.Summarize(shown)))
				return nil
			})
		},
	}
	fs := cmd.Flags()
	fs.String("search", "", "case-insensitive title search")
	fs.String("type", model.FilterAll, "expense, income or all")
	fs.String("category", model.FilterAll, "category name or key, or all")
	fs.String("from", "", "first date, YYYY-MM-DD")
	fs.String("to", "", "last date, YYYY-MM-DD")
	fs.String("month", "", "limit to a month, YYYY-MM")
	return cmd
}

// listFilter maps the list flags onto an analytics.Filter. --month fills in
// whichever of --from and --to is missing.
func listFilter(fs *pflag.FlagSet, now time.Time) (analytics.Filter, error) {
	search, _ := fs.GetString("search")
	typ, _ := fs.GetString("type")
	category, _ := fs.GetString("category")
	from, _ := fs.GetString("from")
	to, _ := fs.GetString("to")
	month, _ := fs.GetString("month")

	f := analytics.Filter{Query: search, Type: model.FilterAll, Category: model.FilterAll}
	if typ != "" && typ != model.FilterAll {
		t, err := model.ParseTransactionType(typ)
		if err != nil {
			return f, err
		}
		f.Type = string(t)
	}
	if category != "" && category != model.FilterAll {
		c, err := model.ParseCategory(category)
		if err != nil {
			return f, err
		}
		f.Category = string(c)
	}
	if from != "" {
		d, err := parseDate(from, now)
		if err != nil {
			return f, err
		}
		f.Start = &d
	}
	if to != "" {
		d, err := parseDate(to, now)
		if err != nil {
			return f, err
		}
		f.End = &d
	}
	if month != "" {
		m, err := parseMonth(month, now)
		if err != nil {
			return f, err
		}
		w := analytics.MonthWindow(m)
		if f.Start == nil {
			f.Start = &w.Start
		}
		if f.End == nil {
			f.End = &w.End
		}
	}
	return f, nil
}

func txEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := readTransactionFields(cmd.Flags())
			return withUser(cmd.Context(), func(d *deps, user *model.User) error {
				ctx := cmd.Context()
				txns, err := d.store.ListTransactions(ctx, user.ID)
				if err != nil {
					return err
				}
				txn, err := findTransaction(txns, args[0])
				if err != nil {
					return err
				}
				update := model.UpdateFrom(txn)
				if err := applyFields(&update, fields, time.Now()); err != nil {
					return err
				}
				if err := d.store.UpdateTransaction(ctx, user.ID, update); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Updated %s.", update.Title)))
				return nil
			})
		},
	}
	addTransactionFlags(cmd.Flags())
	return cmd
}

func txDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete transactions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			return withUser(cmd.Context(), func(d *deps, user *model.User) error {
				ctx := cmd.Context()
				txns, err := d.store.ListTransactions(ctx, user.ID)
				if err != nil {
					return err
				}
				var targets []model.Transaction
				for _, id := range args {
					txn, err := findTransaction(txns, id)
					if err != nil {
						return err
					}
					targets = append(targets, txn)
				}

				out := cmd.OutOrStdout()
				if !yes {
					fmt.Fprintln(out, cli.TransactionTable(targets))
					ok, err := newPrompter(cmd).Confirm(ctx, fmt.Sprintf("Delete %d transaction(s)?", len(targets)))
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(out, cli.FormatInfo("Nothing deleted."))
						return nil
					}
				}
				for _, txn := range targets {
					if err := d.store.DeleteTransaction(ctx, user.ID, txn.ID); err != nil {
						return err
					}
				}
				fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Deleted %d transaction(s).", len(targets))))
				return nil
			})
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	return cmd
}
