package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Veraticus/rupeeflow/internal/analytics"
	"github.com/Veraticus/rupeeflow/internal/cli"
	"github.com/Veraticus/rupeeflow/internal/config"
	"github.com/Veraticus/rupeeflow/internal/export"
	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/Veraticus/rupeeflow/internal/sheets"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export transactions to CSV or Google Sheets",
	}
	cmd.AddCommand(exportCSVCmd())
	cmd.AddCommand(exportSheetsCmd())
	return cmd
}

func exportCSVCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "csv",
		Short: "Write transactions to a CSV file",
		Long: `Writes transactions to RupeeFlow_Export_<date>.csv in the current
directory, or to the file named by --output ("-" for stdout).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rawMonth, _ := cmd.Flags().GetString("month")
			output, _ := cmd.Flags().GetString("output")
			now := time.Now()
			var month time.Time
			if rawMonth != "" {
				var err error
				if month, err = parseMonth(rawMonth, now); err != nil {
					return err
				}
			}
			if output == "" {
				output = export.FileName(now)
			}

			return withUser(cmd.Context(), func(d *deps, user *model.User) error {
				txns, err := d.store.ListTransactions(cmd.Context(), user.ID)
				if err != nil {
					return err
				}
				if !month.IsZero() {
					txns = analytics.InMonth(txns, month)
				}

				if output == "-" {
					return export.WriteCSV(cmd.OutOrStdout(), txns)
				}
				if err := writeFile(output, func(w io.Writer) error { return export.WriteCSV(w, txns) }); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Exported %d transactions to %s.", len(txns), output)))
				return nil
			})
		},
	}
	cmd.Flags().String("month", "", "only export a month, YYYY-MM")
	cmd.Flags().StringP("output", "o", "", "output file, or - for stdout")
	return cmd
}

// writeFile creates path and runs fn on it, removing the file when fn fails.
func writeFile(path string, fn func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()
	return fn(f)
}

func exportSheetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sheets",
		Short: "Replace the RupeeFlow spreadsheet in Google Sheets",
		Long: `Writes every transaction and a 12-month summary to Google Sheets.
Configure sheets.service_account_path, or sheets.client_id,
sheets.client_secret and sheets.refresh_token.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadSheetsConfig()
			if err != nil {
				return err
			}
			return withUser(cmd.Context(), func(d *deps, user *model.User) error {
				ctx := cmd.Context()
				txns, err := d.store.ListTransactions(ctx, user.ID)
				if err != nil {
					return err
				}
				writer, err := sheets.NewWriter(ctx, *cfg, d.logger)
				if err != nil {
					return err
				}

				var bar *progressbar.ProgressBar
				writer.OnProgress(func(written, total int) {
					if bar == nil {
						bar = cli.NewProgress(os.Stderr, total, "Writing rows...")
					}
					if err := bar.Set(written); err != nil {
						d.logger.Warn("Failed to update progress bar", "error", err)
					}
				})

				id, err := writer.Export(ctx, txns, time.Now())
				if err != nil {
					return err
				}
				if bar != nil {
					_ = bar.Finish()
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(
					fmt.Sprintf("Exported %d transactions to https://docs.google.com/spreadsheets/d/%s", len(txns), id)))
				return nil
			})
		},
	}
}
