package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Veraticus/rupeeflow/internal/cli"
	"github.com/Veraticus/rupeeflow/internal/common"
	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/Veraticus/rupeeflow/internal/ofx"
	"github.com/spf13/cobra"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import transactions from bank statements",
	}
	cmd.AddCommand(importOFXCmd())
	return cmd
}

func importOFXCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ofx [files...]",
		Short: "Import transactions from OFX/QFX files",
		Long: `Import transactions from OFX or QFX files downloaded from your bank.
Rows already in your ledger are skipped, so re-importing a statement is safe.`,
		Example: `  rupeeflow import ofx ~/Downloads/hdfc_may.ofx
  rupeeflow import ofx ~/Downloads/*.qfx --dry-run`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportOFX,
	}
	cmd.Flags().BoolP("dry-run", "d", false, "preview the import without saving")
	return cmd
}

// expandFiles resolves glob patterns, keeping plain paths that exist.
func expandFiles(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) > 0 {
			files = append(files, matches...)
			continue
		}
		if _, err := os.Stat(pattern); err == nil {
			files = append(files, pattern)
		} else {
			slog.Warn("No files found matching pattern", "pattern", pattern)
		}
	}
	if len(files) == 0 {
		return nil, common.NewUserError("No files found to import.", fmt.Errorf("%w: no input files", common.ErrInvalidInput))
	}
	return files, nil
}

// parseFiles reads every file, dropping rows repeated across statements.
// Unreadable files are logged and skipped.
func parseFiles(ctx context.Context, parser *ofx.Parser, files []string, step func()) []model.NewTransaction {
	seen := make(map[string]bool)
	var out []model.NewTransaction
	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		txns, err := parseFile(ctx, parser, path)
		step()
		if err != nil {
			slog.Error("Failed to parse OFX file", "file", path, "error", err)
			continue
		}
		added := 0
		for _, t := range txns {
			fp := t.Fingerprint()
			if seen[fp] {
				continue
			}
			seen[fp] = true
			out = append(out, t)
			added++
		}
		slog.Debug("Processed file", "file", filepath.Base(path), "found", len(txns), "added", added)
	}
	return out
}

func parseFile(ctx context.Context, parser *ofx.Parser, path string) ([]model.NewTransaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return parser.Parse(ctx, f)
}

func runImportOFX(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	files, err := expandFiles(args)
	if err != nil {
		return err
	}

	return withUser(cmd.Context(), func(d *deps, user *model.User) error {
		out := cmd.OutOrStdout()
		ctx := cli.NewInterruptHandler(out).HandleInterrupts(cmd.Context(), "Nothing was saved.")

		bar := cli.NewProgress(os.Stderr, len(files), "Reading statements...")
		parsed := parseFiles(ctx, ofx.NewParser(d.logger), files, func() { cli.Step(bar, 1) })
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(parsed) == 0 {
			fmt.Fprintln(out, cli.FormatWarning("No transactions found in any file."))
			return nil
		}

		if dryRun {
			now := time.Now()
			preview := make([]model.Transaction, len(parsed))
			for i, t := range parsed {
				preview[i] = t.Build("", user.ID, now)
			}
			model.SortTransactions(preview)
			fmt.Fprintln(out, cli.TransactionTable(preview))
			fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Dry run: %d transactions parsed from %d files, nothing saved.", len(parsed), len(files))))
			return nil
		}

		imported, err := d.store.ImportTransactions(ctx, user.ID, parsed)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Imported %d of %d transactions (%d already recorded).",
			imported, len(parsed), len(parsed)-imported)))
		return nil
	})
}
