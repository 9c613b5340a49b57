package main

import (
	"fmt"
	"strconv"

	"github.com/Veraticus/rupeeflow/internal/cli"
	"github.com/Veraticus/rupeeflow/internal/common"
	"github.com/Veraticus/rupeeflow/internal/config"
	"github.com/Veraticus/rupeeflow/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func snapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Back up and restore the local database",
		Long: `Snapshots are consistent copies of the SQLite database kept in a
"snapshots" directory next to it.`,
	}
	cmd.AddCommand(snapshotCreateCmd())
	cmd.AddCommand(snapshotListCmd())
	cmd.AddCommand(snapshotRestoreCmd())
	cmd.AddCommand(snapshotDeleteCmd())
	return cmd
}

func databasePath() (string, error) {
	dbCfg, err := config.LoadDatabaseConfig(viper.GetViper())
	if err != nil {
		return "", err
	}
	if dbCfg.Backend != config.BackendSQLite {
		return "", fmt.Errorf("%w: snapshots need database.backend=sqlite", common.ErrInvalidConfig)
	}
	return dbCfg.Path, nil
}

func snapshotCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Take a snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, _ := cmd.Flags().GetString("id")
			description, _ := cmd.Flags().GetString("description")
			path, err := databasePath()
			if err != nil {
				return err
			}
			store, err := initStorage(cmd.Context(), path)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			info, err := store.CreateSnapshot(cmd.Context(), id, description)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Snapshot %s saved (%d transactions).", info.ID, info.Transactions)))
			return nil
		},
	}
	cmd.Flags().String("id", "", "snapshot id (default: timestamped)")
	cmd.Flags().StringP("description", "m", "", "what this snapshot is for")
	return cmd
}

func snapshotListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := databasePath()
			if err != nil {
				return err
			}
			snapshots, err := storage.ListSnapshots(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(snapshots) == 0 {
				fmt.Fprintln(out, cli.FormatInfo("No snapshots yet."))
				return nil
			}
			rows := make([][]string, 0, len(snapshots))
			for _, s := range snapshots {
				rows = append(rows, []string{
					s.ID,
					s.CreatedAt.Local().Format("02 Jan 2006 15:04"),
					strconv.Itoa(s.Transactions),
					strconv.Itoa(s.Users),
					s.Description,
				})
			}
			fmt.Fprintln(out, cli.Table([]string{"ID", "Created", "Transactions", "Users", "Description"}, rows))
			return nil
		},
	}
}

func snapshotRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <id>",
		Short: "Replace the database with a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			path, err := databasePath()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !yes {
				ok, err := newPrompter(cmd).Confirm(cmd.Context(), "Restoring overwrites the current database. Continue?")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, cli.FormatInfo("Restore canceled."))
					return nil
				}
			}
			if err := storage.RestoreSnapshot(path, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Restored snapshot %s.", args[0])))
			return nil
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func snapshotDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := databasePath()
			if err != nil {
				return err
			}
			if err := storage.DeleteSnapshot(path, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted snapshot %s.", args[0])))
			return nil
		},
	}
}
