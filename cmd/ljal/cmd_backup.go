package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/IrisYanfGuo/exam/internal/backup"
	"github.com/IrisYanfGuo/exam/internal/store"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up the run store to a compressed file",
		Long: `Back up every saved run, curves included, to a checksummed gzip file.

Default location: <store.dir>/backups/ljal-backup-YYYYMMDD-HHMMSS.ffffff.json.gz
Older backups in the same directory are pruned by backup.retention
(default: keep the last 10).

Examples:
  ljal backup                                # Backup to the default location
  ljal backup --output runs.json.gz          # Backup to a specific file
  ljal backup list                           # List backups
  ljal backup verify <file>                  # Verify backup integrity
  ljal backup restore <file> --mode replace  # Restore runs`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			outputPath, _ := cmd.Flags().GetString("output")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if outputPath == "" {
				outputPath = backup.GeneratePath(backup.DefaultDir(cfg.Store.Dir), time.Now())
			}

			var header *backup.Header
			err = withRunStore(cmd, func(rs store.RunStore) error {
				var backupErr error
				header, backupErr = backup.Backup(cmd.Context(), rs, outputPath)
				return backupErr
			})
			if err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}

			deleted, err := backup.ApplyRetention(filepath.Dir(outputPath), cfg.RetentionPolicy())
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to apply retention: %v\n", err)
			}

			if jsonOut {
				return writeJSON(cmd, map[string]interface{}{
					"path":     outputPath,
					"runs":     header.RunCount,
					"steps":    header.Steps,
					"checksum": header.Checksum,
					"pruned":   len(deleted),
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Backup created: %d runs, %d curve steps\n", header.RunCount, header.Steps)
			fmt.Fprintf(cmd.OutOrStdout(), "  Path: %s\n", outputPath)
			if len(deleted) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "  Pruned %d old backups\n", len(deleted))
			}
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "Output file path (default: auto-generated in <store.dir>/backups/)")

	cmd.AddCommand(
		newBackupListCmd(),
		newBackupVerifyCmd(),
		newBackupRestoreCmd(),
	)

	return cmd
}

func newBackupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backups in the default backup directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			dir := backup.DefaultDir(cfg.Store.Dir)

			backups, err := backup.List(dir)
			if err != nil {
				return fmt.Errorf("failed to list backups: %w", err)
			}

			if jsonOut {
				if backups == nil {
					backups = []backup.BackupInfo{}
				}
				return writeJSON(cmd, map[string]interface{}{
					"backups":     backups,
					"total_count": len(backups),
					"directory":   dir,
				})
			}

			if len(backups) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No backups found in %s\n", dir)
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Backups in %s:\n", dir)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "  FILE\tCREATED\tRUNS\tSIZE")
			for _, b := range backups {
				fmt.Fprintf(w, "  %s\t%s\t%d\t%s\n",
					filepath.Base(b.Path), b.CreatedAt.Local().Format(time.DateTime), b.RunCount, humanize.IBytes(uint64(b.Size)))
			}
			return w.Flush()
		},
	}
}

func newBackupVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>",
		Short: "Verify a backup's checksum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			if err := backup.Verify(args[0]); err != nil {
				return fmt.Errorf("verification failed: %w", err)
			}
			header, err := backup.ReadHeader(args[0])
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, map[string]interface{}{
					"path":     args[0],
					"valid":    true,
					"runs":     header.RunCount,
					"checksum": header.Checksum,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: OK (%d runs, %s)\n", args[0], header.RunCount, header.Checksum)
			return nil
		},
	}
}

func newBackupRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Restore runs from a backup file",
		Long: `Restore saved runs from a backup file.

Modes:
  merge   - Skip runs whose ID already exists (default)
  replace - Delete every run first, then restore`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			mode, _ := cmd.Flags().GetString("mode")

			var result *backup.RestoreResult
			err := withRunStore(cmd, func(rs store.RunStore) error {
				var err error
				result, err = backup.Restore(cmd.Context(), rs, args[0], backup.RestoreMode(mode))
				return err
			})
			if err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}

			if jsonOut {
				return writeJSON(cmd, result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d runs (%d skipped, %d removed)\n",
				result.Restored, result.Skipped, result.Removed)
			return nil
		},
	}

	cmd.Flags().String("mode", string(backup.RestoreMerge), "Restore mode: merge or replace")

	return cmd
}
