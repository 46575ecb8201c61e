package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"retroboard/internal/config"
	"retroboard/internal/kanban"
	"retroboard/internal/logging"
	"retroboard/internal/server"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var snapshotJSON bool

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Inspect stored board snapshots",
}

var snapshotShowCmd = &cobra.Command{
	Use:   "show BOARD_ID",
	Short: "Print the stored columns and cards of a board",
	Long: `Print the stored columns and cards of a board from the configured
snapshot store (SNAPSHOT_STORE). With --json the raw snapshot document
is printed instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		boardID := args[0]
		snap, err := loadSnapshot(cmd.Context(), boardID)
		if errors.Is(err, kanban.ErrSnapshotNotFound) {
			warning(cmd.OutOrStdout(), "No snapshot stored for board %s", boardID)
			return nil
		}
		if err != nil {
			return fail("Failed to load snapshot", err)
		}

		if snapshotJSON {
			data, err := kanban.Encode(snap)
			if err != nil {
				return fail("Failed to encode snapshot", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}
		renderSnapshot(cmd.OutOrStdout(), boardID, snap)
		return nil
	},
}

func loadSnapshot(ctx context.Context, boardID string) (kanban.Snapshot, error) {
	cfg := config.Load()
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return kanban.Snapshot{}, err
	}
	defer logger.Sync()

	var db *gorm.DB
	if cfg.SnapshotStore == config.StorePostgres {
		if db, err = server.OpenDB(cfg); err != nil {
			return kanban.Snapshot{}, err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
	}

	store, closeStore, err := server.OpenSnapshotStore(ctx, cfg, db, logger)
	if err != nil {
		return kanban.Snapshot{}, err
	}
	if closeStore != nil {
		defer closeStore()
	}
	return store.Load(ctx, boardID)
}

func renderSnapshot(w io.Writer, boardID string, snap kanban.Snapshot) {
	fmt.Fprintf(w, "Board %s: %d column(s), %d card(s)\n", boardID, len(snap.Columns), snap.CardCount())
	for _, col := range snap.Columns {
		fmt.Fprintln(w)
		cyan.Fprintf(w, "%d. %s", col.Order, col.Name)
		faint.Fprintf(w, " [%s]\n", col.ID)
		if len(col.Cards) == 0 {
			faint.Fprintln(w, "   (empty)")
			continue
		}
		for _, card := range col.Cards {
			lines := strings.Split(card.Content, "\n")
			fmt.Fprintf(w, "   - %s", lines[0])
			faint.Fprintf(w, "  (%s, %s)\n", card.AuthorName, card.ID)
			for _, line := range lines[1:] {
				fmt.Fprintf(w, "     %s\n", line)
			}
			if card.IsMerged() {
				yellow.Fprintf(w, "     merged from %d card(s)\n", len(card.MergedFrom))
			}
		}
	}
}

func init() {
	snapshotShowCmd.Flags().BoolVar(&snapshotJSON, "json", false, "print the raw snapshot document")
	snapshotCmd.AddCommand(snapshotShowCmd)
	rootCmd.AddCommand(snapshotCmd)
}
