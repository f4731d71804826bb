package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/stagstation/stagsync/internal/history"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent uploads and downloads",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}

	cmd.Flags().Int("limit", history.DefaultLimit, "number of entries to show")

	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	limit, _ := cmd.Flags().GetInt("limit")

	res := cc.Svc.History(cmd.Context(), limit)

	return cc.finish(res, func() error {
		entries, _ := res.Data.([]history.Entry)
		if len(entries) == 0 {
			cc.Statusf("No transfers recorded yet.\n")
			return nil
		}

		rows := make([][]string, 0, len(entries))
		for i := range entries {
			e := &entries[i]
			rows = append(rows, []string{
				formatTime(e.RecordedAt),
				string(e.Op),
				e.Game,
				strconv.Itoa(e.Slot),
				e.ArchiveName,
				e.LocalPath,
			})
		}

		printTable(cc.Out, cc.Styles, []string{"WHEN", "OP", "GAME", "SLOT", "ARCHIVE", "LOCAL"}, rows)

		return nil
	})
}
