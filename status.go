package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/stagstation/stagsync/internal/archive"
	savesync "github.com/stagstation/stagsync/internal/sync"
)

// noCloudMatch is shown in place of an archive name for local-only slots.
const noCloudMatch = "-"

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status GAME",
		Short: "Compare local save slots with the cloud",
		Long: `Compare local save slots with the newest cloud copy of each.

Without --slot, slots 1-4 in the save directory are compared against a
single cloud listing. Each row says which side is newer and what to run.`,
		Args: cobra.ExactArgs(1),
		RunE: runStatus,
	}

	cmd.Flags().String("save-dir", "", "local save directory (default: the game's save_dir)")
	cmd.Flags().Int("slot", 0, "compare only this slot")
	cmd.Flags().String("path", "", "local slot file for --slot (default: the slot inside save_dir)")

	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	game := args[0]

	saveDir, _ := cmd.Flags().GetString("save-dir")
	slot, _ := cmd.Flags().GetInt("slot")
	path, _ := cmd.Flags().GetString("path")

	if cmd.Flags().Changed("slot") {
		if slot < 1 {
			return fmt.Errorf("invalid slot %d: must be a positive number", slot)
		}

		if path == "" && saveDir != "" {
			path = filepath.Join(saveDir, archive.SlotEntryName(slot))
		}

		res := cc.Svc.CompareSlot(cmd.Context(), game, slot, path)

		return cc.finish(res, func() error {
			c, _ := res.Data.(savesync.Comparison)
			printComparisons(cc, []savesync.Comparison{c})

			return nil
		})
	}

	if path != "" {
		return fmt.Errorf("--path requires --slot")
	}

	res := cc.Svc.CompareAll(cmd.Context(), game, saveDir)

	return cc.finish(res, func() error {
		comps, _ := res.Data.([]savesync.Comparison)
		if len(comps) == 0 {
			cc.Statusf("No saves for %s locally or in the cloud.\n", game)
			return nil
		}

		printComparisons(cc, comps)

		return nil
	})
}

func printComparisons(cc *CLIContext, comps []savesync.Comparison) {
	rows := make([][]string, 0, len(comps))

	for i := range comps {
		c := &comps[i]

		archiveName := noCloudMatch
		if c.Match != nil {
			archiveName = c.Match.ArchiveName
		}

		rows = append(rows, []string{
			strconv.Itoa(c.Slot),
			cc.Styles.status(c.Status),
			string(c.Action),
			formatTime(c.LocalTime),
			formatTime(c.CloudTime),
			archiveName,
		})
	}

	printTable(cc.Out, cc.Styles, []string{"SLOT", "STATUS", "ACTION", "LOCAL", "CLOUD", "ARCHIVE"}, rows)
}
