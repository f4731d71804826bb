package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	savesync "github.com/stagstation/stagsync/internal/sync"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list GAME",
		Aliases: []string{"ls"},
		Short:   "List a game's cloud saves, newest first",
		Args:    cobra.ExactArgs(1),
		RunE:    runList,
	}
}

func newUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload GAME SLOT",
		Short: "Upload one save slot to Google Drive as a new archive",
		Long: `Upload one save slot.

The local slot file is backed up, converted, packed into a new archive and
uploaded. Existing cloud archives are never modified. Afterwards the local
file's modification time is set to the archive's so the slot compares as
in sync.`,
		Args: cobra.ExactArgs(2),
		RunE: runUpload,
	}

	cmd.Flags().String("path", "", "local slot file (default: the slot inside the game's save_dir)")
	cmd.Flags().String("name", "", `archive display name (default "PC - <timestamp>")`)

	return cmd
}

func newDownloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download GAME SLOT",
		Short: "Restore one save slot from Google Drive",
		Long: `Restore one save slot.

Uses the newest archive containing the slot unless --archive names one.
Any existing local file is backed up first, and the restored file takes the
archive's modification time.`,
		Args: cobra.ExactArgs(2),
		RunE: runDownload,
	}

	cmd.Flags().String("path", "", "local slot file (default: the slot inside the game's save_dir)")
	cmd.Flags().String("archive", "", "archive ID to restore from (see 'stagsync list')")
	cmd.Flags().String("entry", "", "archive entry to extract (default user<SLOT>.dat)")

	return cmd
}

// parseSlot validates a SLOT argument.
func parseSlot(s string) (int, error) {
	slot, err := strconv.Atoi(s)
	if err != nil || slot < 1 {
		return 0, fmt.Errorf("invalid slot %q: must be a positive number", s)
	}

	return slot, nil
}

func runList(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	res := cc.Svc.ListSaves(cmd.Context(), args[0])

	return cc.finish(res, func() error {
		saves, _ := res.Data.([]savesync.CloudSave)
		if len(saves) == 0 {
			cc.Statusf("No cloud saves for %s.\n", args[0])
			return nil
		}

		rows := make([][]string, 0, len(saves))
		for i := range saves {
			s := &saves[i]
			rows = append(rows, []string{
				s.DisplayName,
				slotList(s.Slots),
				formatSize(s.Size),
				formatTime(s.ModifiedAt),
				s.ArchiveID,
			})
		}

		printTable(cc.Out, cc.Styles, []string{"NAME", "SLOTS", "SIZE", "MODIFIED", "ID"}, rows)

		return nil
	})
}

func slotList(slots []savesync.CloudSlot) string {
	if len(slots) == 0 {
		return "-"
	}

	parts := make([]string, 0, len(slots))
	for _, s := range slots {
		parts = append(parts, strconv.Itoa(s.Slot))
	}

	return strings.Join(parts, ",")
}

func runUpload(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	slot, err := parseSlot(args[1])
	if err != nil {
		return err
	}

	path, _ := cmd.Flags().GetString("path")
	name, _ := cmd.Flags().GetString("name")

	res := cc.Svc.UploadSlot(cmd.Context(), args[0], slot, path, name)

	return cc.finish(res, func() error {
		ur, ok := res.Data.(*savesync.UploadResult)
		if !ok {
			return nil
		}

		if ur.BackupPath != "" {
			cc.Statusf("Backed up to %s\n", ur.BackupPath)
		}

		cc.Statusf("Uploaded slot %d as %s (%s)\n", slot, ur.Archive.Name, formatSize(ur.Archive.Size))

		if !ur.TimeAligned {
			cc.Statusf("%s\n", cc.Styles.warn.Render("Could not align the local modification time; the slot may not compare as in sync."))
		}

		return nil
	})
}

func runDownload(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	slot, err := parseSlot(args[1])
	if err != nil {
		return err
	}

	path, _ := cmd.Flags().GetString("path")
	archiveID, _ := cmd.Flags().GetString("archive")
	entry, _ := cmd.Flags().GetString("entry")

	res := cc.Svc.DownloadSlot(cmd.Context(), args[0], slot, path, archiveID, entry)

	return cc.finish(res, func() error {
		dr, ok := res.Data.(*savesync.DownloadResult)
		if !ok {
			return nil
		}

		if dr.BackupPath != "" {
			cc.Statusf("Backed up to %s\n", dr.BackupPath)
		}

		cc.Statusf("Restored %s from %s to %s (%s)\n",
			dr.EntryName, dr.ArchiveName, dr.LocalPath, formatSize(int64(dr.Bytes)))

		return nil
	})
}
