package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	savesync "github.com/stagstation/stagsync/internal/sync"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch GAME",
		Short: "Report slot status whenever a local save changes",
		Long: `Watch the save directory and print a fresh comparison for each slot
file the game writes. Nothing is transferred automatically.

Press Ctrl-C to stop. With --json each comparison is one JSON line.`,
		Args: cobra.ExactArgs(1),
		RunE: runWatch,
	}

	cmd.Flags().String("save-dir", "", "local save directory (default: the game's save_dir)")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	saveDir, _ := cmd.Flags().GetString("save-dir")

	ctx, stop := shutdownContext(cmd.Context(), cc.Logger)
	defer stop()

	enc := json.NewEncoder(cc.Out)

	cc.Statusf("Watching %s saves. Press Ctrl-C to stop.\n", args[0])

	res := cc.Svc.Watch(ctx, args[0], saveDir, func(c savesync.Comparison) {
		if cc.Flags.JSON {
			if err := enc.Encode(c); err != nil {
				cc.Logger.Warn("could not write comparison", slog.String("error", err.Error()))
			}

			return
		}

		fmt.Fprintf(cc.Out, "slot %d: %s (%s)\n", c.Slot, cc.Styles.status(c.Status), c.Action)
	})

	if !res.Success {
		if cc.Flags.JSON {
			return cc.finish(res, nil)
		}

		return resultError(res)
	}

	cc.Statusf("Stopped.\n")

	return nil
}
