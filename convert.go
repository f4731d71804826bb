package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stagstation/stagsync/internal/service"
)

func newConvertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert DIRECTION INPUT OUTPUT",
		Short: "Convert a save file between host and portable encodings",
		Long: `Convert a single save file.

DIRECTION is "to-portable" (host save to plain JSON) or "to-host" (plain
JSON back to the encrypted host format). The aliases pc-to-switch and
switch-to-pc are accepted too.`,
		Example: `  stagsync convert to-portable user1.dat user1.json
  stagsync convert to-host user1.json user1.dat`,
		Args: cobra.ExactArgs(3),
		RunE: runConvert,
	}
}

func runConvert(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	res := cc.Svc.Convert(cmd.Context(), args[0], args[1], args[2])

	return cc.finish(res, func() error {
		cr, ok := res.Data.(*service.ConvertResult)
		if !ok {
			return nil
		}

		cc.Statusf("Converted %s (%s) -> %s (%s), %s\n",
			cr.InputPath, formatSize(int64(cr.InputBytes)),
			cr.OutputPath, formatSize(int64(cr.OutputBytes)), cr.Direction)

		if cc.Flags.Quiet {
			fmt.Fprintln(cc.Out, cr.OutputPath)
		}

		return nil
	})
}
