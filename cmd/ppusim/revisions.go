package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ppusim/internal/ppu"
)

var revisionsCmd = &cobra.Command{
	Use:   "revisions",
	Short: "List the supported chip revisions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printRevisions(cmd.OutOrStdout())
	},
}

func printRevisions(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "REVISION\tREGION\tCLK/PCLK\tLINES\tVBLANK\tODD SKIP\tRGB\tSWAP\tSTATUS ID\tWARM-UP")
	for _, r := range ppu.Revisions() {
		p := r.Profile()
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\t%s\t%s\t%s\t%s\n",
			r, p.Region, p.ClkPerPclk, p.Scanlines, p.VBlankLine,
			yesNo(p.OddFrameSkip), yesNo(p.RGBOutput), yesNo(p.SwapCtrlMask),
			statusID(p.StatusID), yesNo(p.RegWarmup))
	}
	return tw.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}

func statusID(id uint8) string {
	if id == 0 {
		return "-"
	}
	return fmt.Sprintf("$%02X", id)
}
