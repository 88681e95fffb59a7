package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/corvid-labs/deskwatch/internal/capture"
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Print capture backend diagnostics for this machine",
	Run: func(cmd *cobra.Command, args []string) {
		if !capture.IsSupported() {
			fmt.Fprintln(os.Stderr, "no capture backend is available on this platform")
			os.Exit(1)
		}

		facade, err := capture.New()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to construct capture facade: %v\n", err)
			os.Exit(1)
		}

		d := facade.Diagnose()

		fmt.Printf("platform:           %s\n", d.Platform)
		if d.CurrentTier != "" {
			fmt.Printf("current tier:       %s\n", d.CurrentTier)
			fmt.Printf("tier-1 available:   %t\n", d.Tier1Available)
		}
		fmt.Printf("window capture:     %t\n", facade.SupportsWindowCapture())
		fmt.Printf("region capture:     %t\n", facade.SupportsRegionCapture())
		if len(d.OccupyingProcesses) > 0 {
			fmt.Println("occupying processes:")
			for _, p := range d.OccupyingProcesses {
				fmt.Printf("  - %s\n", p)
			}
		}
		if last := facade.LastError(); last != "" {
			fmt.Printf("last error:         %s\n", last)
		}
	},
}
