package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/corvid-labs/deskwatch/internal/capture"
)

var displaysCmd = &cobra.Command{
	Use:   "displays",
	Short: "List the displays available for capture",
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

		displays, err := facade.GetDisplays()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to enumerate displays: %v\n", err)
			os.Exit(1)
		}

		if len(displays) == 0 {
			fmt.Println("no displays found")
			return
		}

		for _, d := range displays {
			primary := ""
			if d.Primary {
				primary = " (primary)"
			}
			fmt.Printf("[%d] %s%s  %dx%d at (%d,%d)  %.2fHz\n",
				d.ID, d.Name, primary, d.Bounds.W, d.Bounds.H, d.Bounds.X, d.Bounds.Y, d.RefreshHz)
		}
	},
}
