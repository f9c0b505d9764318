package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "otr",
	Short: "OpenTraceRoute - interactive KiCad trace routing",
	Long: `OpenTraceRoute (otr) extracts nets from a KiCad schematic, maps the
board's pads onto a routing grid and runs an interactive per-net
routing session, writing committed traces back into the board file.

Examples:
  otr extract project.kicad_sch                 # Show extracted nets
  otr info board.kicad_pcb                      # Show board summary
  otr route board.kicad_pcb project.kicad_sch   # Route interactively`,
	Version: "0.3.0",
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// newLogger returns a development logger when --verbose is set and a
// no-op logger otherwise, so interactive rendering stays clean.
func newLogger() (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	return zap.NewDevelopment()
}
