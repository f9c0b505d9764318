package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/kicad/pcb"
)

var infoCmd = &cobra.Command{
	Use:   "info <board_file>",
	Short: "Show board summary",
	Long:  `Parses a board (.kicad_pcb) and prints its nets, footprints and pads.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	board, err := pcb.ParseFile(args[0])
	if err != nil {
		return fmt.Errorf("error parsing board: %w", err)
	}

	fmt.Printf("Board: %s\n", args[0])
	fmt.Printf("  Version:    %d\n", board.Version)
	fmt.Printf("  Generator:  %s\n", board.Generator)
	fmt.Printf("  Nets:       %d\n", len(board.Nets))
	fmt.Printf("  Footprints: %d\n", len(board.Footprints))
	fmt.Printf("  Segments:   %d\n", board.SegmentCount)

	bbox := board.PadBoundingBox()
	if !bbox.IsEmpty() {
		fmt.Printf("  Pad area:   %.2f x %.2f mm\n", bbox.Width(), bbox.Height())
	}

	fmt.Println()
	for _, fp := range board.Footprints {
		fmt.Printf("  %-8s at (%.2f, %.2f)  %d pads\n",
			fp.Reference, fp.Position.X, fp.Position.Y, len(fp.Pads))
		if verbose {
			for _, pad := range fp.Pads {
				netName := "-"
				if pad.Net != nil {
					netName = pad.Net.Name
				}
				fmt.Printf("    pad %-4s at (%.4f, %.4f)  net %s\n",
					pad.Number, pad.Position.X, pad.Position.Y, netName)
			}
		}
	}

	return nil
}
