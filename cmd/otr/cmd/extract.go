package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/kicad/schematic"
)

var extractCmd = &cobra.Command{
	Use:   "extract <schematic_file>",
	Short: "Extract nets from a KiCad schematic",
	Long: `Parses a schematic (.kicad_sch) and prints the extracted nets:
connected groups of component pins, named by the first label on the
net or N$<n> when unlabeled.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	sch, err := schematic.ParseFile(args[0])
	if err != nil {
		return fmt.Errorf("error parsing schematic: %w", err)
	}

	fmt.Printf("Schematic: %d symbols, %d wire segments, %d labels\n\n",
		len(sch.Symbols), len(sch.Wires), len(sch.Labels))

	nets := schematic.ExtractNets(sch)
	if len(nets) == 0 {
		fmt.Println("No nets with two or more pins found")
		return nil
	}

	fmt.Printf("%-20s %5s  %s\n", "Net", "Pins", "Members")
	fmt.Println(strings.Repeat("─", 60))
	for _, net := range nets {
		fmt.Printf("%-20s %5d  %s\n", net.Name, len(net.Pins), strings.Join(net.Pins, " "))
	}

	return nil
}
