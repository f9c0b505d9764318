package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/OpenTraceLab/OpenTraceRoute/internal/journal"
	"github.com/OpenTraceLab/OpenTraceRoute/internal/term"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/kicad/pcb"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/kicad/schematic"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/kicad/sexp"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/route/engine"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/route/grid"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/route/patch"
)

var (
	routeWidth   float64
	routeLayer   string
	routeGridW   int
	routeGridH   int
	routeTick    time.Duration
	routeJournal string
)

var routeCmd = &cobra.Command{
	Use:   "route <board_file> <schematic_file>",
	Short: "Route nets interactively",
	Long: `Runs the interactive routing session: nets extracted from the
schematic are routed one at a time on a grid fitted to the board's
pads. Completed trails are written back into the board file as trace
segments; a .bak snapshot of the untouched board is kept.

Controls:
  Arrow keys / WASD - Steer the trace
  Q                 - Quit (already written traces are kept)`,
	Args: cobra.ExactArgs(2),
	RunE: runRoute,
}

func init() {
	rootCmd.AddCommand(routeCmd)

	routeCmd.Flags().Float64Var(&routeWidth, "width", 0.25, "trace width in mm")
	routeCmd.Flags().StringVar(&routeLayer, "layer", "F.Cu", "copper layer for new traces")
	routeCmd.Flags().IntVar(&routeGridW, "grid-w", 80, "routing grid width in cells")
	routeCmd.Flags().IntVar(&routeGridH, "grid-h", 40, "routing grid height in cells")
	routeCmd.Flags().DurationVar(&routeTick, "tick", 80*time.Millisecond, "tick interval")
	routeCmd.Flags().StringVar(&routeJournal, "journal", "", "record net outcomes to this SQLite file")
}

func runRoute(cmd *cobra.Command, args []string) error {
	boardFile, schFile := args[0], args[1]

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	board, err := pcb.ParseFile(boardFile)
	if err != nil {
		return fmt.Errorf("error parsing board: %w", err)
	}

	sch, err := schematic.ParseFile(schFile)
	if err != nil {
		return fmt.Errorf("error parsing schematic: %w", err)
	}

	nets := schematic.ExtractNets(sch)
	if len(nets) == 0 {
		fmt.Println("No nets with two or more pins found, nothing to route")
		return nil
	}

	padIndex := pcb.BuildPadIndex(board)
	positions := make([]sexp.Position, 0, len(padIndex.Pads()))
	for _, pad := range padIndex.Pads() {
		positions = append(positions, pad.Position)
	}

	bounds, err := grid.BoundsOf(positions)
	if err != nil {
		return fmt.Errorf("board has no pads to fit the grid to: %w", err)
	}

	cfg := engine.DefaultConfig()
	cfg.GridW = routeGridW
	cfg.GridH = routeGridH
	cfg.Tick = routeTick

	mapper := grid.Mapper{
		Bounds:          bounds,
		GridW:           cfg.GridW,
		GridH:           cfg.GridH,
		FramePadding:    cfg.FramePadding,
		InteriorPadding: cfg.InteriorPadding,
	}

	opts := []engine.Option{
		engine.WithSink(patch.NewPatcher(boardFile, mapper, routeWidth, routeLayer, log)),
		engine.WithLogger(log),
	}

	if routeJournal != "" {
		j, err := journal.Open(routeJournal)
		if err != nil {
			return fmt.Errorf("error opening journal: %w", err)
		}
		defer j.Close()
		opts = append(opts, engine.WithRecorder(j))
	}

	input, err := term.OpenInput()
	if err != nil {
		return fmt.Errorf("error opening terminal: %w", err)
	}
	defer input.Close()

	session := engine.NewSession(cfg, mapper, padIndex, nets, input, term.NewRenderer(os.Stdout), opts...)

	err = session.Run()
	input.Close() // restore the terminal before printing

	switch {
	case err == nil:
		fmt.Printf("\nAll %d nets routed. Backup kept at %s.bak\n", len(nets), boardFile)
		return nil
	case errors.Is(err, engine.ErrQuit):
		fmt.Println("\nSession aborted; traces written so far are kept")
		return nil
	case errors.Is(err, engine.ErrFatalCollision):
		log.Error("session halted", zap.Error(err))
		return err
	default:
		return err
	}
}
