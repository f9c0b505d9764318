// Package patch writes committed routing trails back into a KiCad board
// file as (segment ...) records, with a snapshot backup and rollback
// when the patched file no longer parses.
package patch

import (
	"bytes"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/kicad/pcb"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/route/grid"
)

// Patcher appends trace segments to one board file. It implements the
// routing engine's TrailSink. The Mapper must be the same value the
// routing session maps pads with, otherwise the written geometry will
// not line up with the board.
type Patcher struct {
	Path   string // board file to patch
	Mapper grid.Mapper
	Width  float64 // trace width in mm
	Layer  string  // copper layer name, e.g. "F.Cu"

	log *zap.Logger
}

// NewPatcher returns a Patcher for the given board file
func NewPatcher(path string, mapper grid.Mapper, width float64, layer string, log *zap.Logger) *Patcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Patcher{Path: path, Mapper: mapper, Width: width, Layer: layer, log: log}
}

// CommitTrail converts each adjacent trail pair into a board segment
// and appends the records inside the file's top-level expression.
//
// The first commit snapshots the untouched file to <path>.bak; later
// commits leave that snapshot alone so it keeps the pre-session state.
// After writing, the file is re-parsed; if the patched text no longer
// parses as a board, the pre-commit bytes are restored and the error
// surfaced. Trails with fewer than two points produce no segments.
func (p *Patcher) CommitTrail(netName string, netNumber int, trail []grid.Point) (int, error) {
	if len(trail) < 2 {
		return 0, nil
	}

	orig, err := os.ReadFile(p.Path)
	if err != nil {
		return 0, fmt.Errorf("failed to read board file: %w", err)
	}

	backupPath := p.Path + ".bak"
	if _, err := os.Stat(backupPath); os.IsNotExist(err) {
		if err := os.WriteFile(backupPath, orig, 0o644); err != nil {
			return 0, fmt.Errorf("failed to write backup: %w", err)
		}
		p.log.Info("board backup created", zap.String("path", backupPath))
	} else if err != nil {
		return 0, fmt.Errorf("failed to stat backup: %w", err)
	}

	segments := p.render(netNumber, trail)

	patched, err := insertBeforeClose(orig, segments)
	if err != nil {
		return 0, err
	}

	if err := os.WriteFile(p.Path, patched, 0o644); err != nil {
		return 0, fmt.Errorf("failed to write board file: %w", err)
	}

	// The patched file must still parse as a board; anything else means
	// the insertion corrupted it and the pre-commit bytes come back.
	if _, err := pcb.ParseFile(p.Path); err != nil {
		if restoreErr := os.WriteFile(p.Path, orig, 0o644); restoreErr != nil {
			return 0, fmt.Errorf("patched board does not parse (%v) and restore failed: %w", err, restoreErr)
		}
		return 0, fmt.Errorf("patched board does not parse, original restored: %w", err)
	}

	count := len(trail) - 1
	p.log.Info("trace segments written",
		zap.String("net", netName),
		zap.Int("number", netNumber),
		zap.Int("segments", count))

	return count, nil
}

// render serializes one segment record per adjacent trail pair
func (p *Patcher) render(netNumber int, trail []grid.Point) []byte {
	var buf bytes.Buffer

	for i := 0; i < len(trail)-1; i++ {
		start := p.Mapper.FromGrid(trail[i])
		end := p.Mapper.FromGrid(trail[i+1])

		fmt.Fprintf(&buf,
			"\t(segment (start %.4f %.4f) (end %.4f %.4f) (width %.4f) (layer %q) (net %d) (uuid %q))\n",
			start.X, start.Y, end.X, end.Y, p.Width, p.Layer, netNumber, uuid.New().String())
	}

	return buf.Bytes()
}

// insertBeforeClose splices the records just before the final closing
// paren of the file, keeping them inside the (kicad_pcb ...) expression.
func insertBeforeClose(content, records []byte) ([]byte, error) {
	at := bytes.LastIndexByte(content, ')')
	if at < 0 {
		return nil, fmt.Errorf("board file has no closing paren")
	}

	out := make([]byte, 0, len(content)+len(records))
	out = append(out, content[:at]...)
	if len(out) > 0 && out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	out = append(out, records...)
	out = append(out, content[at:]...)

	return out, nil
}
