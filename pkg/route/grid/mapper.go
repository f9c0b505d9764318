package grid

import (
	"fmt"
	"math"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/kicad/sexp"
)

// Bounds is the real-world bounding box the grid is fitted to.
// Degenerate spans are widened so the linear map never divides by zero.
type Bounds struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

// BoundsOf computes the bounds of a point set. Spans below 1e-6 are
// widened to exactly 1.0.
func BoundsOf(points []sexp.Position) (Bounds, error) {
	if len(points) == 0 {
		return Bounds{}, fmt.Errorf("no coordinates to compute bounds from")
	}

	b := Bounds{
		MinX: points[0].X, MaxX: points[0].X,
		MinY: points[0].Y, MaxY: points[0].Y,
	}
	for _, p := range points[1:] {
		b.MinX = math.Min(b.MinX, p.X)
		b.MaxX = math.Max(b.MaxX, p.X)
		b.MinY = math.Min(b.MinY, p.Y)
		b.MaxY = math.Max(b.MaxY, p.Y)
	}

	if b.MaxX-b.MinX < 1e-6 {
		b.MaxX = b.MinX + 1.0
	}
	if b.MaxY-b.MinY < 1e-6 {
		b.MaxY = b.MinY + 1.0
	}

	return b, nil
}

// Mapper is the bidirectional linear transform between real board
// coordinates and grid cells. The routing session and the persistence
// path must share one Mapper value: diverging grid dimensions or
// padding makes the on-screen pad cells disagree with the geometry
// written back to the board.
type Mapper struct {
	Bounds Bounds
	GridW  int // Total grid width in cells
	GridH  int // Total grid height in cells

	// FramePadding cells are reserved as border on each side;
	// InteriorPadding/2 more as inset around the mapped area.
	FramePadding    int
	InteriorPadding int
}

// usable returns the number of cells available to the linear map per axis
func (m Mapper) usable() (w, h int) {
	w = m.GridW - 2*m.FramePadding - m.InteriorPadding
	if w < 1 {
		w = 1
	}
	h = m.GridH - 2*m.FramePadding - m.InteriorPadding
	if h < 1 {
		h = 1
	}
	return w, h
}

func (m Mapper) offset() int {
	return m.FramePadding + m.InteriorPadding/2
}

// ToGrid linearly maps a real coordinate into a grid cell, rounding to
// the nearest cell.
func (m Mapper) ToGrid(p sexp.Position) Point {
	uw, uh := m.usable()
	off := m.offset()

	fx := (p.X - m.Bounds.MinX) / (m.Bounds.MaxX - m.Bounds.MinX)
	fy := (p.Y - m.Bounds.MinY) / (m.Bounds.MaxY - m.Bounds.MinY)

	return Point{
		X: off + int(math.Round(fx*float64(uw-1))),
		Y: off + int(math.Round(fy*float64(uh-1))),
	}
}

// FromGrid is the algebraic inverse of ToGrid, used when converting a
// committed grid trail back to board coordinates. The round trip
// FromGrid(ToGrid(p)) approximates p only to within one cell's
// real-world size; the quantization loss is inherent to the grid.
func (m Mapper) FromGrid(g Point) sexp.Position {
	uw, uh := m.usable()
	off := m.offset()

	fx := float64(g.X-off) / float64(max(1, uw-1))
	fy := float64(g.Y-off) / float64(max(1, uh-1))
	fx = math.Max(0, math.Min(1, fx))
	fy = math.Max(0, math.Min(1, fy))

	return sexp.Position{
		X: round4(m.Bounds.MinX + fx*(m.Bounds.MaxX-m.Bounds.MinX)),
		Y: round4(m.Bounds.MinY + fy*(m.Bounds.MaxY-m.Bounds.MinY)),
	}
}

// CellSize returns the real-world size of one grid cell per axis
func (m Mapper) CellSize() (w, h float64) {
	uw, uh := m.usable()
	return (m.Bounds.MaxX - m.Bounds.MinX) / float64(max(1, uw-1)),
		(m.Bounds.MaxY - m.Bounds.MinY) / float64(max(1, uh-1))
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
