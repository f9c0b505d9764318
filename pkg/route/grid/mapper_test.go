package grid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/kicad/sexp"
)

func testMapper() Mapper {
	return Mapper{
		Bounds:          Bounds{MinX: 0, MaxX: 10, MinY: 0, MaxY: 10},
		GridW:           16,
		GridH:           16,
		FramePadding:    2,
		InteriorPadding: 4,
	}
}

func TestBoundsOf(t *testing.T) {
	b, err := BoundsOf([]sexp.Position{
		{X: 3, Y: -2},
		{X: -1, Y: 7},
		{X: 5, Y: 0},
	})
	require.NoError(t, err)

	assert.Equal(t, Bounds{MinX: -1, MaxX: 5, MinY: -2, MaxY: 7}, b)
}

func TestBoundsOfEmpty(t *testing.T) {
	_, err := BoundsOf(nil)
	assert.Error(t, err)
}

func TestBoundsOfDegenerateSpanWidened(t *testing.T) {
	b, err := BoundsOf([]sexp.Position{
		{X: 4, Y: 1},
		{X: 4, Y: 9},
	})
	require.NoError(t, err)

	// X span is zero and must widen to exactly 1.0
	assert.Equal(t, 4.0, b.MinX)
	assert.Equal(t, 5.0, b.MaxX)
	assert.Equal(t, 1.0, b.MinY)
	assert.Equal(t, 9.0, b.MaxY)
}

func TestToGridMidpoint(t *testing.T) {
	m := testMapper()

	// usable width is 16 - 2*2 - 4 = 8 cells starting at offset 4;
	// the box midpoint lands on the middle usable column
	g := m.ToGrid(sexp.Position{X: 5, Y: 5})
	assert.Equal(t, Point{X: 8, Y: 8}, g)
}

func TestToGridCorners(t *testing.T) {
	m := testMapper()

	assert.Equal(t, Point{X: 4, Y: 4}, m.ToGrid(sexp.Position{X: 0, Y: 0}))
	assert.Equal(t, Point{X: 11, Y: 11}, m.ToGrid(sexp.Position{X: 10, Y: 10}))
}

func TestFromGridRoundTripWithinOneCell(t *testing.T) {
	m := testMapper()
	cellW, cellH := m.CellSize()

	for _, p := range []sexp.Position{
		{X: 5, Y: 5},
		{X: 0, Y: 10},
		{X: 7.3, Y: 2.9},
		{X: 10, Y: 0},
	} {
		back := m.FromGrid(m.ToGrid(p))
		assert.LessOrEqual(t, math.Abs(back.X-p.X), cellW,
			"X round trip for %+v drifted more than one cell", p)
		assert.LessOrEqual(t, math.Abs(back.Y-p.Y), cellH,
			"Y round trip for %+v drifted more than one cell", p)
	}
}

func TestFromGridClampsOutsideMappedArea(t *testing.T) {
	m := testMapper()

	// A cell inside the frame border maps back to the bounds edge
	p := m.FromGrid(Point{X: 0, Y: 0})
	assert.Equal(t, 0.0, p.X)
	assert.Equal(t, 0.0, p.Y)

	p = m.FromGrid(Point{X: 15, Y: 15})
	assert.Equal(t, 10.0, p.X)
	assert.Equal(t, 10.0, p.Y)
}

func TestStepToroidalWrap(t *testing.T) {
	p := Point{X: 0, Y: 0}

	assert.Equal(t, Point{X: 9, Y: 0}, p.Step(DirLeft, 10, 6))
	assert.Equal(t, Point{X: 0, Y: 5}, p.Step(DirUp, 10, 6))
	assert.Equal(t, Point{X: 1, Y: 0}, p.Step(DirRight, 10, 6))

	edge := Point{X: 9, Y: 5}
	assert.Equal(t, Point{X: 0, Y: 5}, edge.Step(DirRight, 10, 6))
	assert.Equal(t, Point{X: 9, Y: 0}, edge.Step(DirDown, 10, 6))
}

func TestDirectionOpposite(t *testing.T) {
	assert.Equal(t, DirDown, DirUp.Opposite())
	assert.Equal(t, DirUp, DirDown.Opposite())
	assert.Equal(t, DirRight, DirLeft.Opposite())
	assert.Equal(t, DirLeft, DirRight.Opposite())
	assert.Equal(t, DirNone, DirNone.Opposite())
}
