package term

import (
	"fmt"
	"io"
	"strings"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/route/engine"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/route/grid"
)

// Cell glyphs. Committed traces render with their net's own marker.
const (
	glyphBorder = '#'
	glyphEmpty  = ' '
	glyphPad    = '.'
	glyphTarget = 'A'
	glyphHead   = '@'
)

// Renderer draws the routing grid as ANSI text, one full redraw per
// frame. Raw mode needs explicit carriage returns, so every line ends
// in \r\n.
type Renderer struct {
	w io.Writer
}

// NewRenderer draws frames to w, normally stdout
func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{w: w}
}

// Frame renders one view of the session
func (r *Renderer) Frame(v *engine.View) {
	cells := make([][]rune, v.GridH)
	for y := range cells {
		cells[y] = make([]rune, v.GridW)
		for x := range cells[y] {
			cells[y][x] = glyphEmpty
		}
	}

	put := func(p grid.Point, g rune) {
		if p.X >= 0 && p.X < v.GridW && p.Y >= 0 && p.Y < v.GridH {
			cells[p.Y][p.X] = g
		}
	}

	for p := range v.Pads {
		put(p, glyphPad)
	}
	for p, marker := range v.Occupied {
		put(p, marker)
	}
	for _, p := range v.Trail {
		put(p, v.Marker)
	}
	if len(v.Trail) > 0 {
		put(v.Trail[len(v.Trail)-1], glyphHead)
	}
	if v.Target != nil {
		put(*v.Target, glyphTarget)
	}

	var b strings.Builder
	b.WriteString("\x1b[2J\x1b[H") // clear screen, home cursor

	b.WriteString(strings.Repeat(string(glyphBorder), v.GridW+2))
	b.WriteString("\r\n")
	for y := 0; y < v.GridH; y++ {
		b.WriteRune(glyphBorder)
		b.WriteString(string(cells[y]))
		b.WriteRune(glyphBorder)
		b.WriteString("\r\n")
	}
	b.WriteString(strings.Repeat(string(glyphBorder), v.GridW+2))
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "net %d/%d %s  pins %d/%d\r\n",
		v.NetIndex+1, v.NetCount, v.NetName, v.Visited, v.PinCount)
	b.WriteString(v.Status)
	b.WriteString("\r\n")

	io.WriteString(r.w, b.String())
}
