// Package grid maps real-world board coordinates onto a discrete
// toroidal routing grid and back.
package grid

// Point is a cell on the routing grid
type Point struct {
	X, Y int
}

// Direction is one of the four cardinal movement directions
type Direction int

const (
	DirNone Direction = iota
	DirUp
	DirDown
	DirLeft
	DirRight
)

// Delta returns the unit step for a direction
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case DirUp:
		return 0, -1
	case DirDown:
		return 0, 1
	case DirLeft:
		return -1, 0
	case DirRight:
		return 1, 0
	}
	return 0, 0
}

// Opposite returns the reversing direction
func (d Direction) Opposite() Direction {
	switch d {
	case DirUp:
		return DirDown
	case DirDown:
		return DirUp
	case DirLeft:
		return DirRight
	case DirRight:
		return DirLeft
	}
	return DirNone
}

func (d Direction) String() string {
	switch d {
	case DirUp:
		return "up"
	case DirDown:
		return "down"
	case DirLeft:
		return "left"
	case DirRight:
		return "right"
	}
	return "none"
}

// Step moves one cell in the given direction with toroidal wraparound
// over a w x h grid.
func (p Point) Step(d Direction, w, h int) Point {
	dx, dy := d.Delta()
	return Point{
		X: ((p.X+dx)%w + w) % w,
		Y: ((p.Y+dy)%h + h) % h,
	}
}
