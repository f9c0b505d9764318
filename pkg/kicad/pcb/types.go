// Package pcb provides parsing and indexing for KiCad board files
// (.kicad_pcb), reduced to what trace routing needs: the net table,
// footprint placements and pad positions.
package pcb

import (
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/kicad/sexp"
)

// Shared geometry types (aliases to sexp package)
type Position = sexp.Position
type Angle = sexp.Angle
type PositionAngle = sexp.PositionAngle
type BoundingBox = sexp.BoundingBox

// Net represents an electrical net from the board's net table
type Net struct {
	Number int    // Net number (ordinal, 0 = unconnected)
	Name   string // Net name
}

// Pad represents a footprint pad.
// Position is absolute board position in mm: footprint origin plus the
// pad's local offset, translation only. Pad-level rotation is
// deliberately not applied; see DESIGN.md.
type Pad struct {
	Number   string   // Pad number/name, unique within a footprint
	Position Position // Absolute position in mm
	Size     sexp.Position
	Shape    string // Pad shape (circle, rect, oval, ...)
	Net      *Net   // Connected net (nil if none)
}

// Footprint represents a component placement
type Footprint struct {
	Reference string        // Reference designator (e.g. "R1")
	LibPath   string        // Library path from the (path ...) child
	Position  PositionAngle // Origin position and rotation
	Pads      []Pad         // Pads in file order
}

// Board represents a KiCad PCB, reduced to routing-relevant content
type Board struct {
	Version      int         // File format version
	Generator    string      // Generator info (e.g. "pcbnew")
	Nets         []Net       // Electrical net table
	Footprints   []Footprint // Component footprints
	SegmentCount int         // Number of (segment ...) records in the file
}

// NetMap provides lookup of nets by number or name
type NetMap struct {
	byNumber map[int]*Net
	byName   map[string]*Net
}

// NewNetMap creates a NetMap from a slice of nets
func NewNetMap(nets []Net) *NetMap {
	nm := &NetMap{
		byNumber: make(map[int]*Net),
		byName:   make(map[string]*Net),
	}

	for i := range nets {
		net := &nets[i]
		nm.byNumber[net.Number] = net
		if net.Name != "" {
			nm.byName[net.Name] = net
		}
	}

	return nm
}

// GetByNumber retrieves a net by its number
func (nm *NetMap) GetByNumber(num int) (*Net, bool) {
	net, ok := nm.byNumber[num]
	return net, ok
}

// GetByName retrieves a net by its name (e.g. "GND", "+5V")
func (nm *NetMap) GetByName(name string) (*Net, bool) {
	net, ok := nm.byName[name]
	return net, ok
}

// GetFootprint returns a footprint by reference designator
func (b *Board) GetFootprint(ref string) *Footprint {
	for i := range b.Footprints {
		if b.Footprints[i].Reference == ref {
			return &b.Footprints[i]
		}
	}
	return nil
}

// PadBoundingBox returns the bounding box of all pad positions on the
// board. This is the box the grid mapper is derived from.
func (b *Board) PadBoundingBox() BoundingBox {
	bbox := sexp.NewBoundingBox()
	for _, fp := range b.Footprints {
		for _, pad := range fp.Pads {
			bbox.Expand(pad.Position)
		}
	}
	return bbox
}
