// Package schematic provides parsing for KiCad schematic files
// (.kicad_sch) and extraction of electrical nets from wire/pin/label
// connectivity.
package schematic

import (
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/kicad/sexp"
)

// Shared geometry types (aliases to sexp package)
type Position = sexp.Position
type Angle = sexp.Angle
type PositionAngle = sexp.PositionAngle

// PinPosition is a symbol pin resolved to an absolute schematic
// coordinate, rounded to 2 decimals.
type PinPosition struct {
	Number   string   // Pin number within the symbol
	Position Position // Absolute position
}

// SymbolInstance represents a symbol placed on the schematic
type SymbolInstance struct {
	Reference string        // Reference designator (e.g. "U1")
	LibID     string        // Library identifier (e.g. "Device:R")
	Value     string        // Component value
	Position  PositionAngle // Origin position and rotation
	Pins      []PinPosition // Absolute pin positions
}

// WireSegment is one pair of consecutive points of a drawn wire
type WireSegment struct {
	A Position
	B Position
}

// Label aliases a connectivity point with a name
type Label struct {
	Position Position
	Text     string
}

// Schematic represents a KiCad schematic reduced to connectivity content
type Schematic struct {
	Version   int    // File format version
	Generator string // Generator info (e.g. "eeschema")

	// LibPins maps library symbol id -> pin number -> local pin offset
	LibPins map[string]map[string]Position

	Symbols []SymbolInstance
	Wires   []WireSegment
	Labels  []Label
}

// GetSymbol returns a symbol by reference designator
func (s *Schematic) GetSymbol(ref string) *SymbolInstance {
	for i := range s.Symbols {
		if s.Symbols[i].Reference == ref {
			return &s.Symbols[i]
		}
	}
	return nil
}
