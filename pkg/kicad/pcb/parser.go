package pcb

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/kicad/sexp"
)

// ParseFile reads and parses a KiCad board file
func ParseFile(filename string) (*Board, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads and parses a KiCad board from an io.Reader
func Parse(r io.Reader) (*Board, error) {
	nodes, err := sexp.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse s-expression: %w", err)
	}

	if len(nodes) == 0 {
		return nil, fmt.Errorf("empty file or no valid s-expressions found")
	}

	// The root should be a (kicad_pcb ...) expression
	root := nodes[0]

	rootName, err := sexp.GetNodeName(root)
	if err != nil {
		return nil, fmt.Errorf("failed to get root node name: %w", err)
	}
	if rootName != "kicad_pcb" {
		return nil, fmt.Errorf("not a KiCad PCB file: expected 'kicad_pcb', got '%s'", rootName)
	}

	board := &Board{}

	if versionNode, found := sexp.FindNode(root, "version"); found {
		if ver, err := sexp.GetInt(versionNode, 1); err == nil {
			board.Version = ver
		}
	}

	if genNode, found := sexp.FindNode(root, "generator"); found {
		if gen, err := sexp.GetString(genNode, 1); err == nil {
			board.Generator = gen
		}
	}

	nets, err := parseNets(root)
	if err != nil {
		return nil, fmt.Errorf("failed to parse nets: %w", err)
	}
	board.Nets = nets

	netMap := NewNetMap(board.Nets)

	footprints, err := parseFootprints(root, netMap)
	if err != nil {
		return nil, fmt.Errorf("failed to parse footprints: %w", err)
	}
	board.Footprints = footprints

	board.SegmentCount = len(sexp.FindAllNodes(root, "segment"))

	return board, nil
}

// parseNets extracts net definitions from the root node.
// Expected format: (net 0 "") (net 1 "GND") (net 2 "+5V") ...
func parseNets(root sexp.Node) ([]Net, error) {
	netNodes := sexp.FindAllNodes(root, "net")

	var nets []Net
	for _, netNode := range netNodes {
		number, err := sexp.GetInt(netNode, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to parse net number: %w", err)
		}

		// Name is optional (net 0 often has empty name)
		name := ""
		if nameStr, err := sexp.GetString(netNode, 2); err == nil {
			name = nameStr
		}

		nets = append(nets, Net{Number: number, Name: name})
	}

	return nets, nil
}

// parseFootprints extracts all footprint definitions from the root node
func parseFootprints(root sexp.Node, netMap *NetMap) ([]Footprint, error) {
	fpNodes := sexp.FindAllNodes(root, "footprint")

	var footprints []Footprint
	for _, fpNode := range fpNodes {
		fp := parseFootprint(fpNode, netMap)
		// Footprints without a reference cannot be addressed as ref:pad
		if fp.Reference == "" {
			continue
		}
		footprints = append(footprints, fp)
	}

	return footprints, nil
}

// parseFootprint extracts a single footprint (component) placement.
// Expected format: (footprint "lib:name" (at x y [rot]) (path "...")
// (property "Reference" "R1" ...) (pad ...) ...)
// Geometry errors leave fields at defaults; upstream board files may be
// partially specified.
func parseFootprint(node sexp.Node, netMap *NetMap) Footprint {
	fp := Footprint{}

	if atNode, found := sexp.FindNode(node, "at"); found {
		if x, err := sexp.GetFloat(atNode, 1); err == nil {
			fp.Position.X = x
		}
		if y, err := sexp.GetFloat(atNode, 2); err == nil {
			fp.Position.Y = y
		}
		if rot, err := sexp.GetFloat(atNode, 3); err == nil {
			fp.Position.Angle = Angle(rot)
		}
	}

	if pathNode, found := sexp.FindNode(node, "path"); found {
		if p, err := sexp.GetString(pathNode, 1); err == nil {
			fp.LibPath = p
		}
	}

	for _, propNode := range sexp.FindAllNodes(node, "property") {
		key, err := sexp.GetString(propNode, 1)
		if err != nil || key != "Reference" {
			continue
		}
		if value, err := sexp.GetString(propNode, 2); err == nil {
			fp.Reference = value
		}
	}

	for _, padNode := range sexp.FindAllNodes(node, "pad") {
		pad, ok := parsePad(padNode, fp.Position.Position, netMap)
		if !ok {
			continue
		}
		fp.Pads = append(fp.Pads, pad)
	}

	return fp
}

// parsePad extracts a pad and resolves its absolute board position.
// Absolute position = footprint origin + pad local offset, translation
// only. Rounded to 4 decimals so positions from different enumeration
// passes compare equal.
func parsePad(node sexp.Node, origin Position, netMap *NetMap) (Pad, bool) {
	pad := Pad{}

	number, err := sexp.GetString(node, 1)
	if err != nil || number == "" {
		return pad, false
	}
	pad.Number = number

	if shape, err := sexp.GetString(node, 3); err == nil {
		pad.Shape = shape
	}

	atNode, found := sexp.FindNode(node, "at")
	if !found {
		return pad, false
	}
	dx, errX := sexp.GetFloat(atNode, 1)
	dy, errY := sexp.GetFloat(atNode, 2)
	if errX != nil || errY != nil {
		return pad, false
	}
	pad.Position.X = round4(origin.X + dx)
	pad.Position.Y = round4(origin.Y + dy)

	if sizeNode, found := sexp.FindNode(node, "size"); found {
		if w, err := sexp.GetFloat(sizeNode, 1); err == nil {
			pad.Size.X = w
		}
		if h, err := sexp.GetFloat(sizeNode, 2); err == nil {
			pad.Size.Y = h
		}
	}

	if netNode, found := sexp.FindNode(node, "net"); found {
		if num, err := sexp.GetInt(netNode, 1); err == nil && netMap != nil {
			if net, ok := netMap.GetByNumber(num); ok {
				pad.Net = net
			}
		}
	}

	return pad, true
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
