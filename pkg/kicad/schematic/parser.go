package schematic

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/kicad/sexp"
)

// ParseFile reads and parses a KiCad schematic file
func ParseFile(filename string) (*Schematic, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads and parses a KiCad schematic from an io.Reader
func Parse(r io.Reader) (*Schematic, error) {
	nodes, err := sexp.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse s-expression: %w", err)
	}

	if len(nodes) == 0 {
		return nil, fmt.Errorf("empty file or no valid s-expressions found")
	}

	root := nodes[0]

	rootName, err := sexp.GetNodeName(root)
	if err != nil {
		return nil, fmt.Errorf("failed to get root node name: %w", err)
	}
	if rootName != "kicad_sch" {
		return nil, fmt.Errorf("not a KiCad schematic file: expected 'kicad_sch', got '%s'", rootName)
	}

	sch := &Schematic{
		LibPins: make(map[string]map[string]Position),
	}

	if versionNode, found := sexp.FindNode(root, "version"); found {
		if ver, err := sexp.GetInt(versionNode, 1); err == nil {
			sch.Version = ver
		}
	}

	if genNode, found := sexp.FindNode(root, "generator"); found {
		if gen, err := sexp.GetString(genNode, 1); err == nil {
			sch.Generator = gen
		}
	}

	if libNode, found := sexp.FindNode(root, "lib_symbols"); found {
		parseLibPins(libNode, sch.LibPins)
	}

	parseSymbols(root, sch)
	parseWires(root, sch)
	parseLabels(root, sch)

	return sch, nil
}

// parseLibPins collects pin offsets from library symbol definitions.
// Pins can be nested inside symbol units, so each library symbol is
// walked recursively.
func parseLibPins(libNode sexp.Node, libPins map[string]map[string]Position) {
	for _, symNode := range sexp.FindAllNodes(libNode, "symbol") {
		libID, err := sexp.GetString(symNode, 1)
		if err != nil || libID == "" {
			continue
		}

		pins, ok := libPins[libID]
		if !ok {
			pins = make(map[string]Position)
			libPins[libID] = pins
		}

		walkForPins(symNode, func(pinNode sexp.Node) {
			num := ""
			if numNode, found := sexp.FindNode(pinNode, "number"); found {
				num, _ = sexp.GetString(numNode, 1)
			}

			atNode, found := sexp.FindNode(pinNode, "at")
			if num == "" || !found {
				return
			}
			x, errX := sexp.GetFloat(atNode, 1)
			y, errY := sexp.GetFloat(atNode, 2)
			if errX != nil || errY != nil {
				return
			}
			pins[num] = Position{X: x, Y: y}
		})
	}
}

// walkForPins calls fn for every (pin ...) node found anywhere under n
func walkForPins(n sexp.Node, fn func(sexp.Node)) {
	if n.IsLeaf() {
		return
	}

	if name, err := sexp.GetNodeName(n); err == nil && name == "pin" {
		fn(n)
		return
	}

	for _, child := range sexp.NodeToSlice(n) {
		walkForPins(child, fn)
	}
}

// parseSymbols extracts placed symbol instances and resolves absolute
// pin positions: pin_abs = origin + Rotate(angle) * pin_local, rounded
// to 2 decimals. The quantization is what lets coincident points from
// wires and pins merge in the connectivity graph.
func parseSymbols(root sexp.Node, sch *Schematic) {
	for _, symNode := range sexp.FindAllNodes(root, "symbol") {
		inst := SymbolInstance{}

		libIDNode, found := sexp.FindNode(symNode, "lib_id")
		if !found {
			continue
		}
		libID, err := sexp.GetString(libIDNode, 1)
		if err != nil {
			continue
		}
		inst.LibID = libID

		if atNode, found := sexp.FindNode(symNode, "at"); found {
			if x, err := sexp.GetFloat(atNode, 1); err == nil {
				inst.Position.X = x
			}
			if y, err := sexp.GetFloat(atNode, 2); err == nil {
				inst.Position.Y = y
			}
			if rot, err := sexp.GetFloat(atNode, 3); err == nil {
				inst.Position.Angle = Angle(rot)
			}
		}

		for _, propNode := range sexp.FindAllNodes(symNode, "property") {
			key, err := sexp.GetString(propNode, 1)
			if err != nil {
				continue
			}
			value, err := sexp.GetString(propNode, 2)
			if err != nil {
				continue
			}
			switch key {
			case "Reference":
				inst.Reference = value
			case "Value":
				inst.Value = value
			}
		}

		offsets, ok := sch.LibPins[inst.LibID]
		if inst.Reference == "" || !ok {
			continue
		}

		for num, local := range offsets {
			abs := rotatePin(local, float64(inst.Position.Angle))
			inst.Pins = append(inst.Pins, PinPosition{
				Number: num,
				Position: Position{
					X: round2(inst.Position.X + abs.X),
					Y: round2(inst.Position.Y + abs.Y),
				},
			})
		}
		sortPins(inst.Pins)

		sch.Symbols = append(sch.Symbols, inst)
	}
}

// rotatePin rotates a local pin offset by the symbol rotation angle in
// degrees, about the symbol origin.
func rotatePin(local Position, degrees float64) Position {
	v := r2.Rotate(r2.Vec{X: local.X, Y: local.Y}, degrees*math.Pi/180, r2.Vec{})
	return Position{X: v.X, Y: v.Y}
}

// parseWires extracts wire segments as consecutive point pairs
func parseWires(root sexp.Node, sch *Schematic) {
	for _, wireNode := range sexp.FindAllNodes(root, "wire") {
		ptsNode, found := sexp.FindNode(wireNode, "pts")
		if !found {
			continue
		}

		var points []Position
		for _, xyNode := range sexp.FindAllNodes(ptsNode, "xy") {
			x, errX := sexp.GetFloat(xyNode, 1)
			y, errY := sexp.GetFloat(xyNode, 2)
			if errX != nil || errY != nil {
				continue
			}
			points = append(points, Position{X: round2(x), Y: round2(y)})
		}

		for i := 1; i < len(points); i++ {
			sch.Wires = append(sch.Wires, WireSegment{A: points[i-1], B: points[i]})
		}
	}
}

// parseLabels extracts local and global labels
func parseLabels(root sexp.Node, sch *Schematic) {
	for _, kind := range []string{"label", "global_label"} {
		for _, labelNode := range sexp.FindAllNodes(root, kind) {
			text, err := sexp.GetString(labelNode, 1)
			if err != nil || text == "" {
				continue
			}

			atNode, found := sexp.FindNode(labelNode, "at")
			if !found {
				continue
			}
			x, errX := sexp.GetFloat(atNode, 1)
			y, errY := sexp.GetFloat(atNode, 2)
			if errX != nil || errY != nil {
				continue
			}

			sch.Labels = append(sch.Labels, Label{
				Position: Position{X: round2(x), Y: round2(y)},
				Text:     text,
			})
		}
	}
}

// sortPins orders pins numerically where pin numbers are numeric,
// lexically otherwise, so map iteration order never leaks out.
func sortPins(pins []PinPosition) {
	sort.SliceStable(pins, func(i, j int) bool {
		na, errA := strconv.Atoi(pins[i].Number)
		nb, errB := strconv.Atoi(pins[j].Number)
		switch {
		case errA == nil && errB == nil:
			return na < nb
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return pins[i].Number < pins[j].Number
		}
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
