package pcb

import (
	"fmt"
	"sort"
	"strconv"
)

// PadRef identifies one pad on the board by its "ref:pad" key together
// with its absolute position and net.
type PadRef struct {
	Key      string   // "ref:pad", e.g. "R1:2"
	Position Position // Absolute position in mm
	Shape    string
	Net      *Net // Connected net (nil if none)
}

// PadIndex holds the forward (key -> pad) and reverse (position -> key)
// pad indices built once from a parsed board. The reverse index is used
// for foreign-pad collision checks during routing.
type PadIndex struct {
	pads  []PadRef
	byKey map[string]*PadRef
	byPos map[Position]string
}

// BuildPadIndex builds the pad index from a board. Footprints keep file
// order; pads within a footprint are sorted numerically where pad names
// are numeric, lexically otherwise, so iteration order is reproducible.
func BuildPadIndex(b *Board) *PadIndex {
	ix := &PadIndex{
		byKey: make(map[string]*PadRef),
		byPos: make(map[Position]string),
	}

	for _, fp := range b.Footprints {
		pads := make([]Pad, len(fp.Pads))
		copy(pads, fp.Pads)
		sort.SliceStable(pads, func(i, j int) bool {
			return padNumberLess(pads[i].Number, pads[j].Number)
		})

		for _, pad := range pads {
			ix.pads = append(ix.pads, PadRef{
				Key:      fmt.Sprintf("%s:%s", fp.Reference, pad.Number),
				Position: pad.Position,
				Shape:    pad.Shape,
				Net:      pad.Net,
			})
		}
	}

	for i := range ix.pads {
		ref := &ix.pads[i]
		ix.byKey[ref.Key] = ref
		ix.byPos[ref.Position] = ref.Key
	}

	return ix
}

// Pads returns all pads in index order
func (ix *PadIndex) Pads() []PadRef {
	return ix.pads
}

// Lookup returns the pad for a "ref:pad" key
func (ix *PadIndex) Lookup(key string) (*PadRef, bool) {
	ref, ok := ix.byKey[key]
	return ref, ok
}

// AtPosition returns the pad key at the given absolute position, if any.
// Positions were quantized to 4 decimals during parsing, so exact map
// lookup is safe here.
func (ix *PadIndex) AtPosition(p Position) (string, bool) {
	key, ok := ix.byPos[p]
	return key, ok
}

// padNumberLess orders pad names numerically when both parse as
// integers, lexically otherwise. Numeric names sort before symbolic
// ones, matching the ordering the extraction snapshots were built with.
func padNumberLess(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}
