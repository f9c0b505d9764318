package schematic

import (
	"fmt"
	"math"
	"sort"
)

// Net is a set of electrically connected pin terminals, named either by
// a label on the net or by an auto-generated counter name.
type Net struct {
	Name string   // Label text, or "N$<n>" when unlabeled
	Pins []string // Ordered "ref:pin" identifiers, always >= 2
}

// coordKey is a canonical quantized coordinate. Coordinates are rounded
// to 2 decimals during parsing; scaling to integer hundredths makes the
// key safe for exact map equality.
type coordKey struct {
	X, Y int64
}

func keyOf(p Position) coordKey {
	return coordKey{
		X: int64(math.Round(p.X * 100)),
		Y: int64(math.Round(p.Y * 100)),
	}
}

// arena interns every connectivity coordinate to a dense integer index
// so the union-find runs over ints, never over raw float keys.
type arena struct {
	index map[coordKey]int
	pin   []string // arena index -> "ref:pin" ("" if not a pin node)
	label []string // arena index -> label text ("" if unlabeled)
}

func newArena() *arena {
	return &arena{index: make(map[coordKey]int)}
}

func (a *arena) intern(p Position) int {
	k := keyOf(p)
	if i, ok := a.index[k]; ok {
		return i
	}
	i := len(a.pin)
	a.index[k] = i
	a.pin = append(a.pin, "")
	a.label = append(a.label, "")
	return i
}

// unionFind is a disjoint-set over arena indices with path compression
// and union by rank.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{
		parent: make([]int, n),
		rank:   make([]int, n),
	}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	root := x
	for uf.parent[root] != root {
		root = uf.parent[root]
	}

	// Path compression: point everything on the path at the root
	for x != root {
		next := uf.parent[x]
		uf.parent[x] = root
		x = next
	}

	return root
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}

	switch {
	case uf.rank[ra] < uf.rank[rb]:
		uf.parent[ra] = rb
	case uf.rank[ra] > uf.rank[rb]:
		uf.parent[rb] = ra
	default:
		uf.parent[rb] = ra
		uf.rank[ra]++
	}
}

// ExtractNets computes connected components over wire endpoints, symbol
// pin positions and label positions, with wire segments as the edges.
// A component is emitted as a Net only if it contains at least two pin
// nodes; smaller components are unconnected stubs, not nets.
//
// Ordering is deterministic throughout: nodes enter the arena in a
// single enumeration pass (wires, then pins, then labels, each in file
// order), pin lists follow arena order, components are ordered by their
// first-interned node, and the first label encountered in a component
// names it.
func ExtractNets(sch *Schematic) []Net {
	a := newArena()

	for _, w := range sch.Wires {
		a.intern(w.A)
		a.intern(w.B)
	}

	for _, sym := range sch.Symbols {
		for _, pin := range sym.Pins {
			i := a.intern(pin.Position)
			a.pin[i] = fmt.Sprintf("%s:%s", sym.Reference, pin.Number)
		}
	}

	for _, l := range sch.Labels {
		i := a.intern(l.Position)
		if a.label[i] == "" {
			a.label[i] = l.Text
		}
	}

	uf := newUnionFind(len(a.pin))
	for _, w := range sch.Wires {
		uf.union(a.intern(w.A), a.intern(w.B))
	}

	// Group arena nodes by component, in arena order
	groups := make(map[int][]int)
	var roots []int
	for i := range a.pin {
		root := uf.find(i)
		if _, seen := groups[root]; !seen {
			roots = append(roots, root)
		}
		groups[root] = append(groups[root], i)
	}
	sort.Slice(roots, func(i, j int) bool {
		return groups[roots[i]][0] < groups[roots[j]][0]
	})

	var nets []Net
	autoName := 1
	for _, root := range roots {
		var pins []string
		name := ""
		for _, i := range groups[root] {
			if a.pin[i] != "" {
				pins = append(pins, a.pin[i])
			}
			if name == "" && a.label[i] != "" {
				name = a.label[i]
			}
		}

		if len(pins) < 2 {
			continue
		}

		if name == "" {
			name = fmt.Sprintf("N$%d", autoName)
			autoName++
		}

		nets = append(nets, Net{Name: name, Pins: pins})
	}

	return nets
}
