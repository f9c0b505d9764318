// Package sexp provides a lightweight streaming S-expression parser for
// KiCad board and schematic files. Unlike general-purpose sexp libraries,
// this parser can handle arbitrarily large files by streaming.
package sexp

import (
	"io"
	"strings"
)

// Node represents an S-expression node.
// It is either a leaf (atom) or a list.
type Node interface {
	// IsLeaf returns true if this is an atom (not a list)
	IsLeaf() bool

	// Len returns the number of elements in a list (1 for atoms)
	Len() int

	// Head returns the first element of a list (the node itself for atoms)
	Head() Node

	// Tail returns the rest of the list after the first element (nil for atoms)
	Tail() Node

	// String returns the string representation
	String() string
}

// Symbol represents an atomic symbol (string, number, identifier)
type Symbol string

func (s Symbol) IsLeaf() bool   { return true }
func (s Symbol) Len() int       { return 1 }
func (s Symbol) Head() Node     { return s }
func (s Symbol) Tail() Node     { return nil }
func (s Symbol) String() string { return string(s) }

// List represents a list of S-expression nodes
type List struct {
	elements []Node
}

// NewList creates a list from the given elements.
func NewList(elements ...Node) *List {
	return &List{elements: elements}
}

func (l *List) IsLeaf() bool { return false }

func (l *List) Len() int { return len(l.elements) }

func (l *List) Head() Node {
	if len(l.elements) == 0 {
		return nil
	}
	return l.elements[0]
}

func (l *List) Tail() Node {
	if len(l.elements) <= 1 {
		return nil
	}
	return &List{elements: l.elements[1:]}
}

func (l *List) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, elem := range l.elements {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(elem.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// Get returns the element at the given index, or nil if out of range
func (l *List) Get(index int) Node {
	if index < 0 || index >= len(l.elements) {
		return nil
	}
	return l.elements[index]
}

// Parse parses all top-level S-expressions from an io.Reader.
func Parse(r io.Reader) ([]Node, error) {
	return NewParser(r).ParseAll()
}

// ParseString parses S-expressions from a string (convenience function)
func ParseString(s string) ([]Node, error) {
	return Parse(strings.NewReader(s))
}
