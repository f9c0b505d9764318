package sexp

import (
	"fmt"
	"strconv"
)

// S-expression navigation helpers

// NodeToSlice converts an s-expression list to a Go slice
func NodeToSlice(n Node) []Node {
	var items []Node

	if n == nil || n.IsLeaf() {
		return items
	}

	for n != nil && !n.IsLeaf() {
		if n.Len() == 0 {
			break
		}
		if head := n.Head(); head != nil {
			items = append(items, head)
		}
		if n.Len() <= 1 {
			break
		}
		n = n.Tail()
	}

	return items
}

// FindNode searches for a child node with the given key (first symbol).
// Example: FindNode(n, "at") finds (at 100 50) in a list.
func FindNode(n Node, key string) (Node, bool) {
	if n.IsLeaf() {
		return nil, false
	}

	for _, item := range NodeToSlice(n) {
		if item == nil {
			continue
		}

		if item.IsLeaf() {
			if sym, ok := item.(Symbol); ok && string(sym) == key {
				return item, true
			}
			continue
		}

		sub := NodeToSlice(item)
		if len(sub) > 0 {
			if sym, ok := sub[0].(Symbol); ok && string(sym) == key {
				return item, true
			}
		}
	}

	return nil, false
}

// FindAllNodes finds all child nodes with the given key
func FindAllNodes(n Node, key string) []Node {
	var results []Node

	if n.IsLeaf() {
		return results
	}

	for _, item := range NodeToSlice(n) {
		if item == nil || item.IsLeaf() {
			continue
		}

		sub := NodeToSlice(item)
		if len(sub) > 0 {
			if sym, ok := sub[0].(Symbol); ok && string(sym) == key {
				results = append(results, item)
			}
		}
	}

	return results
}

// ListItems returns all items in a list excluding the first symbol (the key).
// Example: ListItems((layers "F.Cu" "B.Cu")) returns ["F.Cu", "B.Cu"]
func ListItems(n Node) []Node {
	if n.IsLeaf() {
		return nil
	}

	all := NodeToSlice(n)
	if len(all) <= 1 {
		return nil
	}
	return all[1:]
}

// GetString extracts a string value at the given index in a list.
// Index 0 is the key, 1 is first value, etc.
func GetString(n Node, index int) (string, error) {
	if n.IsLeaf() {
		return "", fmt.Errorf("expected list, got leaf")
	}

	items := NodeToSlice(n)
	if index < 0 || index >= len(items) {
		return "", fmt.Errorf("index %d out of bounds (length %d)", index, len(items))
	}

	if sym, ok := items[index].(Symbol); ok {
		return string(sym), nil
	}

	return "", fmt.Errorf("expected symbol at index %d, got %T", index, items[index])
}

// GetFloat extracts a float64 value at the given index
func GetFloat(n Node, index int) (float64, error) {
	str, err := GetString(n, index)
	if err != nil {
		return 0, err
	}

	val, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse float %q: %w", str, err)
	}

	return val, nil
}

// GetInt extracts an int value at the given index
func GetInt(n Node, index int) (int, error) {
	str, err := GetString(n, index)
	if err != nil {
		return 0, err
	}

	val, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("failed to parse int %q: %w", str, err)
	}

	return val, nil
}

// GetNodeName returns the first symbol of a list (the node type/name)
func GetNodeName(n Node) (string, error) {
	if n.IsLeaf() {
		if sym, ok := n.(Symbol); ok {
			return string(sym), nil
		}
		return "", fmt.Errorf("expected symbol leaf")
	}

	if sym, ok := n.Head().(Symbol); ok {
		return string(sym), nil
	}

	return "", fmt.Errorf("expected symbol at head of list")
}

// HasSymbol checks if a list contains a specific bare symbol
func HasSymbol(n Node, symbol string) bool {
	if n.IsLeaf() {
		return false
	}

	for _, item := range NodeToSlice(n) {
		if sym, ok := item.(Symbol); ok && string(sym) == symbol {
			return true
		}
	}

	return false
}
