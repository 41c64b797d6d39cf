package ir

import (
	"slices"
	"unicode/utf16"
)

// Node is a sealed interface over the value tree used for canonical
// encoding. Only NodeString, NodeInt, NodeBool, NodeList and NodeObject
// implement it. There is no float and no null.
type Node interface {
	node() // Sealed - only these types implement it
}

// NodeString is a string leaf.
type NodeString string

func (NodeString) node() {}

// NodeInt is an integer leaf.
type NodeInt int64

func (NodeInt) node() {}

// NodeBool is a boolean leaf.
type NodeBool bool

func (NodeBool) node() {}

// NodeList is an ordered list of nodes.
type NodeList []Node

func (NodeList) node() {}

// NodeObject maps string keys to nodes.
// Use SortedKeys() for deterministic iteration.
type NodeObject map[string]Node

func (NodeObject) node() {}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings compares UTF-8 bytes, which orders differently.
func (obj NodeObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	for i := 0; i < min(len(a16), len(b16)); i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	return len(a16) - len(b16)
}
