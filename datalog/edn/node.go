package edn

import (
	"fmt"
	"strconv"
	"strings"
)

// NodeType represents the type of EDN node
type NodeType int

const (
	NodeNil NodeType = iota
	NodeBool
	NodeInt
	NodeFloat
	NodeString
	NodeSymbol
	NodeKeyword
	NodeIRI
	NodeList
	NodeVector
)

// Node represents an EDN value
type Node struct {
	Type  NodeType
	Line  int
	Col   int
	Value string // For atoms
	Nodes []Node // For collections
}

// Pos returns the node position as line:col
func (n Node) Pos() string {
	return fmt.Sprintf("%d:%d", n.Line, n.Col)
}

// String returns a string representation of the node
func (n Node) String() string {
	switch n.Type {
	case NodeNil:
		return "nil"
	case NodeString:
		return strconv.Quote(n.Value)
	case NodeList:
		return "(" + joinNodes(n.Nodes) + ")"
	case NodeVector:
		return "[" + joinNodes(n.Nodes) + "]"
	default:
		return n.Value
	}
}

func joinNodes(nodes []Node) string {
	parts := make([]string, len(nodes))
	for i, node := range nodes {
		parts[i] = node.String()
	}
	return strings.Join(parts, " ")
}

// AsInt returns the value of an int node. Clojure's N suffix is accepted.
func (n Node) AsInt() (int64, error) {
	if n.Type != NodeInt {
		return 0, fmt.Errorf("node %s at %s is not an int", n, n.Pos())
	}
	return strconv.ParseInt(strings.TrimSuffix(n.Value, "N"), 10, 64)
}

// AsFloat returns the value of a float node
func (n Node) AsFloat() (float64, error) {
	if n.Type != NodeFloat {
		return 0, fmt.Errorf("node %s at %s is not a float", n, n.Pos())
	}
	return strconv.ParseFloat(strings.TrimSuffix(n.Value, "M"), 64)
}

// AsBool returns the value of a bool node
func (n Node) AsBool() (bool, error) {
	if n.Type != NodeBool {
		return false, fmt.Errorf("node %s at %s is not a bool", n, n.Pos())
	}
	return n.Value == "true", nil
}

// IsCollection returns true if the node is a list or vector
func (n Node) IsCollection() bool {
	return n.Type == NodeList || n.Type == NodeVector
}
