// Package parser reads rule programs written in EDN.
//
// A program is a sequence of vectors. The first list of a vector is the
// head and the remaining lists are the body:
//
//	[(ancestorOf ?x ?y) (T ?x parentOf ?y)]
//	[(ancestorOf ?x ?z) (ancestorOf ?x ?y) (ancestorOf ?y ?z)]
//	[(T alice parentOf bob)]
//
// Symbols beginning with ? are variables and _ is an anonymous body
// variable. Bare symbols and IRIs are string constants; keywords,
// strings, numbers and booleans are constants of their own type.
package parser

import (
	"fmt"

	"github.com/wbrown/janus-reasoner/datalog"
	"github.com/wbrown/janus-reasoner/datalog/edn"
)

// ParseProgram parses and validates a rule program
func ParseProgram(input string) (*datalog.Program, error) {
	rules, err := ParseRules(input)
	if err != nil {
		return nil, err
	}
	return datalog.NewProgram(rules...)
}

// ParseRules parses rules without validating them as a program
func ParseRules(input string) ([]datalog.Rule, error) {
	nodes, err := edn.ParseAll(input)
	if err != nil {
		return nil, fmt.Errorf("EDN parse error: %w", err)
	}

	rules := make([]datalog.Rule, 0, len(nodes))
	for i := range nodes {
		rule, err := parseRule(&nodes[i])
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// ParseRule parses a single rule vector
func ParseRule(input string) (datalog.Rule, error) {
	node, err := edn.Parse(input)
	if err != nil {
		return datalog.Rule{}, fmt.Errorf("EDN parse error: %w", err)
	}
	return parseRule(node)
}

// ParseAtom parses a single atom list such as (T ?x parentOf ?y).
// Anonymous variables are not allowed outside a rule.
func ParseAtom(input string) (datalog.Atom, error) {
	node, err := edn.Parse(input)
	if err != nil {
		return datalog.Atom{}, fmt.Errorf("EDN parse error: %w", err)
	}
	return parseAtom(node, nil)
}

// parseRule parses [(head) (body)...]
func parseRule(node *edn.Node) (datalog.Rule, error) {
	if node.Type != edn.NodeVector {
		return datalog.Rule{}, fmt.Errorf("rule must be a vector at %s, got %s", node.Pos(), node)
	}
	if len(node.Nodes) == 0 {
		return datalog.Rule{}, fmt.Errorf("empty rule at %s", node.Pos())
	}

	head, err := parseAtom(&node.Nodes[0], nil)
	if err != nil {
		return datalog.Rule{}, fmt.Errorf("error parsing rule head: %w", err)
	}

	anon := &anonymous{}
	body := make([]datalog.Atom, 0, len(node.Nodes)-1)
	for i := 1; i < len(node.Nodes); i++ {
		atom, err := parseAtom(&node.Nodes[i], anon)
		if err != nil {
			return datalog.Rule{}, fmt.Errorf("error parsing rule body: %w", err)
		}
		body = append(body, atom)
	}
	return datalog.NewRule(head, body...), nil
}

// anonymous hands out fresh variable names for _ within one rule
type anonymous struct {
	next int
}

func (a *anonymous) fresh() datalog.Variable {
	a.next++
	return datalog.Variable{Name: fmt.Sprintf("_%d", a.next)}
}

// parseAtom parses (relation term...). anon is nil where _ is illegal.
func parseAtom(node *edn.Node, anon *anonymous) (datalog.Atom, error) {
	if node.Type != edn.NodeList {
		return datalog.Atom{}, fmt.Errorf("atom must be a list at %s, got %s", node.Pos(), node)
	}
	if len(node.Nodes) == 0 {
		return datalog.Atom{}, fmt.Errorf("empty atom at %s", node.Pos())
	}

	relation, err := parseRelation(&node.Nodes[0])
	if err != nil {
		return datalog.Atom{}, err
	}

	terms := make([]datalog.Term, 0, len(node.Nodes)-1)
	for i := 1; i < len(node.Nodes); i++ {
		term, err := parseTerm(&node.Nodes[i], anon)
		if err != nil {
			return datalog.Atom{}, err
		}
		terms = append(terms, term)
	}
	return datalog.NewAtom(relation, terms...), nil
}

func parseRelation(node *edn.Node) (string, error) {
	switch node.Type {
	case edn.NodeSymbol, edn.NodeString, edn.NodeIRI:
		if len(node.Value) > 0 && node.Value[0] == '?' {
			return "", fmt.Errorf("relation name cannot be a variable at %s: %s", node.Pos(), node.Value)
		}
		if node.Value == "" || node.Value == "_" {
			return "", fmt.Errorf("invalid relation name at %s: %q", node.Pos(), node.Value)
		}
		return node.Value, nil
	default:
		return "", fmt.Errorf("relation name must be a symbol at %s, got %s", node.Pos(), node)
	}
}

// parseTerm parses an atom argument
func parseTerm(node *edn.Node, anon *anonymous) (datalog.Term, error) {
	switch node.Type {
	case edn.NodeSymbol:
		switch {
		case node.Value == "_":
			if anon == nil {
				return nil, fmt.Errorf("anonymous variable not allowed here at %s", node.Pos())
			}
			return anon.fresh(), nil
		case node.Value[0] == '?':
			if len(node.Value) == 1 {
				return nil, fmt.Errorf("variable without a name at %s", node.Pos())
			}
			return datalog.Var(node.Value), nil
		default:
			return datalog.Const(node.Value), nil
		}

	case edn.NodeIRI, edn.NodeString:
		return datalog.Const(node.Value), nil

	case edn.NodeKeyword:
		return datalog.Const(datalog.InternKeyword(node.Value)), nil

	case edn.NodeInt:
		val, err := node.AsInt()
		if err != nil {
			return nil, fmt.Errorf("invalid integer at %s: %w", node.Pos(), err)
		}
		return datalog.Const(val), nil

	case edn.NodeFloat:
		val, err := node.AsFloat()
		if err != nil {
			return nil, fmt.Errorf("invalid float at %s: %w", node.Pos(), err)
		}
		return datalog.Const(val), nil

	case edn.NodeBool:
		val, _ := node.AsBool()
		return datalog.Const(val), nil

	default:
		return nil, fmt.Errorf("unsupported term at %s: %s", node.Pos(), node)
	}
}
