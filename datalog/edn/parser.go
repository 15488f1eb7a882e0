package edn

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var (
	// Character validation for symbols. ':' is allowed after the first
	// character so that prefixed names such as rdf:type read as symbols.
	symbolChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789.*+!-_?$%&=<>/#:"

	intPattern   = regexp.MustCompile(`^[+-]?\d+N?$`)
	floatPattern = regexp.MustCompile(`^[+-]?\d+(\.\d+)?([eE][+-]?\d+)?M?$`)
)

// Parser parses EDN tokens into an AST
type Parser struct {
	lexer *Lexer
}

// NewParser creates a new parser
func NewParser(lexer *Lexer) *Parser {
	return &Parser{lexer: lexer}
}

// Parse parses a single value from input
func Parse(input string) (*Node, error) {
	lexer := NewLexer(input)
	if err := lexer.Lex(); err != nil {
		return nil, err
	}
	return NewParser(lexer).Parse()
}

// ParseAll parses every top-level value in input
func ParseAll(input string) ([]Node, error) {
	lexer := NewLexer(input)
	if err := lexer.Lex(); err != nil {
		return nil, err
	}
	return NewParser(lexer).ParseAll()
}

// Parse reads a single value
func (p *Parser) Parse() (*Node, error) {
	for {
		node, err := p.readNode()
		if err != nil || node != nil {
			return node, err
		}
	}
}

// ParseAll reads all values until EOF
func (p *Parser) ParseAll() ([]Node, error) {
	var nodes []Node
	for p.lexer.PeekToken().Type != TokenEOF {
		node, err := p.readNode()
		if err != nil {
			return nil, err
		}
		if node != nil {
			nodes = append(nodes, *node)
		}
	}
	return nodes, nil
}

// readNode reads a single node. A nil node with a nil error is a form
// dropped by #_.
func (p *Parser) readNode() (*Node, error) {
	token := p.lexer.PeekToken()

	switch token.Type {
	case TokenEOF:
		return nil, fmt.Errorf("unexpected EOF at %d:%d", token.Line, token.Col)
	case TokenString:
		p.lexer.NextToken()
		return &Node{Type: NodeString, Value: token.Value, Line: token.Line, Col: token.Col}, nil
	case TokenAtom:
		return p.readAtom()
	case TokenLeftParen:
		return p.readCollection(NodeList, TokenRightParen)
	case TokenLeftBracket:
		return p.readCollection(NodeVector, TokenRightBracket)
	default:
		return nil, fmt.Errorf("unexpected token %s", token)
	}
}

// readAtom reads and classifies an atom
func (p *Parser) readAtom() (*Node, error) {
	token := p.lexer.NextToken()
	value := token.Value
	node := &Node{Value: value, Line: token.Line, Col: token.Col}

	switch {
	case value == "nil":
		node.Type = NodeNil
		node.Value = ""
	case value == "true" || value == "false":
		node.Type = NodeBool
	case value == "#_":
		if _, err := p.readNode(); err != nil {
			return nil, err
		}
		return nil, nil
	case strings.HasPrefix(value, "<") && strings.HasSuffix(value, ">") && len(value) > 2:
		node.Type = NodeIRI
	case strings.HasPrefix(value, ":"):
		if err := validateKeyword(value); err != nil {
			return nil, fmt.Errorf("%v at %d:%d", err, token.Line, token.Col)
		}
		node.Type = NodeKeyword
	case intPattern.MatchString(value):
		node.Type = NodeInt
	case floatPattern.MatchString(value):
		node.Type = NodeFloat
	default:
		if err := validateSymbol(value); err != nil {
			return nil, fmt.Errorf("%v at %d:%d", err, token.Line, token.Col)
		}
		node.Type = NodeSymbol
	}
	return node, nil
}

// readCollection reads a list or vector up to the closing token
func (p *Parser) readCollection(typ NodeType, closing TokenType) (*Node, error) {
	start := p.lexer.NextToken()

	var nodes []Node
	for {
		token := p.lexer.PeekToken()
		if token.Type == closing {
			p.lexer.NextToken()
			break
		}
		if token.Type == TokenEOF {
			return nil, fmt.Errorf("unterminated %s starting at %d:%d", collectionName(typ), start.Line, start.Col)
		}

		node, err := p.readNode()
		if err != nil {
			return nil, err
		}
		if node != nil {
			nodes = append(nodes, *node)
		}
	}

	return &Node{Type: typ, Nodes: nodes, Line: start.Line, Col: start.Col}, nil
}

func collectionName(typ NodeType) string {
	if typ == NodeVector {
		return "vector"
	}
	return "list"
}

func validateSymbol(s string) error {
	if s == "" {
		return fmt.Errorf("empty symbol")
	}
	if unicode.IsDigit(rune(s[0])) {
		return fmt.Errorf("symbol cannot start with digit: %s", s)
	}
	if s[0] == ':' {
		return fmt.Errorf("symbol cannot start with colon: %s", s)
	}

	for _, ch := range strings.ToUpper(s) {
		if !strings.ContainsRune(symbolChars, ch) {
			return fmt.Errorf("invalid character '%c' in symbol: %s", ch, s)
		}
	}
	return nil
}

func validateKeyword(s string) error {
	if len(s) == 1 {
		return fmt.Errorf("empty keyword")
	}
	return validateSymbol(s[1:])
}
