package edn

import (
	"reflect"
	"strings"
	"testing"
)

func TestLexerBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Token
	}{
		{
			name:  "empty input",
			input: "",
			expected: []Token{
				{Type: TokenEOF, Line: 1, Col: 1},
			},
		},
		{
			name:  "whitespace and commas",
			input: " ,\n  ",
			expected: []Token{
				{Type: TokenEOF, Line: 2, Col: 3},
			},
		},
		{
			name:  "rule atom",
			input: "(T ?x parentOf ?y)",
			expected: []Token{
				{Type: TokenLeftParen, Line: 1, Col: 1},
				{Type: TokenAtom, Value: "T", Line: 1, Col: 2},
				{Type: TokenAtom, Value: "?x", Line: 1, Col: 4},
				{Type: TokenAtom, Value: "parentOf", Line: 1, Col: 7},
				{Type: TokenAtom, Value: "?y", Line: 1, Col: 16},
				{Type: TokenRightParen, Line: 1, Col: 18},
				{Type: TokenEOF, Line: 1, Col: 19},
			},
		},
		{
			name:  "string with escapes",
			input: `"a\"b\n"`,
			expected: []Token{
				{Type: TokenString, Value: "a\"b\n", Line: 1, Col: 1},
				{Type: TokenEOF, Line: 1, Col: 9},
			},
		},
		{
			name:  "comment",
			input: "; header\n[x]",
			expected: []Token{
				{Type: TokenLeftBracket, Line: 2, Col: 1},
				{Type: TokenAtom, Value: "x", Line: 2, Col: 2},
				{Type: TokenRightBracket, Line: 2, Col: 3},
				{Type: TokenEOF, Line: 2, Col: 4},
			},
		},
		{
			name:  "iri",
			input: "<http://example.org/a#b>",
			expected: []Token{
				{Type: TokenAtom, Value: "<http://example.org/a#b>", Line: 1, Col: 1},
				{Type: TokenEOF, Line: 1, Col: 25},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lexer := NewLexer(tt.input)
			if err := lexer.Lex(); err != nil {
				t.Fatalf("Lex() error = %v", err)
			}
			if !reflect.DeepEqual(lexer.tokens, tt.expected) {
				t.Errorf("tokens = %v, want %v", lexer.tokens, tt.expected)
			}
		})
	}
}

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"unterminated string", `"abc`, "unterminated string"},
		{"bad escape", `"\q"`, "invalid escape"},
		{"map", `{:a 1}`, "not supported"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewLexer(tt.input).Lex()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Lex() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestParserAtoms(t *testing.T) {
	tests := []struct {
		input string
		typ   NodeType
	}{
		{"nil", NodeNil},
		{"true", NodeBool},
		{"42", NodeInt},
		{"-7N", NodeInt},
		{"3.14", NodeFloat},
		{"1e3", NodeFloat},
		{`"s"`, NodeString},
		{":person/name", NodeKeyword},
		{"?x", NodeSymbol},
		{"_", NodeSymbol},
		{"rdf:type", NodeSymbol},
		{"<http://www.w3.org/1999/02/22-rdf-syntax-ns#type>", NodeIRI},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			node, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.input, err)
			}
			if node.Type != tt.typ {
				t.Errorf("Parse(%q).Type = %v, want %v", tt.input, node.Type, tt.typ)
			}
		})
	}
}

func TestParserCollections(t *testing.T) {
	nodes, err := ParseAll(`[(anc ?x ?y) (T ?x parentOf ?y)] #_ (ignored) [(p 1 2.5)]`)
	if err != nil {
		t.Fatalf("ParseAll error = %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("got %d forms, want 2", len(nodes))
	}

	rule := nodes[0]
	if rule.Type != NodeVector || len(rule.Nodes) != 2 {
		t.Fatalf("first form = %s", rule)
	}
	if got := rule.String(); got != "[(anc ?x ?y) (T ?x parentOf ?y)]" {
		t.Errorf("String() = %s", got)
	}

	fact := nodes[1].Nodes[0]
	n, err := fact.Nodes[1].AsInt()
	if err != nil || n != 1 {
		t.Errorf("AsInt() = %d, %v", n, err)
	}
	f, err := fact.Nodes[2].AsFloat()
	if err != nil || f != 2.5 {
		t.Errorf("AsFloat() = %v, %v", f, err)
	}
	if _, err := fact.Nodes[0].AsInt(); err == nil {
		t.Error("AsInt on a symbol should fail")
	}
}

func TestParserErrors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"(a b", "unterminated list"},
		{"[a", "unterminated vector"},
		{")", "unexpected token"},
		{"9abc", "cannot start with digit"},
		{":", "empty keyword"},
		{"a@b", "invalid character"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Parse(tt.input)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse(%q) error = %v, want containing %q", tt.input, err, tt.want)
			}
		})
	}
}
