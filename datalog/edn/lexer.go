package edn

import (
	"fmt"
	"strings"
	"unicode"
)

// Lexer tokenizes the EDN subset used by rule programs: lists, vectors,
// strings and atoms. Commas are whitespace and ';' starts a line comment.
type Lexer struct {
	input   string
	pos     int
	line    int
	col     int
	tokens  []Token
	current int
}

// NewLexer creates a new lexer for the given input
func NewLexer(input string) *Lexer {
	return &Lexer{
		input: input,
		line:  1,
		col:   1,
	}
}

var delimiterTokens = map[byte]TokenType{
	'(': TokenLeftParen,
	')': TokenRightParen,
	'[': TokenLeftBracket,
	']': TokenRightBracket,
}

// Lex tokenizes the entire input
func (l *Lexer) Lex() error {
	for {
		l.skipWhitespaceAndComments()
		if l.pos >= len(l.input) {
			break
		}

		startLine, startCol := l.line, l.col
		ch := l.peek()

		if typ, ok := delimiterTokens[ch]; ok {
			l.advance()
			l.emit(typ, "", startLine, startCol)
			continue
		}

		switch ch {
		case '"':
			str, err := l.readString()
			if err != nil {
				return err
			}
			l.emit(TokenString, str, startLine, startCol)
		case '{', '}':
			return fmt.Errorf("maps and sets are not supported at %d:%d", startLine, startCol)
		default:
			atom := l.readAtom()
			if atom == "" {
				return fmt.Errorf("unexpected character '%c' at %d:%d", ch, l.line, l.col)
			}
			l.emit(TokenAtom, atom, startLine, startCol)
		}
	}

	l.emit(TokenEOF, "", l.line, l.col)
	return nil
}

func (l *Lexer) emit(typ TokenType, value string, line, col int) {
	l.tokens = append(l.tokens, Token{Type: typ, Value: value, Line: line, Col: col})
}

// NextToken returns the next token
func (l *Lexer) NextToken() Token {
	token := l.PeekToken()
	if l.current < len(l.tokens) {
		l.current++
	}
	return token
}

// PeekToken returns the next token without advancing
func (l *Lexer) PeekToken() Token {
	if l.current >= len(l.tokens) {
		return Token{Type: TokenEOF, Line: l.line, Col: l.col}
	}
	return l.tokens[l.current]
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) advance() {
	if l.pos < len(l.input) {
		if l.input[l.pos] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
		l.pos++
	}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for l.pos < len(l.input) {
		ch := l.peek()
		switch {
		case unicode.IsSpace(rune(ch)) || ch == ',':
			l.advance()
		case ch == ';':
			for l.pos < len(l.input) && l.peek() != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

// readString reads a string literal
func (l *Lexer) readString() (string, error) {
	var result strings.Builder
	l.advance() // opening quote

	for l.pos < len(l.input) {
		ch := l.peek()
		switch ch {
		case '"':
			l.advance()
			return result.String(), nil
		case '\\':
			l.advance()
			if l.pos >= len(l.input) {
				return "", fmt.Errorf("unexpected end of input in string at %d:%d", l.line, l.col)
			}
			switch escaped := l.peek(); escaped {
			case 't':
				result.WriteByte('\t')
			case 'r':
				result.WriteByte('\r')
			case 'n':
				result.WriteByte('\n')
			case '\\', '"':
				result.WriteByte(escaped)
			default:
				return "", fmt.Errorf("invalid escape sequence '\\%c' at %d:%d", escaped, l.line, l.col)
			}
			l.advance()
		default:
			result.WriteByte(ch)
			l.advance()
		}
	}

	return "", fmt.Errorf("unterminated string at %d:%d", l.line, l.col)
}

// readAtom reads up to the next delimiter. An IRI in angle brackets is
// read whole so that it may contain any non-space character.
func (l *Lexer) readAtom() string {
	start := l.pos
	if l.peek() == '<' {
		if end := strings.IndexByte(l.input[l.pos:], '>'); end > 0 &&
			!strings.ContainsAny(l.input[l.pos:l.pos+end], " \t\r\n") {
			for i := 0; i <= end; i++ {
				l.advance()
			}
			return l.input[start:l.pos]
		}
	}

	for l.pos < len(l.input) {
		ch := l.peek()
		if isDelimiter(ch) || unicode.IsSpace(rune(ch)) || ch == ',' {
			break
		}
		l.advance()
	}
	return l.input[start:l.pos]
}

func isDelimiter(ch byte) bool {
	switch ch {
	case '(', ')', '[', ']', '{', '}', '"', ';':
		return true
	}
	return false
}
