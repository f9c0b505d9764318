package sexp

import (
	"bufio"
	"fmt"
	"io"
	"unicode"
)

// TokenType represents the type of a lexical token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenLeftParen
	TokenRightParen
	TokenSymbol
	TokenString
)

// Token represents a lexical token
type Token struct {
	Type  TokenType
	Value string
}

// Lexer tokenizes S-expressions from an io.Reader
type Lexer struct {
	reader *bufio.Reader
	peeked *rune
}

// NewLexer creates a new lexer
func NewLexer(r io.Reader) *Lexer {
	return &Lexer{reader: bufio.NewReader(r)}
}

// NextToken reads the next token from the input
func (l *Lexer) NextToken() (Token, error) {
	// Skip whitespace and comments (from # to end of line)
	for {
		ch, err := l.peek()
		if err != nil {
			if err == io.EOF {
				return Token{Type: TokenEOF}, nil
			}
			return Token{}, err
		}

		if unicode.IsSpace(ch) {
			l.read()
			continue
		}

		if ch == '#' {
			for {
				c, err := l.read()
				if err != nil || c == '\n' {
					break
				}
			}
			continue
		}

		break
	}

	ch, err := l.peek()
	if err != nil {
		if err == io.EOF {
			return Token{Type: TokenEOF}, nil
		}
		return Token{}, err
	}

	switch ch {
	case '(':
		l.read()
		return Token{Type: TokenLeftParen, Value: "("}, nil

	case ')':
		l.read()
		return Token{Type: TokenRightParen, Value: ")"}, nil

	case '"':
		return l.readString()

	default:
		return l.readSymbol()
	}
}

// peek looks at the next rune without consuming it
func (l *Lexer) peek() (rune, error) {
	if l.peeked != nil {
		return *l.peeked, nil
	}

	ch, _, err := l.reader.ReadRune()
	if err != nil {
		return 0, err
	}

	l.peeked = &ch
	return ch, nil
}

// read consumes and returns the next rune
func (l *Lexer) read() (rune, error) {
	if l.peeked != nil {
		ch := *l.peeked
		l.peeked = nil
		return ch, nil
	}

	ch, _, err := l.reader.ReadRune()
	return ch, err
}

// readString reads a quoted string, handling escape sequences and
// doubled-quote escapes as emitted by KiCad.
func (l *Lexer) readString() (Token, error) {
	l.read() // consume opening quote

	var result []rune
	for {
		ch, err := l.read()
		if err != nil {
			if err == io.EOF {
				return Token{}, fmt.Errorf("unexpected EOF in string")
			}
			return Token{}, err
		}

		if ch == '"' {
			next, err := l.peek()
			if err == nil && next == '"' {
				// Doubled quote - escaped
				l.read()
				result = append(result, '"')
				continue
			}
			break
		}

		if ch == '\\' {
			next, err := l.read()
			if err != nil {
				return Token{}, fmt.Errorf("unexpected EOF after backslash")
			}
			switch next {
			case 'n':
				result = append(result, '\n')
			case 't':
				result = append(result, '\t')
			case 'r':
				result = append(result, '\r')
			case '\\':
				result = append(result, '\\')
			case '"':
				result = append(result, '"')
			default:
				result = append(result, next)
			}
			continue
		}

		result = append(result, ch)
	}

	return Token{Type: TokenString, Value: string(result)}, nil
}

// readSymbol reads an unquoted symbol (identifier, number, etc.)
func (l *Lexer) readSymbol() (Token, error) {
	var result []rune

	for {
		ch, err := l.peek()
		if err != nil {
			if err == io.EOF {
				break
			}
			return Token{}, err
		}

		if unicode.IsSpace(ch) || ch == '(' || ch == ')' || ch == '"' {
			break
		}

		l.read()
		result = append(result, ch)
	}

	if len(result) == 0 {
		return Token{}, fmt.Errorf("empty symbol")
	}

	return Token{Type: TokenSymbol, Value: string(result)}, nil
}
