package lexer

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	perrors "github.com/sambeau/taylox/pkg/lox/errors"
	"github.com/sambeau/taylox/pkg/lox/value"
)

// Lexer represents the lexical analyzer
type Lexer struct {
	input    string
	start    int // start of the lexeme being scanned
	position int // next byte to read
	line     int // current line number

	errors perrors.List
}

// New creates a new lexer instance
func New(input string) *Lexer {
	return &Lexer{
		input: input,
		line:  1,
	}
}

// Errors returns the lexical errors collected so far
func (l *Lexer) Errors() perrors.List {
	return l.errors
}

// ScanTokens scans the whole input. The token slice always ends with EOF,
// even when errors were reported; the error is a perrors.List holding every
// lexical error found.
func (l *Lexer) ScanTokens() ([]Token, error) {
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			break
		}
	}
	return tokens, l.errors.Err()
}

// NextToken scans the input and returns the next token. Characters that
// cannot start a token are recorded as errors and skipped.
func (l *Lexer) NextToken() Token {
	for {
		l.skipWhitespace()
		l.start = l.position

		if l.isAtEnd() {
			return Token{Type: EOF, Lexeme: "", Line: l.line}
		}

		ch := l.readChar()
		switch ch {
		case '(':
			return l.newToken(LPAREN)
		case ')':
			return l.newToken(RPAREN)
		case '{':
			return l.newToken(LBRACE)
		case '}':
			return l.newToken(RBRACE)
		case ',':
			return l.newToken(COMMA)
		case '.':
			return l.newToken(DOT)
		case '-':
			return l.newToken(MINUS)
		case '+':
			return l.newToken(PLUS)
		case ';':
			return l.newToken(SEMICOLON)
		case '*':
			return l.newToken(ASTERISK)
		case '/':
			return l.newToken(SLASH)
		case '!':
			return l.newToken(l.either('=', NOT_EQ, BANG))
		case '=':
			return l.newToken(l.either('=', EQ, ASSIGN))
		case '<':
			return l.newToken(l.either('=', LTE, LT))
		case '>':
			return l.newToken(l.either('=', GTE, GT))
		case '"':
			if tok, ok := l.readString(); ok {
				return tok
			}
		default:
			if isDigit(ch) {
				return l.readNumber()
			}
			if isLetter(ch) {
				return l.readIdentifier()
			}
			l.illegalCharacter()
		}
	}
}

// readChar consumes one byte and returns it
func (l *Lexer) readChar() byte {
	ch := l.input[l.position]
	l.position++
	return ch
}

// peekChar returns the next byte without consuming it
func (l *Lexer) peekChar() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.input[l.position]
}

// peekCharN returns the byte n positions after the next one
func (l *Lexer) peekCharN(n int) byte {
	pos := l.position + n
	if pos >= len(l.input) {
		return 0
	}
	return l.input[pos]
}

func (l *Lexer) isAtEnd() bool {
	return l.position >= len(l.input)
}

// either consumes expected and returns matched when the next byte is
// expected, otherwise returns single
func (l *Lexer) either(expected byte, matched, single TokenType) TokenType {
	if l.peekChar() != expected {
		return single
	}
	l.position++
	return matched
}

// newToken creates a token for the current lexeme
func (l *Lexer) newToken(tokenType TokenType) Token {
	return Token{Type: tokenType, Lexeme: l.input[l.start:l.position], Line: l.line}
}

// skipWhitespace skips blanks, newlines and line comments
func (l *Lexer) skipWhitespace() {
	for !l.isAtEnd() {
		switch l.peekChar() {
		case ' ', '\t', '\r':
			l.position++
		case '\n':
			l.line++
			l.position++
		case '/':
			if l.peekCharN(1) != '/' {
				return
			}
			// Comment runs to the newline, which is left for the next pass
			for !l.isAtEnd() && l.peekChar() != '\n' {
				l.position++
			}
		default:
			return
		}
	}
}

// readString reads a string literal. The contents are taken verbatim with
// no escape processing and may span lines.
func (l *Lexer) readString() (Token, bool) {
	startLine := l.line
	for !l.isAtEnd() && l.peekChar() != '"' {
		if l.peekChar() == '\n' {
			l.line++
		}
		l.position++
	}

	if l.isAtEnd() {
		l.errors.Add(perrors.NewLexical(startLine, "Unterminated string."))
		return Token{}, false
	}

	l.position++ // closing quote
	text := l.input[l.start+1 : l.position-1]
	return Token{
		Type:    STRING,
		Lexeme:  l.input[l.start:l.position],
		Literal: value.Text{Value: text},
		Line:    startLine,
	}, true
}

// readNumber reads a digit run with an optional fractional part. A trailing
// dot with no digit after it is not part of the number.
func (l *Lexer) readNumber() Token {
	for isDigit(l.peekChar()) {
		l.position++
	}

	if l.peekChar() == '.' && isDigit(l.peekCharN(1)) {
		l.position++ // consume the '.'
		for isDigit(l.peekChar()) {
			l.position++
		}
	}

	tok := l.newToken(NUMBER)
	// A digit run with at most one interior dot always parses
	f, _ := strconv.ParseFloat(tok.Lexeme, 64)
	tok.Literal = value.Number{Value: f}
	return tok
}

// readIdentifier reads an identifier or keyword
func (l *Lexer) readIdentifier() Token {
	for isLetter(l.peekChar()) || isDigit(l.peekChar()) {
		l.position++
	}
	tok := l.newToken(IDENT)
	tok.Type = LookupIdent(tok.Lexeme)
	return tok
}

// illegalCharacter records an error for the character at l.start and skips
// the whole UTF-8 sequence
func (l *Lexer) illegalCharacter() {
	r, size := utf8.DecodeRuneInString(l.input[l.start:])
	l.position = l.start + size
	l.errors.Add(perrors.NewLexical(l.line, fmt.Sprintf("Unexpected character: %c", r)))
}

// isLetter checks for an ASCII letter or underscore
func isLetter(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

// isDigit checks if the character is a digit
func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
