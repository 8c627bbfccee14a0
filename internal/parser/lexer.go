package parser

import (
	"unicode"

	"bookfinder/internal/query"
)

type TokenType int

const (
	TokenEOF TokenType = iota
	TokenString
	TokenQuoted
	TokenField
)

type Token struct {
	Type  TokenType
	Value string
}

type Lexer struct {
	input []rune
	pos   int
}

func NewLexer(input string) *Lexer {
	return &Lexer{input: []rune(input)}
}

func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF}
	}

	if l.input[l.pos] == '"' {
		return l.readQuoted()
	}

	// read up to whitespace; "name:" ends early when name is a known field
	start := l.pos
	for l.pos < len(l.input) && !unicode.IsSpace(l.input[l.pos]) {
		if l.input[l.pos] == ':' {
			if f, ok := query.ParseField(string(l.input[start:l.pos])); ok {
				l.pos++
				return Token{Type: TokenField, Value: string(f)}
			}
		}
		l.pos++
	}

	return Token{Type: TokenString, Value: string(l.input[start:l.pos])}
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(l.input[l.pos]) {
		l.pos++
	}
}

// readQuoted consumes "..." and returns the inner text. An unterminated
// quote runs to the end of input.
func (l *Lexer) readQuoted() Token {
	l.pos++
	start := l.pos
	for l.pos < len(l.input) && l.input[l.pos] != '"' {
		l.pos++
	}
	value := string(l.input[start:l.pos])
	if l.pos < len(l.input) {
		l.pos++
	}
	return Token{Type: TokenQuoted, Value: value}
}
