package compiler

import (
	"strings"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: scanner and screener for RPAL source
// ---------------------------------------------------------------------------

// operatorSymbols are the characters that may form an operator token.
const operatorSymbols = `+-*<>&.@/:=~|$!#%^_[]{}"?`

// Lexer tokenizes RPAL source code. Whitespace and comments are screened
// out; identifiers that spell reserved words come back as TokenReserved.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      rune // current character
	line    int  // current line (1-based)
	col     int  // current column (1-based)
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0
		l.pos = l.readPos
		l.col++
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
	l.col++
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

// position returns the current position.
func (l *Lexer) position() Position {
	return Position{
		Offset: l.pos,
		Line:   l.line,
		Column: l.col,
	}
}

// atEOF reports whether the whole input has been consumed.
func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

// NextToken returns the next non-deleted token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	pos := l.position()

	switch {
	case l.atEOF():
		return Token{Type: TokenEOF, Literal: "", Pos: pos}

	case l.ch == '(':
		l.readChar()
		return Token{Type: TokenLParen, Literal: "(", Pos: pos}

	case l.ch == ')':
		l.readChar()
		return Token{Type: TokenRParen, Literal: ")", Pos: pos}

	case l.ch == ';':
		l.readChar()
		return Token{Type: TokenSemicolon, Literal: ";", Pos: pos}

	case l.ch == ',':
		l.readChar()
		return Token{Type: TokenComma, Literal: ",", Pos: pos}

	case l.ch == '\'':
		return l.readString(pos)

	case isLetter(l.ch):
		return l.readIdentifier(pos)

	case isDigit(l.ch):
		return l.readInteger(pos)

	case isOperatorSymbol(l.ch):
		return l.readOperator(pos)

	default:
		ch := l.ch
		l.readChar()
		return Token{Type: TokenError, Literal: "unexpected character " + quoteRune(ch), Pos: pos}
	}
}

// Tokens scans the remaining input, including the trailing EOF token.
func (l *Lexer) Tokens() []Token {
	var toks []Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == TokenEOF {
			return toks
		}
	}
}

// skipWhitespaceAndComments discards spaces, tabs, newlines and // comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for !l.atEOF() {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r':
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			for !l.atEOF() && l.ch != '\n' {
				l.readChar()
			}
		default:
			return
		}
	}
}

func (l *Lexer) readIdentifier(pos Position) Token {
	start := l.pos
	for !l.atEOF() && (isLetter(l.ch) || isDigit(l.ch) || l.ch == '_') {
		l.readChar()
	}
	word := l.input[start:l.pos]
	if IsReserved(word) {
		return Token{Type: TokenReserved, Literal: word, Pos: pos}
	}
	return Token{Type: TokenIdentifier, Literal: word, Pos: pos}
}

func (l *Lexer) readInteger(pos Position) Token {
	start := l.pos
	for !l.atEOF() && isDigit(l.ch) {
		l.readChar()
	}
	return Token{Type: TokenInteger, Literal: l.input[start:l.pos], Pos: pos}
}

func (l *Lexer) readOperator(pos Position) Token {
	start := l.pos
	for !l.atEOF() && isOperatorSymbol(l.ch) {
		// A comment may start right after an operator: "x+//c".
		if l.ch == '/' && l.peekChar() == '/' && l.pos > start {
			break
		}
		l.readChar()
	}
	return Token{Type: TokenOperator, Literal: l.input[start:l.pos], Pos: pos}
}

// readString scans a quoted string. Escape sequences are kept verbatim;
// they are interpreted only when a string is printed.
func (l *Lexer) readString(pos Position) Token {
	l.readChar() // opening quote
	var sb strings.Builder
	for {
		if l.atEOF() {
			return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
		}
		switch l.ch {
		case '\'':
			l.readChar()
			return Token{Type: TokenString, Literal: sb.String(), Pos: pos}
		case '\\':
			sb.WriteRune(l.ch)
			l.readChar()
			if l.atEOF() {
				return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
			}
			sb.WriteRune(l.ch)
			l.readChar()
		default:
			sb.WriteRune(l.ch)
			l.readChar()
		}
	}
}

func isLetter(ch rune) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

func isOperatorSymbol(ch rune) bool {
	return ch != 0 && strings.ContainsRune(operatorSymbols, ch)
}

func quoteRune(ch rune) string {
	return "'" + string(ch) + "'"
}
