package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the RPAL scanner
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Lexical classes
	TokenIdentifier // foo, Print, x_1
	TokenInteger    // 42
	TokenString     // 'hello'
	TokenOperator   // + - * ** -> | = . @ & ...
	TokenReserved   // let in fn where ...

	// Punctuation
	TokenLParen    // (
	TokenRParen    // )
	TokenSemicolon // ;
	TokenComma     // ,
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenError:      "ERROR",
	TokenIdentifier: "IDENTIFIER",
	TokenInteger:    "INTEGER",
	TokenString:     "STRING",
	TokenOperator:   "OPERATOR",
	TokenReserved:   "RESERVED",
	TokenLParen:     "(",
	TokenRParen:     ")",
	TokenSemicolon:  ";",
	TokenComma:      ",",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", int(t))
}

// reservedWords are identifiers the screener turns into TokenReserved.
var reservedWords = map[string]bool{
	"let":    true,
	"in":     true,
	"within": true,
	"fn":     true,
	"where":  true,
	"aug":    true,
	"or":     true,
	"not":    true,
	"gr":     true,
	"ge":     true,
	"ls":     true,
	"le":     true,
	"eq":     true,
	"ne":     true,
	"true":   true,
	"false":  true,
	"nil":    true,
	"dummy":  true,
	"rec":    true,
	"and":    true,
}

// IsReserved reports whether word is an RPAL reserved word.
func IsReserved(word string) bool {
	return reservedWords[word]
}

// ReservedWords returns the reserved words in no particular order.
func ReservedWords() []string {
	words := make([]string, 0, len(reservedWords))
	for w := range reservedWords {
		words = append(words, w)
	}
	return words
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
}

func (t Token) String() string {
	if t.Literal == "" {
		return t.Type.String()
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// Is reports whether the token has the given type and literal.
func (t Token) Is(typ TokenType, lit string) bool {
	return t.Type == typ && t.Literal == lit
}
