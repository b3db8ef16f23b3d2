package compiler

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for RPAL
// ---------------------------------------------------------------------------

// Parser parses RPAL source code into a raw (unstandardized) tree.
//
// Grammar (operators in decreasing binding distance):
//
//	E  -> 'let' D 'in' E | 'fn' Vb+ '.' E | Ew
//	Ew -> T 'where' Dr | T
//	T  -> Ta (',' Ta)*
//	Ta -> Ta 'aug' Tc | Tc
//	Tc -> B '->' Tc '|' Tc | B
//	B  -> B 'or' Bt | Bt
//	Bt -> Bt '&' Bs | Bs
//	Bs -> 'not' Bp | Bp
//	Bp -> A ('gr'|'>'|'ge'|'>='|'ls'|'<'|'le'|'<='|'eq'|'ne') A | A
//	A  -> A ('+'|'-') At | ('+'|'-') At | At
//	At -> At ('*'|'/') Af | Af
//	Af -> Ap '**' Af | Ap
//	Ap -> Ap '@' <ID> R | R
//	R  -> R Rn | Rn
//	Rn -> <ID> | <INT> | <STR> | 'true' | 'false' | 'nil' | 'dummy' | '(' E ')'
//	D  -> Da 'within' D | Da
//	Da -> Dr ('and' Dr)*
//	Dr -> 'rec' Db | Db
//	Db -> Vl '=' E | <ID> Vb+ '=' E | '(' D ')'
//	Vb -> <ID> | '(' Vl ')' | '(' ')'
//	Vl -> <ID> (',' <ID>)*
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
	errors    []*SyntaxError
}

// bailout unwinds the parser after the first error.
type bailout struct{}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{lexer: NewLexer(input)}
	// Read two tokens to fill curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses a complete program.
func Parse(input string) (*Node, error) {
	p := NewParser(input)
	root := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, SyntaxErrors(errs)
	}
	return root, nil
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

// errorf records a syntax error at the current token and abandons the parse.
func (p *Parser) errorf(format string, args ...any) {
	tok := p.curToken
	msg := fmt.Sprintf(format, args...)
	atEOF := tok.Type == TokenEOF
	if tok.Type == TokenError {
		msg = tok.Literal
		atEOF = tok.Literal == "unterminated string"
	}
	p.errors = append(p.errors, &SyntaxError{Pos: tok.Pos, Msg: msg, AtEOF: atEOF})
	panic(bailout{})
}

// Errors returns accumulated parse errors.
func (p *Parser) Errors() []*SyntaxError {
	return p.errors
}

func (p *Parser) curIs(typ TokenType, lit string) bool {
	return p.curToken.Is(typ, lit)
}

func (p *Parser) curReserved(word string) bool {
	return p.curIs(TokenReserved, word)
}

func (p *Parser) curOperator(op string) bool {
	return p.curIs(TokenOperator, op)
}

func (p *Parser) expect(typ TokenType, lit string) Token {
	tok := p.curToken
	if !tok.Is(typ, lit) {
		p.errorf("expected %q, got %s", lit, describe(tok))
	}
	p.nextToken()
	return tok
}

func (p *Parser) expectIdentifier() *Node {
	tok := p.curToken
	if tok.Type != TokenIdentifier {
		p.errorf("expected identifier, got %s", describe(tok))
	}
	p.nextToken()
	return leafAt(KindIdentifier, tok)
}

func describe(tok Token) string {
	if tok.Type == TokenEOF {
		return "end of input"
	}
	return fmt.Sprintf("%q", tok.Literal)
}

func nodeAt(pos Position, kind Kind, children ...*Node) *Node {
	n := NewNode(kind, children...)
	n.Pos = pos
	return n
}

func leafAt(kind Kind, tok Token) *Node {
	n := NewLeaf(kind, tok.Literal)
	n.Pos = tok.Pos
	return n
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseProgram parses a whole program: a single expression followed by EOF.
// Errors are available from Errors; the returned tree is nil on failure.
func (p *Parser) ParseProgram() (root *Node) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			root = nil
		}
	}()
	if p.curToken.Type == TokenEOF {
		p.errorf("empty program")
	}
	root = p.parseE()
	if p.curToken.Type != TokenEOF {
		p.errorf("unexpected %s after expression", describe(p.curToken))
	}
	return root
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (p *Parser) parseE() *Node {
	pos := p.curToken.Pos
	switch {
	case p.curReserved("let"):
		p.nextToken()
		d := p.parseD()
		p.expect(TokenReserved, "in")
		body := p.parseE()
		return nodeAt(pos, KindLet, d, body)

	case p.curReserved("fn"):
		p.nextToken()
		var params []*Node
		for p.curToken.Type == TokenIdentifier || p.curToken.Type == TokenLParen {
			params = append(params, p.parseVb())
		}
		if len(params) == 0 {
			p.errorf("expected bound variable after 'fn', got %s", describe(p.curToken))
		}
		p.expect(TokenOperator, ".")
		body := p.parseE()
		return nodeAt(pos, KindLambda, append(params, body)...)
	}
	return p.parseEw()
}

func (p *Parser) parseEw() *Node {
	t := p.parseT()
	if p.curReserved("where") {
		pos := p.curToken.Pos
		p.nextToken()
		dr := p.parseDr()
		return nodeAt(pos, KindWhere, t, dr)
	}
	return t
}

func (p *Parser) parseT() *Node {
	first := p.parseTa()
	if p.curToken.Type != TokenComma {
		return first
	}
	items := []*Node{first}
	for p.curToken.Type == TokenComma {
		p.nextToken()
		items = append(items, p.parseTa())
	}
	return nodeAt(first.Pos, KindTau, items...)
}

func (p *Parser) parseTa() *Node {
	left := p.parseTc()
	for p.curReserved("aug") {
		p.nextToken()
		right := p.parseTc()
		left = nodeAt(left.Pos, KindAug, left, right)
	}
	return left
}

func (p *Parser) parseTc() *Node {
	cond := p.parseB()
	if !p.curOperator("->") {
		return cond
	}
	p.nextToken()
	then := p.parseTc()
	p.expect(TokenOperator, "|")
	els := p.parseTc()
	return nodeAt(cond.Pos, KindConditional, cond, then, els)
}

func (p *Parser) parseB() *Node {
	left := p.parseBt()
	for p.curReserved("or") {
		p.nextToken()
		right := p.parseBt()
		left = nodeAt(left.Pos, KindOr, left, right)
	}
	return left
}

func (p *Parser) parseBt() *Node {
	left := p.parseBs()
	for p.curOperator("&") {
		p.nextToken()
		right := p.parseBs()
		left = nodeAt(left.Pos, KindAnd, left, right)
	}
	return left
}

func (p *Parser) parseBs() *Node {
	if p.curReserved("not") {
		pos := p.curToken.Pos
		p.nextToken()
		return nodeAt(pos, KindNot, p.parseBp())
	}
	return p.parseBp()
}

// spelling identifies a token by type and text, ignoring position.
type spelling struct {
	typ TokenType
	lit string
}

// comparisons maps comparison spellings to node kinds.
var comparisons = map[spelling]Kind{
	{TokenReserved, "gr"}: KindGr,
	{TokenOperator, ">"}:  KindGr,
	{TokenReserved, "ge"}: KindGe,
	{TokenOperator, ">="}: KindGe,
	{TokenReserved, "ls"}: KindLs,
	{TokenOperator, "<"}:  KindLs,
	{TokenReserved, "le"}: KindLe,
	{TokenOperator, "<="}: KindLe,
	{TokenReserved, "eq"}: KindEq,
	{TokenReserved, "ne"}: KindNe,
}

func (p *Parser) parseBp() *Node {
	left := p.parseA()
	kind, ok := comparisons[spelling{p.curToken.Type, p.curToken.Literal}]
	if !ok {
		return left
	}
	p.nextToken()
	right := p.parseA()
	return nodeAt(left.Pos, kind, left, right)
}

func (p *Parser) parseA() *Node {
	var left *Node
	pos := p.curToken.Pos
	switch {
	case p.curOperator("+"):
		p.nextToken()
		left = p.parseAt()
	case p.curOperator("-"):
		p.nextToken()
		left = nodeAt(pos, KindNeg, p.parseAt())
	default:
		left = p.parseAt()
	}
	for p.curOperator("+") || p.curOperator("-") {
		kind := KindPlus
		if p.curOperator("-") {
			kind = KindMinus
		}
		p.nextToken()
		right := p.parseAt()
		left = nodeAt(left.Pos, kind, left, right)
	}
	return left
}

func (p *Parser) parseAt() *Node {
	left := p.parseAf()
	for p.curOperator("*") || p.curOperator("/") {
		kind := KindMult
		if p.curOperator("/") {
			kind = KindDiv
		}
		p.nextToken()
		right := p.parseAf()
		left = nodeAt(left.Pos, kind, left, right)
	}
	return left
}

func (p *Parser) parseAf() *Node {
	left := p.parseAp()
	if p.curOperator("**") {
		p.nextToken()
		right := p.parseAf()
		return nodeAt(left.Pos, KindExp, left, right)
	}
	return left
}

func (p *Parser) parseAp() *Node {
	left := p.parseR()
	for p.curOperator("@") {
		p.nextToken()
		name := p.expectIdentifier()
		right := p.parseR()
		left = nodeAt(left.Pos, KindAt, left, name, right)
	}
	return left
}

func (p *Parser) parseR() *Node {
	left := p.parseRn()
	for p.startsRn() {
		right := p.parseRn()
		left = nodeAt(left.Pos, KindGamma, left, right)
	}
	return left
}

func (p *Parser) startsRn() bool {
	switch p.curToken.Type {
	case TokenIdentifier, TokenInteger, TokenString, TokenLParen:
		return true
	case TokenReserved:
		switch p.curToken.Literal {
		case "true", "false", "nil", "dummy":
			return true
		}
	}
	return false
}

func (p *Parser) parseRn() *Node {
	tok := p.curToken
	switch tok.Type {
	case TokenIdentifier:
		p.nextToken()
		return leafAt(KindIdentifier, tok)
	case TokenInteger:
		p.nextToken()
		return leafAt(KindInteger, tok)
	case TokenString:
		p.nextToken()
		return leafAt(KindString, tok)
	case TokenLParen:
		p.nextToken()
		e := p.parseE()
		p.expect(TokenRParen, ")")
		return e
	case TokenReserved:
		var kind Kind
		switch tok.Literal {
		case "true":
			kind = KindTrue
		case "false":
			kind = KindFalse
		case "nil":
			kind = KindNil
		case "dummy":
			kind = KindDummy
		}
		if kind != KindInvalid {
			p.nextToken()
			return nodeAt(tok.Pos, kind)
		}
	}
	p.errorf("expected operand, got %s", describe(tok))
	return nil
}

// ---------------------------------------------------------------------------
// Definitions
// ---------------------------------------------------------------------------

func (p *Parser) parseD() *Node {
	da := p.parseDa()
	if p.curReserved("within") {
		pos := p.curToken.Pos
		p.nextToken()
		d := p.parseD()
		return nodeAt(pos, KindWithin, da, d)
	}
	return da
}

func (p *Parser) parseDa() *Node {
	first := p.parseDr()
	if !p.curReserved("and") {
		return first
	}
	items := []*Node{first}
	for p.curReserved("and") {
		p.nextToken()
		items = append(items, p.parseDr())
	}
	return nodeAt(first.Pos, KindSimultDef, items...)
}

func (p *Parser) parseDr() *Node {
	if p.curReserved("rec") {
		pos := p.curToken.Pos
		p.nextToken()
		return nodeAt(pos, KindRec, p.parseDb())
	}
	return p.parseDb()
}

func (p *Parser) parseDb() *Node {
	tok := p.curToken
	switch tok.Type {
	case TokenLParen:
		p.nextToken()
		d := p.parseD()
		p.expect(TokenRParen, ")")
		return d

	case TokenIdentifier:
		next := p.peekToken.Type
		if next == TokenIdentifier || next == TokenLParen {
			name := p.expectIdentifier()
			children := []*Node{name}
			for p.curToken.Type == TokenIdentifier || p.curToken.Type == TokenLParen {
				children = append(children, p.parseVb())
			}
			p.expect(TokenOperator, "=")
			children = append(children, p.parseE())
			return nodeAt(tok.Pos, KindFcnForm, children...)
		}
		vl := p.parseVl()
		p.expect(TokenOperator, "=")
		e := p.parseE()
		return nodeAt(tok.Pos, KindEqual, vl, e)
	}
	p.errorf("expected definition, got %s", describe(tok))
	return nil
}

func (p *Parser) parseVb() *Node {
	tok := p.curToken
	if tok.Type == TokenIdentifier {
		p.nextToken()
		return leafAt(KindIdentifier, tok)
	}
	p.expect(TokenLParen, "(")
	if p.curToken.Type == TokenRParen {
		p.nextToken()
		return nodeAt(tok.Pos, KindParen)
	}
	vl := p.parseVl()
	p.expect(TokenRParen, ")")
	return vl
}

func (p *Parser) parseVl() *Node {
	first := p.expectIdentifier()
	if p.curToken.Type != TokenComma {
		return first
	}
	items := []*Node{first}
	for p.curToken.Type == TokenComma {
		p.nextToken()
		items = append(items, p.expectIdentifier())
	}
	return nodeAt(first.Pos, KindComma, items...)
}
