package cypher

import (
	"strconv"

	"github.com/dong-qiu/graphdb/pkg/gvalue"
)

// Parser is a recursive-descent parser over the token stream, in the
// style of aabr2612-KiteDB's graphdb/parser.go (expect()/accept()
// token-matching helpers), extended to the full grammar of spec §4.2.
type Parser struct {
	tokens []Token
	pos    int
}

// Parse tokenizes and parses a full Cypher-subset statement, rejecting
// any trailing unparsed tokens (spec §6).
func Parse(src string) (*Statement, error) {
	toks, err := NewTokenizer(src).Tokenize()
	if err != nil {
		return nil, err
	}
	p := &Parser{tokens: toks}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind != TokEOF {
		return nil, &ParseError{Pos: p.cur().Pos, Message: "trailing tokens after statement"}
	}
	return stmt, nil
}

func (p *Parser) cur() Token {
	if p.pos >= len(p.tokens) {
		return Token{Kind: TokEOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) advance() Token {
	t := p.cur()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return t
}

func (p *Parser) checkKeyword(kw string) bool {
	t := p.cur()
	return t.Kind == TokKeyword && t.Text == kw
}

func (p *Parser) acceptKeyword(kw string) bool {
	if p.checkKeyword(kw) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) checkSymbol(sym string) bool {
	t := p.cur()
	return t.Kind == TokSymbol && t.Text == sym
}

func (p *Parser) acceptSymbol(sym string) bool {
	if p.checkSymbol(sym) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expectSymbol(sym string) (Token, error) {
	if !p.checkSymbol(sym) {
		return Token{}, &ParseError{Pos: p.cur().Pos, Message: "expected '" + sym + "'"}
	}
	return p.advance(), nil
}

func (p *Parser) expectIdentifier() (Token, error) {
	if p.cur().Kind != TokIdentifier {
		return Token{}, &ParseError{Pos: p.cur().Pos, Message: "expected identifier"}
	}
	return p.advance(), nil
}

// ---- statement ----

func (p *Parser) parseStatement() (*Statement, error) {
	stmt := &Statement{}
	for {
		switch {
		case p.checkKeyword("MATCH"):
			p.advance()
			pats, err := p.parsePatternList()
			if err != nil {
				return nil, err
			}
			stmt.Match = append(stmt.Match, pats...)
			if p.acceptKeyword("WHERE") {
				w, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				stmt.Where = w
			}
		case p.checkKeyword("WITH"):
			p.advance()
			wc, err := p.parseWithClause()
			if err != nil {
				return nil, err
			}
			stmt.With = wc
		case p.checkKeyword("CREATE"):
			p.advance()
			pats, err := p.parsePatternList()
			if err != nil {
				return nil, err
			}
			stmt.Create = append(stmt.Create, pats...)
		case p.checkKeyword("DETACH") || p.checkKeyword("DELETE"):
			detach := p.acceptKeyword("DETACH")
			if _, err := p.expectKeyword("DELETE"); err != nil {
				return nil, err
			}
			targets, err := p.parseExprList()
			if err != nil {
				return nil, err
			}
			stmt.Delete = &DeleteClause{Detach: detach, Targets: targets}
		case p.checkKeyword("SET"):
			p.advance()
			items, err := p.parseSetItems()
			if err != nil {
				return nil, err
			}
			stmt.Set = items
		case p.checkKeyword("RETURN"):
			p.advance()
			rc, err := p.parseReturnClause()
			if err != nil {
				return nil, err
			}
			stmt.Return = rc
		default:
			return stmt, nil
		}
	}
}

func (p *Parser) expectKeyword(kw string) (Token, error) {
	if !p.checkKeyword(kw) {
		return Token{}, &ParseError{Pos: p.cur().Pos, Message: "expected " + kw}
	}
	return p.advance(), nil
}

func (p *Parser) parseWithClause() (*WithClause, error) {
	items, err := p.parseProjectionList()
	if err != nil {
		return nil, err
	}
	wc := &WithClause{Items: items}
	if p.acceptKeyword("WHERE") {
		w, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		wc.Where = w
	}
	if p.acceptKeyword("ORDER") {
		if _, err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		ob, err := p.parseOrderByItems()
		if err != nil {
			return nil, err
		}
		wc.OrderBy = ob
	}
	if p.acceptKeyword("LIMIT") {
		n, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		wc.Limit = &n
	}
	return wc, nil
}

func (p *Parser) parseReturnClause() (*ReturnClause, error) {
	items, err := p.parseProjectionList()
	if err != nil {
		return nil, err
	}
	rc := &ReturnClause{Items: items}
	if p.acceptKeyword("ORDER") {
		if _, err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		ob, err := p.parseOrderByItems()
		if err != nil {
			return nil, err
		}
		rc.OrderBy = ob
	}
	if p.acceptKeyword("LIMIT") {
		n, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		rc.Limit = &n
	}
	return rc, nil
}

func (p *Parser) parseIntLiteral() (int64, error) {
	if p.cur().Kind != TokInt {
		return 0, &ParseError{Pos: p.cur().Pos, Message: "expected integer literal"}
	}
	tok := p.advance()
	n, err := strconv.ParseInt(tok.Text, 10, 64)
	if err != nil {
		return 0, &ParseError{Pos: tok.Pos, Message: "malformed integer literal"}
	}
	return n, nil
}

func (p *Parser) parseOrderByItems() ([]*OrderItem, error) {
	var items []*OrderItem
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		desc := false
		if p.acceptKeyword("DESC") {
			desc = true
		} else {
			p.acceptKeyword("ASC")
		}
		items = append(items, &OrderItem{Expr: e, Desc: desc})
		if p.acceptSymbol(",") {
			continue
		}
		break
	}
	return items, nil
}

func (p *Parser) parseProjectionList() ([]*ProjectionItem, error) {
	var items []*ProjectionItem
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		alias := ""
		if p.acceptKeyword("AS") {
			tok, err := p.expectIdentifier()
			if err != nil {
				return nil, err
			}
			alias = tok.Text
		}
		items = append(items, &ProjectionItem{Expr: e, Alias: alias})
		if p.acceptSymbol(",") {
			continue
		}
		break
	}
	return items, nil
}

func (p *Parser) parseExprList() ([]*Expr, error) {
	var out []*Expr
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
		if p.acceptSymbol(",") {
			continue
		}
		break
	}
	return out, nil
}

func (p *Parser) parseSetItems() ([]*SetItem, error) {
	var out []*SetItem
	for {
		varTok, err := p.expectIdentifier()
		if err != nil {
			return nil, err
		}
		var keys []string
		for p.acceptSymbol(".") {
			keyTok, err := p.expectIdentifier()
			if err != nil {
				return nil, err
			}
			keys = append(keys, keyTok.Text)
		}
		if len(keys) == 0 {
			return nil, &InvalidSyntaxError{Message: "SET target must be a property path, e.g. var.prop"}
		}
		if _, err := p.expectSymbol("="); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		out = append(out, &SetItem{Var: varTok.Text, Path: keys, Value: val})
		if p.acceptSymbol(",") {
			continue
		}
		break
	}
	return out, nil
}

// ---- patterns ----

func (p *Parser) parsePatternList() ([]*PatternPath, error) {
	var out []*PatternPath
	for {
		pat, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		out = append(out, pat)
		if p.acceptSymbol(",") {
			continue
		}
		break
	}
	return out, nil
}

func (p *Parser) parsePattern() (*PatternPath, error) {
	first, err := p.parseNodePattern()
	if err != nil {
		return nil, err
	}
	path := &PatternPath{Nodes: []*NodePattern{first}}
	for p.checkSymbol("-") || p.checkSymbol("<-") {
		edge, err := p.parseEdgePattern()
		if err != nil {
			return nil, err
		}
		node, err := p.parseNodePattern()
		if err != nil {
			return nil, err
		}
		path.Edges = append(path.Edges, edge)
		path.Nodes = append(path.Nodes, node)
	}
	return path, nil
}

func (p *Parser) parseNodePattern() (*NodePattern, error) {
	if _, err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	np := &NodePattern{}
	if p.cur().Kind == TokIdentifier {
		np.Var = p.advance().Text
	}
	if p.acceptSymbol(":") {
		tok, err := p.expectIdentifier()
		if err != nil {
			return nil, err
		}
		np.Label = tok.Text
	}
	if p.acceptSymbol("{") {
		props, err := p.parsePropMap()
		if err != nil {
			return nil, err
		}
		np.Props = props
	}
	if _, err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	return np, nil
}

func (p *Parser) parseEdgePattern() (*EdgePattern, error) {
	leftArrow := p.acceptSymbol("<-")
	if !leftArrow {
		if _, err := p.expectSymbol("-"); err != nil {
			return nil, err
		}
	}
	ep := &EdgePattern{}
	if p.acceptSymbol("[") {
		if p.cur().Kind == TokIdentifier {
			ep.Var = p.advance().Text
		}
		if p.acceptSymbol(":") {
			tok, err := p.expectIdentifier()
			if err != nil {
				return nil, err
			}
			ep.Label = tok.Text
		}
		if p.acceptSymbol("{") {
			props, err := p.parsePropMap()
			if err != nil {
				return nil, err
			}
			ep.Props = props
		}
		if _, err := p.expectSymbol("]"); err != nil {
			return nil, err
		}
	}
	rightArrow := p.acceptSymbol("->")
	if !rightArrow {
		if _, err := p.expectSymbol("-"); err != nil {
			return nil, err
		}
	}
	switch {
	case leftArrow && !rightArrow:
		ep.Direction = DirLeft
	case rightArrow && !leftArrow:
		ep.Direction = DirRight
	default:
		ep.Direction = DirEither
	}
	return ep, nil
}

func (p *Parser) parsePropMap() (map[string]*Expr, error) {
	props := map[string]*Expr{}
	if p.acceptSymbol("}") {
		return props, nil
	}
	for {
		keyTok, err := p.expectIdentifier()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectSymbol(":"); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		props[keyTok.Text] = val
		if p.acceptSymbol(",") {
			continue
		}
		break
	}
	if _, err := p.expectSymbol("}"); err != nil {
		return nil, err
	}
	return props, nil
}

// ---- expressions ----
//
// Precedence, low to high: OR, AND, NOT, comparison, additive,
// multiplicative, unary, primary.

func (p *Parser) parseExpr() (*Expr, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (*Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.acceptKeyword("OR") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Expr{Kind: ExprBinary, Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (*Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.acceptKeyword("AND") {
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &Expr{Kind: ExprBinary, Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (*Expr, error) {
	if p.acceptKeyword("NOT") {
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Expr{Kind: ExprUnary, Op: "NOT", Operand: operand}, nil
	}
	return p.parseComparison()
}

var comparisonOps = map[string]string{
	"=": "=", "==": "=", "<>": "<>", "!=": "<>",
	"<": "<", ">": ">", "<=": "<=", ">=": ">=",
}

func (p *Parser) parseComparison() (*Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind == TokSymbol {
		if norm, ok := comparisonOps[p.cur().Text]; ok {
			p.advance()
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			return &Expr{Kind: ExprBinary, Op: norm, Left: left, Right: right}, nil
		}
	}
	return left, nil
}

func (p *Parser) parseAdditive() (*Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.checkSymbol("+") || p.checkSymbol("-") {
		op := p.advance().Text
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &Expr{Kind: ExprBinary, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (*Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.checkSymbol("*") || p.checkSymbol("/") || p.checkSymbol("%") {
		op := p.advance().Text
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Expr{Kind: ExprBinary, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (*Expr, error) {
	if p.acceptSymbol("-") {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Expr{Kind: ExprUnary, Op: "-", Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (*Expr, error) {
	tok := p.cur()
	switch tok.Kind {
	case TokInt:
		p.advance()
		n, err := strconv.ParseInt(tok.Text, 10, 64)
		if err != nil {
			return nil, &ParseError{Pos: tok.Pos, Message: "malformed integer literal"}
		}
		return &Expr{Kind: ExprLiteral, Lit: gvalue.Int(n)}, nil
	case TokFloat:
		p.advance()
		f, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return nil, &ParseError{Pos: tok.Pos, Message: "malformed float literal"}
		}
		return &Expr{Kind: ExprLiteral, Lit: gvalue.Float(f)}, nil
	case TokString:
		p.advance()
		return &Expr{Kind: ExprLiteral, Lit: gvalue.Str(tok.Text)}, nil
	case TokParam:
		p.advance()
		return &Expr{Kind: ExprParam, Name: tok.Text}, nil
	case TokKeyword:
		switch tok.Text {
		case "TRUE":
			p.advance()
			return &Expr{Kind: ExprLiteral, Lit: gvalue.Bool(true)}, nil
		case "FALSE":
			p.advance()
			return &Expr{Kind: ExprLiteral, Lit: gvalue.Bool(false)}, nil
		case "NULL":
			p.advance()
			return &Expr{Kind: ExprLiteral, Lit: gvalue.Null}, nil
		}
	case TokIdentifier:
		p.advance()
		name := tok.Text
		if p.acceptSymbol("(") {
			var args []*Expr
			if !p.checkSymbol(")") {
				for {
					a, err := p.parseExpr()
					if err != nil {
						return nil, err
					}
					args = append(args, a)
					if p.acceptSymbol(",") {
						continue
					}
					break
				}
			}
			if _, err := p.expectSymbol(")"); err != nil {
				return nil, err
			}
			return &Expr{Kind: ExprFuncCall, Name: name, Args: args}, nil
		}
		if p.checkSymbol(".") {
			var keys []string
			for p.acceptSymbol(".") {
				keyTok, err := p.expectIdentifier()
				if err != nil {
					return nil, &InvalidSyntaxError{Message: "property access with no key after '.'"}
				}
				keys = append(keys, keyTok.Text)
			}
			return &Expr{Kind: ExprProperty, Base: name, Keys: keys}, nil
		}
		return &Expr{Kind: ExprVariable, Name: name}, nil
	case TokSymbol:
		switch tok.Text {
		case "(":
			p.advance()
			inner, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectSymbol(")"); err != nil {
				return nil, err
			}
			return inner, nil
		case "[":
			p.advance()
			var elems []*Expr
			if !p.checkSymbol("]") {
				for {
					e, err := p.parseExpr()
					if err != nil {
						return nil, err
					}
					elems = append(elems, e)
					if p.acceptSymbol(",") {
						continue
					}
					break
				}
			}
			if _, err := p.expectSymbol("]"); err != nil {
				return nil, err
			}
			return &Expr{Kind: ExprFuncCall, Name: "__list__", Args: elems}, nil
		}
	}
	return nil, &ParseError{Pos: tok.Pos, Message: "unexpected token in expression"}
}
