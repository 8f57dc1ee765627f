package cypher

import (
	"strings"
)

// Tokenizer is a hand-rolled char-scanning lexer in the style of
// aabr2612-KiteDB's graphdb/tokenizer.go, extended per spec §4.2: the
// two-character operators <= >= <> != == must be matched before their
// one-character prefixes, and ASC/DESC are ordinary keyword tokens.
type Tokenizer struct {
	src []rune
	pos int
}

func NewTokenizer(src string) *Tokenizer {
	return &Tokenizer{src: []rune(src)}
}

// twoCharSymbols must be checked before single-character symbols or
// they get split into two tokens (spec §4.2).
var twoCharSymbols = []string{"<=", ">=", "<>", "!=", "==", "->", "<-"}

const singleCharSymbols = "()[]{},.:=<>+-*/%|"

// Tokenize scans the entire input into a token slice terminated by a
// TokEOF token.
func (t *Tokenizer) Tokenize() ([]Token, error) {
	var out []Token
	for {
		tok, err := t.next()
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
		if tok.Kind == TokEOF {
			return out, nil
		}
	}
}

func (t *Tokenizer) peekRune() (rune, bool) {
	if t.pos >= len(t.src) {
		return 0, false
	}
	return t.src[t.pos], true
}

func (t *Tokenizer) skipWhitespace() {
	for t.pos < len(t.src) {
		c := t.src[t.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			t.pos++
			continue
		}
		break
	}
}

func (t *Tokenizer) next() (Token, error) {
	t.skipWhitespace()
	start := t.pos
	c, ok := t.peekRune()
	if !ok {
		return Token{Kind: TokEOF, Pos: start}, nil
	}

	switch {
	case c == '\'':
		return t.readString(start)
	case c == '$':
		return t.readParam(start)
	case isDigit(c):
		return t.readNumber(start)
	case isIdentStart(c):
		return t.readIdentifierOrKeyword(start)
	default:
		return t.readSymbol(start)
	}
}

func (t *Tokenizer) readString(start int) (Token, error) {
	t.pos++ // opening quote
	var sb strings.Builder
	for {
		c, ok := t.peekRune()
		if !ok {
			return Token{}, &ParseError{Pos: start, Message: "unterminated string literal"}
		}
		if c == '\\' {
			t.pos++
			esc, ok := t.peekRune()
			if !ok {
				return Token{}, &ParseError{Pos: start, Message: "unterminated string literal"}
			}
			sb.WriteRune(unescape(esc))
			t.pos++
			continue
		}
		if c == '\'' {
			t.pos++
			return Token{Kind: TokString, Text: sb.String(), Pos: start}, nil
		}
		sb.WriteRune(c)
		t.pos++
	}
}

func unescape(c rune) rune {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	default:
		return c
	}
}

func (t *Tokenizer) readParam(start int) (Token, error) {
	t.pos++ // '$'
	nameStart := t.pos
	for {
		c, ok := t.peekRune()
		if !ok || !isIdentPart(c) {
			break
		}
		t.pos++
	}
	if t.pos == nameStart {
		return Token{}, &ParseError{Pos: start, Message: "expected parameter name after '$'"}
	}
	return Token{Kind: TokParam, Text: string(t.src[nameStart:t.pos]), Pos: start}, nil
}

func (t *Tokenizer) readNumber(start int) (Token, error) {
	isFloat := false
	for {
		c, ok := t.peekRune()
		if !ok {
			break
		}
		if isDigit(c) {
			t.pos++
			continue
		}
		if c == '.' && !isFloat {
			// Only consume the dot as part of the number if followed by
			// a digit; otherwise it's a property-access dot after an
			// integer literal used as a base (not valid Cypher, but we
			// should not eat the dot).
			if t.pos+1 < len(t.src) && isDigit(t.src[t.pos+1]) {
				isFloat = true
				t.pos++
				continue
			}
		}
		break
	}
	text := string(t.src[start:t.pos])
	if isFloat {
		return Token{Kind: TokFloat, Text: text, Pos: start}, nil
	}
	return Token{Kind: TokInt, Text: text, Pos: start}, nil
}

func (t *Tokenizer) readIdentifierOrKeyword(start int) (Token, error) {
	for {
		c, ok := t.peekRune()
		if !ok || !isIdentPart(c) {
			break
		}
		t.pos++
	}
	text := string(t.src[start:t.pos])
	if keywords[strings.ToUpper(text)] {
		return Token{Kind: TokKeyword, Text: strings.ToUpper(text), Pos: start}, nil
	}
	return Token{Kind: TokIdentifier, Text: text, Pos: start}, nil
}

func (t *Tokenizer) readSymbol(start int) (Token, error) {
	if t.pos+1 < len(t.src) {
		two := string(t.src[t.pos : t.pos+2])
		for _, sym := range twoCharSymbols {
			if two == sym {
				t.pos += 2
				return Token{Kind: TokSymbol, Text: two, Pos: start}, nil
			}
		}
	}
	c := t.src[t.pos]
	if strings.ContainsRune(singleCharSymbols, c) {
		t.pos++
		return Token{Kind: TokSymbol, Text: string(c), Pos: start}, nil
	}
	return Token{}, &ParseError{Pos: start, Message: "unexpected character " + string(c)}
}

func isDigit(c rune) bool      { return c >= '0' && c <= '9' }
func isIdentStart(c rune) bool { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isIdentPart(c rune) bool  { return isIdentStart(c) || isDigit(c) }
