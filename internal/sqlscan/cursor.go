package sqlscan

import (
	"strings"

	"go.mercari.io/schemanorm/normalize"
)

// Cursor walks the tokens of one statement.
type Cursor struct {
	src  *normalize.Source
	toks []Token
	pos  int
}

// NewCursor returns a Cursor over stmt.
func NewCursor(src *normalize.Source, stmt Statement) *Cursor {
	return &Cursor{src: src, toks: stmt.Toks}
}

// Peek returns the current token without consuming it.
func (c *Cursor) Peek() Token {
	return c.PeekN(0)
}

// PeekN returns the token n positions ahead. Past the end it returns the
// final EOF token.
func (c *Cursor) PeekN(n int) Token {
	if c.pos+n < len(c.toks) {
		return c.toks[c.pos+n]
	}
	return c.toks[len(c.toks)-1]
}

// Next consumes and returns the current token.
func (c *Cursor) Next() Token {
	t := c.Peek()
	if c.pos < len(c.toks)-1 {
		c.pos++
	}
	return t
}

// Prev returns the most recently consumed token.
func (c *Cursor) Prev() Token {
	if c.pos == 0 {
		return c.toks[0]
	}
	return c.toks[c.pos-1]
}

// Done reports whether only EOF is left.
func (c *Cursor) Done() bool {
	return c.Peek().Kind == EOF
}

// Mark returns the current position for Reset.
func (c *Cursor) Mark() int { return c.pos }

// Reset rewinds the cursor to a position returned by Mark.
func (c *Cursor) Reset(mark int) { c.pos = mark }

// Accept consumes the keyword sequence kws if the input starts with it.
func (c *Cursor) Accept(kws ...string) bool {
	for i, kw := range kws {
		if !c.PeekN(i).Is(kw) {
			return false
		}
	}
	c.pos += len(kws)
	return true
}

// AcceptAny consumes one keyword among kws and returns it upper-cased.
func (c *Cursor) AcceptAny(kws ...string) (string, bool) {
	for _, kw := range kws {
		if c.Peek().Is(kw) {
			c.Next()
			return strings.ToUpper(kw), true
		}
	}
	return "", false
}

// AcceptPunct consumes p if it is the current token.
func (c *Cursor) AcceptPunct(p string) bool {
	if c.Peek().IsPunct(p) {
		c.Next()
		return true
	}
	return false
}

// Expect consumes the keyword sequence kws or fails.
func (c *Cursor) Expect(kws ...string) error {
	if c.Accept(kws...) {
		return nil
	}
	return c.Unexpected(strings.Join(kws, " "))
}

// ExpectPunct consumes p or fails.
func (c *Cursor) ExpectPunct(p string) error {
	if c.AcceptPunct(p) {
		return nil
	}
	return c.Unexpected(p)
}

// Ident consumes an identifier and returns its name.
func (c *Cursor) Ident() (string, error) {
	t := c.Peek()
	if !t.IsIdent() {
		return "", c.Unexpected("identifier")
	}
	c.Next()
	return t.Value, nil
}

// QualifiedName consumes a dotted name and returns its parts. Empty parts,
// as in T-SQL "db..table", are kept as empty strings.
func (c *Cursor) QualifiedName() ([]string, error) {
	first, err := c.Ident()
	if err != nil {
		return nil, err
	}
	parts := []string{first}
	for c.Peek().IsPunct(".") {
		c.Next()
		if c.Peek().IsPunct(".") {
			parts = append(parts, "")
			continue
		}
		part, err := c.Ident()
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	return parts, nil
}

// IdentList consumes "(a, b, ...)" and returns the names. Each name may be
// followed by ASC or DESC, which is dropped.
func (c *Cursor) IdentList() ([]string, error) {
	if err := c.ExpectPunct("("); err != nil {
		return nil, err
	}
	var names []string
	for {
		name, err := c.Ident()
		if err != nil {
			return nil, err
		}
		names = append(names, name)
		c.AcceptAny("ASC", "DESC")
		if c.AcceptPunct(",") {
			continue
		}
		if err := c.ExpectPunct(")"); err != nil {
			return nil, err
		}
		return names, nil
	}
}

// Group consumes a balanced parenthesized group and returns the tokens
// between the parentheses.
func (c *Cursor) Group() ([]Token, error) {
	open := c.Peek()
	if err := c.ExpectPunct("("); err != nil {
		return nil, err
	}
	start := c.pos
	depth := 1
	for {
		t := c.Peek()
		switch {
		case t.Kind == EOF:
			return nil, c.src.Errorf(open.Offset, t.Offset, "Unbalanced parenthesis")
		case t.IsPunct("("):
			depth++
		case t.IsPunct(")"):
			depth--
			if depth == 0 {
				inner := c.toks[start:c.pos]
				c.Next()
				return inner, nil
			}
		}
		c.Next()
	}
}

// SkipGroup consumes a parenthesized group if one starts here.
func (c *Cursor) SkipGroup() error {
	if !c.Peek().IsPunct("(") {
		return nil
	}
	_, err := c.Group()
	return err
}

// Item consumes tokens up to, but not including, the next "," or ")" at
// nesting depth zero, or up to a keyword in stop at depth zero.
func (c *Cursor) Item(stop ...string) []Token {
	start := c.pos
	depth := 0
loop:
	for {
		t := c.Peek()
		switch {
		case t.Kind == EOF:
			break loop
		case t.IsPunct("("):
			depth++
		case t.IsPunct(")"):
			if depth == 0 {
				break loop
			}
			depth--
		case t.IsPunct(",") && depth == 0:
			break loop
		case depth == 0 && t.Kind == Word:
			for _, kw := range stop {
				if t.Is(kw) {
					break loop
				}
			}
		}
		c.Next()
	}
	return c.toks[start:c.pos]
}

// Sub returns a Cursor over toks, a run taken from c. The new cursor ends
// with its own EOF token.
func (c *Cursor) Sub(toks []Token) *Cursor {
	end := c.Peek().Offset
	if len(toks) > 0 {
		end = toks[len(toks)-1].End
	}
	run := make([]Token, len(toks), len(toks)+1)
	copy(run, toks)
	run = append(run, Token{Kind: EOF, Offset: end, End: end})
	return &Cursor{src: c.src, toks: run}
}

// Seek moves to the first keyword kw outside parentheses and reports
// whether it found one. When it does not, the cursor stays where it was.
func (c *Cursor) Seek(kw string) bool {
	mark := c.pos
	depth := 0
	for !c.Done() {
		t := c.Peek()
		switch {
		case t.IsPunct("("):
			depth++
		case t.IsPunct(")"):
			depth--
		case depth == 0 && t.Is(kw):
			return true
		}
		c.Next()
	}
	c.Reset(mark)
	return false
}

// Tokens returns the consumed tokens from mark up to the current position.
func (c *Cursor) Tokens(mark int) []Token {
	return c.toks[mark:c.pos]
}

// SkipRest consumes everything up to EOF.
func (c *Cursor) SkipRest() {
	for !c.Done() {
		c.Next()
	}
}

// Text returns the source text covered by toks.
func (c *Cursor) Text(toks []Token) string {
	if len(toks) == 0 {
		return ""
	}
	return c.src.Slice(toks[0].Offset, toks[len(toks)-1].End)
}

// Span returns the source span from token from to token to, inclusive.
func (c *Cursor) Span(from, to Token) normalize.Span {
	return c.src.Span(from.Offset, to.End)
}

// Errorf returns an Error located at token t.
func (c *Cursor) Errorf(t Token, format string, args ...interface{}) *normalize.Error {
	return c.src.Errorf(t.Offset, t.End, format, args...)
}

// Unexpected returns a syntax error at the current token.
func (c *Cursor) Unexpected(want string) *normalize.Error {
	t := c.Peek()
	if t.Kind == EOF {
		return c.Errorf(t, "Expected %s but reached the end of the statement", want)
	}
	return c.Errorf(t, "Expected %s but found %q", want, c.src.Slice(t.Offset, t.End))
}
