package sqlscan

import (
	"go.mercari.io/schemanorm/models"
	"go.mercari.io/schemanorm/normalize"
)

// Literal decodes the tokens of one expression. Parentheses wrapping the
// whole expression are removed first, so T-SQL's "((0))" is the number 0.
// Only a lone literal token or a signed number is a literal; anything else
// is an expression carrying its source text.
func (c *Cursor) Literal(toks []Token) normalize.Literal {
	toks = unwrap(toks)
	if len(toks) == 0 {
		return normalize.Literal{Kind: normalize.LiteralExpression}
	}

	if len(toks) == 1 {
		t := toks[0]
		switch {
		case t.Kind == String:
			return normalize.Literal{Kind: normalize.LiteralString, Text: t.Value}
		case t.Kind == Number:
			return normalize.Literal{Kind: normalize.LiteralNumber, Text: t.Value}
		case t.Is("NULL"):
			return normalize.Literal{Kind: normalize.LiteralNull, Text: t.Value}
		case t.Is("TRUE"), t.Is("FALSE"):
			return normalize.Literal{Kind: normalize.LiteralBoolean, Text: t.Value}
		case t.IsIdent():
			return normalize.Literal{Kind: normalize.LiteralIdentifier, Text: c.Text(toks)}
		}
	}

	if len(toks) == 2 && toks[1].Kind == Number && (toks[0].IsPunct("-") || toks[0].IsPunct("+")) {
		text := toks[1].Value
		if toks[0].IsPunct("-") {
			text = "-" + text
		}
		return normalize.Literal{Kind: normalize.LiteralNumber, Text: text}
	}

	return normalize.Literal{Kind: normalize.LiteralExpression, Text: c.Text(toks)}
}

// RecordValue decodes one VALUES cell. It reports false for cells a seed
// record cannot hold: empty cells, DEFAULT placeholders and subqueries.
func (c *Cursor) RecordValue(toks []Token) (*models.Value, bool) {
	inner := unwrap(toks)
	if len(inner) == 0 {
		return nil, false
	}
	if len(inner) == 1 && inner[0].Is("DEFAULT") {
		return nil, false
	}
	for _, t := range inner {
		if t.Is("SELECT") {
			return nil, false
		}
	}
	return c.Literal(toks).RecordValue(), true
}

// ParseLiteral decodes a default expression given as text, such as the
// COLUMN_DEFAULT of an information schema. A trailing "::type" cast is
// dropped, so the catalog spelling 'a'::text decodes to the string a.
func ParseLiteral(text string, d Dialect) normalize.Literal {
	src := normalize.NewSource(text)
	toks, err := Lex(src, d)
	if err != nil || len(toks) < 2 {
		return normalize.Literal{Kind: normalize.LiteralExpression, Text: text}
	}
	toks = toks[:len(toks)-1]

	depth := 0
cast:
	for i, t := range toks {
		switch {
		case t.IsPunct("("):
			depth++
		case t.IsPunct(")"):
			depth--
		case t.IsPunct("::") && depth == 0 && i > 0:
			toks = toks[:i]
			break cast
		}
	}

	end := toks[len(toks)-1].End
	stmt := Statement{Toks: append(toks, Token{Kind: EOF, Offset: end, End: end})}
	c := NewCursor(src, stmt)
	return c.Literal(toks)
}

// unwrap strips parentheses that enclose the whole token run.
func unwrap(toks []Token) []Token {
	for len(toks) >= 2 && toks[0].IsPunct("(") && toks[len(toks)-1].IsPunct(")") && closes(toks) {
		toks = toks[1 : len(toks)-1]
	}
	return toks
}

// closes reports whether the opening parenthesis of toks is matched by its
// last token.
func closes(toks []Token) bool {
	depth := 0
	for i, t := range toks {
		switch {
		case t.IsPunct("("):
			depth++
		case t.IsPunct(")"):
			depth--
			if depth == 0 {
				return i == len(toks)-1
			}
		}
	}
	return false
}
