package sqlscan

import (
	"strings"

	"go.mercari.io/schemanorm/models"
)

// DataType consumes a column type such as "NUMBER(10, 2)",
// "[dbo].[money_t]" or "TIMESTAMP(6) WITH TIME ZONE". The type ends at ","
// or ")" at depth zero, at a non-word token, or at a word for which stop
// reports true. An absent type yields an empty TypeName.
func (c *Cursor) DataType(stop func(Token) bool) models.FieldType {
	start := c.pos
	for {
		t := c.Peek()
		if t.IsPunct("(") {
			if c.pos == start {
				break
			}
			if err := c.SkipGroup(); err != nil {
				c.Reset(start)
				return models.FieldType{}
			}
			continue
		}
		if t.IsPunct(".") && c.pos > start {
			c.Next()
			continue
		}
		if !t.IsIdent() || (t.Kind == Word && stop(t)) {
			break
		}
		c.Next()
	}

	toks := c.toks[start:c.pos]
	var ft models.FieldType
	if len(toks) >= 3 && toks[0].IsIdent() && toks[1].IsPunct(".") && toks[2].IsIdent() {
		ft.SchemaName = toks[0].Value
		toks = toks[2:]
	}
	ft.TypeName = c.typeText(toks)
	return ft
}

// typeText renders type tokens with quotes removed and words separated by
// one space. Punctuation gets no space except after a closing parenthesis.
func (c *Cursor) typeText(toks []Token) string {
	var sb strings.Builder
	for i, t := range toks {
		if i > 0 && isWordy(t) && (isWordy(toks[i-1]) || toks[i-1].IsPunct(")")) {
			sb.WriteByte(' ')
		}
		switch t.Kind {
		case QuotedIdent, String:
			sb.WriteString(t.Value)
		default:
			sb.WriteString(c.src.Slice(t.Offset, t.End))
		}
	}
	return sb.String()
}

func isWordy(t Token) bool {
	return t.Kind == Word || t.Kind == QuotedIdent || t.Kind == Number
}

var binaryOps = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "%": true, "||": true,
}

// Expr consumes a scalar expression made of operands joined by arithmetic
// or concatenation operators, and returns its tokens. An operand is a
// parenthesized group, a literal, or a possibly qualified name optionally
// followed by call arguments, each with an optional sign.
func (c *Cursor) Expr() ([]Token, error) {
	start := c.pos
	for {
		if err := c.operand(); err != nil {
			return nil, err
		}
		t := c.Peek()
		if t.Kind != Punct || !binaryOps[t.Value] {
			break
		}
		c.Next()
	}
	return c.toks[start:c.pos], nil
}

func (c *Cursor) operand() error {
	for c.Peek().IsPunct("-") || c.Peek().IsPunct("+") {
		c.Next()
	}
	t := c.Peek()
	switch {
	case t.IsPunct("("):
		return c.SkipGroup()
	case t.Kind == String, t.Kind == Number, t.Kind == Hex, t.Kind == Variable:
		c.Next()
		return nil
	case t.IsIdent():
		if _, err := c.QualifiedName(); err != nil {
			return err
		}
		return c.SkipGroup()
	}
	return c.Unexpected("expression")
}

// IndexColumns consumes "(key, ...)". A key that is a bare column name
// becomes a column key; anything else is kept as an expression. ASC and
// DESC are dropped.
func (c *Cursor) IndexColumns() ([]models.IndexColumn, error) {
	if err := c.ExpectPunct("("); err != nil {
		return nil, err
	}
	var cols []models.IndexColumn
	for {
		item := c.Item()
		if n := len(item); n > 1 && (item[n-1].Is("ASC") || item[n-1].Is("DESC")) {
			item = item[:n-1]
		}
		switch {
		case len(item) == 0:
			return nil, c.Unexpected("index key")
		case len(item) == 1 && item[0].IsIdent():
			cols = append(cols, models.ColumnKey(item[0].Value))
		default:
			cols = append(cols, models.ExpressionKey(c.Text(unwrap(item))))
		}
		if c.AcceptPunct(",") {
			continue
		}
		if err := c.ExpectPunct(")"); err != nil {
			return nil, err
		}
		return cols, nil
	}
}

// References is a parsed REFERENCES clause.
type References struct {
	Table    []string // qualified name parts
	Columns  []string // nil when the clause names no columns
	OnDelete string
	OnUpdate string
	Start    Token
}

// Reference consumes "REFERENCES name [(cols)] [ON DELETE a] [ON UPDATE a]".
func (c *Cursor) Reference() (*References, error) {
	ref := &References{Start: c.Peek()}
	if err := c.Expect("REFERENCES"); err != nil {
		return nil, err
	}
	name, err := c.QualifiedName()
	if err != nil {
		return nil, err
	}
	ref.Table = name
	if c.Peek().IsPunct("(") {
		if ref.Columns, err = c.IdentList(); err != nil {
			return nil, err
		}
	}
	for c.Peek().Is("ON") {
		switch {
		case c.Accept("ON", "DELETE"):
			if ref.OnDelete, err = c.action(); err != nil {
				return nil, err
			}
		case c.Accept("ON", "UPDATE"):
			if ref.OnUpdate, err = c.action(); err != nil {
				return nil, err
			}
		default:
			return ref, nil
		}
	}
	return ref, nil
}

func (c *Cursor) action() (string, error) {
	switch {
	case c.Accept("CASCADE"):
		return models.ActionCascade, nil
	case c.Accept("SET", "NULL"):
		return models.ActionSetNull, nil
	case c.Accept("SET", "DEFAULT"):
		return models.ActionSetDefault, nil
	case c.Accept("RESTRICT"):
		return models.ActionRestrict, nil
	case c.Accept("NO", "ACTION"):
		return models.ActionNoAction, nil
	}
	return "", c.Unexpected("referential action")
}

// Values consumes "(v, ...), (v, ...)" and returns the cell tokens of
// each row.
func (c *Cursor) Values() ([][][]Token, error) {
	var rows [][][]Token
	for {
		if err := c.ExpectPunct("("); err != nil {
			return nil, err
		}
		var row [][]Token
		for {
			row = append(row, c.Item())
			if c.AcceptPunct(",") {
				continue
			}
			if err := c.ExpectPunct(")"); err != nil {
				return nil, err
			}
			break
		}
		rows = append(rows, row)
		if !c.AcceptPunct(",") {
			return rows, nil
		}
	}
}

// Rows decodes VALUES rows into record cells. A row with a cell that
// cannot be a record value is dropped.
func (c *Cursor) Rows(rows [][][]Token) [][]*models.Value {
	out := make([][]*models.Value, 0, len(rows))
	for _, row := range rows {
		cells := make([]*models.Value, 0, len(row))
		ok := true
		for _, cell := range row {
			v, valid := c.RecordValue(cell)
			if !valid {
				ok = false
				break
			}
			cells = append(cells, v)
		}
		if ok {
			out = append(out, cells)
		}
	}
	return out
}
