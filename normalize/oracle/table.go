package oracle

import (
	"strings"

	"go.mercari.io/schemanorm/internal/sqlscan"
	"go.mercari.io/schemanorm/normalize"
)

var columnKeywords = map[string]bool{
	"CONSTRAINT": true, "NOT": true, "NULL": true, "DEFAULT": true,
	"PRIMARY": true, "UNIQUE": true, "REFERENCES": true, "CHECK": true,
	"GENERATED": true, "AS": true, "VISIBLE": true, "INVISIBLE": true,
	"SORT": true, "ENCRYPT": true, "COLLATE": true, "ENABLE": true,
	"DISABLE": true,
}

func isColumnKeyword(t sqlscan.Token) bool {
	return columnKeywords[strings.ToUpper(t.Value)]
}

func (p *parser) createTable(start sqlscan.Token) error {
	c := p.c
	ifNotExists := c.Accept("IF", "NOT", "EXISTS")
	parts, err := c.QualifiedName()
	if err != nil {
		return err
	}
	if !c.Peek().IsPunct("(") {
		// CREATE TABLE ... AS SELECT and object tables carry no column list
		return nil
	}
	elems, err := p.tableElements()
	if err != nil {
		return err
	}
	return p.b.CreateTable(c.Span(start, c.Prev()), tableName(parts), elems, ifNotExists)
}

func (p *parser) tableElements() ([]normalize.TableConstraint, error) {
	c := p.c
	if err := c.ExpectPunct("("); err != nil {
		return nil, err
	}
	var elems []normalize.TableConstraint
	for {
		elem, err := p.tableElement()
		if err != nil {
			return nil, err
		}
		if elem != nil {
			elems = append(elems, *elem)
		}
		if c.AcceptPunct(",") {
			continue
		}
		if err := c.ExpectPunct(")"); err != nil {
			return nil, err
		}
		return elems, nil
	}
}

func (p *parser) tableElement() (*normalize.TableConstraint, error) {
	c := p.c
	first := c.Peek()

	var name string
	if c.Accept("CONSTRAINT") {
		var err error
		if name, err = c.Ident(); err != nil {
			return nil, err
		}
	}

	tc := &normalize.TableConstraint{Name: name}
	switch {
	case c.Accept("PRIMARY", "KEY"):
		cols, err := c.IndexColumns()
		if err != nil {
			return nil, err
		}
		tc.Kind, tc.Columns = normalize.TablePK, cols
	case c.Accept("UNIQUE"):
		cols, err := c.IndexColumns()
		if err != nil {
			return nil, err
		}
		tc.Kind, tc.Columns = normalize.TableUnique, cols
	case c.Accept("FOREIGN", "KEY"):
		fields, err := c.IdentList()
		if err != nil {
			return nil, err
		}
		ref, err := reference(c, name, fields)
		if err != nil {
			return nil, err
		}
		tc.Kind, tc.Ref = normalize.TableFK, ref
	case c.Accept("CHECK"):
		expr, err := c.Group()
		if err != nil {
			return nil, err
		}
		tc.Kind, tc.Expression = normalize.TableCheck, c.Text(expr)
	case name != "":
		return nil, c.Unexpected("constraint")
	case c.Peek().Is("SUPPLEMENTAL"), c.Peek().Is("PERIOD"):
		c.Item()
		return nil, nil
	default:
		return p.column()
	}

	if err := p.skipConstraintState(); err != nil {
		return nil, err
	}
	tc.Span = c.Span(first, c.Prev())
	return tc, nil
}

func (p *parser) column() (*normalize.TableConstraint, error) {
	c := p.c
	first := c.Peek()
	name, err := c.Ident()
	if err != nil {
		return nil, err
	}
	ft := c.DataType(isColumnKeyword)
	cs, err := p.columnConstraints()
	if err != nil {
		return nil, err
	}
	def := &normalize.FieldDef{
		Name:        name,
		Type:        ft,
		Constraints: cs,
		Span:        c.Span(first, c.Prev()),
	}
	return &normalize.TableConstraint{Kind: normalize.TableField, Field: def, Span: def.Span}, nil
}

func (p *parser) columnConstraints() ([]normalize.ColumnConstraint, error) {
	c := p.c
	var cs []normalize.ColumnConstraint
	for {
		var name string
		if c.Accept("CONSTRAINT") {
			var err error
			if name, err = c.Ident(); err != nil {
				return nil, err
			}
		}

		switch {
		case c.Accept("NOT", "NULL"):
			cs = append(cs, normalize.ColumnConstraint{Kind: normalize.ColumnNotNull, Name: name})
		case c.Accept("NULL"):
			cs = append(cs, normalize.ColumnConstraint{Kind: normalize.ColumnNullable, Name: name})
		case c.Accept("PRIMARY", "KEY"):
			cs = append(cs, normalize.ColumnConstraint{Kind: normalize.ColumnPK, Name: name})
		case c.Accept("UNIQUE"):
			cs = append(cs, normalize.ColumnConstraint{Kind: normalize.ColumnUnique, Name: name})
		case c.Peek().Is("REFERENCES"):
			ref, err := reference(c, name, nil)
			if err != nil {
				return nil, err
			}
			cs = append(cs, normalize.ColumnConstraint{Kind: normalize.ColumnInlineRef, Name: name, Ref: ref})
		case c.Accept("CHECK"):
			expr, err := c.Group()
			if err != nil {
				return nil, err
			}
			cs = append(cs, normalize.ColumnConstraint{Kind: normalize.ColumnCheck, Name: name, Expression: c.Text(expr)})
		case name != "":
			return nil, c.Unexpected("constraint")
		case c.Accept("DEFAULT"):
			onNull := c.Accept("ON", "NULL")
			if onNull {
				if !c.Accept("FOR", "INSERT", "ONLY") {
					c.Accept("FOR", "INSERT", "AND", "UPDATE")
				}
			}
			expr, err := c.Expr()
			if err != nil {
				return nil, err
			}
			cs = append(cs, normalize.ColumnConstraint{Kind: normalize.ColumnDefault, Default: c.Literal(expr)})
			if onNull {
				cs = append(cs, normalize.ColumnConstraint{Kind: normalize.ColumnNotNull})
			}
		case c.Peek().Is("GENERATED"), c.Peek().Is("AS"):
			identity, err := p.generated()
			if err != nil {
				return nil, err
			}
			if identity {
				cs = append(cs, normalize.ColumnConstraint{Kind: normalize.ColumnIncrement})
			}
		case c.Accept("COLLATE"):
			if _, err := c.Ident(); err != nil {
				return nil, err
			}
		case c.Accept("ENCRYPT"):
			if c.Accept("USING") {
				c.Next()
			}
			if c.Accept("IDENTIFIED", "BY") {
				c.Next()
			}
			if c.Peek().Kind == sqlscan.String {
				c.Next()
			}
			c.Accept("NO")
			c.Accept("SALT")
		default:
			if _, ok := c.AcceptAny("VISIBLE", "INVISIBLE", "SORT"); ok {
				continue
			}
			if c.Peek().Is("ENABLE") || c.Peek().Is("DISABLE") || c.Peek().Is("DEFERRABLE") ||
				c.Peek().Is("USING") || c.Peek().Is("INITIALLY") || c.Peek().Is("RELY") ||
				(c.Peek().Is("NOT") && c.PeekN(1).Is("DEFERRABLE")) {
				if err := p.skipConstraintState(); err != nil {
					return nil, err
				}
				continue
			}
			return cs, nil
		}
		if err := p.skipConstraintState(); err != nil {
			return nil, err
		}
	}
}

// generated consumes an identity clause or a virtual column expression and
// reports whether it was an identity.
//
//	GENERATED {ALWAYS | BY DEFAULT [ON NULL]} AS IDENTITY [(options)]
//	[GENERATED ALWAYS] AS (expr) [VIRTUAL]
func (p *parser) generated() (bool, error) {
	c := p.c
	if c.Accept("GENERATED") {
		if !c.Accept("ALWAYS") {
			if err := c.Expect("BY", "DEFAULT"); err != nil {
				return false, err
			}
			c.Accept("ON", "NULL")
		}
	}
	if err := c.Expect("AS"); err != nil {
		return false, err
	}
	if c.Accept("IDENTITY") {
		return true, c.SkipGroup()
	}
	if _, err := c.Group(); err != nil {
		return false, err
	}
	c.Accept("VIRTUAL")
	return false, nil
}

// skipConstraintState skips the state that may follow a constraint:
// ENABLE, NOVALIDATE, DEFERRABLE, USING INDEX ... and so on.
func (p *parser) skipConstraintState() error {
	c := p.c
	for {
		switch {
		case c.Accept("NOT", "DEFERRABLE"):
		case c.Accept("INITIALLY"):
			c.AcceptAny("IMMEDIATE", "DEFERRED")
		case c.Accept("USING", "INDEX"):
			switch {
			case c.Peek().IsPunct("("):
				if err := c.SkipGroup(); err != nil {
					return err
				}
			case c.Peek().IsIdent() && !isStateWord(c.Peek()) && !isAttribute(c.Peek()):
				if _, err := c.QualifiedName(); err != nil {
					return err
				}
			default:
				if err := p.skipAttributes(); err != nil {
					return err
				}
			}
		case c.Accept("EXCEPTIONS", "INTO"):
			if _, err := c.QualifiedName(); err != nil {
				return err
			}
		default:
			if !isStateWord(c.Peek()) {
				return nil
			}
			c.Next()
		}
	}
}

// skipAttributes skips physical attributes of a USING INDEX clause.
func (p *parser) skipAttributes() error {
	c := p.c
	for isAttribute(c.Peek()) {
		w := c.Next()
		switch strings.ToUpper(w.Value) {
		case "LOGGING", "NOLOGGING":
		case "COMPRESS":
			if c.Peek().Kind == sqlscan.Number {
				c.Next()
			}
		case "STORAGE":
			if err := c.SkipGroup(); err != nil {
				return err
			}
		default:
			c.Next()
		}
	}
	return nil
}

func isStateWord(t sqlscan.Token) bool {
	switch strings.ToUpper(t.Value) {
	case "ENABLE", "DISABLE", "VALIDATE", "NOVALIDATE", "DEFERRABLE", "RELY", "NORELY":
		return t.Kind == sqlscan.Word
	}
	return false
}

func isAttribute(t sqlscan.Token) bool {
	switch strings.ToUpper(t.Value) {
	case "TABLESPACE", "PCTFREE", "INITRANS", "MAXTRANS", "COMPRESS", "LOGGING", "NOLOGGING", "STORAGE":
		return t.Kind == sqlscan.Word
	}
	return false
}

func reference(c *sqlscan.Cursor, name string, fields []string) (*normalize.PendingRef, error) {
	r, err := c.Reference()
	if err != nil {
		return nil, err
	}
	target := tableName(r.Table)
	if len(r.Columns) == 0 {
		return nil, normalize.Errorf(c.Span(r.Start, c.Prev()),
			"Foreign key referencing %q must name the referenced columns; implicit referenced columns are not supported", target.String())
	}
	return &normalize.PendingRef{
		Name:       name,
		FieldNames: fields,
		Target:     target,
		TargetKeys: r.Columns,
		OnDelete:   r.OnDelete,
		OnUpdate:   r.OnUpdate,
	}, nil
}
