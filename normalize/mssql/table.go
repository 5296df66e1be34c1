package mssql

import (
	"strings"

	"github.com/ha1tch/aul/pkg/tsqlparser/ast"

	"go.mercari.io/schemanorm/internal/sqlscan"
	"go.mercari.io/schemanorm/models"
	"go.mercari.io/schemanorm/normalize"
)

var columnKeywords = map[string]bool{
	"CONSTRAINT": true, "NOT": true, "NULL": true, "DEFAULT": true,
	"PRIMARY": true, "UNIQUE": true, "REFERENCES": true, "FOREIGN": true,
	"CHECK": true, "IDENTITY": true, "COLLATE": true, "AS": true,
	"ROWGUIDCOL": true, "SPARSE": true, "FILESTREAM": true, "MASKED": true,
	"ENCRYPTED": true, "GENERATED": true, "INDEX": true, "WITH": true,
	"PERSISTED": true,
}

func isColumnKeyword(t sqlscan.Token) bool {
	return columnKeywords[strings.ToUpper(t.Value)]
}

func (p *parser) createTable(start sqlscan.Token) error {
	c := p.c
	parts, err := c.QualifiedName()
	if err != nil {
		return err
	}

	body := c.Mark()
	n, err := countColumns(c)
	if err != nil {
		return err
	}
	if stmt, ok := p.parseTree([]sqlscan.Token{start, c.Prev()}).(*ast.CreateTableStatement); ok {
		if typed := typedColumns(stmt); len(typed) == n {
			p.typed = typed
		}
	}
	c.Reset(body)

	elems, err := p.tableElements()
	p.typed = nil
	if err != nil {
		return err
	}
	span := c.Span(start, c.Prev())
	return p.b.CreateTable(span, tableName(parts), elems, false)
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
			if c.Peek().IsPunct(")") {
				c.Next()
				return elems, nil
			}
			continue
		}
		if err := c.ExpectPunct(")"); err != nil {
			return nil, err
		}
		return elems, nil
	}
}

// tableElement classifies one element of a table body or of ALTER TABLE
// ADD. It returns nil for elements with no place in the document, such as
// PERIOD FOR SYSTEM_TIME.
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
		c.AcceptAny("CLUSTERED", "NONCLUSTERED")
		cols, err := c.IndexColumns()
		if err != nil {
			return nil, err
		}
		p.skipIndexOptions()
		tc.Kind, tc.Columns = normalize.TablePK, cols
	case c.Accept("UNIQUE"):
		c.AcceptAny("CLUSTERED", "NONCLUSTERED")
		cols, err := c.IndexColumns()
		if err != nil {
			return nil, err
		}
		p.skipIndexOptions()
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
		c.Accept("NOT", "FOR", "REPLICATION")
		expr, err := c.Group()
		if err != nil {
			return nil, err
		}
		tc.Kind, tc.Expression = normalize.TableCheck, c.Text(expr)
	case c.Accept("DEFAULT"):
		expr, err := c.Expr()
		if err != nil {
			return nil, err
		}
		if err := c.Expect("FOR"); err != nil {
			return nil, err
		}
		col, err := c.Ident()
		if err != nil {
			return nil, err
		}
		tc.Kind, tc.Column, tc.Default = normalize.TableDefault, col, c.Literal(expr)
	case name == "" && c.Accept("INDEX"):
		return p.inlineIndex(first)
	case name == "" && c.Accept("PERIOD", "FOR", "SYSTEM_TIME"):
		return nil, c.SkipGroup()
	case name != "":
		return nil, c.Unexpected("constraint")
	default:
		return p.column()
	}

	tc.Span = c.Span(first, c.Prev())
	return tc, nil
}

// inlineIndex handles "INDEX name [UNIQUE] [CLUSTERED|NONCLUSTERED] (cols)".
func (p *parser) inlineIndex(first sqlscan.Token) (*normalize.TableConstraint, error) {
	c := p.c
	name, err := c.Ident()
	if err != nil {
		return nil, err
	}
	kind := normalize.TableIndex
	if c.Accept("UNIQUE") {
		kind = normalize.TableUnique
	}
	c.AcceptAny("CLUSTERED", "NONCLUSTERED")
	var indexType string
	if c.Accept("COLUMNSTORE") {
		indexType = "columnstore"
		if !c.Peek().IsPunct("(") {
			p.skipIndexOptions()
			return nil, nil
		}
	}
	cols, err := c.IndexColumns()
	if err != nil {
		return nil, err
	}
	p.skipIndexOptions()
	return &normalize.TableConstraint{
		Kind:      kind,
		Name:      name,
		Columns:   cols,
		IndexType: indexType,
		Span:      c.Span(first, c.Prev()),
	}, nil
}

func (p *parser) column() (*normalize.TableConstraint, error) {
	c := p.c
	first := c.Peek()
	name, err := c.Ident()
	if err != nil {
		return nil, err
	}
	var ft models.FieldType
	if typed, ok := p.nextColumn(); typed || !ok {
		ft = c.DataType(isColumnKeyword)
	}
	if c.Accept("AS") {
		// computed columns have no type and fail in the builder
		if _, err := c.Expr(); err != nil {
			return nil, err
		}
		c.Accept("PERSISTED")
	}
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
			c.AcceptAny("CLUSTERED", "NONCLUSTERED")
			p.skipIndexOptions()
			cs = append(cs, normalize.ColumnConstraint{Kind: normalize.ColumnPK, Name: name})
		case c.Accept("UNIQUE"):
			c.AcceptAny("CLUSTERED", "NONCLUSTERED")
			p.skipIndexOptions()
			cs = append(cs, normalize.ColumnConstraint{Kind: normalize.ColumnUnique, Name: name})
		case c.Accept("IDENTITY"):
			if err := c.SkipGroup(); err != nil {
				return nil, err
			}
			cs = append(cs, normalize.ColumnConstraint{Kind: normalize.ColumnIncrement, Name: name})
		case c.Accept("DEFAULT"):
			expr, err := c.Expr()
			if err != nil {
				return nil, err
			}
			c.Accept("WITH", "VALUES")
			cs = append(cs, normalize.ColumnConstraint{Kind: normalize.ColumnDefault, Name: name, Default: c.Literal(expr)})
		case c.Peek().Is("FOREIGN"), c.Peek().Is("REFERENCES"):
			c.Accept("FOREIGN", "KEY")
			ref, err := reference(c, name, nil)
			if err != nil {
				return nil, err
			}
			cs = append(cs, normalize.ColumnConstraint{Kind: normalize.ColumnInlineRef, Name: name, Ref: ref})
		case c.Accept("CHECK"):
			c.Accept("NOT", "FOR", "REPLICATION")
			expr, err := c.Group()
			if err != nil {
				return nil, err
			}
			cs = append(cs, normalize.ColumnConstraint{Kind: normalize.ColumnCheck, Name: name, Expression: c.Text(expr)})
		case name != "":
			return nil, c.Unexpected("constraint")
		case c.Accept("COLLATE"):
			if _, err := c.Ident(); err != nil {
				return nil, err
			}
		case c.Accept("NOT", "FOR", "REPLICATION"):
		case c.Accept("MASKED", "WITH"), c.Accept("ENCRYPTED", "WITH"):
			if err := c.SkipGroup(); err != nil {
				return nil, err
			}
		case c.Accept("GENERATED", "ALWAYS", "AS"):
			for {
				if _, ok := c.AcceptAny("ROW", "TRANSACTION_ID", "SEQUENCE_NUMBER", "START", "END", "HIDDEN"); !ok {
					break
				}
			}
		case c.Accept("INDEX"):
			if _, err := c.Ident(); err != nil {
				return nil, err
			}
			c.AcceptAny("CLUSTERED", "NONCLUSTERED")
			p.skipIndexOptions()
		default:
			if _, ok := c.AcceptAny("ROWGUIDCOL", "SPARSE", "FILESTREAM", "PERSISTED", "HIDDEN"); ok {
				continue
			}
			return cs, nil
		}
	}
}

// reference parses a REFERENCES clause into an unbound ref. fields are the
// referencing columns of a table-level constraint.
func reference(c *sqlscan.Cursor, name string, fields []string) (*normalize.PendingRef, error) {
	r, err := c.Reference()
	if err != nil {
		return nil, err
	}
	c.Accept("NOT", "FOR", "REPLICATION")
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

// skipIndexOptions skips storage options that may trail an index or key
// definition: WITH (...), ON filegroup, INCLUDE (...), WHERE filter.
func (p *parser) skipIndexOptions() {
	c := p.c
	for {
		switch {
		case c.Accept("WITH"):
			if c.Peek().IsPunct("(") {
				if c.SkipGroup() != nil {
					return
				}
				continue
			}
			c.Item("ON")
		case c.Accept("INCLUDE"):
			if c.SkipGroup() != nil {
				return
			}
		case c.Accept("WHERE"):
			c.Item("WITH", "ON")
		case c.Peek().Is("ON") && !c.PeekN(1).Is("DELETE") && !c.PeekN(1).Is("UPDATE"):
			c.Next()
			if _, err := c.QualifiedName(); err != nil {
				return
			}
			if c.SkipGroup() != nil {
				return
			}
		case c.Accept("TEXTIMAGE_ON"), c.Accept("FILESTREAM_ON"):
			if _, err := c.Ident(); err != nil {
				return
			}
		default:
			return
		}
	}
}
