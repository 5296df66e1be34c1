package oracle

import (
	"go.mercari.io/schemanorm/internal/sqlscan"
	"go.mercari.io/schemanorm/models"
	"go.mercari.io/schemanorm/normalize"
)

// alterTable handles any number of ADD and MODIFY clauses. Other actions
// still require the table to exist but change nothing.
func (p *parser) alterTable(start sqlscan.Token) error {
	c := p.c
	parts, err := c.QualifiedName()
	if err != nil {
		return err
	}

	var clauses []normalize.AlterClause
loop:
	for {
		switch {
		case c.Accept("ADD"):
			elems, err := p.elementsOrOne()
			if err != nil {
				return err
			}
			for i := range elems {
				clauses = append(clauses, normalize.AlterClause{Table: &elems[i], Span: elems[i].Span})
			}
		case c.Peek().Is("MODIFY") && !isConstraintStart(c.PeekN(1)):
			c.Next()
			mods, err := p.modifyClauses()
			if err != nil {
				return err
			}
			clauses = append(clauses, mods...)
		default:
			break loop
		}
	}

	return p.b.AlterTable(c.Span(start, c.Prev()), tableName(parts), clauses)
}

func isConstraintStart(t sqlscan.Token) bool {
	return t.Is("CONSTRAINT") || t.Is("PRIMARY") || t.Is("UNIQUE")
}

// elementsOrOne parses "(elem, ...)" or a single bare element.
func (p *parser) elementsOrOne() ([]normalize.TableConstraint, error) {
	if p.c.Peek().IsPunct("(") {
		return p.tableElements()
	}
	elem, err := p.tableElement()
	if err != nil || elem == nil {
		return nil, err
	}
	return []normalize.TableConstraint{*elem}, nil
}

// modifyClauses parses "(col [type] [props], ...)" or a single column.
func (p *parser) modifyClauses() ([]normalize.AlterClause, error) {
	c := p.c
	paren := c.AcceptPunct("(")
	var clauses []normalize.AlterClause
	for {
		first := c.Peek()
		col, err := c.Ident()
		if err != nil {
			return nil, err
		}
		clause := normalize.AlterClause{Column: col}
		if ft := c.DataType(isColumnKeyword); ft.TypeName != "" {
			clause.Type = &ft
		}
		if clause.Constraints, err = p.columnConstraints(); err != nil {
			return nil, err
		}
		clause.Span = c.Span(first, c.Prev())
		clauses = append(clauses, clause)

		if !paren || !c.AcceptPunct(",") {
			break
		}
	}
	if paren {
		if err := c.ExpectPunct(")"); err != nil {
			return nil, err
		}
	}
	return clauses, nil
}

// createIndex handles CREATE [UNIQUE|BITMAP] INDEX n ON t (keys).
func (p *parser) createIndex(start sqlscan.Token) error {
	c := p.c
	idx := &models.Index{}
	switch {
	case c.Accept("UNIQUE"):
		idx.Unique = true
	case c.Accept("BITMAP"):
		idx.Type = "bitmap"
	}
	if err := c.Expect("INDEX"); err != nil {
		return err
	}
	c.Accept("IF", "NOT", "EXISTS")
	name, err := c.QualifiedName()
	if err != nil {
		return err
	}
	idx.Name = name[len(name)-1]
	if err := c.Expect("ON"); err != nil {
		return err
	}
	if c.Peek().Is("CLUSTER") {
		// cluster indexes have no column list
		return nil
	}
	parts, err := c.QualifiedName()
	if err != nil {
		return err
	}
	if idx.Columns, err = c.IndexColumns(); err != nil {
		return err
	}
	return p.b.CreateIndex(c.Span(start, c.Prev()), tableName(parts), idx)
}

// comment handles COMMENT ON TABLE t IS '...' and COMMENT ON COLUMN t.c IS '...'.
func (p *parser) comment(start sqlscan.Token) error {
	c := p.c
	switch {
	case c.Accept("TABLE"):
		parts, err := c.QualifiedName()
		if err != nil {
			return err
		}
		note, err := p.commentText()
		if err != nil {
			return err
		}
		return p.b.CommentOnTable(c.Span(start, c.Prev()), tableName(parts), note)
	case c.Accept("COLUMN"):
		parts, err := c.QualifiedName()
		if err != nil {
			return err
		}
		if len(parts) < 2 {
			return c.Errorf(start, "Column comment must name a table and a column")
		}
		note, err := p.commentText()
		if err != nil {
			return err
		}
		table := tableName(parts[:len(parts)-1])
		return p.b.CommentOnColumn(c.Span(start, c.Prev()), table, parts[len(parts)-1], note)
	}
	return nil
}

func (p *parser) commentText() (string, error) {
	c := p.c
	if err := c.Expect("IS"); err != nil {
		return "", err
	}
	t := c.Peek()
	if t.Kind != sqlscan.String {
		return "", c.Unexpected("string")
	}
	c.Next()
	return t.Value, nil
}

// insert handles INSERT INTO t [(cols)] VALUES (...) and the multi-table
// INSERT ALL INTO ... VALUES (...) ... SELECT ... FROM dual.
func (p *parser) insert() error {
	c := p.c
	c.Next()
	if c.Accept("ALL") {
		for c.Accept("INTO") {
			if err := p.insertInto(); err != nil {
				return err
			}
		}
		return nil
	}
	if !c.Accept("INTO") {
		return nil
	}
	return p.insertInto()
}

func (p *parser) insertInto() error {
	c := p.c
	parts, err := c.QualifiedName()
	if err != nil {
		return err
	}
	if t := c.Peek(); t.Kind == sqlscan.Word && !t.Is("VALUES") && !t.Is("SELECT") && !t.Is("INTO") {
		// table alias
		c.Next()
	}
	var cols []string
	if c.Peek().IsPunct("(") {
		if cols, err = c.IdentList(); err != nil {
			return err
		}
	}
	if !c.Accept("VALUES") {
		return nil
	}
	rows, err := c.Values()
	if err != nil {
		return err
	}
	p.b.AddRecords(tableName(parts), cols, c.Rows(rows))
	return nil
}
