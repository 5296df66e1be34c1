package mssql

import (
	"strings"

	"github.com/ha1tch/aul/pkg/tsqlparser/ast"

	"go.mercari.io/schemanorm/internal/sqlscan"
	"go.mercari.io/schemanorm/models"
	"go.mercari.io/schemanorm/normalize"
)

// alterTable handles ALTER TABLE ... ADD and ALTER TABLE ... ALTER COLUMN.
// Other actions still require the table to exist but change nothing.
func (p *parser) alterTable(start sqlscan.Token) error {
	c := p.c
	parts, err := c.QualifiedName()
	if err != nil {
		return err
	}
	if !c.Accept("WITH", "CHECK") {
		c.Accept("WITH", "NOCHECK")
	}

	var clauses []normalize.AlterClause
	switch {
	case c.Accept("ADD"):
		for {
			elem, err := p.tableElement()
			if err != nil {
				return err
			}
			if elem != nil {
				clauses = append(clauses, normalize.AlterClause{Table: elem, Span: elem.Span})
			}
			if !c.AcceptPunct(",") {
				break
			}
		}
	case c.Accept("ALTER", "COLUMN"):
		first := c.Peek()
		col, err := c.Ident()
		if err != nil {
			return err
		}
		clause := normalize.AlterClause{Column: col}
		if ft := c.DataType(isColumnKeyword); ft.TypeName != "" {
			clause.Type = &ft
		}
		if clause.Constraints, err = p.columnConstraints(); err != nil {
			return err
		}
		clause.Span = c.Span(first, c.Prev())
		clauses = append(clauses, clause)
	}

	return p.b.AlterTable(c.Span(start, c.Prev()), tableName(parts), clauses)
}

// createIndex handles
// CREATE [UNIQUE] [CLUSTERED|NONCLUSTERED] [COLUMNSTORE] INDEX n ON t (cols).
func (p *parser) createIndex(start sqlscan.Token) error {
	c := p.c
	unique := c.Accept("UNIQUE")
	c.AcceptAny("CLUSTERED", "NONCLUSTERED")
	columnstore := c.Accept("COLUMNSTORE")
	if err := c.Expect("INDEX"); err != nil {
		return err
	}
	name, err := c.Ident()
	if err != nil {
		return err
	}
	if err := c.Expect("ON"); err != nil {
		return err
	}
	parts, err := c.QualifiedName()
	if err != nil {
		return err
	}

	idx := &models.Index{Name: name, Unique: unique}
	if columnstore {
		idx.Type = "columnstore"
	}
	if c.Peek().IsPunct("(") {
		if idx.Columns, err = c.IndexColumns(); err != nil {
			return err
		}
	}
	p.skipIndexOptions()
	if len(idx.Columns) == 0 {
		// a clustered columnstore index covers the whole table
		return nil
	}
	return p.b.CreateIndex(c.Span(start, c.Prev()), tableName(parts), idx)
}

// insert handles INSERT [INTO] t [(cols)] VALUES (...), ... and ignores
// other insert sources.
func (p *parser) insert() error {
	c := p.c
	start := c.Next()
	c.Accept("INTO")
	parts, err := c.QualifiedName()
	if err != nil {
		return err
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
	var values [][]*models.Value
	if stmt, ok := p.parseTree([]sqlscan.Token{start, c.Prev()}).(*ast.InsertStatement); ok && len(stmt.Values) == len(rows) {
		values = treeRows(stmt)
	} else {
		values = c.Rows(rows)
	}
	p.b.AddRecords(tableName(parts), cols, values)
	return nil
}

var propertyParams = []string{
	"name", "value",
	"level0type", "level0name",
	"level1type", "level1name",
	"level2type", "level2name",
}

// exec turns MS_Description extended properties into notes. Every other
// procedure call is ignored.
func (p *parser) exec() error {
	c := p.c
	start := c.Next()
	if !c.Peek().IsIdent() {
		return nil
	}
	parts, err := c.QualifiedName()
	if err != nil {
		return err
	}
	proc := strings.ToLower(parts[len(parts)-1])
	if proc != "sp_addextendedproperty" && proc != "sp_updateextendedproperty" {
		return nil
	}

	args := map[string]string{}
	for i := 0; !c.Done(); i++ {
		key := ""
		if t := c.Peek(); t.Kind == sqlscan.Variable && c.PeekN(1).IsPunct("=") {
			key = strings.ToLower(strings.TrimLeft(t.Value, "@"))
			c.Next()
			c.Next()
		} else if i < len(propertyParams) {
			key = propertyParams[i]
		}
		value := argValue(c, c.Item())
		if key != "" {
			args[key] = value
		}
		if !c.AcceptPunct(",") {
			break
		}
	}

	if !strings.EqualFold(args["name"], "MS_Description") ||
		!strings.EqualFold(args["level0type"], "SCHEMA") ||
		!strings.EqualFold(args["level1type"], "TABLE") {
		return nil
	}
	table := normalize.Name{Schema: args["level0name"], Table: args["level1name"]}
	span := c.Span(start, c.Prev())
	switch {
	case args["level2type"] == "":
		return p.b.CommentOnTable(span, table, args["value"])
	case strings.EqualFold(args["level2type"], "COLUMN"):
		return p.b.CommentOnColumn(span, table, args["level2name"], args["value"])
	}
	return nil
}

func argValue(c *sqlscan.Cursor, toks []sqlscan.Token) string {
	if len(toks) == 1 {
		switch t := toks[0]; {
		case t.Is("NULL"):
			return ""
		case t.Kind == sqlscan.String, t.IsIdent():
			return t.Value
		}
	}
	return c.Text(toks)
}
