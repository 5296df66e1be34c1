package oracle

import (
	"errors"
	"strings"

	oracleparser "github.com/sjjian/oracle-sql-parser"
	"github.com/sjjian/oracle-sql-parser/ast"
	"github.com/sjjian/oracle-sql-parser/ast/element"

	"go.mercari.io/schemanorm/internal/sqlscan"
	"go.mercari.io/schemanorm/models"
	"go.mercari.io/schemanorm/normalize"
)

// errTreeShape means the syntax tree and the statement tokens disagree.
// The statement is then read from its tokens alone.
var errTreeShape = errors.New("syntax tree does not match statement tokens")

// tokenOnly lists words that put a table statement outside the library
// grammar: CHECK constraints, identity and virtual columns, IF NOT EXISTS,
// column encryption, supplemental logging and periods.
var tokenOnly = map[string]bool{
	"CHECK": true, "GENERATED": true, "IDENTITY": true, "AS": true,
	"VIRTUAL": true, "IF": true, "ENCRYPT": true, "SUPPLEMENTAL": true,
	"PERIOD": true,
}

// parseTree parses the statement with the Oracle grammar library. It
// returns nil when the statement is outside that grammar.
func (p *parser) parseTree() ast.Node {
	if p.tokensOnly {
		return nil
	}
	toks := p.stmt.Toks[:len(p.stmt.Toks)-1]
	for _, t := range toks {
		if t.Kind == sqlscan.Word && tokenOnly[strings.ToUpper(t.Value)] {
			return nil
		}
	}
	nodes, err := oracleparser.Parser(p.c.Text(toks))
	if err != nil || len(nodes) != 1 {
		return nil
	}
	return nodes[0]
}

// createTableTree builds a table from a parsed CREATE TABLE. The tree
// decides what each element is. Names, types, defaults and reference
// targets keep their source spelling from the element tokens.
func (p *parser) createTableTree(start sqlscan.Token, stmt *ast.CreateTableStmt) error {
	c := p.c
	parts, err := c.QualifiedName()
	if err != nil {
		return err
	}
	if stmt.RelTable == nil || !c.Peek().IsPunct("(") {
		return nil
	}
	items, err := p.items()
	if err != nil {
		return err
	}
	cols, cons := splitItems(items)

	var elems []normalize.TableConstraint
	for _, def := range stmt.RelTable.TableStructs {
		switch d := def.(type) {
		case *ast.ColumnDef:
			item, err := columnItem(cols, d.ColumnName)
			if err != nil {
				return err
			}
			elem, err := p.columnTree(d, item)
			if err != nil {
				return err
			}
			elems = append(elems, *elem)
		case *ast.OutOfLineConstraint:
			if len(cons) == 0 {
				return errTreeShape
			}
			elem, err := p.constraintTree(d, cons[0])
			if err != nil {
				return err
			}
			cons = cons[1:]
			if elem != nil {
				elems = append(elems, *elem)
			}
		}
	}
	return p.b.CreateTable(c.Span(start, c.Prev()), tableName(parts), elems, false)
}

// alterTableTree applies the ADD and MODIFY clauses of a parsed ALTER TABLE.
func (p *parser) alterTableTree(start sqlscan.Token, stmt *ast.AlterTableStmt) error {
	c := p.c
	parts, err := c.QualifiedName()
	if err != nil {
		return err
	}
	items, err := p.alterItems()
	if err != nil {
		return err
	}
	cols, cons := splitItems(items)

	var clauses []normalize.AlterClause
	for _, clause := range stmt.ColumnClauses {
		switch cl := clause.(type) {
		case *ast.AddColumnClause:
			for _, d := range cl.Columns {
				item, err := columnItem(cols, d.ColumnName)
				if err != nil {
					return err
				}
				elem, err := p.columnTree(d, item)
				if err != nil {
					return err
				}
				clauses = append(clauses, normalize.AlterClause{Table: elem, Span: elem.Span})
			}
		case *ast.ModifyColumnClause:
			for _, d := range cl.Columns {
				item, err := columnItem(cols, d.ColumnName)
				if err != nil {
					return err
				}
				ac, err := p.modifyTree(d, item)
				if err != nil {
					return err
				}
				clauses = append(clauses, *ac)
			}
		}
	}
	for _, clause := range stmt.ConstraintClauses {
		cl, ok := clause.(*ast.AddConstraintClause)
		if !ok {
			continue
		}
		for _, d := range cl.Constraints {
			if len(cons) == 0 {
				return errTreeShape
			}
			elem, err := p.constraintTree(d, cons[0])
			if err != nil {
				return err
			}
			cons = cons[1:]
			if elem != nil {
				clauses = append(clauses, normalize.AlterClause{Table: elem, Span: elem.Span})
			}
		}
	}
	c.SkipRest()
	return p.b.AlterTable(c.Span(start, c.Prev()), tableName(parts), clauses)
}

func (p *parser) columnTree(d *ast.ColumnDef, item []sqlscan.Token) (*normalize.TableConstraint, error) {
	sub := p.c.Sub(item)
	sub.Next()
	ft := sub.DataType(isColumnKeyword)
	cs, err := columnConstraintsTree(sub, d)
	if err != nil {
		return nil, err
	}
	def := &normalize.FieldDef{
		Name:        item[0].Value,
		Type:        ft,
		Constraints: cs,
		Span:        p.c.Span(item[0], item[len(item)-1]),
	}
	return &normalize.TableConstraint{Kind: normalize.TableField, Field: def, Span: def.Span}, nil
}

func (p *parser) modifyTree(d *ast.ColumnDef, item []sqlscan.Token) (*normalize.AlterClause, error) {
	sub := p.c.Sub(item)
	sub.Next()
	ac := &normalize.AlterClause{
		Column: item[0].Value,
		Span:   p.c.Span(item[0], item[len(item)-1]),
	}
	if ft := sub.DataType(isColumnKeyword); ft.TypeName != "" {
		ac.Type = &ft
	}
	cs, err := columnConstraintsTree(sub, d)
	if err != nil {
		return nil, err
	}
	ac.Constraints = cs
	return ac, nil
}

// columnConstraintsTree turns the default and the inline constraints of d
// into column constraints. sub is positioned after the column type.
func columnConstraintsTree(sub *sqlscan.Cursor, d *ast.ColumnDef) ([]normalize.ColumnConstraint, error) {
	var cs []normalize.ColumnConstraint
	if d.Default != nil {
		mark := sub.Mark()
		if !sub.Seek("DEFAULT") {
			return nil, errTreeShape
		}
		sub.Next()
		if sub.Accept("ON", "NULL") && !sub.Accept("FOR", "INSERT", "ONLY") {
			sub.Accept("FOR", "INSERT", "AND", "UPDATE")
		}
		expr, err := sub.Expr()
		if err != nil {
			return nil, err
		}
		cs = append(cs, normalize.ColumnConstraint{Kind: normalize.ColumnDefault, Default: sub.Literal(expr)})
		if d.Default.OnNull {
			cs = append(cs, normalize.ColumnConstraint{Kind: normalize.ColumnNotNull})
		}
		sub.Reset(mark)
	}

	for _, ic := range d.Constraints {
		name := ident(ic.Name)
		switch ic.Type {
		case ast.ConstraintTypeNotNull:
			cs = append(cs, normalize.ColumnConstraint{Kind: normalize.ColumnNotNull, Name: name})
		case ast.ConstraintTypeNull:
			cs = append(cs, normalize.ColumnConstraint{Kind: normalize.ColumnNullable, Name: name})
		case ast.ConstraintTypePK:
			cs = append(cs, normalize.ColumnConstraint{Kind: normalize.ColumnPK, Name: name})
		case ast.ConstraintTypeUnique:
			cs = append(cs, normalize.ColumnConstraint{Kind: normalize.ColumnUnique, Name: name})
		case ast.ConstraintTypeReferences:
			mark := sub.Mark()
			if !sub.Seek("REFERENCES") {
				return nil, errTreeShape
			}
			ref, err := reference(sub, name, nil)
			if err != nil {
				return nil, err
			}
			sub.Reset(mark)
			cs = append(cs, normalize.ColumnConstraint{Kind: normalize.ColumnInlineRef, Name: name, Ref: ref})
		}
	}
	return cs, nil
}

func (p *parser) constraintTree(d *ast.OutOfLineConstraint, item []sqlscan.Token) (*normalize.TableConstraint, error) {
	tc := &normalize.TableConstraint{
		Name: ident(d.Name),
		Span: p.c.Span(item[0], item[len(item)-1]),
	}
	var cols []string
	for _, col := range d.Columns {
		cols = append(cols, ident(col))
	}
	switch d.Type {
	case ast.ConstraintTypePK:
		tc.Kind, tc.Columns = normalize.TablePK, keys(cols)
	case ast.ConstraintTypeUnique:
		tc.Kind, tc.Columns = normalize.TableUnique, keys(cols)
	case ast.ConstraintTypeReferences:
		sub := p.c.Sub(item)
		if !sub.Seek("REFERENCES") {
			return nil, errTreeShape
		}
		ref, err := reference(sub, tc.Name, cols)
		if err != nil {
			return nil, err
		}
		tc.Kind, tc.Ref = normalize.TableFK, ref
	default:
		return nil, nil
	}
	return tc, nil
}

// items consumes a parenthesized element list and returns each element's
// tokens.
func (p *parser) items() ([][]sqlscan.Token, error) {
	c := p.c
	if err := c.ExpectPunct("("); err != nil {
		return nil, err
	}
	var items [][]sqlscan.Token
	for {
		if item := c.Item(); len(item) > 0 {
			items = append(items, item)
		}
		if c.AcceptPunct(",") {
			continue
		}
		if err := c.ExpectPunct(")"); err != nil {
			return nil, err
		}
		return items, nil
	}
}

// alterItems collects the elements named by the ADD and MODIFY clauses of
// an ALTER TABLE. MODIFY CONSTRAINT and the other clauses are skipped.
func (p *parser) alterItems() ([][]sqlscan.Token, error) {
	c := p.c
	var items [][]sqlscan.Token
	for !c.Done() {
		switch {
		case c.Accept("ADD"):
		case c.Peek().Is("MODIFY") && !isConstraintStart(c.PeekN(1)):
			c.Next()
		default:
			c.Next()
			continue
		}
		if c.Peek().IsPunct("(") {
			group, err := p.items()
			if err != nil {
				return nil, err
			}
			items = append(items, group...)
			continue
		}
		if item := c.Item("ADD", "MODIFY", "DROP", "RENAME"); len(item) > 0 {
			items = append(items, item)
		}
	}
	return items, nil
}

// splitItems separates column elements from constraint elements, both in
// source order.
func splitItems(items [][]sqlscan.Token) (cols, cons [][]sqlscan.Token) {
	for _, item := range items {
		switch strings.ToUpper(item[0].Value) {
		case "CONSTRAINT", "PRIMARY", "UNIQUE", "FOREIGN":
			if item[0].Kind == sqlscan.Word {
				cons = append(cons, item)
				continue
			}
		}
		cols = append(cols, item)
	}
	return cols, cons
}

func columnItem(cols [][]sqlscan.Token, name *element.Identifier) ([]sqlscan.Token, error) {
	want := ident(name)
	for _, item := range cols {
		if item[0].Value == want || (item[0].Kind == sqlscan.Word && strings.EqualFold(item[0].Value, want)) {
			return item, nil
		}
	}
	return nil, errTreeShape
}

func keys(cols []string) []models.IndexColumn {
	out := make([]models.IndexColumn, 0, len(cols))
	for _, col := range cols {
		out = append(out, models.ColumnKey(col))
	}
	return out
}

// ident returns the name held by id without surrounding double quotes.
func ident(id *element.Identifier) string {
	if id == nil {
		return ""
	}
	v := id.Value
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		return strings.ReplaceAll(v[1:len(v)-1], `""`, `"`)
	}
	return v
}
