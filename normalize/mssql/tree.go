package mssql

import (
	"strings"

	"github.com/ha1tch/aul/pkg/tsqlparser"
	"github.com/ha1tch/aul/pkg/tsqlparser/ast"

	"go.mercari.io/schemanorm/internal/sqlscan"
	"go.mercari.io/schemanorm/models"
)

// parseTree parses the statement spelled by toks with the T-SQL grammar
// library. It returns nil when the library rejects the text.
func (p *parser) parseTree(toks []sqlscan.Token) ast.Statement {
	if p.tokensOnly {
		return nil
	}
	program, errs := tsqlparser.Parse(p.c.Text(toks))
	if len(errs) > 0 || program == nil || len(program.Statements) != 1 {
		return nil
	}
	return program.Statements[0]
}

// typedColumns reports, for each column of a parsed CREATE TABLE in order,
// whether it declares a data type. Computed columns do not.
func typedColumns(stmt *ast.CreateTableStatement) []bool {
	typed := make([]bool, 0, len(stmt.Columns))
	for _, col := range stmt.Columns {
		typed = append(typed, col.DataType != nil)
	}
	return typed
}

// countColumns consumes a table body and counts its column definitions.
func countColumns(c *sqlscan.Cursor) (int, error) {
	if !c.AcceptPunct("(") {
		return 0, nil
	}
	n := 0
	for {
		if item := c.Item(); len(item) > 0 && isColumnItem(item[0]) {
			n++
		}
		if c.AcceptPunct(",") {
			continue
		}
		return n, c.ExpectPunct(")")
	}
}

func isColumnItem(t sqlscan.Token) bool {
	if !t.IsIdent() {
		return false
	}
	if t.Kind == sqlscan.QuotedIdent {
		return true
	}
	switch strings.ToUpper(t.Value) {
	case "CONSTRAINT", "PRIMARY", "UNIQUE", "FOREIGN", "CHECK", "INDEX", "PERIOD":
		return false
	}
	return true
}

// nextColumn pops the tree's verdict for the next column. ok is false when
// the table was not parsed by the library.
func (p *parser) nextColumn() (typed, ok bool) {
	if len(p.typed) == 0 {
		return false, false
	}
	typed = p.typed[0]
	p.typed = p.typed[1:]
	return typed, true
}

// treeRows decodes the VALUES rows of a parsed INSERT. A row with a cell
// that cannot be a record value is dropped.
func treeRows(stmt *ast.InsertStatement) [][]*models.Value {
	out := make([][]*models.Value, 0, len(stmt.Values))
	for _, row := range stmt.Values {
		cells := make([]*models.Value, 0, len(row))
		for _, e := range row {
			v, ok := treeValue(e)
			if !ok {
				cells = nil
				break
			}
			cells = append(cells, v)
		}
		if cells != nil {
			out = append(out, cells)
		}
	}
	return out
}

func treeValue(e ast.Expression) (*models.Value, bool) {
	switch e := e.(type) {
	case nil:
		return nil, false
	case *ast.StringLiteral:
		return models.StringValue(e.Value), true
	case *ast.IntegerLiteral:
		return models.NumberValue(e.Token.Literal), true
	case *ast.SubqueryExpression:
		return nil, false
	}
	text := e.String()
	upper := strings.ToUpper(text)
	if upper == "DEFAULT" || strings.Contains(upper, "SELECT") {
		return nil, false
	}
	return sqlscan.ParseLiteral(text, sqlscan.TSQL).RecordValue(), true
}
