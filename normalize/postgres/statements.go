package postgres

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"go.mercari.io/schemanorm/models"
)

// createIndex attaches CREATE INDEX to its table. Access methods other
// than btree are kept as the index type.
func (w *walker) createIndex(stmt *pg_query.IndexStmt) error {
	idx := &models.Index{
		Name:   stmt.GetIdxname(),
		Unique: stmt.GetUnique(),
		PK:     stmt.GetPrimary(),
	}
	if m := stmt.GetAccessMethod(); m != "" && m != "btree" {
		idx.Type = m
	}
	for _, node := range stmt.GetIndexParams() {
		elem := node.GetIndexElem()
		if elem == nil {
			continue
		}
		if elem.GetName() != "" {
			idx.Columns = append(idx.Columns, models.ColumnKey(elem.GetName()))
			continue
		}
		idx.Columns = append(idx.Columns, models.ExpressionKey(deparse(elem.GetExpr())))
	}
	return w.b.CreateIndex(w.span(stmt.GetRelation().GetLocation()), rangeVarName(stmt.GetRelation()), idx)
}

// comment handles COMMENT ON TABLE and COMMENT ON COLUMN. COMMENT ... IS
// NULL clears the note.
func (w *walker) comment(stmt *pg_query.CommentStmt) error {
	parts := flatten(stmt.GetObject())
	switch stmt.GetObjtype() {
	case pg_query.ObjectType_OBJECT_TABLE:
		if len(parts) == 0 {
			return nil
		}
		return w.b.CommentOnTable(w.span(-1), qualified(parts), stmt.GetComment())
	case pg_query.ObjectType_OBJECT_COLUMN:
		if len(parts) < 2 {
			return nil
		}
		table := qualified(parts[:len(parts)-1])
		return w.b.CommentOnColumn(w.span(-1), table, parts[len(parts)-1], stmt.GetComment())
	}
	return nil
}

// flatten collects the String items of an object name, which pg_query
// gives as a possibly nested List.
func flatten(node *pg_query.Node) []string {
	switch n := node.GetNode().(type) {
	case *pg_query.Node_String_:
		return []string{n.String_.GetSval()}
	case *pg_query.Node_List:
		var out []string
		for _, item := range n.List.GetItems() {
			out = append(out, flatten(item)...)
		}
		return out
	}
	return nil
}

func (w *walker) createEnum(stmt *pg_query.CreateEnumStmt) {
	name := qualified(names(stmt.GetTypeName()))
	e := &models.Enum{
		Name:       name.Table,
		SchemaName: name.Schema,
		Values:     []*models.EnumValue{},
	}
	for _, v := range names(stmt.GetVals()) {
		e.Values = append(e.Values, &models.EnumValue{Name: v})
	}
	w.b.AddEnum(e)
}

// insert records INSERT ... VALUES rows. Other insert sources are ignored.
func (w *walker) insert(stmt *pg_query.InsertStmt) {
	values := stmt.GetSelectStmt().GetSelectStmt().GetValuesLists()
	if len(values) == 0 {
		return
	}

	var cols []string
	for _, node := range stmt.GetCols() {
		if rt := node.GetResTarget(); rt != nil {
			cols = append(cols, rt.GetName())
		}
	}

	rows := make([][]*models.Value, 0, len(values))
	for _, list := range values {
		cells := list.GetList().GetItems()
		row := make([]*models.Value, 0, len(cells))
		ok := true
		for _, cell := range cells {
			v, valid := recordValue(cell)
			if !valid {
				ok = false
				break
			}
			row = append(row, v)
		}
		if ok {
			rows = append(rows, row)
		}
	}
	w.b.AddRecords(rangeVarName(stmt.GetRelation()), cols, rows)
}
