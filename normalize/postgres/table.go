package postgres

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"go.mercari.io/schemanorm/models"
	"go.mercari.io/schemanorm/normalize"
)

func (w *walker) createTable(stmt *pg_query.CreateStmt) error {
	elts := stmt.GetTableElts()
	elems := make([]normalize.TableConstraint, 0, len(elts))
	for i, elt := range elts {
		next := w.end
		if i+1 < len(elts) {
			next = location(elts[i+1])
		}
		tc, err := w.tableElement(elt, next)
		if err != nil {
			return err
		}
		if tc != nil {
			elems = append(elems, *tc)
		}
	}
	span := w.span(-1)
	return w.b.CreateTable(span, rangeVarName(stmt.GetRelation()), elems, stmt.GetIfNotExists())
}

func location(node *pg_query.Node) int {
	switch n := node.GetNode().(type) {
	case *pg_query.Node_ColumnDef:
		return int(n.ColumnDef.GetLocation())
	case *pg_query.Node_Constraint:
		return int(n.Constraint.GetLocation())
	}
	return -1
}

// tableElement classifies a column definition or a table constraint. next
// is the offset where the following element starts.
func (w *walker) tableElement(node *pg_query.Node, next int) (*normalize.TableConstraint, error) {
	switch n := node.GetNode().(type) {
	case *pg_query.Node_ColumnDef:
		def, err := w.fieldDef(n.ColumnDef, next)
		if err != nil {
			return nil, err
		}
		return &normalize.TableConstraint{Kind: normalize.TableField, Field: def, Span: def.Span}, nil
	case *pg_query.Node_Constraint:
		return w.tableConstraint(n.Constraint, next)
	}
	return nil, nil
}

func (w *walker) fieldDef(col *pg_query.ColumnDef, next int) (*normalize.FieldDef, error) {
	def := &normalize.FieldDef{
		Name: col.GetColname(),
		Span: w.between(int(col.GetLocation()), next),
	}
	if tn := col.GetTypeName(); tn != nil {
		ft, serial := fieldType(tn)
		def.Type = ft
		if serial {
			def.Constraints = append(def.Constraints, normalize.ColumnConstraint{Kind: normalize.ColumnIncrement})
		}
	}
	if col.GetIsNotNull() {
		def.Constraints = append(def.Constraints, normalize.ColumnConstraint{Kind: normalize.ColumnNotNull})
	}
	for _, node := range col.GetConstraints() {
		c := node.GetConstraint()
		if c == nil {
			continue
		}
		cc, err := w.columnConstraint(c)
		if err != nil {
			return nil, err
		}
		if cc != nil {
			def.Constraints = append(def.Constraints, *cc)
		}
	}
	return def, nil
}

func (w *walker) columnConstraint(c *pg_query.Constraint) (*normalize.ColumnConstraint, error) {
	cc := &normalize.ColumnConstraint{Name: c.GetConname()}
	switch c.GetContype() {
	case pg_query.ConstrType_CONSTR_NULL:
		cc.Kind = normalize.ColumnNullable
	case pg_query.ConstrType_CONSTR_NOTNULL:
		cc.Kind = normalize.ColumnNotNull
	case pg_query.ConstrType_CONSTR_DEFAULT:
		cc.Kind, cc.Default = normalize.ColumnDefault, literal(c.GetRawExpr())
	case pg_query.ConstrType_CONSTR_IDENTITY:
		cc.Kind = normalize.ColumnIncrement
	case pg_query.ConstrType_CONSTR_PRIMARY:
		cc.Kind = normalize.ColumnPK
	case pg_query.ConstrType_CONSTR_UNIQUE:
		cc.Kind = normalize.ColumnUnique
	case pg_query.ConstrType_CONSTR_CHECK:
		cc.Kind, cc.Expression = normalize.ColumnCheck, deparse(c.GetRawExpr())
	case pg_query.ConstrType_CONSTR_FOREIGN:
		ref, err := w.reference(c, nil)
		if err != nil {
			return nil, err
		}
		cc.Kind, cc.Ref = normalize.ColumnInlineRef, ref
	default:
		return nil, nil
	}
	return cc, nil
}

func (w *walker) tableConstraint(c *pg_query.Constraint, next int) (*normalize.TableConstraint, error) {
	tc := &normalize.TableConstraint{
		Name: c.GetConname(),
		Span: w.between(int(c.GetLocation()), next),
	}
	switch c.GetContype() {
	case pg_query.ConstrType_CONSTR_PRIMARY:
		tc.Kind, tc.Columns = normalize.TablePK, keys(c.GetKeys())
	case pg_query.ConstrType_CONSTR_UNIQUE:
		tc.Kind, tc.Columns = normalize.TableUnique, keys(c.GetKeys())
	case pg_query.ConstrType_CONSTR_CHECK:
		tc.Kind, tc.Expression = normalize.TableCheck, deparse(c.GetRawExpr())
	case pg_query.ConstrType_CONSTR_FOREIGN:
		ref, err := w.reference(c, names(c.GetFkAttrs()))
		if err != nil {
			return nil, err
		}
		tc.Kind, tc.Ref = normalize.TableFK, ref
	default:
		return nil, nil
	}
	return tc, nil
}

func keys(nodes []*pg_query.Node) []models.IndexColumn {
	cols := make([]models.IndexColumn, 0, len(nodes))
	for _, name := range names(nodes) {
		cols = append(cols, models.ColumnKey(name))
	}
	return cols
}

func (w *walker) reference(c *pg_query.Constraint, fields []string) (*normalize.PendingRef, error) {
	target := rangeVarName(c.GetPktable())
	targetKeys := names(c.GetPkAttrs())
	if len(targetKeys) == 0 {
		return nil, normalize.Errorf(w.span(c.GetLocation()),
			"Foreign key referencing %q must name the referenced columns; implicit referenced columns are not supported", target.String())
	}
	return &normalize.PendingRef{
		Name:       c.GetConname(),
		FieldNames: fields,
		Target:     target,
		TargetKeys: targetKeys,
		OnDelete:   action(c.GetFkDelAction()),
		OnUpdate:   action(c.GetFkUpdAction()),
	}, nil
}

// alterTable handles the column and constraint commands of ALTER TABLE.
// Commands that do not change the schema model are resolved but ignored.
func (w *walker) alterTable(stmt *pg_query.AlterTableStmt) error {
	if stmt.GetObjtype() != pg_query.ObjectType_OBJECT_TABLE {
		return nil
	}
	name := rangeVarName(stmt.GetRelation())
	if stmt.GetMissingOk() && w.b.FindTable(name) == nil {
		return nil
	}

	var clauses []normalize.AlterClause
	for _, node := range stmt.GetCmds() {
		cmd := node.GetAlterTableCmd()
		if cmd == nil {
			continue
		}
		clause, err := w.alterClause(cmd)
		if err != nil {
			return err
		}
		if clause != nil {
			clauses = append(clauses, *clause)
		}
	}
	return w.b.AlterTable(w.span(stmt.GetRelation().GetLocation()), name, clauses)
}

func (w *walker) alterClause(cmd *pg_query.AlterTableCmd) (*normalize.AlterClause, error) {
	span := w.span(-1)
	column := func(cs ...normalize.ColumnConstraint) *normalize.AlterClause {
		return &normalize.AlterClause{Column: cmd.GetName(), Constraints: cs, Span: span}
	}

	switch cmd.GetSubtype() {
	case pg_query.AlterTableType_AT_AddColumn:
		col := cmd.GetDef().GetColumnDef()
		if col == nil {
			return nil, nil
		}
		def, err := w.fieldDef(col, w.end)
		if err != nil {
			return nil, err
		}
		tc := &normalize.TableConstraint{Kind: normalize.TableField, Field: def, Span: def.Span}
		return &normalize.AlterClause{Table: tc, Span: def.Span}, nil
	case pg_query.AlterTableType_AT_AddConstraint:
		c := cmd.GetDef().GetConstraint()
		if c == nil {
			return nil, nil
		}
		tc, err := w.tableConstraint(c, w.end)
		if err != nil || tc == nil {
			return nil, err
		}
		return &normalize.AlterClause{Table: tc, Span: tc.Span}, nil
	case pg_query.AlterTableType_AT_ColumnDefault:
		if cmd.GetDef() == nil {
			// DROP DEFAULT leaves the recorded default alone
			return column(), nil
		}
		return column(normalize.ColumnConstraint{Kind: normalize.ColumnDefault, Default: literal(cmd.GetDef())}), nil
	case pg_query.AlterTableType_AT_SetNotNull:
		return column(normalize.ColumnConstraint{Kind: normalize.ColumnNotNull}), nil
	case pg_query.AlterTableType_AT_DropNotNull:
		return column(normalize.ColumnConstraint{Kind: normalize.ColumnNullable}), nil
	case pg_query.AlterTableType_AT_AlterColumnType:
		clause := column()
		if tn := cmd.GetDef().GetColumnDef().GetTypeName(); tn != nil {
			ft, _ := fieldType(tn)
			clause.Type = &ft
		}
		return clause, nil
	}
	return nil, nil
}
