package spanner

import (
	"github.com/cloudspannerecosystem/memefish/ast"

	"go.mercari.io/schemanorm/models"
	"go.mercari.io/schemanorm/normalize"
)

// createTable maps CREATE TABLE. The PRIMARY KEY clause becomes a pk
// index, which collapses into the field when it has one column. An
// INTERLEAVE IN PARENT clause becomes a reference from the parent key
// columns of the child to the parent.
func (w *walker) createTable(ct *ast.CreateTable) error {
	elems := make([]normalize.TableConstraint, 0, len(ct.Columns)+len(ct.TableConstraints)+1)
	for _, col := range ct.Columns {
		def := w.fieldDef(col)
		elems = append(elems, normalize.TableConstraint{Kind: normalize.TableField, Field: def, Span: def.Span})
	}
	if len(ct.PrimaryKeys) > 0 {
		elems = append(elems, normalize.TableConstraint{
			Kind:    normalize.TablePK,
			Columns: indexKeys(ct.PrimaryKeys),
			Span:    w.span(ct),
		})
	}
	for _, tc := range ct.TableConstraints {
		if elem := w.tableConstraint(tc); elem != nil {
			elems = append(elems, *elem)
		}
	}

	if ct.Cluster != nil {
		ref, err := w.interleave(ct)
		if err != nil {
			return err
		}
		elems = append(elems, normalize.TableConstraint{Kind: normalize.TableFK, Ref: ref, Span: w.span(ct.Cluster)})
	}

	return w.b.CreateTable(w.span(ct), pathName(ct.Name), elems, ct.IfNotExists)
}

// interleave resolves the parent of an interleaved table. The child
// repeats the parent's key columns under the same names.
func (w *walker) interleave(ct *ast.CreateTable) (*normalize.PendingRef, error) {
	parent := pathName(ct.Cluster.TableName)
	t := w.b.FindTable(parent)
	if t == nil {
		return nil, normalize.Errorf(w.span(ct.Cluster), "Table %q not found", parent.String())
	}
	keys := normalize.PrimaryKey(t)
	ref := &normalize.PendingRef{
		FieldNames: keys,
		Target:     normalize.Name{Schema: t.SchemaName, Table: t.Name},
		TargetKeys: keys,
	}
	if ct.Cluster.OnDelete == ast.OnDeleteCascade {
		ref.OnDelete = models.ActionCascade
	}
	return ref, nil
}

func (w *walker) fieldDef(col *ast.ColumnDef) *normalize.FieldDef {
	def := &normalize.FieldDef{
		Name: col.Name.Name,
		Type: models.FieldType{TypeName: col.Type.SQL()},
		Span: w.span(col),
	}
	if col.NotNull {
		def.Constraints = append(def.Constraints, normalize.ColumnConstraint{Kind: normalize.ColumnNotNull})
	}
	switch d := col.DefaultSemantics.(type) {
	case *ast.ColumnDefaultExpr:
		def.Constraints = append(def.Constraints, normalize.ColumnConstraint{
			Kind:    normalize.ColumnDefault,
			Default: literal(d.Expr),
		})
	case *ast.IdentityColumn:
		def.Constraints = append(def.Constraints, normalize.ColumnConstraint{Kind: normalize.ColumnIncrement})
	}
	return def
}

func (w *walker) tableConstraint(tc *ast.TableConstraint) *normalize.TableConstraint {
	elem := &normalize.TableConstraint{Span: w.span(tc)}
	if tc.Name != nil {
		elem.Name = tc.Name.Name
	}
	switch c := tc.Constraint.(type) {
	case *ast.ForeignKey:
		elem.Kind = normalize.TableFK
		elem.Ref = &normalize.PendingRef{
			Name:       elem.Name,
			FieldNames: identNames(c.Columns),
			Target:     pathName(c.ReferenceTable),
			TargetKeys: identNames(c.ReferenceColumns),
			OnDelete:   onDelete(c.OnDelete),
		}
	case *ast.Check:
		elem.Kind = normalize.TableCheck
		elem.Expression = c.Expr.SQL()
	default:
		return nil
	}
	return elem
}

func onDelete(a ast.OnDeleteAction) string {
	switch a {
	case ast.OnDeleteCascade:
		return models.ActionCascade
	case ast.OnDeleteNoAction:
		return models.ActionNoAction
	}
	return ""
}

func indexKeys(keys []*ast.IndexKey) []models.IndexColumn {
	cols := make([]models.IndexColumn, 0, len(keys))
	for _, k := range keys {
		cols = append(cols, models.ColumnKey(k.Name.Name))
	}
	return cols
}

// createIndex maps CREATE [UNIQUE] [NULL_FILTERED] INDEX. STORING columns
// are not keys and are left out.
func (w *walker) createIndex(ci *ast.CreateIndex) error {
	idx := &models.Index{
		Name:    pathName(ci.Name).Table,
		Unique:  ci.Unique,
		Columns: indexKeys(ci.Keys),
	}
	return w.b.CreateIndex(w.span(ci), pathName(ci.TableName), idx)
}

// alterTable maps ADD COLUMN, ADD [CONSTRAINT] and ALTER COLUMN type
// changes. Other alterations only require the table to exist.
func (w *walker) alterTable(at *ast.AlterTable) error {
	name := pathName(at.Name)
	var clauses []normalize.AlterClause
	switch a := at.TableAlteration.(type) {
	case *ast.AddColumn:
		if a.IfNotExists && normalize.FindColumn(w.b.FindTable(name), a.Column.Name.Name) != nil {
			return nil
		}
		def := w.fieldDef(a.Column)
		tc := &normalize.TableConstraint{Kind: normalize.TableField, Field: def, Span: def.Span}
		clauses = append(clauses, normalize.AlterClause{Table: tc, Span: def.Span})
	case *ast.AddTableConstraint:
		if tc := w.tableConstraint(a.TableConstraint); tc != nil {
			clauses = append(clauses, normalize.AlterClause{Table: tc, Span: tc.Span})
		}
	case *ast.AlterColumn:
		clause := normalize.AlterClause{Column: a.Name.Name, Span: w.span(a)}
		if t, ok := a.Alteration.(*ast.AlterColumnType); ok {
			ft := models.FieldType{TypeName: t.Type.SQL()}
			clause.Type = &ft
			if t.NotNull {
				clause.Constraints = append(clause.Constraints, normalize.ColumnConstraint{Kind: normalize.ColumnNotNull})
			} else {
				clause.Constraints = append(clause.Constraints, normalize.ColumnConstraint{Kind: normalize.ColumnNullable})
			}
		}
		clauses = append(clauses, clause)
	}
	return w.b.AlterTable(w.spanAt(at.Pos(), at.Name.End()), name, clauses)
}
