package normalize

import (
	"go.mercari.io/schemanorm/models"
)

// NewField builds a Field from a column definition and returns the inline
// references it declared, still unbound.
func NewField(def *FieldDef) (*models.Field, []*PendingRef) {
	f := &models.Field{
		Name: def.Name,
		Type: def.Type,
	}
	refs := ApplyColumnConstraints(f, def.Constraints)
	return f, refs
}

// ApplyColumnConstraints folds classified column constraints into f in
// order and returns the inline references among them.
func ApplyColumnConstraints(f *models.Field, cs []ColumnConstraint) []*PendingRef {
	var refs []*PendingRef
	for _, c := range cs {
		switch c.Kind {
		case ColumnNotNull:
			f.NotNull = true
		case ColumnNullable:
			f.NotNull = false
		case ColumnPK:
			setPK(f)
		case ColumnUnique:
			setUnique(f)
		case ColumnIncrement:
			f.Increment = true
		case ColumnDefault:
			f.Default = c.Default.DefaultValue()
		case ColumnCheck:
			f.Checks = append(f.Checks, &models.Check{Name: c.Name, Expression: c.Expression})
		case ColumnNote:
			f.Note = c.Note
		case ColumnInlineRef:
			if c.Ref != nil {
				refs = append(refs, c.Ref)
			}
		}
	}
	return refs
}

// setPK marks f as primary key. A primary key is implicitly unique, so the
// unique flag is cleared, on every path and in every dialect.
func setPK(f *models.Field) {
	f.PK = true
	f.Unique = false
}

func setUnique(f *models.Field) {
	if f.PK {
		return
	}
	f.Unique = true
}

// newIndex builds an Index from an index, unique, or pk table constraint.
func newIndex(tc *TableConstraint) *models.Index {
	return &models.Index{
		Name:    tc.Name,
		Columns: append([]models.IndexColumn(nil), tc.Columns...),
		Unique:  tc.Kind == TableUnique,
		PK:      tc.Kind == TablePK,
		Type:    tc.IndexType,
	}
}

// collapseIndex folds a single-column unique or primary key index into the
// flags of the matching field. It reports whether the index was folded;
// expression keys and unknown columns are never folded.
func collapseIndex(t *models.Table, idx *models.Index) bool {
	if !idx.Unique && !idx.PK {
		return false
	}
	if len(idx.Columns) != 1 || idx.Columns[0].Type != models.IndexColumnName {
		return false
	}
	f := FindColumn(t, idx.Columns[0].Value)
	if f == nil {
		return false
	}
	if idx.PK {
		setPK(f)
	} else {
		setUnique(f)
	}
	return true
}

// addIndex appends idx to t unless it collapses into a field.
func addIndex(t *models.Table, idx *models.Index) {
	if collapseIndex(t, idx) {
		return
	}
	t.Indexes = append(t.Indexes, idx)
}
