package normalize

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"go.mercari.io/schemanorm/models"
)

func TestApplyColumnConstraints(t *testing.T) {
	ref := &PendingRef{Target: Name{Table: "p"}, TargetKeys: []string{"id"}}

	tests := []struct {
		name     string
		cs       []ColumnConstraint
		want     *models.Field
		wantRefs int
	}{
		{
			name: "unique then pk",
			cs:   []ColumnConstraint{{Kind: ColumnUnique}, {Kind: ColumnPK}},
			want: &models.Field{Name: "c", PK: true},
		},
		{
			name: "pk then unique",
			cs:   []ColumnConstraint{{Kind: ColumnPK}, {Kind: ColumnUnique}},
			want: &models.Field{Name: "c", PK: true},
		},
		{
			name: "last nullability wins",
			cs:   []ColumnConstraint{{Kind: ColumnNotNull}, {Kind: ColumnNullable}},
			want: &models.Field{Name: "c"},
		},
		{
			name: "checks accumulate",
			cs: []ColumnConstraint{
				{Kind: ColumnCheck, Expression: "c > 0"},
				{Kind: ColumnCheck, Name: "ck", Expression: "c < 9"},
				{Kind: ColumnNote, Note: "hi"},
			},
			want: &models.Field{
				Name:   "c",
				Checks: []*models.Check{{Expression: "c > 0"}, {Name: "ck", Expression: "c < 9"}},
				Note:   "hi",
			},
		},
		{
			name:     "inline refs are returned",
			cs:       []ColumnConstraint{{Kind: ColumnInlineRef, Ref: ref}, {Kind: ColumnInlineRef}},
			want:     &models.Field{Name: "c"},
			wantRefs: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &models.Field{Name: "c"}
			refs := ApplyColumnConstraints(f, tt.cs)
			if diff := cmp.Diff(tt.want, f); diff != "" {
				t.Errorf("(-want +got)\n%s", diff)
			}
			if len(refs) != tt.wantRefs {
				t.Errorf("got %d refs, want %d", len(refs), tt.wantRefs)
			}
		})
	}
}

func TestCollapseIndex(t *testing.T) {
	tests := []struct {
		name      string
		idx       *models.Index
		want      bool
		wantField models.Field
	}{
		{
			name:      "single column unique",
			idx:       &models.Index{Unique: true, Columns: []models.IndexColumn{models.ColumnKey("a")}},
			want:      true,
			wantField: models.Field{Name: "a", Unique: true},
		},
		{
			name:      "single column pk",
			idx:       &models.Index{PK: true, Columns: []models.IndexColumn{models.ColumnKey("a")}},
			want:      true,
			wantField: models.Field{Name: "a", PK: true},
		},
		{
			name:      "plain index",
			idx:       &models.Index{Columns: []models.IndexColumn{models.ColumnKey("a")}},
			wantField: models.Field{Name: "a"},
		},
		{
			name:      "expression key",
			idx:       &models.Index{Unique: true, Columns: []models.IndexColumn{models.ExpressionKey("lower(a)")}},
			wantField: models.Field{Name: "a"},
		},
		{
			name:      "unknown column",
			idx:       &models.Index{Unique: true, Columns: []models.IndexColumn{models.ColumnKey("b")}},
			wantField: models.Field{Name: "a"},
		},
		{
			name:      "two columns",
			idx:       &models.Index{PK: true, Columns: []models.IndexColumn{models.ColumnKey("a"), models.ColumnKey("a")}},
			wantField: models.Field{Name: "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := &models.Table{Name: "t", Fields: []*models.Field{{Name: "a"}}}
			if got := collapseIndex(tbl, tt.idx); got != tt.want {
				t.Errorf("collapseIndex() = %v, want %v", got, tt.want)
			}
			if diff := cmp.Diff(tt.wantField, *tbl.Fields[0]); diff != "" {
				t.Errorf("(-want +got)\n%s", diff)
			}
		})
	}
}

func TestLiteralValues(t *testing.T) {
	tests := []struct {
		lit         Literal
		wantDefault *models.Value
		wantRecord  *models.Value
	}{
		{Literal{LiteralString, "it's"}, models.StringValue("it's"), models.StringValue("it's")},
		{Literal{LiteralNumber, "-1.5"}, models.NumberValue("-1.5"), models.NumberValue("-1.5")},
		{Literal{LiteralBoolean, "TRUE"}, models.BooleanValue("true"), models.BooleanValue("true")},
		{Literal{LiteralNull, "NULL"}, models.BooleanValue("null"), nil},
		{Literal{LiteralIdentifier, "sysdate"}, models.ExpressionValue("sysdate"), models.ExpressionValue("sysdate")},
		{Literal{LiteralExpression, "now()"}, models.ExpressionValue("now()"), models.ExpressionValue("now()")},
	}

	for _, tt := range tests {
		t.Run(tt.lit.Text, func(t *testing.T) {
			if diff := cmp.Diff(tt.wantDefault, tt.lit.DefaultValue()); diff != "" {
				t.Errorf("DefaultValue (-want +got)\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantRecord, tt.lit.RecordValue()); diff != "" {
				t.Errorf("RecordValue (-want +got)\n%s", diff)
			}
		})
	}
}

func TestPendingRefBind(t *testing.T) {
	p := &PendingRef{
		Name:       "fk",
		FieldNames: []string{"a"},
		Target:     Name{Schema: "s", Table: "p"},
		TargetKeys: []string{"id"},
		OnUpdate:   models.ActionSetNull,
	}
	ref := p.Bind(Name{Table: "c"}, p.FieldNames)
	ref.Endpoints[0].FieldNames[0] = "changed"
	ref.Endpoints[1].FieldNames[0] = "changed"

	if p.FieldNames[0] != "a" || p.TargetKeys[0] != "id" {
		t.Errorf("Bind must copy its slices, got %v %v", p.FieldNames, p.TargetKeys)
	}
	if ref.OnUpdate != models.ActionSetNull || ref.Endpoints[1].SchemaName != "s" {
		t.Errorf("unexpected ref: %+v", ref)
	}
}
