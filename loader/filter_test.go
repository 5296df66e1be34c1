package loader

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"go.mercari.io/schemanorm/models"
)

func field(name string) *models.Field {
	return &models.Field{Name: name, Type: models.FieldType{TypeName: "INT"}}
}

func TestFilter(t *testing.T) {
	doc := &models.Document{
		Tables: []*models.Table{
			{
				Name:   "users",
				Fields: []*models.Field{field("id"), field("email"), field("secret")},
				Indexes: []*models.Index{
					{Name: "ix_email_secret", Columns: []models.IndexColumn{models.ColumnKey("email"), models.ColumnKey("secret")}},
					{Name: "ix_email_lower", Columns: []models.IndexColumn{models.ExpressionKey("lower(email)")}},
				},
			},
			{Name: "audit", Fields: []*models.Field{field("id")}},
			{Name: "posts", Fields: []*models.Field{field("id"), field("user_id")}},
		},
		Refs: []*models.Ref{
			{
				Name: "fk_posts_user",
				Endpoints: [2]models.Endpoint{
					{TableName: "posts", FieldNames: []string{"user_id"}, Relation: models.RelationMany},
					{TableName: "users", FieldNames: []string{"id"}, Relation: models.RelationOne},
				},
			},
			{
				Name: "fk_audit_user",
				Endpoints: [2]models.Endpoint{
					{TableName: "audit", FieldNames: []string{"id"}, Relation: models.RelationMany},
					{TableName: "users", FieldNames: []string{"id"}, Relation: models.RelationOne},
				},
			},
		},
		Records: []*models.TableRecord{
			{
				TableName: "users",
				Values:    [][]*models.Value{{models.NumberValue("1"), models.StringValue("a"), models.StringValue("s")}},
			},
			{
				TableName: "users",
				Columns:   []string{"id", "secret"},
				Values:    [][]*models.Value{{models.NumberValue("2"), models.StringValue("x")}},
			},
			{
				TableName: "audit",
				Values:    [][]*models.Value{{models.NumberValue("3")}},
			},
		},
	}

	got := Filter(doc, []string{"audit"}, []string{"secret"})

	want := &models.Document{
		Tables: []*models.Table{
			{
				Name:    "users",
				Fields:  []*models.Field{field("id"), field("email")},
				Indexes: []*models.Index{{Name: "ix_email_lower", Columns: []models.IndexColumn{models.ExpressionKey("lower(email)")}}},
			},
			{Name: "posts", Fields: []*models.Field{field("id"), field("user_id")}},
		},
		Refs: []*models.Ref{
			{
				Name: "fk_posts_user",
				Endpoints: [2]models.Endpoint{
					{TableName: "posts", FieldNames: []string{"user_id"}, Relation: models.RelationMany},
					{TableName: "users", FieldNames: []string{"id"}, Relation: models.RelationOne},
				},
			},
		},
		Records: []*models.TableRecord{
			{
				TableName: "users",
				Values:    [][]*models.Value{{models.NumberValue("1"), models.StringValue("a")}},
			},
			{
				TableName: "users",
				Columns:   []string{"id"},
				Values:    [][]*models.Value{{models.NumberValue("2")}},
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got)\n%s", diff)
	}
}

func TestFilterPatterns(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		schema  string
		table   string
		want    bool
	}{
		{"bare name", "users", "app", "users", true},
		{"qualified", "app.users", "app", "users", true},
		{"other schema", "app.users", "public", "users", false},
		{"qualified without schema", "app.users", "", "users", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchTable([]string{tt.pattern}, tt.schema, tt.table); got != tt.want {
				t.Errorf("matchTable(%q, %q, %q) = %v, want %v", tt.pattern, tt.schema, tt.table, got, tt.want)
			}
		})
	}

	if !matchField([]string{"users.secret"}, "users", "secret") {
		t.Error("table.column pattern did not match")
	}
	if matchField([]string{"users.secret"}, "posts", "secret") {
		t.Error("table.column pattern matched another table")
	}
}
