package loader

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go.mercari.io/schemanorm/internal/sqlscan"
	"go.mercari.io/schemanorm/models"
)

// NewPostgresSource returns a SchemaSource reading the catalog of one
// PostgreSQL schema. An empty schema means "public".
func NewPostgresSource(pool *pgxpool.Pool, schema string) SchemaSource {
	if schema == "" {
		schema = "public"
	}
	return &postgresSource{pool: pool, schema: schema}
}

type postgresSource struct {
	pool   *pgxpool.Pool
	schema string
}

func (s *postgresSource) DatabaseType() string {
	return "PostgreSQL"
}

// regclass returns the quoted name of table, for a $n::regclass parameter.
func regclass(table *Table) string {
	return pgx.Identifier{table.Schema, table.TableName}.Sanitize()
}

// scanAll runs sql and calls fn for every row.
func (s *postgresSource) scanAll(ctx context.Context, sql string, args []any, fn func(pgx.Rows) error) error {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *postgresSource) TableList(ctx context.Context) ([]*Table, error) {
	const sqlstr = `SELECT c.relname, COALESCE(obj_description(c.oid, 'pg_class'), '') ` +
		`FROM pg_class c ` +
		`JOIN pg_namespace n ON n.oid = c.relnamespace ` +
		`WHERE n.nspname = $1 AND c.relkind IN ('r', 'p') AND NOT c.relispartition ` +
		`ORDER BY c.relname`

	var res []*Table
	err := s.scanAll(ctx, sqlstr, []any{s.schema}, func(rows pgx.Rows) error {
		t := Table{Schema: s.schema}
		if err := rows.Scan(&t.TableName, &t.Note); err != nil {
			return err
		}
		res = append(res, &t)
		return nil
	})
	return res, err
}

func (s *postgresSource) ColumnList(ctx context.Context, table *Table) ([]*Column, error) {
	const sqlstr = `SELECT a.attnum, a.attname, format_type(a.atttypid, a.atttypmod), a.attnotnull, ` +
		`a.attidentity <> '' OR COALESCE(pg_get_expr(d.adbin, d.adrelid), '') LIKE 'nextval(%', ` +
		`pg_get_expr(d.adbin, d.adrelid), ` +
		`COALESCE(col_description(a.attrelid, a.attnum), '') ` +
		`FROM pg_attribute a ` +
		`LEFT JOIN pg_attrdef d ON d.adrelid = a.attrelid AND d.adnum = a.attnum ` +
		`WHERE a.attrelid = $1::regclass AND a.attnum > 0 AND NOT a.attisdropped ` +
		`ORDER BY a.attnum`

	var res []*Column
	err := s.scanAll(ctx, sqlstr, []any{regclass(table)}, func(rows pgx.Rows) error {
		var c Column
		var def *string
		if err := rows.Scan(&c.FieldOrdinal, &c.ColumnName, &c.DataType, &c.NotNull, &c.IsIdentity, &def, &c.Note); err != nil {
			return err
		}
		// the nextval default of a serial column is implied by increment
		if def != nil && !c.IsIdentity {
			lit := sqlscan.ParseLiteral(*def, sqlscan.Standard)
			c.Default = &lit
		}
		res = append(res, &c)
		return nil
	})
	return res, err
}

func (s *postgresSource) IndexList(ctx context.Context, table *Table) ([]*Index, error) {
	const sqlstr = `SELECT i.relname, ix.indisunique, ix.indisprimary, am.amname ` +
		`FROM pg_index ix ` +
		`JOIN pg_class i ON i.oid = ix.indexrelid ` +
		`JOIN pg_am am ON am.oid = i.relam ` +
		`WHERE ix.indrelid = $1::regclass ` +
		`ORDER BY i.relname`

	var res []*Index
	err := s.scanAll(ctx, sqlstr, []any{regclass(table)}, func(rows pgx.Rows) error {
		var i Index
		if err := rows.Scan(&i.IndexName, &i.IsUnique, &i.IsPrimary, &i.Type); err != nil {
			return err
		}
		if i.Type == "btree" {
			i.Type = ""
		}
		res = append(res, &i)
		return nil
	})
	return res, err
}

func (s *postgresSource) IndexColumnList(ctx context.Context, table *Table, index string) ([]*IndexColumn, error) {
	const sqlstr = `SELECT k.n, COALESCE(a.attname, pg_get_indexdef(ix.indexrelid, k.n::int, true)), ` +
		`a.attname IS NULL, k.n > ix.indnkeyatts ` +
		`FROM pg_index ix ` +
		`JOIN pg_class i ON i.oid = ix.indexrelid ` +
		`CROSS JOIN LATERAL unnest(ix.indkey) WITH ORDINALITY AS k(attnum, n) ` +
		`LEFT JOIN pg_attribute a ON a.attrelid = ix.indrelid AND a.attnum = k.attnum AND k.attnum > 0 ` +
		`WHERE ix.indrelid = $1::regclass AND i.relname = $2 ` +
		`ORDER BY k.n`

	var res []*IndexColumn
	err := s.scanAll(ctx, sqlstr, []any{regclass(table), index}, func(rows pgx.Rows) error {
		var i IndexColumn
		var n int64
		if err := rows.Scan(&n, &i.ColumnName, &i.Expression, &i.Storing); err != nil {
			return err
		}
		i.SeqNo = int(n)
		res = append(res, &i)
		return nil
	})
	return res, err
}

func (s *postgresSource) ForeignKeyList(ctx context.Context, table *Table) ([]*ForeignKey, error) {
	const sqlstr = `SELECT c.conname, a.attname, rn.nspname, rt.relname, ra.attname, ` +
		`c.confdeltype::text, c.confupdtype::text ` +
		`FROM pg_constraint c ` +
		`CROSS JOIN LATERAL unnest(c.conkey, c.confkey) WITH ORDINALITY AS k(attnum, refnum, n) ` +
		`JOIN pg_attribute a ON a.attrelid = c.conrelid AND a.attnum = k.attnum ` +
		`JOIN pg_class rt ON rt.oid = c.confrelid ` +
		`JOIN pg_namespace rn ON rn.oid = rt.relnamespace ` +
		`JOIN pg_attribute ra ON ra.attrelid = c.confrelid AND ra.attnum = k.refnum ` +
		`WHERE c.contype = 'f' AND c.conrelid = $1::regclass ` +
		`ORDER BY c.conname, k.n`

	var fks foreignKeys
	err := s.scanAll(ctx, sqlstr, []any{regclass(table)}, func(rows pgx.Rows) error {
		var r foreignKeyRow
		if err := rows.Scan(&r.name, &r.column, &r.refSchema, &r.refTable, &r.refColumn, &r.onDelete, &r.onUpdate); err != nil {
			return err
		}
		r.onDelete, r.onUpdate = pgAction(r.onDelete), pgAction(r.onUpdate)
		fks.add(r)
		return nil
	})
	return fks.list, err
}

// pgAction spells out a pg_constraint action code as an information schema
// rule.
func pgAction(code string) string {
	switch code {
	case "c":
		return "CASCADE"
	case "n":
		return "SET NULL"
	case "d":
		return "SET DEFAULT"
	case "r":
		return "RESTRICT"
	}
	return "NO ACTION"
}

// EnumList implements EnumSource.
func (s *postgresSource) EnumList(ctx context.Context) ([]*models.Enum, error) {
	const sqlstr = `SELECT t.typname, e.enumlabel ` +
		`FROM pg_type t ` +
		`JOIN pg_enum e ON e.enumtypid = t.oid ` +
		`JOIN pg_namespace n ON n.oid = t.typnamespace ` +
		`WHERE n.nspname = $1 ` +
		`ORDER BY t.typname, e.enumsortorder`

	var res []*models.Enum
	err := s.scanAll(ctx, sqlstr, []any{s.schema}, func(rows pgx.Rows) error {
		var name, label string
		if err := rows.Scan(&name, &label); err != nil {
			return err
		}
		if n := len(res); n == 0 || res[n-1].Name != name {
			res = append(res, &models.Enum{Name: name, SchemaName: s.schema, Values: []*models.EnumValue{}})
		}
		e := res[len(res)-1]
		e.Values = append(e.Values, &models.EnumValue{Name: label})
		return nil
	})
	return res, err
}
