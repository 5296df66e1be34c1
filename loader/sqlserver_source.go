package loader

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// registers the "sqlserver" driver
	_ "github.com/microsoft/go-mssqldb"

	"go.mercari.io/schemanorm/internal/sqlscan"
)

// OpenSQLServer opens a database handle on the go-mssqldb driver and checks
// the connection.
func OpenSQLServer(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}
	return db, nil
}

// NewSQLServerSource returns a SchemaSource reading the catalog views of a
// SQL Server database.
func NewSQLServerSource(db *sql.DB) SchemaSource {
	return &sqlServerSource{db: db}
}

type sqlServerSource struct {
	db *sql.DB
}

func (s *sqlServerSource) DatabaseType() string {
	return "SQL Server"
}

func objectName(table *Table) string {
	return "[" + strings.ReplaceAll(table.Schema, "]", "]]") + "].[" + strings.ReplaceAll(table.TableName, "]", "]]") + "]"
}

func (s *sqlServerSource) scanAll(ctx context.Context, query string, args []any, fn func(*sql.Rows) error) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
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

func (s *sqlServerSource) TableList(ctx context.Context) ([]*Table, error) {
	const sqlstr = `SELECT SCHEMA_NAME(t.schema_id), t.name, ` +
		`COALESCE(CAST(ep.value AS nvarchar(max)), '') ` +
		`FROM sys.tables t ` +
		`LEFT JOIN sys.extended_properties ep ` +
		`ON ep.major_id = t.object_id AND ep.minor_id = 0 AND ep.class = 1 AND ep.name = 'MS_Description' ` +
		`WHERE t.is_ms_shipped = 0 ` +
		`ORDER BY 1, 2`

	var res []*Table
	err := s.scanAll(ctx, sqlstr, nil, func(rows *sql.Rows) error {
		var t Table
		if err := rows.Scan(&t.Schema, &t.TableName, &t.Note); err != nil {
			return err
		}
		res = append(res, &t)
		return nil
	})
	return res, err
}

func (s *sqlServerSource) ColumnList(ctx context.Context, table *Table) ([]*Column, error) {
	const sqlstr = `SELECT c.column_id, c.name, ` +
		`TYPE_NAME(c.user_type_id), c.max_length, c.precision, c.scale, ` +
		`c.is_nullable, c.is_identity, OBJECT_DEFINITION(c.default_object_id), ` +
		`COALESCE(CAST(ep.value AS nvarchar(max)), '') ` +
		`FROM sys.columns c ` +
		`LEFT JOIN sys.extended_properties ep ` +
		`ON ep.major_id = c.object_id AND ep.minor_id = c.column_id AND ep.class = 1 AND ep.name = 'MS_Description' ` +
		`WHERE c.object_id = OBJECT_ID(@p1) ` +
		`ORDER BY c.column_id`

	var res []*Column
	err := s.scanAll(ctx, sqlstr, []any{objectName(table)}, func(rows *sql.Rows) error {
		var (
			c                Column
			typ              string
			maxLen           int
			precision, scale int
			nullable         bool
			def              sql.NullString
		)
		if err := rows.Scan(&c.FieldOrdinal, &c.ColumnName, &typ, &maxLen, &precision, &scale, &nullable, &c.IsIdentity, &def, &c.Note); err != nil {
			return err
		}
		c.DataType = sqlServerType(typ, maxLen, precision, scale)
		c.NotNull = !nullable
		if def.Valid {
			lit := sqlscan.ParseLiteral(def.String, sqlscan.TSQL)
			c.Default = &lit
		}
		res = append(res, &c)
		return nil
	})
	return res, err
}

// sqlServerType spells a catalog type with its arguments, e.g.
// nvarchar(50), varchar(max) or decimal(10,2). max_length counts bytes, so
// national types are halved.
func sqlServerType(typ string, maxLen, precision, scale int) string {
	switch strings.ToLower(typ) {
	case "varchar", "char", "varbinary", "binary":
		if maxLen < 0 {
			return typ + "(max)"
		}
		return fmt.Sprintf("%s(%d)", typ, maxLen)
	case "nvarchar", "nchar":
		if maxLen < 0 {
			return typ + "(max)"
		}
		return fmt.Sprintf("%s(%d)", typ, maxLen/2)
	case "decimal", "numeric":
		return fmt.Sprintf("%s(%d,%d)", typ, precision, scale)
	case "datetime2", "time", "datetimeoffset":
		return fmt.Sprintf("%s(%d)", typ, scale)
	}
	return typ
}

func (s *sqlServerSource) IndexList(ctx context.Context, table *Table) ([]*Index, error) {
	const sqlstr = `SELECT i.name, i.is_unique, i.is_primary_key, i.type_desc ` +
		`FROM sys.indexes i ` +
		`WHERE i.object_id = OBJECT_ID(@p1) AND i.name IS NOT NULL ` +
		`ORDER BY i.name`

	var res []*Index
	err := s.scanAll(ctx, sqlstr, []any{objectName(table)}, func(rows *sql.Rows) error {
		var i Index
		var typ string
		if err := rows.Scan(&i.IndexName, &i.IsUnique, &i.IsPrimary, &typ); err != nil {
			return err
		}
		if strings.Contains(typ, "COLUMNSTORE") {
			i.Type = "columnstore"
		}
		res = append(res, &i)
		return nil
	})
	return res, err
}

func (s *sqlServerSource) IndexColumnList(ctx context.Context, table *Table, index string) ([]*IndexColumn, error) {
	const sqlstr = `SELECT ic.key_ordinal, c.name, ic.is_included_column ` +
		`FROM sys.index_columns ic ` +
		`JOIN sys.indexes i ON i.object_id = ic.object_id AND i.index_id = ic.index_id ` +
		`JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id ` +
		`WHERE i.object_id = OBJECT_ID(@p1) AND i.name = @p2 ` +
		`ORDER BY ic.is_included_column, ic.key_ordinal, ic.index_column_id`

	var res []*IndexColumn
	err := s.scanAll(ctx, sqlstr, []any{objectName(table), index}, func(rows *sql.Rows) error {
		var i IndexColumn
		if err := rows.Scan(&i.SeqNo, &i.ColumnName, &i.Storing); err != nil {
			return err
		}
		res = append(res, &i)
		return nil
	})
	return res, err
}

func (s *sqlServerSource) ForeignKeyList(ctx context.Context, table *Table) ([]*ForeignKey, error) {
	const sqlstr = `SELECT fk.name, pc.name, SCHEMA_NAME(rt.schema_id), rt.name, rc.name, ` +
		`fk.delete_referential_action_desc, fk.update_referential_action_desc ` +
		`FROM sys.foreign_keys fk ` +
		`JOIN sys.foreign_key_columns fkc ON fkc.constraint_object_id = fk.object_id ` +
		`JOIN sys.columns pc ON pc.object_id = fkc.parent_object_id AND pc.column_id = fkc.parent_column_id ` +
		`JOIN sys.tables rt ON rt.object_id = fkc.referenced_object_id ` +
		`JOIN sys.columns rc ON rc.object_id = fkc.referenced_object_id AND rc.column_id = fkc.referenced_column_id ` +
		`WHERE fk.parent_object_id = OBJECT_ID(@p1) ` +
		`ORDER BY fk.name, fkc.constraint_column_id`

	var fks foreignKeys
	err := s.scanAll(ctx, sqlstr, []any{objectName(table)}, func(rows *sql.Rows) error {
		var r foreignKeyRow
		if err := rows.Scan(&r.name, &r.column, &r.refSchema, &r.refTable, &r.refColumn, &r.onDelete, &r.onUpdate); err != nil {
			return err
		}
		fks.add(r)
		return nil
	})
	return fks.list, err
}
