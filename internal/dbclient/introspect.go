package dbclient

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"reportwiz/internal/dialect"
	"reportwiz/internal/domain"
)

// Every column query returns the same seven columns:
// name, type, size, nullable (YES/Y/NO/N), default, is_pk (0/1), is_auto (0/1).
// {table} is replaced by the vendor's first bind marker.

const mysqlTablesSQL = `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
	WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'BASE TABLE'`

const mysqlColumnsSQL = `SELECT COLUMN_NAME, DATA_TYPE,
		COALESCE(CHARACTER_MAXIMUM_LENGTH, NUMERIC_PRECISION, 0),
		IS_NULLABLE, COLUMN_DEFAULT,
		CASE WHEN COLUMN_KEY = 'PRI' THEN 1 ELSE 0 END,
		CASE WHEN EXTRA LIKE '%auto_increment%' THEN 1 ELSE 0 END
	FROM INFORMATION_SCHEMA.COLUMNS
	WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = {table}
	ORDER BY ORDINAL_POSITION`

const postgresTablesSQL = `SELECT table_name FROM information_schema.tables
	WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'`

const postgresColumnsSQL = `SELECT c.column_name, c.data_type,
		COALESCE(c.character_maximum_length, c.numeric_precision, 0),
		c.is_nullable, c.column_default,
		CASE WHEN EXISTS (
			SELECT 1 FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
			  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
			WHERE tc.constraint_type = 'PRIMARY KEY'
			  AND tc.table_schema = c.table_schema AND tc.table_name = c.table_name
			  AND kcu.column_name = c.column_name
		) THEN 1 ELSE 0 END,
		CASE WHEN c.is_identity = 'YES' OR COALESCE(c.column_default, '') LIKE 'nextval(%' THEN 1 ELSE 0 END
	FROM information_schema.columns c
	WHERE c.table_schema = current_schema() AND c.table_name = {table}
	ORDER BY c.ordinal_position`

const sqlServerTablesSQL = `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
	WHERE TABLE_TYPE = 'BASE TABLE'`

const sqlServerColumnsSQL = `SELECT c.COLUMN_NAME, c.DATA_TYPE,
		COALESCE(c.CHARACTER_MAXIMUM_LENGTH, c.NUMERIC_PRECISION, 0),
		c.IS_NULLABLE, c.COLUMN_DEFAULT,
		CASE WHEN EXISTS (
			SELECT 1 FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
			JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
			WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY'
			  AND kcu.TABLE_NAME = c.TABLE_NAME AND kcu.COLUMN_NAME = c.COLUMN_NAME
		) THEN 1 ELSE 0 END,
		COALESCE(COLUMNPROPERTY(OBJECT_ID(c.TABLE_SCHEMA + '.' + c.TABLE_NAME), c.COLUMN_NAME, 'IsIdentity'), 0)
	FROM INFORMATION_SCHEMA.COLUMNS c
	WHERE c.TABLE_NAME = {table}
	ORDER BY c.ORDINAL_POSITION`

const oracleTablesSQL = `SELECT table_name FROM user_tables`

const oracleColumnsSQL = `SELECT c.column_name, c.data_type,
		COALESCE(c.char_length, c.data_precision, c.data_length, 0),
		c.nullable, c.data_default,
		CASE WHEN EXISTS (
			SELECT 1 FROM user_constraints uc
			JOIN user_cons_columns ucc ON uc.constraint_name = ucc.constraint_name
			WHERE uc.constraint_type = 'P'
			  AND uc.table_name = c.table_name AND ucc.column_name = c.column_name
		) THEN 1 ELSE 0 END,
		CASE WHEN c.identity_column = 'YES' THEN 1 ELSE 0 END
	FROM user_tab_columns c
	WHERE c.table_name = {table}
	ORDER BY c.column_id`

const sqliteTablesSQL = `SELECT name FROM sqlite_master WHERE type = 'table'`

// ListTables returns the user tables of the connected database, sorted, with
// every system-owned name removed. On failure it returns an empty list and
// the logged cause.
func (c *Catalog) ListTables(ctx context.Context) ([]string, error) {
	names, err := c.queryStrings(ctx, c.tablesSQL())
	if err != nil {
		log.Printf("[CATALOG] list tables on %s: %v", c.profile.Name, err)
		return []string{}, introspectionError("cannot list tables", err)
	}
	return c.dialect.FilterUserTables(names), nil
}

// ListColumns returns table's columns in catalog order. An empty result on
// error means "unknown", not "no columns".
func (c *Catalog) ListColumns(ctx context.Context, table string) ([]domain.ColumnDescriptor, error) {
	var (
		cols []domain.ColumnDescriptor
		err  error
	)
	if c.dialect.Vendor == dialect.VendorSQLite {
		cols, err = c.sqliteColumns(ctx, table)
	} else {
		cols, err = c.infoSchemaColumns(ctx, table)
	}
	if err != nil {
		log.Printf("[CATALOG] list columns of %s on %s: %v", table, c.profile.Name, err)
		return []domain.ColumnDescriptor{}, introspectionError(fmt.Sprintf("cannot list columns of %s", table), err)
	}
	return cols, nil
}

func introspectionError(msg string, err error) error {
	if domain.IsKind(err, domain.ErrNotConnected) {
		return err
	}
	return domain.NewError(domain.ErrIntrospection, msg, err)
}

func (c *Catalog) tablesSQL() string {
	switch c.dialect.Vendor {
	case dialect.VendorMySQL:
		return mysqlTablesSQL
	case dialect.VendorPostgreSQL:
		return postgresTablesSQL
	case dialect.VendorSQLServer:
		return sqlServerTablesSQL
	case dialect.VendorOracle:
		return oracleTablesSQL
	default:
		return sqliteTablesSQL
	}
}

func (c *Catalog) columnsSQL() string {
	var q string
	switch c.dialect.Vendor {
	case dialect.VendorMySQL:
		q = mysqlColumnsSQL
	case dialect.VendorPostgreSQL:
		q = postgresColumnsSQL
	case dialect.VendorSQLServer:
		q = sqlServerColumnsSQL
	default:
		q = oracleColumnsSQL
	}
	return strings.Replace(q, "{table}", c.dialect.Placeholder(1), 1)
}

func (c *Catalog) queryStrings(ctx context.Context, sqlText string, args ...any) ([]string, error) {
	conn, release, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, cancel := c.queryContext(ctx)
	defer cancel()

	rows, err := conn.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (c *Catalog) infoSchemaColumns(ctx context.Context, table string) ([]domain.ColumnDescriptor, error) {
	conn, release, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, cancel := c.queryContext(ctx)
	defer cancel()

	rows, err := conn.QueryContext(ctx, c.columnsSQL(), table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []domain.ColumnDescriptor
	for rows.Next() {
		var (
			col        domain.ColumnDescriptor
			size       sql.NullInt64
			nullable   sql.NullString
			dflt       sql.NullString
			pk, isAuto sql.NullInt64
		)
		if err := rows.Scan(&col.Name, &col.NativeType, &size, &nullable, &dflt, &pk, &isAuto); err != nil {
			return nil, err
		}
		col.Size = int(size.Int64)
		col.Nullable = strings.HasPrefix(strings.ToUpper(nullable.String), "Y")
		if dflt.Valid {
			v := strings.TrimSpace(dflt.String)
			col.DefaultValue = &v
		}
		col.IsPrimaryKey = pk.Int64 == 1
		col.IsAutoIncrement = isAuto.Int64 == 1
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}
	return cols, nil
}

// sqliteColumns reads PRAGMA table_info. An INTEGER column that is the only
// primary key aliases rowid and counts as auto-increment.
func (c *Catalog) sqliteColumns(ctx context.Context, table string) ([]domain.ColumnDescriptor, error) {
	conn, release, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, cancel := c.queryContext(ctx)
	defer cancel()

	rows, err := conn.QueryContext(ctx, "PRAGMA table_info("+c.dialect.QuoteIdentifier(table)+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		cols    []domain.ColumnDescriptor
		pkCount int
	)
	for rows.Next() {
		var (
			cid           int
			name, colType string
			notNull, pk   int
			dflt          sql.NullString
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		col := domain.ColumnDescriptor{
			Name:         name,
			NativeType:   colType,
			Size:         declaredSize(colType),
			Nullable:     notNull == 0 && pk == 0,
			IsPrimaryKey: pk > 0,
		}
		if dflt.Valid {
			v := dflt.String
			col.DefaultValue = &v
		}
		if pk > 0 {
			pkCount++
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}
	if pkCount == 1 {
		for i := range cols {
			if cols[i].IsPrimaryKey && strings.EqualFold(cols[i].NativeType, "INTEGER") {
				cols[i].IsAutoIncrement = true
			}
		}
	}
	return cols, nil
}

// declaredSize extracts n from a declared type such as VARCHAR(n).
func declaredSize(t string) int {
	open := strings.IndexByte(t, '(')
	end := strings.IndexAny(t, ",)")
	if open < 0 || end <= open {
		return 0
	}
	var n int
	if _, err := fmt.Sscanf(strings.TrimSpace(t[open+1:end]), "%d", &n); err != nil {
		return 0
	}
	return n
}
