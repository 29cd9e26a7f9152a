// Package schema reads the live database shape and evolves it toward
// the catalog with additive changes only.
package schema

import (
	"database/sql"
	"fmt"

	"gorm.io/gorm"
)

// ColumnInfo is one live column as reported by the database catalog.
type ColumnInfo struct {
	Name         string
	DeclaredType string
	NotNull      bool
	Default      *string
	PrimaryKey   bool
}

// Introspector reads the live schema. All operations are read-only;
// a non-existent table yields empty results, never an error.
type Introspector struct {
	db *gorm.DB
}

func NewIntrospector(db *gorm.DB) *Introspector {
	return &Introspector{db: db}
}

// ListTables returns the names of all user tables in the database.
func (in *Introspector) ListTables() (map[string]struct{}, error) {
	var names []string
	err := in.db.
		Raw("SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name").
		Scan(&names).Error
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out, nil
}

// HasTable reports whether the named table exists.
func (in *Introspector) HasTable(table string) (bool, error) {
	tables, err := in.ListTables()
	if err != nil {
		return false, err
	}
	_, ok := tables[table]
	return ok, nil
}

// ListColumns returns the live columns of a table in declaration order.
func (in *Introspector) ListColumns(table string) ([]ColumnInfo, error) {
	rows, err := in.db.Raw(fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table))).Rows()
	if err != nil {
		return nil, fmt.Errorf("table_info %s: %w", table, err)
	}
	defer rows.Close()

	var cols []ColumnInfo
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table_info %s: %w", table, err)
		}
		c := ColumnInfo{
			Name:         name,
			DeclaredType: typ,
			NotNull:      notNull != 0,
			PrimaryKey:   pk != 0,
		}
		if dflt.Valid {
			v := dflt.String
			c.Default = &v
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// ListIndexes returns the names of the table's secondary indexes.
func (in *Introspector) ListIndexes(table string) (map[string]struct{}, error) {
	rows, err := in.db.Raw(fmt.Sprintf("PRAGMA index_list(%s)", quoteIdent(table))).Rows()
	if err != nil {
		return nil, fmt.Errorf("index_list %s: %w", table, err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var (
			seq     int
			name    string
			unique  int
			origin  string
			partial int
		)
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return nil, fmt.Errorf("scan index_list %s: %w", table, err)
		}
		out[name] = struct{}{}
	}
	return out, rows.Err()
}

// RowCount returns the number of rows in a table, zero when the table
// does not exist.
func (in *Introspector) RowCount(table string) (int64, error) {
	ok, err := in.HasTable(table)
	if err != nil || !ok {
		return 0, err
	}
	var count int64
	if err := in.db.Raw(fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(table))).Scan(&count).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return count, nil
}
