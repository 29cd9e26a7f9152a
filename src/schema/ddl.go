package schema

import (
	"fmt"
	"strings"

	"tenancymigrator/src/catalog"
)

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func columnDef(c catalog.Column) string {
	var b strings.Builder
	b.WriteString(quoteIdent(c.Name))
	b.WriteString(" ")
	b.WriteString(c.Type.SQL())
	if c.NotNull {
		b.WriteString(" NOT NULL")
	}
	if c.Default != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(c.Default)
	}
	return b.String()
}

func createTableSQL(t catalog.Table) string {
	parts := make([]string, 0, len(t.Columns)+len(t.ForeignKeys)+1)
	for _, c := range t.Columns {
		parts = append(parts, columnDef(c))
	}
	if len(t.PrimaryKey) > 0 {
		pk := make([]string, len(t.PrimaryKey))
		for i, col := range t.PrimaryKey {
			pk[i] = quoteIdent(col)
		}
		parts = append(parts, "PRIMARY KEY ("+strings.Join(pk, ", ")+")")
	}
	for _, fk := range t.ForeignKeys {
		parts = append(parts, fmt.Sprintf(
			"FOREIGN KEY (%s) REFERENCES %s (%s)",
			quoteIdent(fk.Column), quoteIdent(fk.RefTable), quoteIdent(fk.RefColumn),
		))
	}
	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", quoteIdent(t.Name), strings.Join(parts, ",\n  "))
}

// addColumnSQL always adds the column as nullable: existing rows would
// violate a NOT NULL constraint. Tightening comes after backfill and
// is a human decision.
func addColumnSQL(table string, c catalog.Column) string {
	def := quoteIdent(c.Name) + " " + c.Type.SQL()
	if c.Default != "" {
		def += " DEFAULT " + c.Default
	}
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", quoteIdent(table), def)
}

func createIndexSQL(table string, ix catalog.Index) string {
	cols := make([]string, len(ix.Columns))
	for i, c := range ix.Columns {
		cols[i] = quoteIdent(c)
	}
	unique := ""
	if ix.Unique {
		unique = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)",
		unique, quoteIdent(ix.Name), quoteIdent(table), strings.Join(cols, ", "))
}
