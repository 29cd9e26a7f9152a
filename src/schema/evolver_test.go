package schema

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/gorm"

	"tenancymigrator/src/catalog"
	"tenancymigrator/src/database"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := database.Connect(dsn, database.Config{GormLogLevel: 1})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	return db
}

func columnNames(t *testing.T, in *Introspector, table string) map[string]string {
	t.Helper()
	cols, err := in.ListColumns(table)
	if err != nil {
		t.Fatalf("list columns of %s: %v", table, err)
	}
	out := make(map[string]string, len(cols))
	for _, c := range cols {
		out[c.Name] = c.DeclaredType
	}
	return out
}

func TestEvolveFreshDatabase(t *testing.T) {
	db := openTestDB(t)
	ev := NewEvolver(db)

	applied, err := ev.Evolve()
	if err != nil {
		t.Fatalf("evolve fresh database: %v", err)
	}
	if want := len(catalog.Tables()); applied != want {
		t.Fatalf("applied %d changes, want %d (one per catalog table)", applied, want)
	}

	in := NewIntrospector(db)
	tables, err := in.ListTables()
	if err != nil {
		t.Fatalf("list tables: %v", err)
	}
	for _, tab := range catalog.Tables() {
		if _, ok := tables[tab.Name]; !ok {
			t.Fatalf("table %s missing after evolve", tab.Name)
		}
		live := columnNames(t, in, tab.Name)
		for _, c := range tab.Columns {
			if _, ok := live[c.Name]; !ok {
				t.Fatalf("column %s.%s missing after evolve", tab.Name, c.Name)
			}
		}
	}
}

func TestEvolveIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ev := NewEvolver(db)

	if _, err := ev.Evolve(); err != nil {
		t.Fatalf("first evolve: %v", err)
	}

	in := NewIntrospector(db)
	before := make(map[string]map[string]string)
	for _, tab := range catalog.Tables() {
		before[tab.Name] = columnNames(t, in, tab.Name)
	}

	applied, err := ev.Evolve()
	if err != nil {
		t.Fatalf("second evolve: %v", err)
	}
	if applied != 0 {
		t.Fatalf("second evolve applied %d changes, want 0", applied)
	}

	for _, tab := range catalog.Tables() {
		after := columnNames(t, in, tab.Name)
		if len(after) != len(before[tab.Name]) {
			t.Fatalf("%s column set changed on second evolve", tab.Name)
		}
		for name, typ := range before[tab.Name] {
			if after[name] != typ {
				t.Fatalf("%s.%s type changed on second evolve: %s -> %s", tab.Name, name, typ, after[name])
			}
		}
	}

	steps, err := ev.Plan()
	if err != nil {
		t.Fatalf("plan after evolve: %v", err)
	}
	if len(steps) != 0 {
		t.Fatalf("plan not empty after evolve: %d steps pending", len(steps))
	}
}

func TestEvolveAddsMissingColumnsToLegacyTable(t *testing.T) {
	db := openTestDB(t)

	// Pre-tenancy shape: no user_id, plus an extra column the catalog
	// does not know about.
	stmts := []string{
		`CREATE TABLE strategies (strategy_id TEXT PRIMARY KEY, name TEXT NOT NULL, notes TEXT)`,
		`INSERT INTO strategies (strategy_id, name, notes) VALUES ('s1', 'mean reversion', 'legacy')`,
		`INSERT INTO strategies (strategy_id, name, notes) VALUES ('s2', 'momentum', NULL)`,
	}
	for _, s := range stmts {
		if err := db.Exec(s).Error; err != nil {
			t.Fatalf("seed legacy table: %v", err)
		}
	}

	ev := NewEvolver(db)
	if _, err := ev.Evolve(); err != nil {
		t.Fatalf("evolve: %v", err)
	}

	in := NewIntrospector(db)
	live := columnNames(t, in, "strategies")
	if _, ok := live["user_id"]; !ok {
		t.Fatal("user_id column not added to legacy strategies table")
	}
	if _, ok := live["created_utc"]; !ok {
		t.Fatal("created_utc column not added to legacy strategies table")
	}
	// Additivity: nothing present before may disappear.
	if _, ok := live["notes"]; !ok {
		t.Fatal("extra legacy column notes was dropped")
	}

	count, err := in.RowCount("strategies")
	if err != nil {
		t.Fatalf("row count: %v", err)
	}
	if count != 2 {
		t.Fatalf("legacy rows lost: %d remain, want 2", count)
	}

	var orphans int64
	if err := db.Raw("SELECT COUNT(*) FROM strategies WHERE user_id IS NULL").Scan(&orphans).Error; err != nil {
		t.Fatalf("count orphans: %v", err)
	}
	if orphans != 2 {
		t.Fatalf("added user_id column must be null for existing rows, got %d nulls", orphans)
	}
}

func TestEvolveLeavesDisagreeingTypesAlone(t *testing.T) {
	db := openTestDB(t)

	if err := db.Exec(`CREATE TABLE datasets (dataset_id TEXT PRIMARY KEY, name INTEGER)`).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	ev := NewEvolver(db)
	if _, err := ev.Evolve(); err != nil {
		t.Fatalf("evolve must proceed past a type disagreement: %v", err)
	}

	in := NewIntrospector(db)
	live := columnNames(t, in, "datasets")
	if live["name"] != "INTEGER" {
		t.Fatalf("live column type rewritten to %s, must stay INTEGER", live["name"])
	}
}

func TestApplyRecoversDuplicateColumn(t *testing.T) {
	db := openTestDB(t)

	if err := db.Exec(`CREATE TABLE datasets (dataset_id TEXT PRIMARY KEY, name TEXT)`).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	ev := NewEvolver(db)
	tab, _ := catalog.TableByName("datasets")
	col, _ := tab.Column("name")
	step := Step{
		Kind:       StepAddColumn,
		Table:      "datasets",
		Object:     "name",
		Statements: []string{addColumnSQL("datasets", col)},
	}

	applied, err := ev.applyTable("datasets", []Step{step})
	if err != nil {
		t.Fatalf("duplicate column must be recovered, got: %v", err)
	}
	if applied != 0 {
		t.Fatalf("recovered duplicate counted as %d changes, want 0", applied)
	}
}

func TestIntrospectorMissingTableIsEmpty(t *testing.T) {
	db := openTestDB(t)
	in := NewIntrospector(db)

	cols, err := in.ListColumns("no_such_table")
	if err != nil {
		t.Fatalf("missing table must not error: %v", err)
	}
	if len(cols) != 0 {
		t.Fatalf("missing table has %d columns, want 0", len(cols))
	}

	count, err := in.RowCount("no_such_table")
	if err != nil {
		t.Fatalf("missing table must not error: %v", err)
	}
	if count != 0 {
		t.Fatalf("missing table row count = %d, want 0", count)
	}
}
