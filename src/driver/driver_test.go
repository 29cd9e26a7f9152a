package driver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"tenancymigrator/src/catalog"
	"tenancymigrator/src/database"
	"tenancymigrator/src/model"
	"tenancymigrator/src/tenancy"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func newMigrator(t *testing.T) (*Migrator, *bytes.Buffer, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "trading_data.db")
	t.Setenv("TRADING_DB_PATH", path)

	m := New(database.Config{GormLogLevel: 1})
	m.StartDir = dir
	var buf bytes.Buffer
	m.Out = &buf
	return m, &buf, path
}

func openSeedDB(t *testing.T, path string) *gorm.DB {
	t.Helper()
	db, err := database.Connect(path, database.Config{GormLogLevel: 1})
	if err != nil {
		t.Fatalf("open seed connection: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string) *model.User {
	t.Helper()
	u := &model.User{Email: email, IsActive: true, Role: model.RoleUser, CreatedUTC: time.Now().UTC()}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return u
}

func seedOrphans(t *testing.T, db *gorm.DB) {
	t.Helper()
	stmts := []string{
		`INSERT INTO strategies (strategy_id, name) VALUES ('s1', 'a'), ('s2', 'b'), ('s3', 'c')`,
		`INSERT INTO strategy_instances (instance_id, strategy_id) VALUES
			('i1', 's1'), ('i2', 's1'), ('i3', 's2'), ('i4', 's2'), ('i5', 's3')`,
		`INSERT INTO datasets (dataset_id, name, sources_json) VALUES ('d1', 'x', '[]'), ('d2', 'y', '[]')`,
	}
	for _, s := range stmts {
		if err := db.Exec(s).Error; err != nil {
			t.Fatalf("seed orphans: %v", err)
		}
	}
}

func countNullOwners(t *testing.T, db *gorm.DB, table string) int64 {
	t.Helper()
	var n int64
	q := fmt.Sprintf(`SELECT COUNT(*) FROM "%s" WHERE user_id IS NULL`, table)
	if err := db.Raw(q).Scan(&n).Error; err != nil {
		t.Fatalf("count null owners in %s: %v", table, err)
	}
	return n
}

func TestMigrateFreshDatabase(t *testing.T) {
	m, buf, _ := newMigrator(t)

	summary, err := m.Migrate(context.Background())
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if want := len(catalog.Tables()); summary.SchemaChanges != want {
		t.Fatalf("schema changes = %d, want %d (one per created table)", summary.SchemaChanges, want)
	}
	if summary.RowsReassigned != 0 || summary.Violations != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	want := fmt.Sprintf("RESULT status=ok schema_changes=%d rows_reassigned=0 violations=0", summary.SchemaChanges)
	if !strings.Contains(buf.String(), want) {
		t.Fatalf("output missing %q:\n%s", want, buf.String())
	}
}

func TestMigrateReassignsLegacyOrphans(t *testing.T) {
	m, buf, path := newMigrator(t)

	// First pass builds the schema on an empty file.
	if _, err := m.Migrate(context.Background()); err != nil {
		t.Fatalf("bootstrap migrate: %v", err)
	}
	buf.Reset()

	db := openSeedDB(t, path)
	seedUser(t, db, "alice@example.com")
	seedOrphans(t, db)
	m.Cfg.MigrationTargetEmail = "alice@example.com"

	summary, err := m.Migrate(context.Background())
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if summary.SchemaChanges != 0 {
		t.Fatalf("schema changes = %d, want 0 on an up-to-date schema", summary.SchemaChanges)
	}
	if summary.RowsReassigned != 10 {
		t.Fatalf("rows reassigned = %d, want 10", summary.RowsReassigned)
	}
	if summary.Violations != 0 {
		t.Fatalf("violations = %d, want 0", summary.Violations)
	}
	if !strings.Contains(buf.String(), "RESULT status=ok schema_changes=0 rows_reassigned=10 violations=0") {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}

	for _, table := range []string{"strategies", "strategy_instances", "datasets"} {
		if n := countNullOwners(t, db, table); n != 0 {
			t.Fatalf("%s still has %d null owners", table, n)
		}
	}
}

func TestMigrateLeavesOwnedRowsAlone(t *testing.T) {
	m, _, path := newMigrator(t)

	if _, err := m.Migrate(context.Background()); err != nil {
		t.Fatalf("bootstrap migrate: %v", err)
	}

	db := openSeedDB(t, path)
	seedUser(t, db, "alice@example.com")
	bob := seedUser(t, db, "bob@example.com")
	m.Cfg.MigrationTargetEmail = "alice@example.com"
	if err := db.Exec(
		`INSERT INTO strategies (strategy_id, name, user_id) VALUES ('owned', 'bobs', ?), ('loose', 'nobodys', NULL)`,
		bob.UserID,
	).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	summary, err := m.Migrate(context.Background())
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if summary.RowsReassigned != 1 {
		t.Fatalf("rows reassigned = %d, want 1", summary.RowsReassigned)
	}

	var owner string
	if err := db.Raw(`SELECT user_id FROM strategies WHERE strategy_id = 'owned'`).Scan(&owner).Error; err != nil {
		t.Fatalf("read owner: %v", err)
	}
	if owner != bob.UserID {
		t.Fatalf("owned row moved from %s to %s", bob.UserID, owner)
	}
}

func TestMigratePartiallyMigratedDatabase(t *testing.T) {
	m, buf, path := newMigrator(t)

	// strategies already carries user_id and owned rows; datasets is
	// still pre-tenancy and lacks the column entirely.
	db := openSeedDB(t, path)
	stmts := []string{
		`CREATE TABLE users (user_id TEXT NOT NULL, email TEXT NOT NULL, hashed_password TEXT, role TEXT NOT NULL DEFAULT 'user', is_active INTEGER NOT NULL DEFAULT 1, created_utc DATETIME, PRIMARY KEY (user_id))`,
		`INSERT INTO users (user_id, email) VALUES ('u-alice', 'alice@example.com')`,
		`CREATE TABLE strategies (strategy_id TEXT NOT NULL, name TEXT NOT NULL, user_id TEXT, created_utc DATETIME, PRIMARY KEY (strategy_id))`,
		`INSERT INTO strategies (strategy_id, name, user_id) VALUES ('s1', 'a', 'u-alice'), ('s2', 'b', 'u-alice'), ('s3', 'c', 'u-alice')`,
		`CREATE TABLE datasets (dataset_id TEXT NOT NULL, name TEXT NOT NULL, PRIMARY KEY (dataset_id))`,
		`INSERT INTO datasets (dataset_id, name) VALUES ('d1', 'eurusd'), ('d2', 'gbpusd')`,
	}
	for _, s := range stmts {
		if err := db.Exec(s).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	m.Cfg.MigrationTargetEmail = "alice@example.com"
	summary, err := m.Migrate(context.Background())
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if summary.RowsReassigned != 2 {
		t.Fatalf("rows reassigned = %d, want the 2 datasets only", summary.RowsReassigned)
	}
	if summary.Violations != 0 {
		t.Fatalf("violations = %d, want 0", summary.Violations)
	}
	if !strings.Contains(buf.String(), "status=ok") {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}

	var owned int64
	if err := db.Raw(`SELECT COUNT(*) FROM strategies WHERE user_id = 'u-alice'`).Scan(&owned).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if owned != 3 {
		t.Fatalf("pre-owned strategies disturbed: %d owned by alice, want 3", owned)
	}
}

func TestMigrateMissingTargetUser(t *testing.T) {
	m, _, path := newMigrator(t)

	if _, err := m.Migrate(context.Background()); err != nil {
		t.Fatalf("bootstrap migrate: %v", err)
	}

	db := openSeedDB(t, path)
	seedOrphans(t, db)
	m.Cfg.MigrationTargetEmail = "ghost@example.com"

	_, err := m.Migrate(context.Background())
	if !errors.Is(err, tenancy.ErrTargetUserMissing) {
		t.Fatalf("error = %v, want ErrTargetUserMissing", err)
	}

	// The schema evolution sticks, the orphans stay put.
	if n := countNullOwners(t, db, "strategies"); n != 3 {
		t.Fatalf("orphan strategies = %d, want 3 untouched", n)
	}
}

func TestMigrateRerunIsStable(t *testing.T) {
	m, buf, path := newMigrator(t)

	if _, err := m.Migrate(context.Background()); err != nil {
		t.Fatalf("bootstrap migrate: %v", err)
	}
	db := openSeedDB(t, path)
	seedUser(t, db, "alice@example.com")
	seedOrphans(t, db)
	m.Cfg.MigrationTargetEmail = "alice@example.com"
	if _, err := m.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	buf.Reset()
	summary, err := m.Migrate(context.Background())
	if err != nil {
		t.Fatalf("third migrate: %v", err)
	}
	if summary.SchemaChanges != 0 || summary.RowsReassigned != 0 || summary.Violations != 0 {
		t.Fatalf("re-run is not a no-op: %+v", summary)
	}
	if !strings.Contains(buf.String(), "RESULT status=ok schema_changes=0 rows_reassigned=0 violations=0") {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
}

func TestCheckReportsDefects(t *testing.T) {
	m, buf, path := newMigrator(t)

	if _, err := m.Migrate(context.Background()); err != nil {
		t.Fatalf("bootstrap migrate: %v", err)
	}

	db := openSeedDB(t, path)
	stmts := []string{
		`PRAGMA foreign_keys = OFF`,
		`INSERT INTO trades (trade_id, run_id, symbol, side, quantity) VALUES ('t1', 'no-such-run', 'EURUSD', 'LONG', 1)`,
		`PRAGMA foreign_keys = ON`,
	}
	for _, s := range stmts {
		if err := db.Exec(s).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	buf.Reset()
	summary, err := m.Check(context.Background())
	var invErr *InvariantError
	if !errors.As(err, &invErr) {
		t.Fatalf("error = %v, want InvariantError", err)
	}
	if summary.Violations == 0 {
		t.Fatal("check found no violations on a defective database")
	}
	if !strings.Contains(buf.String(), "invariants.referential.trades=1") {
		t.Fatalf("report missing referential line:\n%s", buf.String())
	}
}

func TestCheckCleanDatabase(t *testing.T) {
	m, buf, _ := newMigrator(t)

	if _, err := m.Migrate(context.Background()); err != nil {
		t.Fatalf("bootstrap migrate: %v", err)
	}

	buf.Reset()
	summary, err := m.Check(context.Background())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if summary.Violations != 0 {
		t.Fatalf("violations = %d, want 0", summary.Violations)
	}
	if !strings.Contains(buf.String(), "violations=0") {
		t.Fatalf("report missing violations line:\n%s", buf.String())
	}
}

func TestIntrospectListsTablesAndColumns(t *testing.T) {
	m, buf, _ := newMigrator(t)

	if _, err := m.Migrate(context.Background()); err != nil {
		t.Fatalf("bootstrap migrate: %v", err)
	}

	buf.Reset()
	if err := m.Introspect(context.Background()); err != nil {
		t.Fatalf("introspect: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"table=users rows=0",
		"table=trades rows=0",
		"column=user_id type=TEXT pk notnull",
		"column=email type=TEXT notnull",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("introspect output missing %q:\n%s", want, out)
		}
	}

	// users is a dependency root and must come before its dependents.
	if strings.Index(out, "table=users") > strings.Index(out, "table=strategies") {
		t.Fatal("users listed after strategies")
	}
}

func TestReassignCommandPrintsPerTableCounts(t *testing.T) {
	m, buf, path := newMigrator(t)

	if _, err := m.Migrate(context.Background()); err != nil {
		t.Fatalf("bootstrap migrate: %v", err)
	}
	db := openSeedDB(t, path)
	seedUser(t, db, "alice@example.com")
	seedOrphans(t, db)

	buf.Reset()
	summary, err := m.Reassign(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if summary.RowsReassigned != 10 {
		t.Fatalf("rows reassigned = %d, want 10", summary.RowsReassigned)
	}

	out := buf.String()
	for _, want := range []string{
		"reassigned.strategies=3",
		"reassigned.strategy_instances=5",
		"reassigned.datasets=2",
		"RESULT status=ok schema_changes=0 rows_reassigned=10 violations=0",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestMigrateUnreachableDatabase(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-directory")
	if err := writeFile(blocker, "plain file"); err != nil {
		t.Fatalf("setup: %v", err)
	}
	t.Setenv("TRADING_DB_PATH", filepath.Join(blocker, "nested", "trading_data.db"))

	m := New(database.Config{GormLogLevel: 1})
	m.StartDir = dir
	m.Out = &bytes.Buffer{}

	_, err := m.Migrate(context.Background())
	if !errors.Is(err, database.ErrUnreachable) {
		t.Fatalf("error = %v, want ErrUnreachable", err)
	}
}
