// Package driver orchestrates a tenancy migration run: locate, open,
// introspect, evolve, reassign, verify.
package driver

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tenancymigrator/src/catalog"
	"tenancymigrator/src/database"
	"tenancymigrator/src/integrity"
	"tenancymigrator/src/schema"
	"tenancymigrator/src/tenancy"
)

// InvariantError reports residual defects after migration. Schema
// changes are kept: they are safe and additive.
type InvariantError struct {
	Violations int64
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("post-migration invariants violated: %d defects", e.Violations)
}

// Summary is what a completed run reports.
type Summary struct {
	SchemaChanges  int   `json:"schema_changes"`
	RowsReassigned int64 `json:"rows_reassigned"`
	Violations     int64 `json:"violations"`
}

func resultLine(ok bool, s Summary) string {
	status := "ok"
	if !ok {
		status = "fail"
	}
	return fmt.Sprintf("RESULT status=%s schema_changes=%d rows_reassigned=%d violations=%d",
		status, s.SchemaChanges, s.RowsReassigned, s.Violations)
}

// Migrator runs the operator-facing commands against one database.
// It opens exactly one connection and holds it for the whole run.
type Migrator struct {
	Cfg      database.Config
	StartDir string    // anchors project-root discovery, defaults to the working directory
	Out      io.Writer // summary and report output, defaults to stdout

	log *logrus.Entry
}

func New(cfg database.Config) *Migrator {
	return &Migrator{
		Cfg: cfg,
		Out: os.Stdout,
		log: logrus.WithField("component", "driver"),
	}
}

func (m *Migrator) out() io.Writer {
	if m.Out != nil {
		return m.Out
	}
	return os.Stdout
}

func (m *Migrator) logger() *logrus.Entry {
	if m.log == nil {
		m.log = logrus.WithField("component", "driver")
	}
	return m.log
}

func (m *Migrator) open() (*gorm.DB, error) {
	start := m.StartDir
	if start == "" {
		if wd, err := os.Getwd(); err == nil {
			start = wd
		} else {
			start = "."
		}
	}
	path := database.Locate(start)
	m.logger().WithField("path", path).Info("database located")
	return database.Connect(path, m.Cfg)
}

// Migrate runs the full sequence: evolve the schema, reassign orphans
// when a target user is configured, verify invariants, emit a summary.
func (m *Migrator) Migrate(ctx context.Context) (Summary, error) {
	var summary Summary

	db, err := m.open()
	if err != nil {
		return summary, err
	}

	in := schema.NewIntrospector(db)
	liveTables, err := in.ListTables()
	if err != nil {
		return summary, err
	}
	m.logger().WithFields(logrus.Fields{
		"live_tables":    len(liveTables),
		"catalog_tables": len(catalog.Tables()),
	}).Info("introspection complete")

	ev := schema.NewEvolver(db)
	// Planning surfaces a catalog FK cycle before any mutation.
	if _, err := ev.Plan(); err != nil {
		return summary, err
	}
	changes, err := ev.Evolve()
	summary.SchemaChanges = changes
	if err != nil {
		return summary, err
	}
	m.logger().WithField("changes", changes).Info("schema evolution complete")

	prober := integrity.NewProber(db)
	pre, err := prober.Probe()
	if err != nil {
		return summary, err
	}
	m.logger().WithField("null_owner_rows", pre.NullOwnerRows()).Info("pre-migration orphan count")

	if m.Cfg.MigrationTargetEmail != "" {
		res, err := tenancy.NewReassigner(db).Reassign(ctx, m.Cfg.MigrationTargetEmail)
		if err != nil {
			return summary, err
		}
		summary.RowsReassigned = res.Total
		m.logger().WithFields(logrus.Fields{
			"rows": res.Total,
			"user": res.TargetUserID,
		}).Info("orphan reassignment complete")
	} else {
		m.logger().Info("MIGRATION_TARGET_EMAIL unset, skipping reassignment")
	}

	post, err := prober.Probe()
	if err != nil {
		return summary, err
	}
	summary.Violations = post.Violations()

	if summary.Violations > 0 || post.NullOwnerRows() > 0 {
		fmt.Fprintln(m.out(), resultLine(false, summary))
		return summary, &InvariantError{Violations: summary.Violations}
	}

	fmt.Fprintln(m.out(), resultLine(true, summary))
	return summary, nil
}

// Check runs the prober read-only and prints the report.
func (m *Migrator) Check(ctx context.Context) (Summary, error) {
	var summary Summary

	db, err := m.open()
	if err != nil {
		return summary, err
	}

	report, err := integrity.NewProber(db).Probe()
	if err != nil {
		return summary, err
	}
	report.Print(m.out())
	summary.Violations = report.Violations()

	if summary.Violations > 0 {
		return summary, &InvariantError{Violations: summary.Violations}
	}
	return summary, nil
}

// Introspect prints the live tables, their columns and row counts.
func (m *Migrator) Introspect(ctx context.Context) error {
	db, err := m.open()
	if err != nil {
		return err
	}

	in := schema.NewIntrospector(db)
	tables, err := in.ListTables()
	if err != nil {
		return err
	}

	// Catalog tables first, in catalog order, then anything extra.
	seen := make(map[string]struct{})
	ordered := make([]string, 0, len(tables))
	for _, t := range catalog.Tables() {
		if _, ok := tables[t.Name]; ok {
			ordered = append(ordered, t.Name)
			seen[t.Name] = struct{}{}
		}
	}
	for name := range tables {
		if _, ok := seen[name]; !ok {
			ordered = append(ordered, name)
		}
	}

	w := m.out()
	for _, name := range ordered {
		count, err := in.RowCount(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "table=%s rows=%d\n", name, count)
		cols, err := in.ListColumns(name)
		if err != nil {
			return err
		}
		for _, c := range cols {
			flags := ""
			if c.PrimaryKey {
				flags += " pk"
			}
			if c.NotNull {
				flags += " notnull"
			}
			fmt.Fprintf(w, "  column=%s type=%s%s\n", c.Name, c.DeclaredType, flags)
		}
	}
	return nil
}

// Reassign runs the locator and the orphan reassigner only.
func (m *Migrator) Reassign(ctx context.Context, email string) (Summary, error) {
	var summary Summary

	db, err := m.open()
	if err != nil {
		return summary, err
	}

	res, err := tenancy.NewReassigner(db).Reassign(ctx, email)
	if err != nil {
		return summary, err
	}
	summary.RowsReassigned = res.Total

	w := m.out()
	for _, tr := range res.Tables {
		fmt.Fprintf(w, "reassigned.%s=%d\n", tr.Table, tr.Updated)
	}
	fmt.Fprintln(w, resultLine(true, summary))
	return summary, nil
}
