package schema

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tenancymigrator/src/catalog"
)

// StepKind identifies one kind of additive schema change.
type StepKind int

const (
	StepCreateTable StepKind = iota
	StepAddColumn
	StepAddIndex
)

func (k StepKind) String() string {
	switch k {
	case StepCreateTable:
		return "create_table"
	case StepAddColumn:
		return "add_column"
	default:
		return "add_index"
	}
}

// Step is one planned schema change. A create-table step carries the
// index statements for the new table so the whole table counts as a
// single change.
type Step struct {
	Kind       StepKind
	Table      string
	Object     string // column or index name, the table name for creates
	Statements []string
}

// EvolveError reports a DDL failure on a specific table. The whole run
// aborts; changes to earlier tables are already committed and safe.
type EvolveError struct {
	Table string
	Err   error
}

func (e *EvolveError) Error() string {
	return fmt.Sprintf("evolve %s: %v", e.Table, e.Err)
}

func (e *EvolveError) Unwrap() error { return e.Err }

// Evolver diffs the catalog against the live schema and applies the
// missing pieces. It only ever adds: tables, nullable columns,
// indexes. It never drops, renames, retypes or reorders.
type Evolver struct {
	db  *gorm.DB
	in  *Introspector
	log *logrus.Entry
}

func NewEvolver(db *gorm.DB) *Evolver {
	return &Evolver{
		db:  db,
		in:  NewIntrospector(db),
		log: logrus.WithField("component", "evolver"),
	}
}

// Plan computes every pending step without touching the database.
// Tables are ordered parents before children; a catalog FK cycle
// surfaces here, before any mutation.
func (e *Evolver) Plan() ([]Step, error) {
	ordered, err := catalog.Ordered()
	if err != nil {
		return nil, err
	}
	var steps []Step
	for _, t := range ordered {
		ts, err := e.planTable(t)
		if err != nil {
			return nil, err
		}
		steps = append(steps, ts...)
	}
	return steps, nil
}

func (e *Evolver) planTable(t catalog.Table) ([]Step, error) {
	exists, err := e.in.HasTable(t.Name)
	if err != nil {
		return nil, err
	}

	if !exists {
		stmts := []string{createTableSQL(t)}
		for _, ix := range t.Indexes {
			stmts = append(stmts, createIndexSQL(t.Name, ix))
		}
		return []Step{{Kind: StepCreateTable, Table: t.Name, Object: t.Name, Statements: stmts}}, nil
	}

	live, err := e.in.ListColumns(t.Name)
	if err != nil {
		return nil, err
	}
	liveByName := make(map[string]ColumnInfo, len(live))
	for _, c := range live {
		liveByName[c.Name] = c
	}

	var steps []Step
	for _, c := range t.Columns {
		lc, ok := liveByName[c.Name]
		if !ok {
			steps = append(steps, Step{
				Kind:       StepAddColumn,
				Table:      t.Name,
				Object:     c.Name,
				Statements: []string{addColumnSQL(t.Name, c)},
			})
			continue
		}
		if !c.Type.Compatible(lc.DeclaredType) {
			// Type reconciliation is a human decision; never rewrite.
			e.log.WithFields(logrus.Fields{
				"table":    t.Name,
				"column":   c.Name,
				"live":     lc.DeclaredType,
				"declared": c.Type.SQL(),
			}).Warn("live column type disagrees with catalog, leaving as-is")
		}
	}

	liveIndexes, err := e.in.ListIndexes(t.Name)
	if err != nil {
		return nil, err
	}
	for _, ix := range t.Indexes {
		if _, ok := liveIndexes[ix.Name]; ok {
			continue
		}
		steps = append(steps, Step{
			Kind:       StepAddIndex,
			Table:      t.Name,
			Object:     ix.Name,
			Statements: []string{createIndexSQL(t.Name, ix)},
		})
	}
	return steps, nil
}

// Evolve plans and applies all pending changes, one transaction per
// table, re-introspecting between tables. Returns the number of
// applied changes. Running it again right away applies zero.
func (e *Evolver) Evolve() (int, error) {
	ordered, err := catalog.Ordered()
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, t := range ordered {
		// Re-plan against the live schema so work already done by a
		// previous run (or an earlier step) is seen as done.
		steps, err := e.planTable(t)
		if err != nil {
			return applied, &EvolveError{Table: t.Name, Err: err}
		}
		if len(steps) == 0 {
			continue
		}

		n, err := e.applyTable(t.Name, steps)
		applied += n
		if err != nil {
			return applied, &EvolveError{Table: t.Name, Err: err}
		}
	}
	return applied, nil
}

func (e *Evolver) applyTable(table string, steps []Step) (int, error) {
	applied := 0
	err := e.db.Transaction(func(tx *gorm.DB) error {
		for _, step := range steps {
			changed := false
			for _, stmt := range step.Statements {
				if err := tx.Exec(stmt).Error; err != nil {
					if isAlreadyApplied(err) {
						// Another historical migration got here first;
						// treat the step as done.
						e.log.WithFields(logrus.Fields{
							"table":  table,
							"step":   step.Kind.String(),
							"object": step.Object,
						}).Info("schema change already applied, skipping")
						continue
					}
					return fmt.Errorf("%s %s: %w", step.Kind, step.Object, err)
				}
				changed = true
			}
			if changed {
				applied++
				e.log.WithFields(logrus.Fields{
					"table":  table,
					"step":   step.Kind.String(),
					"object": step.Object,
				}).Info("schema change applied")
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return applied, nil
}

func isAlreadyApplied(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate column") || strings.Contains(msg, "already exists")
}
