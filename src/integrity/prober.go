// Package integrity runs the structural and invariant checks that must
// hold after a tenancy migration. Probing never mutates state.
package integrity

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tenancymigrator/src/catalog"
	"tenancymigrator/src/database"
	"tenancymigrator/src/schema"
)

// OrphanCounts splits ownership defects on an owned table.
type OrphanCounts struct {
	// Null counts rows with no user_id at all.
	Null int64 `json:"null"`
	// Unknown counts rows whose user_id does not resolve to a user.
	// These are never rewritten by the reassigner.
	Unknown int64 `json:"unknown"`
}

// Report is the structured outcome of one probe.
type Report struct {
	CatalogDefects []string                `json:"catalog_defects"`
	Presence       map[string]bool         `json:"presence"`
	RowCounts      map[string]int64        `json:"row_counts"`
	Orphans        map[string]OrphanCounts `json:"orphans"`
	// DerivedOrphans counts rows of derived tables that do not reach a
	// resolvable owner through the declared parent chain.
	DerivedOrphans map[string]int64 `json:"derived_orphans"`
	Referential    map[string]int64 `json:"referential"`
	Enums          map[string]int64 `json:"enums"` // keyed table.column
	Temporal       map[string]int64 `json:"temporal"`
	Monetary       map[string]int64 `json:"monetary"`
}

// Violations totals the defects that make a migration run fail.
// Unknown user_id rows and derived-chain orphans are excluded from the
// total: their root cause is already counted once, either as a
// referential defect or as a null owner on the owning table.
func (r *Report) Violations() int64 {
	total := int64(len(r.CatalogDefects))
	for _, c := range r.Orphans {
		total += c.Null
	}
	for _, n := range r.Referential {
		total += n
	}
	for _, n := range r.Enums {
		total += n
	}
	for _, n := range r.Temporal {
		total += n
	}
	for _, n := range r.Monetary {
		total += n
	}
	return total
}

// NullOwnerRows totals null user_id rows across owned tables.
func (r *Report) NullOwnerRows() int64 {
	var total int64
	for _, c := range r.Orphans {
		total += c.Null
	}
	return total
}

// Print writes the report as stable, line-oriented key=value output,
// tables in catalog order.
func (r *Report) Print(w io.Writer) {
	fmt.Fprintf(w, "catalog.defects=%d\n", len(r.CatalogDefects))
	for _, d := range r.CatalogDefects {
		fmt.Fprintf(w, "catalog.defect=%s\n", d)
	}
	for _, t := range catalog.Tables() {
		state := "absent"
		if r.Presence[t.Name] {
			state = "present"
		}
		fmt.Fprintf(w, "presence.%s=%s\n", t.Name, state)
	}
	for _, t := range catalog.Tables() {
		fmt.Fprintf(w, "row_counts.%s=%d\n", t.Name, r.RowCounts[t.Name])
	}
	for _, t := range catalog.Owned() {
		c := r.Orphans[t.Name]
		fmt.Fprintf(w, "orphans.%s.null=%d\n", t.Name, c.Null)
		fmt.Fprintf(w, "orphans.%s.unknown=%d\n", t.Name, c.Unknown)
	}
	for _, t := range catalog.Derived() {
		if n, ok := r.DerivedOrphans[t.Name]; ok {
			fmt.Fprintf(w, "orphans.%s.unowned=%d\n", t.Name, n)
		}
	}
	for _, t := range catalog.Tables() {
		if n, ok := r.Referential[t.Name]; ok {
			fmt.Fprintf(w, "invariants.referential.%s=%d\n", t.Name, n)
		}
	}
	for _, t := range catalog.Tables() {
		for _, c := range t.Columns {
			if n, ok := r.Enums[t.Name+"."+c.Name]; ok {
				fmt.Fprintf(w, "invariants.enum.%s.%s=%d\n", t.Name, c.Name, n)
			}
		}
	}
	for _, t := range catalog.Tables() {
		if n, ok := r.Temporal[t.Name]; ok {
			fmt.Fprintf(w, "invariants.temporal.%s=%d\n", t.Name, n)
		}
	}
	for _, t := range catalog.Tables() {
		if n, ok := r.Monetary[t.Name]; ok {
			fmt.Fprintf(w, "invariants.monetary.%s=%d\n", t.Name, n)
		}
	}
	fmt.Fprintf(w, "violations=%d\n", r.Violations())
}

// Prober runs every check against the live database.
type Prober struct {
	db  *gorm.DB
	in  *schema.Introspector
	log *logrus.Entry
}

func NewProber(db *gorm.DB) *Prober {
	return &Prober{
		db:  db,
		in:  schema.NewIntrospector(db),
		log: logrus.WithField("component", "prober"),
	}
}

// Probe produces a full report.
func (p *Prober) Probe() (*Report, error) {
	report := &Report{
		Presence:       make(map[string]bool),
		RowCounts:      make(map[string]int64),
		Orphans:        make(map[string]OrphanCounts),
		DerivedOrphans: make(map[string]int64),
		Referential:    make(map[string]int64),
		Enums:          make(map[string]int64),
		Temporal:       make(map[string]int64),
		Monetary:       make(map[string]int64),
	}

	report.CatalogDefects = database.IntegrityDefects(p.db)

	liveTables, err := p.in.ListTables()
	if err != nil {
		return nil, err
	}
	liveColumns := make(map[string]map[string]struct{})
	hasColumn := func(table, column string) bool {
		cols, ok := liveColumns[table]
		if !ok {
			if _, present := liveTables[table]; !present {
				return false
			}
			list, err := p.in.ListColumns(table)
			if err != nil {
				return false
			}
			cols = make(map[string]struct{}, len(list))
			for _, c := range list {
				cols[c.Name] = struct{}{}
			}
			liveColumns[table] = cols
		}
		_, ok = cols[column]
		return ok
	}

	for _, t := range catalog.Tables() {
		_, present := liveTables[t.Name]
		report.Presence[t.Name] = present
		count, err := p.in.RowCount(t.Name)
		if err != nil {
			return nil, err
		}
		report.RowCounts[t.Name] = count

		if !present {
			if t.Ownership == catalog.OwnershipOwned {
				report.Orphans[t.Name] = OrphanCounts{}
			}
			continue
		}

		switch t.Ownership {
		case catalog.OwnershipOwned:
			counts, err := p.ownedOrphans(t, hasColumn, count)
			if err != nil {
				return nil, err
			}
			report.Orphans[t.Name] = counts
		case catalog.OwnershipDerived:
			n, ok, err := p.derivedOrphans(t, liveTables, hasColumn)
			if err != nil {
				return nil, err
			}
			if ok {
				report.DerivedOrphans[t.Name] = n
			}
		}

		if err := p.referential(t, liveTables, hasColumn, report); err != nil {
			return nil, err
		}
		if err := p.enums(t, hasColumn, report); err != nil {
			return nil, err
		}
		if err := p.temporal(t, hasColumn, report); err != nil {
			return nil, err
		}
		if err := p.monetary(t, hasColumn, report); err != nil {
			return nil, err
		}
	}

	return report, nil
}

func (p *Prober) count(query string, args ...interface{}) (int64, error) {
	var n int64
	if err := p.db.Raw(query, args...).Scan(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (p *Prober) ownedOrphans(t catalog.Table, hasColumn func(string, string) bool, rowCount int64) (OrphanCounts, error) {
	if !hasColumn(t.Name, "user_id") {
		// Pre-tenancy shape: every row is an orphan.
		return OrphanCounts{Null: rowCount}, nil
	}

	null, err := p.count(fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE user_id IS NULL", t.Name))
	if err != nil {
		return OrphanCounts{}, fmt.Errorf("null owners in %s: %w", t.Name, err)
	}

	var unknown int64
	if hasColumn("users", "user_id") {
		unknown, err = p.count(fmt.Sprintf(
			"SELECT COUNT(*) FROM %s WHERE user_id IS NOT NULL AND user_id NOT IN (SELECT user_id FROM users)",
			t.Name,
		))
		if err != nil {
			return OrphanCounts{}, fmt.Errorf("unknown owners in %s: %w", t.Name, err)
		}
	}
	return OrphanCounts{Null: null, Unknown: unknown}, nil
}

// derivedOrphans walks the declared owner chain with LEFT JOINs and
// counts rows whose terminal owner is null or unresolvable. Skipped
// (ok=false) when part of the chain is missing from the live DB.
func (p *Prober) derivedOrphans(t catalog.Table, liveTables map[string]struct{}, hasColumn func(string, string) bool) (int64, bool, error) {
	chain, owner, err := catalog.OwnerChain(t)
	if err != nil {
		return 0, false, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT COUNT(*) FROM %s t0", t.Name)
	for i, fk := range chain {
		if _, ok := liveTables[fk.RefTable]; !ok {
			return 0, false, nil
		}
		fmt.Fprintf(&b, " LEFT JOIN %s t%d ON t%d.%s = t%d.%s",
			fk.RefTable, i+1, i, fk.Column, i+1, fk.RefColumn)
	}
	if !hasColumn(owner.Name, "user_id") {
		return 0, false, nil
	}
	fmt.Fprintf(&b, " WHERE t%d.user_id IS NULL", len(chain))

	n, err := p.count(b.String())
	if err != nil {
		return 0, false, fmt.Errorf("derived orphans in %s: %w", t.Name, err)
	}
	return n, true, nil
}

func (p *Prober) referential(t catalog.Table, liveTables map[string]struct{}, hasColumn func(string, string) bool, report *Report) error {
	var total int64
	counted := false
	for _, fk := range t.ForeignKeys {
		if _, ok := liveTables[fk.RefTable]; !ok {
			continue
		}
		if !hasColumn(t.Name, fk.Column) || !hasColumn(fk.RefTable, fk.RefColumn) {
			continue
		}
		n, err := p.count(fmt.Sprintf(
			"SELECT COUNT(*) FROM %s c WHERE c.%s IS NOT NULL AND NOT EXISTS (SELECT 1 FROM %s p WHERE p.%s = c.%s)",
			t.Name, fk.Column, fk.RefTable, fk.RefColumn, fk.Column,
		))
		if err != nil {
			return fmt.Errorf("referential %s.%s: %w", t.Name, fk.Column, err)
		}
		total += n
		counted = true
	}
	if counted {
		report.Referential[t.Name] = total
	}
	return nil
}

func (p *Prober) enums(t catalog.Table, hasColumn func(string, string) bool, report *Report) error {
	for _, c := range t.Columns {
		if c.Type.Kind != catalog.Enum || !hasColumn(t.Name, c.Name) {
			continue
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(c.Type.Values)), ",")
		args := make([]interface{}, len(c.Type.Values))
		for i, v := range c.Type.Values {
			args[i] = v
		}
		n, err := p.count(fmt.Sprintf(
			"SELECT COUNT(*) FROM %s WHERE %s IS NOT NULL AND %s NOT IN (%s)",
			t.Name, c.Name, c.Name, placeholders,
		), args...)
		if err != nil {
			return fmt.Errorf("enum %s.%s: %w", t.Name, c.Name, err)
		}
		report.Enums[t.Name+"."+c.Name] = n
	}
	return nil
}

func (p *Prober) temporal(t catalog.Table, hasColumn func(string, string) bool, report *Report) error {
	if len(t.TemporalPairs) == 0 {
		return nil
	}
	var total int64
	counted := false
	for _, pair := range t.TemporalPairs {
		start, end := pair[0], pair[1]
		if !hasColumn(t.Name, start) || !hasColumn(t.Name, end) {
			continue
		}
		n, err := p.count(fmt.Sprintf(
			"SELECT COUNT(*) FROM %s WHERE %s IS NOT NULL AND %s IS NOT NULL AND %s > %s",
			t.Name, start, end, start, end,
		))
		if err != nil {
			return fmt.Errorf("temporal %s (%s,%s): %w", t.Name, start, end, err)
		}
		total += n
		counted = true
	}
	if counted {
		report.Temporal[t.Name] = total
	}
	return nil
}

func (p *Prober) monetary(t catalog.Table, hasColumn func(string, string) bool, report *Report) error {
	if len(t.Positive) == 0 && len(t.NonNegative) == 0 {
		return nil
	}
	var total int64
	counted := false
	for _, col := range t.Positive {
		if !hasColumn(t.Name, col) {
			continue
		}
		n, err := p.count(fmt.Sprintf(
			"SELECT COUNT(*) FROM %s WHERE %s IS NOT NULL AND %s <= 0", t.Name, col, col))
		if err != nil {
			return fmt.Errorf("monetary %s.%s: %w", t.Name, col, err)
		}
		total += n
		counted = true
	}
	for _, col := range t.NonNegative {
		if !hasColumn(t.Name, col) {
			continue
		}
		n, err := p.count(fmt.Sprintf(
			"SELECT COUNT(*) FROM %s WHERE %s IS NOT NULL AND %s < 0", t.Name, col, col))
		if err != nil {
			return fmt.Errorf("monetary %s.%s: %w", t.Name, col, err)
		}
		total += n
		counted = true
	}
	if counted {
		report.Monetary[t.Name] = total
	}
	return nil
}
