// Package catalog is the in-process description of the schema the
// platform owns: every table, its columns and indices, and how each
// table relates to the tenant that owns its rows.
package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Ownership classifies how a table relates to tenant identity.
type Ownership string

const (
	// OwnershipSystem tables belong to the platform itself (users,
	// api_keys, shared market data). They are never reassigned.
	OwnershipSystem Ownership = "system"
	// OwnershipOwned tables carry their own user_id column.
	OwnershipOwned Ownership = "owned"
	// OwnershipDerived tables inherit ownership through a parent
	// foreign key instead of carrying a user_id column.
	OwnershipDerived Ownership = "derived"
)

// Kind is the semantic type of a column, independent of the SQL dialect.
type Kind int

const (
	Integer Kind = iota
	Float
	Text
	TimeUTC
	JSON
	Enum
)

// Type couples a semantic kind with, for enums, the declared value set.
type Type struct {
	Kind   Kind
	Values []string
}

// EnumOf declares an enum type over the given closed value set.
func EnumOf(values ...string) Type { return Type{Kind: Enum, Values: values} }

// SQL returns the SQLite storage type for the semantic type.
func (t Type) SQL() string {
	switch t.Kind {
	case Integer:
		return "INTEGER"
	case Float:
		return "REAL"
	case TimeUTC:
		return "DATETIME"
	default:
		// Text, JSON and Enum are all stored as TEXT.
		return "TEXT"
	}
}

// Compatible reports whether a live declared type can hold this
// semantic type. SQLite type affinity is loose, so the comparison is
// by storage category rather than exact spelling.
func (t Type) Compatible(declared string) bool {
	d := strings.ToUpper(strings.TrimSpace(declared))
	if i := strings.Index(d, "("); i >= 0 {
		d = d[:i]
	}
	switch t.Kind {
	case Integer:
		return strings.Contains(d, "INT") || d == "BOOLEAN" || d == "BOOL"
	case Float:
		return d == "REAL" || d == "FLOAT" || d == "DOUBLE" || d == "NUMERIC" || d == "DECIMAL"
	case TimeUTC:
		return strings.Contains(d, "DATE") || strings.Contains(d, "TIME") || d == "TEXT"
	default:
		return d == "TEXT" || strings.Contains(d, "CHAR") || strings.Contains(d, "CLOB") || d == "JSON" || d == ""
	}
}

// Column declares one catalog column.
type Column struct {
	Name    string
	Type    Type
	NotNull bool
	Default string // literal SQL default, empty for none
}

// ForeignKey declares a reference from a local column to a parent table.
type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

// Index declares a secondary index.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
}

// Table is the full declaration of one platform table.
type Table struct {
	Name        string
	Ownership   Ownership
	PrimaryKey  []string
	Columns     []Column
	ForeignKeys []ForeignKey
	Indexes     []Index

	// OwnerParent names the foreign-key column ownership flows
	// through for derived tables. Empty otherwise.
	OwnerParent string

	// TemporalPairs lists (start, end) column pairs that must be
	// ordered when both are present.
	TemporalPairs [][2]string
	// Positive and NonNegative list columns with monetary sanity
	// constraints (> 0 and >= 0 respectively).
	Positive    []string
	NonNegative []string
}

// Column returns the declared column with the given name.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// OwnerFK returns the foreign key ownership flows through, for
// derived tables.
func (t Table) OwnerFK() (ForeignKey, bool) {
	if t.OwnerParent == "" {
		return ForeignKey{}, false
	}
	for _, fk := range t.ForeignKeys {
		if fk.Column == t.OwnerParent {
			return fk, true
		}
	}
	return ForeignKey{}, false
}

// ErrCycle reports a foreign-key cycle in the catalog, which is a
// catalog bug and must abort a run before any mutation.
var ErrCycle = errors.New("catalog: foreign key cycle")

// TableByName looks a table up in the registry.
func TableByName(name string) (Table, bool) {
	for _, t := range Tables() {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// Owned returns the tables that carry their own user_id column, in
// declaration order.
func Owned() []Table {
	var out []Table
	for _, t := range Tables() {
		if t.Ownership == OwnershipOwned {
			out = append(out, t)
		}
	}
	return out
}

// Derived returns the tables whose ownership is inherited, in
// declaration order.
func Derived() []Table {
	var out []Table
	for _, t := range Tables() {
		if t.Ownership == OwnershipDerived {
			out = append(out, t)
		}
	}
	return out
}

// Ordered returns the catalog tables sorted so that every table comes
// after the tables it references. Ties keep declaration order so the
// result is deterministic. Returns ErrCycle when the FK graph is not a
// DAG.
func Ordered() ([]Table, error) {
	tables := Tables()
	index := make(map[string]int, len(tables))
	for i, t := range tables {
		index[t.Name] = i
	}

	indegree := make([]int, len(tables))
	children := make(map[int][]int)
	for i, t := range tables {
		for _, fk := range t.ForeignKeys {
			p, ok := index[fk.RefTable]
			if !ok || p == i {
				// References outside the catalog (or to self)
				// do not constrain ordering.
				continue
			}
			indegree[i]++
			children[p] = append(children[p], i)
		}
	}

	var order []Table
	for len(order) < len(tables) {
		next := -1
		for i := range tables {
			if indegree[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			return nil, fmt.Errorf("%w involving %d remaining tables", ErrCycle, len(tables)-len(order))
		}
		indegree[next] = -1
		order = append(order, tables[next])
		for _, c := range children[next] {
			indegree[c]--
		}
	}
	return order, nil
}

// OwnerChain returns the foreign-key hops from a derived table up to
// the owned ancestor that carries user_id. For owned tables the chain
// is empty. System tables have no owner chain.
func OwnerChain(t Table) ([]ForeignKey, Table, error) {
	var chain []ForeignKey
	cur := t
	for cur.Ownership == OwnershipDerived {
		fk, ok := cur.OwnerFK()
		if !ok {
			return nil, Table{}, fmt.Errorf("catalog: derived table %s has no owner foreign key", cur.Name)
		}
		parent, ok := TableByName(fk.RefTable)
		if !ok {
			return nil, Table{}, fmt.Errorf("catalog: %s owner parent %s is not declared", cur.Name, fk.RefTable)
		}
		chain = append(chain, fk)
		cur = parent
		if len(chain) > len(Tables()) {
			return nil, Table{}, fmt.Errorf("%w in owner chain of %s", ErrCycle, t.Name)
		}
	}
	if cur.Ownership != OwnershipOwned {
		return nil, Table{}, fmt.Errorf("catalog: owner chain of %s ends at %s table %s", t.Name, cur.Ownership, cur.Name)
	}
	return chain, cur, nil
}
