package catalog

import (
	"testing"
)

func TestOrderedParentsBeforeChildren(t *testing.T) {
	ordered, err := Ordered()
	if err != nil {
		t.Fatalf("unexpected error ordering catalog: %v", err)
	}
	if len(ordered) != len(Tables()) {
		t.Fatalf("ordering lost tables: got %d, want %d", len(ordered), len(Tables()))
	}

	position := make(map[string]int, len(ordered))
	for i, tab := range ordered {
		position[tab.Name] = i
	}

	for _, tab := range ordered {
		for _, fk := range tab.ForeignKeys {
			parent, ok := position[fk.RefTable]
			if !ok {
				t.Fatalf("%s references undeclared table %s", tab.Name, fk.RefTable)
			}
			if parent >= position[tab.Name] {
				t.Fatalf("%s ordered before its parent %s", tab.Name, fk.RefTable)
			}
		}
	}
}

func TestOrderedIsDeterministic(t *testing.T) {
	first, err := Ordered()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Ordered()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range first {
		if first[i].Name != second[i].Name {
			t.Fatalf("ordering not stable at %d: %s vs %s", i, first[i].Name, second[i].Name)
		}
	}
}

func TestOwnedTablesCarryUserID(t *testing.T) {
	owned := Owned()
	if len(owned) == 0 {
		t.Fatal("catalog declares no owned tables")
	}
	for _, tab := range owned {
		if _, ok := tab.Column("user_id"); !ok {
			t.Fatalf("owned table %s has no user_id column", tab.Name)
		}
	}
}

func TestDerivedTablesReachAnOwner(t *testing.T) {
	for _, tab := range Derived() {
		if _, ok := tab.Column("user_id"); ok {
			t.Fatalf("derived table %s must not carry its own user_id", tab.Name)
		}
		chain, owner, err := OwnerChain(tab)
		if err != nil {
			t.Fatalf("owner chain of %s: %v", tab.Name, err)
		}
		if len(chain) == 0 {
			t.Fatalf("owner chain of %s is empty", tab.Name)
		}
		if owner.Ownership != OwnershipOwned {
			t.Fatalf("owner chain of %s ends at %s table %s", tab.Name, owner.Ownership, owner.Name)
		}
	}
}

func TestTradesChainEndsAtStrategyInstances(t *testing.T) {
	trades, ok := TableByName("trades")
	if !ok {
		t.Fatal("trades not declared")
	}
	chain, owner, err := OwnerChain(trades)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if owner.Name != "strategy_instances" {
		t.Fatalf("trades owner is %s, want strategy_instances", owner.Name)
	}
	if len(chain) != 2 {
		t.Fatalf("trades owner chain has %d hops, want 2", len(chain))
	}
}

func TestTypeCompatible(t *testing.T) {
	tests := []struct {
		name     string
		typ      Type
		declared string
		want     bool
	}{
		{"text vs varchar", Type{Kind: Text}, "varchar(255)", true},
		{"text vs integer", Type{Kind: Text}, "INTEGER", false},
		{"integer vs bigint", Type{Kind: Integer}, "BIGINT", true},
		{"float vs real", Type{Kind: Float}, "REAL", true},
		{"float vs text", Type{Kind: Float}, "TEXT", false},
		{"time vs datetime", Type{Kind: TimeUTC}, "datetime", true},
		{"json vs text", Type{Kind: JSON}, "TEXT", true},
		{"enum vs varchar", EnumOf("A", "B"), "VARCHAR(20)", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.Compatible(tt.declared); got != tt.want {
				t.Fatalf("Compatible(%q) = %v, want %v", tt.declared, got, tt.want)
			}
		})
	}
}

func TestEveryTableHasPrimaryKey(t *testing.T) {
	for _, tab := range Tables() {
		if len(tab.PrimaryKey) == 0 {
			t.Fatalf("table %s has no primary key", tab.Name)
		}
		for _, pk := range tab.PrimaryKey {
			if _, ok := tab.Column(pk); !ok {
				t.Fatalf("table %s primary key %s is not a declared column", tab.Name, pk)
			}
		}
	}
}
