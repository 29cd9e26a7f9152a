package main

import (
	"fmt"
	"testing"

	"tenancymigrator/src/database"
	"tenancymigrator/src/driver"
	"tenancymigrator/src/tenancy"
)

func TestExitCodeMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"unreachable database", database.ErrUnreachable, 4},
		{"wrapped unreachable", fmt.Errorf("open: %w", database.ErrUnreachable), 4},
		{"missing target user", tenancy.ErrTargetUserMissing, 3},
		{"wrapped missing target", fmt.Errorf("reassign: %w", tenancy.ErrTargetUserMissing), 3},
		{"invariant violations", &driver.InvariantError{Violations: 2}, 2},
		{"anything else", fmt.Errorf("ALTER TABLE failed"), 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := exitCode(tc.err); got != tc.want {
				t.Fatalf("exitCode(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}
