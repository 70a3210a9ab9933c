package repository

import (
	"testing"
)

func TestDBDialectNameDefaultsToSQLite(t *testing.T) {
	if got := dbDialectName(nil); got != "sqlite" {
		t.Fatalf("nil db should default to sqlite, got %s", got)
	}
}

func TestLikeOperatorByDialect(t *testing.T) {
	cases := []struct {
		dialect string
		want    string
	}{
		{"sqlite", "LIKE"},
		{"postgres", "ILIKE"},
		{"postgresql", "ILIKE"},
		{" Postgres ", "ILIKE"},
		{"", "LIKE"},
		{"mysql", "LIKE"},
	}
	for _, c := range cases {
		if got := likeOperatorByDialect(c.dialect); got != c.want {
			t.Fatalf("dialect %q want %s got %s", c.dialect, c.want, got)
		}
	}
}
