package repository

import "testing"

func TestLikeOperatorByDialect(t *testing.T) {
	if got := likeOperatorByDialect("postgres"); got != "ILIKE" {
		t.Fatalf("postgres should use ILIKE, got %s", got)
	}
	if got := likeOperatorByDialect("sqlite"); got != "LIKE" {
		t.Fatalf("sqlite should use LIKE, got %s", got)
	}
}

func TestBuildLikeConditionByDialect(t *testing.T) {
	cond, args := buildLikeConditionByDialect("sqlite", "50%_off", "name", " ", "sku")
	want := `(name LIKE ? ESCAPE '\' OR sku LIKE ? ESCAPE '\')`
	if cond != want {
		t.Fatalf("unexpected condition: %s", cond)
	}
	if len(args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(args))
	}
	if args[0] != `%50\%\_off%` {
		t.Fatalf("keyword should be escaped, got %v", args[0])
	}
}
