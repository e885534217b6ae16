package core

import "testing"

func TestBestMatch_Typo(t *testing.T) {
	candidates := []string{"prod-db", "staging-db", "prod-cache"}
	match, ok := BestMatch(candidates, "prod-db1", 0)
	if !ok {
		t.Fatalf("expected a match for prod-db1")
	}
	if match != "prod-db" {
		t.Fatalf("expected prod-db, got %q", match)
	}
}

func TestBestMatch_EmptyCandidates(t *testing.T) {
	if match, ok := BestMatch(nil, "x", 0); ok {
		t.Fatalf("expected no match on empty candidates, got %q", match)
	}
}

func TestBestMatch_BelowThreshold(t *testing.T) {
	candidates := []string{"prod-db", "staging-db"}
	if match, ok := BestMatch(candidates, "zzzzzzzzzzzz", 0); ok {
		t.Fatalf("expected no match for an unrelated term, got %q", match)
	}
}

func TestBestMatch_TieBreakFirstInOrder(t *testing.T) {
	// Both candidates sit at the same distance from the term; the first
	// one in input order wins.
	candidates := []string{"alpha1", "alpha2"}
	match, ok := BestMatch(candidates, "alpha3", 0)
	if !ok {
		t.Fatalf("expected a match")
	}
	if match != "alpha1" {
		t.Fatalf("expected tie to resolve to alpha1, got %q", match)
	}
}

func TestBestMatch_CaseInsensitive(t *testing.T) {
	match, ok := BestMatch([]string{"Prod-DB"}, "prod-db", 0)
	if !ok || match != "Prod-DB" {
		t.Fatalf("expected case-insensitive exact match, got %q ok=%v", match, ok)
	}
}

func TestBestMatch_CustomThreshold(t *testing.T) {
	candidates := []string{"prod-db"}
	if _, ok := BestMatch(candidates, "prod", 0.9); ok {
		t.Fatalf("similarity below a 0.9 floor should not match")
	}
	if _, ok := BestMatch(candidates, "prod", 0.5); !ok {
		t.Fatalf("similarity above a 0.5 floor should match")
	}
}
