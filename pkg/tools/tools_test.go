package tools

import "testing"

func TestFilterAllowedNoRestriction(t *testing.T) {
	calls := []Call{{ID: "1", Name: "Read"}, {ID: "2", Name: "Bash"}}
	r := FilterAllowed(calls, nil)
	if len(r.Allowed) != 2 || len(r.Rejected) != 0 {
		t.Fatalf("expected all calls allowed, got %+v", r)
	}
}

func TestFilterAllowedRestricted(t *testing.T) {
	calls := []Call{{ID: "1", Name: "Read"}, {ID: "2", Name: "Bash"}}
	r := FilterAllowed(calls, []string{"Read"})
	if len(r.Allowed) != 1 || r.Allowed[0].Name != "Read" {
		t.Fatalf("allowed = %+v", r.Allowed)
	}
	if len(r.Rejected) != 1 || r.Rejected[0].CallID != "2" || !r.Rejected[0].IsError {
		t.Fatalf("rejected = %+v", r.Rejected)
	}
}
