package api

import "testing"

func TestPendingIDGeneratorSequencing(t *testing.T) {
	var g PendingIDGenerator
	if got := g.NextPermissionID(); got != "perm_1" {
		t.Errorf("first permission id = %q, want perm_1", got)
	}
	if got := g.NextPermissionID(); got != "perm_2" {
		t.Errorf("second permission id = %q, want perm_2", got)
	}
	if got := g.NextQuestionID(); got != "question_1" {
		t.Errorf("first question id = %q, want question_1", got)
	}
}
