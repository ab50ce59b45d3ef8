package api

import (
	"strconv"
	"sync/atomic"
)

// PendingIDGenerator allocates the monotonically increasing perm_/question_
// ids a Permission Gate hands out. It is scoped to a single session — per
// spec.md §9 a UUID would be equally acceptable, but a counter keeps test
// fixtures and log lines predictable and avoids cross-test interference
// since each session owns its own generator.
type PendingIDGenerator struct {
	permSeq     atomic.Int64
	questionSeq atomic.Int64
}

// NextPermissionID returns the next "perm_N" id.
func (g *PendingIDGenerator) NextPermissionID() string {
	return "perm_" + strconv.FormatInt(g.permSeq.Add(1), 10)
}

// NextQuestionID returns the next "question_N" id.
func (g *PendingIDGenerator) NextQuestionID() string {
	return "question_" + strconv.FormatInt(g.questionSeq.Add(1), 10)
}
