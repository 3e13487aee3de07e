package engine

import (
	"autofy/backend/pkg/models"
)

// DefaultHistoryLimit is the number of run records kept per workflow.
const DefaultHistoryLimit = 50

// trimHistory keeps the most recent limit records, evicting strictly from the
// front. It is a no-op on an already-compliant history.
func trimHistory(logs []models.RunRecord, limit int) []models.RunRecord {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if len(logs) <= limit {
		return logs
	}
	return logs[len(logs)-limit:]
}
