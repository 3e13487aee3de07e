package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"autofy/backend/pkg/models"
)

func historyOf(n int) []models.RunRecord {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	logs := make([]models.RunRecord, 0, n)
	for i := 0; i < n; i++ {
		logs = append(logs, models.RunRecord{
			ExecutedAt: base.Add(time.Duration(i) * time.Minute),
			Status:     models.RunSuccess,
		})
	}
	return logs
}

func TestTrimHistoryUnderCapIsNoop(t *testing.T) {
	logs := historyOf(10)
	trimmed := trimHistory(logs, DefaultHistoryLimit)
	assert.Len(t, trimmed, 10)
	assert.Equal(t, logs[0].ExecutedAt, trimmed[0].ExecutedAt)
}

func TestTrimHistoryEvictsOldestFirst(t *testing.T) {
	logs := historyOf(DefaultHistoryLimit + 3)
	trimmed := trimHistory(logs, DefaultHistoryLimit)

	assert.Len(t, trimmed, DefaultHistoryLimit)
	// the three oldest records are gone, order is preserved
	assert.Equal(t, logs[3].ExecutedAt, trimmed[0].ExecutedAt)
	assert.Equal(t, logs[len(logs)-1].ExecutedAt, trimmed[len(trimmed)-1].ExecutedAt)
}

func TestTrimHistoryIdempotent(t *testing.T) {
	logs := historyOf(DefaultHistoryLimit + 5)
	once := trimHistory(logs, DefaultHistoryLimit)
	twice := trimHistory(once, DefaultHistoryLimit)
	assert.Equal(t, once, twice)
}

func TestTrimHistoryZeroLimitDefaults(t *testing.T) {
	logs := historyOf(DefaultHistoryLimit + 1)
	trimmed := trimHistory(logs, 0)
	assert.Len(t, trimmed, DefaultHistoryLimit)
}
