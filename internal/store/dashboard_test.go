package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsthreads/internal/domain"
)

func TestThreadQueryNormalizeDefaults(t *testing.T) {
	var q ThreadQuery
	require.NoError(t, q.Normalize())

	assert.Equal(t, "updated_at", q.SortBy)
	assert.Equal(t, "desc", q.Order)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 20, q.PerPage)
	assert.Equal(t, 7*24*time.Hour, q.StaleAge)
}

func TestThreadQueryNormalizeAcceptsFilters(t *testing.T) {
	statuses := []string{
		"",
		string(domain.StatusStarted),
		string(domain.StatusEvolving),
		string(domain.StatusLikelyResolved),
		string(domain.StatusStale),
	}
	for _, status := range statuses {
		q := ThreadQuery{Status: status, SortBy: "created_at", Order: "asc"}
		assert.NoError(t, q.Normalize(), "status %q", status)
	}
}

func TestThreadQueryNormalizeRejectsUnknownValues(t *testing.T) {
	q := ThreadQuery{Status: "archived"}
	assert.Error(t, q.Normalize())

	q = ThreadQuery{SortBy: "llm_title"}
	assert.Error(t, q.Normalize())

	q = ThreadQuery{Order: "sideways"}
	assert.Error(t, q.Normalize())
}
