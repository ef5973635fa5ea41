package boost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyEmptyQueryNoOp(t *testing.T) {
	results := []*Result{{Name: "foo", Score: 1.0}}
	Apply(results, "")
	assert.Equal(t, 1.0, results[0].Score)
}

func TestApplyEmptyResultsNoOp(t *testing.T) {
	assert.NotPanics(t, func() { Apply(nil, "user") })
}

func TestApplyExactNameMatchRanksHighest(t *testing.T) {
	results := []*Result{
		{Name: "getUser", Type: "function", FilePath: "a.go", Score: 1.0},
		{Name: "helper", Type: "function", FilePath: "b.go", Score: 1.0},
	}
	Apply(results, "getUser")
	assert.Equal(t, "getUser", results[0].Name)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestApplyTypeBoostPrefersRequestedKind(t *testing.T) {
	results := []*Result{
		{Name: "thing", Type: "class", Score: 1.0},
		{Name: "thing", Type: "function", Score: 1.0},
	}
	Apply(results, "class definition")
	assert.Equal(t, "class", results[0].Type)
}

func TestApplyPathRelevanceBoosts(t *testing.T) {
	results := []*Result{
		{Name: "run", Type: "function", FilePath: "internal/auth/login.go", Score: 1.0},
		{Name: "run", Type: "function", FilePath: "internal/other/file.go", Score: 1.0},
	}
	Apply(results, "auth login")
	assert.Equal(t, "internal/auth/login.go", results[0].FilePath)
}

func TestApplyBoostClamped(t *testing.T) {
	results := []*Result{{Name: "getUserById", Type: "function", FilePath: "getUserById.go", Score: 1.0}}
	Apply(results, "getUserById function getUserById")
	assert.LessOrEqual(t, results[0].Score, maxBoost)
}

// TestApplyIndexSurvivesReorderForCallerReassociation mirrors how callers
// (internal/semindex.Search) use Apply: build an Index-tagged slice aligned
// with their own result slice, call Apply (which sorts in place), then
// write each boosted score back by Index rather than by position. Even
// though Apply reorders "boosted" in place, every entry must still carry
// the index of the caller's result it was computed from.
func TestApplyIndexSurvivesReorderForCallerReassociation(t *testing.T) {
	type callerResult struct {
		Name  string
		Score float32
	}
	callerResults := []callerResult{
		{Name: "helper", Score: 0.9},
		{Name: "getUser", Score: 0.5},
		{Name: "other", Score: 0.8},
	}

	boosted := make([]*Result, len(callerResults))
	for i, r := range callerResults {
		boosted[i] = &Result{Name: r.Name, Type: "function", Score: float64(r.Score), Index: i}
	}
	Apply(boosted, "getUser")

	for _, b := range boosted {
		callerResults[b.Index].Score = float32(b.Score)
	}

	// "getUser" is the exact-name match, so it must end up with the
	// highest score in the caller's own (unreordered) slice, at its own
	// original position, not whichever position Apply's sort moved it to.
	assert.Equal(t, "getUser", callerResults[1].Name)
	assert.Greater(t, callerResults[1].Score, callerResults[0].Score)
	assert.Greater(t, callerResults[1].Score, callerResults[2].Score)
}
