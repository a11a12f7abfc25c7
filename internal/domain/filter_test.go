package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vn.io.arda/notification-pipeline/internal/domain"
)

// allDecisions enumerates the eight combinations of the three axes.
func allDecisions() []domain.FilterDecision {
	var out []domain.FilterDecision
	for i := range 8 {
		out = append(out, domain.FilterDecision{
			IgnoreRender: i&1 != 0,
			IgnoreStore:  i&2 != 0,
			IgnoreRoute:  i&4 != 0,
		})
	}
	return out
}

func TestMerge_IsPerAxisOr(t *testing.T) {
	for _, a := range allDecisions() {
		for _, b := range allDecisions() {
			m := a.Merge(b)
			assert.Equal(t, a.IgnoreRender || b.IgnoreRender, m.IgnoreRender)
			assert.Equal(t, a.IgnoreStore || b.IgnoreStore, m.IgnoreStore)
			assert.Equal(t, a.IgnoreRoute || b.IgnoreRoute, m.IgnoreRoute)
		}
	}
}

func TestMerge_CommutativeAndAssociative(t *testing.T) {
	ds := allDecisions()
	for _, a := range ds {
		for _, b := range ds {
			assert.Equal(t, a.Merge(b), b.Merge(a))
			for _, c := range ds {
				assert.Equal(t, a.Merge(b).Merge(c), a.Merge(b.Merge(c)))
			}
		}
	}
}

func TestMerge_NeverLiftsSuppression(t *testing.T) {
	for _, b := range allDecisions() {
		assert.Equal(t, domain.IgnoreAll, domain.IgnoreAll.Merge(b))
	}
	assert.False(t, domain.FilterDecision{}.Any())
	assert.True(t, domain.FilterDecision{IgnoreRoute: true}.Any())
}
