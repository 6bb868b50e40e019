package engine

import (
	"sort"

	"github.com/janitorbot/janitor/store"
)

// conditionComplexity estimates how expensive a condition is to check, in
// units of roughly one network request. Queue passes evaluate cheap
// conditions first so they can short-circuit expensive ones; ordering never
// changes the match outcome for independent conditions.
func conditionComplexity(cond *store.Condition) int {
	complexity := 0

	// approving or removing requires a request
	if cond.Action == store.ActionApprove || cond.Action == store.ActionRemove {
		complexity++
	}

	// meme_name requires an external site page load
	if cond.Attribute == store.AttrMemeName {
		complexity++
	}

	// checking the user requires an account lookup
	if hasEligibilityPredicates(cond) {
		complexity++
	}

	// checking shadowbanned requires an extra lookup
	if cond.IsShadowbanned != nil {
		complexity++
	}

	if cond.Comment != "" {
		// commenting+distinguishing requires 2 requests
		if cond.CommentMethod == store.CommentMethodReply {
			complexity += 2
		} else {
			complexity++
		}
	}

	for _, sub := range cond.Children {
		complexity += conditionComplexity(sub)
	}

	return complexity
}

// sortByComplexity orders conditions cheapest-first, preserving the original
// order between equal-cost conditions.
func sortByComplexity(conds []*store.Condition) {
	sort.SliceStable(conds, func(i, j int) bool {
		return conditionComplexity(conds[i]) < conditionComplexity(conds[j])
	})
}

func hasEligibilityPredicates(cond *store.Condition) bool {
	return cond.IsGold != nil ||
		cond.IsShadowbanned != nil ||
		cond.LinkKarma != nil ||
		cond.CommentKarma != nil ||
		cond.CombinedKarma != nil ||
		cond.AccountAge != nil ||
		cond.AccountRank != nil
}
