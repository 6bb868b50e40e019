package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/janitorbot/janitor/store"
)

// checkUserEligibility evaluates the condition's account-level predicates
// against the item's author.
//
// The result's polarity depends on the action: remove/alert conditions
// describe who the action applies to by exclusion, so a failed predicate
// means the overall condition matches. Approve/set_flair conditions describe
// who qualifies, so a failed predicate means it does not match.
func (e *Engine) checkUserEligibility(ictx *itemContext, cond *store.Condition) (bool, error) {
	// no predicates set, no lookups needed
	if !hasEligibilityPredicates(cond) {
		return true, nil
	}

	var failResult bool
	switch cond.Action {
	case store.ActionRemove, store.ActionAlert:
		failResult = true
	case store.ActionApprove, store.ActionSetFlair:
		failResult = false
	default:
		return false, fmt.Errorf("unhandled action for eligibility polarity: %q", cond.Action)
	}

	// deleted author fails all user checks
	author := ictx.item.Author()
	if author == "" {
		return failResult, nil
	}

	if cond.AccountRank != nil {
		ok, err := ictx.run.ranks.HasRank(ictx.ctx, ictx.item.Subreddit(), author, *cond.AccountRank)
		if err != nil {
			return false, err
		}
		if !ok {
			return failResult, nil
		}
	}

	if cond.IsShadowbanned != nil {
		banned, err := e.Accounts.IsShadowbanned(ictx.ctx, author)
		if err != nil {
			return false, err
		}
		if banned {
			return failResult, nil
		}
	}

	info, err := e.accountInfo(ictx, author)
	if err != nil {
		return false, err
	}

	if cond.IsGold != nil && *cond.IsGold != info.IsGold {
		return failResult, nil
	}
	if cond.LinkKarma != nil && info.LinkKarma < *cond.LinkKarma {
		return failResult, nil
	}
	if cond.CommentKarma != nil && info.CommentKarma < *cond.CommentKarma {
		return failResult, nil
	}
	if cond.CombinedKarma != nil && info.LinkKarma+info.CommentKarma < *cond.CombinedKarma {
		return failResult, nil
	}
	if cond.AccountAge != nil {
		ageDays := int(time.Since(info.CreatedAt).Hours() / 24)
		if ageDays < *cond.AccountAge {
			return failResult, nil
		}
	}

	return !failResult, nil
}

// accountInfo memoizes account lookups for the duration of one run.
func (e *Engine) accountInfo(ictx *itemContext, username string) (*AccountInfo, error) {
	if info, ok := ictx.run.accounts.Get(username); ok {
		return info, nil
	}
	accountInfoFetches.Inc()
	info, err := e.Accounts.AccountInfo(ictx.ctx, username)
	if err != nil {
		return nil, err
	}
	ictx.run.accounts.Add(username, info)
	return info, nil
}

// RankCache lazily caches subreddit staff sets for the duration of one run.
// Staleness within a run is acceptable; the cache must not outlive it.
type RankCache struct {
	accounts AccountService
	staff    map[string]*SubredditStaff
}

func NewRankCache(accounts AccountService) *RankCache {
	return &RankCache{
		accounts: accounts,
		staff:    make(map[string]*SubredditStaff),
	}
}

// HasRank reports whether the user holds at least the given rank in the
// subreddit. Moderators also count as contributors.
func (rc *RankCache) HasRank(ctx context.Context, subreddit, username string, rank store.Rank) (bool, error) {
	key := strings.ToLower(subreddit)
	staff, ok := rc.staff[key]
	if !ok {
		staffFetches.Inc()
		var err error
		staff, err = rc.accounts.SubredditStaff(ctx, subreddit)
		if err != nil {
			return false, err
		}
		rc.staff[key] = staff
	}
	if staff.Moderators[username] {
		return rank == store.RankModerator || rank == store.RankContributor, nil
	}
	if staff.Contributors[username] {
		return rank == store.RankContributor, nil
	}
	return false, nil
}
