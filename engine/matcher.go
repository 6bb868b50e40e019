package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/janitorbot/janitor/store"
)

// Outcome is the tri-state result of evaluating one condition. Errors are
// explicit so tests can tell "legitimately false" from "errored", but both
// collapse to "no action taken".
type Outcome int

const (
	OutcomeNoMatch Outcome = iota
	OutcomeMatch
	OutcomeError
)

// checkConditions evaluates one action group of sibling conditions against
// the item, cheapest condition first.
//
// If the subreddit stops at the first match, the matching condition is
// dispatched immediately. Otherwise every condition is evaluated and all
// matches are dispatched together as one compound action. Returns whether
// anything matched; the error is a dispatch failure, never an evaluation
// failure.
func (e *Engine) checkConditions(ictx *itemContext, conds []*store.Condition) (bool, error) {
	applicable := make([]*store.Condition, 0, len(conds))
	for _, cond := range conds {
		if cond.Subject == store.SubjectBoth || cond.Subject == string(ictx.item.Kind()) {
			applicable = append(applicable, cond)
		}
	}
	sortByComplexity(applicable)

	var matched []*store.Condition
	for _, cond := range applicable {
		outcome := e.evaluateCondition(ictx, cond)
		conditionsEvaluated.Inc()
		if outcome == OutcomeError {
			conditionEvalErrors.Inc()
			continue
		}
		if outcome != OutcomeMatch {
			continue
		}
		conditionMatches.Inc()
		if ictx.sr.CheckAllConditions {
			matched = append(matched, cond)
			continue
		}
		if err := e.performAction(ictx, []*store.Condition{cond}); err != nil {
			return true, err
		}
		return true, nil
	}

	if len(matched) > 0 {
		if err := e.performAction(ictx, matched); err != nil {
			return true, err
		}
		return true, nil
	}
	return false, nil
}

// evaluateCondition checks the item against a single condition and,
// recursively, all of its sub-conditions (strict AND).
func (e *Engine) evaluateCondition(ictx *itemContext, cond *store.Condition) Outcome {
	testString, err := e.testString(ictx, cond.Attribute)
	if err != nil {
		ictx.logger.Debug("attribute extraction failed", "condition", cond.ID, "attribute", cond.Attribute, "err", err)
		return OutcomeError
	}

	re, err := e.compilePattern(cond.Value)
	if err != nil {
		ictx.logger.Warn("bad condition pattern", "condition", cond.ID, "err", err)
		return OutcomeError
	}
	satisfied := re.MatchString(strings.ToLower(testString))
	if cond.Inverse {
		satisfied = !satisfied
	}

	if satisfied && cond.NumReports != nil {
		totalReports := ictx.item.ReportCount()
		// unless the condition opts out, count reports already cleared by
		// earlier auto-reapprovals
		if cond.AutoReapproving == nil || *cond.AutoReapproving {
			entry, err := ictx.store.GetAutoReapproval(ictx.ctx, NormalizePermalink(ictx.item.Permalink()))
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				ictx.logger.Warn("auto-reapproval lookup failed", "condition", cond.ID, "err", err)
				return OutcomeError
			}
			if err == nil {
				totalReports += entry.TotalReports
			}
		}
		satisfied = totalReports >= *cond.NumReports
	} else if satisfied {
		// no threshold configured means the item must have zero reports
		satisfied = ictx.item.ReportCount() == 0
	}

	if satisfied {
		ok, err := e.checkUserEligibility(ictx, cond)
		if err != nil {
			ictx.logger.Warn("user eligibility check failed", "condition", cond.ID, "err", err)
			return OutcomeError
		}
		satisfied = ok
	}

	if satisfied {
		for _, sub := range cond.Children {
			switch e.evaluateCondition(ictx, sub) {
			case OutcomeMatch:
				continue
			case OutcomeError:
				return OutcomeError
			default:
				return OutcomeNoMatch
			}
		}
	}

	if satisfied {
		return OutcomeMatch
	}
	return OutcomeNoMatch
}

// testString extracts the attribute's value from the item. Missing or
// malformed structured metadata degrades to ""; an attribute that does not
// exist on the item's variant is an error (which the caller treats as
// non-match).
func (e *Engine) testString(ictx *itemContext, attr store.Attribute) (string, error) {
	item := ictx.item
	switch attr {
	case store.AttrUser:
		return item.Author(), nil
	case store.AttrAuthorFlairText:
		return item.AuthorFlairText(), nil
	case store.AttrAuthorFlairCSSClass:
		return item.AuthorFlairCSSClass(), nil
	case store.AttrBody:
		switch it := item.(type) {
		case *Submission:
			return it.SelfText, nil
		case *Comment:
			return it.Body, nil
		}
	case store.AttrTitle, store.AttrURL, store.AttrDomain:
		sub, ok := item.(*Submission)
		if !ok {
			return "", fmt.Errorf("attribute %q not present on %s", attr, item.Kind())
		}
		switch attr {
		case store.AttrTitle:
			return sub.Title, nil
		case store.AttrURL:
			return sub.URL, nil
		case store.AttrDomain:
			return sub.Domain, nil
		}
	case store.AttrMediaUser:
		return oembedField(item, "author_name"), nil
	case store.AttrMediaTitle, store.AttrMediaDescription:
		// the upstream oembed payload carries the meme caption in
		// "description" for both of these
		return oembedField(item, "description"), nil
	case store.AttrMemeName:
		sub, ok := item.(*Submission)
		if !ok {
			return "", fmt.Errorf("attribute %q not present on %s", attr, item.Kind())
		}
		memeNameFetches.Inc()
		name, err := e.MemeNames.MemeName(ictx.ctx, sub)
		if err != nil {
			// a failed external lookup degrades to no name
			ictx.logger.Debug("meme name lookup failed", "url", sub.URL, "err", err)
			return "", nil
		}
		return name, nil
	}
	return "", fmt.Errorf("unhandled attribute: %q", attr)
}

// oembedField digs the named field out of the item's media metadata,
// returning "" when anything about the structure is off.
func oembedField(item Item, field string) string {
	sub, ok := item.(*Submission)
	if !ok || sub.Media == nil {
		return ""
	}
	oembed, ok := sub.Media["oembed"].(map[string]any)
	if !ok {
		return ""
	}
	val, _ := oembed[field].(string)
	return val
}
