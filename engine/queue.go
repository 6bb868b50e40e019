package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/janitorbot/janitor/store"
)

// QueueKind names the item streams polled each run.
type QueueKind string

const (
	QueueReport     QueueKind = "report"
	QueueSpam       QueueKind = "spam"
	QueueSubmission QueueKind = "submission"
	QueueComment    QueueKind = "comment"
)

type subredditState struct {
	sr         *store.Subreddit
	conditions []*store.Condition
}

// RunOnce executes one full pass over every queue kind, then the modmail
// responder. Per-run caches are constructed here and discarded when this
// returns. A failing queue pass is logged and rolled back; the run continues
// with the next queue kind.
func (e *Engine) RunOnce(ctx context.Context) error {
	start := time.Now().UTC()
	run := e.newRunState()

	srs, err := e.Store.ListEnabledSubreddits(ctx)
	if err != nil {
		return fmt.Errorf("loading subreddits: %w", err)
	}
	srDict := make(map[string]*subredditState, len(srs))
	for _, sr := range srs {
		conds, err := e.Store.TopLevelConditions(ctx, sr.ID)
		if err != nil {
			return fmt.Errorf("loading conditions for %s: %w", sr.Name, err)
		}
		srDict[strings.ToLower(sr.Name)] = &subredditState{sr: sr, conditions: conds}
	}

	// reports, bounded by backlog age rather than a stored watermark
	if items, err := e.Source.Reports(ctx, QueueFetchLimit); err != nil {
		e.Logger.Error("fetching report queue", "err", err)
	} else if err := e.checkItems(ctx, run, QueueReport, items, srDict, start.Add(-ReportBacklogLimit)); err != nil {
		e.Logger.Error("report pass failed", "err", err)
	}

	// spam (modqueue)
	if items, err := e.Source.ModQueue(ctx, QueueFetchLimit); err != nil {
		e.Logger.Error("fetching mod queue", "err", err)
	} else if err := e.checkItems(ctx, run, QueueSpam, items, srDict, maxWatermark(srs, QueueSpam)); err != nil {
		e.Logger.Error("spam pass failed", "err", err)
	}

	// new submissions
	if items, err := e.Source.NewSubmissions(ctx, QueueFetchLimit); err != nil {
		e.Logger.Error("fetching new submissions", "err", err)
	} else if err := e.checkItems(ctx, run, QueueSubmission, items, srDict, maxWatermark(srs, QueueSubmission)); err != nil {
		e.Logger.Error("submission pass failed", "err", err)
	}

	// new comments, only for subreddits that want all comments checked
	var commentSubs []string
	for _, sr := range srs {
		if !sr.ReportedCommentsOnly {
			commentSubs = append(commentSubs, sr.Name)
		}
	}
	if len(commentSubs) > 0 {
		if items, err := e.Source.NewComments(ctx, commentSubs, QueueFetchLimit); err != nil {
			e.Logger.Error("fetching new comments", "err", err)
		} else if err := e.checkItems(ctx, run, QueueComment, items, srDict, maxWatermark(srs, QueueComment)); err != nil {
			e.Logger.Error("comment pass failed", "err", err)
		}
	}

	if err := e.RespondToModmail(ctx, start, srs); err != nil {
		e.Logger.Error("modmail responder failed", "err", err)
	}

	e.Logger.Info("completed full run", "elapsed", time.Since(start).Round(time.Second))
	return nil
}

// checkItems runs one queue pass inside a single store transaction. Any
// uncaught error or panic rolls the whole pass back; item-level failures are
// logged inside and do not.
func (e *Engine) checkItems(ctx context.Context, run *runState, queue QueueKind, items []Item, srs map[string]*subredditState, stopTime time.Time) error {
	start := time.Now()
	defer func() {
		queuePassDuration.WithLabelValues(string(queue)).Observe(time.Since(start).Seconds())
	}()
	return e.Store.Tx(ctx, func(txs store.Store) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("queue pass panic: %v", r)
			}
		}()
		return e.runPass(ctx, run, queue, items, srs, stopTime, txs)
	})
}

func (e *Engine) runPass(ctx context.Context, run *runState, queue QueueKind, items []Item, srs map[string]*subredditState, stopTime time.Time, txs store.Store) error {
	e.Logger.Info("checking queue", "queue", queue, "items", len(items))
	passStart := time.Now()
	itemCount := 0
	skipCount := 0
	skippedSubs := make(map[string]bool)
	seen := make(map[int64]bool)

	for _, item := range items {
		// skip anything in /new that a moderator already approved
		if queue == QueueSubmission && item.ApprovedBy() != "" {
			continue
		}
		// items arrive newest-first; stop at the previous pass's watermark
		if !item.CreatedAt().After(stopTime) {
			break
		}
		st, ok := srs[strings.ToLower(item.Subreddit())]
		if !ok {
			skipCount++
			skippedSubs[strings.ToLower(item.Subreddit())] = true
			continue
		}
		itemCount++

		// the first item seen per subreddit is the newest; it becomes the
		// next watermark. Reports have no watermark, only the backlog bound.
		if queue != QueueReport && !seen[st.sr.ID] {
			setWatermark(st.sr, queue, item.CreatedAt())
			seen[st.sr.ID] = true
		}

		ictx := &itemContext{
			ctx:        ctx,
			logger:     e.Logger.With("subreddit", st.sr.Name, "queue", string(queue), "item", item.Fullname()),
			store:      txs,
			run:        run,
			sr:         st.sr,
			conditions: filterForQueue(queue, st.conditions),
			item:       item,
		}
		e.processItem(ictx, queue)
	}

	for _, st := range srs {
		if seen[st.sr.ID] {
			if err := txs.UpdateWatermarks(ctx, st.sr); err != nil {
				return fmt.Errorf("saving watermarks for %s: %w", st.sr.Name, err)
			}
		}
	}

	itemsProcessed.WithLabelValues(string(queue)).Add(float64(itemCount))
	e.Logger.Info("checked queue", "queue", queue,
		"checked", itemCount, "skipped", skipCount,
		"skippedSubreddits", strings.Join(sortedKeys(skippedSubs), ","),
		"elapsed", time.Since(passStart).Round(time.Millisecond))
	return nil
}

// processItem checks each action group in priority order. A matched removal
// ends processing of the item; flair, approve, and alert groups are checked
// independently. Dispatch failures abort this item only.
func (e *Engine) processItem(ictx *itemContext, queue QueueKind) {
	matched, err := e.checkConditions(ictx, conditionsWithAction(ictx.conditions, store.ActionRemove))
	if err != nil {
		ictx.logger.Error("action dispatch failed", "err", err)
		return
	}
	if !matched {
		for _, action := range []store.Action{store.ActionSetFlair, store.ActionApprove, store.ActionAlert} {
			if _, err := e.checkConditions(ictx, conditionsWithAction(ictx.conditions, action)); err != nil {
				ictx.logger.Error("action dispatch failed", "err", err)
				return
			}
		}

		if queue == QueueReport && ictx.sr.AutoReapprove && ictx.item.ApprovedBy() != "" {
			if err := e.maybeReapprove(ictx); err != nil {
				ictx.logger.Error("auto-reapproval failed", "err", err)
			}
		}
	}
}

// filterForQueue narrows a subreddit's conditions to the ones the queue kind
// can meaningfully evaluate: report-count thresholds only make sense in the
// report queue, and shadowban predicates are too expensive outside it.
func filterForQueue(queue QueueKind, conds []*store.Condition) []*store.Condition {
	var out []*store.Condition
	for _, c := range conds {
		switch queue {
		case QueueSpam:
			if c.NumReports == nil {
				out = append(out, c)
			}
		case QueueReport:
			if c.NumReports != nil && (c.IsShadowbanned == nil || !*c.IsShadowbanned) {
				out = append(out, c)
			}
		case QueueSubmission, QueueComment:
			if c.Action != store.ActionApprove && c.NumReports == nil &&
				(c.IsShadowbanned == nil || !*c.IsShadowbanned) {
				out = append(out, c)
			}
		}
	}
	return out
}

func conditionsWithAction(conds []*store.Condition, action store.Action) []*store.Condition {
	var out []*store.Condition
	for _, c := range conds {
		if c.Action == action {
			out = append(out, c)
		}
	}
	return out
}

func setWatermark(sr *store.Subreddit, queue QueueKind, t time.Time) {
	switch queue {
	case QueueSpam:
		sr.LastSpam = t
	case QueueSubmission:
		sr.LastSubmission = t
	case QueueComment:
		sr.LastComment = t
	}
}

func maxWatermark(srs []*store.Subreddit, queue QueueKind) time.Time {
	var max time.Time
	for _, sr := range srs {
		var t time.Time
		switch queue {
		case QueueSpam:
			t = sr.LastSpam
		case QueueSubmission:
			t = sr.LastSubmission
		case QueueComment:
			t = sr.LastComment
		}
		if t.After(max) {
			max = t
		}
	}
	return max
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
