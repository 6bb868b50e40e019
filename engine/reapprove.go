package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/janitorbot/janitor/store"
)

// maybeReapprove re-approves a reported item that a human moderator already
// approved once, and accumulates the reports being cleared so threshold
// conditions still see them on later re-appearances.
//
// On the very first sighting of an item the bot itself approved, nothing is
// tracked and nothing is re-approved; otherwise the bot would chase its own
// approvals.
func (e *Engine) maybeReapprove(ictx *itemContext) error {
	item := ictx.item
	permalink := NormalizePermalink(item.Permalink())

	entry, err := ictx.store.GetAutoReapproval(ictx.ctx, permalink)
	tracked := true
	if errors.Is(err, store.ErrNotFound) {
		tracked = false
		entry = &store.AutoReapprovalEntry{
			SubredditID:      ictx.sr.ID,
			Permalink:        permalink,
			OriginalApprover: item.ApprovedBy(),
			TotalReports:     0,
			FirstApprovalAt:  time.Now().UTC(),
		}
	} else if err != nil {
		return fmt.Errorf("loading auto-reapproval entry: %w", err)
	}

	if !tracked && item.ApprovedBy() == e.BotUsername {
		return nil
	}

	if err := e.Platform.Approve(ictx.ctx, item); err != nil {
		return fmt.Errorf("re-approving item: %w", err)
	}
	entry.TotalReports += item.ReportCount()
	entry.LastApprovalAt = time.Now().UTC()

	if err := ictx.store.UpsertAutoReapproval(ictx.ctx, entry); err != nil {
		return fmt.Errorf("saving auto-reapproval entry: %w", err)
	}
	ictx.logger.Info("re-approved item", "permalink", permalink, "totalReports", entry.TotalReports)
	reapprovalsPerformed.Inc()
	return nil
}
