package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/janitorbot/janitor/store"
)

// ModmailMessage is one moderator-mail message, newest-first in listings.
type ModmailMessage struct {
	ID         string
	Subreddit  string
	AuthorName string
	Created    time.Time
	Body       string
	HasReplies bool
}

// RespondToModmail replies to moderator-mail from authors who messaged the
// mods shortly before their item was approved automatically, telling them
// the message wasn't needed. Only unanswered messages sent after the item
// was created are considered.
func (e *Engine) RespondToModmail(ctx context.Context, runStart time.Time, srs []*store.Subreddit) error {
	approvals, err := e.Store.RecentApprovals(ctx, runStart.Add(-ModmailWindow))
	if err != nil {
		return fmt.Errorf("loading recent approvals: %w", err)
	}
	if len(approvals) == 0 {
		return nil
	}

	srNames := make(map[int64]string, len(srs))
	for _, sr := range srs {
		srNames[sr.ID] = sr.Name
	}

	messages, err := e.Source.Modmail(ctx, QueueFetchLimit)
	if err != nil {
		return fmt.Errorf("fetching modmail: %w", err)
	}

	replied := make(map[string]bool)
	for _, approval := range approvals {
		srName, ok := srNames[approval.SubredditID]
		if !ok {
			continue
		}
		for _, msg := range messages {
			// messages are newest-first; anything older than the item itself
			// can't be about it
			if msg.Created.Before(approval.CreatedAt) {
				break
			}
			if replied[msg.ID] || msg.HasReplies {
				continue
			}
			if !strings.EqualFold(msg.Subreddit, srName) || msg.AuthorName != approval.User {
				continue
			}
			body := "Your submission has been approved automatically by " + e.BotUsername +
				". For future submissions please wait at least 5 minutes before messaging " +
				"the mods, this post would have been approved automatically even without " +
				"you sending this message."
			if err := e.Platform.ReplyToMessage(ctx, msg, body); err != nil {
				e.Logger.Error("replying to modmail", "message", msg.ID, "err", err)
			} else {
				replied[msg.ID] = true
			}
			break
		}
	}
	return nil
}
