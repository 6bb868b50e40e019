package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/janitorbot/janitor/store"
)

const messageSubject = "moderation condition matched"

func botDisclaimer(subreddit string) string {
	return "\n\n*I am a bot, and this action was performed automatically. " +
		"Please [contact the moderators of this subreddit]" +
		"(http://www.reddit.com/message/compose?to=%23" + subreddit + ") " +
		"if you have any questions or concerns.*"
}

// performAction executes the action for the matched condition(s), delivers
// the configured comment over exactly one channel, and appends one
// ActionRecord.
//
// For a compound match the first condition is authoritative for the action
// kind, its parameters, and the log entry. The composite comment's verb also
// comes from the first condition only, even when later conditions carry a
// different action; this mirrors the long-standing behavior moderators
// expect from the compound-comment format.
func (e *Engine) performAction(ictx *itemContext, matched []*store.Condition) error {
	item := ictx.item
	primary := matched[0]
	permalink := NormalizePermalink(item.Permalink())

	comment := primary.Comment
	if len(matched) > 1 {
		comment = compositeComment(matched)
	}

	// at most one alert per item, ever
	if primary.Action == store.ActionAlert {
		alerted, err := ictx.store.HasActionRecord(ictx.ctx, permalink, store.ActionAlert)
		if err != nil {
			return fmt.Errorf("checking prior alerts: %w", err)
		}
		if alerted {
			return nil
		}
	}

	switch primary.Action {
	case store.ActionRemove:
		if err := e.Platform.Remove(ictx.ctx, item, primary.Spam); err != nil {
			return fmt.Errorf("removing item: %w", err)
		}
	case store.ActionApprove:
		if err := e.Platform.Approve(ictx.ctx, item); err != nil {
			return fmt.Errorf("approving item: %w", err)
		}
	case store.ActionSetFlair:
		if err := e.Platform.SetFlair(ictx.ctx, item, primary.SetFlairText, primary.SetFlairClass); err != nil {
			return fmt.Errorf("setting flair: %w", err)
		}
	case store.ActionAlert:
		// alerts mutate nothing; the comment delivery below is the alert
	}

	if comment != "" && primary.CommentMethod != "" {
		if err := e.deliverComment(ictx, primary, permalink, comment); err != nil {
			return fmt.Errorf("delivering comment: %w", err)
		}
	}

	rec := &store.ActionRecord{
		SubredditID: ictx.sr.ID,
		User:        item.Author(),
		Permalink:   permalink,
		CreatedAt:   item.CreatedAt(),
		ActionedAt:  time.Now().UTC(),
		Action:      primary.Action,
		ConditionID: primary.ID,
	}
	if sub, ok := item.(*Submission); ok {
		rec.Title = sub.Title
		rec.URL = sub.URL
		rec.Domain = sub.Domain
		ictx.logger.Info("actioned submission", "action", primary.Action, "condition", primary.ID, "title", sub.Title)
	} else {
		ictx.logger.Info("actioned comment", "action", primary.Action, "condition", primary.ID, "user", item.Author())
	}

	err := ictx.store.Tx(ictx.ctx, func(s store.Store) error {
		return s.CreateActionRecord(ictx.ctx, rec)
	})
	if err != nil {
		return fmt.Errorf("recording action: %w", err)
	}

	actionsPerformed.WithLabelValues(string(primary.Action), string(item.Kind())).Inc()
	return nil
}

// deliverComment sends the comment via the primary condition's configured
// channel. Replies and direct messages carry the bot disclaimer; modmail
// does not.
func (e *Engine) deliverComment(ictx *itemContext, primary *store.Condition, permalink, comment string) error {
	switch primary.CommentMethod {
	case store.CommentMethodReply:
		return e.Platform.ReplyAndDistinguish(ictx.ctx, ictx.item, comment+botDisclaimer(ictx.item.Subreddit()))
	case store.CommentMethodModmail:
		return e.Platform.SendModmail(ictx.ctx, ictx.sr.Name, messageSubject, permalink+"\n\n"+comment)
	case store.CommentMethodMessage:
		author := ictx.item.Author()
		if author == "" {
			return nil
		}
		return e.Platform.SendMessage(ictx.ctx, author, messageSubject, permalink+"\n\n"+comment+botDisclaimer(ictx.item.Subreddit()))
	}
	return fmt.Errorf("unhandled comment method: %q", primary.CommentMethod)
}

// compositeComment builds the single comment body for a compound match,
// bulleting each matched condition's comment text.
func compositeComment(matched []*store.Condition) string {
	var bullets []string
	for _, c := range matched {
		if c.Comment != "" {
			bullets = append(bullets, "* "+c.Comment)
		}
	}
	if len(bullets) == 0 {
		return ""
	}
	verb := "alerted"
	if matched[0].Action != store.ActionAlert {
		verb = string(matched[0].Action) + "d"
	}
	return "This has been " + verb + " for the following reasons:\n\n" + strings.Join(bullets, "\n") + "\n"
}
