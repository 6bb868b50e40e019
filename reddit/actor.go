package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/janitorbot/janitor/engine"
)

// Actor executes moderation mutations. Every call is a single attempt; the
// engine decides what a failure means, and these endpoints must never be
// retried blindly.
type Actor struct {
	client *Client
}

var _ engine.PlatformActor = (*Actor)(nil)

func NewActor(client *Client) *Actor {
	return &Actor{client: client}
}

func (a *Actor) Approve(ctx context.Context, item engine.Item) error {
	form := url.Values{}
	form.Set("id", item.Fullname())
	return a.client.post(ctx, "/api/approve", form)
}

func (a *Actor) Remove(ctx context.Context, item engine.Item, spam bool) error {
	form := url.Values{}
	form.Set("id", item.Fullname())
	if spam {
		form.Set("spam", "true")
	} else {
		form.Set("spam", "false")
	}
	return a.client.post(ctx, "/api/remove", form)
}

// SetFlair sets link flair on submissions and author flair on comments.
func (a *Actor) SetFlair(ctx context.Context, item engine.Item, text, cssClass string) error {
	form := url.Values{}
	form.Set("r", item.Subreddit())
	form.Set("text", text)
	form.Set("css_class", cssClass)
	if item.Kind() == engine.KindSubmission {
		form.Set("link", item.Fullname())
	} else {
		form.Set("name", item.Author())
	}
	return a.client.post(ctx, "/api/flair", form)
}

// ReplyAndDistinguish posts a reply on the item, then distinguishes the new
// comment with the moderator marker. A reply that lands but fails to
// distinguish is reported as an error; the caller's dedup guard keeps it
// from being posted again.
func (a *Actor) ReplyAndDistinguish(ctx context.Context, item engine.Item, body string) error {
	name, err := a.comment(ctx, item.Fullname(), body)
	if err != nil {
		return err
	}
	form := url.Values{}
	form.Set("id", name)
	form.Set("how", "yes")
	if err := a.client.post(ctx, "/api/distinguish", form); err != nil {
		return fmt.Errorf("distinguishing reply %s: %w", name, err)
	}
	return nil
}

func (a *Actor) ReplyToMessage(ctx context.Context, msg *engine.ModmailMessage, body string) error {
	_, err := a.comment(ctx, msg.ID, body)
	return err
}

func (a *Actor) SendMessage(ctx context.Context, recipient, subject, body string) error {
	return a.compose(ctx, recipient, subject, body)
}

// SendModmail addresses the subreddit's moderator inbox with the '#' prefix
// the compose endpoint expects.
func (a *Actor) SendModmail(ctx context.Context, subreddit, subject, body string) error {
	return a.compose(ctx, "#"+subreddit, subject, body)
}

func (a *Actor) compose(ctx context.Context, to, subject, body string) error {
	form := url.Values{}
	form.Set("to", to)
	form.Set("subject", subject)
	form.Set("text", body)
	return a.client.post(ctx, "/api/compose", form)
}

// comment posts a reply on the thing and returns the new comment's fullname.
func (a *Actor) comment(ctx context.Context, thingID, body string) (string, error) {
	form := url.Values{}
	form.Set("thing_id", thingID)
	form.Set("text", body)

	var out jsonEnvelope
	if err := a.client.postEnvelope(ctx, "/api/comment", form, &out); err != nil {
		return "", err
	}
	var data struct {
		Things []thing `json:"things"`
	}
	if err := json.Unmarshal(out.JSON.Data, &data); err != nil || len(data.Things) == 0 {
		return "", fmt.Errorf("replying to %s: no comment in response", thingID)
	}
	var created struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data.Things[0].Data, &created); err != nil || created.Name == "" {
		return "", fmt.Errorf("replying to %s: no comment name in response", thingID)
	}
	return created.Name, nil
}
