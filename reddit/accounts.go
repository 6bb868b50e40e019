package reddit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/janitorbot/janitor/engine"
)

// Accounts looks up account state and subreddit staff lists. The engine
// memoizes results per run, so nothing is cached here.
type Accounts struct {
	client *Client
}

var _ engine.AccountService = (*Accounts)(nil)

func NewAccounts(client *Client) *Accounts {
	return &Accounts{client: client}
}

func (a *Accounts) AccountInfo(ctx context.Context, username string) (*engine.AccountInfo, error) {
	var out struct {
		Data struct {
			Name         string  `json:"name"`
			IsGold       bool    `json:"is_gold"`
			LinkKarma    int     `json:"link_karma"`
			CommentKarma int     `json:"comment_karma"`
			CreatedUTC   float64 `json:"created_utc"`
		} `json:"data"`
	}
	path := "/user/" + url.PathEscape(username) + "/about.json"
	if err := a.client.getJSON(ctx, path, nil, &out); err != nil {
		return nil, fmt.Errorf("fetching account %s: %w", username, err)
	}
	return &engine.AccountInfo{
		Name:         out.Data.Name,
		IsGold:       out.Data.IsGold,
		LinkKarma:    out.Data.LinkKarma,
		CommentKarma: out.Data.CommentKarma,
		CreatedAt:    epochToTime(out.Data.CreatedUTC),
	}, nil
}

// IsShadowbanned probes the user's overview page. Shadowbanned accounts
// still exist but their history returns 404.
func (a *Accounts) IsShadowbanned(ctx context.Context, username string) (bool, error) {
	var l listing
	path := "/user/" + url.PathEscape(username) + "/overview.json"
	err := a.client.getJSON(ctx, path, nil, &l)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("probing account %s: %w", username, err)
	}
	return false, nil
}

func (a *Accounts) SubredditStaff(ctx context.Context, subreddit string) (*engine.SubredditStaff, error) {
	mods, err := a.userList(ctx, subreddit, "moderators")
	if err != nil {
		return nil, err
	}
	contributors, err := a.userList(ctx, subreddit, "contributors")
	if err != nil {
		return nil, err
	}
	return &engine.SubredditStaff{
		Moderators:   mods,
		Contributors: contributors,
	}, nil
}

func (a *Accounts) userList(ctx context.Context, subreddit, which string) (map[string]bool, error) {
	var out struct {
		Data struct {
			Children []struct {
				Name string `json:"name"`
			} `json:"children"`
		} `json:"data"`
	}
	path := "/r/" + url.PathEscape(subreddit) + "/about/" + which + ".json"
	if err := a.client.getJSON(ctx, path, nil, &out); err != nil {
		return nil, fmt.Errorf("fetching %s of %s: %w", which, subreddit, err)
	}
	set := make(map[string]bool, len(out.Data.Children))
	for _, child := range out.Data.Children {
		set[child.Name] = true
	}
	return set, nil
}
