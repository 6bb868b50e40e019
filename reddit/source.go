package reddit

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/janitorbot/janitor/engine"
)

// listingParams is the shared query-string surface of listing endpoints.
type listingParams struct {
	Limit int    `url:"limit,omitempty"`
	Sort  string `url:"sort,omitempty"`
}

// Source reads moderation listings through the special /r/mod pseudo
// subreddit, which aggregates every community the account moderates.
type Source struct {
	client *Client
}

var _ engine.ItemSource = (*Source)(nil)

func NewSource(client *Client) *Source {
	return &Source{client: client}
}

func (s *Source) listItems(ctx context.Context, path string, params listingParams) ([]engine.Item, error) {
	var l listing
	if err := s.client.getJSON(ctx, path, params, &l); err != nil {
		return nil, fmt.Errorf("fetching %s: %w", path, err)
	}
	return itemsFromListing(&l, s.client.BaseURL)
}

func (s *Source) Reports(ctx context.Context, limit int) ([]engine.Item, error) {
	return s.listItems(ctx, "/r/mod/about/reports.json", listingParams{Limit: limit})
}

func (s *Source) ModQueue(ctx context.Context, limit int) ([]engine.Item, error) {
	return s.listItems(ctx, "/r/mod/about/modqueue.json", listingParams{Limit: limit})
}

func (s *Source) NewSubmissions(ctx context.Context, limit int) ([]engine.Item, error) {
	return s.listItems(ctx, "/r/mod/new.json", listingParams{Limit: limit, Sort: "new"})
}

// NewComments reads the combined comment stream of the named subreddits via
// a multireddit-style path.
func (s *Source) NewComments(ctx context.Context, subreddits []string, limit int) ([]engine.Item, error) {
	if len(subreddits) == 0 {
		return nil, nil
	}
	escaped := make([]string, len(subreddits))
	for i, sr := range subreddits {
		escaped[i] = url.PathEscape(sr)
	}
	path := "/r/" + strings.Join(escaped, "+") + "/comments.json"
	return s.listItems(ctx, path, listingParams{Limit: limit})
}

func (s *Source) Modmail(ctx context.Context, limit int) ([]*engine.ModmailMessage, error) {
	var l listing
	if err := s.client.getJSON(ctx, "/message/moderator.json", listingParams{Limit: limit}, &l); err != nil {
		return nil, fmt.Errorf("fetching modmail: %w", err)
	}
	return messagesFromListing(&l)
}
