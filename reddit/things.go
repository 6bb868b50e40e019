package reddit

import (
	"encoding/json"
	"time"

	"github.com/janitorbot/janitor/engine"
)

// Thing kind prefixes used in listings.
const (
	kindComment    = "t1"
	kindSubmission = "t3"
	kindMessage    = "t4"
)

type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type listing struct {
	Kind string `json:"kind"`
	Data struct {
		Children []thing `json:"children"`
		After    string  `json:"after"`
	} `json:"data"`
}

type submissionData struct {
	Name                string         `json:"name"`
	Author              string         `json:"author"`
	Subreddit           string         `json:"subreddit"`
	CreatedUTC          float64        `json:"created_utc"`
	NumReports          int            `json:"num_reports"`
	ApprovedBy          string         `json:"approved_by"`
	AuthorFlairText     string         `json:"author_flair_text"`
	AuthorFlairCSSClass string         `json:"author_flair_css_class"`
	Title               string         `json:"title"`
	URL                 string         `json:"url"`
	Domain              string         `json:"domain"`
	Selftext            string         `json:"selftext"`
	Media               map[string]any `json:"media"`
	Permalink           string         `json:"permalink"`
}

type commentData struct {
	Name                string  `json:"name"`
	Author              string  `json:"author"`
	Subreddit           string  `json:"subreddit"`
	CreatedUTC          float64 `json:"created_utc"`
	NumReports          int     `json:"num_reports"`
	ApprovedBy          string  `json:"approved_by"`
	AuthorFlairText     string  `json:"author_flair_text"`
	AuthorFlairCSSClass string  `json:"author_flair_css_class"`
	Body                string  `json:"body"`
	LinkID              string  `json:"link_id"`
}

type messageData struct {
	Name       string  `json:"name"`
	Author     string  `json:"author"`
	Subreddit  string  `json:"subreddit"`
	CreatedUTC float64 `json:"created_utc"`
	Body       string  `json:"body"`
	// "" when there are no replies, a nested listing otherwise
	Replies json.RawMessage `json:"replies"`
}

func epochToTime(sec float64) time.Time {
	return time.Unix(int64(sec), 0).UTC()
}

// itemsFromListing decodes a listing's children into engine items, skipping
// thing kinds the engine has no use for.
func itemsFromListing(l *listing, baseURL string) ([]engine.Item, error) {
	out := make([]engine.Item, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		switch child.Kind {
		case kindSubmission:
			var d submissionData
			if err := json.Unmarshal(child.Data, &d); err != nil {
				return nil, err
			}
			out = append(out, &engine.Submission{
				FullID:         d.Name,
				AuthorName:     deletedToEmpty(d.Author),
				SubredditName:  d.Subreddit,
				Created:        epochToTime(d.CreatedUTC),
				NumReports:     d.NumReports,
				ApprovedByUser: d.ApprovedBy,
				FlairText:      d.AuthorFlairText,
				FlairCSSClass:  d.AuthorFlairCSSClass,
				Title:          d.Title,
				URL:            d.URL,
				Domain:         d.Domain,
				SelfText:       d.Selftext,
				Media:          d.Media,
				PermalinkURL:   baseURL + d.Permalink,
			})
		case kindComment:
			var d commentData
			if err := json.Unmarshal(child.Data, &d); err != nil {
				return nil, err
			}
			out = append(out, &engine.Comment{
				FullID:         d.Name,
				AuthorName:     deletedToEmpty(d.Author),
				SubredditName:  d.Subreddit,
				Created:        epochToTime(d.CreatedUTC),
				NumReports:     d.NumReports,
				ApprovedByUser: d.ApprovedBy,
				FlairText:      d.AuthorFlairText,
				FlairCSSClass:  d.AuthorFlairCSSClass,
				Body:           d.Body,
				LinkFullname:   d.LinkID,
			})
		}
	}
	return out, nil
}

func messagesFromListing(l *listing) ([]*engine.ModmailMessage, error) {
	out := make([]*engine.ModmailMessage, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		if child.Kind != kindMessage {
			continue
		}
		var d messageData
		if err := json.Unmarshal(child.Data, &d); err != nil {
			return nil, err
		}
		out = append(out, &engine.ModmailMessage{
			ID:         d.Name,
			Subreddit:  d.Subreddit,
			AuthorName: d.Author,
			Created:    epochToTime(d.CreatedUTC),
			Body:       d.Body,
			HasReplies: hasReplies(d.Replies),
		})
	}
	return out, nil
}

// hasReplies distinguishes the API's empty-string placeholder from a real
// nested listing.
func hasReplies(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s != ""
	}
	var l listing
	if err := json.Unmarshal(raw, &l); err != nil {
		return false
	}
	return len(l.Data.Children) > 0
}

// deletedToEmpty maps the API's "[deleted]" author placeholder to the empty
// string the engine uses for deleted accounts.
func deletedToEmpty(author string) string {
	if author == "[deleted]" {
		return ""
	}
	return author
}
