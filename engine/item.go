package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/purell"
)

// ItemKind tags the two item variants. Conditions use it for subject
// filtering and permalink construction.
type ItemKind string

const (
	KindSubmission ItemKind = "submission"
	KindComment    ItemKind = "comment"
)

// Item is the shared surface of submissions and comments under evaluation.
// Variant-specific fields live on the concrete types.
type Item interface {
	Kind() ItemKind
	// Fullname is the platform's type-prefixed id, eg "t3_abc123".
	Fullname() string
	// Author returns the author's username, or "" if the account is deleted.
	Author() string
	Subreddit() string
	CreatedAt() time.Time
	ReportCount() int
	// ApprovedBy returns the approving moderator's username, or "" if the
	// item has no standing approval.
	ApprovedBy() string
	AuthorFlairText() string
	AuthorFlairCSSClass() string
	Permalink() string
}

// Submission is a link or self post.
type Submission struct {
	FullID         string
	AuthorName     string
	SubredditName  string
	Created        time.Time
	NumReports     int
	ApprovedByUser string
	FlairText      string
	FlairCSSClass  string

	Title    string
	URL      string
	Domain   string
	SelfText string
	// Decoded media metadata, as returned by the platform. May be nil or
	// arbitrarily malformed; lookups degrade to "".
	Media map[string]any

	PermalinkURL string
}

var _ Item = (*Submission)(nil)

func (s *Submission) Kind() ItemKind              { return KindSubmission }
func (s *Submission) Fullname() string            { return s.FullID }
func (s *Submission) Author() string              { return s.AuthorName }
func (s *Submission) Subreddit() string           { return s.SubredditName }
func (s *Submission) CreatedAt() time.Time        { return s.Created }
func (s *Submission) ReportCount() int            { return s.NumReports }
func (s *Submission) ApprovedBy() string          { return s.ApprovedByUser }
func (s *Submission) AuthorFlairText() string     { return s.FlairText }
func (s *Submission) AuthorFlairCSSClass() string { return s.FlairCSSClass }
func (s *Submission) Permalink() string           { return s.PermalinkURL }

// Comment is a reply on a submission.
type Comment struct {
	FullID         string
	AuthorName     string
	SubredditName  string
	Created        time.Time
	NumReports     int
	ApprovedByUser string
	FlairText      string
	FlairCSSClass  string

	Body string
	// Fullname of the submission this comment belongs to, eg "t3_abc123".
	LinkFullname string
}

var _ Item = (*Comment)(nil)

func (c *Comment) Kind() ItemKind              { return KindComment }
func (c *Comment) Fullname() string            { return c.FullID }
func (c *Comment) Author() string              { return c.AuthorName }
func (c *Comment) Subreddit() string           { return c.SubredditName }
func (c *Comment) CreatedAt() time.Time        { return c.Created }
func (c *Comment) ReportCount() int            { return c.NumReports }
func (c *Comment) ApprovedBy() string          { return c.ApprovedByUser }
func (c *Comment) AuthorFlairText() string     { return c.FlairText }
func (c *Comment) AuthorFlairCSSClass() string { return c.FlairCSSClass }

// Permalink builds the comment's canonical URL from its parent link id.
func (c *Comment) Permalink() string {
	return fmt.Sprintf("http://www.reddit.com/r/%s/comments/%s/a/%s",
		c.SubredditName, stripThingPrefix(c.LinkFullname), stripThingPrefix(c.FullID))
}

func stripThingPrefix(fullname string) string {
	if _, id, found := strings.Cut(fullname, "_"); found {
		return id
	}
	return fullname
}

// NormalizePermalink canonicalizes a permalink before it is used as a
// deduplication or auto-reapproval key, so trivial URL variations don't split
// an item's history across multiple entries.
func NormalizePermalink(raw string) string {
	out, err := purell.NormalizeURLString(raw, purell.FlagsUsuallySafeGreedy)
	if err != nil {
		return raw
	}
	return out
}
