package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/janitorbot/janitor/store"
)

// EngineTestFixture returns an Engine wired to in-memory fakes, for tests.
func EngineTestFixture() *Engine {
	return &Engine{
		Logger:      slog.Default(),
		Store:       store.NewMemStore(),
		Source:      &fakeSource{},
		Platform:    &fakePlatform{},
		Accounts:    &fakeAccounts{},
		MemeNames:   &fakeMemeNames{},
		BotUsername: "janitor",
	}
}

type fakeSource struct {
	reports     []Item
	modqueue    []Item
	submissions []Item
	comments    []Item
	modmail     []*ModmailMessage

	commentSubreddits []string // last NewComments argument
}

func (s *fakeSource) Reports(ctx context.Context, limit int) ([]Item, error) {
	return s.reports, nil
}

func (s *fakeSource) ModQueue(ctx context.Context, limit int) ([]Item, error) {
	return s.modqueue, nil
}

func (s *fakeSource) NewSubmissions(ctx context.Context, limit int) ([]Item, error) {
	return s.submissions, nil
}

func (s *fakeSource) NewComments(ctx context.Context, subreddits []string, limit int) ([]Item, error) {
	s.commentSubreddits = subreddits
	return s.comments, nil
}

func (s *fakeSource) Modmail(ctx context.Context, limit int) ([]*ModmailMessage, error) {
	return s.modmail, nil
}

type removal struct {
	item Item
	spam bool
}

type flairSet struct {
	item  Item
	text  string
	class string
}

type sentMessage struct {
	recipient string
	subject   string
	body      string
}

type fakePlatform struct {
	err error // injected failure for every mutation

	approvals      []Item
	removals       []removal
	flairs         []flairSet
	replies        []sentMessage
	messages       []sentMessage
	modmails       []sentMessage
	messageReplies []sentMessage
}

func (p *fakePlatform) Approve(ctx context.Context, item Item) error {
	if p.err != nil {
		return p.err
	}
	p.approvals = append(p.approvals, item)
	return nil
}

func (p *fakePlatform) Remove(ctx context.Context, item Item, spam bool) error {
	if p.err != nil {
		return p.err
	}
	p.removals = append(p.removals, removal{item: item, spam: spam})
	return nil
}

func (p *fakePlatform) SetFlair(ctx context.Context, item Item, text, cssClass string) error {
	if p.err != nil {
		return p.err
	}
	p.flairs = append(p.flairs, flairSet{item: item, text: text, class: cssClass})
	return nil
}

func (p *fakePlatform) ReplyAndDistinguish(ctx context.Context, item Item, body string) error {
	if p.err != nil {
		return p.err
	}
	p.replies = append(p.replies, sentMessage{recipient: item.Fullname(), body: body})
	return nil
}

func (p *fakePlatform) ReplyToMessage(ctx context.Context, msg *ModmailMessage, body string) error {
	if p.err != nil {
		return p.err
	}
	p.messageReplies = append(p.messageReplies, sentMessage{recipient: msg.ID, body: body})
	return nil
}

func (p *fakePlatform) SendMessage(ctx context.Context, recipient, subject, body string) error {
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, sentMessage{recipient: recipient, subject: subject, body: body})
	return nil
}

func (p *fakePlatform) SendModmail(ctx context.Context, subreddit, subject, body string) error {
	if p.err != nil {
		return p.err
	}
	p.modmails = append(p.modmails, sentMessage{recipient: subreddit, subject: subject, body: body})
	return nil
}

type fakeAccounts struct {
	infos       map[string]*AccountInfo
	shadowned   map[string]bool
	staff       map[string]*SubredditStaff
	infoCalls   int
	shadowCalls int
	staffCalls  int
}

func (a *fakeAccounts) AccountInfo(ctx context.Context, username string) (*AccountInfo, error) {
	a.infoCalls++
	info, ok := a.infos[username]
	if !ok {
		return nil, fmt.Errorf("no such account: %s", username)
	}
	return info, nil
}

func (a *fakeAccounts) IsShadowbanned(ctx context.Context, username string) (bool, error) {
	a.shadowCalls++
	return a.shadowned[username], nil
}

func (a *fakeAccounts) SubredditStaff(ctx context.Context, subreddit string) (*SubredditStaff, error) {
	a.staffCalls++
	staff, ok := a.staff[strings.ToLower(subreddit)]
	if !ok {
		return &SubredditStaff{
			Moderators:   map[string]bool{},
			Contributors: map[string]bool{},
		}, nil
	}
	return staff, nil
}

type fakeMemeNames struct {
	names map[string]string // keyed by submission URL
}

func (m *fakeMemeNames) MemeName(ctx context.Context, sub *Submission) (string, error) {
	if m.names == nil {
		return "", nil
	}
	return m.names[sub.URL], nil
}

// testItemContext builds an evaluation context the way a queue pass would,
// against the engine's own store and a fresh run state.
func (e *Engine) testItemContext(sr *store.Subreddit, item Item) *itemContext {
	return &itemContext{
		ctx:    context.Background(),
		logger: e.Logger,
		store:  e.Store,
		run:    e.newRunState(),
		sr:     sr,
		item:   item,
	}
}

// testSubmission returns a plain link post in the given subreddit.
func testSubmission(subreddit, author string, reports int) *Submission {
	return &Submission{
		FullID:        "t3_test1",
		AuthorName:    author,
		SubredditName: subreddit,
		Created:       time.Now().UTC(),
		NumReports:    reports,
		Title:         "an example post",
		URL:           "http://spam.com/page",
		Domain:        "spam.com",
		PermalinkURL:  "http://www.reddit.com/r/" + subreddit + "/comments/test1/an_example_post/",
	}
}
