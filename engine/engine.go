package engine

import (
	"context"
	"log/slog"
	"regexp"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/janitorbot/janitor/store"
)

var (
	// don't action any reports older than this
	ReportBacklogLimit = 48 * time.Hour
	// max items fetched per queue per pass
	QueueFetchLimit = 1000
	// how far back the modmail responder looks for automatic approvals
	ModmailWindow = 5 * time.Minute
)

// ItemSource produces bounded, reverse-chronological batches of items per
// queue kind.
type ItemSource interface {
	Reports(ctx context.Context, limit int) ([]Item, error)
	ModQueue(ctx context.Context, limit int) ([]Item, error)
	NewSubmissions(ctx context.Context, limit int) ([]Item, error)
	// NewComments streams recent comments from the named subreddits only.
	NewComments(ctx context.Context, subreddits []string, limit int) ([]Item, error)
	Modmail(ctx context.Context, limit int) ([]*ModmailMessage, error)
}

// PlatformActor executes mutations against the remote platform. These calls
// are non-idempotent single-shots: implementations must not retry them.
type PlatformActor interface {
	Approve(ctx context.Context, item Item) error
	Remove(ctx context.Context, item Item, spam bool) error
	SetFlair(ctx context.Context, item Item, text, cssClass string) error
	// ReplyAndDistinguish posts a reply on the item and distinguishes it as
	// the bot account.
	ReplyAndDistinguish(ctx context.Context, item Item, body string) error
	ReplyToMessage(ctx context.Context, msg *ModmailMessage, body string) error
	SendMessage(ctx context.Context, recipient, subject, body string) error
	SendModmail(ctx context.Context, subreddit, subject, body string) error
}

// AccountInfo is the account-level state the eligibility checks read.
type AccountInfo struct {
	Name         string
	IsGold       bool
	LinkKarma    int
	CommentKarma int
	CreatedAt    time.Time
}

// SubredditStaff holds a subreddit's moderator and approved-submitter sets.
type SubredditStaff struct {
	Moderators   map[string]bool
	Contributors map[string]bool
}

// AccountService looks up account-level state for eligibility checks.
type AccountService interface {
	AccountInfo(ctx context.Context, username string) (*AccountInfo, error)
	// IsShadowbanned probes whether the user's post history is fetchable;
	// a failing probe means the account is shadowbanned.
	IsShadowbanned(ctx context.Context, username string) (bool, error)
	SubredditStaff(ctx context.Context, subreddit string) (*SubredditStaff, error)
}

// MemeNameFetcher extracts meme-name metadata from an external page. Returns
// "" on any failure (network, parse, unknown domain).
type MemeNameFetcher interface {
	MemeName(ctx context.Context, sub *Submission) (string, error)
}

// Engine evaluates stored conditions against queued items and executes the
// resulting actions.
//
// Run state (rank cache, account cache) is constructed fresh for each RunOnce
// and discarded afterwards, so nothing goes stale across runs.
type Engine struct {
	Logger    *slog.Logger
	Store     store.Store
	Source    ItemSource
	Platform  PlatformActor
	Accounts  AccountService
	MemeNames MemeNameFetcher
	// Username the bot acts as. Used for the self-approval guard and the
	// modmail responder text.
	BotUsername string

	// compiled condition patterns are pure, so this cache persists across runs
	patterns *lru.Cache[string, *regexp.Regexp]
}

// state scoped to a single run, thrown away when the run ends
type runState struct {
	ranks    *RankCache
	accounts *lru.Cache[string, *AccountInfo]
}

func (e *Engine) newRunState() *runState {
	accounts, _ := lru.New[string, *AccountInfo](4096)
	return &runState{
		ranks:    NewRankCache(e.Accounts),
		accounts: accounts,
	}
}

// per-item evaluation context; store is the pass-level transaction handle
type itemContext struct {
	ctx    context.Context
	logger *slog.Logger
	store  store.Store
	run    *runState

	sr         *store.Subreddit
	conditions []*store.Condition
	item       Item
}

func (e *Engine) compilePattern(value string) (*regexp.Regexp, error) {
	if e.patterns == nil {
		e.patterns, _ = lru.New[string, *regexp.Regexp](512)
	}
	if re, ok := e.patterns.Get(value); ok {
		return re, nil
	}
	// anchored at both ends, case-insensitive, dot matches newline
	re, err := regexp.Compile(`(?is)^(?:` + value + `)$`)
	if err != nil {
		return nil, err
	}
	e.patterns.Add(value, re)
	return re, nil
}
