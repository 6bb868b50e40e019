package store

import (
	"time"
)

// Which item variants a condition applies to.
const (
	SubjectSubmission = "submission"
	SubjectComment    = "comment"
	SubjectBoth       = "both"
)

// Item attribute a condition tests against.
type Attribute string

const (
	AttrUser                Attribute = "user"
	AttrTitle               Attribute = "title"
	AttrDomain              Attribute = "domain"
	AttrURL                 Attribute = "url"
	AttrBody                Attribute = "body"
	AttrMediaUser           Attribute = "media_user"
	AttrMediaTitle          Attribute = "media_title"
	AttrMediaDescription    Attribute = "media_description"
	AttrAuthorFlairText     Attribute = "author_flair_text"
	AttrAuthorFlairCSSClass Attribute = "author_flair_css_class"
	AttrMemeName            Attribute = "meme_name"
)

// Action performed when a condition matches.
type Action string

const (
	ActionApprove  Action = "approve"
	ActionRemove   Action = "remove"
	ActionAlert    Action = "alert"
	ActionSetFlair Action = "set_flair"
)

// How a configured comment gets delivered.
const (
	CommentMethodReply   = "comment"
	CommentMethodMessage = "message"
	CommentMethodModmail = "modmail"
)

// Account standing within a subreddit. A moderator also counts as a
// contributor.
type Rank string

const (
	RankContributor Rank = "contributor"
	RankModerator   Rank = "moderator"
)

// Subreddit is a monitored community and the unit of configuration scope.
//
// The Last* fields are per-queue watermarks: the creation time of the newest
// item previously seen in that queue, used to bound how far back a pass
// re-scans.
type Subreddit struct {
	ID      int64  `gorm:"primaryKey"`
	Name    string `gorm:"uniqueIndex;not null"`
	Enabled bool   `gorm:"not null;default:true"`

	LastSubmission time.Time `gorm:"not null"`
	LastSpam       time.Time `gorm:"not null"`
	LastComment    time.Time `gorm:"not null"`

	// Re-approve reported items that a human moderator already approved once.
	AutoReapprove bool `gorm:"not null;default:false"`
	// Collect every matching condition and act on them together, instead of
	// stopping at the first match.
	CheckAllConditions bool `gorm:"not null;default:false"`
	// Only evaluate comments that come through the report queue.
	ReportedCommentsOnly bool `gorm:"not null;default:false"`
}

// Condition is one stored rule node. A condition with a non-nil ParentID is a
// sub-condition; sub-conditions AND with their parent. Read-only during
// evaluation.
type Condition struct {
	ID          int64  `gorm:"primaryKey"`
	SubredditID int64  `gorm:"index;not null"`
	ParentID    *int64 `gorm:"index"`

	Subject   string    `gorm:"not null"`
	Attribute Attribute `gorm:"not null"`
	// Regular expression tested against the attribute. Anchored at both ends
	// when evaluated, so a "contains" check needs .* on each side.
	Value   string `gorm:"not null"`
	Inverse bool   `gorm:"not null;default:false"`

	// Nil means a matching item must have exactly zero reports.
	NumReports *int
	// Whether the NumReports threshold should include report counts already
	// cleared by prior auto-reapprovals. Nil counts as eligible.
	AutoReapproving *bool

	// User eligibility predicates. All nil means no account lookup happens.
	IsGold         *bool
	IsShadowbanned *bool
	AccountAge     *int
	LinkKarma      *int
	CommentKarma   *int
	CombinedKarma  *int
	AccountRank    *Rank

	Action        Action `gorm:"not null"`
	Spam          bool   `gorm:"not null;default:false"`
	SetFlairText  string
	SetFlairClass string
	CommentMethod string
	Comment       string
	Notes         string

	Children []*Condition `gorm:"foreignKey:ParentID"`
}

// ActionRecord is an append-only log entry, written exactly once per
// performed action.
type ActionRecord struct {
	ID          int64 `gorm:"primaryKey"`
	SubredditID int64 `gorm:"index;not null"`
	User        string
	Permalink   string `gorm:"index"`

	// Submission-only metadata, empty for comments.
	Title  string
	URL    string
	Domain string

	CreatedAt  time.Time `gorm:"not null"`
	ActionedAt time.Time `gorm:"not null"`
	Action     Action    `gorm:"index;not null"`
	// The first (authoritative) matched condition.
	ConditionID int64
}

// AutoReapprovalEntry tracks cumulative reports for an item that keeps
// re-surfacing in the report queue after a human approved it. Entries are
// never deleted; they double as an audit trail.
type AutoReapprovalEntry struct {
	ID          int64  `gorm:"primaryKey"`
	SubredditID int64  `gorm:"not null"`
	Permalink   string `gorm:"uniqueIndex;not null"`

	OriginalApprover string
	// Reports observed across all re-appearances, including counts that were
	// cleared by earlier re-approvals.
	TotalReports    int `gorm:"not null;default:0"`
	FirstApprovalAt time.Time
	LastApprovalAt  time.Time
}
