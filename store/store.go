package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by point lookups when no row exists.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence contract the moderation engine runs against.
//
// Implementations must be safe for sequential use within a single run; no
// concurrent access is assumed.
type Store interface {
	// ListEnabledSubreddits returns every subreddit the bot should process.
	ListEnabledSubreddits(ctx context.Context) ([]*Subreddit, error)

	// TopLevelConditions returns the subreddit's top-level conditions with
	// their sub-condition trees populated.
	TopLevelConditions(ctx context.Context, subredditID int64) ([]*Condition, error)

	// UpdateWatermarks persists the subreddit's Last* queue watermarks.
	UpdateWatermarks(ctx context.Context, sr *Subreddit) error

	// CreateActionRecord appends one action log entry.
	CreateActionRecord(ctx context.Context, rec *ActionRecord) error

	// HasActionRecord reports whether an action of the given kind was already
	// recorded for the permalink.
	HasActionRecord(ctx context.Context, permalink string, action Action) (bool, error)

	// RecentApprovals returns approve records actioned at or after the given
	// time, most recent first.
	RecentApprovals(ctx context.Context, since time.Time) ([]*ActionRecord, error)

	// GetAutoReapproval returns the entry for a permalink, or ErrNotFound.
	GetAutoReapproval(ctx context.Context, permalink string) (*AutoReapprovalEntry, error)

	// UpsertAutoReapproval creates or updates the entry keyed by permalink.
	UpsertAutoReapproval(ctx context.Context, entry *AutoReapprovalEntry) error

	// Tx runs fn inside a transaction. Returning an error rolls back every
	// write made through the Store passed to fn.
	Tx(ctx context.Context, fn func(Store) error) error
}
