package store

import (
	"context"
	"time"
)

// MemStore is an in-memory Store for tests and local experiments. Not
// race-safe; the engine is single-threaded per run.
type MemStore struct {
	Subreddits    []*Subreddit
	Conditions    []*Condition
	ActionRecords []*ActionRecord
	Reapprovals   map[string]*AutoReapprovalEntry

	nextActionID int64
	nextEntryID  int64
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		Reapprovals: make(map[string]*AutoReapprovalEntry),
	}
}

func (s *MemStore) ListEnabledSubreddits(ctx context.Context) ([]*Subreddit, error) {
	var out []*Subreddit
	for _, sr := range s.Subreddits {
		if sr.Enabled {
			out = append(out, sr)
		}
	}
	return out, nil
}

func (s *MemStore) TopLevelConditions(ctx context.Context, subredditID int64) ([]*Condition, error) {
	var out []*Condition
	for _, c := range s.Conditions {
		if c.SubredditID == subredditID && c.ParentID == nil {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *MemStore) UpdateWatermarks(ctx context.Context, sr *Subreddit) error {
	for _, existing := range s.Subreddits {
		if existing.ID == sr.ID {
			existing.LastSubmission = sr.LastSubmission
			existing.LastSpam = sr.LastSpam
			existing.LastComment = sr.LastComment
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemStore) CreateActionRecord(ctx context.Context, rec *ActionRecord) error {
	s.nextActionID++
	rec.ID = s.nextActionID
	s.ActionRecords = append(s.ActionRecords, rec)
	return nil
}

func (s *MemStore) HasActionRecord(ctx context.Context, permalink string, action Action) (bool, error) {
	for _, rec := range s.ActionRecords {
		if rec.Permalink == permalink && rec.Action == action {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemStore) RecentApprovals(ctx context.Context, since time.Time) ([]*ActionRecord, error) {
	var out []*ActionRecord
	for i := len(s.ActionRecords) - 1; i >= 0; i-- {
		rec := s.ActionRecords[i]
		if rec.Action == ActionApprove && !rec.ActionedAt.Before(since) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *MemStore) GetAutoReapproval(ctx context.Context, permalink string) (*AutoReapprovalEntry, error) {
	entry, ok := s.Reapprovals[permalink]
	if !ok {
		return nil, ErrNotFound
	}
	return entry, nil
}

func (s *MemStore) UpsertAutoReapproval(ctx context.Context, entry *AutoReapprovalEntry) error {
	if existing, ok := s.Reapprovals[entry.Permalink]; ok {
		existing.TotalReports = entry.TotalReports
		existing.LastApprovalAt = entry.LastApprovalAt
		return nil
	}
	s.nextEntryID++
	entry.ID = s.nextEntryID
	s.Reapprovals[entry.Permalink] = entry
	return nil
}

// Tx runs fn directly; MemStore writes are not transactional.
func (s *MemStore) Tx(ctx context.Context, fn func(Store) error) error {
	return fn(s)
}
