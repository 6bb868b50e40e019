package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *GormStore {
	db, err := OpenDatabase("sqlite://:memory:", 1)
	require.NoError(t, err)
	s, err := NewGormStore(db)
	require.NoError(t, err)
	return s
}

func TestConditionTreeAssembly(t *testing.T) {
	assert := assert.New(t)
	s := testStore(t)
	ctx := t.Context()

	sr := &Subreddit{Name: "testsub", Enabled: true}
	require.NoError(t, s.db.Create(sr).Error)

	root := &Condition{SubredditID: sr.ID, Subject: SubjectSubmission, Attribute: AttrDomain, Value: `spam\.com`, Action: ActionRemove}
	require.NoError(t, s.db.Create(root).Error)
	child := &Condition{SubredditID: sr.ID, ParentID: &root.ID, Subject: SubjectSubmission, Attribute: AttrTitle, Value: ".*", Action: ActionRemove}
	grandchild := &Condition{SubredditID: sr.ID, Subject: SubjectSubmission, Attribute: AttrUser, Value: "alice", Action: ActionRemove}
	require.NoError(t, s.db.Create(child).Error)
	grandchild.ParentID = &child.ID
	require.NoError(t, s.db.Create(grandchild).Error)
	other := &Condition{SubredditID: sr.ID + 1, Subject: SubjectSubmission, Attribute: AttrDomain, Value: ".*", Action: ActionApprove}
	require.NoError(t, s.db.Create(other).Error)

	roots, err := s.TopLevelConditions(ctx, sr.ID)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(root.ID, roots[0].ID)
	require.Len(t, roots[0].Children, 1)
	require.Len(t, roots[0].Children[0].Children, 1)
	assert.Equal(grandchild.ID, roots[0].Children[0].Children[0].ID)
}

func TestListEnabledSubreddits(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.db.Create(&Subreddit{Name: "on", Enabled: true}).Error)
	require.NoError(t, s.db.Create(&Subreddit{Name: "off", Enabled: false}).Error)

	srs, err := s.ListEnabledSubreddits(t.Context())
	require.NoError(t, err)
	require.Len(t, srs, 1)
	assert.Equal(t, "on", srs[0].Name)
}

func TestWatermarkRoundTrip(t *testing.T) {
	assert := assert.New(t)
	s := testStore(t)
	ctx := t.Context()

	sr := &Subreddit{Name: "testsub", Enabled: true}
	require.NoError(t, s.db.Create(sr).Error)

	mark := time.Date(2013, 1, 1, 12, 0, 0, 0, time.UTC)
	sr.LastSubmission = mark
	sr.LastSpam = mark.Add(time.Minute)
	require.NoError(t, s.UpdateWatermarks(ctx, sr))

	srs, err := s.ListEnabledSubreddits(ctx)
	require.NoError(t, err)
	require.Len(t, srs, 1)
	assert.True(srs[0].LastSubmission.Equal(mark))
	assert.True(srs[0].LastSpam.Equal(mark.Add(time.Minute)))
}

func TestActionRecordDedup(t *testing.T) {
	assert := assert.New(t)
	s := testStore(t)
	ctx := t.Context()

	rec := &ActionRecord{
		SubredditID: 1,
		User:        "alice",
		Permalink:   "http://www.reddit.com/r/testsub/comments/abc/x/",
		Action:      ActionAlert,
		CreatedAt:   time.Now().UTC(),
		ActionedAt:  time.Now().UTC(),
	}
	require.NoError(t, s.CreateActionRecord(ctx, rec))

	found, err := s.HasActionRecord(ctx, rec.Permalink, ActionAlert)
	require.NoError(t, err)
	assert.True(found)
	found, err = s.HasActionRecord(ctx, rec.Permalink, ActionRemove)
	require.NoError(t, err)
	assert.False(found)
	found, err = s.HasActionRecord(ctx, "http://elsewhere/", ActionAlert)
	require.NoError(t, err)
	assert.False(found)
}

func TestRecentApprovals(t *testing.T) {
	assert := assert.New(t)
	s := testStore(t)
	ctx := t.Context()
	now := time.Now().UTC()

	for i, rec := range []*ActionRecord{
		{SubredditID: 1, User: "old", Action: ActionApprove, ActionedAt: now.Add(-time.Hour)},
		{SubredditID: 1, User: "recent", Action: ActionApprove, ActionedAt: now.Add(-time.Minute)},
		{SubredditID: 1, User: "removed", Action: ActionRemove, ActionedAt: now},
	} {
		rec.Permalink = fmt.Sprintf("http://www.reddit.com/r/testsub/comments/p%d/x/", i)
		rec.CreatedAt = rec.ActionedAt
		require.NoError(t, s.CreateActionRecord(ctx, rec))
	}

	recs, err := s.RecentApprovals(ctx, now.Add(-5*time.Minute))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal("recent", recs[0].User)
}

func TestAutoReapprovalUpsert(t *testing.T) {
	assert := assert.New(t)
	s := testStore(t)
	ctx := t.Context()
	permalink := "http://www.reddit.com/r/testsub/comments/abc/x/"

	_, err := s.GetAutoReapproval(ctx, permalink)
	assert.ErrorIs(err, ErrNotFound)

	entry := &AutoReapprovalEntry{
		SubredditID:      1,
		Permalink:        permalink,
		OriginalApprover: "some_mod",
		TotalReports:     2,
		FirstApprovalAt:  time.Now().UTC(),
		LastApprovalAt:   time.Now().UTC(),
	}
	require.NoError(t, s.UpsertAutoReapproval(ctx, entry))

	// a second upsert bumps the counters but keeps the original approver
	update := *entry
	update.TotalReports = 5
	update.OriginalApprover = "someone_else"
	require.NoError(t, s.UpsertAutoReapproval(ctx, &update))

	got, err := s.GetAutoReapproval(ctx, permalink)
	require.NoError(t, err)
	assert.Equal(5, got.TotalReports)
	assert.Equal("some_mod", got.OriginalApprover)
}

func TestTxRollsBackOnError(t *testing.T) {
	assert := assert.New(t)
	s := testStore(t)
	ctx := t.Context()

	err := s.Tx(ctx, func(txs Store) error {
		if err := txs.CreateActionRecord(ctx, &ActionRecord{
			SubredditID: 1,
			Permalink:   "http://www.reddit.com/r/testsub/comments/abc/x/",
			Action:      ActionRemove,
			CreatedAt:   time.Now().UTC(),
			ActionedAt:  time.Now().UTC(),
		}); err != nil {
			return err
		}
		return fmt.Errorf("boom")
	})
	assert.ErrorContains(err, "boom")

	found, err := s.HasActionRecord(ctx, "http://www.reddit.com/r/testsub/comments/abc/x/", ActionRemove)
	require.NoError(t, err)
	assert.False(found)
}
