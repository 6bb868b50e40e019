package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janitorbot/janitor/store"
)

func TestModmailResponder(t *testing.T) {
	assert := assert.New(t)
	e := EngineTestFixture()
	mem := e.Store.(*store.MemStore)
	source := e.Source.(*fakeSource)
	platform := e.Platform.(*fakePlatform)

	now := time.Now().UTC()
	srs := []*store.Subreddit{testSubreddit()}
	mem.ActionRecords = []*store.ActionRecord{{
		ID: 1, SubredditID: 1,
		User:       "alice",
		Action:     store.ActionApprove,
		CreatedAt:  now.Add(-4 * time.Minute),
		ActionedAt: now.Add(-time.Minute),
	}}

	source.modmail = []*ModmailMessage{
		{ID: "m3", Subreddit: "TestSub", AuthorName: "alice", Created: now.Add(-time.Minute), HasReplies: true},
		{ID: "m2", Subreddit: "TestSub", AuthorName: "alice", Created: now.Add(-2 * time.Minute)},
		{ID: "m1", Subreddit: "testsub", AuthorName: "bob", Created: now.Add(-3 * time.Minute)},
	}

	require.NoError(t, e.RespondToModmail(t.Context(), now, srs))

	// the newest unanswered message from the approved author gets one reply
	require.Len(t, platform.messageReplies, 1)
	assert.Equal("m2", platform.messageReplies[0].recipient)
	assert.Contains(platform.messageReplies[0].body, "approved automatically by janitor")
}

func TestModmailResponderIgnoresOlderMessages(t *testing.T) {
	e := EngineTestFixture()
	mem := e.Store.(*store.MemStore)
	source := e.Source.(*fakeSource)
	platform := e.Platform.(*fakePlatform)

	now := time.Now().UTC()
	srs := []*store.Subreddit{testSubreddit()}
	mem.ActionRecords = []*store.ActionRecord{{
		ID: 1, SubredditID: 1,
		User:       "alice",
		Action:     store.ActionApprove,
		CreatedAt:  now.Add(-2 * time.Minute),
		ActionedAt: now.Add(-time.Minute),
	}}

	// sent before the item existed, so it can't be about it
	source.modmail = []*ModmailMessage{
		{ID: "m1", Subreddit: "testsub", AuthorName: "alice", Created: now.Add(-10 * time.Minute)},
	}

	require.NoError(t, e.RespondToModmail(t.Context(), now, srs))
	assert.Empty(t, platform.messageReplies)
}

func TestModmailResponderSkipsOldApprovals(t *testing.T) {
	e := EngineTestFixture()
	mem := e.Store.(*store.MemStore)
	source := e.Source.(*fakeSource)
	platform := e.Platform.(*fakePlatform)

	now := time.Now().UTC()
	srs := []*store.Subreddit{testSubreddit()}
	mem.ActionRecords = []*store.ActionRecord{{
		ID: 1, SubredditID: 1,
		User:       "alice",
		Action:     store.ActionApprove,
		CreatedAt:  now.Add(-time.Hour),
		ActionedAt: now.Add(-30 * time.Minute),
	}}
	source.modmail = []*ModmailMessage{
		{ID: "m1", Subreddit: "testsub", AuthorName: "alice", Created: now.Add(-time.Minute)},
	}

	require.NoError(t, e.RespondToModmail(t.Context(), now, srs))
	assert.Empty(t, platform.messageReplies)
}
