package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	tassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janitorbot/janitor/store"
)

func TestEndToEndRemoval(t *testing.T) {
	assert := assert.New(t)
	e := EngineTestFixture()
	sr := testSubreddit()
	platform := e.Platform.(*fakePlatform)
	mem := e.Store.(*store.MemStore)

	cond := &store.Condition{
		ID: 7, SubredditID: 1,
		Subject:   store.SubjectSubmission,
		Attribute: store.AttrDomain,
		Value:     `spam\.com`,
		Action:    store.ActionRemove,
	}
	sub := testSubmission("testsub", "alice", 0)
	ictx := e.testItemContext(sr, sub)

	matched, err := e.checkConditions(ictx, []*store.Condition{cond})
	assert.NoError(err)
	assert.True(matched)

	require.Len(t, platform.removals, 1)
	assert.False(platform.removals[0].spam)
	require.Len(t, mem.ActionRecords, 1)
	rec := mem.ActionRecords[0]
	assert.Equal(store.ActionRemove, rec.Action)
	assert.Equal(int64(7), rec.ConditionID)
	assert.Equal("alice", rec.User)
	assert.Equal("an example post", rec.Title)
	assert.Equal("spam.com", rec.Domain)
}

func TestAlertIsIdempotent(t *testing.T) {
	assert := assert.New(t)
	e := EngineTestFixture()
	sr := testSubreddit()
	platform := e.Platform.(*fakePlatform)
	mem := e.Store.(*store.MemStore)

	cond := &store.Condition{
		ID: 3, SubredditID: 1,
		Subject:       store.SubjectSubmission,
		Attribute:     store.AttrDomain,
		Value:         `spam\.com`,
		NumReports:    intp(1),
		Action:        store.ActionAlert,
		Comment:       "lots of reports here",
		CommentMethod: store.CommentMethodModmail,
	}
	sub := testSubmission("testsub", "alice", 2)
	ictx := e.testItemContext(sr, sub)

	for i := 0; i < 2; i++ {
		matched, err := e.checkConditions(ictx, []*store.Condition{cond})
		assert.NoError(err)
		assert.True(matched)
	}

	// second dispatch was dropped by the dedup guard
	assert.Len(platform.modmails, 1)
	assert.Len(mem.ActionRecords, 1)
	assert.Equal(store.ActionAlert, mem.ActionRecords[0].Action)
}

func TestCompoundMatchDispatchesOnce(t *testing.T) {
	assert := assert.New(t)
	e := EngineTestFixture()
	sr := testSubreddit()
	sr.CheckAllConditions = true
	platform := e.Platform.(*fakePlatform)
	mem := e.Store.(*store.MemStore)

	conds := []*store.Condition{
		{
			ID: 1, SubredditID: 1,
			Subject:       store.SubjectSubmission,
			Attribute:     store.AttrDomain,
			Value:         `spam\.com`,
			Action:        store.ActionRemove,
			Comment:       "spam domain",
			CommentMethod: store.CommentMethodReply,
		},
		{
			ID: 2, SubredditID: 1,
			Subject:       store.SubjectSubmission,
			Attribute:     store.AttrTitle,
			Value:         `an example .*`,
			Action:        store.ActionRemove,
			Comment:       "bad title",
			CommentMethod: store.CommentMethodReply,
		},
	}
	sub := testSubmission("testsub", "alice", 0)
	ictx := e.testItemContext(sr, sub)

	matched, err := e.checkConditions(ictx, conds)
	assert.NoError(err)
	assert.True(matched)

	// one mutation, one composite comment, one record for the first condition
	assert.Len(platform.removals, 1)
	require.Len(t, platform.replies, 1)
	body := platform.replies[0].body
	assert.True(strings.HasPrefix(body, "This has been removed for the following reasons:"))
	assert.Contains(body, "* spam domain")
	assert.Contains(body, "* bad title")
	assert.Contains(body, "I am a bot")
	require.Len(t, mem.ActionRecords, 1)
	assert.Equal(int64(1), mem.ActionRecords[0].ConditionID)
}

func TestCommentDeliveryChannels(t *testing.T) {
	assert := assert.New(t)
	e := EngineTestFixture()
	sr := testSubreddit()
	platform := e.Platform.(*fakePlatform)

	cond := &store.Condition{
		ID: 1, SubredditID: 1,
		Subject:       store.SubjectSubmission,
		Attribute:     store.AttrDomain,
		Value:         `spam\.com`,
		Action:        store.ActionRemove,
		Comment:       "removed, sorry",
		CommentMethod: store.CommentMethodMessage,
	}

	sub := testSubmission("testsub", "alice", 0)
	ictx := e.testItemContext(sr, sub)
	assert.NoError(e.performAction(ictx, []*store.Condition{cond}))

	// direct messages carry the disclaimer and the permalink
	require.Len(t, platform.messages, 1)
	msg := platform.messages[0]
	assert.Equal("alice", msg.recipient)
	assert.Contains(msg.body, "removed, sorry")
	assert.Contains(msg.body, "I am a bot")
	assert.Contains(msg.body, "/r/testsub/comments/")

	// modmail does not carry the disclaimer
	cond.CommentMethod = store.CommentMethodModmail
	assert.NoError(e.performAction(ictx, []*store.Condition{cond}))
	require.Len(t, platform.modmails, 1)
	assert.Equal("testsub", platform.modmails[0].recipient)
	assert.NotContains(platform.modmails[0].body, "I am a bot")
}

func TestDispatchFailureSurfacesError(t *testing.T) {
	assert := assert.New(t)
	e := EngineTestFixture()
	sr := testSubreddit()
	platform := e.Platform.(*fakePlatform)
	platform.err = tassert.AnError
	mem := e.Store.(*store.MemStore)

	cond := &store.Condition{
		ID: 1, SubredditID: 1,
		Subject:   store.SubjectSubmission,
		Attribute: store.AttrDomain,
		Value:     `spam\.com`,
		Action:    store.ActionRemove,
	}
	ictx := e.testItemContext(sr, testSubmission("testsub", "alice", 0))

	_, err := e.checkConditions(ictx, []*store.Condition{cond})
	assert.Error(err)
	// failed dispatch leaves no record behind
	assert.Empty(mem.ActionRecords)
}
