package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/janitorbot/janitor/store"
)

func intp(v int) *int                { return &v }
func boolp(v bool) *bool             { return &v }
func rankp(v store.Rank) *store.Rank { return &v }

func testSubreddit() *store.Subreddit {
	return &store.Subreddit{ID: 1, Name: "testsub", Enabled: true}
}

func TestPatternAnchoring(t *testing.T) {
	assert := assert.New(t)
	e := EngineTestFixture()
	sr := testSubreddit()

	cond := &store.Condition{
		ID: 1, SubredditID: 1,
		Subject:   store.SubjectSubmission,
		Attribute: store.AttrTitle,
		Value:     "foo",
		Action:    store.ActionRemove,
	}

	for title, want := range map[string]Outcome{
		"foo":    OutcomeMatch,
		"FOO":    OutcomeMatch,
		"foobar": OutcomeNoMatch,
		"xfoo":   OutcomeNoMatch,
	} {
		sub := testSubmission("testsub", "alice", 0)
		sub.Title = title
		ictx := e.testItemContext(sr, sub)
		assert.Equal(want, e.evaluateCondition(ictx, cond), "title %q", title)
	}

	cond.Value = ".*foo.*"
	sub := testSubmission("testsub", "alice", 0)
	sub.Title = "xfoox"
	ictx := e.testItemContext(sr, sub)
	assert.Equal(OutcomeMatch, e.evaluateCondition(ictx, cond))
}

func TestInverseFlipsResult(t *testing.T) {
	assert := assert.New(t)
	e := EngineTestFixture()
	sr := testSubreddit()

	cond := &store.Condition{
		ID: 1, SubredditID: 1,
		Subject:   store.SubjectSubmission,
		Attribute: store.AttrDomain,
		Value:     `spam\.com`,
		Inverse:   true,
		Action:    store.ActionRemove,
	}

	sub := testSubmission("testsub", "alice", 0)
	ictx := e.testItemContext(sr, sub)
	assert.Equal(OutcomeNoMatch, e.evaluateCondition(ictx, cond))

	sub.Domain = "example.com"
	assert.Equal(OutcomeMatch, e.evaluateCondition(ictx, cond))
}

func TestChildConditionsAreStrictAND(t *testing.T) {
	assert := assert.New(t)
	e := EngineTestFixture()
	sr := testSubreddit()

	parent := &store.Condition{
		ID: 1, SubredditID: 1,
		Subject:   store.SubjectSubmission,
		Attribute: store.AttrDomain,
		Value:     `spam\.com`,
		Action:    store.ActionRemove,
		Children: []*store.Condition{
			{
				ID: 2, SubredditID: 1,
				Subject:   store.SubjectSubmission,
				Attribute: store.AttrTitle,
				Value:     `an example .*`,
				Action:    store.ActionRemove,
			},
			{
				ID: 3, SubredditID: 1,
				Subject:   store.SubjectSubmission,
				Attribute: store.AttrUser,
				Value:     "mallory",
				Action:    store.ActionRemove,
			},
		},
	}

	// parent pattern matches but the second child fails: no match
	sub := testSubmission("testsub", "alice", 0)
	ictx := e.testItemContext(sr, sub)
	assert.Equal(OutcomeNoMatch, e.evaluateCondition(ictx, parent))

	// all children pass
	sub.AuthorName = "mallory"
	assert.Equal(OutcomeMatch, e.evaluateCondition(ictx, parent))
}

func TestReportThresholds(t *testing.T) {
	assert := assert.New(t)
	e := EngineTestFixture()
	sr := testSubreddit()

	// no threshold configured means the item must have zero reports
	cond := &store.Condition{
		ID: 1, SubredditID: 1,
		Subject:   store.SubjectSubmission,
		Attribute: store.AttrDomain,
		Value:     `spam\.com`,
		Action:    store.ActionRemove,
	}
	sub := testSubmission("testsub", "alice", 1)
	ictx := e.testItemContext(sr, sub)
	assert.Equal(OutcomeNoMatch, e.evaluateCondition(ictx, cond))

	sub.NumReports = 0
	assert.Equal(OutcomeMatch, e.evaluateCondition(ictx, cond))

	// explicit threshold
	cond.NumReports = intp(3)
	sub.NumReports = 3
	assert.Equal(OutcomeMatch, e.evaluateCondition(ictx, cond))
	sub.NumReports = 2
	assert.Equal(OutcomeNoMatch, e.evaluateCondition(ictx, cond))
}

func TestReportThresholdCountsClearedReports(t *testing.T) {
	assert := assert.New(t)
	e := EngineTestFixture()
	sr := testSubreddit()

	sub := testSubmission("testsub", "alice", 1)
	err := e.Store.UpsertAutoReapproval(t.Context(), &store.AutoReapprovalEntry{
		SubredditID:  sr.ID,
		Permalink:    NormalizePermalink(sub.Permalink()),
		TotalReports: 2,
	})
	assert.NoError(err)

	cond := &store.Condition{
		ID: 1, SubredditID: 1,
		Subject:    store.SubjectSubmission,
		Attribute:  store.AttrDomain,
		Value:      `spam\.com`,
		NumReports: intp(3),
		Action:     store.ActionAlert,
	}
	ictx := e.testItemContext(sr, sub)

	// 1 current + 2 previously cleared >= 3
	assert.Equal(OutcomeMatch, e.evaluateCondition(ictx, cond))

	// opting out of auto-reapproval accounting ignores the cleared reports
	cond.AutoReapproving = boolp(false)
	assert.Equal(OutcomeNoMatch, e.evaluateCondition(ictx, cond))
}

func TestMediaLookupDegradesToEmpty(t *testing.T) {
	assert := assert.New(t)
	e := EngineTestFixture()
	sr := testSubreddit()

	// "" only matches the empty test string, so a missing or malformed media
	// payload matches and a well-formed one with a different author does not
	cond := &store.Condition{
		ID: 1, SubredditID: 1,
		Subject:   store.SubjectSubmission,
		Attribute: store.AttrMediaUser,
		Value:     "",
		Action:    store.ActionRemove,
	}

	sub := testSubmission("testsub", "alice", 0)
	ictx := e.testItemContext(sr, sub)
	assert.Equal(OutcomeMatch, e.evaluateCondition(ictx, cond))

	sub.Media = map[string]any{"oembed": "not-a-map"}
	assert.Equal(OutcomeMatch, e.evaluateCondition(ictx, cond))

	sub.Media = map[string]any{"oembed": map[string]any{"author_name": "memelord"}}
	assert.Equal(OutcomeNoMatch, e.evaluateCondition(ictx, cond))
}

func TestMissingVariantAttributeIsError(t *testing.T) {
	assert := assert.New(t)
	e := EngineTestFixture()
	sr := testSubreddit()

	cond := &store.Condition{
		ID: 1, SubredditID: 1,
		Subject:   store.SubjectBoth,
		Attribute: store.AttrTitle,
		Value:     ".*",
		Action:    store.ActionRemove,
	}
	comment := &Comment{
		FullID:        "t1_c1",
		AuthorName:    "alice",
		SubredditName: "testsub",
		Body:          "hello",
		LinkFullname:  "t3_abc",
	}
	ictx := e.testItemContext(sr, comment)
	assert.Equal(OutcomeError, e.evaluateCondition(ictx, cond))
}

func TestBadPatternIsError(t *testing.T) {
	assert := assert.New(t)
	e := EngineTestFixture()
	sr := testSubreddit()

	cond := &store.Condition{
		ID: 1, SubredditID: 1,
		Subject:   store.SubjectSubmission,
		Attribute: store.AttrTitle,
		Value:     "(unclosed",
		Action:    store.ActionRemove,
	}
	ictx := e.testItemContext(sr, testSubmission("testsub", "alice", 0))
	assert.Equal(OutcomeError, e.evaluateCondition(ictx, cond))
}

func TestSubjectFiltering(t *testing.T) {
	assert := assert.New(t)
	e := EngineTestFixture()
	sr := testSubreddit()

	// a comment-only condition never dispatches against a submission
	cond := &store.Condition{
		ID: 1, SubredditID: 1,
		Subject:   store.SubjectComment,
		Attribute: store.AttrUser,
		Value:     ".*",
		Action:    store.ActionRemove,
	}
	ictx := e.testItemContext(sr, testSubmission("testsub", "alice", 0))
	matched, err := e.checkConditions(ictx, []*store.Condition{cond})
	assert.NoError(err)
	assert.False(matched)
	assert.Empty(e.Platform.(*fakePlatform).removals)
}
