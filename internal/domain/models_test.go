package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChatEvent_IsRetry(t *testing.T) {
	assert.False(t, ChatEvent{}.IsRetry())
	assert.True(t, ChatEvent{RetryNum: 1}.IsRetry())
	assert.True(t, ChatEvent{RetryReason: "http_timeout"}.IsRetry())
}

func TestDispatchOutcome_IsDispatched(t *testing.T) {
	assert.True(t, OutcomeDispatchedSingle.IsDispatched())
	assert.True(t, OutcomeDispatchedTop.IsDispatched())
	for _, o := range []DispatchOutcome{OutcomeIgnored, OutcomeRejectedBot, OutcomeRejectedRetry, OutcomeSaturated} {
		assert.False(t, o.IsDispatched(), string(o))
	}
}

func TestNewPaper(t *testing.T) {
	p := NewPaper("2301.12345v2")
	assert.Equal(t, "2301.12345", p.IDNoVersion)
	assert.False(t, p.HasMentionCount())
	assert.Equal(t, "", p.CommentText())

	comment := "10 pages"
	p.Comment = &comment
	p.MentionCount = 0
	assert.True(t, p.HasMentionCount())
	assert.Equal(t, "10 pages", p.CommentText())
}

func TestPaper_AddCategory(t *testing.T) {
	var p Paper
	p.AddCategory("cs.LG")
	p.AddCategory("stat.ML")
	p.AddCategory("cs.LG")
	p.AddCategory(" ")
	assert.Equal(t, []string{"cs.LG", "stat.ML"}, p.Categories)
}

func TestErrors(t *testing.T) {
	t.Run("not found unwraps to sentinel", func(t *testing.T) {
		err := NewNotFoundError("paper", "1234.5678")
		assert.True(t, errors.Is(err, ErrNotFound))
		assert.Equal(t, "paper not found: 1234.5678", err.Error())
	})

	t.Run("rate limit unwraps to sentinel", func(t *testing.T) {
		err := NewRateLimitError("twitter", 15*time.Minute)
		assert.True(t, errors.Is(err, ErrRateLimited))
	})

	t.Run("external api error unwraps cause", func(t *testing.T) {
		cause := errors.New("boom")
		err := NewExternalAPIError("arXiv", 503, "unavailable", cause)
		assert.True(t, errors.Is(err, cause))
		assert.Contains(t, err.Error(), "status 503")
	})
}
