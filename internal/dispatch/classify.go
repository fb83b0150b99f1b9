package dispatch

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/helixir/paperbot/internal/domain"
	"github.com/helixir/paperbot/internal/ranking"
)

// DefaultCommand is the chat command that asks for the most mentioned papers.
const DefaultCommand = "toptweets"

// Request is a classified inbound message.
type Request struct {
	Kind domain.RequestKind

	// PaperID is the versioned identifier for single lookups.
	PaperID string

	// Count is the clamped number of papers for top lookups.
	Count int
}

// Classifier maps message text to a Request.
type Classifier struct {
	topRegex     *regexp.Regexp
	defaultCount int
}

// NewClassifier builds a Classifier for the given command word. An empty
// command uses DefaultCommand; defaultCount <= 0 uses ranking.DefaultCount.
func NewClassifier(command string, defaultCount int) *Classifier {
	if command == "" {
		command = DefaultCommand
	}
	if defaultCount <= 0 {
		defaultCount = ranking.DefaultCount
	}
	return &Classifier{
		topRegex:     regexp.MustCompile(`^` + regexp.QuoteMeta(command) + `(\s+([0-9]+))?$`),
		defaultCount: defaultCount,
	}
}

// Classify returns a single lookup when text links a paper, a top lookup
// when text is the command with an optional count, and an ignored request
// otherwise. A paper link wins over the command.
func (c *Classifier) Classify(text string) Request {
	if id, ok := domain.ExtractFirst(text); ok {
		return Request{Kind: domain.RequestKindSingle, PaperID: id}
	}

	m := c.topRegex.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return Request{Kind: domain.RequestKindIgnored}
	}

	count := c.defaultCount
	if m[2] != "" {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			// Only digits reach here, so the number overflowed.
			n = ranking.MaxCount
		}
		count = n
	}
	return Request{Kind: domain.RequestKindTop, Count: ranking.ClampCount(count)}
}
