// Package reply renders paper records as chat messages.
package reply

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/helixir/paperbot/internal/domain"
)

const dateLayout = "2006/01/02"

// Not-found replies.
const (
	NoMentionResult  = "No twitter result found"
	NoMetadataResult = "No arXiv result found"
)

// NoResultFor is the reply for a single lookup that found nothing.
func NoResultFor(id string) string {
	return "No result found: " + id
}

// Translator translates a summary for the requester. *translation.Cache
// implements it.
type Translator interface {
	Translate(ctx context.Context, requesterID, text, targetLang string) (string, bool)
}

// Formatter renders replies. A nil Translator leaves summaries untranslated.
type Formatter struct {
	translator Translator
	targetLang string
}

// NewFormatter creates a Formatter translating summaries into targetLang.
func NewFormatter(translator Translator, targetLang string) *Formatter {
	return &Formatter{translator: translator, targetLang: targetLang}
}

// Format renders paper as five lines: abstract URL, title, authors, a
// details line, and the summary (translated when possible).
func (f *Formatter) Format(ctx context.Context, requesterID string, paper domain.Paper) string {
	lines := []string{
		domain.AbsURL(paper.ID),
		flatten(paper.Title),
		strings.Join(paper.Authors, ", "),
		detailsLine(paper),
		f.summary(ctx, requesterID, paper.Summary),
	}
	return strings.Join(lines, "\n")
}

func detailsLine(paper domain.Paper) string {
	mentions := "?"
	if paper.HasMentionCount() {
		mentions = strconv.Itoa(paper.MentionCount)
	}

	fields := []string{
		formatDate(paper),
		fmt.Sprintf("<%s|vanity>", domain.VanityURL(paper.ID)),
		fmt.Sprintf("<%s|%s tweets>", domain.MentionSearchURL(paper.ID), mentions),
		strings.Join(paper.Categories, " | "),
		paper.CommentText(),
	}
	return strings.Join(fields, ", ")
}

func formatDate(paper domain.Paper) string {
	return paper.Published.Format(dateLayout) + ", " + paper.Updated.Format(dateLayout)
}

func (f *Formatter) summary(ctx context.Context, requesterID, text string) string {
	text = flatten(text)
	if f.translator == nil {
		return text
	}
	if translated, ok := f.translator.Translate(ctx, requesterID, text, f.targetLang); ok && translated != "" {
		return translated
	}
	return text
}

// flatten replaces line breaks with spaces.
func flatten(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}
