package domain

import (
	"strings"
	"time"
)

// Paper holds the metadata of one arXiv entry as returned by the metadata
// provider. MentionCount is attached later by ranking; a negative value
// means the count is unknown.
type Paper struct {
	// ID is the raw identifier including its version ("2301.12345v2").
	ID string `json:"id"`

	// IDNoVersion is ID with the version suffix stripped; the dedup key.
	IDNoVersion string `json:"id_no_version"`

	Title string `json:"title"`

	// Authors lists author names in provider order.
	Authors []string `json:"authors"`

	// Categories lists category terms in provider order without duplicates.
	Categories []string `json:"categories"`

	Published time.Time `json:"published"`
	Updated   time.Time `json:"updated"`

	// Comment is the free-text author comment; nil when absent.
	Comment *string `json:"comment,omitempty"`

	// Summary is the abstract text.
	Summary string `json:"summary"`

	// MentionCount is the number of social posts referencing the paper.
	MentionCount int `json:"mention_count"`
}

// MentionCountUnknown marks a paper whose mentions were never counted.
const MentionCountUnknown = -1

// NewPaper builds a Paper for a raw identifier, deriving IDNoVersion.
func NewPaper(id string) Paper {
	return Paper{
		ID:           id,
		IDNoVersion:  StripVersion(id),
		MentionCount: MentionCountUnknown,
	}
}

// HasMentionCount reports whether mentions have been counted for the paper.
func (p *Paper) HasMentionCount() bool {
	return p.MentionCount >= 0
}

// CommentText returns the comment or an empty string.
func (p *Paper) CommentText() string {
	if p.Comment == nil {
		return ""
	}
	return *p.Comment
}

// AddCategory appends a category term unless already present.
func (p *Paper) AddCategory(term string) {
	term = strings.TrimSpace(term)
	if term == "" {
		return
	}
	for _, c := range p.Categories {
		if c == term {
			return
		}
	}
	p.Categories = append(p.Categories, term)
}
