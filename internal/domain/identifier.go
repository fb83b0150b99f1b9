package domain

import (
	"fmt"
	"net/url"
	"regexp"
)

// arxivURLRegex matches abstract-page and PDF-page arXiv URLs. The second
// group is the identifier, possibly carrying a version suffix.
// Matches "https://arxiv.org/abs/2301.12345v2" and "http://arxiv.org/pdf/2301.12345.pdf".
var arxivURLRegex = regexp.MustCompile(`https?://arxiv\.org/(abs|pdf)/([0-9]+\.[0-9v]+)(\.pdf)?`)

// versionSuffixRegex matches a trailing "vN" version marker.
var versionSuffixRegex = regexp.MustCompile(`v[0-9]+$`)

// ExtractFirst returns the identifier of the first arXiv URL found in text,
// version included. The second return value is false when text has no such URL.
func ExtractFirst(text string) (string, bool) {
	m := arxivURLRegex.FindStringSubmatch(text)
	if len(m) < 3 || m[2] == "" {
		return "", false
	}
	return m[2], true
}

// ExtractAllUnique returns every distinct version-independent identifier
// referenced by an arXiv URL in text, in first-seen order.
func ExtractAllUnique(text string) []string {
	matches := arxivURLRegex.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		id := StripVersion(m[2])
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// StripVersion removes a trailing version suffix ("v2") from an identifier.
// Applying it more than once has no further effect.
func StripVersion(id string) string {
	return versionSuffixRegex.ReplaceAllString(id, "")
}

// AbsURL returns the abstract page URL for an identifier.
func AbsURL(id string) string {
	return "https://arxiv.org/abs/" + id
}

// PDFURL returns the PDF URL for an identifier.
func PDFURL(id string) string {
	return "https://arxiv.org/pdf/" + id + ".pdf"
}

// VanityURL returns the arxiv-vanity rendering URL for an identifier.
func VanityURL(id string) string {
	return fmt.Sprintf("https://www.arxiv-vanity.com/papers/%s/", StripVersion(id))
}

// MentionSearchQuery returns the social search query that finds posts
// linking to either the abstract or the PDF page of a paper.
func MentionSearchQuery(id string) string {
	id = StripVersion(id)
	return fmt.Sprintf(`"arxiv.org/abs/%s" OR "arxiv.org/pdf/%s.pdf"`, id, id)
}

// MentionSearchURL returns a browsable live-search link for posts that
// mention a paper.
func MentionSearchURL(id string) string {
	id = StripVersion(id)
	q := fmt.Sprintf("arxiv.org/abs/%s OR arxiv.org/pdf/%s.pdf ", id, id)
	return "https://twitter.com/search?q=" + url.QueryEscape(q) + "&f=live"
}
