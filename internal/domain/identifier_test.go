package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractFirst(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		wantID string
		wantOK bool
	}{
		{
			name:   "abstract page",
			input:  "look at https://arxiv.org/abs/2301.12345 please",
			wantID: "2301.12345",
			wantOK: true,
		},
		{
			name:   "abstract page with version",
			input:  "https://arxiv.org/abs/2301.12345v3",
			wantID: "2301.12345v3",
			wantOK: true,
		},
		{
			name:   "pdf page with suffix",
			input:  "<http://arxiv.org/pdf/1234.5678v2.pdf>",
			wantID: "1234.5678v2",
			wantOK: true,
		},
		{
			name:   "first of several",
			input:  "https://arxiv.org/abs/1111.2222 and https://arxiv.org/abs/3333.4444",
			wantID: "1111.2222",
			wantOK: true,
		},
		{
			name:   "no links",
			input:  "no links here",
			wantOK: false,
		},
		{
			name:   "other host",
			input:  "https://example.org/abs/1234.5678",
			wantOK: false,
		},
		{
			name:   "empty",
			input:  "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := ExtractFirst(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestExtractAllUnique(t *testing.T) {
	t.Run("versions of the same paper collapse", func(t *testing.T) {
		text := "https://arxiv.org/abs/1234.5678v1 and https://arxiv.org/pdf/1234.5678v2.pdf"
		assert.Equal(t, []string{"1234.5678"}, ExtractAllUnique(text))
	})

	t.Run("keeps first-seen order", func(t *testing.T) {
		text := "https://arxiv.org/abs/2222.0002 https://arxiv.org/abs/1111.0001 https://arxiv.org/abs/2222.0002v4"
		assert.Equal(t, []string{"2222.0002", "1111.0001"}, ExtractAllUnique(text))
	})

	t.Run("nothing to find", func(t *testing.T) {
		assert.Empty(t, ExtractAllUnique("just words"))
	})
}

func TestStripVersion(t *testing.T) {
	inputs := []string{"1234.5678", "1234.5678v1", "1234.5678v12", "2301.00001v2", "v3", ""}
	for _, in := range inputs {
		once := StripVersion(in)
		assert.Equal(t, once, StripVersion(once), "StripVersion must be idempotent for %q", in)
	}

	assert.Equal(t, "1234.5678", StripVersion("1234.5678v12"))
	assert.Equal(t, "1234.5678", StripVersion("1234.5678"))
}

func TestMentionSearchQuery(t *testing.T) {
	assert.Equal(t,
		`"arxiv.org/abs/2301.12345" OR "arxiv.org/pdf/2301.12345.pdf"`,
		MentionSearchQuery("2301.12345v2"),
	)
}

func TestLinks(t *testing.T) {
	assert.Equal(t, "https://arxiv.org/abs/2301.12345v2", AbsURL("2301.12345v2"))
	assert.Equal(t, "https://arxiv.org/pdf/2301.12345v2.pdf", PDFURL("2301.12345v2"))
	assert.Equal(t, "https://www.arxiv-vanity.com/papers/2301.12345/", VanityURL("2301.12345v2"))
	assert.Contains(t, MentionSearchURL("2301.12345v1"), "arxiv.org%2Fabs%2F2301.12345")
	assert.Contains(t, MentionSearchURL("2301.12345v1"), "&f=live")
}
