package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeFilename(t *testing.T) {
	tests := []struct {
		name  string
		title string
		ext   string
		want  string
	}{
		{"plain", "Meeting Notes", ".pdf", "Meeting Notes.pdf"},
		{"slashes", "a/b\\c", ".pdf", "a_b_c.pdf"},
		{"reserved chars", `q:"w"<e>|?*`, ".pdf", "q__w___e_____.pdf"},
		{"trimmed", "  padded  ", ".pdf", "padded.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeFilename(tt.title, tt.ext))
		})
	}
}

func TestSafeFilename_CapsLongTitles(t *testing.T) {
	title := strings.Repeat("x", 500)
	got := SafeFilename(title, ".pdf")
	assert.Equal(t, maxFilenameStem+len(".pdf"), len(got))
	assert.True(t, strings.HasSuffix(got, ".pdf"))
}
