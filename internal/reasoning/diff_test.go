package reasoning

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiffSummary(t *testing.T) {
	oldText := "line one\nline two\nline three"
	newText := "line one\nline 2\nline three\nline four"

	assert.Equal(t, "Removed: line two\nAdded: line 2\nAdded: line four", DiffSummary(oldText, newText))
}

func TestDiffSummaryIdentical(t *testing.T) {
	assert.Equal(t, "", DiffSummary("same", "same"))
}

func TestDiffSummaryTruncates(t *testing.T) {
	oldText := "a\nb\nc\nd"
	newText := "w\nx\ny\nz"

	summary := DiffSummary(oldText, newText)
	assert.Equal(t, "Removed: a\nRemoved: b\nRemoved: c\nRemoved: d\nAdded: w\n...", summary)
}
