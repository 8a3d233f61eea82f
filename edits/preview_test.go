package edits

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreview_SequentialApplication(t *testing.T) {
	text := "grey sky\nblue sea\n"
	res := Preview(text, []EditDirective{
		{Find: "grey", Replace: "ash"},
		{Find: "ash", Replace: "dust"},
		{Find: "green", Replace: "red"},
	})

	assert.Equal(t, []int{1, 1, 0}, res.Matches)
	assert.Equal(t, "dust sky\nblue sea\n", res.After)
	assert.True(t, res.Changed)
	assert.Contains(t, res.Lines, DiffLine{Type: LineRemoved, Text: "grey sky", OldLine: 1})
	assert.Contains(t, res.Lines, DiffLine{Type: LineAdded, Text: "dust sky", NewLine: 1})
	assert.Len(t, res.Lines, 2)
}

func TestPreview_NoMatches(t *testing.T) {
	res := Preview("The tower stood.", []EditDirective{{Find: "castle", Replace: "keep"}})
	assert.Equal(t, []int{0}, res.Matches)
	assert.False(t, res.Changed)
	assert.Empty(t, res.Lines)
	assert.Equal(t, "The tower stood.", res.After)
}
