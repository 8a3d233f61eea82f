package edits

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_LastWinsDeduplication(t *testing.T) {
	out, rep := Validator{}.Validate([]EditDirective{
		{Find: "a", Replace: "1"},
		{Find: "a", Replace: "2"},
	})
	assert.Equal(t, []EditDirective{{Find: "a", Replace: "2"}}, out)
	assert.Equal(t, Report{Received: 2, Accepted: 1, Rejected: 1, Duplicates: 1}, rep)
}

func TestValidate_SurvivorKeepsLastPosition(t *testing.T) {
	out, _ := Validator{}.Validate([]EditDirective{
		{Find: "a", Replace: "1"},
		{Find: "b", Replace: "2"},
		{Find: "a", Replace: "3"},
	})
	assert.Equal(t, []EditDirective{{Find: "b", Replace: "2"}, {Find: "a", Replace: "3"}}, out)
}

func TestValidate_NeverAdmitsBlankFind(t *testing.T) {
	in := []EditDirective{
		{Find: "", Replace: "x", Source: SourceJSON},
		{Find: "   ", Replace: "x", Source: SourceJSON},
		{Find: "\t\n", Replace: "x", Source: SourceLines},
		{Find: "keep", Replace: "", Source: SourceJSON},
	}
	out, rep := Validator{}.Validate(in)
	require.Len(t, out, 1)
	assert.Equal(t, "keep", out[0].Find)
	assert.Equal(t, 3, rep.Empty)
	assert.Equal(t, 3, rep.Rejected)
	for _, d := range out {
		assert.NotEmpty(t, d.Find)
	}
}

func TestValidate_TrimsOnlyLineAndManualSources(t *testing.T) {
	out, _ := Validator{}.Validate([]EditDirective{
		{Find: "  grey  ", Replace: " ash ", Source: SourceLines},
		{Find: " sky", Replace: "sea ", Source: SourceJSON},
		{Find: " moon ", Replace: " sun ", Source: SourceManual},
	})
	assert.Equal(t, []EditDirective{
		{Find: "grey", Replace: "ash", Source: SourceLines},
		{Find: " sky", Replace: "sea ", Source: SourceJSON},
		{Find: "moon", Replace: "sun", Source: SourceManual},
	}, out)
}

func TestValidate_TrimmedFindsDeduplicate(t *testing.T) {
	out, rep := Validator{}.Validate([]EditDirective{
		{Find: "grey ", Replace: "ash", Source: SourceLines},
		{Find: "grey", Replace: "silver", Source: SourceLines},
	})
	assert.Equal(t, []EditDirective{{Find: "grey", Replace: "silver", Source: SourceLines}}, out)
	assert.Equal(t, 1, rep.Duplicates)
}

func TestValidate_RequireApproval(t *testing.T) {
	v := Validator{RequireApproval: true}
	out, rep := v.Validate([]EditDirective{
		{Find: "a", Replace: "1", Approved: true},
		{Find: "b", Replace: "2"},
		{Find: "c", Replace: "3", Approved: true},
	})
	assert.Equal(t, []EditDirective{
		{Find: "a", Replace: "1", Approved: true},
		{Find: "c", Replace: "3", Approved: true},
	}, out)
	assert.Equal(t, Report{Received: 3, Accepted: 2, Rejected: 1, Unapproved: 1}, rep)
}

func TestValidate_UnapprovedDuplicateDoesNotShadowApproved(t *testing.T) {
	out, _ := Validator{RequireApproval: true}.Validate([]EditDirective{
		{Find: "a", Replace: "1", Approved: true},
		{Find: "a", Replace: "2"},
	})
	assert.Equal(t, []EditDirective{{Find: "a", Replace: "1", Approved: true}}, out)
}

func TestNewEditDirective(t *testing.T) {
	d, err := NewEditDirective("  grey sky ", " ash ", SourceManual)
	require.NoError(t, err)
	assert.Equal(t, EditDirective{Find: "grey sky", Replace: "ash", Source: SourceManual}, d)

	d, err = NewEditDirective(" sky", "", SourceJSON)
	require.NoError(t, err)
	assert.Equal(t, " sky", d.Find)

	_, err = NewEditDirective("  ", "x", SourceLines)
	assert.ErrorIs(t, err, ErrEmptyFind)
}

func TestEditBatch_Approvals(t *testing.T) {
	b := &EditBatch{Directives: []EditDirective{{Find: "a"}, {Find: "b"}}}
	require.NoError(t, b.SetApproved(1, true))
	assert.False(t, b.Directives[0].Approved)
	assert.True(t, b.Directives[1].Approved)
	assert.ErrorIs(t, b.SetApproved(2, true), ErrNoSuchDirective)

	b.SetAllApproved(true)
	assert.True(t, b.Directives[0].Approved)

	b.Clear()
	assert.Equal(t, 0, b.Len())

	var nilBatch *EditBatch
	assert.Equal(t, 0, nilBatch.Len())
}
