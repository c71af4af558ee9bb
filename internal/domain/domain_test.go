package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from ResourceStatus
		to   ResourceStatus
		want bool
	}{
		{"pending to approved", StatusPending, StatusApproved, true},
		{"pending to rejected", StatusPending, StatusRejected, true},
		{"approved to archived", StatusApproved, StatusArchived, true},
		{"pending to archived", StatusPending, StatusArchived, false},
		{"approved to rejected", StatusApproved, StatusRejected, false},
		{"approved to pending", StatusApproved, StatusPending, false},
		{"rejected is terminal", StatusRejected, StatusApproved, false},
		{"archived is terminal", StatusArchived, StatusApproved, false},
		{"no self transition", StatusPending, StatusPending, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestNormalizeTagName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Go", "go"},
		{"  Machine   Learning  ", "machine learning"},
		{"ALREADY lower", "already lower"},
		{"   ", ""},
		{"", ""},
		{"rust\t lang", "rust lang"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeTagName(tt.in), "input %q", tt.in)
	}
}

func TestJobStatusTerminal(t *testing.T) {
	assert.False(t, JobQueued.Terminal())
	assert.False(t, JobProcessing.Terminal())
	assert.True(t, JobCompleted.Terminal())
	assert.True(t, JobFailed.Terminal())
	assert.True(t, JobCancelled.Terminal())
}

func TestItemStatusTerminal(t *testing.T) {
	assert.False(t, ItemQueued.Terminal())
	assert.False(t, ItemProcessing.Terminal())
	assert.True(t, ItemSucceeded.Terminal())
	assert.True(t, ItemFailed.Terminal())
	assert.True(t, ItemSkipped.Terminal())
}

func TestValidEnrichFilter(t *testing.T) {
	assert.True(t, ValidEnrichFilter(FilterUnenriched))
	assert.True(t, ValidEnrichFilter(FilterAll))
	assert.False(t, ValidEnrichFilter("rejected"))
	assert.False(t, ValidEnrichFilter(""))
}

func TestRoleModerator(t *testing.T) {
	assert.False(t, RoleUser.Moderator())
	assert.True(t, RoleModerator.Moderator())
	assert.True(t, RoleAdmin.Moderator())
}

func TestResourceEnriched(t *testing.T) {
	r := &Resource{Metadata: Metadata{}}
	assert.False(t, r.Enriched())
	r.Metadata["ai_summary"] = "short"
	assert.True(t, r.Enriched())
}
