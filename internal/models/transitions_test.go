package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct {
		from, to ContentStatus
	}{
		{StatusDraft, StatusPendingReview},
		{StatusDraft, StatusArchived},
		{StatusPendingReview, StatusApproved},
		{StatusPendingReview, StatusRejected},
		{StatusPendingReview, StatusChangesRequested},
		{StatusPendingReview, StatusArchived},
		{StatusChangesRequested, StatusDraft},
		{StatusChangesRequested, StatusPendingReview},
		{StatusChangesRequested, StatusArchived},
		{StatusApproved, StatusScheduled},
		{StatusApproved, StatusCancelled},
		{StatusApproved, StatusArchived},
		{StatusRejected, StatusArchived},
		{StatusScheduled, StatusPublished},
		{StatusScheduled, StatusCancelled},
		{StatusScheduled, StatusArchived},
		{StatusPublished, StatusArchived},
		{StatusCancelled, StatusArchived},
	}

	for _, tc := range allowed {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	denied := []struct {
		from, to ContentStatus
	}{
		{StatusDraft, StatusApproved},
		{StatusDraft, StatusPublished},
		{StatusDraft, StatusScheduled},
		{StatusPendingReview, StatusPublished},
		{StatusPendingReview, StatusDraft},
		{StatusApproved, StatusPublished},
		{StatusApproved, StatusDraft},
		{StatusRejected, StatusDraft},
		{StatusRejected, StatusPendingReview},
		{StatusScheduled, StatusApproved},
		{StatusPublished, StatusDraft},
		{StatusPublished, StatusScheduled},
		{StatusCancelled, StatusApproved},
		{StatusArchived, StatusDraft},
		{StatusArchived, StatusPublished},
	}

	for _, tc := range denied {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s should be denied", tc.from, tc.to)
	}
}

func TestArchivedIsTerminal(t *testing.T) {
	assert.Empty(t, AllowedTransitions(StatusArchived))
}

func TestArchivedReachableFromEverywhere(t *testing.T) {
	statuses := []ContentStatus{
		StatusDraft, StatusPendingReview, StatusApproved, StatusRejected,
		StatusChangesRequested, StatusScheduled, StatusPublished, StatusCancelled,
	}
	for _, from := range statuses {
		assert.True(t, CanTransition(from, StatusArchived), "%s -> archived", from)
	}
}

func TestCanTransitionNoSelfLoops(t *testing.T) {
	for from := range transitions {
		assert.False(t, CanTransition(from, from), "%s -> %s", from, from)
	}
}

func TestAllowedTransitionsReturnsCopy(t *testing.T) {
	first := AllowedTransitions(StatusDraft)
	first[0] = StatusPublished

	second := AllowedTransitions(StatusDraft)
	assert.Equal(t, StatusPendingReview, second[0])
}
