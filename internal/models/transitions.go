package models

// transitions is the fixed content lifecycle graph. StatusArchived is the
// only terminal status and is reachable from everywhere, standing in for
// deletion.
var transitions = map[ContentStatus][]ContentStatus{
	StatusDraft:            {StatusPendingReview, StatusArchived},
	StatusPendingReview:    {StatusApproved, StatusRejected, StatusChangesRequested, StatusArchived},
	StatusChangesRequested: {StatusDraft, StatusPendingReview, StatusArchived},
	StatusApproved:         {StatusScheduled, StatusArchived, StatusCancelled},
	StatusRejected:         {StatusArchived},
	StatusScheduled:        {StatusPublished, StatusCancelled, StatusArchived},
	StatusPublished:        {StatusArchived},
	StatusCancelled:        {StatusArchived},
	StatusArchived:         {},
}

// CanTransition reports whether a content item may move from current to
// target. It consults the table only and has no side effects.
func CanTransition(current, target ContentStatus) bool {
	for _, allowed := range transitions[current] {
		if allowed == target {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the statuses reachable from current.
func AllowedTransitions(current ContentStatus) []ContentStatus {
	allowed := transitions[current]
	out := make([]ContentStatus, len(allowed))
	copy(out, allowed)
	return out
}
