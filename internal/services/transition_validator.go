package services

import (
	"github.com/rentora/applications-service/internal/models"
	"github.com/rentora/applications-service/internal/utils"
)

// allowedTransitions is the full status machine. Absent pairs are illegal,
// terminal statuses have no outgoing edges, and payment_completed is reachable
// only through the payment coordinator, never through this table.
var allowedTransitions = map[models.ApplicationStatus][]models.ApplicationStatus{
	models.StatusDraft: {
		models.StatusSubmitted,
		models.StatusWithdrawn,
	},
	models.StatusSubmitted: {
		models.StatusUnderReview,
		models.StatusWithdrawn,
		models.StatusPaymentRequested,
	},
	models.StatusUnderReview: {
		models.StatusApproved,
		models.StatusRejected,
		models.StatusWithdrawn,
		models.StatusPaymentRequested,
	},
	models.StatusPaymentRequested: {
		models.StatusSubmitted,
		models.StatusUnderReview,
		models.StatusWithdrawn,
	},
	models.StatusApproved:  {},
	models.StatusRejected:  {},
	models.StatusWithdrawn: {},
}

// applicantTargets are the only statuses an applicant may move their own
// application into through the public transition endpoint.
var applicantTargets = map[models.ApplicationStatus]bool{
	models.StatusWithdrawn: true,
	models.StatusSubmitted: true,
}

// reviewerTargets are the statuses owners, managers and admins may set.
var reviewerTargets = map[models.ApplicationStatus]bool{
	models.StatusApproved:         true,
	models.StatusRejected:         true,
	models.StatusUnderReview:      true,
	models.StatusPaymentRequested: true,
}

// ValidateTransition checks the status pair against the machine and the
// actor's role. It never consults the database.
func ValidateTransition(from, to models.ApplicationStatus, role models.Role, isApplicant bool) error {
	targets, ok := allowedTransitions[from]
	if !ok {
		return &utils.TransitionError{From: string(from), To: string(to)}
	}

	legal := false
	for _, t := range targets {
		if t == to {
			legal = true
			break
		}
	}
	if !legal {
		return &utils.TransitionError{From: string(from), To: string(to)}
	}

	if isApplicant {
		if !applicantTargets[to] {
			return utils.ErrRoleNotAuthorized
		}
		return nil
	}
	if role.IsReviewer() {
		if !reviewerTargets[to] {
			return utils.ErrRoleNotAuthorized
		}
		return nil
	}
	return utils.ErrRoleNotAuthorized
}
