package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rentora/applications-service/internal/models"
	"github.com/rentora/applications-service/internal/utils"
)

func TestValidateTransitionApplicantPaths(t *testing.T) {
	// Applicants submit and withdraw their own applications.
	require.NoError(t, ValidateTransition(models.StatusDraft, models.StatusSubmitted, models.RoleTenant, true))
	require.NoError(t, ValidateTransition(models.StatusDraft, models.StatusWithdrawn, models.RoleTenant, true))
	require.NoError(t, ValidateTransition(models.StatusSubmitted, models.StatusWithdrawn, models.RoleTenant, true))
	require.NoError(t, ValidateTransition(models.StatusUnderReview, models.StatusWithdrawn, models.RoleTenant, true))
	require.NoError(t, ValidateTransition(models.StatusPaymentRequested, models.StatusWithdrawn, models.RoleTenant, true))
	require.NoError(t, ValidateTransition(models.StatusPaymentRequested, models.StatusSubmitted, models.RoleTenant, true))

	// Applicants never decide the outcome.
	err := ValidateTransition(models.StatusUnderReview, models.StatusApproved, models.RoleTenant, true)
	require.ErrorIs(t, err, utils.ErrRoleNotAuthorized)
	err = ValidateTransition(models.StatusUnderReview, models.StatusRejected, models.RoleTenant, true)
	require.ErrorIs(t, err, utils.ErrRoleNotAuthorized)
	err = ValidateTransition(models.StatusSubmitted, models.StatusUnderReview, models.RoleTenant, true)
	require.ErrorIs(t, err, utils.ErrRoleNotAuthorized)
}

func TestValidateTransitionReviewerPaths(t *testing.T) {
	for _, role := range []models.Role{models.RoleOwner, models.RoleManager, models.RoleAdmin} {
		require.NoError(t, ValidateTransition(models.StatusSubmitted, models.StatusUnderReview, role, false))
		require.NoError(t, ValidateTransition(models.StatusUnderReview, models.StatusApproved, role, false))
		require.NoError(t, ValidateTransition(models.StatusUnderReview, models.StatusRejected, role, false))
		require.NoError(t, ValidateTransition(models.StatusSubmitted, models.StatusPaymentRequested, role, false))
		require.NoError(t, ValidateTransition(models.StatusUnderReview, models.StatusPaymentRequested, role, false))
		require.NoError(t, ValidateTransition(models.StatusPaymentRequested, models.StatusUnderReview, role, false))
	}

	// Reviewers cannot withdraw on the applicant's behalf.
	err := ValidateTransition(models.StatusSubmitted, models.StatusWithdrawn, models.RoleOwner, false)
	require.ErrorIs(t, err, utils.ErrRoleNotAuthorized)
}

func TestValidateTransitionSubmittedNeverBackToDraft(t *testing.T) {
	for _, role := range []models.Role{models.RoleTenant, models.RoleOwner, models.RoleManager, models.RoleAdmin} {
		for _, isApplicant := range []bool{true, false} {
			err := ValidateTransition(models.StatusSubmitted, models.StatusDraft, role, isApplicant)
			require.ErrorIs(t, err, utils.ErrInvalidTransition,
				"submitted->draft must stay illegal for role %s (applicant=%v)", role, isApplicant)
		}
	}
}

func TestValidateTransitionTerminalStatesAreClosed(t *testing.T) {
	terminals := []models.ApplicationStatus{models.StatusApproved, models.StatusRejected, models.StatusWithdrawn}
	targets := []models.ApplicationStatus{
		models.StatusDraft, models.StatusSubmitted, models.StatusUnderReview,
		models.StatusPaymentRequested, models.StatusApproved, models.StatusRejected, models.StatusWithdrawn,
	}
	for _, from := range terminals {
		for _, to := range targets {
			err := ValidateTransition(from, to, models.RoleAdmin, false)
			require.ErrorIs(t, err, utils.ErrInvalidTransition, "%s -> %s must be illegal", from, to)
		}
	}
}

func TestValidateTransitionExhaustiveIllegalPairs(t *testing.T) {
	legal := map[[2]models.ApplicationStatus]bool{}
	for from, tos := range allowedTransitions {
		for _, to := range tos {
			legal[[2]models.ApplicationStatus{from, to}] = true
		}
	}

	all := []models.ApplicationStatus{
		models.StatusDraft, models.StatusSubmitted, models.StatusUnderReview,
		models.StatusPaymentRequested, models.StatusApproved, models.StatusRejected, models.StatusWithdrawn,
	}
	for _, from := range all {
		for _, to := range all {
			if legal[[2]models.ApplicationStatus{from, to}] {
				continue
			}
			err := ValidateTransition(from, to, models.RoleAdmin, false)
			require.Error(t, err, "%s -> %s must be rejected", from, to)
			var te *utils.TransitionError
			require.True(t, errors.As(err, &te))
			require.Equal(t, string(from), te.From)
		}
	}
}

func TestValidateTransitionPaymentCompletedUnreachableViaTable(t *testing.T) {
	all := []models.ApplicationStatus{
		models.StatusDraft, models.StatusSubmitted, models.StatusUnderReview, models.StatusPaymentRequested,
	}
	for _, from := range all {
		err := ValidateTransition(from, models.StatusPaymentCompleted, models.RoleAdmin, false)
		require.Error(t, err, "%s -> payment_completed must not be reachable through the table", from)
	}
}

func TestValidateTransitionUnknownRole(t *testing.T) {
	err := ValidateTransition(models.StatusSubmitted, models.StatusUnderReview, models.Role("visitor"), false)
	require.ErrorIs(t, err, utils.ErrRoleNotAuthorized)
}
