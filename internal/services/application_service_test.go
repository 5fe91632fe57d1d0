package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rentora/applications-service/internal/dtos"
	"github.com/rentora/applications-service/internal/models"
	"github.com/rentora/applications-service/internal/utils"
)

func createDraft(t *testing.T, env *testEnv) *dtos.ApplicationDTO {
	t.Helper()
	dto, err := env.svc.CreateApplication(context.Background(), env.applicant.ID, dtos.CreateApplicationRequest{
		PropertyID: env.property.ID.String(),
	})
	require.NoError(t, err)
	return dto
}

// completeDraft fills in everything submission requires.
func completeDraft(t *testing.T, env *testEnv, dto *dtos.ApplicationDTO) *dtos.ApplicationDTO {
	t.Helper()
	updated, err := env.svc.UpdateDraft(context.Background(), env.applicant.ID, dto.ID, dtos.DraftUpdateRequest{
		PersonalInfo: &dtos.PersonalInfoDTO{
			FirstName: "Dana", LastName: "Whitfield", Email: "tenant@example.com", SSN: "123456789",
		},
		Employment: &dtos.EmploymentDTO{
			Status: "employed", Employer: "Crestline Logistics", MonthlyIncome: 6000, Tenure: "2 years",
		},
		RentalHistory: &dtos.RentalHistoryDTO{CurrentAddress: "44 Elm St, Austin TX", Tenure: "3 years"},
		Documents: []dtos.DocumentDTO{
			{Kind: models.DocumentGovernmentID, FileURL: "https://files.test/id.pdf"},
			{Kind: models.DocumentProofOfIncome, FileURL: "https://files.test/income.pdf"},
			{Kind: models.DocumentReferenceLetter, FileURL: "https://files.test/ref.pdf"},
		},
		Legal: &dtos.LegalAcceptanceDTO{TermsAccepted: true, CreditCheckConsent: true},
		Federal: &dtos.FederalDisclosuresDTO{
			FairHousingAck: true, LeadPaintAck: true, FCRAAuthorization: true, ESIGNConsentAck: true,
		},
		StateDisclosures: []dtos.StateDisclosureAckDTO{
			{Code: "esign_consent", Acknowledged: true},
			{Code: "tx_parking", Acknowledged: true},
			{Code: "tx_security_device", Acknowledged: true},
		},
	})
	require.NoError(t, err)
	return updated
}

func submit(t *testing.T, env *testEnv, dto *dtos.ApplicationDTO) *dtos.ApplicationDTO {
	t.Helper()
	out, err := env.svc.Transition(context.Background(), env.applicant.ID, dto.ID, dtos.TransitionRequest{
		To: string(models.StatusSubmitted), RowVersion: dto.RowVersion,
	})
	require.NoError(t, err)
	return out
}

func TestCreateApplicationSnapshotsProperty(t *testing.T) {
	env := newTestEnv()
	dto := createDraft(t, env)

	require.Equal(t, string(models.StatusDraft), dto.Status)
	require.Equal(t, env.property.ID, dto.Property.PropertyID)
	require.Equal(t, env.owner.ID, dto.Property.OwnerID)
	require.Equal(t, 2100.0, dto.Property.MonthlyRent)
	require.Len(t, dto.Documents, 3)
	require.Equal(t, string(models.LeaseUnsigned), dto.LeaseStatus)
	require.EqualValues(t, 1, dto.RowVersion)
}

func TestCreateApplicationRejectsDuplicateActive(t *testing.T) {
	env := newTestEnv()
	createDraft(t, env)

	_, err := env.svc.CreateApplication(context.Background(), env.applicant.ID, dtos.CreateApplicationRequest{
		PropertyID: env.property.ID.String(),
	})
	require.ErrorIs(t, err, utils.ErrDuplicateResource)
}

func TestCreateApplicationAllowedAfterTerminal(t *testing.T) {
	env := newTestEnv()
	dto := createDraft(t, env)

	_, err := env.svc.Transition(context.Background(), env.applicant.ID, dto.ID, dtos.TransitionRequest{
		To: string(models.StatusWithdrawn), RowVersion: dto.RowVersion,
	})
	require.NoError(t, err)

	// A withdrawn application no longer blocks a fresh one.
	_, err = env.svc.CreateApplication(context.Background(), env.applicant.ID, dtos.CreateApplicationRequest{
		PropertyID: env.property.ID.String(),
	})
	require.NoError(t, err)
}

func TestCreateApplicationOwnerCannotApplyToOwnProperty(t *testing.T) {
	env := newTestEnv()
	_, err := env.svc.CreateApplication(context.Background(), env.owner.ID, dtos.CreateApplicationRequest{
		PropertyID: env.property.ID.String(),
	})
	require.ErrorIs(t, err, utils.ErrRoleNotAuthorized)
}

func TestUpdateDraftOnlyByApplicant(t *testing.T) {
	env := newTestEnv()
	dto := createDraft(t, env)

	_, err := env.svc.UpdateDraft(context.Background(), env.stranger.ID, dto.ID, dtos.DraftUpdateRequest{
		Employment: &dtos.EmploymentDTO{Status: "employed", MonthlyIncome: 1},
	})
	require.ErrorIs(t, err, utils.ErrRoleNotAuthorized)
}

func TestUpdateDraftOnlyWhileDraft(t *testing.T) {
	env := newTestEnv()
	dto := completeDraft(t, env, createDraft(t, env))
	dto = submit(t, env, dto)

	_, err := env.svc.UpdateDraft(context.Background(), env.applicant.ID, dto.ID, dtos.DraftUpdateRequest{
		Employment: &dtos.EmploymentDTO{Status: "employed", MonthlyIncome: 9999},
	})
	require.ErrorIs(t, err, utils.ErrInvalidTransition)
}

func TestUpdateDraftNeverClearsSSN(t *testing.T) {
	env := newTestEnv()
	dto := completeDraft(t, env, createDraft(t, env))

	// A follow-up autosave without the SSN field keeps the stored one.
	_, err := env.svc.UpdateDraft(context.Background(), env.applicant.ID, dto.ID, dtos.DraftUpdateRequest{
		PersonalInfo: &dtos.PersonalInfoDTO{FirstName: "Dana", LastName: "Whitfield", Email: "tenant@example.com"},
	})
	require.NoError(t, err)

	stored, err := env.appRepo.GetByID(context.Background(), dto.ID)
	require.NoError(t, err)
	require.Equal(t, "123456789", stored.PersonalInfo.SSN)
}

func TestSubmissionRequiresCompleteness(t *testing.T) {
	env := newTestEnv()
	dto := createDraft(t, env)

	_, err := env.svc.Transition(context.Background(), env.applicant.ID, dto.ID, dtos.TransitionRequest{
		To: string(models.StatusSubmitted), RowVersion: dto.RowVersion,
	})
	require.ErrorIs(t, err, utils.ErrValidation)

	var missing *utils.MissingFieldError
	require.ErrorAs(t, err, &missing)
}

func TestSubmitRecordsHistoryAndNotifies(t *testing.T) {
	env := newTestEnv()
	dto := submit(t, env, completeDraft(t, env, createDraft(t, env)))

	require.Equal(t, string(models.StatusSubmitted), dto.Status)
	require.NotNil(t, dto.SubmittedAt)
	require.Len(t, dto.StatusHistory, 1)
	require.Equal(t, models.StatusDraft, dto.StatusHistory[0].From)
	require.Equal(t, models.StatusSubmitted, dto.StatusHistory[0].To)
	require.Equal(t, env.applicant.ID, dto.StatusHistory[0].ChangedBy)

	require.Len(t, env.notifier.statusChanges, 1)
	require.Equal(t, 1, env.notifier.newApplications)
	require.Contains(t, env.audit.actions(), models.AuditStatusChange)

	// Submission renders the disclosure packet exactly once.
	require.NotEmpty(t, dto.DisclosurePDFURL)
	require.Equal(t, 1, env.docs.disclosureCalls)
}

func TestSubmissionRequiresStateDisclosures(t *testing.T) {
	env := newTestEnv()
	dto := completeDraft(t, env, createDraft(t, env))

	_, err := env.svc.UpdateDraft(context.Background(), env.applicant.ID, dto.ID, dtos.DraftUpdateRequest{
		StateDisclosures: []dtos.StateDisclosureAckDTO{
			{Code: "esign_consent", Acknowledged: true},
			{Code: "tx_parking", Acknowledged: true},
			// tx_security_device left unacknowledged
			{Code: "tx_security_device", Acknowledged: false},
		},
	})
	require.NoError(t, err)

	fresh, err := env.svc.GetApplication(context.Background(), env.applicant.ID, dto.ID)
	require.NoError(t, err)

	_, err = env.svc.Transition(context.Background(), env.applicant.ID, dto.ID, dtos.TransitionRequest{
		To: string(models.StatusSubmitted), RowVersion: fresh.RowVersion,
	})
	require.ErrorIs(t, err, utils.ErrValidation)
}

func TestTransitionStaleRowVersion(t *testing.T) {
	env := newTestEnv()
	dto := completeDraft(t, env, createDraft(t, env))

	_, err := env.svc.Transition(context.Background(), env.applicant.ID, dto.ID, dtos.TransitionRequest{
		To: string(models.StatusSubmitted), RowVersion: dto.RowVersion - 1,
	})
	require.ErrorIs(t, err, utils.ErrRowVersionConflict)
}

func TestSubmissionRequiresPropertySnapshot(t *testing.T) {
	env := newTestEnv()
	dto := completeDraft(t, env, createDraft(t, env))

	env.appRepo.mu.Lock()
	env.appRepo.apps[dto.ID].Property = models.PropertySnapshot{}
	env.appRepo.mu.Unlock()

	_, err := env.svc.Transition(context.Background(), env.applicant.ID, dto.ID, dtos.TransitionRequest{
		To: string(models.StatusSubmitted), RowVersion: dto.RowVersion,
	})
	require.ErrorIs(t, err, utils.ErrValidation)

	var missing *utils.MissingFieldError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, "property_snapshot", missing.Field)
}

func TestReviewerMovesToUnderReview(t *testing.T) {
	env := newTestEnv()
	dto := submit(t, env, completeDraft(t, env, createDraft(t, env)))

	out, err := env.svc.Transition(context.Background(), env.owner.ID, dto.ID, dtos.TransitionRequest{
		To: string(models.StatusUnderReview), RowVersion: dto.RowVersion,
	})
	require.NoError(t, err)
	require.Equal(t, string(models.StatusUnderReview), out.Status)
}

func TestGenericTransitionCannotEnterPaymentRequested(t *testing.T) {
	env := newTestEnv()
	dto := submit(t, env, completeDraft(t, env, createDraft(t, env)))

	// payment_requested only exists with a request attached; the status
	// machine endpoint must not reach it without one.
	_, err := env.svc.Transition(context.Background(), env.owner.ID, dto.ID, dtos.TransitionRequest{
		To: string(models.StatusPaymentRequested), RowVersion: dto.RowVersion,
	})
	require.ErrorIs(t, err, utils.ErrValidation)

	stored, err := env.appRepo.GetByID(context.Background(), dto.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusSubmitted, stored.Status)
	require.Nil(t, stored.Payment)
}

func TestStrangerCannotReview(t *testing.T) {
	env := newTestEnv()
	dto := submit(t, env, completeDraft(t, env, createDraft(t, env)))

	_, err := env.svc.Transition(context.Background(), env.stranger.ID, dto.ID, dtos.TransitionRequest{
		To: string(models.StatusUnderReview), RowVersion: dto.RowVersion,
	})
	require.ErrorIs(t, err, utils.ErrRoleNotAuthorized)
}

func TestRejectionRequiresReason(t *testing.T) {
	env := newTestEnv()
	dto := submit(t, env, completeDraft(t, env, createDraft(t, env)))
	dto, err := env.svc.Transition(context.Background(), env.owner.ID, dto.ID, dtos.TransitionRequest{
		To: string(models.StatusUnderReview), RowVersion: dto.RowVersion,
	})
	require.NoError(t, err)

	_, err = env.svc.Transition(context.Background(), env.owner.ID, dto.ID, dtos.TransitionRequest{
		To: string(models.StatusRejected), RowVersion: dto.RowVersion,
	})
	require.ErrorIs(t, err, utils.ErrValidation)

	out, err := env.svc.Transition(context.Background(), env.owner.ID, dto.ID, dtos.TransitionRequest{
		To:         string(models.StatusRejected),
		Category:   "insufficient_income",
		Reason:     "income below screening threshold",
		RowVersion: dto.RowVersion,
	})
	require.NoError(t, err)
	require.Equal(t, string(models.StatusRejected), out.Status)
	require.Equal(t, "insufficient_income", out.RejectionCategory)
	require.Equal(t, "income below screening threshold", out.RejectionReason)
}

func TestApprovalRequiresScoreAndGeneratesLease(t *testing.T) {
	env := newTestEnv()
	dto := submit(t, env, completeDraft(t, env, createDraft(t, env)))
	dto, err := env.svc.Transition(context.Background(), env.owner.ID, dto.ID, dtos.TransitionRequest{
		To: string(models.StatusUnderReview), RowVersion: dto.RowVersion,
	})
	require.NoError(t, err)

	_, err = env.svc.Transition(context.Background(), env.owner.ID, dto.ID, dtos.TransitionRequest{
		To: string(models.StatusApproved), RowVersion: dto.RowVersion,
	})
	require.ErrorIs(t, err, utils.ErrValidation, "approval without a score must fail")

	_, err = env.svc.ScoreApplication(context.Background(), env.owner.ID, dto.ID)
	require.NoError(t, err)

	fresh, err := env.svc.GetApplication(context.Background(), env.owner.ID, dto.ID)
	require.NoError(t, err)

	out, err := env.svc.Transition(context.Background(), env.owner.ID, dto.ID, dtos.TransitionRequest{
		To: string(models.StatusApproved), RowVersion: fresh.RowVersion,
	})
	require.NoError(t, err)
	require.Equal(t, string(models.StatusApproved), out.Status)
	require.NotEmpty(t, out.LeasePDFURL)
	require.Equal(t, 1, env.docs.leaseCalls)
}

func TestNotifierFailureDoesNotRollBackTransition(t *testing.T) {
	env := newTestEnv()
	env.notifier.err = context.DeadlineExceeded

	dto := submit(t, env, completeDraft(t, env, createDraft(t, env)))
	require.Equal(t, string(models.StatusSubmitted), dto.Status)

	stored, err := env.appRepo.GetByID(context.Background(), dto.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusSubmitted, stored.Status)
}

func TestAuditFailureDoesNotRollBackTransition(t *testing.T) {
	env := newTestEnv()
	env.audit.err = context.DeadlineExceeded

	dto := submit(t, env, completeDraft(t, env, createDraft(t, env)))
	require.Equal(t, string(models.StatusSubmitted), dto.Status)
}

func TestScoreApplicationPersistsBreakdown(t *testing.T) {
	env := newTestEnv()
	dto := submit(t, env, completeDraft(t, env, createDraft(t, env)))

	_, err := env.svc.VerifyDocument(context.Background(), env.manager.ID, dto.ID, models.DocumentGovernmentID)
	require.NoError(t, err)
	_, err = env.svc.VerifyDocument(context.Background(), env.manager.ID, dto.ID, models.DocumentProofOfIncome)
	require.NoError(t, err)

	b, err := env.svc.ScoreApplication(context.Background(), env.manager.ID, dto.ID)
	require.NoError(t, err)
	require.Equal(t, 100, b.Total)

	stored, err := env.appRepo.GetByID(context.Background(), dto.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Score)
	require.Equal(t, 100, stored.Score.Total)
	require.Equal(t, 1, env.notifier.scoringDone)
}

func TestScoreApplicationApplicantForbidden(t *testing.T) {
	env := newTestEnv()
	dto := submit(t, env, completeDraft(t, env, createDraft(t, env)))

	_, err := env.svc.ScoreApplication(context.Background(), env.applicant.ID, dto.ID)
	require.ErrorIs(t, err, utils.ErrRoleNotAuthorized)
}

func TestScoreApplicationDraftForbidden(t *testing.T) {
	env := newTestEnv()
	dto := createDraft(t, env)

	_, err := env.svc.ScoreApplication(context.Background(), env.owner.ID, dto.ID)
	require.ErrorIs(t, err, utils.ErrInvalidTransition)
}

func TestVerifyDocument(t *testing.T) {
	env := newTestEnv()
	dto := submit(t, env, completeDraft(t, env, createDraft(t, env)))

	out, err := env.svc.VerifyDocument(context.Background(), env.owner.ID, dto.ID, models.DocumentGovernmentID)
	require.NoError(t, err)

	var verified bool
	for _, d := range out.Documents {
		if d.Kind == models.DocumentGovernmentID {
			verified = d.Verified
		}
	}
	require.True(t, verified)
}

func TestGetApplicationVisibility(t *testing.T) {
	env := newTestEnv()
	dto := createDraft(t, env)

	_, err := env.svc.GetApplication(context.Background(), env.applicant.ID, dto.ID)
	require.NoError(t, err)
	_, err = env.svc.GetApplication(context.Background(), env.owner.ID, dto.ID)
	require.NoError(t, err)
	_, err = env.svc.GetApplication(context.Background(), env.stranger.ID, dto.ID)
	require.ErrorIs(t, err, utils.ErrRoleNotAuthorized)
}

func TestResponsesNeverCarrySSN(t *testing.T) {
	env := newTestEnv()
	dto := completeDraft(t, env, createDraft(t, env))
	require.Empty(t, dto.PersonalInfo.SSN)
	require.True(t, dto.PersonalInfo.HasSSN)
}
