package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rentora/applications-service/internal/dtos"
	"github.com/rentora/applications-service/internal/models"
	"github.com/rentora/applications-service/internal/utils"
)

// The payment sub-protocol is a one-way ratchet: request -> initiate ->
// complete -> verify. Every step re-checks its precondition inside a row
// lock, so concurrent calls cannot double-charge or skip a rung.

// RequestPayment attaches the screening-fee request and moves the application
// into payment_requested. Reviewer only, at most one request per application.
func (s *ApplicationService) RequestPayment(ctx context.Context, actorID, appID uuid.UUID, req dtos.RequestPaymentRequest) (*dtos.ApplicationDTO, error) {
	actor, app, err := s.loadActorAndApplication(ctx, actorID, appID)
	if err != nil {
		return nil, err
	}
	if !s.auth.CanReview(actor, app) {
		return nil, utils.ErrRoleNotAuthorized
	}
	if app.Payment != nil {
		return nil, utils.ErrDuplicatePaymentRequest
	}
	if err := ValidateTransition(app.Status, models.StatusPaymentRequested, actor.Role, false); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	pr := models.PaymentRequest{
		ID:          uuid.New(),
		Amount:      req.Amount,
		Purpose:     req.Purpose,
		Message:     req.Message,
		Status:      models.PaymentPending,
		RequestedBy: actor.ID,
		RequestedAt: now,
	}
	change := models.StatusChange{
		From:      app.Status,
		To:        models.StatusPaymentRequested,
		ChangedBy: actor.ID,
		Role:      actor.Role,
		Reason:    req.Purpose,
		ChangedAt: now,
	}

	updated, err := s.appRepo.AttachPaymentRequestAtomic(ctx, appID, req.RowVersion, pr, change)
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actor, models.AuditPaymentRequest, appID, models.TargetApplication, map[string]interface{}{
		"amount":  req.Amount,
		"purpose": req.Purpose,
	})
	s.notifyPaymentRequested(ctx, updated, req.Amount, req.Purpose)

	return dtos.ToApplicationDTO(updated), nil
}

// InitiatePayment assigns the write-once payment intent. Applicant only.
// The intent is minted deterministically from the payment request ID, and
// any initiation after the first is rejected as a duplicate.
func (s *ApplicationService) InitiatePayment(ctx context.Context, actorID, appID uuid.UUID) (*dtos.ApplicationDTO, error) {
	actor, app, err := s.loadActorAndApplication(ctx, actorID, appID)
	if err != nil {
		return nil, err
	}
	if actor.ID != app.ApplicantID {
		return nil, utils.ErrRoleNotAuthorized
	}
	if app.Payment == nil {
		return nil, utils.ErrNotFound
	}

	intentID := "pi_" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(app.Payment.ID.String())).String()

	updated, err := s.appRepo.SetPaymentIntentAtomic(ctx, appID, intentID)
	if err != nil {
		return nil, err
	}
	return dtos.ToApplicationDTO(updated), nil
}

// CompletePayment records a successful charge for the given intent and moves
// the application into payment_completed. The repository rejects intents that
// do not match and requests that are not PENDING, making retries idempotent
// failures rather than double completions.
func (s *ApplicationService) CompletePayment(ctx context.Context, actorID, appID uuid.UUID, req dtos.CompletePaymentRequest) (*dtos.ApplicationDTO, error) {
	actor, app, err := s.loadActorAndApplication(ctx, actorID, appID)
	if err != nil {
		return nil, err
	}
	if actor.ID != app.ApplicantID {
		return nil, utils.ErrRoleNotAuthorized
	}

	change := models.StatusChange{
		From:      models.StatusPaymentRequested,
		To:        models.StatusPaymentCompleted,
		ChangedBy: actor.ID,
		Role:      actor.Role,
		ChangedAt: time.Now().UTC(),
	}

	updated, err := s.appRepo.CompletePaymentAtomic(ctx, appID, req.PaymentIntentID, change)
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actor, models.AuditPaymentComplete, appID, models.TargetApplication, map[string]interface{}{
		"payment_intent_id": req.PaymentIntentID,
	})

	return dtos.ToApplicationDTO(updated), nil
}

// VerifyPayment is the reviewer's acknowledgement of the completed charge.
// It is the only exit from payment_completed and always lands on
// under_review.
func (s *ApplicationService) VerifyPayment(ctx context.Context, actorID, appID uuid.UUID, req dtos.VerifyPaymentRequest) (*dtos.ApplicationDTO, error) {
	actor, app, err := s.loadActorAndApplication(ctx, actorID, appID)
	if err != nil {
		return nil, err
	}
	if !s.auth.CanReview(actor, app) {
		return nil, utils.ErrRoleNotAuthorized
	}

	change := models.StatusChange{
		From:      models.StatusPaymentCompleted,
		To:        models.StatusUnderReview,
		ChangedBy: actor.ID,
		Role:      actor.Role,
		ChangedAt: time.Now().UTC(),
	}

	updated, err := s.appRepo.VerifyPaymentAtomic(ctx, appID, req.RowVersion, change)
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actor, models.AuditPaymentVerify, appID, models.TargetApplication, nil)
	s.notifyApplicant(ctx, updated, change)

	return dtos.ToApplicationDTO(updated), nil
}

func (s *ApplicationService) notifyPaymentRequested(ctx context.Context, app *models.Application, amount float64, purpose string) {
	applicant, err := s.auth.ResolveActor(ctx, app.ApplicantID)
	if err != nil {
		utils.Logger.WithError(err).Warnf("Could not resolve applicant %s for payment notification", app.ApplicantID)
		return
	}
	if err := s.notifier.NotifyPaymentRequested(applicant, app, amount, purpose); err != nil {
		utils.Logger.WithError(err).Warnf("Failed to send payment request notification to %s", applicant.ID)
	}
}
