package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rentora/applications-service/internal/dtos"
	"github.com/rentora/applications-service/internal/models"
	"github.com/rentora/applications-service/internal/utils"
)

// SignLease records an immutable e-signature. The tenant must sign before the
// landlord, each party signs at most once, and both rules are enforced again
// inside the repository transaction.
func (s *ApplicationService) SignLease(ctx context.Context, actorID, appID uuid.UUID, req dtos.SignLeaseRequest, ipAddress, userAgent string) (*dtos.LeaseSignatureDTO, error) {
	actor, app, err := s.loadActorAndApplication(ctx, actorID, appID)
	if err != nil {
		return nil, err
	}

	if app.Status != models.StatusApproved {
		return nil, &utils.TransitionError{From: string(app.Status), To: string(models.StatusApproved)}
	}
	if app.LeasePDFURL == "" {
		return nil, utils.NewMissingFieldError("lease_pdf_url", "the lease document has not been generated yet")
	}

	var role models.SignerRole
	switch {
	case actor.ID == app.ApplicantID:
		role = models.SignerTenant
	case s.auth.CanReview(actor, app):
		role = models.SignerLandlord
	default:
		return nil, utils.ErrRoleNotAuthorized
	}

	stateCode, err := utils.NormalizeUSState(req.StateCode)
	if err != nil {
		return nil, utils.NewMissingFieldError("state_code", "not a recognized US state or territory")
	}
	if stateCode != app.Property.State {
		return nil, utils.NewMissingFieldError("state_code", "state code must match the property's state")
	}

	if !req.Attestation {
		return nil, utils.NewMissingFieldError("attestation", "the signer must attest to the signature")
	}
	if err := s.checkDisclosures(stateCode, req.DisclosureAcks); err != nil {
		return nil, err
	}

	sig := &models.LeaseSignature{
		ID:            uuid.New(),
		ApplicationID: appID,
		SignerID:      actor.ID,
		SignerRole:    role,
		SignerName:    actor.FullName(),
		SignatureData: req.SignatureData,
		StateCode:     stateCode,
		DisclosureAck: true,
		Attestation:   true,
		IPAddress:     ipAddress,
		UserAgent:     userAgent,
		IsLocked:      true,
		SignedAt:      time.Now().UTC(),
	}

	leaseStatus, err := s.sigRepo.CreateSignatureAtomic(ctx, sig)
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actor, models.AuditLeaseSign, appID, models.TargetLeaseSignature, map[string]interface{}{
		"signer_role":  role,
		"lease_status": leaseStatus,
	})

	if leaseStatus == models.LeaseSigned {
		s.finalizeSignedLease(ctx, appID)
	}
	s.notifyLeaseParties(ctx, app, leaseStatus)

	return dtos.ToLeaseSignatureDTO(sig), nil
}

func (s *ApplicationService) checkDisclosures(stateCode string, acked []string) error {
	required := s.disclosures.RequiredDisclosures(stateCode)
	ackedSet := make(map[string]bool, len(acked))
	for _, code := range acked {
		ackedSet[code] = true
	}
	for _, d := range required {
		if !ackedSet[d.Code] {
			return utils.ErrDisclosureNotAcknowledged
		}
	}
	return nil
}

func (s *ApplicationService) ListLeaseSignatures(ctx context.Context, actorID, appID uuid.UUID) ([]*dtos.LeaseSignatureDTO, error) {
	actor, app, err := s.loadActorAndApplication(ctx, actorID, appID)
	if err != nil {
		return nil, err
	}
	if !s.auth.CanViewApplication(actor, app) {
		return nil, utils.ErrRoleNotAuthorized
	}

	sigs, err := s.sigRepo.ListByApplication(ctx, appID)
	if err != nil {
		return nil, err
	}
	out := make([]*dtos.LeaseSignatureDTO, 0, len(sigs))
	for _, sig := range sigs {
		out = append(out, dtos.ToLeaseSignatureDTO(sig))
	}
	return out, nil
}

// RequiredDisclosuresForApplication exposes the signing checklist to clients.
func (s *ApplicationService) RequiredDisclosuresForApplication(ctx context.Context, actorID, appID uuid.UUID) ([]Disclosure, error) {
	actor, app, err := s.loadActorAndApplication(ctx, actorID, appID)
	if err != nil {
		return nil, err
	}
	if !s.auth.CanViewApplication(actor, app) {
		return nil, utils.ErrRoleNotAuthorized
	}
	return s.disclosures.RequiredDisclosures(app.Property.State), nil
}

// finalizeSignedLease renders the executed document exactly once. The
// conditional URL write is the dedup point when both signatures land close
// together.
func (s *ApplicationService) finalizeSignedLease(ctx context.Context, appID uuid.UUID) {
	app, err := s.appRepo.GetByID(ctx, appID)
	if err != nil || app == nil {
		utils.Logger.WithError(err).Errorf("Could not reload application %s for signed lease generation", appID)
		return
	}
	if app.SignedLeasePDFURL != "" {
		return
	}

	sigs, err := s.sigRepo.ListByApplication(ctx, appID)
	if err != nil {
		utils.Logger.WithError(err).Errorf("Could not list signatures for application %s", appID)
		return
	}

	url, err := s.docs.GenerateSignedLease(ctx, app, sigs)
	if err != nil {
		utils.Logger.WithError(err).Errorf("Failed to generate signed lease for application %s", appID)
		return
	}

	wrote, err := s.appRepo.SetSignedLeasePDFURLOnce(ctx, appID, url)
	if err != nil {
		utils.Logger.WithError(err).Errorf("Failed to persist signed lease URL for application %s", appID)
		return
	}
	if !wrote {
		utils.Logger.Infof("Signed lease for application %s was already recorded", appID)
	}
}

func (s *ApplicationService) notifyLeaseParties(ctx context.Context, app *models.Application, status models.LeaseSignatureStatus) {
	applicant, err := s.auth.ResolveActor(ctx, app.ApplicantID)
	if err == nil {
		if nErr := s.notifier.NotifyLeaseSignature(applicant, app, status); nErr != nil {
			utils.Logger.WithError(nErr).Warnf("Failed lease notification to applicant %s", applicant.ID)
		}
	}
	owner, err := s.auth.ResolveActor(ctx, app.Property.OwnerID)
	if err == nil {
		if nErr := s.notifier.NotifyLeaseSignature(owner, app, status); nErr != nil {
			utils.Logger.WithError(nErr).Warnf("Failed lease notification to owner %s", owner.ID)
		}
	}
}
