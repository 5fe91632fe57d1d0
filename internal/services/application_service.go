package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rentora/applications-service/internal/dtos"
	"github.com/rentora/applications-service/internal/models"
	"github.com/rentora/applications-service/internal/repositories"
	"github.com/rentora/applications-service/internal/utils"
)

const draftUpdateMaxRetries = 3

type ApplicationService struct {
	appRepo     repositories.ApplicationRepository
	propRepo    repositories.PropertyRepository
	sigRepo     repositories.LeaseSignatureRepository
	auditRepo   repositories.AuditLogRepository
	auth        *Authorizer
	scoring     *ScoringService
	disclosures DisclosureRegistry
	docs        DocumentGenerator
	notifier    Notifier
}

func NewApplicationService(
	appRepo repositories.ApplicationRepository,
	propRepo repositories.PropertyRepository,
	sigRepo repositories.LeaseSignatureRepository,
	auditRepo repositories.AuditLogRepository,
	auth *Authorizer,
	scoring *ScoringService,
	disclosures DisclosureRegistry,
	docs DocumentGenerator,
	notifier Notifier,
) *ApplicationService {
	return &ApplicationService{
		appRepo:     appRepo,
		propRepo:    propRepo,
		sigRepo:     sigRepo,
		auditRepo:   auditRepo,
		auth:        auth,
		scoring:     scoring,
		disclosures: disclosures,
		docs:        docs,
		notifier:    notifier,
	}
}

// CreateApplication opens a draft against a listed property. One active
// application per (applicant, property); the unique index backs up this check.
func (s *ApplicationService) CreateApplication(ctx context.Context, applicantID uuid.UUID, req dtos.CreateApplicationRequest) (*dtos.ApplicationDTO, error) {
	applicant, err := s.auth.ResolveActor(ctx, applicantID)
	if err != nil {
		return nil, err
	}

	propertyID, err := uuid.Parse(req.PropertyID)
	if err != nil {
		return nil, utils.NewMissingFieldError("property_id", "not a valid UUID")
	}

	property, err := s.propRepo.GetByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if property == nil {
		return nil, utils.ErrNotFound
	}
	if !property.IsListed {
		return nil, utils.NewMissingFieldError("property_id", "property is not accepting applications")
	}
	if property.OwnerID == applicantID {
		return nil, utils.ErrRoleNotAuthorized
	}

	existing, err := s.appRepo.GetActiveByApplicantAndProperty(ctx, applicantID, propertyID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, utils.ErrDuplicateResource
	}

	now := time.Now().UTC()
	app := &models.Application{
		ID:          uuid.New(),
		ApplicantID: applicantID,
		PropertyID:  propertyID,
		Status:      models.StatusDraft,
		StatusHistory: []models.StatusChange{},
		Property:    property.Snapshot(now),
		PersonalInfo: models.PersonalInfo{
			FirstName: applicant.FirstName,
			LastName:  applicant.LastName,
			Email:     applicant.Email,
			Phone:     applicant.Phone,
		},
		Documents:   models.NewDocumentChecklist(),
		LeaseStatus: models.LeaseUnsigned,
	}

	if err := s.appRepo.Create(ctx, app); err != nil {
		return nil, err
	}

	created, err := s.appRepo.GetByID(ctx, app.ID)
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, applicant, models.AuditCreate, app.ID, models.TargetApplication, map[string]interface{}{
		"property_id": propertyID,
	})

	return dtos.ToApplicationDTO(created), nil
}

func (s *ApplicationService) GetApplication(ctx context.Context, actorID, appID uuid.UUID) (*dtos.ApplicationDTO, error) {
	actor, app, err := s.loadActorAndApplication(ctx, actorID, appID)
	if err != nil {
		return nil, err
	}
	if !s.auth.CanViewApplication(actor, app) {
		return nil, utils.ErrRoleNotAuthorized
	}
	return dtos.ToApplicationDTO(app), nil
}

func (s *ApplicationService) ListMyApplications(ctx context.Context, actorID uuid.UUID) ([]*dtos.ApplicationDTO, error) {
	apps, err := s.appRepo.ListByApplicant(ctx, actorID)
	if err != nil {
		return nil, err
	}
	out := make([]*dtos.ApplicationDTO, 0, len(apps))
	for _, a := range apps {
		out = append(out, dtos.ToApplicationDTO(a))
	}
	return out, nil
}

func (s *ApplicationService) ListPropertyApplications(ctx context.Context, actorID, propertyID uuid.UUID, statuses []models.ApplicationStatus) ([]*dtos.ApplicationDTO, error) {
	actor, err := s.auth.ResolveActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	property, err := s.propRepo.GetByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if property == nil {
		return nil, utils.ErrNotFound
	}
	if actor.Role == models.RoleOwner && property.OwnerID != actorID {
		return nil, utils.ErrRoleNotAuthorized
	}
	if !actor.Role.IsReviewer() {
		return nil, utils.ErrRoleNotAuthorized
	}

	apps, err := s.appRepo.ListByProperty(ctx, propertyID, statuses)
	if err != nil {
		return nil, err
	}
	out := make([]*dtos.ApplicationDTO, 0, len(apps))
	for _, a := range apps {
		out = append(out, dtos.ToApplicationDTO(a))
	}
	return out, nil
}

// UpdateDraft autosaves applicant sections. Only the applicant may write, and
// only while the application is still a draft.
func (s *ApplicationService) UpdateDraft(ctx context.Context, actorID, appID uuid.UUID, req dtos.DraftUpdateRequest) (*dtos.ApplicationDTO, error) {
	err := repositories.WithRetry(
		ctx,
		draftUpdateMaxRetries,
		appID.String(),
		func(ctx context.Context, id string) (*models.Application, error) {
			parsed, parseErr := uuid.Parse(id)
			if parseErr != nil {
				return nil, parseErr
			}
			return s.appRepo.GetByID(ctx, parsed)
		},
		s.appRepo.UpdateIfVersion,
		func(app *models.Application) error {
			if app.ApplicantID != actorID {
				return utils.ErrRoleNotAuthorized
			}
			if app.Status != models.StatusDraft {
				return &utils.TransitionError{From: string(app.Status), To: string(models.StatusDraft)}
			}
			applyDraftUpdate(app, req)
			return nil
		},
	)
	if err != nil {
		return nil, err
	}

	updated, err := s.appRepo.GetByID(ctx, appID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, utils.ErrNotFound
	}
	return dtos.ToApplicationDTO(updated), nil
}

func applyDraftUpdate(app *models.Application, req dtos.DraftUpdateRequest) {
	if p := req.PersonalInfo; p != nil {
		app.PersonalInfo.FirstName = p.FirstName
		app.PersonalInfo.LastName = p.LastName
		app.PersonalInfo.Email = p.Email
		app.PersonalInfo.Phone = p.Phone
		app.PersonalInfo.DateOfBirth = p.DateOfBirth
		if p.SSN != "" {
			app.PersonalInfo.SSN = p.SSN
			app.PersonalInfo.HasSSN = true
		}
	}
	if e := req.Employment; e != nil {
		var coApplicants []models.CoApplicant
		for _, c := range e.CoApplicants {
			coApplicants = append(coApplicants, models.CoApplicant{Name: c.Name, MonthlyIncome: c.MonthlyIncome})
		}
		app.Employment = models.Employment{
			Status:        e.Status,
			Employer:      e.Employer,
			JobTitle:      e.JobTitle,
			MonthlyIncome: e.MonthlyIncome,
			Tenure:        e.Tenure,
			CoApplicants:  coApplicants,
		}
	}
	if rh := req.RentalHistory; rh != nil {
		app.RentalHistory = models.RentalHistory{
			CurrentAddress:   rh.CurrentAddress,
			LandlordName:     rh.LandlordName,
			LandlordPhone:    rh.LandlordPhone,
			Tenure:           rh.Tenure,
			PreviousEviction: rh.PreviousEviction,
		}
	}
	for _, d := range req.Documents {
		if item := app.Document(d.Kind); item != nil {
			item.FileURL = d.FileURL
			item.Uploaded = true
			// re-uploading resets any prior verification
			item.Verified = false
			item.VerifiedBy = nil
			item.VerifiedAt = nil
		}
	}
	if l := req.Legal; l != nil {
		now := time.Now().UTC()
		app.Legal.TermsAccepted = l.TermsAccepted
		app.Legal.CreditCheckConsent = l.CreditCheckConsent
		app.Legal.BackgroundCheckOK = l.BackgroundCheckOK
		if l.TermsAccepted && app.Legal.AcceptedAt == nil {
			app.Legal.AcceptedAt = &now
		}
	}
	if f := req.Federal; f != nil {
		app.Federal = models.FederalDisclosures{
			FairHousingAck:    f.FairHousingAck,
			LeadPaintAck:      f.LeadPaintAck,
			FCRAAuthorization: f.FCRAAuthorization,
			ESIGNConsentAck:   f.ESIGNConsentAck,
		}
	}
	if len(req.StateDisclosures) > 0 {
		now := time.Now().UTC()
		acks := make([]models.StateDisclosureAck, 0, len(req.StateDisclosures))
		for _, sd := range req.StateDisclosures {
			ack := models.StateDisclosureAck{Code: sd.Code, Acknowledged: sd.Acknowledged}
			if sd.Acknowledged {
				ack.AckedAt = &now
			}
			acks = append(acks, ack)
		}
		app.StateDisclosures = acks
	}
}

// Transition applies one edge of the status machine on behalf of the actor.
func (s *ApplicationService) Transition(ctx context.Context, actorID, appID uuid.UUID, req dtos.TransitionRequest) (*dtos.ApplicationDTO, error) {
	actor, app, err := s.loadActorAndApplication(ctx, actorID, appID)
	if err != nil {
		return nil, err
	}

	to := models.ApplicationStatus(req.To)
	isApplicant := actor.ID == app.ApplicantID

	if !isApplicant && !s.auth.CanReview(actor, app) {
		return nil, utils.ErrRoleNotAuthorized
	}
	if err := ValidateTransition(app.Status, to, actor.Role, isApplicant); err != nil {
		return nil, err
	}

	switch to {
	case models.StatusSubmitted:
		if err := s.validateSubmission(app); err != nil {
			return nil, err
		}
	case models.StatusPaymentRequested:
		// payment requests carry an amount and purpose and must go
		// through RequestPayment, which attaches the sub-protocol state
		return nil, fmt.Errorf("%w: payment_requested is set via the payment-request endpoint", utils.ErrValidation)
	case models.StatusRejected:
		if req.Reason == "" {
			return nil, utils.NewMissingFieldError("reason", "a rejection reason is required")
		}
	case models.StatusApproved:
		if app.Score == nil {
			return nil, utils.NewMissingFieldError("score", "application must be scored before approval")
		}
	}

	change := models.StatusChange{
		From:      app.Status,
		To:        to,
		ChangedBy: actor.ID,
		Role:      actor.Role,
		Category:  req.Category,
		Reason:    req.Reason,
		ChangedAt: time.Now().UTC(),
	}

	updated, err := s.appRepo.UpdateStatusAtomic(ctx, appID, req.RowVersion, change)
	if err != nil {
		return nil, err
	}

	switch to {
	case models.StatusSubmitted:
		s.generateDisclosureDocument(ctx, updated)
		if fresh, freshErr := s.appRepo.GetByID(ctx, appID); freshErr == nil && fresh != nil {
			updated = fresh
		}
		s.notifyOwner(ctx, updated, func(owner *models.User) error {
			return s.notifier.NotifyNewApplication(owner, updated)
		})
	case models.StatusApproved:
		s.generateLeaseDocument(ctx, updated)
		// re-read so the response carries the lease URL
		if fresh, freshErr := s.appRepo.GetByID(ctx, appID); freshErr == nil && fresh != nil {
			updated = fresh
		}
	}

	s.recordAudit(ctx, actor, models.AuditStatusChange, appID, models.TargetApplication, map[string]interface{}{
		"from":   change.From,
		"to":     change.To,
		"reason": change.Reason,
	})
	s.notifyApplicant(ctx, updated, change)

	return dtos.ToApplicationDTO(updated), nil
}

func (s *ApplicationService) validateSubmission(app *models.Application) error {
	if app.Property.PropertyID == uuid.Nil {
		return utils.NewMissingFieldError("property_snapshot", "the application carries no property snapshot")
	}
	if app.PersonalInfo.FirstName == "" || app.PersonalInfo.LastName == "" {
		return utils.NewMissingFieldError("personal_info", "first and last name are required")
	}
	if app.PersonalInfo.Email == "" {
		return utils.NewMissingFieldError("personal_info.email", "an email address is required")
	}
	if app.Employment.Status == "" {
		return utils.NewMissingFieldError("employment", "the employment section is required")
	}
	if app.RentalHistory.Tenure == "" && app.RentalHistory.CurrentAddress == "" {
		return utils.NewMissingFieldError("rental_history", "the rental history section is required")
	}
	if !app.Legal.TermsAccepted {
		return utils.NewMissingFieldError("legal.terms_accepted", "the application terms must be accepted")
	}
	if !app.Federal.AllAcknowledged() {
		return utils.NewMissingFieldError("federal_disclosures", "all federal disclosures must be acknowledged")
	}
	if item := app.Document(models.DocumentGovernmentID); item == nil || !item.Uploaded {
		return utils.NewMissingFieldError("documents.government_id", "a government ID must be uploaded")
	}

	acked := make(map[string]bool, len(app.StateDisclosures))
	for _, sd := range app.StateDisclosures {
		if sd.Acknowledged {
			acked[sd.Code] = true
		}
	}
	for _, d := range s.disclosures.RequiredDisclosures(app.Property.State) {
		if !acked[d.Code] {
			return utils.NewMissingFieldError("state_disclosures."+d.Code, "a required state disclosure has not been acknowledged")
		}
	}
	return nil
}

// ScoreApplication runs the deterministic breakdown and persists it. Only
// reviewers may score, and only once the application has been submitted.
func (s *ApplicationService) ScoreApplication(ctx context.Context, actorID, appID uuid.UUID) (*models.ScoreBreakdown, error) {
	actor, app, err := s.loadActorAndApplication(ctx, actorID, appID)
	if err != nil {
		return nil, err
	}
	if !s.auth.CanReview(actor, app) {
		return nil, utils.ErrRoleNotAuthorized
	}
	switch app.Status {
	case models.StatusSubmitted, models.StatusUnderReview, models.StatusPaymentRequested, models.StatusPaymentCompleted:
	default:
		return nil, &utils.TransitionError{From: string(app.Status), To: string(models.StatusUnderReview)}
	}

	breakdown, err := s.scoring.Score(ctx, app, actor.ID)
	if err != nil {
		return nil, err
	}
	if err := s.appRepo.SaveScore(ctx, appID, breakdown); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actor, models.AuditScore, appID, models.TargetApplication, map[string]interface{}{
		"total": breakdown.Total,
		"flags": breakdown.Flags,
	})

	app.Score = breakdown
	s.notifyOwner(ctx, app, func(owner *models.User) error {
		return s.notifier.NotifyScoringComplete(owner, app)
	})

	return breakdown, nil
}

// VerifyDocument marks one checklist item verified. Reviewer only.
func (s *ApplicationService) VerifyDocument(ctx context.Context, actorID, appID uuid.UUID, kind string) (*dtos.ApplicationDTO, error) {
	actor, app, err := s.loadActorAndApplication(ctx, actorID, appID)
	if err != nil {
		return nil, err
	}
	if !s.auth.CanReview(actor, app) {
		return nil, utils.ErrRoleNotAuthorized
	}

	item := app.Document(kind)
	if item == nil || !item.Uploaded {
		return nil, utils.ErrNotFound
	}
	now := time.Now().UTC()
	item.Verified = true
	item.VerifiedBy = &actor.ID
	item.VerifiedAt = &now

	if _, err := s.appRepo.UpdateIfVersion(ctx, app, app.RowVersion); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actor, models.AuditUpdate, appID, models.TargetApplication, map[string]interface{}{
		"document_verified": kind,
	})

	updated, err := s.appRepo.GetByID(ctx, appID)
	if err != nil {
		return nil, err
	}
	return dtos.ToApplicationDTO(updated), nil
}

// ---------- shared helpers ----------

func (s *ApplicationService) loadActorAndApplication(ctx context.Context, actorID, appID uuid.UUID) (*models.User, *models.Application, error) {
	actor, err := s.auth.ResolveActor(ctx, actorID)
	if err != nil {
		return nil, nil, err
	}
	app, err := s.appRepo.GetByID(ctx, appID)
	if err != nil {
		return nil, nil, err
	}
	if app == nil {
		return nil, nil, utils.ErrNotFound
	}
	return actor, app, nil
}

func (s *ApplicationService) generateDisclosureDocument(ctx context.Context, app *models.Application) {
	if app.DisclosurePDFURL != "" {
		return
	}
	url, err := s.docs.GenerateDisclosurePDF(ctx, app)
	if err != nil {
		utils.Logger.WithError(err).Errorf("Failed to generate disclosure document for application %s", app.ID)
		return
	}
	if err := s.appRepo.SetDisclosurePDFURL(ctx, app.ID, url); err != nil {
		utils.Logger.WithError(err).Errorf("Failed to persist disclosure URL for application %s", app.ID)
	}
}

func (s *ApplicationService) generateLeaseDocument(ctx context.Context, app *models.Application) {
	if app.LeasePDFURL != "" {
		return
	}
	url, err := s.docs.GenerateLease(ctx, app)
	if err != nil {
		utils.Logger.WithError(err).Errorf("Failed to generate lease document for application %s", app.ID)
		return
	}
	if err := s.appRepo.SetLeasePDFURL(ctx, app.ID, url); err != nil {
		utils.Logger.WithError(err).Errorf("Failed to persist lease URL for application %s", app.ID)
	}
}

// recordAudit writes the audit trail entry. Audit failures are logged and
// never surfaced to the caller.
func (s *ApplicationService) recordAudit(ctx context.Context, actor *models.User, action models.AuditAction, targetID uuid.UUID, targetType models.AuditTargetType, details map[string]interface{}) {
	var raw *json.RawMessage
	if details != nil {
		if payload, err := json.Marshal(details); err == nil {
			msg := json.RawMessage(payload)
			raw = &msg
		}
	}
	entry := &models.AuditLog{
		ID:         uuid.New(),
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		TargetID:   targetID,
		TargetType: targetType,
		Details:    raw,
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		utils.Logger.WithError(err).WithFields(logrus.Fields{
			"action":    action,
			"target_id": targetID,
		}).Error("Failed to write audit log entry")
	}
}

// notifyApplicant is fire-and-forget: a failed email never unwinds a
// committed transition.
func (s *ApplicationService) notifyApplicant(ctx context.Context, app *models.Application, change models.StatusChange) {
	applicant, err := s.auth.ResolveActor(ctx, app.ApplicantID)
	if err != nil {
		utils.Logger.WithError(err).Warnf("Could not resolve applicant %s for notification", app.ApplicantID)
		return
	}
	if err := s.notifier.NotifyStatusChange(applicant, app, change); err != nil {
		utils.Logger.WithError(err).Warnf("Failed to notify applicant %s", applicant.ID)
	}
}

// notifyOwner resolves the property owner off the snapshot and delivers one
// best-effort message.
func (s *ApplicationService) notifyOwner(ctx context.Context, app *models.Application, deliver func(owner *models.User) error) {
	owner, err := s.auth.ResolveActor(ctx, app.Property.OwnerID)
	if err != nil {
		utils.Logger.WithError(err).Warnf("Could not resolve owner %s for notification", app.Property.OwnerID)
		return
	}
	if err := deliver(owner); err != nil {
		utils.Logger.WithError(err).Warnf("Failed to notify owner %s", owner.ID)
	}
}
