package dtos

import (
	"time"

	"github.com/google/uuid"

	"github.com/rentora/applications-service/internal/models"
)

type CreateApplicationRequest struct {
	PropertyID string `json:"property_id" validate:"required,uuid"`
}

type PersonalInfoDTO struct {
	FirstName   string `json:"first_name" validate:"required,max=100"`
	LastName    string `json:"last_name" validate:"required,max=100"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"omitempty,e164"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	SSN         string `json:"ssn" validate:"omitempty,len=9,numeric"`
}

type EmploymentDTO struct {
	Status        string           `json:"status" validate:"required,oneof=employed self_employed unemployed retired student"`
	Employer      string           `json:"employer" validate:"omitempty,max=200"`
	JobTitle      string           `json:"job_title" validate:"omitempty,max=200"`
	MonthlyIncome float64          `json:"monthly_income" validate:"gte=0"`
	Tenure        string           `json:"tenure" validate:"omitempty,max=50"`
	CoApplicants  []CoApplicantDTO `json:"co_applicants" validate:"omitempty,dive"`
}

type CoApplicantDTO struct {
	Name          string  `json:"name" validate:"required,max=200"`
	MonthlyIncome float64 `json:"monthly_income" validate:"gte=0"`
}

type RentalHistoryDTO struct {
	CurrentAddress   string `json:"current_address" validate:"omitempty,max=300"`
	LandlordName     string `json:"landlord_name" validate:"omitempty,max=200"`
	LandlordPhone    string `json:"landlord_phone" validate:"omitempty,max=30"`
	Tenure           string `json:"tenure" validate:"omitempty,max=50"`
	PreviousEviction bool   `json:"previous_eviction"`
}

type DocumentDTO struct {
	Kind    string `json:"kind" validate:"required,oneof=government_id proof_of_income reference_letter"`
	FileURL string `json:"file_url" validate:"required,url"`
}

type LegalAcceptanceDTO struct {
	TermsAccepted      bool `json:"terms_accepted"`
	CreditCheckConsent bool `json:"credit_check_consent"`
	BackgroundCheckOK  bool `json:"background_check_ok"`
}

type FederalDisclosuresDTO struct {
	FairHousingAck    bool `json:"fair_housing_ack"`
	LeadPaintAck      bool `json:"lead_paint_ack"`
	FCRAAuthorization bool `json:"fcra_authorization"`
	ESIGNConsentAck   bool `json:"esign_consent_ack"`
}

type StateDisclosureAckDTO struct {
	Code         string `json:"code" validate:"required,max=50"`
	Acknowledged bool   `json:"acknowledged"`
}

// DraftUpdateRequest carries autosaved sections. Nil sections are untouched.
type DraftUpdateRequest struct {
	PersonalInfo     *PersonalInfoDTO        `json:"personal_info" validate:"omitempty"`
	Employment       *EmploymentDTO          `json:"employment" validate:"omitempty"`
	RentalHistory    *RentalHistoryDTO       `json:"rental_history" validate:"omitempty"`
	Documents        []DocumentDTO           `json:"documents" validate:"omitempty,dive"`
	Legal            *LegalAcceptanceDTO     `json:"legal" validate:"omitempty"`
	Federal          *FederalDisclosuresDTO  `json:"federal_disclosures" validate:"omitempty"`
	StateDisclosures []StateDisclosureAckDTO `json:"state_disclosures" validate:"omitempty,dive"`
}

type TransitionRequest struct {
	To         string `json:"to" validate:"required,oneof=draft submitted under_review approved rejected withdrawn"`
	Category   string `json:"category" validate:"omitempty,max=100"`
	Reason     string `json:"reason" validate:"omitempty,max=2000"`
	RowVersion int64  `json:"row_version" validate:"required,gte=1"`
}

type RequestPaymentRequest struct {
	Amount     float64 `json:"amount" validate:"required,gt=0,lte=500"`
	Purpose    string  `json:"purpose" validate:"required,max=200"`
	Message    string  `json:"message" validate:"omitempty,max=1000"`
	RowVersion int64   `json:"row_version" validate:"required,gte=1"`
}

type CompletePaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required,max=100"`
}

type VerifyPaymentRequest struct {
	RowVersion int64 `json:"row_version" validate:"required,gte=1"`
}

type SignLeaseRequest struct {
	SignatureData  string   `json:"signature_data" validate:"required,max=100000"`
	StateCode      string   `json:"state_code" validate:"required,max=30"`
	DisclosureAcks []string `json:"disclosure_acks" validate:"omitempty,dive,max=50"`
	Attestation    bool     `json:"attestation"`
}

// ---------- responses ----------

type PaymentRequestDTO struct {
	ID              uuid.UUID  `json:"id"`
	Amount          float64    `json:"amount"`
	Purpose         string     `json:"purpose"`
	Message         string     `json:"message,omitempty"`
	Status          string     `json:"status"`
	PaymentIntentID string     `json:"payment_intent_id,omitempty"`
	RequestedAt     time.Time  `json:"requested_at"`
	InitiatedAt     *time.Time `json:"initiated_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`
}

type ApplicationDTO struct {
	ID          uuid.UUID `json:"id"`
	ApplicantID uuid.UUID `json:"applicant_id"`
	PropertyID  uuid.UUID `json:"property_id"`

	Status        string                `json:"status"`
	StatusHistory []models.StatusChange `json:"status_history"`

	Property models.PropertySnapshot `json:"property"`

	PersonalInfo  models.PersonalInfo   `json:"personal_info"`
	Employment    models.Employment     `json:"employment"`
	RentalHistory models.RentalHistory  `json:"rental_history"`
	Documents     []models.DocumentItem `json:"documents"`

	Legal            models.LegalAcceptance      `json:"legal"`
	Federal          models.FederalDisclosures   `json:"federal_disclosures"`
	StateDisclosures []models.StateDisclosureAck `json:"state_disclosures,omitempty"`

	Score   *models.ScoreBreakdown `json:"score,omitempty"`
	Payment *PaymentRequestDTO     `json:"payment,omitempty"`

	RejectionCategory string `json:"rejection_category,omitempty"`
	RejectionReason   string `json:"rejection_reason,omitempty"`
	WithdrawalReason  string `json:"withdrawal_reason,omitempty"`

	LeaseStatus       string `json:"lease_status"`
	DisclosurePDFURL  string `json:"disclosure_pdf_url,omitempty"`
	LeasePDFURL       string `json:"lease_pdf_url,omitempty"`
	SignedLeasePDFURL string `json:"signed_lease_pdf_url,omitempty"`

	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	RowVersion  int64      `json:"row_version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type LeaseSignatureDTO struct {
	ID            uuid.UUID `json:"id"`
	ApplicationID uuid.UUID `json:"application_id"`
	SignerRole    string    `json:"signer_role"`
	SignerName    string    `json:"signer_name"`
	StateCode     string    `json:"state_code"`
	SignedAt      time.Time `json:"signed_at"`
}

func ToPaymentRequestDTO(pr *models.PaymentRequest) *PaymentRequestDTO {
	if pr == nil {
		return nil
	}
	return &PaymentRequestDTO{
		ID:              pr.ID,
		Amount:          pr.Amount,
		Purpose:         pr.Purpose,
		Message:         pr.Message,
		Status:          string(pr.Status),
		PaymentIntentID: pr.PaymentIntentID,
		RequestedAt:     pr.RequestedAt,
		InitiatedAt:     pr.InitiatedAt,
		CompletedAt:     pr.CompletedAt,
		VerifiedAt:      pr.VerifiedAt,
	}
}

// ToApplicationDTO strips fields that must never leave the service, the raw
// SSN above all.
func ToApplicationDTO(app *models.Application) *ApplicationDTO {
	personal := app.PersonalInfo
	personal.SSN = ""

	return &ApplicationDTO{
		ID:                app.ID,
		ApplicantID:       app.ApplicantID,
		PropertyID:        app.PropertyID,
		Status:            string(app.Status),
		StatusHistory:     app.StatusHistory,
		Property:          app.Property,
		PersonalInfo:      personal,
		Employment:        app.Employment,
		RentalHistory:     app.RentalHistory,
		Documents:         app.Documents,
		Legal:             app.Legal,
		Federal:           app.Federal,
		StateDisclosures:  app.StateDisclosures,
		Score:             app.Score,
		Payment:           ToPaymentRequestDTO(app.Payment),
		RejectionCategory: app.RejectionCategory,
		RejectionReason:   app.RejectionReason,
		WithdrawalReason:  app.WithdrawalReason,
		LeaseStatus:       string(app.LeaseStatus),
		DisclosurePDFURL:  app.DisclosurePDFURL,
		LeasePDFURL:       app.LeasePDFURL,
		SignedLeasePDFURL: app.SignedLeasePDFURL,
		SubmittedAt:       app.SubmittedAt,
		RowVersion:        app.RowVersion,
		CreatedAt:         app.CreatedAt,
		UpdatedAt:         app.UpdatedAt,
	}
}

func ToLeaseSignatureDTO(sig *models.LeaseSignature) *LeaseSignatureDTO {
	return &LeaseSignatureDTO{
		ID:            sig.ID,
		ApplicationID: sig.ApplicationID,
		SignerRole:    string(sig.SignerRole),
		SignerName:    sig.SignerName,
		StateCode:     sig.StateCode,
		SignedAt:      sig.SignedAt,
	}
}
