package models

import (
	"time"

	"github.com/google/uuid"
)

type ApplicationStatus string

const (
	StatusDraft            ApplicationStatus = "draft"
	StatusSubmitted        ApplicationStatus = "submitted"
	StatusUnderReview      ApplicationStatus = "under_review"
	StatusPaymentRequested ApplicationStatus = "payment_requested"
	StatusPaymentCompleted ApplicationStatus = "payment_completed"
	StatusApproved         ApplicationStatus = "approved"
	StatusRejected         ApplicationStatus = "rejected"
	StatusWithdrawn        ApplicationStatus = "withdrawn"
)

// IsTerminal reports whether no further status transitions are allowed.
func (s ApplicationStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusWithdrawn
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
)

type LeaseSignatureStatus string

const (
	LeaseUnsigned        LeaseSignatureStatus = "unsigned"
	LeasePartiallySigned LeaseSignatureStatus = "partially_signed"
	LeaseSigned          LeaseSignatureStatus = "signed"
)

// StatusChange is one entry in an application's append-only status history.
type StatusChange struct {
	From      ApplicationStatus `json:"from"`
	To        ApplicationStatus `json:"to"`
	ChangedBy uuid.UUID         `json:"changed_by"`
	Role      Role              `json:"role"`
	Category  string            `json:"category,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	ChangedAt time.Time         `json:"changed_at"`
}

// PropertySnapshot freezes the listing details an applicant applied against.
// Later edits to the property never alter an existing application.
type PropertySnapshot struct {
	PropertyID  uuid.UUID `json:"property_id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Title       string    `json:"title"`
	AddressLine string    `json:"address_line"`
	City        string    `json:"city"`
	State       string    `json:"state"`
	Zip         string    `json:"zip"`

	MonthlyRent     float64 `json:"monthly_rent"`
	SecurityDeposit float64 `json:"security_deposit"`
	ApplicationFee  float64 `json:"application_fee"`
	LeaseTermMonths int     `json:"lease_term_months"`
	PetsAllowed     bool    `json:"pets_allowed"`
	SmokingAllowed  bool    `json:"smoking_allowed"`

	CapturedAt time.Time `json:"captured_at"`
}

type PersonalInfo struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	DateOfBirth string `json:"date_of_birth,omitempty"`

	// SSN is held in memory only. The repository encrypts it at rest and
	// it is never serialized to API responses.
	SSN    string `json:"-"`
	HasSSN bool   `json:"has_ssn"`
}

type Employment struct {
	Status        string  `json:"status"` // employed, self_employed, unemployed, retired, student
	Employer      string  `json:"employer,omitempty"`
	JobTitle      string  `json:"job_title,omitempty"`
	MonthlyIncome float64 `json:"monthly_income"`
	Tenure        string  `json:"tenure,omitempty"` // free-form, e.g. "2 years 3 months"

	CoApplicants []CoApplicant `json:"co_applicants,omitempty"`
}

// CoApplicant contributes income to the household total used by scoring.
type CoApplicant struct {
	Name          string  `json:"name"`
	MonthlyIncome float64 `json:"monthly_income"`
}

// HouseholdIncome is the applicant's income plus every co-applicant's.
func (e Employment) HouseholdIncome() float64 {
	total := e.MonthlyIncome
	for _, c := range e.CoApplicants {
		total += c.MonthlyIncome
	}
	return total
}

type RentalHistory struct {
	CurrentAddress   string `json:"current_address,omitempty"`
	LandlordName     string `json:"landlord_name,omitempty"`
	LandlordPhone    string `json:"landlord_phone,omitempty"`
	Tenure           string `json:"tenure,omitempty"`
	PreviousEviction bool   `json:"previous_eviction"`
}

// DocumentItem is one entry of the fixed three-item checklist: government ID,
// proof of income, reference letter.
type DocumentItem struct {
	Kind       string     `json:"kind"`
	FileURL    string     `json:"file_url,omitempty"`
	Uploaded   bool       `json:"uploaded"`
	Verified   bool       `json:"verified"`
	VerifiedBy *uuid.UUID `json:"verified_by,omitempty"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
}

const (
	DocumentGovernmentID    = "government_id"
	DocumentProofOfIncome   = "proof_of_income"
	DocumentReferenceLetter = "reference_letter"
)

// LegalAcceptance records the applicant's consent to the application terms
// and to the credit check authorization.
type LegalAcceptance struct {
	TermsAccepted      bool `json:"terms_accepted"`
	CreditCheckConsent bool `json:"credit_check_consent"`
	BackgroundCheckOK  bool `json:"background_check_ok"`

	// DocumentVersions pins which revision of each legal document was
	// accepted, keyed by document slug.
	DocumentVersions map[string]string `json:"document_versions,omitempty"`

	AcceptedAt          *time.Time `json:"accepted_at,omitempty"`
	AcceptanceIPAddress string     `json:"acceptance_ip_address,omitempty"`
}

// FederalDisclosures are mandatory acknowledgements regardless of state.
type FederalDisclosures struct {
	FairHousingAck    bool `json:"fair_housing_ack"`
	LeadPaintAck      bool `json:"lead_paint_ack"`
	FCRAAuthorization bool `json:"fcra_authorization"`
	ESIGNConsentAck   bool `json:"esign_consent_ack"`
}

// AllAcknowledged reports whether every federal flag is set. Submission
// requires all four.
func (f FederalDisclosures) AllAcknowledged() bool {
	return f.FairHousingAck && f.LeadPaintAck && f.FCRAAuthorization && f.ESIGNConsentAck
}

// StateDisclosureAck records acknowledgement of one state-specific disclosure.
type StateDisclosureAck struct {
	Code         string     `json:"code"`
	Acknowledged bool       `json:"acknowledged"`
	AckedAt      *time.Time `json:"acked_at,omitempty"`
}

// ScoreBreakdown is the persisted output of a deterministic scoring run.
type ScoreBreakdown struct {
	IncomeScore     int `json:"income_score"`
	CreditScore     int `json:"credit_score"`
	RentalScore     int `json:"rental_score"`
	EmploymentScore int `json:"employment_score"`
	DocumentScore   int `json:"document_score"`

	Total    int `json:"total"`
	MaxScore int `json:"max_score"`

	Flags []string `json:"flags,omitempty"`

	CreditBureauScore int       `json:"credit_bureau_score,omitempty"`
	ScoredAt          time.Time `json:"scored_at"`
	ScoredBy          uuid.UUID `json:"scored_by"`
}

// MaxApplicationScore is the ceiling of the five-category breakdown:
// 25 income + 25 credit + 20 rental + 15 employment + 15 documents.
const MaxApplicationScore = 100

const (
	FlagLowIncome             = "low_income"
	FlagNoIncomeProvided      = "no_income_provided"
	FlagNoCreditAuthorization = "no_credit_check_authorization"
	FlagPreviousEviction      = "previous_eviction"
	FlagUnemployed            = "unemployed"
)

// PaymentRequest is the single screening-fee request an owner may attach to
// an application. PaymentIntentID is write-once: set exactly once by
// initiatePayment and never reassigned.
type PaymentRequest struct {
	ID              uuid.UUID     `json:"id"`
	Amount          float64       `json:"amount"`
	Purpose         string        `json:"purpose"`
	Message         string        `json:"message,omitempty"`
	Status          PaymentStatus `json:"status"`
	PaymentIntentID string        `json:"payment_intent_id,omitempty"`
	RequestedBy     uuid.UUID     `json:"requested_by"`
	RequestedAt     time.Time     `json:"requested_at"`
	InitiatedAt     *time.Time    `json:"initiated_at,omitempty"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
	VerifiedAt      *time.Time    `json:"verified_at,omitempty"`
	VerifiedBy      *uuid.UUID    `json:"verified_by,omitempty"`
}

type Application struct {
	Versioned

	ID          uuid.UUID `json:"id"`
	ApplicantID uuid.UUID `json:"applicant_id"`
	PropertyID  uuid.UUID `json:"property_id"`

	Status        ApplicationStatus `json:"status"`
	StatusHistory []StatusChange    `json:"status_history"`

	Property PropertySnapshot `json:"property"`

	PersonalInfo  PersonalInfo   `json:"personal_info"`
	Employment    Employment     `json:"employment"`
	RentalHistory RentalHistory  `json:"rental_history"`
	Documents     []DocumentItem `json:"documents"`

	Legal            LegalAcceptance      `json:"legal"`
	Federal          FederalDisclosures   `json:"federal_disclosures"`
	StateDisclosures []StateDisclosureAck `json:"state_disclosures,omitempty"`

	Score *ScoreBreakdown `json:"score,omitempty"`

	Payment *PaymentRequest `json:"payment,omitempty"`

	RejectionCategory string `json:"rejection_category,omitempty"`
	RejectionReason   string `json:"rejection_reason,omitempty"`
	WithdrawalReason  string `json:"withdrawal_reason,omitempty"`

	LeaseStatus       LeaseSignatureStatus `json:"lease_status"`
	LeaseSignedAt     *time.Time           `json:"lease_signed_at,omitempty"`
	DisclosurePDFURL  string               `json:"disclosure_pdf_url,omitempty"`
	LeasePDFURL       string               `json:"lease_pdf_url,omitempty"`
	SignedLeasePDFURL string               `json:"signed_lease_pdf_url,omitempty"`

	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (a *Application) GetID() string {
	return a.ID.String()
}

// PreviousStatus is the status before the most recent transition. Empty for
// an application that has never left draft.
func (a *Application) PreviousStatus() ApplicationStatus {
	if len(a.StatusHistory) == 0 {
		return ""
	}
	return a.StatusHistory[len(a.StatusHistory)-1].From
}

// Document returns the checklist entry for the given kind, or nil.
func (a *Application) Document(kind string) *DocumentItem {
	for i := range a.Documents {
		if a.Documents[i].Kind == kind {
			return &a.Documents[i]
		}
	}
	return nil
}

// NewDocumentChecklist returns the fixed three-item checklist every
// application starts with.
func NewDocumentChecklist() []DocumentItem {
	return []DocumentItem{
		{Kind: DocumentGovernmentID},
		{Kind: DocumentProofOfIncome},
		{Kind: DocumentReferenceLetter},
	}
}
