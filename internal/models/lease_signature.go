package models

import (
	"time"

	"github.com/google/uuid"
)

type SignerRole string

const (
	SignerTenant   SignerRole = "tenant"
	SignerLandlord SignerRole = "landlord"
)

// LeaseSignature is an immutable e-signature record. Rows are insert-only:
// a unique constraint on (application_id, signer_role) guarantees at most one
// signature per party, and is_locked is always true once written.
type LeaseSignature struct {
	ID            uuid.UUID  `json:"id"`
	ApplicationID uuid.UUID  `json:"application_id"`
	SignerID      uuid.UUID  `json:"signer_id"`
	SignerRole    SignerRole `json:"signer_role"`
	SignerName    string     `json:"signer_name"`
	SignatureData string     `json:"signature_data"`
	StateCode     string     `json:"state_code"`
	DisclosureAck bool       `json:"disclosure_ack"`
	Attestation   bool       `json:"attestation"`
	IPAddress     string     `json:"ip_address,omitempty"`
	UserAgent     string     `json:"user_agent,omitempty"`
	IsLocked      bool       `json:"is_locked"`
	SignedAt      time.Time  `json:"signed_at"`
}
