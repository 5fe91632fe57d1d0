package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditCreate          AuditAction = "CREATE"
	AuditUpdate          AuditAction = "UPDATE"
	AuditStatusChange    AuditAction = "STATUS_CHANGE"
	AuditScore           AuditAction = "SCORE"
	AuditPaymentRequest  AuditAction = "PAYMENT_REQUEST"
	AuditPaymentComplete AuditAction = "PAYMENT_COMPLETE"
	AuditPaymentVerify   AuditAction = "PAYMENT_VERIFY"
	AuditLeaseSign       AuditAction = "LEASE_SIGN"
)

type AuditTargetType string

const (
	TargetApplication    AuditTargetType = "APPLICATION"
	TargetLeaseSignature AuditTargetType = "LEASE_SIGNATURE"
	TargetProperty       AuditTargetType = "PROPERTY"
)

type AuditLog struct {
	ID         uuid.UUID        `json:"id"`
	ActorID    uuid.UUID        `json:"actor_id"`
	ActorRole  Role             `json:"actor_role"`
	Action     AuditAction      `json:"action"`
	TargetID   uuid.UUID        `json:"target_id"`
	TargetType AuditTargetType  `json:"target_type"`
	Details    *json.RawMessage `json:"details,omitempty"` // JSONB field for before/after states
	CreatedAt  time.Time        `json:"created_at"`
}
