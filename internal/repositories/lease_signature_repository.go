package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/rentora/applications-service/internal/models"
	"github.com/rentora/applications-service/internal/utils"
)

type LeaseSignatureRepository interface {
	// CreateSignatureAtomic inserts the signature and advances the parent
	// application's lease status in one transaction. The landlord's insert
	// is rejected until the tenant's row exists, and a duplicate insert is
	// absorbed by the unique (application_id, signer_role) constraint.
	CreateSignatureAtomic(ctx context.Context, sig *models.LeaseSignature) (models.LeaseSignatureStatus, error)

	GetByApplicationAndRole(ctx context.Context, appID uuid.UUID, role models.SignerRole) (*models.LeaseSignature, error)
	ListByApplication(ctx context.Context, appID uuid.UUID) ([]*models.LeaseSignature, error)
}

type leaseSignatureRepo struct {
	db DB
}

func NewLeaseSignatureRepository(db DB) LeaseSignatureRepository {
	return &leaseSignatureRepo{db: db}
}

func baseSelectSignature() string {
	return `
        SELECT
            id, application_id, signer_id, signer_role, signer_name,
            signature_data, state_code, disclosure_ack, attestation,
            ip_address, user_agent, is_locked, signed_at
        FROM lease_signatures
    `
}

func scanSignature(row pgx.Row) (*models.LeaseSignature, error) {
	var sig models.LeaseSignature
	err := row.Scan(
		&sig.ID,
		&sig.ApplicationID,
		&sig.SignerID,
		&sig.SignerRole,
		&sig.SignerName,
		&sig.SignatureData,
		&sig.StateCode,
		&sig.DisclosureAck,
		&sig.Attestation,
		&sig.IPAddress,
		&sig.UserAgent,
		&sig.IsLocked,
		&sig.SignedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sig, nil
}

func (r *leaseSignatureRepo) CreateSignatureAtomic(ctx context.Context, sig *models.LeaseSignature) (models.LeaseSignatureStatus, error) {
	var status models.LeaseSignatureStatus

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return status, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	// Lock the parent row so concurrent signers serialize here.
	var currentStatus models.LeaseSignatureStatus
	err = tx.QueryRow(ctx, `SELECT lease_status FROM applications WHERE id=$1 FOR UPDATE`, sig.ApplicationID).Scan(&currentStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		err = utils.ErrNotFound
		return status, err
	}
	if err != nil {
		return status, err
	}

	if sig.SignerRole == models.SignerLandlord {
		var tenantCount int
		if err = tx.QueryRow(ctx, `
            SELECT COUNT(*) FROM lease_signatures
            WHERE application_id=$1 AND signer_role=$2
        `, sig.ApplicationID, models.SignerTenant).Scan(&tenantCount); err != nil {
			return status, err
		}
		if tenantCount == 0 {
			err = utils.ErrOrderingViolation
			return status, err
		}
	}

	tag, err := tx.Exec(ctx, `
        INSERT INTO lease_signatures (
            id, application_id, signer_id, signer_role, signer_name,
            signature_data, state_code, disclosure_ack, attestation,
            ip_address, user_agent, is_locked, signed_at
        ) VALUES (
            $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,TRUE,NOW()
        )
        ON CONFLICT (application_id, signer_role) DO NOTHING
    `,
		sig.ID,
		sig.ApplicationID,
		sig.SignerID,
		sig.SignerRole,
		sig.SignerName,
		sig.SignatureData,
		sig.StateCode,
		sig.DisclosureAck,
		sig.Attestation,
		sig.IPAddress,
		sig.UserAgent,
	)
	if err != nil {
		return status, err
	}
	if tag.RowsAffected() == 0 {
		err = utils.ErrAlreadySigned
		return status, err
	}

	var total int
	if err = tx.QueryRow(ctx, `
        SELECT COUNT(*) FROM lease_signatures WHERE application_id=$1
    `, sig.ApplicationID).Scan(&total); err != nil {
		return status, err
	}

	if total >= 2 {
		status = models.LeaseSigned
	} else {
		status = models.LeasePartiallySigned
	}

	if status == models.LeaseSigned {
		_, err = tx.Exec(ctx, `
            UPDATE applications SET lease_status=$1, lease_signed_at=NOW(), updated_at=NOW() WHERE id=$2
        `, status, sig.ApplicationID)
	} else {
		_, err = tx.Exec(ctx, `
            UPDATE applications SET lease_status=$1, updated_at=NOW() WHERE id=$2
        `, status, sig.ApplicationID)
	}
	if err != nil {
		return status, err
	}

	return status, nil
}

func (r *leaseSignatureRepo) GetByApplicationAndRole(ctx context.Context, appID uuid.UUID, role models.SignerRole) (*models.LeaseSignature, error) {
	row := r.db.QueryRow(ctx, baseSelectSignature()+" WHERE application_id=$1 AND signer_role=$2", appID, role)
	sig, err := scanSignature(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return sig, err
}

func (r *leaseSignatureRepo) ListByApplication(ctx context.Context, appID uuid.UUID) ([]*models.LeaseSignature, error) {
	rows, err := r.db.Query(ctx, baseSelectSignature()+" WHERE application_id=$1 ORDER BY signed_at", appID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.LeaseSignature
	for rows.Next() {
		sig, err := scanSignature(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}
