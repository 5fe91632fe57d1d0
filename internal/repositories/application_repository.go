package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/rentora/applications-service/internal/models"
	"github.com/rentora/applications-service/internal/utils"
)

type ApplicationRepository interface {
	Create(ctx context.Context, app *models.Application) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error)
	GetActiveByApplicantAndProperty(ctx context.Context, applicantID, propertyID uuid.UUID) (*models.Application, error)
	ListByApplicant(ctx context.Context, applicantID uuid.UUID) ([]*models.Application, error)
	ListByProperty(ctx context.Context, propertyID uuid.UUID, statuses []models.ApplicationStatus) ([]*models.Application, error)

	// UpdateIfVersion persists applicant-editable sections only when the
	// stored row_version still matches. Pair with WithRetry for autosave.
	UpdateIfVersion(ctx context.Context, app *models.Application, expectedVersion int64) (pgconn.CommandTag, error)

	// UpdateStatusAtomic re-reads the row FOR UPDATE, verifies the version
	// and that the current status matches change.From, then applies the
	// transition and appends to the status history.
	UpdateStatusAtomic(ctx context.Context, appID uuid.UUID, expectedVersion int64, change models.StatusChange) (*models.Application, error)

	SaveScore(ctx context.Context, appID uuid.UUID, score *models.ScoreBreakdown) error

	AttachPaymentRequestAtomic(ctx context.Context, appID uuid.UUID, expectedVersion int64, pr models.PaymentRequest, change models.StatusChange) (*models.Application, error)
	SetPaymentIntentAtomic(ctx context.Context, appID uuid.UUID, intentID string) (*models.Application, error)
	CompletePaymentAtomic(ctx context.Context, appID uuid.UUID, intentID string, change models.StatusChange) (*models.Application, error)
	VerifyPaymentAtomic(ctx context.Context, appID uuid.UUID, expectedVersion int64, change models.StatusChange) (*models.Application, error)

	SetDisclosurePDFURL(ctx context.Context, appID uuid.UUID, url string) error
	SetLeasePDFURL(ctx context.Context, appID uuid.UUID, url string) error
	// SetSignedLeasePDFURLOnce writes the signed document URL only if none
	// has been recorded yet. Returns false when another writer got there
	// first.
	SetSignedLeasePDFURLOnce(ctx context.Context, appID uuid.UUID, url string) (bool, error)
}

type applicationRepo struct {
	db     DB
	encKey []byte
}

func NewApplicationRepository(db DB, encKey []byte) ApplicationRepository {
	return &applicationRepo{db: db, encKey: encKey}
}

func baseSelectApplication() string {
	return `
        SELECT
            id, applicant_id, property_id, status, status_history,
            property_snapshot, personal_info, encrypted_ssn,
            employment, rental_history, documents,
            legal, federal_disclosures, state_disclosures,
            score, payment,
            rejection_category, rejection_reason, withdrawal_reason,
            lease_status, lease_signed_at,
            disclosure_pdf_url, lease_pdf_url, signed_lease_pdf_url,
            submitted_at, row_version, created_at, updated_at
        FROM applications
    `
}

func (r *applicationRepo) scanApplication(row pgx.Row) (*models.Application, error) {
	var (
		app          models.Application
		history      []byte
		snapshot     []byte
		personal     []byte
		encSSN       *string
		employment   []byte
		rental       []byte
		documents    []byte
		legal        []byte
		federal      []byte
		stateDiscl   []byte
		score        []byte
		payment      []byte
	)
	err := row.Scan(
		&app.ID,
		&app.ApplicantID,
		&app.PropertyID,
		&app.Status,
		&history,
		&snapshot,
		&personal,
		&encSSN,
		&employment,
		&rental,
		&documents,
		&legal,
		&federal,
		&stateDiscl,
		&score,
		&payment,
		&app.RejectionCategory,
		&app.RejectionReason,
		&app.WithdrawalReason,
		&app.LeaseStatus,
		&app.LeaseSignedAt,
		&app.DisclosurePDFURL,
		&app.LeasePDFURL,
		&app.SignedLeasePDFURL,
		&app.SubmittedAt,
		&app.RowVersion,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(history, &app.StatusHistory); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(snapshot, &app.Property); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(personal, &app.PersonalInfo); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(employment, &app.Employment); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(rental, &app.RentalHistory); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(documents, &app.Documents); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(legal, &app.Legal); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(federal, &app.Federal); err != nil {
		return nil, err
	}
	if stateDiscl != nil {
		if err := json.Unmarshal(stateDiscl, &app.StateDisclosures); err != nil {
			return nil, err
		}
	}
	if score != nil {
		if err := json.Unmarshal(score, &app.Score); err != nil {
			return nil, err
		}
	}
	if payment != nil {
		if err := json.Unmarshal(payment, &app.Payment); err != nil {
			return nil, err
		}
	}

	if encSSN != nil && *encSSN != "" {
		dec, decErr := utils.Decrypt(r.encKey, *encSSN)
		if decErr != nil {
			return nil, decErr
		}
		app.PersonalInfo.SSN = dec
		app.PersonalInfo.HasSSN = true
	}

	return &app, nil
}

type appJSON struct {
	history    []byte
	snapshot   []byte
	personal   []byte
	employment []byte
	rental     []byte
	documents  []byte
	legal      []byte
	federal    []byte
	stateDiscl []byte
	score      []byte
	payment    []byte
}

func marshalApplication(app *models.Application) (*appJSON, error) {
	var (
		j   appJSON
		err error
	)
	if app.StatusHistory == nil {
		app.StatusHistory = []models.StatusChange{}
	}
	if j.history, err = json.Marshal(app.StatusHistory); err != nil {
		return nil, err
	}
	if j.snapshot, err = json.Marshal(app.Property); err != nil {
		return nil, err
	}
	if j.personal, err = json.Marshal(app.PersonalInfo); err != nil {
		return nil, err
	}
	if j.employment, err = json.Marshal(app.Employment); err != nil {
		return nil, err
	}
	if j.rental, err = json.Marshal(app.RentalHistory); err != nil {
		return nil, err
	}
	if j.documents, err = json.Marshal(app.Documents); err != nil {
		return nil, err
	}
	if j.legal, err = json.Marshal(app.Legal); err != nil {
		return nil, err
	}
	if j.federal, err = json.Marshal(app.Federal); err != nil {
		return nil, err
	}
	if app.StateDisclosures != nil {
		if j.stateDiscl, err = json.Marshal(app.StateDisclosures); err != nil {
			return nil, err
		}
	}
	if app.Score != nil {
		if j.score, err = json.Marshal(app.Score); err != nil {
			return nil, err
		}
	}
	if app.Payment != nil {
		if j.payment, err = json.Marshal(app.Payment); err != nil {
			return nil, err
		}
	}
	return &j, nil
}

func (r *applicationRepo) encryptSSN(app *models.Application) (*string, error) {
	if app.PersonalInfo.SSN == "" {
		return nil, nil
	}
	enc, err := utils.Encrypt(r.encKey, app.PersonalInfo.SSN)
	if err != nil {
		return nil, err
	}
	return &enc, nil
}

func (r *applicationRepo) Create(ctx context.Context, app *models.Application) error {
	j, err := marshalApplication(app)
	if err != nil {
		return err
	}
	encSSN, err := r.encryptSSN(app)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, `
        INSERT INTO applications (
            id, applicant_id, property_id, status, status_history,
            property_snapshot, personal_info, encrypted_ssn,
            employment, rental_history, documents,
            legal, federal_disclosures, state_disclosures,
            score, payment,
            rejection_category, rejection_reason, withdrawal_reason,
            lease_status, lease_signed_at,
            disclosure_pdf_url, lease_pdf_url, signed_lease_pdf_url,
            submitted_at, row_version, created_at, updated_at
        ) VALUES (
            $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,
            $15,$16,'','','',$17,NULL,'','','',NULL,1,NOW(),NOW()
        )
    `,
		app.ID,
		app.ApplicantID,
		app.PropertyID,
		app.Status,
		j.history,
		j.snapshot,
		j.personal,
		encSSN,
		j.employment,
		j.rental,
		j.documents,
		j.legal,
		j.federal,
		j.stateDiscl,
		j.score,
		j.payment,
		app.LeaseStatus,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505: unique_violation on the active (applicant, property) index
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return utils.ErrDuplicateResource
		}
		return err
	}
	return nil
}

func (r *applicationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	row := r.db.QueryRow(ctx, baseSelectApplication()+" WHERE id=$1", id)
	app, err := r.scanApplication(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return app, err
}

func (r *applicationRepo) GetActiveByApplicantAndProperty(ctx context.Context, applicantID, propertyID uuid.UUID) (*models.Application, error) {
	row := r.db.QueryRow(ctx, baseSelectApplication()+`
        WHERE applicant_id=$1 AND property_id=$2
          AND status NOT IN ('approved','rejected','withdrawn')
    `, applicantID, propertyID)
	app, err := r.scanApplication(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return app, err
}

func (r *applicationRepo) ListByApplicant(ctx context.Context, applicantID uuid.UUID) ([]*models.Application, error) {
	rows, err := r.db.Query(ctx, baseSelectApplication()+" WHERE applicant_id=$1 ORDER BY created_at DESC", applicantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *applicationRepo) ListByProperty(ctx context.Context, propertyID uuid.UUID, statuses []models.ApplicationStatus) ([]*models.Application, error) {
	q := baseSelectApplication() + " WHERE property_id=$1"
	args := []interface{}{propertyID}
	if len(statuses) > 0 {
		var stStrings []string
		for _, st := range statuses {
			stStrings = append(stStrings, string(st))
		}
		q += " AND status = ANY($2)"
		args = append(args, stStrings)
	}
	q += " ORDER BY created_at DESC"

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *applicationRepo) collect(rows pgx.Rows) ([]*models.Application, error) {
	var out []*models.Application
	for rows.Next() {
		app, err := r.scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, app)
	}
	return out, rows.Err()
}

func (r *applicationRepo) UpdateIfVersion(ctx context.Context, app *models.Application, expectedVersion int64) (pgconn.CommandTag, error) {
	j, err := marshalApplication(app)
	if err != nil {
		return nil, err
	}
	encSSN, err := r.encryptSSN(app)
	if err != nil {
		return nil, err
	}

	return r.db.Exec(ctx, `
        UPDATE applications SET
            personal_info=$1, encrypted_ssn=$2,
            employment=$3, rental_history=$4, documents=$5,
            legal=$6, federal_disclosures=$7, state_disclosures=$8,
            row_version=row_version+1, updated_at=NOW()
        WHERE id=$9 AND row_version=$10
    `,
		j.personal,
		encSSN,
		j.employment,
		j.rental,
		j.documents,
		j.legal,
		j.federal,
		j.stateDiscl,
		app.ID,
		expectedVersion,
	)
}

// lockApplication reads the row FOR UPDATE inside tx.
func (r *applicationRepo) lockApplication(ctx context.Context, tx pgx.Tx, appID uuid.UUID) (*models.Application, error) {
	row := tx.QueryRow(ctx, baseSelectApplication()+" WHERE id=$1 FOR UPDATE", appID)
	app, err := r.scanApplication(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, utils.ErrNotFound
	}
	return app, err
}

func (r *applicationRepo) writeStatus(ctx context.Context, tx pgx.Tx, app *models.Application, change models.StatusChange) error {
	app.StatusHistory = append(app.StatusHistory, change)
	history, err := json.Marshal(app.StatusHistory)
	if err != nil {
		return err
	}

	var submittedAt *time.Time
	if change.To == models.StatusSubmitted && app.SubmittedAt == nil {
		now := change.ChangedAt
		submittedAt = &now
	} else {
		submittedAt = app.SubmittedAt
	}

	category := app.RejectionCategory
	rejection := app.RejectionReason
	withdrawal := app.WithdrawalReason
	switch change.To {
	case models.StatusRejected:
		category = change.Category
		rejection = change.Reason
	case models.StatusWithdrawn:
		withdrawal = change.Reason
	}

	_, err = tx.Exec(ctx, `
        UPDATE applications SET
            status=$1, status_history=$2,
            rejection_category=$3, rejection_reason=$4, withdrawal_reason=$5,
            submitted_at=$6,
            row_version=row_version+1, updated_at=NOW()
        WHERE id=$7
    `, change.To, history, category, rejection, withdrawal, submittedAt, app.ID)
	return err
}

func (r *applicationRepo) UpdateStatusAtomic(
	ctx context.Context,
	appID uuid.UUID,
	expectedVersion int64,
	change models.StatusChange,
) (*models.Application, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	app, err := r.lockApplication(ctx, tx, appID)
	if err != nil {
		return nil, err
	}
	if app.RowVersion != expectedVersion {
		err = utils.ErrRowVersionConflict
		return app, err
	}
	if app.Status != change.From {
		err = &utils.TransitionError{From: string(app.Status), To: string(change.To)}
		return app, err
	}

	if err = r.writeStatus(ctx, tx, app, change); err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, baseSelectApplication()+" WHERE id=$1", appID)
	return r.scanApplication(row)
}

func (r *applicationRepo) SaveScore(ctx context.Context, appID uuid.UUID, score *models.ScoreBreakdown) error {
	payload, err := json.Marshal(score)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `
        UPDATE applications SET score=$1, row_version=row_version+1, updated_at=NOW()
        WHERE id=$2
    `, payload, appID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *applicationRepo) AttachPaymentRequestAtomic(
	ctx context.Context,
	appID uuid.UUID,
	expectedVersion int64,
	pr models.PaymentRequest,
	change models.StatusChange,
) (*models.Application, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	app, err := r.lockApplication(ctx, tx, appID)
	if err != nil {
		return nil, err
	}
	if app.RowVersion != expectedVersion {
		err = utils.ErrRowVersionConflict
		return app, err
	}
	if app.Payment != nil {
		err = utils.ErrDuplicatePaymentRequest
		return app, err
	}
	if app.Status != change.From {
		err = &utils.TransitionError{From: string(app.Status), To: string(change.To)}
		return app, err
	}

	payload, err := json.Marshal(pr)
	if err != nil {
		return nil, err
	}
	if _, err = tx.Exec(ctx, `UPDATE applications SET payment=$1 WHERE id=$2`, payload, appID); err != nil {
		return nil, err
	}
	app.Payment = &pr
	if err = r.writeStatus(ctx, tx, app, change); err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, baseSelectApplication()+" WHERE id=$1", appID)
	return r.scanApplication(row)
}

func (r *applicationRepo) SetPaymentIntentAtomic(ctx context.Context, appID uuid.UUID, intentID string) (*models.Application, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	app, err := r.lockApplication(ctx, tx, appID)
	if err != nil {
		return nil, err
	}
	if app.Payment == nil {
		err = utils.ErrNotFound
		return nil, err
	}
	// Write-once: once an intent is assigned, every further initiation is
	// rejected, retries with the same intent included.
	if app.Payment.PaymentIntentID != "" {
		err = utils.ErrDuplicateResource
		return app, err
	}
	if app.Status != models.StatusPaymentRequested {
		err = &utils.TransitionError{From: string(app.Status), To: string(models.StatusPaymentRequested)}
		return app, err
	}

	now := time.Now().UTC()
	app.Payment.PaymentIntentID = intentID
	app.Payment.Status = models.PaymentPending
	app.Payment.InitiatedAt = &now

	payload, err := json.Marshal(app.Payment)
	if err != nil {
		return nil, err
	}
	if _, err = tx.Exec(ctx, `
        UPDATE applications SET payment=$1, row_version=row_version+1, updated_at=NOW()
        WHERE id=$2
    `, payload, appID); err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, baseSelectApplication()+" WHERE id=$1", appID)
	return r.scanApplication(row)
}

func (r *applicationRepo) CompletePaymentAtomic(ctx context.Context, appID uuid.UUID, intentID string, change models.StatusChange) (*models.Application, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	app, err := r.lockApplication(ctx, tx, appID)
	if err != nil {
		return nil, err
	}
	if app.Payment == nil || app.Payment.PaymentIntentID == "" {
		err = utils.ErrNotFound
		return nil, err
	}
	if app.Payment.PaymentIntentID != intentID {
		err = utils.ErrValidation
		return app, err
	}
	if app.Payment.Status != models.PaymentPending {
		err = utils.ErrConflictingPaymentState
		return app, err
	}
	if app.Status != change.From {
		err = &utils.TransitionError{From: string(app.Status), To: string(change.To)}
		return app, err
	}

	now := change.ChangedAt
	app.Payment.Status = models.PaymentCompleted
	app.Payment.CompletedAt = &now

	payload, err := json.Marshal(app.Payment)
	if err != nil {
		return nil, err
	}
	if _, err = tx.Exec(ctx, `UPDATE applications SET payment=$1 WHERE id=$2`, payload, appID); err != nil {
		return nil, err
	}
	if err = r.writeStatus(ctx, tx, app, change); err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, baseSelectApplication()+" WHERE id=$1", appID)
	return r.scanApplication(row)
}

func (r *applicationRepo) VerifyPaymentAtomic(ctx context.Context, appID uuid.UUID, expectedVersion int64, change models.StatusChange) (*models.Application, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	app, err := r.lockApplication(ctx, tx, appID)
	if err != nil {
		return nil, err
	}
	if app.RowVersion != expectedVersion {
		err = utils.ErrRowVersionConflict
		return app, err
	}
	if app.Payment == nil || app.Payment.Status != models.PaymentCompleted {
		err = utils.ErrConflictingPaymentState
		return app, err
	}
	if app.Status != change.From {
		err = &utils.TransitionError{From: string(app.Status), To: string(change.To)}
		return app, err
	}

	app.Payment.VerifiedAt = &change.ChangedAt
	app.Payment.VerifiedBy = &change.ChangedBy

	payload, err := json.Marshal(app.Payment)
	if err != nil {
		return nil, err
	}
	if _, err = tx.Exec(ctx, `UPDATE applications SET payment=$1 WHERE id=$2`, payload, appID); err != nil {
		return nil, err
	}
	if err = r.writeStatus(ctx, tx, app, change); err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, baseSelectApplication()+" WHERE id=$1", appID)
	return r.scanApplication(row)
}

func (r *applicationRepo) SetDisclosurePDFURL(ctx context.Context, appID uuid.UUID, url string) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE applications SET disclosure_pdf_url=$1, updated_at=NOW() WHERE id=$2
    `, url, appID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *applicationRepo) SetLeasePDFURL(ctx context.Context, appID uuid.UUID, url string) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE applications SET lease_pdf_url=$1, updated_at=NOW() WHERE id=$2
    `, url, appID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *applicationRepo) SetSignedLeasePDFURLOnce(ctx context.Context, appID uuid.UUID, url string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
        UPDATE applications SET signed_lease_pdf_url=$1, updated_at=NOW()
        WHERE id=$2 AND signed_lease_pdf_url=''
    `, url, appID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
