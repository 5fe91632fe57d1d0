package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"

	"github.com/rentora/applications-service/internal/models"
	"github.com/rentora/applications-service/internal/utils"
)

// ---------- fake application repository ----------

type fakeAppRepo struct {
	mu   sync.Mutex
	apps map[uuid.UUID]*models.Application
}

func newFakeAppRepo() *fakeAppRepo {
	return &fakeAppRepo{apps: make(map[uuid.UUID]*models.Application)}
}

func cloneApplication(app *models.Application) *models.Application {
	cp := *app
	cp.StatusHistory = append([]models.StatusChange(nil), app.StatusHistory...)
	cp.Documents = append([]models.DocumentItem(nil), app.Documents...)
	cp.StateDisclosures = append([]models.StateDisclosureAck(nil), app.StateDisclosures...)
	if app.Score != nil {
		sc := *app.Score
		cp.Score = &sc
	}
	if app.Payment != nil {
		p := *app.Payment
		cp.Payment = &p
	}
	return &cp
}

func (r *fakeAppRepo) Create(_ context.Context, app *models.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.apps {
		if existing.ApplicantID == app.ApplicantID &&
			existing.PropertyID == app.PropertyID &&
			!existing.Status.IsTerminal() {
			return utils.ErrDuplicateResource
		}
	}
	app.RowVersion = 1
	app.CreatedAt = time.Now().UTC()
	app.UpdatedAt = app.CreatedAt
	r.apps[app.ID] = cloneApplication(app)
	return nil
}

func (r *fakeAppRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok {
		return nil, nil
	}
	return cloneApplication(app), nil
}

func (r *fakeAppRepo) GetActiveByApplicantAndProperty(_ context.Context, applicantID, propertyID uuid.UUID) (*models.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, app := range r.apps {
		if app.ApplicantID == applicantID && app.PropertyID == propertyID && !app.Status.IsTerminal() {
			return cloneApplication(app), nil
		}
	}
	return nil, nil
}

func (r *fakeAppRepo) ListByApplicant(_ context.Context, applicantID uuid.UUID) ([]*models.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Application
	for _, app := range r.apps {
		if app.ApplicantID == applicantID {
			out = append(out, cloneApplication(app))
		}
	}
	return out, nil
}

func (r *fakeAppRepo) ListByProperty(_ context.Context, propertyID uuid.UUID, statuses []models.ApplicationStatus) ([]*models.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Application
	for _, app := range r.apps {
		if app.PropertyID != propertyID {
			continue
		}
		if len(statuses) > 0 {
			match := false
			for _, s := range statuses {
				if app.Status == s {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, cloneApplication(app))
	}
	return out, nil
}

func (r *fakeAppRepo) UpdateIfVersion(_ context.Context, app *models.Application, expectedVersion int64) (pgconn.CommandTag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.apps[app.ID]
	if !ok || stored.RowVersion != expectedVersion {
		return pgconn.CommandTag("UPDATE 0"), nil
	}
	stored.PersonalInfo = app.PersonalInfo
	stored.Employment = app.Employment
	stored.RentalHistory = app.RentalHistory
	stored.Documents = append([]models.DocumentItem(nil), app.Documents...)
	stored.Legal = app.Legal
	stored.Federal = app.Federal
	stored.StateDisclosures = append([]models.StateDisclosureAck(nil), app.StateDisclosures...)
	stored.RowVersion++
	stored.UpdatedAt = time.Now().UTC()
	return pgconn.CommandTag("UPDATE 1"), nil
}

func (r *fakeAppRepo) applyStatus(app *models.Application, change models.StatusChange) {
	app.StatusHistory = append(app.StatusHistory, change)
	app.Status = change.To
	switch change.To {
	case models.StatusSubmitted:
		if app.SubmittedAt == nil {
			at := change.ChangedAt
			app.SubmittedAt = &at
		}
	case models.StatusRejected:
		app.RejectionCategory = change.Category
		app.RejectionReason = change.Reason
	case models.StatusWithdrawn:
		app.WithdrawalReason = change.Reason
	}
	app.RowVersion++
	app.UpdatedAt = time.Now().UTC()
}

func (r *fakeAppRepo) UpdateStatusAtomic(_ context.Context, appID uuid.UUID, expectedVersion int64, change models.StatusChange) (*models.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[appID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	if app.RowVersion != expectedVersion {
		return cloneApplication(app), utils.ErrRowVersionConflict
	}
	if app.Status != change.From {
		return cloneApplication(app), &utils.TransitionError{From: string(app.Status), To: string(change.To)}
	}
	r.applyStatus(app, change)
	return cloneApplication(app), nil
}

func (r *fakeAppRepo) SaveScore(_ context.Context, appID uuid.UUID, score *models.ScoreBreakdown) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[appID]
	if !ok {
		return utils.ErrNotFound
	}
	sc := *score
	app.Score = &sc
	app.RowVersion++
	return nil
}

func (r *fakeAppRepo) AttachPaymentRequestAtomic(_ context.Context, appID uuid.UUID, expectedVersion int64, pr models.PaymentRequest, change models.StatusChange) (*models.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[appID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	if app.RowVersion != expectedVersion {
		return cloneApplication(app), utils.ErrRowVersionConflict
	}
	if app.Payment != nil {
		return cloneApplication(app), utils.ErrDuplicatePaymentRequest
	}
	if app.Status != change.From {
		return cloneApplication(app), &utils.TransitionError{From: string(app.Status), To: string(change.To)}
	}
	p := pr
	app.Payment = &p
	r.applyStatus(app, change)
	return cloneApplication(app), nil
}

func (r *fakeAppRepo) SetPaymentIntentAtomic(_ context.Context, appID uuid.UUID, intentID string) (*models.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[appID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	if app.Payment == nil {
		return nil, utils.ErrNotFound
	}
	if app.Payment.PaymentIntentID != "" {
		return cloneApplication(app), utils.ErrDuplicateResource
	}
	if app.Status != models.StatusPaymentRequested {
		return cloneApplication(app), &utils.TransitionError{From: string(app.Status), To: string(models.StatusPaymentRequested)}
	}
	now := time.Now().UTC()
	app.Payment.PaymentIntentID = intentID
	app.Payment.Status = models.PaymentPending
	app.Payment.InitiatedAt = &now
	app.RowVersion++
	return cloneApplication(app), nil
}

func (r *fakeAppRepo) CompletePaymentAtomic(_ context.Context, appID uuid.UUID, intentID string, change models.StatusChange) (*models.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[appID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	if app.Payment == nil || app.Payment.PaymentIntentID == "" {
		return nil, utils.ErrNotFound
	}
	if app.Payment.PaymentIntentID != intentID {
		return cloneApplication(app), utils.ErrValidation
	}
	if app.Payment.Status != models.PaymentPending {
		return cloneApplication(app), utils.ErrConflictingPaymentState
	}
	if app.Status != change.From {
		return cloneApplication(app), &utils.TransitionError{From: string(app.Status), To: string(change.To)}
	}
	at := change.ChangedAt
	app.Payment.Status = models.PaymentCompleted
	app.Payment.CompletedAt = &at
	r.applyStatus(app, change)
	return cloneApplication(app), nil
}

func (r *fakeAppRepo) VerifyPaymentAtomic(_ context.Context, appID uuid.UUID, expectedVersion int64, change models.StatusChange) (*models.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[appID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	if app.RowVersion != expectedVersion {
		return cloneApplication(app), utils.ErrRowVersionConflict
	}
	if app.Payment == nil || app.Payment.Status != models.PaymentCompleted {
		return cloneApplication(app), utils.ErrConflictingPaymentState
	}
	if app.Status != change.From {
		return cloneApplication(app), &utils.TransitionError{From: string(app.Status), To: string(change.To)}
	}
	at := change.ChangedAt
	app.Payment.VerifiedAt = &at
	app.Payment.VerifiedBy = &change.ChangedBy
	r.applyStatus(app, change)
	return cloneApplication(app), nil
}

func (r *fakeAppRepo) SetDisclosurePDFURL(_ context.Context, appID uuid.UUID, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[appID]
	if !ok {
		return utils.ErrNotFound
	}
	app.DisclosurePDFURL = url
	return nil
}

func (r *fakeAppRepo) SetLeasePDFURL(_ context.Context, appID uuid.UUID, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[appID]
	if !ok {
		return utils.ErrNotFound
	}
	app.LeasePDFURL = url
	return nil
}

func (r *fakeAppRepo) SetSignedLeasePDFURLOnce(_ context.Context, appID uuid.UUID, url string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[appID]
	if !ok {
		return false, utils.ErrNotFound
	}
	if app.SignedLeasePDFURL != "" {
		return false, nil
	}
	app.SignedLeasePDFURL = url
	return true, nil
}

// setLeaseStatus mirrors the parent-row update the signature repository does.
func (r *fakeAppRepo) setLeaseStatus(appID uuid.UUID, status models.LeaseSignatureStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if app, ok := r.apps[appID]; ok {
		app.LeaseStatus = status
		if status == models.LeaseSigned {
			now := time.Now().UTC()
			app.LeaseSignedAt = &now
		}
	}
}

// ---------- fake lease signature repository ----------

type fakeSigRepo struct {
	mu      sync.Mutex
	appRepo *fakeAppRepo
	sigs    map[uuid.UUID][]*models.LeaseSignature
}

func newFakeSigRepo(appRepo *fakeAppRepo) *fakeSigRepo {
	return &fakeSigRepo{appRepo: appRepo, sigs: make(map[uuid.UUID][]*models.LeaseSignature)}
}

func (r *fakeSigRepo) CreateSignatureAtomic(_ context.Context, sig *models.LeaseSignature) (models.LeaseSignatureStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.sigs[sig.ApplicationID]
	if sig.SignerRole == models.SignerLandlord {
		tenantSigned := false
		for _, s := range existing {
			if s.SignerRole == models.SignerTenant {
				tenantSigned = true
				break
			}
		}
		if !tenantSigned {
			return "", utils.ErrOrderingViolation
		}
	}
	for _, s := range existing {
		if s.SignerRole == sig.SignerRole {
			return "", utils.ErrAlreadySigned
		}
	}

	cp := *sig
	r.sigs[sig.ApplicationID] = append(existing, &cp)

	status := models.LeasePartiallySigned
	if len(r.sigs[sig.ApplicationID]) >= 2 {
		status = models.LeaseSigned
	}
	r.appRepo.setLeaseStatus(sig.ApplicationID, status)
	return status, nil
}

func (r *fakeSigRepo) GetByApplicationAndRole(_ context.Context, appID uuid.UUID, role models.SignerRole) (*models.LeaseSignature, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sigs[appID] {
		if s.SignerRole == role {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeSigRepo) ListByApplication(_ context.Context, appID uuid.UUID) ([]*models.LeaseSignature, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.LeaseSignature, 0, len(r.sigs[appID]))
	for _, s := range r.sigs[appID] {
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

// ---------- fake property and user repositories ----------

type fakePropRepo struct {
	props map[uuid.UUID]*models.Property
}

func (r *fakePropRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Property, error) {
	p, ok := r.props[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakePropRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*models.Property, error) {
	var out []*models.Property
	for _, p := range r.props {
		if p.OwnerID == ownerID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeUserRepo struct {
	users map[uuid.UUID]*models.User
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

// ---------- fake audit repository ----------

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*models.AuditLog
	err     error
}

func (r *fakeAuditRepo) Create(_ context.Context, entry *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeAuditRepo) ListByTarget(_ context.Context, targetID uuid.UUID, _ int) ([]*models.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AuditLog
	for _, e := range r.entries {
		if e.TargetID == targetID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeAuditRepo) actions() []models.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.AuditAction, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

// ---------- fake notifier and document generator ----------

type fakeNotifier struct {
	mu              sync.Mutex
	statusChanges   []models.StatusChange
	newApplications int
	scoringDone     int
	paymentRequests int
	leaseSignatures int
	err             error
}

func (n *fakeNotifier) NotifyNewApplication(_ *models.User, _ *models.Application) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.newApplications++
	return nil
}

func (n *fakeNotifier) NotifyScoringComplete(_ *models.User, _ *models.Application) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.scoringDone++
	return nil
}

func (n *fakeNotifier) NotifyStatusChange(_ *models.User, _ *models.Application, change models.StatusChange) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.statusChanges = append(n.statusChanges, change)
	return nil
}

func (n *fakeNotifier) NotifyPaymentRequested(_ *models.User, _ *models.Application, _ float64, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.paymentRequests++
	return nil
}

func (n *fakeNotifier) NotifyLeaseSignature(_ *models.User, _ *models.Application, _ models.LeaseSignatureStatus) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.leaseSignatures++
	return nil
}

type fakeDocGen struct {
	mu              sync.Mutex
	disclosureCalls int
	leaseCalls      int
	signedCalls     int
	err             error
}

func (g *fakeDocGen) GenerateDisclosurePDF(_ context.Context, app *models.Application) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	g.disclosureCalls++
	return "https://docs.test/leases/" + app.ID.String() + "/disclosures.pdf", nil
}

func (g *fakeDocGen) GenerateLease(_ context.Context, app *models.Application) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	g.leaseCalls++
	return "https://docs.test/leases/" + app.ID.String() + "/lease.pdf", nil
}

func (g *fakeDocGen) GenerateSignedLease(_ context.Context, app *models.Application, _ []*models.LeaseSignature) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	g.signedCalls++
	return "https://docs.test/leases/" + app.ID.String() + "/lease-signed.pdf", nil
}

// ---------- test environment ----------

type testEnv struct {
	svc      *ApplicationService
	appRepo  *fakeAppRepo
	sigRepo  *fakeSigRepo
	audit    *fakeAuditRepo
	notifier *fakeNotifier
	docs     *fakeDocGen

	applicant *models.User
	owner     *models.User
	manager   *models.User
	admin     *models.User
	stranger  *models.User
	property  *models.Property
}

func newTestEnv() *testEnv {
	applicant := &models.User{ID: uuid.New(), Email: "tenant@example.com", Phone: "+15550001111", FirstName: "Dana", LastName: "Whitfield", Role: models.RoleTenant}
	owner := &models.User{ID: uuid.New(), Email: "owner@example.com", FirstName: "Sam", LastName: "Porter", Role: models.RoleOwner}
	manager := &models.User{ID: uuid.New(), Email: "mgr@example.com", FirstName: "Iris", LastName: "Chu", Role: models.RoleManager}
	admin := &models.User{ID: uuid.New(), Email: "admin@example.com", FirstName: "Ada", LastName: "Nair", Role: models.RoleAdmin}
	stranger := &models.User{ID: uuid.New(), Email: "other@example.com", FirstName: "Lee", LastName: "Monk", Role: models.RoleTenant}

	property := &models.Property{
		ID:          uuid.New(),
		OwnerID:     owner.ID,
		Title:       "Maple Court 2B",
		AddressLine: "12 Maple Ct",
		City:        "Austin",
		State:       "TX",
		Zip:         "78701",
		MonthlyRent: 2100,
		IsListed:    true,
	}

	userRepo := &fakeUserRepo{users: map[uuid.UUID]*models.User{
		applicant.ID: applicant,
		owner.ID:     owner,
		manager.ID:   manager,
		admin.ID:     admin,
		stranger.ID:  stranger,
	}}
	propRepo := &fakePropRepo{props: map[uuid.UUID]*models.Property{property.ID: property}}

	appRepo := newFakeAppRepo()
	sigRepo := newFakeSigRepo(appRepo)
	audit := &fakeAuditRepo{}
	notifier := &fakeNotifier{}
	docs := &fakeDocGen{}

	svc := NewApplicationService(
		appRepo,
		propRepo,
		sigRepo,
		audit,
		NewAuthorizer(userRepo),
		NewScoringService(&stubBureau{score: 780}),
		NewDisclosureRegistry(),
		docs,
		notifier,
	)

	return &testEnv{
		svc:       svc,
		appRepo:   appRepo,
		sigRepo:   sigRepo,
		audit:     audit,
		notifier:  notifier,
		docs:      docs,
		applicant: applicant,
		owner:     owner,
		manager:   manager,
		admin:     admin,
		stranger:  stranger,
		property:  property,
	}
}
