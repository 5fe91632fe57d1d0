package routes

const (
	// Health
	Health = "/health"

	// Applicant endpoints
	ApplicationsBase = "/api/v1/applications"
	ApplicationsMy   = "/api/v1/applications/my"
	ApplicationByID  = "/api/v1/applications/{id}"
	ApplicationDraft = "/api/v1/applications/{id}/draft"

	// Status machine
	ApplicationTransition = "/api/v1/applications/{id}/transition"

	// Review endpoints
	ApplicationScore       = "/api/v1/applications/{id}/score"
	ApplicationVerifyDoc   = "/api/v1/applications/{id}/documents/{kind}/verify"
	PropertyApplications   = "/api/v1/properties/{id}/applications"

	// Payment sub-protocol
	PaymentRequest  = "/api/v1/applications/{id}/payment/request"
	PaymentInitiate = "/api/v1/applications/{id}/payment/initiate"
	PaymentComplete = "/api/v1/applications/{id}/payment/complete"
	PaymentVerify   = "/api/v1/applications/{id}/payment/verify"

	// Lease execution
	LeaseSign        = "/api/v1/applications/{id}/lease/sign"
	LeaseSignatures  = "/api/v1/applications/{id}/lease/signatures"
	LeaseDisclosures = "/api/v1/applications/{id}/lease/disclosures"
)
