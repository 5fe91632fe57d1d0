package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/go-playground/validator/v10"

	"github.com/rentora/applications-service/internal/middleware"
	"github.com/rentora/applications-service/internal/utils"
)

var validate = validator.New()

// actorIDFromContext pulls the authenticated user out of the request context.
func actorIDFromContext(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	ctxUserID := r.Context().Value(middleware.ContextKeyUserID)
	if ctxUserID == nil {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "No userID in context", nil, nil,
		)
		return uuid.Nil, false
	}
	actorID, err := uuid.Parse(ctxUserID.(string))
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Malformed userID in context", nil, err,
		)
		return uuid.Nil, false
	}
	return actorID, true
}

// decodeAndValidate decodes the JSON body into dst and runs struct validation.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid JSON payload", nil, err,
		)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		details := map[string]string{}
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			for _, fe := range vErrs {
				details[fe.Field()] = fe.Tag()
			}
		}
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Request validation failed", details, err,
		)
		return false
	}
	return true
}

// respondServiceError translates service sentinels into HTTP responses.
func respondServiceError(w http.ResponseWriter, err error) {
	var missing *utils.MissingFieldError
	switch {
	case errors.As(err, &missing):
		utils.RespondErrorWithCode(
			w, http.StatusUnprocessableEntity, utils.ErrCodeValidation, missing.Error(),
			map[string]string{"field": missing.Field}, err,
		)
	case errors.Is(err, utils.ErrNotFound):
		utils.RespondErrorWithCode(
			w, http.StatusNotFound, utils.ErrCodeNotFound, "Resource not found", nil, err,
		)
	case errors.Is(err, utils.ErrRoleNotAuthorized):
		utils.RespondErrorWithCode(
			w, http.StatusForbidden, utils.ErrCodeForbidden, "Not authorized for this action", nil, err,
		)
	case errors.Is(err, utils.ErrInvalidTransition):
		utils.RespondErrorWithCode(
			w, http.StatusConflict, utils.ErrCodeInvalidTransition, err.Error(), nil, err,
		)
	case errors.Is(err, utils.ErrDuplicatePaymentRequest):
		utils.RespondErrorWithCode(
			w, http.StatusConflict, utils.ErrCodeDuplicateResource, "A payment request already exists", nil, err,
		)
	case errors.Is(err, utils.ErrDuplicateResource):
		utils.RespondErrorWithCode(
			w, http.StatusConflict, utils.ErrCodeDuplicateResource, "Resource already exists", nil, err,
		)
	case errors.Is(err, utils.ErrAlreadySigned):
		utils.RespondErrorWithCode(
			w, http.StatusConflict, utils.ErrCodeDuplicateResource, "This party has already signed", nil, err,
		)
	case errors.Is(err, utils.ErrOrderingViolation):
		utils.RespondErrorWithCode(
			w, http.StatusConflict, utils.ErrCodeOrderingViolation, "The tenant must sign before the landlord", nil, err,
		)
	case errors.Is(err, utils.ErrDisclosureNotAcknowledged):
		utils.RespondErrorWithCode(
			w, http.StatusUnprocessableEntity, utils.ErrCodeValidation, "All required disclosures must be acknowledged", nil, err,
		)
	case errors.Is(err, utils.ErrConflictingPaymentState):
		utils.RespondErrorWithCode(
			w, http.StatusConflict, utils.ErrCodeConflict, "Payment is not in the required state", nil, err,
		)
	case errors.Is(err, utils.ErrRowVersionConflict):
		utils.RespondErrorWithCode(
			w, http.StatusConflict, utils.ErrCodeRowVersionConflict, "The application was modified concurrently, reload and retry", nil, err,
		)
	case errors.Is(err, utils.ErrValidation):
		utils.RespondErrorWithCode(
			w, http.StatusUnprocessableEntity, utils.ErrCodeValidation, err.Error(), nil, err,
		)
	case errors.Is(err, utils.ErrExternalServiceFailure):
		utils.RespondErrorWithCode(
			w, http.StatusBadGateway, utils.ErrCodeInternal, "An upstream dependency failed", nil, err,
		)
	default:
		utils.Logger.WithError(err).Error("Unhandled service error")
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal, "An unexpected error occurred", nil, err,
		)
	}
}

// pathUUID parses a {param} route variable as a UUID.
func pathUUID(w http.ResponseWriter, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Malformed ID in path", nil, err,
		)
		return uuid.Nil, false
	}
	return id, true
}
