package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rentora/applications-service/internal/dtos"
	"github.com/rentora/applications-service/internal/services"
	"github.com/rentora/applications-service/internal/utils"
)

type PaymentsController struct {
	appService *services.ApplicationService
}

func NewPaymentsController(as *services.ApplicationService) *PaymentsController {
	return &PaymentsController{appService: as}
}

// ----------------------------------------------------------------
// POST /api/v1/applications/{id}/payment/request
// ----------------------------------------------------------------
func (c *PaymentsController) RequestPaymentHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorIDFromContext(w, r)
	if !ok {
		return
	}
	appID, ok := pathUUID(w, mux.Vars(r)["id"])
	if !ok {
		return
	}

	var req dtos.RequestPaymentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := c.appService.RequestPayment(r.Context(), actorID, appID, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// ----------------------------------------------------------------
// POST /api/v1/applications/{id}/payment/initiate
// ----------------------------------------------------------------
func (c *PaymentsController) InitiatePaymentHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorIDFromContext(w, r)
	if !ok {
		return
	}
	appID, ok := pathUUID(w, mux.Vars(r)["id"])
	if !ok {
		return
	}

	resp, err := c.appService.InitiatePayment(r.Context(), actorID, appID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// ----------------------------------------------------------------
// POST /api/v1/applications/{id}/payment/complete
// ----------------------------------------------------------------
func (c *PaymentsController) CompletePaymentHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorIDFromContext(w, r)
	if !ok {
		return
	}
	appID, ok := pathUUID(w, mux.Vars(r)["id"])
	if !ok {
		return
	}

	var req dtos.CompletePaymentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := c.appService.CompletePayment(r.Context(), actorID, appID, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// ----------------------------------------------------------------
// POST /api/v1/applications/{id}/payment/verify
// ----------------------------------------------------------------
func (c *PaymentsController) VerifyPaymentHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorIDFromContext(w, r)
	if !ok {
		return
	}
	appID, ok := pathUUID(w, mux.Vars(r)["id"])
	if !ok {
		return
	}

	var req dtos.VerifyPaymentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := c.appService.VerifyPayment(r.Context(), actorID, appID, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}
