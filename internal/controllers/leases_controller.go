package controllers

import (
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/rentora/applications-service/internal/dtos"
	"github.com/rentora/applications-service/internal/services"
	"github.com/rentora/applications-service/internal/utils"
)

type LeasesController struct {
	appService *services.ApplicationService
}

func NewLeasesController(as *services.ApplicationService) *LeasesController {
	return &LeasesController{appService: as}
}

// ----------------------------------------------------------------
// POST /api/v1/applications/{id}/lease/sign
// ----------------------------------------------------------------
func (c *LeasesController) SignLeaseHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorIDFromContext(w, r)
	if !ok {
		return
	}
	appID, ok := pathUUID(w, mux.Vars(r)["id"])
	if !ok {
		return
	}

	var req dtos.SignLeaseRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := c.appService.SignLease(r.Context(), actorID, appID, req, clientIP(r), r.UserAgent())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, resp)
}

// ----------------------------------------------------------------
// GET /api/v1/applications/{id}/lease/signatures
// ----------------------------------------------------------------
func (c *LeasesController) ListSignaturesHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorIDFromContext(w, r)
	if !ok {
		return
	}
	appID, ok := pathUUID(w, mux.Vars(r)["id"])
	if !ok {
		return
	}

	resp, err := c.appService.ListLeaseSignatures(r.Context(), actorID, appID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// ----------------------------------------------------------------
// GET /api/v1/applications/{id}/lease/disclosures
// ----------------------------------------------------------------
func (c *LeasesController) ListDisclosuresHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorIDFromContext(w, r)
	if !ok {
		return
	}
	appID, ok := pathUUID(w, mux.Vars(r)["id"])
	if !ok {
		return
	}

	resp, err := c.appService.RequiredDisclosuresForApplication(r.Context(), actorID, appID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
