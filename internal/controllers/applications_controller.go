package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rentora/applications-service/internal/dtos"
	"github.com/rentora/applications-service/internal/models"
	"github.com/rentora/applications-service/internal/services"
	"github.com/rentora/applications-service/internal/utils"
)

type ApplicationsController struct {
	appService *services.ApplicationService
}

func NewApplicationsController(as *services.ApplicationService) *ApplicationsController {
	return &ApplicationsController{appService: as}
}

// ----------------------------------------------------------------
// POST /api/v1/applications
// ----------------------------------------------------------------
func (c *ApplicationsController) CreateApplicationHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorIDFromContext(w, r)
	if !ok {
		return
	}

	var req dtos.CreateApplicationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := c.appService.CreateApplication(r.Context(), actorID, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, resp)
}

// ----------------------------------------------------------------
// GET /api/v1/applications/{id}
// ----------------------------------------------------------------
func (c *ApplicationsController) GetApplicationHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorIDFromContext(w, r)
	if !ok {
		return
	}
	appID, ok := pathUUID(w, mux.Vars(r)["id"])
	if !ok {
		return
	}

	resp, err := c.appService.GetApplication(r.Context(), actorID, appID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// ----------------------------------------------------------------
// GET /api/v1/applications/my
// ----------------------------------------------------------------
func (c *ApplicationsController) ListMyApplicationsHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorIDFromContext(w, r)
	if !ok {
		return
	}

	resp, err := c.appService.ListMyApplications(r.Context(), actorID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// ----------------------------------------------------------------
// GET /api/v1/properties/{id}/applications?status=submitted,under_review
// ----------------------------------------------------------------
func (c *ApplicationsController) ListPropertyApplicationsHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorIDFromContext(w, r)
	if !ok {
		return
	}
	propertyID, ok := pathUUID(w, mux.Vars(r)["id"])
	if !ok {
		return
	}

	var statuses []models.ApplicationStatus
	for _, s := range r.URL.Query()["status"] {
		statuses = append(statuses, models.ApplicationStatus(s))
	}

	resp, err := c.appService.ListPropertyApplications(r.Context(), actorID, propertyID, statuses)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// ----------------------------------------------------------------
// PATCH /api/v1/applications/{id}/draft
// ----------------------------------------------------------------
func (c *ApplicationsController) UpdateDraftHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorIDFromContext(w, r)
	if !ok {
		return
	}
	appID, ok := pathUUID(w, mux.Vars(r)["id"])
	if !ok {
		return
	}

	var req dtos.DraftUpdateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := c.appService.UpdateDraft(r.Context(), actorID, appID, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// ----------------------------------------------------------------
// POST /api/v1/applications/{id}/transition
// ----------------------------------------------------------------
func (c *ApplicationsController) TransitionHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorIDFromContext(w, r)
	if !ok {
		return
	}
	appID, ok := pathUUID(w, mux.Vars(r)["id"])
	if !ok {
		return
	}

	var req dtos.TransitionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := c.appService.Transition(r.Context(), actorID, appID, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// ----------------------------------------------------------------
// POST /api/v1/applications/{id}/score
// ----------------------------------------------------------------
func (c *ApplicationsController) ScoreApplicationHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorIDFromContext(w, r)
	if !ok {
		return
	}
	appID, ok := pathUUID(w, mux.Vars(r)["id"])
	if !ok {
		return
	}

	breakdown, err := c.appService.ScoreApplication(r.Context(), actorID, appID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, breakdown)
}

// ----------------------------------------------------------------
// POST /api/v1/applications/{id}/documents/{kind}/verify
// ----------------------------------------------------------------
func (c *ApplicationsController) VerifyDocumentHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorIDFromContext(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	appID, ok := pathUUID(w, vars["id"])
	if !ok {
		return
	}

	resp, err := c.appService.VerifyDocument(r.Context(), actorID, appID, vars["kind"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}
