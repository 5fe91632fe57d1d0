package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/rentora/applications-service/internal/repositories"
	"github.com/rentora/applications-service/internal/utils"
)

type HealthController struct {
	db repositories.DB
}

func NewHealthController(db repositories.DB) *HealthController {
	return &HealthController{db: db}
}

// GET /healthz
func (c *HealthController) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	var one int
	if err := c.db.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusServiceUnavailable, utils.ErrCodeInternal, "database unreachable", nil, err,
		)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
