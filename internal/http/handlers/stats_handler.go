package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yournote/go-diary-backend/internal/repo"
	"github.com/yournote/go-diary-backend/internal/utils"
)

// StatsOverview godoc
// @ID          statsOverview
// @Summary     Aggregate statistics across accounts
// @Description Per-account diary counts and last sync outcome, plus global totals and recent sync activity inside the window.
// @Tags        Stats
// @Produce     json
//
// @Param       window_hours  query  int  false  "Recent-activity window"  default(24)
//
// @Success     200  {object}  repo.Overview
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /stats/overview [get]
func (h *Handlers) StatsOverview(c *gin.Context) {
	windowHours := utils.AtoiDefault(c.Query("window_hours"), 24)
	overview, err := repo.GetOverview(c.Request.Context(), h.db, windowHours)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeQueryFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, overview)
}
