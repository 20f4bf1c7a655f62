package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kmledger/kmledger/internal/analytics"
	"github.com/kmledger/kmledger/internal/domain/models"
	"github.com/kmledger/kmledger/internal/service/goals"
)

// ListGoals returns the owner's goals, optionally filtered by ?type.
func (h *Handler) ListGoals(c *gin.Context) {
	out, err := h.svc.Goals.List(c.Request.Context(), ownerID(c), models.PeriodType(c.Query("type")))
	if err != nil {
		h.fail(c, err)
		return
	}
	if out == nil {
		out = []models.Goal{}
	}
	c.JSON(http.StatusOK, gin.H{"goals": out})
}

// CreateGoal stores a goal.
func (h *Handler) CreateGoal(c *gin.Context) {
	var in goals.CreateInput
	if !h.bind(c, &in) {
		return
	}
	goal, err := h.svc.Goals.Create(c.Request.Context(), ownerID(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, goal)
}

// GoalProgress reports the progress of the active goal. ?type defaults to
// monthly; custom periods read their window from ?from and ?to.
func (h *Handler) GoalProgress(c *gin.Context) {
	period := models.PeriodType(c.DefaultQuery("type", string(models.PeriodMonthly)))

	var custom *analytics.Window
	if period == models.PeriodCustom {
		r, err := dateRange(c)
		if err != nil {
			h.fail(c, err)
			return
		}
		if r.From != nil && r.To != nil {
			custom = &analytics.Window{Start: *r.From, End: *r.To}
		}
	}

	progress, err := h.svc.Goals.Progress(c.Request.Context(), ownerID(c), period, h.now(), custom)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

// UpdateGoal changes the target value or achieved flag.
func (h *Handler) UpdateGoal(c *gin.Context) {
	var in goals.UpdateInput
	if !h.bind(c, &in) {
		return
	}
	goal, err := h.svc.Goals.Update(c.Request.Context(), ownerID(c), c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, goal)
}

// DeleteGoal removes a goal.
func (h *Handler) DeleteGoal(c *gin.Context) {
	if err := h.svc.Goals.Delete(c.Request.Context(), ownerID(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
