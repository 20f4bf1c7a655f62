package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kmledger/kmledger/internal/domain/errs"
	"github.com/kmledger/kmledger/internal/domain/models"
)

// ListAlerts returns alerts filtered by ?category, ?unread and ?limit.
func (h *Handler) ListAlerts(c *gin.Context) {
	filter := models.AlertFilter{OwnerID: ownerID(c), Category: models.AlertCategory(c.Query("category"))}
	if v := c.Query("unread"); v != "" {
		unread, err := strconv.ParseBool(v)
		if err != nil {
			h.fail(c, errs.Validation("unread", "must be true or false"))
			return
		}
		filter.Unread = &unread
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			h.fail(c, errs.Validation("limit", "must be a number"))
			return
		}
		filter.Limit = limit
	}

	out, err := h.svc.Alerts.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	if out == nil {
		out = []models.Alert{}
	}
	c.JSON(http.StatusOK, gin.H{"alerts": out})
}

// GenerateAlerts runs the alert rules now and returns the new alerts.
func (h *Handler) GenerateAlerts(c *gin.Context) {
	created, err := h.svc.Alerts.Generate(c.Request.Context(), ownerID(c), h.now())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": created})
}

// MarkAllAlertsRead flags every alert as read.
func (h *Handler) MarkAllAlertsRead(c *gin.Context) {
	n, err := h.svc.Alerts.MarkAllRead(c.Request.Context(), ownerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

// MarkAlertRead flags one alert as read.
func (h *Handler) MarkAlertRead(c *gin.Context) {
	if err := h.svc.Alerts.MarkRead(c.Request.Context(), ownerID(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteAlert removes an alert.
func (h *Handler) DeleteAlert(c *gin.Context) {
	if err := h.svc.Alerts.Delete(c.Request.Context(), ownerID(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListAchievements returns unlocked achievements.
func (h *Handler) ListAchievements(c *gin.Context) {
	out, err := h.svc.Achievements.List(c.Request.Context(), ownerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	if out == nil {
		out = []models.Achievement{}
	}
	c.JSON(http.StatusOK, gin.H{"achievements": out})
}

// CheckAchievements evaluates achievements now.
func (h *Handler) CheckAchievements(c *gin.Context) {
	unlocked, err := h.svc.Achievements.Check(c.Request.Context(), ownerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unlocked": unlocked})
}
