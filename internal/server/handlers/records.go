package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kmledger/kmledger/internal/domain/models"
	"github.com/kmledger/kmledger/internal/service/records"
)

// ListRecords returns records in the optional range and platform.
func (h *Handler) ListRecords(c *gin.Context) {
	r, err := dateRange(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	out, err := h.svc.Records.ListRecords(c.Request.Context(), ownerID(c), r, c.Query("platform"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if out == nil {
		out = []models.DailyRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"records": out})
}

// CreateRecord stores a daily record.
func (h *Handler) CreateRecord(c *gin.Context) {
	var in records.RecordInput
	if !h.bind(c, &in) {
		return
	}
	rec, err := h.svc.Records.CreateRecord(c.Request.Context(), ownerID(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// GetRecord returns one record.
func (h *Handler) GetRecord(c *gin.Context) {
	rec, err := h.svc.Records.GetRecord(c.Request.Context(), ownerID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// UpdateRecord replaces a record's writable fields.
func (h *Handler) UpdateRecord(c *gin.Context) {
	var in records.RecordInput
	if !h.bind(c, &in) {
		return
	}
	rec, err := h.svc.Records.UpdateRecord(c.Request.Context(), ownerID(c), c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// DeleteRecord removes a record.
func (h *Handler) DeleteRecord(c *gin.Context) {
	if err := h.svc.Records.DeleteRecord(c.Request.Context(), ownerID(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListFuelLogs returns fuel logs in range.
func (h *Handler) ListFuelLogs(c *gin.Context) {
	r, err := dateRange(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	out, err := h.svc.Records.ListFuelLogs(c.Request.Context(), ownerID(c), r)
	if err != nil {
		h.fail(c, err)
		return
	}
	if out == nil {
		out = []models.FuelLog{}
	}
	c.JSON(http.StatusOK, gin.H{"fuelLogs": out})
}

// CreateFuelLog stores a refuelling.
func (h *Handler) CreateFuelLog(c *gin.Context) {
	var in records.FuelLogInput
	if !h.bind(c, &in) {
		return
	}
	log, err := h.svc.Records.CreateFuelLog(c.Request.Context(), ownerID(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, log)
}

// DeleteFuelLog removes a fuel log.
func (h *Handler) DeleteFuelLog(c *gin.Context) {
	if err := h.svc.Records.DeleteFuelLog(c.Request.Context(), ownerID(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListMaintenances returns maintenance logs in range.
func (h *Handler) ListMaintenances(c *gin.Context) {
	r, err := dateRange(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	out, err := h.svc.Records.ListMaintenances(c.Request.Context(), ownerID(c), r)
	if err != nil {
		h.fail(c, err)
		return
	}
	if out == nil {
		out = []models.Maintenance{}
	}
	c.JSON(http.StatusOK, gin.H{"maintenances": out})
}

// CreateMaintenance stores a maintenance log.
func (h *Handler) CreateMaintenance(c *gin.Context) {
	var in records.MaintenanceInput
	if !h.bind(c, &in) {
		return
	}
	m, err := h.svc.Records.CreateMaintenance(c.Request.Context(), ownerID(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// DeleteMaintenance removes a maintenance log.
func (h *Handler) DeleteMaintenance(c *gin.Context) {
	if err := h.svc.Records.DeleteMaintenance(c.Request.Context(), ownerID(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
