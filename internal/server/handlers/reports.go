package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kmledger/kmledger/internal/analytics"
	"github.com/kmledger/kmledger/internal/domain/errs"
	"github.com/kmledger/kmledger/internal/domain/models"
	"github.com/kmledger/kmledger/internal/service/benchmark"
	"github.com/kmledger/kmledger/internal/service/records"
)

// Stats aggregates the owner's figures over ?from and ?to.
func (h *Handler) Stats(c *gin.Context) {
	r, err := dateRange(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	stats, err := h.svc.Reporting.Stats(c.Request.Context(), ownerID(c), r)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Fiscal returns the annual tax report as JSON or, with ?format=csv, as a
// CSV attachment.
func (h *Handler) Fiscal(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		h.fail(c, errs.Validation("year", "must be a number"))
		return
	}

	if c.Query("format") == "csv" {
		var buf bytes.Buffer
		if err := h.svc.Export.FiscalCSV(c.Request.Context(), &buf, ownerID(c), year); err != nil {
			h.fail(c, err)
			return
		}
		attachment(c, fmt.Sprintf("fiscal-%d.csv", year), csvContentType, buf.Bytes())
		return
	}

	report, err := h.svc.Reporting.Fiscal(c.Request.Context(), ownerID(c), year)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Platforms compares platforms over the range.
func (h *Handler) Platforms(c *gin.Context) {
	r, err := dateRange(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	out, err := h.svc.Reporting.Platforms(c.Request.Context(), ownerID(c), r)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"platforms": out})
}

// PlatformEvolution buckets platform totals by ?granularity (default monthly).
func (h *Handler) PlatformEvolution(c *gin.Context) {
	r, err := dateRange(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	g := analytics.Granularity(c.DefaultQuery("granularity", string(analytics.GranularityMonthly)))
	out, err := h.svc.Reporting.Evolution(c.Request.Context(), ownerID(c), r, g)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"granularity": g, "points": out})
}

// Insights returns at most four advisory messages. Nothing is stored.
func (h *Handler) Insights(c *gin.Context) {
	out, err := h.svc.Alerts.Insights(c.Request.Context(), ownerID(c), h.now())
	if err != nil {
		h.fail(c, err)
		return
	}
	if out == nil {
		out = []analytics.Advice{}
	}
	c.JSON(http.StatusOK, gin.H{"insights": out})
}

type submitBenchmarkRequest struct {
	PeriodType models.PeriodType `json:"periodType"`
	Anchor     string            `json:"anchor"`
}

// SubmitBenchmark publishes the owner's anonymized metrics.
func (h *Handler) SubmitBenchmark(c *gin.Context) {
	var req submitBenchmarkRequest
	if c.Request.ContentLength != 0 && !h.bind(c, &req) {
		return
	}
	if req.PeriodType == "" {
		req.PeriodType = models.PeriodMonthly
	}
	anchor := h.now()
	if req.Anchor != "" {
		t, err := records.ParseDate(req.Anchor)
		if err != nil {
			h.fail(c, errs.Validation("anchor", "must be formatted YYYY-MM-DD"))
			return
		}
		anchor = t
	}

	entries, err := h.svc.Benchmark.Submit(c.Request.Context(), ownerID(c), req.PeriodType, anchor)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entries": len(entries)})
}

// CompareBenchmark ranks the owner against peers.
func (h *Handler) CompareBenchmark(c *gin.Context) {
	cmp, err := h.svc.Benchmark.Compare(c.Request.Context(), ownerID(c), benchmark.Query{
		Locale:      c.Query("locale"),
		VehicleType: c.Query("vehicleType"),
		Platform:    c.Query("platform"),
		PeriodType:  models.PeriodType(c.Query("periodType")),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if cmp == nil {
		c.JSON(http.StatusOK, gin.H{"insufficientData": true})
		return
	}
	c.JSON(http.StatusOK, cmp)
}

// WithdrawBenchmark deletes the owner's published entries.
func (h *Handler) WithdrawBenchmark(c *gin.Context) {
	n, err := h.svc.Benchmark.Withdraw(c.Request.Context(), ownerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}
