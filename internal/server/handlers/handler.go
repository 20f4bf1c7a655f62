// Package handlers adapts the services to HTTP.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kmledger/kmledger/internal/domain/errs"
	"github.com/kmledger/kmledger/internal/domain/models"
	"github.com/kmledger/kmledger/internal/service/achievements"
	"github.com/kmledger/kmledger/internal/service/alerts"
	"github.com/kmledger/kmledger/internal/service/benchmark"
	"github.com/kmledger/kmledger/internal/service/export"
	"github.com/kmledger/kmledger/internal/service/goals"
	"github.com/kmledger/kmledger/internal/service/owners"
	"github.com/kmledger/kmledger/internal/service/records"
	"github.com/kmledger/kmledger/internal/service/reporting"
	"github.com/kmledger/kmledger/internal/service/whatsapp"
)

// OwnerIDKey is the gin context key the auth middleware stores the
// authenticated owner id under.
const OwnerIDKey = "owner_id"

// Services groups everything the HTTP layer calls. Notifier is nil when
// WhatsApp is not configured.
type Services struct {
	Owners       *owners.Service
	Records      *records.Service
	Reporting    *reporting.Service
	Goals        *goals.Service
	Benchmark    *benchmark.Service
	Alerts       *alerts.Service
	Achievements *achievements.Service
	Export       *export.Service
	Notifier     *whatsapp.Notifier
}

// Handler serves the REST API.
type Handler struct {
	svc    Services
	logger *zap.Logger
	now    func() time.Time
}

// New constructs the HTTP handler adapter.
func New(svc Services, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger, now: time.Now}
}

func ownerID(c *gin.Context) string {
	return c.GetString(OwnerIDKey)
}

// Status maps an error kind to its HTTP status.
func Status(kind errs.Kind) int {
	switch kind {
	case errs.KindValidation:
		return http.StatusBadRequest
	case errs.KindUnauth:
		return http.StatusUnauthorized
	case errs.KindPermission:
		return http.StatusForbidden
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindConflict:
		return http.StatusConflict
	case errs.KindRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes err as a JSON rejection. Unclassified errors are
// logged and hidden behind a generic message.
func RespondError(c *gin.Context, logger *zap.Logger, err error) {
	e, ok := errs.As(err)
	if !ok || e.Kind == errs.KindInternal {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": errs.KindInternal})
		return
	}

	body := gin.H{"error": e.Message, "code": e.Kind}
	if e.Field != "" {
		body["field"] = e.Field
	}
	if e.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(int(e.RetryAfter.Round(time.Second).Seconds())))
	}
	c.AbortWithStatusJSON(Status(e.Kind), body)
}

func (h *Handler) fail(c *gin.Context, err error) {
	RespondError(c, h.logger, err)
}

func (h *Handler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.logger.Debug("invalid request body", zap.Error(err))
		h.fail(c, errs.Validation("body", "invalid request body"))
		return false
	}
	return true
}

// dateRange reads the optional from/to query parameters.
func dateRange(c *gin.Context) (models.DateRange, error) {
	var r models.DateRange
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"from", &r.From}, {"to", &r.To}} {
		v := c.Query(p.name)
		if v == "" {
			continue
		}
		t, err := records.ParseDate(v)
		if err != nil {
			return r, errs.Validation(p.name, "must be formatted YYYY-MM-DD")
		}
		*p.dst = &t
	}
	return r, nil
}

// Healthz reports liveness.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
