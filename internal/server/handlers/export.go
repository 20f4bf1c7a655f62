package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kmledger/kmledger/internal/domain/errs"
	"github.com/kmledger/kmledger/internal/service/export"
)

const (
	csvContentType  = "text/csv; charset=utf-8"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxUploadBytes  = 10 << 20
)

func attachment(c *gin.Context, filename, contentType string, data []byte) {
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, contentType, data)
}

// Export downloads records in range as ?format=csv (default) or xlsx.
func (h *Handler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.DefaultQuery("format", string(export.FormatCSV)))
	if err != nil {
		h.fail(c, err)
		return
	}
	r, err := dateRange(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := h.svc.Export.Export(c.Request.Context(), &buf, ownerID(c), r, format); err != nil {
		h.fail(c, err)
		return
	}
	contentType := csvContentType
	if format == export.FormatXLSX {
		contentType = xlsxContentType
	}
	attachment(c, fmt.Sprintf("registros-%s.%s", h.now().Format("20060102"), format), contentType, buf.Bytes())
}

// Import creates records from an uploaded "file". The format comes from
// ?format or the file extension.
func (h *Handler) Import(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	header, err := c.FormFile("file")
	if err != nil {
		h.fail(c, errs.Validation("file", "is required"))
		return
	}

	name := c.Query("format")
	if name == "" {
		name = strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), ".")
	}
	format, err := export.ParseFormat(name)
	if err != nil {
		h.fail(c, err)
		return
	}

	f, err := header.Open()
	if err != nil {
		h.fail(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer f.Close()

	result, err := h.svc.Export.Import(c.Request.Context(), ownerID(c), f, format)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// PushToSheet appends records in range to the owner's spreadsheet.
func (h *Handler) PushToSheet(c *gin.Context) {
	r, err := dateRange(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	n, err := h.svc.Export.PushToSheet(c.Request.Context(), ownerID(c), r)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": n})
}

// ImportFromSheet creates records from the owner's spreadsheet.
func (h *Handler) ImportFromSheet(c *gin.Context) {
	result, err := h.svc.Export.ImportFromSheet(c.Request.Context(), ownerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
