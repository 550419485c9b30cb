package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gaurav-prasanna/gtmkit/core"
	"github.com/gaurav-prasanna/gtmkit/core/export"
	"github.com/gaurav-prasanna/gtmkit/core/generate"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type resultBody struct {
	Format    string    `json:"format"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// handleResult returns the result as normalized Markdown, recomputed on
// every request.
func (s *Server) handleResult(c *gin.Context) {
	r, ok := s.lookup(c)
	if !ok {
		return
	}
	if !r.Frozen {
		c.JSON(http.StatusAccepted, gin.H{"ok": true, "orderId": r.OrderID, "status": "generating"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"orderId": r.OrderID,
		"status":  "ready",
		"result": resultBody{
			Format:    "markdown",
			Content:   s.exporter.Markdown(r.RawText),
			UpdatedAt: r.UpdatedAt,
		},
	})
}

func (s *Server) handleDownload(c *gin.Context) {
	format, err := export.ParseFormat(c.DefaultQuery("format", string(export.FormatDOCX)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "code": "UNSUPPORTED_FORMAT", "error": err.Error()})
		return
	}
	r, ok := s.lookup(c)
	if !ok {
		return
	}
	if !r.Frozen {
		c.JSON(http.StatusConflict, gin.H{"ok": false, "code": "NOT_READY"})
		return
	}

	a, err := s.exporter.Export(c.Request.Context(), r.RawText, format, core.DocumentMeta{Title: r.Title, OrderID: r.OrderID})
	if errors.Is(err, core.ErrUnsupportedFormat) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "code": "UNSUPPORTED_FORMAT", "error": err.Error()})
		return
	}
	if err != nil {
		s.logger.Error("export failed", zap.String("orderId", r.OrderID), zap.String("format", string(format)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "code": "RENDER_FAILED"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, a.Filename))
	c.Data(http.StatusOK, a.ContentType, a.Data)
}

func (s *Server) handleGenerate(c *gin.Context) {
	if s.generator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "code": "PROVIDER_UNAVAILABLE"})
		return
	}
	var req generate.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "code": "INVALID_REQUEST", "error": err.Error()})
		return
	}

	r, err := s.generator.Generate(c.Request.Context(), req)
	switch {
	case errors.Is(err, generate.ErrInvalidOrder):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "code": "INVALID_ORDER_ID"})
	case errors.Is(err, generate.ErrGenerating):
		c.JSON(http.StatusAccepted, gin.H{"ok": true, "orderId": strings.TrimSpace(req.OrderID), "status": "generating"})
	case err != nil:
		s.logger.Error("generation failed", zap.String("orderId", req.OrderID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "code": "GENERATION_FAILED"})
	default:
		c.JSON(http.StatusOK, gin.H{
			"ok":           true,
			"orderId":      r.OrderID,
			"status":       "ready",
			"resultId":     r.ID,
			"chunksCount":  r.Chunks,
			"finishReason": r.FinishReason,
		})
	}
}

// lookup loads the result named in the path, writing 404 or 500 itself.
func (s *Server) lookup(c *gin.Context) (*core.Result, bool) {
	orderID := strings.TrimSpace(c.Param("orderId"))
	r, err := s.store.Get(c.Request.Context(), orderID)
	if errors.Is(err, core.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "code": "NOT_FOUND"})
		return nil, false
	}
	if err != nil {
		s.logger.Error("loading result", zap.String("orderId", orderID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "code": "STORE_ERROR"})
		return nil, false
	}
	return r, true
}
