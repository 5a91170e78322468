package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"go-face-verifier/internal/config"
	apperrors "go-face-verifier/internal/errors"
	"go-face-verifier/internal/logger"
	"go-face-verifier/internal/service"
	"go-face-verifier/pkg/models"
)

// multipartOverhead leaves room for form boundaries and small fields next to
// the image parts.
const multipartOverhead = 1 << 20

type handler struct {
	svc service.VerificationService
	cfg *config.Config
}

func NewHandler(svc service.VerificationService, cfg *config.Config) http.Handler {
	r := gin.Default()
	h := &handler{svc: svc, cfg: cfg}

	// The compare route carries two images.
	r.Use(
		requestSizeLimiter(2*cfg.MaxRequestBodySize+multipartOverhead),
		errorHandler(),
	)

	r.GET("/health", healthCheck)

	v1 := r.Group("/v1")
	v1.GET("/capabilities", h.capabilities)
	v1.GET("/stats", h.stats)
	v1.POST("/faces/detect", h.detect)
	v1.POST("/faces/extract", h.extract)
	v1.POST("/faces/compare", h.compare)
	v1.POST("/faces/compare-url", h.compareURL)
	v1.POST("/documents/reconcile", h.reconcile)

	return r
}

func (h *handler) withTimeout(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
}

func logRequest(c *gin.Context, msg string) {
	logger.WithFields(logrus.Fields{
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"user_agent": c.Request.UserAgent(),
		"ip":         c.ClientIP(),
	}).Info(msg)
}

func (h *handler) capabilities(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Capabilities())
}

func (h *handler) stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Stats())
}

func (h *handler) detect(c *gin.Context) {
	logRequest(c, "Processing face detection request")
	data, err := readPart(c, "image", h.cfg.MaxRequestBodySize)
	if err != nil {
		respondAppError(c, err)
		return
	}
	ctx, cancel := h.withTimeout(c)
	defer cancel()

	resp, err := h.svc.DetectFaces(ctx, data)
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) extract(c *gin.Context) {
	logRequest(c, "Processing face extraction request")
	data, err := readPart(c, "image", h.cfg.MaxRequestBodySize)
	if err != nil {
		respondAppError(c, err)
		return
	}
	persist, _ := strconv.ParseBool(c.DefaultQuery("persist", "false"))
	ctx, cancel := h.withTimeout(c)
	defer cancel()

	resp, err := h.svc.ExtractFace(ctx, data, persist)
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) compare(c *gin.Context) {
	startTime := time.Now()
	logRequest(c, "Processing face comparison request")

	portrait, err := readPart(c, "portrait", h.cfg.MaxRequestBodySize)
	if err != nil {
		respondAppError(c, err)
		return
	}
	document, err := readPart(c, "document", h.cfg.MaxRequestBodySize)
	if err != nil {
		respondAppError(c, err)
		return
	}

	opts := h.svc.Options()
	if method := c.PostForm("method"); method != "" {
		opts = opts.WithMethod(method)
	}
	if raw := c.PostForm("threshold"); raw != "" {
		threshold, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			respondAppError(c, apperrors.NewValidationError("Invalid threshold", err))
			return
		}
		opts = opts.WithThreshold(threshold)
	}

	ctx, cancel := h.withTimeout(c)
	defer cancel()
	resp, err := h.svc.CompareImages(ctx, portrait, document, opts)
	if err != nil {
		respondAppError(c, err)
		return
	}

	logger.WithFields(logrus.Fields{
		"processing_time_ms": time.Since(startTime).Milliseconds(),
		"compared":           resp.Result.Compared(),
	}).Info("Face comparison request completed")
	c.JSON(http.StatusOK, resp)
}

func (h *handler) compareURL(c *gin.Context) {
	logRequest(c, "Processing URL face comparison request")
	var req models.CompareURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondAppError(c, apperrors.NewValidationError("Invalid request format", err))
		return
	}
	ctx, cancel := h.withTimeout(c)
	defer cancel()

	resp, err := h.svc.CompareURLs(ctx, req)
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) reconcile(c *gin.Context) {
	logRequest(c, "Processing document reconciliation request")
	var req models.ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondAppError(c, apperrors.NewValidationError("Invalid request format", err))
		return
	}
	ctx, cancel := h.withTimeout(c)
	defer cancel()

	report, err := h.svc.Reconcile(ctx, req)
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// readPart reads one multipart file field, refusing parts above limit.
func readPart(c *gin.Context, field string, limit int64) ([]byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, apperrors.NewValidationError("Request body too large", err)
		}
		return nil, apperrors.NewValidationError(fmt.Sprintf("Missing %q image", field), err)
	}
	if fh.Size > limit {
		return nil, apperrors.NewValidationError("Image is too large", nil).
			WithDetails(fmt.Sprintf("%s: %d bytes exceeds %d", field, fh.Size, limit))
	}
	return readFile(fh)
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, apperrors.NewValidationError("Unreadable upload", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, apperrors.NewValidationError("Unreadable upload", err)
	}
	return data, nil
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			respondAppError(c, c.Errors.Last().Err)
		}
	}
}

func determineStatusCode(err error) int {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondAppError(c *gin.Context, err error) {
	code := determineStatusCode(err)
	message := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
		if appErr.Details != "" {
			message = fmt.Sprintf("%s (%s)", message, appErr.Details)
		}
	}

	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: message,
	})
}
