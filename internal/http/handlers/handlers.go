package handlers

import (
	"encoding/csv"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/churnhealth/backend/internal/delivery"
	"github.com/churnhealth/backend/internal/models"
	"github.com/churnhealth/backend/internal/report"
	"github.com/churnhealth/backend/internal/scoring"
	"github.com/churnhealth/backend/internal/service"
	"github.com/churnhealth/backend/internal/session"
)

type Handler struct {
	Sessions  *session.Store
	Scorer    *scoring.Scorer
	Outreach  *service.OutreachService
	Webhook   *delivery.WebhookDispatcher
	Validator *validator.Validate
	Logger    zerolog.Logger
	AdminKey  string
	TopN      int
}

// UploadSummary is the response of a successful upload.
type UploadSummary struct {
	BatchID  string            `json:"batch_id"`
	Filename string            `json:"filename"`
	Rows     int               `json:"rows"`
	ParseErr []string          `json:"parse_errors,omitempty"`
	Top      []TopRiskCustomer `json:"top_risk"`
}

// TopRiskCustomer is the dashboard preview row for one high-risk customer.
type TopRiskCustomer struct {
	CustomerID  string  `json:"customer_id"`
	Email       string  `json:"email"`
	Complaint   string  `json:"complaint"`
	HealthScore float64 `json:"health_score"`
	Rank        int     `json:"rank"`
	RiskLevel   string  `json:"risk_level"`
}

// Healthz reports liveness plus classifier readiness: the loaded model
// version when it exposes one, "ready" otherwise.
func (h *Handler) Healthz(c *gin.Context) {
	model := "unavailable"
	if h.Scorer != nil && h.Scorer.Classifier != nil {
		model = "ready"
		if v, ok := h.Scorer.Classifier.(interface{ Version() string }); ok && v.Version() != "" {
			model = v.Version()
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "model": model})
}

// @Summary Upload a customer CSV
// @Description Upload one customer table, score it with the churn model and rank the highest-risk customers
// @Tags batches
// @Accept multipart/form-data
// @Produce json
// @Param customers formData file true "customers.csv"
// @Success 200 {object} UploadSummary
// @Failure 400 {object} map[string]any
// @Router /api/upload [post]
func (h *Handler) Upload(c *gin.Context) {
	file, err := c.FormFile("customers")
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "customers file required", nil)
		return
	}
	if !validateExt(file.Filename) {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "file must be .csv", nil)
		return
	}

	batch, parseErrs := parseCustomersCSV(file)
	if len(batch.Records) == 0 {
		writeError(c, http.StatusBadRequest, "CSV_PARSE_ERROR", "no parseable rows in file", parseErrs)
		return
	}

	scored, err := h.Scorer.Score(c.Request.Context(), batch)
	if err != nil {
		h.Logger.Error().Err(err).Str("filename", batch.Filename).Msg("scoring failed")
		writeError(c, http.StatusUnprocessableEntity, "SCORING_ERROR", "Classifier rejected the uploaded table", err.Error())
		return
	}

	top := scoring.TopN(scored, h.TopN)
	h.Sessions.Put(&session.Entry{
		Batch:  batch,
		Scored: scored,
		Top:    top,
	})

	summary := UploadSummary{
		BatchID:  batch.ID,
		Filename: batch.Filename,
		Rows:     len(scored),
		ParseErr: parseErrs,
		Top:      previewRows(top),
	}
	c.JSON(http.StatusOK, summary)
}

// @Summary Full scored table
// @Tags batches
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} map[string]any
// @Router /api/batches/{id} [get]
func (h *Handler) BatchDetails(c *gin.Context) {
	entry, ok := h.Sessions.Get(c.Param("id"))
	if !ok {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Batch not found", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"batch_id": entry.Batch.ID,
		"filename": entry.Batch.Filename,
		"columns":  entry.Batch.Columns,
		"records":  entry.Scored,
	})
}

// @Summary Top-risk customers
// @Tags batches
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} map[string]any
// @Router /api/batches/{id}/top [get]
func (h *Handler) BatchTop(c *gin.Context) {
	entry, ok := h.Sessions.Get(c.Param("id"))
	if !ok {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Batch not found", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": previewRows(entry.Top)})
}

// @Summary Download the scored table as CSV
// @Tags batches
// @Produce text/csv
// @Param id path string true "Batch ID"
// @Success 200 {string} string
// @Router /api/batches/{id}/export [get]
func (h *Handler) BatchExport(c *gin.Context) {
	entry, ok := h.Sessions.Get(c.Param("id"))
	if !ok {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Batch not found", nil)
		return
	}
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="health_scores.csv"`)
	if err := report.WriteCSV(c.Writer, entry.Batch.Columns, entry.Scored); err != nil {
		h.Logger.Error().Err(err).Msg("csv export failed")
	}
}

// @Summary Delivery report for a batch
// @Tags outreach
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} models.DeliveryReport
// @Router /api/batches/{id}/report [get]
func (h *Handler) BatchReport(c *gin.Context) {
	if _, ok := h.Sessions.Get(c.Param("id")); !ok {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Batch not found", nil)
		return
	}
	rep, done := h.Sessions.DispatchedReport(c.Param("id"))
	if !done {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "No outreach pass recorded for this batch", nil)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// @Summary Generate retention email drafts
// @Description Compose one reviewable email per top-risk customer
// @Tags outreach
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} map[string]any
// @Router /api/batches/{id}/outreach/generate [post]
func (h *Handler) OutreachGenerate(c *gin.Context) {
	drafts, failures, err := h.Outreach.GenerateDrafts(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrBatchNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Batch not found", nil)
			return
		}
		if errors.Is(err, service.ErrGenerationNotAvailable) {
			writeError(c, http.StatusConflict, "GENERATION_DISABLED", "Email generation is not configured; set ASSISTANT_BASE_URL and ASSISTANT_MODEL", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "GENERATION_ERROR", "Draft generation failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"drafts": drafts, "failures": failures})
}

type DispatchRequest struct {
	WebhookURL string `json:"webhook_url" validate:"omitempty,url"`
}

// @Summary Run the outreach pass
// @Description Dispatch to the top-risk customers with the configured strategy; a repeat call replays the recorded report without re-sending
// @Tags outreach
// @Accept json
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} service.PassSummary
// @Router /api/batches/{id}/outreach/dispatch [post]
func (h *Handler) OutreachDispatch(c *gin.Context) {
	var req DispatchRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
			return
		}
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	var (
		summary service.PassSummary
		err     error
	)
	if req.WebhookURL != "" {
		if h.Webhook == nil {
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "webhook_url override requires DELIVERY_MODE=webhook", nil)
			return
		}
		summary, err = h.Outreach.RunPassWith(c.Request.Context(), c.Param("id"), h.Webhook.WithURL(req.WebhookURL))
	} else {
		summary, err = h.Outreach.RunPass(c.Request.Context(), c.Param("id"))
	}
	if err != nil {
		if errors.Is(err, service.ErrBatchNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Batch not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DISPATCH_ERROR", "Outreach pass failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, summary)
}

func previewRows(top []models.ScoredRecord) []TopRiskCustomer {
	out := make([]TopRiskCustomer, 0, len(top))
	for _, rec := range top {
		out = append(out, TopRiskCustomer{
			CustomerID:  rec.ID,
			Email:       rec.Email,
			Complaint:   rec.Complaint,
			HealthScore: rec.HealthScore,
			Rank:        rec.Rank,
			RiskLevel:   rec.RiskLevel,
		})
	}
	return out
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// parseCustomersCSV reads the uploaded table with its open-ended column
// set. Column order is preserved for export; email and complaint are
// matched case-insensitively; a missing customerID column yields
// zero-based sequence-index IDs.
func parseCustomersCSV(file *multipart.FileHeader) (*models.Batch, []string) {
	batch := &models.Batch{
		Filename: file.Filename,
		Uploaded: time.Now().UTC(),
	}

	f, err := file.Open()
	if err != nil {
		return batch, []string{err.Error()}
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	headers, err := reader.Read()
	if err != nil {
		return batch, []string{"failed to read header"}
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(strings.ReplaceAll(headers[i], "\ufeff", ""))
	}
	batch.Columns = headers
	index := headerIndex(headers)

	_, hasID := index[normalizeHeader(models.ColCustomerID)]
	var errs []string

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}

		values := make(map[string]string, len(headers))
		for i, col := range headers {
			if i < len(rec) {
				values[col] = strings.TrimSpace(rec[i])
			} else {
				values[col] = ""
			}
		}

		id := getField(rec, index, normalizeHeader(models.ColCustomerID))
		if !hasID || id == "" {
			id = strconv.Itoa(len(batch.Records))
		}

		batch.Records = append(batch.Records, models.CustomerRecord{
			ID:        id,
			Email:     getField(rec, index, normalizeHeader(models.ColEmail)),
			Complaint: getField(rec, index, normalizeHeader(models.ColComplaint)),
			Values:    values,
		})
	}

	batch.ID = session.BatchID(batch.Filename, len(batch.Records))
	return batch, errs
}

func headerIndex(headers []string) map[string]int {
	idx := map[string]int{}
	for i, h := range headers {
		idx[normalizeHeader(h)] = i
	}
	return idx
}

func getField(rec []string, idx map[string]int, name string) string {
	pos, ok := idx[name]
	if !ok || pos >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[pos])
}

func normalizeHeader(h string) string {
	h = strings.ReplaceAll(h, "\ufeff", "")
	return strings.ToLower(strings.TrimSpace(h))
}

func validateExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".csv"
}
