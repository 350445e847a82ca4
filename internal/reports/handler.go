package reports

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"labreport-backend/internal/labdata"
	"labreport-backend/internal/llm"
	"labreport-backend/internal/presentation"
	"labreport-backend/internal/shared/server/middleware"
	"labreport-backend/internal/shared/server/respond"
)

const (
	defaultMaxUploadBytes = 20 << 20
	maxBatchItems         = 50
)

// Handler wires HTTP handlers to the report service.
type Handler struct {
	Svc            *Service
	Batch          BatchOptions
	MaxUploadBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, batch BatchOptions) *Handler {
	return &Handler{Svc: svc, Batch: batch, MaxUploadBytes: defaultMaxUploadBytes}
}

// RegisterRoutes attaches report routes to a group that already runs the
// session middleware.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/reports", bindContext)
	g.POST("", h.upload)
	g.GET("", h.list)
	g.GET("/summary", h.summary)
	g.POST("/analyze-batch", h.analyzeBatch)
	g.GET("/:id", h.get)
	g.DELETE("/:id", h.remove)
	g.POST("/:id/analyze", h.analyze)
	g.GET("/:id/export", h.export)
}

// bindContext moves the request id and session from gin keys onto the
// request context, where the service reads them.
func bindContext(c *gin.Context) {
	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	ctx = WithSession(ctx, Session{
		UserID:    middleware.UserIDFromContext(c),
		ProfileID: middleware.ProfileIDFromContext(c),
	})
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}

func sessionOf(ctx context.Context) Session {
	s, _ := SessionFromContext(ctx)
	return s
}

func (h *Handler) upload(c *gin.Context) {
	ctx := c.Request.Context()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "file is required", []map[string]string{
			{"field": "file", "issue": "missing"},
		})
		return
	}
	f, err := fh.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "file could not be read", nil)
		return
	}
	defer f.Close()

	report, err := h.Svc.Create(ctx, sessionOf(ctx), fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		h.writeError(c, err, "failed to store report")
		return
	}
	c.Set("reportId", report.ID)
	respond.JSON(c, http.StatusCreated, report)
}

func (h *Handler) list(c *gin.Context) {
	ctx := c.Request.Context()
	limit := queryInt(c, "limit", 20)
	offset := queryInt(c, "offset", 0)

	list, err := h.Svc.List(ctx, sessionOf(ctx), limit, offset)
	if err != nil {
		h.writeError(c, err, "failed to list reports")
		return
	}
	respond.OK(c, gin.H{
		"items":  list,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *Handler) summary(c *gin.Context) {
	ctx := c.Request.Context()
	sum, err := h.Svc.Summary(ctx, sessionOf(ctx))
	if err != nil {
		h.writeError(c, err, "failed to summarize reports")
		return
	}
	respond.OK(c, sum)
}

type reportView struct {
	Report
	View    labdata.View         `json:"view"`
	Summary presentation.Summary `json:"summary"`
}

func (h *Handler) get(c *gin.Context) {
	ctx := c.Request.Context()
	reportID := c.Param("id")
	c.Set("reportId", reportID)

	report, err := h.Svc.Get(ctx, sessionOf(ctx), reportID)
	if err != nil {
		h.writeError(c, err, "failed to fetch report")
		return
	}
	view := report.View()
	respond.OK(c, reportView{Report: report, View: view, Summary: presentation.Summarize(view)})
}

func (h *Handler) remove(c *gin.Context) {
	ctx := c.Request.Context()
	reportID := c.Param("id")
	c.Set("reportId", reportID)

	if err := h.Svc.Delete(ctx, sessionOf(ctx), reportID); err != nil {
		h.writeError(c, err, "failed to delete report")
		return
	}
	c.Status(http.StatusNoContent)
}

type analyzeRequest struct {
	ReportText string `json:"report_text"`
	Async      bool   `json:"async"`
}

func (h *Handler) analyze(c *gin.Context) {
	ctx := c.Request.Context()
	reportID := c.Param("id")
	c.Set("reportId", reportID)

	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ReportText) == "" {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "report_text is required", []map[string]string{
			{"field": "report_text", "issue": "missing"},
		})
		return
	}
	if _, err := h.Svc.Get(ctx, sessionOf(ctx), reportID); err != nil {
		h.writeError(c, err, "failed to fetch report")
		return
	}

	if req.Async {
		if err := h.Svc.Enqueue(ctx, reportID, req.ReportText); err != nil {
			h.writeError(c, err, "failed to queue analysis")
			return
		}
		c.Set("statusTransition", "pending->queued")
		respond.JSON(c, http.StatusAccepted, gin.H{
			"report_id": reportID,
			"status":    StatusPending,
		})
		return
	}

	out, err := h.Svc.Analyze(ctx, reportID, req.ReportText)
	if err != nil {
		h.writeError(c, err, "failed to analyze report")
		return
	}
	if out.ValidationFailed {
		c.Set("statusTransition", "pending->"+StatusRejected)
	} else {
		c.Set("statusTransition", "processing->"+StatusCompleted)
	}
	respond.OK(c, out)
}

type batchRequest struct {
	Items []BatchItem `json:"items"`
}

type batchItemResult struct {
	Outcome
	Status int `json:"status"`
}

func (h *Handler) analyzeBatch(c *gin.Context) {
	ctx := c.Request.Context()
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Items) == 0 {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "items are required", nil)
		return
	}
	if len(req.Items) > maxBatchItems {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "too many items", gin.H{"max": maxBatchItems})
		return
	}

	sess := sessionOf(ctx)
	results := make([]batchItemResult, len(req.Items))
	owned := make([]BatchItem, 0, len(req.Items))
	index := make([]int, 0, len(req.Items))
	for i, item := range req.Items {
		if _, err := h.Svc.Get(ctx, sess, item.ReportID); err != nil {
			status, _, msg := classifyError(err)
			results[i] = batchItemResult{Outcome: Outcome{ReportID: item.ReportID, Error: msg}, Status: status}
			continue
		}
		owned = append(owned, item)
		index = append(index, i)
	}

	for j, res := range h.Svc.AnalyzeBatch(ctx, owned, h.Batch) {
		status := http.StatusOK
		if res.Err != nil {
			status, _, _ = classifyError(res.Err)
		}
		results[index[j]] = batchItemResult{Outcome: res.Outcome, Status: status}
	}
	respond.OK(c, gin.H{"results": results})
}

func (h *Handler) export(c *gin.Context) {
	ctx := c.Request.Context()
	reportID := c.Param("id")
	c.Set("reportId", reportID)

	report, err := h.Svc.Get(ctx, sessionOf(ctx), reportID)
	if err != nil {
		h.writeError(c, err, "failed to fetch report")
		return
	}
	exp, err := presentation.Render(c.DefaultQuery("format", "csv"), ExportDocument(report, time.Now().UTC()))
	if err != nil {
		if errors.Is(err, presentation.ErrUnknownFormat) {
			respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "unsupported export format", gin.H{"formats": presentation.Formats})
			return
		}
		respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to render export", nil)
		return
	}
	respond.Attachment(c, exp.FileName, exp.ContentType, exp.Body)
}

// ExportDocument is the presentation input for a stored record.
func ExportDocument(report Report, generatedAt time.Time) presentation.Document {
	return presentation.Document{
		FileName:         report.FileName,
		CreatedAt:        report.CreatedAt,
		ProcessingStatus: report.ProcessingStatus,
		View:             report.View(),
		Narrative:        report.PatientFriendlyAnalysis,
		GeneratedAt:      generatedAt,
	}
}

func (h *Handler) writeError(c *gin.Context, err error, fallback string) {
	status, code, msg := classifyError(err)
	if status == http.StatusInternalServerError {
		msg = fallback
	}
	respond.Error(c, status, code, msg, nil)
}

// classifyError maps service errors to an HTTP status, error code and message.
func classifyError(err error) (int, string, string) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrForbidden):
		return http.StatusNotFound, ErrorCodeNotFound, "report not found"
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrEmptyText):
		return http.StatusBadRequest, ErrorCodeValidation, err.Error()
	case errors.Is(err, ErrQueueDisabled), errors.Is(err, ErrStoreDisabled):
		return http.StatusServiceUnavailable, ErrorCodeStorage, err.Error()
	case errors.Is(err, ErrSaveFailed):
		return http.StatusInternalServerError, ErrorCodeStorage, ErrSaveFailed.Error()
	case errors.Is(err, ErrAnalysisFailed), llm.IsGatewayError(err):
		return http.StatusBadGateway, ErrorCodeLLM, ErrAnalysisFailed.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrorCodeLLM, "analysis timed out"
	default:
		return http.StatusInternalServerError, ErrorCodeInternal, "internal error"
	}
}

func queryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}
