package handlers

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"call-insights-go/internal/analysis"
	"call-insights-go/internal/http/middleware"
	"call-insights-go/internal/logger"
	"call-insights-go/internal/processor"
	"call-insights-go/internal/report"
	"call-insights-go/internal/transcript"
	"call-insights-go/internal/types"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var audioTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".webm": "audio/webm",
}

// recordings above this size are not echoed back into the result page
const maxInlineAudio = 10 << 20

type Handler struct {
	Processor *processor.Processor
	Validator *validator.Validate
	Logger    *logger.Logger

	MaxUploadMB int64
}

type TextRequest struct {
	Text string `json:"text" validate:"required"`
}

type TranscriptResponse struct {
	Utterances []types.Utterance `json:"utterances"`
	Count      int               `json:"count"`
}

func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Index serves the upload page.
func (h *Handler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{"MaxUploadMB": h.MaxUploadMB})
}

// AnalyzePage runs the pipeline and renders the conversation and metrics.
func (h *Handler) AnalyzePage(c *gin.Context) {
	res, status, code, err := h.analyzeUpload(c)
	if err != nil && res == nil {
		c.HTML(status, "index.html", gin.H{"Error": err.Error(), "MaxUploadMB": h.MaxUploadMB})
		return
	}
	page := gin.H{"Result": res}
	if fh, ferr := c.FormFile("audio"); ferr == nil {
		if src := audioSource(fh); src != "" {
			page["Audio"] = src
		}
	}
	if err != nil {
		page["Error"] = err.Error()
		page["Code"] = code
	}
	c.HTML(status, "result.html", page)
}

// AnalyzeAPI runs the pipeline and returns the CallResult as JSON, or as an
// xlsx report with ?format=xlsx.
func (h *Handler) AnalyzeAPI(c *gin.Context) {
	res, status, code, err := h.analyzeUpload(c)
	if err != nil {
		var details any
		if res != nil {
			details = res
		}
		writeError(c, status, code, err.Error(), details)
		return
	}

	if strings.EqualFold(c.Query("format"), "xlsx") {
		var buf bytes.Buffer
		if err := report.WriteXLSX(&buf, *res); err != nil {
			writeError(c, http.StatusInternalServerError, "REPORT_ERROR", "Failed to build report", err.Error())
			return
		}
		name := "call-analysis.xlsx"
		if res.RequestID != "" {
			name = fmt.Sprintf("call-analysis-%s.xlsx", res.RequestID)
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
		c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
		return
	}
	c.JSON(http.StatusOK, res)
}

// ParseTranscript runs the transcript normalizer on text, no model call.
func (h *Handler) ParseTranscript(c *gin.Context) {
	req, ok := h.bindText(c)
	if !ok {
		return
	}
	utts := transcript.Parse(req.Text)
	c.JSON(http.StatusOK, TranscriptResponse{Utterances: utts, Count: len(utts)})
}

// ParseAnalysis runs the metrics normalizer on text, no model call.
func (h *Handler) ParseAnalysis(c *gin.Context) {
	req, ok := h.bindText(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, analysis.Parse(req.Text))
}

func (h *Handler) bindText(c *gin.Context) (TextRequest, bool) {
	var req TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return req, false
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return req, false
	}
	return req, true
}

// analyzeUpload validates the multipart upload and runs the processor. res is
// nil when the request never reached the pipeline.
func (h *Handler) analyzeUpload(c *gin.Context) (res *processor.CallResult, status int, code string, err error) {
	log := h.Logger.WithRequest(c.Request).WithField("handler", "analyze")

	fh, err := c.FormFile("audio")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", fmt.Errorf("audio file exceeds %d MB", tooLarge.Limit>>20)
		}
		return nil, http.StatusBadRequest, "INVALID_REQUEST", errors.New("audio file required")
	}
	if !validateExt(fh.Filename) {
		return nil, http.StatusBadRequest, "INVALID_REQUEST", errors.New("audio must be mp3, wav, m4a, ogg, flac or webm")
	}

	log = log.WithField("file", fh.Filename).WithField("size", fh.Size)
	log.Info("analyze request received")

	out, err := h.process(c, fh)
	if err != nil {
		status, code = statusFor(err)
		log.WithError(err).WithField("stage", out.Stage).Warn("analysis failed")
		return &out, status, code, err
	}
	return &out, http.StatusOK, "", nil
}

func (h *Handler) process(c *gin.Context, fh *multipart.FileHeader) (processor.CallResult, error) {
	f, err := fh.Open()
	if err != nil {
		return h.Processor.Process(c.Request.Context(), middleware.GetRequestID(c), fh.Filename, errReader{err})
	}
	defer f.Close()
	return h.Processor.Process(c.Request.Context(), middleware.GetRequestID(c), fh.Filename, f)
}

// errReader feeds an open failure into the processor so it is reported as
// an upload error with the usual stage history.
type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

func statusFor(err error) (int, string) {
	var (
		uploadErr  *processor.UploadError
		requestErr *processor.RequestError
		parseErr   *analysis.ParseError
	)
	switch {
	case errors.As(err, &uploadErr):
		if errors.Is(err, processor.ErrEmptyUpload) {
			return http.StatusBadRequest, "EMPTY_UPLOAD"
		}
		return http.StatusInternalServerError, "UPLOAD_FAILED"
	case errors.As(err, &requestErr) && requestErr.Timeout:
		return http.StatusGatewayTimeout, "MODEL_TIMEOUT"
	case errors.As(err, &requestErr):
		return http.StatusBadGateway, "MODEL_REQUEST_FAILED"
	case errors.As(err, &parseErr):
		return http.StatusUnprocessableEntity, "ANALYSIS_EMPTY"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
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

func validateExt(name string) bool {
	_, ok := audioTypes[strings.ToLower(filepath.Ext(name))]
	return ok
}

// audioSource returns the upload as a data URL for the result page's player.
// It is empty when the file is too large to inline or cannot be reread.
func audioSource(fh *multipart.FileHeader) template.URL {
	ct, ok := audioTypes[strings.ToLower(filepath.Ext(fh.Filename))]
	if !ok || fh.Size == 0 || fh.Size > maxInlineAudio {
		return ""
	}
	f, err := fh.Open()
	if err != nil {
		return ""
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxInlineAudio+1))
	if err != nil || len(data) == 0 || len(data) > maxInlineAudio {
		return ""
	}
	return template.URL("data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(data))
}
