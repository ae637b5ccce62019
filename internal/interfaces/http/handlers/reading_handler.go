package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/Guwen-Annotator/internal/application/reading"
	"github.com/turtacn/Guwen-Annotator/internal/infrastructure/monitoring/logging"
)

type SegmentRequest struct {
	Text   string `json:"text"`
	Pinyin bool   `json:"pinyin"`
}

type AnalyzeRequest struct {
	Text  string `json:"text"`
	Model string `json:"model"`
}

type QARequest struct {
	Text     string `json:"text"`
	Question string `json:"question"`
	Model    string `json:"model"`
}

type AnnotateRequest struct {
	Text string `json:"text"`
}

// ResultResponse carries a free-text model answer.
type ResultResponse struct {
	Result string `json:"result"`
}

// ReadingHandler serves segmentation and the model-backed reading endpoints.
type ReadingHandler struct {
	svc    reading.Service
	logger logging.Logger
}

func NewReadingHandler(svc reading.Service, logger logging.Logger) *ReadingHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ReadingHandler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the handler under rg.
func (h *ReadingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/segment", h.Segment)
	rg.POST("/analyze", h.Analyze)
	rg.POST("/qa", h.QA)
	rg.POST("/auto-annotate", h.AutoAnnotate)
}

// Segment handles POST /api/segment.
func (h *ReadingHandler) Segment(c *gin.Context) {
	var req SegmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	out, err := h.svc.Segment(c.Request.Context(), &reading.SegmentInput{Text: req.Text, Pinyin: req.Pinyin})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Analyze handles POST /api/analyze.
func (h *ReadingHandler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	res, err := h.svc.Analyze(c.Request.Context(), &reading.AnalyzeInput{Text: req.Text, Model: req.Model})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ResultResponse{Result: res})
}

// QA handles POST /api/qa.
func (h *ReadingHandler) QA(c *gin.Context) {
	var req QARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	res, err := h.svc.Ask(c.Request.Context(), &reading.AskInput{Text: req.Text, Question: req.Question, Model: req.Model})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ResultResponse{Result: res})
}

// AutoAnnotate handles POST /api/auto-annotate.
func (h *ReadingHandler) AutoAnnotate(c *gin.Context) {
	var req AnnotateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	out, err := h.svc.AutoAnnotate(c.Request.Context(), &reading.AnnotateInput{Text: req.Text})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
