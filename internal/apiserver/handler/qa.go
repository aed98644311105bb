// Package handler provides the HTTP handlers for the QA service.
package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hanq-io/hanq/internal/apiserver/biz"
	"github.com/hanq-io/hanq/internal/apiserver/loader"
	"github.com/hanq-io/hanq/internal/apiserver/metrics"
	"github.com/hanq-io/hanq/internal/model"
)

// SuccessResponse is the standard success envelope.
type SuccessResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// SystemInfoFunc builds the current system description.
type SystemInfoFunc func(ctx context.Context) (*model.SystemInfo, error)

// QAHandler handles the QA HTTP API.
type QAHandler struct {
	service      biz.Service
	loader       *loader.Loader
	systemInfo   SystemInfoFunc
	queryTimeout time.Duration
	datasetPath  string
}

// NewQAHandler creates the handler.
func NewQAHandler(service biz.Service, ldr *loader.Loader, systemInfo SystemInfoFunc, queryTimeout time.Duration, datasetPath string) *QAHandler {
	if queryTimeout <= 0 {
		queryTimeout = 60 * time.Second
	}
	return &QAHandler{
		service:      service,
		loader:       ldr,
		systemInfo:   systemInfo,
		queryTimeout: queryTimeout,
		datasetPath:  datasetPath,
	}
}

// Health reports service health. The endpoint always answers 200 so the
// process stays observable, but the reported status degrades to "error"
// while the pipeline cannot answer queries.
func (h *QAHandler) Health(c *gin.Context) {
	ready := h.loader.Ready()
	status := "ok"

	info, err := h.systemInfo(c.Request.Context())
	if !ready || err != nil {
		status = "error"
	}

	resp := gin.H{
		"status":  status,
		"ready":   ready,
		"loading": h.loader.Status(),
	}
	if err != nil {
		resp["error"] = err.Error()
	} else {
		resp["system"] = info
	}
	c.JSON(http.StatusOK, resp)
}

// Query answers a question. Returns 503 while the dataset is loading and
// 408 when the pipeline exceeds the query timeout.
func (h *QAHandler) Query(c *gin.Context) {
	if !h.loader.Ready() {
		status := h.loader.Status()
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"code":    http.StatusServiceUnavailable,
			"message": "dataset not ready",
			"loading": status,
		})
		return
	}

	var req model.QARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.queryTimeout)
	defer cancel()

	result, err := h.service.Query(ctx, &req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.JSON(http.StatusRequestTimeout, ErrorResponse{
				Code:    408,
				Message: "query timeout: the request took too long to process",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: result})
}

// Index runs a synchronous (re)indexing pass over a dataset file.
func (h *QAHandler) Index(c *gin.Context) {
	var req model.IndexRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	path := req.Path
	if path == "" {
		path = h.datasetPath
	}

	stats, err := h.service.Index(c.Request.Context(), path, req.Recreate)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: stats})
}

// LoadingStatus reports the background loader state.
func (h *QAHandler) LoadingStatus(c *gin.Context) {
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: h.loader.Status()})
}

// LoadingInitialize starts a background dataset load. It answers 202
// immediately; progress is observable via LoadingStatus.
func (h *QAHandler) LoadingInitialize(c *gin.Context) {
	var req model.IndexRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	// loading outlives the request, so it runs on a fresh context
	err := h.loader.Start(context.Background(), req.Recreate)
	switch {
	case errors.Is(err, loader.ErrAlreadyLoading):
		c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "이미 로딩 중입니다.", Data: h.loader.Status()})
	case errors.Is(err, loader.ErrAlreadyReady):
		c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "이미 초기화 완료되었습니다.", Data: h.loader.Status()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
	default:
		c.JSON(http.StatusAccepted, SuccessResponse{Code: 0, Message: "데이터 초기화를 시작했습니다.", Data: h.loader.Status()})
	}
}

// SystemInfo describes the running configuration.
func (h *QAHandler) SystemInfo(c *gin.Context) {
	info, err := h.systemInfo(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: info})
}

// Stats reports knowledge base and pipeline statistics.
func (h *QAHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: stats})
}

// Metrics exposes the pipeline counters in Prometheus text format.
func (h *QAHandler) Metrics(c *gin.Context) {
	c.String(http.StatusOK, metrics.GetQAMetrics().Export("hanq", "qa"))
}
