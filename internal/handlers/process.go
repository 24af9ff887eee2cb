package handlers

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/video-summary/internal/logger"
	"github.com/codebuildervaibhav/video-summary/internal/pipeline"
	"github.com/codebuildervaibhav/video-summary/internal/platform"
	"github.com/codebuildervaibhav/video-summary/internal/queue"
)

// Runner executes one pipeline job
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Exporter accepts finished results for background export
type Exporter interface {
	Enqueue(job *queue.Job) error
}

// ProcessHandler handles video processing requests
type ProcessHandler struct {
	runner   Runner
	exporter Exporter
	log      *logger.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewProcessHandler creates a new process handler. exporter may be nil.
func NewProcessHandler(runner Runner, exporter Exporter, log *logger.Logger) *ProcessHandler {
	return &ProcessHandler{
		runner:   runner,
		exporter: exporter,
		log:      log.Component("process"),
		inflight: make(map[string]struct{}),
	}
}

// ProcessRequest represents the request body
type ProcessRequest struct {
	SummaryID string `json:"summaryId"`
	VideoURL  string `json:"videoUrl"`
	Platform  string `json:"platform"`
}

func (r ProcessRequest) missing() []string {
	var fields []string
	if strings.TrimSpace(r.SummaryID) == "" {
		fields = append(fields, "summaryId")
	}
	if strings.TrimSpace(r.VideoURL) == "" {
		fields = append(fields, "videoUrl")
	}
	if strings.TrimSpace(r.Platform) == "" {
		fields = append(fields, "platform")
	}
	return fields
}

// Handle runs the pipeline synchronously and answers with the result envelope
func (h *ProcessHandler) Handle(c *fiber.Ctx) error {
	var req ProcessRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
			"code":    "ERR_INVALID_BODY",
		})
	}

	if missing := req.missing(); len(missing) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Missing required fields: " + strings.Join(missing, ", "),
			"code":    "ERR_MISSING_FIELDS",
		})
	}

	if !h.claim(req.SummaryID) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"error":   "Summary is already being processed",
			"code":    "ERR_IN_PROGRESS",
		})
	}
	defer h.release(req.SummaryID)

	p := platform.Choose(req.VideoURL, req.Platform)
	log := h.log.WithRequest(c).WithField("summary_id", req.SummaryID).WithField("platform", p)
	log.Info("processing video")

	// The job outlives a dropped client connection.
	ctx := context.WithoutCancel(c.UserContext())

	started := time.Now()
	res, err := h.runner.Run(ctx, pipeline.Request{
		SummaryID: req.SummaryID,
		VideoURL:  strings.TrimSpace(req.VideoURL),
		Platform:  p,
	})
	if err != nil {
		stage := "unknown"
		elapsed := time.Since(started)
		var se *pipeline.StageError
		if errors.As(err, &se) {
			stage = string(se.Stage)
			elapsed = se.Elapsed
		}
		log.WithField("stage", stage).WithField("error", err.Error()).Error("video processing failed")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success":          false,
			"error":            errorMessage(err),
			"processingTimeMs": elapsed.Milliseconds(),
			"stage":            stage,
		})
	}

	h.export(res)

	return c.JSON(fiber.Map{
		"success": true,
		"data":    res,
	})
}

func (h *ProcessHandler) export(res *pipeline.Result) {
	if h.exporter == nil {
		return
	}
	job, err := queue.NewJob(res)
	if err == nil {
		err = h.exporter.Enqueue(job)
	}
	if err != nil {
		h.log.WithError(err).WithField("summary_id", res.SummaryID).Warn("summary not exported")
	}
}

func (h *ProcessHandler) claim(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, busy := h.inflight[id]; busy {
		return false
	}
	h.inflight[id] = struct{}{}
	return true
}

func (h *ProcessHandler) release(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.inflight, id)
}

// errorMessage drops the stage prefix added by StageError
func errorMessage(err error) string {
	var se *pipeline.StageError
	if errors.As(err, &se) && se.Err != nil {
		return se.Err.Error()
	}
	return err.Error()
}
