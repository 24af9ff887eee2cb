package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/codebuildervaibhav/video-summary/internal/logger"
	"github.com/codebuildervaibhav/video-summary/internal/progress"
	"github.com/codebuildervaibhav/video-summary/internal/types"
)

// Subscriber gives access to per-job progress history and live events
type Subscriber interface {
	Subscribe(jobID string) ([]progress.Event, <-chan progress.Event, func())
}

// StreamHandler streams progress events for one summary over a WebSocket
type StreamHandler struct {
	hub  Subscriber
	log  *logger.Logger
	ping time.Duration
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(hub Subscriber, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		hub:  hub,
		log:  log.Component("stream"),
		ping: 30 * time.Second,
	}
}

// Upgrade rejects plain HTTP requests on the websocket route
func (h *StreamHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handle replays the job's history, then forwards live events until the job
// finishes or the client goes away.
func (h *StreamHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	jobID := c.Params("summaryId")
	history, events, cancel := h.hub.Subscribe(jobID)
	defer cancel()

	log := h.log.WithField("summary_id", jobID)
	log.Debug("progress stream opened")

	for _, ev := range history {
		if err := c.WriteJSON(ev); err != nil {
			return
		}
		if isTerminal(ev) {
			return
		}
	}

	// Reader goroutine notices client disconnects.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.ping)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := c.WriteJSON(ev); err != nil {
				log.WithError(err).Debug("progress stream write failed")
				return
			}
			if isTerminal(ev) {
				return
			}
		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			log.Debug("progress stream closed by client")
			return
		}
	}
}

func isTerminal(ev progress.Event) bool {
	return ev.Stage == types.StageDone || ev.Stage == types.StageFailed
}
