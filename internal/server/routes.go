package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/4lch4/repo-feed/internal/metrics"
	"github.com/4lch4/repo-feed/internal/simulator"
	"github.com/4lch4/repo-feed/internal/webhook"
)

// Upper bound on an inbound webhook body.
const maxWebhookBody = 1 << 20

var (
	// Upgrader is used to upgrade an HTTP connection to a WebSocket connection.
	wsUpgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
)

func (s *Server) RegisterRoutes() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.logger))
	r.Use(metrics.Middleware())
	r.SetHTMLTemplate(templates)

	r.GET("/", s.indexHandler)
	r.GET("/events", s.eventsHandler)

	r.GET("/webhook", webhookProbeHandler)
	r.POST("/webhook", s.webhookHandler)

	r.GET("/trigger", triggerFormHandler)
	r.POST("/trigger", s.triggerHandler)

	r.GET("/ws/events", s.wsEventsHandler)

	r.GET("/health/db", s.dbHealthHandler)
	r.GET("/health/liveness", basicHealthHandler)
	r.GET("/health/readiness", basicHealthHandler)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// Renders the most recent events as an HTML page.
func (s *Server) indexHandler(c *gin.Context) {
	lines, err := s.recentLines(c.Request.Context())
	if err != nil {
		s.logger.Error("load feed failed", zap.Error(err))
		c.String(http.StatusInternalServerError, "failed to load events")
		return
	}

	c.HTML(http.StatusOK, "index.html", gin.H{
		"Events":       lines,
		"PollInterval": s.pollInterval.Milliseconds(),
	})
}

// Returns the same lines as the index page as a JSON array of strings.
func (s *Server) eventsHandler(c *gin.Context) {
	lines, err := s.recentLines(c.Request.Context())
	if err != nil {
		s.logger.Error("load feed failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load events"})
		return
	}

	c.JSON(http.StatusOK, lines)
}

func webhookProbeHandler(c *gin.Context) {
	c.String(http.StatusOK, "Webhook endpoint is live")
}

// Handles requests to the POST /webhook endpoint. The event-type header
// selects how the body is normalized; irrelevant events are acknowledged
// without being stored.
func (s *Server) webhookHandler(c *gin.Context) {
	eventType := c.GetHeader(webhook.EventHeader)

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		metrics.ObserveWebhook("rejected", "")
		c.JSON(status, gin.H{"status": "error", "error": "unreadable request body"})
		return
	}

	entry, ok, err := webhook.Normalize(eventType, body, s.now())
	if err != nil {
		s.logger.Warn("rejected webhook", zap.String("event_type", eventType), zap.Error(err))
		metrics.ObserveWebhook("rejected", "")
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}
	if !ok {
		metrics.ObserveWebhook("ignored", "")
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if _, err := s.db.CreateEvent(c.Request.Context(), entry); err != nil {
		s.logger.Error("store event failed",
			zap.Error(err),
			zap.String("event_id", entry.EventID),
			zap.String("action", string(entry.Action)))
		metrics.ObserveWebhook("failed", string(entry.Action))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "failed to store event"})
		return
	}

	s.logger.Info("webhook event stored",
		zap.String("event_id", entry.EventID),
		zap.String("action", string(entry.Action)),
		zap.String("author", entry.Author))
	metrics.ObserveWebhook("stored", string(entry.Action))
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func triggerFormHandler(c *gin.Context) {
	c.HTML(http.StatusOK, "trigger.html", gin.H{
		"Kinds": []simulator.Kind{simulator.KindPush, simulator.KindPullRequest, simulator.KindMerge},
	})
}

// Handles requests to the POST /trigger endpoint. The simulated delivery's
// outcome is logged but the operator is redirected to the feed either way.
func (s *Server) triggerHandler(c *gin.Context) {
	if s.simulator == nil {
		c.String(http.StatusServiceUnavailable, "Simulator not configured")
		return
	}

	for _, field := range simulator.RequiredFields {
		if _, ok := c.GetPostForm(field); !ok {
			c.String(http.StatusBadRequest, "Missing required field: %s", field)
			return
		}
	}

	var req simulator.Request
	if err := c.ShouldBind(&req); err != nil {
		c.String(http.StatusBadRequest, "Invalid form")
		return
	}

	result := s.simulator.Deliver(c.Request.Context(), req)
	if errors.Is(result.Error, simulator.ErrUnknownKind) {
		c.String(http.StatusBadRequest, "Invalid event type")
		return
	}

	metrics.ObserveDelivery(result.Success)
	if result.Success {
		s.logger.Info("simulated event delivered",
			zap.String("kind", string(req.Kind)),
			zap.String("author", req.Author))
	} else {
		s.logger.Warn("simulated event delivery failed",
			zap.String("kind", string(req.Kind)),
			zap.String("target", s.simulator.URL()),
			zap.Int("status_code", result.StatusCode),
			zap.Error(result.Error))
	}

	c.Redirect(http.StatusFound, "/")
}

// Streams the feed over a WebSocket connection. The current feed is sent on
// connect and again whenever it changes.
func (s *Server) wsEventsHandler(c *gin.Context) {
	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	var last []byte
	for {
		lines, err := s.recentLines(c.Request.Context())
		if err != nil {
			s.logger.Warn("websocket feed refresh failed", zap.Error(err))
		} else if encoded, _ := json.Marshal(lines); string(encoded) != string(last) {
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, encoded); err != nil {
				return
			}
			last = encoded
		}

		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) dbHealthHandler(c *gin.Context) {
	stats := s.db.Health(c.Request.Context())
	status := http.StatusOK
	if stats["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, stats)
}

func basicHealthHandler(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// requestLogger logs the client IP, status code, latency, method and path of
// every request.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request",
			zap.String("client_ip", c.ClientIP()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path))
	}
}
