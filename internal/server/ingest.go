package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"qapi/internal/config"
)

var segmentPattern = regexp.MustCompile(`[^a-z0-9._-]+`)

// sanitizeSegment makes a value safe to embed in an object key.
func sanitizeSegment(value, fallback string) string {
	safe := strings.ToLower(strings.TrimSpace(value))
	safe = segmentPattern.ReplaceAllString(safe, "-")
	safe = strings.Trim(strings.ReplaceAll(safe, "--", "-"), "-")
	if safe == "" {
		return fallback
	}
	return safe
}

// IngestHandler accepts CI events, stores them as NDJSON objects under a
// date/repo/event-partitioned key, and optionally forwards them to a
// configured downstream collector.
type IngestHandler struct {
	cfg    *config.Config
	client *http.Client
}

// NewIngestHandler creates the handler. The client is used for
// downstream forwarding.
func NewIngestHandler(cfg *config.Config) *IngestHandler {
	return &IngestHandler{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.ForwardTimeout},
	}
}

// Healthz handles GET /healthz.
func (h *IngestHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "service": "qapi-glue"})
}

// HandleEvent handles POST /api/ci-events.
func (h *IngestHandler) HandleEvent(c *gin.Context) {
	if h.cfg.IngestToken == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Server not configured"})
		return
	}

	token := bearerToken(c.GetHeader("Authorization"))
	if token == "" || token != h.cfg.IngestToken {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "Unauthorized"})
		return
	}

	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Invalid JSON body"})
		return
	}

	if !validEventShape(payload) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Invalid event payload shape"})
		return
	}

	receivedAt := time.Now().UTC()
	payload["ingested_at"] = receivedAt.Format(time.RFC3339)

	stored, key, err := h.store(payload, receivedAt)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"ok": false, "error": "Failed to process event"})
		return
	}

	forwarded, err := h.forward(c, payload)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"ok": false, "error": "Failed to process event"})
		return
	}

	resp := gin.H{
		"ok":        true,
		"stored":    stored,
		"forwarded": forwarded,
	}
	if key != "" {
		resp["storage_key"] = key
	} else {
		resp["storage_key"] = nil
	}
	c.JSON(http.StatusAccepted, resp)
}

func bearerToken(header string) string {
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func validEventShape(payload map[string]any) bool {
	for _, field := range []string{"event_name", "repository", "event_id"} {
		value, ok := payload[field].(string)
		if !ok || value == "" {
			return false
		}
	}
	return true
}

// store writes one NDJSON line under a partitioned key beneath the
// events directory. An empty EventsDir disables storage without
// failing the request.
func (h *IngestHandler) store(payload map[string]any, receivedAt time.Time) (bool, string, error) {
	if h.cfg.EventsDir == "" {
		return false, "", nil
	}

	repo := sanitizeSegment(stringField(payload, "repository"), "repo")
	event := sanitizeSegment(stringField(payload, "event_name"), "event")
	eventID := sanitizeSegment(stringField(payload, "event_id"), uuid.New().String())

	key := fmt.Sprintf("events/year=%04d/month=%02d/day=%02d/hour=%02d/repo=%s/event=%s/%s.ndjson",
		receivedAt.Year(), receivedAt.Month(), receivedAt.Day(), receivedAt.Hour(),
		repo, event, eventID)

	line, err := json.Marshal(payload)
	if err != nil {
		return false, "", err
	}
	line = append(line, '\n')

	path := filepath.Join(h.cfg.EventsDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, "", err
	}
	if err := os.WriteFile(path, line, 0o644); err != nil {
		return false, "", err
	}

	return true, key, nil
}

// forward posts the event to the configured downstream collector.
func (h *IngestHandler) forward(c *gin.Context, payload map[string]any) (bool, error) {
	if h.cfg.DownstreamURL == "" {
		return false, nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodPost, h.cfg.DownstreamURL, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CI-Source", "qapi-glue")
	if h.cfg.DownstreamToken != "" {
		req.Header.Set("Authorization", "Bearer "+h.cfg.DownstreamToken)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("downstream ingest failed (%d): %s", resp.StatusCode, snippet)
	}
	return true, nil
}

func stringField(payload map[string]any, field string) string {
	value, _ := payload[field].(string)
	return value
}
