package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"qapi/internal/config"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ErrProviderRejected marks a non-2xx answer from the email provider.
var ErrProviderRejected = fmt.Errorf("email provider rejected request")

// ContactMessage is a validated contact-form submission.
type ContactMessage struct {
	Name    string
	Email   string
	Message string
	Source  string
}

// Mailer delivers contact messages. Implemented against a transactional
// email HTTP API; tests substitute their own.
type Mailer interface {
	Send(ctx context.Context, msg ContactMessage) error
}

// ContactHandler validates and relays contact-form submissions.
type ContactHandler struct {
	cfg    *config.Config
	mailer Mailer
}

// NewContactHandler creates the handler with the given mailer.
func NewContactHandler(cfg *config.Config, mailer Mailer) *ContactHandler {
	return &ContactHandler{cfg: cfg, mailer: mailer}
}

// sanitize collapses whitespace, trims, and caps the byte length,
// backing off to a rune boundary so truncation never emits invalid
// UTF-8.
func sanitize(value string, maxLength int) string {
	value = strings.Join(strings.Fields(value), " ")
	if len(value) > maxLength {
		cut := maxLength
		for cut > 0 && !utf8.RuneStart(value[cut]) {
			cut--
		}
		value = value[:cut]
	}
	return value
}

// HandleContact handles POST /api/contact.
func (h *ContactHandler) HandleContact(c *gin.Context) {
	origin := c.GetHeader("Origin")
	if !h.originAllowed(origin) {
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "Origin not allowed"})
		return
	}

	var payload struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Message string `json:"message"`
		Company string `json:"company"`
		Source  string `json:"source"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Invalid JSON body"})
		return
	}

	name := sanitize(payload.Name, 120)
	email := strings.ToLower(sanitize(payload.Email, 254))
	message := sanitize(payload.Message, 5000)
	company := sanitize(payload.Company, 120)
	source := sanitize(payload.Source, 500)

	// Honeypot: bots fill the hidden company field. Accept silently.
	if company != "" {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	if len(name) < 2 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Name is required"})
		return
	}
	if !emailPattern.MatchString(email) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "A valid email is required"})
		return
	}
	if len(message) < 10 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Message is too short"})
		return
	}

	err := h.mailer.Send(c.Request.Context(), ContactMessage{
		Name:    name,
		Email:   email,
		Message: message,
		Source:  source,
	})
	if err == ErrProviderRejected {
		c.JSON(http.StatusBadGateway, gin.H{"ok": false, "error": "Email provider rejected request"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *ContactHandler) originAllowed(origin string) bool {
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == origin {
			return true
		}
	}
	return false
}

// APIMailer posts messages to a Resend-style transactional email API.
type APIMailer struct {
	cfg    *config.Config
	client *http.Client
}

// NewAPIMailer creates the production mailer.
func NewAPIMailer(cfg *config.Config) *APIMailer {
	return &APIMailer{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.ForwardTimeout},
	}
}

// Send delivers one contact message.
func (m *APIMailer) Send(ctx context.Context, msg ContactMessage) error {
	lines := []string{
		"Name: " + msg.Name,
		"Email: " + msg.Email,
	}
	if msg.Source != "" {
		lines = append(lines, "Source: "+msg.Source)
	}
	lines = append(lines, "", "Message:", msg.Message)

	payload, err := json.Marshal(map[string]any{
		"from":     m.cfg.EmailFrom,
		"to":       []string{m.cfg.ContactTo},
		"reply_to": msg.Email,
		"subject":  "Portfolio inquiry from " + msg.Name,
		"text":     strings.Join(lines, "\n"),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.EmailAPIURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.cfg.EmailAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 512))
		return ErrProviderRejected
	}
	return nil
}
