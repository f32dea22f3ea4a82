package exec

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"qapi/internal/model"
)

const (
	// MaxResponseSize limits response bodies to 50MB to prevent memory exhaustion
	MaxResponseSize = 50 * 1024 * 1024

	// DefaultTimeout for HTTP requests
	DefaultTimeout = 30 * time.Second
)

// Executor builds and issues exactly one HTTP call per Execute. It never
// returns an error: transport failures become ResponseRecords with the
// ERR status marker so every outcome stays inspectable.
type Executor struct {
	client *http.Client
}

// New creates an executor with the default timeout.
func New() *Executor {
	return NewWithClient(&http.Client{Timeout: DefaultTimeout})
}

// NewWithClient creates an executor around an explicit client.
func NewWithClient(client *http.Client) *Executor {
	return &Executor{client: client}
}

// ParseHeaders parses a textual JSON header object. Anything that is not
// a JSON object of string values yields an empty map, never an error.
func ParseHeaders(text string) map[string]string {
	if strings.TrimSpace(text) == "" {
		return map[string]string{}
	}
	var headers map[string]string
	if err := json.Unmarshal([]byte(text), &headers); err != nil || headers == nil {
		return map[string]string{}
	}
	return headers
}

// parseVariables parses GraphQL variables JSON, falling back to an empty
// object on malformed input.
func parseVariables(text string) any {
	if strings.TrimSpace(text) == "" {
		return map[string]any{}
	}
	var vars any
	if err := json.Unmarshal([]byte(text), &vars); err != nil || vars == nil {
		return map[string]any{}
	}
	return vars
}

// ResolveHeaders merges preset headers with the global auth config.
// Keys are canonicalized first so a case-variant preset header and an
// injected auth header land on the same map key; auth is written last
// and wins the collision.
func ResolveHeaders(p model.Preset, auth model.AuthConfig) map[string]string {
	headers := map[string]string{}
	for key, value := range ParseHeaders(p.Headers) {
		headers[http.CanonicalHeaderKey(key)] = value
	}

	if p.BearerEnabled() && auth.BearerToken != "" {
		headers["Authorization"] = "Bearer " + auth.BearerToken
	}
	if p.APIKeyEnabled() && auth.APIKeyName != "" && auth.APIKeyValue != "" {
		headers[http.CanonicalHeaderKey(auth.APIKeyName)] = auth.APIKeyValue
	}

	return headers
}

// ResolveURL appends the preset's newline-delimited query pairs to the
// base URL for REST presets. A bare key serializes as "key=".
func ResolveURL(p model.Preset) string {
	target := strings.TrimSpace(p.URL)
	if p.Type != model.TypeREST || p.Query == "" {
		return target
	}

	var pairs []string
	for _, line := range strings.Split(p.Query, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.Contains(line, "=") {
			line += "="
		}
		pairs = append(pairs, line)
	}
	if len(pairs) == 0 {
		return target
	}

	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + strings.Join(pairs, "&")
}

func hasContentType(headers map[string]string) bool {
	for key := range headers {
		if strings.EqualFold(key, "Content-Type") {
			return true
		}
	}
	return false
}

// resolveCall works out the method and payload for a preset. GraphQL is
// always POSTed as {query, variables}; REST sends the raw body text for
// methods other than GET/HEAD.
func resolveCall(p model.Preset, headers map[string]string) (method, body string) {
	method = strings.ToUpper(p.Method)
	if method == "" {
		method = http.MethodGet
	}

	switch p.Type {
	case model.TypeGraphQL:
		method = http.MethodPost
		payload, _ := json.Marshal(struct {
			Query     string `json:"query"`
			Variables any    `json:"variables"`
		}{
			Query:     p.GraphQLQuery,
			Variables: parseVariables(p.GraphQLVariables),
		})
		body = string(payload)
		if !hasContentType(headers) {
			headers["Content-Type"] = "application/json"
		}
	case model.TypeREST:
		if method == http.MethodGet || method == http.MethodHead {
			return method, ""
		}
		body = p.Body
		if body != "" && !hasContentType(headers) {
			headers["Content-Type"] = "application/json"
		}
	}

	return method, body
}

// Execute resolves and issues one call for the preset under the given
// auth config. It returns nil when the preset has no URL (a no-op, not
// an error). Duration covers the full request/response read.
func (e *Executor) Execute(ctx context.Context, p model.Preset, auth model.AuthConfig) *model.ResponseRecord {
	if strings.TrimSpace(p.URL) == "" {
		return nil
	}

	headers := ResolveHeaders(p, auth)
	target := ResolveURL(p)
	method, body := resolveCall(p, headers)

	start := time.Now()

	rec := &model.ResponseRecord{
		ID:   fmt.Sprintf("%s-%d", p.ID, start.UnixMilli()),
		Name: p.Name,
		Type: p.Type,
		URL:  target,
	}

	resp, raw, err := e.issue(ctx, method, target, headers, body)
	rec.Duration = time.Since(start).Milliseconds()
	rec.Timestamp = time.Now().UTC()

	if err != nil {
		rec.Status = model.StatusError
		rec.OK = false
		rec.Body = err.Error()
		rec.Raw = err.Error()
		rec.Headers = map[string]string{}
		return rec
	}

	rec.Status = strconv.Itoa(resp.StatusCode)
	rec.OK = resp.StatusCode >= 200 && resp.StatusCode < 300
	rec.Raw = raw
	rec.Body = classifyBody(resp.Header.Get("Content-Type"), raw)
	rec.Headers = flattenHeaders(resp.Header)
	return rec
}

// issue performs the call and reads the full body.
func (e *Executor) issue(ctx context.Context, method, target string, headers map[string]string, body string) (*http.Response, string, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, "", err
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	// Read response body with size limit to prevent memory exhaustion
	limited := io.LimitReader(resp.Body, MaxResponseSize)
	raw, err := io.ReadAll(limited)
	if err != nil {
		return nil, "", err
	}

	return resp, string(raw), nil
}

// classifyBody parses the raw text as JSON when the response declared a
// JSON content type; on parse failure the raw text stands in.
func classifyBody(contentType, raw string) any {
	if !strings.Contains(contentType, "application/json") {
		return raw
	}
	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return raw
	}
	return parsed
}

func flattenHeaders(h http.Header) map[string]string {
	flat := make(map[string]string, len(h))
	for key, values := range h {
		if len(values) > 0 {
			flat[key] = values[0]
		}
	}
	return flat
}
