package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/fatih/color"

	"qapi/internal/model"
	"qapi/internal/storage"
)

// sanitizeOutput removes or escapes potentially dangerous control characters
// that could manipulate terminal display or execute commands
func sanitizeOutput(s string) string {
	var result strings.Builder
	result.Grow(len(s))

	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			// Allow common whitespace characters
			result.WriteRune(r)
		case r == '\x1b':
			// Escape ANSI escape sequences - replace ESC with visible representation
			result.WriteString("\\x1b")
		case unicode.IsControl(r) && r < 0x20:
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		case r == 0x7F:
			result.WriteString("\\x7f")
		default:
			result.WriteRune(r)
		}
	}

	return result.String()
}

var (
	successColor   = color.New(color.FgGreen, color.Bold)
	redirectColor  = color.New(color.FgYellow, color.Bold)
	clientErrColor = color.New(color.FgRed, color.Bold)
	serverErrColor = color.New(color.FgRed, color.Bold, color.BgWhite)
	headerKeyColor = color.New(color.FgCyan)
	methodColor    = color.New(color.FgMagenta, color.Bold)
	urlColor       = color.New(color.FgBlue)
	dimColor       = color.New(color.Faint)
)

func statusColor(status string) *color.Color {
	code, err := strconv.Atoi(status)
	if err != nil {
		if status == model.StatusWSOpen {
			return successColor
		}
		return clientErrColor
	}
	switch {
	case code >= 200 && code < 300:
		return successColor
	case code >= 300 && code < 400:
		return redirectColor
	case code >= 400 && code < 500:
		return clientErrColor
	default:
		return serverErrColor
	}
}

// FormatDuration renders a millisecond duration the way the console
// shows it: "245 ms" or "2.10 s".
func FormatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%d ms", ms)
	}
	return fmt.Sprintf("%.2f s", float64(ms)/1000)
}

// PrintRecord prints a response record: status line, timing, optional
// headers, and the body (WebSocket logs get their own rendering).
func PrintRecord(rec *model.ResponseRecord, showHeaders bool) {
	statusColor(rec.Status).Printf("%s\n", sanitizeOutput(rec.Status))
	dimColor.Printf("  %s · %s\n", FormatDuration(rec.Duration), sanitizeOutput(rec.URL))
	dimColor.Printf("  Time: %s\n\n", rec.Timestamp.Format("2006-01-02 15:04:05"))

	if showHeaders {
		printHeaders(rec.Headers)
	}

	if entries, ok := rec.Body.([]model.WSLogEntry); ok {
		PrintWSLog(entries)
		return
	}
	printBody(rec.Body, rec.Raw)
}

func printHeaders(headers map[string]string) {
	if len(headers) == 0 {
		return
	}

	fmt.Println("Headers:")

	// Sort headers for consistent output
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		headerKeyColor.Printf("  %s: ", sanitizeOutput(key))
		fmt.Println(sanitizeOutput(headers[key]))
	}
	fmt.Println()
}

func printBody(body any, raw string) {
	if body == nil && raw == "" {
		dimColor.Println("(empty body)")
		return
	}

	if text, ok := body.(string); ok {
		if text == "" {
			dimColor.Println("(empty body)")
			return
		}
		fmt.Println(sanitizeOutput(prettyJSON(text)))
		return
	}

	pretty, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		fmt.Println(sanitizeOutput(raw))
		return
	}
	fmt.Println(sanitizeOutput(string(pretty)))
}

func prettyJSON(s string) string {
	var out bytes.Buffer
	err := json.Indent(&out, []byte(s), "", "  ")
	if err != nil {
		// Not valid JSON, return as-is
		return s
	}
	return out.String()
}

// PrintWSLog prints a WebSocket event log, most recent first.
func PrintWSLog(entries []model.WSLogEntry) {
	if len(entries) == 0 {
		dimColor.Println("(no events)")
		return
	}
	for _, entry := range entries {
		PrintWSEntry(entry)
	}
}

// PrintWSEntry prints a single WebSocket log line.
func PrintWSEntry(entry model.WSLogEntry) {
	dimColor.Printf("%s ", entry.Timestamp.Format("15:04:05"))
	switch entry.Type {
	case model.WSEntrySent:
		methodColor.Printf("%-8s", "sent")
	case model.WSEntryMessage:
		successColor.Printf("%-8s", "message")
	default:
		headerKeyColor.Printf("%-8s", "system")
	}
	fmt.Println(sanitizeOutput(entry.Message))
}

// PrintPresetList prints the preset library, marking the active entry.
func PrintPresetList(presets []model.Preset, activeID string) {
	if len(presets) == 0 {
		dimColor.Println("No presets in library")
		return
	}

	for i, p := range presets {
		marker := " "
		if p.ID == activeID {
			marker = "*"
		}
		dimColor.Printf("%s [%d] ", marker, i+1)
		headerKeyColor.Printf("%-10s ", string(p.Type))
		fmt.Printf("%-32s ", sanitizeOutput(p.Name))

		if p.Type == model.TypeWebSocket {
			methodColor.Printf("%-7s ", "WS")
		} else if p.Type == model.TypeGraphQL {
			methodColor.Printf("%-7s ", "POST")
		} else {
			methodColor.Printf("%-7s ", p.Method)
		}
		urlColor.Println(sanitizeOutput(p.URL))
	}
}

// PrintPresetDetail prints every stored field of one preset.
func PrintPresetDetail(p model.Preset) {
	headerKeyColor.Printf("%s ", string(p.Type))
	fmt.Println(sanitizeOutput(p.Name))
	fmt.Println(strings.Repeat("-", 40))
	dimColor.Printf("ID: %s\n", p.ID)
	methodColor.Printf("%s ", p.Method)
	urlColor.Println(sanitizeOutput(p.URL))

	if p.Headers != "" {
		fmt.Println("Headers:")
		fmt.Println(sanitizeOutput(prettyJSON(p.Headers)))
	}
	if p.Query != "" {
		fmt.Println("Query params:")
		fmt.Println(sanitizeOutput(p.Query))
	}
	if p.Body != "" {
		fmt.Println("Body:")
		fmt.Println(sanitizeOutput(prettyJSON(p.Body)))
	}
	if p.GraphQLQuery != "" {
		fmt.Println("GraphQL query:")
		fmt.Println(sanitizeOutput(p.GraphQLQuery))
	}
	if p.GraphQLVariables != "" {
		fmt.Println("GraphQL variables:")
		fmt.Println(sanitizeOutput(prettyJSON(p.GraphQLVariables)))
	}
	if p.WSMessage != "" {
		fmt.Printf("WS message: %s\n", sanitizeOutput(p.WSMessage))
	}

	fmt.Printf("Include bearer: %v · Include API key: %v\n", p.BearerEnabled(), p.APIKeyEnabled())
}

// PrintPingTable prints one row per preset with its latest silent-poll
// outcome.
func PrintPingTable(presets []model.Preset, ping func(id string) (model.LastPing, bool), monitored func(id string) bool) {
	for _, p := range presets {
		if !monitored(p.ID) {
			continue
		}
		fmt.Printf("%-32s ", sanitizeOutput(p.Name))

		last, ok := ping(p.ID)
		if !ok {
			dimColor.Println("no ping yet")
			continue
		}
		statusColor(last.Status).Printf("%-6s ", last.Status)
		dimColor.Printf("%-10s %s\n", FormatDuration(last.Duration), last.Timestamp.Format("15:04:05"))
	}
}

// PrintArchivedRuns prints archived runs in a compact format.
func PrintArchivedRuns(runs []storage.ArchivedRun, limit int) {
	if len(runs) == 0 {
		dimColor.Println("No runs in archive")
		return
	}

	count := len(runs)
	if limit > 0 && limit < count {
		count = limit
	}

	for i := 0; i < count; i++ {
		run := runs[i]
		dimColor.Printf("[%d] ", i+1)
		headerKeyColor.Printf("%-10s ", string(run.Type))

		// Truncate URL if too long, then sanitize
		url := run.URL
		if len(url) > 60 {
			url = url[:57] + "..."
		}
		urlColor.Printf("%-60s ", sanitizeOutput(url))
		statusColor(run.Status).Printf("%-6s ", run.Status)
		dimColor.Printf("(%s)\n", FormatDuration(run.Duration))
	}

	if limit > 0 && len(runs) > limit {
		dimColor.Printf("\n... and %d more runs\n", len(runs)-limit)
	}
}

// PrintArchivedRunDetail prints a full archived run.
func PrintArchivedRunDetail(run *storage.ArchivedRun) {
	headerKeyColor.Printf("%s ", string(run.Type))
	fmt.Println(sanitizeOutput(run.Name))
	fmt.Println(strings.Repeat("-", 40))
	dimColor.Printf("ID: %s\n", run.ID)
	dimColor.Printf("Preset: %s\n", run.PresetID)
	dimColor.Printf("Time: %s\n", run.Timestamp.Format("2006-01-02 15:04:05"))
	urlColor.Println(sanitizeOutput(run.URL))
	fmt.Print("Status: ")
	statusColor(run.Status).Printf("%s ", run.Status)
	dimColor.Printf("(%s)\n\n", FormatDuration(run.Duration))

	printHeaders(run.Headers)

	if run.Raw != "" {
		fmt.Println(sanitizeOutput(prettyJSON(run.Raw)))
	} else {
		dimColor.Println("(empty body)")
	}
}

// PrintSuccess prints a success message
func PrintSuccess(msg string) {
	successColor.Printf("✓ %s\n", msg)
}

// PrintError prints an error message
func PrintError(msg string) {
	clientErrColor.Printf("✗ %s\n", msg)
}
