// Package output provides styled terminal output helpers (success, error,
// warning, sync operation formatting) using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Styles
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	opStyles     = map[string]lipgloss.Style{
		"create": lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		"update": lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		"delete": lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

// Success prints a success message
func Success(format string, args ...interface{}) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	fmt.Println(fmt.Sprintf(format, args...))
}

// JSON outputs data as JSON
func JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// Error codes for structured JSON output
const (
	ErrCodeMalformedConfig = "malformed_config"
	ErrCodeNothingStaged   = "nothing_staged"
	ErrCodeStageRejected   = "stage_rejected"
	ErrCodePartialPublish  = "partial_publish"
	ErrCodeUnauthorized    = "unauthorized"
	ErrCodeRateLimited     = "rate_limited"
	ErrCodeNotFound        = "not_found"
	ErrCodeNoDraft         = "no_draft"
	ErrCodeTransport       = "transport_error"
)

// JSONError outputs an error as JSON
func JSONError(code, message string) {
	errObj := map[string]interface{}{
		"code":    code,
		"message": message,
	}
	data, _ := json.MarshalIndent(map[string]interface{}{"error": errObj}, "", "  ")
	fmt.Println(string(data))
}

// Title renders a bold heading
func Title(s string) string {
	return titleStyle.Render(s)
}

// Subtle renders dimmed supporting text
func Subtle(s string) string {
	return subtleStyle.Render(s)
}

// FormatOp formats one sync operation line: a styled upper-case verb
// followed by the flag name. Verb is "create", "update", or "delete".
func FormatOp(verb, name string) string {
	styled := strings.ToUpper(verb)
	if style, ok := opStyles[verb]; ok {
		styled = style.Render(styled)
	}
	return fmt.Sprintf("  %s  %s", styled, name)
}

// FormatOutcome renders an ok/error outcome marker.
func FormatOutcome(outcome string) string {
	if outcome == "error" {
		return errorStyle.Render("✗")
	}
	return successStyle.Render("✓")
}

// FormatTimeAgo formats a time as a human-readable "ago" string
func FormatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1m ago"
		}
		return fmt.Sprintf("%dm ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	default:
		return t.Format("2006-01-02")
	}
}

// MaskToken hides all but the last four characters of a secret.
func MaskToken(token string) string {
	if len(token) <= 4 {
		return strings.Repeat("*", len(token))
	}
	return strings.Repeat("*", 8) + token[len(token)-4:]
}
