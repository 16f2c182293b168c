package notify

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Severity is the urgency of an alert
type Severity string

const (
	// SeverityInfo is an informational alert
	SeverityInfo Severity = "info"
	// SeverityWarning is an alert that asks for attention
	SeverityWarning Severity = "warning"
	// SeverityError is an urgent alert
	SeverityError Severity = "error"
)

// ValidSeverity checks if the given string is a valid severity
func ValidSeverity(s string) bool {
	switch Severity(s) {
	case SeverityInfo, SeverityWarning, SeverityError:
		return true
	default:
		return false
	}
}

// ParseSeverity returns the severity named by s, or SeverityInfo when s is unknown
func ParseSeverity(s string) Severity {
	if ValidSeverity(s) {
		return Severity(s)
	}
	return SeverityInfo
}

// Request is one alert to deliver
type Request struct {
	// ID correlates log lines and history entries for one dispatch
	ID string

	// Title is the alert title (e.g., "Copilot Suggestion")
	Title string

	// Body is the alert text
	Body string

	// WantsSound asks each strategy to play a sound cue if it can
	WantsSound bool

	// Severity selects urgency, icons and dialog types where supported
	Severity Severity
}

// NewRequest creates a Request with a fresh ID
func NewRequest(title, body string, severity Severity, wantsSound bool) Request {
	return Request{
		ID:         uuid.NewString(),
		Title:      title,
		Body:       body,
		WantsSound: wantsSound,
		Severity:   severity,
	}
}

// Suggestion is one observed completion candidate
type Suggestion struct {
	Text string
	// Length is the candidate length in characters (runes)
	Length int
}

// NewSuggestion creates a Suggestion from the first candidate's label text
func NewSuggestion(text string) Suggestion {
	return Suggestion{Text: text, Length: utf8.RuneCountInString(text)}
}

const (
	// DisplayBudget is the number of suggestion characters kept when truncating
	DisplayBudget = 47
	// Ellipsis marks a truncated suggestion
	Ellipsis = "..."
)

// Truncate bounds suggestion text for display.
// Text longer than DisplayBudget+len(Ellipsis) characters is cut to
// DisplayBudget characters followed by Ellipsis.
func Truncate(text string) string {
	if utf8.RuneCountInString(text) <= DisplayBudget+len(Ellipsis) {
		return text
	}
	runes := []rune(text)
	return string(runes[:DisplayBudget]) + Ellipsis
}

// singleLine collapses newlines so multi-line suggestions fit one notification line
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
