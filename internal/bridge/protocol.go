package bridge

// MessageType discriminates bridge frames
type MessageType string

// Editor to notifier frames.
const (
	// MsgEdit reports a text change; Length is the document length after it
	MsgEdit MessageType = "edit"
	// MsgFocus reports a switch to another document
	MsgFocus MessageType = "focus"
	// MsgSuggestion carries the label of the first completion candidate
	MsgSuggestion MessageType = "suggestion"
	// MsgActionResult answers a show_message frame with the chosen action
	MsgActionResult MessageType = "action_result"
)

// Notifier to editor frames.
const (
	// MsgShowMessage asks the editor to show an in-editor message with actions
	MsgShowMessage MessageType = "show_message"
	// MsgRequestSuggestion asks the editor to re-run its completion request
	MsgRequestSuggestion MessageType = "request_suggestion"
	// MsgOpenSettings asks the editor to open the notifier settings
	MsgOpenSettings MessageType = "open_settings"
	// MsgError reports a frame the notifier could not handle
	MsgError MessageType = "error"
)

// Inbound is a frame sent by the editor
type Inbound struct {
	Type     MessageType `json:"type"`
	Length   int         `json:"length,omitempty"`
	Document string      `json:"document,omitempty"`
	Text     string      `json:"text,omitempty"`
	ID       string      `json:"id,omitempty"`
	Action   string      `json:"action,omitempty"`
}

// Outbound is a frame sent to the editor
type Outbound struct {
	Type     MessageType `json:"type"`
	ID       string      `json:"id,omitempty"`
	Severity string      `json:"severity,omitempty"`
	Message  string      `json:"message,omitempty"`
	Actions  []string    `json:"actions,omitempty"`
}

// TestResponse is the body returned by POST /api/v1/alerts/test
type TestResponse struct {
	Delivered bool     `json:"delivered"`
	Strategy  string   `json:"strategy,omitempty"`
	Failures  []string `json:"failures,omitempty"`
	Error     string   `json:"error,omitempty"`
}
