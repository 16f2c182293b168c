package config

// Default values that other packages reference directly
const (
	DefaultBridgeAddr        = "127.0.0.1:7878"
	DefaultHistoryMaxEntries = 200
)

// GetDefaults returns the default configuration values keyed by dotted path
func GetDefaults() map[string]interface{} {
	return map[string]interface{}{
		"enabled":                   true,
		"monitor_session":           true,
		"session_timeout_seconds":   30,
		"burst_delta_threshold":     20,
		"rapid_typing_window_ms":    1000,
		"minimum_suggestion_length": 10,
		"use_sound":                 true,
		"sound_file":                "",
		"notification_type":         "warning",
		"native_notifications":      true,
		"show_editor_messages":      false,
		"silent_mode":               false,
		"bridge.addr":               DefaultBridgeAddr,
		"bridge.token":              "",
		"watch.dir":                 "",
		"history.max_entries":       DefaultHistoryMaxEntries,
		"log.level":                 "info",
		"log.format":                "auto",
	}
}
