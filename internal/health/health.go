// Package health implements the doctor checks: which delivery mechanisms
// this host offers and whether the configuration files are usable.
package health

import (
	"fmt"
	"os"
	"strings"

	"github.com/copilot-notifier/copilot-notifier/internal/config"
	"github.com/copilot-notifier/copilot-notifier/internal/notify"
)

// CheckResult represents the result of a single health check
type CheckResult struct {
	Name    string
	Passed  bool
	Message string
	// Optional failures are reported but do not fail the report
	Optional bool
}

// HealthReport contains all health check results
type HealthReport struct {
	Checks []CheckResult
	Passed bool
}

func (r *HealthReport) add(c CheckResult) {
	r.Checks = append(r.Checks, c)
	if !c.Passed && !c.Optional {
		r.Passed = false
	}
}

// Options selects what RunHealthChecks inspects
type Options struct {
	// ConfigFiles are validated when they exist
	ConfigFiles []string
	// SoundFile is checked when non-empty
	SoundFile string
	// Native is false when native notifications are turned off
	Native bool
	// Strategies is the platform chain, without the fallback
	Strategies []notify.Strategy
	// Fallback is the last-resort strategy name
	Fallback string
}

// RunHealthChecks runs all health checks and returns a report
func RunHealthChecks(opts Options) *HealthReport {
	report := &HealthReport{
		Checks: make([]CheckResult, 0, len(opts.ConfigFiles)+len(opts.Strategies)+2),
		Passed: true,
	}

	for _, path := range opts.ConfigFiles {
		report.add(CheckConfigFile(path))
	}
	if opts.SoundFile != "" {
		report.add(CheckSoundFile(opts.SoundFile))
	}

	if !opts.Native {
		report.add(CheckResult{
			Name:     "Native notifications",
			Passed:   false,
			Optional: true,
			Message:  "disabled (native_notifications: false)",
		})
	} else if len(opts.Strategies) == 0 {
		report.add(CheckResult{
			Name:     "Native notifications",
			Passed:   false,
			Optional: true,
			Message:  fmt.Sprintf("no native mechanisms for %s", notify.Platform()),
		})
	}
	available := 0
	for _, s := range opts.Strategies {
		c := CheckStrategy(s)
		if c.Passed {
			available++
		}
		report.add(c)
	}

	if opts.Fallback != "" {
		msg := "always available"
		if available == 0 {
			msg = "only delivery mechanism on this host"
		}
		report.add(CheckResult{Name: opts.Fallback, Passed: true, Message: msg})
	}
	return report
}

// CheckConfigFile validates one config file. A missing file passes.
func CheckConfigFile(path string) CheckResult {
	name := "Config " + path
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return CheckResult{Name: name, Passed: true, Message: "not present, using defaults"}
	}
	if err := config.ValidateFile(path); err != nil {
		return CheckResult{Name: name, Passed: false, Message: err.Error()}
	}
	return CheckResult{Name: name, Passed: true, Message: "valid"}
}

// CheckSoundFile checks that a custom sound can be played
func CheckSoundFile(path string) CheckResult {
	if notify.ValidateSoundFile(path, nil) == "" {
		return CheckResult{
			Name:    "Sound file",
			Passed:  false,
			Message: fmt.Sprintf("%s is missing or not a supported audio format; the system sound is used instead", path),
		}
	}
	return CheckResult{Name: "Sound file", Passed: true, Message: path}
}

// CheckStrategy reports whether a delivery mechanism can run on this host.
// Strategies that cannot say are assumed available.
func CheckStrategy(s notify.Strategy) CheckResult {
	p, ok := s.(notify.Prober)
	if !ok || p.Available() {
		return CheckResult{Name: s.Name(), Passed: true, Message: "available"}
	}
	return CheckResult{Name: s.Name(), Passed: false, Optional: true, Message: "not available on this host"}
}

// FormatReport formats the health report for console output
func FormatReport(report *HealthReport) string {
	var b strings.Builder
	for _, check := range report.Checks {
		switch {
		case check.Passed:
			fmt.Fprintf(&b, "✓ %s: %s\n", check.Name, check.Message)
		case check.Optional:
			fmt.Fprintf(&b, "- %s: %s\n", check.Name, check.Message)
		default:
			fmt.Fprintf(&b, "✗ Error: %s: %s\n", check.Name, check.Message)
		}
	}
	return b.String()
}
