package services

import (
	"context"
	"time"

	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/rpc"
	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
)

// Methods of the system service
const (
	MethodGetSystemInfo   = "getSystemInfo"
	MethodGetLanguagePack = "getLanguagePack"
	MethodRunSelfTests    = "runSelfTests"
	MethodLogError        = "logError"
)

// SystemInfo is the remote configuration loaded at boot. Pointer fields are
// optional overrides of local configuration.
type SystemInfo struct {
	Name                string          `json:"name"`
	Version             string          `json:"version"`
	Debug               *bool           `json:"debug,omitempty"`
	UseRemoteFilesystem *bool           `json:"useRemoteFilesystem,omitempty"`
	DefaultLocale       string          `json:"defaultLocale,omitempty"`
	Features            map[string]bool `json:"features,omitempty"`
}

// SelfTestResult is one diagnostic check
type SelfTestResult struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message,omitempty"`
}

// SelfTestReport is the outcome of runSelfTests
type SelfTestReport struct {
	Passed  int              `json:"passed"`
	Failed  int              `json:"failed"`
	Results []SelfTestResult `json:"results"`
}

// ErrorReport is sent to logError
type ErrorReport struct {
	Message   string            `json:"message"`
	Kind      string            `json:"kind,omitempty"`
	Op        string            `json:"op,omitempty"`
	Username  string            `json:"username,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Context   map[string]string `json:"context,omitempty"`
}

type localeParams struct {
	Locale string `json:"locale"`
}

// System is the typed client of the system service
type System struct {
	caller rpc.Caller
}

// NewSystem creates a system client
func NewSystem(caller rpc.Caller) *System {
	return &System{caller: caller}
}

// GetSystemInfo loads the remote configuration
func (s *System) GetSystemInfo(ctx context.Context) (*SystemInfo, error) {
	const op = "system.getSystemInfo"
	data, err := s.caller.Call(ctx, MethodGetSystemInfo, nil)
	if err != nil {
		return nil, err
	}
	info := &SystemInfo{}
	if rpc.IsNull(data) {
		return info, nil
	}
	if err := rpc.Decode(op, data, info); err != nil {
		return nil, err
	}
	return info, nil
}

// GetLanguagePack returns the translation table for locale
func (s *System) GetLanguagePack(ctx context.Context, locale string) (map[string]string, error) {
	const op = "system.getLanguagePack"
	data, err := s.caller.Call(ctx, MethodGetLanguagePack, localeParams{Locale: locale})
	if err != nil {
		return nil, err
	}
	pack := map[string]string{}
	if rpc.IsNull(data) {
		return pack, nil
	}
	if err := rpc.Decode(op, data, &pack); err != nil {
		return nil, err
	}
	return pack, nil
}

// RunSelfTests runs the server diagnostics. Counts are derived from the
// results when the service omits them.
func (s *System) RunSelfTests(ctx context.Context) (*SelfTestReport, error) {
	const op = "system.runSelfTests"
	data, err := s.caller.Call(ctx, MethodRunSelfTests, nil)
	if err != nil {
		return nil, err
	}
	report := &SelfTestReport{Results: []SelfTestResult{}}
	if rpc.IsNull(data) {
		return report, nil
	}
	if err := rpc.Decode(op, data, report); err != nil {
		return nil, err
	}
	if report.Passed == 0 && report.Failed == 0 {
		for _, r := range report.Results {
			if r.Passed {
				report.Passed++
			} else {
				report.Failed++
			}
		}
	}
	return report, nil
}

// LogError reports a client-side error
func (s *System) LogError(ctx context.Context, report ErrorReport) error {
	if report.Message == "" {
		return errs.Validation("system.logError", "message is required")
	}
	if report.Timestamp.IsZero() {
		report.Timestamp = time.Now()
	}
	_, err := s.caller.Call(ctx, MethodLogError, report)
	return err
}
