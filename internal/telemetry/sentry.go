// Package telemetry wires optional Sentry error reporting. Telemetry is
// opt-in; without a DSN nothing leaves the process.
package telemetry

import (
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/tphakala/roofsolar/internal/conf"
	"github.com/tphakala/roofsolar/internal/errors"
)

var enabled atomic.Bool

// InitSentry initializes the Sentry SDK and installs the error reporter
// when telemetry is enabled in settings.
func InitSentry(settings *conf.Settings, version string) error {
	if !settings.Telemetry.Enabled {
		return nil
	}
	if settings.Telemetry.DSN == "" {
		log.Println("Telemetry enabled but no DSN configured, reporting stays off")
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.Telemetry.DSN,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      "production",
		ServerName:       "",
		Release:          fmt.Sprintf("roofsolar@%s", version),
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		return errors.New(fmt.Errorf("sentry initialization failed: %w", err)).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	enabled.Store(true)
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	return nil
}

// Enabled reports whether InitSentry installed a reporter.
func Enabled() bool {
	return enabled.Load()
}

// applyPrivacyFilters strips host and user identifying data from an event.
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	for k := range event.Extra {
		if k != "error_type" && k != "component" {
			delete(event.Extra, k)
		}
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	return event
}

// Flush waits for buffered events to be sent.
func Flush(timeout time.Duration) {
	if !enabled.Load() {
		return
	}
	sentry.Flush(timeout)
}
