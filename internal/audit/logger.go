package audit

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventTopUp           EventType = "topup"
	EventQuotaChange     EventType = "quota_change"
	EventDebitFallback   EventType = "debit_fallback"
	EventRefund          EventType = "refund"
	EventCostReload      EventType = "cost_reload"
	EventAuthFailure     EventType = "auth_failure"
	EventAdminAuthFail   EventType = "admin_auth_failure"
	EventRateLimitExceed EventType = "rate_limit_exceeded"
)

type Event struct {
	Type      EventType
	UserID    string
	IP        string
	UserAgent string
	Details   map[string]interface{}
}

func Log(ctx context.Context, event Event) {
	logger := log.With().
		Str("audit", "billing").
		Str("event_type", string(event.Type)).
		Time("timestamp", time.Now()).
		Logger()

	if event.UserID != "" {
		logger = logger.With().Str("user_id", event.UserID).Logger()
	}
	if event.IP != "" {
		logger = logger.With().Str("ip", event.IP).Logger()
	}
	if event.UserAgent != "" {
		logger = logger.With().Str("user_agent", event.UserAgent).Logger()
	}

	logEvent := logger.Info()
	if len(event.Details) > 0 {
		logEvent = logEvent.Fields(map[string]interface{}{"details": event.Details})
	}
	logEvent.Msg("audit event")
}

// FromRequest fills the request-derived fields of an event.
func FromRequest(r *http.Request, event Event) Event {
	event.IP = r.RemoteAddr
	event.UserAgent = r.UserAgent()
	return event
}
