// Package audit writes the ledger of code lifecycle and connection events.
package audit

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventCodesGenerated    EventType = "codes_generated"
	EventGenerateExhausted EventType = "generate_exhausted"
	EventCodeRedeemed      EventType = "code_redeemed"
	EventRedeemRejected    EventType = "redeem_rejected"
	EventConnectionOpened  EventType = "connection_opened"
	EventConnectionClosed  EventType = "connection_closed"
)

type Event struct {
	Type    EventType
	ConnID  string
	IP      string
	Code    string
	Details map[string]interface{}
}

func Log(event Event) {
	logger := log.With().
		Str("audit", "discount").
		Str("event_type", string(event.Type)).
		Time("timestamp", time.Now()).
		Logger()

	if event.ConnID != "" {
		logger = logger.With().Str("conn_id", event.ConnID).Logger()
	}
	if event.IP != "" {
		logger = logger.With().Str("ip", event.IP).Logger()
	}
	if event.Code != "" {
		logger = logger.With().Str("code", event.Code).Logger()
	}

	logEvent := logger.Info()
	for k, v := range event.Details {
		logEvent = addField(logEvent, k, v)
	}
	logEvent.Msg("audit event")
}

func addField(e *zerolog.Event, key string, value interface{}) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return e.Str(key, v)
	case int:
		return e.Int(key, v)
	case int64:
		return e.Int64(key, v)
	case bool:
		return e.Bool(key, v)
	default:
		return e.Interface(key, v)
	}
}

// ClientIP returns the address the request came from, preferring proxy headers.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}
