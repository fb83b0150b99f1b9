package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/helixir/paperbot/internal/domain"
	"github.com/helixir/paperbot/internal/observability"
)

// maxEventBodySize bounds an Events API request body (1 MiB).
const maxEventBodySize = 1 << 20

// Events API envelope types.
const (
	envelopeURLVerification = "url_verification"
	envelopeEventCallback   = "event_callback"
)

// Retry headers set by the Events API on redelivery.
const (
	headerRetryNum    = "X-Slack-Retry-Num"
	headerRetryReason = "X-Slack-Retry-Reason"
)

type eventEnvelope struct {
	Type      string          `json:"type"`
	Challenge string          `json:"challenge"`
	EventID   string          `json:"event_id"`
	Event     json.RawMessage `json:"event"`
}

type messageEvent struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype"`
	User    string `json:"user"`
	BotID   string `json:"bot_id"`
	Text    string `json:"text"`
	Channel string `json:"channel"`
	TS      string `json:"ts"`
}

type eventAckResponse struct {
	OK      bool   `json:"ok"`
	Outcome string `json:"outcome,omitempty"`
}

// slackEvents handles POST /slack/events. Every well-formed callback is
// acknowledged with 200 immediately; the lookup itself runs in the
// dispatcher's worker pool.
func (s *Server) slackEvents(w http.ResponseWriter, r *http.Request) {
	log := observability.Logger(r.Context(), s.logger)

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var env eventEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	switch env.Type {
	case envelopeURLVerification:
		writeJSON(w, http.StatusOK, map[string]string{"challenge": env.Challenge})
		return
	case envelopeEventCallback:
	default:
		log.Debug().Str("type", env.Type).Msg("ignoring envelope")
		writeJSON(w, http.StatusOK, eventAckResponse{OK: true, Outcome: string(domain.OutcomeIgnored)})
		return
	}

	var msg messageEvent
	if err := json.Unmarshal(env.Event, &msg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event payload")
		return
	}
	// A mention of the bot also arrives as a plain message event; handling
	// app_mention too would answer the same request twice.
	if msg.Type != "message" {
		writeJSON(w, http.StatusOK, eventAckResponse{OK: true, Outcome: string(domain.OutcomeIgnored)})
		return
	}
	if msg.Subtype != "" && msg.Subtype != "bot_message" {
		// Edits, deletions, joins and the like carry no new request.
		writeJSON(w, http.StatusOK, eventAckResponse{OK: true, Outcome: string(domain.OutcomeIgnored)})
		return
	}

	ev := toChatEvent(msg, r.Header)
	if err := s.validate.Struct(ev); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			log.Warn().
				Str("event_id", env.EventID).
				Str("field", verrs[0].Field()).
				Str("rule", verrs[0].Tag()).
				Msg("dropping invalid chat event")
		}
		writeJSON(w, http.StatusOK, eventAckResponse{OK: true, Outcome: string(domain.OutcomeIgnored)})
		return
	}

	outcome := s.dispatcher.OnMessage(ev)
	level := zerolog.DebugLevel
	if outcome.IsDispatched() {
		level = zerolog.InfoLevel
	}
	log.WithLevel(level).
		Str("event_id", env.EventID).
		Str("channel", ev.Channel).
		Str("outcome", string(outcome)).
		Msg("event acknowledged")

	writeJSON(w, http.StatusOK, eventAckResponse{OK: true, Outcome: string(outcome)})
}

func toChatEvent(msg messageEvent, header http.Header) domain.ChatEvent {
	ev := domain.ChatEvent{
		Text:        msg.Text,
		AuthorID:    msg.User,
		IsBot:       msg.BotID != "" || msg.Subtype == "bot_message",
		Channel:     msg.Channel,
		Timestamp:   msg.TS,
		RetryReason: header.Get(headerRetryReason),
	}
	if n, err := strconv.Atoi(header.Get(headerRetryNum)); err == nil {
		ev.RetryNum = n
	}
	return ev
}
