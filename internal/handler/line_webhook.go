package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/aryan0dhankhar/jobmatch/internal/service"
)

// ChatHandler answers inbound chat-bot events.
type ChatHandler interface {
	HandleEvents(ctx context.Context, events []service.ChatEvent)
}

// LineWebhookHandler receives the LINE Messaging API webhook
type LineWebhookHandler struct {
	chat          ChatHandler
	channelSecret string
	logger        *slog.Logger
}

// NewLineWebhookHandler creates a new webhook handler. An empty secret
// disables signature verification, which only local setups should do.
func NewLineWebhookHandler(chat ChatHandler, channelSecret string, logger *slog.Logger) *LineWebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if channelSecret == "" {
		logger.Warn("line webhook signature verification disabled")
	}
	return &LineWebhookHandler{chat: chat, channelSecret: channelSecret, logger: logger}
}

// ServeHTTP handles POST /api/line/webhook
func (h *LineWebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	cb, err := h.parse(r)
	if errors.Is(err, webhook.ErrInvalidSignature) {
		h.logger.Warn("line webhook signature rejected", slog.String("remote_addr", r.RemoteAddr))
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "invalid signature"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}

	events := make([]service.ChatEvent, 0, len(cb.Events))
	for _, e := range cb.Events {
		if ev, ok := toChatEvent(e); ok {
			events = append(events, ev)
		}
	}
	h.chat.HandleEvents(r.Context(), events)

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *LineWebhookHandler) parse(r *http.Request) (*webhook.CallbackRequest, error) {
	if h.channelSecret != "" {
		return webhook.ParseRequest(h.channelSecret, r)
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	var cb webhook.CallbackRequest
	if err := json.Unmarshal(body, &cb); err != nil {
		return nil, err
	}
	return &cb, nil
}

// toChatEvent keeps the event kinds the chat-bot answers.
func toChatEvent(e webhook.EventInterface) (service.ChatEvent, bool) {
	switch ev := e.(type) {
	case webhook.FollowEvent:
		return service.ChatEvent{Type: service.ChatFollow, ReplyToken: ev.ReplyToken, UserID: sourceUserID(ev.Source)}, true
	case webhook.MessageEvent:
		out := service.ChatEvent{Type: service.ChatMessage, ReplyToken: ev.ReplyToken, UserID: sourceUserID(ev.Source)}
		if text, ok := ev.Message.(webhook.TextMessageContent); ok {
			out.Text = text.Text
		}
		return out, true
	case webhook.PostbackEvent:
		out := service.ChatEvent{Type: service.ChatPostback, ReplyToken: ev.ReplyToken, UserID: sourceUserID(ev.Source)}
		if ev.Postback != nil {
			out.PostbackData = ev.Postback.Data
		}
		return out, true
	}
	return service.ChatEvent{}, false
}

func sourceUserID(src webhook.SourceInterface) string {
	if u, ok := src.(webhook.UserSource); ok {
		return u.UserId
	}
	return ""
}
