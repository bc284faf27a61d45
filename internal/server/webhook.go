package server

import (
	"encoding/xml"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pathakanu/healthGenie/internal/assistant"
	"github.com/pathakanu/healthGenie/internal/llm"
	"github.com/pathakanu/healthGenie/internal/records"
	"github.com/pathakanu/healthGenie/internal/reminder"
	"github.com/pathakanu/healthGenie/internal/twilio"
)

const signatureHeader = "X-Twilio-Signature"

// POST /twilio/webhook
func (h *Handler) TwilioWebhook(ctx *gin.Context) {
	if err := ctx.Request.ParseForm(); err != nil {
		h.Logger.WithError(err).Warn("webhook: parse error")
		h.writeTwilioResponse(ctx, "Sorry, I couldn't understand that request.")
		return
	}

	if h.Config.TwilioWebhookURL != "" {
		signature := ctx.GetHeader(signatureHeader)
		if h.Twilio == nil || !h.Twilio.ValidateWebhook(h.Config.TwilioWebhookURL, ctx.Request.PostForm, signature) {
			h.Logger.WithField("remote", ctx.ClientIP()).Warn("webhook: invalid signature")
			ctx.AbortWithStatus(http.StatusForbidden)
			return
		}
	}

	from := ctx.Request.PostFormValue("From")
	body := strings.TrimSpace(ctx.Request.PostFormValue("Body"))
	sessionID := twilio.SessionID(from)
	if sessionID == "" || body == "" {
		h.writeTwilioResponse(ctx, "I need a message to work with. Please try again.")
		return
	}

	switch command := strings.ToLower(body); {
	case command == "help":
		h.writeTwilioResponse(ctx, helpResponse())
		return
	case isRemindersRequest(command):
		h.writeTwilioResponse(ctx, h.whatsAppReminders(ctx, from))
		return
	}

	reply, err := h.Assistant.Chat(ctx.Request.Context(), sessionID, body)
	if err != nil {
		h.Logger.WithError(err).WithField("session", sessionID).Warn("webhook: chat failed")
		h.writeTwilioResponse(ctx, friendlyError(err))
		return
	}
	h.writeTwilioResponse(ctx, reply.Reply)
}

// whatsAppReminders lists the reminders of the web session that registered
// the sender's number.
func (h *Handler) whatsAppReminders(ctx *gin.Context, from string) string {
	profile, err := h.Records.ProfileByWhatsApp(ctx.Request.Context(), from)
	if err != nil {
		if !errors.Is(err, records.ErrNotFound) {
			h.Logger.WithError(err).Warn("webhook: profile lookup failed")
		}
		return "Add this WhatsApp number to your HealthGenie profile to get reminders here."
	}
	now := h.Tracker.Now()
	upcoming, err := reminder.ForSession(ctx.Request.Context(), h.Records, profile.SessionID, now, reminder.DefaultLimit)
	if err != nil {
		h.Logger.WithError(err).Warn("webhook: reminders failed")
		return "Hmm, I couldn't load your reminders. Please try again later."
	}
	if len(upcoming) == 0 {
		return "You have no upcoming medications or appointments."
	}
	return reminder.Digest(upcoming, now.Location())
}

func (h *Handler) writeTwilioResponse(ctx *gin.Context, message string) {
	twiml := struct {
		XMLName xml.Name `xml:"Response"`
		Message string   `xml:"Message"`
	}{
		Message: message,
	}

	ctx.Header("Content-Type", "application/xml")
	ctx.Status(http.StatusOK)
	if err := xml.NewEncoder(ctx.Writer).Encode(twiml); err != nil {
		h.Logger.WithError(err).Error("twilio response encode")
	}
}

func friendlyError(err error) string {
	switch {
	case errors.Is(err, assistant.ErrEmptyMessage):
		return "I need a message to work with. Please try again."
	case errors.Is(err, llm.ErrClientNotInitialised):
		return "The assistant isn't configured yet. Please try again later."
	case errors.Is(err, llm.ErrRateLimited):
		return "I'm getting a lot of questions right now. Please try again in a minute."
	default:
		return "Sorry, I couldn't process that. Please try again."
	}
}

func isRemindersRequest(body string) bool {
	return body == "reminders" ||
		strings.Contains(body, "show my reminders") ||
		strings.Contains(body, "list reminders") ||
		strings.Contains(body, "list my reminders")
}

func helpResponse() string {
	return "You can say things like:\n- \"I have had a headache since yesterday\" to log a symptom\n- Any health question to get general guidance\n- \"Reminders\" to see your upcoming medications and appointments"
}
