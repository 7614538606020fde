package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pathakanu/remindme/internal/intent"
	"github.com/pathakanu/remindme/internal/model"
	myopenai "github.com/pathakanu/remindme/internal/openai"
	"github.com/pathakanu/remindme/internal/twilio"
	"github.com/rs/zerolog"
)

const (
	greetingReply = "Hello! I'm your reminder bot. You can ask me to set a reminder like this: 'remind me to call mom tomorrow at 3pm'."
	guidanceReply = "I couldn't understand that. Please phrase your reminder like 'remind me to buy milk tomorrow at 5pm'."
	saveFailReply = "I couldn't save the reminder. Please try again."

	dueLayout = "2006-01-02 at 15:04"
)

// Store persists new reminders.
type Store interface {
	Add(ctx context.Context, r model.Reminder) (string, error)
}

// Summarizer optionally rewrites a task for the delivered message.
type Summarizer interface {
	SummarizeReminder(ctx context.Context, task string) (string, error)
}

// Bot turns inbound WhatsApp messages into stored reminders.
type Bot struct {
	store      Store
	summarizer Summarizer
	validator  *twilio.Validator
	location   *time.Location
	now        func() time.Time
	logger     zerolog.Logger
}

// Option configures a Bot.
type Option func(*Bot)

// WithSummarizer enables task summaries.
func WithSummarizer(s Summarizer) Option {
	return func(b *Bot) { b.summarizer = s }
}

// WithValidator rejects webhook requests without a valid Twilio signature.
func WithValidator(v *twilio.Validator) Option {
	return func(b *Bot) { b.validator = v }
}

// WithLocation sets the server-local location used to resolve times.
func WithLocation(loc *time.Location) Option {
	return func(b *Bot) {
		if loc != nil {
			b.location = loc
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Bot) {
		if now != nil {
			b.now = now
		}
	}
}

// New creates a Bot backed by store.
func New(store Store, logger zerolog.Logger, opts ...Option) *Bot {
	b := &Bot{
		store:    store,
		location: time.Local,
		now:      time.Now,
		logger:   logger.With().Str("component", "bot").Logger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Handle returns the reply for one inbound message. It never fails: every
// outcome, including storage errors, maps to a reply for the sender.
func (b *Bot) Handle(ctx context.Context, sender, text string) string {
	body := strings.TrimSpace(text)
	if body == "" || !intent.IsRequest(body) {
		return greetingReply
	}

	match, ok := intent.Parse(b.now().In(b.location), body)
	if !ok {
		b.logger.Debug().Str("sender", sender).Str("body", body).Msg("unparsed reminder request")
		return guidanceReply
	}

	if strings.TrimSpace(sender) == "" {
		b.logger.Warn().Msg("reminder request without sender, not saved")
		return greetingReply
	}

	reminder := model.Reminder{
		Recipient: sender,
		Task:      match.Task,
		Summary:   b.summarize(ctx, match.Task),
		DueAt:     match.DueAt,
	}
	id, err := b.store.Add(ctx, reminder)
	if err != nil {
		b.logger.Error().Err(err).Str("sender", sender).Msg("save reminder")
		return saveFailReply
	}

	b.logger.Info().
		Str("reminder_id", id).
		Str("sender", sender).
		Time("due_at", match.DueAt).
		Msg("reminder saved")
	return fmt.Sprintf("Okay, I'll remind you to '%s' on %s.", match.Task, match.DueAt.Format(dueLayout))
}

// summarize returns an optional summary; failures only cost the summary.
func (b *Bot) summarize(ctx context.Context, task string) string {
	if b.summarizer == nil {
		return ""
	}
	summary, err := b.summarizer.SummarizeReminder(ctx, task)
	if err != nil {
		if !errors.Is(err, myopenai.ErrClientNotInitialised) {
			b.logger.Warn().Err(err).Msg("openai summarise")
		}
		return ""
	}
	return summary
}

// Handler returns the HTTP handler for incoming Twilio messages.
func (b *Bot) Handler() http.HandlerFunc {
	return b.handleIncomingMessage
}

// handleIncomingMessage processes Twilio webhook POST requests.
func (b *Bot) handleIncomingMessage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		b.logger.Warn().Err(err).Msg("webhook: parse form")
		b.writeTwilioResponse(w, greetingReply)
		return
	}

	if b.validator != nil && !b.validator.Valid(r) {
		b.logger.Warn().Str("remote", r.RemoteAddr).Msg("webhook: invalid twilio signature")
		w.WriteHeader(http.StatusForbidden)
		return
	}

	reply := b.Handle(r.Context(), r.FormValue("From"), r.FormValue("Body"))
	b.writeTwilioResponse(w, reply)
}

func (b *Bot) writeTwilioResponse(w http.ResponseWriter, message string) {
	twiml, err := twilio.MessageResponse(message)
	if err != nil {
		b.logger.Error().Err(err).Msg("twilio response encode")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(twiml)); err != nil {
		b.logger.Warn().Err(err).Msg("twilio response write")
	}
}
