package twilio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	twilio "github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"golang.org/x/time/rate"
)

// ErrNotConfigured is returned when the client has no credentials or sender.
var ErrNotConfigured = errors.New("twilio client not configured")

// messageCreator is the subset of the Twilio REST API used for sending.
type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// Options tune outbound delivery.
type Options struct {
	// RatePerSec caps outbound messages per second. Zero means 1.
	RatePerSec float64
	// Timeout bounds each HTTP call to Twilio. Zero keeps the SDK default.
	Timeout time.Duration
}

// Client wraps Twilio messaging operations required by the bot.
type Client struct {
	api          messageCreator
	fromWhatsApp string
	limiter      *rate.Limiter
	log          zerolog.Logger
}

// New creates a Twilio client bound to the configured WhatsApp sender number.
func New(accountSID, authToken, fromWhatsApp string, opts Options, log zerolog.Logger) *Client {
	rest := twilio.NewRestClientWithParams(twilio.ClientParams{Username: accountSID, Password: authToken})
	if opts.Timeout > 0 {
		rest.SetTimeout(opts.Timeout)
	}
	return newClient(rest.Api, fromWhatsApp, opts, log)
}

func newClient(api messageCreator, fromWhatsApp string, opts Options, log zerolog.Logger) *Client {
	rps := opts.RatePerSec
	if rps <= 0 {
		rps = 1
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		api:          api,
		fromWhatsApp: fromWhatsApp,
		limiter:      rate.NewLimiter(rate.Limit(rps), burst),
		log:          log.With().Str("component", "twilio").Logger(),
	}
}

// Send delivers a WhatsApp message via Twilio's API. It waits for the
// outbound rate limiter and gives up when ctx is done.
func (c *Client) Send(ctx context.Context, to, body string) error {
	if c == nil || c.api == nil {
		return ErrNotConfigured
	}

	sender := NormalizeWhatsAppAddress(c.fromWhatsApp)
	if sender == "" {
		return fmt.Errorf("%w: sender WhatsApp number is empty", ErrNotConfigured)
	}

	recipient := NormalizeWhatsAppAddress(to)
	if recipient == "" {
		return fmt.Errorf("recipient number missing or invalid")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("twilio rate limit wait: %w", err)
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(recipient)
	params.SetFrom(sender)
	params.SetBody(body)

	type result struct {
		resp *openapi.ApiV2010Message
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := c.api.CreateMessage(params)
		done <- result{resp: resp, err: err}
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("twilio send message: %w", ctx.Err())
	case res := <-done:
		if res.err != nil {
			return fmt.Errorf("twilio send message error: %w", res.err)
		}
		sid := ""
		if res.resp != nil && res.resp.Sid != nil {
			sid = *res.resp.Sid
		}
		c.log.Debug().Str("to", recipient).Str("sid", sid).Msg("twilio message sent")
		return nil
	}
}

// NormalizeWhatsAppAddress returns number in Twilio's whatsapp:+E164 form.
func NormalizeWhatsAppAddress(number string) string {
	trimmed := strings.TrimSpace(number)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "whatsapp:") {
		return trimmed
	}
	if strings.HasPrefix(trimmed, "+") {
		return "whatsapp:" + trimmed
	}
	return "whatsapp:+" + trimmed
}
