package twilio

import (
	"net/http"
	"net/url"

	"github.com/twilio/twilio-go/client"
	"github.com/twilio/twilio-go/twiml"
)

// SignatureHeader carries Twilio's request signature.
const SignatureHeader = "X-Twilio-Signature"

// Validator checks that webhook requests were signed by Twilio.
type Validator struct {
	rv        client.RequestValidator
	publicURL string
}

// NewValidator creates a validator for the account's auth token. publicURL is
// the webhook URL as configured in Twilio; when empty it is rebuilt from the
// request, which is wrong behind proxies that rewrite the host.
func NewValidator(authToken, publicURL string) *Validator {
	return &Validator{rv: client.NewRequestValidator(authToken), publicURL: publicURL}
}

// Valid reports whether r (with its form already parsed) carries a valid signature.
func (v *Validator) Valid(r *http.Request) bool {
	signature := r.Header.Get(SignatureHeader)
	if signature == "" {
		return false
	}
	return v.rv.Validate(v.requestURL(r), DecodeForm(r.PostForm), signature)
}

func (v *Validator) requestURL(r *http.Request) string {
	if v.publicURL != "" {
		return v.publicURL
	}
	scheme := "https"
	if r.TLS == nil {
		if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
			scheme = fwd
		} else {
			scheme = "http"
		}
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

// DecodeForm extracts the POST form data into a map for signature checks.
func DecodeForm(values url.Values) map[string]string {
	result := make(map[string]string, len(values))
	for key, value := range values {
		if len(value) > 0 {
			result[key] = value[0]
		}
	}
	return result
}

// MessageResponse renders a TwiML messaging response with a single message.
func MessageResponse(body string) (string, error) {
	return twiml.Messages([]twiml.Element{&twiml.MessagingMessage{Body: body}})
}
