package sendgrid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/willemschots/newsletter/internal/email"
	"github.com/willemschots/newsletter/internal/krypto"
)

// Settings contains the settings for the SendGrid API.
type Settings struct {
	APIURL   *url.URL
	APIToken krypto.Secret
}

// Sender is an email sender that sends emails using the SendGrid API.
type Sender struct {
	client   *http.Client
	settings Settings
}

// NewSender creates a new sender.
func NewSender(client *http.Client, s Settings) *Sender {
	return &Sender{
		client:   client,
		settings: s,
	}
}

type requestJSON struct {
	Personalization []personalizationJSON `json:"personalization"`
	From            keyJSON               `json:"from"`
	Subject         string                `json:"subject"`
	Content         []contentJSON         `json:"content"`
}

type personalizationJSON struct {
	To []keyJSON `json:"to"`
}

type keyJSON struct {
	Email string `json:"email"`
}

type contentJSON struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Send sends an email using the SendGrid API. We don't use the Go
// sendgrid package, because it brings in a lot of dependencies that we
// don't need. If we need more advanced features, we can reconsider
// using it.
func (s *Sender) Send(ctx context.Context, from, recipient email.Address, msg email.Message) error {
	// SendGrid wants exactly one content block per MIME type and
	// rejects empty values, so only include the html part when the
	// template actually rendered one.
	content := contentJSON{Type: "text/html", Value: msg.HTMLBody}
	if msg.HTMLBody == "" {
		content = contentJSON{Type: "text/plain", Value: msg.TextBody}
	}

	data := requestJSON{
		Personalization: []personalizationJSON{
			{To: []keyJSON{{Email: string(recipient)}}},
		},
		From:    keyJSON{Email: string(from)},
		Subject: msg.Subject,
		Content: []contentJSON{content},
	}

	var b bytes.Buffer
	err := json.NewEncoder(&b).Encode(data)
	if err != nil {
		return fmt.Errorf("failed to encode email json: %w", err)
	}

	reqURL := s.settings.APIURL.JoinPath("mail", "send")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL.String(), &b)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+string(s.settings.APIToken.SecretValue()))

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("request did not succeed, status code %d", resp.StatusCode)
	}

	return nil
}
