package sendgrid_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/willemschots/newsletter/internal/email"
	"github.com/willemschots/newsletter/internal/email/sendgrid"
	"github.com/willemschots/newsletter/internal/krypto"
)

func Test_Sender_Send(t *testing.T) {
	okTests := map[string]struct {
		msg      email.Message
		wantBody string
	}{
		"message with html body": {
			msg: email.Message{
				Subject:  "Hello",
				HTMLBody: "<p>Welcome</p>",
				TextBody: "Welcome",
			},
			wantBody: `{"personalization":[{"to":[{"email":"alice@example.com"}]}],"from":{"email":"news@example.com"},"subject":"Hello","content":[{"type":"text/html","value":"<p>Welcome</p>"}]}`,
		},
		"message without html body": {
			msg: email.Message{
				Subject:  "Hello",
				TextBody: "Welcome",
			},
			wantBody: `{"personalization":[{"to":[{"email":"alice@example.com"}]}],"from":{"email":"news@example.com"},"subject":"Hello","content":[{"type":"text/plain","value":"Welcome"}]}`,
		},
	}

	for name, tc := range okTests {
		t.Run(name, func(t *testing.T) {
			var gotReq *http.Request
			var gotBody []byte

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotReq = r.Clone(context.Background())

				var err error
				gotBody, err = io.ReadAll(r.Body)
				if err != nil {
					t.Errorf("failed to read request body: %v", err)
				}

				w.WriteHeader(http.StatusAccepted)
			}))
			defer srv.Close()

			sender := senderForTest(t, srv)

			err := sender.Send(context.Background(), "news@example.com", "alice@example.com", tc.msg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if gotReq.Method != http.MethodPost {
				t.Errorf("got method %s, want %s", gotReq.Method, http.MethodPost)
			}

			if gotReq.URL.Path != "/v3/mail/send" {
				t.Errorf("got path %s, want %s", gotReq.URL.Path, "/v3/mail/send")
			}

			if got := gotReq.Header.Get("Authorization"); got != "Bearer test-token" {
				t.Errorf("got authorization header %q, want %q", got, "Bearer test-token")
			}

			if got := gotReq.Header.Get("Content-Type"); got != "application/json" {
				t.Errorf("got content type %q, want %q", got, "application/json")
			}

			assertJSONEqual(t, gotBody, []byte(tc.wantBody))
		})
	}

	t.Run("fail, non-2xx response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		sender := senderForTest(t, srv)

		err := sender.Send(context.Background(), "news@example.com", "alice@example.com", email.Message{
			Subject:  "Hello",
			TextBody: "Welcome",
		})
		if err == nil {
			t.Fatalf("expected error, got nil")
		}
	})
}

func senderForTest(t *testing.T, srv *httptest.Server) *sendgrid.Sender {
	t.Helper()

	apiURL, err := url.Parse(srv.URL + "/v3")
	if err != nil {
		t.Fatalf("failed to parse server url: %v", err)
	}

	return sendgrid.NewSender(srv.Client(), sendgrid.Settings{
		APIURL:   apiURL,
		APIToken: krypto.NewSecret("test-token"),
	})
}

func assertJSONEqual(t *testing.T, got, want []byte) {
	t.Helper()

	var gotVal, wantVal any
	if err := json.Unmarshal(got, &gotVal); err != nil {
		t.Fatalf("failed to unmarshal request body: %v", err)
	}

	if err := json.Unmarshal(want, &wantVal); err != nil {
		t.Fatalf("failed to unmarshal expected body: %v", err)
	}

	gotNorm, _ := json.Marshal(gotVal)
	wantNorm, _ := json.Marshal(wantVal)

	if string(gotNorm) != string(wantNorm) {
		t.Errorf("unexpected request body:\ngot  %s\nwant %s", gotNorm, wantNorm)
	}
}
