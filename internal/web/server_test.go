package web_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/willemschots/newsletter/internal/db/testdb"
	"github.com/willemschots/newsletter/internal/email"
	"github.com/willemschots/newsletter/internal/krypto"
	"github.com/willemschots/newsletter/internal/subscription"
	"github.com/willemschots/newsletter/internal/subscription/db"
	"github.com/willemschots/newsletter/internal/web"
)

func Test_Server_HealthCheck(t *testing.T) {
	st := newServerTest(t)

	resp := st.get("/health_check")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("got status %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}

	if len(body) != 0 {
		t.Errorf("expected empty body, got %q", body)
	}
}

func Test_Server_Subscribe(t *testing.T) {
	t.Run("ok, valid form", func(t *testing.T) {
		st := newServerTest(t)

		resp := st.postForm("/subscriptions", url.Values{
			"name":  {"Ursula Le Guin"},
			"email": {"ursula@example.com"},
		})
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("got status %d, want %d", resp.StatusCode, http.StatusOK)
		}

		subs := st.findSubscribers()
		if len(subs) != 1 {
			t.Fatalf("got %d subscribers, want 1", len(subs))
		}

		sub := subs[0]
		if sub.Email != "ursula@example.com" || sub.Name != "Ursula Le Guin" {
			t.Errorf("unexpected subscriber: %+v", sub)
		}

		if sub.Status != subscription.StatusPending {
			t.Errorf("got status %q, want %q", sub.Status, subscription.StatusPending)
		}

		if len(st.emailer.emails) != 1 {
			t.Errorf("got %d emails, want 1", len(st.emailer.emails))
		}
	})

	t.Run("ok, unknown form fields are ignored", func(t *testing.T) {
		st := newServerTest(t)

		resp := st.postForm("/subscriptions", url.Values{
			"name":    {"Ursula Le Guin"},
			"email":   {"ursula@example.com"},
			"utm_ref": {"some-campaign"},
		})
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("got status %d, want %d", resp.StatusCode, http.StatusOK)
		}
	})

	badRequests := map[string]url.Values{
		"empty form":      {},
		"missing name":    {"email": {"ursula@example.com"}},
		"missing email":   {"name": {"Ursula Le Guin"}},
		"empty name":      {"name": {""}, "email": {"ursula@example.com"}},
		"empty email":     {"name": {"Ursula Le Guin"}, "email": {""}},
		"invalid email":   {"name": {"Ursula Le Guin"}, "email": {"not-an-email"}},
		"forbidden runes": {"name": {"<script>"}, "email": {"ursula@example.com"}},
	}

	for name, form := range badRequests {
		t.Run("fail, "+name, func(t *testing.T) {
			st := newServerTest(t)

			resp := st.postForm("/subscriptions", form)
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("got status %d, want %d", resp.StatusCode, http.StatusBadRequest)
			}

			if subs := st.findSubscribers(); len(subs) != 0 {
				t.Errorf("got %d subscribers, want 0", len(subs))
			}

			if len(st.emailer.emails) != 0 {
				t.Errorf("got %d emails, want 0", len(st.emailer.emails))
			}
		})
	}

	t.Run("fail, email dispatch fails", func(t *testing.T) {
		st := newServerTest(t)
		st.emailer.testErr = context.DeadlineExceeded

		resp := st.postForm("/subscriptions", url.Values{
			"name":  {"Ursula Le Guin"},
			"email": {"ursula@example.com"},
		})
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusInternalServerError {
			t.Fatalf("got status %d, want %d", resp.StatusCode, http.StatusInternalServerError)
		}

		// The subscriber was stored before dispatch failed.
		if subs := st.findSubscribers(); len(subs) != 1 {
			t.Errorf("got %d subscribers, want 1", len(subs))
		}
	})
}

func Test_Server_Confirm(t *testing.T) {
	t.Run("ok, valid token", func(t *testing.T) {
		st := newServerTest(t)
		token := st.subscribe("Ursula Le Guin", "ursula@example.com")

		resp := st.get("/subscriptions/confirm?subscription_token=" + token.String())
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("got status %d, want %d", resp.StatusCode, http.StatusOK)
		}

		subs := st.findSubscribers()
		if len(subs) != 1 || subs[0].Status != subscription.StatusConfirmed {
			t.Fatalf("expected 1 confirmed subscriber, got %+v", subs)
		}
	})

	t.Run("fail, missing token", func(t *testing.T) {
		st := newServerTest(t)

		resp := st.get("/subscriptions/confirm")
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("got status %d, want %d", resp.StatusCode, http.StatusBadRequest)
		}
	})

	unauthorized := map[string]string{
		"unknown token":   "AAAAAAAAAAAAAAAAAAAAAAAAA",
		"malformed token": "not-a-valid-token!",
	}

	for name, raw := range unauthorized {
		t.Run("fail, "+name, func(t *testing.T) {
			st := newServerTest(t)
			st.subscribe("Ursula Le Guin", "ursula@example.com")

			resp := st.get("/subscriptions/confirm?subscription_token=" + url.QueryEscape(raw))
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusUnauthorized {
				t.Fatalf("got status %d, want %d", resp.StatusCode, http.StatusUnauthorized)
			}

			subs := st.findSubscribers()
			if len(subs) != 1 || subs[0].Status != subscription.StatusPending {
				t.Fatalf("expected 1 pending subscriber, got %+v", subs)
			}
		})
	}
}

type serverTest struct {
	t       *testing.T
	srv     *httptest.Server
	store   *db.Store
	emailer *testEmailer
}

func newServerTest(t *testing.T) *serverTest {
	t.Helper()

	testDB := testdb.RunWhile(t, true)
	store := db.New(testDB)
	emailer := &testEmailer{}

	baseURL, err := url.Parse("http://example.com")
	if err != nil {
		t.Fatalf("failed to parse base url: %v", err)
	}

	svc := subscription.NewService(store, emailer, subscription.ServiceConfig{
		BaseURL: baseURL,
	})

	srv := httptest.NewServer(web.NewServer(&web.ServerDeps{
		Logger:              slog.New(slog.NewTextHandler(io.Discard, nil)),
		SubscriptionService: svc,
	}))
	t.Cleanup(srv.Close)

	return &serverTest{
		t:       t,
		srv:     srv,
		store:   store,
		emailer: emailer,
	}
}

func (st *serverTest) get(path string) *http.Response {
	st.t.Helper()

	resp, err := st.srv.Client().Get(st.srv.URL + path)
	if err != nil {
		st.t.Fatalf("failed to GET %s: %v", path, err)
	}

	return resp
}

func (st *serverTest) postForm(path string, form url.Values) *http.Response {
	st.t.Helper()

	resp, err := st.srv.Client().Post(st.srv.URL+path, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		st.t.Fatalf("failed to POST %s: %v", path, err)
	}

	return resp
}

// subscribe signs up a subscriber via the HTTP endpoint and returns
// the token from the captured confirmation email.
func (st *serverTest) subscribe(name, addr string) krypto.Token {
	st.t.Helper()

	resp := st.postForm("/subscriptions", url.Values{
		"name":  {name},
		"email": {addr},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		st.t.Fatalf("got status %d, want %d", resp.StatusCode, http.StatusOK)
	}

	sent := st.emailer.emails[len(st.emailer.emails)-1]
	data, ok := sent.data.(subscription.ConfirmationEmail)
	if !ok {
		st.t.Fatalf("unexpected data type: %T", sent.data)
	}

	u, err := url.Parse(data.ConfirmationURL)
	if err != nil {
		st.t.Fatalf("failed to parse confirmation url: %v", err)
	}

	token, err := krypto.ParseToken(u.Query().Get("subscription_token"))
	if err != nil {
		st.t.Fatalf("failed to parse token: %v", err)
	}

	return token
}

func (st *serverTest) findSubscribers() []subscription.Subscriber {
	st.t.Helper()

	tx, err := st.store.BeginTx(context.Background())
	if err != nil {
		st.t.Fatalf("failed to begin tx: %v", err)
	}

	subs, err := tx.FindSubscribers(&subscription.SubscriberFilter{})
	if err != nil {
		st.t.Fatalf("failed to find subscribers: %v", err)
	}

	if err := tx.Commit(); err != nil {
		st.t.Fatalf("failed to commit tx: %v", err)
	}

	return subs
}

type sentEmail struct {
	template  string
	recipient email.Address
	data      any
}

type testEmailer struct {
	emails  []sentEmail
	testErr error
}

func (e *testEmailer) Send(_ context.Context, template string, to email.Address, data any) error {
	if e.testErr != nil {
		return e.testErr
	}

	e.emails = append(e.emails, sentEmail{
		template:  template,
		recipient: to,
		data:      data,
	})

	return nil
}
