package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/schema"
	"github.com/willemschots/newsletter/internal/email"
	"github.com/willemschots/newsletter/internal/errorz"
	"github.com/willemschots/newsletter/internal/subscription"
)

// ServerDeps are the dependencies for the server.
type ServerDeps struct {
	Logger              *slog.Logger
	SubscriptionService *subscription.Service
}

type Server struct {
	deps    *ServerDeps
	mux     *http.ServeMux
	decoder *schema.Decoder
}

func NewServer(deps *ServerDeps) *Server {
	s := &Server{
		deps:    deps,
		mux:     http.NewServeMux(),
		decoder: schema.NewDecoder(),
	}

	// Forms may contain fields we don't map, like tracking parameters
	// added by email clients.
	s.decoder.IgnoreUnknownKeys(true)

	// The endpoints below are created using the newInputHandler function.
	// It returns handlers that automatically map HTTP requests to target
	// function calls.

	s.mux.HandleFunc("GET /health_check", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	{
		type subscribeForm struct {
			Name  subscription.Name `schema:"name"`
			Email email.Address     `schema:"email"`
		}

		h := newInputHandler(s, func(ctx context.Context, form subscribeForm) error {
			return s.deps.SubscriptionService.Subscribe(ctx, subscription.SubscribeRequest{
				Name:  form.Name,
				Email: form.Email,
			})
		})

		s.mux.Handle("POST /subscriptions", h)
	}

	{
		type confirmForm struct {
			Token string `schema:"subscription_token"`
		}

		h := newInputHandler(s, func(ctx context.Context, form confirmForm) error {
			return s.deps.SubscriptionService.Confirm(ctx, form.Token)
		})

		s.mux.Handle("GET /subscriptions/confirm", h)
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	// Unknown and malformed tokens get the same response, a caller
	// should not be able to distinguish them.
	if errors.Is(err, errorz.ErrNotFound) {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	var invalidInput errorz.InvalidInput
	if errors.As(err, &invalidInput) {
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	}

	s.deps.Logger.Error("internal server error", "url", r.URL.String(), "error", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
