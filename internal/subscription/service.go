package subscription

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/willemschots/newsletter/internal/email"
	"github.com/willemschots/newsletter/internal/errorz"
	"github.com/willemschots/newsletter/internal/krypto"
)

// ErrEmailNotSent indicates a subscriber was stored but the
// confirmation email could not be delivered to the email provider.
var ErrEmailNotSent = errors.New("confirmation email not sent")

// Emailer is used to send templated emails.
type Emailer interface {
	Send(ctx context.Context, template string, to email.Address, data any) error
}

// ServiceConfig is the configuration for the Service.
type ServiceConfig struct {
	// BaseURL is the public URL of the app, used to construct
	// confirmation links.
	BaseURL *url.URL
}

// Service provides the main rules for managing newsletter subscriptions.
type Service struct {
	store   Store
	emailer Emailer
	cfg     ServiceConfig

	// NowFunc is used to get the current time.
	// Exposed for testing purposes.
	NowFunc func() time.Time
}

func NewService(s Store, emailer Emailer, cfg ServiceConfig) *Service {
	return &Service{
		store:   s,
		emailer: emailer,
		cfg:     cfg,
		NowFunc: time.Now,
	}
}

// SubscribeRequest are the details someone signs up with.
type SubscribeRequest struct {
	Name  Name
	Email email.Address
}

// ConfirmationEmail is the data provided to the confirmation email template.
type ConfirmationEmail struct {
	Name            Name
	ConfirmationURL string
}

const confirmTemplate = "confirm-subscription"

// Subscribe signs up a new subscriber:
// - Store the subscriber as pending confirmation.
// - Store a confirmation token for them.
// - Email them a link that embeds the token.
//
// Signing up twice with the same email address creates a second,
// independent subscriber. They each get their own token and both
// tokens keep working.
//
// If ErrEmailNotSent is returned the subscriber and token were stored
// but no email went out. The subscriber can sign up again to receive
// a fresh token.
func (s *Service) Subscribe(ctx context.Context, req SubscribeRequest) error {
	// Both fields pass through parse funcs when they're decoded, but a
	// caller could provide zero values directly.
	if err := validateRequest(req); err != nil {
		return err
	}

	token, err := krypto.GenerateToken()
	if err != nil {
		return err
	}

	sub := Subscriber{
		ID:           uuid.New(),
		Email:        req.Email,
		Name:         req.Name,
		Status:       StatusPending,
		SubscribedAt: s.NowFunc(),
	}

	err = s.inTx(ctx, func(tx Tx) error {
		if txErr := tx.CreateSubscriber(&sub); txErr != nil {
			return txErr
		}

		return tx.CreateToken(&ConfirmationToken{
			Token:        token,
			SubscriberID: sub.ID,
		})
	})
	if err != nil {
		return err
	}

	// Sending the email could fail independently of the transaction.
	// This is an acceptable risk for now, the subscriber row stays
	// pending and they can sign up again for a new link.
	//
	// If at some point this becomes unacceptable, we need to consider
	// some kind of outbox pattern.
	err = s.emailer.Send(ctx, confirmTemplate, sub.Email, ConfirmationEmail{
		Name:            sub.Name,
		ConfirmationURL: s.confirmationURL(token),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEmailNotSent, err)
	}

	return nil
}

func validateRequest(req SubscribeRequest) error {
	var errs []error
	if req.Name == "" {
		errs = append(errs, errorz.Keyed{Key: "name", Err: ErrInvalidName})
	}
	if req.Email == "" {
		errs = append(errs, errorz.Keyed{Key: "email", Err: email.ErrInvalidEmail})
	}

	if len(errs) > 0 {
		return errorz.InvalidInput(errs)
	}

	return nil
}

func (s *Service) confirmationURL(token krypto.Token) string {
	u := s.cfg.BaseURL.JoinPath("subscriptions", "confirm")

	q := u.Query()
	q.Set("subscription_token", token.String())
	u.RawQuery = q.Encode()

	return u.String()
}

// Confirm marks the subscriber behind the provided token as confirmed.
//
// Malformed and unknown tokens both fail with errorz.ErrNotFound, a
// caller can't tell the two apart. Confirming an already confirmed
// subscriber succeeds and changes nothing.
func (s *Service) Confirm(ctx context.Context, raw string) error {
	if raw == "" {
		return errorz.InvalidInput{
			errorz.Keyed{Key: "subscription_token", Err: errors.New("is required")},
		}
	}

	token, err := krypto.ParseToken(raw)
	if err != nil {
		// A malformed token can't exist in the store, so it gets the
		// same treatment as an unknown one.
		return fmt.Errorf("%w: %w", errorz.ErrNotFound, err)
	}

	return s.inTx(ctx, func(tx Tx) error {
		tokens, txErr := tx.FindTokens(&TokenFilter{
			Tokens: []krypto.Token{token},
		})
		if txErr != nil {
			return txErr
		}

		if len(tokens) != 1 {
			return fmt.Errorf("%w: unknown token", errorz.ErrNotFound)
		}

		subs, txErr := tx.FindSubscribers(&SubscriberFilter{
			IDs: []uuid.UUID{tokens[0].SubscriberID},
		})
		if txErr != nil {
			return txErr
		}

		if len(subs) != 1 {
			return fmt.Errorf("token without subscriber: %w", errorz.ErrNotFound)
		}

		if subs[0].Status == StatusConfirmed {
			return nil
		}

		subs[0].Status = StatusConfirmed
		return tx.UpdateSubscriber(&subs[0])
	})
}

func (s *Service) inTx(ctx context.Context, f func(tx Tx) error) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return err
	}

	err = f(tx)
	if err != nil {
		rBackErr := tx.Rollback()
		if rBackErr != nil {
			err = errors.Join(err, rBackErr)
		}
		return err
	}

	err = tx.Commit()
	if err != nil {
		return err
	}

	return nil
}
