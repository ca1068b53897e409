package subscription

import (
	"time"

	"github.com/google/uuid"
	"github.com/willemschots/newsletter/internal/email"
	"github.com/willemschots/newsletter/internal/krypto"
)

// Status is the lifecycle state of a subscriber.
type Status string

const (
	// StatusPending means the subscriber signed up but has not yet
	// confirmed their email address.
	StatusPending Status = "pending_confirmation"
	// StatusConfirmed means the subscriber followed the confirmation
	// link and will receive newsletter issues.
	StatusConfirmed Status = "confirmed"
)

// Subscriber is someone who signed up for the newsletter.
type Subscriber struct {
	ID           uuid.UUID
	Email        email.Address
	Name         Name
	Status       Status
	SubscribedAt time.Time
}

// ConfirmationToken links a secret token to a subscriber. Whoever
// presents the token proves they control the subscriber's inbox.
type ConfirmationToken struct {
	Token        krypto.Token
	SubscriberID uuid.UUID
}
